// Package publish defines the downstream result-publishing boundary. The
// orchestrator calls Publish exactly once per logical scenario: once for a
// plain scenario, once for the consolidated result of a whole outline.
package publish

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/types"
)

// Publication is one published scenario outcome.
type Publication struct {
	RunID      string            `json:"runId"`
	Feature    string            `json:"feature"`
	Scenario   string            `json:"scenario"`
	Status     types.TestStatus  `json:"status"`
	Duration   time.Duration     `json:"duration"`
	Error      string            `json:"error,omitempty"`
	StackTrace string            `json:"stackTrace,omitempty"`
	Artifacts  []string          `json:"artifacts,omitempty"`
	Iterations int               `json:"iterations,omitempty"` // >0 for consolidated outline results
	TestData   map[string]string `json:"testData,omitempty"`
	Summary    string            `json:"summary,omitempty"` // per-iteration breakdown for consolidated results
}

// Publisher forwards publications to a downstream consumer (issue tracker,
// report pipeline, message bus). Implementations must tolerate being the
// last hop: errors are reported back but never fail the run.
type Publisher interface {
	Publish(ctx context.Context, p Publication) error
}

// LogPublisher writes publications to the structured log. It is the default
// when no downstream integration is configured.
type LogPublisher struct {
	log *zap.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log.With(zap.String("component", "publisher"))}
}

// Publish logs the publication.
func (p *LogPublisher) Publish(ctx context.Context, pub Publication) error {
	fields := []zap.Field{
		zap.String("runId", pub.RunID),
		zap.String("feature", pub.Feature),
		zap.String("scenario", pub.Scenario),
		zap.String("status", string(pub.Status)),
		zap.Duration("duration", pub.Duration),
	}
	if pub.Iterations > 0 {
		fields = append(fields, zap.Int("iterations", pub.Iterations))
	}
	if pub.Error != "" {
		fields = append(fields, zap.String("error", pub.Error))
	}
	p.log.Info("scenario result", fields...)
	if pub.Summary != "" {
		p.log.Debug("iteration summary", zap.String("scenario", pub.Scenario), zap.String("summary", pub.Summary))
	}
	return nil
}
