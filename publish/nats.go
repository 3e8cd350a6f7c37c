package publish

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSPublisher publishes scenario results as JSON messages on a NATS
// subject, one message per logical scenario. Subjects are
// <prefix>.results.<runID> so downstream consumers can subscribe per run.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
	log    *zap.Logger
}

// NewNATSPublisher connects to the given NATS URL.
func NewNATSPublisher(url, prefix string, log *zap.Logger) (*NATSPublisher, error) {
	if prefix == "" {
		prefix = "pwt"
	}
	conn, err := nats.Connect(url, nats.Name("pwt-orchestrator"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", url, err)
	}
	return &NATSPublisher{
		conn:   conn,
		prefix: prefix,
		log:    log.With(zap.String("component", "nats-publisher")),
	}, nil
}

// Publish serializes and publishes the publication.
func (p *NATSPublisher) Publish(ctx context.Context, pub Publication) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(pub)
	if err != nil {
		return fmt.Errorf("marshal publication: %w", err)
	}
	subject := fmt.Sprintf("%s.results.%s", p.prefix, pub.RunID)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	p.log.Debug("published result",
		zap.String("subject", subject),
		zap.String("scenario", pub.Scenario),
		zap.String("status", string(pub.Status)))
	return nil
}

// Close flushes and drains the connection.
func (p *NATSPublisher) Close() {
	_ = p.conn.Flush()
	p.conn.Close()
}
