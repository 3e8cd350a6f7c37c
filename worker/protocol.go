package worker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/types"
)

// Kind discriminates the message types of the worker IPC protocol.
type Kind string

const (
	KindReady     Kind = "ready"
	KindExecute   Kind = "execute"
	KindResult    Kind = "result"
	KindError     Kind = "error"
	KindLog       Kind = "log"
	KindTerminate Kind = "terminate"
)

// Message is one envelope of the worker IPC protocol. Each concrete type
// carries only the fields relevant to its kind, so the protocol is statically
// checkable on both sides.
type Message interface {
	Kind() Kind
}

// Ready is sent by a worker exactly once, after internal initialization.
type Ready struct {
	WorkerID int `json:"workerId,omitempty"`
}

func (*Ready) Kind() Kind { return KindReady }

// Execute assigns one WorkItem to a worker. Example row metadata is present
// only for scenario-outline iterations.
type Execute struct {
	ScenarioID      string               `json:"scenarioId"`
	Feature         *types.Feature       `json:"feature"`
	Scenario        *types.Scenario      `json:"scenario"`
	Config          types.ConfigSnapshot `json:"config"`
	ExampleRow      []string             `json:"exampleRow,omitempty"`
	ExampleHeaders  []string             `json:"exampleHeaders,omitempty"`
	IterationNumber int                  `json:"iterationNumber,omitempty"`
	TotalIterations int                  `json:"totalIterations,omitempty"`
}

func (*Execute) Kind() Kind { return KindExecute }

// ResultMsg is the terminal response to an Execute, exactly one per
// assignment.
type ResultMsg struct {
	Status     types.TestStatus  `json:"status"`
	Duration   time.Duration     `json:"duration"`
	Error      string            `json:"error,omitempty"`
	StackTrace string            `json:"stackTrace,omitempty"`
	Artifacts  []string          `json:"artifacts,omitempty"`
	TestData   map[string]string `json:"testData,omitempty"`
}

func (*ResultMsg) Kind() Kind { return KindResult }

// ErrorMsg is a non-terminal diagnostic; the worker is still expected to
// deliver a ResultMsg for its current assignment.
type ErrorMsg struct {
	Error string `json:"error"`
}

func (*ErrorMsg) Kind() Kind { return KindError }

// LogMsg is a non-terminal log line from the worker.
type LogMsg struct {
	Message string `json:"message"`
}

func (*LogMsg) Kind() Kind { return KindLog }

// Terminate asks a worker to exit voluntarily.
type Terminate struct{}

func (*Terminate) Kind() Kind { return KindTerminate }

// envelope is the wire shape: one JSON object per line.
type envelope struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode serializes a message to a single-line JSON envelope (no trailing
// newline).
func Encode(m Message) ([]byte, error) {
	var payload json.RawMessage
	switch m.(type) {
	case *Ready, *Terminate:
		// Payload optional for bodyless kinds, but keep Ready's workerId.
		if r, ok := m.(*Ready); ok && r.WorkerID != 0 {
			b, err := json.Marshal(r)
			if err != nil {
				return nil, err
			}
			payload = b
		}
	default:
		b, err := json.Marshal(m)
		if err != nil {
			return nil, err
		}
		payload = b
	}
	return json.Marshal(envelope{Type: m.Kind(), Payload: payload})
}

// Decode parses a single envelope line into its typed message.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed envelope: %w", err)
	}

	var msg Message
	switch env.Type {
	case KindReady:
		msg = &Ready{}
	case KindExecute:
		msg = &Execute{}
	case KindResult:
		msg = &ResultMsg{}
	case KindError:
		msg = &ErrorMsg{}
	case KindLog:
		msg = &LogMsg{}
	case KindTerminate:
		msg = &Terminate{}
	default:
		return nil, fmt.Errorf("unknown message type %q", env.Type)
	}

	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, msg); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", env.Type, err)
		}
	}
	return msg, nil
}
