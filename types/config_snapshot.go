package types

import "time"

// ConfigSnapshot is the serialized runtime configuration handed to every
// worker on each execute message. Workers treat it as read-only.
type ConfigSnapshot struct {
	RunID          string        `json:"runId"`
	WorkerID       int           `json:"workerId"`
	Environment    string        `json:"environment,omitempty"`
	Headless       bool          `json:"headless"`
	DefaultTimeout time.Duration `json:"defaultTimeout"`
	LogLevel       string        `json:"logLevel,omitempty"`
	ArtifactDir    string        `json:"artifactDir,omitempty"`
}
