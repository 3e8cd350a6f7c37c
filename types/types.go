package types

// TestStatus represents the possible outcomes of a scenario execution
type TestStatus string

const (
	TestStatusPass TestStatus = "pass"
	TestStatusFail TestStatus = "fail"
	TestStatusSkip TestStatus = "skip"
)

// Feature is a parsed feature file containing one or more scenarios.
// Features are produced by the specfile loader and consumed read-only
// by the orchestrator.
type Feature struct {
	Name      string     `yaml:"feature" json:"feature"`
	Tags      []string   `yaml:"tags,omitempty" json:"tags,omitempty"`
	Scenarios []Scenario `yaml:"scenarios" json:"scenarios"`
}

// Scenario is a single test case within a feature. A scenario with an
// Examples block is a scenario outline: each example row yields one
// independently scheduled iteration.
type Scenario struct {
	Name     string    `yaml:"name" json:"name"`
	Tags     []string  `yaml:"tags,omitempty" json:"tags,omitempty"`
	Steps    []string  `yaml:"steps,omitempty" json:"steps,omitempty"`
	Examples *Examples `yaml:"examples,omitempty" json:"examples,omitempty"`
}

// Examples parameterizes a scenario with a data table. Rows may be inline,
// loaded from an external source, or both (inline rows first).
type Examples struct {
	Headers []string    `yaml:"headers,omitempty" json:"headers,omitempty"`
	Rows    [][]string  `yaml:"rows,omitempty" json:"rows,omitempty"`
	Source  *DataSource `yaml:"source,omitempty" json:"source,omitempty"`
}

// DataSource describes an external example-row source.
type DataSource struct {
	Path   string `yaml:"path" json:"path"`
	Format string `yaml:"format,omitempty" json:"format,omitempty"` // csv, json or yaml; inferred from Path when empty
	Table  string `yaml:"table,omitempty" json:"table,omitempty"`   // named table/sheet within the source, if any
	Filter string `yaml:"filter,omitempty" json:"filter,omitempty"` // "column <op> value" row predicate
}

// HasExamples reports whether the scenario is a scenario outline.
func (s *Scenario) HasExamples() bool {
	return s.Examples != nil
}
