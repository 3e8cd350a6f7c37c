// Package exitcodes defines the standard exit codes used by pwt-orchestrator.
package exitcodes

// Exit code constants used by pwt-orchestrator
// These constants define the exit codes that the application uses to indicate
// various states when it exits:
//
// * Success (0): Used when all scenarios pass successfully
// * TestFailure (1): Used when one or more scenarios fail
// * RuntimeErr (2): Used for runtime errors such as panics, timeouts or other failures
const (
	Success     = 0 // All scenarios pass
	TestFailure = 1 // Scenario failures
	RuntimeErr  = 2 // Runtime errors or timeouts
)
