// Package exitcode provides standardized exit codes for convguard
package exitcode

// Exit codes for convguard CLI
const (
	// Success means analysis completed with no finding at or above the fail-on severity.
	Success = 0
	// FindingsAtThreshold means analysis completed and at least one finding reached the fail-on severity.
	FindingsAtThreshold = 1
	// Fatal covers configuration errors, missing inputs and report write failures.
	Fatal = 2
)

// String returns a human-readable description of the exit code
func String(code int) string {
	switch code {
	case Success:
		return "Success"
	case FindingsAtThreshold:
		return "Findings at or above threshold"
	case Fatal:
		return "Fatal error"
	default:
		return "Unknown error"
	}
}
