package diagnostics

// ExitStatus is the final outcome of a run.
type ExitStatus int

const (
	// StatusSuccess means no counted warnings or errors.
	StatusSuccess ExitStatus = iota
	// StatusUnstable means warnings but no errors.
	StatusUnstable
	// StatusError means errors were found or the run aborted.
	StatusError
)

// Process exit codes for each status.
const (
	ExitCodeSuccess  = 0
	ExitCodeUnstable = 1
	ExitCodeError    = 2
)

// String returns the status name.
func (s ExitStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusUnstable:
		return "unstable"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// ExitCode maps the status to its process exit code. Unknown values map to the error code.
func (s ExitStatus) ExitCode() int {
	switch s {
	case StatusSuccess:
		return ExitCodeSuccess
	case StatusUnstable:
		return ExitCodeUnstable
	default:
		return ExitCodeError
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s ExitStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Resolve maps counts to a status. Errors take precedence over warnings.
func Resolve(counts Counts) ExitStatus {
	switch {
	case counts.Errors > 0:
		return StatusError
	case counts.Warnings > 0:
		return StatusUnstable
	default:
		return StatusSuccess
	}
}
