package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies why a run aborted.
type Kind int

const (
	// KindConfiguration covers missing or invalid input, including missing files.
	KindConfiguration Kind = iota
	// KindVersionNotFound means a descriptor carries no version marker.
	KindVersionNotFound
	// KindMalformedVersion means the first version marker did not parse.
	KindMalformedVersion
	// KindUnsupportedVersion means the TwinCAT version is below the minimum.
	KindUnsupportedVersion
	// KindAutomationFailure wraps any error or panic from the automation collaborator.
	KindAutomationFailure
	// KindCanceled means the run context was canceled or timed out.
	KindCanceled
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration error"
	case KindVersionNotFound:
		return "version not found"
	case KindMalformedVersion:
		return "malformed version"
	case KindUnsupportedVersion:
		return "unsupported version"
	case KindAutomationFailure:
		return "automation failure"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// AbortError reports a run that moved to StateAborted.
type AbortError struct {
	State   State  // state the run was in when it aborted
	Kind    Kind   // abort reason
	Message string // human-readable description
	Err     error  // underlying error (optional)
}

func newAbortError(state State, kind Kind, msg string, err error) *AbortError {
	return &AbortError{State: state, Kind: kind, Message: msg, Err: err}
}

// Error implements the error interface.
func (e *AbortError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s: %s", e.Kind, e.Message))
	if e.Err != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Err))
	}
	return sb.String()
}

// Unwrap returns the underlying error.
func (e *AbortError) Unwrap() error {
	return e.Err
}

// KindOf extracts the abort kind from err.
func KindOf(err error) (Kind, bool) {
	var abortErr *AbortError
	if errors.As(err, &abortErr) {
		return abortErr.Kind, true
	}
	return 0, false
}

// IsKind reports whether err is an AbortError of the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
