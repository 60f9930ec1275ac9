// Package diagnostics classifies build diagnostics into warning and error
// buckets and resolves the tallies into a single CI exit status.
package diagnostics

import (
	"fmt"
	"strings"
)

// Severity is the error level reported by the build for a diagnostic.
type Severity int

const (
	// SeverityLow is informational and never counted.
	SeverityLow Severity = iota
	// SeverityMedium is counted as a warning.
	SeverityMedium
	// SeverityHigh is counted as an error.
	SeverityHigh
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "Low"
	case SeverityMedium:
		return "Medium"
	case SeverityHigh:
		return "High"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// ParseSeverity accepts a severity name (case-insensitive).
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	default:
		return SeverityLow, fmt.Errorf("unknown severity %q, must be one of: low, medium, high", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Record is one diagnostic produced by the build. Records are read-only to this package.
type Record struct {
	Description string   `yaml:"description" json:"description"`
	Severity    Severity `yaml:"severity" json:"severity"`
	SourceFile  string   `yaml:"file,omitempty" json:"file,omitempty"`
}
