package diagnostics

import "strings"

// DefaultTagPrefix tags diagnostics emitted by TwinCAT static analysis (SA0001, SA0033, ...).
const DefaultTagPrefix = "SA"

// Counts tallies the matched diagnostics of one run.
type Counts struct {
	Warnings int `yaml:"warnings" json:"warnings"`
	Errors   int `yaml:"errors" json:"errors"`
}

// Logger receives every matched diagnostic, in input order.
type Logger interface {
	LogDiagnostic(record Record)
}

// Matches reports whether a record is a counted static-analysis finding:
// its description starts with tagPrefix and its severity is above Low.
func Matches(record Record, tagPrefix string) bool {
	return strings.HasPrefix(record.Description, tagPrefix) && record.Severity != SeverityLow
}

// Classify counts the records selected by Matches. Medium records are warnings,
// High records are errors. Each matched record is passed to logger (which may be nil)
// before the next record is examined. Unmatched records are neither counted nor logged.
func Classify(records []Record, tagPrefix string, logger Logger) Counts {
	var counts Counts
	for _, record := range records {
		if !Matches(record, tagPrefix) {
			continue
		}
		if logger != nil {
			logger.LogDiagnostic(record)
		}
		switch record.Severity {
		case SeverityMedium:
			counts.Warnings++
		case SeverityHigh:
			counts.Errors++
		}
	}
	return counts
}

// Filter returns the records selected by Matches, preserving order.
func Filter(records []Record, tagPrefix string) []Record {
	var matched []Record
	for _, record := range records {
		if Matches(record, tagPrefix) {
			matched = append(matched, record)
		}
	}
	return matched
}
