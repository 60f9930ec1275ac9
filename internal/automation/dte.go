package automation

import (
	"fmt"
	"time"

	"github.com/harrison/tcsa/internal/diagnostics"
	"github.com/harrison/tcsa/internal/version"
)

// DTEOptions configures the COM automation backend.
type DTEOptions struct {
	// ProgID overrides the automation server, e.g. "TcXaeShell.DTE.15.0".
	// When empty it is derived from the solution's Visual Studio version.
	ProgID string

	// Retry governs calls rejected while the IDE is busy.
	Retry RetryPolicy

	// SettleDelay is waited after the build before the error list is read.
	SettleDelay time.Duration
}

// ProgID returns the COM class of the Visual Studio automation server for ide,
// e.g. "VisualStudio.DTE.16.0".
func ProgID(ide version.Version) string {
	return fmt.Sprintf("VisualStudio.DTE.%d.%d", ide.Major(), ide.Minor())
}

func (o DTEOptions) progID(ide version.Version) string {
	if o.ProgID != "" {
		return o.ProgID
	}
	return ProgID(ide)
}

// vsBuildErrorLevel values reported by ErrorItem.ErrorLevel.
const (
	vsBuildErrorLevelLow    = 1
	vsBuildErrorLevelMedium = 2
	vsBuildErrorLevelHigh   = 4
)

// severityFromErrorLevel maps a vsBuildErrorLevel value to a Severity.
// Unknown values are treated as Low.
func severityFromErrorLevel(level int64) diagnostics.Severity {
	switch level {
	case vsBuildErrorLevelHigh:
		return diagnostics.SeverityHigh
	case vsBuildErrorLevelMedium:
		return diagnostics.SeverityMedium
	default:
		return diagnostics.SeverityLow
	}
}
