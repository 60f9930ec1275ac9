package logger

import (
	"strings"

	"github.com/fatih/color"
	"github.com/harrison/tcsa/internal/diagnostics"
)

// Level orders messages by verbosity. A logger prints messages at or above its level.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR"}

var levelColors = [...]color.Attribute{color.FgHiBlack, color.FgCyan, color.FgBlue, color.FgYellow, color.FgRed}

// ParseLevel reads trace, debug, info, warn or error, ignoring case.
// Anything else yields LevelInfo.
func ParseLevel(s string) Level {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range levelNames {
		if n == name {
			return Level(i)
		}
	}
	return LevelInfo
}

// String returns the upper-case label printed in log lines.
func (l Level) String() string {
	if l < LevelTrace || l > LevelError {
		return "INFO"
	}
	return levelNames[l]
}

func (l Level) colored() string {
	if l < LevelTrace || l > LevelError {
		return l.String()
	}
	return color.New(levelColors[l]).Sprint(l.String())
}

// levelForSeverity maps a finding's severity to the level it is logged at.
func levelForSeverity(severity diagnostics.Severity) Level {
	switch severity {
	case diagnostics.SeverityHigh:
		return LevelError
	case diagnostics.SeverityMedium:
		return LevelWarn
	default:
		return LevelInfo
	}
}
