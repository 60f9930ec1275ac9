// Package logger provides logging implementations for tcsa runs.
//
// The logger package offers level-filtered progress logging, one line per
// static-analysis finding and a run summary. Implementations are thread-safe
// and write to the console or to a per-run log file.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/harrison/tcsa/internal/diagnostics"
	"github.com/harrison/tcsa/internal/pipeline"
	"github.com/mattn/go-isatty"
)

// ConsoleLogger writes run progress as "[HH:MM:SS] [LEVEL] message" lines.
// Levels and the summary status are colored when the writer is a terminal.
type ConsoleLogger struct {
	mu    sync.Mutex
	out   io.Writer
	level Level
	color bool
}

// NewConsoleLogger creates a ConsoleLogger printing messages at or above level.
// A nil writer discards everything; an unknown level means info.
func NewConsoleLogger(out io.Writer, level string) *ConsoleLogger {
	return &ConsoleLogger{
		out:   out,
		level: ParseLevel(level),
		color: isTerminal(out),
	}
}

// isTerminal reports whether w is a TTY. NO_COLOR disables colors through fatih/color.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil || color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Level returns the minimum level printed.
func (cl *ConsoleLogger) Level() Level { return cl.level }

func (cl *ConsoleLogger) enabled(l Level) bool {
	return cl.out != nil && l >= cl.level
}

func (cl *ConsoleLogger) LogTrace(message string) { cl.log(LevelTrace, message) }
func (cl *ConsoleLogger) LogDebug(message string) { cl.log(LevelDebug, message) }
func (cl *ConsoleLogger) LogInfo(message string) { cl.log(LevelInfo, message) }
func (cl *ConsoleLogger) LogWarn(message string) { cl.log(LevelWarn, message) }
func (cl *ConsoleLogger) LogError(message string) { cl.log(LevelError, message) }

// LogDiagnostic prints one static-analysis finding, Medium at WARN and High at ERROR:
//
//	[10:04:31] [WARN] SA0033: Unused variable 'x' (severity: Medium, file: MAIN.TcPOU)
//
// Findings are printed whatever the configured level.
func (cl *ConsoleLogger) LogDiagnostic(record diagnostics.Record) {
	if cl.out == nil {
		return
	}
	cl.emit(levelForSeverity(record.Severity), formatDiagnostic(record))
}

// LogSummary prints the classification totals and the resolved status at INFO.
func (cl *ConsoleLogger) LogSummary(result *pipeline.Result) {
	if result == nil || !cl.enabled(LevelInfo) {
		return
	}

	status := strings.ToUpper(result.Status.String())
	if cl.color {
		status = statusColor(result.Status).Sprint(status)
	}

	rows := [][2]string{
		{"Diagnostics:", fmt.Sprintf("%d (%d static analysis)", len(result.Diagnostics), len(result.Matched))},
		{"Warnings:", fmt.Sprint(result.Counts.Warnings)},
		{"Errors:", fmt.Sprint(result.Counts.Errors)},
		{"Duration:", formatDuration(result.Duration)},
		{"Status:", status},
	}

	ts := timestamp()
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] === Static analysis summary ===\n", ts)
	for _, row := range rows {
		fmt.Fprintf(&sb, "[%s] %-12s %s\n", ts, row[0], row[1])
	}
	cl.write(sb.String())
}

func (cl *ConsoleLogger) log(l Level, message string) {
	if cl.enabled(l) {
		cl.emit(l, message)
	}
}

func (cl *ConsoleLogger) emit(l Level, message string) {
	label := l.String()
	if cl.color {
		label = l.colored()
	}
	cl.write(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), label, message))
}

func (cl *ConsoleLogger) write(s string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	io.WriteString(cl.out, s)
}

// statusColor picks the color of a resolved status.
func statusColor(status diagnostics.ExitStatus) *color.Color {
	switch status {
	case diagnostics.StatusSuccess:
		return color.New(color.FgGreen, color.Bold)
	case diagnostics.StatusUnstable:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

// formatDiagnostic renders description, severity and file of a finding.
func formatDiagnostic(record diagnostics.Record) string {
	file := record.SourceFile
	if file == "" {
		file = "-"
	}
	return fmt.Sprintf("%s (severity: %s, file: %s)", record.Description, record.Severity, file)
}

func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration renders d rounded for humans: "850ms", "12.3s", "4m05s".
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		d = d.Round(time.Second)
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}

// NoOpLogger discards everything.
type NoOpLogger struct{}

// NewNoOpLogger creates a logger that drops every message.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) LogTrace(string) {}
func (n *NoOpLogger) LogDebug(string) {}
func (n *NoOpLogger) LogInfo(string) {}
func (n *NoOpLogger) LogWarn(string) {}
func (n *NoOpLogger) LogError(string) {}
func (n *NoOpLogger) LogDiagnostic(diagnostics.Record) {}
func (n *NoOpLogger) LogSummary(*pipeline.Result) {}
