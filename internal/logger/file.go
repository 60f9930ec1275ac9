package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/tcsa/internal/diagnostics"
	"github.com/harrison/tcsa/internal/pipeline"
)

// latestLink names the symlink that points at the newest run log.
const latestLink = "latest.log"

// FileLogger appends one run to run-YYYYMMDD-HHMMSS.log inside a log directory.
// Lines are synced as they are written so a killed CI job still leaves a usable log.
type FileLogger struct {
	mu    sync.Mutex
	file  *os.File
	path  string
	level Level
}

// NewFileLogger opens a new run log in dir, creating dir if needed, and
// repoints latest.log at it.
func NewFileLogger(dir string, level string) (*FileLogger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	started := time.Now()
	path := filepath.Join(dir, "run-"+started.Format("20060102-150405")+".log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	if err := relinkLatest(dir, filepath.Base(path)); err != nil {
		file.Close()
		return nil, err
	}

	fl := &FileLogger{file: file, path: path, level: ParseLevel(level)}
	fl.write(fmt.Sprintf("=== tcsa run log ===\nStarted at: %s\n\n", started.Format(time.RFC3339)))
	return fl, nil
}

// relinkLatest points dir/latest.log at name. Creating the link is best effort:
// symlinks need extra privileges on Windows and the run log itself is enough there.
func relinkLatest(dir, name string) error {
	link := filepath.Join(dir, latestLink)
	if _, err := os.Lstat(link); err == nil {
		if err := os.Remove(link); err != nil {
			return fmt.Errorf("failed to remove old %s: %w", latestLink, err)
		}
	}
	_ = os.Symlink(name, link)
	return nil
}

// Path returns the path of the current run log.
func (fl *FileLogger) Path() string {
	return fl.path
}

func (fl *FileLogger) LogTrace(message string) { fl.log(LevelTrace, message) }
func (fl *FileLogger) LogDebug(message string) { fl.log(LevelDebug, message) }
func (fl *FileLogger) LogInfo(message string) { fl.log(LevelInfo, message) }
func (fl *FileLogger) LogWarn(message string) { fl.log(LevelWarn, message) }
func (fl *FileLogger) LogError(message string) { fl.log(LevelError, message) }

// LogDiagnostic logs one static-analysis finding whatever the configured level.
func (fl *FileLogger) LogDiagnostic(record diagnostics.Record) {
	fl.emit(levelForSeverity(record.Severity), formatDiagnostic(record))
}

// LogSummary writes the detected versions, the totals and the resolved status.
func (fl *FileLogger) LogSummary(result *pipeline.Result) {
	if result == nil || LevelInfo < fl.level {
		return
	}

	rows := [][2]string{
		{"Visual Studio:", result.Versions.VisualStudio.String()},
		{"TwinCAT:", result.Versions.TwinCAT.String()},
		{"Diagnostics:", fmt.Sprintf("%d (%d static analysis)", len(result.Diagnostics), len(result.Matched))},
		{"Warnings:", fmt.Sprint(result.Counts.Warnings)},
		{"Errors:", fmt.Sprint(result.Counts.Errors)},
		{"Total time:", fmt.Sprintf("%.1fs", result.Duration.Seconds())},
		{"Status:", strings.ToUpper(result.Status.String())},
		{"Completed at:", time.Now().Format(time.RFC3339)},
	}

	ts := timestamp()
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n[%s] === RUN SUMMARY ===\n", ts)
	for _, row := range rows {
		fmt.Fprintf(&sb, "[%s] %-14s %s\n", ts, row[0], row[1])
	}
	fl.write(sb.String())
}

func (fl *FileLogger) log(l Level, message string) {
	if l >= fl.level {
		fl.emit(l, message)
	}
}

func (fl *FileLogger) emit(l Level, message string) {
	fl.write(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), l, message))
}

// write appends s and syncs. Writes after Close are dropped.
func (fl *FileLogger) write(s string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.file == nil {
		return
	}
	fl.file.WriteString(s)
	fl.file.Sync()
}

// Close flushes and closes the run log. Closing twice is a no-op.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.file == nil {
		return nil
	}
	f := fl.file
	fl.file = nil
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync run log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close run log: %w", err)
	}
	return nil
}
