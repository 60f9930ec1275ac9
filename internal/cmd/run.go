package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/harrison/tcsa/internal/automation"
	"github.com/harrison/tcsa/internal/config"
	"github.com/harrison/tcsa/internal/diagnostics"
	"github.com/harrison/tcsa/internal/filelock"
	"github.com/harrison/tcsa/internal/logger"
	"github.com/harrison/tcsa/internal/pipeline"
	"github.com/harrison/tcsa/internal/report"
	"github.com/spf13/cobra"
)

func runCommand(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	path := config.ResolveConfigPath(configPath, ".")
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	overrides, err := flagOverrides(cmd)
	if err != nil {
		return err
	}
	cfg.MergeWithFlags(overrides)

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	minimum, err := cfg.Minimum()
	if err != nil {
		return err
	}

	solution, _ := cmd.Flags().GetString(flagSolution)
	project, _ := cmd.Flags().GetString(flagProject)
	runCfg := pipeline.RunConfig{SolutionPath: solution, ProjectPath: project}

	// Create console logger for real-time progress
	consoleLog := logger.NewConsoleLogger(cmd.OutOrStdout(), cfg.LogLevel)
	multiLog := &multiLogger{loggers: []pipeline.Logger{consoleLog}}

	var fileLog *logger.FileLogger
	if cfg.LogDir != "" {
		fileLog, err = logger.NewFileLogger(cfg.LogDir, cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
		defer fileLog.Close()
		multiLog.loggers = append(multiLog.loggers, fileLog)
	}

	runID := uuid.New().String()
	multiLog.LogDebug(fmt.Sprintf("Run %s", runID))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	opts := pipeline.Options{TagPrefix: cfg.TagPrefix, Minimum: minimum}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if dryRun {
		orch := pipeline.NewOrchestrator(nil, multiLog, opts)
		if _, err := orch.Check(ctx, runCfg); err != nil {
			return err
		}
		multiLog.LogInfo("Dry run: paths and versions are valid, build skipped")
		return nil
	}

	if cfg.Lock {
		lock, err := acquireLock(runCfg.SolutionPath)
		if err != nil {
			return err
		}
		if lock != nil {
			defer lock.Release()
			multiLog.LogDebug(fmt.Sprintf("Holding run lock %s", lock.Path()))
		}
	}

	// The backend is created only after the descriptors and versions pass.
	orch := pipeline.NewLazyOrchestrator(func() (automation.Automation, error) {
		return newAutomation(cfg)
	}, multiLog, opts)
	result, err := orch.Run(ctx, runCfg)
	if err != nil {
		return err
	}

	if cfg.Report.Path != "" {
		summary := report.NewSummary(runID, runCfg, cfg.TagPrefix, result)
		if err := report.Write(cfg.Report.Path, cfg.Report.Format, summary); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		multiLog.LogInfo(fmt.Sprintf("Report written to: %s", cfg.Report.Path))
	}
	if fileLog != nil {
		multiLog.LogInfo(fmt.Sprintf("Logs written to: %s", fileLog.Path()))
	}

	if result.Status != diagnostics.StatusSuccess {
		return &ExitError{Status: result.Status}
	}
	return nil
}

// flagOverrides collects the flags that were set explicitly
func flagOverrides(cmd *cobra.Command) (config.FlagOverrides, error) {
	var o config.FlagOverrides
	flags := cmd.Flags()

	str := func(name string) *string {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetString(name)
		return &v
	}
	o.LogLevel = str("log-level")
	o.LogDir = str("log-dir")
	o.TagPrefix = str("tag-prefix")
	o.Backend = str("backend")
	o.ProgID = str("prog-id")
	o.ReplayFile = str("replay-file")
	o.ReportPath = str("report")
	o.ReportFormat = str("report-format")

	if timeoutStr := str("timeout"); timeoutStr != nil {
		timeout, err := time.ParseDuration(*timeoutStr)
		if err != nil {
			return o, fmt.Errorf("invalid timeout format %q: %w", *timeoutStr, err)
		}
		o.Timeout = &timeout
	}

	if flags.Changed("no-lock") {
		noLock, _ := flags.GetBool("no-lock")
		lock := !noLock
		o.Lock = &lock
	}

	return o, nil
}

// acquireLock takes the run lock next to the solution. A missing solution is
// left to the pipeline, which reports it as a configuration error.
func acquireLock(solutionPath string) (*filelock.RunLock, error) {
	if _, err := os.Stat(solutionPath); err != nil {
		return nil, nil
	}
	lock, err := filelock.Acquire(solutionPath)
	if errors.Is(err, filelock.ErrLocked) {
		return nil, fmt.Errorf("solution %s is already being analyzed: %w", solutionPath, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	return lock, nil
}

func newAutomation(cfg *config.Config) (automation.Automation, error) {
	if cfg.Automation.Backend == config.BackendReplay {
		replay, err := automation.NewReplayFromFile(cfg.Automation.ReplayFile)
		if err != nil {
			return nil, err
		}
		return replay, nil
	}

	dte, err := automation.NewDTE(automation.DTEOptions{
		ProgID: cfg.Automation.ProgID,
		Retry: automation.RetryPolicy{
			Attempts: cfg.Automation.RetryAttempts,
			Delay:    cfg.Automation.RetryDelay,
		},
		SettleDelay: cfg.Automation.SettleDelay,
	})
	if err != nil {
		return nil, err
	}
	return dte, nil
}

// multiLogger implements pipeline.Logger by delegating to multiple loggers
type multiLogger struct {
	loggers []pipeline.Logger
}

func (ml *multiLogger) LogDebug(message string) {
	for _, l := range ml.loggers {
		l.LogDebug(message)
	}
}

func (ml *multiLogger) LogInfo(message string) {
	for _, l := range ml.loggers {
		l.LogInfo(message)
	}
}

func (ml *multiLogger) LogWarn(message string) {
	for _, l := range ml.loggers {
		l.LogWarn(message)
	}
}

func (ml *multiLogger) LogError(message string) {
	for _, l := range ml.loggers {
		l.LogError(message)
	}
}

// LogDiagnostic forwards to all loggers
func (ml *multiLogger) LogDiagnostic(record diagnostics.Record) {
	for _, l := range ml.loggers {
		l.LogDiagnostic(record)
	}
}

// LogSummary forwards to all loggers
func (ml *multiLogger) LogSummary(result *pipeline.Result) {
	for _, l := range ml.loggers {
		l.LogSummary(result)
	}
}
