package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/harrison/tcsa/internal/diagnostics"
	"github.com/harrison/tcsa/internal/pipeline"
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// Flag names of the two descriptor files
const (
	flagSolution = "VisualStudioSolutionFilePath"
	flagProject  = "TwinCATProjectFilePath"
)

// ExitError carries a non-success run status out of cobra.
// Err is nil when the run resolved and only the status is non-zero.
type ExitError struct {
	Status diagnostics.ExitStatus
	Err    error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("run finished with status %s", e.Status)
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps the error returned by the root command to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return diagnostics.ExitCodeSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Status.ExitCode()
	}
	return diagnostics.ExitCodeError
}

// NewRootCommand creates and returns the root cobra command for tcsa
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tcsa -v <solution.sln> -t <project.tsproj>",
		Short: "TwinCAT static analysis gate for CI pipelines",
		Long: `tcsa opens a TwinCAT solution in Visual Studio, rebuilds it with static
analysis enabled and turns the reported diagnostics into a CI verdict.

Diagnostics whose description starts with the static analysis tag (default
"SA") count as warnings at Medium severity and as errors at High severity.

Exit codes:
  0  no static analysis findings
  1  warnings only (unstable)
  2  errors, aborted runs and help output`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runCommand,
	}

	// Defined before cobra adds --version so that -v stays the solution flag
	cmd.Flags().StringP(flagSolution, "v", "", "Path to the Visual Studio solution file (.sln)")
	cmd.Flags().StringP(flagProject, "t", "", "Path to the TwinCAT project file (.tsproj)")
	_ = cmd.MarkFlagRequired(flagSolution)
	_ = cmd.MarkFlagRequired(flagProject)

	cmd.Flags().String("config", "", "Path to config file (default: $TCSA_CONFIG or .tcsa/config.yaml)")
	cmd.Flags().String("log-level", "", "Log level: trace, debug, info, warn, error")
	cmd.Flags().String("log-dir", "", "Directory for run log files")
	cmd.Flags().String("timeout", "", "Maximum run time (e.g., 30m, 2h, 1h30m)")
	cmd.Flags().String("tag-prefix", "", "Description prefix that marks static analysis diagnostics")
	cmd.Flags().String("backend", "", "Automation backend: dte or replay")
	cmd.Flags().String("replay-file", "", "YAML diagnostics file for the replay backend")
	cmd.Flags().String("prog-id", "", "COM ProgID of the automation server (e.g., TcXaeShell.DTE.15.0)")
	cmd.Flags().String("report", "", "Write a run summary report to this path")
	cmd.Flags().String("report-format", "", "Report format: yaml, markdown or html")
	cmd.Flags().Bool("no-lock", false, "Do not take the per-solution run lock")
	cmd.Flags().Bool("dry-run", false, "Check paths and versions without building")
	cmd.Flags().Bool("verbose", false, "Show debug output")

	return cmd
}

// Execute runs the root command with args and returns the process exit code.
// Help output exits with the error code so that a misconfigured CI step never passes.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(normalizeArgs(args))
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	helpShown := false
	defaultHelp := cmd.HelpFunc()
	cmd.SetHelpFunc(func(c *cobra.Command, a []string) {
		helpShown = true
		defaultHelp(c, a)
	})

	err := cmd.ExecuteContext(ctx)
	if helpShown {
		return diagnostics.ExitCodeError
	}
	if err != nil && !alreadyLogged(err) {
		fmt.Fprintf(stdout, "Error: %v\n", err)
	}
	return ExitCode(err)
}

// normalizeArgs maps the Windows style -? to --help.
func normalizeArgs(args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		if arg == "-?" || arg == "/?" {
			arg = "--help"
		}
		out[i] = arg
	}
	return out
}

// alreadyLogged reports whether err was written by the run logger.
func alreadyLogged(err error) bool {
	var abortErr *pipeline.AbortError
	if errors.As(err, &abortErr) {
		return true
	}
	var exitErr *ExitError
	return errors.As(err, &exitErr) && exitErr.Err == nil
}
