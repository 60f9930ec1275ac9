// Package pipeline sequences a static-analysis run: validate the input paths,
// read the Visual Studio and TwinCAT versions, gate on the minimum TwinCAT
// version, build through the automation collaborator, classify the collected
// diagnostics and resolve the exit status.
//
// Each stage is exposed as its own function so it can be tested without an
// automation backend. Orchestrator drives them as a state machine:
//
//	init -> paths-validated -> versions-extracted -> gate-checked ->
//	building -> diagnostics-collected -> resolved
//
// Any non-terminal state may move to aborted, which always maps to the error status.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/harrison/tcsa/internal/automation"
	"github.com/harrison/tcsa/internal/diagnostics"
	"github.com/harrison/tcsa/internal/version"
)

// RunConfig names the two descriptor files of a run. It is built once by the
// CLI layer and never modified.
type RunConfig struct {
	SolutionPath string
	ProjectPath  string
}

// Versions holds the versions read from the descriptors.
type Versions struct {
	VisualStudio version.Version // from the solution, major.minor
	TwinCAT      version.Version // from the project
}

// Result describes a finished run, resolved or aborted.
type Result struct {
	State       State
	Versions    Versions
	Diagnostics []diagnostics.Record // everything the build reported
	Matched     []diagnostics.Record // static-analysis findings that were counted
	Counts      diagnostics.Counts
	Status      diagnostics.ExitStatus
	Duration    time.Duration
}

// Logger receives pipeline progress.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
	LogDiagnostic(record diagnostics.Record)
	LogSummary(result *Result)
}

// Options tunes the decision rules of a run.
type Options struct {
	// TagPrefix selects static-analysis diagnostics. Defaults to "SA".
	TagPrefix string
	// Minimum is the oldest supported TwinCAT version. Defaults to 3.1.4022.0.
	Minimum version.Version
}

func (o Options) withDefaults() Options {
	if o.TagPrefix == "" {
		o.TagPrefix = diagnostics.DefaultTagPrefix
	}
	if o.Minimum.IsZero() {
		o.Minimum = version.MinimumTwinCAT
	}
	return o
}

// Orchestrator runs the pipeline once. It owns the automation session for the
// duration of the building state and is not safe for concurrent use.
type Orchestrator struct {
	automation automation.Automation
	open       Opener
	logger     Logger
	opts       Options
	state      State
	history    []State
}

// NewOrchestrator creates an Orchestrator. automation may be nil when only Check is used.
func NewOrchestrator(a automation.Automation, logger Logger, opts Options) *Orchestrator {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Orchestrator{
		automation: a,
		logger:     logger,
		opts:       opts.withDefaults(),
		state:      StateInit,
		history:    []State{StateInit},
	}
}

// Opener creates the automation backend for a run.
type Opener func() (automation.Automation, error)

// NewLazyOrchestrator creates an Orchestrator that calls open only once a run
// has passed the version gate. Descriptor and version problems are therefore
// reported before any backend exists.
func NewLazyOrchestrator(open Opener, logger Logger, opts Options) *Orchestrator {
	o := NewOrchestrator(nil, logger, opts)
	o.open = open
	return o
}

// State returns the current state.
func (o *Orchestrator) State() State {
	return o.state
}

// History returns every state the orchestrator has entered, in order.
func (o *Orchestrator) History() []State {
	out := make([]State, len(o.history))
	copy(out, o.history)
	return out
}

func (o *Orchestrator) transition(to State) {
	if !CanTransition(o.state, to) {
		panic(fmt.Sprintf("pipeline: illegal transition %s -> %s", o.state, to))
	}
	o.logger.LogDebug(fmt.Sprintf("state %s -> %s", o.state, to))
	o.state = to
	o.history = append(o.history, to)
}

// abort moves to StateAborted and logs the reason.
func (o *Orchestrator) abort(kind Kind, msg string, err error) *AbortError {
	abortErr := newAbortError(o.state, kind, msg, err)
	o.logger.LogError(abortErr.Error())
	o.transition(StateAborted)
	return abortErr
}

// abortWith keeps an AbortError produced by a stage function, re-stamped with the current state.
func (o *Orchestrator) abortWith(err error) *AbortError {
	var abortErr *AbortError
	if errors.As(err, &abortErr) {
		return o.abort(abortErr.Kind, abortErr.Message, abortErr.Err)
	}
	return o.abort(KindConfiguration, "unexpected failure", err)
}

// Check runs the stages up to the version gate without touching the automation collaborator.
func (o *Orchestrator) Check(ctx context.Context, cfg RunConfig) (Versions, error) {
	if err := o.checkContext(ctx); err != nil {
		return Versions{}, err
	}

	if err := ValidatePaths(cfg); err != nil {
		return Versions{}, o.abortWith(err)
	}
	o.transition(StatePathsValidated)

	versions, err := ExtractVersions(cfg)
	if err != nil {
		return Versions{}, o.abortWith(err)
	}
	o.logger.LogInfo(fmt.Sprintf("Visual Studio version: %s", versions.VisualStudio))
	o.logger.LogInfo(fmt.Sprintf("TwinCAT version: %s", versions.TwinCAT))
	o.transition(StateVersionsExtracted)

	if err := CheckGate(versions.TwinCAT, o.opts.Minimum); err != nil {
		return versions, o.abortWith(err)
	}
	o.transition(StateGateChecked)

	return versions, nil
}

// Run executes the whole pipeline. The returned Result is never nil; when err
// is non-nil it is an *AbortError and the result status is StatusError.
func (o *Orchestrator) Run(ctx context.Context, cfg RunConfig) (*Result, error) {
	start := time.Now()
	result := &Result{Status: diagnostics.StatusError}
	finish := func(err error) (*Result, error) {
		result.State = o.state
		result.Duration = time.Since(start)
		if err == nil {
			o.logger.LogSummary(result)
		}
		return result, err
	}

	versions, err := o.Check(ctx, cfg)
	result.Versions = versions
	if err != nil {
		return finish(err)
	}

	if err := o.checkContext(ctx); err != nil {
		return finish(err)
	}
	if o.automation == nil {
		if o.open == nil {
			return finish(o.abort(KindConfiguration, "no automation backend configured", nil))
		}
		a, err := o.open()
		if err != nil {
			return finish(o.abort(KindAutomationFailure, "failed to create automation backend", err))
		}
		o.automation = a
	}
	o.transition(StateBuilding)
	records, err := o.build(ctx, cfg, versions)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return finish(o.abort(KindCanceled, "build interrupted", err))
		}
		return finish(o.abort(KindAutomationFailure, "build automation failed", err))
	}
	result.Diagnostics = records
	o.transition(StateDiagnosticsCollected)

	result.Counts = diagnostics.Classify(records, o.opts.TagPrefix, o.logger)
	result.Matched = diagnostics.Filter(records, o.opts.TagPrefix)
	result.Status = diagnostics.Resolve(result.Counts)
	o.transition(StateResolved)

	return finish(nil)
}

func (o *Orchestrator) checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return o.abort(KindCanceled, "run canceled", err)
	}
	return nil
}

// build drives the automation session. Every collaborator error and panic
// surfaces as the returned error. The message filter and the session are
// released on every path once acquired.
func (o *Orchestrator) build(ctx context.Context, cfg RunConfig, versions Versions) (records []diagnostics.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			records = nil
			err = fmt.Errorf("automation panic: %v", r)
		}
	}()

	filter := o.automation.MessageFilter()
	if filter == nil {
		filter = automation.NoopFilter{}
	}
	if err := filter.Register(); err != nil {
		return nil, fmt.Errorf("register message filter: %w", err)
	}
	defer func() {
		if revokeErr := filter.Revoke(); revokeErr != nil && err == nil {
			err = fmt.Errorf("revoke message filter: %w", revokeErr)
		}
	}()

	o.logger.LogInfo(fmt.Sprintf("Opening solution %s", cfg.SolutionPath))
	session, err := o.automation.Open(ctx, cfg.SolutionPath, versions.VisualStudio)
	if err != nil {
		return nil, fmt.Errorf("open solution: %w", err)
	}
	defer func() {
		o.logger.LogDebug("Closing automation session")
		if closeErr := session.Close(); closeErr != nil && err == nil {
			records = nil
			err = fmt.Errorf("close session: %w", closeErr)
		}
	}()

	steps := []struct {
		name string
		msg  string
		fn   func(context.Context) error
	}{
		{"set tool version", fmt.Sprintf("Setting TwinCAT remote manager version to %s", versions.TwinCAT),
			func(ctx context.Context) error { return session.SetToolVersion(ctx, versions.TwinCAT) }},
		{"clean", "Cleaning solution", session.Clean},
		{"build", "Building solution", session.Build},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		o.logger.LogInfo(step.msg)
		if err := step.fn(ctx); err != nil {
			return nil, fmt.Errorf("%s: %w", step.name, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.logger.LogInfo("Reading error list")
	records, err = session.ListDiagnostics(ctx)
	if err != nil {
		return nil, fmt.Errorf("list diagnostics: %w", err)
	}
	o.logger.LogDebug(fmt.Sprintf("Collected %d diagnostic(s)", len(records)))
	return records, nil
}

// ValidatePaths checks that both descriptor files exist and are regular files.
func ValidatePaths(cfg RunConfig) error {
	for _, p := range []struct{ flag, path string }{
		{"solution", cfg.SolutionPath},
		{"project", cfg.ProjectPath},
	} {
		if p.path == "" {
			return newAbortError(StateInit, KindConfiguration, fmt.Sprintf("%s file path is required", p.flag), nil)
		}
		info, err := os.Stat(p.path)
		if err != nil {
			return newAbortError(StateInit, KindConfiguration, fmt.Sprintf("%s file %s does not exist", p.flag, p.path), err)
		}
		if info.IsDir() {
			return newAbortError(StateInit, KindConfiguration, fmt.Sprintf("%s file %s is a directory", p.flag, p.path), nil)
		}
	}
	return nil
}

// ExtractVersions reads the Visual Studio version from the solution and the
// TwinCAT version from the project.
func ExtractVersions(cfg RunConfig) (Versions, error) {
	vs, err := extractVersion(cfg.SolutionPath, "Visual Studio", version.SolutionFraming)
	if err != nil {
		return Versions{}, err
	}
	tc, err := extractVersion(cfg.ProjectPath, "TwinCAT", version.ProjectFraming)
	if err != nil {
		return Versions{VisualStudio: vs}, err
	}
	return Versions{VisualStudio: vs, TwinCAT: tc}, nil
}

func extractVersion(path, what string, framing version.Framing) (version.Version, error) {
	v, err := version.ExtractFile(path, framing)
	switch {
	case err == nil:
		return v, nil
	case errors.Is(err, version.ErrNotFound):
		return version.Version{}, newAbortError(StatePathsValidated, KindVersionNotFound,
			fmt.Sprintf("did not find %s version in %s", what, path), err)
	case errors.Is(err, version.ErrMalformed):
		return version.Version{}, newAbortError(StatePathsValidated, KindMalformedVersion,
			fmt.Sprintf("could not parse %s version in %s", what, path), err)
	default:
		return version.Version{}, newAbortError(StatePathsValidated, KindConfiguration,
			fmt.Sprintf("could not read %s", path), err)
	}
}

// CheckGate rejects TwinCAT versions older than minimum.
func CheckGate(detected, minimum version.Version) error {
	if !version.IsSupported(detected, minimum) {
		return newAbortError(StateVersionsExtracted, KindUnsupportedVersion,
			fmt.Sprintf("TwinCAT version %s is not supported, minimum is %s", detected, minimum), nil)
	}
	return nil
}

type nopLogger struct{}

func (nopLogger) LogDebug(string) {}
func (nopLogger) LogInfo(string) {}
func (nopLogger) LogWarn(string) {}
func (nopLogger) LogError(string) {}
func (nopLogger) LogDiagnostic(diagnostics.Record) {}
func (nopLogger) LogSummary(*Result) {}
