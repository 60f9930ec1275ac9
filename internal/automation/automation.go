// Package automation defines the build-automation collaborator that opens a
// solution in the IDE, builds it with static analysis enabled and returns the
// resulting error list.
//
// Two backends are provided: DTE drives Visual Studio or the TwinCAT XAE shell
// through COM automation (Windows only), and Replay serves diagnostics recorded
// in a YAML file so the pipeline can run anywhere.
package automation

import (
	"context"
	"errors"

	"github.com/harrison/tcsa/internal/diagnostics"
	"github.com/harrison/tcsa/internal/version"
)

// ErrUnsupportedPlatform is returned by backends that cannot run on this OS.
var ErrUnsupportedPlatform = errors.New("automation backend not supported on this platform")

// Automation opens build sessions.
type Automation interface {
	// MessageFilter returns the filter that must be registered around a session.
	MessageFilter() MessageFilter

	// Open starts a session on the solution. ide is the Visual Studio version
	// declared by the solution and selects the automation server.
	Open(ctx context.Context, solutionPath string, ide version.Version) (Session, error)
}

// Session is one open solution inside the automation server.
// Close must be called on every path once Open succeeded.
type Session interface {
	// SetToolVersion pins the TwinCAT remote manager to the project version.
	SetToolVersion(ctx context.Context, v version.Version) error
	Clean(ctx context.Context) error
	Build(ctx context.Context) error
	ListDiagnostics(ctx context.Context) ([]diagnostics.Record, error)
	Close() error
}

// MessageFilter is the scoped environment hook held while a session is live.
// Register is called before Open and Revoke after Close.
type MessageFilter interface {
	Register() error
	Revoke() error
}

// NoopFilter is a MessageFilter for environments without call-rejection issues.
type NoopFilter struct{}

// Register does nothing.
func (NoopFilter) Register() error { return nil }

// Revoke does nothing.
func (NoopFilter) Revoke() error { return nil }
