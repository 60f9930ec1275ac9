//go:build !windows

package automation

import (
	"context"
	"fmt"
	"runtime"

	"github.com/harrison/tcsa/internal/version"
)

// DTE drives the IDE through COM automation. It is only available on Windows.
type DTE struct {
	opts DTEOptions
}

// NewDTE reports ErrUnsupportedPlatform outside Windows.
func NewDTE(opts DTEOptions) (*DTE, error) {
	return nil, fmt.Errorf("%w: dte requires windows, running on %s", ErrUnsupportedPlatform, runtime.GOOS)
}

// MessageFilter returns a no-op filter.
func (d *DTE) MessageFilter() MessageFilter { return NoopFilter{} }

// Open always fails outside Windows.
func (d *DTE) Open(ctx context.Context, solutionPath string, ide version.Version) (Session, error) {
	return nil, fmt.Errorf("%w: cannot start %s", ErrUnsupportedPlatform, d.opts.progID(ide))
}
