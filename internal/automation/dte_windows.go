//go:build windows

package automation

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
	"github.com/harrison/tcsa/internal/diagnostics"
	"github.com/harrison/tcsa/internal/version"
)

// COM status codes returned while the automation server is busy.
const (
	rpcECallRejected         = 0x80010001
	rpcEServerCallRetryLater = 0x8001010A
	sFalse                   = 0x00000001
)

// DTE drives Visual Studio or the TwinCAT XAE shell through COM automation.
type DTE struct {
	opts   DTEOptions
	filter *comFilter
}

// NewDTE creates the COM automation backend.
func NewDTE(opts DTEOptions) (*DTE, error) {
	return &DTE{opts: opts, filter: &comFilter{}}, nil
}

// MessageFilter returns the apartment filter that must wrap every session.
func (d *DTE) MessageFilter() MessageFilter { return d.filter }

// comFilter pins the calling goroutine to its OS thread and initializes a
// single-threaded COM apartment for the lifetime of a session.
type comFilter struct {
	registered bool
}

func (f *comFilter) Register() error {
	runtime.LockOSThread()
	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		var oleErr *ole.OleError
		if !errors.As(err, &oleErr) || oleErr.Code() != sFalse {
			runtime.UnlockOSThread()
			return fmt.Errorf("failed to initialize COM apartment: %w", err)
		}
	}
	f.registered = true
	return nil
}

func (f *comFilter) Revoke() error {
	if !f.registered {
		return nil
	}
	ole.CoUninitialize()
	runtime.UnlockOSThread()
	f.registered = false
	return nil
}

// isRetryable reports whether err is a busy-server rejection worth retrying.
func isRetryable(err error) bool {
	var oleErr *ole.OleError
	if !errors.As(err, &oleErr) {
		return false
	}
	code := oleErr.Code()
	return code == rpcECallRejected || code == rpcEServerCallRetryLater
}

// Open creates the automation server, hides its UI and opens the solution.
func (d *DTE) Open(ctx context.Context, solutionPath string, ide version.Version) (Session, error) {
	progID := d.opts.progID(ide)
	absPath, err := filepath.Abs(solutionPath)
	if err != nil {
		return nil, fmt.Errorf("resolve solution path: %w", err)
	}

	unknown, err := oleutil.CreateObject(progID)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", progID, err)
	}
	dte, err := unknown.QueryInterface(ole.IID_IDispatch)
	unknown.Release()
	if err != nil {
		return nil, fmt.Errorf("query %s dispatch: %w", progID, err)
	}

	s := &dteSession{dte: dte, retry: d.opts.Retry, settle: d.opts.SettleDelay}
	if err := s.open(ctx, absPath); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

type dteSession struct {
	dte      *ole.IDispatch
	solution *ole.IDispatch
	retry    RetryPolicy
	settle   time.Duration
}

// call invokes fn under the retry policy.
func (s *dteSession) call(ctx context.Context, what string, fn func() error) error {
	if err := s.retry.Do(ctx, isRetryable, fn); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}

func (s *dteSession) put(ctx context.Context, disp *ole.IDispatch, name string, value interface{}) error {
	return s.call(ctx, "set "+name, func() error {
		_, err := oleutil.PutProperty(disp, name, value)
		return err
	})
}

func (s *dteSession) get(ctx context.Context, disp *ole.IDispatch, name string) (*ole.VARIANT, error) {
	var v *ole.VARIANT
	err := s.call(ctx, "get "+name, func() error {
		var err error
		v, err = oleutil.GetProperty(disp, name)
		return err
	})
	return v, err
}

func (s *dteSession) getDispatch(ctx context.Context, disp *ole.IDispatch, name string) (*ole.IDispatch, error) {
	v, err := s.get(ctx, disp, name)
	if err != nil {
		return nil, err
	}
	child := v.ToIDispatch()
	if child == nil {
		return nil, fmt.Errorf("get %s: not an object", name)
	}
	return child, nil
}

func (s *dteSession) invoke(ctx context.Context, disp *ole.IDispatch, name string, args ...interface{}) (*ole.VARIANT, error) {
	var v *ole.VARIANT
	err := s.call(ctx, "call "+name, func() error {
		var err error
		v, err = oleutil.CallMethod(disp, name, args...)
		return err
	})
	return v, err
}

// call0 invokes a method whose result is not needed and frees it.
func (s *dteSession) call0(ctx context.Context, disp *ole.IDispatch, name string, args ...interface{}) error {
	v, err := s.invoke(ctx, disp, name, args...)
	if err != nil {
		return err
	}
	v.Clear()
	return nil
}

func (s *dteSession) getString(ctx context.Context, disp *ole.IDispatch, name string) (string, error) {
	v, err := s.get(ctx, disp, name)
	if err != nil {
		return "", err
	}
	defer v.Clear()
	return v.ToString(), nil
}

func (s *dteSession) getInt(ctx context.Context, disp *ole.IDispatch, name string) (int64, error) {
	v, err := s.get(ctx, disp, name)
	if err != nil {
		return 0, err
	}
	defer v.Clear()
	return v.Val, nil
}

func (s *dteSession) open(ctx context.Context, solutionPath string) error {
	if err := s.put(ctx, s.dte, "SuppressUI", true); err != nil {
		return err
	}
	mainWindow, err := s.getDispatch(ctx, s.dte, "MainWindow")
	if err != nil {
		return err
	}
	defer mainWindow.Release()
	if err := s.put(ctx, mainWindow, "Visible", false); err != nil {
		return err
	}
	if err := s.put(ctx, s.dte, "UserControl", false); err != nil {
		return err
	}

	solution, err := s.getDispatch(ctx, s.dte, "Solution")
	if err != nil {
		return err
	}
	s.solution = solution
	if err := s.call0(ctx, solution, "Open", solutionPath); err != nil {
		return fmt.Errorf("open solution %s: %w", solutionPath, err)
	}
	return nil
}

func (s *dteSession) SetToolVersion(ctx context.Context, v version.Version) error {
	result, err := s.invoke(ctx, s.dte, "GetObject", "TcRemoteManager")
	if err != nil {
		return err
	}
	remoteManager := result.ToIDispatch()
	if remoteManager == nil {
		return fmt.Errorf("TcRemoteManager is not available")
	}
	defer remoteManager.Release()
	return s.put(ctx, remoteManager, "Version", v.String())
}

func (s *dteSession) solutionBuild(ctx context.Context, method string) error {
	build, err := s.getDispatch(ctx, s.solution, "SolutionBuild")
	if err != nil {
		return err
	}
	defer build.Release()
	return s.call0(ctx, build, method, true)
}

func (s *dteSession) Clean(ctx context.Context) error {
	return s.solutionBuild(ctx, "Clean")
}

func (s *dteSession) Build(ctx context.Context) error {
	if err := s.solutionBuild(ctx, "Build"); err != nil {
		return err
	}
	if s.settle > 0 {
		timer := time.NewTimer(s.settle)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

func (s *dteSession) ListDiagnostics(ctx context.Context) ([]diagnostics.Record, error) {
	toolWindows, err := s.getDispatch(ctx, s.dte, "ToolWindows")
	if err != nil {
		return nil, err
	}
	defer toolWindows.Release()
	errorList, err := s.getDispatch(ctx, toolWindows, "ErrorList")
	if err != nil {
		return nil, err
	}
	defer errorList.Release()
	items, err := s.getDispatch(ctx, errorList, "ErrorItems")
	if err != nil {
		return nil, err
	}
	defer items.Release()

	n, err := s.getInt(ctx, items, "Count")
	if err != nil {
		return nil, err
	}
	count := int(n)

	records := make([]diagnostics.Record, 0, count)
	// ErrorItems is 1-based.
	for i := 1; i <= count; i++ {
		itemVar, err := s.invoke(ctx, items, "Item", i)
		if err != nil {
			return nil, err
		}
		item := itemVar.ToIDispatch()
		if item == nil {
			return nil, fmt.Errorf("error item %d is not an object", i)
		}
		record, err := s.readItem(ctx, item)
		item.Release()
		if err != nil {
			return nil, fmt.Errorf("error item %d: %w", i, err)
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *dteSession) readItem(ctx context.Context, item *ole.IDispatch) (diagnostics.Record, error) {
	description, err := s.getString(ctx, item, "Description")
	if err != nil {
		return diagnostics.Record{}, err
	}
	level, err := s.getInt(ctx, item, "ErrorLevel")
	if err != nil {
		return diagnostics.Record{}, err
	}
	file, err := s.getString(ctx, item, "FileName")
	if err != nil {
		return diagnostics.Record{}, err
	}
	return diagnostics.Record{
		Description: description,
		Severity:    severityFromErrorLevel(level),
		SourceFile:  file,
	}, nil
}

// Close quits the automation server and releases every held interface.
func (s *dteSession) Close() error {
	if s.dte == nil {
		return nil
	}
	if s.solution != nil {
		s.solution.Release()
		s.solution = nil
	}
	err := s.call0(context.Background(), s.dte, "Quit")
	s.dte.Release()
	s.dte = nil
	if err != nil {
		return fmt.Errorf("quit automation server: %w", err)
	}
	return nil
}
