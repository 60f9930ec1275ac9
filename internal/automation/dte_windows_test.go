//go:build windows

package automation

import (
	"context"
	"testing"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dictionarySession wraps Scripting.Dictionary, which ships with every Windows
// install, in a dteSession so the dispatch helpers run against a live server.
func dictionarySession(t *testing.T) *dteSession {
	t.Helper()
	filter := &comFilter{}
	require.NoError(t, filter.Register())
	t.Cleanup(func() { filter.Revoke() })

	unknown, err := oleutil.CreateObject("Scripting.Dictionary")
	require.NoError(t, err)
	disp, err := unknown.QueryInterface(ole.IID_IDispatch)
	unknown.Release()
	require.NoError(t, err)

	return &dteSession{dte: disp, retry: RetryPolicy{Attempts: 1}}
}

func TestDTESessionScalarHelpers(t *testing.T) {
	s := dictionarySession(t)
	ctx := context.Background()

	require.NoError(t, s.call0(ctx, s.dte, "Add", "SA0033", "Unused variable"))
	require.NoError(t, s.call0(ctx, s.dte, "Add", "SA0040", "Division by zero"))

	count, err := s.getInt(ctx, s.dte, "Count")
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	require.NoError(t, s.call0(ctx, s.dte, "RemoveAll"))
	count, err = s.getInt(ctx, s.dte, "Count")
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	// Quit is unknown to a dictionary; Close must still release the server.
	err = s.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "call Quit")
	assert.Nil(t, s.dte)
	assert.NoError(t, s.Close())
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(ole.NewError(rpcECallRejected)))
	assert.True(t, isRetryable(ole.NewError(rpcEServerCallRetryLater)))
	assert.False(t, isRetryable(ole.NewError(0x80020006)))
	assert.False(t, isRetryable(context.Canceled))
}
