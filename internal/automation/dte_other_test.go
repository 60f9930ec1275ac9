//go:build !windows

package automation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDTEUnsupported(t *testing.T) {
	dte, err := NewDTE(DTEOptions{})
	assert.Nil(t, dte)
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
}
