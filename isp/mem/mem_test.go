// mem_test.go - tests for the virtual target's page buffer staging and
// fault injection.

package mem

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageBufferStaging(t *testing.T) {
	t.Parallel()
	target := New(1024, 64)

	// Uncommitted writes stay staged; the flash array keeps its erased
	// value until the page is flushed.
	require.NoError(t, target.WriteFlash(0, 0x12, false))
	require.NoError(t, target.WriteFlash(1, 0x34, false))
	assert.Equal(t, byte(0xFF), target.Flash[0])
	assert.Equal(t, 2, target.StagedBytes())

	require.NoError(t, target.FlushPage(1, 0x34))
	assert.Equal(t, []byte{0x12, 0x34}, target.Flash[:2])
	assert.Zero(t, target.StagedBytes())
}

func TestCommittedWriteBypassesStaging(t *testing.T) {
	t.Parallel()
	target := New(1024, 64)

	require.NoError(t, target.WriteFlash(5, 0xA5, true))
	assert.Equal(t, byte(0xA5), target.Flash[5])
	assert.Zero(t, target.StagedBytes())
}

func TestOutOfRangeAddresses(t *testing.T) {
	t.Parallel()
	target := New(16, 8)

	_, err := target.ReadFlash(16)
	assert.Error(t, err)
	_, err = target.ReadEEPROM(8)
	assert.Error(t, err)
	assert.Error(t, target.WriteFlash(16, 0, true))
	assert.Error(t, target.WriteEEPROM(8, 0))
}

func TestErrorInjection(t *testing.T) {
	t.Parallel()
	target := New(16, 8)

	cause := errors.New("injected")
	target.SetError("flush", cause)
	assert.ErrorIs(t, target.FlushPage(0, 0), cause)

	target.SetError("flush", nil)
	assert.NoError(t, target.FlushPage(0, 0))
}
