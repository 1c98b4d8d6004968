// programmer_test.go - tests for construction, options and error types.

package usbasp_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	usbasp "github.com/avrkit/go-usbasp"
	"github.com/avrkit/go-usbasp/isp/mem"
)

func TestNew_Defaults(t *testing.T) {
	t.Parallel()
	prog, _ := newProgrammer(t)

	assert.Equal(t, usbasp.StateIdle, prog.State())
	assert.Equal(t, usbasp.AddressingLegacy, prog.Addressing())
	assert.Equal(t, usbasp.SCKAuto, prog.ClockSpeed())
}

func TestNew_Options(t *testing.T) {
	t.Parallel()

	t.Run("WithClockSpeed", func(t *testing.T) {
		t.Parallel()
		prog, err := usbasp.New(mem.New(1024, 64), usbasp.WithClockSpeed(usbasp.SCK1500kHz))
		require.NoError(t, err)
		assert.Equal(t, usbasp.SCK1500kHz, prog.ClockSpeed())
	})

	t.Run("WithIndicator_Nil_Rejected", func(t *testing.T) {
		t.Parallel()
		_, err := usbasp.New(mem.New(1024, 64), usbasp.WithIndicator(nil))
		assert.ErrorIs(t, err, usbasp.ErrInvalidParameter)
	})

	t.Run("WithSlowClockProbe_Nil_Rejected", func(t *testing.T) {
		t.Parallel()
		_, err := usbasp.New(mem.New(1024, 64), usbasp.WithSlowClockProbe(nil))
		assert.ErrorIs(t, err, usbasp.ErrInvalidParameter)
	})
}

func TestBackendError_Unwrap(t *testing.T) {
	t.Parallel()
	prog, target := newProgrammer(t)

	cause := errors.New("bus stuck")
	target.SetError("connect", cause)

	_, err := prog.HandleSetup(usbasp.ConnectFrame())
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)

	var berr *usbasp.BackendError
	require.ErrorAs(t, err, &berr)
	assert.Contains(t, berr.Error(), "connect")
}

func TestStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "idle", usbasp.StateIdle.String())
	assert.Equal(t, "writing-flash", usbasp.StateWritingFlash.String())
	assert.Equal(t, "reading-eeprom", usbasp.StateReadingEEPROM.String())
	assert.Equal(t, "extended", usbasp.AddressingExtended.String())
	assert.Equal(t, "legacy", usbasp.AddressingLegacy.String())
}

func TestFrameEncoding(t *testing.T) {
	t.Parallel()

	// Write-flash frame with a 300-byte page: low byte in the page
	// field, bits 8-11 packed into the flags byte's high nibble.
	f := usbasp.WriteFlashFrame(0x1234, 300, usbasp.BlockFirst, 0x0400)
	assert.Equal(t, usbasp.Frame{0x00, 6, 0x34, 0x12, 0x2C, 0x11, 0x00, 0x04}, f)

	f = usbasp.SetExtendedAddressFrame(0xDEADBEEF)
	assert.Equal(t, usbasp.Frame{0x00, 9, 0xEF, 0xBE, 0xAD, 0xDE, 0x00, 0x00}, f)
}
