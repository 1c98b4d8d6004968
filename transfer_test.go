// transfer_test.go - tests for the chunked transfer engine: page flush
// timing, block flag handling across commands, short-chunk read
// termination and invalid-state rejection.

package usbasp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	usbasp "github.com/avrkit/go-usbasp"
	"github.com/avrkit/go-usbasp/isp/mem"
)

// writeAll streams data to an armed write transfer in protocol-size
// chunks, returning the done result of the final chunk.
func writeAll(t *testing.T, prog *usbasp.Programmer, data []byte) bool {
	t.Helper()
	var done bool
	for off := 0; off < len(data); off += usbasp.ChunkSize {
		end := off + usbasp.ChunkSize
		if end > len(data) {
			end = len(data)
		}
		var err error
		done, err = prog.WriteChunk(data[off:end])
		require.NoError(t, err)
	}
	return done
}

func TestWriteChunk_UnpagedFlash(t *testing.T) {
	t.Parallel()
	prog, target := newProgrammer(t)

	_, err := prog.HandleSetup(usbasp.WriteFlashFrame(0x40, 0, usbasp.BlockFirst|usbasp.BlockLast, 4))
	require.NoError(t, err)

	done := writeAll(t, prog, []byte{0x11, 0x22, 0x33, 0x44})
	assert.True(t, done)
	assert.Empty(t, target.Flushes, "unpaged writes never flush")

	require.Len(t, target.FlashWrites, 4)
	for i, w := range target.FlashWrites {
		assert.True(t, w.Commit, "unpaged writes commit immediately")
		assert.Equal(t, uint32(0x40+i), w.Addr, "writes are address-ordered")
	}
	assert.Equal(t, []byte{0x11, 0x22, 0x33, 0x44}, target.Flash[0x40:0x44])
}

func TestWriteChunk_PagedFlushTiming(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		flags           usbasp.BlockFlags
		pageSize        uint16
		length          uint16
		expectedFlushes int
		pendingBytes    int
	}{
		{
			name:            "Pages_Fill_Naturally",
			flags:           usbasp.BlockFirst,
			pageSize:        2,
			length:          4,
			expectedFlushes: 2,
			pendingBytes:    0,
		},
		{
			name:            "Partial_Page_Without_Last_Stays_Pending",
			flags:           usbasp.BlockFirst,
			pageSize:        4,
			length:          6,
			expectedFlushes: 1,
			pendingBytes:    2,
		},
		{
			name:            "Last_Forces_Final_Partial_Flush",
			flags:           usbasp.BlockFirst | usbasp.BlockLast,
			pageSize:        4,
			length:          10,
			expectedFlushes: 3, // 10/4 = 2 natural + 1 forced
			pendingBytes:    0,
		},
		{
			name:            "Exact_Multiple_With_Last_Needs_No_Forced_Flush",
			flags:           usbasp.BlockFirst | usbasp.BlockLast,
			pageSize:        2,
			length:          4,
			expectedFlushes: 2,
			pendingBytes:    0,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			prog, target := newProgrammer(t)

			_, err := prog.HandleSetup(usbasp.WriteFlashFrame(0, tt.pageSize, tt.flags, tt.length))
			require.NoError(t, err)

			data := make([]byte, tt.length)
			for i := range data {
				data[i] = byte(i + 1)
			}
			done := writeAll(t, prog, data)
			assert.True(t, done)
			assert.Equal(t, usbasp.StateIdle, prog.State())
			assert.Len(t, target.Flushes, tt.expectedFlushes)
			assert.Equal(t, tt.pendingBytes, target.StagedBytes())
		})
	}
}

func TestWriteChunk_FlushKeyedToLastByte(t *testing.T) {
	t.Parallel()
	prog, target := newProgrammer(t)

	// pageSize=2, First, length=4: flush after byte 2 with its address
	// and value, no forced flush since Last is not set.
	_, err := prog.HandleSetup(usbasp.WriteFlashFrame(0x0000, 2, usbasp.BlockFirst, 4))
	require.NoError(t, err)

	done := writeAll(t, prog, []byte{0x11, 0x22, 0x33, 0x44})
	assert.True(t, done)

	require.Len(t, target.Flushes, 2)
	assert.Equal(t, mem.FlushRecord{Addr: 1, Last: 0x22}, target.Flushes[0])
	assert.Equal(t, mem.FlushRecord{Addr: 3, Last: 0x44}, target.Flushes[1])
}

func TestWriteChunk_PageSpansCommands(t *testing.T) {
	t.Parallel()
	prog, target := newProgrammer(t)

	// First block delivers 3 bytes of a 4-byte page. No flush yet; the
	// page counter must survive into the continuation block.
	_, err := prog.HandleSetup(usbasp.WriteFlashFrame(0, 4, usbasp.BlockFirst, 3))
	require.NoError(t, err)
	done := writeAll(t, prog, []byte{0xA1, 0xA2, 0xA3})
	assert.True(t, done)
	assert.Empty(t, target.Flushes)
	assert.Equal(t, 3, target.StagedBytes())

	// Continuation block (no First flag) completes the page with its
	// first byte.
	_, err = prog.HandleSetup(usbasp.WriteFlashFrame(3, 4, usbasp.BlockLast, 5))
	require.NoError(t, err)
	done = writeAll(t, prog, []byte{0xA4, 0xB1, 0xB2, 0xB3, 0xB4})
	assert.True(t, done)

	require.Len(t, target.Flushes, 2)
	assert.Equal(t, uint32(3), target.Flushes[0].Addr, "page completes one byte into the continuation block")
	assert.Equal(t, []byte{0xA1, 0xA2, 0xA3, 0xA4, 0xB1, 0xB2, 0xB3, 0xB4}, target.Flash[0:8])
}

func TestWriteChunk_PackedPageSizeBeyondOneByte(t *testing.T) {
	t.Parallel()
	prog, target := newProgrammer(t)

	// 256-byte page: the size does not fit the dedicated byte and uses
	// the packed high nibble.
	_, err := prog.HandleSetup(usbasp.WriteFlashFrame(0, 256, usbasp.BlockFirst|usbasp.BlockLast, 256))
	require.NoError(t, err)

	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}
	done := writeAll(t, prog, data)
	assert.True(t, done)

	require.Len(t, target.Flushes, 1)
	assert.Equal(t, uint32(255), target.Flushes[0].Addr)
	assert.Equal(t, data, target.Flash[:256])
}

func TestWriteChunk_InvalidState(t *testing.T) {
	t.Parallel()

	t.Run("Idle", func(t *testing.T) {
		t.Parallel()
		prog, target := newProgrammer(t)
		_, err := prog.WriteChunk([]byte{1, 2, 3})
		assert.ErrorIs(t, err, usbasp.ErrInvalidState)
		assert.Empty(t, target.FlashWrites, "rejected chunk performs no writes")
	})

	t.Run("Read_Armed", func(t *testing.T) {
		t.Parallel()
		prog, _ := newProgrammer(t)
		_, err := prog.HandleSetup(usbasp.ReadFlashFrame(0, 8))
		require.NoError(t, err)
		_, err = prog.WriteChunk([]byte{1})
		assert.ErrorIs(t, err, usbasp.ErrInvalidState)
	})

	t.Run("After_Completion", func(t *testing.T) {
		t.Parallel()
		prog, _ := newProgrammer(t)
		_, err := prog.HandleSetup(usbasp.WriteEEPROMFrame(0, 2))
		require.NoError(t, err)
		done, err := prog.WriteChunk([]byte{1, 2})
		require.NoError(t, err)
		require.True(t, done)
		_, err = prog.WriteChunk([]byte{3})
		assert.ErrorIs(t, err, usbasp.ErrInvalidState)
	})
}

func TestWriteChunk_ChunkTooLarge(t *testing.T) {
	t.Parallel()
	prog, _ := newProgrammer(t)
	_, err := prog.HandleSetup(usbasp.WriteEEPROMFrame(0, 16))
	require.NoError(t, err)
	_, err = prog.WriteChunk(make([]byte, usbasp.ChunkSize+1))
	assert.ErrorIs(t, err, usbasp.ErrChunkTooLarge)
}

func TestWriteChunk_TrailingBytesIgnored(t *testing.T) {
	t.Parallel()
	prog, target := newProgrammer(t)

	_, err := prog.HandleSetup(usbasp.WriteEEPROMFrame(0, 2))
	require.NoError(t, err)

	// The chunk carries more bytes than the armed count; the extras must
	// not reach the backend.
	done, err := prog.WriteChunk([]byte{1, 2, 3, 4})
	require.NoError(t, err)
	assert.True(t, done)
	assert.Len(t, target.EEPROMWrites, 2)
}

func TestReadChunk_EEPROMShortChunkTerminates(t *testing.T) {
	t.Parallel()
	prog, target := newProgrammer(t)
	for i := 0; i < 10; i++ {
		target.EEPROM[0x10+i] = byte(0xE0 + i)
	}

	_, err := prog.HandleSetup(usbasp.ReadEEPROMFrame(0x10, 10))
	require.NoError(t, err)

	buf := make([]byte, usbasp.ChunkSize)
	n, err := prog.ReadChunk(buf)
	require.NoError(t, err)
	assert.Equal(t, usbasp.ChunkSize, n)
	assert.Equal(t, usbasp.StateReadingEEPROM, prog.State(), "full chunk does not terminate")

	n, err = prog.ReadChunk(buf[:2])
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, usbasp.StateIdle, prog.State(), "short chunk terminates")

	want := make([]byte, 10)
	for i := range want {
		want[i] = byte(0xE0 + i)
	}
	assert.Equal(t, want[:8], target.EEPROM[0x10:0x18])
	assert.Equal(t, want[8:], target.EEPROM[0x18:0x1A])
}

func TestReadChunk_ExactMultipleStaysArmed(t *testing.T) {
	t.Parallel()
	prog, _ := newProgrammer(t)

	_, err := prog.HandleSetup(usbasp.ReadFlashFrame(0, usbasp.ChunkSize))
	require.NoError(t, err)

	buf := make([]byte, usbasp.ChunkSize)
	_, err = prog.ReadChunk(buf)
	require.NoError(t, err)

	// A full final chunk leaves the transfer armed; only a shorter
	// (possibly zero-length) request ends it. Hosts end exact-multiple
	// reads with a zero-length transaction.
	assert.Equal(t, usbasp.StateReadingFlash, prog.State())

	n, err := prog.ReadChunk(nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, usbasp.StateIdle, prog.State())
}

func TestReadChunk_InvalidState(t *testing.T) {
	t.Parallel()

	t.Run("Idle", func(t *testing.T) {
		t.Parallel()
		prog, _ := newProgrammer(t)
		_, err := prog.ReadChunk(make([]byte, 4))
		assert.ErrorIs(t, err, usbasp.ErrInvalidState)
	})

	t.Run("Write_Armed", func(t *testing.T) {
		t.Parallel()
		prog, _ := newProgrammer(t)
		_, err := prog.HandleSetup(usbasp.WriteFlashFrame(0, 0, 0, 4))
		require.NoError(t, err)
		_, err = prog.ReadChunk(make([]byte, 4))
		assert.ErrorIs(t, err, usbasp.ErrInvalidState)
	})
}

func TestReadChunk_ChunkTooLarge(t *testing.T) {
	t.Parallel()
	prog, _ := newProgrammer(t)
	_, err := prog.HandleSetup(usbasp.ReadFlashFrame(0, 32))
	require.NoError(t, err)
	_, err = prog.ReadChunk(make([]byte, usbasp.ChunkSize+1))
	assert.ErrorIs(t, err, usbasp.ErrChunkTooLarge)
}
