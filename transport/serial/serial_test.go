// serial_test.go - tests for the bridge transaction loop and its legacy
// sentinel translation, driven over an in-memory stream.

package serial

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	usbasp "github.com/avrkit/go-usbasp"
	"github.com/avrkit/go-usbasp/isp/mem"
)

// duplex is an in-memory stream: the frontend reads the scripted peer
// input and its replies accumulate in out.
type duplex struct {
	in  io.Reader
	out bytes.Buffer
}

func (d *duplex) Read(p []byte) (int, error)  { return d.in.Read(p) }
func (d *duplex) Write(p []byte) (int, error) { return d.out.Write(p) }

func script(parts ...[]byte) io.Reader {
	return bytes.NewReader(bytes.Join(parts, nil))
}

func frame(f usbasp.Frame) []byte {
	return f[:]
}

func newTestFrontend(t *testing.T, in io.Reader) (*Frontend, *duplex, *mem.Target) {
	t.Helper()
	target := mem.New(64*1024, 1024)
	prog, err := usbasp.New(target)
	require.NoError(t, err)
	stream := &duplex{in: in}
	return New(prog, stream), stream, target
}

func TestServe_FullSession(t *testing.T) {
	t.Parallel()

	in := script(
		frame(usbasp.ConnectFrame()),
		frame(usbasp.EnableProgrammingFrame()),
		frame(usbasp.WriteFlashFrame(0, 2, usbasp.BlockFirst|usbasp.BlockLast, 4)),
		[]byte{0x11, 0x22, 0x33, 0x44},
		frame(usbasp.ReadFlashFrame(0, 4)),
		frame(usbasp.DisconnectFrame()),
	)
	f, stream, target := newTestFrontend(t, in)

	err := f.Serve(context.Background())
	require.NoError(t, err, "stream end is a clean shutdown")

	want := []byte{
		0x00,       // connect: empty reply
		0x01, 0x00, // enable programming: one status byte
		0xFF,       // write flash: chunked sentinel
		0x01,       // final chunk acknowledged as complete
		0xFF,       // read flash: chunked sentinel
		0x11, 0x22, 0x33, 0x44, // read-back data
		0x00, // disconnect: empty reply
	}
	assert.Equal(t, want, stream.out.Bytes())
	assert.Equal(t, []byte{0x11, 0x22, 0x33, 0x44}, target.Flash[:4])
	assert.False(t, target.Connected)
}

func TestServe_MultiChunkWrite(t *testing.T) {
	t.Parallel()

	data := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	in := script(
		frame(usbasp.WriteEEPROMFrame(0x20, uint16(len(data)))),
		data,
	)
	f, stream, target := newTestFrontend(t, in)

	require.NoError(t, f.Serve(context.Background()))

	// Chunked sentinel, then one ack per 8-byte chunk: continue for the
	// first, complete for the short final one.
	assert.Equal(t, []byte{0xFF, 0x00, 0x01}, stream.out.Bytes())
	assert.Equal(t, data, target.EEPROM[0x20:0x2A])
}

func TestServe_ImmediateReplies(t *testing.T) {
	t.Parallel()

	in := script(
		frame(usbasp.TransmitFrame(0xAC, 0x53, 0x00, 0x00)),
		frame(usbasp.SetClockSpeedFrame(usbasp.SCK32kHz)),
		frame(usbasp.GetCapabilitiesFrame()),
	)
	f, stream, _ := newTestFrontend(t, in)

	require.NoError(t, f.Serve(context.Background()))

	want := []byte{
		0x04, 0x00, 0xAC, 0x53, 0x00, // transmit echoes shifted bytes
		0x01, 0x00, // clock ack, always zero
		0x04, 0x00, 0x00, 0x00, 0x00, // capability bitmask
	}
	assert.Equal(t, want, stream.out.Bytes())
}

func TestServe_ContextCanceled(t *testing.T) {
	t.Parallel()

	f, _, _ := newTestFrontend(t, script(frame(usbasp.ConnectFrame())))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := f.Serve(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestServe_TruncatedFrame(t *testing.T) {
	t.Parallel()

	f, _, _ := newTestFrontend(t, bytes.NewReader([]byte{0x00, 0x01, 0x02}))
	err := f.Serve(context.Background())
	assert.Error(t, err, "partial setup frame is a stream error, not a clean end")
}
