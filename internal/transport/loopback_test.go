package transport_test

import (
	"context"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northfork-instruments/logicap/internal/framer"
	"github.com/northfork-instruments/logicap/internal/transport"
)

// TestSerialTransportOverPty exercises SerialTransport against a real pty
// pair instead of a device emulator: the master side plays the part of the
// analyzer, the slave side is what SerialTransport opens.
func TestSerialTransportOverPty(t *testing.T) {
	master, slave, err := pty.Open()
	require.NoError(t, err)
	defer master.Close()
	defer slave.Close()

	st, err := transport.OpenSerial(slave.Name(), 0)
	require.NoError(t, err)
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	payload := []byte{0x10, 0x20, 0x30}
	go func() {
		_, _ = master.Write(framer.Encode(payload))
	}()

	got, err := st.ReadFrame(ctx)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	command := framer.Encode([]byte{0xAB, 0xCD})
	require.NoError(t, st.Write(ctx, command))

	buf := make([]byte, len(command))
	_, err = master.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, command, buf)
}
