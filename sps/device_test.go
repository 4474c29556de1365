package sps

import (
	"io"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func pipeDevice(t *testing.T) (*Device, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	d := NewDevice()
	d.Attach(client)
	t.Cleanup(func() {
		d.Close()
		server.Close()
	})
	return d, server
}

func TestDeviceReadByte(t *testing.T) {
	d, server := pipeDevice(t)

	go server.Write([]byte{0x7E, 0x42})

	b, err := d.ReadByte(time.Now().Add(time.Second))
	require.NoError(t, err)
	require.Equal(t, byte(0x7E), b)

	b, err = d.ReadByte(time.Now().Add(time.Second))
	require.NoError(t, err)
	require.Equal(t, byte(0x42), b)
}

func TestDeviceReadByteDeadline(t *testing.T) {
	d, _ := pipeDevice(t)

	start := time.Now()
	_, err := d.ReadByte(time.Now().Add(50 * time.Millisecond))
	require.ErrorIs(t, err, os.ErrDeadlineExceeded)
	require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestDeviceFlushInput(t *testing.T) {
	d, server := pipeDevice(t)

	go server.Write([]byte{0x01, 0x02, 0x03})
	// Give the read pump a moment to buffer the stale bytes.
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, d.FlushInput())

	_, err := d.ReadByte(time.Now().Add(20 * time.Millisecond))
	require.ErrorIs(t, err, os.ErrDeadlineExceeded)
}

func TestDeviceWriteAfterClose(t *testing.T) {
	d, _ := pipeDevice(t)
	require.NoError(t, d.Close())

	_, err := d.Write([]byte{0x7E})
	require.ErrorIs(t, err, io.EOF)

	require.Error(t, d.Close())
}
