package sps

import (
	"os"
	"time"
)

// fakeTransport serves a scripted byte stream and records writes. With no
// script left it blocks until the deadline, like a silent sensor. A nonzero
// delay makes it trickle one byte per delay interval.
type fakeTransport struct {
	script     []byte
	pos        int
	delay      time.Duration
	repeat     bool
	repeatByte byte

	writes   [][]byte
	flushes  int
	writeErr error
}

func (t *fakeTransport) Write(p []byte) (int, error) {
	if t.writeErr != nil {
		return 0, t.writeErr
	}
	t.writes = append(t.writes, append([]byte(nil), p...))
	return len(p), nil
}

func (t *fakeTransport) ReadByte(deadline time.Time) (byte, error) {
	if t.delay > 0 {
		if wait := time.Until(deadline); wait < t.delay {
			if wait > 0 {
				time.Sleep(wait)
			}
			return 0, os.ErrDeadlineExceeded
		}
		time.Sleep(t.delay)
	} else if !time.Now().Before(deadline) {
		return 0, os.ErrDeadlineExceeded
	}

	if t.pos < len(t.script) {
		b := t.script[t.pos]
		t.pos++
		return b, nil
	}
	if t.repeat {
		return t.repeatByte, nil
	}
	if wait := time.Until(deadline); wait > 0 {
		time.Sleep(wait)
	}
	return 0, os.ErrDeadlineExceeded
}

func (t *fakeTransport) FlushInput() error {
	t.flushes++
	return nil
}

func (t *fakeTransport) Close() error { return nil }

// responseFrame builds a complete, correctly stuffed and checksummed
// response frame as the sensor would send it.
func responseFrame(addr, cmd, status byte, payload []byte) []byte {
	header := []byte{addr, cmd, status, byte(len(payload))}
	sum := checksum(header, payload)

	wire := []byte{frameMark}
	wire = stuffBytes(wire, header)
	wire = stuffBytes(wire, payload)
	wire = stuffBytes(wire, []byte{sum})
	return append(wire, frameMark)
}
