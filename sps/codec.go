package sps

import (
	"errors"
	"os"
	"time"
)

// response is one validated reply frame from the sensor.
type response struct {
	addr    byte
	cmd     byte
	status  byte
	payload []byte
}

// readFrame scans the transport for one complete response frame addressed to
// (addr, cmd). The whole scan shares the single deadline: a trickle of input
// that never completes still fails once the deadline elapses.
//
// Framing and mismatch failures come back as the typed errors in errors.go; a
// nonzero device status byte comes back as *DeviceError after the remainder
// of the frame has been drained for resynchronization. Transport errors pass
// through unchanged.
func readFrame(t Transport, addr, cmd byte, deadline time.Time) (*response, error) {
	// Hunt for the opening marker, discarding line noise.
	for {
		b, err := t.ReadByte(deadline)
		if err != nil {
			return nil, readErr(err, cmd)
		}
		if b == frameMark {
			break
		}
	}

	b, err := t.ReadByte(deadline)
	if err != nil {
		return nil, readErr(err, cmd)
	}
	if b != addr {
		return nil, &AddressError{Want: addr, Got: b}
	}

	b, err = t.ReadByte(deadline)
	if err != nil {
		return nil, readErr(err, cmd)
	}
	if b != cmd {
		return nil, &CommandError{Want: cmd, Got: b}
	}

	status, err := t.ReadByte(deadline)
	if err != nil {
		return nil, readErr(err, cmd)
	}
	if status != 0 {
		// Reported sensor error, not a framing error. Drain up to and
		// including the closing marker so the next exchange starts clean.
		drainToMark(t, deadline)
		return nil, &DeviceError{Cmd: cmd, Code: status}
	}

	// Stuffed length ++ payload ++ checksum, up to the closing marker.
	var body []byte
	for {
		b, err = t.ReadByte(deadline)
		if err != nil {
			return nil, readErr(err, cmd)
		}
		if b == frameMark {
			break
		}
		body = append(body, b)
	}

	raw, err := unstuffBytes(body)
	if err != nil {
		return nil, err
	}
	if len(raw) < 2 {
		return nil, &LengthError{Declared: -1, Got: len(raw)}
	}

	length := int(raw[0])
	payload := raw[1 : len(raw)-1]
	sum := raw[len(raw)-1]

	if length != len(payload) {
		return nil, &LengthError{Declared: length, Got: len(payload)}
	}

	// The response checksum covers the status byte as well.
	want := checksum([]byte{addr, cmd, status, raw[0]}, payload)
	if sum != want {
		return nil, &ChecksumError{Want: want, Got: sum}
	}

	return &response{addr: addr, cmd: cmd, status: status, payload: payload}, nil
}

// drainToMark discards bytes up to and including the next frame marker.
// Best effort: a deadline expiring mid-drain is ignored, the next attempt
// flushes pending input anyway.
func drainToMark(t Transport, deadline time.Time) {
	for {
		b, err := t.ReadByte(deadline)
		if err != nil || b == frameMark {
			return
		}
	}
}

// readErr maps a deadline expiry to *TimeoutError and passes transport
// failures through unchanged.
func readErr(err error, cmd byte) error {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return &TimeoutError{Cmd: cmd}
	}
	return err
}
