package sps

import "fmt"

// TimeoutError reports that no complete response frame arrived within the
// per-attempt deadline.
type TimeoutError struct {
	Cmd byte
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command 0x%02X: timed out waiting for response", e.Cmd)
}

// AddressError reports a response frame carrying an unexpected device address.
type AddressError struct {
	Want, Got byte
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("address mismatch: expected 0x%02X, received 0x%02X", e.Want, e.Got)
}

// CommandError reports a response to a different command than the one
// outstanding.
type CommandError struct {
	Want, Got byte
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command mismatch: expected 0x%02X, received 0x%02X", e.Want, e.Got)
}

// EscapeError reports an invalid escape sequence inside a frame body: either
// an escape byte with nothing following it, or one followed by a byte outside
// the four defined escape codes.
type EscapeError struct {
	Follow    byte
	Truncated bool
}

func (e *EscapeError) Error() string {
	if e.Truncated {
		return "malformed escape: frame body ends on escape byte"
	}
	return fmt.Sprintf("malformed escape: 0x7D followed by 0x%02X", e.Follow)
}

// LengthError reports a mismatch between the declared payload length and the
// payload actually received.
type LengthError struct {
	Declared, Got int
}

func (e *LengthError) Error() string {
	if e.Declared < 0 {
		return fmt.Sprintf("length mismatch: frame body too short (%d bytes)", e.Got)
	}
	return fmt.Sprintf("length mismatch: frame declares %d payload bytes, received %d", e.Declared, e.Got)
}

// ChecksumError reports a frame whose transmitted checksum does not match the
// checksum recomputed over its unstuffed contents.
type ChecksumError struct {
	Want, Got byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch: calculated 0x%02X, received 0x%02X", e.Want, e.Got)
}

// DeviceError is a sensor-reported failure: the response frame arrived intact
// but carried a nonzero status byte. It is not retried automatically.
type DeviceError struct {
	Cmd  byte
	Code byte
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("command 0x%02X rejected by device: %s (0x%02X)", e.Cmd, StatusText(e.Code), e.Code)
}

// IsDeviceError reports whether err is a sensor-reported failure.
func IsDeviceError(err error) bool {
	_, ok := err.(*DeviceError)
	return ok
}

// TruncatedPayloadError reports a validated frame whose payload is too short
// for the expected payload shape.
type TruncatedPayloadError struct {
	Need, Got int
}

func (e *TruncatedPayloadError) Error() string {
	return fmt.Sprintf("truncated payload: need %d bytes, got %d", e.Need, e.Got)
}

// transientFailure reports whether err is a protocol or framing failure that
// a retry of the identical request may clear. Device-reported errors and
// transport errors are not transient.
func transientFailure(err error) bool {
	switch err.(type) {
	case *TimeoutError, *AddressError, *CommandError, *EscapeError, *LengthError, *ChecksumError:
		return true
	}
	return false
}
