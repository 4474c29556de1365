package sps

import "fmt"

// Status codes reported by the sensor in the response status byte.
const (
	StatusOK               byte = 0x00
	StatusWrongLength      byte = 0x01
	StatusUnknownCommand   byte = 0x02
	StatusNoAccess         byte = 0x03
	StatusIllegalParameter byte = 0x04
	StatusIllegalArgument  byte = 0x28
	StatusNotAllowed       byte = 0x43
)

// StatusText returns a human-readable description for a device status byte.
// Unknown codes get a generic description, never an error.
func StatusText(code byte) string {
	switch code {
	case StatusOK:
		return "OK"
	case StatusWrongLength:
		return "Wrong data length for command"
	case StatusUnknownCommand:
		return "Unknown command"
	case StatusNoAccess:
		return "No access right for command"
	case StatusIllegalParameter:
		return "Illegal command parameter or parameter out of allowed range"
	case StatusIllegalArgument:
		return "Internal function argument out of range"
	case StatusNotAllowed:
		return "Command not allowed in current state"
	default:
		return fmt.Sprintf("Unknown error 0x%02X", code)
	}
}
