package sps

// Constants for the SHDLC-style framing used by the SPS030 serial protocol.
const (
	// frameMark delimits frames on the wire. The same value terminates one
	// frame and opens the next, so it must never appear inside a frame body;
	// byte stuffing guarantees that.
	frameMark byte = 0x7E
	// frameEscape introduces a two-byte escape sequence inside a frame body.
	frameEscape byte = 0x7D

	// DeviceAddr is the device address on this point-to-point link.
	DeviceAddr byte = 0x00
)

// Command bytes understood by the sensor.
const (
	CmdStartMeasurement  byte = 0x00
	CmdStopMeasurement   byte = 0x01
	CmdReadMeasurement   byte = 0x03
	CmdStartFanCleaning  byte = 0x56
	CmdAutoCleanInterval byte = 0x80
	CmdDeviceInformation byte = 0xD0
	CmdReset             byte = 0xD3
)

// stuffBytes appends the byte-stuffed form of src to dst and returns the
// extended slice. The four reserved values 0x7E, 0x7D, 0x11, 0x13 become
// two-byte escapes, everything else passes through unchanged.
func stuffBytes(dst, src []byte) []byte {
	for _, b := range src {
		switch b {
		case 0x7E:
			dst = append(dst, frameEscape, 0x5E)
		case 0x7D:
			dst = append(dst, frameEscape, 0x5D)
		case 0x11:
			dst = append(dst, frameEscape, 0x31)
		case 0x13:
			dst = append(dst, frameEscape, 0x33)
		default:
			dst = append(dst, b)
		}
	}
	return dst
}

// unstuffBytes reverses stuffBytes on a frame body. The outer frame markers
// must already be stripped; they are never escaped.
func unstuffBytes(src []byte) ([]byte, error) {
	dst := make([]byte, 0, len(src))
	for i := 0; i < len(src); i++ {
		b := src[i]
		if b != frameEscape {
			dst = append(dst, b)
			continue
		}
		i++
		if i >= len(src) {
			return nil, &EscapeError{Truncated: true}
		}
		switch src[i] {
		case 0x5E:
			dst = append(dst, 0x7E)
		case 0x5D:
			dst = append(dst, 0x7D)
		case 0x31:
			dst = append(dst, 0x11)
		case 0x33:
			dst = append(dst, 0x13)
		default:
			return nil, &EscapeError{Follow: src[i]}
		}
	}
	return dst, nil
}

// checksum computes the one-byte frame checksum: the inverted low byte of the
// sum over header and payload, taken before byte stuffing.
func checksum(header, payload []byte) byte {
	var sum byte
	for _, b := range header {
		sum += b
	}
	for _, b := range payload {
		sum += b
	}
	return 0xFF - sum
}

// encodeFrame builds one complete request frame ready for the wire.
func encodeFrame(addr, cmd byte, payload []byte) []byte {
	header := []byte{addr, cmd, byte(len(payload))}
	sum := checksum(header, payload)

	wire := make([]byte, 1, len(payload)+8)
	wire[0] = frameMark
	wire = stuffBytes(wire, header)
	wire = stuffBytes(wire, payload)
	wire = stuffBytes(wire, []byte{sum})
	return append(wire, frameMark)
}
