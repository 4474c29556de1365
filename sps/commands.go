package sps

import (
	"bytes"
	"encoding/binary"
	"time"
)

// Start-measurement payload: subcommand 0x01, output format 0x03 (big-endian
// IEEE-754 floats).
const (
	subStartMeasurement byte = 0x01
	subFloatFormat      byte = 0x03
)

// subAutoClean selects the fan auto-clean interval variable on the
// read/write autoclean command.
const subAutoClean byte = 0x00

// InfoKind selects which device-information string to request.
type InfoKind byte

const (
	InfoProductName  InfoKind = 0x01
	InfoArticleCode  InfoKind = 0x02
	InfoSerialNumber InfoKind = 0x03
)

// StartMeasurement switches the sensor into measurement mode. The round trip
// is confirmed: the call does not return success until the sensor
// acknowledged the command.
func (s *Sensor) StartMeasurement() error {
	_, err := s.execute(CmdStartMeasurement, []byte{subStartMeasurement, subFloatFormat})
	return err
}

// StopMeasurement returns the sensor to idle mode.
func (s *Sensor) StopMeasurement() error {
	_, err := s.execute(CmdStopMeasurement, nil)
	return err
}

// ReadMeasurement fetches and decodes one measurement. The sensor must be in
// measurement mode.
func (s *Sensor) ReadMeasurement() (*Reading, error) {
	resp, err := s.execute(CmdReadMeasurement, nil)
	if err != nil {
		return nil, err
	}
	return DecodeReading(resp.payload, time.Now())
}

// StartFanCleaning runs the fan at maximum speed for a few seconds to blow
// out accumulated dust.
func (s *Sensor) StartFanCleaning() error {
	_, err := s.execute(CmdStartFanCleaning, nil)
	return err
}

// Reset restarts the sensor. Like every sequencing command it performs a
// full confirmed round trip before returning.
func (s *Sensor) Reset() error {
	_, err := s.execute(CmdReset, nil)
	return err
}

// AutoCleanInterval reads the fan auto-clean interval. Zero means automatic
// cleaning is disabled.
func (s *Sensor) AutoCleanInterval() (time.Duration, error) {
	resp, err := s.execute(CmdAutoCleanInterval, []byte{subAutoClean})
	if err != nil {
		return 0, err
	}
	if len(resp.payload) < 4 {
		return 0, &TruncatedPayloadError{Need: 4, Got: len(resp.payload)}
	}
	secs := binary.BigEndian.Uint32(resp.payload)
	return time.Duration(secs) * time.Second, nil
}

// SetAutoCleanInterval writes the fan auto-clean interval, rounded down to
// whole seconds. Zero disables automatic cleaning.
func (s *Sensor) SetAutoCleanInterval(d time.Duration) error {
	payload := make([]byte, 5)
	payload[0] = subAutoClean
	binary.BigEndian.PutUint32(payload[1:], uint32(d/time.Second))
	_, err := s.execute(CmdAutoCleanInterval, payload)
	return err
}

// DeviceInformation requests one of the device-information strings (product
// name, article code, serial number).
func (s *Sensor) DeviceInformation(kind InfoKind) (string, error) {
	resp, err := s.execute(CmdDeviceInformation, []byte{byte(kind)})
	if err != nil {
		return "", err
	}
	// NUL-terminated ASCII.
	if i := bytes.IndexByte(resp.payload, 0); i >= 0 {
		return string(resp.payload[:i]), nil
	}
	return string(resp.payload), nil
}
