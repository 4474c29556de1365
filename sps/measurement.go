package sps

import (
	"encoding/binary"
	"math"
	"time"
)

// measurementSize is the minimum read-measurement payload: ten big-endian
// IEEE-754 floats.
const measurementSize = 40

// Reading is one decoded measurement. Mass concentrations are in µg/m³,
// number concentrations in #/cm³, typical particle size in µm. The timestamp
// is assigned at decode time, the sensor does not transmit one.
type Reading struct {
	Timestamp time.Time `json:"timestamp"`

	PM1  float32 `json:"pm1"`
	PM25 float32 `json:"pm25"`
	PM4  float32 `json:"pm4"`
	PM10 float32 `json:"pm10"`

	N05 float32 `json:"n05"`
	N1  float32 `json:"n1"`
	N25 float32 `json:"n25"`
	N4  float32 `json:"n4"`
	N10 float32 `json:"n10"`

	TPS float32 `json:"tps"`
}

// DecodeReading interprets a validated read-measurement payload. The payload
// must already have passed frame length and checksum validation; a payload
// shorter than the ten-float layout fails with *TruncatedPayloadError.
func DecodeReading(payload []byte, ts time.Time) (*Reading, error) {
	if len(payload) < measurementSize {
		return nil, &TruncatedPayloadError{Need: measurementSize, Got: len(payload)}
	}

	f := func(i int) float32 {
		return math.Float32frombits(binary.BigEndian.Uint32(payload[4*i:]))
	}

	return &Reading{
		Timestamp: ts,
		PM1:       f(0),
		PM25:      f(1),
		PM4:       f(2),
		PM10:      f(3),
		N05:       f(4),
		N1:        f(5),
		N25:       f(6),
		N4:        f(7),
		N10:       f(8),
		TPS:       f(9),
	}, nil
}
