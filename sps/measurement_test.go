package sps

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// floatPayload lays out the given values as consecutive big-endian IEEE-754
// floats, the read-measurement payload format.
func floatPayload(vals ...float32) []byte {
	b := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.BigEndian.PutUint32(b[4*i:], math.Float32bits(v))
	}
	return b
}

func TestDecodeReading(t *testing.T) {
	payload := floatPayload(1.5, 2.25, 3.0, 10.5, 100.0, 90.0, 80.0, 70.0, 60.0, 0.8)

	ts := time.Now()
	r, err := DecodeReading(payload, ts)
	require.NoError(t, err)

	require.Equal(t, ts, r.Timestamp)
	require.Equal(t, float32(1.5), r.PM1)
	require.Equal(t, float32(2.25), r.PM25)
	require.Equal(t, float32(3.0), r.PM4)
	require.Equal(t, float32(10.5), r.PM10)
	require.Equal(t, float32(100.0), r.N05)
	require.Equal(t, float32(90.0), r.N1)
	require.Equal(t, float32(80.0), r.N25)
	require.Equal(t, float32(70.0), r.N4)
	require.Equal(t, float32(60.0), r.N10)
	require.Equal(t, float32(0.8), r.TPS)
}

func TestDecodeReadingTruncated(t *testing.T) {
	// A valid frame that is simply too short for the measurement layout must
	// fail as a decode error, not as a framing error.
	payload := floatPayload(1.0, 2.0, 3.0, 4.0, 5.0)
	require.Len(t, payload, 20)

	_, err := DecodeReading(payload, time.Now())

	var tp *TruncatedPayloadError
	require.ErrorAs(t, err, &tp)
	require.Equal(t, 40, tp.Need)
	require.Equal(t, 20, tp.Got)
	require.False(t, transientFailure(err))
}
