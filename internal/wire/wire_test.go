package wire_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northfork-instruments/logicap/internal/wire"
)

func TestCaptureRequestSize(t *testing.T) {
	req := wire.CaptureRequest{}
	assert.Len(t, req.Marshal(), wire.CaptureRequestSize)
	assert.Equal(t, 45, wire.CaptureRequestSize)
}

func TestCaptureRequestFieldOffsets(t *testing.T) {
	req := wire.CaptureRequest{
		Frequency:   24_000_000,
		PreSamples:  1000,
		PostSamples: 9000,
		CaptureMode: uint8(wire.Channels8),
	}
	buf := req.Marshal()

	assert.Equal(t, uint32(24_000_000), leU32(buf[30:34]))
	assert.Equal(t, uint32(1000), leU32(buf[34:38]))
	assert.Equal(t, uint32(9000), leU32(buf[38:42]))
	assert.Equal(t, uint8(0), buf[44])
}

func leU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func TestCaptureRequestRoundTrip(t *testing.T) {
	req := wire.CaptureRequest{
		TriggerType:     uint8(wire.TriggerComplex),
		Trigger:         3,
		InvertedOrCount: 1,
		TriggerValue:    0xBEEF,
		ChannelCount:    4,
		Frequency:       1_000_000,
		PreSamples:      500,
		PostSamples:     1500,
		LoopCount:       2,
		Measure:         1,
		CaptureMode:     uint8(wire.Channels16),
	}
	req.Channels[0] = 1
	req.Channels[1] = 1
	req.Channels[2] = 1
	req.Channels[3] = 1

	decoded, err := wire.UnmarshalCaptureRequest(req.Marshal())
	require.NoError(t, err)
	assert.Equal(t, req, decoded)
}

func TestNetConfigTruncatesOversizeFields(t *testing.T) {
	cfg := wire.NetConfig{
		AccessPointName: strings.Repeat("A", 100),
		Password:        "short",
		IPAddress:       "192.168.1.100",
		Port:            8001,
	}

	buf := cfg.Marshal()
	assert.Len(t, buf, wire.NetConfigSize)

	decoded, err := wire.UnmarshalNetConfig(buf)
	require.NoError(t, err)
	assert.Len(t, decoded.AccessPointName, 32)
	assert.Equal(t, "short", decoded.Password)
	assert.Equal(t, "192.168.1.100", decoded.IPAddress)
	assert.Equal(t, uint16(8001), decoded.Port)
}

func TestNetConfigRoundTrip(t *testing.T) {
	cfg := wire.NetConfig{
		AccessPointName: "MyAnalyzerAP",
		Password:        "hunter2",
		IPAddress:       "10.0.0.5",
		Port:            9000,
	}
	decoded, err := wire.UnmarshalNetConfig(cfg.Marshal())
	require.NoError(t, err)
	assert.Equal(t, cfg, decoded)
}
