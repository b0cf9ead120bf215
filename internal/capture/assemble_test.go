package capture_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northfork-instruments/logicap/internal/capture"
	"github.com/northfork-instruments/logicap/internal/session"
	"github.com/northfork-instruments/logicap/internal/trigger"
)

func eightChannelSession() session.CaptureSession {
	chans := make([]session.AnalyzerChannel, 8)
	for i := range chans {
		chans[i] = session.AnalyzerChannel{ChannelNumber: i}
	}

	return session.CaptureSession{
		Frequency:          24_000_000,
		PreTriggerSamples:  1000,
		PostTriggerSamples: 9000,
		TriggerType:        session.TriggerEdge,
		TriggerChannel:     0,
		CaptureChannels:    chans,
	}
}

func TestAssembleMinimumCaptureRequest(t *testing.T) {
	s := eightChannelSession()
	caps := capture.DeviceCaps{ChannelCount: 8, BufferSize: 24000, BlastFrequency: 100_000_000}

	framed, err := capture.Assemble(s, caps)
	require.NoError(t, err)

	req, err := capture.DecodeRequest(framed)
	require.NoError(t, err)

	assert.Equal(t, uint32(24_000_000), req.Frequency)
	assert.Equal(t, uint32(1000), req.PreSamples)
	assert.Equal(t, uint32(9000), req.PostSamples)
	assert.Equal(t, uint8(0), req.CaptureMode) // Channels8
	assert.Equal(t, uint8(8), req.ChannelCount)
}

func TestAssembleRejectsInvalidSession(t *testing.T) {
	s := eightChannelSession()
	s.PreTriggerSamples = 1 // below minimum of 2

	caps := capture.DeviceCaps{ChannelCount: 8, BufferSize: 24000, BlastFrequency: 100_000_000}

	_, err := capture.Assemble(s, caps)

	var ve *trigger.ValidationError
	require.ErrorAs(t, err, &ve)
}
