package codec_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northfork-instruments/logicap/internal/codec"
	"github.com/northfork-instruments/logicap/internal/session"
)

func sampleSession() session.CaptureSession {
	rng := rand.New(rand.NewSource(7))

	channels := make([]session.AnalyzerChannel, 4)
	for i := range channels {
		samples := make([]byte, 500)
		for j := range samples {
			samples[j] = byte(rng.Intn(2))
		}

		channels[i] = session.AnalyzerChannel{
			ChannelNumber: i,
			ChannelName:   "ch",
			Samples:       samples,
		}
	}

	return session.CaptureSession{
		Frequency:          1_000_000,
		PreTriggerSamples:  100,
		PostTriggerSamples: 400,
		TriggerType:        session.TriggerEdge,
		TriggerChannel:     0,
		CaptureChannels:    channels,
		Bursts: []session.BurstInfo{
			{BurstSampleStart: 0, BurstSampleEnd: 500, BurstSampleGap: 0, BurstTimeGapNs: 1000},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	s := sampleSession()

	encoded, err := codec.Encode(s, "v1.2.3")
	require.NoError(t, err)

	decoded, err := codec.Decode(encoded)
	require.NoError(t, err)

	require.Len(t, decoded.CaptureChannels, len(s.CaptureChannels))

	for i, c := range s.CaptureChannels {
		assert.Equal(t, c.Samples, decoded.CaptureChannels[i].Samples)
		assert.Equal(t, c.ChannelNumber, decoded.CaptureChannels[i].ChannelNumber)
	}

	assert.Equal(t, s.Frequency, decoded.Frequency)
	assert.Equal(t, s.PreTriggerSamples, decoded.PreTriggerSamples)
	assert.Equal(t, s.PostTriggerSamples, decoded.PostTriggerSamples)
	require.Len(t, decoded.Bursts, 1)
	assert.Equal(t, s.Bursts[0].BurstTimeGapNs, decoded.Bursts[0].BurstTimeGapNs)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	encoded, err := codec.Encode(sampleSession(), "")
	require.NoError(t, err)

	encoded[0] = 'X'

	_, err = codec.Decode(encoded)
	assert.Error(t, err)
}

func TestDecodeRejectsCorruptedTrailer(t *testing.T) {
	encoded, err := codec.Encode(sampleSession(), "")
	require.NoError(t, err)

	encoded[len(encoded)-1] ^= 0xFF

	_, err = codec.Decode(encoded)
	assert.Error(t, err)
}

func TestDecodeRejectsUnsupportedVersion(t *testing.T) {
	encoded, err := codec.Encode(sampleSession(), "")
	require.NoError(t, err)

	// Version is at offset 4..6, little-endian.
	encoded[4] = 0xFF
	encoded[5] = 0xFF

	_, err = codec.Decode(encoded)
	assert.Error(t, err)
}
