package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/northfork-instruments/logicap/internal/session"
)

func TestTotalSamplesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pre := rapid.Uint32Range(0, 1_000_000).Draw(t, "pre")
		post := rapid.Uint32Range(0, 1_000_000).Draw(t, "post")
		loop := rapid.IntRange(0, 255).Draw(t, "loop")

		s := session.CaptureSession{
			PreTriggerSamples:  pre,
			PostTriggerSamples: post,
			LoopCount:          uint8(loop),
		}

		want := uint64(pre) + uint64(post)*(uint64(loop)+1)
		assert.Equal(t, want, s.TotalSamples())
	})
}

func TestCloneSeparatesSampleBuffers(t *testing.T) {
	original := session.CaptureSession{
		CaptureChannels: analyzerChannelFixture(),
	}

	clone := original.Clone()
	clone.CaptureChannels[0].Samples[0] = 0xFF

	assert.NotEqual(t, original.CaptureChannels[0].Samples[0], clone.CaptureChannels[0].Samples[0])
}

func analyzerChannelFixture() []session.AnalyzerChannel {
	return []session.AnalyzerChannel{
		{ChannelNumber: 0, Samples: []byte{1, 0, 1}},
	}
}

func TestCloneSettingsDropsSamplesAndBursts(t *testing.T) {
	original := session.CaptureSession{
		CaptureChannels: analyzerChannelFixture(),
		Bursts:          []session.BurstInfo{{BurstSampleEnd: 10}},
	}

	clone := original.CloneSettings()
	assert.Nil(t, clone.CaptureChannels[0].Samples)
	assert.Nil(t, clone.Bursts)
	assert.NotNil(t, original.CaptureChannels[0].Samples)
	assert.NotNil(t, original.Bursts)
}

func TestModeSelection(t *testing.T) {
	assert.Equal(t, session.Channels8, session.GetCaptureMode(nil))
	assert.Equal(t, session.Channels8, session.GetCaptureMode([]int{0, 7}))
	assert.Equal(t, session.Channels16, session.GetCaptureMode([]int{0, 8}))
	assert.Equal(t, session.Channels24, session.GetCaptureMode([]int{0, 16}))
}

func TestLimitsForBufferSize24000(t *testing.T) {
	limits := session.GetLimits([]int{0, 7}, 24000)
	assert.Equal(t, uint32(2400), limits.MaxPreSamples)
	assert.Equal(t, uint32(23998), limits.MaxPostSamples)
	assert.Equal(t, uint32(2), limits.MinPreSamples)
	assert.Equal(t, uint32(2), limits.MinPostSamples)
}

func TestBurstInfoFormatting(t *testing.T) {
	cases := []struct {
		ns   uint64
		want string
	}{
		{999, "999 ns"},
		{999_999, "999.999 µs"},
		{999_999_999, "1000.000 ms"},
		{1_500_000_000, "1.500 s"},
	}

	for _, c := range cases {
		b := session.BurstInfo{BurstTimeGapNs: c.ns}
		assert.Equal(t, c.want, b.GetTime())
	}
}
