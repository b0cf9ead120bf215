package driver_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northfork-instruments/logicap/internal/driver"
	"github.com/northfork-instruments/logicap/internal/session"
)

func TestMultiDriverRejectsTooManyMembers(t *testing.T) {
	members := make([]driver.MultiMember, 6)
	for i := range members {
		caps := driver.Caps{ChannelCount: 1}
		members[i] = driver.MultiMember{
			Driver:   driver.NewEmulated(caps, int64(i), nil),
			Channels: []int{i},
		}
	}

	_, err := driver.NewMulti(members, nil, nil)
	assert.Error(t, err)
}

func TestMultiDriverRejectsOverlappingChannels(t *testing.T) {
	a := driver.NewEmulated(driver.Caps{ChannelCount: 4}, 1, nil)
	b := driver.NewEmulated(driver.Caps{ChannelCount: 4}, 2, nil)

	_, err := driver.NewMulti([]driver.MultiMember{
		{Driver: a, Channels: []int{0, 1, 2}},
		{Driver: b, Channels: []int{2, 3}},
	}, nil, nil)
	assert.Error(t, err)
}

func TestMultiDriverSplitsAndCompletes(t *testing.T) {
	a := driver.NewEmulated(driver.Caps{ChannelCount: 4, BufferSize: 24000, BlastFrequency: 1_000_000}, 1, nil)
	b := driver.NewEmulated(driver.Caps{ChannelCount: 4, BufferSize: 24000, BlastFrequency: 1_000_000}, 2, nil)

	m, err := driver.NewMulti([]driver.MultiMember{
		{Driver: a, Channels: []int{0, 1, 2, 3}},
		{Driver: b, Channels: []int{4, 5, 6, 7}},
	}, nil, nil)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, 8, m.Caps().ChannelCount)

	channels := make([]session.AnalyzerChannel, 8)
	for i := range channels {
		channels[i] = session.AnalyzerChannel{ChannelNumber: i}
	}

	s := session.CaptureSession{
		Frequency:          1_000_000,
		PreTriggerSamples:  10,
		PostTriggerSamples: 10,
		TriggerType:        session.TriggerEdge,
		TriggerChannel:     0,
		CaptureChannels:    channels,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ce := m.StartCapture(ctx, s)
	require.Equal(t, driver.CaptureErrorNone, ce)

	deadline := time.After(2 * time.Second)

	for {
		select {
		case ev := <-m.Events():
			if ev.CaptureCompleted != nil {
				require.True(t, ev.CaptureCompleted.Success)
				assert.Equal(t, driver.Idle, m.State())
				assert.Equal(t, s.TotalSamples(), ev.CaptureCompleted.SampleCount)

				result := ev.CaptureCompleted.Result
				require.Len(t, result.CaptureChannels, 8)

				for i, c := range result.CaptureChannels {
					assert.Equal(t, i, c.ChannelNumber, "channels must come back sorted and interleaved by index")
					assert.Len(t, c.Samples, int(s.TotalSamples()))
				}

				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for multi capture completion")
			return
		}
	}
}

func TestMultiDriverMergesOwnerBursts(t *testing.T) {
	a := driver.NewEmulated(driver.Caps{ChannelCount: 4, BufferSize: 24000, BlastFrequency: 1_000_000}, 1, nil)
	b := driver.NewEmulated(driver.Caps{ChannelCount: 4, BufferSize: 24000, BlastFrequency: 1_000_000}, 2, nil)

	m, err := driver.NewMulti([]driver.MultiMember{
		{Driver: a, Channels: []int{0, 1, 2, 3}},
		{Driver: b, Channels: []int{4, 5, 6, 7}},
	}, nil, nil)
	require.NoError(t, err)
	defer m.Close()

	channels := make([]session.AnalyzerChannel, 8)
	for i := range channels {
		channels[i] = session.AnalyzerChannel{ChannelNumber: i}
	}

	s := session.CaptureSession{
		Frequency:          1_000_000,
		PreTriggerSamples:  10,
		PostTriggerSamples: 10,
		TriggerType:        session.TriggerEdge,
		TriggerChannel:     4, // owned by member b
		MeasureBursts:      true,
		CaptureChannels:    channels,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.Equal(t, driver.CaptureErrorNone, m.StartCapture(ctx, s))

	deadline := time.After(2 * time.Second)

	for {
		select {
		case ev := <-m.Events():
			if ev.CaptureCompleted != nil {
				require.True(t, ev.CaptureCompleted.Success)
				// The owning member (b, which holds the trigger channel) is
				// the one whose burst data survives into the merged result.
				assert.Len(t, ev.CaptureCompleted.Result.CaptureChannels, 8)
				assert.Len(t, ev.CaptureCompleted.Result.Bursts, 1)

				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for multi capture completion")
			return
		}
	}
}

func TestMultiDriverRejectsUnknownChannel(t *testing.T) {
	a := driver.NewEmulated(driver.Caps{ChannelCount: 4, BufferSize: 24000, BlastFrequency: 1_000_000}, 1, nil)

	m, err := driver.NewMulti([]driver.MultiMember{
		{Driver: a, Channels: []int{0, 1, 2, 3}},
	}, nil, nil)
	require.NoError(t, err)
	defer m.Close()

	s := session.CaptureSession{
		PreTriggerSamples:  10,
		PostTriggerSamples: 10,
		CaptureChannels:    []session.AnalyzerChannel{{ChannelNumber: 9}},
	}

	ce := m.StartCapture(context.Background(), s)
	assert.Equal(t, driver.CaptureErrorBadParams, ce)
}

func TestMultiDriverEnterBootloaderUnsupported(t *testing.T) {
	a := driver.NewEmulated(driver.Caps{ChannelCount: 4}, 1, nil)

	m, err := driver.NewMulti([]driver.MultiMember{{Driver: a, Channels: []int{0, 1, 2, 3}}}, nil, nil)
	require.NoError(t, err)
	defer m.Close()

	assert.False(t, m.EnterBootloader())
}
