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

func eightChannelSession() session.CaptureSession {
	channels := make([]session.AnalyzerChannel, 8)
	for i := range channels {
		channels[i] = session.AnalyzerChannel{ChannelNumber: i}
	}

	return session.CaptureSession{
		Frequency:          1_000_000,
		PreTriggerSamples:  10,
		PostTriggerSamples: 10,
		TriggerType:        session.TriggerEdge,
		TriggerChannel:     0,
		CaptureChannels:    channels,
	}
}

func TestEmulatedDriverCompletesCapture(t *testing.T) {
	caps := driver.Caps{ChannelCount: 8, BufferSize: 24000, BlastFrequency: 100_000_000}
	d := driver.NewEmulated(caps, 1, nil)
	defer d.Close()

	assert.Equal(t, driver.Idle, d.State())

	s := eightChannelSession()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ce := d.StartCapture(ctx, s)
	require.Equal(t, driver.CaptureErrorNone, ce)

	completed := drainUntilCaptureCompleted(t, d.Events(), 2*time.Second)
	assert.Equal(t, driver.Idle, d.State())
	assert.Equal(t, s.PreTriggerSamples, completed.TriggerSampleIndex)
}

func drainUntilCaptureCompleted(t *testing.T, events <-chan driver.Event, timeout time.Duration) driver.CaptureCompletedEvent {
	t.Helper()

	deadline := time.After(timeout)

	for {
		select {
		case ev := <-events:
			if ev.CaptureCompleted != nil {
				return *ev.CaptureCompleted
			}
		case <-deadline:
			t.Fatal("timed out waiting for capture completion")
			return driver.CaptureCompletedEvent{}
		}
	}
}

func TestEmulatedDriverRejectsBusy(t *testing.T) {
	caps := driver.Caps{ChannelCount: 8, BufferSize: 2_000_000, BlastFrequency: 100_000_000}
	d := driver.NewEmulated(caps, 1, nil)
	defer d.Close()

	s := eightChannelSession()
	s.PreTriggerSamples = 100_000
	s.PostTriggerSamples = 500_000

	ctx := context.Background()

	// StartCapture transitions to Capturing synchronously before its
	// background goroutine runs, so the very next call observes Busy
	// regardless of how quickly the capture itself finishes.
	ce := d.StartCapture(ctx, s)
	require.Equal(t, driver.CaptureErrorNone, ce)

	ce2 := d.StartCapture(ctx, s)
	assert.Equal(t, driver.CaptureErrorBusy, ce2)

	d.StopCapture()
}

func TestEmulatedDriverRejectsBadParams(t *testing.T) {
	caps := driver.Caps{ChannelCount: 8, BufferSize: 24000, BlastFrequency: 100_000_000}
	d := driver.NewEmulated(caps, 1, nil)
	defer d.Close()

	s := eightChannelSession()
	s.TriggerChannel = 99 // out of range

	ce := d.StartCapture(context.Background(), s)
	assert.Equal(t, driver.CaptureErrorBadParams, ce)
	assert.Equal(t, driver.Idle, d.State())
}

func TestEmulatedDriverStopCaptureIsIdempotent(t *testing.T) {
	caps := driver.Caps{ChannelCount: 8, BufferSize: 24000, BlastFrequency: 100_000_000}
	d := driver.NewEmulated(caps, 1, nil)
	defer d.Close()

	assert.True(t, d.StopCapture())
	assert.True(t, d.StopCapture())
}

func TestEmulatedDriverEnterBootloaderFromIdle(t *testing.T) {
	caps := driver.Caps{ChannelCount: 8, BufferSize: 24000, BlastFrequency: 100_000_000}
	d := driver.NewEmulated(caps, 1, nil)
	defer d.Close()

	assert.True(t, d.EnterBootloader())
	assert.Equal(t, driver.Bootloader, d.State())
	assert.False(t, d.EnterBootloader())

	ce := d.StartCapture(context.Background(), eightChannelSession())
	assert.Equal(t, driver.CaptureErrorHardwareError, ce)
}
