// Package capture assembles a validated CaptureSession into the framed
// byte sequence the device expects as its startCapture command.
package capture

import (
	"fmt"

	"github.com/northfork-instruments/logicap/internal/framer"
	"github.com/northfork-instruments/logicap/internal/session"
	"github.com/northfork-instruments/logicap/internal/trigger"
	"github.com/northfork-instruments/logicap/internal/wire"
)

// DeviceCaps is the device capability information the assembler and
// trigger validator need: total channel count, buffer size, and (for
// Blast mode) the burst-rate frequency.
type DeviceCaps struct {
	ChannelCount   int
	BufferSize     uint32
	BlastFrequency uint32
}

func channelIndices(chans []session.AnalyzerChannel) []int {
	out := make([]int, len(chans))
	for i, c := range chans {
		out[i] = c.ChannelNumber
	}

	return out
}

// Assemble validates s against caps, then builds the wire CaptureRequest
// and wraps it in framing, returning the exact byte sequence to write to
// the transport. It returns a *trigger.ValidationError without performing
// any wire activity if s is invalid.
func Assemble(s session.CaptureSession, caps DeviceCaps) ([]byte, error) {
	indices := channelIndices(s.CaptureChannels)
	mode := session.GetCaptureMode(indices)
	limits := session.GetLimits(indices, caps.BufferSize)

	if err := trigger.Validate(s, limits, trigger.DeviceCaps{
		ChannelCount:   caps.ChannelCount,
		BlastFrequency: caps.BlastFrequency,
	}); err != nil {
		return nil, err
	}

	req := trigger.ComposeTriggerRequest(s, mode)

	for _, idx := range indices {
		if idx < 0 || idx >= len(req.Channels) {
			return nil, fmt.Errorf("capture: channel index %d out of range", idx)
		}

		req.Channels[idx] = 1
	}

	req.ChannelCount = uint8(len(indices))
	req.Frequency = s.Frequency
	req.LoopCount = s.LoopCount

	if s.MeasureBursts {
		req.Measure = 1
	}

	return framer.Encode(req.Marshal()), nil
}

// DecodeRequest is the inverse of Assemble's wire step, useful for tests
// and for a device emulator that needs to interpret an inbound command:
// it strips framing and parses the fixed CaptureRequest layout.
func DecodeRequest(framed []byte) (wire.CaptureRequest, error) {
	var payload []byte

	d := framer.NewDecoder()
	if err := d.Feed(framed, func(p []byte) { payload = p }); err != nil {
		return wire.CaptureRequest{}, err
	}

	if payload == nil {
		return wire.CaptureRequest{}, fmt.Errorf("capture: no complete frame found")
	}

	return wire.UnmarshalCaptureRequest(payload)
}
