// Package trigger validates a CaptureSession's trigger settings against a
// device's limits and composes the per-mode portion of the wire capture
// request. Each trigger mode's parameters are selected by a switch on the
// mode and validated before any transmission begins.
package trigger

import (
	"fmt"

	"github.com/northfork-instruments/logicap/internal/session"
	"github.com/northfork-instruments/logicap/internal/wire"
)

// Fixed per-mode sample-offset corrections.
const (
	FastTriggerDelay    = 3
	ComplexTriggerDelay = 5
)

// ValidationError reports why a session's trigger settings were rejected,
// before any wire activity occurs.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("trigger: %s", e.Reason)
}

// DeviceCaps is the subset of device capability needed to validate a
// trigger: its total channel count and, for Blast mode, its maximum
// burst-rate frequency.
type DeviceCaps struct {
	ChannelCount   int
	BlastFrequency uint32
}

// GetTriggerDelayOffset returns the fixed sample-offset correction implied
// by s.TriggerType: 0 for Edge and Blast, 3 for Fast, 5 for Complex.
func GetTriggerDelayOffset(s session.CaptureSession) int {
	switch s.TriggerType {
	case session.TriggerFast:
		return FastTriggerDelay
	case session.TriggerComplex:
		return ComplexTriggerDelay
	default:
		return 0
	}
}

func channelActive(s session.CaptureSession, channel int) bool {
	for _, c := range s.CaptureChannels {
		if c.ChannelNumber == channel {
			return true
		}
	}

	return false
}

// Validate returns a *ValidationError describing the first violation found
// in s, or nil if s is acceptable.
func Validate(s session.CaptureSession, limits session.CaptureLimits, caps DeviceCaps) error {
	if s.TriggerChannel < 0 || s.TriggerChannel >= caps.ChannelCount {
		return &ValidationError{Reason: fmt.Sprintf("trigger channel %d out of range [0,%d)", s.TriggerChannel, caps.ChannelCount)}
	}

	if s.TriggerType != session.TriggerBlast && !channelActive(s, s.TriggerChannel) {
		return &ValidationError{Reason: fmt.Sprintf("trigger channel %d is not in captureChannels", s.TriggerChannel)}
	}

	switch s.TriggerType {
	case session.TriggerComplex:
		if s.TriggerBitCount < 1 || s.TriggerBitCount > 16 {
			return &ValidationError{Reason: "complex trigger pattern width must be 1-16 bits"}
		}
	case session.TriggerFast:
		if s.TriggerBitCount < 1 || s.TriggerBitCount > 5 {
			return &ValidationError{Reason: "fast trigger pattern width must be 1-5 channels"}
		}
	}

	if s.TriggerType == session.TriggerBlast && s.MeasureBursts {
		return &ValidationError{Reason: "measureBursts cannot be combined with blast trigger mode"}
	}

	delay := uint32(GetTriggerDelayOffset(s))

	switch s.TriggerType {
	case session.TriggerBlast:
		if s.PreTriggerSamples != 0 {
			return &ValidationError{Reason: "blast trigger requires preTriggerSamples == 0"}
		}

		if caps.BlastFrequency == 0 {
			return &ValidationError{Reason: "device has no blast frequency configured"}
		}

		if uint64(s.PostTriggerSamples) > limits.MaxTotalSamples() {
			return &ValidationError{Reason: "blast trigger postTriggerSamples exceeds device capacity"}
		}

	default:
		if s.PreTriggerSamples < limits.MinPreSamples || s.PreTriggerSamples > limits.MaxPreSamples {
			return &ValidationError{Reason: fmt.Sprintf("preTriggerSamples %d out of range [%d,%d]", s.PreTriggerSamples, limits.MinPreSamples, limits.MaxPreSamples)}
		}

		if s.PostTriggerSamples < limits.MinPostSamples+delay {
			return &ValidationError{Reason: fmt.Sprintf("postTriggerSamples %d too small for trigger delay %d (minimum %d)", s.PostTriggerSamples, delay, limits.MinPostSamples+delay)}
		}

		if s.PostTriggerSamples > limits.MaxPostSamples {
			return &ValidationError{Reason: fmt.Sprintf("postTriggerSamples %d exceeds limit %d", s.PostTriggerSamples, limits.MaxPostSamples)}
		}
	}

	return nil
}

// ComposeTriggerRequest returns a CaptureRequest populated with the fields
// specific to s's trigger mode — TriggerType, Trigger, InvertedOrCount,
// TriggerValue, PreSamples, PostSamples and CaptureMode. The caller (the
// capture package's assembler) fills in the remaining fields (channel mask,
// frequency, loop count, measure flag).
func ComposeTriggerRequest(s session.CaptureSession, mode session.CaptureMode) wire.CaptureRequest {
	delay := uint32(GetTriggerDelayOffset(s))

	req := wire.CaptureRequest{
		Trigger:      uint8(s.TriggerChannel),
		TriggerValue: s.TriggerPattern,
		PreSamples:   s.PreTriggerSamples,
		PostSamples:  s.PostTriggerSamples - delay,
		CaptureMode:  uint8(wireModeFor(mode)),
	}

	switch s.TriggerType {
	case session.TriggerEdge:
		req.TriggerType = uint8(wire.TriggerEdge)
		req.InvertedOrCount = boolToByte(s.TriggerInverted)
	case session.TriggerComplex:
		req.TriggerType = uint8(wire.TriggerComplex)
		req.InvertedOrCount = uint8(s.TriggerBitCount)
	case session.TriggerFast:
		req.TriggerType = uint8(wire.TriggerFast)
		req.InvertedOrCount = uint8(s.TriggerBitCount)
	case session.TriggerBlast:
		req.TriggerType = uint8(wire.TriggerBlast)
		req.PreSamples = 0
		req.PostSamples = s.PostTriggerSamples
	}

	return req
}

func wireModeFor(m session.CaptureMode) wire.CaptureMode {
	switch m {
	case session.Channels8:
		return wire.Channels8
	case session.Channels16:
		return wire.Channels16
	default:
		return wire.Channels24
	}
}

func boolToByte(b bool) uint8 {
	if b {
		return 1
	}

	return 0
}
