// Package streamparser interprets the device's mode-tagged sample stream
// into per-channel bit streams on a CaptureSession.
package streamparser

import (
	"encoding/binary"
	"fmt"

	"github.com/northfork-instruments/logicap/internal/session"
)

// ProtocolError reports that an inbound payload's length or shape
// disagrees with the session's expectations.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("streamparser: %s", e.Reason)
}

const headerLen = 4 // u32 little-endian declared sample count

// Parse interprets payload — a defragmented, de-escaped capture-response
// body — according to mode and fills s.CaptureChannels[*].Samples (and
// s.Bursts, if s.MeasureBursts) in place. Parse keeps no state between
// calls: calling it again on a fresh session with the same input
// reproduces the same output.
func Parse(payload []byte, s *session.CaptureSession, mode session.CaptureMode) error {
	if len(payload) < headerLen {
		return &ProtocolError{Reason: "payload shorter than header"}
	}

	declared := binary.LittleEndian.Uint32(payload[:headerLen])
	total := s.TotalSamples()

	if uint64(declared) != total {
		return &ProtocolError{Reason: fmt.Sprintf("declared sample count %d disagrees with session total %d", declared, total)}
	}

	active := s.CaptureChannels
	for i := range active {
		active[i].Samples = make([]byte, total)
	}

	wordWidth := sampleWordWidth(mode)
	body := payload[headerLen:]

	needed := int(total) * wordWidth
	if len(body) < needed {
		return &ProtocolError{Reason: fmt.Sprintf("sample payload too short: need %d bytes, have %d", needed, len(body))}
	}

	for sampleIdx := uint64(0); sampleIdx < total; sampleIdx++ {
		word := readWord(body[int(sampleIdx)*wordWidth:], wordWidth)

		for k := range active {
			bit := byte((word >> uint(k)) & 1)
			active[k].Samples[sampleIdx] = bit
		}
	}

	tail := body[needed:]

	if s.MeasureBursts {
		bursts, err := parseBursts(tail)
		if err != nil {
			return err
		}

		s.Bursts = bursts
	}

	return nil
}

func sampleWordWidth(mode session.CaptureMode) int {
	switch mode {
	case session.Channels8:
		return 1
	case session.Channels16:
		return 2
	default:
		return 4
	}
}

func readWord(b []byte, width int) uint32 {
	switch width {
	case 1:
		return uint32(b[0])
	case 2:
		return uint32(binary.LittleEndian.Uint16(b))
	default:
		return binary.LittleEndian.Uint32(b)
	}
}

const burstRecordLen = 4 + 4 + 8 + 8 // sampleStart, sampleEnd, sampleGap, timeGapNs

func parseBursts(tail []byte) ([]session.BurstInfo, error) {
	if len(tail) < 2 {
		return nil, &ProtocolError{Reason: "missing burst record count"}
	}

	count := binary.LittleEndian.Uint16(tail[:2])
	records := tail[2:]

	needed := int(count) * burstRecordLen
	if len(records) < needed {
		return nil, &ProtocolError{Reason: fmt.Sprintf("burst tail too short: need %d bytes, have %d", needed, len(records))}
	}

	bursts := make([]session.BurstInfo, count)

	for i := 0; i < int(count); i++ {
		rec := records[i*burstRecordLen:]
		bursts[i] = session.BurstInfo{
			BurstSampleStart: int(binary.LittleEndian.Uint32(rec[0:4])),
			BurstSampleEnd:   int(binary.LittleEndian.Uint32(rec[4:8])),
			BurstSampleGap:   binary.LittleEndian.Uint64(rec[8:16]),
			BurstTimeGapNs:   binary.LittleEndian.Uint64(rec[16:24]),
		}
	}

	return bursts, nil
}

// TriggerSampleIndex returns the sample index, within each channel's
// Samples buffer, at which the trigger event occurred.
// It is always s.PreTriggerSamples: the device's post-trigger buffer was
// already shortened by the mode's trigger delay at request-assembly time
// (trigger.ComposeTriggerRequest), so the returned samples need no further
// shifting here — only the caller's notion of "where is sample zero
// relative to the trigger" needs the delay, and that offset is
// trigger.GetTriggerDelayOffset(s).
func TriggerSampleIndex(s session.CaptureSession) uint32 {
	return s.PreTriggerSamples
}
