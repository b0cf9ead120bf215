// Package session implements the normalized capture session and channel
// data model: CaptureSession, AnalyzerChannel, BurstInfo, CaptureLimits and
// CaptureMode selection.
package session

import "fmt"

// AnalyzerChannel is one sampled digital channel within a CaptureSession.
// A session exclusively owns its channels; a channel exclusively owns its
// Samples buffer. Neither is ever aliased across sessions — Clone always
// deep-copies.
type AnalyzerChannel struct {
	ChannelNumber int    // 0..23
	ChannelName   string // may be empty
	ChannelColor  uint32 // 24-bit RGB, 0 = unset
	Hidden        bool
	Samples       []byte // one byte per sample, each 0 or 1; nil until parsed
}

// TextualChannelNumber returns the 1-based display label for the channel's
// index, e.g. channel 0 -> "Channel 1".
func (c AnalyzerChannel) TextualChannelNumber() string {
	return fmt.Sprintf("Channel %d", c.ChannelNumber+1)
}

// String returns ChannelName if set, else TextualChannelNumber().
func (c AnalyzerChannel) String() string {
	if c.ChannelName != "" {
		return c.ChannelName
	}

	return c.TextualChannelNumber()
}

// Clone returns an independent copy of c with its own Samples buffer.
func (c AnalyzerChannel) Clone() AnalyzerChannel {
	out := c
	if c.Samples != nil {
		out.Samples = make([]byte, len(c.Samples))
		copy(out.Samples, c.Samples)
	}

	return out
}

// CloneSettings returns an independent copy of c with Samples dropped —
// used when cloning a session's configuration without its captured data.
func (c AnalyzerChannel) CloneSettings() AnalyzerChannel {
	out := c
	out.Samples = nil

	return out
}
