// Package devicedb implements a hardware-compatibility database of
// known logic-analyzer models, stored as a YAML document and operated on
// by the manage-database CLI. It is a separate concern from the capture
// core: nothing in internal/driver reads it.
package devicedb

import "fmt"

// ModeLimits is the pre/post-trigger sample bound for one capture mode
// tier (8/16/24 channels), persisted alongside a DeviceInfo record.
type ModeLimits struct {
	MaxPreSamples  uint32 `yaml:"maxPreSamples"`
	MaxPostSamples uint32 `yaml:"maxPostSamples"`
}

// DeviceInfo is one hardware-compatibility record.
type DeviceInfo struct {
	Name           string        `yaml:"name"`
	MaxFrequency   uint32        `yaml:"maxFrequency"`
	BlastFrequency uint32        `yaml:"blastFrequency"`
	Channels       int           `yaml:"channels"`
	BufferSize     uint32        `yaml:"bufferSize"`
	ModeLimits     [3]ModeLimits `yaml:"modeLimits"`
}

// ValidationError reports why a DeviceInfo record was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("devicedb: %s: %s", e.Field, e.Reason)
}

// Validate checks internal consistency: every mode tier must have a
// positive MaxPostSamples, and MaxPreSamples must not exceed the device's
// raw buffer size.
func Validate(d DeviceInfo) error {
	if d.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}

	if d.Channels <= 0 {
		return &ValidationError{Field: "channels", Reason: "must be positive"}
	}

	if d.BufferSize == 0 {
		return &ValidationError{Field: "bufferSize", Reason: "must be positive"}
	}

	for i, m := range d.ModeLimits {
		if m.MaxPostSamples == 0 {
			return &ValidationError{Field: fmt.Sprintf("modeLimits[%d].maxPostSamples", i), Reason: "must be positive"}
		}

		if m.MaxPreSamples > d.BufferSize {
			return &ValidationError{Field: fmt.Sprintf("modeLimits[%d].maxPreSamples", i), Reason: "exceeds bufferSize"}
		}
	}

	return nil
}

// Template returns a populated placeholder record (an 8-channel,
// 24000-sample device) that passes Validate, suitable as a starting point
// for manual editing. Its frequency fields are left at zero.
func Template() DeviceInfo {
	return DeviceInfo{
		Name:       "unnamed-device",
		Channels:   8,
		BufferSize: 24000,
		ModeLimits: [3]ModeLimits{
			{MaxPreSamples: 2400, MaxPostSamples: 23998},
			{MaxPreSamples: 2400, MaxPostSamples: 11998},
			{MaxPreSamples: 2400, MaxPostSamples: 5998},
		},
	}
}
