// Package wire packs and unpacks the two fixed-layout binary structs the
// device protocol exchanges: CaptureRequest (commands sent to the device)
// and NetConfig (the device's network-interface configuration, itself sent
// as a capture-request payload variant). CaptureRequest's wire layout is
// described entirely by its field order and width and is encoded with
// encoding/binary; NetConfig's fixed-length string fields are packed and
// unpacked by explicit offsets.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// TriggerType identifies one of the four device trigger strategies.
type TriggerType uint8

const (
	TriggerEdge TriggerType = iota
	TriggerComplex
	TriggerFast
	TriggerBlast
)

// CaptureMode selects the device's per-sample wire width.
type CaptureMode uint8

const (
	Channels8 CaptureMode = iota
	Channels16
	Channels24
)

// NumChannels returns the channel-index ceiling admitted by the mode.
func (m CaptureMode) NumChannels() int {
	switch m {
	case Channels8:
		return 8
	case Channels16:
		return 16
	default:
		return 24
	}
}

// Divisor returns the mode's buffer-capacity divisor (§4.3): 1, 2 or 4
// bytes of device buffer per sample depending on wire width.
func (m CaptureMode) Divisor() int {
	switch m {
	case Channels8:
		return 1
	case Channels16:
		return 2
	default:
		return 4
	}
}

const maxChannelSlots = 24

// CaptureRequest is the 45-byte little-endian struct the device expects to
// start a capture. Field order and width are the wire layout; do not
// reorder fields, binary.Write depends on it.
type CaptureRequest struct {
	TriggerType     uint8
	Trigger         uint8
	InvertedOrCount uint8
	TriggerValue    uint16
	Channels        [maxChannelSlots]uint8
	ChannelCount    uint8
	Frequency       uint32
	PreSamples      uint32
	PostSamples     uint32
	LoopCount       uint8
	Measure         uint8
	CaptureMode     uint8
}

// CaptureRequestSize is sizeof(CaptureRequest) on the wire.
const CaptureRequestSize = 45

// Marshal serializes r into its 45-byte little-endian wire form.
func (r CaptureRequest) Marshal() []byte {
	buf := new(bytes.Buffer)
	buf.Grow(CaptureRequestSize)

	// binary.Write walks exported fields in declaration order and encodes
	// each by its natural width; it does not consult Go's in-memory struct
	// padding, so this produces exactly the packed 45-byte layout.
	if err := binary.Write(buf, binary.LittleEndian, r); err != nil {
		// Every field above is a fixed-size integer or array of them;
		// binary.Write cannot fail for this type.
		panic(fmt.Sprintf("wire: marshal CaptureRequest: %v", err))
	}

	return buf.Bytes()
}

// UnmarshalCaptureRequest decodes a 45-byte wire buffer into a CaptureRequest.
func UnmarshalCaptureRequest(data []byte) (CaptureRequest, error) {
	var r CaptureRequest

	if len(data) != CaptureRequestSize {
		return r, fmt.Errorf("wire: capture request must be %d bytes, got %d", CaptureRequestSize, len(data))
	}

	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &r); err != nil {
		return r, fmt.Errorf("wire: unmarshal capture request: %w", err)
	}

	return r, nil
}

const (
	netConfigAPNameLen = 32
	netConfigPassLen   = 64
	netConfigAddrLen   = 16
)

// NetConfigSize is sizeof(NetConfig) on the wire.
const NetConfigSize = netConfigAPNameLen + netConfigPassLen + netConfigAddrLen + 2

// NetConfig describes the device's WiFi network-interface configuration.
// On the wire, AccessPointName/Password/IPAddress are NUL-padded
// fixed-length byte strings; oversize input is silently truncated to fit.
type NetConfig struct {
	AccessPointName string
	Password        string
	IPAddress       string
	Port            uint16
}

func packFixedString(s string, n int) []byte {
	out := make([]byte, n)
	copy(out, s) // copy truncates automatically if len(s) > n
	return out
}

func unpackFixedString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// Marshal serializes c into its wire form, truncating any field that
// overruns its fixed width.
func (c NetConfig) Marshal() []byte {
	buf := make([]byte, 0, NetConfigSize)
	buf = append(buf, packFixedString(c.AccessPointName, netConfigAPNameLen)...)
	buf = append(buf, packFixedString(c.Password, netConfigPassLen)...)
	buf = append(buf, packFixedString(c.IPAddress, netConfigAddrLen)...)

	portBytes := make([]byte, 2)
	binary.LittleEndian.PutUint16(portBytes, c.Port)

	return append(buf, portBytes...)
}

// UnmarshalNetConfig decodes a wire buffer into a NetConfig.
func UnmarshalNetConfig(data []byte) (NetConfig, error) {
	var c NetConfig

	if len(data) != NetConfigSize {
		return c, fmt.Errorf("wire: net config must be %d bytes, got %d", NetConfigSize, len(data))
	}

	offset := 0
	c.AccessPointName = unpackFixedString(data[offset : offset+netConfigAPNameLen])
	offset += netConfigAPNameLen
	c.Password = unpackFixedString(data[offset : offset+netConfigPassLen])
	offset += netConfigPassLen
	c.IPAddress = unpackFixedString(data[offset : offset+netConfigAddrLen])
	offset += netConfigAddrLen
	c.Port = binary.LittleEndian.Uint16(data[offset : offset+2])

	return c, nil
}
