package codec

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/northfork-instruments/logicap/internal/session"
)

var magic = [4]byte{'L', 'A', 'C', 0x00}

// CurrentVersion is the version this package writes. supportedVersions
// lists every version this package can still read.
const CurrentVersion uint16 = 0x0100

var supportedVersions = map[uint16]bool{
	0x0100: true,
}

// Header is the self-describing metadata block preceding a .lac file's
// compressed channel data.
type Header struct {
	DeviceVersion      string        `json:"deviceVersion"`
	Frequency          uint32        `json:"frequency"`
	PreTriggerSamples  uint32        `json:"preTriggerSamples"`
	PostTriggerSamples uint32        `json:"postTriggerSamples"`
	LoopCount          uint8         `json:"loopCount"`
	TriggerType        int           `json:"triggerType"`
	TriggerChannel     int           `json:"triggerChannel"`
	MeasureBursts      bool          `json:"measureBursts"`
	Channels           []ChannelMeta `json:"channels"`
	Bursts             []BurstMeta   `json:"bursts,omitempty"`
}

// ChannelMeta is the per-channel metadata carried in Header, separate from
// the compressed sample payload that follows in the body.
type ChannelMeta struct {
	ChannelNumber int    `json:"channelNumber"`
	ChannelName   string `json:"channelName,omitempty"`
	ChannelColor  uint32 `json:"channelColor,omitempty"`
	Hidden        bool   `json:"hidden,omitempty"`
}

// BurstMeta mirrors session.BurstInfo for the header block.
type BurstMeta struct {
	SampleStart int    `json:"sampleStart"`
	SampleEnd   int    `json:"sampleEnd"`
	SampleGap   uint64 `json:"sampleGap"`
	TimeGapNs   uint64 `json:"timeGapNs"`
}

type blockHeader struct {
	ChannelIndex uint8
	Algo         uint8
	OrigSize     uint32
	CompSize     uint32
}

// Encode serializes s into the .lac container format: magic, version,
// flags, a length-prefixed JSON header, one compressed block per channel
// chosen by CompressAdaptive, and a trailing CRC32 over the header and
// body bytes. deviceVersion is recorded in the header for provenance; pass
// "" if unknown.
func Encode(s session.CaptureSession, deviceVersion string) ([]byte, error) {
	hdr := Header{
		DeviceVersion:      deviceVersion,
		Frequency:          s.Frequency,
		PreTriggerSamples:  s.PreTriggerSamples,
		PostTriggerSamples: s.PostTriggerSamples,
		LoopCount:          s.LoopCount,
		TriggerType:        int(s.TriggerType),
		TriggerChannel:     s.TriggerChannel,
		MeasureBursts:      s.MeasureBursts,
	}

	for _, c := range s.CaptureChannels {
		hdr.Channels = append(hdr.Channels, ChannelMeta{
			ChannelNumber: c.ChannelNumber,
			ChannelName:   c.ChannelName,
			ChannelColor:  c.ChannelColor,
			Hidden:        c.Hidden,
		})
	}

	for _, b := range s.Bursts {
		hdr.Bursts = append(hdr.Bursts, BurstMeta{
			SampleStart: b.BurstSampleStart,
			SampleEnd:   b.BurstSampleEnd,
			SampleGap:   b.BurstSampleGap,
			TimeGapNs:   b.BurstTimeGapNs,
		})
	}

	hdrJSON, err := json.Marshal(hdr)
	if err != nil {
		return nil, &CodecError{Reason: fmt.Sprintf("marshal header: %v", err)}
	}

	var body bytes.Buffer

	for _, c := range s.CaptureChannels {
		algo, compressed := CompressAdaptive(c.Samples)

		blk := blockHeader{
			ChannelIndex: uint8(c.ChannelNumber),
			Algo:         uint8(algo),
			OrigSize:     uint32(len(c.Samples)),
			CompSize:     uint32(len(compressed)),
		}

		if err := binary.Write(&body, binary.LittleEndian, blk); err != nil {
			return nil, &CodecError{Reason: fmt.Sprintf("write block header: %v", err)}
		}

		body.Write(compressed)
	}

	var out bytes.Buffer
	out.Write(magic[:])

	var u16 [2]byte
	binary.LittleEndian.PutUint16(u16[:], CurrentVersion)
	out.Write(u16[:])
	binary.LittleEndian.PutUint16(u16[:], 0) // flags
	out.Write(u16[:])

	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], uint32(len(hdrJSON)))
	out.Write(u32[:])
	out.Write(hdrJSON)
	out.Write(body.Bytes())

	crc := crc32.ChecksumIEEE(append(append([]byte{}, hdrJSON...), body.Bytes()...))
	binary.LittleEndian.PutUint32(u32[:], crc)
	out.Write(u32[:])

	return out.Bytes(), nil
}

// Decode parses a .lac container back into a CaptureSession, verifying the
// magic, a supported version, and the trailing CRC.
func Decode(buf []byte) (session.CaptureSession, error) {
	var out session.CaptureSession

	r := bytes.NewReader(buf)

	var gotMagic [4]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil || gotMagic != magic {
		return out, &CodecError{Reason: "bad magic"}
	}

	var version, flags uint16
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return out, &CodecError{Reason: "truncated version"}
	}

	if !supportedVersions[version] {
		return out, &CodecError{Reason: fmt.Sprintf("unsupported version 0x%04x", version)}
	}

	if err := binary.Read(r, binary.LittleEndian, &flags); err != nil {
		return out, &CodecError{Reason: "truncated flags"}
	}

	var hdrLen uint32
	if err := binary.Read(r, binary.LittleEndian, &hdrLen); err != nil {
		return out, &CodecError{Reason: "truncated header length"}
	}

	hdrJSON := make([]byte, hdrLen)
	if _, err := io.ReadFull(r, hdrJSON); err != nil {
		return out, &CodecError{Reason: "truncated header"}
	}

	var hdr Header
	if err := json.Unmarshal(hdrJSON, &hdr); err != nil {
		return out, &CodecError{Reason: fmt.Sprintf("unmarshal header: %v", err)}
	}

	bodyStart := len(buf) - r.Len()
	if len(buf) < bodyStart+4 {
		return out, &CodecError{Reason: "truncated trailer"}
	}

	body := buf[bodyStart : len(buf)-4]
	wantCRC := binary.LittleEndian.Uint32(buf[len(buf)-4:])

	gotCRC := crc32.ChecksumIEEE(append(append([]byte{}, hdrJSON...), body...))
	if gotCRC != wantCRC {
		return out, &CodecError{Reason: "CRC mismatch"}
	}

	channels, err := decodeBlocks(body, hdr)
	if err != nil {
		return out, err
	}

	out.Frequency = hdr.Frequency
	out.PreTriggerSamples = hdr.PreTriggerSamples
	out.PostTriggerSamples = hdr.PostTriggerSamples
	out.LoopCount = hdr.LoopCount
	out.TriggerType = session.TriggerType(hdr.TriggerType)
	out.TriggerChannel = hdr.TriggerChannel
	out.MeasureBursts = hdr.MeasureBursts
	out.CaptureChannels = channels

	for _, b := range hdr.Bursts {
		out.Bursts = append(out.Bursts, session.BurstInfo{
			BurstSampleStart: b.SampleStart,
			BurstSampleEnd:   b.SampleEnd,
			BurstSampleGap:   b.SampleGap,
			BurstTimeGapNs:   b.TimeGapNs,
		})
	}

	return out, nil
}

func decodeBlocks(body []byte, hdr Header) ([]session.AnalyzerChannel, error) {
	meta := make(map[uint8]ChannelMeta, len(hdr.Channels))
	for _, c := range hdr.Channels {
		meta[uint8(c.ChannelNumber)] = c
	}

	var channels []session.AnalyzerChannel

	r := bytes.NewReader(body)

	for r.Len() > 0 {
		var blk blockHeader
		if err := binary.Read(r, binary.LittleEndian, &blk); err != nil {
			return nil, &CodecError{Reason: "truncated block header"}
		}

		payload := make([]byte, blk.CompSize)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, &CodecError{Reason: "truncated block payload"}
		}

		samples, err := Decompress(payload, Algorithm(blk.Algo), int(blk.OrigSize))
		if err != nil {
			return nil, err
		}

		c := session.AnalyzerChannel{ChannelNumber: int(blk.ChannelIndex), Samples: samples}
		if m, ok := meta[blk.ChannelIndex]; ok {
			c.ChannelName = m.ChannelName
			c.ChannelColor = m.ChannelColor
			c.Hidden = m.Hidden
		}

		channels = append(channels, c)
	}

	return channels, nil
}
