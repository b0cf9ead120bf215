package session

// TriggerType mirrors wire.TriggerType without importing the wire package,
// keeping session free of wire-format concerns (the trigger and capture
// packages translate between the two).
type TriggerType int

const (
	TriggerEdge TriggerType = iota
	TriggerComplex
	TriggerFast
	TriggerBlast
)

// CaptureSession is the combined configuration and result of one capture:
// the device parameters requested, the channels captured, and — once a
// capture completes — their sample data and any burst timing. A session
// exclusively owns CaptureChannels and Bursts; nothing else may hold a
// reference to either after a Clone.
type CaptureSession struct {
	Frequency          uint32
	PreTriggerSamples  uint32
	PostTriggerSamples uint32
	LoopCount          uint8
	TriggerType        TriggerType
	TriggerChannel     int
	TriggerInverted    bool
	TriggerPattern     uint16
	TriggerBitCount    int
	MeasureBursts      bool
	CaptureChannels    []AnalyzerChannel
	Bursts             []BurstInfo // nil until a burst-capable capture completes
}

// TotalSamples implements the session invariant:
// pre + post * (loop + 1).
func (s CaptureSession) TotalSamples() uint64 {
	return uint64(s.PreTriggerSamples) + uint64(s.PostTriggerSamples)*(uint64(s.LoopCount)+1)
}

// Clone deep-copies every channel (including samples) and all bursts.
func (s CaptureSession) Clone() CaptureSession {
	out := s
	out.CaptureChannels = cloneChannels(s.CaptureChannels, AnalyzerChannel.Clone)

	if s.Bursts != nil {
		out.Bursts = make([]BurstInfo, len(s.Bursts))
		copy(out.Bursts, s.Bursts)
	}

	return out
}

// CloneSettings deep-copies channels but drops Samples and Bursts — used to
// carry a session's configuration into a new capture without its previous
// result.
func (s CaptureSession) CloneSettings() CaptureSession {
	out := s
	out.CaptureChannels = cloneChannels(s.CaptureChannels, AnalyzerChannel.CloneSettings)
	out.Bursts = nil

	return out
}

func cloneChannels(chans []AnalyzerChannel, clone func(AnalyzerChannel) AnalyzerChannel) []AnalyzerChannel {
	if chans == nil {
		return nil
	}

	out := make([]AnalyzerChannel, len(chans))
	for i, c := range chans {
		out[i] = clone(c)
	}

	return out
}

// CaptureMode is the channel-width tier determining per-sample wire width.
type CaptureMode int

const (
	Channels8 CaptureMode = iota
	Channels16
	Channels24
)

// Divisor returns the mode's buffer-capacity divisor.
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

// GetCaptureMode returns the smallest mode admitting the highest channel
// index present in channelIndices. An empty set defaults to Channels8.
func GetCaptureMode(channelIndices []int) CaptureMode {
	maxIdx := -1
	for _, idx := range channelIndices {
		if idx > maxIdx {
			maxIdx = idx
		}
	}

	switch {
	case maxIdx <= 7:
		return Channels8
	case maxIdx <= 15:
		return Channels16
	default:
		return Channels24
	}
}

// CaptureLimits bounds the pre/post-trigger sample counts the device
// accepts for a given buffer size and capture mode.
type CaptureLimits struct {
	MinPreSamples  uint32
	MaxPreSamples  uint32
	MinPostSamples uint32
	MaxPostSamples uint32
}

// MaxTotalSamples is the largest total sample count the limits admit.
func (l CaptureLimits) MaxTotalSamples() uint64 {
	return uint64(l.MinPreSamples) + uint64(l.MaxPostSamples)
}

// GetLimits computes CaptureLimits for bufferSize raw device-buffer bytes
// and the capture mode implied by channelIndices.
func GetLimits(channelIndices []int, bufferSize uint32) CaptureLimits {
	mode := GetCaptureMode(channelIndices)
	perModeCapacity := bufferSize / uint32(mode.Divisor())

	return CaptureLimits{
		MinPreSamples:  2,
		MinPostSamples: 2,
		MaxPreSamples:  bufferSize / 10,
		MaxPostSamples: perModeCapacity - 2,
	}
}

// MinFrequency returns the lowest sample rate the device's 16-bit clock
// divider can produce from maxFrequency: floor(maxFrequency*2 / 65535).
func MinFrequency(maxFrequency uint32) uint32 {
	return uint32((uint64(maxFrequency) * 2) / 65535)
}
