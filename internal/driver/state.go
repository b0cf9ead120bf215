package driver

import (
	"fmt"

	"github.com/northfork-instruments/logicap/internal/session"
)

// State is one node of the driver lifecycle state machine.
type State int

const (
	Disconnected State = iota
	Idle
	Capturing
	Bootloader
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Idle:
		return "idle"
	case Capturing:
		return "capturing"
	case Bootloader:
		return "bootloader"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Event is the union of notifications a driver emits on its Events()
// channel: StatusChanged, Progress, CaptureCompleted or Error. SessionID
// identifies which StartCapture call a Progress, CaptureCompleted or Error
// event belongs to; a progress monitor subscribed to Events() uses it to
// correlate events without the driver holding any reference back to the
// monitor.
type Event struct {
	SessionID        string
	StatusChanged    *StatusChangedEvent
	Progress         *ProgressEvent
	CaptureCompleted *CaptureCompletedEvent
	Error            *ErrorEvent
}

// StatusChangedEvent reports a state-machine transition.
type StatusChangedEvent struct {
	From State
	To   State
}

// ProgressEvent reports a capture's advancement through its phases:
// initializing, armed, capturing, transferring, parsing, in that order.
// (MultiDriver emits only capturing.) TotalSamples is known from
// the first event onward; CurrentSample is only meaningful once parsing
// starts.
type ProgressEvent struct {
	Phase         string
	CurrentSample uint64
	TotalSamples  uint64
}

// CaptureCompletedEvent reports the outcome of a capture, successful or
// not. SampleCount is the session's total sample count on success and 0 on
// failure; partial captures are not reported. Result carries the fully parsed session
// (channel samples and, if requested, bursts) on success; it is the zero
// value on failure, since StartCapture's session parameter is passed by
// value and the caller otherwise has no way to observe what was captured.
// TriggerSampleIndex is the offset into Result's per-channel Samples
// buffers where the trigger event occurred (see
// streamparser.TriggerSampleIndex); it is 0 on failure.
type CaptureCompletedEvent struct {
	Success            bool
	SampleCount        uint64
	Result             session.CaptureSession
	TriggerSampleIndex uint32
}

// ErrorEvent carries the structured reason object published alongside a
// CaptureError return.
type ErrorEvent struct {
	CaptureError CaptureError
	Reason       Reason
}
