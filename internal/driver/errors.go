// Package driver implements the capture-lifecycle state machine shared by
// every concrete analyzer driver (serial, network, multi, emulated): a
// small explicit state machine guarding a shared transmit resource, with
// transitions and outcomes published on an Event channel instead of a
// listener-list callback API.
package driver

import "fmt"

// CaptureError is the explicit error taxonomy callers receive from
// StartCapture/StopCapture.
type CaptureError int

const (
	CaptureErrorNone CaptureError = iota
	CaptureErrorBusy
	CaptureErrorBadParams
	CaptureErrorHardwareError
	CaptureErrorUnexpectedError
)

func (e CaptureError) String() string {
	switch e {
	case CaptureErrorNone:
		return "none"
	case CaptureErrorBusy:
		return "busy"
	case CaptureErrorBadParams:
		return "bad_params"
	case CaptureErrorHardwareError:
		return "hardware_error"
	case CaptureErrorUnexpectedError:
		return "unexpected_error"
	default:
		return fmt.Sprintf("CaptureError(%d)", int(e))
	}
}

// Reason is the structured failure detail attached to an Error event,
// published alongside the CaptureError return value itself.
type Reason struct {
	Kind        string
	Message     string
	Recoverable bool
}
