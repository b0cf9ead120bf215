package driver

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/northfork-instruments/logicap/internal/capture"
	"github.com/northfork-instruments/logicap/internal/logx"
	"github.com/northfork-instruments/logicap/internal/session"
	"github.com/northfork-instruments/logicap/internal/streamparser"
	"github.com/northfork-instruments/logicap/internal/transport"
)

// Caps is the device capability surface a driver reports.
type Caps struct {
	DeviceVersion  string
	ChannelCount   int
	MaxFrequency   uint32
	BlastFrequency uint32
	BufferSize     uint32
}

// AnalyzerDriver is the capability trait every concrete driver (serial,
// network, multi, emulated) implements — the single interface the design
// notes call for in place of a deep driver class hierarchy.
type AnalyzerDriver interface {
	StartCapture(ctx context.Context, s session.CaptureSession) CaptureError
	StopCapture() bool
	EnterBootloader() bool

	State() State
	Caps() Caps
	DriverType() string
	IsNetwork() bool
	IsCapturing() bool

	Events() <-chan Event
	Close() error
}

// base implements the state machine and capture orchestration shared by
// every concrete driver. Concrete drivers embed base and supply a
// transport and capability set; base never constructs a transport itself.
type base struct {
	mu    sync.Mutex
	state State

	transport  transport.Transport
	caps       Caps
	driverType string
	isNetwork  bool

	logger     *log.Logger
	userHandle UserHandle

	events chan Event
	cancel context.CancelFunc
	done   chan struct{}
}

func newBase(t transport.Transport, caps Caps, driverType string, isNetwork bool, logger *log.Logger) *base {
	if logger == nil {
		logger = logx.Default()
	}

	return &base{
		state:      Disconnected,
		transport:  t,
		caps:       caps,
		driverType: driverType,
		isNetwork:  isNetwork,
		logger:     logger.With("driver_type", driverType),
		events:     make(chan Event, 16),
		userHandle: NoopHandle,
	}
}

func (b *base) emit(ev Event) {
	select {
	case b.events <- ev:
	default:
		// A slow/absent consumer must never block the driver's state
		// machine, so the new event is dropped when the buffer is full;
		// callers avoid that by draining Events() promptly.
		b.logger.Warn("event channel full, dropping event")
	}
}

func (b *base) setState(to State) {
	from := b.state
	b.state = to
	b.emit(Event{StatusChanged: &StatusChangedEvent{From: from, To: to}})
}

// Connect transitions Disconnected -> Idle. Concrete driver constructors
// call this once their transport is open.
func (b *base) Connect() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == Disconnected {
		b.setState(Idle)
	}
}

// Disconnect transitions any state to Disconnected, canceling an in-flight
// capture first if one is running.
func (b *base) Disconnect() {
	b.mu.Lock()
	if b.cancel != nil {
		b.cancel()
	}
	wasCapturing := b.state == Capturing
	b.mu.Unlock()

	if wasCapturing {
		<-b.done
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.setState(Disconnected)
}

func (b *base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state
}

func (b *base) Caps() Caps           { return b.caps }
func (b *base) DriverType() string   { return b.driverType }
func (b *base) IsNetwork() bool      { return b.isNetwork }
func (b *base) Events() <-chan Event { return b.events }

func (b *base) IsCapturing() bool {
	return b.State() == Capturing
}

// StartCapture validates before any wire activity, rejects Busy/
// HardwareError synchronously, and otherwise assembles the request, writes
// it, and parses the response on a background goroutine that runs until
// the capture completes or an error/cancellation aborts it.
func (b *base) StartCapture(ctx context.Context, s session.CaptureSession, sessionID string) CaptureError {
	b.mu.Lock()

	switch b.state {
	case Capturing:
		b.mu.Unlock()
		return CaptureErrorBusy
	case Disconnected, Bootloader:
		b.mu.Unlock()
		return CaptureErrorHardwareError
	}

	framed, err := capture.Assemble(s, capture.DeviceCaps{
		ChannelCount:   b.caps.ChannelCount,
		BufferSize:     b.caps.BufferSize,
		BlastFrequency: b.caps.BlastFrequency,
	})
	if err != nil {
		b.mu.Unlock()
		b.logger.Debug("rejected capture request", "err", err)

		return CaptureErrorBadParams
	}

	captureCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.done = make(chan struct{})
	b.setState(Capturing)
	b.mu.Unlock()

	b.emit(Event{SessionID: sessionID, Progress: &ProgressEvent{Phase: "initializing", TotalSamples: s.TotalSamples()}})

	go b.runCapture(captureCtx, sessionID, s, framed)

	return CaptureErrorNone
}

func (b *base) runCapture(ctx context.Context, sessionID string, s session.CaptureSession, framed []byte) {
	defer close(b.done)

	defer func() {
		b.mu.Lock()
		if b.state == Capturing {
			b.setState(Idle)
		}
		b.mu.Unlock()
	}()

	if err := b.transport.Write(ctx, framed); err != nil {
		b.fail(sessionID, CaptureErrorHardwareError, "write", err)
		return
	}

	b.emit(Event{SessionID: sessionID, Progress: &ProgressEvent{Phase: "armed", TotalSamples: s.TotalSamples()}})
	b.emit(Event{SessionID: sessionID, Progress: &ProgressEvent{Phase: "capturing", TotalSamples: s.TotalSamples()}})

	payload, err := b.transport.ReadFrame(ctx)
	if err != nil {
		if ctx.Err() != nil {
			// StopCapture or caller cancellation: partial samples
			// discarded, no error event.
			return
		}

		b.fail(sessionID, CaptureErrorHardwareError, "read", err)

		return
	}

	b.emit(Event{SessionID: sessionID, Progress: &ProgressEvent{
		Phase:        "transferring",
		TotalSamples: s.TotalSamples(),
	}})

	b.emit(Event{SessionID: sessionID, Progress: &ProgressEvent{
		Phase:         "parsing",
		CurrentSample: s.TotalSamples(),
		TotalSamples:  s.TotalSamples(),
	}})

	sessionCopy := s
	indices := make([]int, len(s.CaptureChannels))
	for i, c := range s.CaptureChannels {
		indices[i] = c.ChannelNumber
	}

	mode := modeFor(indices)
	if err := streamparser.Parse(payload, &sessionCopy, mode); err != nil {
		b.fail(sessionID, CaptureErrorUnexpectedError, "parse", err)
		return
	}

	b.emit(Event{SessionID: sessionID, CaptureCompleted: &CaptureCompletedEvent{
		Success:            true,
		SampleCount:        sessionCopy.TotalSamples(),
		Result:             sessionCopy,
		TriggerSampleIndex: streamparser.TriggerSampleIndex(sessionCopy),
	}})
}

func (b *base) fail(sessionID string, ce CaptureError, stage string, err error) {
	b.logger.Error("capture aborted", "stage", stage, "err", err)
	b.emit(Event{SessionID: sessionID, Error: &ErrorEvent{CaptureError: ce, Reason: Reason{
		Kind:        stage,
		Message:     err.Error(),
		Recoverable: ce != CaptureErrorUnexpectedError,
	}}})
	b.emit(Event{SessionID: sessionID, CaptureCompleted: &CaptureCompletedEvent{Success: false}})
}

func modeFor(indices []int) session.CaptureMode {
	return session.GetCaptureMode(indices)
}

// StopCapture is idempotent: it returns true immediately if already Idle,
// otherwise it cancels the in-flight capture and blocks until the read
// loop has unwound and the state machine has returned to Idle.
func (b *base) StopCapture() bool {
	b.mu.Lock()
	if b.state != Capturing {
		b.mu.Unlock()
		return true
	}

	cancel := b.cancel
	done := b.done
	b.mu.Unlock()

	cancel()
	<-done

	return true
}

// EnterBootloader transitions Idle -> Bootloader, a terminal state until a
// physical reset. Returns false from any other state.
func (b *base) EnterBootloader() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Idle {
		return false
	}

	b.setState(Bootloader)

	return true
}

// Close releases the transport and any attached user handle.
func (b *base) Close() error {
	b.mu.Lock()
	handle := b.userHandle
	b.mu.Unlock()

	if handle.Close != nil {
		handle.Close()
	}

	if err := b.transport.Close(); err != nil {
		return fmt.Errorf("driver: close transport: %w", err)
	}

	return nil
}

// SetUserHandle attaches a caller-owned, type-erased value to this driver;
// Close is invoked when Close() runs.
func (b *base) SetUserHandle(h UserHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.userHandle = h
}
