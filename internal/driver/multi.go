package driver

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/northfork-instruments/logicap/internal/hwtrigger"
	"github.com/northfork-instruments/logicap/internal/logx"
	"github.com/northfork-instruments/logicap/internal/session"
	"github.com/northfork-instruments/logicap/internal/streamparser"
)

const maxMultiMembers = 5

// MultiMember pairs an underlying driver with the global channel numbers
// it is responsible for sampling.
type MultiMember struct {
	Driver   AnalyzerDriver
	Channels []int
}

// MultiDriver fans one capture session out across up to five independent
// devices, each covering a disjoint slice of the channel space, and
// stitches their results back into a single session. A shared trigger
// line keeps their sample clocks aligned; without one (Watcher == nil) the
// members are simply started back-to-back, which is adequate for
// emulated or software-only testing but not for real clock-sensitive
// captures.
type MultiDriver struct {
	mu      sync.Mutex
	state   State
	members []MultiMember
	watcher hwtrigger.Watcher
	caps    Caps
	events  chan Event
	logger  *log.Logger
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewMulti validates members (disjoint channel sets, at most five, at
// least one) and returns a driver in the Idle state. watcher may be nil,
// in which case hwtrigger.NoopWatcher is used.
func NewMulti(members []MultiMember, watcher hwtrigger.Watcher, logger *log.Logger) (*MultiDriver, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("driver: multi requires at least one member")
	}

	if len(members) > maxMultiMembers {
		return nil, fmt.Errorf("driver: multi supports at most %d members, got %d", maxMultiMembers, len(members))
	}

	seen := make(map[int]bool)
	total := 0

	for _, m := range members {
		for _, ch := range m.Channels {
			if seen[ch] {
				return nil, fmt.Errorf("driver: channel %d claimed by more than one member", ch)
			}

			seen[ch] = true
		}

		total += len(m.Channels)
	}

	if watcher == nil {
		watcher = hwtrigger.NoopWatcher{}
	}

	if logger == nil {
		logger = logx.Default()
	}

	return &MultiDriver{
		state:   Idle,
		members: members,
		watcher: watcher,
		caps:    Caps{ChannelCount: total},
		events:  make(chan Event, 16),
		logger:  logger.With("driver_type", "multi"),
	}, nil
}

func (d *MultiDriver) emit(ev Event) {
	select {
	case d.events <- ev:
	default:
		d.logger.Warn("event channel full, dropping event")
	}
}

func (d *MultiDriver) setState(to State) {
	from := d.state
	d.state = to
	d.emit(Event{StatusChanged: &StatusChangedEvent{From: from, To: to}})
}

func (d *MultiDriver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.state
}

func (d *MultiDriver) Caps() Caps           { return d.caps }
func (d *MultiDriver) DriverType() string   { return "multi" }
func (d *MultiDriver) IsNetwork() bool      { return false }
func (d *MultiDriver) Events() <-chan Event { return d.events }

func (d *MultiDriver) IsCapturing() bool {
	return d.State() == Capturing
}

// StartCapture splits s by channel ownership, arms the shared trigger,
// then starts every member concurrently. It returns Busy if any member is
// already capturing, BadParams if a requested channel has no owning
// member, HardwareError if arming the trigger fails, and the member's own
// CaptureError if a member rejects its request after arming (in which case
// already-started members are stopped).
func (d *MultiDriver) StartCapture(ctx context.Context, s session.CaptureSession) CaptureError {
	d.mu.Lock()

	if d.state == Capturing {
		d.mu.Unlock()
		return CaptureErrorBusy
	}

	subSessions := make([]session.CaptureSession, len(d.members))
	hasChannels := make([]bool, len(d.members))

	for _, ch := range s.CaptureChannels {
		idx, ok := d.memberIndexFor(ch.ChannelNumber)
		if !ok {
			d.mu.Unlock()
			return CaptureErrorBadParams
		}

		if !hasChannels[idx] {
			sub := s
			sub.CaptureChannels = nil
			subSessions[idx] = sub
			hasChannels[idx] = true
		}

		sub := subSessions[idx]
		sub.CaptureChannels = append(sub.CaptureChannels, ch)
		subSessions[idx] = sub
	}

	// Only the member owning the trigger channel evaluates a real trigger
	// condition; the rest are armed by the shared hwtrigger line instead,
	// so they get a trivially valid edge trigger on their own first
	// channel rather than a reference to a channel they don't own.
	ownerIdx, _ := d.memberIndexFor(s.TriggerChannel)

	for i := range subSessions {
		if !hasChannels[i] || i == ownerIdx {
			continue
		}

		sub := subSessions[i]
		sub.TriggerType = session.TriggerEdge
		sub.TriggerChannel = sub.CaptureChannels[0].ChannelNumber
		sub.TriggerInverted = false
		subSessions[i] = sub
	}

	sessionID := nextSessionID("multi")

	captureCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	d.mu.Unlock()

	if err := d.watcher.Arm(captureCtx); err != nil {
		cancel()
		return CaptureErrorHardwareError
	}

	var (
		startedMembers []AnalyzerDriver
		ownerDriver    AnalyzerDriver
	)

	for i, m := range d.members {
		if !hasChannels[i] {
			continue
		}

		if ce := m.Driver.StartCapture(captureCtx, subSessions[i]); ce != CaptureErrorNone {
			for _, sm := range startedMembers {
				sm.StopCapture()
			}

			cancel()

			return ce
		}

		startedMembers = append(startedMembers, m.Driver)

		if i == ownerIdx {
			ownerDriver = m.Driver
		}
	}

	d.mu.Lock()
	d.setState(Capturing)
	d.mu.Unlock()

	d.emit(Event{SessionID: sessionID, Progress: &ProgressEvent{Phase: "capturing", TotalSamples: s.TotalSamples()}})

	go d.awaitCompletion(sessionID, s, ownerDriver, startedMembers)

	return CaptureErrorNone
}

func (d *MultiDriver) memberIndexFor(channel int) (int, bool) {
	for i, m := range d.members {
		for _, ch := range m.Channels {
			if ch == channel {
				return i, true
			}
		}
	}

	return 0, false
}

// awaitCompletion waits for every started member to finish, then
// interleaves their per-channel samples back into s's channel set by
// channel number (spec §4.7's "shard channels ... interleave by index
// alignment post-capture") and carries the owning member's burst data, if
// any, through to the aggregate CaptureCompletedEvent.
func (d *MultiDriver) awaitCompletion(sessionID string, s session.CaptureSession, ownerDriver AnalyzerDriver, started []AnalyzerDriver) {
	defer close(d.done)

	var (
		mu       sync.Mutex
		success  = true
		channels []session.AnalyzerChannel
		bursts   []session.BurstInfo
	)

	var wg sync.WaitGroup

	for _, drv := range started {
		wg.Add(1)

		go func(drv AnalyzerDriver) {
			defer wg.Done()

			for ev := range drv.Events() {
				if ev.CaptureCompleted == nil {
					continue
				}

				mu.Lock()

				if !ev.CaptureCompleted.Success {
					success = false
				} else {
					channels = append(channels, ev.CaptureCompleted.Result.CaptureChannels...)
					if drv == ownerDriver {
						bursts = ev.CaptureCompleted.Result.Bursts
					}
				}

				mu.Unlock()

				return
			}
		}(drv)
	}

	wg.Wait()

	sort.Slice(channels, func(i, j int) bool { return channels[i].ChannelNumber < channels[j].ChannelNumber })

	var result session.CaptureSession
	if success {
		result = s
		result.CaptureChannels = channels
		result.Bursts = bursts
	}

	d.mu.Lock()
	d.setState(Idle)
	d.mu.Unlock()

	sampleCount := uint64(0)
	if success {
		sampleCount = s.TotalSamples()
	}

	var triggerSampleIndex uint32
	if success {
		triggerSampleIndex = streamparser.TriggerSampleIndex(result)
	}

	d.emit(Event{SessionID: sessionID, CaptureCompleted: &CaptureCompletedEvent{
		Success:            success,
		SampleCount:        sampleCount,
		Result:             result,
		TriggerSampleIndex: triggerSampleIndex,
	}})
}

// StopCapture is idempotent, matching AnalyzerDriver's contract: it stops
// every capturing member and waits for the aggregate state to settle.
func (d *MultiDriver) StopCapture() bool {
	d.mu.Lock()
	if d.state != Capturing {
		d.mu.Unlock()
		return true
	}

	cancel := d.cancel
	done := d.done
	d.mu.Unlock()

	for _, m := range d.members {
		m.Driver.StopCapture()
	}

	if cancel != nil {
		cancel()
	}

	if done != nil {
		<-done
	}

	return true
}

// EnterBootloader is not supported on a multi-device aggregate: each
// member must be bootloaded individually through its own driver.
func (d *MultiDriver) EnterBootloader() bool {
	return false
}

// Close closes every member driver and the shared trigger watcher.
func (d *MultiDriver) Close() error {
	var firstErr error

	for _, m := range d.members {
		if err := m.Driver.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if err := d.watcher.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	return firstErr
}
