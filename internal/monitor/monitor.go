// Package monitor tracks in-flight captures and device health across the
// whole process. A Monitor is a weak observer: it subscribes to a driver's
// Events() channel and updates its own state from what it sees there. A
// driver never holds a reference back to a Monitor, which is what keeps the
// driver and monitor packages free of an import cycle.
package monitor

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/northfork-instruments/logicap/internal/driver"
	"github.com/northfork-instruments/logicap/internal/logx"
)

// maxHistory bounds the rolling aggregate of completed-capture summaries.
const maxHistory = 100

// DeviceStatus values for DeviceStatus.Status.
const (
	DeviceIdle      = "idle"
	DeviceCapturing = "capturing"
	DeviceError     = "error"
)

// ActiveCapture is a snapshot of one in-flight capture.
type ActiveCapture struct {
	SessionID     string
	DeviceID      string
	Phase         string
	CurrentSample uint64
	TotalSamples  uint64
	StartedAt     time.Time
}

// DeviceStatus is a snapshot of one device's last-known health.
type DeviceStatus struct {
	DeviceID           string
	Name               string
	Status             string
	TemperatureCelsius *float64
	LastSeen           time.Time
}

// CaptureSummary is a rolling-aggregate entry recorded once a capture
// completes, successfully or not.
type CaptureSummary struct {
	SessionID        string
	DeviceID         string
	Success          bool
	Duration         time.Duration
	SampleCount      uint64
	SamplesPerSecond float64
	CompletedAt      time.Time
}

// StatusReport is the result of GenerateStatusReport: a consistent snapshot
// of everything the monitor currently knows.
type StatusReport struct {
	ActiveCaptures []ActiveCapture
	DeviceStatuses []DeviceStatus
	RecentHistory  []CaptureSummary
}

// Monitor is a concurrency-safe, process-wide registry of in-flight
// captures and device health. The zero value is not usable; construct one
// with New.
type Monitor struct {
	mu sync.Mutex

	active  map[string]*ActiveCapture
	devices map[string]*DeviceStatus
	history []CaptureSummary

	logger *log.Logger
}

// New returns an empty Monitor ready to subscribe to drivers.
func New(logger *log.Logger) *Monitor {
	if logger == nil {
		logger = logx.Default()
	}

	return &Monitor{
		active:  make(map[string]*ActiveCapture),
		devices: make(map[string]*DeviceStatus),
		logger:  logger.With("subsystem", "monitor"),
	}
}

// Watch subscribes to d's event stream under deviceID and returns a cancel
// function that stops the subscription. It runs until ctx is canceled, d's
// Events() channel closes, or the returned cancel is called.
func (m *Monitor) Watch(ctx context.Context, deviceID string, d driver.AnalyzerDriver) context.CancelFunc {
	ctx, cancel := context.WithCancel(ctx)

	go m.subscribe(ctx, deviceID, d)

	return cancel
}

func (m *Monitor) subscribe(ctx context.Context, deviceID string, d driver.AnalyzerDriver) {
	m.updateDeviceStatus(deviceID, d.DriverType(), DeviceIdle, nil)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-d.Events():
			if !ok {
				return
			}

			m.handleEvent(deviceID, d.DriverType(), ev)
		}
	}
}

func (m *Monitor) handleEvent(deviceID, deviceName string, ev driver.Event) {
	switch {
	case ev.StatusChanged != nil:
		status := DeviceIdle
		if ev.StatusChanged.To == driver.Capturing {
			status = DeviceCapturing
		}

		m.updateDeviceStatus(deviceID, deviceName, status, nil)

	case ev.Progress != nil:
		if ev.Progress.Phase == "initializing" {
			m.startMonitoring(ev.SessionID, deviceID, ev.Progress.TotalSamples)
		}

		m.updateProgress(ev.SessionID, ev.Progress.Phase, ev.Progress.CurrentSample)

	case ev.CaptureCompleted != nil:
		m.completeCapture(ev.SessionID, deviceID, ev.CaptureCompleted.Success, ev.CaptureCompleted.SampleCount)

	case ev.Error != nil:
		m.updateDeviceStatus(deviceID, deviceName, DeviceError, nil)
	}
}

// startMonitoring registers a new active capture. Calling it twice for the
// same sessionID resets the started-at clock, which should not happen in
// practice since a driver never reuses a sessionID.
func (m *Monitor) startMonitoring(sessionID, deviceID string, totalSamples uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.active[sessionID] = &ActiveCapture{
		SessionID:    sessionID,
		DeviceID:     deviceID,
		Phase:        "initializing",
		TotalSamples: totalSamples,
		StartedAt:    time.Now(),
	}
}

// updateProgress advances the phase and sample counter of a tracked
// capture. It is a no-op if sessionID is unknown, which happens if events
// arrive after the session was already completed and evicted.
func (m *Monitor) updateProgress(sessionID, phase string, currentSample uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.active[sessionID]
	if !ok {
		return
	}

	c.Phase = phase
	if currentSample > c.CurrentSample {
		c.CurrentSample = currentSample
	}
}

// updateDeviceStatus records the last-known health of a device.
func (m *Monitor) updateDeviceStatus(deviceID, name, status string, temperatureCelsius *float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.devices[deviceID] = &DeviceStatus{
		DeviceID:           deviceID,
		Name:               name,
		Status:             status,
		TemperatureCelsius: temperatureCelsius,
		LastSeen:           time.Now(),
	}
}

// completeCapture removes sessionID from the active set and appends a
// summary to the rolling history, evicting the oldest entry once history
// exceeds maxHistory.
func (m *Monitor) completeCapture(sessionID, deviceID string, success bool, sampleCount uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.active[sessionID]
	delete(m.active, sessionID)

	now := time.Now()

	var duration time.Duration
	if ok {
		duration = now.Sub(c.StartedAt)
	}

	var samplesPerSecond float64
	if duration > 0 && sampleCount > 0 {
		samplesPerSecond = float64(sampleCount) / duration.Seconds()
	}

	m.history = append(m.history, CaptureSummary{
		SessionID:        sessionID,
		DeviceID:         deviceID,
		Success:          success,
		Duration:         duration,
		SampleCount:      sampleCount,
		SamplesPerSecond: samplesPerSecond,
		CompletedAt:      now,
	})

	if overflow := len(m.history) - maxHistory; overflow > 0 {
		m.history = m.history[overflow:]
	}

	status := DeviceIdle
	if !success {
		status = DeviceError
	}

	m.devices[deviceID] = &DeviceStatus{
		DeviceID: deviceID,
		Name:     m.devices[deviceID].nameOr(deviceID),
		Status:   status,
		LastSeen: now,
	}
}

func (d *DeviceStatus) nameOr(fallback string) string {
	if d == nil || d.Name == "" {
		return fallback
	}

	return d.Name
}

// GenerateStatusReport returns a consistent snapshot of every active
// capture, every known device, and the rolling history, ordered
// deterministically by sessionID/deviceID/completion time.
func (m *Monitor) GenerateStatusReport() StatusReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	report := StatusReport{
		ActiveCaptures: make([]ActiveCapture, 0, len(m.active)),
		DeviceStatuses: make([]DeviceStatus, 0, len(m.devices)),
		RecentHistory:  make([]CaptureSummary, len(m.history)),
	}

	for _, c := range m.active {
		report.ActiveCaptures = append(report.ActiveCaptures, *c)
	}

	for _, d := range m.devices {
		report.DeviceStatuses = append(report.DeviceStatuses, *d)
	}

	copy(report.RecentHistory, m.history)

	sort.Slice(report.ActiveCaptures, func(i, j int) bool {
		return report.ActiveCaptures[i].SessionID < report.ActiveCaptures[j].SessionID
	})
	sort.Slice(report.DeviceStatuses, func(i, j int) bool {
		return report.DeviceStatuses[i].DeviceID < report.DeviceStatuses[j].DeviceID
	})

	return report
}
