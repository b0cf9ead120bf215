package driver

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/northfork-instruments/logicap/internal/session"
	"github.com/northfork-instruments/logicap/internal/transport"
)

// SerialDriver drives an analyzer reachable over a local serial port.
type SerialDriver struct {
	*base
}

// OpenSerial opens device and returns a driver in the Idle state. caps is
// supplied by the caller, typically from a prior capability query over the
// same link.
func OpenSerial(device string, baud int, caps Caps, logger *log.Logger) (*SerialDriver, error) {
	t, err := transport.OpenSerial(device, baud)
	if err != nil {
		return nil, fmt.Errorf("driver: open serial %s: %w", device, err)
	}

	d := &SerialDriver{base: newBase(t, caps, "serial", false, logger)}
	d.Connect()

	return d, nil
}

// StartCapture implements AnalyzerDriver.
func (d *SerialDriver) StartCapture(ctx context.Context, s session.CaptureSession) CaptureError {
	return d.base.StartCapture(ctx, s, nextSessionID(d.driverType))
}
