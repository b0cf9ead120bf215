package driver

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/northfork-instruments/logicap/internal/session"
	"github.com/northfork-instruments/logicap/internal/transport"
)

// NetworkDriver drives an analyzer reachable over TCP or UDP.
type NetworkDriver struct {
	*base
}

// DialTCP connects to addr over TCP and returns a driver in the Idle state.
func DialTCP(ctx context.Context, addr string, caps Caps, logger *log.Logger) (*NetworkDriver, error) {
	t, err := transport.DialTCP(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("driver: dial tcp %s: %w", addr, err)
	}

	return newNetworkDriver(t, caps, logger), nil
}

// DialUDP connects to addr over UDP and returns a driver in the Idle state.
func DialUDP(addr string, caps Caps, logger *log.Logger) (*NetworkDriver, error) {
	t, err := transport.DialUDP(addr)
	if err != nil {
		return nil, fmt.Errorf("driver: dial udp %s: %w", addr, err)
	}

	return newNetworkDriver(t, caps, logger), nil
}

func newNetworkDriver(t transport.Transport, caps Caps, logger *log.Logger) *NetworkDriver {
	d := &NetworkDriver{base: newBase(t, caps, "network", true, logger)}
	d.Connect()

	return d
}

// StartCapture implements AnalyzerDriver.
func (d *NetworkDriver) StartCapture(ctx context.Context, s session.CaptureSession) CaptureError {
	return d.base.StartCapture(ctx, s, nextSessionID(d.driverType))
}
