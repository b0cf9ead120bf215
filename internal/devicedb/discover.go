package devicedb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brutella/dnssd"
	"github.com/jochenvg/go-udev"
)

// Candidate is a device seen on the network or attached over serial that is
// not yet (or no longer) present in the Store.
type Candidate struct {
	Source string // "network" or "serial"
	Name   string
	Addr   string // host:port for network, device node path for serial
}

// serviceType is the mDNS service browsed for network-attached analyzers.
// No reference implementation in the retrieval pack advertises this
// service, so this is a best-effort surface: it compiles against
// brutella/dnssd's real API and will locate any device that advertises
// under this name, but has not been exercised against real hardware.
const serviceType = "_logicap._tcp"

// DiscoverNetwork browses serviceType and returns every responder
// seen before ctx is done. It is intended to be run with a short,
// caller-supplied timeout.
func DiscoverNetwork(ctx context.Context) ([]Candidate, error) {
	var found []Candidate

	addFn := func(e dnssd.BrowseEntry) {
		addr := ""
		if len(e.IPs) > 0 {
			addr = fmt.Sprintf("%s:%d", e.IPs[0], e.Port)
		}

		found = append(found, Candidate{Source: "network", Name: e.Name, Addr: addr})
	}

	rmvFn := func(dnssd.BrowseEntry) {}

	if err := dnssd.LookupType(ctx, serviceType, addFn, rmvFn); err != nil {
		return found, fmt.Errorf("devicedb: mdns browse: %w", err)
	}

	return found, nil
}

// DiscoverSerial enumerates tty devices via udev and returns every one whose
// device node is /dev/ttyUSB* or /dev/ttyACM*, named by its ID_MODEL
// property (or the node path when that is empty). Like DiscoverNetwork this
// is best-effort: without a reference usage of go-udev in the retrieval pack
// to ground the exact property names on, it does no vendor matching; that
// is left to the caller.
func DiscoverSerial() ([]Candidate, error) {
	u := udev.Udev{}

	enum := u.NewEnumerate()
	if err := enum.AddMatchSubsystem("tty"); err != nil {
		return nil, fmt.Errorf("devicedb: udev match: %w", err)
	}

	devices, err := enum.Devices()
	if err != nil {
		return nil, fmt.Errorf("devicedb: udev enumerate: %w", err)
	}

	var found []Candidate

	for _, dev := range devices {
		node := dev.Devnode()
		if node == "" || !strings.HasPrefix(node, "/dev/ttyUSB") && !strings.HasPrefix(node, "/dev/ttyACM") {
			continue
		}

		name := dev.PropertyValue("ID_MODEL")
		if name == "" {
			name = node
		}

		found = append(found, Candidate{Source: "serial", Name: name, Addr: node})
	}

	return found, nil
}

// DiscoverAll runs both discovery mechanisms with a shared timeout,
// returning whatever each found even if one of them errors.
func DiscoverAll(timeout time.Duration) ([]Candidate, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	netFound, netErr := DiscoverNetwork(ctx)
	serialFound, serialErr := DiscoverSerial()

	found := append(netFound, serialFound...)

	if netErr != nil {
		return found, netErr
	}

	return found, serialErr
}
