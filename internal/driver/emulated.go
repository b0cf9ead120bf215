package driver

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/rand"

	"github.com/charmbracelet/log"

	"github.com/northfork-instruments/logicap/internal/framer"
	"github.com/northfork-instruments/logicap/internal/session"
	"github.com/northfork-instruments/logicap/internal/wire"
)

// emulatedTransport stands in for a physical device: it decodes each
// CaptureRequest it is written, synthesizes a plausible sample stream of
// the right shape, and hands it back on the next ReadFrame. No bytes ever
// leave the process.
type emulatedTransport struct {
	rng    *rand.Rand
	framed chan []byte
	closed chan struct{}
}

func newEmulatedTransport(seed int64) *emulatedTransport {
	return &emulatedTransport{
		rng:    rand.New(rand.NewSource(seed)),
		framed: make(chan []byte, 1),
		closed: make(chan struct{}),
	}
}

func (t *emulatedTransport) Write(ctx context.Context, buf []byte) error {
	var payload []byte

	dec := framer.NewDecoder()
	if err := dec.Feed(buf, func(p []byte) { payload = p }); err != nil {
		return fmt.Errorf("emulated transport: %w", err)
	}

	if payload == nil {
		return fmt.Errorf("emulated transport: no complete frame in write")
	}

	req, err := wire.UnmarshalCaptureRequest(payload)
	if err != nil {
		return fmt.Errorf("emulated transport: %w", err)
	}

	resp := t.synthesize(req)

	select {
	case t.framed <- resp:
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

func (t *emulatedTransport) synthesize(req wire.CaptureRequest) []byte {
	delay := uint64(0)

	switch wire.TriggerType(req.TriggerType) {
	case wire.TriggerFast:
		delay = 3
	case wire.TriggerComplex:
		delay = 5
	}

	totalPost := uint64(req.PostSamples) + delay
	total := uint64(req.PreSamples) + totalPost*(uint64(req.LoopCount)+1)

	wordWidth := wire.CaptureMode(req.CaptureMode).Divisor()

	body := make([]byte, 4+int(total)*wordWidth)
	binary.LittleEndian.PutUint32(body[:4], uint32(total))

	for i := uint64(0); i < total; i++ {
		word := t.rng.Uint32() & ((1 << uint(req.ChannelCount)) - 1)
		off := 4 + int(i)*wordWidth

		switch wordWidth {
		case 1:
			body[off] = byte(word)
		case 2:
			binary.LittleEndian.PutUint16(body[off:], uint16(word))
		default:
			binary.LittleEndian.PutUint32(body[off:], word)
		}
	}

	if req.Measure == 1 && total > 0 {
		tail := make([]byte, 2+24)
		binary.LittleEndian.PutUint16(tail[:2], 1)
		binary.LittleEndian.PutUint32(tail[2:6], 0)
		binary.LittleEndian.PutUint32(tail[6:10], uint32(total))
		binary.LittleEndian.PutUint64(tail[10:18], 0)
		binary.LittleEndian.PutUint64(tail[18:26], 1000)
		body = append(body, tail...)
	}

	return framer.Encode(body)
}

func (t *emulatedTransport) ReadFrame(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.closed:
		return nil, fmt.Errorf("emulated transport: closed")
	case payload := <-t.framed:
		var out []byte

		dec := framer.NewDecoder()
		if err := dec.Feed(payload, func(p []byte) { out = p }); err != nil {
			return nil, err
		}

		return out, nil
	}
}

func (t *emulatedTransport) Close() error {
	close(t.closed)
	return nil
}

// EmulatedDriver exercises the full driver state machine and wire codec
// against a synthetic device, with no serial port or network socket
// involved. It is what cmd/lacapctl uses when no transport flag is given
// (seeded by --emulate-seed), and it backs tests that need a complete, deterministic AnalyzerDriver.
type EmulatedDriver struct {
	*base
}

// NewEmulated constructs an emulated driver already in the Idle state.
// seed makes its synthesized sample data reproducible across runs.
func NewEmulated(caps Caps, seed int64, logger *log.Logger) *EmulatedDriver {
	d := &EmulatedDriver{base: newBase(newEmulatedTransport(seed), caps, "emulated", false, logger)}
	d.Connect()

	return d
}

// StartCapture implements AnalyzerDriver.
func (d *EmulatedDriver) StartCapture(ctx context.Context, s session.CaptureSession) CaptureError {
	return d.base.StartCapture(ctx, s, nextSessionID(d.driverType))
}
