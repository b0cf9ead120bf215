// Package hwtrigger synchronizes the start instant of several independent
// analyzer devices sharing one capture so their sample clocks line up,
// using a GPIO line every device watches (or drives) in common.
package hwtrigger

import (
	"context"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// Watcher fires once when the shared trigger line transitions, so every
// member of a multi-device capture can begin sampling at the same instant
// rather than whenever its own StartCapture call happens to reach the
// front of its goroutine scheduler.
type Watcher interface {
	// Arm blocks until the trigger line fires or ctx is canceled.
	Arm(ctx context.Context) error
	Close() error
}

// NoopWatcher fires immediately. Used for a single-device capture, or for
// emulated/test multi-device captures where there is no physical line to
// watch.
type NoopWatcher struct{}

func (NoopWatcher) Arm(ctx context.Context) error { return ctx.Err() }
func (NoopWatcher) Close() error                  { return nil }

// GPIOWatcher watches a gpiocdev line for a rising edge.
type GPIOWatcher struct {
	line  *gpiocdev.Line
	fired chan struct{}
}

// OpenGPIO requests chip/offset as an input with edge-detection, firing the
// returned Watcher's Arm on the first rising edge.
func OpenGPIO(chip string, offset int) (*GPIOWatcher, error) {
	w := &GPIOWatcher{fired: make(chan struct{}, 1)}

	line, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			if evt.Type == gpiocdev.LineEventRisingEdge {
				select {
				case w.fired <- struct{}{}:
				default:
				}
			}
		}),
		gpiocdev.WithBothEdges,
	)
	if err != nil {
		return nil, fmt.Errorf("hwtrigger: request line %s:%d: %w", chip, offset, err)
	}

	w.line = line

	return w, nil
}

// Arm implements Watcher.
func (w *GPIOWatcher) Arm(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.fired:
		return nil
	}
}

// Close implements Watcher.
func (w *GPIOWatcher) Close() error {
	return w.line.Close()
}
