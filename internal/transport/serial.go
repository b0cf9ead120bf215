package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/term"

	"github.com/northfork-instruments/logicap/internal/framer"
)

// SerialTransport drives the analyzer over a local serial port: it opens
// the device in raw mode via github.com/pkg/term, then configures the
// requested baud rate.
type SerialTransport struct {
	port *term.Term

	mu      sync.Mutex // serializes Write calls so each command is written whole
	decoder *framer.Decoder
	frames  chan []byte
	readErr chan error
}

// OpenSerial opens device at the given baud rate and starts the background
// read loop that feeds ReadFrame.
func OpenSerial(device string, baud int) (*SerialTransport, error) {
	t, err := term.Open(device, term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("transport: open serial port %s: %w", device, err)
	}

	if baud != 0 {
		if err := t.SetSpeed(baud); err != nil {
			t.Close()
			return nil, fmt.Errorf("transport: set speed %d on %s: %w", baud, device, err)
		}
	}

	st := &SerialTransport{
		port:    t,
		decoder: framer.NewDecoder(),
		frames:  make(chan []byte, 8),
		readErr: make(chan error, 1),
	}

	go st.readLoop()

	return st, nil
}

func (s *SerialTransport) readLoop() {
	buf := make([]byte, 4096)

	for {
		n, err := s.port.Read(buf)
		if n > 0 {
			decodeErr := s.decoder.Feed(buf[:n], func(payload []byte) {
				s.frames <- payload
			})
			if decodeErr != nil {
				s.readErr <- decodeErr
				return
			}
		}

		if err != nil {
			s.readErr <- fmt.Errorf("transport: serial read: %w", err)
			return
		}
	}
}

// Write implements Transport.
func (s *SerialTransport) Write(ctx context.Context, buf []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := s.port.Write(buf)
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("transport: serial write: %w", err)
		}

		return nil
	}
}

// ReadFrame implements Transport.
func (s *SerialTransport) ReadFrame(ctx context.Context) ([]byte, error) {
	readCtx, cancel, ownDeadline := withReadDeadline(ctx)
	defer cancel()

	select {
	case <-readCtx.Done():
		return nil, readDoneErr(readCtx, ownDeadline)
	case payload := <-s.frames:
		return payload, nil
	case err := <-s.readErr:
		return nil, err
	}
}

// Close implements Transport.
func (s *SerialTransport) Close() error {
	return s.port.Close()
}
