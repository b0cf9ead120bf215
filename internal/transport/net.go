package transport

import (
	"context"
	"fmt"
	"net"

	"github.com/northfork-instruments/logicap/internal/framer"
)

// TCPTransport drives the analyzer over a TCP stream. TCP is length-
// oblivious: framing boundaries are recovered entirely by the framer's
// escape/sentinel scheme as raw bytes come off the net.Conn.
type TCPTransport struct {
	conn    net.Conn
	decoder *framer.Decoder
	frames  chan []byte
	readErr chan error
}

// DialTCP connects to addr and starts the background read loop.
func DialTCP(ctx context.Context, addr string) (*TCPTransport, error) {
	var d net.Dialer

	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial tcp %s: %w", addr, err)
	}

	t := &TCPTransport{
		conn:    conn,
		decoder: framer.NewDecoder(),
		frames:  make(chan []byte, 8),
		readErr: make(chan error, 1),
	}

	go t.readLoop()

	return t, nil
}

func (t *TCPTransport) readLoop() {
	buf := make([]byte, 4096)

	for {
		n, err := t.conn.Read(buf)
		if n > 0 {
			decodeErr := t.decoder.Feed(buf[:n], func(payload []byte) {
				t.frames <- payload
			})
			if decodeErr != nil {
				t.readErr <- decodeErr
				return
			}
		}

		if err != nil {
			t.readErr <- fmt.Errorf("transport: tcp read: %w", err)
			return
		}
	}
}

// Write implements Transport.
func (t *TCPTransport) Write(ctx context.Context, buf []byte) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = t.conn.SetWriteDeadline(deadline)
	}

	if _, err := t.conn.Write(buf); err != nil {
		return fmt.Errorf("transport: tcp write: %w", err)
	}

	return nil
}

// ReadFrame implements Transport.
func (t *TCPTransport) ReadFrame(ctx context.Context) ([]byte, error) {
	readCtx, cancel, ownDeadline := withReadDeadline(ctx)
	defer cancel()

	select {
	case <-readCtx.Done():
		return nil, readDoneErr(readCtx, ownDeadline)
	case payload := <-t.frames:
		return payload, nil
	case err := <-t.readErr:
		return nil, err
	}
}

// Close implements Transport.
func (t *TCPTransport) Close() error {
	return t.conn.Close()
}

// UDPTransport drives the analyzer over UDP, where each datagram is a
// complete framed unit rather than part of a continuous stream. Each
// packet gets a fresh Decoder so a dropped or reordered datagram never
// corrupts the framing state of the next one.
type UDPTransport struct {
	conn    *net.UDPConn
	frames  chan []byte
	readErr chan error
}

// DialUDP connects to addr and configures the socket for address reuse
// where the platform supports it (see setReuseAddr).
func DialUDP(addr string) (*UDPTransport, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve udp addr %s: %w", addr, err)
	}

	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial udp %s: %w", addr, err)
	}

	setReuseAddr(conn)

	u := &UDPTransport{
		conn:    conn,
		frames:  make(chan []byte, 8),
		readErr: make(chan error, 1),
	}

	go u.readLoop()

	return u, nil
}

func (u *UDPTransport) readLoop() {
	buf := make([]byte, 65535)

	for {
		n, err := u.conn.Read(buf)
		if err != nil {
			u.readErr <- fmt.Errorf("transport: udp read: %w", err)
			return
		}

		d := framer.NewDecoder()

		var frame []byte

		decodeErr := d.Feed(buf[:n], func(payload []byte) { frame = payload })
		if decodeErr != nil {
			u.readErr <- decodeErr
			return
		}

		if frame != nil {
			u.frames <- frame
		}
	}
}

// Write implements Transport.
func (u *UDPTransport) Write(ctx context.Context, buf []byte) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = u.conn.SetWriteDeadline(deadline)
	}

	if _, err := u.conn.Write(buf); err != nil {
		return fmt.Errorf("transport: udp write: %w", err)
	}

	return nil
}

// ReadFrame implements Transport.
func (u *UDPTransport) ReadFrame(ctx context.Context) ([]byte, error) {
	readCtx, cancel, ownDeadline := withReadDeadline(ctx)
	defer cancel()

	select {
	case <-readCtx.Done():
		return nil, readDoneErr(readCtx, ownDeadline)
	case payload := <-u.frames:
		return payload, nil
	case err := <-u.readErr:
		return nil, err
	}
}

// Close implements Transport.
func (u *UDPTransport) Close() error {
	return u.conn.Close()
}
