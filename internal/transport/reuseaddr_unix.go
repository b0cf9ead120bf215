//go:build unix

package transport

import (
	"net"

	"golang.org/x/sys/unix"
)

// setReuseAddr configures SO_REUSEADDR on conn's underlying socket —
// net.DialUDP alone doesn't expose it, needed when the analyzer's
// ephemeral UDP responder binds to a fixed local port across reconnects.
func setReuseAddr(conn *net.UDPConn) {
	sc, err := conn.SyscallConn()
	if err != nil {
		return
	}

	_ = sc.Control(func(fd uintptr) {
		_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
}
