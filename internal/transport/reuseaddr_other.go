//go:build !unix

package transport

import "net"

// setReuseAddr is a no-op on platforms without SO_REUSEADDR semantics
// reachable through golang.org/x/sys/unix.
func setReuseAddr(*net.UDPConn) {}
