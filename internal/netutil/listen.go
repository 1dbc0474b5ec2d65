// Package netutil builds the listening socket: dual-stack wildcard by
// default, with an explicit, small listen backlog. Go's net.Listen
// doesn't expose a backlog knob or IPV6_V6ONLY control, so this talks
// to the socket directly via golang.org/x/sys/unix and wraps the
// result back into a standard net.TCPListener.
package netutil

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// listenBacklog is a deliberately small pending-connection queue,
// matching the conservative backlog commonly used by minimal
// single-threaded servers rather than a production-scale default.
const listenBacklog = 5

// Listen creates, binds and listens on address:port. An empty address
// binds the IPv6 wildcard with IPV6_V6ONLY disabled, giving a
// dual-stack default; a literal IPv4 or IPv6 address binds that
// family only.
func Listen(address, port string) (*net.TCPListener, error) {
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("netutil: invalid port %q: %w", port, err)
	}

	family := unix.AF_INET6
	if address != "" {
		if ip := net.ParseIP(address); ip != nil && ip.To4() != nil {
			family = unix.AF_INET
		}
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("netutil: socket: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("netutil: SO_REUSEADDR: %w", err)
	}
	if family == unix.AF_INET6 {
		// Disabling V6ONLY makes the wildcard bind dual-stack, serving
		// both IPv4 (mapped as ::ffff:a.b.c.d) and IPv6 clients.
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, 0); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("netutil: IPV6_V6ONLY: %w", err)
		}
	}

	sa, err := sockaddr(family, address, portNum)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("netutil: bind: %w", err)
	}
	if err := unix.Listen(fd, listenBacklog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("netutil: listen: %w", err)
	}

	f := os.NewFile(uintptr(fd), "sws-listener")
	defer f.Close() // net.FileListener dup()s the descriptor
	ln, err := net.FileListener(f)
	if err != nil {
		return nil, fmt.Errorf("netutil: FileListener: %w", err)
	}
	tln, ok := ln.(*net.TCPListener)
	if !ok {
		ln.Close()
		return nil, fmt.Errorf("netutil: unexpected listener type %T", ln)
	}
	return tln, nil
}

func sockaddr(family int, address string, port int) (unix.Sockaddr, error) {
	if family == unix.AF_INET {
		var addr [4]byte
		if address != "" {
			ip := net.ParseIP(address).To4()
			if ip == nil {
				return nil, fmt.Errorf("netutil: invalid IPv4 address %q", address)
			}
			copy(addr[:], ip)
		}
		return &unix.SockaddrInet4{Port: port, Addr: addr}, nil
	}
	var addr [16]byte
	if address != "" {
		ip := net.ParseIP(address).To16()
		if ip == nil {
			return nil, fmt.Errorf("netutil: invalid IPv6 address %q", address)
		}
		copy(addr[:], ip)
	}
	return &unix.SockaddrInet6{Port: port, Addr: addr}, nil
}
