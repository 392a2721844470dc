// Package testharness provides in-process TCP servers for transport tests.
package testharness

import (
	"io"
	"net"
	"net/netip"
	"sync"
	"testing"
)

// EchoServer is a loopback TCP server that echoes everything it reads.
// It tracks accepted connections so tests can kill them mid-session and
// observe reconnect behavior.
type EchoServer struct {
	listener *net.TCPListener

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	done  bool
}

// NewEchoServer starts an echo server on an ephemeral loopback port.
// The server is shut down automatically when the test finishes.
func NewEchoServer(t *testing.T) *EchoServer {
	t.Helper()

	listener, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	s := &EchoServer{
		listener: listener,
		conns:    make(map[net.Conn]struct{}),
	}
	go s.acceptLoop()
	t.Cleanup(s.Close)
	return s
}

func (s *EchoServer) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.track(conn)
		go func() {
			defer s.untrack(conn)
			defer conn.Close()
			io.Copy(conn, conn)
		}()
	}
}

func (s *EchoServer) track(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		conn.Close()
		return
	}
	s.conns[conn] = struct{}{}
}

func (s *EchoServer) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

// Addr returns the server's listen address.
func (s *EchoServer) Addr() netip.AddrPort {
	return s.listener.Addr().(*net.TCPAddr).AddrPort()
}

// AddrString returns the server's listen address as "ip:port".
func (s *EchoServer) AddrString() string {
	return s.Addr().String()
}

// ActiveConns returns the number of currently accepted connections.
func (s *EchoServer) ActiveConns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// DropConns forcibly closes every accepted connection. The listener
// stays up, so clients can reconnect.
func (s *EchoServer) DropConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
		delete(s.conns, conn)
	}
}

// Close shuts down the listener and all accepted connections.
// It is safe to call Close multiple times.
func (s *EchoServer) Close() {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	for conn := range s.conns {
		conn.Close()
		delete(s.conns, conn)
	}
	s.mu.Unlock()
	s.listener.Close()
}

// FlakyServer is a loopback TCP server that echoes at most limit bytes
// per connection and then drops it. A limit of zero drops connections
// as soon as they are accepted.
type FlakyServer struct {
	listener *net.TCPListener
	limit    int64
}

// NewFlakyServer starts a flaky echo server on an ephemeral loopback port.
// The server is shut down automatically when the test finishes.
func NewFlakyServer(t *testing.T, limit int64) *FlakyServer {
	t.Helper()

	listener, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	s := &FlakyServer{listener: listener, limit: limit}
	go s.acceptLoop()
	t.Cleanup(func() { listener.Close() })
	return s
}

func (s *FlakyServer) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go func() {
			defer conn.Close()
			if s.limit > 0 {
				io.CopyN(conn, conn, s.limit)
			}
		}()
	}
}

// Addr returns the server's listen address.
func (s *FlakyServer) Addr() netip.AddrPort {
	return s.listener.Addr().(*net.TCPAddr).AddrPort()
}

// UnusedAddr returns a loopback address with nothing listening on it.
// Dials to the address fail fast with connection refused.
func UnusedAddr(t *testing.T) netip.AddrPort {
	t.Helper()

	listener, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	addr := listener.Addr().(*net.TCPAddr).AddrPort()
	listener.Close()
	return addr
}
