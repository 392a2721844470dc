package transport

import (
	"io"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// TCPStream is a plain TCP connection with the package's non-blocking
// discipline. I/O goes through the raw file descriptor so that a call
// either completes immediately or reports ErrNotReady; the runtime
// netpoller is never waited on.
type TCPStream struct {
	conn *net.TCPConn
	raw  syscall.RawConn
}

// NewTCPStream wraps an established TCP connection.
func NewTCPStream(conn *net.TCPConn) (*TCPStream, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return nil, err
	}
	return &TCPStream{conn: conn, raw: raw}, nil
}

// Read reads available bytes without blocking. It returns ErrNotReady
// when the receive buffer is empty and io.EOF once the peer has closed
// its write half and all data has been drained.
func (s *TCPStream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	var n int
	var rerr error
	err := s.raw.Read(func(fd uintptr) bool {
		for {
			n, rerr = unix.Read(int(fd), p)
			if rerr == unix.EINTR {
				continue
			}
			return true
		}
	})
	if err != nil {
		return 0, err
	}
	if rerr != nil {
		if rerr == unix.EAGAIN {
			return 0, ErrNotReady
		}
		return 0, s.opError("read", rerr)
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write writes as much of p as the send buffer accepts. A full buffer
// yields (0, ErrNotReady); a partial write yields the count written and
// ErrNotReady so the caller resumes from the right offset after polling.
func (s *TCPStream) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	var n int
	var werr error
	err := s.raw.Write(func(fd uintptr) bool {
		for {
			n, werr = unix.Write(int(fd), p)
			if werr == unix.EINTR {
				continue
			}
			return true
		}
	})
	if err != nil {
		return 0, err
	}
	if werr != nil {
		if werr == unix.EAGAIN {
			return 0, ErrNotReady
		}
		return 0, s.opError("write", werr)
	}
	if n < len(p) {
		return n, ErrNotReady
	}
	return n, nil
}

// Flush is a no-op: writes land in the kernel send buffer directly.
func (s *TCPStream) Flush() error {
	return nil
}

// Shutdown closes the write half of the connection. The peer observes
// EOF after draining in-flight data; reads on this side keep working.
func (s *TCPStream) Shutdown() error {
	return s.conn.CloseWrite()
}

// Close closes the connection.
func (s *TCPStream) Close() error {
	return s.conn.Close()
}

// PollRead reports whether the connection is readable. Error and hangup
// conditions count as readable; the following Read surfaces them.
func (s *TCPStream) PollRead() (bool, error) {
	return s.pollFD(unix.POLLIN)
}

// PollWrite reports whether the connection accepts more data.
func (s *TCPStream) PollWrite() (bool, error) {
	return s.pollFD(unix.POLLOUT)
}

func (s *TCPStream) pollFD(events int16) (bool, error) {
	var ready bool
	var perr error
	err := s.raw.Control(func(fd uintptr) {
		fds := []unix.PollFd{{Fd: int32(fd), Events: events}}
		for {
			n, err := unix.Poll(fds, 0)
			if err == unix.EINTR {
				continue
			}
			if err != nil {
				perr = err
				return
			}
			ready = n > 0 && fds[0].Revents != 0
			return
		}
	})
	if err != nil {
		return false, err
	}
	if perr != nil {
		return false, s.opError("poll", perr)
	}
	return ready, nil
}

// SetNoDelay toggles TCP_NODELAY on the connection.
func (s *TCPStream) SetNoDelay(noDelay bool) error {
	return s.conn.SetNoDelay(noDelay)
}

// applySettings configures the socket per the given settings.
func (s *TCPStream) applySettings(settings Settings) error {
	return s.SetNoDelay(settings.NoDelay)
}

// LocalAddr returns the local socket address.
func (s *TCPStream) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

// RemoteAddr returns the peer socket address.
func (s *TCPStream) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

// SyscallConn exposes the raw connection for socket-level inspection.
func (s *TCPStream) SyscallConn() (syscall.RawConn, error) {
	return s.raw, nil
}

func (s *TCPStream) opError(op string, err error) error {
	return &net.OpError{
		Op:     op,
		Net:    "tcp",
		Source: s.conn.LocalAddr(),
		Addr:   s.conn.RemoteAddr(),
		Err:    err,
	}
}

var _ syscall.Conn = (*TCPStream)(nil)
