package transport

import (
	"fmt"
	"net"

	"go.bug.st/serial"
)

// SerialConfig holds serial port parameters. The zero value selects the
// traditional default of 9600 baud, 8 data bits, no parity, one stop
// bit.
type SerialConfig struct {
	BaudRate int
	DataBits int
	Parity   serial.Parity
	StopBits serial.StopBits
}

// DefaultSerialConfig returns the default port parameters (9600 8N1).
func DefaultSerialConfig() SerialConfig {
	return SerialConfig{
		BaudRate: 9600,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// mode translates the config into the driver's mode struct.
func (c SerialConfig) mode() *serial.Mode {
	m := &serial.Mode{
		BaudRate: c.BaudRate,
		DataBits: c.DataBits,
		Parity:   c.Parity,
		StopBits: c.StopBits,
	}
	if m.BaudRate == 0 {
		m.BaudRate = 9600
	}
	if m.DataBits == 0 {
		m.DataBits = 8
	}
	return m
}

// SerialStream is a local serial device under the package's non-blocking
// discipline. The port runs with a zero read timeout, so reads return
// whatever is buffered instead of waiting for more.
type SerialStream struct {
	port serial.Port
	path string

	// One byte of lookahead consumed by PollRead and served by the next
	// Read.
	pending     byte
	havePending bool

	closed bool
}

// OpenSerial opens the device at path. Unlike the redialing TCP
// transport, serial open errors are synchronous: a missing or busy
// device fails here, not on first use.
func OpenSerial(path string, cfg SerialConfig) (*SerialStream, error) {
	port, err := serial.Open(path, cfg.mode())
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", path, err)
	}
	if err := port.SetReadTimeout(0); err != nil {
		port.Close()
		return nil, fmt.Errorf("configure serial port %s: %w", path, err)
	}
	return &SerialStream{port: port, path: path}, nil
}

// Path returns the device path the stream was opened with.
func (s *SerialStream) Path() string {
	return s.path
}

// Read returns buffered bytes, or ErrNotReady when the line is idle.
func (s *SerialStream) Read(p []byte) (int, error) {
	if s.closed {
		return 0, net.ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	if s.havePending {
		p[0] = s.pending
		s.havePending = false
		return 1, nil
	}
	n, err := s.port.Read(p)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, ErrNotReady
	}
	return n, nil
}

// Write hands p to the driver's transmit buffer.
func (s *SerialStream) Write(p []byte) (int, error) {
	if s.closed {
		return 0, net.ErrClosed
	}
	return s.port.Write(p)
}

// Flush waits for the transmit buffer to drain onto the line.
func (s *SerialStream) Flush() error {
	if s.closed {
		return net.ErrClosed
	}
	return s.port.Drain()
}

// Shutdown drains the transmit buffer. Serial lines have no half-close,
// so there is nothing further to signal to the peer.
func (s *SerialStream) Shutdown() error {
	if s.closed {
		return net.ErrClosed
	}
	return s.port.Drain()
}

// Close closes the device.
func (s *SerialStream) Close() error {
	if s.closed {
		return net.ErrClosed
	}
	s.closed = true
	return s.port.Close()
}

// PollRead reports whether a Read would return data. A byte consumed by
// the probe is buffered and served by the next Read.
func (s *SerialStream) PollRead() (bool, error) {
	if s.closed {
		return false, net.ErrClosed
	}
	if s.havePending {
		return true, nil
	}
	buf := [1]byte{}
	n, err := s.port.Read(buf[:])
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	s.pending = buf[0]
	s.havePending = true
	return true, nil
}

// PollWrite reports write readiness. The driver buffers writes, so a
// serial stream is always writable until closed.
func (s *SerialStream) PollWrite() (bool, error) {
	if s.closed {
		return false, net.ErrClosed
	}
	return true, nil
}
