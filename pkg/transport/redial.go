package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/unistream-io/unistream-go/pkg/log"
)

// redialState is the connection state of a RedialStream. Exactly two
// states exist: a dial in flight, or an established socket.
type redialState interface {
	name() string
}

// connecting holds the pending dial.
type connecting struct {
	attempt *connectAttempt
}

func (*connecting) name() string { return "CONNECTING" }

// connected holds the live socket.
type connected struct {
	stream *TCPStream
}

func (*connected) name() string { return "CONNECTED" }

// RedialStream is a TCP transport that never gives up on its target.
// Every operation first drives the connection: while a dial is pending
// the operation reports ErrNotReady, and once the dial resolves the
// stored settings are applied to the fresh socket. A failed dial or a
// failed operation immediately starts a new dial toward the original
// target; the error is reported exactly once.
//
// There is no delay between attempts. Pacing belongs to the caller (see
// pkg/connection), which keeps retry policy out of the transport.
//
// A RedialStream is not safe for concurrent use.
type RedialStream struct {
	target   netip.AddrPort
	settings Settings
	dial     dialFunc
	id       string
	logger   log.Logger

	state  redialState
	closed bool
}

// NewRedialStream creates a stream that dials target and redials it
// after every failure. The first dial starts in the background right
// away; the constructor never blocks and never fails. Connection
// progress is observed through the stream's operations.
func NewRedialStream(target netip.AddrPort, settings Settings) *RedialStream {
	return newRedialStream(target, settings, defaultDial)
}

func newRedialStream(target netip.AddrPort, settings Settings, dial dialFunc) *RedialStream {
	r := &RedialStream{
		target:   target,
		settings: settings,
		dial:     dial,
		id:       uuid.New().String(),
	}
	r.state = &connecting{attempt: startConnect(dial, target)}
	return r
}

// AdoptConn wraps an already-established connection in a RedialStream.
// The peer address and the current TCP_NODELAY value are read off the
// socket so that a later redial reproduces both.
func AdoptConn(conn *net.TCPConn) (*RedialStream, error) {
	tcpAddr, ok := conn.RemoteAddr().(*net.TCPAddr)
	if !ok {
		return nil, fmt.Errorf("adopt connection: %w", ErrNotConnected)
	}
	stream, err := NewTCPStream(conn)
	if err != nil {
		return nil, fmt.Errorf("adopt connection: %w", err)
	}
	noDelay, err := readNoDelay(stream)
	if err != nil {
		return nil, fmt.Errorf("adopt connection: %w", err)
	}
	return &RedialStream{
		target:   tcpAddr.AddrPort(),
		settings: Settings{NoDelay: noDelay},
		dial:     defaultDial,
		id:       uuid.New().String(),
		state:    &connected{stream: stream},
	}, nil
}

// readNoDelay reads the live TCP_NODELAY value off the socket.
func readNoDelay(stream *TCPStream) (bool, error) {
	var value int
	var gerr error
	err := stream.raw.Control(func(fd uintptr) {
		value, gerr = unix.GetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY)
	})
	if err != nil {
		return false, err
	}
	if gerr != nil {
		return false, gerr
	}
	return value != 0, nil
}

// ID returns the connection identifier used in event log records.
func (r *RedialStream) ID() string {
	return r.id
}

// SetLogger configures event logging for this stream.
// Pass nil to disable logging.
func (r *RedialStream) SetLogger(logger log.Logger) {
	r.logger = logger
}

// Target returns the endpoint this stream dials.
func (r *RedialStream) Target() netip.AddrPort {
	return r.target
}

// Settings returns the stored socket settings. They are reapplied to
// every freshly dialed socket.
func (r *RedialStream) Settings() Settings {
	return r.settings
}

// drive moves the connection forward. It returns the live socket when
// connected, ErrNotReady while a dial is pending, and the dial error
// after a failed attempt (a new attempt is already running by then).
func (r *RedialStream) drive() (*TCPStream, error) {
	switch st := r.state.(type) {
	case *connected:
		return st.stream, nil
	case *connecting:
		conn, err := st.attempt.Poll()
		if err != nil {
			if errors.Is(err, ErrNotReady) {
				return nil, ErrNotReady
			}
			r.logDial(err)
			r.reset("dial failed: " + err.Error())
			return nil, fmt.Errorf("connect %s: %w", r.target, err)
		}
		stream, err := NewTCPStream(conn)
		if err != nil {
			conn.Close()
			r.reset("socket setup failed: " + err.Error())
			return nil, fmt.Errorf("connect %s: %w", r.target, err)
		}
		r.state = &connected{stream: stream}
		r.logState("CONNECTING", "CONNECTED", "")
		if err := stream.applySettings(r.settings); err != nil {
			// The socket is up even though the settings failed. The
			// stream stays connected; the caller sees the error and
			// decides whether to close.
			r.logSettings(r.settings.NoDelay, err)
			return nil, fmt.Errorf("apply settings to %s: %w", r.target, err)
		}
		r.logSettings(r.settings.NoDelay, nil)
		return stream, nil
	default:
		panic("transport: invalid redial state")
	}
}

// reset abandons the current connection or attempt and immediately
// starts a new dial toward the original target.
func (r *RedialStream) reset(cause string) {
	switch st := r.state.(type) {
	case *connecting:
		st.attempt.abandon()
	case *connected:
		st.stream.Close()
	}
	r.state = &connecting{attempt: startConnect(r.dial, r.target)}
	r.logReset(cause)
}

// resetOnFailure starts a fresh dial after a transport failure and hands
// the original error back. Not-ready passes through untouched, and so
// does EOF: an orderly end of stream is not a failure, so whether to
// redial after one is the caller's decision.
func (r *RedialStream) resetOnFailure(err error) error {
	if err == nil || IsNotReady(err) || errors.Is(err, io.EOF) {
		return err
	}
	r.reset(err.Error())
	return err
}

// Read drives the connection and reads from the live socket. Failures
// other than not-ready and EOF trigger a redial after being reported.
func (r *RedialStream) Read(p []byte) (int, error) {
	if r.closed {
		return 0, net.ErrClosed
	}
	stream, err := r.drive()
	if err != nil {
		return 0, err
	}
	n, err := stream.Read(p)
	if err != nil {
		return n, r.resetOnFailure(err)
	}
	return n, nil
}

// Write drives the connection and writes to the live socket. Failures
// other than not-ready trigger a redial after being reported.
func (r *RedialStream) Write(p []byte) (int, error) {
	if r.closed {
		return 0, net.ErrClosed
	}
	stream, err := r.drive()
	if err != nil {
		return 0, err
	}
	n, err := stream.Write(p)
	if err != nil {
		return n, r.resetOnFailure(err)
	}
	return n, nil
}

// Flush drives the connection and flushes the live socket.
func (r *RedialStream) Flush() error {
	if r.closed {
		return net.ErrClosed
	}
	stream, err := r.drive()
	if err != nil {
		return err
	}
	return r.resetOnFailure(stream.Flush())
}

// PollRead reports whether a Read can make progress. While a dial is
// pending the answer is simply "no": polling is how callers wait out a
// reconnect, so a pending dial is not an error here.
func (r *RedialStream) PollRead() (bool, error) {
	if r.closed {
		return false, net.ErrClosed
	}
	stream, err := r.drive()
	if err != nil {
		if IsNotReady(err) {
			return false, nil
		}
		return false, err
	}
	ready, err := stream.PollRead()
	if err != nil {
		return false, r.resetOnFailure(err)
	}
	return ready, nil
}

// PollWrite reports whether a Write can make progress. A pending dial
// answers "no" without error, like PollRead.
func (r *RedialStream) PollWrite() (bool, error) {
	if r.closed {
		return false, net.ErrClosed
	}
	stream, err := r.drive()
	if err != nil {
		if IsNotReady(err) {
			return false, nil
		}
		return false, err
	}
	ready, err := stream.PollWrite()
	if err != nil {
		return false, r.resetOnFailure(err)
	}
	return ready, nil
}

// Shutdown closes the write half of the current connection. While a
// dial is pending there is no connection to shut down, so it reports
// ErrNotConnected and leaves the pending dial running.
func (r *RedialStream) Shutdown() error {
	if r.closed {
		return net.ErrClosed
	}
	st, ok := r.state.(*connected)
	if !ok {
		return ErrNotConnected
	}
	return r.resetOnFailure(st.stream.Shutdown())
}

// Close abandons a pending dial or closes the live socket. Further
// operations return net.ErrClosed.
func (r *RedialStream) Close() error {
	if r.closed {
		return net.ErrClosed
	}
	r.closed = true
	oldState := r.state.name()
	var err error
	switch st := r.state.(type) {
	case *connecting:
		st.attempt.abandon()
	case *connected:
		err = st.stream.Close()
	}
	r.logState(oldState, "CLOSED", "")
	return err
}

// SetNoDelay stores the low-latency option and, when connected, applies
// it to the live socket. While connecting, the value is stored for the
// next established connection and the call succeeds. When connected,
// the stored settings are only updated if the socket accepted the
// option, so a failed call leaves the reconnect behavior unchanged.
func (r *RedialStream) SetNoDelay(noDelay bool) error {
	if r.closed {
		return net.ErrClosed
	}
	st, ok := r.state.(*connected)
	if !ok {
		r.settings.NoDelay = noDelay
		return nil
	}
	if err := st.stream.SetNoDelay(noDelay); err != nil {
		r.logSettings(noDelay, err)
		return err
	}
	r.settings.NoDelay = noDelay
	r.logSettings(noDelay, nil)
	return nil
}

// RemoteAddr returns the peer address. While connecting this is the
// configured target, so callers always have an address to report.
func (r *RedialStream) RemoteAddr() net.Addr {
	if st, ok := r.state.(*connected); ok {
		return st.stream.RemoteAddr()
	}
	return net.TCPAddrFromAddrPort(r.target)
}

// LocalAddr returns the local address of the current connection. It
// fails with ErrNotConnected while a dial is pending: no socket is
// bound yet.
func (r *RedialStream) LocalAddr() (net.Addr, error) {
	if r.closed {
		return nil, net.ErrClosed
	}
	if st, ok := r.state.(*connected); ok {
		return st.stream.LocalAddr(), nil
	}
	return nil, ErrNotConnected
}

// SyscallConn exposes the raw connection of the current socket for
// socket-level inspection. It fails with ErrNotConnected while a dial
// is pending.
func (r *RedialStream) SyscallConn() (syscall.RawConn, error) {
	if r.closed {
		return nil, net.ErrClosed
	}
	if st, ok := r.state.(*connected); ok {
		return st.stream.SyscallConn()
	}
	return nil, ErrNotConnected
}

func (r *RedialStream) newEvent(category log.Category) log.Event {
	return log.Event{
		Timestamp:    time.Now(),
		ConnectionID: r.id,
		Backend:      log.BackendRedial,
		Category:     category,
		Target:       r.target.String(),
	}
}

func (r *RedialStream) logState(oldState, newState, reason string) {
	if r.logger == nil {
		return
	}
	ev := r.newEvent(log.CategoryState)
	ev.State = &log.StateEvent{OldState: oldState, NewState: newState, Reason: reason}
	r.logger.Log(ev)
}

func (r *RedialStream) logDial(err error) {
	if r.logger == nil {
		return
	}
	ev := r.newEvent(log.CategoryDial)
	ev.Dial = &log.DialEvent{}
	if err != nil {
		ev.Dial.Err = err.Error()
	}
	r.logger.Log(ev)
}

func (r *RedialStream) logReset(cause string) {
	if r.logger == nil {
		return
	}
	ev := r.newEvent(log.CategoryReset)
	ev.Reset = &log.ResetEvent{Cause: cause}
	r.logger.Log(ev)
}

func (r *RedialStream) logSettings(noDelay bool, err error) {
	if r.logger == nil {
		return
	}
	ev := r.newEvent(log.CategorySettings)
	ev.Settings = &log.SettingsEvent{NoDelay: noDelay}
	if err != nil {
		ev.Settings.Err = err.Error()
	}
	r.logger.Log(ev)
}

var _ syscall.Conn = (*RedialStream)(nil)
