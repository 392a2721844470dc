package transport

import (
	"context"
	"net"
	"net/netip"
)

// dialFunc establishes a TCP connection to target. It must honor ctx
// cancellation. RedialStream uses net.Dialer by default; tests inject
// scripted implementations.
type dialFunc func(ctx context.Context, target netip.AddrPort) (*net.TCPConn, error)

// defaultDial dials target with the zero net.Dialer. The target is a
// literal address, so no name resolution happens.
func defaultDial(ctx context.Context, target netip.AddrPort) (*net.TCPConn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", target.String())
	if err != nil {
		return nil, err
	}
	return conn.(*net.TCPConn), nil
}

// dialResult carries the outcome of one dial.
type dialResult struct {
	conn *net.TCPConn
	err  error
}

// connectAttempt is one in-flight dial owned by a RedialStream in the
// connecting state. The dial runs on its own goroutine; the owner
// observes it only through Poll, which never blocks.
//
// A connectAttempt is not safe for concurrent use. The owning stream
// calls Poll and abandon from a single goroutine.
type connectAttempt struct {
	cancel context.CancelFunc
	ch     chan dialResult
}

// startConnect begins dialing target in the background.
func startConnect(dial dialFunc, target netip.AddrPort) *connectAttempt {
	ctx, cancel := context.WithCancel(context.Background())
	a := &connectAttempt{
		cancel: cancel,
		ch:     make(chan dialResult),
	}
	go func() {
		conn, err := dial(ctx, target)
		select {
		case a.ch <- dialResult{conn: conn, err: err}:
		case <-ctx.Done():
			// Abandoned. A socket that arrived after the owner gave up
			// must not leak.
			if conn != nil {
				conn.Close()
			}
		}
	}()
	return a
}

// Poll checks the attempt without blocking. It returns ErrNotReady while
// the dial is still in flight, and the socket or dial error once it has
// resolved. An attempt resolves at most once.
func (a *connectAttempt) Poll() (*net.TCPConn, error) {
	select {
	case res := <-a.ch:
		a.cancel()
		return res.conn, res.err
	default:
		return nil, ErrNotReady
	}
}

// abandon cancels the attempt. If the dial later produces a socket, the
// dial goroutine closes it.
func (a *connectAttempt) abandon() {
	a.cancel()
}
