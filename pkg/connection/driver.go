package connection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/unistream-io/unistream-go/pkg/transport"
)

// DefaultPollInterval is the sleep between attempts while the
// transport reports not-ready.
const DefaultPollInterval = 5 * time.Millisecond

// Driver turns the non-blocking transport surface into blocking,
// context-aware operations.
//
// Not-ready results are retried after a short poll interval. Resolved
// failures are retried after an exponentially growing backoff delay,
// since the transport has already started redialing underneath. A
// closed connection ends every operation with net.ErrClosed.
//
// A Driver is not safe for concurrent use.
type Driver struct {
	conn    *transport.Conn
	backoff *Backoff
	poll    time.Duration
}

// DriverConfig overrides the default driver parameters.
type DriverConfig struct {
	// Backoff paces retries after resolved failures. Nil means a
	// default Backoff.
	Backoff *Backoff

	// PollInterval is the sleep between not-ready attempts.
	// Zero means DefaultPollInterval.
	PollInterval time.Duration
}

// NewDriver returns a Driver over conn with default pacing.
func NewDriver(conn *transport.Conn) *Driver {
	return NewDriverWithConfig(conn, DriverConfig{})
}

// NewDriverWithConfig returns a Driver over conn with the given
// pacing parameters.
func NewDriverWithConfig(conn *transport.Conn, config DriverConfig) *Driver {
	backoff := config.Backoff
	if backoff == nil {
		backoff = NewBackoff()
	}
	poll := config.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Driver{conn: conn, backoff: backoff, poll: poll}
}

// Conn returns the wrapped connection.
func (d *Driver) Conn() *transport.Conn {
	return d.conn
}

// Read blocks until at least one byte has been read, the stream ends,
// the connection is closed, or ctx is done.
func (d *Driver) Read(ctx context.Context, p []byte) (int, error) {
	var lastErr error
	for {
		n, err := d.conn.Read(p)
		if err == nil {
			d.backoff.Reset()
			return n, nil
		}
		if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
			return n, err
		}
		delay := d.poll
		if !transport.IsNotReady(err) {
			lastErr = err
			delay = d.backoff.Next()
		}
		if serr := d.sleep(ctx, delay); serr != nil {
			return 0, ctxError(serr, lastErr)
		}
	}
}

// Write blocks until all of p has been written, the connection is
// closed, or ctx is done. It returns the number of bytes written.
func (d *Driver) Write(ctx context.Context, p []byte) (int, error) {
	total := 0
	var lastErr error
	for total < len(p) {
		n, err := d.conn.Write(p[total:])
		total += n
		if err == nil {
			continue
		}
		if errors.Is(err, net.ErrClosed) {
			return total, err
		}
		delay := d.poll
		if !transport.IsNotReady(err) {
			lastErr = err
			delay = d.backoff.Next()
		}
		if serr := d.sleep(ctx, delay); serr != nil {
			return total, ctxError(serr, lastErr)
		}
	}
	d.backoff.Reset()
	return total, nil
}

// Flush blocks until buffered output has been handed to the kernel.
func (d *Driver) Flush(ctx context.Context) error {
	return d.retry(ctx, d.conn.Flush)
}

// WaitReadable blocks until the connection has bytes to read.
func (d *Driver) WaitReadable(ctx context.Context) error {
	return d.wait(ctx, d.conn.PollRead)
}

// WaitWritable blocks until the connection can accept bytes.
func (d *Driver) WaitWritable(ctx context.Context) error {
	return d.wait(ctx, d.conn.PollWrite)
}

func (d *Driver) retry(ctx context.Context, op func() error) error {
	var lastErr error
	for {
		err := op()
		if err == nil {
			d.backoff.Reset()
			return nil
		}
		if errors.Is(err, net.ErrClosed) {
			return err
		}
		delay := d.poll
		if !transport.IsNotReady(err) {
			lastErr = err
			delay = d.backoff.Next()
		}
		if serr := d.sleep(ctx, delay); serr != nil {
			return ctxError(serr, lastErr)
		}
	}
}

func (d *Driver) wait(ctx context.Context, poll func() (bool, error)) error {
	var lastErr error
	for {
		ready, err := poll()
		if err == nil && ready {
			d.backoff.Reset()
			return nil
		}
		if errors.Is(err, net.ErrClosed) {
			return err
		}
		delay := d.poll
		if err != nil && !transport.IsNotReady(err) {
			lastErr = err
			delay = d.backoff.Next()
		}
		if serr := d.sleep(ctx, delay); serr != nil {
			return ctxError(serr, lastErr)
		}
	}
}

func (d *Driver) sleep(ctx context.Context, delay time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

func ctxError(err, lastErr error) error {
	if lastErr != nil {
		return fmt.Errorf("%w (last transport error: %v)", err, lastErr)
	}
	return err
}
