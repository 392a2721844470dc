package transport

import (
	"errors"
	"os"
)

// Transport errors.
var (
	// ErrNotReady indicates the operation could not make progress without
	// blocking. The transport state is unchanged; retry after the next
	// readiness poll.
	ErrNotReady = errors.New("transport not ready")

	// ErrNotConnected indicates the transport has no established
	// connection yet.
	ErrNotConnected = errors.New("not connected")
)

// Closed transports return net.ErrClosed from every operation, matching
// the behavior of the net package itself.

// IsNotReady reports whether err means "try again after polling".
// Deadline expiry errors count as not-ready so that deadline-based
// non-blocking I/O folds into the same retry path.
func IsNotReady(err error) bool {
	return errors.Is(err, ErrNotReady) || errors.Is(err, os.ErrDeadlineExceeded)
}
