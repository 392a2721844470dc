package transport

import "io"

// Stream is the contract shared by every transport backend.
//
// All methods are non-blocking: Read, Write and Flush return ErrNotReady
// instead of waiting, and PollRead/PollWrite answer readiness questions
// without transferring data.
type Stream interface {
	io.Reader
	io.Writer

	// Flush pushes buffered outgoing data toward the peer.
	Flush() error

	// Shutdown signals that no further data will be sent. On TCP this
	// closes the write half; serial lines have no half-close, so the
	// transmit buffer is drained instead.
	Shutdown() error

	// Close releases the transport. Further operations return
	// net.ErrClosed.
	Close() error

	// PollRead reports whether a Read can make progress right now.
	PollRead() (bool, error)

	// PollWrite reports whether a Write can make progress right now.
	PollWrite() (bool, error)
}

// Compile-time checks that every backend and the union satisfy Stream.
var (
	_ Stream = (*TCPStream)(nil)
	_ Stream = (*RedialStream)(nil)
	_ Stream = (*SerialStream)(nil)
	_ Stream = (*Conn)(nil)
)
