// Package transport provides a unified byte-stream transport over TCP or
// serial lines.
//
// The package is built around three backends sharing one contract:
//   - TCPStream: a plain TCP connection
//   - RedialStream: a TCP connection that redials its target forever
//   - SerialStream: a local serial device
//
// Conn wraps exactly one backend and forwards every operation to it
// unchanged, so callers can hold a single value regardless of how the
// peer is reached. Open picks the backend from the target string: an
// "ip:port" endpoint yields a redialing TCP transport, anything else is
// opened as a serial device path.
//
// # Transport Stack
//
//	┌────────────────────────────────┐
//	│        Application bytes       │
//	├────────────────────────────────┤
//	│     Conn (tagged dispatch)     │
//	├──────────┬──────────┬──────────┤
//	│   TCP    │  Redial  │  Serial  │
//	└──────────┴──────────┴──────────┘
//
// # Non-Blocking Discipline
//
// No operation in this package ever blocks. Read, Write and Flush return
// ErrNotReady when they cannot make progress; PollRead and PollWrite
// report readiness without transferring data. Callers poll at their own
// pace, typically through the pkg/connection helpers.
//
// RedialStream drives its connection forward on every operation. While a
// dial is pending, operations report ErrNotReady. A failed dial or a
// failed I/O operation starts a fresh dial toward the original target
// immediately; the error is reported once and the next operation works
// against the new attempt. Retry pacing is deliberately left to the
// caller so that one policy is not baked into every user of the package.
package transport
