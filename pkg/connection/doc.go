// Package connection paces blocking callers over the non-blocking
// transport layer.
//
// The transport package never waits: operations on a redialing stream
// return ErrNotReady whenever the socket cannot make progress, and a
// stream that loses its peer redials forever without delay between the
// caller's attempts. This package supplies the waiting. A Driver wraps
// a transport.Conn and turns the polling surface into context-aware
// blocking reads and writes; a Backoff spaces out retries after
// resolved failures; a Tracker derives a coarse connection state from
// the stream of operation results.
//
// # Retry Pacing
//
// The Driver distinguishes two kinds of unproductive outcome. A
// not-ready result carries no information beyond "try again soon", so
// the Driver sleeps a short fixed poll interval before the next
// attempt. A resolved failure (a refused dial, a reset connection)
// means the transport has already dropped its socket and begun
// redialing; the Driver sleeps an exponentially growing delay so that
// an unreachable peer is not hammered:
//
//	1s, 2s, 4s, 8s, 16s, 32s, 60s, 60s, ...
//
// Any successful operation resets the backoff to its initial delay.
//
// # Jitter
//
// Each backoff delay is stretched by a random factor of up to 25% so
// that many clients restarting at once do not reconnect in lockstep.
//
// # States
//
// A Tracker starts in StateConnecting and moves between
// StateConnected and StateReconnecting as results are observed.
// StateClosed is terminal. The tracker only sees what the caller
// feeds it through Observe, so it reflects the last observed result,
// not a live probe of the socket.
package connection
