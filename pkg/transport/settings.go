package transport

// Settings holds socket options applied to TCP transports.
//
// A RedialStream keeps its Settings across reconnects and reapplies them
// to every freshly dialed socket before the caller sees it as connected.
type Settings struct {
	// NoDelay disables Nagle's algorithm (TCP_NODELAY) for low-latency
	// traffic. False leaves the OS default, which buffers small writes.
	NoDelay bool
}
