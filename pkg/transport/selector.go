package transport

import (
	"net/netip"

	"github.com/unistream-io/unistream-go/pkg/log"
)

// Options configures a connection opened through Open.
type Options struct {
	// Settings holds the socket settings for TCP targets. Serial
	// targets ignore them.
	Settings Settings

	// Serial holds the port parameters for serial targets. TCP targets
	// ignore them. The zero value means 9600 baud, 8N1.
	Serial SerialConfig

	// Logger receives transport events. Nil disables event logging.
	Logger log.Logger
}

// Open connects to a target given as a string and picks the backend
// from its shape: an "ip:port" literal (IPv6 in brackets) opens a
// redialing TCP stream, anything else is treated as a serial device
// path.
//
// The two backends fail differently on purpose. A TCP target never
// fails here, even if nothing listens on it; the dial runs in the
// background and its outcome surfaces through the stream's operations,
// which also redial forever after failures. A serial target is opened
// before Open returns, so a bad device path fails immediately, and a
// serial stream never reopens its port.
//
// Hostnames are not resolved. "localhost:4321" is not an address
// literal and is handed to the serial backend, where it fails.
func Open(target string, opts Options) (*Conn, error) {
	if addr, err := netip.ParseAddrPort(target); err == nil {
		stream := NewRedialStream(addr, opts.Settings)
		if opts.Logger != nil {
			stream.SetLogger(opts.Logger)
		}
		return FromRedial(stream), nil
	}
	stream, err := OpenSerial(target, opts.Serial)
	if err != nil {
		return nil, err
	}
	return FromSerial(stream), nil
}
