package transport

import "io"

// Kind identifies the backend behind a Conn.
type Kind uint8

const (
	// KindTCP is a plain, already-established TCP connection.
	KindTCP Kind = iota
	// KindRedial is a TCP connection that redials after failures.
	KindRedial
	// KindSerial is a local serial port.
	KindSerial
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindTCP:
		return "TCP"
	case KindRedial:
		return "REDIAL"
	case KindSerial:
		return "SERIAL"
	default:
		return "UNKNOWN"
	}
}

// Conn is one of the three concrete transports behind a single type.
// Every method forwards to the wrapped stream and adds nothing: a Conn
// holding a SerialStream behaves exactly like that SerialStream, and a
// Conn holding a RedialStream keeps its redial behavior. Code that
// needs backend specifics can switch on Kind and unwrap.
type Conn struct {
	kind   Kind
	tcp    *TCPStream
	redial *RedialStream
	serial *SerialStream
}

// FromTCP wraps a plain TCP stream.
func FromTCP(s *TCPStream) *Conn {
	return &Conn{kind: KindTCP, tcp: s}
}

// FromRedial wraps a redialing TCP stream.
func FromRedial(s *RedialStream) *Conn {
	return &Conn{kind: KindRedial, redial: s}
}

// FromSerial wraps a serial port stream.
func FromSerial(s *SerialStream) *Conn {
	return &Conn{kind: KindSerial, serial: s}
}

// Kind reports which backend this Conn wraps.
func (c *Conn) Kind() Kind {
	return c.kind
}

// TCP returns the wrapped TCP stream, if that is what this Conn holds.
func (c *Conn) TCP() (*TCPStream, bool) {
	return c.tcp, c.kind == KindTCP
}

// Redial returns the wrapped redialing stream, if that is what this
// Conn holds.
func (c *Conn) Redial() (*RedialStream, bool) {
	return c.redial, c.kind == KindRedial
}

// Serial returns the wrapped serial stream, if that is what this Conn
// holds.
func (c *Conn) Serial() (*SerialStream, bool) {
	return c.serial, c.kind == KindSerial
}

func (c *Conn) Read(p []byte) (int, error) {
	switch c.kind {
	case KindTCP:
		return c.tcp.Read(p)
	case KindRedial:
		return c.redial.Read(p)
	case KindSerial:
		return c.serial.Read(p)
	default:
		panic("transport: unknown conn kind")
	}
}

func (c *Conn) Write(p []byte) (int, error) {
	switch c.kind {
	case KindTCP:
		return c.tcp.Write(p)
	case KindRedial:
		return c.redial.Write(p)
	case KindSerial:
		return c.serial.Write(p)
	default:
		panic("transport: unknown conn kind")
	}
}

func (c *Conn) Flush() error {
	switch c.kind {
	case KindTCP:
		return c.tcp.Flush()
	case KindRedial:
		return c.redial.Flush()
	case KindSerial:
		return c.serial.Flush()
	default:
		panic("transport: unknown conn kind")
	}
}

func (c *Conn) Shutdown() error {
	switch c.kind {
	case KindTCP:
		return c.tcp.Shutdown()
	case KindRedial:
		return c.redial.Shutdown()
	case KindSerial:
		return c.serial.Shutdown()
	default:
		panic("transport: unknown conn kind")
	}
}

func (c *Conn) Close() error {
	switch c.kind {
	case KindTCP:
		return c.tcp.Close()
	case KindRedial:
		return c.redial.Close()
	case KindSerial:
		return c.serial.Close()
	default:
		panic("transport: unknown conn kind")
	}
}

func (c *Conn) PollRead() (bool, error) {
	switch c.kind {
	case KindTCP:
		return c.tcp.PollRead()
	case KindRedial:
		return c.redial.PollRead()
	case KindSerial:
		return c.serial.PollRead()
	default:
		panic("transport: unknown conn kind")
	}
}

func (c *Conn) PollWrite() (bool, error) {
	switch c.kind {
	case KindTCP:
		return c.tcp.PollWrite()
	case KindRedial:
		return c.redial.PollWrite()
	case KindSerial:
		return c.serial.PollWrite()
	default:
		panic("transport: unknown conn kind")
	}
}

var _ io.ReadWriteCloser = (*Conn)(nil)
