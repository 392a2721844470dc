// Command unistream-echo is a TCP echo server for exercising the
// transport layer.
//
// It echoes every byte it receives, optionally announces itself via
// mDNS so unistream-probe can find it with `browse`, and can drop
// connections on purpose so reconnect behavior can be watched live.
//
// Usage:
//
//	unistream-echo [flags]
//
// Flags:
//
//	-port int          Listen port (default 4840)
//	-instance string   mDNS instance name (empty disables advertising)
//	-nodelay           Set TCP_NODELAY on accepted connections
//	-drop-after int    Drop each connection after N echoed bytes (0 disables)
//	-event-log string  File path for transport event logging (CBOR format)
//
// Examples:
//
//	# Plain echo server
//	unistream-echo -port 4840
//
//	# Announce via mDNS and log events
//	unistream-echo -instance bench-01 -event-log bench.ulog
//
//	# Drop every connection after 1 KiB to provoke redials
//	unistream-echo -drop-after 1024
package main

import (
	"errors"
	"flag"
	"io"
	stdlog "log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/unistream-io/unistream-go/pkg/discovery"
	"github.com/unistream-io/unistream-go/pkg/log"
	"github.com/unistream-io/unistream-go/pkg/version"
)

var (
	port      = flag.Int("port", 4840, "Listen port")
	instance  = flag.String("instance", "", "mDNS instance name (empty disables advertising)")
	noDelay   = flag.Bool("nodelay", false, "Set TCP_NODELAY on accepted connections")
	dropAfter = flag.Int64("drop-after", 0, "Drop each connection after N echoed bytes (0 disables)")
	eventLog  = flag.String("event-log", "", "File path for transport event logging (CBOR format)")
)

func main() {
	flag.Parse()
	stdlog.SetFlags(stdlog.Ltime | stdlog.Lmicroseconds)

	logger, closeLogger, err := openEventLog(*eventLog)
	if err != nil {
		stdlog.Fatalf("Failed to open event log: %v", err)
	}
	defer closeLogger()

	listener, err := net.ListenTCP("tcp", &net.TCPAddr{Port: *port})
	if err != nil {
		stdlog.Fatalf("Failed to listen: %v", err)
	}
	stdlog.Printf("Echo server listening on %s", listener.Addr())

	if *instance != "" {
		txt := map[string]string{discovery.TXTKeyVersion: version.Current}
		if *noDelay {
			txt[discovery.TXTKeyLowLatency] = "1"
		}
		adv, err := discovery.Advertise(*instance, *port, txt)
		if err != nil {
			stdlog.Fatalf("Failed to advertise: %v", err)
		}
		defer adv.Shutdown()
		stdlog.Printf("Advertising as %q (%s.%s)", *instance, discovery.ServiceType, discovery.Domain)
	}

	go acceptLoop(listener, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	stdlog.Printf("Received signal: %v", sig)
	listener.Close()
	stdlog.Println("Goodbye!")
}

// openEventLog returns the event logger for the given path, or a nil
// logger when no path was configured.
func openEventLog(path string) (log.Logger, func(), error) {
	if path == "" {
		return log.NoopLogger{}, func() {}, nil
	}
	fl, err := log.NewFileLogger(path)
	if err != nil {
		return nil, nil, err
	}
	return fl, func() { fl.Close() }, nil
}

func acceptLoop(listener *net.TCPListener, logger log.Logger) {
	for {
		conn, err := listener.AcceptTCP()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				stdlog.Printf("Accept failed: %v", err)
			}
			return
		}
		go serve(conn, logger)
	}
}

// serve echoes until the peer goes away or the drop budget is spent.
func serve(conn *net.TCPConn, logger log.Logger) {
	defer conn.Close()

	id := uuid.New().String()
	remote := conn.RemoteAddr().String()
	stdlog.Printf("[%s] Connection from %s", shortID(id), remote)

	if *noDelay {
		if err := conn.SetNoDelay(true); err != nil {
			stdlog.Printf("[%s] SetNoDelay failed: %v", shortID(id), err)
		}
	}

	buf := make([]byte, 4096)
	var echoed int64
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			logIO(logger, id, remote, log.DirectionIn, n)
			if _, werr := conn.Write(buf[:n]); werr != nil {
				logError(logger, id, remote, "write", werr)
				stdlog.Printf("[%s] Write failed: %v", shortID(id), werr)
				return
			}
			logIO(logger, id, remote, log.DirectionOut, n)
			echoed += int64(n)
		}
		if err != nil {
			if err == io.EOF {
				stdlog.Printf("[%s] Closed by peer after %d bytes", shortID(id), echoed)
			} else {
				logError(logger, id, remote, "read", err)
				stdlog.Printf("[%s] Read failed: %v", shortID(id), err)
			}
			return
		}
		if *dropAfter > 0 && echoed >= *dropAfter {
			stdlog.Printf("[%s] Dropping connection after %d bytes", shortID(id), echoed)
			return
		}
	}
}

func logIO(logger log.Logger, id, remote string, dir log.Direction, n int) {
	logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: id,
		Backend:      log.BackendTCP,
		Category:     log.CategoryIO,
		Target:       remote,
		IO:           &log.IOEvent{Direction: dir, Bytes: n},
	})
}

func logError(logger log.Logger, id, remote, op string, err error) {
	logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: id,
		Backend:      log.BackendTCP,
		Category:     log.CategoryError,
		Target:       remote,
		Error:        &log.ErrorEvent{Op: op, Message: err.Error()},
	})
}

func shortID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}
