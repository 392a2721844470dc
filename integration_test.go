package unistream_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/unistream-io/unistream-go/internal/testharness"
	"github.com/unistream-io/unistream-go/pkg/connection"
	"github.com/unistream-io/unistream-go/pkg/discovery"
	"github.com/unistream-io/unistream-go/pkg/log"
	"github.com/unistream-io/unistream-go/pkg/transport"
)

// testDriver wraps conn with pacing fast enough for loopback tests.
func testDriver(conn *transport.Conn) *connection.Driver {
	return connection.NewDriverWithConfig(conn, connection.DriverConfig{
		Backoff: connection.NewBackoffWithConfig(connection.BackoffConfig{
			Initial:    5 * time.Millisecond,
			Max:        25 * time.Millisecond,
			Multiplier: 2,
			Jitter:     0,
		}),
	})
}

// echoOnce writes msg and reads it back within timeout.
func echoOnce(t *testing.T, driver *connection.Driver, msg []byte, timeout time.Duration) error {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if _, err := driver.Write(ctx, msg); err != nil {
		return err
	}

	buf := make([]byte, len(msg))
	total := 0
	for total < len(buf) {
		n, err := driver.Read(ctx, buf[total:])
		if err != nil {
			return err
		}
		total += n
	}
	if !bytes.Equal(buf, msg) {
		t.Fatalf("echo mismatch: sent %q, got %q", msg, buf)
	}
	return nil
}

// waitForEcho probes with single-byte round trips until one succeeds.
// A probe written before the transport notices a drop can be lost, so
// failures just mean "probe again".
func waitForEcho(t *testing.T, driver *connection.Driver, deadline time.Duration) {
	t.Helper()

	limit := time.Now().Add(deadline)
	for time.Now().Before(limit) {
		if err := echoOnce(t, driver, []byte("x"), 500*time.Millisecond); err == nil {
			return
		}
	}
	t.Fatalf("connection did not recover within %s", deadline)
}

// tcpNoDelay reads TCP_NODELAY off the live socket.
func tcpNoDelay(t *testing.T, conn *transport.Conn) int {
	t.Helper()

	rd, ok := conn.Redial()
	if !ok {
		t.Fatal("expected a redialing connection")
	}
	raw, err := rd.SyscallConn()
	if err != nil {
		t.Fatalf("SyscallConn failed: %v", err)
	}

	value := -1
	var optErr error
	if err := raw.Control(func(fd uintptr) {
		value, optErr = unix.GetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY)
	}); err != nil {
		t.Fatalf("Control failed: %v", err)
	}
	if optErr != nil {
		t.Fatalf("getsockopt failed: %v", optErr)
	}
	return value
}

// TestE2E_EchoReconnectWithEventLog runs the full client path: open a
// target through the selector with NoDelay and a file logger, echo
// through the driver, drop the connection server-side, recover, and
// verify the socket option came back on the fresh socket and the event
// log recorded the whole story.
func TestE2E_EchoReconnectWithEventLog(t *testing.T) {
	server := testharness.NewEchoServer(t)

	logPath := filepath.Join(t.TempDir(), "events.ulog")
	logger, err := log.NewFileLogger(logPath)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	conn, err := transport.Open(server.AddrString(), transport.Options{
		Settings: transport.Settings{NoDelay: true},
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	driver := testDriver(conn)

	if err := echoOnce(t, driver, []byte("hello unistream"), 5*time.Second); err != nil {
		t.Fatalf("initial echo failed: %v", err)
	}
	if got := tcpNoDelay(t, conn); got == 0 {
		t.Error("expected TCP_NODELAY enabled on initial socket")
	}

	server.DropConns()
	waitForEcho(t, driver, 10*time.Second)

	if err := echoOnce(t, driver, []byte("hello again"), 5*time.Second); err != nil {
		t.Fatalf("echo after reconnect failed: %v", err)
	}
	if got := tcpNoDelay(t, conn); got == 0 {
		t.Error("expected TCP_NODELAY reapplied after reconnect")
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("logger Close failed: %v", err)
	}

	// The log must show two connects (initial and post-drop), at least
	// one reset, and the NoDelay application on each fresh socket.
	reader, err := log.NewReader(logPath)
	if err != nil {
		t.Fatalf("failed to open event log: %v", err)
	}
	defer reader.Close()

	connects, resets, settingsApplied := 0, 0, 0
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("failed to read event: %v", err)
		}
		if event.State != nil && event.State.NewState == "CONNECTED" {
			connects++
		}
		if event.Reset != nil {
			resets++
		}
		if event.Settings != nil && event.Settings.NoDelay && event.Settings.Err == "" {
			settingsApplied++
		}
	}

	if connects < 2 {
		t.Errorf("expected at least 2 connects in event log, got %d", connects)
	}
	if resets < 1 {
		t.Errorf("expected at least 1 reset in event log, got %d", resets)
	}
	if settingsApplied < 2 {
		t.Errorf("expected NoDelay applied at least twice, got %d", settingsApplied)
	}
}

// TestE2E_ServerRestart takes the whole server down, watches the
// client report dial failures while retrying, then brings a new
// listener up on the same port and watches the client find it.
func TestE2E_ServerRestart(t *testing.T) {
	server := testharness.NewEchoServer(t)
	addr := server.Addr()

	conn, err := transport.Open(addr.String(), transport.Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer conn.Close()
	driver := testDriver(conn)

	if err := echoOnce(t, driver, []byte("ping"), 5*time.Second); err != nil {
		t.Fatalf("initial echo failed: %v", err)
	}

	server.Close()

	// With the listener gone the redials resolve to refused, and the
	// driver surfaces that as the last transport error when a deadline
	// runs out.
	sawRefused := false
	for range 40 {
		ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
		_, err := driver.Read(ctx, make([]byte, 16))
		cancel()
		if err != nil && strings.Contains(err.Error(), "connection refused") {
			sawRefused = true
			break
		}
	}
	if !sawRefused {
		t.Fatal("expected a read to report connection refused while the server was down")
	}

	// Restart on the same port.
	listener, err := net.ListenTCP("tcp", net.TCPAddrFromAddrPort(addr))
	if err != nil {
		t.Fatalf("failed to rebind %s: %v", addr, err)
	}
	defer listener.Close()
	go func() {
		for {
			c, err := listener.Accept()
			if err != nil {
				return
			}
			go func() {
				defer c.Close()
				io.Copy(c, c)
			}()
		}
	}()

	waitForEcho(t, driver, 10*time.Second)
}

// TestE2E_AdoptConn dials synchronously and hands the socket to the
// redialing transport, which keeps serving it.
func TestE2E_AdoptConn(t *testing.T) {
	server := testharness.NewEchoServer(t)

	tcpConn, err := net.DialTCP("tcp", nil, net.TCPAddrFromAddrPort(server.Addr()))
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}

	stream, err := transport.AdoptConn(tcpConn)
	if err != nil {
		t.Fatalf("AdoptConn failed: %v", err)
	}
	conn := transport.FromRedial(stream)
	defer conn.Close()

	if stream.ID() == "" {
		t.Error("expected a connection ID")
	}
	if got := stream.Target(); got != server.Addr() {
		t.Errorf("expected target %s, got %s", server.Addr(), got)
	}

	driver := testDriver(conn)
	if err := echoOnce(t, driver, []byte("adopted"), 5*time.Second); err != nil {
		t.Fatalf("echo over adopted connection failed: %v", err)
	}

	// The adopted socket reconnects like any dialed one.
	server.DropConns()
	waitForEcho(t, driver, 10*time.Second)
}

// TestE2E_Discovery advertises an instance over mDNS and finds it by
// name. Multicast is not available everywhere, so environments without
// it skip instead of failing.
func TestE2E_Discovery(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	instance := fmt.Sprintf("e2e-probe-%d", time.Now().UnixNano()%1_000_000)
	adv, err := discovery.Advertise(instance, 4840, map[string]string{
		discovery.TXTKeyVersion: "1.0",
	})
	if err != nil {
		t.Skipf("mDNS advertise unavailable: %v", err)
	}
	defer adv.Shutdown()

	browser, err := discovery.NewMDNSBrowser(discovery.BrowserConfig{})
	if err != nil {
		t.Fatalf("failed to create browser: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	ep, err := discovery.FindInstance(ctx, browser, instance, 10*time.Second)
	if err != nil {
		t.Skipf("mDNS browse found nothing (multicast unavailable?): %v", err)
	}

	if ep.Instance != instance {
		t.Errorf("expected instance %q, got %q", instance, ep.Instance)
	}
	if ep.Port != 4840 {
		t.Errorf("expected port 4840, got %d", ep.Port)
	}
	if got := ep.Txt[discovery.TXTKeyVersion]; got != "1.0" {
		t.Errorf("expected version TXT 1.0, got %q", got)
	}
}
