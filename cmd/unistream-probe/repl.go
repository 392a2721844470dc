package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/google/uuid"

	"github.com/unistream-io/unistream-go/pkg/connection"
	"github.com/unistream-io/unistream-go/pkg/discovery"
	"github.com/unistream-io/unistream-go/pkg/log"
	"github.com/unistream-io/unistream-go/pkg/transport"
)

const (
	sendTimeout = 10 * time.Second
	recvTimeout = 2 * time.Second
)

// repl handles the interactive session.
type repl struct {
	cfg    probeConfig
	logger log.Logger
	rl     *readline.Instance

	// Per-connection state, nil while closed.
	conn    *transport.Conn
	driver  *connection.Driver
	tracker *connection.Tracker
	connID  string
	target  string
}

func newREPL(cfg probeConfig, logger log.Logger) (*repl, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "probe> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &repl{cfg: cfg, logger: logger, rl: rl}, nil
}

// Run starts the interactive command loop.
func (r *repl) Run(ctx context.Context, cancel context.CancelFunc) {
	defer r.rl.Close()
	defer r.closeConn()

	r.printHelp()
	if r.cfg.target != "" {
		r.cmdOpen(nil)
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := r.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(r.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			r.printHelp()

		case "open", "o":
			r.cmdOpen(args)

		case "send", "s":
			r.cmdSend(args)

		case "recv", "r":
			r.cmdRecv(args)

		case "status":
			r.cmdStatus()

		case "nodelay":
			r.cmdNoDelay(args)

		case "browse", "b":
			r.cmdBrowse(ctx, args)

		case "close":
			r.cmdClose()

		case "quit", "exit", "q":
			fmt.Fprintln(r.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(r.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (r *repl) printHelp() {
	fmt.Fprintln(r.rl.Stdout(), `
Commands:
  open [target]      - Open a connection (ip:port or serial device path)
  send <text>        - Send text over the connection
  recv [seconds]     - Receive data (default wait: 2s)
  status             - Show connection status
  nodelay on|off     - Toggle TCP_NODELAY
  browse [seconds]   - Browse for mDNS endpoints (default window: 3s)
  close              - Close the connection
  help               - Show this help
  quit               - Exit`)
}

func (r *repl) cmdOpen(args []string) {
	target := r.cfg.target
	if len(args) > 0 {
		target = args[0]
	}
	if target == "" {
		fmt.Fprintln(r.rl.Stdout(), "No target (use 'open <target>' or -target)")
		return
	}

	if r.conn != nil {
		r.closeConn()
		fmt.Fprintln(r.rl.Stdout(), "Closed previous connection")
	}

	conn, connID, err := r.openConn(target)
	if err != nil {
		fmt.Fprintf(r.rl.Stdout(), "Open failed: %v\n", err)
		return
	}

	r.conn = conn
	r.connID = connID
	r.target = target
	r.driver = connection.NewDriver(conn)
	r.tracker = connection.NewTracker()
	r.tracker.OnChange(func(oldState, newState connection.State) {
		fmt.Fprintf(r.rl.Stdout(), "State: %s -> %s\n", oldState, newState)
	})

	switch conn.Kind() {
	case transport.KindRedial:
		fmt.Fprintf(r.rl.Stdout(), "Opened %s (redialing TCP, conn %s)\n", target, shortID(connID))
	case transport.KindSerial:
		fmt.Fprintf(r.rl.Stdout(), "Opened %s (serial)\n", target)
	default:
		fmt.Fprintf(r.rl.Stdout(), "Opened %s (%s)\n", target, conn.Kind())
	}
}

// openConn builds the transport for target. Network targets normally
// go through the lazy selector; with -eager the first dial happens
// here and the connected socket is adopted into a redialing stream.
func (r *repl) openConn(target string) (*transport.Conn, string, error) {
	if addr, err := netip.ParseAddrPort(target); err == nil && r.cfg.eager {
		tcpConn, err := net.DialTCP("tcp", nil, net.TCPAddrFromAddrPort(addr))
		if err != nil {
			return nil, "", err
		}
		stream, err := transport.AdoptConn(tcpConn)
		if err != nil {
			tcpConn.Close()
			return nil, "", err
		}
		stream.SetLogger(r.logger)
		if r.cfg.opts.Settings.NoDelay {
			if err := stream.SetNoDelay(true); err != nil {
				fmt.Fprintf(r.rl.Stdout(), "Warning: SetNoDelay failed: %v\n", err)
			}
		}
		return transport.FromRedial(stream), stream.ID(), nil
	}

	conn, err := transport.Open(target, r.cfg.opts)
	if err != nil {
		return nil, "", err
	}
	if rd, ok := conn.Redial(); ok {
		return conn, rd.ID(), nil
	}
	return conn, uuid.New().String(), nil
}

func (r *repl) cmdSend(args []string) {
	if r.driver == nil {
		fmt.Fprintln(r.rl.Stdout(), "Not connected (use 'open')")
		return
	}
	if len(args) == 0 {
		fmt.Fprintln(r.rl.Stdout(), "Usage: send <text>")
		return
	}
	data := []byte(strings.Join(args, " "))

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	n, err := r.driver.Write(ctx, data)
	r.logIO(log.DirectionOut, n, err)
	r.observe(err)
	if err != nil {
		fmt.Fprintf(r.rl.Stdout(), "Send failed after %d bytes: %v\n", n, err)
		return
	}
	fmt.Fprintf(r.rl.Stdout(), "Sent %d bytes\n", n)
}

func (r *repl) cmdRecv(args []string) {
	if r.driver == nil {
		fmt.Fprintln(r.rl.Stdout(), "Not connected (use 'open')")
		return
	}

	wait := recvTimeout
	if len(args) > 0 {
		secs, err := strconv.Atoi(args[0])
		if err != nil || secs <= 0 {
			fmt.Fprintln(r.rl.Stdout(), "Usage: recv [seconds]")
			return
		}
		wait = time.Duration(secs) * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()

	buf := make([]byte, 4096)
	n, err := r.driver.Read(ctx, buf)
	if n > 0 {
		r.logIO(log.DirectionIn, n, nil)
	}
	r.observe(err)
	switch {
	case err == nil:
		fmt.Fprintf(r.rl.Stdout(), "Received %d bytes: %q\n", n, buf[:n])
	case errors.Is(err, io.EOF):
		fmt.Fprintln(r.rl.Stdout(), "Stream closed by peer (EOF)")
	case errors.Is(err, context.DeadlineExceeded):
		fmt.Fprintf(r.rl.Stdout(), "No data within %s\n", wait)
	default:
		fmt.Fprintf(r.rl.Stdout(), "Receive failed: %v\n", err)
	}
}

func (r *repl) cmdStatus() {
	out := r.rl.Stdout()
	if r.conn == nil {
		fmt.Fprintln(out, "Not connected")
		return
	}

	fmt.Fprintf(out, "Target:  %s\n", r.target)
	fmt.Fprintf(out, "Kind:    %s\n", r.conn.Kind())
	fmt.Fprintf(out, "State:   %s\n", r.tracker.State())

	if rd, ok := r.conn.Redial(); ok {
		fmt.Fprintf(out, "Conn ID: %s\n", shortID(rd.ID()))
		fmt.Fprintf(out, "NoDelay: %v\n", rd.Settings().NoDelay)
		if local, err := rd.LocalAddr(); err == nil {
			fmt.Fprintf(out, "Local:   %s\n", local)
		} else {
			fmt.Fprintln(out, "Local:   (not connected)")
		}
	}
	if s, ok := r.conn.Serial(); ok {
		fmt.Fprintf(out, "Device:  %s\n", s.Path())
	}
}

func (r *repl) cmdNoDelay(args []string) {
	if r.conn == nil {
		fmt.Fprintln(r.rl.Stdout(), "Not connected (use 'open')")
		return
	}
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		fmt.Fprintln(r.rl.Stdout(), "Usage: nodelay on|off")
		return
	}
	enable := args[0] == "on"

	var err error
	switch r.conn.Kind() {
	case transport.KindRedial:
		rd, _ := r.conn.Redial()
		err = rd.SetNoDelay(enable)
	case transport.KindTCP:
		tcp, _ := r.conn.TCP()
		err = tcp.SetNoDelay(enable)
	default:
		fmt.Fprintln(r.rl.Stdout(), "Not applicable to serial connections")
		return
	}
	if err != nil {
		fmt.Fprintf(r.rl.Stdout(), "SetNoDelay failed: %v\n", err)
		return
	}
	r.cfg.opts.Settings.NoDelay = enable
	fmt.Fprintf(r.rl.Stdout(), "NoDelay %s\n", args[0])
}

func (r *repl) cmdBrowse(ctx context.Context, args []string) {
	window := 3 * time.Second
	if len(args) > 0 {
		secs, err := strconv.Atoi(args[0])
		if err != nil || secs <= 0 {
			fmt.Fprintln(r.rl.Stdout(), "Usage: browse [seconds]")
			return
		}
		window = time.Duration(secs) * time.Second
	}

	browser, err := discovery.NewMDNSBrowser(discovery.BrowserConfig{})
	if err != nil {
		fmt.Fprintf(r.rl.Stdout(), "Browse failed: %v\n", err)
		return
	}

	fmt.Fprintf(r.rl.Stdout(), "Browsing for %s endpoints (%s)...\n", discovery.ServiceType, window)
	endpoints, err := discovery.Collect(ctx, browser, window)
	if err != nil {
		fmt.Fprintf(r.rl.Stdout(), "Browse failed: %v\n", err)
		return
	}
	if len(endpoints) == 0 {
		fmt.Fprintln(r.rl.Stdout(), "No endpoints found")
		return
	}

	for _, ep := range endpoints {
		target := ep.Target()
		if target == "" {
			target = "(no address)"
		}
		line := fmt.Sprintf("  %-24s %-22s %s", ep.Instance, target, ep.Host)
		if v, ok := ep.Txt[discovery.TXTKeyVersion]; ok {
			line += "  v" + v
		}
		fmt.Fprintln(r.rl.Stdout(), line)
	}
}

func (r *repl) cmdClose() {
	if r.conn == nil {
		fmt.Fprintln(r.rl.Stdout(), "Not connected")
		return
	}
	r.closeConn()
	fmt.Fprintln(r.rl.Stdout(), "Closed")
}

func (r *repl) closeConn() {
	if r.conn == nil {
		return
	}
	if err := r.conn.Close(); err != nil {
		fmt.Fprintf(r.rl.Stdout(), "Close failed: %v\n", err)
	}
	r.conn = nil
	r.driver = nil
	r.tracker = nil
	r.connID = ""
	r.target = ""
}

// observe feeds a transport result into the tracker, skipping context
// errors, which say nothing about the connection.
func (r *repl) observe(err error) {
	if r.tracker == nil {
		return
	}
	if err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)) {
		return
	}
	r.tracker.Observe(err)
}

func (r *repl) logIO(dir log.Direction, n int, err error) {
	event := log.Event{
		Timestamp:    time.Now(),
		ConnectionID: r.connID,
		Backend:      kindBackend(r.conn.Kind()),
		Category:     log.CategoryIO,
		Target:       r.target,
		IO:           &log.IOEvent{Direction: dir, Bytes: n},
	}
	if err != nil {
		event.IO.Err = err.Error()
	}
	r.logger.Log(event)
}

func kindBackend(kind transport.Kind) log.Backend {
	switch kind {
	case transport.KindRedial:
		return log.BackendRedial
	case transport.KindSerial:
		return log.BackendSerial
	default:
		return log.BackendTCP
	}
}

func shortID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}
