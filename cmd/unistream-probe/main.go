// Command unistream-probe is an interactive client for poking at
// stream endpoints.
//
// It opens a target through the transport selector (network targets
// get the redialing TCP transport, filesystem paths get a serial
// port), paces the non-blocking surface with the connection package,
// and exposes the whole thing as a small REPL.
//
// Usage:
//
//	unistream-probe [flags]
//
// Flags:
//
//	-target string     Target: an "ip:port" literal or a serial device path
//	-profile string    Connection profile file (YAML)
//	-nodelay           Request TCP_NODELAY on network targets
//	-eager             Dial network targets synchronously on open
//	-baud int          Serial baud rate (0 means 9600)
//	-event-log string  File path for transport event logging (CBOR format)
//	-verbose           Mirror transport events onto stderr
//
// Examples:
//
//	# Interactive session against an echo server
//	unistream-probe -target 192.168.1.40:4840
//
//	# Low-latency session, events logged for later analysis
//	unistream-probe -target 192.168.1.40:4840 -nodelay -event-log probe.ulog
//
//	# Serial device
//	unistream-probe -target /dev/ttyUSB0 -baud 115200
//
//	# Everything from a profile
//	unistream-probe -profile workbench.yaml
package main

import (
	"context"
	"flag"
	stdlog "log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/unistream-io/unistream-go/pkg/log"
	"github.com/unistream-io/unistream-go/pkg/profile"
	"github.com/unistream-io/unistream-go/pkg/transport"
)

var (
	target      = flag.String("target", "", `Target: an "ip:port" literal or a serial device path`)
	profilePath = flag.String("profile", "", "Connection profile file (YAML)")
	noDelay     = flag.Bool("nodelay", false, "Request TCP_NODELAY on network targets")
	eager       = flag.Bool("eager", false, "Dial network targets synchronously on open")
	baud        = flag.Int("baud", 0, "Serial baud rate (0 means 9600)")
	eventLog    = flag.String("event-log", "", "File path for transport event logging (CBOR format)")
	verbose     = flag.Bool("verbose", false, "Mirror transport events onto stderr")
)

// probeConfig is the merged flag and profile configuration.
type probeConfig struct {
	target  string
	eager   bool
	opts    transport.Options
	logPath string
	verbose bool
}

func main() {
	flag.Parse()
	stdlog.SetFlags(stdlog.Ltime | stdlog.Lmicroseconds)

	cfg, err := buildConfig()
	if err != nil {
		stdlog.Fatalf("Invalid configuration: %v", err)
	}

	logger, closeLogger, err := buildLogger(cfg)
	if err != nil {
		stdlog.Fatalf("Failed to open event log: %v", err)
	}
	defer closeLogger()
	cfg.opts.Logger = logger

	repl, err := newREPL(cfg, logger)
	if err != nil {
		stdlog.Fatalf("Failed to start: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	repl.Run(ctx, cancel)
}

// buildConfig merges the profile file (if any) with the command-line
// flags. Explicitly set flags win over profile values.
func buildConfig() (probeConfig, error) {
	cfg := probeConfig{
		target:  *target,
		eager:   *eager,
		verbose: *verbose,
		logPath: *eventLog,
		opts: transport.Options{
			Settings: transport.Settings{NoDelay: *noDelay},
			Serial:   transport.SerialConfig{BaudRate: *baud},
		},
	}

	if *profilePath == "" {
		return cfg, nil
	}

	p, err := profile.Load(*profilePath)
	if err != nil {
		return probeConfig{}, err
	}
	opts, err := p.Options()
	if err != nil {
		return probeConfig{}, err
	}

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if !set["target"] {
		cfg.target = p.Target
	}
	if !set["nodelay"] {
		cfg.opts.Settings = opts.Settings
	}
	if !set["baud"] {
		cfg.opts.Serial = opts.Serial
	} else {
		serialCfg := opts.Serial
		serialCfg.BaudRate = *baud
		cfg.opts.Serial = serialCfg
	}
	if !set["event-log"] {
		cfg.logPath = p.Log.File
	}
	return cfg, nil
}

// buildLogger assembles the event logger: a CBOR file sink, an stderr
// mirror, both, or none.
func buildLogger(cfg probeConfig) (log.Logger, func(), error) {
	var loggers []log.Logger
	closeLogger := func() {}

	if cfg.logPath != "" {
		fl, err := log.NewFileLogger(cfg.logPath)
		if err != nil {
			return nil, nil, err
		}
		loggers = append(loggers, fl)
		closeLogger = func() { fl.Close() }
	}
	if cfg.verbose {
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
		loggers = append(loggers, log.NewSlogAdapter(slog.New(handler)))
	}

	switch len(loggers) {
	case 0:
		return log.NoopLogger{}, closeLogger, nil
	case 1:
		return loggers[0], closeLogger, nil
	default:
		return log.NewMultiLogger(loggers...), closeLogger, nil
	}
}
