// Package profile loads and saves YAML connection profiles.
//
// A profile bundles a selector target with the transport settings to
// apply to it, so tools can keep named configurations on disk:
//
//	name: workbench
//	target: 192.168.1.40:4840
//	low_latency: true
//	log:
//	  file: workbench.ulog
//
// Serial targets carry port parameters instead:
//
//	name: meter
//	target: /dev/ttyUSB0
//	serial:
//	  baud_rate: 115200
//	  parity: even
//	  stop_bits: "2"
package profile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.bug.st/serial"
	"gopkg.in/yaml.v3"

	"github.com/unistream-io/unistream-go/pkg/transport"
)

// Profile errors.
var (
	ErrNoTarget        = errors.New("profile has no target")
	ErrInvalidParity   = errors.New("invalid parity")
	ErrInvalidStopBits = errors.New("invalid stop bits")
)

// Profile describes one connection target and its settings.
type Profile struct {
	// Name identifies the profile.
	Name string `yaml:"name,omitempty"`

	// Target is a selector target: an "ip:port" literal or a serial
	// device path.
	Target string `yaml:"target"`

	// LowLatency requests TCP_NODELAY on network targets.
	LowLatency bool `yaml:"low_latency,omitempty"`

	// Serial configures serial targets. Ignored for network targets.
	Serial SerialProfile `yaml:"serial,omitempty"`

	// Log configures event logging.
	Log LogProfile `yaml:"log,omitempty"`
}

// SerialProfile holds serial port parameters. Zero values mean the
// transport defaults (9600 8N1).
type SerialProfile struct {
	BaudRate int `yaml:"baud_rate,omitempty"`
	DataBits int `yaml:"data_bits,omitempty"`

	// Parity is one of "none", "odd", "even", "mark", "space".
	Parity string `yaml:"parity,omitempty"`

	// StopBits is one of "1", "1.5", "2".
	StopBits string `yaml:"stop_bits,omitempty"`
}

// IsZero reports whether the serial section can be omitted.
func (s SerialProfile) IsZero() bool {
	return s == SerialProfile{}
}

// LogProfile configures event logging.
type LogProfile struct {
	// File receives CBOR transport events when set.
	File string `yaml:"file,omitempty"`
}

// IsZero reports whether the log section can be omitted.
func (l LogProfile) IsZero() bool {
	return l == LogProfile{}
}

// Parse decodes a profile from YAML bytes. Unknown fields are
// rejected so a typo in a profile fails loudly instead of silently
// falling back to defaults.
func Parse(data []byte) (*Profile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Profile
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("parsing profile: %w", err)
	}
	if p.Target == "" {
		return nil, ErrNoTarget
	}
	return &p, nil
}

// Load reads and parses a profile file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

// Save writes the profile as YAML.
func (p *Profile) Save(path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Options converts the profile into selector options. The logger is
// left unset; opening log sinks is the caller's business.
func (p *Profile) Options() (transport.Options, error) {
	serialCfg, err := p.Serial.config()
	if err != nil {
		return transport.Options{}, err
	}
	return transport.Options{
		Settings: transport.Settings{NoDelay: p.LowLatency},
		Serial:   serialCfg,
	}, nil
}

func (s SerialProfile) config() (transport.SerialConfig, error) {
	parity, err := parseParity(s.Parity)
	if err != nil {
		return transport.SerialConfig{}, err
	}
	stopBits, err := parseStopBits(s.StopBits)
	if err != nil {
		return transport.SerialConfig{}, err
	}
	return transport.SerialConfig{
		BaudRate: s.BaudRate,
		DataBits: s.DataBits,
		Parity:   parity,
		StopBits: stopBits,
	}, nil
}

func parseParity(s string) (serial.Parity, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return serial.NoParity, nil
	case "odd":
		return serial.OddParity, nil
	case "even":
		return serial.EvenParity, nil
	case "mark":
		return serial.MarkParity, nil
	case "space":
		return serial.SpaceParity, nil
	default:
		return serial.NoParity, fmt.Errorf("%w: %q", ErrInvalidParity, s)
	}
}

func parseStopBits(s string) (serial.StopBits, error) {
	switch s {
	case "", "1":
		return serial.OneStopBit, nil
	case "1.5":
		return serial.OnePointFiveStopBits, nil
	case "2":
		return serial.TwoStopBits, nil
	default:
		return serial.OneStopBit, fmt.Errorf("%w: %q", ErrInvalidStopBits, s)
	}
}
