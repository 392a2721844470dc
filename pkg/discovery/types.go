package discovery

import (
	"errors"
	"net/netip"
	"slices"
	"strings"
	"time"
)

// Service constants for mDNS.
const (
	// ServiceType is the DNS-SD service type for stream endpoints.
	ServiceType = "_unistream._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// BrowseTimeout is the default window for browse operations.
	BrowseTimeout = 10 * time.Second

	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63
)

// Conventional TXT record keys. Announcements may carry arbitrary
// additional keys.
const (
	// TXTKeyVersion is the endpoint's protocol version.
	TXTKeyVersion = "v"

	// TXTKeyLowLatency marks endpoints that want TCP_NODELAY ("1").
	TXTKeyLowLatency = "ll"
)

// Discovery errors.
var (
	ErrNotFound            = errors.New("service not found")
	ErrMissingInstance     = errors.New("instance name required")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
)

// Endpoint is one advertised stream endpoint.
type Endpoint struct {
	// Instance is the mDNS instance name.
	Instance string

	// Host is the advertised hostname (e.g. "bench-01.local.").
	Host string

	// Port is the TCP port to dial.
	Port uint16

	// Addrs contains the resolved addresses, IPv4 before IPv6.
	Addrs []netip.Addr

	// Txt holds the TXT record metadata.
	Txt map[string]string
}

// Target renders the endpoint as the address literal the transport
// selector accepts, or "" when the endpoint has no usable address.
func (e Endpoint) Target() string {
	if len(e.Addrs) == 0 || e.Port == 0 {
		return ""
	}
	return netip.AddrPortFrom(e.Addrs[0], e.Port).String()
}

// txtToMap parses "key=value" TXT strings. Entries without '=' are
// dropped.
func txtToMap(txt []string) map[string]string {
	m := make(map[string]string, len(txt))
	for _, entry := range txt {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			continue
		}
		m[key] = value
	}
	return m
}

// mapToTxt renders TXT metadata as "key=value" strings in key order,
// so repeated announcements are byte-identical.
func mapToTxt(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	txt := make([]string, 0, len(keys))
	for _, key := range keys {
		txt = append(txt, key+"="+m[key])
	}
	return txt
}
