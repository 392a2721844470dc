package discovery

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"sync"

	"github.com/enbility/zeroconf/v3"
)

// Advertiser announces one stream endpoint over mDNS.
type Advertiser struct {
	mu     sync.Mutex
	server *zeroconf.Server
}

// Advertise registers instance as a stream endpoint on the given TCP
// port. The announcement stays up until Shutdown is called.
func Advertise(instance string, port int, txt map[string]string) (*Advertiser, error) {
	if instance == "" {
		return nil, ErrMissingInstance
	}
	if len(instance) > MaxInstanceNameLen {
		return nil, ErrInstanceNameTooLong
	}

	server, err := zeroconf.Register(instance, ServiceType, Domain, port, mapToTxt(txt), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", instance, err)
	}
	return &Advertiser{server: server}, nil
}

// Update replaces the advertised TXT metadata.
func (a *Advertiser) Update(txt map[string]string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		a.server.SetText(mapToTxt(txt))
	}
}

// Shutdown withdraws the announcement. Safe to call more than once.
func (a *Advertiser) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// BrowserConfig configures an MDNSBrowser.
type BrowserConfig struct {
	// Interface restricts browsing to one network interface by name.
	// Empty means all interfaces.
	Interface string
}

// MDNSBrowser finds advertised stream endpoints via zeroconf.
type MDNSBrowser struct {
	config BrowserConfig
}

// NewMDNSBrowser creates a new mDNS browser.
func NewMDNSBrowser(config BrowserConfig) (*MDNSBrowser, error) {
	return &MDNSBrowser{config: config}, nil
}

// Browse emits endpoints as they are found. Responses from multiple
// interfaces are aggregated by instance name, so each instance is
// emitted once; an instance whose addresses all disappear and then
// reappear is emitted again.
func (b *MDNSBrowser) Browse(ctx context.Context) (<-chan Endpoint, error) {
	out := make(chan Endpoint)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go forwardEntries(ctx, entries, removed, out)
	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, b.options()...)
	}()

	return out, nil
}

func (b *MDNSBrowser) options() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption
	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}
	return opts
}

// forwardEntries converts zeroconf entries to endpoints and pushes
// new instances to out. It owns the aggregation state.
func forwardEntries(ctx context.Context, entries, removed <-chan *zeroconf.ServiceEntry, out chan<- Endpoint) {
	defer close(out)
	seen := newEndpointSet()

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return
			}
			ep := entryToEndpoint(entry)
			if !seen.add(ep) {
				continue
			}
			select {
			case out <- ep:
			case <-ctx.Done():
				return
			}

		case entry, ok := <-removed:
			if !ok {
				removed = nil
				continue
			}
			seen.remove(entryToEndpoint(entry))

		case <-ctx.Done():
			return
		}
	}
}

func entryToEndpoint(entry *zeroconf.ServiceEntry) Endpoint {
	addrs := make([]netip.Addr, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		if addr, ok := ipToAddr(ip); ok {
			addrs = append(addrs, addr)
		}
	}
	for _, ip := range entry.AddrIPv6 {
		if addr, ok := ipToAddr(ip); ok {
			addrs = append(addrs, addr)
		}
	}

	return Endpoint{
		Instance: entry.Instance,
		Host:     entry.HostName,
		Port:     uint16(entry.Port),
		Addrs:    addrs,
		Txt:      txtToMap(entry.Text),
	}
}

func ipToAddr(ip net.IP) (netip.Addr, bool) {
	if v4 := ip.To4(); v4 != nil {
		return netip.AddrFromSlice(v4)
	}
	return netip.AddrFromSlice(ip)
}

// endpointSet aggregates browse responses by instance name.
type endpointSet struct {
	byInstance map[string]*Endpoint
}

func newEndpointSet() *endpointSet {
	return &endpointSet{byInstance: make(map[string]*Endpoint)}
}

// add merges ep into the set and reports whether the instance is new.
func (s *endpointSet) add(ep Endpoint) bool {
	existing, ok := s.byInstance[ep.Instance]
	if ok {
		existing.Addrs = mergeAddrs(existing.Addrs, ep.Addrs)
		return false
	}
	stored := ep
	s.byInstance[ep.Instance] = &stored
	return true
}

// remove prunes ep's addresses and reports whether the instance
// disappeared entirely.
func (s *endpointSet) remove(ep Endpoint) bool {
	existing, ok := s.byInstance[ep.Instance]
	if !ok {
		return false
	}
	existing.Addrs = pruneAddrs(existing.Addrs, ep.Addrs)
	if len(existing.Addrs) == 0 {
		delete(s.byInstance, ep.Instance)
		return true
	}
	return false
}

// mergeAddrs appends addresses not already present, keeping order.
func mergeAddrs(existing, found []netip.Addr) []netip.Addr {
	seen := make(map[netip.Addr]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}
	for _, addr := range found {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// pruneAddrs removes the given addresses from the list.
func pruneAddrs(addrs, gone []netip.Addr) []netip.Addr {
	drop := make(map[netip.Addr]bool, len(gone))
	for _, addr := range gone {
		drop[addr] = true
	}

	kept := make([]netip.Addr, 0, len(addrs))
	for _, addr := range addrs {
		if !drop[addr] {
			kept = append(kept, addr)
		}
	}
	return kept
}

// Ensure MDNSBrowser implements Browser.
var _ Browser = (*MDNSBrowser)(nil)
