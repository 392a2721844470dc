// Package discovery advertises and finds stream endpoints via
// mDNS/DNS-SD.
//
// Endpoints register under the service type "_unistream._tcp" in the
// local domain. An announcement carries the TCP port to dial plus
// free-form TXT metadata; browsing aggregates responses from all
// network interfaces into Endpoint values whose Target method renders
// the "ip:port" literal the transport selector accepts.
//
// # Advertising
//
//	adv, err := discovery.Advertise("bench-01", 4840, map[string]string{
//		discovery.TXTKeyVersion: version.Current.String(),
//	})
//	if err != nil {
//		return err
//	}
//	defer adv.Shutdown()
//
// # Browsing
//
//	browser, _ := discovery.NewMDNSBrowser(discovery.BrowserConfig{})
//	endpoints, err := discovery.Collect(ctx, browser, 3*time.Second)
//	for _, ep := range endpoints {
//		conn, err := transport.Open(ep.Target(), transport.Options{})
//		...
//	}
//
// The Browser interface is the seam between the resolution helpers
// (Collect, FindInstance) and the network; tests substitute a mock.
package discovery
