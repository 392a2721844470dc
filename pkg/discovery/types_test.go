package discovery

import (
	"net/netip"
	"reflect"
	"testing"
)

func TestEndpointTarget(t *testing.T) {
	tests := []struct {
		name string
		ep   Endpoint
		want string
	}{
		{
			name: "IPv4",
			ep: Endpoint{
				Addrs: []netip.Addr{netip.MustParseAddr("192.168.1.10")},
				Port:  4840,
			},
			want: "192.168.1.10:4840",
		},
		{
			name: "IPv6",
			ep: Endpoint{
				Addrs: []netip.Addr{netip.MustParseAddr("fe80::1")},
				Port:  4840,
			},
			want: "[fe80::1]:4840",
		},
		{
			name: "PrefersFirstAddress",
			ep: Endpoint{
				Addrs: []netip.Addr{
					netip.MustParseAddr("10.0.0.1"),
					netip.MustParseAddr("fe80::1"),
				},
				Port: 80,
			},
			want: "10.0.0.1:80",
		},
		{
			name: "NoAddresses",
			ep:   Endpoint{Port: 4840},
			want: "",
		},
		{
			name: "NoPort",
			ep: Endpoint{
				Addrs: []netip.Addr{netip.MustParseAddr("10.0.0.1")},
			},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ep.Target(); got != tt.want {
				t.Errorf("Target() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTXTConversion(t *testing.T) {
	t.Run("MapToTxtSorted", func(t *testing.T) {
		got := mapToTxt(map[string]string{
			"v":  "1.0",
			"ll": "1",
			"a":  "",
		})
		want := []string{"a=", "ll=1", "v=1.0"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("mapToTxt() = %v, want %v", got, want)
		}
	})

	t.Run("TxtToMap", func(t *testing.T) {
		got := txtToMap([]string{"v=1.0", "ll=1", "note=a=b"})
		want := map[string]string{"v": "1.0", "ll": "1", "note": "a=b"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("txtToMap() = %v, want %v", got, want)
		}
	})

	t.Run("TxtToMapDropsMalformed", func(t *testing.T) {
		got := txtToMap([]string{"valid=1", "noequals", "=nokey"})
		want := map[string]string{"valid": "1"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("txtToMap() = %v, want %v", got, want)
		}
	})

	t.Run("RoundTrip", func(t *testing.T) {
		orig := map[string]string{"v": "1.0", "ll": "1"}
		got := txtToMap(mapToTxt(orig))
		if !reflect.DeepEqual(got, orig) {
			t.Errorf("round trip = %v, want %v", got, orig)
		}
	})
}

func TestEndpointSet(t *testing.T) {
	addr1 := netip.MustParseAddr("192.168.1.10")
	addr2 := netip.MustParseAddr("10.0.0.10")

	t.Run("AddNewInstance", func(t *testing.T) {
		s := newEndpointSet()
		if !s.add(Endpoint{Instance: "bench", Addrs: []netip.Addr{addr1}}) {
			t.Fatal("first add reported the instance as known")
		}
	})

	t.Run("AddMergesAddresses", func(t *testing.T) {
		s := newEndpointSet()
		s.add(Endpoint{Instance: "bench", Addrs: []netip.Addr{addr1}})
		if s.add(Endpoint{Instance: "bench", Addrs: []netip.Addr{addr2}}) {
			t.Fatal("second add reported the instance as new")
		}
		got := s.byInstance["bench"].Addrs
		want := []netip.Addr{addr1, addr2}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("merged addrs = %v, want %v", got, want)
		}
	})

	t.Run("AddIgnoresDuplicateAddress", func(t *testing.T) {
		s := newEndpointSet()
		s.add(Endpoint{Instance: "bench", Addrs: []netip.Addr{addr1}})
		s.add(Endpoint{Instance: "bench", Addrs: []netip.Addr{addr1}})
		if got := len(s.byInstance["bench"].Addrs); got != 1 {
			t.Errorf("addr count = %d, want 1", got)
		}
	})

	t.Run("RemovePrunesAddresses", func(t *testing.T) {
		s := newEndpointSet()
		s.add(Endpoint{Instance: "bench", Addrs: []netip.Addr{addr1, addr2}})
		if s.remove(Endpoint{Instance: "bench", Addrs: []netip.Addr{addr1}}) {
			t.Fatal("instance reported gone while an address remains")
		}
		got := s.byInstance["bench"].Addrs
		want := []netip.Addr{addr2}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("addrs after prune = %v, want %v", got, want)
		}
	})

	t.Run("RemoveLastAddressDropsInstance", func(t *testing.T) {
		s := newEndpointSet()
		s.add(Endpoint{Instance: "bench", Addrs: []netip.Addr{addr1}})
		if !s.remove(Endpoint{Instance: "bench", Addrs: []netip.Addr{addr1}}) {
			t.Fatal("instance not reported gone")
		}
		if !s.add(Endpoint{Instance: "bench", Addrs: []netip.Addr{addr1}}) {
			t.Fatal("re-added instance not reported as new")
		}
	})

	t.Run("RemoveUnknownInstance", func(t *testing.T) {
		s := newEndpointSet()
		if s.remove(Endpoint{Instance: "ghost", Addrs: []netip.Addr{addr1}}) {
			t.Fatal("unknown instance reported gone")
		}
	})
}
