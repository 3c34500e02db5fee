package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func TestParseServiceEntry(t *testing.T) {
	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantNil  bool
		wantName string
		wantAddr string
	}{
		{
			name: "simulator with IPv4",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "xpdeck-sim"},
				HostName:      "desk.local.",
				Port:          9000,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.4.16")},
				Text:          []string{"serial=SIM-1"},
			},
			wantName: "xpdeck-sim",
			wantAddr: "192.168.4.16:9000",
		},
		{
			name: "no port defaults to 80",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "panel"},
				AddrIPv4:      []net.IP{net.ParseIP("10.0.0.5")},
			},
			wantName: "panel",
			wantAddr: "10.0.0.5:80",
		},
		{
			name: "instance falls back to hostname",
			entry: &zeroconf.ServiceEntry{
				HostName: "desk.local.",
				Port:     9000,
				AddrIPv4: []net.IP{net.ParseIP("10.0.0.6")},
			},
			wantName: "desk.local",
			wantAddr: "10.0.0.6:9000",
		},
		{
			name: "IPv6 only",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "v6"},
				Port:          9000,
				AddrIPv6:      []net.IP{net.ParseIP("fe80::1")},
			},
			wantName: "v6",
			wantAddr: "[fe80::1]:9000",
		},
		{
			name: "prefers IPv4",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "both"},
				Port:          9000,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.50")},
				AddrIPv6:      []net.IP{net.ParseIP("fe80::2")},
			},
			wantName: "both",
			wantAddr: "192.168.1.50:9000",
		},
		{
			name: "no address",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "ghost"},
				Port:          9000,
			},
			wantNil: true,
		},
		{
			name:    "nil entry",
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep := parseServiceEntry(tt.entry)
			if tt.wantNil {
				if ep != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", ep)
				}
				return
			}
			if ep == nil {
				t.Fatal("parseServiceEntry() = nil, want endpoint")
			}
			if ep.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", ep.Name, tt.wantName)
			}
			if ep.Addr() != tt.wantAddr {
				t.Errorf("Addr() = %q, want %q", ep.Addr(), tt.wantAddr)
			}
			if ep.Source != SourceMDNS {
				t.Errorf("Source = %q, want %q", ep.Source, SourceMDNS)
			}
			if time.Since(ep.DiscoveredAt) > time.Second {
				t.Errorf("DiscoveredAt is not recent: %v", ep.DiscoveredAt)
			}
		})
	}
}

func TestParseServiceEntry_Metadata(t *testing.T) {
	entry := &zeroconf.ServiceEntry{
		Port:     9000,
		AddrIPv4: []net.IP{net.ParseIP("192.168.4.16")},
		Text:     []string{"serial=SIM-1", "flag", "version=1.0=beta"},
	}
	ep := parseServiceEntry(entry)
	if ep == nil {
		t.Fatal("parseServiceEntry() = nil")
	}
	want := map[string]string{"serial": "SIM-1", "flag": "", "version": "1.0=beta"}
	if len(ep.Metadata) != len(want) {
		t.Errorf("Metadata has %d entries, want %d", len(ep.Metadata), len(want))
	}
	for k, v := range want {
		if got := ep.Metadata[k]; got != v {
			t.Errorf("Metadata[%q] = %q, want %q", k, got, v)
		}
	}
}

func TestNewScanner(t *testing.T) {
	s := NewScanner()
	if s.Timeout != DefaultScanTimeout {
		t.Errorf("Timeout = %v, want %v", s.Timeout, DefaultScanTimeout)
	}
	if s.Service != ServiceType {
		t.Errorf("Service = %q, want %q", s.Service, ServiceType)
	}
}
