package discovery

import (
	"testing"
)

func TestEndpoint_String(t *testing.T) {
	ep := &Endpoint{
		Name:   "xpdeck-sim",
		Host:   "192.168.4.16",
		Port:   9000,
		Source: SourceMDNS,
	}

	expected := "xpdeck-sim (mdns) at 192.168.4.16:9000"
	if ep.String() != expected {
		t.Errorf("Endpoint.String() = %v, want %v", ep.String(), expected)
	}
}

func TestEndpoint_Addr(t *testing.T) {
	tests := []struct {
		name     string
		endpoint *Endpoint
		expected string
	}{
		{
			name:     "ipv4",
			endpoint: &Endpoint{Host: "100.127.5.1", Port: 80},
			expected: "100.127.5.1:80",
		},
		{
			name:     "ipv6 is bracketed",
			endpoint: &Endpoint{Host: "fe80::1", Port: 9000},
			expected: "[fe80::1]:9000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.endpoint.Addr(); got != tt.expected {
				t.Errorf("Endpoint.Addr() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestEndpoint_GetMetadata(t *testing.T) {
	ep := &Endpoint{Metadata: map[string]string{"serial": "SIM-1"}}
	if got := ep.GetMetadata("serial"); got != "SIM-1" {
		t.Errorf("GetMetadata(serial) = %q, want SIM-1", got)
	}
	if got := ep.GetMetadata("missing"); got != "" {
		t.Errorf("GetMetadata(missing) = %q, want empty", got)
	}
	if got := (&Endpoint{}).GetMetadata("anything"); got != "" {
		t.Errorf("GetMetadata() with nil map = %q, want empty", got)
	}
}

func TestConfigured(t *testing.T) {
	tests := []struct {
		addr    string
		want    string
		wantErr bool
	}{
		{addr: "100.127.3.1:80", want: "100.127.3.1:80"},
		{addr: "localhost:9000", want: "localhost:9000"},
		{addr: "100.127.3.1", want: "100.127.3.1:80"},
		{addr: "", wantErr: true},
		{addr: "host:notaport", wantErr: true},
		{addr: "host:70000", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			ep, err := Configured(tt.addr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Configured(%q) error = %v, wantErr %v", tt.addr, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if ep.Addr() != tt.want {
				t.Errorf("Addr() = %q, want %q", ep.Addr(), tt.want)
			}
			if ep.Source != SourceConfig {
				t.Errorf("Source = %q, want %q", ep.Source, SourceConfig)
			}
		})
	}
}
