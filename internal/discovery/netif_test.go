package discovery

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func cidr(t *testing.T, s string) *net.IPNet {
	t.Helper()
	ip, n, err := net.ParseCIDR(s)
	if err != nil {
		t.Fatalf("ParseCIDR(%q) error = %v", s, err)
	}
	n.IP = ip
	return n
}

func TestFromAddrs(t *testing.T) {
	addrs := []net.Addr{
		cidr(t, "127.0.0.1/8"),
		cidr(t, "192.168.1.20/24"),
		cidr(t, "100.127.44.2/24"),
		cidr(t, "100.127.44.3/24"), // same USB network
		&net.IPAddr{IP: net.ParseIP("100.127.9.2")},
		cidr(t, "100.128.1.2/24"),
		cidr(t, "fe80::1/64"),
	}

	got := FromAddrs(addrs)
	want := []string{"100.127.44.1:80", "100.127.9.1:80"}
	if len(got) != len(want) {
		t.Fatalf("FromAddrs() returned %d endpoints, want %d: %v", len(got), len(want), got)
	}
	for i, ep := range got {
		if ep.Addr() != want[i] {
			t.Errorf("endpoint %d = %s, want %s", i, ep.Addr(), want[i])
		}
		if ep.Source != SourceInterface {
			t.Errorf("endpoint %d source = %s, want %s", i, ep.Source, SourceInterface)
		}
	}
}

func withAddrs(t *testing.T, fn func() ([]net.Addr, error)) {
	t.Helper()
	orig := InterfaceAddrs
	InterfaceAddrs = fn
	t.Cleanup(func() { InterfaceAddrs = orig })
}

func TestScanInterfaces_Error(t *testing.T) {
	withAddrs(t, func() ([]net.Addr, error) { return nil, errors.New("boom") })
	if _, err := ScanInterfaces(); err == nil {
		t.Error("ScanInterfaces() error = nil, want error")
	}
}

func TestScanner_FindUSB(t *testing.T) {
	withAddrs(t, func() ([]net.Addr, error) {
		return []net.Addr{cidr(t, "100.127.7.2/24")}, nil
	})
	s := NewScanner()
	s.SkipMDNS = true

	ep, err := s.Find(context.Background(), time.Millisecond)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if ep.Addr() != "100.127.7.1:80" {
		t.Errorf("Find() = %s, want 100.127.7.1:80", ep.Addr())
	}
}

func TestScanner_FindCancelled(t *testing.T) {
	withAddrs(t, func() ([]net.Addr, error) { return nil, nil })
	s := NewScanner()
	s.SkipMDNS = true

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := s.Find(ctx, 10*time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Find() error = %v, want deadline exceeded", err)
	}
}
