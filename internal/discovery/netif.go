package discovery

import (
	"fmt"
	"net"
	"time"
)

// usbNet is the link-local range the Live's USB network lives in.
var usbNet = &net.IPNet{IP: net.IPv4(100, 127, 0, 0).To4(), Mask: net.CIDRMask(16, 32)}

// InterfaceAddrs lists local interface addresses. Tests replace it.
var InterfaceAddrs = net.InterfaceAddrs

// FromAddrs returns one endpoint per distinct USB network in addrs. For a
// host address 100.127.x.y the device is 100.127.x.1.
func FromAddrs(addrs []net.Addr) []*Endpoint {
	var out []*Endpoint
	seen := make(map[string]bool)
	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		default:
			continue
		}
		ip4 := ip.To4()
		if ip4 == nil || !usbNet.Contains(ip4) {
			continue
		}
		host := net.IPv4(ip4[0], ip4[1], ip4[2], 1).String()
		if seen[host] {
			continue
		}
		seen[host] = true
		out = append(out, &Endpoint{
			Name:         fmt.Sprintf("loupedeck@%s", ip4),
			Host:         host,
			Port:         DefaultPort,
			Source:       SourceInterface,
			DiscoveredAt: time.Now(),
		})
	}
	return out
}

// ScanInterfaces looks for a USB-attached device.
func ScanInterfaces() ([]*Endpoint, error) {
	addrs, err := InterfaceAddrs()
	if err != nil {
		return nil, fmt.Errorf("failed to list interface addresses: %w", err)
	}
	return FromAddrs(addrs), nil
}
