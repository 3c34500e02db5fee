package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Source tells how an endpoint was found.
type Source string

const (
	SourceInterface Source = "usb"
	SourceMDNS      Source = "mdns"
	SourceConfig    Source = "config"
)

// Endpoint is a discovered control surface.
type Endpoint struct {
	// Name is the mDNS instance name or the interface the device sits on
	Name string

	// Host is an IP address or hostname
	Host string

	// Port is the WebSocket port (80 on hardware)
	Port int

	Source Source

	// Metadata contains mDNS TXT record data, e.g. "serial=SIM-1"
	Metadata map[string]string

	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the endpoint
func (e *Endpoint) String() string {
	return fmt.Sprintf("%s (%s) at %s", e.Name, e.Source, e.Addr())
}

// Addr returns "host:port" suitable for device.Dial.
func (e *Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (e *Endpoint) GetMetadata(key string) string {
	if e.Metadata == nil {
		return ""
	}
	return e.Metadata[key]
}

// Configured wraps an address from the settings file or command line.
// A missing port defaults to 80.
func Configured(addr string) (*Endpoint, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		host, portStr = addr, strconv.Itoa(DefaultPort)
	}
	if host == "" {
		return nil, fmt.Errorf("invalid device address %q", addr)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid port in device address %q", addr)
	}
	return &Endpoint{
		Name:         "configured",
		Host:         host,
		Port:         port,
		Source:       SourceConfig,
		DiscoveredAt: time.Now(),
	}, nil
}
