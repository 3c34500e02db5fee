package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/xpdeck/xpdeck/internal/logging"
)

const (
	// ServiceType is the mDNS service type simulated panels advertise
	ServiceType = "_xpdeck._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default mDNS browse window
	DefaultScanTimeout = 3 * time.Second

	// DefaultPort is the WebSocket port of the hardware
	DefaultPort = 80

	// DefaultRetry is the delay between discovery rounds
	DefaultRetry = 5 * time.Second
)

// Scanner handles device discovery
type Scanner struct {
	// Timeout is the maximum time to browse mDNS per round
	Timeout time.Duration

	// Service is the mDNS service type to browse
	Service string

	// SkipMDNS restricts discovery to the interface scan
	SkipMDNS bool
}

// NewScanner creates a new scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
		Service: ServiceType,
	}
}

// Browse lists mDNS-advertised panels seen within the timeout.
func (s *Scanner) Browse(ctx context.Context) ([]*Endpoint, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var (
		mu    sync.Mutex
		found []*Endpoint
	)
	go func() {
		seen := make(map[string]bool)
		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-entries:
				if !ok {
					return
				}
				ep := parseServiceEntry(entry)
				if ep == nil || seen[ep.Addr()] {
					continue
				}
				seen[ep.Addr()] = true
				mu.Lock()
				found = append(found, ep)
				mu.Unlock()
			}
		}
	}()

	if err := resolver.Browse(ctx, s.Service, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	mu.Lock()
	defer mu.Unlock()
	return append([]*Endpoint(nil), found...), nil
}

// Scan runs one discovery round: interfaces first, then mDNS.
func (s *Scanner) Scan(ctx context.Context) ([]*Endpoint, error) {
	found, err := ScanInterfaces()
	if err != nil {
		logging.Warn("Interface scan failed", zap.Error(err))
	}
	if s.SkipMDNS {
		return found, nil
	}
	browsed, err := s.Browse(ctx)
	if err != nil {
		if len(found) > 0 {
			logging.Warn("mDNS browse failed", zap.Error(err))
			return found, nil
		}
		return nil, err
	}
	return append(found, browsed...), nil
}

// Find repeats discovery rounds, waiting retry between them, until a
// panel turns up or ctx is done. A USB device is preferred over simulated
// panels.
func (s *Scanner) Find(ctx context.Context, retry time.Duration) (*Endpoint, error) {
	if retry <= 0 {
		retry = DefaultRetry
	}
	for {
		found, err := s.Scan(ctx)
		if err != nil {
			logging.Warn("Discovery round failed", zap.Error(err))
		}
		if len(found) > 0 {
			logging.Info("Found device",
				zap.String("endpoint", found[0].String()),
				zap.Int("candidates", len(found)),
			)
			return found[0], nil
		}

		logging.Info("No device found, retrying", zap.Duration("delay", retry))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retry):
		}
	}
}

// parseServiceEntry converts a zeroconf service entry to an Endpoint.
// Returns nil if the entry has no usable address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Endpoint {
	if entry == nil {
		return nil
	}

	// Get IP address (prefer IPv4)
	var host string
	if len(entry.AddrIPv4) > 0 {
		host = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		host = entry.AddrIPv6[0].String()
	}
	if host == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	name := entry.Instance
	if name == "" {
		name = strings.TrimSuffix(entry.HostName, ".")
	}

	// TXT records are in "key=value" format
	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		k, v, _ := strings.Cut(txt, "=")
		metadata[k] = v
	}

	return &Endpoint{
		Name:         name,
		Host:         host,
		Port:         port,
		Source:       SourceMDNS,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}
