package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the mDNS service type wanctl servers advertise
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain
	ServiceDomain = "local."

	// AppKey and AppName form the TXT record that tells wanctl servers apart
	// from every other HTTP service on the network.
	AppKey  = "app"
	AppName = "wanctl"

	// DefaultScanTimeout is the default time spent listening for answers
	DefaultScanTimeout = 3 * time.Second
)

// ErrNotFound is returned by FindFirst when no server answers in time.
var ErrNotFound = errors.New("no wanctl server found on the local network")

// TXTRecords returns the TXT records a server advertises.
func TXTRecords(version string) []string {
	return []string{
		AppKey + "=" + AppName,
		"version=" + version,
		"path=/",
		"api=/api/reconnect",
	}
}

// Scanner browses mDNS for wanctl servers
type Scanner struct {
	// Timeout is the maximum time to wait for answers
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// Scan returns every server that answers before the timeout or ctx ends.
func (s *Scanner) Scan(ctx context.Context) ([]*Instance, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	done := make(chan struct{})
	var instances []*Instance

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	// The resolver closes entries when ctx ends
	go func() {
		defer close(done)
		seen := make(map[string]bool)
		for entry := range entries {
			inst := parseServiceEntry(entry)
			if inst == nil || seen[inst.BaseURL()] {
				continue
			}
			seen[inst.BaseURL()] = true
			instances = append(instances, inst)
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	<-done
	return instances, nil
}

// FindFirst returns the first server that answers.
func (s *Scanner) FindFirst(ctx context.Context) (*Instance, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *Instance, 1)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		for entry := range entries {
			if inst := parseServiceEntry(entry); inst != nil {
				select {
				case found <- inst:
				default:
				}
				cancel()
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case inst := <-found:
		return inst, nil
	case <-ctx.Done():
		// An answer may have raced the timeout
		select {
		case inst := <-found:
			return inst, nil
		default:
		}
		return nil, ErrNotFound
	}
}

// parseServiceEntry converts a zeroconf entry to an Instance. It returns nil
// for services that are not wanctl or have no address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Instance {
	metadata := make(map[string]string, len(entry.Text))
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}
	if metadata[AppKey] != AppName {
		return nil
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" || entry.Port == 0 {
		return nil
	}

	return &Instance{
		Name:         entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         entry.Port,
		Version:      metadata["version"],
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}
