package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Instance is a wanctl server found on the local network
type Instance struct {
	// Name is the mDNS instance name (e.g., "wanctl")
	Name string

	// Hostname is the mDNS hostname (e.g., "pi.local.")
	Hostname string

	// IP is the IPv4 address, or IPv6 when no IPv4 address was advertised
	IP string

	// Port is the HTTP port
	Port int

	// Version is the server's advertised version, if any
	Version string

	// Metadata contains the mDNS TXT records
	Metadata map[string]string

	// DiscoveredAt is when the instance was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable description of the instance
func (i *Instance) String() string {
	return fmt.Sprintf("wanctl %s (%s) at %s", i.Name, i.Hostname, net.JoinHostPort(i.IP, strconv.Itoa(i.Port)))
}

// BaseURL returns the HTTP base URL of the server
func (i *Instance) BaseURL() string {
	return "http://" + net.JoinHostPort(i.IP, strconv.Itoa(i.Port))
}

// GetMetadata retrieves a TXT record value by key, or "" if absent
func (i *Instance) GetMetadata(key string) string {
	if i.Metadata == nil {
		return ""
	}
	return i.Metadata[key]
}
