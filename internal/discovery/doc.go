// Package discovery finds wanctl servers on the local network over mDNS.
//
// Servers started with mDNS enabled register an "_http._tcp" service whose
// TXT records include "app=wanctl" (see TXTRecords). Scanner browses for
// that service type and keeps only entries carrying the marker.
//
// # Usage Example
//
//	inst, err := discovery.NewScanner().FindFirst(ctx)
//	if err != nil {
//	    return err
//	}
//	remote := server.NewRemote(inst.BaseURL())
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Servers must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
