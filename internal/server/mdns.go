package server

import (
	"fmt"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/wanctl/internal/discovery"
	"github.com/muurk/wanctl/internal/logging"
	"github.com/muurk/wanctl/internal/version"
)

// advertise registers the server under discovery.ServiceType so that
// `wanctl remote` can find it without a URL.
func (s *Server) advertise(port int) error {
	name := s.config.MDNSName
	if name == "" {
		name = discovery.AppName
	}

	srv, err := zeroconf.Register(name, discovery.ServiceType, discovery.ServiceDomain, port,
		discovery.TXTRecords(version.Version), nil)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}
	s.mdns = srv

	logging.Info("Advertising over mDNS",
		zap.String("instance", name),
		zap.String("service", discovery.ServiceType),
		zap.Int("port", port),
	)
	return nil
}

func (s *Server) stopAdvertising() {
	if s.mdns != nil {
		s.mdns.Shutdown()
		s.mdns = nil
	}
}
