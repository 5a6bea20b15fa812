package sockets

import (
	"github.com/wippyai/wasm-boundary/boundary"
	"github.com/wippyai/wasm-boundary/wasi/preview2"
)

// Host bundles every wasi:sockets interface over one resource table.
type Host struct {
	Network    *NetworkHost
	TCP        *TCPHost
	UDP        *UDPHost
	NameLookup *NameLookupHost
}

// NewHost creates the sockets hosts sharing resources and cfg.
func NewHost(resources *preview2.ResourceTable, cfg Config) *Host {
	cfg = cfg.withDefaults()
	return &Host{
		Network:    NewNetworkHost(resources),
		TCP:        NewTCPHost(resources, cfg),
		UDP:        NewUDPHost(resources, cfg),
		NameLookup: NewNameLookupHost(resources, cfg),
	}
}

// Register adds all socket interfaces to s.
func (h *Host) Register(s *boundary.Surface) error {
	for _, r := range []interface {
		Register(*boundary.Surface) error
	}{h.Network, h.TCP, h.UDP, h.NameLookup} {
		if err := r.Register(s); err != nil {
			return err
		}
	}
	return nil
}
