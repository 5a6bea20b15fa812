package random

import "github.com/wippyai/wasm-boundary/boundary"

// Host bundles the three random interfaces.
type Host struct {
	Secure       *SecureRandomHost
	Insecure     *InsecureRandomHost
	InsecureSeed *InsecureSeedHost
}

func NewHost() *Host {
	return &Host{
		Secure:       NewSecureRandomHost(),
		Insecure:     NewInsecureRandomHost(),
		InsecureSeed: NewInsecureSeedHost(),
	}
}

func (h *Host) Register(s *boundary.Surface) error {
	for _, r := range []interface{ Register(*boundary.Surface) error }{h.Secure, h.Insecure, h.InsecureSeed} {
		if err := r.Register(s); err != nil {
			return err
		}
	}
	return nil
}
