package sockets

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/wippyai/wasm-boundary/transcoder"
)

// AddressFamily is ip-address-family.
type AddressFamily uint8

const (
	IPv4 AddressFamily = iota
	IPv6
)

func (f AddressFamily) String() string {
	if f == IPv6 {
		return "ipv6"
	}
	return "ipv4"
}

func (f AddressFamily) network(transport string) string {
	if f == IPv6 {
		return transport + "6"
	}
	return transport + "4"
}

func (f AddressFamily) valid() bool { return f == IPv4 || f == IPv6 }

// ParseAddressFamily accepts the enum case name.
func ParseAddressFamily(name string) (AddressFamily, bool) {
	switch name {
	case "ipv4":
		return IPv4, true
	case "ipv6":
		return IPv6, true
	}
	return 0, false
}

func familyOf(addr netip.Addr) AddressFamily {
	if addr.Is4() {
		return IPv4
	}
	return IPv6
}

// checkFamily rejects addresses that do not belong to the socket's family.
// IPv4-mapped IPv6 addresses are not accepted on IPv6 sockets.
func checkFamily(family AddressFamily, ap netip.AddrPort) *NetworkError {
	if !ap.IsValid() {
		return newError(ErrorInvalidArgument)
	}
	addr := ap.Addr()
	if familyOf(addr) != family || addr.Is4In6() {
		return newError(ErrorInvalidArgument)
	}
	return nil
}

func addrPortOf(a net.Addr) netip.AddrPort {
	switch a := a.(type) {
	case *net.TCPAddr:
		return unmap(a.AddrPort())
	case *net.UDPAddr:
		return unmap(a.AddrPort())
	}
	return netip.AddrPort{}
}

func unmap(ap netip.AddrPort) netip.AddrPort {
	if ap.Addr().Is4In6() {
		return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
	}
	return ap
}

// AddressValue lowers ap to an ip-socket-address value. IPv4 addresses are
// four octets, IPv6 addresses eight 16-bit segments.
func AddressValue(ap netip.AddrPort) transcoder.Value {
	addr := ap.Addr()
	if addr.Is4() {
		o := addr.As4()
		return transcoder.Case("ipv4", transcoder.Record{
			{Name: "port", Value: transcoder.U16(ap.Port())},
			{Name: "address", Value: transcoder.Tuple{
				transcoder.U8(o[0]), transcoder.U8(o[1]), transcoder.U8(o[2]), transcoder.U8(o[3]),
			}},
		})
	}
	b := addr.As16()
	segs := make(transcoder.Tuple, 8)
	for i := range segs {
		segs[i] = transcoder.U16(uint16(b[2*i])<<8 | uint16(b[2*i+1]))
	}
	return transcoder.Case("ipv6", transcoder.Record{
		{Name: "port", Value: transcoder.U16(ap.Port())},
		{Name: "flow-info", Value: transcoder.U32(0)},
		{Name: "address", Value: segs},
		{Name: "scope-id", Value: transcoder.U32(0)},
	})
}

// IPAddressValue lowers a bare address to an ip-address value.
func IPAddressValue(addr netip.Addr) transcoder.Value {
	v := AddressValue(netip.AddrPortFrom(addr, 0)).(transcoder.Variant)
	a, _ := v.Payload.(transcoder.Record).Get("address")
	return transcoder.Case(v.Case, a)
}

// ParseAddressValue lifts an ip-socket-address value.
func ParseAddressValue(v transcoder.Value) (netip.AddrPort, error) {
	variant, ok := v.(transcoder.Variant)
	if !ok {
		return netip.AddrPort{}, fmt.Errorf("ip-socket-address: unexpected %s", transcoder.Format(v))
	}
	rec, ok := variant.Payload.(transcoder.Record)
	if !ok {
		return netip.AddrPort{}, fmt.Errorf("ip-socket-address: missing payload")
	}
	portV, _ := rec.Get("port")
	port, ok := portV.(transcoder.U16)
	if !ok {
		return netip.AddrPort{}, fmt.Errorf("ip-socket-address: bad port")
	}
	addrV, _ := rec.Get("address")
	segs, ok := addrV.(transcoder.Tuple)
	if !ok {
		return netip.AddrPort{}, fmt.Errorf("ip-socket-address: bad address")
	}

	switch variant.Case {
	case "ipv4":
		if len(segs) != 4 {
			return netip.AddrPort{}, fmt.Errorf("ipv4 address has %d octets", len(segs))
		}
		var o [4]byte
		for i, s := range segs {
			b, ok := s.(transcoder.U8)
			if !ok {
				return netip.AddrPort{}, fmt.Errorf("ipv4 octet %d: unexpected %s", i, transcoder.Format(s))
			}
			o[i] = byte(b)
		}
		return netip.AddrPortFrom(netip.AddrFrom4(o), uint16(port)), nil
	case "ipv6":
		if len(segs) != 8 {
			return netip.AddrPort{}, fmt.Errorf("ipv6 address has %d segments", len(segs))
		}
		var b [16]byte
		for i, s := range segs {
			w, ok := s.(transcoder.U16)
			if !ok {
				return netip.AddrPort{}, fmt.Errorf("ipv6 segment %d: unexpected %s", i, transcoder.Format(s))
			}
			b[2*i] = byte(w >> 8)
			b[2*i+1] = byte(w)
		}
		return netip.AddrPortFrom(netip.AddrFrom16(b), uint16(port)), nil
	}
	return netip.AddrPort{}, fmt.Errorf("ip-socket-address: unknown case %q", variant.Case)
}
