package sockets

import (
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-boundary/boundary"
	"github.com/wippyai/wasm-boundary/transcoder"
)

const (
	NetworkInterface         = "wasi:sockets/network@0.2.8"
	InstanceNetworkInterface = "wasi:sockets/instance-network@0.2.8"
	TCPInterface             = "wasi:sockets/tcp@0.2.8"
	TCPCreateInterface       = "wasi:sockets/tcp-create-socket@0.2.8"
	UDPInterface             = "wasi:sockets/udp@0.2.8"
	UDPCreateInterface       = "wasi:sockets/udp-create-socket@0.2.8"
	NameLookupInterface      = "wasi:sockets/ip-name-lookup@0.2.8"
)

var (
	NetworkType                = boundary.Resource("network")
	TCPSocketType              = boundary.Resource("tcp-socket")
	UDPSocketType              = boundary.Resource("udp-socket")
	IncomingDatagramStreamType = boundary.Resource("incoming-datagram-stream")
	OutgoingDatagramStreamType = boundary.Resource("outgoing-datagram-stream")
	ResolveAddressStreamType   = boundary.Resource("resolve-address-stream")

	ErrorCodeType = boundary.Enum("error-code", errorCodeNames[:]...)

	AddressFamilyType = boundary.Enum("ip-address-family", "ipv4", "ipv6")
	ShutdownTypeType  = boundary.Enum("shutdown-type", "receive", "send", "both")

	IPv4AddressType = boundary.Tuple(wit.U8{}, wit.U8{}, wit.U8{}, wit.U8{})
	IPv6AddressType = boundary.Tuple(wit.U16{}, wit.U16{}, wit.U16{}, wit.U16{},
		wit.U16{}, wit.U16{}, wit.U16{}, wit.U16{})

	IPAddressType = boundary.Variant("ip-address",
		boundary.Case("ipv4", IPv4AddressType),
		boundary.Case("ipv6", IPv6AddressType),
	)

	IPv4SocketAddressType = boundary.Record("ipv4-socket-address",
		boundary.Field("port", wit.U16{}),
		boundary.Field("address", IPv4AddressType),
	)
	IPv6SocketAddressType = boundary.Record("ipv6-socket-address",
		boundary.Field("port", wit.U16{}),
		boundary.Field("flow-info", wit.U32{}),
		boundary.Field("address", IPv6AddressType),
		boundary.Field("scope-id", wit.U32{}),
	)
	IPSocketAddressType = boundary.Variant("ip-socket-address",
		boundary.Case("ipv4", IPv4SocketAddressType),
		boundary.Case("ipv6", IPv6SocketAddressType),
	)

	IncomingDatagramType = boundary.Record("incoming-datagram",
		boundary.Field("data", boundary.Bytes),
		boundary.Field("remote-address", IPSocketAddressType),
	)
	OutgoingDatagramType = boundary.Record("outgoing-datagram",
		boundary.Field("data", boundary.Bytes),
		boundary.Field("remote-address", boundary.Option(IPSocketAddressType)),
	)
)

func errorValue(err *NetworkError) transcoder.Value {
	return transcoder.Enum(err.Code.String())
}

// result builds result<T, error-code>.
func result(ok transcoder.Value, err *NetworkError) transcoder.Value {
	if err != nil {
		return transcoder.Err(errorValue(err))
	}
	return transcoder.Ok(ok)
}
