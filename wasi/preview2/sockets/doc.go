// Package sockets implements WASI socket interfaces for network I/O.
//
// Implements:
//   - wasi:sockets/network@0.2.8 - Network instance
//   - wasi:sockets/instance-network@0.2.8 - Default network capability
//   - wasi:sockets/tcp@0.2.8 - TCP sockets
//   - wasi:sockets/tcp-create-socket@0.2.8 - TCP socket creation
//   - wasi:sockets/udp@0.2.8 - UDP sockets and datagram streams
//   - wasi:sockets/udp-create-socket@0.2.8 - UDP socket creation
//   - wasi:sockets/ip-name-lookup@0.2.8 - DNS resolution
//
// Bind, connect and listen are split into start and finish calls. The
// start call launches the work on a goroutine; the finish call reports
// would-block until that work completes, so no call ever blocks the guest.
// Subscribe returns a pollable that becomes ready when a finish call, an
// accept or a receive would make progress.
//
// A connected TCP socket hands out exactly one input and one output
// stream. Dropping a stream half-closes the connection; dropping the
// socket closes everything. All I/O goes through the hooks in Config,
// which default to the net package.
package sockets
