// Package preview2 holds the shared pieces of the WASI Preview2 host:
// the resource table, pollables, the readiness registry and stream errors.
//
// # Quick Start
//
// Create a WASI context and register its hosts on a boundary surface:
//
//	wasi := preview2.New().
//	    WithEnv(map[string]string{"HOME": "/home/user"}).
//	    WithArgs([]string{"program", "--verbose"}).
//	    WithStdin([]byte("input data"))
//	defer wasi.Close()
//
//	s := boundary.NewSurface(boundary.WithResources(wasi.Resources().Table()))
//	_ = io.NewHost(wasi.Resources()).Register(s)
//
// # Resource Management
//
// Guests hold opaque u32 handles into a ResourceTable. Dropping a handle
// calls the resource's Drop, which releases host state and resolves any
// pollable waiting on it.
//
// # Readiness
//
// Poll takes a list of pollables and waits until at least one is ready.
// It returns every ready index in input order and never an empty set.
// Pollables that implement Waiter are waited on directly; others are
// re-checked with adaptive backoff. A destroyed resource counts as ready.
//
// # Sub-packages
//
//   - io: input and output streams, poll and error
//   - sockets: TCP and UDP sockets, networks and name lookup
//   - clocks: wall and monotonic clocks with timer pollables
//   - cli: environment, exit and stdio streams
package preview2
