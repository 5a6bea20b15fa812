// Package wasmboundary moves structured values across a component boundary
// and hosts the poll-driven WASI I/O that guests reach through it.
//
// # Architecture Overview
//
// The module is organized into packages with distinct responsibilities:
//
//	wasmboundary/        Root package with core Memory and Allocator interfaces
//	├── transcoder/      Canonical ABI lowering/lifting of dynamic values
//	├── engine/          wazero linear memory, allocator and host module export
//	├── boundary/        Named operation surface whose calls cross the codec
//	├── resource/        Resource handle table implementation
//	├── errors/          Structured error types for debugging
//	├── wasi/preview2/   Pollables, resource table and the readiness registry
//	│   ├── io/          Streams, poll and error hosts
//	│   ├── sockets/     TCP and UDP sockets, name lookup
//	│   ├── clocks/      Timer pollables
//	│   ├── cli/         Stdio streams and terminal detection
//	│   └── random/      Secure and insecure randomness
//	└── cmd/boundary/    Command line explorer
//
// # Quick Start
//
// Lower a record into linear memory and lift it back:
//
//	typ := &wit.TypeDef{Kind: &wit.Record{Fields: []wit.Field{
//		{Name: "a", Type: wit.U32{}},
//		{Name: "b", Type: wit.String{}},
//	}}}
//	wire, err := transcoder.Lower(typ, transcoder.Record{
//		{Name: "a", Value: transcoder.U32(123)},
//		{Name: "b", Value: transcoder.String("hello")},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	v, err := transcoder.Lift(typ, wire)
//
// Expose operations across the boundary:
//
//	s := boundary.NewSurface()
//	s.MustRegister(boundary.Operation{
//		Name:   "echo-u32",
//		Params: []wit.Type{wit.U32{}},
//		Result: wit.U32{},
//		Handler: func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
//			return c.Args[0], nil
//		},
//	})
//	out, err := s.Call(ctx, "echo-u32", transcoder.U32(7))
//
// # Async I/O
//
// Streams and sockets never block in their primary operations. Blocking
// variants subscribe a pollable and wait in preview2.Poll, which returns every
// ready index in input order and treats destroyed resources as ready.
package wasmboundary
