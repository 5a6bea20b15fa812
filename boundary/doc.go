// Package boundary is the call surface between a host and a component.
//
// A Surface holds named operations with WIT signatures. Calling one moves
// the arguments through the canonical ABI: they are lowered into a scratch
// linear memory, lifted back, and only then handed to the handler. An
// argument that cannot be lifted fails the call and the handler never runs,
// so every operation executes at most once per call.
//
//	s := boundary.NewSurface()
//	s.MustRegister(boundary.Operation{
//		Name:   "area",
//		Params: []wit.Type{shapeType},
//		Result: wit.F64{},
//		Handler: func(ctx context.Context, c *boundary.Call) (transcoder.Value, error) {
//			v := c.Args[0].(transcoder.Variant)
//			...
//		},
//	})
//	area, err := s.Call(ctx, "area", transcoder.Case("circle", transcoder.F64(2.5)))
//
// Resources cross as opaque handles. Top-level borrow<T> parameters are
// pinned in the surface's resource.Table for the duration of the handler;
// a handle that is no longer live fails the call.
//
// Export instantiates the same operations as wazero host modules so a real
// guest can import them, with engine taking care of the flat core
// signatures and return pointers.
package boundary
