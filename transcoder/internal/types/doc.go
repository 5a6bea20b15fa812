// Package types defines compiled type shapes for dynamic lowering and lifting.
//
// A Shape holds precomputed layout information (size, alignment, offsets,
// flat core types) for one WIT type. Compiling once lets the transcoder walk
// values without recomputing layouts on every call.
//
// # Key Types
//
//   - Shape: cached type metadata with layout info
//   - Kind: type discriminator (primitive, record, list, variant, etc.)
//
// This package is internal to the transcoder.
package types
