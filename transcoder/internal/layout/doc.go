// Package layout provides Canonical ABI layout calculations for WIT types.
//
// This package computes size, alignment, member offsets and payload offsets.
// These calculations determine how values are represented in linear memory.
//
// # Layout Rules
//
//   - Primitives: size equals alignment (u8=1, u32=4, u64=8, etc.)
//   - Records and tuples: members laid out sequentially with padding
//   - Variants, options, results: discriminant, then the widest payload at
//     the payload alignment
//   - Flags: u8, u16 or u32, then whole u32 words beyond 32 flags
//   - Lists/Strings: (pointer, length) pair in memory, content elsewhere
//   - own/borrow handles: u32
//
// # Usage
//
//	info := layout.NewCalculator().Calculate(witType)
//	// info.Size, info.Align, info.Offsets, info.PayloadOffset
//
// This package is internal to the transcoder.
package layout
