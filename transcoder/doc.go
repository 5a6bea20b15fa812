// Package transcoder implements the Canonical ABI value codec.
//
// Values are dynamically typed (see Value) and are checked against a WIT type
// on every transfer. Lowering writes a value into linear memory and lifting
// reads it back; the flat forms map values to and from core wasm values.
//
// # Memory Layout
//
//	Type            Size    Alignment
//	──────────────────────────────────
//	bool            1       1
//	u8/s8           1       1
//	u16/s16         2       2
//	u32/s32/f32     4       4
//	u64/s64/f64     8       8
//	char            4       4
//	string          8       4 (ptr + len)
//	list<T>         8       4 (ptr + len)
//	record          sum     max field align
//	variant         varies  max(disc, case align)
//	option<T>       1+size  max(1, T align)
//	flags           1/2/4n  1/2/4 (per bit count)
//	own/borrow      4       4
//
// # Key Types
//
//	Codec         - Lowers and lifts values; holds limits and the NaN policy
//	Compiler      - Compiles WIT types into cached shapes
//	LinearMemory  - Growable byte memory with a bump allocator
//	WireForm      - A lowered value and the memory that holds it
//
// # NaN Handling
//
// NaNCanonicalize (the default) replaces every NaN with the canonical quiet
// NaN (0x7fc00000 for f32, 0x7ff8000000000000 for f64) in both directions.
// NaNPreserveBits passes payload bits through. Equal follows the same mode.
//
// # Errors
//
// Malformed wire data never panics. Bad discriminants, invalid UTF-8, invalid
// chars, stray flag bits and truncated buffers return errors matching
// errors.ErrDecode. Value and type disagreements on lowering are reported in
// the encode phase. Failed lowerings free every block they allocated.
//
// # Flat Forms
//
// LowerFlat and LiftFlat carry 32-bit values in the low half of a uint64
// slot and floats as raw bits, matching the wazero stack convention. Past
// MaxFlatParams (or MaxFlatResults) values spill to memory as a tuple and
// the flat form is a single pointer.
package transcoder
