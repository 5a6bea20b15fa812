// Package engine runs core WebAssembly modules on wazero and carries
// canonical ABI values across the guest boundary in both directions.
//
// # Architecture
//
//	Engine    - Owns a wazero runtime and the value codec
//	Instance  - An instantiated guest; Call lowers args and lifts results
//	HostFunc  - A host operation exported to guests as an import
//
// # Canonical ABI
//
// The canonical ABI defines how WIT types map to WASM core types:
//
//	WIT Type        Core Representation    Flat Count
//	─────────────────────────────────────────────────
//	bool, u8-u32    i32                    1
//	u64, s64        i64                    1
//	f32             f32                    1
//	f64             f64                    1
//	string          (ptr, len) as i32×2    2
//	list<T>         (ptr, len) as i32×2    2
//	record          flattened fields       sum of fields
//	variant         (disc, payload)        1 + max(cases)
//	option<T>       variant with none/some varies
//	result<T,E>     variant with ok/err    varies
//	flags           i32 per 32 flags       ceil(n/32)
//	own/borrow      i32 handle             1
//
// When flat count exceeds MaxFlatParams (16) or MaxFlatResults (1), values
// are passed via linear memory using a return pointer (retptr).
//
// # Host Functions
//
// ExportHostModule builds a wazero host module from HostFuncs. Arguments are
// lifted before the handler runs; if lifting fails the guest traps and the
// handler is never invoked.
//
// # Memory
//
// Guests that export cabi_realloc allocate lowered data themselves. Guests
// without it get a BumpAllocator that grows their memory past its initial
// size.
package engine
