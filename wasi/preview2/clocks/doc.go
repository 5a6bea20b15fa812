// Package clocks implements WASI clock interfaces for time operations.
//
// Implements:
//   - wasi:clocks/monotonic-clock@0.2.8 - Monotonic time measurements
//   - wasi:clocks/wall-clock@0.2.8 - Wall clock time
//
// Monotonic instants are nanoseconds since the host was created. The
// subscribe calls return timer pollables for wasi:io/poll. Both interfaces
// export "now" and "resolution", so register them on one surface and call
// them by qualified name.
package clocks
