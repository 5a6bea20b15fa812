// Package errors provides structured error types for the boundary codec and
// the WASI I/O host.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: field path, value/WIT type names, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindInvalidVariant).
//		Path("shape").
//		WitType("variant").
//		Detail("discriminant %d out of range", 7).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidUTF8(errors.PhaseDecode, path, data)
//	err := errors.OutOfBounds(errors.PhaseDecode, path, 10, 5)
//
// Every lift failure carries PhaseDecode, so callers can test for any
// decode failure without naming the kind:
//
//	if errors.Is(err, werrors.ErrDecode) { ... }
package errors
