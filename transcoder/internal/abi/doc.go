// Package abi holds the Canonical ABI arithmetic shared by layout
// calculation, lowering and lifting: alignment, overflow-checked sizes,
// discriminant and flag widths, NaN canonicalization and char validation.
//
// This package is internal to the transcoder.
package abi
