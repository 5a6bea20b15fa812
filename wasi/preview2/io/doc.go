// Package io implements WASI I/O interfaces for stream operations.
//
// Implements:
//   - wasi:io/streams@0.2.8 - Input and output streams
//   - wasi:io/poll@0.2.8 - Pollable resources
//   - wasi:io/error@0.2.8 - Stream errors
//
// Every stream is backed by a goroutine that moves bytes between the host
// reader or writer and a bounded buffer. Read, Write and CheckWrite only
// touch the buffer and never block; the blocking variants subscribe a
// pollable and wait in preview2.Poll. NewPipe connects the two directions
// in memory.
//
// Hosts register their operations on a boundary.Surface so that guest
// calls cross the canonical ABI.
package io
