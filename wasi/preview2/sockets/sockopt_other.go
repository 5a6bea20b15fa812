//go:build !unix

package sockets

import "syscall"

func setHopLimit(syscall.RawConn, AddressFamily, uint8) error { return nil }

func setBufferSizes(syscall.RawConn, uint64, uint64) error { return nil }
