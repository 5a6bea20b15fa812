package preview2

import (
	"github.com/wippyai/wasm-boundary/resource"
)

// MaxAllocationSize caps a single read or write-zeroes request (1 GB).
const MaxAllocationSize = 1 << 30

// DefaultBufferSize is the default buffer size for streams and sockets (64 KB)
const DefaultBufferSize = 65536

// ResourceTable manages WASI preview2 resource handles.
// It is an adapter over the unified resource.Table.
type ResourceTable struct {
	table *resource.Table
}

// Resource is a WASI preview2 resource that can be managed by ResourceTable.
type Resource interface {
	// Type returns the resource type identifier.
	Type() ResourceType
	// Drop releases any underlying resources.
	Drop()
}

// ResourceType identifies the type of a WASI resource for type-safe handle management.
type ResourceType uint8

const (
	ResourcePollable ResourceType = iota
	ResourceInputStream
	ResourceOutputStream
	ResourceError
	ResourceNetwork
	ResourceTCPSocket
	ResourceUDPSocket
	ResourceIncomingDatagramStream
	ResourceOutgoingDatagramStream
	ResourceIPNameLookup
	ResourceTerminalInput
	ResourceTerminalOutput
)

func (t ResourceType) String() string {
	switch t {
	case ResourcePollable:
		return "pollable"
	case ResourceInputStream:
		return "input-stream"
	case ResourceOutputStream:
		return "output-stream"
	case ResourceError:
		return "error"
	case ResourceNetwork:
		return "network"
	case ResourceTCPSocket:
		return "tcp-socket"
	case ResourceUDPSocket:
		return "udp-socket"
	case ResourceIncomingDatagramStream:
		return "incoming-datagram-stream"
	case ResourceOutgoingDatagramStream:
		return "outgoing-datagram-stream"
	case ResourceIPNameLookup:
		return "resolve-address-stream"
	case ResourceTerminalInput:
		return "terminal-input"
	case ResourceTerminalOutput:
		return "terminal-output"
	}
	return "unknown"
}

// NewResourceTable creates a new resource table
func NewResourceTable() *ResourceTable {
	return &ResourceTable{
		table: resource.NewTable(),
	}
}

// Table exposes the underlying handle table, e.g. to attach observers.
func (t *ResourceTable) Table() *resource.Table {
	return t.table
}

// Add stores a resource and returns a stable handle.
func (t *ResourceTable) Add(r Resource) uint32 {
	return uint32(t.table.Insert(resource.TypeID(r.Type()), r))
}

// Get returns the resource for a handle, or (nil, false) if invalid.
func (t *ResourceTable) Get(handle uint32) (Resource, bool) {
	v, ok := t.table.Get(resource.Handle(handle))
	if !ok {
		return nil, false
	}
	r, ok := v.(Resource)
	return r, ok
}

// Remove calls Drop on the resource and removes it from the table.
func (t *ResourceTable) Remove(handle uint32) error {
	_, err := t.table.Remove(resource.Handle(handle))
	return err
}

// Len returns the number of live handles.
func (t *ResourceTable) Len() int {
	return t.table.Len()
}

// Clear drops and removes all resources. Used during shutdown.
func (t *ResourceTable) Clear() {
	t.table.Clear()
}

// Lookup returns the resource for handle asserted to T.
func Lookup[T Resource](t *ResourceTable, handle uint32) (T, bool) {
	var zero T
	r, ok := t.Get(handle)
	if !ok {
		return zero, false
	}
	v, ok := r.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// ErrorResource carries the cause of a failed stream operation so the guest
// can read it back through to-debug-string.
type ErrorResource struct {
	err error
	msg string
}

func NewErrorResource(msg string) *ErrorResource {
	return &ErrorResource{msg: msg}
}

// NewErrorResourceFrom wraps err.
func NewErrorResourceFrom(err error) *ErrorResource {
	return &ErrorResource{err: err, msg: err.Error()}
}

func (e *ErrorResource) Type() ResourceType    { return ResourceError }
func (e *ErrorResource) Drop()                 {}
func (e *ErrorResource) ToDebugString() string { return e.msg }
func (e *ErrorResource) Err() error            { return e.err }

// NetworkResource represents a network instance for socket creation.
type NetworkResource struct{}

func NewNetworkResource() *NetworkResource {
	return &NetworkResource{}
}

func (n *NetworkResource) Type() ResourceType { return ResourceNetwork }
func (n *NetworkResource) Drop()              {}
