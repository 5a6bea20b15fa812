package io

// Config sizes the buffers between a stream and its pump goroutine.
type Config struct {
	// InputBufferSize caps bytes read ahead from the source before the
	// pump waits for the guest to consume them.
	InputBufferSize int
	// OutputBufferSize caps bytes accepted by write but not yet delivered.
	// check-write never permits more than this.
	OutputBufferSize int
	// ReadChunkSize is the size of a single read or write on the host side.
	ReadChunkSize int
}

// DefaultConfig returns 64 KiB input, 32 KiB output and 4 KiB chunks.
func DefaultConfig() Config {
	return Config{
		InputBufferSize:  64 << 10,
		OutputBufferSize: 32 << 10,
		ReadChunkSize:    4 << 10,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.InputBufferSize <= 0 {
		c.InputBufferSize = d.InputBufferSize
	}
	if c.OutputBufferSize <= 0 {
		c.OutputBufferSize = d.OutputBufferSize
	}
	if c.ReadChunkSize <= 0 {
		c.ReadChunkSize = d.ReadChunkSize
	}
	return c
}
