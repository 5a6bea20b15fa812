package io

import goio "io"

// NewPipe connects an output stream to an input stream in memory. Bytes
// written to w become readable from r; closing w ends r's stream.
func NewPipe(cfg Config) (r *InputStream, w *OutputStream) {
	pr, pw := goio.Pipe()
	return NewInputStream(pr, cfg), NewOutputStream(pw, cfg)
}
