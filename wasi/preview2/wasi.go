package preview2

import (
	"bytes"
	"io"
	"sync"
)

// WASI configures a WASI preview2 environment. Use builder methods to set up.
type WASI struct {
	resources *ResourceTable
	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
	env       map[string]string
	cwd       string
	args      []string
}

// New creates a new WASI preview2 instance. Stdout and stderr are captured
// in memory until redirected.
func New() *WASI {
	return &WASI{
		resources: NewResourceTable(),
		stdin:     bytes.NewReader(nil),
		stdout:    &CaptureBuffer{},
		stderr:    &CaptureBuffer{},
		env:       make(map[string]string),
		cwd:       "/",
	}
}

// WithEnv sets environment variables
func (w *WASI) WithEnv(env map[string]string) *WASI {
	w.env = env
	return w
}

// WithArgs sets command-line arguments
func (w *WASI) WithArgs(args []string) *WASI {
	w.args = args
	return w
}

// WithCwd sets the current working directory
func (w *WASI) WithCwd(cwd string) *WASI {
	w.cwd = cwd
	return w
}

// WithStdin sets stdin data
func (w *WASI) WithStdin(data []byte) *WASI {
	w.stdin = bytes.NewReader(data)
	return w
}

// WithStdinReader streams stdin from r.
func (w *WASI) WithStdinReader(r io.Reader) *WASI {
	w.stdin = r
	return w
}

// WithStdout sends stdout to dst instead of capturing it.
func (w *WASI) WithStdout(dst io.Writer) *WASI {
	w.stdout = dst
	return w
}

// WithStderr sends stderr to dst instead of capturing it.
func (w *WASI) WithStderr(dst io.Writer) *WASI {
	w.stderr = dst
	return w
}

// Stdout returns captured stdout, or nil when stdout was redirected.
func (w *WASI) Stdout() []byte {
	if c, ok := w.stdout.(*CaptureBuffer); ok {
		return c.Bytes()
	}
	return nil
}

// Stderr returns captured stderr, or nil when stderr was redirected.
func (w *WASI) Stderr() []byte {
	if c, ok := w.stderr.(*CaptureBuffer); ok {
		return c.Bytes()
	}
	return nil
}

// Resources returns the resource table
func (w *WASI) Resources() *ResourceTable {
	return w.resources
}

// Env returns environment variables
func (w *WASI) Env() map[string]string {
	return w.env
}

// Args returns command-line arguments
func (w *WASI) Args() []string {
	return w.args
}

// Cwd returns current working directory
func (w *WASI) Cwd() string {
	return w.cwd
}

// StdinReader returns the stdin source.
func (w *WASI) StdinReader() io.Reader { return w.stdin }

// StdoutWriter returns the stdout destination.
func (w *WASI) StdoutWriter() io.Writer { return w.stdout }

// StderrWriter returns the stderr destination.
func (w *WASI) StderrWriter() io.Writer { return w.stderr }

// Close drops every resource, borrowed or not.
func (w *WASI) Close() error {
	return w.resources.Table().Close()
}

// CaptureBuffer is a bytes.Buffer safe for a pump goroutine to write while
// the host reads it.
type CaptureBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (b *CaptureBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// Bytes returns a copy of everything written so far.
func (b *CaptureBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Clone(b.buf.Bytes())
}
