package interp

import (
	"io"
	"log"
	"os"

	"github.com/protoscript/ps/diag"
	"github.com/protoscript/ps/ir"
	"github.com/protoscript/ps/modreg"
	"github.com/protoscript/ps/value"
)

// Context is the process-wide execution state for one run of the
// interpreter: a handle-root stack pinning foreign-held Values against
// release, the last-error slot, an optional pending exception, the
// registry of loaded native modules, the current IR module, standard
// stream Values, and a cached EOF sentinel. A Context is not safe to
// share across goroutines.
type Context struct {
	Module *ir.Module

	lastError *diag.RuntimeError
	pending   value.Value // pending exception, or Void

	handleRoots []value.Value // root set pinning foreign-held Values

	modules *modreg.Registry

	stdin, stdout, stderr value.Value // lazily constructed standard streams
	eof                   value.Value // cached EOF sentinel

	Logger *log.Logger // backs --trace/--trace-ir; nil disables tracing
	Trace  bool
	TraceIR bool
}

// NewContext creates a fresh Context for executing mod. Native modules
// are loaded lazily on first `Module.symbol` call and kept open for the
// Context's lifetime.
func NewContext(mod *ir.Module) *Context {
	return &Context{
		Module:  mod,
		pending: value.Void,
		modules: modreg.NewRegistry(),
		eof:     value.NewObject("__eof"),
		Logger:  log.New(os.Stderr, "", 0),
	}
}

// Root pins v against release while it is reachable only from foreign
// code (native modules, CLI callers holding onto a Value across calls).
func (c *Context) Root(v value.Value) {
	c.handleRoots = append(c.handleRoots, value.Retain(v))
}

// Unroot releases the most recently rooted Value equal in identity to v.
// It is the caller's responsibility to unroot in LIFO order, matching
// the handle-root stack's discipline.
func (c *Context) Unroot(v value.Value) {
	for i := len(c.handleRoots) - 1; i >= 0; i-- {
		if value.Equal(c.handleRoots[i], v) {
			value.Release(c.handleRoots[i])
			c.handleRoots = append(c.handleRoots[:i], c.handleRoots[i+1:]...)
			return
		}
	}
}

// Destroy releases every rooted handle and frees module records.
func (c *Context) Destroy() {
	for _, v := range c.handleRoots {
		value.Release(v)
	}
	c.handleRoots = nil
	if c.stdin.Kind == value.KindFile {
		value.Release(c.stdin)
	}
	if c.stdout.Kind == value.KindFile {
		value.Release(c.stdout)
	}
	if c.stderr.Kind == value.KindFile {
		value.Release(c.stderr)
	}
	c.modules.CloseAll()
}

// SetLastError records (bucket, message) on the Context's last-error
// slot, overwriting any previous value — every fallible core operation
// does this before returning a sentinel.
func (c *Context) SetLastError(bucket diag.ErrorBucket, message string) {
	c.lastError = &diag.RuntimeError{Bucket: bucket, Message: message}
}

// LastError returns the most recently recorded error, or nil.
func (c *Context) LastError() *diag.RuntimeError { return c.lastError }

// ClearLastError clears the last-error slot, e.g. after it has been
// materialized into an exception.
func (c *Context) ClearLastError() { c.lastError = nil }

// PendingException returns the Context-level pending exception (set when
// a frame unwinds with no try handler left to catch it).
func (c *Context) PendingException() value.Value { return c.pending }

// SetPendingException records e as the Context-level pending exception.
func (c *Context) SetPendingException(e value.Value) {
	if c.pending.Kind == value.KindException {
		value.Release(c.pending)
	}
	c.pending = value.Retain(e)
}

// StdStream returns (lazily constructing) one of the three standard
// stream Values, each wrapped with the STD flag forbidding close.
func (c *Context) StdStream(which string) value.Value {
	switch which {
	case "stdin":
		if c.stdin.Kind != value.KindFile {
			c.stdin = value.NewFile("<stdin>", value.FileRead|value.FileStd, nil, os.Stdin, nil)
		}
		return c.stdin
	case "stdout":
		if c.stdout.Kind != value.KindFile {
			c.stdout = value.NewFile("<stdout>", value.FileWrite|value.FileStd, nil, nil, io.Writer(os.Stdout))
		}
		return c.stdout
	case "stderr":
		if c.stderr.Kind != value.KindFile {
			c.stderr = value.NewFile("<stderr>", value.FileWrite|value.FileStd, nil, nil, io.Writer(os.Stderr))
		}
		return c.stderr
	default:
		return value.Void
	}
}

// EOF returns the Context's cached EOF sentinel object.
func (c *Context) EOF() value.Value { return c.eof }

// Modules returns the Context's native module registry.
func (c *Context) Modules() *modreg.Registry { return c.modules }

func (c *Context) tracef(format string, args ...any) {
	if c.Trace && c.Logger != nil {
		c.Logger.Printf(format, args...)
	}
}
