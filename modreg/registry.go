package modreg

import (
	"fmt"
	"os"
	"path/filepath"
	"plugin"
	"runtime"
	"strings"
	"sync"
)

// Registry is the Module Registry: at most one resident copy of any
// module (identified by name) is loaded per Context.
type Registry struct {
	mu       sync.Mutex
	resident map[string]*Descriptor
	closers  []func() error
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{resident: map[string]*Descriptor{}}
}

// builtins holds in-process module initializers, analogous to yaegi's own
// Exports/Use() mechanism (a static symbol table loaded into the
// interpreter rather than dynamically linked) — see DESIGN.md. This is
// also the path a WebAssembly build would take, dispatching to built-in
// initializers for a fixed set of core modules instead of dlopen. Native
// modules in this repository (modules/psmath, modules/psfs) register
// themselves here from an init() func, since this repository does not
// build them as separate .so/.dylib/.dll artifacts.
var builtins = struct {
	mu    sync.Mutex
	funcs map[string]InitFunc
}{funcs: map[string]InitFunc{}}

// RegisterBuiltin registers an in-process module initializer under name,
// for the built-in load path.
func RegisterBuiltin(name string, fn InitFunc) {
	builtins.mu.Lock()
	defer builtins.mu.Unlock()
	builtins.funcs[name] = fn
}

// platformExt returns the shared-library extension for the current GOOS,
// used to build a module file name of the form psmod_<name>.{so,dylib,dll}.
func platformExt() string {
	switch runtime.GOOS {
	case "darwin":
		return ".dylib"
	case "windows":
		return ".dll"
	default:
		return ".so"
	}
}

func candidateFileName(moduleName string) string {
	return "psmod_" + strings.ReplaceAll(moduleName, ".", "_") + platformExt()
}

// searchPaths builds the ordered directory list the loader walks:
// PS_MODULE_PATH entries first, then ./modules, then ./lib.
func searchPaths() []string {
	var dirs []string
	if mp := os.Getenv("PS_MODULE_PATH"); mp != "" {
		dirs = append(dirs, filepath.SplitList(mp)...)
	}
	dirs = append(dirs, "./modules", "./lib")
	return dirs
}

// Load resolves name to a Descriptor, consulting the resident cache,
// then the in-process builtin table, then the MODULE_PATH-style file
// search with a dlopen-equivalent (stdlib plugin.Open) load, validating
// the ABI-version handshake before registering.
func (r *Registry) Load(name string) (*Descriptor, error) {
	r.mu.Lock()
	if d, ok := r.resident[name]; ok {
		r.mu.Unlock()
		return d, nil
	}
	r.mu.Unlock()

	if init, ok := lookupBuiltin(name); ok {
		return r.register(name, init, nil)
	}

	fname := candidateFileName(name)
	var lastErr error
	for _, dir := range searchPaths() {
		path := filepath.Join(dir, fname)
		if _, err := os.Stat(path); err != nil {
			lastErr = err
			continue
		}
		p, err := plugin.Open(path)
		if err != nil {
			return nil, fmt.Errorf("import error: opening module %q: %w", name, err)
		}
		sym, err := p.Lookup("ps_module_init")
		if err != nil {
			return nil, fmt.Errorf("import error: module %q missing ps_module_init: %w", name, err)
		}
		init, ok := sym.(func(*Descriptor) int)
		if !ok {
			return nil, fmt.Errorf("import error: module %q ps_module_init has the wrong signature", name)
		}
		return r.register(name, init, func() error { return nil })
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("module not found")
	}
	return nil, fmt.Errorf("import error: module %q: %w", name, lastErr)
}

func lookupBuiltin(name string) (InitFunc, bool) {
	builtins.mu.Lock()
	defer builtins.mu.Unlock()
	fn, ok := builtins.funcs[name]
	return fn, ok
}

func (r *Registry) register(name string, init InitFunc, closer func() error) (*Descriptor, error) {
	desc := &Descriptor{Name: name, Funcs: map[string]*NativeFunc{}}
	reported := init(desc)
	if reported != ABIVersion {
		return nil, fmt.Errorf("import error: module %q ABI version %d does not match process ABI %d", name, reported, ABIVersion)
	}
	desc.ABIVersion = reported
	r.mu.Lock()
	r.resident[name] = desc
	if closer != nil {
		r.closers = append(r.closers, closer)
	}
	r.mu.Unlock()
	return desc, nil
}

// CloseAll closes every dynamically-opened module's resources. Built-in
// (in-process) modules have no close action.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.closers {
		_ = c()
	}
	r.closers = nil
}
