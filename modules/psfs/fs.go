// Package psfs is a native module demonstrating a native-owned resource
// tied to a Value's lifetime: mapFile memory-maps a file instead of
// read()-ing it into a buffer, the same technique saferwall-pe's file.go
// uses to map PE binaries for zero-copy parsing, and ties the mapping's
// Unmap to the returned File Value's release the way value/file.go
// already does for OS file handles.
package psfs

import (
	"bytes"
	"fmt"
	"os"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/protoscript/ps/modreg"
	"github.com/protoscript/ps/value"
)

func init() {
	modreg.RegisterBuiltin("Fs", initModule)
}

func initModule(desc *modreg.Descriptor) int {
	desc.Funcs = map[string]*modreg.NativeFunc{
		"readFile": {Name: "readFile", Arity: 1, ReturnType: "bytes", ParamTypes: []string{"string"}, Fn: readFile},
		"mapFile":  {Name: "mapFile", Arity: 1, ReturnType: "file", ParamTypes: []string{"string"}, Fn: mapFile},
		"fileSize": {Name: "fileSize", Arity: 1, ReturnType: "int", ParamTypes: []string{"string"}, Fn: fileSize},
	}
	return modreg.ABIVersion
}

// readFile maps path read-only, copies its contents into a bytes Value,
// and unmaps immediately afterward. ProtoScript's bytes Value has no
// destructor hook of its own — it is a plain byte-slice payload — so the
// mapping's lifetime is this call rather than the returned Value's;
// mapFile below is the variant that keeps the mapping alive instead.
func readFile(_ modreg.NativeContext, args []value.Value) (value.Value, error) {
	path, err := stringArg(args, 0)
	if err != nil {
		return value.Value{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return value.Value{}, fmt.Errorf("fs:OpenError:%s", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return value.Value{}, fmt.Errorf("fs:StatError:%s", err)
	}
	if info.Size() == 0 {
		return value.NewBytes(nil), nil
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return value.Value{}, fmt.Errorf("fs:MapError:%s", err)
	}
	defer m.Unmap()

	return value.NewBytes(m), nil
}

// mapFile maps path read-only and returns it as a File Value wrapping
// the mapping directly, with no intervening copy. The file descriptor is
// closed once the mapping succeeds (POSIX mmap keeps the mapping
// resident after the fd closes); the mapping itself is unmapped when the
// returned Value's refcount reaches zero, via fileData.release the same
// way an ordinary opened file's stream gets closed on release.
func mapFile(_ modreg.NativeContext, args []value.Value) (value.Value, error) {
	path, err := stringArg(args, 0)
	if err != nil {
		return value.Value{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return value.Value{}, fmt.Errorf("fs:OpenError:%s", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return value.Value{}, fmt.Errorf("fs:StatError:%s", err)
	}
	if info.Size() == 0 {
		f.Close()
		return value.NewFile(path, value.FileRead, nil, bytes.NewReader(nil), nil), nil
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	f.Close()
	if err != nil {
		return value.Value{}, fmt.Errorf("fs:MapError:%s", err)
	}

	return value.NewFile(path, value.FileRead, mmapCloser{m}, bytes.NewReader(m), nil), nil
}

// mmapCloser adapts mmap.MMap's Unmap to io.Closer so a mapping can be
// passed as a File Value's stream.
type mmapCloser struct {
	m mmap.MMap
}

func (c mmapCloser) Close() error { return c.m.Unmap() }

func fileSize(_ modreg.NativeContext, args []value.Value) (value.Value, error) {
	path, err := stringArg(args, 0)
	if err != nil {
		return value.Value{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return value.Value{}, fmt.Errorf("fs:StatError:%s", err)
	}
	return value.NewInt(info.Size()), nil
}

func stringArg(args []value.Value, i int) (string, error) {
	if i >= len(args) || args[i].Kind != value.KindString {
		return "", fmt.Errorf("type error: argument %d must be a string", i)
	}
	return string(args[i].Bytes()), nil
}
