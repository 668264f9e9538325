package value

import "io"

// FileFlags bitfield for a File value's mode.
type FileFlags uint8

const (
	FileRead FileFlags = 1 << iota
	FileWrite
	FileAppend
	FileBinary
	FileStd // standard stream: close() is forbidden
)

// fileData is the reference payload of a KindFile Value: an OS stream
// handle, flags, a closed marker, and the path it was opened from.
// Standard streams are singletons owned by the interp.Context.
type fileData struct {
	stream io.Closer // may be a concrete *os.File or any other io.Closer; nil for std streams
	reader io.Reader
	writer io.Writer
	flags  FileFlags
	closed bool
	path   string
}

func (f *fileData) release() {
	if !f.closed && f.flags&FileStd == 0 && f.stream != nil {
		_ = f.stream.Close()
		f.closed = true
	}
}

// NewFile constructs a File value wrapping an already-opened stream.
func NewFile(path string, flags FileFlags, stream io.Closer, r io.Reader, w io.Writer) Value {
	fd := &fileData{stream: stream, reader: r, writer: w, flags: flags, path: path}
	return Value{Kind: KindFile, rc: newRC(), ref: fd}
}

func (v Value) fileData() *fileData { return v.ref.(*fileData) }

// FilePath returns the path a file was opened from.
func FilePath(v Value) string { return v.fileData().path }

// FileFlagsOf returns a file's flags.
func FileFlagsOf(v Value) FileFlags { return v.fileData().flags }

// FileClosed reports whether a file has been closed.
func FileClosed(v Value) bool { return v.fileData().closed }

// FileReader/FileWriter expose the underlying stream for read/write ops;
// nil if the file was not opened for that direction.
func FileReader(v Value) io.Reader { return v.fileData().reader }
func FileWriter(v Value) io.Writer { return v.fileData().writer }

// FileClose closes a file's underlying stream. Closing a standard stream
// (STD flag set) is forbidden and returns an error.
func FileClose(v Value) error {
	fd := v.fileData()
	if fd.flags&FileStd != 0 {
		return errStdClose
	}
	if fd.closed {
		return nil
	}
	fd.closed = true
	if fd.stream != nil {
		return fd.stream.Close()
	}
	return nil
}

var errStdClose = fileCloseError("cannot close a standard stream")

type fileCloseError string

func (e fileCloseError) Error() string { return string(e) }
