package value

// exceptionData is the reference payload of a KindException Value.
// Member access on an exception never fails: named slots (file, line,
// column, message, cause, code, category) are always present; any other
// name falls through to the auxiliary field-bag object.
type exceptionData struct {
	isRuntime  bool
	typeName   string
	parentName string // immediate prototype parent, "" if none
	fields     Value  // auxiliary field-bag object (KindObject)
	file       string
	line       int
	col        int
	message    string
	cause      Value // another exception, or Void if none
	code       string
	category   string
}

func (e *exceptionData) release() {
	Release(e.fields)
	Release(e.cause)
}

// ExceptionSpec carries the construction parameters for NewException.
type ExceptionSpec struct {
	IsRuntime  bool
	TypeName   string
	ParentName string
	File       string
	Line, Col  int
	Message    string
	Cause      Value // Void if none
	Code       string
	Category   string
}

// NewException constructs an exception Value with a fresh auxiliary
// field-bag object.
func NewException(spec ExceptionSpec) Value {
	fields := NewObject("")
	cause := spec.Cause
	if cause.Kind == KindVoid {
		cause = Void
	} else {
		cause = Retain(cause)
	}
	ed := &exceptionData{
		isRuntime: spec.IsRuntime, typeName: spec.TypeName, parentName: spec.ParentName,
		fields: fields, file: spec.File, line: spec.Line, col: spec.Col,
		message: spec.Message, cause: cause, code: spec.Code, category: spec.Category,
	}
	return Value{Kind: KindException, rc: newRC(), ref: ed}
}

func (v Value) exceptionData() *exceptionData { return v.ref.(*exceptionData) }

// ExceptionTypeName, ExceptionParentName, ExceptionIsRuntime,
// ExceptionFile, ExceptionLine, ExceptionCol, ExceptionMessage,
// ExceptionCause, ExceptionCode, ExceptionCategory expose the named
// slots, which are always present regardless of the exception's type.
func ExceptionTypeName(e Value) string   { return e.exceptionData().typeName }
func ExceptionParentName(e Value) string { return e.exceptionData().parentName }
func ExceptionIsRuntime(e Value) bool    { return e.exceptionData().isRuntime }
func ExceptionFile(e Value) string       { return e.exceptionData().file }
func ExceptionLine(e Value) int          { return e.exceptionData().line }
func ExceptionCol(e Value) int           { return e.exceptionData().col }
func ExceptionMessage(e Value) string    { return e.exceptionData().message }
func ExceptionCause(e Value) Value       { return e.exceptionData().cause }
func ExceptionCode(e Value) string       { return e.exceptionData().code }
func ExceptionCategory(e Value) string   { return e.exceptionData().category }

// ExceptionFields returns the auxiliary field-bag object backing
// non-named member access.
func ExceptionFields(e Value) Value { return e.exceptionData().fields }

// exceptionNamedSlots lists the first-class member names of an exception;
// other names fall through to the field-bag object.
var exceptionNamedSlots = map[string]bool{
	"file": true, "line": true, "column": true, "message": true,
	"cause": true, "code": true, "category": true,
}

// IsExceptionNamedSlot reports whether name is one of an exception's
// first-class slots.
func IsExceptionNamedSlot(name string) bool { return exceptionNamedSlots[name] }
