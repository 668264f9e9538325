package interp

import (
	"github.com/protoscript/ps/diag"
	"github.com/protoscript/ps/value"
)

// materializeError builds a runtime exception Value from a Context error,
// classifying it via the diag translation table. It is used whenever a
// core operation returned a Go error and no user-thrown exception Value
// already exists for this unwind.
func materializeError(ctx *Context, f *Frame, err error) value.Value {
	msg := err.Error()
	code, category, typedModule, ok := diag.Classify(msg)
	typeName := "RuntimeException"
	parentName := "Exception"
	if !ok {
		code, category = "", "RUNTIME_INTERNAL"
	}
	if typedModule != "" {
		typeName = typedModule + "Error"
		parentName = "RuntimeException"
	}
	return value.NewException(value.ExceptionSpec{
		IsRuntime:  true,
		TypeName:   typeName,
		ParentName: parentName,
		File:       f.curFile,
		Line:       f.curLine,
		Col:        f.curCol,
		Message:    msg,
		Cause:      value.Void,
		Code:       code,
		Category:   category,
	})
}

// exceptionIs implements `catch T` / `exception_is` subsumption:
// T=="Exception" always matches; T=="RuntimeException" matches iff the
// runtime flag is set; otherwise T must appear in the exception's
// declared prototype parent chain.
func exceptionIs(mod moduleProtoChain, e value.Value, t string) bool {
	if t == "Exception" {
		return true
	}
	if t == "RuntimeException" {
		return value.ExceptionIsRuntime(e) || t == value.ExceptionTypeName(e)
	}
	if t == value.ExceptionTypeName(e) {
		return true
	}
	chain := mod.ProtoChain(value.ExceptionParentName(e))
	for _, name := range chain {
		if name == t {
			return true
		}
	}
	return false
}

// moduleProtoChain is the minimal surface exceptionIs needs from
// *ir.Module, factored so this file does not need to import ir directly
// beyond what call.go already wires in.
type moduleProtoChain interface {
	ProtoChain(name string) []string
}
