package ir

import (
	"encoding/json"
	"fmt"

	"golang.org/x/mod/semver"
)

// Diagnostic is the loader's produced diagnostic record: (file, line,
// col, code, category|name, message) with up to two near-miss
// suggestions.
type Diagnostic struct {
	File       string
	Line, Col  int
	Code       string
	Category   string
	Message    string
	Suggestion []string // up to two "Did you mean ...?" candidates
}

func (d Diagnostic) String() string {
	s := fmt.Sprintf("%s:%d:%d [%s %s]: %s", d.File, d.Line, d.Col, d.Code, d.Category, d.Message)
	if len(d.Suggestion) > 0 {
		s += "\nDid you mean " + d.Suggestion[0] + "?"
	}
	return s
}

// wire* types mirror the IR JSON wire shape exactly, before conversion
// into the owned Module model.
type wireTop struct {
	IRVersion string    `json:"ir_version"`
	Format    string    `json:"format"`
	Module    wireModul `json:"module"`
}

type wireModul struct {
	Functions  []wireFunc  `json:"functions"`
	Prototypes []wireProto `json:"prototypes"`
	Groups     []wireGroup `json:"groups"`
}

type wireFunc struct {
	Name       string       `json:"name"`
	Params     []wireParam  `json:"params"`
	ReturnType string       `json:"returnType"`
	Blocks     []wireBlock  `json:"blocks"`
}

type wireParam struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Variadic bool   `json:"variadic"`
}

type wireBlock struct {
	Label  string      `json:"label"`
	Instrs []wireInstr `json:"instrs"`
}

type wireInstr struct {
	Op          string          `json:"op"`
	Dst         string          `json:"dst"`
	Src         string          `json:"src"`
	Left        string          `json:"left"`
	Right       string          `json:"right"`
	Operator    string          `json:"operator"`
	Cond        string          `json:"cond"`
	Then        string          `json:"then"`
	Else        string          `json:"else"`
	Target      string          `json:"target"`
	Index       string          `json:"index"`
	LiteralType string          `json:"literalType"`
	Name        string          `json:"name"`
	LitValue    json.RawMessage `json:"value"`
	Type        json.RawMessage `json:"type"`
	Args        []string        `json:"args"`
	Items       []string        `json:"items"`
	Pairs       []wirePair      `json:"pairs"`
	File        string          `json:"file"`
	Line        int             `json:"line"`
	Col         int             `json:"col"`
	Readonly    bool            `json:"readonly"`
	Kind        string          `json:"kind"`
	Iter        string          `json:"iter"`
	Source      string          `json:"source"`
	Offset      string          `json:"offset"`
	Len         string          `json:"len"`
	Mode        string          `json:"mode"`
	Callee      string          `json:"callee"`
	Receiver    string          `json:"receiver"`
	Method      string          `json:"method"`
	Proto       string          `json:"proto"`
	Divisor     string          `json:"divisor"`
	Map         string          `json:"map"`
	Key         string          `json:"key"`
	ThenValue   string          `json:"thenValue"`
	ElseValue   string          `json:"elseValue"`
	Shift       string          `json:"shift"`
	Width       int             `json:"width"`
}

type wirePair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type wireProto struct {
	Name    string   `json:"name"`
	Parent  string   `json:"parent"`
	Fields  []string `json:"fields"`
	Methods []string `json:"methods"`
	Sealed  bool     `json:"sealed"`
}

type wireGroup struct {
	Name     string         `json:"name"`
	BaseType string         `json:"baseType"`
	Members  map[string]any `json:"members"`
}

// decodeLiteralValue normalizes a const instruction's "value" operand to
// the string form ir.Instr.Value holds. A JSON string literal is unwrapped
// as-is; any other JSON literal (number, bool, null) is kept as its raw
// source text, which the interpreter re-parses according to LiteralType.
func decodeLiteralValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// decodeTypeField normalizes the "type" operand, which may arrive as
// either a bare string or {"kind":"IRType","name":...}.
func decodeTypeField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Kind string `json:"kind"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Name
	}
	return ""
}

// Load parses IR JSON into an immutable Module, validating structure and
// collecting diagnostics. A non-nil error indicates the JSON itself could
// not be parsed (malformed syntax); structural problems that JSON parsing
// survives (bad labels, an ir_version that is not a valid semantic
// version) are reported as diagnostics instead, with Load still returning
// a best-effort Module. Any well-formed ir_version is accepted; no range
// of supported versions is checked.
func Load(data []byte) (*Module, []Diagnostic, error) {
	var top wireTop
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, nil, fmt.Errorf("ir: malformed JSON: %w", err)
	}

	var diags []Diagnostic
	if top.IRVersion != "" {
		v := top.IRVersion
		if v[0] != 'v' {
			v = "v" + v
		}
		if !semver.IsValid(v) {
			diags = append(diags, Diagnostic{
				Code: "I2001", Category: "IMPORT_BAD_IR_VERSION",
				Message: fmt.Sprintf("ir_version %q is not a valid semantic version", top.IRVersion),
			})
		}
	}
	if top.Format != "" && top.Format != "ProtoScriptIR" {
		diags = append(diags, Diagnostic{
			Code: "I2002", Category: "IMPORT_BAD_FORMAT",
			Message: fmt.Sprintf("unrecognized format %q, expected ProtoScriptIR", top.Format),
		})
	}

	mod := &Module{
		Functions:  map[string]*Function{},
		Prototypes: map[string]*Prototype{},
		Groups:     map[string]*Group{},
	}

	for _, wf := range top.Module.Functions {
		fn := &Function{
			Name:       stringCopy(wf.Name),
			ReturnType: stringCopy(wf.ReturnType),
			blockIndex: map[string]int{},
		}
		for i, wp := range wf.Params {
			if wp.Variadic && i != len(wf.Params)-1 {
				diags = append(diags, Diagnostic{
					Code: "I2003", Category: "IMPORT_BAD_VARIADIC",
					Message: fmt.Sprintf("function %q: only the trailing parameter may be variadic", wf.Name),
				})
			}
			fn.Params = append(fn.Params, Param{Name: stringCopy(wp.Name), Type: stringCopy(wp.Type), Variadic: wp.Variadic})
		}
		for _, wb := range wf.Blocks {
			blk := &Block{Label: stringCopy(wb.Label)}
			for _, wi := range wb.Instrs {
				blk.Instrs = append(blk.Instrs, convertInstr(wi))
			}
			fn.blockIndex[blk.Label] = len(fn.Blocks)
			fn.Blocks = append(fn.Blocks, blk)
		}
		mod.Functions[fn.Name] = fn
	}

	for _, wp := range top.Module.Prototypes {
		mod.Prototypes[wp.Name] = &Prototype{
			Name: stringCopy(wp.Name), Parent: stringCopy(wp.Parent),
			Fields: copyStrings(wp.Fields), Methods: copyStrings(wp.Methods), Sealed: wp.Sealed,
		}
	}

	for _, wg := range top.Module.Groups {
		mod.Groups[wg.Name] = &Group{
			Name: stringCopy(wg.Name), BaseType: stringCopy(wg.BaseType), Members: wg.Members,
		}
	}

	diags = append(diags, validateLabels(mod)...)

	return mod, diags, nil
}

func convertInstr(wi wireInstr) Instr {
	in := Instr{
		Op: stringCopy(wi.Op), File: stringCopy(wi.File), Line: wi.Line, Col: wi.Col,
		Dst: wi.Dst, Src: wi.Src, Left: wi.Left, Right: wi.Right, Operator: wi.Operator,
		Cond: wi.Cond, Then: wi.Then, Else: wi.Else, Target: wi.Target, Index: wi.Index,
		Value: decodeLiteralValue(wi.LitValue), LiteralType: wi.LiteralType, Name: wi.Name, Type: decodeTypeField(wi.Type),
		Args: copyStrings(wi.Args), Items: copyStrings(wi.Items),
		Readonly: wi.Readonly, Kind: wi.Kind, Iter: wi.Iter, Source: wi.Source,
		Offset: wi.Offset, Len: wi.Len, Mode: wi.Mode, Callee: wi.Callee, Receiver: wi.Receiver,
		Method: wi.Method, Proto: wi.Proto, Divisor: wi.Divisor, Map: wi.Map, Key: wi.Key,
		ThenValue: wi.ThenValue, ElseValue: wi.ElseValue, Shift: wi.Shift, Width: wi.Width,
	}
	for _, p := range wi.Pairs {
		in.Pairs = append(in.Pairs, Pair{Key: p.Key, Value: p.Value})
	}
	return in
}

// validateLabels checks that every jump/branch_if target names a block
// that exists within the same function; an unknown label is a loader
// invariant violation rather than a runtime error.
func validateLabels(mod *Module) []Diagnostic {
	var diags []Diagnostic
	for _, fn := range mod.Functions {
		for _, blk := range fn.Blocks {
			for _, in := range blk.Instrs {
				var targets []string
				switch in.Op {
				case "jump":
					targets = []string{in.Target}
				case "branch_if", "branch_iter_has_next":
					targets = []string{in.Then, in.Else}
				}
				for _, t := range targets {
					if t == "" {
						continue
					}
					if _, ok := fn.Block(t); !ok {
						diags = append(diags, Diagnostic{
							File: in.File, Line: in.Line, Col: in.Col,
							Code: "I2004", Category: "IMPORT_UNKNOWN_LABEL",
							Message: fmt.Sprintf("function %q: unknown block label %q", fn.Name, t),
						})
					}
				}
			}
		}
	}
	return diags
}

func stringCopy(s string) string {
	if s == "" {
		return ""
	}
	b := make([]byte, len(s))
	copy(b, s)
	return string(b)
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
