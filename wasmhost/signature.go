package wasmhost

import (
	"go.bytecodealliance.org/wit"

	"github.com/tetratelabs/wazero/api"
)

// Names of the host import and the guest exports it relies on.
const (
	HostModule    = "obd:bridge/processor@0.1.0"
	HostFunc      = "process-obd-data"
	ExportMemory  = "memory"
	ExportRealloc = "cabi_realloc"
	ExportProcess = "process"
)

// maxFlatParams and maxFlatResults are the canonical ABI flattening limits.
const (
	maxFlatParams  = 16
	maxFlatResults = 1
)

// signature is a WIT function type and its lowered core form.
type signature struct {
	names   []string
	params  []wit.Type
	results []wit.Type

	flatParams  []api.ValueType
	flatResults []api.ValueType
	retptr      bool
}

// processSignature is func(data: string) -> string.
var processSignature = lower([]string{"data"}, []wit.Type{wit.String{}}, []wit.Type{wit.String{}})

func lower(names []string, params, results []wit.Type) signature {
	s := signature{names: names, params: params, results: results}
	for _, p := range params {
		s.flatParams = append(s.flatParams, flatTypes(p)...)
	}
	var flatRes []api.ValueType
	for _, r := range results {
		flatRes = append(flatRes, flatTypes(r)...)
	}
	if len(flatRes) > maxFlatResults {
		// Results that do not fit are returned through a pointer argument.
		s.retptr = true
		s.flatParams = append(s.flatParams, api.ValueTypeI32)
	} else {
		s.flatResults = flatRes
	}
	if len(s.flatParams) > maxFlatParams {
		s.flatParams = []api.ValueType{api.ValueTypeI32}
	}
	return s
}

func flatTypes(t wit.Type) []api.ValueType {
	switch t.(type) {
	case wit.Bool, wit.U8, wit.S8, wit.U16, wit.S16, wit.U32, wit.S32, wit.Char:
		return []api.ValueType{api.ValueTypeI32}
	case wit.U64, wit.S64:
		return []api.ValueType{api.ValueTypeI64}
	case wit.F32:
		return []api.ValueType{api.ValueTypeF32}
	case wit.F64:
		return []api.ValueType{api.ValueTypeF64}
	case wit.String:
		return []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}
	default:
		return nil
	}
}

// String renders the WIT form, e.g. "func(data: string) -> string".
func (s signature) String() string {
	out := "func("
	for i, p := range s.params {
		if i > 0 {
			out += ", "
		}
		out += s.names[i] + ": " + witTypeName(p)
	}
	out += ")"
	if len(s.results) == 1 {
		out += " -> " + witTypeName(s.results[0])
	}
	return out
}

func witTypeName(t wit.Type) string {
	switch t.(type) {
	case wit.Bool:
		return "bool"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.String:
		return "string"
	default:
		return "unknown"
	}
}

func sameTypes(a, b []api.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
