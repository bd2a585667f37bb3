// Package wasmgen encodes small core WebAssembly modules.
//
// It covers the sections needed for hand-built guest modules: types, imports,
// functions, memories, globals, exports and code. There is no validation; the
// runtime compiling the output is expected to reject malformed modules.
package wasmgen

const (
	magic   = "\x00asm"
	version = 1
)

const (
	sectionType     byte = 1
	sectionImport   byte = 2
	sectionFunction byte = 3
	sectionMemory   byte = 5
	sectionGlobal   byte = 6
	sectionExport   byte = 7
	sectionCode     byte = 10
)

// ValType is a core value type.
type ValType byte

const (
	I32 ValType = 0x7F
	I64 ValType = 0x7E
	F32 ValType = 0x7D
	F64 ValType = 0x7C
)

// External kinds for imports and exports.
const (
	KindFunc   byte = 0x00
	KindTable  byte = 0x01
	KindMemory byte = 0x02
	KindGlobal byte = 0x03
)

const funcTypeByte = 0x60

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// Import is a function import. Imported functions take the lowest indices.
type Import struct {
	Module string
	Name   string
	Type   uint32
}

// Limits bounds a memory in 64KiB pages. Max of nil means unbounded.
type Limits struct {
	Min uint32
	Max *uint32
}

// Global is an i32 global with a constant initializer.
type Global struct {
	Mutable bool
	Init    int32
}

// Export names an item of the given kind.
type Export struct {
	Name  string
	Kind  byte
	Index uint32
}

// Func is a defined function. Locals are declared per entry in order.
type Func struct {
	Type   uint32
	Locals []ValType
	Body   *Code
}

// Module is a core module under construction.
type Module struct {
	Types    []FuncType
	Imports  []Import
	Funcs    []Func
	Memories []Limits
	Globals  []Global
	Exports  []Export
}

// AddType appends a type and returns its index, reusing an equal one.
func (m *Module) AddType(ft FuncType) uint32 {
	for i, t := range m.Types {
		if equalTypes(t.Params, ft.Params) && equalTypes(t.Results, ft.Results) {
			return uint32(i)
		}
	}
	m.Types = append(m.Types, ft)
	return uint32(len(m.Types) - 1)
}

// AddImport adds a function import and returns its function index.
// Imports must be added before any function.
func (m *Module) AddImport(module, name string, ft FuncType) uint32 {
	m.Imports = append(m.Imports, Import{Module: module, Name: name, Type: m.AddType(ft)})
	return uint32(len(m.Imports) - 1)
}

// AddFunc adds a function and returns its function index.
func (m *Module) AddFunc(ft FuncType, locals []ValType, body *Code) uint32 {
	m.Funcs = append(m.Funcs, Func{Type: m.AddType(ft), Locals: locals, Body: body})
	return uint32(len(m.Imports) + len(m.Funcs) - 1)
}

// Encode returns the binary module.
func (m *Module) Encode() []byte {
	out := append([]byte(magic), version, 0, 0, 0)

	if len(m.Types) > 0 {
		sec := AppendU32(nil, uint32(len(m.Types)))
		for _, t := range m.Types {
			sec = append(sec, funcTypeByte)
			sec = appendValTypes(sec, t.Params)
			sec = appendValTypes(sec, t.Results)
		}
		out = appendSection(out, sectionType, sec)
	}

	if len(m.Imports) > 0 {
		sec := AppendU32(nil, uint32(len(m.Imports)))
		for _, imp := range m.Imports {
			sec = appendName(sec, imp.Module)
			sec = appendName(sec, imp.Name)
			sec = append(sec, KindFunc)
			sec = AppendU32(sec, imp.Type)
		}
		out = appendSection(out, sectionImport, sec)
	}

	if len(m.Funcs) > 0 {
		sec := AppendU32(nil, uint32(len(m.Funcs)))
		for _, f := range m.Funcs {
			sec = AppendU32(sec, f.Type)
		}
		out = appendSection(out, sectionFunction, sec)
	}

	if len(m.Memories) > 0 {
		sec := AppendU32(nil, uint32(len(m.Memories)))
		for _, l := range m.Memories {
			if l.Max != nil {
				sec = append(sec, 0x01)
				sec = AppendU32(sec, l.Min)
				sec = AppendU32(sec, *l.Max)
			} else {
				sec = append(sec, 0x00)
				sec = AppendU32(sec, l.Min)
			}
		}
		out = appendSection(out, sectionMemory, sec)
	}

	if len(m.Globals) > 0 {
		sec := AppendU32(nil, uint32(len(m.Globals)))
		for _, g := range m.Globals {
			mut := byte(0)
			if g.Mutable {
				mut = 1
			}
			sec = append(sec, byte(I32), mut, opI32Const)
			sec = AppendS32(sec, g.Init)
			sec = append(sec, opEnd)
		}
		out = appendSection(out, sectionGlobal, sec)
	}

	if len(m.Exports) > 0 {
		sec := AppendU32(nil, uint32(len(m.Exports)))
		for _, e := range m.Exports {
			sec = appendName(sec, e.Name)
			sec = append(sec, e.Kind)
			sec = AppendU32(sec, e.Index)
		}
		out = appendSection(out, sectionExport, sec)
	}

	if len(m.Funcs) > 0 {
		sec := AppendU32(nil, uint32(len(m.Funcs)))
		for _, f := range m.Funcs {
			body := appendLocals(nil, f.Locals)
			if f.Body != nil {
				body = append(body, f.Body.Bytes()...)
			}
			sec = AppendU32(sec, uint32(len(body)))
			sec = append(sec, body...)
		}
		out = appendSection(out, sectionCode, sec)
	}

	return out
}

func appendSection(b []byte, id byte, content []byte) []byte {
	b = append(b, id)
	b = AppendU32(b, uint32(len(content)))
	return append(b, content...)
}

func appendValTypes(b []byte, types []ValType) []byte {
	b = AppendU32(b, uint32(len(types)))
	for _, t := range types {
		b = append(b, byte(t))
	}
	return b
}

// appendLocals run-length encodes consecutive locals of the same type.
func appendLocals(b []byte, locals []ValType) []byte {
	var groups [][2]uint32
	for _, t := range locals {
		if n := len(groups); n > 0 && groups[n-1][1] == uint32(t) {
			groups[n-1][0]++
			continue
		}
		groups = append(groups, [2]uint32{1, uint32(t)})
	}
	b = AppendU32(b, uint32(len(groups)))
	for _, g := range groups {
		b = AppendU32(b, g[0])
		b = append(b, byte(g[1]))
	}
	return b
}

func equalTypes(a, b []ValType) bool {
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
