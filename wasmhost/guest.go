package wasmhost

import "github.com/wippyai/obd-bridge/internal/wasmgen"

// heapBase is where the forwarding guest's bump allocator starts.
const heapBase = 1024

// ForwardingGuest returns a core module that exports memory, a bump
// allocator as cabi_realloc, and process(ptr, len, retptr) which forwards
// to the host import unchanged.
func ForwardingGuest() []byte {
	var m wasmgen.Module

	processType := wasmgen.FuncType{Params: []wasmgen.ValType{wasmgen.I32, wasmgen.I32, wasmgen.I32}}
	reallocType := wasmgen.FuncType{
		Params:  []wasmgen.ValType{wasmgen.I32, wasmgen.I32, wasmgen.I32, wasmgen.I32},
		Results: []wasmgen.ValType{wasmgen.I32},
	}

	host := m.AddImport(HostModule, HostFunc, processType)

	process := m.AddFunc(processType, nil, new(wasmgen.Code).
		LocalGet(0).
		LocalGet(1).
		LocalGet(2).
		Call(host).
		End())

	// cabi_realloc(old_ptr, old_size, align, new_size) -> ptr
	// local 4 holds the aligned result; global 0 is the heap top.
	realloc := m.AddFunc(reallocType, []wasmgen.ValType{wasmgen.I32}, new(wasmgen.Code).
		GlobalGet(0).LocalGet(2).I32Add().I32Const(1).I32Sub().
		I32Const(0).LocalGet(2).I32Sub().
		I32And().
		LocalTee(4).
		LocalGet(3).I32Add().
		GlobalSet(0).
		Block().
		GlobalGet(0).MemorySize().I32Const(16).I32Shl().I32LeU().
		BrIf(0).
		GlobalGet(0).I32Const(0xFFFF).I32Add().I32Const(16).I32ShrU().
		MemorySize().I32Sub().
		MemoryGrow().Drop().
		End().
		LocalGet(4).
		End())

	m.Memories = append(m.Memories, wasmgen.Limits{Min: 1})
	m.Globals = append(m.Globals, wasmgen.Global{Mutable: true, Init: heapBase})
	m.Exports = append(m.Exports,
		wasmgen.Export{Name: ExportMemory, Kind: wasmgen.KindMemory, Index: 0},
		wasmgen.Export{Name: ExportProcess, Kind: wasmgen.KindFunc, Index: process},
		wasmgen.Export{Name: ExportRealloc, Kind: wasmgen.KindFunc, Index: realloc},
	)
	return m.Encode()
}
