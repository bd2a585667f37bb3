// Package wasmhost exposes the bridge function to WebAssembly guests.
//
// Guests import one function:
//
//	(import "obd:bridge/processor@0.1.0" "process-obd-data"
//	    (func (param $ptr i32) (param $len i32) (param $retptr i32)))
//
// This is the canonical ABI lowering of func(data: string) -> string. The host
// reads the input straight from guest memory, allocates the result with the
// guest's cabi_realloc export and stores (ptr, len) at retptr. A failed call
// stores (0, 0).
//
// Guest strings are UTF-8, so the bridge runs with bridge.UTF8 rather than the
// modified UTF-8 used by JNI.
//
// ForwardingGuest builds a minimal guest that re-exports the import as
// process, which Runtime.Process uses to drive the host function end to end.
package wasmhost
