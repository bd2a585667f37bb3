package wasmhost

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	obdbridge "github.com/wippyai/obd-bridge"
	"github.com/wippyai/obd-bridge/bridge"
	"github.com/wippyai/obd-bridge/errors"
)

// span is a string in guest memory.
type span struct {
	ptr, len uint32
}

// guestEnv is the bridge.Env for one host call. Refs index spans, starting
// at 1; the input string is always ref 1.
type guestEnv struct {
	mem   obdbridge.Memory
	alloc obdbridge.Allocator
	spans []span
}

var _ bridge.Env = (*guestEnv)(nil)

func newGuestEnv(ctx context.Context, mod api.Module, input span) (*guestEnv, error) {
	mem := mod.Memory()
	if mem == nil {
		return nil, errors.NotFound(errors.PhaseRuntime, "export", ExportMemory)
	}
	return &guestEnv{
		mem:   guestMemory{mem: mem},
		alloc: &guestAllocator{ctx: ctx, fn: mod.ExportedFunction(ExportRealloc)},
		spans: []span{input},
	}, nil
}

func (e *guestEnv) span(ref bridge.Ref) (span, error) {
	if ref == 0 {
		return span{}, errors.NullHandle(errors.PhaseHost, "GetStringUTFChars")
	}
	if ref > bridge.Ref(len(e.spans)) {
		return span{}, errors.StaleHandle(errors.PhaseHost, "GetStringUTFChars", uint64(ref))
	}
	return e.spans[ref-1], nil
}

// GetStringUTFChars returns a view of guest memory. The view aliases linear
// memory and is invalidated by memory growth.
func (e *guestEnv) GetStringUTFChars(ref bridge.Ref) ([]byte, error) {
	s, err := e.span(ref)
	if err != nil {
		return nil, err
	}
	return e.mem.Read(s.ptr, s.len)
}

// ReleaseStringUTFChars does nothing; the guest owns its memory.
func (e *guestEnv) ReleaseStringUTFChars(bridge.Ref, []byte) {}

// NewStringUTF copies chars into a fresh guest allocation.
func (e *guestEnv) NewStringUTF(chars []byte) (bridge.Ref, error) {
	n := uint32(len(chars))
	ptr, err := e.alloc.Alloc(n, 1)
	if err != nil {
		return 0, err
	}
	if err := e.mem.Write(ptr, chars); err != nil {
		return 0, err
	}
	e.spans = append(e.spans, span{ptr: ptr, len: n})
	return bridge.Ref(len(e.spans)), nil
}

// storeResult writes the (ptr, len) pair of ref at retptr.
func (e *guestEnv) storeResult(retptr uint32, ref bridge.Ref) error {
	var s span
	if ref != 0 {
		var err error
		if s, err = e.span(ref); err != nil {
			return err
		}
	}
	if err := e.mem.WriteU32(retptr, s.ptr); err != nil {
		return err
	}
	return e.mem.WriteU32(retptr+4, s.len)
}
