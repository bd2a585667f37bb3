package wasmhost

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	obdbridge "github.com/wippyai/obd-bridge"
	"github.com/wippyai/obd-bridge/errors"
)

// guestMemory adapts wazero api.Memory to obdbridge.Memory.
// Read returns a view into linear memory, not a copy.
type guestMemory struct {
	mem api.Memory
}

var (
	_ obdbridge.Memory      = guestMemory{}
	_ obdbridge.MemorySizer = guestMemory{}
	_ obdbridge.Allocator   = (*guestAllocator)(nil)
)

func (m guestMemory) Read(offset, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseRuntime, offset, length)
	}
	return data, nil
}

func (m guestMemory) Write(offset uint32, data []byte) error {
	if !m.mem.Write(offset, data) {
		return errors.OutOfBounds(errors.PhaseRuntime, offset, uint32(len(data)))
	}
	return nil
}

func (m guestMemory) ReadU32(offset uint32) (uint32, error) {
	v, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseRuntime, offset, 4)
	}
	return v, nil
}

func (m guestMemory) WriteU32(offset, value uint32) error {
	if !m.mem.WriteUint32Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseRuntime, offset, 4)
	}
	return nil
}

func (m guestMemory) Size() uint32 {
	return m.mem.Size()
}

// guestAllocator calls the guest's cabi_realloc export.
type guestAllocator struct {
	ctx   context.Context
	fn    api.Function
	stack [4]uint64
}

func (a *guestAllocator) Alloc(size, align uint32) (uint32, error) {
	if a.fn == nil {
		return 0, errors.NotFound(errors.PhaseRuntime, "export", ExportRealloc)
	}
	a.stack[0] = 0 // old ptr
	a.stack[1] = 0 // old size
	a.stack[2] = uint64(align)
	a.stack[3] = uint64(size)
	if err := a.fn.CallWithStack(a.ctx, a.stack[:]); err != nil {
		return 0, errors.New(errors.PhaseRuntime, errors.KindAllocation).
			Op(ExportRealloc).
			Detail("allocate %d bytes (align %d)", size, align).
			Cause(err).
			Build()
	}
	return uint32(a.stack[0]), nil
}

// Free is a no-op; the canonical ABI has no free export.
func (a *guestAllocator) Free(ptr, size, align uint32) {}
