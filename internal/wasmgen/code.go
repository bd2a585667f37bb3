package wasmgen

// Opcodes used by Code.
const (
	opBlock     byte = 0x02
	opBrIf      byte = 0x0D
	opEnd       byte = 0x0B
	opCall      byte = 0x10
	opDrop      byte = 0x1A
	opLocalGet  byte = 0x20
	opLocalSet  byte = 0x21
	opLocalTee  byte = 0x22
	opGlobalGet byte = 0x23
	opGlobalSet byte = 0x24
	opI32Load   byte = 0x28
	opI32Store  byte = 0x36
	opMemSize   byte = 0x3F
	opMemGrow   byte = 0x40
	opI32Const  byte = 0x41
	opI32LeU    byte = 0x4D
	opI32Add    byte = 0x6A
	opI32Sub    byte = 0x6B
	opI32And    byte = 0x71
	opI32Shl    byte = 0x74
	opI32ShrU   byte = 0x76

	blockEmpty byte = 0x40
)

// Code builds a function body instruction by instruction. Methods return the
// receiver so sequences read top to bottom.
type Code struct {
	buf []byte
}

func (c *Code) op(op byte, imm ...uint32) *Code {
	c.buf = append(c.buf, op)
	for _, v := range imm {
		c.buf = AppendU32(c.buf, v)
	}
	return c
}

func (c *Code) LocalGet(idx uint32) *Code  { return c.op(opLocalGet, idx) }
func (c *Code) LocalSet(idx uint32) *Code  { return c.op(opLocalSet, idx) }
func (c *Code) LocalTee(idx uint32) *Code  { return c.op(opLocalTee, idx) }
func (c *Code) GlobalGet(idx uint32) *Code { return c.op(opGlobalGet, idx) }
func (c *Code) GlobalSet(idx uint32) *Code { return c.op(opGlobalSet, idx) }
func (c *Code) Call(fn uint32) *Code       { return c.op(opCall, fn) }
func (c *Code) BrIf(depth uint32) *Code    { return c.op(opBrIf, depth) }
func (c *Code) Drop() *Code                { return c.op(opDrop) }
func (c *Code) End() *Code                 { return c.op(opEnd) }

// Block opens a block with no result.
func (c *Code) Block() *Code {
	c.buf = append(c.buf, opBlock, blockEmpty)
	return c
}

func (c *Code) I32Const(v int32) *Code {
	c.buf = append(c.buf, opI32Const)
	c.buf = AppendS32(c.buf, v)
	return c
}

// I32Load and I32Store take the alignment exponent and static offset.
func (c *Code) I32Load(align, offset uint32) *Code  { return c.op(opI32Load, align, offset) }
func (c *Code) I32Store(align, offset uint32) *Code { return c.op(opI32Store, align, offset) }

func (c *Code) I32Add() *Code  { return c.op(opI32Add) }
func (c *Code) I32Sub() *Code  { return c.op(opI32Sub) }
func (c *Code) I32And() *Code  { return c.op(opI32And) }
func (c *Code) I32Shl() *Code  { return c.op(opI32Shl) }
func (c *Code) I32ShrU() *Code { return c.op(opI32ShrU) }
func (c *Code) I32LeU() *Code  { return c.op(opI32LeU) }

// MemorySize and MemoryGrow operate on memory 0.
func (c *Code) MemorySize() *Code { return c.op(opMemSize, 0) }
func (c *Code) MemoryGrow() *Code { return c.op(opMemGrow, 0) }

// Bytes returns the encoded instructions.
func (c *Code) Bytes() []byte {
	return c.buf
}
