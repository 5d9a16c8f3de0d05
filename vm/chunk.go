package vm

import (
	"fmt"

	"loxvm/debug"
)

//go:generate stringer -type=OpCode
type OpCode byte

const (
	OpConstant OpCode = iota
	OpNil
	OpTrue
	OpFalse
	OpPop
	OpGetLocal
	OpSetLocal
	OpGetGlobal
	OpDefGlobal
	OpSetGlobal
	OpEqual
	OpGreater
	OpLess
	OpNot
	OpNeg
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpJump
	OpJumpIfFalse
	OpPrint
	OpReturn
)

// Chunk is a linear buffer of opcodes and operands, with a per-byte line
// table for runtime error reporting and a constants pool bounded to 256
// entries by the 1-byte operand width.
//
// Contract: len(lines) == len(code); every constant-index operand is
// < len(consts); every 2-byte jump operand, added to the ip just past it,
// lands inside [0, len(code)).
type Chunk struct {
	code   []byte
	lines  []int
	consts []Value
}

func NewChunk() *Chunk { return &Chunk{} }

func (c *Chunk) Write(b byte, line int) {
	c.code = append(c.code, b)
	c.lines = append(c.lines, line)
	debug.AssertEq(len(c.code), len(c.lines))
}

// AddConst appends val to the constants pool and returns its index. Callers
// emitting a Constant-family opcode must check the index still fits a byte.
func (c *Chunk) AddConst(val Value) (idx int) {
	idx = len(c.consts)
	c.consts = append(c.consts, val)
	return
}

func (c *Chunk) DisassembleInst(offset int) (res string, newOffset int) {
	sprintf := func(format string, a ...any) { res += fmt.Sprintf(format, a...) }

	sprintf("%04d ", offset)
	if offset > 0 && c.lines[offset] == c.lines[offset-1] {
		sprintf("   | ")
	} else {
		sprintf("%4d ", c.lines[offset])
	}

	switch inst := OpCode(c.code[offset]); inst {
	// Constant/name/slot-addressed: 1-byte operand.
	case OpConstant, OpGetLocal, OpSetLocal, OpGetGlobal, OpDefGlobal, OpSetGlobal:
		idx := c.code[offset+1]
		if inst == OpGetLocal || inst == OpSetLocal {
			sprintf("%-16s %4d", inst, idx)
		} else {
			sprintf("%-16s %4d '%s'", inst, idx, c.consts[idx])
		}
		return res, offset + 2

	// Jump: 2-byte big-endian offset.
	case OpJump, OpJumpIfFalse:
		hi, lo := c.code[offset+1], c.code[offset+2]
		jump := int(hi)<<8 | int(lo)
		sprintf("%-16s %4d -> %d", inst, offset, offset+3+jump)
		return res, offset + 3

	// Nullary.
	default:
		sprintf("%s", inst)
		return res, offset + 1
	}
}

func (c *Chunk) Disassemble(name string) (res string) {
	res = fmt.Sprintf("== %s ==\n", name)
	for i := 0; i < len(c.code); {
		var delta string
		delta, i = c.DisassembleInst(i)
		res += delta + "\n"
	}
	return res
}
