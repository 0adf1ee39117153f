// Package vm implements the Arturo virtual machine: the opcode set,
// the block-to-bytecode translator, the dispatch loop, the builtin
// registry, user-defined types, and the conversion engine.
package vm

import (
	"fmt"
	"strings"

	"github.com/moeinimoein/arturo/value"
)

// ---------------------------------------------------------------------------
// Opcode definitions
//
// Opcode values are a stable enumeration in 0x00..0xEF; 0xF0..0xFF are
// reserved. Short-form push/store/load/call/storl/attr opcodes occupy
// contiguous ranges so decoders compute the embedded operand as
// opcode - base.
// ---------------------------------------------------------------------------

// OpCode is a single bytecode instruction.
type OpCode byte

// Small-constant pushers: dedicated opcodes bypass the constants pool.
const (
	OpConstI0  OpCode = 0x00 // push integer 0
	OpConstI1  OpCode = 0x01
	OpConstI2  OpCode = 0x02
	OpConstI3  OpCode = 0x03
	OpConstI4  OpCode = 0x04
	OpConstI5  OpCode = 0x05
	OpConstI6  OpCode = 0x06
	OpConstI7  OpCode = 0x07
	OpConstI8  OpCode = 0x08
	OpConstI9  OpCode = 0x09
	OpConstI10 OpCode = 0x0A
	OpConstI11 OpCode = 0x0B
	OpConstI12 OpCode = 0x0C
	OpConstI13 OpCode = 0x0D
	OpConstI14 OpCode = 0x0E
	OpConstI15 OpCode = 0x0F
	OpConstIM1 OpCode = 0x10 // push integer -1

	OpConstFM1 OpCode = 0x11 // push floating -1.0
	OpConstF0  OpCode = 0x12 // push floating 0.0
	OpConstF1  OpCode = 0x13 // push floating 1.0
	OpConstF2  OpCode = 0x14 // push floating 2.0

	OpConstBT OpCode = 0x15 // push true
	OpConstBF OpCode = 0x16 // push false
	OpConstN  OpCode = 0x17 // push null
)

// Indexed operations come in three widths: short form embeds indices
// 0..13 in the opcode itself, the plain form carries one operand byte,
// and the extended form carries two (little-endian).
const (
	OpPush0 OpCode = 0x20 // 0x20..0x2D: push constants[op-0x20]
	OpPush  OpCode = 0x2E // push constants[b]
	OpPushX OpCode = 0x2F // push constants[bb]

	OpStore0 OpCode = 0x30 // 0x30..0x3D: pop into symbol named by constants[op-0x30]
	OpStore  OpCode = 0x3E
	OpStoreX OpCode = 0x3F

	OpLoad0 OpCode = 0x40 // 0x40..0x4D: push symbol named by constants[op-0x40]
	OpLoad  OpCode = 0x4E
	OpLoadX OpCode = 0x4F

	OpCall0 OpCode = 0x50 // 0x50..0x5D: call symbol named by constants[op-0x50]
	OpCall  OpCode = 0x5E
	OpCallX OpCode = 0x5F

	OpStorl0 OpCode = 0x60 // 0x60..0x6D: store without popping
	OpStorl  OpCode = 0x6E
	OpStorlX OpCode = 0x6F

	OpAttr0 OpCode = 0x70 // 0x70..0x7D: pop into attribute named by constants[op-0x70]
	OpAttr  OpCode = 0x7E
	OpAttrX OpCode = 0x7F
)

// shortFormSpan is the number of embedded-operand codes per short form.
const shortFormSpan = 14

// Arithmetic.
const (
	OpAdd  OpCode = 0x80
	OpSub  OpCode = 0x81
	OpMul  OpCode = 0x82
	OpDiv  OpCode = 0x83
	OpFdiv OpCode = 0x84
	OpMod  OpCode = 0x85
	OpPow  OpCode = 0x86
	OpNeg  OpCode = 0x87
	OpInc  OpCode = 0x88
	OpDec  OpCode = 0x89
)

// Bitwise.
const (
	OpBNot OpCode = 0x8A
	OpBAnd OpCode = 0x8B
	OpBOr  OpCode = 0x8C
	OpShl  OpCode = 0x8D
	OpShr  OpCode = 0x8E
)

// Logical and comparison.
const (
	OpNot OpCode = 0x90
	OpAnd OpCode = 0x91
	OpOr  OpCode = 0x92
	OpEq  OpCode = 0x93
	OpNe  OpCode = 0x94
	OpGt  OpCode = 0x95
	OpGe  OpCode = 0x96
	OpLt  OpCode = 0x97
	OpLe  OpCode = 0x98

	OpGet OpCode = 0x99
	OpSet OpCode = 0x9A
)

// Control flow.
const (
	OpIf       OpCode = 0xA0
	OpIfE      OpCode = 0xA1 // if? - pushes the condition result
	OpUnless   OpCode = 0xA2
	OpUnlessE  OpCode = 0xA3
	OpElse     OpCode = 0xA4
	OpSwitch   OpCode = 0xA5
	OpWhile    OpCode = 0xA6
	OpReturn   OpCode = 0xA7
	OpBreak    OpCode = 0xA8
	OpContinue OpCode = 0xA9
)

// Converters.
const (
	OpTo  OpCode = 0xAA
	OpToS OpCode = 0xAB // to :string fast path
	OpToI OpCode = 0xAC // to :integer fast path
)

// Generators.
const (
	OpArray OpCode = 0xB0
	OpDict  OpCode = 0xB1
	OpFunc  OpCode = 0xB2
	OpRange OpCode = 0xB3
)

// Collection operations.
const (
	OpSize    OpCode = 0xB4
	OpReplace OpCode = 0xB5
	OpSplit   OpCode = 0xB6
	OpJoin    OpCode = 0xB7
	OpReverse OpCode = 0xB8
	OpAppend  OpCode = 0xB9
)

// Iterators.
const (
	OpLoop   OpCode = 0xC0
	OpMap    OpCode = 0xC1
	OpSelect OpCode = 0xC2
)

// Stack operations.
const (
	OpPop  OpCode = 0xC8
	OpDup  OpCode = 0xC9
	OpOver OpCode = 0xCA
	OpSwap OpCode = 0xCB
	OpNop  OpCode = 0xCC
)

// Conditional jumps (operand is a forward byte offset; X forms carry
// two bytes) and unconditional goto (forward) / goup (backward).
const (
	OpGoto     OpCode = 0xD0
	OpGotoX    OpCode = 0xD1
	OpGoup     OpCode = 0xD2
	OpGoupX    OpCode = 0xD3
	OpJmpIf    OpCode = 0xD4
	OpJmpIfX   OpCode = 0xD5
	OpJmpIfNot OpCode = 0xD6
	OpJmpIfNotX OpCode = 0xD7
	OpJmpIfEq  OpCode = 0xD8
	OpJmpIfEqX OpCode = 0xD9
	OpJmpIfNe  OpCode = 0xDA
	OpJmpIfNeX OpCode = 0xDB
	OpJmpIfGt  OpCode = 0xDC
	OpJmpIfGtX OpCode = 0xDD
	OpJmpIfGe  OpCode = 0xDE
	OpJmpIfGeX OpCode = 0xDF
	OpJmpIfLt  OpCode = 0xE0
	OpJmpIfLtX OpCode = 0xE1
	OpJmpIfLe  OpCode = 0xE2
	OpJmpIfLeX OpCode = 0xE3
)

// Frame terminators and line tracking.
const (
	OpRet OpCode = 0xE8
	OpEnd OpCode = 0xE9
	OpEol OpCode = 0xEA // two-byte source line operand
)

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// OpInfo holds decoding metadata for an opcode.
type OpInfo struct {
	Name         string
	OperandBytes int
}

var opTable = map[OpCode]OpInfo{
	OpConstIM1: {"CONST_IM1", 0},
	OpConstFM1: {"CONST_FM1", 0},
	OpConstF0:  {"CONST_F0", 0},
	OpConstF1:  {"CONST_F1", 0},
	OpConstF2:  {"CONST_F2", 0},
	OpConstBT:  {"CONST_TRUE", 0},
	OpConstBF:  {"CONST_FALSE", 0},
	OpConstN:   {"CONST_NULL", 0},

	OpPush: {"PUSH", 1}, OpPushX: {"PUSH_X", 2},
	OpStore: {"STORE", 1}, OpStoreX: {"STORE_X", 2},
	OpLoad: {"LOAD", 1}, OpLoadX: {"LOAD_X", 2},
	OpCall: {"CALL", 1}, OpCallX: {"CALL_X", 2},
	OpStorl: {"STORL", 1}, OpStorlX: {"STORL_X", 2},
	OpAttr: {"ATTR", 1}, OpAttrX: {"ATTR_X", 2},

	OpAdd: {"ADD", 0}, OpSub: {"SUB", 0}, OpMul: {"MUL", 0},
	OpDiv: {"DIV", 0}, OpFdiv: {"FDIV", 0}, OpMod: {"MOD", 0},
	OpPow: {"POW", 0}, OpNeg: {"NEG", 0}, OpInc: {"INC", 0}, OpDec: {"DEC", 0},

	OpBNot: {"BNOT", 0}, OpBAnd: {"BAND", 0}, OpBOr: {"BOR", 0},
	OpShl: {"SHL", 0}, OpShr: {"SHR", 0},

	OpNot: {"NOT", 0}, OpAnd: {"AND", 0}, OpOr: {"OR", 0},
	OpEq: {"EQ", 0}, OpNe: {"NE", 0}, OpGt: {"GT", 0}, OpGe: {"GE", 0},
	OpLt: {"LT", 0}, OpLe: {"LE", 0},
	OpGet: {"GET", 0}, OpSet: {"SET", 0},

	OpIf: {"IF", 0}, OpIfE: {"IF_E", 0}, OpUnless: {"UNLESS", 0},
	OpUnlessE: {"UNLESS_E", 0}, OpElse: {"ELSE", 0}, OpSwitch: {"SWITCH", 0},
	OpWhile: {"WHILE", 0}, OpReturn: {"RETURN", 0}, OpBreak: {"BREAK", 0},
	OpContinue: {"CONTINUE", 0},

	OpTo: {"TO", 0}, OpToS: {"TO_S", 0}, OpToI: {"TO_I", 0},

	OpArray: {"ARRAY", 0}, OpDict: {"DICT", 0}, OpFunc: {"FUNC", 0},
	OpRange: {"RANGE", 0},

	OpSize: {"SIZE", 0}, OpReplace: {"REPLACE", 0}, OpSplit: {"SPLIT", 0},
	OpJoin: {"JOIN", 0}, OpReverse: {"REVERSE", 0}, OpAppend: {"APPEND", 0},

	OpLoop: {"LOOP", 0}, OpMap: {"MAP", 0}, OpSelect: {"SELECT", 0},

	OpPop: {"POP", 0}, OpDup: {"DUP", 0}, OpOver: {"OVER", 0},
	OpSwap: {"SWAP", 0}, OpNop: {"NOP", 0},

	OpGoto: {"GOTO", 1}, OpGotoX: {"GOTO_X", 2},
	OpGoup: {"GOUP", 1}, OpGoupX: {"GOUP_X", 2},
	OpJmpIf: {"JMP_IF", 1}, OpJmpIfX: {"JMP_IF_X", 2},
	OpJmpIfNot: {"JMP_IF_NOT", 1}, OpJmpIfNotX: {"JMP_IF_NOT_X", 2},
	OpJmpIfEq: {"JMP_IF_EQ", 1}, OpJmpIfEqX: {"JMP_IF_EQ_X", 2},
	OpJmpIfNe: {"JMP_IF_NE", 1}, OpJmpIfNeX: {"JMP_IF_NE_X", 2},
	OpJmpIfGt: {"JMP_IF_GT", 1}, OpJmpIfGtX: {"JMP_IF_GT_X", 2},
	OpJmpIfGe: {"JMP_IF_GE", 1}, OpJmpIfGeX: {"JMP_IF_GE_X", 2},
	OpJmpIfLt: {"JMP_IF_LT", 1}, OpJmpIfLtX: {"JMP_IF_LT_X", 2},
	OpJmpIfLe: {"JMP_IF_LE", 1}, OpJmpIfLeX: {"JMP_IF_LE_X", 2},

	OpRet: {"RET", 0}, OpEnd: {"END", 0}, OpEol: {"EOL", 2},
}

// Info returns decoding metadata; short-form opcodes report their base
// name plus the embedded operand.
func (op OpCode) Info() OpInfo {
	if name, _, ok := op.ShortForm(); ok {
		return OpInfo{Name: name, OperandBytes: 0}
	}
	if op <= OpConstI15 {
		return OpInfo{Name: fmt.Sprintf("CONST_I%d", byte(op)), OperandBytes: 0}
	}
	if info, ok := opTable[op]; ok {
		return info
	}
	return OpInfo{Name: fmt.Sprintf("UNKNOWN_%02X", byte(op))}
}

// ShortForm reports whether op is a short-form indexed opcode; if so it
// returns the mnemonic and the embedded constants-pool index.
func (op OpCode) ShortForm() (name string, index int, ok bool) {
	switch {
	case op >= OpPush0 && op < OpPush0+shortFormSpan:
		return fmt.Sprintf("PUSH_%d", op-OpPush0), int(op - OpPush0), true
	case op >= OpStore0 && op < OpStore0+shortFormSpan:
		return fmt.Sprintf("STORE_%d", op-OpStore0), int(op - OpStore0), true
	case op >= OpLoad0 && op < OpLoad0+shortFormSpan:
		return fmt.Sprintf("LOAD_%d", op-OpLoad0), int(op - OpLoad0), true
	case op >= OpCall0 && op < OpCall0+shortFormSpan:
		return fmt.Sprintf("CALL_%d", op-OpCall0), int(op - OpCall0), true
	case op >= OpStorl0 && op < OpStorl0+shortFormSpan:
		return fmt.Sprintf("STORL_%d", op-OpStorl0), int(op - OpStorl0), true
	case op >= OpAttr0 && op < OpAttr0+shortFormSpan:
		return fmt.Sprintf("ATTR_%d", op-OpAttr0), int(op - OpAttr0), true
	}
	return "", 0, false
}

// String implements fmt.Stringer.
func (op OpCode) String() string { return op.Info().Name }

// ---------------------------------------------------------------------------
// BytecodeBuilder
// ---------------------------------------------------------------------------

// BytecodeBuilder constructs instruction streams, interning constants
// into the pool and picking the narrowest operand encoding.
type BytecodeBuilder struct {
	code      []byte
	constants []value.Value
	interned  map[string]int
}

// NewBytecodeBuilder creates an empty builder.
func NewBytecodeBuilder() *BytecodeBuilder {
	return &BytecodeBuilder{
		code:     make([]byte, 0, 64),
		interned: make(map[string]int),
	}
}

// Translation finalizes the builder into a Translation.
func (b *BytecodeBuilder) Translation() *value.Translation {
	return &value.Translation{Constants: b.constants, Instructions: b.code}
}

// Len returns the current instruction-stream length.
func (b *BytecodeBuilder) Len() int { return len(b.code) }

// Emit appends an opcode with no operands.
func (b *BytecodeBuilder) Emit(op OpCode) {
	b.code = append(b.code, byte(op))
}

// EmitRaw appends raw bytes.
func (b *BytecodeBuilder) EmitRaw(data ...byte) {
	b.code = append(b.code, data...)
}

// Intern adds v to the constants pool, reusing an existing slot when an
// equal constant is already present. It fails once the pool would
// exceed the two-byte index space.
func (b *BytecodeBuilder) Intern(v value.Value) (int, error) {
	key := value.Hashable(v)
	if i, ok := b.interned[key]; ok {
		return i, nil
	}
	if len(b.constants) >= value.MaxConstants {
		return 0, fmt.Errorf("constants pool exceeds %d entries", value.MaxConstants)
	}
	b.constants = append(b.constants, v)
	b.interned[key] = len(b.constants) - 1
	return len(b.constants) - 1, nil
}

// EmitIndexed emits one of the short/plain/extended forms of an indexed
// opcode family, keyed by its short-form base.
func (b *BytecodeBuilder) EmitIndexed(base OpCode, index int) {
	switch {
	case index < shortFormSpan:
		b.code = append(b.code, byte(base)+byte(index))
	case index < 256:
		b.code = append(b.code, byte(base)+shortFormSpan, byte(index))
	default:
		b.code = append(b.code, byte(base)+shortFormSpan+1, byte(index), byte(index>>8))
	}
}

// EmitConstant emits the cheapest encoding that pushes v: a dedicated
// small-constant opcode when one exists, an indexed push otherwise.
func (b *BytecodeBuilder) EmitConstant(v value.Value) error {
	switch v.Kind {
	case value.Integer:
		if v.Big == nil && v.Int >= -1 && v.Int <= 15 {
			if v.Int == -1 {
				b.Emit(OpConstIM1)
			} else {
				b.Emit(OpCode(v.Int))
			}
			return nil
		}
	case value.Floating:
		switch v.Flt {
		case -1.0:
			b.Emit(OpConstFM1)
			return nil
		case 0.0:
			b.Emit(OpConstF0)
			return nil
		case 1.0:
			b.Emit(OpConstF1)
			return nil
		case 2.0:
			b.Emit(OpConstF2)
			return nil
		}
	case value.Logical:
		if v.Int != 0 {
			b.Emit(OpConstBT)
		} else {
			b.Emit(OpConstBF)
		}
		return nil
	case value.Null:
		b.Emit(OpConstN)
		return nil
	}
	idx, err := b.Intern(v)
	if err != nil {
		return err
	}
	b.EmitIndexed(OpPush0, idx)
	return nil
}

// EmitEol records the current source line for diagnostics.
func (b *BytecodeBuilder) EmitEol(line int) {
	b.code = append(b.code, byte(OpEol), byte(line), byte(line>>8))
}

// PatchJump rewrites the operand of a previously emitted jump whose
// opcode sits at opPos (its operand follows at opPos+1), now that the
// target (current end) is known.
func (b *BytecodeBuilder) PatchJump(opPos int) error {
	op := OpCode(b.code[opPos])
	offset := len(b.code) - (opPos + 1 + op.Info().OperandBytes)
	switch op.Info().OperandBytes {
	case 1:
		if offset > 255 {
			return fmt.Errorf("jump offset %d exceeds short form", offset)
		}
		b.code[opPos+1] = byte(offset)
	case 2:
		b.code[opPos+1] = byte(offset)
		b.code[opPos+2] = byte(offset >> 8)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Disassembly
// ---------------------------------------------------------------------------

// Disassemble renders a Translation's instruction stream for debugging
// and tests.
func Disassemble(t *value.Translation) string {
	var sb strings.Builder
	code := t.Instructions
	pos := 0
	for pos < len(code) {
		op := OpCode(code[pos])
		info := op.Info()
		fmt.Fprintf(&sb, "%04d  %s", pos, info.Name)
		switch info.OperandBytes {
		case 1:
			if pos+1 < len(code) {
				fmt.Fprintf(&sb, " %d", code[pos+1])
			}
		case 2:
			if pos+2 < len(code) {
				fmt.Fprintf(&sb, " %d", int(code[pos+1])|int(code[pos+2])<<8)
			}
		}
		sb.WriteByte('\n')
		pos += 1 + info.OperandBytes
	}
	return sb.String()
}
