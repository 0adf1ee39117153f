package vm

import (
	"strings"
	"testing"

	"github.com/moeinimoein/arturo/value"
)

func TestShortFormRanges(t *testing.T) {
	// decoders compute the embedded operand as opcode - base
	name, idx, ok := OpCode(byte(OpPush0) + 5).ShortForm()
	if !ok || idx != 5 || name != "PUSH_5" {
		t.Errorf("short form = %q %d %v", name, idx, ok)
	}
	if _, _, ok := OpPush.ShortForm(); ok {
		t.Errorf("plain form must not decode as short form")
	}
	for _, base := range []OpCode{OpPush0, OpStore0, OpLoad0, OpCall0, OpStorl0, OpAttr0} {
		for i := 0; i < shortFormSpan; i++ {
			if _, idx, ok := (base + OpCode(i)).ShortForm(); !ok || idx != i {
				t.Errorf("opcode 0x%02X should embed operand %d", byte(base)+byte(i), i)
			}
		}
	}
}

func TestOpcodeStability(t *testing.T) {
	// the enumeration is fixed; spot-check documented values
	cases := map[OpCode]byte{
		OpConstI0: 0x00, OpConstIM1: 0x10, OpConstBT: 0x15,
		OpPush0: 0x20, OpPush: 0x2E, OpPushX: 0x2F,
		OpStore0: 0x30, OpLoad0: 0x40, OpCall0: 0x50,
		OpAdd: 0x80, OpEq: 0x93, OpIf: 0xA0, OpTo: 0xAA,
		OpLoop: 0xC0, OpPop: 0xC8, OpGoto: 0xD0,
		OpRet: 0xE8, OpEnd: 0xE9, OpEol: 0xEA,
	}
	for op, want := range cases {
		if byte(op) != want {
			t.Errorf("%s = 0x%02X, want 0x%02X", op, byte(op), want)
		}
	}
	// everything stays below the reserved range
	if OpEol > 0xEF {
		t.Errorf("opcodes must stay within 0x00..0xEF")
	}
}

func TestEmitIndexedWidths(t *testing.T) {
	b := NewBytecodeBuilder()
	b.EmitIndexed(OpPush0, 3)
	b.EmitIndexed(OpPush0, 200)
	b.EmitIndexed(OpPush0, 1000)
	code := b.Translation().Instructions

	if code[0] != byte(OpPush0)+3 {
		t.Errorf("short form = 0x%02X", code[0])
	}
	if code[1] != byte(OpPush) || code[2] != 200 {
		t.Errorf("plain form = 0x%02X %d", code[1], code[2])
	}
	if code[3] != byte(OpPushX) || int(code[4])|int(code[5])<<8 != 1000 {
		t.Errorf("extended form = % x", code[3:6])
	}
}

func TestEmitConstantSmallValues(t *testing.T) {
	b := NewBytecodeBuilder()
	for _, v := range []value.Value{
		value.NewInteger(0), value.NewInteger(15), value.NewInteger(-1),
		value.NewFloating(-1), value.NewFloating(0), value.NewFloating(1), value.NewFloating(2),
		value.TrueV, value.FalseV, value.NullV,
	} {
		if err := b.EmitConstant(v); err != nil {
			t.Fatalf("EmitConstant: %v", err)
		}
	}
	tr := b.Translation()
	if len(tr.Constants) != 0 {
		t.Errorf("small constants must bypass the pool, got %d entries", len(tr.Constants))
	}
	want := []OpCode{
		OpConstI0, OpConstI15, OpConstIM1,
		OpConstFM1, OpConstF0, OpConstF1, OpConstF2,
		OpConstBT, OpConstBF, OpConstN,
	}
	for i, op := range want {
		if OpCode(tr.Instructions[i]) != op {
			t.Errorf("instructions[%d] = %s, want %s", i, OpCode(tr.Instructions[i]), op)
		}
	}
}

func TestInternDeduplicates(t *testing.T) {
	b := NewBytecodeBuilder()
	i1, err := b.Intern(value.NewString("hello"))
	if err != nil {
		t.Fatalf("Intern: %v", err)
	}
	i2, _ := b.Intern(value.NewString("hello"))
	if i1 != i2 {
		t.Errorf("equal constants should share a slot: %d %d", i1, i2)
	}
	i3, _ := b.Intern(value.NewWord("hello"))
	if i3 == i1 {
		t.Errorf("a word and a string must not share a slot")
	}
}

func TestDisassembleReadable(t *testing.T) {
	b := NewBytecodeBuilder()
	_ = b.EmitConstant(value.NewInteger(1))
	_ = b.EmitConstant(value.NewInteger(2))
	b.Emit(OpAdd)
	b.Emit(OpEnd)
	text := Disassemble(b.Translation())
	for _, needle := range []string{"CONST_I1", "CONST_I2", "ADD", "END"} {
		if !strings.Contains(text, needle) {
			t.Errorf("disassembly %q should contain %q", text, needle)
		}
	}
}

func TestPatchJump(t *testing.T) {
	b := NewBytecodeBuilder()
	b.Emit(OpConstBT)
	pos := b.Len()
	b.Emit(OpJmpIfNot)
	b.EmitRaw(0) // placeholder
	b.Emit(OpConstI1)
	b.Emit(OpConstI2)
	if err := b.PatchJump(pos); err != nil {
		t.Fatalf("PatchJump: %v", err)
	}
	code := b.Translation().Instructions
	if code[pos+1] != 2 {
		t.Errorf("patched offset = %d, want 2", code[pos+1])
	}
}

func TestJumpExecution(t *testing.T) {
	// true -> skip the push of 1, land on push of 2
	machine, _ := newTestVM()
	tr := &value.Translation{Instructions: []byte{
		byte(OpConstBT),
		byte(OpJmpIf), 1,
		byte(OpConstI1),
		byte(OpConstI2),
		byte(OpEnd),
	}}
	if err := machine.ExecTranslation(tr); err != nil {
		t.Fatalf("exec: %v", err)
	}
	top, _ := machine.TopValue()
	if top.Int != 2 {
		t.Errorf("top = %v, want 2", top)
	}
	if machine.StackDepth() != 1 {
		t.Errorf("depth = %d, want 1", machine.StackDepth())
	}
}

func TestGotoAndGoup(t *testing.T) {
	// count down from 3 using a backward jump
	machine, _ := newTestVM()
	tr := &value.Translation{Instructions: []byte{
		byte(OpConstI3),         // 0: counter
		byte(OpDup),             // 1
		byte(OpConstI0),         // 2
		byte(OpJmpIfEq), 3,      // 3: if counter == 0 jump past loop
		byte(OpDec),             // 5
		byte(OpGoup), 7,         // 6: back to offset 1
		byte(OpEnd),             // 8
	}}
	if err := machine.ExecTranslation(tr); err != nil {
		t.Fatalf("exec: %v", err)
	}
	top, _ := machine.TopValue()
	if top.Int != 0 {
		t.Errorf("top = %v, want 0", top)
	}
}

func TestConstantsPoolLimit(t *testing.T) {
	b := NewBytecodeBuilder()
	for i := 0; i < value.MaxConstants; i++ {
		if _, err := b.Intern(value.NewInteger(int64(i) + 1000000)); err != nil {
			t.Fatalf("Intern %d: %v", i, err)
		}
	}
	if _, err := b.Intern(value.NewString("one too many")); err == nil {
		t.Errorf("pool must reject entry %d", value.MaxConstants)
	}
}
