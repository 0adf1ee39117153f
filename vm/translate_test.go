package vm

import (
	"strings"
	"testing"

	"github.com/moeinimoein/arturo/value"
)

func translate(t *testing.T, src string) *value.Translation {
	t.Helper()
	machine := New()
	tr, err := machine.TranslateSource(src)
	if err != nil {
		t.Fatalf("TranslateSource(%q): %v", src, err)
	}
	return tr
}

func TestTranslateSmallConstants(t *testing.T) {
	tr := translate(t, `5`)
	if len(tr.Constants) != 0 {
		t.Errorf("small integers bypass the pool: %v", tr.Constants)
	}
	found := false
	for _, b := range tr.Instructions {
		if OpCode(b) == OpConstI5 {
			found = true
		}
	}
	if !found {
		t.Errorf("missing CONST_I5 in %s", Disassemble(tr))
	}
}

func TestTranslateInternsWords(t *testing.T) {
	tr := translate(t, `x: 1 x x`)
	// x is interned once, shared by the store and both calls
	count := 0
	for _, c := range tr.Constants {
		if c.Kind == value.Word && c.Str == "x" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("word x interned %d times: %v", count, tr.Constants)
	}
}

func TestTranslateArgumentOrder(t *testing.T) {
	// arguments emit right to left so the first ends up on top
	tr := translate(t, `sub 5 2`)
	text := Disassemble(tr)
	pos2 := strings.Index(text, "CONST_I2")
	pos5 := strings.Index(text, "CONST_I5")
	posOp := strings.Index(text, "SUB")
	if pos2 < 0 || pos5 < 0 || posOp < 0 {
		t.Fatalf("disassembly incomplete:\n%s", text)
	}
	if !(pos2 < pos5 && pos5 < posOp) {
		t.Errorf("want 2 before 5 before SUB:\n%s", text)
	}
}

func TestTranslateInfixSwap(t *testing.T) {
	tr := translate(t, `print 5-2`)
	text := Disassemble(tr)
	if !strings.Contains(text, "SWAP") {
		t.Errorf("infix must reorder via swap:\n%s", text)
	}
	machine, out := newTestVM()
	if err := machine.Run(`print 5-2`); err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.String() != "3\n" {
		t.Errorf("5-2 = %q", out.String())
	}
}

func TestTranslateOpcodeFastPath(t *testing.T) {
	tr := translate(t, `add 1 2`)
	text := Disassemble(tr)
	if !strings.Contains(text, "ADD") {
		t.Errorf("add should compile to its dedicated opcode:\n%s", text)
	}
	if strings.Contains(text, "CALL") {
		t.Errorf("no symbol call expected for an opcode builtin:\n%s", text)
	}
}

func TestTranslateUnknownWordEmitsCall(t *testing.T) {
	tr := translate(t, `mystery`)
	text := Disassemble(tr)
	if !strings.Contains(text, "CALL") {
		t.Errorf("unknown words resolve at call time:\n%s", text)
	}
}

func TestTranslateAttributes(t *testing.T) {
	tr := translate(t, `range 1 10 .step:2`)
	text := Disassemble(tr)
	attrPos := strings.Index(text, "ATTR")
	rangePos := strings.Index(text, "RANGE")
	if attrPos < 0 || rangePos < 0 {
		t.Fatalf("disassembly incomplete:\n%s", text)
	}
	if attrPos > rangePos {
		t.Errorf("attribute must be deposited before the call:\n%s", text)
	}
}

func TestTranslateLabelStores(t *testing.T) {
	tr := translate(t, `x: 42`)
	text := Disassemble(tr)
	if !strings.Contains(text, "STORE") {
		t.Errorf("label should emit a store:\n%s", text)
	}
}

func TestTranslateEolTracking(t *testing.T) {
	tr := translate(t, "1\n2")
	text := Disassemble(tr)
	if strings.Count(text, "EOL") < 2 {
		t.Errorf("line transitions should be tracked:\n%s", text)
	}
}

func TestTranslateEndsWithEnd(t *testing.T) {
	tr := translate(t, `1 2 3`)
	if OpCode(tr.Instructions[len(tr.Instructions)-1]) != OpEnd {
		t.Errorf("translation must terminate with END")
	}
}

func TestTranslateFunctionArityTracked(t *testing.T) {
	// double is unknown to the registry; the label declaration teaches the
	// translator its arity so `double 4` consumes an argument
	machine, out := newTestVM()
	err := machine.Run("double: $[x][x*2]\nprint double 4")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.String() != "8\n" {
		t.Errorf("out = %q", out.String())
	}
}

func TestTranslateArrowSugar(t *testing.T) {
	machine, out := newTestVM()
	if err := machine.Run(`if true -> print "arrow"`); err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.String() != "arrow\n" {
		t.Errorf("out = %q", out.String())
	}
	_ = machine
}

func TestTranslateDictThroughGenerator(t *testing.T) {
	tr := translate(t, `#[a: 1]`)
	text := Disassemble(tr)
	if !strings.Contains(text, "DICT") {
		t.Errorf("#[...] compiles through the dictionary generator:\n%s", text)
	}
}

func TestBlockConstantsStayLazy(t *testing.T) {
	tr := translate(t, `if true [undefinedInside]`)
	// the block body is a constant; nothing inside it is resolved yet
	foundBlock := false
	for _, c := range tr.Constants {
		if c.Kind == value.Block {
			foundBlock = true
		}
	}
	if !foundBlock {
		t.Errorf("block argument should be pooled as a constant: %v", tr.Constants)
	}
}

func TestTranslationCachedOnFunction(t *testing.T) {
	machine, _ := newTestVM()
	if err := machine.Run(`f: $[x][x] f 1`); err != nil {
		t.Fatalf("run: %v", err)
	}
	v, _ := machine.Lookup("f")
	if v.Fn.Compiled == nil {
		t.Errorf("body translation should be cached after first invocation")
	}
}
