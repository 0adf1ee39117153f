package parser

import (
	"testing"

	"github.com/moeinimoein/arturo/value"
)

func parseElems(t *testing.T, src string) []value.Value {
	t.Helper()
	root, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return root.Elems()
}

func TestParseWordsAndLabels(t *testing.T) {
	elems := parseElems(t, `x: 10 print x`)
	wantKinds := []value.Kind{value.Label, value.Integer, value.Word, value.Word}
	if len(elems) != len(wantKinds) {
		t.Fatalf("got %d elements, want %d", len(elems), len(wantKinds))
	}
	for i, k := range wantKinds {
		if elems[i].Kind != k {
			t.Errorf("elems[%d].Kind = %v, want %v", i, elems[i].Kind, k)
		}
	}
	if elems[0].Str != "x" || elems[3].Str != "x" {
		t.Errorf("label/word payloads wrong: %q %q", elems[0].Str, elems[3].Str)
	}
}

func TestParseLiteralsAndTypes(t *testing.T) {
	elems := parseElems(t, `'foo :integer :person`)
	if elems[0].Kind != value.Literal || elems[0].Str != "foo" {
		t.Errorf("literal = %v %q", elems[0].Kind, elems[0].Str)
	}
	if elems[1].Kind != value.Type || elems[1].TypeKind != value.Integer {
		t.Errorf("builtin type = %v", elems[1])
	}
	if elems[2].Kind != value.Type || elems[2].TypeKind != value.Object || elems[2].Str != "person" {
		t.Errorf("user type = %v %q", elems[2].TypeKind, elems[2].Str)
	}
}

func TestParseAttributes(t *testing.T) {
	elems := parseElems(t, `as.binary 11 range 1 10 .step:2`)
	if elems[1].Kind != value.Attribute || elems[1].Str != "binary" {
		t.Errorf("attribute = %v %q", elems[1].Kind, elems[1].Str)
	}
	last := elems[len(elems)-2]
	if last.Kind != value.AttributeLabel || last.Str != "step" {
		t.Errorf("attribute label = %v %q", last.Kind, last.Str)
	}
}

func TestParseNumbers(t *testing.T) {
	elems := parseElems(t, `42 -7 3.14 1.2.3 123456789012345678901234567890`)
	if elems[0].Kind != value.Integer || elems[0].Int != 42 {
		t.Errorf("integer = %v", elems[0])
	}
	if elems[1].Kind != value.Integer || elems[1].Int != -7 {
		t.Errorf("negative integer = %v", elems[1])
	}
	if elems[2].Kind != value.Floating || elems[2].Flt != 3.14 {
		t.Errorf("floating = %v", elems[2])
	}
	if elems[3].Kind != value.Version || elems[3].Ver.Minor != 2 {
		t.Errorf("version = %v", elems[3])
	}
	if !elems[4].IsBig() {
		t.Errorf("huge literal should be a big integer")
	}
}

func TestParseRangeSymbol(t *testing.T) {
	elems := parseElems(t, `1..3`)
	wantKinds := []value.Kind{value.Integer, value.Symbol, value.Integer}
	if len(elems) != 3 {
		t.Fatalf("got %d elements, want 3: %v", len(elems), elems)
	}
	for i, k := range wantKinds {
		if elems[i].Kind != k {
			t.Errorf("elems[%d].Kind = %v, want %v", i, elems[i].Kind, k)
		}
	}
	if elems[1].Str != ".." {
		t.Errorf("symbol = %q, want ..", elems[1].Str)
	}
}

func TestParseInfixStaysSplit(t *testing.T) {
	elems := parseElems(t, `x-1`)
	if len(elems) != 3 {
		t.Fatalf("x-1 should lex as word, symbol, integer: %v", elems)
	}
	if elems[1].Kind != value.Symbol || elems[1].Str != "-" {
		t.Errorf("middle = %v %q", elems[1].Kind, elems[1].Str)
	}
	if elems[2].Int != 1 {
		t.Errorf("the 1 must stay positive after an expression value")
	}
}

func TestParseBlocksAndInline(t *testing.T) {
	elems := parseElems(t, `[1 [2 3]] (add 1 2)`)
	if elems[0].Kind != value.Block {
		t.Fatalf("first = %v, want block", elems[0].Kind)
	}
	inner := elems[0].Elems()
	if len(inner) != 2 || inner[1].Kind != value.Block {
		t.Errorf("nested block missing: %v", inner)
	}
	if elems[1].Kind != value.Inline {
		t.Errorf("second = %v, want inline", elems[1].Kind)
	}
}

func TestParseSugaredBlocks(t *testing.T) {
	elems := parseElems(t, `#[a: 1] @[1 2] $[x][x]`)

	dict := elems[0]
	if dict.Kind != value.Inline {
		t.Fatalf("#[] should read as an inline producer, got %v", dict.Kind)
	}
	if dict.Elems()[0].Kind != value.Word || dict.Elems()[0].Str != "dictionary" {
		t.Errorf("#[] producer = %v", dict.Elems()[0])
	}

	arr := elems[1]
	if arr.Elems()[0].Str != "array" {
		t.Errorf("@[] producer = %v", arr.Elems()[0])
	}

	if elems[2].Kind != value.Word || elems[2].Str != "function" {
		t.Errorf("$[...] should read as the function word, got %v %q", elems[2].Kind, elems[2].Str)
	}
	if elems[3].Kind != value.Block || elems[4].Kind != value.Block {
		t.Errorf("$ must leave params and body blocks")
	}
}

func TestParseStringsAndChars(t *testing.T) {
	elems := parseElems(t, "\"a\\nb\" `x` {verbatim \"text\"}")
	if elems[0].Kind != value.String || elems[0].Str != "a\nb" {
		t.Errorf("string = %q", elems[0].Str)
	}
	if elems[1].Kind != value.Char || elems[1].Int != 'x' {
		t.Errorf("char = %v", elems[1])
	}
	if elems[2].Kind != value.String || elems[2].Str != `verbatim "text"` {
		t.Errorf("verbatim = %q", elems[2].Str)
	}
}

func TestParseComments(t *testing.T) {
	elems := parseElems(t, "1 ; this is a comment\n2")
	if len(elems) != 2 || elems[1].Int != 2 {
		t.Errorf("comments should vanish: %v", elems)
	}
}

func TestParsePaths(t *testing.T) {
	elems := parseElems(t, `user\name user\0 user\age: 36`)
	if elems[0].Kind != value.Path {
		t.Fatalf("path kind = %v", elems[0].Kind)
	}
	comps := elems[0].Elems()
	if len(comps) != 2 || comps[1].Str != "name" {
		t.Errorf("path components = %v", comps)
	}
	if elems[1].Elems()[1].Kind != value.Integer {
		t.Errorf("numeric path component = %v", elems[1].Elems()[1])
	}
	if elems[2].Kind != value.PathLabel {
		t.Errorf("path label kind = %v", elems[2].Kind)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []string{
		`"unterminated`,
		`[1 2`,
		`(1 2`,
		"`ab",
	}
	for _, src := range cases {
		if _, err := Parse(src); err == nil {
			t.Errorf("Parse(%q) should fail", src)
		}
	}
}

func TestParseErrorPosition(t *testing.T) {
	_, err := Parse("1 2\n\"oops")
	perr, ok := err.(*Error)
	if !ok {
		t.Fatalf("error type = %T", err)
	}
	if perr.Pos.Line != 2 {
		t.Errorf("error line = %d, want 2", perr.Pos.Line)
	}
}

func TestLexerLineTracking(t *testing.T) {
	elems := parseElems(t, "1\n2\n3")
	if elems[0].Line != 1 || elems[1].Line != 2 || elems[2].Line != 3 {
		t.Errorf("lines = %d %d %d", elems[0].Line, elems[1].Line, elems[2].Line)
	}
}

func TestParseOne(t *testing.T) {
	v, err := ParseOne("42")
	if err != nil || v.Kind != value.Integer || v.Int != 42 {
		t.Errorf("ParseOne = %v, %v", v, err)
	}
}
