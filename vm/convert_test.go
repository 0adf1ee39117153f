package vm

import (
	"errors"
	"testing"
	"time"

	"github.com/moeinimoein/arturo/parser"
	"github.com/moeinimoein/arturo/value"
)

func convert(t *testing.T, v value.Value, target value.Kind) value.Value {
	t.Helper()
	machine := New()
	res, err := machine.Convert(v, value.NewType(target), "")
	if err != nil {
		t.Fatalf("Convert(%v -> %v): %v", v.Kind, target, err)
	}
	return res
}

func convertErr(t *testing.T, v value.Value, target value.Kind) *RuntimeError {
	t.Helper()
	machine := New()
	_, err := machine.Convert(v, value.NewType(target), "")
	if err == nil {
		t.Fatalf("Convert(%v -> %v) should fail", v.Kind, target)
	}
	var re *RuntimeError
	if !errors.As(err, &re) {
		t.Fatalf("error type = %T", err)
	}
	return re
}

func TestConvertNullRules(t *testing.T) {
	if got := convert(t, value.NullV, value.Logical); !value.Equals(got, value.FalseV) {
		t.Errorf("null -> logical = %v", got)
	}
	if got := convert(t, value.NullV, value.Integer); got.Int != 0 {
		t.Errorf("null -> integer = %v", got)
	}
}

func TestConvertLogicalIntegerBothWays(t *testing.T) {
	if got := convert(t, value.TrueV, value.Integer); got.Int != 1 {
		t.Errorf("true -> integer = %v", got)
	}
	if got := convert(t, value.NewInteger(0), value.Logical); got.IsTruthy() {
		t.Errorf("0 -> logical = %v", got)
	}
	if got := convert(t, value.NewInteger(7), value.Logical); !got.IsTruthy() {
		t.Errorf("7 -> logical = %v", got)
	}
}

func TestConvertIntegerChar(t *testing.T) {
	got := convert(t, value.NewInteger(0x41), value.Char)
	if got.Kind != value.Char || got.Int != 'A' {
		t.Errorf("65 -> char = %v", got)
	}
	back := convert(t, got, value.Integer)
	if back.Int != 65 {
		t.Errorf("char roundtrip = %v", back)
	}
	re := convertErr(t, value.NewInteger(-5), value.Char)
	if re.Kind != ConversionFailed {
		t.Errorf("negative code point kind = %v", re.Kind)
	}
}

func TestConvertStringInteger(t *testing.T) {
	got := convert(t, value.NewString("2020"), value.Integer)
	if got.Int != 2020 {
		t.Errorf("got %v", got)
	}
	re := convertErr(t, value.NewString("12abc"), value.Integer)
	if re.Kind != ConversionFailed {
		t.Errorf("residue must fail with ConversionFailed, got %v", re.Kind)
	}
}

func TestConvertStringDate(t *testing.T) {
	machine := New()
	got, err := machine.Convert(value.NewString("2021-03-04T05:06:07Z"), value.NewType(value.Date), "")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if got.Dt.Year() != 2021 || got.Dt.Minute() != 6 {
		t.Errorf("date = %v", got.Dt)
	}

	custom, err := machine.Convert(value.NewString("04/03/2021"), value.NewType(value.Date), "02/01/2006")
	if err != nil {
		t.Fatalf("Convert with format: %v", err)
	}
	if custom.Dt.Month() != time.March {
		t.Errorf("custom format month = %v", custom.Dt.Month())
	}
}

func TestConvertDateInteger(t *testing.T) {
	dt := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	got := convert(t, value.NewDate(dt), value.Integer)
	if got.Int != dt.Unix() {
		t.Errorf("unix seconds = %v, want %d", got, dt.Unix())
	}
}

func TestConvertStringBlockReparses(t *testing.T) {
	got := convert(t, value.NewString("print 1+2"), value.Block)
	if got.Kind != value.Block {
		t.Fatalf("kind = %v", got.Kind)
	}
	if len(got.Elems()) != 4 {
		t.Errorf("elems = %v", got.Elems())
	}
}

func TestConvertBlockString(t *testing.T) {
	blk := value.NewBlock(value.NewWord("print"), value.NewInteger(1))
	got := convert(t, blk, value.String)
	if got.Str != "[print 1]" {
		t.Errorf("block -> string = %q", got.Str)
	}
}

func TestConvertBlockDictionaryPairsStackValues(t *testing.T) {
	machine := New()
	res, cerr := machine.Convert(mustParse(t, `["a" 1 "b" 2]`), value.NewType(value.Dictionary), "")
	if cerr != nil {
		t.Fatalf("Convert: %v", cerr)
	}
	if v, ok := res.Dct.Get("a"); !ok || v.Int != 1 {
		t.Errorf("a = %v, %v", v, ok)
	}
	if v, ok := res.Dct.Get("b"); !ok || v.Int != 2 {
		t.Errorf("b = %v, %v", v, ok)
	}

	re := convertErr(t, mustParse(t, `["a" 1 "odd"]`), value.Dictionary)
	if re.Kind != ConversionFailed {
		t.Errorf("odd pairing kind = %v", re.Kind)
	}
}

func TestConvertBlockColor(t *testing.T) {
	got := convert(t, mustParse(t, `[255 0 0]`), value.Color)
	r, g, b := got.Col.RGB255()
	if r != 255 || g != 0 || b != 0 {
		t.Errorf("rgb = %d %d %d", r, g, b)
	}

	machine := New()
	machine.currentAttrs = map[string]value.Value{"hsl": value.TrueV}
	hsl, err := machine.Convert(mustParse(t, `[0 1.0 0.5]`), value.NewType(value.Color), "")
	if err != nil {
		t.Fatalf("hsl: %v", err)
	}
	hr, hg, hb := hsl.Col.RGB255()
	if hr != 255 || hg != 0 || hb != 0 {
		t.Errorf("hsl red = %d %d %d", hr, hg, hb)
	}

	re := convertErr(t, mustParse(t, `[1 2]`), value.Color)
	if re.Kind != ConversionFailed {
		t.Errorf("short channel list kind = %v", re.Kind)
	}
}

func TestConvertBlockBytecodeAndBack(t *testing.T) {
	machine, out := newTestVM()
	if err := machine.Run(`
		bc: to :bytecode [print 42]
		do bc
	`); err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.String() != "42\n" {
		t.Errorf("out = %q", out.String())
	}
}

func TestBytecodeDictionaryRoundTrip(t *testing.T) {
	machine, out := newTestVM()
	if err := machine.Run(`
		bc: to :bytecode [print 7]
		d: to :dictionary bc
		bc2: to :bytecode d
		do bc2
	`); err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.String() != "7\n" {
		t.Errorf("out = %q", out.String())
	}
}

func TestConvertUnreachablePair(t *testing.T) {
	re := convertErr(t, value.NewDictionary(nil), value.Char)
	if re.Kind != CannotConvert {
		t.Errorf("kind = %v, want CannotConvert", re.Kind)
	}
}

func TestScalarRoundTrips(t *testing.T) {
	// convert(convert(v, T), tag(v)) = v for compatible scalar pairs
	cases := []struct {
		v      value.Value
		target value.Kind
	}{
		{value.NewInteger(42), value.String},
		{value.NewInteger(42), value.Floating},
		{value.NewInteger(65), value.Char},
		{value.TrueV, value.Integer},
		{value.NewFloating(1.5), value.String},
	}
	for _, c := range cases {
		machine := New()
		there, err := machine.Convert(c.v, value.NewType(c.target), "")
		if err != nil {
			t.Errorf("%v -> %v: %v", c.v.Kind, c.target, err)
			continue
		}
		back, err := machine.Convert(there, value.NewType(c.v.Kind), "")
		if err != nil {
			t.Errorf("%v -> %v back: %v", c.target, c.v.Kind, err)
			continue
		}
		if !value.Equals(back, c.v) {
			t.Errorf("roundtrip %v via %v: got %v", c.v, c.target, back)
		}
	}
}

func TestConvertVersion(t *testing.T) {
	got := convert(t, value.NewString("1.2.3-beta"), value.Version)
	if got.Ver.Major != 1 || got.Ver.Patch != 3 || got.Ver.Extra != "-beta" {
		t.Errorf("version = %+v", got.Ver)
	}
}

func TestConvertToUserType(t *testing.T) {
	machine, _ := newTestVM()
	if err := machine.Run(`define :pair [a b][]`); err != nil {
		t.Fatalf("define: %v", err)
	}
	res, err := machine.Convert(mustParse(t, `[1 2]`), value.NewUserType("pair"), "")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if res.Kind != value.Object {
		t.Fatalf("kind = %v", res.Kind)
	}
	if v, _ := res.Obj.Get("b"); v.Int != 2 {
		t.Errorf("b = %v", v)
	}
}

// mustParse parses a single-value source snippet.
func mustParse(t *testing.T, src string) value.Value {
	t.Helper()
	v, err := parser.ParseOne(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return v
}
