package value

import (
	"math/big"
	"testing"
)

// ---------------------------------------------------------------------------
// Equality and promotion
// ---------------------------------------------------------------------------

func TestEqualsSameKind(t *testing.T) {
	cases := []struct {
		a, b Value
		want bool
	}{
		{NewInteger(1), NewInteger(1), true},
		{NewInteger(1), NewInteger(2), false},
		{NewString("abc"), NewString("abc"), true},
		{NewString("abc"), NewString("abd"), false},
		{NewChar('a'), NewChar('a'), true},
		{TrueV, TrueV, true},
		{TrueV, FalseV, false},
		{NullV, NullV, true},
		{NewWord("x"), NewWord("x"), true},
	}
	for _, c := range cases {
		if got := Equals(c.a, c.b); got != c.want {
			t.Errorf("Equals(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestEqualsNumericPromotion(t *testing.T) {
	if !Equals(NewInteger(1), NewFloating(1.0)) {
		t.Errorf("1 and 1.0 should be equal")
	}
	if !Equals(NewInteger(1), NewRational(big.NewRat(1, 1))) {
		t.Errorf("1 and 1/1 should be equal")
	}
	if Equals(NewInteger(1), NewFloating(1.5)) {
		t.Errorf("1 and 1.5 should differ")
	}
	if Equals(NewInteger(1), NewString("1")) {
		t.Errorf("cross-variant equality must be false outside numeric promotion")
	}
}

func TestEqualsBigInteger(t *testing.T) {
	big1, ok := ParseIntegerText("123456789012345678901234567890")
	if !ok {
		t.Fatalf("ParseIntegerText failed")
	}
	big2, _ := ParseIntegerText("123456789012345678901234567890")
	if !Equals(big1, big2) {
		t.Errorf("equal big integers should be equal")
	}
	if !big1.IsBig() {
		t.Errorf("literal beyond a machine word should use the big sub-kind")
	}
	if NewInteger(5).IsBig() {
		t.Errorf("small integer should not be big")
	}
}

func TestBigIntegerDemotion(t *testing.T) {
	v := NewBigInteger(big.NewInt(42))
	if v.IsBig() {
		t.Errorf("word-sized big.Int should demote to the normal sub-kind")
	}
	if v.Int != 42 {
		t.Errorf("demoted value = %d, want 42", v.Int)
	}
}

func TestCompareOrdering(t *testing.T) {
	cases := []struct {
		a, b Value
		want int
	}{
		{NewInteger(1), NewInteger(2), Less},
		{NewInteger(2), NewInteger(2), Equal},
		{NewInteger(3), NewInteger(2), Greater},
		{NewInteger(1), NewFloating(1.5), Less},
		{NewString("a"), NewString("b"), Less},
		{NewChar('a'), NewChar('b'), Less},
	}
	for _, c := range cases {
		got, ok := Compare(c.a, c.b, nil)
		if !ok {
			t.Errorf("Compare(%v, %v) should be comparable", c.a, c.b)
			continue
		}
		if got != c.want {
			t.Errorf("Compare(%v, %v) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestCompareIncomparable(t *testing.T) {
	if _, ok := Compare(NewInteger(1), NewString("1"), nil); ok {
		t.Errorf("integer and string should be incomparable")
	}
	if _, ok := Compare(NewBlock(), NewDictionary(nil), nil); ok {
		t.Errorf("block and dictionary should be incomparable")
	}
}

func TestCompareObjectsWithoutHook(t *testing.T) {
	p := NewPrototype("point")
	a := NewObject(NewObjectOf(p))
	b := NewObject(NewObjectOf(p))
	if _, ok := Compare(a, b, nil); ok {
		t.Errorf("objects without doCompare should be incomparable")
	}
}

func TestTruthiness(t *testing.T) {
	if NullV.IsTruthy() || FalseV.IsTruthy() {
		t.Errorf("null and false must be falsy")
	}
	if !NewInteger(0).IsTruthy() {
		t.Errorf("integer zero is truthy in conditionals")
	}
	if !NewString("").IsTruthy() {
		t.Errorf("empty string is truthy")
	}
}

// ---------------------------------------------------------------------------
// Dictionaries
// ---------------------------------------------------------------------------

func TestDictInsertionOrder(t *testing.T) {
	d := NewDict()
	d.Set("c", NewInteger(3))
	d.Set("a", NewInteger(1))
	d.Set("b", NewInteger(2))
	d.Set("a", NewInteger(9)) // replace must keep position

	want := []string{"c", "a", "b"}
	keys := d.Keys()
	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	for i, k := range want {
		if keys[i] != k {
			t.Errorf("keys[%d] = %q, want %q", i, keys[i], k)
		}
	}
	if v, _ := d.Get("a"); v.Int != 9 {
		t.Errorf("a = %d, want 9", v.Int)
	}
}

func TestDictDelete(t *testing.T) {
	d := NewDict()
	d.Set("a", NewInteger(1))
	d.Set("b", NewInteger(2))
	d.Set("c", NewInteger(3))
	d.Delete("b")
	if d.Len() != 2 {
		t.Fatalf("len = %d, want 2", d.Len())
	}
	if _, ok := d.Get("b"); ok {
		t.Errorf("b should be gone")
	}
	if v, ok := d.Get("c"); !ok || v.Int != 3 {
		t.Errorf("c should survive deletion with its value")
	}
}

// ---------------------------------------------------------------------------
// Ranges
// ---------------------------------------------------------------------------

func TestRangeLenAndAt(t *testing.T) {
	r := NewBoundedRange(1, 10, 1)
	if r.Len() != 10 {
		t.Errorf("len = %d, want 10", r.Len())
	}
	if got := r.At(0); got.Int != 1 {
		t.Errorf("At(0) = %d, want 1", got.Int)
	}
	if got := r.At(9); got.Int != 10 {
		t.Errorf("At(9) = %d, want 10", got.Int)
	}

	stepped := NewBoundedRange(1, 10, 3)
	if stepped.Len() != 4 {
		t.Errorf("stepped len = %d, want 4 (1 4 7 10)", stepped.Len())
	}

	back := NewBoundedRange(5, 1, 1)
	if back.Len() != 5 {
		t.Errorf("backward len = %d, want 5", back.Len())
	}
	if got := back.At(1); got.Int != 4 {
		t.Errorf("backward At(1) = %d, want 4", got.Int)
	}
}

func TestRangeChars(t *testing.T) {
	r := NewCharRange('a', 'e')
	if r.Numeric {
		t.Errorf("char range should not be numeric")
	}
	blk := r.ToBlock()
	if len(blk.Elems()) != 5 {
		t.Fatalf("len = %d, want 5", len(blk.Elems()))
	}
	if blk.Elems()[0].Kind != Char || blk.Elems()[0].Int != 'a' {
		t.Errorf("first element should be the char a")
	}
}

func TestRangeInfinite(t *testing.T) {
	r := &RangeData{Start: 1, Step: 1, Infinite: true, Numeric: true, Forward: true}
	if r.Len() != -1 {
		t.Errorf("infinite range len = %d, want -1", r.Len())
	}
	var seen int
	err := r.Each(func(v Value) (bool, error) {
		seen++
		return seen < 5, nil
	})
	if err != nil {
		t.Fatalf("Each: %v", err)
	}
	if seen != 5 {
		t.Errorf("lazy iteration stopped after %d elements, want 5", seen)
	}
}

// ---------------------------------------------------------------------------
// Kinds
// ---------------------------------------------------------------------------

func TestKindNames(t *testing.T) {
	if Integer.String() != "integer" {
		t.Errorf("Integer name = %q", Integer.String())
	}
	k, ok := KindFromName("dictionary")
	if !ok || k != Dictionary {
		t.Errorf("KindFromName(dictionary) = %v, %v", k, ok)
	}
	if _, ok := KindFromName("no-such-type"); ok {
		t.Errorf("unknown type name should not resolve")
	}
}
