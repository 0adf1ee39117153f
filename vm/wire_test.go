package vm

import (
	"bytes"
	"testing"

	"github.com/moeinimoein/arturo/value"
)

func TestWireRoundTrip(t *testing.T) {
	machine := New()
	tr, err := machine.TranslateSource(`x: 2 print x+3`)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}

	encoded, err := MarshalTranslation(tr)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded, err := UnmarshalTranslation(encoded)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !bytes.Equal(decoded.Instructions, tr.Instructions) {
		t.Errorf("instructions differ")
	}
	if len(decoded.Constants) != len(tr.Constants) {
		t.Fatalf("constants = %d, want %d", len(decoded.Constants), len(tr.Constants))
	}
	for i := range tr.Constants {
		if decoded.Constants[i].Kind != tr.Constants[i].Kind ||
			!value.Equals(decoded.Constants[i], tr.Constants[i]) {
			t.Errorf("constant %d: %v != %v", i, decoded.Constants[i], tr.Constants[i])
		}
	}

	runner, out := newTestVM()
	if err := runner.ExecTranslation(decoded); err != nil {
		t.Fatalf("exec decoded: %v", err)
	}
	if out.String() != "5\n" {
		t.Errorf("out = %q", out.String())
	}
}

func TestWireDeterministic(t *testing.T) {
	machine := New()
	tr, err := machine.TranslateSource(`print "stable"`)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	a, _ := MarshalTranslation(tr)
	b, _ := MarshalTranslation(tr)
	if !bytes.Equal(a, b) {
		t.Errorf("canonical encoding must be deterministic")
	}
}

func TestWireRejectsGarbage(t *testing.T) {
	if _, err := UnmarshalTranslation([]byte{0x01, 0x02, 0x03}); err == nil {
		t.Errorf("garbage must not decode")
	}
	// valid CBOR, wrong shape
	if _, err := UnmarshalTranslation([]byte{0xA0}); err == nil {
		t.Errorf("an empty map is not a compiled module")
	}
}

func TestWireBlockConstants(t *testing.T) {
	machine := New()
	tr, err := machine.TranslateSource(`if true [print "inner"]`)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	encoded, _ := MarshalTranslation(tr)
	decoded, derr := UnmarshalTranslation(encoded)
	if derr != nil {
		t.Fatalf("unmarshal: %v", derr)
	}

	runner, out := newTestVM()
	if err := runner.ExecTranslation(decoded); err != nil {
		t.Fatalf("exec: %v", err)
	}
	if out.String() != "inner\n" {
		t.Errorf("out = %q", out.String())
	}
}
