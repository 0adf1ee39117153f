package vm

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/moeinimoein/arturo/parser"
	"github.com/moeinimoein/arturo/value"
)

// ---------------------------------------------------------------------------
// Wire format: Translation <-> canonical CBOR
//
// Compiled modules (.artb files) carry a Translation
// as canonical CBOR so encoding is deterministic. Constants travel in
// their round-trippable source form.
// ---------------------------------------------------------------------------

// wireMagic guards against feeding arbitrary CBOR into the decoder.
const wireMagic = "artb"

// wireVersion bumps when the encoding changes shape.
const wireVersion = 1

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

type wireConstant struct {
	Kind uint8  `cbor:"k"`
	Src  string `cbor:"s"`
}

type wireTranslation struct {
	Magic     string         `cbor:"m"`
	Version   int            `cbor:"v"`
	Constants []wireConstant `cbor:"d"`
	Code      []byte         `cbor:"c"`
}

// MarshalTranslation serializes a Translation to CBOR bytes.
func MarshalTranslation(t *value.Translation) ([]byte, error) {
	w := wireTranslation{
		Magic:     wireMagic,
		Version:   wireVersion,
		Constants: make([]wireConstant, len(t.Constants)),
		Code:      t.Instructions,
	}
	for i, c := range t.Constants {
		w.Constants[i] = wireConstant{
			Kind: uint8(c.Kind),
			Src:  value.Codify(c, false, false, true),
		}
	}
	return cborEncMode.Marshal(w)
}

// UnmarshalTranslation deserializes a Translation from CBOR bytes.
func UnmarshalTranslation(data []byte) (*value.Translation, error) {
	var w wireTranslation
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("vm: unmarshal translation: %w", err)
	}
	if w.Magic != wireMagic {
		return nil, fmt.Errorf("vm: not a compiled module")
	}
	if w.Version != wireVersion {
		return nil, fmt.Errorf("vm: unsupported module version %d", w.Version)
	}
	t := &value.Translation{
		Constants:    make([]value.Value, len(w.Constants)),
		Instructions: w.Code,
	}
	for i, c := range w.Constants {
		v, err := decodeWireConstant(c)
		if err != nil {
			return nil, err
		}
		t.Constants[i] = v
	}
	return t, nil
}

// decodeWireConstant re-parses a constant from its source form and
// restores the original tag for kinds whose source form is ambiguous.
func decodeWireConstant(c wireConstant) (value.Value, error) {
	k := value.Kind(c.Kind)
	switch k {
	case value.Null, value.Nothing:
		return value.NullV, nil
	case value.Logical:
		return value.NewLogical(c.Src == "true"), nil
	}
	v, err := parser.ParseOne(c.Src)
	if err != nil {
		return value.NullV, fmt.Errorf("vm: corrupt constant %q: %w", c.Src, err)
	}
	if v.Kind != k && k.IsTextual() {
		v = value.NewText(k, v.Str)
	}
	return v, nil
}
