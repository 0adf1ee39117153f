package vm

import (
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/moeinimoein/arturo/parser"
	"github.com/moeinimoein/arturo/value"
)

// ---------------------------------------------------------------------------
// Conversion engine
//
// Convert drives the `to` primitive and the implicit coercions. The
// matrix is enumerated: pairs without a rule raise CannotConvert,
// rules whose input fails validation raise ConversionFailed.
// ---------------------------------------------------------------------------

// Convert coerces v to the target type value. format carries the
// optional .format attribute (dates, numeric formatting).
func (vm *VM) Convert(v value.Value, target value.Value, format string) (value.Value, error) {
	if target.Kind != value.Type {
		return value.NullV, newError(TypeMismatch, "conversion target must be a :type")
	}

	// user-defined types construct objects
	if target.TypeKind == value.Object && target.Str != "object" {
		proto, ok := vm.Prototype(target.Str)
		if !ok {
			return value.NullV, newError(SymbolNotFound, "unknown type :%s", target.Str)
		}
		return vm.construct(proto, v)
	}

	if v.Kind == target.TypeKind {
		return v, nil
	}

	switch target.TypeKind {
	case value.Logical:
		return vm.toLogical(v)
	case value.Integer:
		return vm.toInteger(v)
	case value.Floating:
		return vm.toFloating(v)
	case value.Rational:
		return vm.toRational(v)
	case value.String:
		return vm.toString(v, format)
	case value.Char:
		return vm.toChar(v)
	case value.Block:
		return vm.toBlock(v)
	case value.Dictionary:
		return vm.toDictionary(v)
	case value.Date:
		return vm.toDate(v, format)
	case value.Color:
		return vm.toColor(v)
	case value.Binary:
		return vm.toBinary(v)
	case value.Bytecode:
		return vm.toBytecode(v)
	case value.Version:
		return vm.toVersion(v)
	case value.Literal, value.Word, value.Label:
		if v.Kind.IsTextual() {
			return value.NewText(target.TypeKind, v.Str), nil
		}
	case value.Symbol:
		if v.Kind.IsTextual() {
			return value.NewSymbol(v.Str), nil
		}
	}
	return value.NullV, cannotConvert(v, target.TypeKind)
}

func cannotConvert(v value.Value, target value.Kind) error {
	return newError(CannotConvert, "no rule to convert :%s to :%s", v.Kind, target)
}

func conversionFailed(v value.Value, target value.Kind, why string) error {
	return newError(ConversionFailed, "converting :%s to :%s: %s", v.Kind, target, why)
}

func (vm *VM) toLogical(v value.Value) (value.Value, error) {
	switch v.Kind {
	case value.Null, value.Nothing:
		return value.FalseV, nil
	case value.Integer:
		if v.Big != nil {
			return value.NewLogical(v.Big.Sign() != 0), nil
		}
		return value.NewLogical(v.Int != 0), nil
	case value.Floating:
		return value.NewLogical(v.Flt != 0), nil
	case value.String:
		switch strings.ToLower(v.Str) {
		case "true", "yes":
			return value.TrueV, nil
		case "false", "no":
			return value.FalseV, nil
		}
		return value.NullV, conversionFailed(v, value.Logical, "not a truth value")
	}
	return value.NullV, cannotConvert(v, value.Logical)
}

func (vm *VM) toInteger(v value.Value) (value.Value, error) {
	switch v.Kind {
	case value.Null:
		return value.NewInteger(0), nil
	case value.Logical:
		return value.NewInteger(v.Int), nil
	case value.Floating:
		return value.NewInteger(int64(v.Flt)), nil
	case value.Rational:
		q := new(big.Int).Quo(v.Rat.Num(), v.Rat.Denom())
		return value.NewBigInteger(q), nil
	case value.Char:
		return value.NewInteger(v.Int), nil
	case value.String:
		iv, ok := value.ParseIntegerText(strings.TrimSpace(v.Str))
		if !ok {
			return value.NullV, conversionFailed(v, value.Integer, "not a numeric string")
		}
		return iv, nil
	case value.Date:
		return value.NewInteger(v.Dt.Unix()), nil
	case value.Quantity:
		return vm.toInteger(v.Qty.Amount)
	}
	return value.NullV, cannotConvert(v, value.Integer)
}

func (vm *VM) toFloating(v value.Value) (value.Value, error) {
	switch v.Kind {
	case value.Null:
		return value.NewFloating(0), nil
	case value.Logical, value.Integer, value.Rational:
		return value.NewFloating(v.AsFloat()), nil
	case value.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return value.NullV, conversionFailed(v, value.Floating, "not a numeric string")
		}
		return value.NewFloating(f), nil
	}
	return value.NullV, cannotConvert(v, value.Floating)
}

func (vm *VM) toRational(v value.Value) (value.Value, error) {
	switch v.Kind {
	case value.Integer, value.Floating:
		if v.Kind == value.Floating {
			r := new(big.Rat).SetFloat64(v.Flt)
			if r == nil {
				return value.NullV, conversionFailed(v, value.Rational, "not a finite float")
			}
			return value.NewRational(r), nil
		}
		return value.NewRational(v.AsRat()), nil
	case value.String:
		r, ok := new(big.Rat).SetString(strings.TrimSpace(v.Str))
		if !ok {
			return value.NullV, conversionFailed(v, value.Rational, "not a rational string")
		}
		return value.NewRational(r), nil
	case value.Block:
		elems := v.Elems()
		if len(elems) == 2 && elems[0].Kind == value.Integer && elems[1].Kind == value.Integer {
			if elems[1].Int == 0 && elems[1].Big == nil {
				return value.NullV, conversionFailed(v, value.Rational, "zero denominator")
			}
			r := new(big.Rat).SetFrac(elems[0].AsBigInt(), elems[1].AsBigInt())
			return value.NewRational(r), nil
		}
		return value.NullV, conversionFailed(v, value.Rational, "expected [numerator denominator]")
	}
	return value.NullV, cannotConvert(v, value.Rational)
}

func (vm *VM) toString(v value.Value, format string) (value.Value, error) {
	if v.Kind == value.Date && format != "" {
		return value.NewString(v.Dt.Format(format)), nil
	}
	if v.IsBlockish() {
		// block -> string goes through the round-trippable source form
		return value.NewString(value.Codify(v, false, false, false)), nil
	}
	return value.NewString(value.Printable(v, vm)), nil
}

func (vm *VM) toChar(v value.Value) (value.Value, error) {
	switch v.Kind {
	case value.Integer:
		if v.Big != nil || v.Int < 0 || v.Int > 0x10FFFF {
			return value.NullV, conversionFailed(v, value.Char, "not a Unicode code point")
		}
		return value.NewChar(rune(v.Int)), nil
	case value.String:
		runes := []rune(v.Str)
		if len(runes) != 1 {
			return value.NullV, conversionFailed(v, value.Char, "expected a single character")
		}
		return value.NewChar(runes[0]), nil
	}
	return value.NullV, cannotConvert(v, value.Char)
}

func (vm *VM) toBlock(v value.Value) (value.Value, error) {
	switch v.Kind {
	case value.Inline:
		return value.NewBlockFrom(v.Elems()), nil
	case value.String:
		root, err := parser.Parse(v.Str)
		if err != nil {
			return value.NullV, conversionFailed(v, value.Block, err.Error())
		}
		return root, nil
	case value.Range:
		if v.Rng.Infinite {
			return value.NullV, conversionFailed(v, value.Block, "range is infinite")
		}
		return v.Rng.ToBlock(), nil
	case value.Dictionary:
		elems := make([]value.Value, 0, v.Dct.Len()*2)
		for i := range v.Dct.Keys() {
			k, val := v.Dct.At(i)
			elems = append(elems, value.NewString(k), val)
		}
		return value.NewBlockFrom(elems), nil
	case value.Object:
		elems := make([]value.Value, 0, len(v.Obj.Proto.Fields))
		for _, f := range v.Obj.Proto.Fields {
			fv, _ := v.Obj.Members.Get(f)
			elems = append(elems, fv)
		}
		return value.NewBlockFrom(elems), nil
	}
	return value.NullV, cannotConvert(v, value.Block)
}

// toDictionary executes a block unscoped and pairs adjacent stack
// values as key and value.
func (vm *VM) toDictionary(v value.Value) (value.Value, error) {
	switch v.Kind {
	case value.Block, value.Inline:
		vals, err := vm.execBlockCollect(v)
		if err != nil {
			return value.NullV, err
		}
		if len(vals)%2 != 0 {
			return value.NullV, conversionFailed(v, value.Dictionary, "odd number of values")
		}
		d := value.NewDict()
		for i := 0; i < len(vals); i += 2 {
			d.Set(keyText(vals[i]), vals[i+1])
		}
		return value.NewDictionary(d), nil
	case value.Object:
		return value.NewDictionary(v.Obj.Members.Clone()), nil
	case value.Bytecode:
		return bytecodeToDictionary(v.Bc), nil
	}
	return value.NullV, cannotConvert(v, value.Dictionary)
}

func (vm *VM) toDate(v value.Value, format string) (value.Value, error) {
	switch v.Kind {
	case value.Integer:
		if v.Big != nil {
			return value.NullV, conversionFailed(v, value.Date, "timestamp out of range")
		}
		return value.NewDate(time.Unix(v.Int, 0).UTC()), nil
	case value.String:
		layout := format
		if layout == "" {
			layout = time.RFC3339
		}
		t, err := time.Parse(layout, v.Str)
		if err != nil {
			t, err = time.Parse("2006-01-02", v.Str)
		}
		if err != nil {
			return value.NullV, conversionFailed(v, value.Date, "unparseable timestamp")
		}
		return value.NewDate(t), nil
	}
	return value.NullV, cannotConvert(v, value.Date)
}

// toColor converts a block of 3 or 4 channel values; the .hsl and .hsv
// attributes switch the color-space interpretation.
func (vm *VM) toColor(v value.Value) (value.Value, error) {
	switch v.Kind {
	case value.String:
		s := strings.TrimPrefix(v.Str, "#")
		if len(s) != 6 && len(s) != 8 {
			return value.NullV, conversionFailed(v, value.Color, "expected #rrggbb")
		}
		n, err := strconv.ParseUint(s, 16, 64)
		if err != nil {
			return value.NullV, conversionFailed(v, value.Color, "invalid hex color")
		}
		if len(s) == 8 {
			return value.NewColorRGBA(int64(n>>24&0xFF), int64(n>>16&0xFF), int64(n>>8&0xFF), int64(n&0xFF)), nil
		}
		return value.NewColorRGB(int64(n>>16&0xFF), int64(n>>8&0xFF), int64(n&0xFF)), nil
	case value.Block, value.Inline:
		elems := v.Elems()
		if len(elems) != 3 && len(elems) != 4 {
			return value.NullV, conversionFailed(v, value.Color, "expected 3 or 4 channels")
		}
		if vm.attrIsSet("hsl") || vm.attrIsSet("hsv") {
			h := elems[0].AsFloat()
			s := channel01(elems[1])
			x := channel01(elems[2])
			if vm.attrIsSet("hsl") {
				return value.NewColorHSL(h, s, x), nil
			}
			return value.NewColorHSV(h, s, x), nil
		}
		ch := make([]int64, len(elems))
		for i, e := range elems {
			if e.Kind != value.Integer || e.Big != nil {
				return value.NullV, conversionFailed(v, value.Color, "channels must be integers")
			}
			ch[i] = e.Int
		}
		if len(ch) == 4 {
			return value.NewColorRGBA(ch[0], ch[1], ch[2], ch[3]), nil
		}
		return value.NewColorRGB(ch[0], ch[1], ch[2]), nil
	}
	return value.NullV, cannotConvert(v, value.Color)
}

// channel01 accepts 0..1 floats or 0..100 integer percentages.
func channel01(v value.Value) float64 {
	f := v.AsFloat()
	if v.Kind == value.Integer && f > 1 {
		return f / 100
	}
	return f
}

func (vm *VM) toBinary(v value.Value) (value.Value, error) {
	switch v.Kind {
	case value.String:
		return value.NewBinary([]byte(v.Str)), nil
	case value.Integer:
		if v.Big != nil {
			return value.NewBinary(v.Big.Bytes()), nil
		}
		var out []byte
		n := v.Int
		if n == 0 {
			out = []byte{0}
		}
		for n != 0 {
			out = append([]byte{byte(n & 0xFF)}, out...)
			n >>= 8
		}
		return value.NewBinary(out), nil
	case value.Block, value.Inline:
		out := make([]byte, 0, len(v.Elems()))
		for _, e := range v.Elems() {
			if e.Kind != value.Integer || e.Big != nil || e.Int < 0 || e.Int > 255 {
				return value.NullV, conversionFailed(v, value.Binary, "bytes must be integers 0..255")
			}
			out = append(out, byte(e.Int))
		}
		return value.NewBinary(out), nil
	}
	return value.NullV, cannotConvert(v, value.Binary)
}

// toBytecode translates a block, or reconstructs a Translation from
// its dictionary exchange form {data, code}.
func (vm *VM) toBytecode(v value.Value) (value.Value, error) {
	switch v.Kind {
	case value.Block, value.Inline:
		t, err := vm.TranslateBlock(v)
		if err != nil {
			return value.NullV, err
		}
		return value.NewBytecode(t), nil
	case value.Dictionary:
		data, ok1 := v.Dct.Get("data")
		code, ok2 := v.Dct.Get("code")
		if !ok1 || !ok2 || !data.IsBlockish() || !code.IsBlockish() {
			return value.NullV, conversionFailed(v, value.Bytecode, "expected data and code blocks")
		}
		t := &value.Translation{
			Constants:    append([]value.Value(nil), data.Elems()...),
			Instructions: make([]byte, 0, len(code.Elems())),
		}
		for _, e := range code.Elems() {
			if e.Kind != value.Integer || e.Big != nil || e.Int < 0 || e.Int > 255 {
				return value.NullV, conversionFailed(v, value.Bytecode, "opcodes must be integers 0..255")
			}
			t.Instructions = append(t.Instructions, byte(e.Int))
		}
		return value.NewBytecode(t), nil
	}
	return value.NullV, cannotConvert(v, value.Bytecode)
}

func (vm *VM) toVersion(v value.Value) (value.Value, error) {
	if v.Kind != value.String {
		return value.NullV, cannotConvert(v, value.Version)
	}
	core := strings.TrimSpace(v.Str)
	extra := ""
	if i := strings.IndexAny(core, "-+"); i >= 0 {
		extra = core[i:]
		core = core[:i]
	}
	parts := strings.Split(core, ".")
	if len(parts) != 3 {
		return value.NullV, conversionFailed(v, value.Version, "expected major.minor.patch")
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return value.NullV, conversionFailed(v, value.Version, "non-numeric component")
		}
		nums[i] = n
	}
	return value.NewVersion(nums[0], nums[1], nums[2], extra), nil
}

// bytecodeToDictionary is the inverse exchange form of a Bytecode
// value: {data: [<constants>], code: [<opcode bytes>]}.
func bytecodeToDictionary(t *value.Translation) value.Value {
	d := value.NewDict()
	d.Set("data", value.NewBlockFrom(append([]value.Value(nil), t.Constants...)))
	code := make([]value.Value, len(t.Instructions))
	for i, b := range t.Instructions {
		code[i] = value.NewInteger(int64(b))
	}
	d.Set("code", value.NewBlockFrom(code))
	return value.NewDictionary(d)
}
