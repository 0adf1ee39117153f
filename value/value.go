// Package value implements the Arturo value model: a closed tagged
// variant covering every runtime type, from integers and strings to
// blocks, dictionaries, functions, and user-defined objects.
//
// Values are small structs passed by value; large payloads (blocks,
// dictionaries, objects, functions) sit behind pointers and are shared
// by reference.
package value

import (
	"math"
	"math/big"
	"time"
)

// ---------------------------------------------------------------------------
// Kind: the variant tag
// ---------------------------------------------------------------------------

// Kind identifies the variant stored in a Value.
type Kind uint8

const (
	Null Kind = iota
	Logical
	Integer
	Floating
	Complex
	Rational
	Version
	Type
	Char
	String
	Word
	Literal
	Label
	Attribute
	AttributeLabel
	Path
	PathLabel
	PathLiteral
	Symbol
	SymbolLiteral
	Regex
	Color
	Date
	Quantity
	Unit
	Binary
	Inline
	Block
	Range
	Dictionary
	Object
	Store
	Function
	Bytecode
	Database
	Socket
	Nothing
	Any
)

var kindNames = [...]string{
	Null: "null", Logical: "logical", Integer: "integer",
	Floating: "floating", Complex: "complex", Rational: "rational",
	Version: "version", Type: "type", Char: "char", String: "string",
	Word: "word", Literal: "literal", Label: "label",
	Attribute: "attribute", AttributeLabel: "attributeLabel",
	Path: "path", PathLabel: "pathLabel", PathLiteral: "pathLiteral",
	Symbol: "symbol", SymbolLiteral: "symbolLiteral", Regex: "regex",
	Color: "color", Date: "date", Quantity: "quantity", Unit: "unit",
	Binary: "binary", Inline: "inline", Block: "block", Range: "range",
	Dictionary: "dictionary", Object: "object", Store: "store",
	Function: "function", Bytecode: "bytecode", Database: "database",
	Socket: "socket", Nothing: "nothing", Any: "any",
}

// String returns the lowercase name of the kind, as used by :type
// literals in source code.
func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}

// KindFromName resolves a :type literal name back to a Kind.
// Returns (Nothing, false) for unknown names (user types are resolved
// against the type registry, not here).
func KindFromName(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	return Nothing, false
}

// IsTextual reports whether the kind carries a plain text payload.
func (k Kind) IsTextual() bool {
	switch k {
	case String, Word, Literal, Label, Attribute, AttributeLabel,
		Symbol, SymbolLiteral, Regex, Unit:
		return true
	}
	return false
}

// IsNumeric reports whether the kind participates in numeric promotion.
func (k Kind) IsNumeric() bool {
	switch k {
	case Integer, Floating, Rational, Complex:
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Value: the tagged variant
// ---------------------------------------------------------------------------

// Value is a single Arturo runtime value. Exactly the payload fields
// implied by Kind are meaningful; the rest are zero.
type Value struct {
	Kind Kind

	// Line is the 1-based source line the value was parsed from, or 0
	// for values created at run time. The translator feeds it to the
	// eol tracking opcode.
	Line int32

	// Scalar payloads.
	Int int64      // Integer (word-sized), Char (code point), Logical (0/1)
	Flt float64    // Floating
	Cpx complex128 // Complex
	Str string     // textual kinds, Version text is kept in Ver

	// Heap payloads, shared by reference.
	Big *big.Int     // Integer with the big sub-kind
	Rat *big.Rat     // Rational
	Ver *VersionInfo // Version
	Bin []byte       // Binary
	Blk *BlockData   // Block, Inline
	Rng *RangeData   // Range
	Dct *Dict        // Dictionary
	Obj *Object      // Object
	Fn  *FunctionData
	Bc  *Translation // Bytecode
	Dt  *time.Time   // Date
	Col *ColorData   // Color
	Qty *QuantityData

	// Type values: the builtin kind named by the literal, or Object
	// plus Str naming a user type.
	TypeKind Kind

	// Store, Database, Socket: opaque handle owned by the hosting
	// subsystem.
	Handle any
}

// VersionInfo is the payload of a Version value.
type VersionInfo struct {
	Major, Minor, Patch int
	Extra               string
}

// BlockData is the payload of Block and Inline values: an ordered,
// heterogeneous sequence plus an optional attached data dictionary
// (docstrings and function info travel there).
type BlockData struct {
	Elems []Value
	Data  *Dict
}

// QuantityData pairs an amount with a unit name.
type QuantityData struct {
	Amount Value
	Unit   string
}

// Translation is the compiled form of a block: an interned constants
// pool plus a byte-encoded instruction stream.
type Translation struct {
	Constants    []Value
	Instructions []byte
}

// MaxConstants is the largest constants pool a Translation may carry;
// the extended operand form is two bytes wide.
const MaxConstants = 65536

// ---------------------------------------------------------------------------
// Singletons
// ---------------------------------------------------------------------------

var (
	NullV    = Value{Kind: Null}
	NothingV = Value{Kind: Nothing}
	TrueV    = Value{Kind: Logical, Int: 1}
	FalseV   = Value{Kind: Logical, Int: 0}
	AnyV     = Value{Kind: Any}
)

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// NewLogical returns the canonical true or false value.
func NewLogical(b bool) Value {
	if b {
		return TrueV
	}
	return FalseV
}

// NewInteger returns a word-sized integer value.
func NewInteger(i int64) Value {
	return Value{Kind: Integer, Int: i}
}

// NewBigInteger returns an arbitrary-precision integer value. Values
// that fit in a machine word are demoted to the normal sub-kind so
// equality stays structural.
func NewBigInteger(b *big.Int) Value {
	if b.IsInt64() {
		return Value{Kind: Integer, Int: b.Int64()}
	}
	return Value{Kind: Integer, Big: new(big.Int).Set(b)}
}

// NewFloating returns a floating-point value.
func NewFloating(f float64) Value {
	return Value{Kind: Floating, Flt: f}
}

// NewComplex returns a complex value.
func NewComplex(c complex128) Value {
	return Value{Kind: Complex, Cpx: c}
}

// NewRational returns a rational value in lowest terms.
func NewRational(r *big.Rat) Value {
	return Value{Kind: Rational, Rat: new(big.Rat).Set(r)}
}

// NewChar returns a character value for the given code point.
func NewChar(r rune) Value {
	return Value{Kind: Char, Int: int64(r)}
}

// NewString returns a string value.
func NewString(s string) Value {
	return Value{Kind: String, Str: s}
}

// NewText returns a value of any textual kind.
func NewText(k Kind, s string) Value {
	return Value{Kind: k, Str: s}
}

// NewWord returns a word value.
func NewWord(s string) Value { return Value{Kind: Word, Str: s} }

// NewLiteral returns a literal value ('word form).
func NewLiteral(s string) Value { return Value{Kind: Literal, Str: s} }

// NewLabel returns a label value (word: form).
func NewLabel(s string) Value { return Value{Kind: Label, Str: s} }

// NewSymbol returns a symbol value (+, ->, .. and friends).
func NewSymbol(s string) Value { return Value{Kind: Symbol, Str: s} }

// NewVersion returns a version value.
func NewVersion(major, minor, patch int, extra string) Value {
	return Value{Kind: Version, Ver: &VersionInfo{major, minor, patch, extra}}
}

// NewType returns a type value for a builtin kind.
func NewType(k Kind) Value {
	return Value{Kind: Type, TypeKind: k, Str: k.String()}
}

// NewUserType returns a type value naming a user-defined prototype.
func NewUserType(name string) Value {
	return Value{Kind: Type, TypeKind: Object, Str: name}
}

// NewBinary returns a binary value.
func NewBinary(b []byte) Value { return Value{Kind: Binary, Bin: b} }

// NewBlock returns a block value over the given elements.
func NewBlock(elems ...Value) Value {
	return Value{Kind: Block, Blk: &BlockData{Elems: elems}}
}

// NewBlockFrom wraps an existing element slice without copying.
func NewBlockFrom(elems []Value) Value {
	return Value{Kind: Block, Blk: &BlockData{Elems: elems}}
}

// NewInline returns an inline (parenthesised) block value.
func NewInline(elems []Value) Value {
	return Value{Kind: Inline, Blk: &BlockData{Elems: elems}}
}

// NewDictionary returns a dictionary value over d (nil allocates).
func NewDictionary(d *Dict) Value {
	if d == nil {
		d = NewDict()
	}
	return Value{Kind: Dictionary, Dct: d}
}

// NewRange returns a range value.
func NewRange(r *RangeData) Value { return Value{Kind: Range, Rng: r} }

// NewFunction returns a function value.
func NewFunction(fn *FunctionData) Value { return Value{Kind: Function, Fn: fn} }

// NewObject returns an object value.
func NewObject(o *Object) Value { return Value{Kind: Object, Obj: o} }

// NewBytecode wraps a Translation.
func NewBytecode(t *Translation) Value { return Value{Kind: Bytecode, Bc: t} }

// NewDate returns a date value.
func NewDate(t time.Time) Value {
	tt := t
	return Value{Kind: Date, Dt: &tt}
}

// NewQuantity returns a quantity value.
func NewQuantity(amount Value, unit string) Value {
	return Value{Kind: Quantity, Qty: &QuantityData{Amount: amount, Unit: unit}}
}

// NewStore wraps a store handle.
func NewStore(h any, path string) Value {
	return Value{Kind: Store, Handle: h, Str: path}
}

// NewDatabase wraps a database handle.
func NewDatabase(h any, path string) Value {
	return Value{Kind: Database, Handle: h, Str: path}
}

// ---------------------------------------------------------------------------
// Predicates and accessors
// ---------------------------------------------------------------------------

// IsBig reports whether an integer value uses the big sub-kind.
func (v Value) IsBig() bool { return v.Kind == Integer && v.Big != nil }

// IsNull reports whether the value is null or nothing.
func (v Value) IsNull() bool { return v.Kind == Null || v.Kind == Nothing }

// IsTruthy reports truthiness for conditionals: false and null are
// falsy, everything else is truthy.
func (v Value) IsTruthy() bool {
	switch v.Kind {
	case Logical:
		return v.Int != 0
	case Null, Nothing:
		return false
	}
	return true
}

// AsBool returns the payload of a logical value.
func (v Value) AsBool() bool { return v.Kind == Logical && v.Int != 0 }

// AsFloat widens any real numeric value to float64.
func (v Value) AsFloat() float64 {
	switch v.Kind {
	case Integer:
		if v.Big != nil {
			f, _ := new(big.Float).SetInt(v.Big).Float64()
			return f
		}
		return float64(v.Int)
	case Floating:
		return v.Flt
	case Rational:
		f, _ := v.Rat.Float64()
		return f
	case Logical:
		return float64(v.Int)
	}
	return math.NaN()
}

// AsBigInt widens an integer value to *big.Int (always a fresh copy
// for the word-sized sub-kind).
func (v Value) AsBigInt() *big.Int {
	if v.Big != nil {
		return v.Big
	}
	return big.NewInt(v.Int)
}

// AsRat widens an integer or rational value to *big.Rat.
func (v Value) AsRat() *big.Rat {
	switch v.Kind {
	case Rational:
		return v.Rat
	case Integer:
		if v.Big != nil {
			return new(big.Rat).SetInt(v.Big)
		}
		return big.NewRat(v.Int, 1)
	}
	return new(big.Rat)
}

// Elems returns the element slice of a block or inline value, or nil.
func (v Value) Elems() []Value {
	if v.Blk == nil {
		return nil
	}
	return v.Blk.Elems
}

// IsBlockish reports whether the value is a block or inline block.
func (v Value) IsBlockish() bool { return v.Kind == Block || v.Kind == Inline }
