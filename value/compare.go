package value

// ---------------------------------------------------------------------------
// Equality and ordering
// ---------------------------------------------------------------------------

// Caller invokes a function value on behalf of the value model; the VM
// implements it so Object comparison and printing can delegate to the
// doCompare / doPrint hooks without the value package knowing how to
// execute bytecode. A nil Caller disables delegation.
type Caller interface {
	CallFunction(fn *FunctionData, args []Value) (Value, error)
}

// Ordering results for Compare.
const (
	Less    = -1
	Equal   = 0
	Greater = 1
)

// Equals reports structural equality within a variant; cross-variant
// pairs are unequal except for numeric promotion (1 = 1.0 = 1/1).
func Equals(a, b Value) bool {
	if a.Kind.IsNumeric() && b.Kind.IsNumeric() {
		return numericCompare(a, b) == Equal
	}
	if a.Kind != b.Kind {
		// Null and Nothing collapse.
		return a.IsNull() && b.IsNull()
	}

	switch a.Kind {
	case Null, Nothing, Any:
		return true
	case Logical:
		return a.Int == b.Int
	case Char:
		return a.Int == b.Int
	case Version:
		return a.Ver.Major == b.Ver.Major && a.Ver.Minor == b.Ver.Minor &&
			a.Ver.Patch == b.Ver.Patch && a.Ver.Extra == b.Ver.Extra
	case Type:
		return a.TypeKind == b.TypeKind && a.Str == b.Str
	case Date:
		return a.Dt.Equal(*b.Dt)
	case Quantity:
		return a.Qty.Unit == b.Qty.Unit && Equals(a.Qty.Amount, b.Qty.Amount)
	case Color:
		ar, ag, ab := a.Col.RGB255()
		br, bg, bb := b.Col.RGB255()
		return ar == br && ag == bg && ab == bb && a.Col.Alpha == b.Col.Alpha
	case Binary:
		if len(a.Bin) != len(b.Bin) {
			return false
		}
		for i := range a.Bin {
			if a.Bin[i] != b.Bin[i] {
				return false
			}
		}
		return true
	case Block, Inline:
		ae, be := a.Elems(), b.Elems()
		if len(ae) != len(be) {
			return false
		}
		for i := range ae {
			if !Equals(ae[i], be[i]) {
				return false
			}
		}
		return true
	case Range:
		return *a.Rng == *b.Rng
	case Dictionary:
		if a.Dct.Len() != b.Dct.Len() {
			return false
		}
		for i, k := range a.Dct.Keys() {
			_, av := a.Dct.At(i)
			bv, ok := b.Dct.Get(k)
			if !ok || !Equals(av, bv) {
				return false
			}
		}
		return true
	case Object:
		if a.Obj == b.Obj {
			return true
		}
		if a.Obj.Proto != b.Obj.Proto {
			return false
		}
		return Equals(
			Value{Kind: Dictionary, Dct: a.Obj.Members},
			Value{Kind: Dictionary, Dct: b.Obj.Members},
		)
	case Function:
		return a.Fn == b.Fn
	case Bytecode:
		return a.Bc == b.Bc
	case Store, Database, Socket:
		return a.Handle == b.Handle
	default:
		// Textual kinds.
		return a.Str == b.Str
	}
}

// Compare returns the ordering of a and b and whether they are
// comparable at all. Cross-kind pairs are incomparable except for
// numeric promotion; Objects delegate to doCompare through caller
// (signed result: negative, zero, positive) and are otherwise
// incomparable.
func Compare(a, b Value, caller Caller) (int, bool) {
	if a.Kind.IsNumeric() && b.Kind.IsNumeric() {
		if a.Kind == Complex || b.Kind == Complex {
			// Complex numbers only answer equality.
			if Equals(a, b) {
				return Equal, true
			}
			return 0, false
		}
		return numericCompare(a, b), true
	}

	if a.Kind == Object && b.Kind == Object && a.Obj.Proto != nil {
		if hook := a.Obj.Proto.DoCompare; hook != nil && caller != nil {
			res, err := caller.CallFunction(hook, []Value{a, b})
			if err != nil || res.Kind != Integer {
				return 0, false
			}
			switch {
			case res.Int < 0:
				return Less, true
			case res.Int > 0:
				return Greater, true
			default:
				return Equal, true
			}
		}
		return 0, false
	}

	if a.Kind != b.Kind {
		return 0, false
	}

	switch a.Kind {
	case String, Word, Literal, Label, Symbol, SymbolLiteral, Unit, Regex:
		switch {
		case a.Str < b.Str:
			return Less, true
		case a.Str > b.Str:
			return Greater, true
		}
		return Equal, true
	case Char, Logical:
		return cmpInt64(a.Int, b.Int), true
	case Date:
		switch {
		case a.Dt.Before(*b.Dt):
			return Less, true
		case a.Dt.After(*b.Dt):
			return Greater, true
		}
		return Equal, true
	case Version:
		if c := cmpInt64(int64(a.Ver.Major), int64(b.Ver.Major)); c != Equal {
			return c, true
		}
		if c := cmpInt64(int64(a.Ver.Minor), int64(b.Ver.Minor)); c != Equal {
			return c, true
		}
		return cmpInt64(int64(a.Ver.Patch), int64(b.Ver.Patch)), true
	case Block, Inline:
		ae, be := a.Elems(), b.Elems()
		n := len(ae)
		if len(be) < n {
			n = len(be)
		}
		for i := 0; i < n; i++ {
			c, ok := Compare(ae[i], be[i], caller)
			if !ok {
				return 0, false
			}
			if c != Equal {
				return c, true
			}
		}
		return cmpInt64(int64(len(ae)), int64(len(be))), true
	}
	return 0, false
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	}
	return Equal
}

// numericCompare orders two real numeric values, widening as needed.
func numericCompare(a, b Value) int {
	if a.Kind == Complex || b.Kind == Complex {
		ac, bc := toComplex(a), toComplex(b)
		if ac == bc {
			return Equal
		}
		return Greater // callers treat non-equal complex pairs as incomparable
	}
	if a.Kind == Integer && b.Kind == Integer {
		if a.Big == nil && b.Big == nil {
			return cmpInt64(a.Int, b.Int)
		}
		return a.AsBigInt().Cmp(b.AsBigInt())
	}
	if a.Kind == Floating || b.Kind == Floating {
		af, bf := a.AsFloat(), b.AsFloat()
		switch {
		case af < bf:
			return Less
		case af > bf:
			return Greater
		}
		return Equal
	}
	return a.AsRat().Cmp(b.AsRat())
}

func toComplex(v Value) complex128 {
	if v.Kind == Complex {
		return v.Cpx
	}
	return complex(v.AsFloat(), 0)
}

// Hashable returns a stable string key for memoization tables; values
// of different kinds never collide because the kind name is prefixed.
func Hashable(v Value) string {
	return v.Kind.String() + "\x00" + Codify(v, false, false, true)
}
