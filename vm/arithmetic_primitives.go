package vm

import (
	"math"
	"math/big"

	"github.com/moeinimoein/arturo/value"
)

// ---------------------------------------------------------------------------
// Arithmetic primitives
//
// Machine-word integer arithmetic promotes transparently to the big
// sub-kind on overflow; mixing numeric kinds widens along
// integer -> rational -> floating -> complex.
// ---------------------------------------------------------------------------

var numeric = kinds(value.Integer, value.Floating, value.Rational, value.Complex)
var addable = kinds(value.Integer, value.Floating, value.Rational, value.Complex,
	value.String, value.Char, value.Block, value.Inline, value.Quantity)

func registerArithmeticPrimitives(r *Registry) {
	binary := func(name string, op OpCode, desc, example string, args []value.Kind,
		fn func(a, b value.Value) (value.Value, error)) {
		r.Register(&Builtin{
			Name: name, Arity: 2,
			ArgNames: []string{"value", "operand"},
			ArgKinds: [][]value.Kind{args, args},
			Returns:  numeric,
			Description: desc, Example: example,
			Op: op, HasOp: true,
			Fn: func(vm *VM) error {
				vals, err := vm.popN(2)
				if err != nil {
					return err
				}
				res, err := fn(vals[0], vals[1])
				if err != nil {
					return err
				}
				return vm.push(res)
			},
		})
	}

	binary("add", OpAdd, "add the two given values", `add 1 2`, addable, addValues)
	binary("sub", OpSub, "subtract the second value from the first", `sub 5 2`, numeric, subValues)
	binary("mul", OpMul, "multiply the two given values", `mul 3 4`, numeric, mulValues)
	binary("div", OpDiv, "divide the first value by the second", `div 6 2`, numeric, divValues)
	binary("fdiv", OpFdiv, "divide yielding a floating result", `fdiv 1 3`, numeric, fdivValues)
	binary("mod", OpMod, "compute the modulo of the two given values", `mod 10 3`, kinds(value.Integer, value.Floating), modValues)
	binary("pow", OpPow, "raise the first value to the given power", `pow 2 10`, numeric, powValues)

	unary := func(name string, op OpCode, desc, example string,
		fn func(v value.Value) (value.Value, error)) {
		r.Register(&Builtin{
			Name: name, Arity: 1,
			ArgNames: []string{"value"},
			ArgKinds: [][]value.Kind{numeric},
			Returns:  numeric,
			Description: desc, Example: example,
			Op: op, HasOp: true,
			Fn: func(vm *VM) error {
				v, err := vm.pop()
				if err != nil {
					return err
				}
				res, err := fn(v)
				if err != nil {
					return err
				}
				return vm.push(res)
			},
		})
	}

	unary("neg", OpNeg, "negate the given value", `neg 5`, func(v value.Value) (value.Value, error) {
		return mulValues(v, value.NewInteger(-1))
	})
	unary("inc", OpInc, "increment the given value by one", `inc 5`, func(v value.Value) (value.Value, error) {
		return addValues(v, value.NewInteger(1))
	})
	unary("dec", OpDec, "decrement the given value by one", `dec 5`, func(v value.Value) (value.Value, error) {
		return subValues(v, value.NewInteger(1))
	})

	// Bitwise operations work on machine-word integers.
	intPair := kinds(value.Integer)
	binary2 := func(name string, op OpCode, desc, example string, fn func(a, b int64) int64) {
		r.Register(&Builtin{
			Name: name, Arity: 2,
			ArgNames: []string{"value", "operand"},
			ArgKinds: [][]value.Kind{intPair, intPair},
			Returns:  kinds(value.Integer),
			Description: desc, Example: example,
			Op: op, HasOp: true,
			Fn: func(vm *VM) error {
				vals, err := vm.popN(2)
				if err != nil {
					return err
				}
				if vals[0].Big != nil || vals[1].Big != nil {
					return newError(TypeMismatch, "%s expects machine-word integers", name)
				}
				return vm.push(value.NewInteger(fn(vals[0].Int, vals[1].Int)))
			},
		})
	}

	binary2("band", OpBAnd, "bitwise and of the two given integers", `band 12 10`, func(a, b int64) int64 { return a & b })
	binary2("bor", OpBOr, "bitwise or of the two given integers", `bor 12 10`, func(a, b int64) int64 { return a | b })
	binary2("shl", OpShl, "shift the given integer left", `shl 1 4`, func(a, b int64) int64 { return a << uint(b) })
	binary2("shr", OpShr, "shift the given integer right", `shr 16 4`, func(a, b int64) int64 { return a >> uint(b) })

	r.Register(&Builtin{
		Name: "bnot", Arity: 1,
		ArgNames: []string{"value"},
		ArgKinds: [][]value.Kind{intPair},
		Returns:  kinds(value.Integer),
		Description: "bitwise complement of the given integer",
		Example:     `bnot 0`,
		Op:          OpBNot, HasOp: true,
		Fn: func(vm *VM) error {
			v, err := vm.pop()
			if err != nil {
				return err
			}
			if v.Big != nil {
				return newError(TypeMismatch, "bnot expects a machine-word integer")
			}
			return vm.push(value.NewInteger(^v.Int))
		},
	})

	// Logical operations accept logicals and lazy blocks.
	logical := kinds(value.Logical, value.Block, value.Inline)
	r.Register(&Builtin{
		Name: "and?", Arity: 2,
		ArgNames: []string{"value", "operand"},
		ArgKinds: [][]value.Kind{logical, logical},
		Returns:  kinds(value.Logical),
		Description: "logical and, short-circuiting block operands",
		Example:     `and? true [1 < 2]`,
		Op:          OpAnd, HasOp: true,
		Fn: func(vm *VM) error {
			vals, err := vm.popN(2)
			if err != nil {
				return err
			}
			a, err := vm.truthOf(vals[0])
			if err != nil {
				return err
			}
			if !a {
				return vm.push(value.FalseV)
			}
			b, err := vm.truthOf(vals[1])
			if err != nil {
				return err
			}
			return vm.push(value.NewLogical(b))
		},
	})
	r.Register(&Builtin{
		Name: "or?", Arity: 2,
		ArgNames: []string{"value", "operand"},
		ArgKinds: [][]value.Kind{logical, logical},
		Returns:  kinds(value.Logical),
		Description: "logical or, short-circuiting block operands",
		Example:     `or? done? [x > 10]`,
		Op:          OpOr, HasOp: true,
		Fn: func(vm *VM) error {
			vals, err := vm.popN(2)
			if err != nil {
				return err
			}
			a, err := vm.truthOf(vals[0])
			if err != nil {
				return err
			}
			if a {
				return vm.push(value.TrueV)
			}
			b, err := vm.truthOf(vals[1])
			if err != nil {
				return err
			}
			return vm.push(value.NewLogical(b))
		},
	})
	r.Register(&Builtin{
		Name: "not?", Arity: 1,
		ArgNames: []string{"value"},
		ArgKinds: [][]value.Kind{logical},
		Returns:  kinds(value.Logical),
		Description: "logical negation",
		Example:     `not? false`,
		Op:          OpNot, HasOp: true,
		Fn: func(vm *VM) error {
			v, err := vm.pop()
			if err != nil {
				return err
			}
			b, err := vm.truthOf(v)
			if err != nil {
				return err
			}
			return vm.push(value.NewLogical(!b))
		},
	})
}

// truthOf evaluates lazily when handed a block.
func (vm *VM) truthOf(v value.Value) (bool, error) {
	if v.IsBlockish() {
		res, err := vm.execBlockCollect(v)
		if err != nil {
			return false, err
		}
		if len(res) == 0 {
			return false, nil
		}
		return res[len(res)-1].IsTruthy(), nil
	}
	return v.IsTruthy(), nil
}

// ---------------------------------------------------------------------------
// Numeric kernels
// ---------------------------------------------------------------------------

// widen decides the common kind for a binary operation.
func widen(a, b value.Value) value.Kind {
	switch {
	case a.Kind == value.Complex || b.Kind == value.Complex:
		return value.Complex
	case a.Kind == value.Floating || b.Kind == value.Floating:
		return value.Floating
	case a.Kind == value.Rational || b.Kind == value.Rational:
		return value.Rational
	default:
		return value.Integer
	}
}

func addValues(a, b value.Value) (value.Value, error) {
	switch {
	case a.Kind == value.String && b.Kind == value.String:
		return value.NewString(a.Str + b.Str), nil
	case a.Kind == value.String && b.Kind == value.Char:
		return value.NewString(a.Str + string(rune(b.Int))), nil
	case a.Kind == value.Char && b.Kind == value.Char:
		return value.NewString(string(rune(a.Int)) + string(rune(b.Int))), nil
	case a.Kind == value.Char && b.Kind == value.Integer && b.Big == nil:
		return value.NewChar(rune(a.Int + b.Int)), nil
	case a.IsBlockish() && b.IsBlockish():
		elems := append(append([]value.Value(nil), a.Elems()...), b.Elems()...)
		return value.NewBlockFrom(elems), nil
	case a.Kind == value.Quantity && b.Kind == value.Quantity:
		if a.Qty.Unit != b.Qty.Unit {
			return value.NullV, newError(TypeMismatch, "cannot add quantities of different units")
		}
		sum, err := addValues(a.Qty.Amount, b.Qty.Amount)
		if err != nil {
			return value.NullV, err
		}
		return value.NewQuantity(sum, a.Qty.Unit), nil
	}
	if !a.Kind.IsNumeric() || !b.Kind.IsNumeric() {
		return value.NullV, newError(TypeMismatch, "cannot add :%s and :%s", a.Kind, b.Kind)
	}

	switch widen(a, b) {
	case value.Complex:
		return value.NewComplex(complexOf(a) + complexOf(b)), nil
	case value.Floating:
		return value.NewFloating(a.AsFloat() + b.AsFloat()), nil
	case value.Rational:
		return value.NewRational(new(big.Rat).Add(a.AsRat(), b.AsRat())), nil
	}
	if a.Big == nil && b.Big == nil {
		sum := a.Int + b.Int
		if (a.Int > 0 && b.Int > 0 && sum < 0) || (a.Int < 0 && b.Int < 0 && sum >= 0) {
			return value.NewBigInteger(new(big.Int).Add(a.AsBigInt(), b.AsBigInt())), nil
		}
		return value.NewInteger(sum), nil
	}
	return value.NewBigInteger(new(big.Int).Add(a.AsBigInt(), b.AsBigInt())), nil
}

func subValues(a, b value.Value) (value.Value, error) {
	neg, err := mulValues(b, value.NewInteger(-1))
	if err != nil {
		return value.NullV, err
	}
	return addValues(a, neg)
}

func mulValues(a, b value.Value) (value.Value, error) {
	if !a.Kind.IsNumeric() || !b.Kind.IsNumeric() {
		return value.NullV, newError(TypeMismatch, "cannot multiply :%s and :%s", a.Kind, b.Kind)
	}
	switch widen(a, b) {
	case value.Complex:
		return value.NewComplex(complexOf(a) * complexOf(b)), nil
	case value.Floating:
		return value.NewFloating(a.AsFloat() * b.AsFloat()), nil
	case value.Rational:
		return value.NewRational(new(big.Rat).Mul(a.AsRat(), b.AsRat())), nil
	}
	if a.Big == nil && b.Big == nil {
		prod := a.Int * b.Int
		if a.Int != 0 && (prod/a.Int != b.Int || (a.Int == -1 && b.Int == math.MinInt64)) {
			return value.NewBigInteger(new(big.Int).Mul(a.AsBigInt(), b.AsBigInt())), nil
		}
		return value.NewInteger(prod), nil
	}
	return value.NewBigInteger(new(big.Int).Mul(a.AsBigInt(), b.AsBigInt())), nil
}

func divValues(a, b value.Value) (value.Value, error) {
	if isNumericZero(b) {
		return value.NullV, newError(DivisionByZero, "division by zero")
	}
	switch widen(a, b) {
	case value.Complex:
		return value.NewComplex(complexOf(a) / complexOf(b)), nil
	case value.Floating:
		return value.NewFloating(a.AsFloat() / b.AsFloat()), nil
	case value.Rational:
		return value.NewRational(new(big.Rat).Quo(a.AsRat(), b.AsRat())), nil
	}
	if a.Big == nil && b.Big == nil {
		return value.NewInteger(a.Int / b.Int), nil
	}
	return value.NewBigInteger(new(big.Int).Quo(a.AsBigInt(), b.AsBigInt())), nil
}

func fdivValues(a, b value.Value) (value.Value, error) {
	if isNumericZero(b) {
		return value.NullV, newError(DivisionByZero, "division by zero")
	}
	return value.NewFloating(a.AsFloat() / b.AsFloat()), nil
}

func modValues(a, b value.Value) (value.Value, error) {
	if isNumericZero(b) {
		return value.NullV, newError(DivisionByZero, "modulo by zero")
	}
	if a.Kind == value.Floating || b.Kind == value.Floating {
		return value.NewFloating(math.Mod(a.AsFloat(), b.AsFloat())), nil
	}
	if a.Big == nil && b.Big == nil {
		return value.NewInteger(a.Int % b.Int), nil
	}
	return value.NewBigInteger(new(big.Int).Rem(a.AsBigInt(), b.AsBigInt())), nil
}

func powValues(a, b value.Value) (value.Value, error) {
	if a.Kind == value.Integer && b.Kind == value.Integer && b.Big == nil {
		if b.Int >= 0 {
			return value.NewBigInteger(new(big.Int).Exp(a.AsBigInt(), b.AsBigInt(), nil)), nil
		}
		return value.NewFloating(math.Pow(a.AsFloat(), b.AsFloat())), nil
	}
	if widen(a, b) == value.Complex {
		return value.NullV, newError(TypeMismatch, "cannot raise complex values")
	}
	return value.NewFloating(math.Pow(a.AsFloat(), b.AsFloat())), nil
}

func isNumericZero(v value.Value) bool {
	switch v.Kind {
	case value.Integer:
		if v.Big != nil {
			return v.Big.Sign() == 0
		}
		return v.Int == 0
	case value.Floating:
		return v.Flt == 0
	case value.Rational:
		return v.Rat.Sign() == 0
	case value.Complex:
		return v.Cpx == 0
	}
	return false
}

func complexOf(v value.Value) complex128 {
	if v.Kind == value.Complex {
		return v.Cpx
	}
	return complex(v.AsFloat(), 0)
}
