package vm

import (
	"github.com/moeinimoein/arturo/value"
)

// ---------------------------------------------------------------------------
// Comparison primitives
// ---------------------------------------------------------------------------

func registerComparisonPrimitives(r *Registry) {
	r.Register(&Builtin{
		Name: "equal?", Arity: 2,
		ArgNames: []string{"value", "operand"},
		Returns:  kinds(value.Logical),
		Description: "check whether the two given values are equal",
		Example:     `equal? 1 1.0`,
		Op:          OpEq, HasOp: true,
		Fn: func(vm *VM) error {
			vals, err := vm.popN(2)
			if err != nil {
				return err
			}
			return vm.push(value.NewLogical(value.Equals(vals[0], vals[1])))
		},
	})

	r.Register(&Builtin{
		Name: "notEqual?", Arity: 2,
		ArgNames: []string{"value", "operand"},
		Returns:  kinds(value.Logical),
		Description: "check whether the two given values differ",
		Example:     `notEqual? 1 2`,
		Op:          OpNe, HasOp: true,
		Fn: func(vm *VM) error {
			vals, err := vm.popN(2)
			if err != nil {
				return err
			}
			return vm.push(value.NewLogical(!value.Equals(vals[0], vals[1])))
		},
	})

	ordered := func(name string, op OpCode, desc, example string, accept func(c int) bool) {
		r.Register(&Builtin{
			Name: name, Arity: 2,
			ArgNames: []string{"value", "operand"},
			Returns:  kinds(value.Logical),
			Description: desc, Example: example,
			Op: op, HasOp: true,
			Fn: func(vm *VM) error {
				vals, err := vm.popN(2)
				if err != nil {
					return err
				}
				c, ok := value.Compare(vals[0], vals[1], vm)
				if !ok {
					return newError(TypeMismatch,
						"cannot compare :%s with :%s", vals[0].Kind, vals[1].Kind)
				}
				return vm.push(value.NewLogical(accept(c)))
			},
		})
	}

	ordered("greater?", OpGt, "check whether the first value is greater", `greater? 2 1`,
		func(c int) bool { return c == value.Greater })
	ordered("greaterOrEqual?", OpGe, "check whether the first value is greater or equal", `greaterOrEqual? 2 2`,
		func(c int) bool { return c != value.Less })
	ordered("less?", OpLt, "check whether the first value is less", `less? 1 2`,
		func(c int) bool { return c == value.Less })
	ordered("lessOrEqual?", OpLe, "check whether the first value is less or equal", `lessOrEqual? 2 2`,
		func(c int) bool { return c != value.Greater })

	r.Register(&Builtin{
		Name: "compare", Arity: 2,
		ArgNames: []string{"value", "operand"},
		Returns:  kinds(value.Integer, value.Null),
		Description: "compare two values, yielding -1, 0, 1, or null when incomparable",
		Example:     `compare 1 2`,
		Fn: func(vm *VM) error {
			vals, err := vm.popN(2)
			if err != nil {
				return err
			}
			c, ok := value.Compare(vals[0], vals[1], vm)
			if !ok {
				return vm.push(value.NullV)
			}
			return vm.push(value.NewInteger(int64(c)))
		},
	})
}
