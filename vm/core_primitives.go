package vm

import (
	"github.com/moeinimoein/arturo/value"
)

// ---------------------------------------------------------------------------
// Core primitives: control flow, iteration, generators, scope
// ---------------------------------------------------------------------------

var blockish = kinds(value.Block, value.Inline)
var iterable = kinds(value.Block, value.Inline, value.Range, value.Dictionary, value.String, value.Integer)

func registerCorePrimitives(r *Registry) {
	r.Register(&Builtin{
		Name: "if", Arity: 2,
		ArgNames: []string{"condition", "action"},
		ArgKinds: [][]value.Kind{nil, blockish},
		Description: "execute action, if the given condition is true",
		Example:     `if 2 > 1 [print "yes"]`,
		Op:          OpIf, HasOp: true,
		Fn: func(vm *VM) error {
			args, err := vm.popN(2)
			if err != nil {
				return err
			}
			if args[0].IsTruthy() {
				return vm.execBlockInline(args[1])
			}
			return nil
		},
	})

	r.Register(&Builtin{
		Name: "if?", Arity: 2,
		ArgNames: []string{"condition", "action"},
		ArgKinds: [][]value.Kind{nil, blockish},
		Returns:  kinds(value.Logical),
		Description: "execute action if the condition is true and return the condition result",
		Example:     `if? x<2 [1] else [2]`,
		Op:          OpIfE, HasOp: true,
		Fn: func(vm *VM) error {
			args, err := vm.popN(2)
			if err != nil {
				return err
			}
			truthy := args[0].IsTruthy()
			if truthy {
				if err := vm.execBlockInline(args[1]); err != nil {
					return err
				}
				if vm.flowBroken() {
					return nil
				}
			}
			return vm.push(value.NewLogical(truthy))
		},
	})

	r.Register(&Builtin{
		Name: "unless", Arity: 2,
		ArgNames: []string{"condition", "action"},
		ArgKinds: [][]value.Kind{nil, blockish},
		Description: "execute action, if the given condition is false",
		Example:     `unless done? [print "still running"]`,
		Op:          OpUnless, HasOp: true,
		Fn: func(vm *VM) error {
			args, err := vm.popN(2)
			if err != nil {
				return err
			}
			if !args[0].IsTruthy() {
				return vm.execBlockInline(args[1])
			}
			return nil
		},
	})

	r.Register(&Builtin{
		Name: "unless?", Arity: 2,
		ArgNames: []string{"condition", "action"},
		ArgKinds: [][]value.Kind{nil, blockish},
		Returns:  kinds(value.Logical),
		Description: "execute action if the condition is false and return the negated condition",
		Example:     `unless? x<2 [print "big"] else [print "small"]`,
		Op:          OpUnlessE, HasOp: true,
		Fn: func(vm *VM) error {
			args, err := vm.popN(2)
			if err != nil {
				return err
			}
			falsy := !args[0].IsTruthy()
			if falsy {
				if err := vm.execBlockInline(args[1]); err != nil {
					return err
				}
				if vm.flowBroken() {
					return nil
				}
			}
			return vm.push(value.NewLogical(falsy))
		},
	})

	r.Register(&Builtin{
		Name: "else", Arity: 2,
		ArgNames: []string{"result", "action"},
		ArgKinds: [][]value.Kind{kinds(value.Logical), blockish},
		Description: "execute action if the preceding if?/unless? was not satisfied",
		Example:     `if? x<2 [1] else [2]`,
		Op:          OpElse, HasOp: true,
		Fn: func(vm *VM) error {
			args, err := vm.popN(2)
			if err != nil {
				return err
			}
			if !args[0].IsTruthy() {
				return vm.execBlockInline(args[1])
			}
			return nil
		},
	})

	r.Register(&Builtin{
		Name: "switch", Arity: 3,
		ArgNames: []string{"condition", "action", "alternative"},
		ArgKinds: [][]value.Kind{nil, blockish, blockish},
		Description: "execute action if the condition is true, the alternative otherwise",
		Example:     `switch even? x [print "even"] [print "odd"]`,
		Op:          OpSwitch, HasOp: true,
		Fn: func(vm *VM) error {
			args, err := vm.popN(3)
			if err != nil {
				return err
			}
			if args[0].IsTruthy() {
				return vm.execBlockInline(args[1])
			}
			return vm.execBlockInline(args[2])
		},
	})

	r.Register(&Builtin{
		Name: "while", Arity: 2,
		ArgNames: []string{"condition", "action"},
		ArgKinds: [][]value.Kind{kinds(value.Block, value.Inline, value.Null), blockish},
		Description: "execute action while the condition block yields true",
		Example:     `while [x<10][x: x+1]`,
		Op:          OpWhile, HasOp: true,
		Fn: func(vm *VM) error {
			args, err := vm.popN(2)
			if err != nil {
				return err
			}
			cond, body := args[0], args[1]
			for {
				if cond.Kind != value.Null {
					if err := vm.execBlockInline(cond); err != nil {
						return err
					}
					res, err := vm.pop()
					if err != nil {
						return err
					}
					if !res.IsTruthy() {
						return nil
					}
				}
				if err := vm.execBlockInline(body); err != nil {
					return err
				}
				if vm.vmBreak {
					vm.vmBreak = false
					return nil
				}
				if vm.vmContinue {
					vm.vmContinue = false
				}
				if vm.vmReturn {
					return nil
				}
			}
		},
	})

	r.Register(&Builtin{
		Name: "return", Arity: 1,
		ArgNames: []string{"value"},
		Description: "return given value from the current function",
		Example:     `return 42`,
		Op:          OpReturn, HasOp: true,
		Fn: func(vm *VM) error {
			// the value stays on the stack as the function result
			if _, err := vm.peek(0); err != nil {
				return err
			}
			vm.vmReturn = true
			return nil
		},
	})

	r.Register(&Builtin{
		Name: "break", Arity: 0,
		Description: "terminate the current iteration",
		Example:     `loop 1..10 'x [if x=3 [break]]`,
		Op:          OpBreak, HasOp: true,
		Fn: func(vm *VM) error {
			vm.vmBreak = true
			return nil
		},
	})

	r.Register(&Builtin{
		Name: "continue", Arity: 0,
		Description: "skip to the next iteration",
		Example:     `loop 1..10 'x [if x=3 [continue] print x]`,
		Op:          OpContinue, HasOp: true,
		Fn: func(vm *VM) error {
			vm.vmContinue = true
			return nil
		},
	})

	r.Register(&Builtin{
		Name: "loop", Arity: 3,
		ArgNames: []string{"collection", "params", "action"},
		ArgKinds: [][]value.Kind{iterable, kinds(value.Literal, value.Block, value.Null), blockish},
		Description: "execute action for every element of the collection",
		Example:     `loop 1..3 'x [print x]`,
		Op:          OpLoop, HasOp: true,
		Fn: func(vm *VM) error {
			args, err := vm.popN(3)
			if err != nil {
				return err
			}
			names := paramNames(args[1])
			return vm.iterate(args[0], names, args[2], func(results []value.Value) error {
				return nil
			})
		},
	})

	r.Register(&Builtin{
		Name: "map", Arity: 3,
		ArgNames: []string{"collection", "params", "action"},
		ArgKinds: [][]value.Kind{iterable, kinds(value.Literal, value.Block, value.Null), blockish},
		Returns:  kinds(value.Block),
		Description: "map every element of the collection through action",
		Example:     `map 1..3 'x [x*2]`,
		Op:          OpMap, HasOp: true,
		Fn: func(vm *VM) error {
			args, err := vm.popN(3)
			if err != nil {
				return err
			}
			names := paramNames(args[1])
			var out []value.Value
			err = vm.iterate(args[0], names, args[2], func(results []value.Value) error {
				out = append(out, results...)
				return nil
			})
			if err != nil {
				return err
			}
			return vm.push(value.NewBlockFrom(out))
		},
	})

	r.Register(&Builtin{
		Name: "select", Arity: 3,
		ArgNames: []string{"collection", "params", "action"},
		ArgKinds: [][]value.Kind{iterable, kinds(value.Literal, value.Block, value.Null), blockish},
		Returns:  kinds(value.Block),
		Description: "keep the elements of the collection for which action yields true",
		Example:     `select 1..10 'x [even? x]`,
		Op:          OpSelect, HasOp: true,
		Fn: func(vm *VM) error {
			args, err := vm.popN(3)
			if err != nil {
				return err
			}
			names := paramNames(args[1])
			var out []value.Value
			var current value.Value
			err = vm.iterateElems(args[0], names, args[2],
				func(elem value.Value) { current = elem },
				func(results []value.Value) error {
					if len(results) > 0 && results[len(results)-1].IsTruthy() {
						out = append(out, current)
					}
					return nil
				})
			if err != nil {
				return err
			}
			return vm.push(value.NewBlockFrom(out))
		},
	})

	r.Register(&Builtin{
		Name: "do", Arity: 1,
		ArgNames: []string{"code"},
		ArgKinds: [][]value.Kind{kinds(value.Block, value.Inline, value.String, value.Bytecode)},
		Description: "evaluate the given code; a block runs in its own scope, a string or bytecode in the current one",
		Example:     `do [x: 2 print x]`,
		Fn: func(vm *VM) error {
			code, err := vm.pop()
			if err != nil {
				return err
			}
			switch code.Kind {
			case value.String:
				t, err := vm.TranslateSource(code.Str)
				if err != nil {
					return err
				}
				return vm.exec(t)
			case value.Bytecode:
				return vm.exec(code.Bc)
			default:
				return vm.execBlockScoped(code)
			}
		},
	})

	r.Register(&Builtin{
		Name: "function", Arity: 2,
		ArgNames: []string{"params", "body"},
		ArgKinds: [][]value.Kind{kinds(value.Block, value.Literal), blockish},
		Returns:  kinds(value.Function),
		Attrs: map[string]value.AttrSpec{
			"memoize":  {Kinds: kinds(value.Logical), Description: "cache results by argument tuple"},
			"inline":   {Kinds: kinds(value.Logical), Description: "execute in the caller's scope"},
			"import":   {Kinds: kinds(value.Dictionary), Description: "bindings merged into the call scope"},
			"export":   {Kinds: kinds(value.Block), Description: "symbols propagated back to the caller"},
			"describe": {Kinds: kinds(value.String), Description: "attach a description"},
		},
		Description: "create a function from a parameter list and a body block",
		Example:     `add1: function [x][x+1]`,
		Op:          OpFunc, HasOp: true,
		Fn: func(vm *VM) error {
			args, err := vm.popN(2)
			if err != nil {
				return err
			}
			fn := &value.FunctionData{
				Params: paramNames(args[0]),
				Body:   args[1],
			}
			fn.Arity = len(fn.Params)
			fn.Memoize = vm.attrIsSet("memoize")
			fn.Inline = vm.attrIsSet("inline")
			if imp, ok := vm.attr("import"); ok && imp.Kind == value.Dictionary {
				fn.Imports = imp.Dct
			}
			if exp, ok := vm.attr("export"); ok && exp.IsBlockish() {
				fn.Exports = paramNames(exp)
			}
			if desc, ok := vm.attr("describe"); ok {
				fn.Info = &value.FnInfo{Description: desc.Str}
			}
			return vm.push(value.NewFunction(fn))
		},
	})

	r.Register(&Builtin{
		Name: "array", Arity: 1,
		ArgNames: []string{"source"},
		ArgKinds: [][]value.Kind{kinds(value.Block, value.Inline, value.Range, value.String)},
		Returns:  kinds(value.Block),
		Description: "execute the source block and collect the produced values",
		Example:     `@[1 2 3+4]`,
		Op:          OpArray, HasOp: true,
		Fn: func(vm *VM) error {
			src, err := vm.pop()
			if err != nil {
				return err
			}
			switch src.Kind {
			case value.Range:
				if src.Rng.Infinite {
					return newError(IndexOutOfBounds, "cannot materialize an infinite range")
				}
				return vm.push(src.Rng.ToBlock())
			case value.String:
				elems := make([]value.Value, 0, len(src.Str))
				for _, r := range src.Str {
					elems = append(elems, value.NewChar(r))
				}
				return vm.push(value.NewBlockFrom(elems))
			default:
				vals, err := vm.execBlockCollect(src)
				if err != nil {
					return err
				}
				return vm.push(value.NewBlockFrom(vals))
			}
		},
	})

	r.Register(&Builtin{
		Name: "dictionary", Arity: 1,
		ArgNames: []string{"source"},
		ArgKinds: [][]value.Kind{blockish},
		Returns:  kinds(value.Dictionary),
		Description: "execute the source block and capture its bindings as a dictionary",
		Example:     `#[name: "John" age: 35]`,
		Op:          OpDict, HasOp: true,
		Fn: func(vm *VM) error {
			src, err := vm.pop()
			if err != nil {
				return err
			}
			d, err := vm.execBlockAsDict(src)
			if err != nil {
				return err
			}
			return vm.push(value.NewDictionary(d))
		},
	})

	r.Register(&Builtin{
		Name: "range", Arity: 2,
		ArgNames: []string{"from", "to"},
		ArgKinds: [][]value.Kind{kinds(value.Integer, value.Char), kinds(value.Integer, value.Char)},
		Returns:  kinds(value.Range),
		Attrs: map[string]value.AttrSpec{
			"step": {Kinds: kinds(value.Integer), Description: "iteration step"},
		},
		Description: "create a range between the given bounds",
		Example:     `range 1 10`,
		Op:          OpRange, HasOp: true,
		Fn: func(vm *VM) error {
			args, err := vm.popN(2)
			if err != nil {
				return err
			}
			step := int64(1)
			if sv, ok := vm.attr("step"); ok {
				if sv.Kind != value.Integer || sv.Big != nil {
					return newError(TypeMismatch, "range step must be an integer")
				}
				step = sv.Int
			}
			if step == 0 {
				return newError(RangeWithZeroStep, "range step cannot be zero")
			}
			if step < 0 {
				step = -step
			}
			from, to := args[0], args[1]
			if from.Kind == value.Char && to.Kind == value.Char {
				r := value.NewCharRange(rune(from.Int), rune(to.Int))
				r.Step = step
				return vm.push(value.NewRange(r))
			}
			if from.Kind != to.Kind {
				return newError(TypeMismatch, "range bounds must both be integers or characters")
			}
			if from.Big != nil || to.Big != nil {
				return newError(TypeMismatch, "range bounds must fit a machine word")
			}
			return vm.push(value.NewRange(value.NewBoundedRange(from.Int, to.Int, step)))
		},
	})

	r.Register(&Builtin{
		Name: "let", Arity: 2,
		ArgNames: []string{"name", "value"},
		ArgKinds: [][]value.Kind{kinds(value.Literal, value.String, value.Block), nil},
		Description: "bind one or more symbols to values",
		Example:     `let 'x 10`,
		Fn: func(vm *VM) error {
			args, err := vm.popN(2)
			if err != nil {
				return err
			}
			name, val := args[0], args[1]
			if name.Kind == value.Block {
				names := paramNames(name)
				if val.IsBlockish() {
					vals := val.Elems()
					if len(vals) != len(names) {
						return newError(ArityMismatch,
							"let: %d names but %d values", len(names), len(vals))
					}
					for i, n := range names {
						vm.Bind(n, vals[i])
					}
					return nil
				}
				for _, n := range names {
					vm.Bind(n, val)
				}
				return nil
			}
			vm.Bind(name.Str, val)
			return nil
		},
	})

	r.Register(&Builtin{
		Name: "unset", Arity: 1,
		ArgNames: []string{"name"},
		ArgKinds: [][]value.Kind{kinds(value.Literal, value.String)},
		Description: "remove a symbol from the current scope",
		Example:     `unset 'x`,
		Fn: func(vm *VM) error {
			name, err := vm.pop()
			if err != nil {
				return err
			}
			vm.Unbind(name.Str)
			return nil
		},
	})

	r.Register(&Builtin{
		Name: "new", Arity: 1,
		ArgNames: []string{"value"},
		Description: "create a shallow copy of the given value",
		Example:     `b: new a`,
		Fn: func(vm *VM) error {
			v, err := vm.pop()
			if err != nil {
				return err
			}
			return vm.push(shallowCopy(v))
		},
	})

	r.Register(&Builtin{
		Name: "attr", Arity: 1,
		ArgNames: []string{"name"},
		ArgKinds: [][]value.Kind{kinds(value.Literal, value.String)},
		Description: "fetch a named attribute of the enclosing call, or null",
		Example:     `attr 'format`,
		Fn: func(vm *VM) error {
			name, err := vm.pop()
			if err != nil {
				return err
			}
			if v, ok := vm.attr(name.Str); ok {
				return vm.push(v)
			}
			return vm.push(value.NullV)
		},
	})

	// Stack manipulation; mostly reached through their opcodes.
	r.Register(&Builtin{
		Name: "pop", Arity: 1,
		Description: "discard the value on top of the stack",
		Op:          OpPop, HasOp: true,
		Fn: func(vm *VM) error {
			_, err := vm.pop()
			return err
		},
	})
	r.Register(&Builtin{
		Name: "dup", Arity: 1,
		Description: "duplicate the value on top of the stack",
		Op:          OpDup, HasOp: true,
		Fn: func(vm *VM) error {
			v, err := vm.peek(0)
			if err != nil {
				return err
			}
			return vm.push(v)
		},
	})
	r.Register(&Builtin{
		Name: "over", Arity: 2,
		Description: "push a copy of the second stack value",
		Op:          OpOver, HasOp: true,
		Fn: func(vm *VM) error {
			v, err := vm.peek(1)
			if err != nil {
				return err
			}
			return vm.push(v)
		},
	})
	r.Register(&Builtin{
		Name: "swap", Arity: 2,
		Description: "exchange the two top stack values",
		Op:          OpSwap, HasOp: true,
		Fn: func(vm *VM) error {
			if vm.sp < 2 {
				return newError(StackUnderflow, "swap needs two stack values")
			}
			vm.stack[vm.sp-1], vm.stack[vm.sp-2] = vm.stack[vm.sp-2], vm.stack[vm.sp-1]
			return nil
		},
	})
	r.Register(&Builtin{
		Name: "nop", Arity: 0,
		Description: "do nothing",
		Op:          OpNop, HasOp: true,
		Fn:          func(vm *VM) error { return nil },
	})
}

// ---------------------------------------------------------------------------
// Iteration helpers
// ---------------------------------------------------------------------------

// paramNames extracts parameter names from a literal, a block of
// words/literals, or null.
func paramNames(v value.Value) []string {
	switch v.Kind {
	case value.Literal, value.Word, value.String:
		return []string{v.Str}
	case value.Block, value.Inline:
		names := make([]string, 0, len(v.Elems()))
		for _, e := range v.Elems() {
			if e.Kind.IsTextual() {
				names = append(names, e.Str)
			}
		}
		return names
	}
	return nil
}

// iterate runs the action block once per element group, binding names
// and honoring break/continue/return absorption.
func (vm *VM) iterate(coll value.Value, names []string, action value.Value, each func(results []value.Value) error) error {
	return vm.iterateElems(coll, names, action, func(value.Value) {}, each)
}

func (vm *VM) iterateElems(coll value.Value, names []string, action value.Value, visit func(elem value.Value), each func(results []value.Value) error) error {
	items, err := collectionItems(coll)
	if err != nil {
		return err
	}

	width := len(names)
	if width == 0 {
		width = 1
	}

	for idx := 0; idx < len(items); idx += width {
		group := items[idx:min(idx+width, len(items))]
		visit(group[0])

		var execErr error
		var results []value.Value
		if len(names) == 0 {
			results, execErr = vm.execBlockCollect(action)
		} else {
			vals := make([]value.Value, len(names))
			for i := range names {
				if i < len(group) {
					vals[i] = group[i]
				} else {
					vals[i] = value.NullV
				}
			}
			spBefore := vm.sp
			execErr = vm.execBlockWithArgs(action, names, vals)
			if execErr == nil && vm.sp > spBefore {
				results = make([]value.Value, vm.sp-spBefore)
				copy(results, vm.stack[spBefore:vm.sp])
				vm.sp = spBefore
			}
		}
		if execErr != nil {
			return execErr
		}

		if vm.vmBreak {
			vm.vmBreak = false
			return nil
		}
		if vm.vmContinue {
			vm.vmContinue = false
			continue
		}
		if vm.vmReturn {
			return nil
		}
		if err := each(results); err != nil {
			return err
		}
	}
	return nil
}

// collectionItems flattens an iterable value into a slice of elements.
// Dictionaries yield key, value pairs in insertion order.
func collectionItems(coll value.Value) ([]value.Value, error) {
	switch coll.Kind {
	case value.Block, value.Inline:
		return coll.Elems(), nil
	case value.Range:
		if coll.Rng.Infinite {
			return nil, newError(IndexOutOfBounds, "cannot iterate an infinite range eagerly")
		}
		if coll.Rng.Step == 0 {
			return nil, newError(RangeWithZeroStep, "cannot iterate a zero-step range")
		}
		return coll.Rng.ToBlock().Elems(), nil
	case value.Dictionary:
		items := make([]value.Value, 0, coll.Dct.Len()*2)
		for i := range coll.Dct.Keys() {
			k, v := coll.Dct.At(i)
			items = append(items, value.NewString(k), v)
		}
		return items, nil
	case value.String:
		items := make([]value.Value, 0, len(coll.Str))
		for _, r := range coll.Str {
			items = append(items, value.NewChar(r))
		}
		return items, nil
	case value.Integer:
		if coll.Big != nil || coll.Int < 0 {
			return nil, newError(TypeMismatch, "cannot iterate :integer of this size")
		}
		items := make([]value.Value, coll.Int)
		for i := range items {
			items[i] = value.NewInteger(int64(i) + 1)
		}
		return items, nil
	}
	return nil, newError(TypeMismatch, "cannot iterate :%s", coll.Kind)
}

// shallowCopy clones container values one level deep.
func shallowCopy(v value.Value) value.Value {
	switch v.Kind {
	case value.Block, value.Inline:
		elems := append([]value.Value(nil), v.Elems()...)
		c := v
		c.Blk = &value.BlockData{Elems: elems, Data: v.Blk.Data}
		return c
	case value.Dictionary:
		return value.NewDictionary(v.Dct.Clone())
	case value.Object:
		c := value.NewObjectOf(v.Obj.Proto)
		c.Members = v.Obj.Members.Clone()
		return value.NewObject(c)
	case value.Binary:
		return value.NewBinary(append([]byte(nil), v.Bin...))
	}
	return v
}
