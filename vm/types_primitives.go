package vm

import (
	"github.com/moeinimoein/arturo/value"
)

// ---------------------------------------------------------------------------
// User type primitives: define, is, type reflection
// ---------------------------------------------------------------------------

func registerTypesPrimitives(r *Registry) {
	r.Register(&Builtin{
		Name: "define", Arity: 3,
		ArgNames: []string{"type", "fields", "prototype"},
		ArgKinds: [][]value.Kind{kinds(value.Type), blockish, blockish},
		Attrs: map[string]value.AttrSpec{
			"as":     {Kinds: kinds(value.Type), Description: "inherit methods from the given type"},
			"having": {Kinds: kinds(value.Block), Description: "additional constructor fields"},
		},
		Description: "define a new user type with the given fields and prototype",
		Example:     `define :person [name age][]`,
		Fn: func(vm *VM) error {
			args, err := vm.popN(3)
			if err != nil {
				return err
			}
			return vm.defineType(args[0], args[1], args[2], true)
		},
	})

	// is reuses the define machinery but stays deliberately light: no
	// inheritance, no attribute schema.
	r.Register(&Builtin{
		Name: "is", Arity: 3,
		ArgNames: []string{"type", "fields", "prototype"},
		ArgKinds: [][]value.Kind{kinds(value.Type), blockish, blockish},
		Description: "define a user type without inheritance",
		Example:     `is :point [x y][]`,
		Fn: func(vm *VM) error {
			args, err := vm.popN(3)
			if err != nil {
				return err
			}
			return vm.defineType(args[0], args[1], args[2], false)
		},
	})

	r.Register(&Builtin{
		Name: "type", Arity: 1,
		ArgNames: []string{"value"},
		Returns:  kinds(value.Type),
		Description: "get the type of the given value",
		Example:     `type 5`,
		Fn: func(vm *VM) error {
			v, err := vm.pop()
			if err != nil {
				return err
			}
			if v.Kind == value.Object && v.Obj.Proto != nil {
				return vm.push(value.NewUserType(v.Obj.Proto.Name))
			}
			return vm.push(value.NewType(v.Kind))
		},
	})

	r.Register(&Builtin{
		Name: "is?", Arity: 2,
		ArgNames: []string{"type", "value"},
		ArgKinds: [][]value.Kind{kinds(value.Type), nil},
		Returns:  kinds(value.Logical),
		Description: "check whether the value is of the given type",
		Example:     `is? :integer 5`,
		Fn: func(vm *VM) error {
			args, err := vm.popN(2)
			if err != nil {
				return err
			}
			ty, v := args[0], args[1]
			if ty.TypeKind == value.Object && ty.Str != "object" {
				if v.Kind != value.Object {
					return vm.push(value.FalseV)
				}
				for p := v.Obj.Proto; p != nil; p = p.Inherits {
					if p.Name == ty.Str {
						return vm.push(value.TrueV)
					}
				}
				return vm.push(value.FalseV)
			}
			ok := v.Kind == ty.TypeKind ||
				ty.TypeKind == value.Any ||
				(ty.TypeKind == value.Block && v.Kind == value.Inline)
			return vm.push(value.NewLogical(ok))
		},
	})

	r.Register(&Builtin{
		Name: "info", Arity: 1,
		ArgNames: []string{"name"},
		ArgKinds: [][]value.Kind{kinds(value.Literal, value.String, value.Word)},
		Returns:  kinds(value.Dictionary),
		Description: "get the declaration record of a builtin or function",
		Example:     `info 'print`,
		Fn: func(vm *VM) error {
			nameV, err := vm.pop()
			if err != nil {
				return err
			}
			name := nameV.Str
			d := value.NewDict()
			if b := vm.registry.Lookup(name); b != nil {
				d.Set("name", value.NewString(b.Name))
				d.Set("description", value.NewString(b.Description))
				d.Set("arity", value.NewInteger(int64(b.Arity)))
				d.Set("example", value.NewString(b.Example))
				args := value.NewDict()
				for i, an := range b.ArgNames {
					ks := make([]value.Value, 0, 2)
					if i < len(b.ArgKinds) {
						for _, k := range b.ArgKinds[i] {
							ks = append(ks, value.NewType(k))
						}
					}
					args.Set(an, value.NewBlockFrom(ks))
				}
				d.Set("args", value.NewDictionary(args))
				attrs := value.NewDict()
				for an, spec := range b.Attrs {
					attrs.Set(an, value.NewString(spec.Description))
				}
				d.Set("attrs", value.NewDictionary(attrs))
				rets := make([]value.Value, 0, len(b.Returns))
				for _, k := range b.Returns {
					rets = append(rets, value.NewType(k))
				}
				d.Set("returns", value.NewBlockFrom(rets))
				return vm.push(value.NewDictionary(d))
			}
			if v, ok := vm.Lookup(name); ok && v.Kind == value.Function {
				d.Set("name", value.NewString(name))
				d.Set("arity", value.NewInteger(int64(v.Fn.Arity)))
				if v.Fn.Info != nil {
					d.Set("description", value.NewString(v.Fn.Info.Description))
				}
				return vm.push(value.NewDictionary(d))
			}
			return newError(SymbolNotFound, "no information for: %s", name)
		},
	})
}

// ---------------------------------------------------------------------------
// define machinery
// ---------------------------------------------------------------------------

// defineType implements the user-type declaration sequence: execute the
// prototype block as a dictionary, reset the registered prototype,
// apply inheritance and fields, and derive the magic hooks.
func (vm *VM) defineType(ty, fieldsBlock, protoBlock value.Value, allowInherit bool) error {
	if ty.TypeKind != value.Object {
		return newError(TypeMismatch, "cannot redefine builtin type :%s", ty.Str)
	}
	methods, err := vm.execBlockAsDict(protoBlock)
	if err != nil {
		return err
	}

	proto := vm.registerPrototype(ty.Str)
	proto.Reset()

	if parent, ok := vm.attr("as"); ok {
		if !allowInherit {
			return newError(TypeMismatch, "is does not support inheritance")
		}
		pp, found := vm.Prototype(parent.Str)
		if !found {
			return newError(SymbolNotFound, "unknown type :%s", parent.Str)
		}
		proto.Inherits = pp
		proto.Fields = append(proto.Fields, pp.Fields...)
		for i, k := range pp.Methods.Keys() {
			_, mv := pp.Methods.At(i)
			proto.Methods.Set(k, mv)
		}
	}

	for _, f := range paramNames(fieldsBlock) {
		proto.Fields = append(proto.Fields, f)
	}
	if having, ok := vm.attr("having"); ok && having.IsBlockish() {
		proto.Fields = append(proto.Fields, paramNames(having)...)
	}

	for i, name := range methods.Keys() {
		_, mv := methods.At(i)
		if mv.Kind != value.Function {
			proto.Methods.Set(name, mv)
			continue
		}
		bound := bindThis(mv.Fn)
		proto.Methods.Set(name, value.NewFunction(bound))
		switch name {
		case value.MagicInit:
			proto.DoInit = bound
		case value.MagicPrint:
			proto.DoPrint = bound
		case value.MagicCompare:
			proto.DoCompare = bound
		}
	}
	return nil
}

// bindThis transforms a method so it receives this as its first
// parameter.
func bindThis(fn *value.FunctionData) *value.FunctionData {
	if len(fn.Params) > 0 && fn.Params[0] == "this" {
		return fn
	}
	params := append([]string{"this"}, fn.Params...)
	return &value.FunctionData{
		Params:      params,
		Body:        fn.Body,
		Imports:     fn.Imports,
		Exports:     fn.Exports,
		Memoize:     fn.Memoize,
		Inline:      fn.Inline,
		Info:        fn.Info,
		Constraints: fn.Constraints,
		Arity:       len(params),
	}
}

// construct builds an object of a user type from a constructor block:
// the block executes unscoped, its values pair with the field names in
// order, methods are copied on, and doInit runs when defined.
func (vm *VM) construct(proto *value.Prototype, argBlock value.Value) (value.Value, error) {
	var args []value.Value
	var err error
	if argBlock.IsBlockish() {
		args, err = vm.execBlockCollect(argBlock)
		if err != nil {
			return value.NullV, err
		}
	} else {
		args = []value.Value{argBlock}
	}

	obj := value.NewObjectOf(proto)
	if len(proto.Fields) > 0 {
		if len(args) < len(proto.Fields) {
			return value.NullV, newError(ArityMismatch,
				":%s expects %d fields, got %d", proto.Name, len(proto.Fields), len(args))
		}
		for i, f := range proto.Fields {
			obj.Set(f, args[i])
		}
	}
	for i, k := range proto.Methods.Keys() {
		_, mv := proto.Methods.At(i)
		obj.Set(k, mv)
	}

	ov := value.NewObject(obj)
	if proto.DoInit != nil {
		callArgs := append([]value.Value{ov}, args...)
		if _, err := vm.CallFunction(proto.DoInit, callArgs); err != nil {
			return value.NullV, err
		}
	}
	return ov, nil
}
