package vm

import (
	"strings"

	"github.com/moeinimoein/arturo/value"
)

// ---------------------------------------------------------------------------
// Collection primitives
// ---------------------------------------------------------------------------

var indexable = kinds(value.Block, value.Inline, value.Dictionary, value.Object,
	value.String, value.Range, value.Binary, value.Store, value.Date)

func registerCollectionsPrimitives(r *Registry) {
	r.Register(&Builtin{
		Name: "get", Arity: 2,
		ArgNames: []string{"collection", "index"},
		ArgKinds: [][]value.Kind{indexable, nil},
		Description: "get the element of the collection at the given index or key",
		Example:     `get [1 2 3] 0`,
		Op:          OpGet, HasOp: true,
		Fn: func(vm *VM) error {
			args, err := vm.popN(2)
			if err != nil {
				return err
			}
			res, err := vm.getIndexed(args[0], args[1])
			if err != nil {
				return err
			}
			return vm.push(res)
		},
	})

	r.Register(&Builtin{
		Name: "set", Arity: 3,
		ArgNames: []string{"collection", "index", "value"},
		ArgKinds: [][]value.Kind{indexable, nil, nil},
		Description: "set the element of the collection at the given index or key",
		Example:     `set d 'name "John"`,
		Op:          OpSet, HasOp: true,
		Fn: func(vm *VM) error {
			args, err := vm.popN(3)
			if err != nil {
				return err
			}
			return vm.setIndexed(args[0], args[1], args[2])
		},
	})

	r.Register(&Builtin{
		Name: "size", Arity: 1,
		ArgNames: []string{"collection"},
		ArgKinds: [][]value.Kind{kinds(value.Block, value.Inline, value.Dictionary,
			value.Object, value.String, value.Range, value.Binary)},
		Returns:  kinds(value.Integer),
		Description: "get the number of elements in the collection",
		Example:     `size [1 2 3]`,
		Op:          OpSize, HasOp: true,
		Fn: func(vm *VM) error {
			v, err := vm.pop()
			if err != nil {
				return err
			}
			var n int
			switch v.Kind {
			case value.Block, value.Inline:
				n = len(v.Elems())
			case value.Dictionary:
				n = v.Dct.Len()
			case value.Object:
				n = v.Obj.Members.Len()
			case value.String:
				n = len([]rune(v.Str))
			case value.Range:
				n = v.Rng.Len()
			case value.Binary:
				n = len(v.Bin)
			}
			return vm.push(value.NewInteger(int64(n)))
		},
	})

	r.Register(&Builtin{
		Name: "append", Arity: 2,
		ArgNames: []string{"collection", "value"},
		ArgKinds: [][]value.Kind{kinds(value.Block, value.Inline, value.String, value.Char, value.Binary), nil},
		Description: "append a value to the given collection",
		Example:     `append [1 2] 3`,
		Op:          OpAppend, HasOp: true,
		Fn: func(vm *VM) error {
			args, err := vm.popN(2)
			if err != nil {
				return err
			}
			a, b := args[0], args[1]
			switch a.Kind {
			case value.String, value.Char:
				return vm.push(value.NewString(value.Printable(a, vm) + value.Printable(b, vm)))
			case value.Binary:
				if b.Kind == value.Binary {
					return vm.push(value.NewBinary(append(append([]byte(nil), a.Bin...), b.Bin...)))
				}
				if b.Kind == value.Integer && b.Big == nil {
					return vm.push(value.NewBinary(append(append([]byte(nil), a.Bin...), byte(b.Int))))
				}
				return newError(TypeMismatch, "cannot append :%s to :binary", b.Kind)
			default:
				elems := append([]value.Value(nil), a.Elems()...)
				if b.IsBlockish() {
					elems = append(elems, b.Elems()...)
				} else {
					elems = append(elems, b)
				}
				return vm.push(value.NewBlockFrom(elems))
			}
		},
	})

	r.Register(&Builtin{
		Name: "reverse", Arity: 1,
		ArgNames: []string{"collection"},
		ArgKinds: [][]value.Kind{kinds(value.Block, value.Inline, value.String)},
		Description: "reverse the given collection",
		Example:     `reverse [1 2 3]`,
		Op:          OpReverse, HasOp: true,
		Fn: func(vm *VM) error {
			v, err := vm.pop()
			if err != nil {
				return err
			}
			if v.Kind == value.String {
				runes := []rune(v.Str)
				for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
					runes[i], runes[j] = runes[j], runes[i]
				}
				return vm.push(value.NewString(string(runes)))
			}
			src := v.Elems()
			elems := make([]value.Value, len(src))
			for i, e := range src {
				elems[len(src)-1-i] = e
			}
			return vm.push(value.NewBlockFrom(elems))
		},
	})

	r.Register(&Builtin{
		Name: "split", Arity: 1,
		ArgNames: []string{"collection"},
		ArgKinds: [][]value.Kind{kinds(value.String, value.Block, value.Inline)},
		Returns:  kinds(value.Block),
		Attrs: map[string]value.AttrSpec{
			"by":    {Kinds: kinds(value.String, value.Char), Description: "split by the given separator"},
			"words": {Kinds: kinds(value.Logical), Description: "split into words"},
			"lines": {Kinds: kinds(value.Logical), Description: "split into lines"},
			"every": {Kinds: kinds(value.Integer), Description: "split into chunks of the given size"},
		},
		Description: "split the collection into pieces",
		Example:     `split.by:"," "a,b,c"`,
		Op:          OpSplit, HasOp: true,
		Fn: func(vm *VM) error {
			v, err := vm.pop()
			if err != nil {
				return err
			}
			if v.Kind != value.String {
				return vm.splitBlock(v)
			}
			var parts []string
			switch {
			case vm.attrIsSet("words"):
				parts = strings.Fields(v.Str)
			case vm.attrIsSet("lines"):
				parts = strings.Split(strings.TrimSuffix(v.Str, "\n"), "\n")
			default:
				if sep, ok := vm.attr("by"); ok {
					parts = strings.Split(v.Str, value.Printable(sep, vm))
				} else if nv, ok := vm.attr("every"); ok && nv.Kind == value.Integer && nv.Int > 0 {
					runes := []rune(v.Str)
					for i := 0; i < len(runes); i += int(nv.Int) {
						end := i + int(nv.Int)
						if end > len(runes) {
							end = len(runes)
						}
						parts = append(parts, string(runes[i:end]))
					}
				} else {
					for _, r := range v.Str {
						parts = append(parts, string(r))
					}
				}
			}
			elems := make([]value.Value, len(parts))
			for i, p := range parts {
				elems[i] = value.NewString(p)
			}
			return vm.push(value.NewBlockFrom(elems))
		},
	})

	r.Register(&Builtin{
		Name: "join", Arity: 1,
		ArgNames: []string{"collection"},
		ArgKinds: [][]value.Kind{kinds(value.Block, value.Inline)},
		Returns:  kinds(value.String),
		Attrs: map[string]value.AttrSpec{
			"with": {Kinds: kinds(value.String, value.Char), Description: "separator between elements"},
		},
		Description: "join the elements of the block into a string",
		Example:     `join.with:"," ["a" "b"]`,
		Op:          OpJoin, HasOp: true,
		Fn: func(vm *VM) error {
			v, err := vm.pop()
			if err != nil {
				return err
			}
			sep := ""
			if sv, ok := vm.attr("with"); ok {
				sep = value.Printable(sv, vm)
			}
			parts := make([]string, len(v.Elems()))
			for i, e := range v.Elems() {
				parts[i] = value.Printable(e, vm)
			}
			return vm.push(value.NewString(strings.Join(parts, sep)))
		},
	})

	r.Register(&Builtin{
		Name: "replace", Arity: 3,
		ArgNames: []string{"collection", "match", "replacement"},
		ArgKinds: [][]value.Kind{kinds(value.String, value.Block, value.Inline), nil, nil},
		Description: "replace every occurrence of match inside the collection",
		Example:     `replace "hello" "l" "r"`,
		Op:          OpReplace, HasOp: true,
		Fn: func(vm *VM) error {
			args, err := vm.popN(3)
			if err != nil {
				return err
			}
			coll, match, repl := args[0], args[1], args[2]
			if coll.Kind == value.String {
				return vm.push(value.NewString(strings.ReplaceAll(
					coll.Str, value.Printable(match, vm), value.Printable(repl, vm))))
			}
			elems := append([]value.Value(nil), coll.Elems()...)
			for i, e := range elems {
				if value.Equals(e, match) {
					elems[i] = repl
				}
			}
			return vm.push(value.NewBlockFrom(elems))
		},
	})

	r.Register(&Builtin{
		Name: "keys", Arity: 1,
		ArgNames: []string{"dictionary"},
		ArgKinds: [][]value.Kind{kinds(value.Dictionary, value.Object)},
		Returns:  kinds(value.Block),
		Description: "get the keys of the dictionary as a block of strings",
		Example:     `keys #[a: 1 b: 2]`,
		Fn: func(vm *VM) error {
			v, err := vm.pop()
			if err != nil {
				return err
			}
			d := v.Dct
			if v.Kind == value.Object {
				d = v.Obj.Members
			}
			elems := make([]value.Value, 0, d.Len())
			for _, k := range d.Keys() {
				elems = append(elems, value.NewString(k))
			}
			return vm.push(value.NewBlockFrom(elems))
		},
	})

	r.Register(&Builtin{
		Name: "values", Arity: 1,
		ArgNames: []string{"dictionary"},
		ArgKinds: [][]value.Kind{kinds(value.Dictionary, value.Object)},
		Returns:  kinds(value.Block),
		Description: "get the values of the dictionary as a block",
		Example:     `values #[a: 1 b: 2]`,
		Fn: func(vm *VM) error {
			v, err := vm.pop()
			if err != nil {
				return err
			}
			d := v.Dct
			if v.Kind == value.Object {
				d = v.Obj.Members
			}
			elems := make([]value.Value, 0, d.Len())
			for i := range d.Keys() {
				_, val := d.At(i)
				elems = append(elems, val)
			}
			return vm.push(value.NewBlockFrom(elems))
		},
	})
}

func (vm *VM) splitBlock(v value.Value) error {
	every := 1
	if nv, ok := vm.attr("every"); ok && nv.Kind == value.Integer && nv.Int > 0 {
		every = int(nv.Int)
	}
	src := v.Elems()
	var out []value.Value
	for i := 0; i < len(src); i += every {
		end := i + every
		if end > len(src) {
			end = len(src)
		}
		out = append(out, value.NewBlockFrom(append([]value.Value(nil), src[i:end]...)))
	}
	return vm.push(value.NewBlockFrom(out))
}

// ---------------------------------------------------------------------------
// Indexed access shared by get/set and path traversal
// ---------------------------------------------------------------------------

func (vm *VM) getIndexed(coll, key value.Value) (value.Value, error) {
	switch coll.Kind {
	case value.Block, value.Inline:
		idx, err := indexOf(key, len(coll.Elems()))
		if err != nil {
			return value.NullV, err
		}
		return coll.Elems()[idx], nil
	case value.String:
		runes := []rune(coll.Str)
		idx, err := indexOf(key, len(runes))
		if err != nil {
			return value.NullV, err
		}
		return value.NewChar(runes[idx]), nil
	case value.Binary:
		idx, err := indexOf(key, len(coll.Bin))
		if err != nil {
			return value.NullV, err
		}
		return value.NewInteger(int64(coll.Bin[idx])), nil
	case value.Range:
		n := coll.Rng.Len()
		if n < 0 {
			n = int(^uint(0) >> 1)
		}
		idx, err := indexOf(key, n)
		if err != nil {
			return value.NullV, err
		}
		return coll.Rng.At(idx), nil
	case value.Dictionary:
		v, _ := coll.Dct.Get(keyText(key))
		return v, nil
	case value.Object:
		v, _ := coll.Obj.Get(keyText(key))
		return v, nil
	case value.Store:
		return vm.storeGet(coll, keyText(key))
	case value.Date:
		return dateComponent(coll, keyText(key))
	}
	return value.NullV, newError(TypeMismatch, "cannot index :%s", coll.Kind)
}

func (vm *VM) setIndexed(coll, key, v value.Value) error {
	switch coll.Kind {
	case value.Block, value.Inline:
		idx, err := indexOf(key, len(coll.Elems()))
		if err != nil {
			return err
		}
		coll.Blk.Elems[idx] = v
		return nil
	case value.Dictionary:
		coll.Dct.Set(keyText(key), v)
		return nil
	case value.Object:
		coll.Obj.Set(keyText(key), v)
		return nil
	case value.Binary:
		idx, err := indexOf(key, len(coll.Bin))
		if err != nil {
			return err
		}
		if v.Kind != value.Integer || v.Big != nil {
			return newError(TypeMismatch, "binary elements must be machine-word integers")
		}
		coll.Bin[idx] = byte(v.Int)
		return nil
	case value.Store:
		return vm.storeSet(coll, keyText(key), v)
	}
	return newError(TypeMismatch, "cannot assign into :%s", coll.Kind)
}

func indexOf(key value.Value, size int) (int, error) {
	if key.Kind != value.Integer || key.Big != nil {
		return 0, newError(TypeMismatch, "index must be an integer, got :%s", key.Kind)
	}
	idx := int(key.Int)
	if idx < 0 {
		idx += size
	}
	if idx < 0 || idx >= size {
		return 0, newError(IndexOutOfBounds, "index %d out of bounds (size %d)", key.Int, size)
	}
	return idx, nil
}

func keyText(key value.Value) string {
	if key.Kind.IsTextual() {
		return key.Str
	}
	return value.Printable(key, nil)
}

func dateComponent(d value.Value, name string) (value.Value, error) {
	t := *d.Dt
	switch name {
	case "year":
		return value.NewInteger(int64(t.Year())), nil
	case "month":
		return value.NewInteger(int64(t.Month())), nil
	case "day":
		return value.NewInteger(int64(t.Day())), nil
	case "hour":
		return value.NewInteger(int64(t.Hour())), nil
	case "minute":
		return value.NewInteger(int64(t.Minute())), nil
	case "second":
		return value.NewInteger(int64(t.Second())), nil
	}
	return value.NullV, newError(IndexOutOfBounds, "unknown date component: %s", name)
}
