package vm

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/moeinimoein/arturo/value"
)

// ---------------------------------------------------------------------------
// String primitives
//
// Case mapping goes through x/text so non-ASCII input behaves.
// ---------------------------------------------------------------------------

var (
	upperCaser = cases.Upper(language.Und)
	lowerCaser = cases.Lower(language.Und)
	titleCaser = cases.Title(language.Und)
)

func registerStringsPrimitives(r *Registry) {
	stringy := kinds(value.String, value.Char, value.Word, value.Literal)

	mapper := func(name, desc, example string, fn func(s string) string) {
		r.Register(&Builtin{
			Name: name, Arity: 1,
			ArgNames: []string{"string"},
			ArgKinds: [][]value.Kind{stringy},
			Returns:  kinds(value.String, value.Char),
			Description: desc, Example: example,
			Fn: func(vm *VM) error {
				v, err := vm.pop()
				if err != nil {
					return err
				}
				out := fn(value.Printable(v, vm))
				if v.Kind == value.Char {
					runes := []rune(out)
					if len(runes) == 1 {
						return vm.push(value.NewChar(runes[0]))
					}
				}
				return vm.push(value.NewString(out))
			},
		})
	}

	mapper("upper", "convert the given string to uppercase", `upper "hello"`,
		upperCaser.String)
	mapper("lower", "convert the given string to lowercase", `lower "HELLO"`,
		lowerCaser.String)
	mapper("capitalize", "capitalize the first word of the given string", `capitalize "hello world"`,
		func(s string) string {
			if s == "" {
				return s
			}
			runes := []rune(s)
			return titleCaser.String(string(runes[0])) + string(runes[1:])
		})
	mapper("strip", "remove leading and trailing whitespace", `strip "  x  "`,
		strings.TrimSpace)

	r.Register(&Builtin{
		Name: "contains?", Arity: 2,
		ArgNames: []string{"collection", "element"},
		ArgKinds: [][]value.Kind{kinds(value.String, value.Block, value.Inline, value.Dictionary, value.Range), nil},
		Returns:  kinds(value.Logical),
		Description: "check whether the collection contains the given element",
		Example:     `contains? "hello" "ell"`,
		Fn: func(vm *VM) error {
			args, err := vm.popN(2)
			if err != nil {
				return err
			}
			coll, elem := args[0], args[1]
			var found bool
			switch coll.Kind {
			case value.String:
				found = strings.Contains(coll.Str, value.Printable(elem, vm))
			case value.Dictionary:
				_, found = coll.Dct.Get(keyText(elem))
			case value.Range:
				err := coll.Rng.Each(func(v value.Value) (bool, error) {
					if value.Equals(v, elem) {
						found = true
						return false, nil
					}
					return true, nil
				})
				if err != nil {
					return err
				}
			default:
				for _, e := range coll.Elems() {
					if value.Equals(e, elem) {
						found = true
						break
					}
				}
			}
			return vm.push(value.NewLogical(found))
		},
	})

	r.Register(&Builtin{
		Name: "prefix?", Arity: 2,
		ArgNames: []string{"string", "prefix"},
		ArgKinds: [][]value.Kind{kinds(value.String), kinds(value.String, value.Char)},
		Returns:  kinds(value.Logical),
		Description: "check whether the string starts with the given prefix",
		Example:     `prefix? "hello" "he"`,
		Fn: func(vm *VM) error {
			args, err := vm.popN(2)
			if err != nil {
				return err
			}
			return vm.push(value.NewLogical(
				strings.HasPrefix(args[0].Str, value.Printable(args[1], vm))))
		},
	})

	r.Register(&Builtin{
		Name: "suffix?", Arity: 2,
		ArgNames: []string{"string", "suffix"},
		ArgKinds: [][]value.Kind{kinds(value.String), kinds(value.String, value.Char)},
		Returns:  kinds(value.Logical),
		Description: "check whether the string ends with the given suffix",
		Example:     `suffix? "hello" "lo"`,
		Fn: func(vm *VM) error {
			args, err := vm.popN(2)
			if err != nil {
				return err
			}
			return vm.push(value.NewLogical(
				strings.HasSuffix(args[0].Str, value.Printable(args[1], vm))))
		},
	})

	r.Register(&Builtin{
		Name: "repeat", Arity: 2,
		ArgNames: []string{"value", "times"},
		ArgKinds: [][]value.Kind{kinds(value.String, value.Char, value.Block), kinds(value.Integer)},
		Description: "repeat the given value the given number of times",
		Example:     `repeat "ab" 3`,
		Fn: func(vm *VM) error {
			args, err := vm.popN(2)
			if err != nil {
				return err
			}
			v, times := args[0], args[1]
			if times.Big != nil || times.Int < 0 {
				return newError(TypeMismatch, "repeat count must be a small non-negative integer")
			}
			n := int(times.Int)
			if v.Kind == value.Block {
				elems := make([]value.Value, 0, len(v.Elems())*n)
				for i := 0; i < n; i++ {
					elems = append(elems, v.Elems()...)
				}
				return vm.push(value.NewBlockFrom(elems))
			}
			return vm.push(value.NewString(strings.Repeat(value.Printable(v, vm), n)))
		},
	})
}
