package vm

import (
	"strconv"

	"github.com/moeinimoein/arturo/value"
)

// ---------------------------------------------------------------------------
// Converter primitives
// ---------------------------------------------------------------------------

func registerConvertersPrimitives(r *Registry) {
	r.Register(&Builtin{
		Name: "to", Arity: 2,
		ArgNames: []string{"type", "value"},
		ArgKinds: [][]value.Kind{kinds(value.Type, value.Block), nil},
		Attrs: map[string]value.AttrSpec{
			"format": {Kinds: kinds(value.String), Description: "parse/format pattern (dates)"},
			"hsl":    {Kinds: kinds(value.Logical), Description: "interpret color channels as HSL"},
			"hsv":    {Kinds: kinds(value.Logical), Description: "interpret color channels as HSV"},
		},
		Description: "convert the given value to the target type",
		Example:     `to :integer "2020"`,
		Op:          OpTo, HasOp: true,
		Fn: func(vm *VM) error {
			args, err := vm.popN(2)
			if err != nil {
				return err
			}
			format := ""
			if fv, ok := vm.attr("format"); ok {
				format = fv.Str
			}
			res, err := vm.Convert(args[1], args[0], format)
			if err != nil {
				return err
			}
			return vm.push(res)
		},
	})

	r.Register(&Builtin{
		Name: "as", Arity: 1,
		ArgNames: []string{"value"},
		Attrs: map[string]value.AttrSpec{
			"binary": {Kinds: kinds(value.Logical), Description: "render an integer in base 2"},
			"octal":  {Kinds: kinds(value.Logical), Description: "render an integer in base 8"},
			"hex":    {Kinds: kinds(value.Logical), Description: "render an integer in base 16"},
			"code":   {Kinds: kinds(value.Logical), Description: "render as parseable source"},
			"pretty": {Kinds: kinds(value.Logical), Description: "with .code: indent nested blocks"},
		},
		Returns:  kinds(value.String),
		Description: "render the given value in an alternative representation",
		Example:     `as.binary 11`,
		Fn: func(vm *VM) error {
			v, err := vm.pop()
			if err != nil {
				return err
			}
			switch {
			case vm.attrIsSet("binary"), vm.attrIsSet("octal"), vm.attrIsSet("hex"):
				if v.Kind != value.Integer {
					return newError(TypeMismatch, "as: base rendering expects :integer, got :%s", v.Kind)
				}
				base := 2
				if vm.attrIsSet("octal") {
					base = 8
				} else if vm.attrIsSet("hex") {
					base = 16
				}
				if v.Big != nil {
					return vm.push(value.NewString(v.Big.Text(base)))
				}
				return vm.push(value.NewString(strconv.FormatInt(v.Int, base)))
			case vm.attrIsSet("code"):
				return vm.push(value.NewString(
					value.Codify(v, vm.attrIsSet("pretty"), false, false)))
			default:
				return vm.push(value.NewString(value.Printable(v, vm)))
			}
		},
	})

	r.Register(&Builtin{
		Name: "from", Arity: 1,
		ArgNames: []string{"value"},
		ArgKinds: [][]value.Kind{kinds(value.String)},
		Attrs: map[string]value.AttrSpec{
			"binary": {Kinds: kinds(value.Logical), Description: "parse an integer in base 2"},
			"octal":  {Kinds: kinds(value.Logical), Description: "parse an integer in base 8"},
			"hex":    {Kinds: kinds(value.Logical), Description: "parse an integer in base 16"},
		},
		Description: "parse the given string representation",
		Example:     `from.binary "1011"`,
		Fn: func(vm *VM) error {
			v, err := vm.pop()
			if err != nil {
				return err
			}
			base := 10
			switch {
			case vm.attrIsSet("binary"):
				base = 2
			case vm.attrIsSet("octal"):
				base = 8
			case vm.attrIsSet("hex"):
				base = 16
			}
			n, perr := strconv.ParseInt(v.Str, base, 64)
			if perr != nil {
				return newError(ConversionFailed, "from: %q is not a base-%d integer", v.Str, base)
			}
			return vm.push(value.NewInteger(n))
		},
	})
}
