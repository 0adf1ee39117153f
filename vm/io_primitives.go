package vm

import (
	"fmt"
	"strings"

	"github.com/moeinimoein/arturo/value"
)

// ---------------------------------------------------------------------------
// I/O primitives
//
// The core only talks to vm.Out; file and network builtins live with
// the external collaborators.
// ---------------------------------------------------------------------------

func registerIoPrimitives(r *Registry) {
	r.Register(&Builtin{
		Name: "print", Arity: 1,
		ArgNames: []string{"value"},
		Description: "print the given value to output, followed by a newline",
		Example:     `print "Hello world!"`,
		Fn: func(vm *VM) error {
			v, err := vm.pop()
			if err != nil {
				return err
			}
			fmt.Fprintln(vm.Out, printableForOutput(vm, v))
			return nil
		},
	})

	r.Register(&Builtin{
		Name: "prints", Arity: 1,
		ArgNames: []string{"value"},
		Description: "print the given value to output without a trailing newline",
		Example:     `prints "> "`,
		Fn: func(vm *VM) error {
			v, err := vm.pop()
			if err != nil {
				return err
			}
			fmt.Fprint(vm.Out, printableForOutput(vm, v))
			return nil
		},
	})
}

// printableForOutput joins a block's elements with spaces, the way
// print renders multi-part output; everything else renders plainly.
func printableForOutput(vm *VM, v value.Value) string {
	if v.IsBlockish() {
		parts := make([]string, len(v.Elems()))
		for i, e := range v.Elems() {
			parts[i] = vm.Printable(e)
		}
		return strings.Join(parts, " ")
	}
	return vm.Printable(v)
}
