package vm

import (
	"strings"

	"github.com/moeinimoein/arturo/value"
)

// ---------------------------------------------------------------------------
// Builtin registry
// ---------------------------------------------------------------------------

// BuiltinFn is a native operation. It consumes its arguments from the
// stack (first argument on top) and pushes its single result, if any.
type BuiltinFn func(vm *VM) error

// Builtin is a registered native operation together with its
// declaration: accepted argument variants per position, attribute
// schema, return variants, and an example snippet.
type Builtin struct {
	Name        string
	Arity       int
	ArgNames    []string
	ArgKinds    [][]value.Kind // nil entry accepts any variant
	Attrs       map[string]value.AttrSpec
	Returns     []value.Kind
	Description string
	Example     string

	// Op is the dedicated opcode for the fast path; HasOp
	// distinguishes a real opcode from the zero value.
	Op    OpCode
	HasOp bool

	Fn BuiltinFn
}

// Registry is an insertion-ordered map from name to builtin, immutable
// after startup.
type Registry struct {
	names  []string
	items  map[string]*Builtin
	byOp   [256]*Builtin
	sealed bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]*Builtin)}
}

// Register adds a builtin; panics after Seal, and on duplicate names,
// since registration is a startup-time programming action.
func (r *Registry) Register(b *Builtin) {
	if r.sealed {
		panic("builtin registry is sealed")
	}
	if _, dup := r.items[b.Name]; dup {
		panic("duplicate builtin: " + b.Name)
	}
	if b.ArgKinds == nil {
		b.ArgKinds = make([][]value.Kind, b.Arity)
	}
	r.names = append(r.names, b.Name)
	r.items[b.Name] = b
	if b.HasOp {
		r.byOp[b.Op] = b
	}
}

// Seal freezes the registry.
func (r *Registry) Seal() { r.sealed = true }

// Lookup returns the builtin registered under name, or nil.
func (r *Registry) Lookup(name string) *Builtin { return r.items[name] }

// ByOp returns the builtin behind a dedicated opcode, or nil.
func (r *Registry) ByOp(op OpCode) *Builtin { return r.byOp[op] }

// Names returns all registered names in registration order.
func (r *Registry) Names() []string { return r.names }

// ---------------------------------------------------------------------------
// Declaration helpers
// ---------------------------------------------------------------------------

func kinds(ks ...value.Kind) []value.Kind { return ks }

func kindAccepted(k value.Kind, accepted []value.Kind) bool {
	for _, a := range accepted {
		if a == k || a == value.Any {
			return true
		}
	}
	return false
}

func kindsLabel(ks []value.Kind) string {
	parts := make([]string, len(ks))
	for i, k := range ks {
		parts[i] = ":" + k.String()
	}
	return strings.Join(parts, " or ")
}

// execSimple runs an opcode-backed builtin through the fast path.
func (vm *VM) execSimple(op OpCode) error {
	b := vm.registry.ByOp(op)
	if b == nil {
		return newError(StackUnderflow, "unknown opcode 0x%02X", byte(op))
	}
	return vm.applyBuiltin(b)
}

// popN pops n values, first-pushed last.
func (vm *VM) popN(n int) ([]value.Value, error) {
	out := make([]value.Value, n)
	for i := 0; i < n; i++ {
		v, err := vm.pop()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
