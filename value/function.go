package value

// ---------------------------------------------------------------------------
// FunctionData: user and builtin function payloads
// ---------------------------------------------------------------------------

// FnInfo is the optional documentation record attached to a function:
// a description, per-attribute schema, return spec, and example text.
type FnInfo struct {
	Description string
	Attributes  map[string]AttrSpec
	Returns     []Kind
	Example     string
}

// AttrSpec documents a single accepted attribute.
type AttrSpec struct {
	Kinds       []Kind
	Description string
}

// FunctionData is the payload of a Function value.
type FunctionData struct {
	Params      []string
	Body        Value  // the body block
	Imports     *Dict  // captured bindings merged into the call scope
	Exports     []string
	Memoize     bool
	Inline      bool
	Info        *FnInfo
	Constraints map[string][]Kind // per-parameter accepted kinds, nil = any

	// Compiled holds the body's Translation after first invocation;
	// subsequent calls reuse it.
	Compiled *Translation

	// MemoCache maps codified argument tuples to results when Memoize
	// is set.
	MemoCache map[string]Value

	// Native is non-nil for builtin functions; the hosting VM stores
	// its registry entry here and never consults Body.
	Native any
	Arity  int // declared positional arity (builtins and user alike)
}

// IsBuiltin reports whether the function is a native builtin.
func (f *FunctionData) IsBuiltin() bool { return f.Native != nil }

// NewUserFunction builds a function value over params and a body block.
func NewUserFunction(params []string, body Value) Value {
	return NewFunction(&FunctionData{
		Params: params,
		Body:   body,
		Arity:  len(params),
	})
}
