package value

// ---------------------------------------------------------------------------
// Prototype: user-defined types
// ---------------------------------------------------------------------------

// Magic method names recognised by define; each is transformed to
// receive this as its first parameter and installed on the matching
// Do* hook.
const (
	MagicInit    = "init"
	MagicPrint   = "print"
	MagicCompare = "compare"
)

// Prototype describes a user-defined type: the ordered field names
// used by the default constructor, the method table, an optional
// parent, and the derived magic hooks.
//
// Inherits is a non-owning back-reference; the type registry owns all
// prototypes and reclaims them when the VM shuts down.
type Prototype struct {
	Name     string
	Fields   []string
	Methods  *Dict
	Inherits *Prototype

	DoInit    *FunctionData
	DoPrint   *FunctionData
	DoCompare *FunctionData
}

// NewPrototype returns an empty prototype for name.
func NewPrototype(name string) *Prototype {
	return &Prototype{Name: name, Methods: NewDict()}
}

// Reset clears fields, methods, and hooks; define reuses registered
// prototypes so re-definition starts clean.
func (p *Prototype) Reset() {
	p.Fields = nil
	p.Methods = NewDict()
	p.Inherits = nil
	p.DoInit = nil
	p.DoPrint = nil
	p.DoCompare = nil
}

// Object is an instance of a user-defined type: named members plus a
// reference to the owning prototype.
type Object struct {
	Members *Dict
	Proto   *Prototype
}

// NewObjectOf returns an empty object of the given prototype.
func NewObjectOf(p *Prototype) *Object {
	return &Object{Members: NewDict(), Proto: p}
}

// Get returns a member value, falling back to prototype methods.
func (o *Object) Get(name string) (Value, bool) {
	if v, ok := o.Members.Get(name); ok {
		return v, true
	}
	if o.Proto != nil {
		if v, ok := o.Proto.Methods.Get(name); ok {
			return v, true
		}
	}
	return NullV, false
}

// Set stores a member value.
func (o *Object) Set(name string, v Value) { o.Members.Set(name, v) }
