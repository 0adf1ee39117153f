package value

// ---------------------------------------------------------------------------
// Dict: insertion-ordered string-keyed mapping
// ---------------------------------------------------------------------------

// Dict is an insertion-ordered mapping from text key to Value. It backs
// the Dictionary variant, object members, and function import tables.
type Dict struct {
	keys  []string
	index map[string]int
	vals  []Value
}

// NewDict returns an empty dictionary.
func NewDict() *Dict {
	return &Dict{index: make(map[string]int)}
}

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.keys) }

// Get returns the value for key.
func (d *Dict) Get(key string) (Value, bool) {
	i, ok := d.index[key]
	if !ok {
		return NullV, false
	}
	return d.vals[i], true
}

// Set inserts or replaces the value for key, preserving first-insertion
// order.
func (d *Dict) Set(key string, v Value) {
	if i, ok := d.index[key]; ok {
		d.vals[i] = v
		return
	}
	d.index[key] = len(d.keys)
	d.keys = append(d.keys, key)
	d.vals = append(d.vals, v)
}

// Delete removes key if present.
func (d *Dict) Delete(key string) {
	i, ok := d.index[key]
	if !ok {
		return
	}
	d.keys = append(d.keys[:i], d.keys[i+1:]...)
	d.vals = append(d.vals[:i], d.vals[i+1:]...)
	delete(d.index, key)
	for j := i; j < len(d.keys); j++ {
		d.index[d.keys[j]] = j
	}
}

// Keys returns the keys in insertion order. The slice is shared; do not
// mutate it.
func (d *Dict) Keys() []string { return d.keys }

// At returns the i-th key and value in insertion order.
func (d *Dict) At(i int) (string, Value) { return d.keys[i], d.vals[i] }

// Each calls fn for every entry in insertion order, stopping on a
// non-nil error.
func (d *Dict) Each(fn func(key string, v Value) error) error {
	for i, k := range d.keys {
		if err := fn(k, d.vals[i]); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a shallow copy.
func (d *Dict) Clone() *Dict {
	c := &Dict{
		keys:  append([]string(nil), d.keys...),
		vals:  append([]Value(nil), d.vals...),
		index: make(map[string]int, len(d.index)),
	}
	for k, i := range d.index {
		c.index[k] = i
	}
	return c
}

// Merge copies every entry of other into d, overriding duplicates.
func (d *Dict) Merge(other *Dict) {
	if other == nil {
		return
	}
	for i, k := range other.keys {
		d.Set(k, other.vals[i])
	}
}
