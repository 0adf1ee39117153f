package value

// ---------------------------------------------------------------------------
// RangeData: lazy integer and character ranges
// ---------------------------------------------------------------------------

// RangeData is the payload of a Range value. Iteration is lazy: a
// range produces a bounded or unbounded sequence of integers (or code
// points when Numeric is false) with the configured step.
type RangeData struct {
	Start, Stop, Step int64
	Infinite          bool
	Numeric           bool // false for code-point (character) ranges
	Forward           bool
}

// NewBoundedRange builds a finite numeric range. Step must be nonzero;
// callers validate before construction.
func NewBoundedRange(start, stop, step int64) *RangeData {
	return &RangeData{
		Start: start, Stop: stop, Step: step,
		Numeric: true,
		Forward: stop >= start,
	}
}

// NewCharRange builds a finite code-point range.
func NewCharRange(start, stop rune) *RangeData {
	return &RangeData{
		Start: int64(start), Stop: int64(stop), Step: 1,
		Numeric: false,
		Forward: stop >= start,
	}
}

// Len returns the number of elements, or -1 for infinite ranges.
func (r *RangeData) Len() int {
	if r.Infinite {
		return -1
	}
	if r.Step == 0 {
		return 0
	}
	var span int64
	if r.Forward {
		span = r.Stop - r.Start
	} else {
		span = r.Start - r.Stop
	}
	if span < 0 {
		return 0
	}
	return int(span/r.Step) + 1
}

// At returns the i-th element.
func (r *RangeData) At(i int) Value {
	var n int64
	if r.Forward {
		n = r.Start + int64(i)*r.Step
	} else {
		n = r.Start - int64(i)*r.Step
	}
	if r.Numeric {
		return NewInteger(n)
	}
	return NewChar(rune(n))
}

// Each calls fn for every element in order. For infinite ranges the
// iteration only ends when fn returns false or an error.
func (r *RangeData) Each(fn func(v Value) (bool, error)) error {
	i := 0
	for {
		if !r.Infinite && i >= r.Len() {
			return nil
		}
		more, err := fn(r.At(i))
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
		i++
	}
}

// ToBlock materialises a finite range as a block.
func (r *RangeData) ToBlock() Value {
	n := r.Len()
	if n < 0 {
		n = 0
	}
	elems := make([]Value, 0, n)
	for i := 0; i < n; i++ {
		elems = append(elems, r.At(i))
	}
	return NewBlockFrom(elems)
}
