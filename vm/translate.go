package vm

import (
	"github.com/moeinimoein/arturo/parser"
	"github.com/moeinimoein/arturo/value"
)

// ---------------------------------------------------------------------------
// Translator: block value -> Translation
//
// The translator walks a block left to right but emits each call's
// argument expressions right to left, so the first argument ends up on
// top of the stack when the call executes. Infix symbol aliases are
// resolved here: after a completed term, `a + b` continues as the
// two-argument call `add a b` by translating b and swapping.
// ---------------------------------------------------------------------------

// symbolAlias maps a symbol to the word it stands for; infix aliases
// continue the preceding expression.
type symbolAlias struct {
	word  string
	infix bool
}

var symbolAliases = map[string]symbolAlias{
	"+":  {"add", true},
	"-":  {"sub", true},
	"*":  {"mul", true},
	"/":  {"div", true},
	"//": {"fdiv", true},
	"%":  {"mod", true},
	"^":  {"pow", true},
	"=":  {"equal?", true},
	"<>": {"notEqual?", true},
	"<":  {"less?", true},
	">":  {"greater?", true},
	"=<": {"lessOrEqual?", true},
	"<=": {"lessOrEqual?", true},
	">=": {"greaterOrEqual?", true},
	"..": {"range", true},
	"++": {"append", true},
	"&":  {"and?", true},
	"|":  {"or?", true},
}

// wordContinuations are words that, like infix symbols, take their
// first argument from the value already on the stack.
var wordContinuations = map[string]bool{
	"else": true,
}

// TranslateSource parses and translates source text in one step.
func (vm *VM) TranslateSource(source string) (*value.Translation, error) {
	root, err := parser.Parse(source)
	if err != nil {
		if pe, ok := err.(*parser.Error); ok {
			return nil, &RuntimeError{Kind: ParseError, Msg: pe.Msg, Line: pe.Pos.Line}
		}
		return nil, &RuntimeError{Kind: ParseError, Msg: err.Error()}
	}
	return vm.TranslateBlock(root)
}

// TranslateBlock translates a block value into a Translation.
func (vm *VM) TranslateBlock(block value.Value) (*value.Translation, error) {
	if !block.IsBlockish() {
		return nil, newError(TypeMismatch, "cannot translate :%s", block.Kind)
	}
	tr := &translator{vm: vm, b: NewBytecodeBuilder(), arities: make(map[string]int)}
	if err := tr.translateElems(block.Elems()); err != nil {
		return nil, err
	}
	tr.b.Emit(OpEnd)
	return tr.b.Translation(), nil
}

type translator struct {
	vm *VM
	b  *BytecodeBuilder

	// arities records functions declared earlier in this translation
	// unit (fib: $[x][...]), so later bare words resolve as calls.
	arities map[string]int

	lastLine int32
}

func errTranslate(format string, args ...any) error {
	return newError(ParseError, format, args...)
}

func (t *translator) translateElems(elems []value.Value) error {
	i := 0
	for i < len(elems) {
		ni, err := t.translateExpression(elems, i, true)
		if err != nil {
			return err
		}
		i = ni
	}
	return nil
}

// translateExpression translates one term plus any infix continuation.
// Continuation words (else) only extend statement-level expressions;
// inside argument positions they belong to the enclosing call.
func (t *translator) translateExpression(elems []value.Value, i int, conts bool) (int, error) {
	i, err := t.translateTerm(elems, i)
	if err != nil {
		return 0, err
	}
	for i < len(elems) {
		e := elems[i]
		switch {
		case e.Kind == value.Symbol:
			al, ok := symbolAliases[e.Str]
			if !ok || !al.infix {
				return i, nil
			}
			ni, err := t.translateTerm(elems, i+1)
			if err != nil {
				return 0, err
			}
			t.b.Emit(OpSwap)
			if err := t.emitInvoke(al.word); err != nil {
				return 0, err
			}
			i = ni
		case conts && e.Kind == value.Word && wordContinuations[e.Str]:
			name := e.Str
			ni, err := t.translateTerm(elems, i+1)
			if err != nil {
				return 0, err
			}
			t.b.Emit(OpSwap)
			if err := t.emitInvoke(name); err != nil {
				return 0, err
			}
			i = ni
		default:
			return i, nil
		}
	}
	return i, nil
}

// emitInvoke emits the dedicated opcode for a builtin, or an indexed
// call otherwise.
func (t *translator) emitInvoke(name string) error {
	if b := t.vm.registry.Lookup(name); b != nil && b.HasOp {
		t.b.Emit(b.Op)
		return nil
	}
	idx, err := t.b.Intern(value.NewWord(name))
	if err != nil {
		return err
	}
	t.b.EmitIndexed(OpCall0, idx)
	return nil
}

func (t *translator) emitLine(line int32) {
	if line > 0 && line != t.lastLine {
		t.lastLine = line
		t.b.EmitEol(int(line))
	}
}

// translateTerm translates exactly one term.
func (t *translator) translateTerm(elems []value.Value, i int) (int, error) {
	if i >= len(elems) {
		return 0, errTranslate("expression expected")
	}
	v := elems[i]
	t.emitLine(v.Line)

	switch v.Kind {
	case value.Word:
		return t.translateWordCall(elems, i)

	case value.Label:
		t.trackArity(v.Str, elems, i+1)
		ni, err := t.translateExpression(elems, i+1, true)
		if err != nil {
			return 0, err
		}
		idx, err := t.b.Intern(value.NewWord(v.Str))
		if err != nil {
			return 0, err
		}
		t.b.EmitIndexed(OpStore0, idx)
		return ni, nil

	case value.PathLabel:
		return t.translatePathLabel(elems, i)

	case value.Path:
		if err := t.translatePathGet(v); err != nil {
			return 0, err
		}
		return i + 1, nil

	case value.Attribute, value.AttributeLabel:
		ni, err := t.translateAttr(elems, i)
		if err != nil {
			return 0, err
		}
		// an attribute is not a value; keep translating the term it
		// precedes
		return t.translateTerm(elems, ni)

	case value.Inline:
		if err := t.translateElems(v.Elems()); err != nil {
			return 0, err
		}
		return i + 1, nil

	case value.Symbol:
		if v.Str == "->" {
			return t.translateArrowBlock(elems, i)
		}
		if al, ok := symbolAliases[v.Str]; ok {
			// prefix use of an alias: treat as the aliased word
			w := value.NewWord(al.word)
			w.Line = v.Line
			sub := append([]value.Value{w}, elems[i+1:]...)
			ni, err := t.translateWordCall(sub, 0)
			if err != nil {
				return 0, err
			}
			return i + ni, nil
		}
		if err := t.b.EmitConstant(v); err != nil {
			return 0, err
		}
		return i + 1, nil

	default:
		if err := t.b.EmitConstant(v); err != nil {
			return 0, err
		}
		return i + 1, nil
	}
}

// translateWordCall resolves a bare word. Known functions become calls
// with eagerly translated arguments (emitted right to left); unknown
// words emit a call that the VM resolves from the runtime symbol.
func (t *translator) translateWordCall(elems []value.Value, i int) (int, error) {
	name := elems[i].Str

	switch name {
	case "true":
		t.b.Emit(OpConstBT)
		return i + 1, nil
	case "false":
		t.b.Emit(OpConstBF)
		return i + 1, nil
	case "null":
		t.b.Emit(OpConstN)
		return i + 1, nil
	}

	arity, known := t.wordArity(name)
	if !known {
		// ambiguous: emit call, the VM decides from the bound value
		idx, err := t.b.Intern(value.NewWord(name))
		if err != nil {
			return 0, err
		}
		t.b.EmitIndexed(OpCall0, idx)
		return i + 1, nil
	}

	j := i + 1
	segments := make([][]byte, 0, arity)
	for k := 0; k < arity; k++ {
		var err error
		j, err = t.translateAttrRun(elems, j)
		if err != nil {
			return 0, err
		}
		start := t.b.Len()
		j, err = t.translateExpression(elems, j, false)
		if err != nil {
			return 0, err
		}
		segments = append(segments, t.extractSegment(start))
	}
	j, err := t.translateAttrRun(elems, j)
	if err != nil {
		return 0, err
	}

	for k := len(segments) - 1; k >= 0; k-- {
		t.b.EmitRaw(segments[k]...)
	}
	if err := t.emitInvoke(name); err != nil {
		return 0, err
	}
	return j, nil
}

// extractSegment removes and returns the code emitted since start.
func (t *translator) extractSegment(start int) []byte {
	seg := append([]byte(nil), t.b.code[start:]...)
	t.b.code = t.b.code[:start]
	return seg
}

// translateAttrRun emits any attributes at position j and returns the
// index after them.
func (t *translator) translateAttrRun(elems []value.Value, j int) (int, error) {
	for j < len(elems) &&
		(elems[j].Kind == value.Attribute || elems[j].Kind == value.AttributeLabel) {
		var err error
		j, err = t.translateAttr(elems, j)
		if err != nil {
			return 0, err
		}
	}
	return j, nil
}

// translateAttr emits a single attribute: flag attributes push true,
// labelled attributes translate their value term first.
func (t *translator) translateAttr(elems []value.Value, i int) (int, error) {
	v := elems[i]
	ni := i + 1
	if v.Kind == value.AttributeLabel {
		var err error
		ni, err = t.translateTerm(elems, i+1)
		if err != nil {
			return 0, err
		}
	} else {
		t.b.Emit(OpConstBT)
	}
	idx, err := t.b.Intern(value.NewWord(v.Str))
	if err != nil {
		return 0, err
	}
	t.b.EmitIndexed(OpAttr0, idx)
	return ni, nil
}

// translateArrowBlock wraps the next full expression in a block
// constant: `-> print x` reads as `[print x]`.
func (t *translator) translateArrowBlock(elems []value.Value, i int) (int, error) {
	end, err := t.extentExpression(elems, i+1)
	if err != nil {
		return 0, err
	}
	blk := value.NewBlockFrom(elems[i+1 : end])
	if err := t.b.EmitConstant(blk); err != nil {
		return 0, err
	}
	return end, nil
}

// translatePathGet emits the get chain for a\b\0.
func (t *translator) translatePathGet(v value.Value) error {
	comps := v.Elems()
	if len(comps) == 0 {
		return errTranslate("empty path")
	}
	head, err := t.b.Intern(value.NewWord(comps[0].Str))
	if err != nil {
		return err
	}
	t.b.EmitIndexed(OpLoad0, head)
	for _, c := range comps[1:] {
		key := c
		if key.Kind == value.Word {
			key = value.NewString(key.Str)
		}
		// get pops the container first: the key is pushed above the
		// container, then the pair is swapped so the container is on top
		if err := t.b.EmitConstant(key); err != nil {
			return err
		}
		t.b.Emit(OpSwap)
		t.b.Emit(OpGet)
	}
	return nil
}

// translatePathLabel emits the set sequence for a\b: <expr>.
func (t *translator) translatePathLabel(elems []value.Value, i int) (int, error) {
	v := elems[i]
	comps := v.Elems()
	if len(comps) < 2 {
		return 0, errTranslate("path assignment needs at least one component")
	}
	ni, err := t.translateExpression(elems, i+1, true)
	if err != nil {
		return 0, err
	}
	// navigate to the parent container
	head, err := t.b.Intern(value.NewWord(comps[0].Str))
	if err != nil {
		return 0, err
	}
	last := comps[len(comps)-1]
	if last.Kind == value.Word {
		last = value.NewString(last.Str)
	}
	if err := t.b.EmitConstant(last); err != nil {
		return 0, err
	}
	t.b.EmitIndexed(OpLoad0, head)
	for _, c := range comps[1 : len(comps)-1] {
		key := c
		if key.Kind == value.Word {
			key = value.NewString(key.Str)
		}
		if err := t.b.EmitConstant(key); err != nil {
			return 0, err
		}
		t.b.Emit(OpSwap)
		t.b.Emit(OpGet)
	}
	t.b.Emit(OpSet)
	return ni, nil
}

// trackArity records function arities declared by labels so that later
// bare words in the same translation unit resolve as calls.
func (t *translator) trackArity(name string, elems []value.Value, i int) {
	if i+1 >= len(elems) {
		return
	}
	if elems[i].Kind == value.Word && elems[i].Str == "function" {
		j := t.extentAttrRun(elems, i+1)
		if j < len(elems) && elems[j].Kind == value.Block {
			t.arities[name] = len(elems[j].Elems())
		}
	}
}

// wordArity resolves a word's call arity at translation time: local
// declarations first, then the builtin registry, then function values
// already bound in the symbol table.
func (t *translator) wordArity(name string) (int, bool) {
	if a, ok := t.arities[name]; ok {
		return a, true
	}
	if b := t.vm.registry.Lookup(name); b != nil {
		return b.Arity, true
	}
	if v, ok := t.vm.Lookup(name); ok && v.Kind == value.Function {
		return v.Fn.Arity, true
	}
	return 0, false
}

// ---------------------------------------------------------------------------
// Expression extents (for block sugar)
// ---------------------------------------------------------------------------

// extentExpression returns the index just past the expression starting
// at i, without emitting code.
func (t *translator) extentExpression(elems []value.Value, i int) (int, error) {
	i, err := t.extentTerm(elems, i)
	if err != nil {
		return 0, err
	}
	for i < len(elems) {
		e := elems[i]
		if e.Kind == value.Symbol {
			if al, ok := symbolAliases[e.Str]; ok && al.infix {
				i, err = t.extentTerm(elems, i+1)
				if err != nil {
					return 0, err
				}
				continue
			}
		}
		if e.Kind == value.Word && wordContinuations[e.Str] {
			i, err = t.extentTerm(elems, i+1)
			if err != nil {
				return 0, err
			}
			continue
		}
		break
	}
	return i, nil
}

func (t *translator) extentTerm(elems []value.Value, i int) (int, error) {
	if i >= len(elems) {
		return 0, errTranslate("expression expected")
	}
	v := elems[i]
	switch v.Kind {
	case value.Word:
		if v.Str == "true" || v.Str == "false" || v.Str == "null" {
			return i + 1, nil
		}
		arity, known := t.wordArity(v.Str)
		if !known {
			return i + 1, nil
		}
		j := i + 1
		for k := 0; k < arity; k++ {
			j = t.extentAttrRun(elems, j)
			var err error
			j, err = t.extentExpression(elems, j)
			if err != nil {
				return 0, err
			}
		}
		return t.extentAttrRun(elems, j), nil
	case value.Label, value.PathLabel:
		return t.extentExpression(elems, i+1)
	case value.Attribute:
		return t.extentTerm(elems, i+1)
	case value.AttributeLabel:
		j, err := t.extentTerm(elems, i+1)
		if err != nil {
			return 0, err
		}
		return t.extentTerm(elems, j)
	case value.Symbol:
		if v.Str == "->" {
			return t.extentExpression(elems, i+1)
		}
		return i + 1, nil
	default:
		return i + 1, nil
	}
}

func (t *translator) extentAttrRun(elems []value.Value, j int) int {
	for j < len(elems) {
		switch elems[j].Kind {
		case value.Attribute:
			j++
		case value.AttributeLabel:
			j += 2
		default:
			return j
		}
	}
	return j
}
