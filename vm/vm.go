package vm

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/moeinimoein/arturo/value"
)

// ---------------------------------------------------------------------------
// VM: the Arturo virtual machine
// ---------------------------------------------------------------------------

const (
	maxStackDepth = 100000
	maxCallDepth  = 4096
)

// VM executes Translations against a symbol table. A VM instance owns
// its evaluation stack, symbol table, attribute table, and type
// registry exclusively; it is not safe for concurrent use, but
// independent instances may run in parallel.
type VM struct {
	stack []value.Value
	sp    int

	syms  *value.Dict // active symbol table
	types map[string]*value.Prototype

	// attribute table for the pending call
	pendingAttrs map[string]value.Value
	// attributes of the call currently executing
	currentAttrs map[string]value.Value

	registry *Registry

	// frame flags; absorbed per the block/function discipline
	vmReturn   bool
	vmBreak    bool
	vmContinue bool

	callDepth   int
	currentLine int

	// cached translations for plain blocks executed as code
	translations map[*value.BlockData]*value.Translation

	stopRequested atomic.Bool

	// Out receives print output; defaults to os.Stdout.
	Out io.Writer
}

// New creates a VM with the full builtin registry installed.
func New() *VM {
	vm := &VM{
		stack:        make([]value.Value, maxStackDepth),
		syms:         value.NewDict(),
		types:        make(map[string]*value.Prototype),
		translations: make(map[*value.BlockData]*value.Translation),
		Out:          os.Stdout,
	}
	vm.registry = NewRegistry()
	registerCorePrimitives(vm.registry)
	registerArithmeticPrimitives(vm.registry)
	registerComparisonPrimitives(vm.registry)
	registerCollectionsPrimitives(vm.registry)
	registerStringsPrimitives(vm.registry)
	registerTypesPrimitives(vm.registry)
	registerConvertersPrimitives(vm.registry)
	registerIoPrimitives(vm.registry)
	registerStorePrimitives(vm.registry)
	registerDatabasePrimitives(vm.registry)
	vm.registry.Seal()
	vm.installBuiltinSymbols()
	return vm
}

// installBuiltinSymbols binds every registered builtin as a function
// value so name lookup and the slow call path work uniformly.
func (vm *VM) installBuiltinSymbols() {
	for _, name := range vm.registry.Names() {
		b := vm.registry.Lookup(name)
		fn := &value.FunctionData{Native: b, Arity: b.Arity}
		vm.syms.Set(name, value.NewFunction(fn))
	}
}

// Registry exposes the (sealed) builtin registry.
func (vm *VM) Registry() *Registry { return vm.registry }

// RequestStop asks the dispatch loop to unwind cleanly after the
// current opcode completes.
func (vm *VM) RequestStop() { vm.stopRequested.Store(true) }

// ---------------------------------------------------------------------------
// Stack
// ---------------------------------------------------------------------------

func (vm *VM) push(v value.Value) error {
	if vm.sp >= len(vm.stack) {
		return newError(StackOverflow, "evaluation stack exceeded %d values", len(vm.stack))
	}
	vm.stack[vm.sp] = v
	vm.sp++
	return nil
}

func (vm *VM) pop() (value.Value, error) {
	if vm.sp == 0 {
		return value.NullV, newError(StackUnderflow, "pop from empty stack")
	}
	vm.sp--
	return vm.stack[vm.sp], nil
}

func (vm *VM) peek(depth int) (value.Value, error) {
	if vm.sp <= depth {
		return value.NullV, newError(StackUnderflow, "peek beyond stack depth")
	}
	return vm.stack[vm.sp-1-depth], nil
}

// StackDepth returns the current evaluation stack depth.
func (vm *VM) StackDepth() int { return vm.sp }

// TopValue returns the value on top of the stack without popping.
func (vm *VM) TopValue() (value.Value, bool) {
	if vm.sp == 0 {
		return value.NullV, false
	}
	return vm.stack[vm.sp-1], true
}

// ---------------------------------------------------------------------------
// Symbols
// ---------------------------------------------------------------------------

// Lookup resolves a symbol in the active scope.
func (vm *VM) Lookup(name string) (value.Value, bool) {
	return vm.syms.Get(name)
}

// Bind sets a symbol in the active scope.
func (vm *VM) Bind(name string, v value.Value) {
	vm.syms.Set(name, v)
}

// Unbind removes a symbol.
func (vm *VM) Unbind(name string) { vm.syms.Delete(name) }

// Prototype returns a registered user type.
func (vm *VM) Prototype(name string) (*value.Prototype, bool) {
	p, ok := vm.types[name]
	return p, ok
}

// registerPrototype creates-or-fetches the prototype for name; the
// registry owns every prototype until VM shutdown.
func (vm *VM) registerPrototype(name string) *value.Prototype {
	if p, ok := vm.types[name]; ok {
		return p
	}
	p := value.NewPrototype(name)
	vm.types[name] = p
	return p
}

// attr consumes a named attribute of the current call.
func (vm *VM) attr(name string) (value.Value, bool) {
	if vm.currentAttrs == nil {
		return value.NullV, false
	}
	v, ok := vm.currentAttrs[name]
	return v, ok
}

// attrIsSet reports whether a flag attribute was given and truthy.
func (vm *VM) attrIsSet(name string) bool {
	v, ok := vm.attr(name)
	return ok && v.IsTruthy()
}

// ---------------------------------------------------------------------------
// Public execution API
// ---------------------------------------------------------------------------

// Run parses, translates, and executes source text. The result (if the
// program leaves one) stays on the stack; callers inspect it with
// TopValue.
func (vm *VM) Run(source string) error {
	t, err := vm.TranslateSource(source)
	if err != nil {
		return err
	}
	return vm.ExecTranslation(t)
}

// RunBlock translates (with caching) and executes a block value in the
// current scope.
func (vm *VM) RunBlock(block value.Value) error {
	return vm.execBlockInline(block)
}

// ExecTranslation executes a compiled Translation in the current
// scope. The top level absorbs any stray control-flow flags.
func (vm *VM) ExecTranslation(t *value.Translation) error {
	err := vm.exec(t)
	vm.vmReturn, vm.vmBreak, vm.vmContinue = false, false, false
	return err
}

// CallFunction invokes a function value with explicit arguments; it
// implements value.Caller so printing and comparison hooks can call
// back into the VM.
func (vm *VM) CallFunction(fn *value.FunctionData, args []value.Value) (value.Value, error) {
	if !fn.IsBuiltin() && len(args) != len(fn.Params) {
		return value.NullV, newError(ArityMismatch,
			"expected %d arguments, got %d", len(fn.Params), len(args))
	}
	spBefore := vm.sp
	// Arguments go on right-to-left so the first is on top.
	for i := len(args) - 1; i >= 0; i-- {
		if err := vm.push(args[i]); err != nil {
			return value.NullV, err
		}
	}
	if err := vm.applyFunction(fn); err != nil {
		return value.NullV, err
	}
	if vm.sp <= spBefore {
		return value.NullV, nil
	}
	return vm.pop()
}

// EvalDictionary executes a block and captures its bindings as a
// dictionary; package manifests evaluate through this.
func (vm *VM) EvalDictionary(block value.Value) (*value.Dict, error) {
	return vm.execBlockAsDict(block)
}

// Printable renders v, delegating object hooks through the VM.
func (vm *VM) Printable(v value.Value) string {
	return value.Printable(v, vm)
}

// ---------------------------------------------------------------------------
// Dispatch loop
// ---------------------------------------------------------------------------

// flowBroken reports whether a control-flow flag is pending; the
// dispatch loop stops the current frame and lets the nearest absorbing
// construct handle it.
func (vm *VM) flowBroken() bool {
	return vm.vmReturn || vm.vmBreak || vm.vmContinue
}

// exec is the dispatch loop: one opcode at a time, operand width
// decoded from the opcode class.
func (vm *VM) exec(t *value.Translation) error {
	code := t.Instructions
	consts := t.Constants
	ip := 0

	readOperand := func(width int) int {
		v := 0
		for i := 0; i < width; i++ {
			v |= int(code[ip]) << (8 * i)
			ip++
		}
		return v
	}

	for ip < len(code) {
		if vm.stopRequested.Load() {
			return nil // synthetic end
		}
		op := OpCode(code[ip])
		ip++

		var err error
		switch {
		case op <= OpConstI15:
			err = vm.push(value.NewInteger(int64(op)))
		case op == OpConstIM1:
			err = vm.push(value.NewInteger(-1))
		case op == OpConstFM1:
			err = vm.push(value.NewFloating(-1))
		case op == OpConstF0:
			err = vm.push(value.NewFloating(0))
		case op == OpConstF1:
			err = vm.push(value.NewFloating(1))
		case op == OpConstF2:
			err = vm.push(value.NewFloating(2))
		case op == OpConstBT:
			err = vm.push(value.TrueV)
		case op == OpConstBF:
			err = vm.push(value.FalseV)
		case op == OpConstN:
			err = vm.push(value.NullV)

		case op >= OpPush0 && op <= OpPushX:
			idx := vm.indexedOperand(op, OpPush0, code, &ip)
			if idx >= len(consts) {
				err = newError(IndexOutOfBounds, "constant index %d out of range", idx)
			} else {
				err = vm.push(consts[idx])
			}

		case op >= OpStore0 && op <= OpStoreX:
			idx := vm.indexedOperand(op, OpStore0, code, &ip)
			err = vm.opStore(consts, idx, true)

		case op >= OpLoad0 && op <= OpLoadX:
			idx := vm.indexedOperand(op, OpLoad0, code, &ip)
			err = vm.opLoad(consts, idx)

		case op >= OpCall0 && op <= OpCallX:
			idx := vm.indexedOperand(op, OpCall0, code, &ip)
			err = vm.opCall(consts, idx)

		case op >= OpStorl0 && op <= OpStorlX:
			idx := vm.indexedOperand(op, OpStorl0, code, &ip)
			err = vm.opStore(consts, idx, false)

		case op >= OpAttr0 && op <= OpAttrX:
			idx := vm.indexedOperand(op, OpAttr0, code, &ip)
			err = vm.opAttr(consts, idx)

		case op == OpEol:
			vm.currentLine = readOperand(2)

		case op == OpRet, op == OpEnd:
			return nil

		case op == OpGoto:
			ip += readOperand(1)
		case op == OpGotoX:
			ip += readOperand(2)
		case op == OpGoup:
			ip -= readOperand(1)
		case op == OpGoupX:
			ip -= readOperand(2)

		case op >= OpJmpIf && op <= OpJmpIfLeX:
			err = vm.opConditionalJump(op, code, &ip)

		case op == OpToS, op == OpToI:
			var v, res value.Value
			if v, err = vm.pop(); err == nil {
				target := value.NewType(value.String)
				if op == OpToI {
					target = value.NewType(value.Integer)
				}
				if res, err = vm.Convert(v, target, ""); err == nil {
					err = vm.push(res)
				}
			}

		default:
			err = vm.execSimple(op)
		}

		if err != nil {
			return vm.decorate(err)
		}
		if vm.flowBroken() {
			return nil
		}
	}
	return nil
}

// indexedOperand decodes the constants-pool index of a short, plain,
// or extended indexed opcode.
func (vm *VM) indexedOperand(op, base OpCode, code []byte, ip *int) int {
	switch op {
	case base + shortFormSpan: // plain: one operand byte
		idx := int(code[*ip])
		*ip += 1
		return idx
	case base + shortFormSpan + 1: // extended: two operand bytes
		idx := int(code[*ip]) | int(code[*ip+1])<<8
		*ip += 2
		return idx
	default:
		return int(op - base)
	}
}

// decorate stamps the current source line onto a runtime error that
// does not carry one yet.
func (vm *VM) decorate(err error) error {
	if re, ok := err.(*RuntimeError); ok && re.Line == 0 {
		re.Line = vm.currentLine
	}
	return err
}

// ---------------------------------------------------------------------------
// Indexed operations
// ---------------------------------------------------------------------------

func symbolName(consts []value.Value, idx int) (string, error) {
	if idx >= len(consts) {
		return "", newError(IndexOutOfBounds, "constant index %d out of range", idx)
	}
	return consts[idx].Str, nil
}

func (vm *VM) opStore(consts []value.Value, idx int, popValue bool) error {
	name, err := symbolName(consts, idx)
	if err != nil {
		return err
	}
	var v value.Value
	if popValue {
		if v, err = vm.pop(); err != nil {
			return err
		}
	} else {
		if v, err = vm.peek(0); err != nil {
			return err
		}
	}
	vm.Bind(name, v)
	return nil
}

func (vm *VM) opLoad(consts []value.Value, idx int) error {
	name, err := symbolName(consts, idx)
	if err != nil {
		return err
	}
	v, ok := vm.Lookup(name)
	if !ok {
		return newError(SymbolNotFound, "undefined symbol: %s", name)
	}
	return vm.push(v)
}

// opCall resolves a symbol at call time: function values are invoked,
// anything else is pushed (the bare-word ambiguity is decided here).
func (vm *VM) opCall(consts []value.Value, idx int) error {
	name, err := symbolName(consts, idx)
	if err != nil {
		return err
	}
	v, ok := vm.Lookup(name)
	if !ok {
		return newError(SymbolNotFound, "undefined symbol: %s", name)
	}
	if v.Kind == value.Function {
		return vm.applyFunction(v.Fn)
	}
	return vm.push(v)
}

func (vm *VM) opAttr(consts []value.Value, idx int) error {
	name, err := symbolName(consts, idx)
	if err != nil {
		return err
	}
	v, err := vm.pop()
	if err != nil {
		return err
	}
	if vm.pendingAttrs == nil {
		vm.pendingAttrs = make(map[string]value.Value, 2)
	}
	vm.pendingAttrs[name] = v
	return nil
}

func (vm *VM) opConditionalJump(op OpCode, code []byte, ip *int) error {
	width := 1
	base := op
	if (byte(op)-byte(OpJmpIf))%2 == 1 {
		width = 2
		base = op - 1
	}
	offset := 0
	for i := 0; i < width; i++ {
		offset |= int(code[*ip]) << (8 * i)
		*ip += 1
	}

	var jump bool
	switch base {
	case OpJmpIf, OpJmpIfNot:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		jump = v.IsTruthy() == (base == OpJmpIf)
	default:
		b, err := vm.pop()
		if err != nil {
			return err
		}
		a, err := vm.pop()
		if err != nil {
			return err
		}
		switch base {
		case OpJmpIfEq:
			jump = value.Equals(a, b)
		case OpJmpIfNe:
			jump = !value.Equals(a, b)
		default:
			c, ok := value.Compare(a, b, vm)
			if !ok {
				return newError(TypeMismatch, "cannot compare :%s with :%s", a.Kind, b.Kind)
			}
			switch base {
			case OpJmpIfGt:
				jump = c == value.Greater
			case OpJmpIfGe:
				jump = c != value.Less
			case OpJmpIfLt:
				jump = c == value.Less
			case OpJmpIfLe:
				jump = c != value.Greater
			}
		}
	}
	if jump {
		*ip += offset
	}
	return nil
}

// ---------------------------------------------------------------------------
// Function application
// ---------------------------------------------------------------------------

// applyFunction invokes a function whose arguments are already on the
// stack, first argument on top.
func (vm *VM) applyFunction(fn *value.FunctionData) error {
	if fn.IsBuiltin() {
		return vm.applyBuiltin(fn.Native.(*Builtin))
	}
	return vm.applyUserFunction(fn)
}

// applyBuiltin runs a native routine, enforcing the declared argument
// variants first. On error the stack depth is restored to what it was
// when the builtin was entered.
func (vm *VM) applyBuiltin(b *Builtin) error {
	if vm.sp < b.Arity {
		return newError(StackUnderflow,
			"%s expects %d arguments, stack holds %d", b.Name, b.Arity, vm.sp)
	}
	for i, accepted := range b.ArgKinds {
		if len(accepted) == 0 {
			continue
		}
		arg := vm.stack[vm.sp-1-i]
		if !kindAccepted(arg.Kind, accepted) {
			return newError(TypeMismatch,
				"%s: argument %d is :%s, expected %s", b.Name, i+1, arg.Kind, kindsLabel(accepted))
		}
	}

	savedAttrs := vm.currentAttrs
	vm.currentAttrs = vm.pendingAttrs
	vm.pendingAttrs = nil

	spBefore := vm.sp
	err := b.Fn(vm)
	if err != nil {
		vm.sp = spBefore
	}
	vm.currentAttrs = savedAttrs
	return err
}

// applyUserFunction implements the user-function calling convention:
// pop and bind arguments, merge imports, execute the (cached) body
// translation in a child scope, absorb the return flag, and propagate
// exports back to the caller's scope.
func (vm *VM) applyUserFunction(fn *value.FunctionData) error {
	if vm.callDepth >= maxCallDepth {
		return newError(StackOverflow, "call depth exceeded %d frames", maxCallDepth)
	}
	if vm.sp < len(fn.Params) {
		return newError(StackUnderflow,
			"function expects %d arguments, stack holds %d", len(fn.Params), vm.sp)
	}

	args := make([]value.Value, len(fn.Params))
	for i := range fn.Params {
		v, err := vm.pop()
		if err != nil {
			return err
		}
		args[i] = v
	}

	for i, p := range fn.Params {
		if accepted, ok := fn.Constraints[p]; ok && !kindAccepted(args[i].Kind, accepted) {
			return newError(TypeMismatch,
				"argument %s is :%s, expected %s", p, args[i].Kind, kindsLabel(accepted))
		}
	}

	var memoKey string
	if fn.Memoize {
		memoKey = memoizeKey(args)
		if cached, ok := fn.MemoCache[memoKey]; ok {
			return vm.push(cached)
		}
	}
	spBase := vm.sp

	t, err := vm.translationFor(fn)
	if err != nil {
		return err
	}

	if fn.Inline {
		// Inline functions skip the child scope: parameters bind
		// directly in the caller's scope.
		for i, p := range fn.Params {
			vm.Bind(p, args[i])
		}
		vm.callDepth++
		err = vm.exec(t)
		vm.callDepth--
		vm.vmReturn = false
		return err
	}

	snapshot := vm.syms.Clone()
	for i, p := range fn.Params {
		vm.Bind(p, args[i])
	}
	if fn.Imports != nil {
		vm.syms.Merge(fn.Imports)
	}

	vm.callDepth++
	err = vm.exec(t)
	vm.callDepth--
	vm.vmReturn = false // the function frame absorbs return

	// Assignments to symbols that already existed in the caller merge
	// back; parameters, imports, and new bindings stay local unless
	// named in the export list.
	shadowed := make(map[string]bool, len(fn.Params))
	for _, p := range fn.Params {
		shadowed[p] = true
	}
	if fn.Imports != nil {
		for _, k := range fn.Imports.Keys() {
			shadowed[k] = true
		}
	}
	for _, k := range snapshot.Keys() {
		if shadowed[k] {
			continue
		}
		if v, ok := vm.syms.Get(k); ok {
			snapshot.Set(k, v)
		}
	}
	for _, name := range fn.Exports {
		if v, ok := vm.syms.Get(name); ok {
			snapshot.Set(name, v)
		}
	}
	vm.syms = snapshot

	if err != nil {
		return err
	}

	if fn.Memoize && vm.sp > spBase {
		if top, ok := vm.TopValue(); ok {
			if fn.MemoCache == nil {
				fn.MemoCache = make(map[string]value.Value)
			}
			fn.MemoCache[memoKey] = top
		}
	}
	return nil
}

func memoizeKey(args []value.Value) string {
	key := ""
	for _, a := range args {
		key += value.Hashable(a) + "\x1f"
	}
	return key
}

// translationFor returns the cached body translation of a function,
// translating on first invocation.
func (vm *VM) translationFor(fn *value.FunctionData) (*value.Translation, error) {
	if fn.Compiled != nil {
		return fn.Compiled, nil
	}
	t, err := vm.TranslateBlock(fn.Body)
	if err != nil {
		return nil, err
	}
	fn.Compiled = t
	return t, nil
}

// blockTranslation returns the cached translation of a plain block.
func (vm *VM) blockTranslation(block value.Value) (*value.Translation, error) {
	if !block.IsBlockish() {
		return nil, newError(TypeMismatch, "expected :block, got :%s", block.Kind)
	}
	if t, ok := vm.translations[block.Blk]; ok {
		return t, nil
	}
	t, err := vm.TranslateBlock(block)
	if err != nil {
		return nil, err
	}
	vm.translations[block.Blk] = t
	return t, nil
}

// ---------------------------------------------------------------------------
// Block execution discipline
// ---------------------------------------------------------------------------

// execBlockInline runs a block in the caller's scope; every binding it
// makes propagates.
func (vm *VM) execBlockInline(block value.Value) error {
	t, err := vm.blockTranslation(block)
	if err != nil {
		return err
	}
	return vm.exec(t)
}

// execBlockScoped snapshots the scope, runs the block, and merges back
// only symbols that already existed in the parent.
func (vm *VM) execBlockScoped(block value.Value) error {
	t, err := vm.blockTranslation(block)
	if err != nil {
		return err
	}
	snapshot := vm.syms.Clone()
	execErr := vm.exec(t)
	for _, k := range snapshot.Keys() {
		if v, ok := vm.syms.Get(k); ok {
			snapshot.Set(k, v)
		}
	}
	vm.syms = snapshot
	return execErr
}

// execBlockWithArgs binds names for the duration of the block and
// restores them afterwards; used by the iteration builtins.
func (vm *VM) execBlockWithArgs(block value.Value, names []string, vals []value.Value) error {
	t, err := vm.blockTranslation(block)
	if err != nil {
		return err
	}
	saved := make([]value.Value, len(names))
	present := make([]bool, len(names))
	for i, n := range names {
		saved[i], present[i] = vm.syms.Get(n)
		vm.Bind(n, vals[i])
	}
	execErr := vm.exec(t)
	for i, n := range names {
		if present[i] {
			vm.Bind(n, saved[i])
		} else {
			vm.Unbind(n)
		}
	}
	return execErr
}

// execBlockAsDict runs a block and captures every symbol newly
// introduced or changed relative to the snapshot as a dictionary.
func (vm *VM) execBlockAsDict(block value.Value) (*value.Dict, error) {
	t, err := vm.blockTranslation(block)
	if err != nil {
		return nil, err
	}
	snapshot := vm.syms.Clone()
	execErr := vm.exec(t)
	captured := value.NewDict()
	for _, k := range vm.syms.Keys() {
		cur, _ := vm.syms.Get(k)
		old, existed := snapshot.Get(k)
		if !existed || !value.Equals(old, cur) {
			captured.Set(k, cur)
		}
	}
	vm.syms = snapshot
	return captured, execErr
}

// execBlockCollect runs a block in the caller's scope and returns the
// values it left on the stack, in push order.
func (vm *VM) execBlockCollect(block value.Value) ([]value.Value, error) {
	t, err := vm.blockTranslation(block)
	if err != nil {
		return nil, err
	}
	spBefore := vm.sp
	if err := vm.exec(t); err != nil {
		vm.sp = spBefore
		return nil, err
	}
	if vm.sp < spBefore {
		return nil, newError(StackUnderflow, "block consumed surrounding stack values")
	}
	out := make([]value.Value, vm.sp-spBefore)
	copy(out, vm.stack[spBefore:vm.sp])
	vm.sp = spBefore
	return out, nil
}

// ---------------------------------------------------------------------------
// Error rendering
// ---------------------------------------------------------------------------

// FormatError renders err the way the CLI reports failures: the kind's
// human name, the message, and the position when available.
func FormatError(err error, color bool) string {
	prefix := ">>"
	if color {
		prefix = "\x1b[31m>>\x1b[0m"
	}
	if re, ok := err.(*RuntimeError); ok {
		return fmt.Sprintf("%s %s: %s%s", prefix, re.Kind, re.Msg, lineSuffix(re.Line))
	}
	return fmt.Sprintf("%s Runtime Error: %v", prefix, err)
}

func lineSuffix(line int) string {
	if line > 0 {
		return fmt.Sprintf(" (line %d)", line)
	}
	return ""
}
