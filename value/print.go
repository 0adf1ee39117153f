package value

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Printable: human-facing rendering
// ---------------------------------------------------------------------------

// Printable renders v the way print shows it. Objects delegate to the
// doPrint hook when one is installed and a caller is available.
func Printable(v Value, caller Caller) string {
	switch v.Kind {
	case Null, Nothing:
		return "null"
	case Logical:
		if v.Int != 0 {
			return "true"
		}
		return "false"
	case Integer:
		if v.Big != nil {
			return v.Big.String()
		}
		return strconv.FormatInt(v.Int, 10)
	case Floating:
		return formatFloat(v.Flt)
	case Complex:
		return strconv.FormatComplex(v.Cpx, 'f', -1, 128)
	case Rational:
		return v.Rat.RatString()
	case Version:
		return versionString(v.Ver)
	case Type:
		return ":" + v.Str
	case Char:
		return string(rune(v.Int))
	case String, Word, Literal, Symbol, SymbolLiteral, Unit, Regex:
		return v.Str
	case Label, PathLabel:
		return v.Str + ":"
	case Attribute:
		return "." + v.Str
	case AttributeLabel:
		return "." + v.Str + ":"
	case Path, PathLiteral:
		return v.Str
	case Color:
		return v.Col.Hex()
	case Date:
		return v.Dt.Format(time.RFC3339)
	case Quantity:
		return Printable(v.Qty.Amount, caller) + "`" + v.Qty.Unit
	case Binary:
		var sb strings.Builder
		for i, b := range v.Bin {
			if i > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%02X", b)
		}
		return sb.String()
	case Inline, Block:
		parts := make([]string, len(v.Elems()))
		for i, e := range v.Elems() {
			parts[i] = Printable(e, caller)
		}
		return "[" + strings.Join(parts, " ") + "]"
	case Range:
		return rangeSource(v.Rng)
	case Dictionary:
		return dictPrintable(v.Dct, caller)
	case Object:
		if v.Obj.Proto != nil && v.Obj.Proto.DoPrint != nil && caller != nil {
			if res, err := caller.CallFunction(v.Obj.Proto.DoPrint, []Value{v}); err == nil {
				return Printable(res, caller)
			}
		}
		return dictPrintable(v.Obj.Members, caller)
	case Function:
		if v.Fn.IsBuiltin() {
			return "<builtin>"
		}
		return Codify(v, false, false, false)
	case Bytecode:
		return fmt.Sprintf("<bytecode: %d constants, %d bytes>",
			len(v.Bc.Constants), len(v.Bc.Instructions))
	case Store:
		return "<store: " + v.Str + ">"
	case Database:
		return "<database: " + v.Str + ">"
	case Socket:
		return "<socket>"
	case Any:
		return ":any"
	}
	return ""
}

func dictPrintable(d *Dict, caller Caller) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, k := range d.Keys() {
		if i > 0 {
			sb.WriteByte(' ')
		}
		_, val := d.At(i)
		sb.WriteString(k)
		sb.WriteByte(':')
		sb.WriteString(Printable(val, caller))
	}
	sb.WriteByte(']')
	return sb.String()
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eInfNa") {
		s += ".0"
	}
	return s
}

func versionString(v *VersionInfo) string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Extra != "" {
		s += v.Extra
	}
	return s
}

func rangeSource(r *RangeData) string {
	from := strconv.FormatInt(r.Start, 10)
	var to string
	if r.Infinite {
		to = "∞"
	} else {
		to = strconv.FormatInt(r.Stop, 10)
	}
	if !r.Numeric {
		from = "`" + string(rune(r.Start)) + "`"
		to = "`" + string(rune(r.Stop)) + "`"
	}
	if r.Step != 1 {
		return fmt.Sprintf("(range .step:%d %s %s)", r.Step, from, to)
	}
	return from + ".." + to
}

// ---------------------------------------------------------------------------
// Codify: round-trippable source rendering
// ---------------------------------------------------------------------------

// Codify renders v as parseable source. pretty inserts newlines and
// indentation for nested blocks; unwrapped omits the outer brackets of
// a root block; safeStrings switches strings containing quotes or
// newlines to the verbatim {...} form.
func Codify(v Value, pretty, unwrapped, safeStrings bool) string {
	var sb strings.Builder
	codifyInto(&sb, v, pretty, unwrapped, safeStrings, 0)
	return sb.String()
}

func codifyInto(sb *strings.Builder, v Value, pretty, unwrapped, safeStrings bool, depth int) {
	switch v.Kind {
	case Null, Nothing:
		sb.WriteString("null")
	case Logical:
		if v.Int != 0 {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case Integer, Floating, Complex, Rational, Version, Color:
		sb.WriteString(Printable(v, nil))
	case Char:
		sb.WriteByte('`')
		sb.WriteString(string(rune(v.Int)))
		sb.WriteByte('`')
	case String:
		codifyString(sb, v.Str, safeStrings)
	case Word, Symbol, Path:
		sb.WriteString(v.Str)
	case Literal, PathLiteral:
		sb.WriteByte('\'')
		sb.WriteString(v.Str)
	case SymbolLiteral:
		sb.WriteByte('\'')
		sb.WriteString(v.Str)
	case Label, PathLabel:
		sb.WriteString(v.Str)
		sb.WriteByte(':')
	case Attribute:
		sb.WriteByte('.')
		sb.WriteString(v.Str)
	case AttributeLabel:
		sb.WriteByte('.')
		sb.WriteString(v.Str)
		sb.WriteByte(':')
	case Type:
		sb.WriteByte(':')
		sb.WriteString(v.Str)
	case Regex:
		sb.WriteString("{/")
		sb.WriteString(v.Str)
		sb.WriteString("/}")
	case Unit:
		sb.WriteByte('`')
		sb.WriteString(v.Str)
	case Date:
		codifyString(sb, v.Dt.Format(time.RFC3339), false)
	case Quantity:
		codifyInto(sb, v.Qty.Amount, pretty, false, safeStrings, depth)
		sb.WriteByte('`')
		sb.WriteString(v.Qty.Unit)
	case Binary:
		sb.WriteString("to :binary [")
		for i, b := range v.Bin {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(strconv.Itoa(int(b)))
		}
		sb.WriteByte(']')
	case Range:
		sb.WriteString(rangeSource(v.Rng))
	case Inline:
		codifyBlock(sb, v.Elems(), "(", ")", pretty, safeStrings, depth)
	case Block:
		if unwrapped {
			codifyElems(sb, v.Elems(), pretty, safeStrings, depth)
		} else {
			codifyBlock(sb, v.Elems(), "[", "]", pretty, safeStrings, depth)
		}
	case Dictionary:
		sb.WriteByte('#')
		elems := make([]Value, 0, v.Dct.Len()*2)
		for i, k := range v.Dct.Keys() {
			_, val := v.Dct.At(i)
			elems = append(elems, NewLabel(k), val)
		}
		codifyBlock(sb, elems, "[", "]", pretty, safeStrings, depth)
	case Object:
		sb.WriteString("to :")
		sb.WriteString(v.Obj.Proto.Name)
		sb.WriteByte(' ')
		fields := make([]Value, 0, len(v.Obj.Proto.Fields))
		for _, f := range v.Obj.Proto.Fields {
			fv, _ := v.Obj.Members.Get(f)
			fields = append(fields, fv)
		}
		codifyBlock(sb, fields, "[", "]", pretty, safeStrings, depth)
	case Function:
		sb.WriteString("function ")
		params := make([]Value, len(v.Fn.Params))
		for i, p := range v.Fn.Params {
			params[i] = NewWord(p)
		}
		codifyBlock(sb, params, "[", "]", pretty, safeStrings, depth)
		sb.WriteByte(' ')
		codifyInto(sb, v.Fn.Body, pretty, false, safeStrings, depth)
	case Bytecode:
		sb.WriteString("<bytecode>")
	default:
		sb.WriteString(Printable(v, nil))
	}
}

func codifyBlock(sb *strings.Builder, elems []Value, open, close string, pretty, safeStrings bool, depth int) {
	sb.WriteString(open)
	if pretty && len(elems) > 0 {
		sb.WriteByte('\n')
		sb.WriteString(strings.Repeat("\t", depth+1))
	}
	codifyElems(sb, elems, pretty, safeStrings, depth+1)
	if pretty && len(elems) > 0 {
		sb.WriteByte('\n')
		sb.WriteString(strings.Repeat("\t", depth))
	}
	sb.WriteString(close)
}

func codifyElems(sb *strings.Builder, elems []Value, pretty, safeStrings bool, depth int) {
	for i, e := range elems {
		if i > 0 {
			sb.WriteByte(' ')
		}
		codifyInto(sb, e, pretty, false, safeStrings, depth)
	}
}

func codifyString(sb *strings.Builder, s string, safeStrings bool) {
	if safeStrings && strings.ContainsAny(s, "\"\n") && !strings.ContainsAny(s, "{}") {
		sb.WriteByte('{')
		sb.WriteString(s)
		sb.WriteByte('}')
		return
	}
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString("\\\"")
		case '\\':
			sb.WriteString("\\\\")
		case '\n':
			sb.WriteString("\\n")
		case '\t':
			sb.WriteString("\\t")
		case '\r':
			sb.WriteString("\\r")
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
}

// bigFromString parses an arbitrary-precision integer literal; used by
// the parser and the conversion engine.
func bigFromString(s string) (*big.Int, bool) {
	b, ok := new(big.Int).SetString(s, 10)
	return b, ok
}

// ParseIntegerText converts decimal text to an Integer value, promoting
// to the big sub-kind when the literal exceeds a machine word. The
// second result is false when the text is not a valid integer.
func ParseIntegerText(s string) (Value, bool) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return NewInteger(i), true
	}
	if b, ok := bigFromString(s); ok {
		return Value{Kind: Integer, Big: b}, true
	}
	return NullV, false
}
