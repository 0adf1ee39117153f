package parser

import (
	"github.com/moeinimoein/arturo/value"
)

// ---------------------------------------------------------------------------
// Parser: token stream -> root block value
// ---------------------------------------------------------------------------

// Parse converts source text into a root block value. The root block is
// ordinary data; translation to bytecode happens later.
func Parse(source string) (value.Value, error) {
	p := &Parser{lex: NewLexer(source)}
	if err := p.advance(); err != nil {
		return value.NullV, err
	}
	elems, err := p.parseSequence(tkEOF)
	if err != nil {
		return value.NullV, err
	}
	return value.NewBlockFrom(elems), nil
}

// ParseOne parses source expected to contain a single value and returns
// it; a root block with one element unwraps.
func ParseOne(source string) (value.Value, error) {
	root, err := Parse(source)
	if err != nil {
		return value.NullV, err
	}
	if elems := root.Elems(); len(elems) == 1 {
		return elems[0], nil
	}
	return root, nil
}

// Parser builds block values from a token stream.
type Parser struct {
	lex *Lexer
	tok token
}

func (p *Parser) advance() *Error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

// parseSequence consumes values until the closing token kind, which is
// itself consumed. Closers other than the expected one are an error.
func (p *Parser) parseSequence(until tokenKind) ([]value.Value, *Error) {
	var elems []value.Value
	for {
		switch p.tok.kind {
		case until:
			if until != tkEOF {
				if err := p.advance(); err != nil {
					return nil, err
				}
			}
			return elems, nil

		case tkEOF:
			return nil, &Error{Pos: p.tok.pos, Msg: "unterminated block"}

		case tkCloseBlock, tkCloseInline:
			return nil, &Error{Pos: p.tok.pos, Msg: "unexpected closing bracket"}

		default:
			v, err := p.parseValue()
			if err != nil {
				return nil, err
			}
			elems = append(elems, v)
		}
	}
}

// parseValue consumes exactly one value (possibly a nested block).
func (p *Parser) parseValue() (value.Value, *Error) {
	pos := p.tok.pos
	line := int32(pos.Line)

	switch p.tok.kind {
	case tkOpenBlock:
		if err := p.advance(); err != nil {
			return value.NullV, err
		}
		elems, err := p.parseSequence(tkCloseBlock)
		if err != nil {
			return value.NullV, err
		}
		v := value.NewBlockFrom(elems)
		v.Line = line
		return v, nil

	case tkOpenInline:
		if err := p.advance(); err != nil {
			return value.NullV, err
		}
		elems, err := p.parseSequence(tkCloseInline)
		if err != nil {
			return value.NullV, err
		}
		v := value.NewInline(elems)
		v.Line = line
		return v, nil

	case tkDictOpen:
		return p.parseSugaredBlock("dictionary", line)

	case tkArrayOpen:
		return p.parseSugaredBlock("array", line)

	case tkFuncOpen:
		// $[params][body] reads as a function-constructing block: the
		// marker becomes the function word, the two blocks follow as
		// its arguments.
		if err := p.advance(); err != nil {
			return value.NullV, err
		}
		w := value.NewWord("function")
		w.Line = line
		return w, nil

	case tkValue, tkWordish:
		v := p.tok.val
		if err := p.advance(); err != nil {
			return value.NullV, err
		}
		return v, nil

	default:
		return value.NullV, &Error{Pos: pos, Msg: "unexpected token"}
	}
}

// parseSugaredBlock handles #[...] and @[...]: the block parses as
// usual and the producing word is prefixed, so the evaluator sees an
// ordinary call.
func (p *Parser) parseSugaredBlock(word string, line int32) (value.Value, *Error) {
	if err := p.advance(); err != nil {
		return value.NullV, err
	}
	elems, err := p.parseSequence(tkCloseBlock)
	if err != nil {
		return value.NullV, err
	}
	blk := value.NewBlockFrom(elems)
	blk.Line = line
	w := value.NewWord(word)
	w.Line = line
	inner := value.NewInline([]value.Value{w, blk})
	inner.Line = line
	return inner, nil
}
