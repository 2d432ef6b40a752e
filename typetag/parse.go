package typetag

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gostdlib/base/context"
	"github.com/johnsiilver/halfpike"
)

// Parse parses the form Canonical and String produce, such as
// "0x1::coin::CoinStore<0x1::aptos_coin::AptosCoin>". Whitespace between tokens is ignored and
// "T<n>" parses as Param(n), which lets declarations be written as strings.
func Parse(s string) (Tag, error) {
	p := &tagParser{}
	if err := halfpike.Parse(context.Background(), spaceTokens(s), p); err != nil {
		return nil, fmt.Errorf("type tag %q: %w", s, err)
	}
	return p.tag, nil
}

// MustParse is Parse that panics on error. It is meant for static declaration tables.
func MustParse(s string) Tag {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseStruct parses s and requires the result to be a Struct.
func ParseStruct(s string) (Struct, error) {
	t, err := Parse(s)
	if err != nil {
		return Struct{}, err
	}
	st, ok := t.(Struct)
	if !ok {
		return Struct{}, fmt.Errorf("type tag %q is a %T, not a struct", s, t)
	}
	return st, nil
}

// spaceTokens puts whitespace around the punctuation so the halfpike lexer yields one item per
// token. Newlines are flattened, a tag is always a single line.
func spaceTokens(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 2)
	for _, r := range s {
		switch r {
		case '<', '>', ',':
			b.WriteByte(' ')
			b.WriteRune(r)
			b.WriteByte(' ')
		case '\n', '\r', '\t':
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// tagParser is a halfpike ParseObject. Start lexes the input into tokens and the ParseFn steps
// consume them one at a time. Open vectors and struct argument lists are kept on a stack.
type tagParser struct {
	toks  []string
	pos   int
	stack []*frame

	tag Tag
}

// frame is a vector or a struct whose type arguments are still being parsed.
type frame struct {
	vector bool
	elem   Tag
	st     Struct
}

// Validate implements halfpike.Validator.
func (p *tagParser) Validate() error {
	if p.tag == nil {
		return fmt.Errorf("no type parsed")
	}
	return nil
}

// Start collects the tokens of every line.
func (p *tagParser) Start(ctx context.Context, hp *halfpike.Parser) halfpike.ParseFn {
	for {
		line := hp.Next()
		for _, item := range line.Items {
			if v := strings.TrimSpace(item.Val); v != "" {
				p.toks = append(p.toks, v)
			}
		}
		if hp.EOF(line) {
			break
		}
	}

	if len(p.toks) == 0 {
		return hp.Errorf("empty type tag")
	}
	return p.parseType
}

// parseType reads the start of one type.
func (p *tagParser) parseType(ctx context.Context, hp *halfpike.Parser) halfpike.ParseFn {
	tok, ok := p.next()
	if !ok {
		return hp.Errorf("unexpected end of type tag")
	}

	if a, ok := AtomicByName(tok); ok {
		return p.reduce(a)
	}
	if tok == "vector" {
		if open, _ := p.next(); open != "<" {
			return hp.Errorf("got %q after vector, want '<'", open)
		}
		p.stack = append(p.stack, &frame{vector: true})
		return p.parseType
	}
	if param, ok := parseParam(tok); ok {
		return p.reduce(param)
	}

	st, err := parseIdent(tok)
	if err != nil {
		return hp.Errorf("%w", err)
	}
	if p.peek() == "<" {
		p.pos++
		p.stack = append(p.stack, &frame{st: st})
		return p.parseType
	}
	return p.reduce(st)
}

// reduce hands a finished type to the innermost open frame, or makes it the result.
func (p *tagParser) reduce(t Tag) halfpike.ParseFn {
	if len(p.stack) == 0 {
		p.tag = t
		return p.parseEnd
	}
	top := p.stack[len(p.stack)-1]
	if top.vector {
		top.elem = t
		return p.closeVector
	}
	top.st.Args = append(top.st.Args, t)
	return p.parseArgSep
}

func (p *tagParser) closeVector(ctx context.Context, hp *halfpike.Parser) halfpike.ParseFn {
	top := p.pop()
	if tok, _ := p.next(); tok != ">" {
		return hp.Errorf("got %q closing vector<%s>, want '>'", tok, top.elem)
	}
	return p.reduce(Vector{Elem: top.elem})
}

// parseArgSep reads the separator after a struct's type argument.
func (p *tagParser) parseArgSep(ctx context.Context, hp *halfpike.Parser) halfpike.ParseFn {
	top := p.stack[len(p.stack)-1]
	sep, ok := p.next()
	switch {
	case !ok:
		return hp.Errorf("unterminated type arguments of %s", top.st.Ident)
	case sep == ",":
		return p.parseType
	case sep == ">":
		p.pop()
		return p.reduce(top.st)
	}
	return hp.Errorf("got %q in type arguments of %s, want ',' or '>'", sep, top.st.Ident)
}

func (p *tagParser) parseEnd(ctx context.Context, hp *halfpike.Parser) halfpike.ParseFn {
	if p.pos != len(p.toks) {
		return hp.Errorf("unexpected %q after %s", p.toks[p.pos], p.tag)
	}
	return nil
}

func (p *tagParser) peek() string {
	if p.pos >= len(p.toks) {
		return ""
	}
	return p.toks[p.pos]
}

func (p *tagParser) next() (string, bool) {
	if p.pos >= len(p.toks) {
		return "", false
	}
	t := p.toks[p.pos]
	p.pos++
	return t, true
}

func (p *tagParser) pop() *frame {
	top := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	return top
}

// parseIdent parses "address::module::name".
func parseIdent(tok string) (Struct, error) {
	parts := strings.Split(tok, "::")
	if len(parts) != 3 {
		return Struct{}, fmt.Errorf("%q is not a type: want address::module::name", tok)
	}
	addr, err := NormalizeAddress(parts[0])
	if err != nil {
		return Struct{}, err
	}
	for _, ident := range parts[1:] {
		if err := validIdent(ident); err != nil {
			return Struct{}, fmt.Errorf("%q: %w", tok, err)
		}
	}
	return Struct{Ident: Ident{Address: addr, Module: parts[1], Name: parts[2]}}, nil
}

// parseParam recognizes "T0", "T1", ...
func parseParam(tok string) (Param, bool) {
	if len(tok) < 2 || tok[0] != 'T' {
		return Param{}, false
	}
	n, err := strconv.ParseUint(tok[1:], 10, 32)
	if err != nil {
		return Param{}, false
	}
	return Param{Index: uint32(n)}, true
}

func validIdent(s string) error {
	if s == "" {
		return fmt.Errorf("empty identifier")
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return fmt.Errorf("identifier %q contains invalid character %q", s, r)
		}
	}
	return nil
}
