package parser

import (
	"funee/internal/lexer"
)

// The bundler reads a typed surface language but never checks types, so
// everything in this file consumes annotations without building nodes.

// skipTypeAnnotation consumes `: T` if present.
func (p *Parser) skipTypeAnnotation() {
	if p.match(":") {
		p.skipType()
	}
}

// skipTypeParams consumes `<T, U extends V>` if present.
func (p *Parser) skipTypeParams() {
	if p.check("<") {
		p.skipTypeArgs()
	}
}

// skipTypeArgsIfPresent consumes `<...>` after an extends clause.
func (p *Parser) skipTypeArgsIfPresent() {
	if p.check("<") {
		p.skipTypeArgs()
	}
}

// skipTypeArgs consumes a balanced <...> run. The lexer can emit >> and
// >>> as single tokens, so closing counts by character.
func (p *Parser) skipTypeArgs() {
	depth := 0
	for !p.isAtEnd() {
		tok := p.advance()
		if tok.Kind != lexer.PUNCT_TOKEN {
			continue
		}
		switch tok.Text {
		case "<", "<<":
			depth += len(tok.Text)
		case ">", ">>", ">>>":
			depth -= len(tok.Text)
		case ">=":
			depth--
		}
		if depth <= 0 {
			return
		}
	}
}

// skipType consumes one type expression: unions/intersections of
// primaries with conditional-type tails.
func (p *Parser) skipType() {
	p.match("|") // leading pipe in multi-line unions
	p.skipTypePrimary()
	for {
		if p.match("|") || p.match("&") {
			p.skipTypePrimary()
			continue
		}
		if p.check("extends") {
			p.advance()
			p.skipTypePrimary()
			if p.match("?") {
				p.skipType()
				if p.match(":") {
					p.skipType()
				}
			}
			continue
		}
		break
	}
}

func (p *Parser) skipTypePrimary() {
	for p.match("keyof", "typeof", "readonly", "infer", "unique", "new", "abstract") {
	}

	switch {
	case p.check("("):
		p.skipBalanced("(", ")")
		if p.match("=>") {
			p.skipType()
		}
	case p.check("{"):
		p.skipBalanced("{", "}")
	case p.check("["):
		p.skipBalanced("[", "]")
	case p.check("<"):
		// generic function type <T>(x: T) => T
		p.skipTypeArgs()
		p.skipTypePrimary()
		return
	case p.peek().Kind == lexer.IDENT_TOKEN ||
		p.peek().Kind == lexer.NUMBER_TOKEN ||
		p.peek().Kind == lexer.STRING_TOKEN ||
		p.peek().Kind == lexer.TEMPLATE_FULL_TOKEN:
		p.advance()
		for p.match(".") {
			if p.peek().Kind == lexer.IDENT_TOKEN {
				p.advance()
			}
		}
		if p.check("<") {
			p.skipTypeArgs()
		}
	case p.check("-") && p.next().Kind == lexer.NUMBER_TOKEN:
		p.advance()
		p.advance()
	default:
		// tolerate anything else; the type checker we don't have would complain
		p.advance()
	}

	// array and indexed-access suffixes
	for p.check("[") {
		p.skipBalanced("[", "]")
	}
}

// skipBalanced consumes from an opening token through its matching close.
func (p *Parser) skipBalanced(open, close string) error {
	if _, err := p.expect(open); err != nil {
		return err
	}
	depth := 1
	for depth > 0 && !p.isAtEnd() {
		tok := p.advance()
		if tok.Is(open) {
			depth++
		} else if tok.Is(close) {
			depth--
		}
	}
	if depth > 0 {
		return p.errf(p.peek(), "expected %q before end of file", close)
	}
	return nil
}
