package parser

import (
	"funee/internal/ast"
	"funee/internal/lexer"
)

func (p *Parser) parseFuncDecl(exported bool) (*ast.FuncDecl, error) {
	start := p.peek().Span.Start
	async := p.match("async")
	if _, err := p.expect("function"); err != nil {
		return nil, err
	}
	generator := p.match("*")

	fn := &ast.FuncDecl{Async: async, Generator: generator, Exported: exported}
	if p.peek().Kind == lexer.IDENT_TOKEN {
		tok := p.advance()
		fn.Name = &ast.Ident{Name: tok.Text}
		fn.Name.Range = tok.Span
	}
	p.skipTypeParams()

	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	fn.Params = params
	p.skipTypeAnnotation() // return type

	fn.Body, err = p.parseBlock()
	if err != nil {
		return nil, err
	}
	fn.Range = p.spanFrom(start)
	return fn, nil
}

// parseParams parses a parenthesized parameter list, discarding type
// annotations, optional markers and access modifiers.
func (p *Parser) parseParams() ([]ast.Pattern, error) {
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	var params []ast.Pattern
	for !p.check(")") && !p.isAtEnd() {
		// TS constructor parameter properties
		p.match("public")
		p.match("private")
		p.match("protected")
		p.match("readonly")

		if p.match("...") {
			start := p.previous().Span.Start
			arg, err := p.parsePattern()
			if err != nil {
				return nil, err
			}
			p.skipTypeAnnotation()
			rest := &ast.RestPat{Arg: arg}
			rest.Range = p.spanFrom(start)
			params = append(params, rest)
			p.match(",")
			continue
		}

		start := p.peek().Span.Start
		pat, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		p.match("?") // optional parameter
		p.skipTypeAnnotation()
		if p.match("=") {
			def, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			ap := &ast.AssignPat{Left: pat, Right: def}
			ap.Range = p.spanFrom(start)
			pat = ap
		}
		params = append(params, pat)
		if !p.match(",") {
			break
		}
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *Parser) parseClassDecl(exported bool) (*ast.ClassDecl, error) {
	start := p.peek().Span.Start
	p.match("abstract")
	if _, err := p.expect("class"); err != nil {
		return nil, err
	}

	cls := &ast.ClassDecl{Exported: exported}
	if p.peek().Kind == lexer.IDENT_TOKEN && !p.check("extends") && !p.check("implements") {
		tok := p.advance()
		cls.Name = &ast.Ident{Name: tok.Text}
		cls.Name.Range = tok.Span
	}
	p.skipTypeParams()

	if p.match("extends") {
		super, err := p.parseCallMember()
		if err != nil {
			return nil, err
		}
		cls.SuperClass = super
		p.skipTypeArgsIfPresent()
	}
	if p.match("implements") {
		p.skipType()
		for p.match(",") {
			p.skipType()
		}
	}

	if _, err := p.expect("{"); err != nil {
		return nil, err
	}
	for !p.check("}") && !p.isAtEnd() {
		if p.match(";") {
			continue
		}
		member, err := p.parseClassMember()
		if err != nil {
			return nil, err
		}
		if member != nil {
			cls.Members = append(cls.Members, member)
		}
	}
	if _, err := p.expect("}"); err != nil {
		return nil, err
	}
	cls.Range = p.spanFrom(start)
	return cls, nil
}

func (p *Parser) parseClassMember() (*ast.ClassMember, error) {
	start := p.peek().Span.Start
	m := &ast.ClassMember{Kind: ast.METHOD_MEMBER}

	// modifier soup; order-insensitive, all ignorable except static/async
	for {
		switch {
		case p.check("static") && !p.next().Is("(") && !p.next().Is("="):
			p.advance()
			m.Static = true
			continue
		case p.check("public") || p.check("private") || p.check("protected") ||
			p.check("readonly") || p.check("abstract") || p.check("declare") ||
			p.check("override"):
			p.advance()
			continue
		case p.check("async") && !p.next().Is("(") && !p.next().Is("=") && !p.next().Is(";"):
			p.advance()
			m.Async = true
			continue
		}
		break
	}
	if p.check("get") && !p.next().Is("(") && !p.next().Is("=") {
		p.advance()
		m.Kind = ast.GETTER_MEMBER
	} else if p.check("set") && !p.next().Is("(") && !p.next().Is("=") {
		p.advance()
		m.Kind = ast.SETTER_MEMBER
	}
	p.match("*") // generator

	// key: identifier, string, number or computed; a bare [ followed by an
	// identifier and a colon is a TS index signature and is discarded.
	switch {
	case p.check("["):
		if p.next().Kind == lexer.IDENT_TOKEN && p.peekAhead(2).Is(":") {
			p.skipBalanced("[", "]")
			p.skipTypeAnnotation()
			p.eatSemi()
			return nil, nil
		}
		p.advance()
		expr, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		m.Computed = true
		m.KeyExpr = expr
		if _, err := p.expect("]"); err != nil {
			return nil, err
		}
	case p.peek().Kind == lexer.STRING_TOKEN || p.peek().Kind == lexer.NUMBER_TOKEN:
		m.Name = p.advance().Text
	case p.check("#"):
		p.advance()
		tok, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		m.Name = "#" + tok.Text
	default:
		tok, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		m.Name = tok.Text
	}

	p.match("?") // optional member
	p.skipTypeParams()

	if p.check("(") {
		params, err := p.parseParams()
		if err != nil {
			return nil, err
		}
		m.Params = params
		p.skipTypeAnnotation()
		if p.check("{") {
			m.Body, err = p.parseBlock()
			if err != nil {
				return nil, err
			}
		} else {
			p.eatSemi() // abstract / overload signature
		}
		m.Range = p.spanFrom(start)
		return m, nil
	}

	// field
	m.Kind = ast.FIELD_MEMBER
	p.match("!")
	p.skipTypeAnnotation()
	if p.match("=") {
		value, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		m.Value = value
	}
	p.eatSemi()
	m.Range = p.spanFrom(start)
	return m, nil
}

// parseInterfaceDecl records the name and discards the body.
func (p *Parser) parseInterfaceDecl(exported bool) (ast.Node, error) {
	start := p.advance().Span.Start // interface
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	p.skipTypeParams()
	if p.match("extends") {
		p.skipType()
		for p.match(",") {
			p.skipType()
		}
	}
	if err := p.skipBalanced("{", "}"); err != nil {
		return nil, err
	}
	d := &ast.TypeDecl{Name: name.Text, Exported: exported}
	d.Range = p.spanFrom(start)
	return d, nil
}

// parseTypeAlias records the name and discards the aliased type.
func (p *Parser) parseTypeAlias(exported bool) (ast.Node, error) {
	start := p.advance().Span.Start // type
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	p.skipTypeParams()
	if _, err := p.expect("="); err != nil {
		return nil, err
	}
	p.skipType()
	p.eatSemi()
	d := &ast.TypeDecl{Name: name.Text, Exported: exported}
	d.Range = p.spanFrom(start)
	return d, nil
}

// parseAmbientDecl discards a `declare ...` statement entirely.
func (p *Parser) parseAmbientDecl() (ast.Node, error) {
	start := p.advance().Span.Start // declare
	for !p.isAtEnd() {
		if p.check("{") {
			if err := p.skipBalanced("{", "}"); err != nil {
				return nil, err
			}
			break
		}
		if p.check(";") {
			p.advance()
			break
		}
		if p.peek().Line != p.previous().Line && p.tokenNo > 0 {
			break
		}
		p.advance()
	}
	d := &ast.TypeDecl{Name: ""}
	d.Range = p.spanFrom(start)
	return d, nil
}
