package parser

import (
	"funee/internal/ast"
)

// parseVarStmt parses const/let/var and the resource-management forms
// `using x = ...` and `await using x = ...`.
func (p *Parser) parseVarStmt(exported bool) (*ast.VarStmt, error) {
	start := p.peek().Span.Start
	kind := p.advance().Text
	if kind == "await" {
		// await using
		tok, err := p.expect("using")
		if err != nil {
			return nil, err
		}
		kind = "await " + tok.Text
	}

	st := &ast.VarStmt{Kind: kind, Exported: exported}
	for {
		d, err := p.parseVarDeclarator()
		if err != nil {
			return nil, err
		}
		st.Decls = append(st.Decls, d)
		if !p.match(",") {
			break
		}
	}
	p.eatSemi()
	st.Range = p.spanFrom(start)
	return st, nil
}

func (p *Parser) parseVarDeclarator() (*ast.VarDeclarator, error) {
	start := p.peek().Span.Start
	name, err := p.parsePattern()
	if err != nil {
		return nil, err
	}
	p.match("!") // definite assignment assertion
	p.skipTypeAnnotation()

	d := &ast.VarDeclarator{Name: name}
	if p.match("=") {
		d.Init, err = p.parseAssign()
		if err != nil {
			return nil, err
		}
	}
	d.Range = p.spanFrom(start)
	return d, nil
}

// parseVarHead parses the `const x` part of a for-statement initializer.
// The caller decides whether an in/of clause or a classic init follows.
func (p *Parser) parseVarHead() (*ast.VarStmt, error) {
	start := p.peek().Span.Start
	kind := p.advance().Text
	st := &ast.VarStmt{Kind: kind}
	for {
		declStart := p.peek().Span.Start
		name, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		p.skipTypeAnnotation()
		d := &ast.VarDeclarator{Name: name}
		if p.match("=") {
			d.Init, err = p.parseAssign()
			if err != nil {
				return nil, err
			}
		}
		d.Range = p.spanFrom(declStart)
		st.Decls = append(st.Decls, d)
		if !p.match(",") {
			break
		}
	}
	st.Range = p.spanFrom(start)
	return st, nil
}

// parsePattern parses a binding target: identifier, array pattern or
// object pattern. Defaults at this level come out as AssignPat.
func (p *Parser) parsePattern() (ast.Pattern, error) {
	switch {
	case p.check("["):
		return p.parseArrayPattern()
	case p.check("{"):
		return p.parseObjectPattern()
	}
	tok, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	id := &ast.Ident{Name: tok.Text}
	id.Range = tok.Span
	return id, nil
}

func (p *Parser) parseArrayPattern() (ast.Pattern, error) {
	start := p.advance().Span.Start // [
	pat := &ast.ArrayPat{}
	for !p.check("]") && !p.isAtEnd() {
		if p.match(",") {
			pat.Elems = append(pat.Elems, nil) // hole
			continue
		}
		if p.match("...") {
			rest, err := p.parsePattern()
			if err != nil {
				return nil, err
			}
			pat.Rest = rest
			break
		}
		el, err := p.parsePatternWithDefault()
		if err != nil {
			return nil, err
		}
		pat.Elems = append(pat.Elems, el)
		if !p.match(",") {
			break
		}
	}
	if _, err := p.expect("]"); err != nil {
		return nil, err
	}
	pat.Range = p.spanFrom(start)
	return pat, nil
}

func (p *Parser) parseObjectPattern() (ast.Pattern, error) {
	start := p.advance().Span.Start // {
	pat := &ast.ObjectPat{}
	for !p.check("}") && !p.isAtEnd() {
		if p.match("...") {
			rest, err := p.parsePattern()
			if err != nil {
				return nil, err
			}
			pat.Rest = rest
			break
		}
		propStart := p.peek().Span.Start
		prop := &ast.ObjectPatProp{}
		if p.match("[") {
			expr, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			prop.Computed = true
			prop.KeyExpr = expr
			if _, err := p.expect("]"); err != nil {
				return nil, err
			}
		} else {
			key, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			prop.Key = key.Text
		}
		if p.match(":") {
			value, err := p.parsePatternWithDefault()
			if err != nil {
				return nil, err
			}
			prop.Value = value
		}
		if p.match("=") {
			def, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			prop.Default = def
		}
		prop.Range = p.spanFrom(propStart)
		pat.Props = append(pat.Props, prop)
		if !p.match(",") {
			break
		}
	}
	if _, err := p.expect("}"); err != nil {
		return nil, err
	}
	pat.Range = p.spanFrom(start)
	return pat, nil
}

func (p *Parser) parsePatternWithDefault() (ast.Pattern, error) {
	start := p.peek().Span.Start
	pat, err := p.parsePattern()
	if err != nil {
		return nil, err
	}
	p.skipTypeAnnotation()
	if p.match("=") {
		def, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		ap := &ast.AssignPat{Left: pat, Right: def}
		ap.Range = p.spanFrom(start)
		return ap, nil
	}
	return pat, nil
}
