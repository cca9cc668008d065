package parser

import (
	"strings"

	"funee/internal/ast"
	"funee/internal/lexer"
)

// unquote strips the quotes from a string token's raw text. Import
// specifiers never contain escapes worth interpreting beyond \\, \' and \".
func unquote(raw string) string {
	if len(raw) < 2 {
		return raw
	}
	body := raw[1 : len(raw)-1]
	body = strings.ReplaceAll(body, "\\\\", "\\")
	body = strings.ReplaceAll(body, "\\'", "'")
	body = strings.ReplaceAll(body, "\\\"", "\"")
	return body
}

func (p *Parser) parseImport() (ast.Node, error) {
	start := p.advance().Span.Start // import

	decl := &ast.ImportDecl{}

	// side-effect import: import "./x"
	if p.peek().Kind == lexer.STRING_TOKEN {
		decl.Specifier = unquote(p.advance().Text)
		p.eatSemi()
		decl.Range = p.spanFrom(start)
		return decl, nil
	}

	// import type { ... } from "x" — type-only, ignored downstream
	if p.check("type") && !p.next().Is("from") && !p.next().Is(",") {
		decl.TypeOnly = true
		p.advance()
	}

	// default and/or namespace and/or named bindings
	if p.peek().Kind == lexer.IDENT_TOKEN && !p.check("{") {
		tok, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if !decl.TypeOnly {
			decl.Clauses = append(decl.Clauses, ast.ImportClause{
				Local: tok.Text, Imported: "default", Kind: ast.DEFAULT_IMPORT,
			})
		}
		p.match(",")
	}

	if p.match("*") {
		if _, err := p.expect("as"); err != nil {
			return nil, err
		}
		tok, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		decl.Clauses = append(decl.Clauses, ast.ImportClause{
			Local: tok.Text, Kind: ast.NAMESPACE_IMPORT,
		})
	} else if p.match("{") {
		for !p.check("}") && !p.isAtEnd() {
			// per-specifier type marker: import { type T, f } from ...
			typeOnly := false
			if p.check("type") && p.next().Kind == lexer.IDENT_TOKEN && !p.next().Is("as") && !p.next().Is(",") {
				typeOnly = true
				p.advance()
			}
			imported, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			local := imported
			if p.match("as") {
				local, err = p.expectIdent()
				if err != nil {
					return nil, err
				}
			}
			if !typeOnly && !decl.TypeOnly {
				decl.Clauses = append(decl.Clauses, ast.ImportClause{
					Local: local.Text, Imported: imported.Text, Kind: ast.NAMED_IMPORT,
				})
			}
			if !p.match(",") {
				break
			}
		}
		if _, err := p.expect("}"); err != nil {
			return nil, err
		}
	}

	if _, err := p.expect("from"); err != nil {
		return nil, err
	}
	if p.peek().Kind != lexer.STRING_TOKEN {
		return nil, p.errf(p.peek(), "expected module specifier string")
	}
	decl.Specifier = unquote(p.advance().Text)
	p.eatSemi()
	decl.Range = p.spanFrom(start)
	return decl, nil
}

func (p *Parser) parseExport() (ast.Node, error) {
	start := p.advance().Span.Start // export

	switch {
	case p.check("default"):
		p.advance()
		decl := &ast.ExportDefaultDecl{}
		if p.check("function") || (p.check("async") && p.next().Is("function")) {
			fn, err := p.parseFuncDecl(false)
			if err != nil {
				return nil, err
			}
			decl.Decl = fn
		} else {
			value, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			p.eatSemi()
			decl.Value = value
		}
		decl.Range = p.spanFrom(start)
		return decl, nil

	case p.check("*"):
		p.advance()
		if _, err := p.expect("from"); err != nil {
			return nil, err
		}
		if p.peek().Kind != lexer.STRING_TOKEN {
			return nil, p.errf(p.peek(), "expected module specifier string")
		}
		decl := &ast.ExportStarDecl{From: unquote(p.advance().Text)}
		p.eatSemi()
		decl.Range = p.spanFrom(start)
		return decl, nil

	case p.check("{"):
		p.advance()
		decl := &ast.ExportNamedDecl{}
		for !p.check("}") && !p.isAtEnd() {
			if p.check("type") && p.next().Kind == lexer.IDENT_TOKEN {
				p.advance() // export { type T } — skip the marker
			}
			local, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			exported := local
			if p.match("as") {
				exported, err = p.expectIdent()
				if err != nil {
					return nil, err
				}
			}
			decl.Specifiers = append(decl.Specifiers, ast.ExportSpecifier{
				Local: local.Text, Exported: exported.Text,
			})
			if !p.match(",") {
				break
			}
		}
		if _, err := p.expect("}"); err != nil {
			return nil, err
		}
		if p.match("from") {
			if p.peek().Kind != lexer.STRING_TOKEN {
				return nil, p.errf(p.peek(), "expected module specifier string")
			}
			decl.From = unquote(p.advance().Text)
		}
		p.eatSemi()
		decl.Range = p.spanFrom(start)
		return decl, nil

	case p.check("const"), p.check("let"), p.check("var"):
		vs, err := p.parseVarStmt(true)
		if err != nil {
			return nil, err
		}
		return vs, nil

	case p.check("function"), p.check("async") && p.next().Is("function"):
		fn, err := p.parseFuncDecl(true)
		if err != nil {
			return nil, err
		}
		return fn, nil

	case p.check("class"), p.check("abstract") && p.next().Is("class"):
		cls, err := p.parseClassDecl(true)
		if err != nil {
			return nil, err
		}
		return cls, nil

	case p.check("interface"):
		return p.parseInterfaceDecl(true)

	case p.check("type") && p.next().Kind == lexer.IDENT_TOKEN:
		return p.parseTypeAlias(true)
	}

	return nil, p.errf(p.peek(), "expected declaration or specifier list after export")
}
