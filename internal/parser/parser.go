package parser

import (
	"fmt"

	"funee/internal/ast"
	"funee/internal/lexer"
	"funee/internal/report"
	"funee/internal/source"
)

type Parser struct {
	uri     string
	file    *source.File
	tokens  []lexer.Token
	tokenNo int
}

// ParseModule parses a whole module source into an AST with export and
// import statements left in place; the resolver builds its tables from
// the module items.
func ParseModule(uri, text string) (*ast.Module, error) {
	tokens, err := lexer.Tokenize(uri, text)
	if err != nil {
		return nil, err
	}
	p := &Parser{
		uri:    uri,
		file:   source.NewFile(uri, text),
		tokens: tokens,
	}
	m := &ast.Module{URI: uri, File: p.file}
	for !p.isAtEnd() {
		item, err := p.parseModuleItem()
		if err != nil {
			return nil, err
		}
		if item != nil {
			m.Items = append(m.Items, item)
		}
	}
	return m, nil
}

// ParseExpressionText parses a standalone expression, as returned from a
// macro body. The uri is used for diagnostics only.
func ParseExpressionText(uri, text string) (ast.Expression, error) {
	tokens, err := lexer.Tokenize(uri, text)
	if err != nil {
		return nil, err
	}
	p := &Parser{uri: uri, file: source.NewFile(uri, text), tokens: tokens}
	expr, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	if !p.isAtEnd() {
		return nil, p.errf(p.peek(), "expected end of expression, found %q", p.peek().Text)
	}
	return expr, nil
}

// current token
func (p *Parser) peek() lexer.Token {
	return p.tokens[p.tokenNo]
}

// previous token
func (p *Parser) previous() lexer.Token {
	return p.tokens[p.tokenNo-1]
}

// next returns the token after the current one without consuming anything
func (p *Parser) next() lexer.Token {
	return p.peekAhead(1)
}

// peekAhead returns the token n positions ahead without consuming anything
func (p *Parser) peekAhead(n int) lexer.Token {
	if p.tokenNo+n >= len(p.tokens) {
		return lexer.Token{Kind: lexer.EOF_TOKEN}
	}
	return p.tokens[p.tokenNo+n]
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Kind == lexer.EOF_TOKEN
}

// consume the current token and return it
func (p *Parser) advance() lexer.Token {
	if !p.isAtEnd() {
		p.tokenNo++
	}
	return p.previous()
}

func (p *Parser) check(text string) bool {
	return p.peek().Is(text)
}

func (p *Parser) match(texts ...string) bool {
	for _, t := range texts {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) expect(text string) (lexer.Token, error) {
	if p.check(text) {
		return p.advance(), nil
	}
	return lexer.Token{}, p.errf(p.peek(), "expected %q, found %q", text, p.peek().Text)
}

func (p *Parser) expectIdent() (lexer.Token, error) {
	if p.peek().Kind == lexer.IDENT_TOKEN {
		return p.advance(), nil
	}
	return lexer.Token{}, p.errf(p.peek(), "expected identifier, found %q", p.peek().Text)
}

func (p *Parser) errf(tok lexer.Token, format string, args ...any) error {
	loc := p.file.LocationOf(tok.Span)
	return report.New(report.PARSE_ERROR, p.uri, loc, "%s", "parse error: "+fmt.Sprintf(format, args...))
}

func (p *Parser) spanFrom(start int) source.Span {
	return source.NewSpan(start, p.previous().Span.End)
}

// eatSemi consumes an optional statement terminator.
func (p *Parser) eatSemi() {
	p.match(";")
}

// sameLine reports whether the current token sits on the same line as the
// previous one; used for return, yield, break and continue argument detection.
func (p *Parser) sameLine() bool {
	if p.tokenNo == 0 {
		return true
	}
	return p.peek().Line == p.previous().Line
}

func (p *Parser) parseModuleItem() (ast.Node, error) {
	switch {
	case p.check("import"):
		return p.parseImport()
	case p.check("export"):
		return p.parseExport()
	case p.check("interface"):
		return p.parseInterfaceDecl(false)
	case p.check("type") && p.next().Kind == lexer.IDENT_TOKEN:
		return p.parseTypeAlias(false)
	case p.check("declare"):
		return p.parseAmbientDecl()
	}
	st, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	tok := p.peek()
	switch {
	case tok.Is("{"):
		block, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return block, nil
	case tok.Is("const"), tok.Is("let"), tok.Is("var"),
		tok.Is("using") && p.next().Kind == lexer.IDENT_TOKEN,
		tok.Is("await") && p.next().Is("using"):
		vs, err := p.parseVarStmt(false)
		if err != nil {
			return nil, err
		}
		return vs, nil
	case tok.Is("function"), tok.Is("async") && p.next().Is("function"):
		fn, err := p.parseFuncDecl(false)
		if err != nil {
			return nil, err
		}
		return fn, nil
	case tok.Is("class"), tok.Is("abstract") && p.next().Is("class"):
		cls, err := p.parseClassDecl(false)
		if err != nil {
			return nil, err
		}
		return cls, nil
	case tok.Is("if"):
		return p.parseIf()
	case tok.Is("for"):
		return p.parseFor()
	case tok.Is("while"):
		return p.parseWhile()
	case tok.Is("do"):
		return p.parseDoWhile()
	case tok.Is("return"):
		return p.parseReturn()
	case tok.Is("throw"):
		return p.parseThrow()
	case tok.Is("try"):
		return p.parseTry()
	case tok.Is("switch"):
		return p.parseSwitch()
	case tok.Is("break"):
		p.advance()
		label := ""
		if p.peek().Kind == lexer.IDENT_TOKEN && p.sameLine() {
			label = p.advance().Text
		}
		p.eatSemi()
		return &ast.BreakStmt{Label: label}, nil
	case tok.Is("continue"):
		p.advance()
		label := ""
		if p.peek().Kind == lexer.IDENT_TOKEN && p.sameLine() {
			label = p.advance().Text
		}
		p.eatSemi()
		return &ast.ContinueStmt{Label: label}, nil
	case tok.Is(";"):
		p.advance()
		return &ast.EmptyStmt{}, nil
	case tok.Kind == lexer.IDENT_TOKEN && p.next().Is(":") && isPlainLabel(tok.Text):
		start := tok.Span.Start
		label := p.advance().Text
		p.advance() // :
		body, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		ls := &ast.LabeledStmt{Label: label, Body: body}
		ls.Range = p.spanFrom(start)
		return ls, nil
	}

	start := tok.Span.Start
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	p.eatSemi()
	st := &ast.ExprStmt{E: expr}
	st.Range = p.spanFrom(start)
	return st, nil
}

// isPlainLabel filters idents that can be labels; keywords that commonly
// precede a colon in other constructs are excluded.
func isPlainLabel(name string) bool {
	switch name {
	case "default", "case", "true", "false", "null", "this":
		return false
	}
	return true
}

func (p *Parser) parseBlock() (*ast.BlockStmt, error) {
	start := p.peek().Span.Start
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}
	block := &ast.BlockStmt{}
	for !p.check("}") && !p.isAtEnd() {
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Stmts = append(block.Stmts, s)
	}
	if _, err := p.expect("}"); err != nil {
		return nil, err
	}
	block.Range = p.spanFrom(start)
	return block, nil
}

func (p *Parser) parseIf() (ast.Statement, error) {
	start := p.advance().Span.Start // if
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	test, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	cons, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	var alt ast.Statement
	if p.match("else") {
		alt, err = p.parseStatement()
		if err != nil {
			return nil, err
		}
	}
	st := &ast.IfStmt{Test: test, Cons: cons, Alt: alt}
	st.Range = p.spanFrom(start)
	return st, nil
}

func (p *Parser) parseFor() (ast.Statement, error) {
	start := p.advance().Span.Start // for
	isAwait := p.match("await")
	if _, err := p.expect("("); err != nil {
		return nil, err
	}

	var init ast.Node
	var varStmt *ast.VarStmt
	if p.check("const") || p.check("let") || p.check("var") {
		vs, err := p.parseVarHead()
		if err != nil {
			return nil, err
		}
		varStmt = vs
		init = vs
	} else if !p.check(";") {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		// `for (x in y)` parses as a binary `in`; unwrap it
		if bin, ok := expr.(*ast.BinaryExpr); ok && bin.Op == "in" && p.check(")") {
			p.advance()
			body, err := p.parseStatement()
			if err != nil {
				return nil, err
			}
			st := &ast.ForInOfStmt{Left: bin.Left, Obj: bin.Right, Body: body}
			st.Range = p.spanFrom(start)
			return st, nil
		}
		init = expr
	}

	if p.check("in") || p.check("of") {
		of := p.advance().Is("of")
		obj, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
		body, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		st := &ast.ForInOfStmt{Decl: varStmt, Of: of, Await: isAwait, Obj: obj, Body: body}
		if varStmt == nil {
			if e, ok := init.(ast.Expression); ok {
				st.Left = e
			}
		}
		st.Range = p.spanFrom(start)
		return st, nil
	}

	if _, err := p.expect(";"); err != nil {
		return nil, err
	}
	var test, update ast.Expression
	var err error
	if !p.check(";") {
		test, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}
	if !p.check(")") {
		update, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	st := &ast.ForStmt{Init: init, Test: test, Update: update, Body: body}
	st.Range = p.spanFrom(start)
	return st, nil
}

func (p *Parser) parseWhile() (ast.Statement, error) {
	start := p.advance().Span.Start
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	test, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	st := &ast.WhileStmt{Test: test, Body: body}
	st.Range = p.spanFrom(start)
	return st, nil
}

func (p *Parser) parseDoWhile() (ast.Statement, error) {
	start := p.advance().Span.Start
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("while"); err != nil {
		return nil, err
	}
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	test, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	p.eatSemi()
	st := &ast.DoWhileStmt{Body: body, Test: test}
	st.Range = p.spanFrom(start)
	return st, nil
}

func (p *Parser) parseReturn() (ast.Statement, error) {
	start := p.advance().Span.Start
	var arg ast.Expression
	var err error
	if !p.check(";") && !p.check("}") && !p.isAtEnd() && p.sameLine() {
		arg, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	p.eatSemi()
	st := &ast.ReturnStmt{Arg: arg}
	st.Range = p.spanFrom(start)
	return st, nil
}

func (p *Parser) parseThrow() (ast.Statement, error) {
	start := p.advance().Span.Start
	arg, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	p.eatSemi()
	st := &ast.ThrowStmt{Arg: arg}
	st.Range = p.spanFrom(start)
	return st, nil
}

func (p *Parser) parseTry() (ast.Statement, error) {
	start := p.advance().Span.Start
	block, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	st := &ast.TryStmt{Block: block}
	if p.match("catch") {
		if p.match("(") {
			pat, err := p.parsePattern()
			if err != nil {
				return nil, err
			}
			p.skipTypeAnnotation()
			if _, err := p.expect(")"); err != nil {
				return nil, err
			}
			st.CatchParam = pat
		}
		st.Catch, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
	}
	if p.match("finally") {
		st.Finally, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
	}
	if st.Catch == nil && st.Finally == nil {
		return nil, p.errf(p.peek(), "expected catch or finally after try block")
	}
	st.Range = p.spanFrom(start)
	return st, nil
}

func (p *Parser) parseSwitch() (ast.Statement, error) {
	start := p.advance().Span.Start
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	disc, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}
	st := &ast.SwitchStmt{Disc: disc}
	for !p.check("}") && !p.isAtEnd() {
		caseStart := p.peek().Span.Start
		c := &ast.SwitchCase{}
		if p.match("case") {
			c.Test, err = p.parseExpression()
			if err != nil {
				return nil, err
			}
		} else if _, err := p.expect("default"); err != nil {
			return nil, err
		}
		if _, err := p.expect(":"); err != nil {
			return nil, err
		}
		for !p.check("case") && !p.check("default") && !p.check("}") && !p.isAtEnd() {
			s, err := p.parseStatement()
			if err != nil {
				return nil, err
			}
			c.Body = append(c.Body, s)
		}
		c.Range = p.spanFrom(caseStart)
		st.Cases = append(st.Cases, c)
	}
	if _, err := p.expect("}"); err != nil {
		return nil, err
	}
	st.Range = p.spanFrom(start)
	return st, nil
}
