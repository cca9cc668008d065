package parser

import (
	"funee/internal/ast"
	"funee/internal/lexer"
)

// parseExpression parses a full expression including comma sequences.
func (p *Parser) parseExpression() (ast.Expression, error) {
	start := p.peek().Span.Start
	first, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	if !p.check(",") {
		return first, nil
	}
	seq := &ast.SeqExpr{Exprs: []ast.Expression{first}}
	for p.match(",") {
		e, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		seq.Exprs = append(seq.Exprs, e)
	}
	seq.Range = p.spanFrom(start)
	return seq, nil
}

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"**=": true, "<<=": true, ">>=": true, ">>>=": true, "&=": true,
	"|=": true, "^=": true, "&&=": true, "||=": true, "??=": true,
}

func (p *Parser) parseAssign() (ast.Expression, error) {
	if arrow, ok, err := p.tryParseArrow(); ok || err != nil {
		return arrow, err
	}

	start := p.peek().Span.Start
	left, err := p.parseCond()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind == lexer.PUNCT_TOKEN && assignOps[p.peek().Text] {
		op := p.advance().Text
		value, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		assign := &ast.AssignExpr{Op: op, Target: left, Value: value}
		assign.Range = p.spanFrom(start)
		return assign, nil
	}
	return left, nil
}

func (p *Parser) parseCond() (ast.Expression, error) {
	start := p.peek().Span.Start
	test, err := p.parseBinary(1)
	if err != nil {
		return nil, err
	}
	if !p.check("?") {
		return test, nil
	}
	p.advance()
	cons, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(":"); err != nil {
		return nil, err
	}
	alt, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	cond := &ast.CondExpr{Test: test, Cons: cons, Alt: alt}
	cond.Range = p.spanFrom(start)
	return cond, nil
}

var binaryPrec = map[string]int{
	"??": 1,
	"||": 2,
	"&&": 3,
	"|":  4,
	"^":  5,
	"&":  6,
	"==": 7, "!=": 7, "===": 7, "!==": 7,
	"<": 8, ">": 8, "<=": 8, ">=": 8, "instanceof": 8, "in": 8,
	"<<": 9, ">>": 9, ">>>": 9,
	"+": 10, "-": 10,
	"*": 11, "/": 11, "%": 11,
	"**": 12,
}

func (p *Parser) parseBinary(minPrec int) (ast.Expression, error) {
	start := p.peek().Span.Start
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		prec, ok := binaryPrec[tok.Text]
		if !ok || prec < minPrec {
			return left, nil
		}
		if tok.Kind == lexer.IDENT_TOKEN && tok.Text != "instanceof" && tok.Text != "in" {
			return left, nil
		}
		p.advance()
		nextMin := prec + 1
		if tok.Text == "**" {
			nextMin = prec // right associative
		}
		right, err := p.parseBinary(nextMin)
		if err != nil {
			return nil, err
		}
		bin := &ast.BinaryExpr{Op: tok.Text, Left: left, Right: right}
		bin.Range = p.spanFrom(start)
		left = bin
	}
}

func (p *Parser) parseUnary() (ast.Expression, error) {
	tok := p.peek()
	start := tok.Span.Start

	switch {
	case tok.Is("!") || tok.Is("~") || tok.Is("+") || tok.Is("-") ||
		tok.Is("typeof") || tok.Is("void") || tok.Is("delete"):
		p.advance()
		arg, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		u := &ast.UnaryExpr{Op: tok.Text, Arg: arg}
		u.Range = p.spanFrom(start)
		return u, nil

	case tok.Is("await"):
		p.advance()
		arg, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		a := &ast.AwaitExpr{Arg: arg}
		a.Range = p.spanFrom(start)
		return a, nil

	case tok.Is("yield"):
		p.advance()
		y := &ast.YieldExpr{Delegate: p.match("*")}
		if !p.check(")") && !p.check("]") && !p.check("}") && !p.check(";") &&
			!p.check(",") && !p.isAtEnd() && p.sameLine() {
			arg, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			y.Arg = arg
		}
		y.Range = p.spanFrom(start)
		return y, nil

	case tok.Is("++") || tok.Is("--"):
		p.advance()
		arg, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		u := &ast.UpdateExpr{Op: tok.Text, Prefix: true, Arg: arg}
		u.Range = p.spanFrom(start)
		return u, nil
	}

	expr, err := p.parseCallMember()
	if err != nil {
		return nil, err
	}
	if p.check("++") || p.check("--") {
		op := p.advance().Text
		u := &ast.UpdateExpr{Op: op, Arg: expr}
		u.Range = p.spanFrom(start)
		return u, nil
	}
	return expr, nil
}

// parseCallMember parses a primary expression and its member access,
// call, tagged template and TS cast suffixes.
func (p *Parser) parseCallMember() (ast.Expression, error) {
	start := p.peek().Span.Start
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		switch {
		case p.check("."):
			p.advance()
			private := p.match("#")
			prop, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			name := prop.Text
			if private {
				name = "#" + name
			}
			m := &ast.MemberExpr{Obj: expr, Prop: name}
			m.Range = p.spanFrom(start)
			expr = m

		case p.check("?."):
			p.advance()
			if p.check("(") {
				args, err := p.parseArgs()
				if err != nil {
					return nil, err
				}
				c := &ast.CallExpr{Callee: expr, Args: args, Optional: true}
				c.Range = p.spanFrom(start)
				expr = c
				continue
			}
			if p.check("[") {
				p.advance()
				idx, err := p.parseExpression()
				if err != nil {
					return nil, err
				}
				if _, err := p.expect("]"); err != nil {
					return nil, err
				}
				m := &ast.MemberExpr{Obj: expr, Computed: true, PropExpr: idx, Optional: true}
				m.Range = p.spanFrom(start)
				expr = m
				continue
			}
			prop, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			m := &ast.MemberExpr{Obj: expr, Prop: prop.Text, Optional: true}
			m.Range = p.spanFrom(start)
			expr = m

		case p.check("["):
			p.advance()
			idx, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect("]"); err != nil {
				return nil, err
			}
			m := &ast.MemberExpr{Obj: expr, Computed: true, PropExpr: idx}
			m.Range = p.spanFrom(start)
			expr = m

		case p.check("("):
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			c := &ast.CallExpr{Callee: expr, Args: args}
			c.Range = p.spanFrom(start)
			expr = c

		case p.peek().Kind == lexer.TEMPLATE_FULL_TOKEN || p.peek().Kind == lexer.TEMPLATE_HEAD_TOKEN:
			quasi, err := p.parseTemplate()
			if err != nil {
				return nil, err
			}
			t := &ast.TaggedTemplate{Tag: expr, Quasi: quasi}
			t.Range = p.spanFrom(start)
			expr = t

		case p.check("!"):
			// non-null assertion binds postfix only when nothing follows
			// that would make ! a prefix of the next expression
			if p.next().Is("(") || p.next().Is("[") || p.next().Kind == lexer.IDENT_TOKEN ||
				p.next().Kind == lexer.NUMBER_TOKEN || p.next().Kind == lexer.STRING_TOKEN {
				return expr, nil
			}
			p.advance()

		case p.check("as") || p.check("satisfies"):
			p.advance()
			p.skipType()

		default:
			return expr, nil
		}
	}
}

func (p *Parser) parseArgs() ([]ast.Expression, error) {
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	var args []ast.Expression
	for !p.check(")") && !p.isAtEnd() {
		if p.check("...") {
			start := p.advance().Span.Start
			arg, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			sp := &ast.SpreadExpr{Arg: arg}
			sp.Range = p.spanFrom(start)
			args = append(args, sp)
		} else {
			arg, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		if !p.match(",") {
			break
		}
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parsePrimary() (ast.Expression, error) {
	tok := p.peek()
	start := tok.Span.Start

	switch tok.Kind {
	case lexer.NUMBER_TOKEN:
		p.advance()
		l := &ast.Literal{Kind: ast.NUMBER_LITERAL, Raw: tok.Text}
		l.Range = tok.Span
		return l, nil

	case lexer.STRING_TOKEN:
		p.advance()
		l := &ast.Literal{Kind: ast.STRING_LITERAL, Raw: tok.Text}
		l.Range = tok.Span
		return l, nil

	case lexer.REGEX_TOKEN:
		p.advance()
		l := &ast.Literal{Kind: ast.REGEX_LITERAL, Raw: tok.Text}
		l.Range = tok.Span
		return l, nil

	case lexer.TEMPLATE_FULL_TOKEN, lexer.TEMPLATE_HEAD_TOKEN:
		tpl, err := p.parseTemplate()
		if err != nil {
			return nil, err
		}
		return tpl, nil

	case lexer.IDENT_TOKEN:
		switch tok.Text {
		case "function":
			return p.parseFuncExpr(false)
		case "async":
			if p.next().Is("function") {
				return p.parseFuncExpr(true)
			}
		case "class":
			return p.parseClassExpr()
		case "new":
			return p.parseNew()
		case "true", "false":
			p.advance()
			l := &ast.Literal{Kind: ast.BOOL_LITERAL, Raw: tok.Text}
			l.Range = tok.Span
			return l, nil
		case "null":
			p.advance()
			l := &ast.Literal{Kind: ast.NULL_LITERAL, Raw: tok.Text}
			l.Range = tok.Span
			return l, nil
		}
		p.advance()
		id := &ast.Ident{Name: tok.Text}
		id.Range = tok.Span
		return id, nil

	case lexer.PUNCT_TOKEN:
		switch tok.Text {
		case "(":
			p.advance()
			inner, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(")"); err != nil {
				return nil, err
			}
			pe := &ast.ParenExpr{Inner: inner}
			pe.Range = p.spanFrom(start)
			return pe, nil
		case "[":
			return p.parseArrayLit()
		case "{":
			return p.parseObjectLit()
		case "<":
			// generic arrow: <T>(x: T) => ...
			p.skipTypeArgs()
			return p.parseAssign()
		}
	}

	return nil, p.errf(tok, "expected expression, found %q", tok.Text)
}

func (p *Parser) parseTemplate() (*ast.TemplateLit, error) {
	tok := p.advance()
	t := &ast.TemplateLit{}
	start := tok.Span.Start
	if tok.Kind == lexer.TEMPLATE_FULL_TOKEN {
		t.Range = tok.Span
		return t, nil
	}
	if tok.Kind != lexer.TEMPLATE_HEAD_TOKEN {
		return nil, p.errf(tok, "expected template literal")
	}
	for {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		t.Exprs = append(t.Exprs, expr)
		part := p.advance()
		switch part.Kind {
		case lexer.TEMPLATE_MIDDLE_TOKEN:
			continue
		case lexer.TEMPLATE_TAIL_TOKEN:
			t.Range = p.spanFrom(start)
			return t, nil
		default:
			return nil, p.errf(part, "unterminated template literal")
		}
	}
}

func (p *Parser) parseArrayLit() (ast.Expression, error) {
	start := p.advance().Span.Start // [
	arr := &ast.ArrayLit{}
	for !p.check("]") && !p.isAtEnd() {
		if p.check(",") {
			p.advance()
			arr.Elems = append(arr.Elems, nil)
			continue
		}
		if p.check("...") {
			spreadStart := p.advance().Span.Start
			arg, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			sp := &ast.SpreadExpr{Arg: arg}
			sp.Range = p.spanFrom(spreadStart)
			arr.Elems = append(arr.Elems, sp)
		} else {
			el, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			arr.Elems = append(arr.Elems, el)
		}
		if !p.match(",") {
			break
		}
	}
	if _, err := p.expect("]"); err != nil {
		return nil, err
	}
	arr.Range = p.spanFrom(start)
	return arr, nil
}

func (p *Parser) parseObjectLit() (ast.Expression, error) {
	start := p.advance().Span.Start // {
	obj := &ast.ObjectLit{}
	for !p.check("}") && !p.isAtEnd() {
		prop, err := p.parseObjectProp()
		if err != nil {
			return nil, err
		}
		obj.Props = append(obj.Props, prop)
		if !p.match(",") {
			break
		}
	}
	if _, err := p.expect("}"); err != nil {
		return nil, err
	}
	obj.Range = p.spanFrom(start)
	return obj, nil
}

func (p *Parser) parseObjectProp() (*ast.Property, error) {
	start := p.peek().Span.Start
	prop := &ast.Property{Kind: ast.INIT_PROPERTY}

	if p.check("...") {
		p.advance()
		value, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		prop.Kind = ast.SPREAD_PROPERTY
		prop.Value = value
		prop.Range = p.spanFrom(start)
		return prop, nil
	}

	async := false
	if p.check("async") && !p.next().Is(":") && !p.next().Is(",") &&
		!p.next().Is("(") && !p.next().Is("}") {
		async = true
		p.advance()
	}
	accessor := ""
	if (p.check("get") || p.check("set")) && !p.next().Is(":") && !p.next().Is(",") &&
		!p.next().Is("(") && !p.next().Is("}") {
		accessor = p.advance().Text
	}
	generator := p.match("*")

	switch {
	case p.check("["):
		p.advance()
		keyExpr, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect("]"); err != nil {
			return nil, err
		}
		prop.Computed = true
		prop.KeyExpr = keyExpr
	case p.peek().Kind == lexer.STRING_TOKEN || p.peek().Kind == lexer.NUMBER_TOKEN:
		prop.Key = p.advance().Text
	default:
		key, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		prop.Key = key.Text
	}

	// method form
	if p.check("(") || async || accessor != "" || generator {
		fnStart := p.peek().Span.Start
		p.skipTypeParams()
		params, err := p.parseParams()
		if err != nil {
			return nil, err
		}
		p.skipTypeAnnotation()
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		fn := &ast.FuncExpr{Params: params, Body: body, Async: async, Generator: generator}
		fn.Range = p.spanFrom(fnStart)
		prop.Kind = ast.METHOD_PROPERTY
		prop.Value = fn
		prop.Range = p.spanFrom(start)
		return prop, nil
	}

	if p.match(":") {
		value, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		prop.Value = value
	} else {
		prop.Kind = ast.SHORTHAND_PROPERTY
		value := &ast.Ident{Name: prop.Key, Shorthand: true}
		value.Range = p.previous().Span
		prop.Value = value
		// shorthand may carry a default inside destructuring-as-expression
		if p.match("=") {
			if _, err := p.parseAssign(); err != nil {
				return nil, err
			}
		}
	}
	prop.Range = p.spanFrom(start)
	return prop, nil
}

func (p *Parser) parseFuncExpr(async bool) (ast.Expression, error) {
	start := p.peek().Span.Start
	if async {
		p.advance()
	}
	if _, err := p.expect("function"); err != nil {
		return nil, err
	}
	generator := p.match("*")
	fn := &ast.FuncExpr{Async: async, Generator: generator}
	if p.peek().Kind == lexer.IDENT_TOKEN && !p.check("(") {
		fn.Name = p.advance().Text
	}
	p.skipTypeParams()
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	fn.Params = params
	p.skipTypeAnnotation()
	fn.Body, err = p.parseBlock()
	if err != nil {
		return nil, err
	}
	fn.Range = p.spanFrom(start)
	return fn, nil
}

func (p *Parser) parseClassExpr() (ast.Expression, error) {
	start := p.peek().Span.Start
	decl, err := p.parseClassDecl(false)
	if err != nil {
		return nil, err
	}
	ce := &ast.ClassExpr{Decl: decl}
	ce.Range = p.spanFrom(start)
	return ce, nil
}

func (p *Parser) parseNew() (ast.Expression, error) {
	start := p.advance().Span.Start // new
	if p.check(".") {
		// new.target
		p.advance()
		if _, err := p.expectIdent(); err != nil {
			return nil, err
		}
		id := &ast.Ident{Name: "new.target"}
		id.Range = p.spanFrom(start)
		return id, nil
	}
	callee, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	// member access binds tighter than the new call
	for p.check(".") {
		p.advance()
		prop, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		m := &ast.MemberExpr{Obj: callee, Prop: prop.Text}
		m.Range = p.spanFrom(start)
		callee = m
	}
	p.skipTypeArgsIfPresent()
	n := &ast.NewExpr{Callee: callee}
	if p.check("(") {
		n.Args, err = p.parseArgs()
		if err != nil {
			return nil, err
		}
	}
	n.Range = p.spanFrom(start)
	return n, nil
}

// tryParseArrow detects and parses arrow functions. Returns ok=false with
// the parser position untouched when the lookahead says "not an arrow".
func (p *Parser) tryParseArrow() (ast.Expression, bool, error) {
	tok := p.peek()

	async := false
	offset := 0
	if tok.Is("async") && p.next().Line == tok.Line &&
		(p.next().Kind == lexer.IDENT_TOKEN || p.next().Is("(")) && !p.next().Is("function") {
		async = true
		offset = 1
	}

	at := p.peekAhead(offset)
	switch {
	case at.Kind == lexer.IDENT_TOKEN && !at.Is("function") && p.peekAhead(offset+1).Is("=>"):
		// single identifier parameter
		start := tok.Span.Start
		if async {
			p.advance()
		}
		id := p.advance()
		param := &ast.Ident{Name: id.Text}
		param.Range = id.Span
		p.advance() // =>
		return p.finishArrow(start, []ast.Pattern{param}, async)

	case at.Is("(") && p.parenArrowAhead(p.tokenNo+offset):
		start := tok.Span.Start
		if async {
			p.advance()
		}
		params, err := p.parseParams()
		if err != nil {
			return nil, true, err
		}
		p.skipTypeAnnotation() // return type
		if _, err := p.expect("=>"); err != nil {
			return nil, true, err
		}
		return p.finishArrow(start, params, async)
	}
	return nil, false, nil
}

func (p *Parser) finishArrow(start int, params []ast.Pattern, async bool) (ast.Expression, bool, error) {
	arrow := &ast.ArrowFunc{Params: params, Async: async}
	if p.check("{") {
		body, err := p.parseBlock()
		if err != nil {
			return nil, true, err
		}
		arrow.Body = body
	} else {
		body, err := p.parseAssign()
		if err != nil {
			return nil, true, err
		}
		arrow.Body = body
	}
	arrow.Range = p.spanFrom(start)
	return arrow, true, nil
}

// parenArrowAhead reports whether the parenthesized run starting at token
// index i is an arrow parameter list.
func (p *Parser) parenArrowAhead(i int) bool {
	depth := 0
	j := i
	for ; j < len(p.tokens); j++ {
		t := p.tokens[j]
		if t.Is("(") {
			depth++
		} else if t.Is(")") {
			depth--
			if depth == 0 {
				break
			}
		}
	}
	if j >= len(p.tokens)-1 {
		return false
	}
	after := p.tokens[j+1]
	if after.Is("=>") {
		return true
	}
	if !after.Is(":") {
		return false
	}
	// return-type annotation: scan for => at depth 0 before a terminator
	d := 0
	for k := j + 2; k < len(p.tokens); k++ {
		t := p.tokens[k]
		switch {
		case t.Is("(") || t.Is("[") || t.Is("{") || t.Is("<"):
			d++
		case t.Is(")") || t.Is("]") || t.Is("}") || t.Is(">"):
			d--
			if d < 0 {
				return false
			}
		case d == 0 && t.Is("=>"):
			return true
		case d == 0 && (t.Is(";") || t.Is(",")):
			return false
		}
	}
	return false
}
