package ast

// Walk visits n and its children in pre-order. The callback returns false
// to skip a node's children.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch v := n.(type) {
	case *ImportDecl, *ExportNamedDecl, *ExportStarDecl, *TypeDecl, *EmptyStmt,
		*BreakStmt, *ContinueStmt, *Ident, *Literal:

	case *ExportDefaultDecl:
		if v.Decl != nil {
			Walk(v.Decl, fn)
		}
		if v.Value != nil {
			Walk(v.Value, fn)
		}

	case *FuncDecl:
		for _, p := range v.Params {
			Walk(p, fn)
		}
		Walk(v.Body, fn)

	case *VarStmt:
		for _, d := range v.Decls {
			Walk(d.Name, fn)
			if d.Init != nil {
				Walk(d.Init, fn)
			}
		}

	case *ClassDecl:
		if v.SuperClass != nil {
			Walk(v.SuperClass, fn)
		}
		for _, m := range v.Members {
			if m.KeyExpr != nil {
				Walk(m.KeyExpr, fn)
			}
			for _, p := range m.Params {
				Walk(p, fn)
			}
			if m.Body != nil {
				Walk(m.Body, fn)
			}
			if m.Value != nil {
				Walk(m.Value, fn)
			}
		}

	case *BlockStmt:
		for _, s := range v.Stmts {
			Walk(s, fn)
		}

	case *ExprStmt:
		Walk(v.E, fn)

	case *ReturnStmt:
		if v.Arg != nil {
			Walk(v.Arg, fn)
		}

	case *IfStmt:
		Walk(v.Test, fn)
		Walk(v.Cons, fn)
		if v.Alt != nil {
			Walk(v.Alt, fn)
		}

	case *ForStmt:
		if v.Init != nil {
			Walk(v.Init, fn)
		}
		if v.Test != nil {
			Walk(v.Test, fn)
		}
		if v.Update != nil {
			Walk(v.Update, fn)
		}
		Walk(v.Body, fn)

	case *ForInOfStmt:
		if v.Decl != nil {
			Walk(v.Decl, fn)
		}
		if v.Left != nil {
			Walk(v.Left, fn)
		}
		Walk(v.Obj, fn)
		Walk(v.Body, fn)

	case *WhileStmt:
		Walk(v.Test, fn)
		Walk(v.Body, fn)

	case *DoWhileStmt:
		Walk(v.Body, fn)
		Walk(v.Test, fn)

	case *ThrowStmt:
		Walk(v.Arg, fn)

	case *TryStmt:
		Walk(v.Block, fn)
		if v.CatchParam != nil {
			Walk(v.CatchParam, fn)
		}
		if v.Catch != nil {
			Walk(v.Catch, fn)
		}
		if v.Finally != nil {
			Walk(v.Finally, fn)
		}

	case *SwitchStmt:
		Walk(v.Disc, fn)
		for _, c := range v.Cases {
			if c.Test != nil {
				Walk(c.Test, fn)
			}
			for _, s := range c.Body {
				Walk(s, fn)
			}
		}

	case *LabeledStmt:
		Walk(v.Body, fn)

	case *TemplateLit:
		for _, e := range v.Exprs {
			Walk(e, fn)
		}

	case *TaggedTemplate:
		Walk(v.Tag, fn)
		Walk(v.Quasi, fn)

	case *ArrayLit:
		for _, e := range v.Elems {
			if e != nil {
				Walk(e, fn)
			}
		}

	case *ObjectLit:
		for _, p := range v.Props {
			if p.KeyExpr != nil {
				Walk(p.KeyExpr, fn)
			}
			if p.Value != nil {
				Walk(p.Value, fn)
			}
		}

	case *FuncExpr:
		for _, p := range v.Params {
			Walk(p, fn)
		}
		Walk(v.Body, fn)

	case *ArrowFunc:
		for _, p := range v.Params {
			Walk(p, fn)
		}
		Walk(v.Body, fn)

	case *ClassExpr:
		Walk(v.Decl, fn)

	case *UnaryExpr:
		Walk(v.Arg, fn)

	case *UpdateExpr:
		Walk(v.Arg, fn)

	case *BinaryExpr:
		Walk(v.Left, fn)
		Walk(v.Right, fn)

	case *AssignExpr:
		Walk(v.Target, fn)
		Walk(v.Value, fn)

	case *CondExpr:
		Walk(v.Test, fn)
		Walk(v.Cons, fn)
		Walk(v.Alt, fn)

	case *CallExpr:
		Walk(v.Callee, fn)
		for _, a := range v.Args {
			Walk(a, fn)
		}

	case *NewExpr:
		Walk(v.Callee, fn)
		for _, a := range v.Args {
			Walk(a, fn)
		}

	case *MemberExpr:
		Walk(v.Obj, fn)
		if v.PropExpr != nil {
			Walk(v.PropExpr, fn)
		}

	case *SpreadExpr:
		Walk(v.Arg, fn)

	case *SeqExpr:
		for _, e := range v.Exprs {
			Walk(e, fn)
		}

	case *ParenExpr:
		Walk(v.Inner, fn)

	case *AwaitExpr:
		Walk(v.Arg, fn)

	case *YieldExpr:
		if v.Arg != nil {
			Walk(v.Arg, fn)
		}

	case *ArrayPat:
		for _, e := range v.Elems {
			if e != nil {
				Walk(e, fn)
			}
		}
		if v.Rest != nil {
			Walk(v.Rest, fn)
		}

	case *ObjectPat:
		for _, p := range v.Props {
			if p.KeyExpr != nil {
				Walk(p.KeyExpr, fn)
			}
			if p.Value != nil {
				Walk(p.Value, fn)
			}
			if p.Default != nil {
				Walk(p.Default, fn)
			}
		}
		if v.Rest != nil {
			Walk(v.Rest, fn)
		}

	case *AssignPat:
		Walk(v.Left, fn)
		Walk(v.Right, fn)

	case *RestPat:
		Walk(v.Arg, fn)
	}
}

// WalkModule visits every top-level item of a module.
func WalkModule(m *Module, fn func(Node) bool) {
	for _, item := range m.Items {
		Walk(item, fn)
	}
}

// PatternNames collects the identifier names a pattern binds.
func PatternNames(p Pattern) []string {
	var names []string
	Walk(p, func(n Node) bool {
		switch v := n.(type) {
		case *Ident:
			names = append(names, v.Name)
		case *AssignPat:
			// defaults are expressions, not bindings; visit only the target
			Walk(v.Left, func(n Node) bool {
				if id, ok := n.(*Ident); ok {
					names = append(names, id.Name)
				}
				return true
			})
			return false
		case *ObjectPat:
			for _, prop := range v.Props {
				if prop.Value != nil {
					names = append(names, PatternNames(prop.Value)...)
				} else {
					names = append(names, prop.Key)
				}
			}
			if v.Rest != nil {
				names = append(names, PatternNames(v.Rest)...)
			}
			return false
		}
		return true
	})
	return names
}
