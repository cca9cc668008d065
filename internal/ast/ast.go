package ast

import (
	"funee/internal/source"
)

// Node is implemented by every syntax node. Span returns the byte range
// the node covers in its module's source text; the emitter relies on the
// spans being exact.
type Node interface {
	INode()
	Span() source.Span
}

// Expression represents any node that produces a value
type Expression interface {
	Node
	Expr()
}

// Statement represents any node that doesn't produce a value
type Statement interface {
	Node
	Stmt()
}

// Pattern represents a binding target: an identifier or a destructuring form.
type Pattern interface {
	Node
	Pat()
}

type span struct {
	Range source.Span
}

func (s span) INode()            {}
func (s span) Span() source.Span { return s.Range }

// ---------------------------------------------------------------------------
// Module structure

type Module struct {
	URI   string
	File  *source.File
	Items []Node
}

type IMPORT_KIND int

const (
	NAMED_IMPORT IMPORT_KIND = iota
	DEFAULT_IMPORT
	NAMESPACE_IMPORT
)

// ImportClause is one binding introduced by an import statement.
// `import { a as b } from "./x"` has Local "b", Imported "a".
type ImportClause struct {
	Local    string
	Imported string
	Kind     IMPORT_KIND
}

type ImportDecl struct {
	span
	Clauses   []ImportClause
	Specifier string
	// TypeOnly marks `import type { ... }`; those never reach the graph.
	TypeOnly bool
}

func (*ImportDecl) Stmt() {}

type ExportSpecifier struct {
	Local    string
	Exported string
}

// ExportNamedDecl covers `export { a, b as c }` and the re-export form
// `export { a } from "./x"` (From non-empty).
type ExportNamedDecl struct {
	span
	Specifiers []ExportSpecifier
	From       string
}

func (*ExportNamedDecl) Stmt() {}

// ExportStarDecl is `export * from "./x"`.
type ExportStarDecl struct {
	span
	From string
}

func (*ExportStarDecl) Stmt() {}

// ExportDefaultDecl is `export default <expr>` or
// `export default function ... {}`.
type ExportDefaultDecl struct {
	span
	// Decl is set for `export default function f() {}`, Value otherwise.
	Decl  *FuncDecl
	Value Expression
}

func (*ExportDefaultDecl) Stmt() {}

// ---------------------------------------------------------------------------
// Declarations

type FuncDecl struct {
	span
	Name      *Ident
	Params    []Pattern
	Body      *BlockStmt
	Async     bool
	Generator bool
	Exported  bool
}

func (*FuncDecl) Stmt() {}

// VarDeclarator is one `name = init` pair inside a var/let/const statement.
type VarDeclarator struct {
	span
	Name Pattern
	Init Expression
}

// VarStmt is a const/let/var statement; Kind also carries the
// explicit-resource-management forms "using" and "await using".
type VarStmt struct {
	span
	Kind     string
	Decls    []*VarDeclarator
	Exported bool
}

func (*VarStmt) Stmt() {}

type CLASS_MEMBER_KIND int

const (
	METHOD_MEMBER CLASS_MEMBER_KIND = iota
	GETTER_MEMBER
	SETTER_MEMBER
	FIELD_MEMBER
)

type ClassMember struct {
	span
	Kind     CLASS_MEMBER_KIND
	Name     string
	Computed bool
	KeyExpr  Expression // set when Computed
	Static   bool
	Params   []Pattern
	Body     *BlockStmt
	Value    Expression // field initializer
	Async    bool
}

type ClassDecl struct {
	span
	Name       *Ident
	SuperClass Expression
	Members    []*ClassMember
	Exported   bool
}

func (*ClassDecl) Stmt() {}

// TypeDecl is an `interface` or `type` alias: parsed for completeness,
// never emitted.
type TypeDecl struct {
	span
	Name     string
	Exported bool
}

func (*TypeDecl) Stmt() {}

// ---------------------------------------------------------------------------
// Statements

type BlockStmt struct {
	span
	Stmts []Statement
}

func (*BlockStmt) Stmt() {}

type ExprStmt struct {
	span
	E Expression
}

func (*ExprStmt) Stmt() {}

type ReturnStmt struct {
	span
	Arg Expression
}

func (*ReturnStmt) Stmt() {}

type IfStmt struct {
	span
	Test Expression
	Cons Statement
	Alt  Statement
}

func (*IfStmt) Stmt() {}

type ForStmt struct {
	span
	Init   Node // *VarStmt, Expression or nil
	Test   Expression
	Update Expression
	Body   Statement
}

func (*ForStmt) Stmt() {}

// ForInOfStmt covers both for-in and for-of (Of true).
type ForInOfStmt struct {
	span
	Decl  *VarStmt // nil when iterating over an existing binding
	Left  Expression
	Of    bool
	Await bool
	Obj   Expression
	Body  Statement
}

func (*ForInOfStmt) Stmt() {}

type WhileStmt struct {
	span
	Test Expression
	Body Statement
}

func (*WhileStmt) Stmt() {}

type DoWhileStmt struct {
	span
	Body Statement
	Test Expression
}

func (*DoWhileStmt) Stmt() {}

type BreakStmt struct {
	span
	Label string
}

func (*BreakStmt) Stmt() {}

type ContinueStmt struct {
	span
	Label string
}

func (*ContinueStmt) Stmt() {}

type ThrowStmt struct {
	span
	Arg Expression
}

func (*ThrowStmt) Stmt() {}

type TryStmt struct {
	span
	Block      *BlockStmt
	CatchParam Pattern
	Catch      *BlockStmt
	Finally    *BlockStmt
}

func (*TryStmt) Stmt() {}

type SwitchCase struct {
	span
	Test Expression // nil for default
	Body []Statement
}

type SwitchStmt struct {
	span
	Disc  Expression
	Cases []*SwitchCase
}

func (*SwitchStmt) Stmt() {}

type LabeledStmt struct {
	span
	Label string
	Body  Statement
}

func (*LabeledStmt) Stmt() {}

type EmptyStmt struct {
	span
}

func (*EmptyStmt) Stmt() {}

// ---------------------------------------------------------------------------
// Expressions

type Ident struct {
	span
	Name string
	// Shorthand marks an identifier that doubles as an object-literal
	// key (`{ a }`); renaming it must expand to `a: newName`.
	Shorthand bool
}

func (*Ident) Expr() {}
func (*Ident) Pat()  {}

type LITERAL_KIND int

const (
	NUMBER_LITERAL LITERAL_KIND = iota
	STRING_LITERAL
	BOOL_LITERAL
	NULL_LITERAL
	REGEX_LITERAL
)

type Literal struct {
	span
	Kind LITERAL_KIND
	Raw  string
}

func (*Literal) Expr() {}

type TemplateLit struct {
	span
	Exprs []Expression
}

func (*TemplateLit) Expr() {}

type TaggedTemplate struct {
	span
	Tag   Expression
	Quasi *TemplateLit
}

func (*TaggedTemplate) Expr() {}

type ArrayLit struct {
	span
	Elems []Expression // nil entries are holes
}

func (*ArrayLit) Expr() {}

type PROPERTY_KIND int

const (
	INIT_PROPERTY PROPERTY_KIND = iota
	SHORTHAND_PROPERTY
	METHOD_PROPERTY
	SPREAD_PROPERTY
)

type Property struct {
	span
	Kind     PROPERTY_KIND
	Key      string
	Computed bool
	KeyExpr  Expression // set when Computed
	Value    Expression
}

type ObjectLit struct {
	span
	Props []*Property
}

func (*ObjectLit) Expr() {}

// FuncExpr is a function expression; Name, when present, is only visible
// inside the function body.
type FuncExpr struct {
	span
	Name      string
	Params    []Pattern
	Body      *BlockStmt
	Async     bool
	Generator bool
}

func (*FuncExpr) Expr() {}

type ArrowFunc struct {
	span
	Params []Pattern
	// Body is a *BlockStmt or an Expression
	Body  Node
	Async bool
}

func (*ArrowFunc) Expr() {}

type ClassExpr struct {
	span
	Decl *ClassDecl
}

func (*ClassExpr) Expr() {}

type UnaryExpr struct {
	span
	Op  string
	Arg Expression
}

func (*UnaryExpr) Expr() {}

type UpdateExpr struct {
	span
	Op     string
	Prefix bool
	Arg    Expression
}

func (*UpdateExpr) Expr() {}

type BinaryExpr struct {
	span
	Op    string
	Left  Expression
	Right Expression
}

func (*BinaryExpr) Expr() {}

type AssignExpr struct {
	span
	Op     string
	Target Node // Expression or Pattern
	Value  Expression
}

func (*AssignExpr) Expr() {}

type CondExpr struct {
	span
	Test Expression
	Cons Expression
	Alt  Expression
}

func (*CondExpr) Expr() {}

type CallExpr struct {
	span
	Callee   Expression
	Args     []Expression
	Optional bool
}

func (*CallExpr) Expr() {}

type NewExpr struct {
	span
	Callee Expression
	Args   []Expression
}

func (*NewExpr) Expr() {}

type MemberExpr struct {
	span
	Obj      Expression
	Prop     string
	Computed bool
	PropExpr Expression // set when Computed
	Optional bool
}

func (*MemberExpr) Expr() {}

type SpreadExpr struct {
	span
	Arg Expression
}

func (*SpreadExpr) Expr() {}

type SeqExpr struct {
	span
	Exprs []Expression
}

func (*SeqExpr) Expr() {}

type ParenExpr struct {
	span
	Inner Expression
}

func (*ParenExpr) Expr() {}

type AwaitExpr struct {
	span
	Arg Expression
}

func (*AwaitExpr) Expr() {}

type YieldExpr struct {
	span
	Arg      Expression
	Delegate bool
}

func (*YieldExpr) Expr() {}

// ---------------------------------------------------------------------------
// Patterns

type ArrayPat struct {
	span
	Elems []Pattern // nil entries are holes
	Rest  Pattern
}

func (*ArrayPat) Pat() {}

type ObjectPatProp struct {
	span
	Key      string
	Computed bool
	KeyExpr  Expression
	Value    Pattern // nil for shorthand
	Default  Expression
}

type ObjectPat struct {
	span
	Props []*ObjectPatProp
	Rest  Pattern
}

func (*ObjectPat) Pat() {}

// AssignPat is a default value inside a pattern: `x = 1`.
type AssignPat struct {
	span
	Left  Pattern
	Right Expression
}

func (*AssignPat) Pat() {}

type RestPat struct {
	span
	Arg Pattern
}

func (*RestPat) Pat() {}
