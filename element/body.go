package element

// Body is the lowered implementation of an element. Front ends build it
// from language-specific syntax trees; the engine treats it as the opaque
// body_reference and only the fact extractor interprets it.
type Body struct {
	Stmts []Stmt
}

// StmtKind classifies a lowered statement.
type StmtKind string

const (
	// StmtIf is a conditional with a test and two branches.
	StmtIf StmtKind = "if"
	// StmtRaise is an explicit error-raising statement.
	StmtRaise StmtKind = "raise"
	// StmtAssign is a write to a name or attribute.
	StmtAssign StmtKind = "assign"
	// StmtReturn is a return statement.
	StmtReturn StmtKind = "return"
	// StmtBlock groups nested statements the lowering has no finer shape
	// for (loops, with-blocks, try-bodies).
	StmtBlock StmtKind = "block"
)

// Stmt is one lowered statement. Only the fields relevant to its Kind are
// populated.
type Stmt struct {
	Kind StmtKind

	// If
	Cond *Cond
	Then []Stmt
	Else []Stmt

	// Raise
	Exception string

	// Assign. Target is the written name; OnSelf marks writes reachable
	// through the element's own instance ("self.balance" → Target
	// "balance", OnSelf true). Local variable writes have OnSelf false.
	// AugOp carries the augmented-assignment operator ("+=", "-=") when
	// the write was augmented; Value is the assigned expression.
	Target string
	OnSelf bool
	AugOp  string
	Value  *Expr

	// Return. Expr is nil for a bare return.
	Expr *Expr

	// Block
	Body []Stmt
}

// Cond is a normalized conditional test.
type Cond struct {
	// Text is the test rendered in source terms, e.g. "self.balance < amount".
	Text string

	// Subject is the parameter or attribute the test inspects, when a
	// single subject is identifiable.
	Subject string

	// AbsenceCheck marks None/empty tests ("x is None", "not x") so the
	// trigger can be described as "argument x is absent".
	AbsenceCheck bool

	// Negated marks tests of the form "not <subject test>".
	Negated bool
}

// ExprShape summarizes a returned expression without carrying semantics
// the engine cannot verify.
type ExprShape string

const (
	ShapeLiteral   ExprShape = "literal"
	ShapeAttribute ExprShape = "attribute"
	ShapeCall      ExprShape = "call"
	ShapeComputed  ExprShape = "computed"
	ShapeName      ExprShape = "name"
)

// Expr is the shape of a returned expression.
type Expr struct {
	Shape ExprShape
	Text  string
}
