package field

// Op is a comparison operator rendered verbatim into the compiled SQL.
type Op string

const (
	OpEq  Op = "="
	OpNeq Op = "!="
	OpLt  Op = "<"
	OpLte Op = "<="
	OpGt  Op = ">"
	OpGte Op = ">="
)

// ExprKind discriminates the closed set of expression shapes an Expr can
// hold. query.Compile type-switches on this to choose how to render SQL.
type ExprKind int

const (
	KindCompare ExprKind = iota
	KindLike
	KindIsNull
	KindIn
	KindContains
	KindIsIn
	KindAnd
	KindOr
	KindNot
)

// Expr is a compositional predicate: a pair of (eventual SQL fragment,
// parameters) once compiled, expressed here as an inert AST node. Expr
// values compose via And/Or/Not and the Field comparison methods below.
type Expr struct {
	Kind     ExprKind
	Field    Field   // set for every kind except And/Or/Not
	Op       Op      // set for KindCompare
	Value    any     // set for KindCompare, KindLike, KindContains
	Values   []any   // set for KindIn, KindIsIn
	Children []Expr  // set for KindAnd, KindOr
	Child    *Expr   // set for KindNot
}

// Eq builds field = value.
func (f Field) Eq(value any) Expr { return Expr{Kind: KindCompare, Field: f, Op: OpEq, Value: value} }

// Neq builds field != value.
func (f Field) Neq(value any) Expr { return Expr{Kind: KindCompare, Field: f, Op: OpNeq, Value: value} }

// Lt builds field < value.
func (f Field) Lt(value any) Expr { return Expr{Kind: KindCompare, Field: f, Op: OpLt, Value: value} }

// Lte builds field <= value.
func (f Field) Lte(value any) Expr { return Expr{Kind: KindCompare, Field: f, Op: OpLte, Value: value} }

// Gt builds field > value.
func (f Field) Gt(value any) Expr { return Expr{Kind: KindCompare, Field: f, Op: OpGt, Value: value} }

// Gte builds field >= value.
func (f Field) Gte(value any) Expr { return Expr{Kind: KindCompare, Field: f, Op: OpGte, Value: value} }

// Like builds a SQL LIKE comparison.
func (f Field) Like(pattern string) Expr { return Expr{Kind: KindLike, Field: f, Value: pattern} }

// IsNull builds an IS NULL comparison.
func (f Field) IsNull() Expr { return Expr{Kind: KindIsNull, Field: f} }

// In builds a scalar membership test: field IN (values...). An empty list
// compiles to the tautologically-false literal 0, same as IsIn.
func (f Field) In(values []any) Expr { return Expr{Kind: KindIn, Field: f, Values: values} }

// Contains builds an array-containment predicate: the array at field
// contains an element equal to value.
func (f Field) Contains(value any) Expr { return Expr{Kind: KindContains, Field: f, Value: value} }

// IsIn builds an array-overlap predicate: the array at field shares at
// least one element with values. isin([]) deliberately compiles to the
// tautologically-false literal 0 with no parameters, keeping the SQL legal.
func (f Field) IsIn(values []any) Expr { return Expr{Kind: KindIsIn, Field: f, Values: values} }

// And conjoins expressions, preserving parentheses around each operand.
func And(exprs ...Expr) Expr { return Expr{Kind: KindAnd, Children: exprs} }

// Or disjoins expressions, preserving parentheses around each operand.
func Or(exprs ...Expr) Expr { return Expr{Kind: KindOr, Children: exprs} }

// Not negates an expression.
func Not(e Expr) Expr { return Expr{Kind: KindNot, Child: &e} }

// And is sugar for And(e, other), enabling e.And(other).And(...) chains.
func (e Expr) And(other Expr) Expr { return And(e, other) }

// Or is sugar for Or(e, other).
func (e Expr) Or(other Expr) Expr { return Or(e, other) }
