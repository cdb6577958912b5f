// Package ast defines the statement and expression trees the parser
// builds and the executor walks. Expression nodes carry their own
// Evaluate method, so the executor and operator pipeline never need a
// separate interpreter switch over node kinds.
package ast

import (
	"fmt"
	"strings"

	"quilldb/internal/value"
)

// Expr is any node in an expression tree: literals, column references,
// operators and function calls.
type Expr interface {
	// Evaluate computes this expression's value against tup, whose
	// positions are aligned with schema.
	Evaluate(tup value.Tuple, schema value.Schema) (value.Value, error)
	Clone() Expr
	String() string
}

// Literal is a constant value appearing directly in SQL text.
type Literal struct {
	Val value.Value
}

func (e *Literal) Evaluate(value.Tuple, value.Schema) (value.Value, error) { return e.Val, nil }
func (e *Literal) Clone() Expr                                             { return &Literal{Val: e.Val} }
func (e *Literal) String() string                                          { return e.Val.String() }

// Param is a positional ? placeholder, resolved by the executor before
// evaluation ever sees it; Evaluate on an unresolved Param is a bug in
// the caller, so it returns an error rather than silently treating it as
// NULL.
type Param struct {
	Index int // 0-based position among the statement's placeholders
}

func (e *Param) Evaluate(value.Tuple, value.Schema) (value.Value, error) {
	return value.Value{}, fmt.Errorf("ast: parameter $%d was not substituted before evaluation", e.Index+1)
}
func (e *Param) Clone() Expr    { return &Param{Index: e.Index} }
func (e *Param) String() string { return "?" }

// ColumnRef names a column by its position in the schema it is evaluated
// against (the parser/binder resolves names to positions once, up
// front, rather than re-resolving by name on every row).
type ColumnRef struct {
	Name string
	Pos  int
}

func (e *ColumnRef) Evaluate(tup value.Tuple, schema value.Schema) (value.Value, error) {
	if e.Pos < 0 || e.Pos >= tup.Len() {
		return value.Value{}, fmt.Errorf("ast: column %q position %d out of range for a %d-value tuple", e.Name, e.Pos, tup.Len())
	}
	return tup.At(e.Pos), nil
}
func (e *ColumnRef) Clone() Expr    { return &ColumnRef{Name: e.Name, Pos: e.Pos} }
func (e *ColumnRef) String() string { return e.Name }

// BinOp is the token kind of a binary operator, kept as a small local
// enum rather than importing the lexer package (ast must not depend on
// lexer; the parser translates lexer.Kind into BinOp when it builds the
// tree).
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpConcat
	OpEq
	OpNeq
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpLike
)

func (op BinOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpConcat:
		return "||"
	case OpEq:
		return "="
	case OpNeq:
		return "<>"
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	case OpLike:
		return "LIKE"
	default:
		return "?"
	}
}

// BinaryExpr applies a binary operator to two operands. Comparisons
// propagate NULL: if either operand is NULL, the result is NULL, not
// false. AND/OR follow SQL three-valued logic (see evalLogical), so
// AND with a false operand is false and OR with a true operand is true
// even when the other operand is NULL.
type BinaryExpr struct {
	Op    BinOp
	Left  Expr
	Right Expr
}

func (e *BinaryExpr) Clone() Expr {
	return &BinaryExpr{Op: e.Op, Left: e.Left.Clone(), Right: e.Right.Clone()}
}

func (e *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right)
}

func (e *BinaryExpr) Evaluate(tup value.Tuple, schema value.Schema) (value.Value, error) {
	// AND/OR short-circuit and have their own NULL-propagation table,
	// so they're evaluated before falling into the shared numeric path.
	if e.Op == OpAnd || e.Op == OpOr {
		return evalLogical(e, tup, schema)
	}

	l, err := e.Left.Evaluate(tup, schema)
	if err != nil {
		return value.Value{}, err
	}
	r, err := e.Right.Evaluate(tup, schema)
	if err != nil {
		return value.Value{}, err
	}

	switch e.Op {
	case OpAdd:
		return value.Add(l, r)
	case OpSub:
		return value.Sub(l, r)
	case OpMul:
		return value.Mul(l, r)
	case OpDiv:
		return value.Div(l, r)
	case OpMod:
		return value.Mod(l, r)
	case OpConcat:
		return value.Concat(l, r)
	case OpEq, OpNeq, OpLt, OpLe, OpGt, OpGe:
		return evalComparison(e.Op, l, r)
	case OpLike:
		return evalLike(l, r)
	default:
		return value.Value{}, fmt.Errorf("ast: unknown binary operator %v", e.Op)
	}
}

func evalLogical(e *BinaryExpr, tup value.Tuple, schema value.Schema) (value.Value, error) {
	l, err := e.Left.Evaluate(tup, schema)
	if err != nil {
		return value.Value{}, err
	}
	// AND: false short-circuits regardless of the right side's nullness.
	// OR: true short-circuits the same way.
	if e.Op == OpAnd && !l.IsNull() && !l.Bool() {
		return value.NewBool(false), nil
	}
	if e.Op == OpOr && !l.IsNull() && l.Bool() {
		return value.NewBool(true), nil
	}
	r, err := e.Right.Evaluate(tup, schema)
	if err != nil {
		return value.Value{}, err
	}
	if l.IsNull() || r.IsNull() {
		// Three-valued logic: AND(NULL,true)=NULL, AND(NULL,false)=false,
		// OR(NULL,false)=NULL, OR(NULL,true)=true. The short-circuit
		// cases above already handled the "other side is a determining
		// non-null value" case only for a non-null left side; check the
		// symmetric case now that we know at least one side is NULL.
		if e.Op == OpAnd {
			if (!l.IsNull() && !l.Bool()) || (!r.IsNull() && !r.Bool()) {
				return value.NewBool(false), nil
			}
			return value.NewNull(), nil
		}
		if (!l.IsNull() && l.Bool()) || (!r.IsNull() && r.Bool()) {
			return value.NewBool(true), nil
		}
		return value.NewNull(), nil
	}
	if e.Op == OpAnd {
		return value.NewBool(l.Bool() && r.Bool()), nil
	}
	return value.NewBool(l.Bool() || r.Bool()), nil
}

func evalComparison(op BinOp, l, r value.Value) (value.Value, error) {
	if l.IsNull() || r.IsNull() {
		return value.NewNull(), nil
	}
	if op == OpEq || op == OpNeq {
		eq := l.Equal(r)
		if op == OpNeq {
			eq = !eq
		}
		return value.NewBool(eq), nil
	}
	c, err := value.Compare(l, r)
	if err != nil {
		return value.Value{}, err
	}
	switch op {
	case OpLt:
		return value.NewBool(c < 0), nil
	case OpLe:
		return value.NewBool(c <= 0), nil
	case OpGt:
		return value.NewBool(c > 0), nil
	case OpGe:
		return value.NewBool(c >= 0), nil
	default:
		return value.Value{}, fmt.Errorf("ast: evalComparison: unexpected op %v", op)
	}
}

// evalLike implements SQL LIKE with % (any run of characters) and _
// (any single character) wildcards, case-sensitive.
func evalLike(l, r value.Value) (value.Value, error) {
	if l.IsNull() || r.IsNull() {
		return value.NewNull(), nil
	}
	if l.Kind() != value.Text || r.Kind() != value.Text {
		return value.Value{}, fmt.Errorf("ast: LIKE requires text operands")
	}
	return value.NewBool(likeMatch(l.Text(), r.Text())), nil
}

func likeMatch(s, pattern string) bool {
	return likeMatchRunes([]rune(s), []rune(pattern))
}

func likeMatchRunes(s, p []rune) bool {
	if len(p) == 0 {
		return len(s) == 0
	}
	switch p[0] {
	case '%':
		for i := 0; i <= len(s); i++ {
			if likeMatchRunes(s[i:], p[1:]) {
				return true
			}
		}
		return false
	case '_':
		if len(s) == 0 {
			return false
		}
		return likeMatchRunes(s[1:], p[1:])
	default:
		if len(s) == 0 || s[0] != p[0] {
			return false
		}
		return likeMatchRunes(s[1:], p[1:])
	}
}

// UnaryOp is the small enum for prefix operators.
type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpNot
)

// UnaryExpr applies a prefix operator (unary minus, NOT) to one operand.
type UnaryExpr struct {
	Op      UnaryOp
	Operand Expr
}

func (e *UnaryExpr) Clone() Expr { return &UnaryExpr{Op: e.Op, Operand: e.Operand.Clone()} }

func (e *UnaryExpr) String() string {
	if e.Op == OpNeg {
		return fmt.Sprintf("(-%s)", e.Operand)
	}
	return fmt.Sprintf("(NOT %s)", e.Operand)
}

func (e *UnaryExpr) Evaluate(tup value.Tuple, schema value.Schema) (value.Value, error) {
	v, err := e.Operand.Evaluate(tup, schema)
	if err != nil {
		return value.Value{}, err
	}
	if e.Op == OpNeg {
		return value.Negate(v)
	}
	if v.IsNull() {
		return value.NewNull(), nil
	}
	return value.NewBool(!v.Bool()), nil
}

// IsNullExpr implements IS NULL / IS NOT NULL.
type IsNullExpr struct {
	Operand Expr
	Negate  bool
}

func (e *IsNullExpr) Clone() Expr { return &IsNullExpr{Operand: e.Operand.Clone(), Negate: e.Negate} }

func (e *IsNullExpr) String() string {
	if e.Negate {
		return fmt.Sprintf("(%s IS NOT NULL)", e.Operand)
	}
	return fmt.Sprintf("(%s IS NULL)", e.Operand)
}

func (e *IsNullExpr) Evaluate(tup value.Tuple, schema value.Schema) (value.Value, error) {
	v, err := e.Operand.Evaluate(tup, schema)
	if err != nil {
		return value.Value{}, err
	}
	isNull := v.IsNull()
	if e.Negate {
		isNull = !isNull
	}
	return value.NewBool(isNull), nil
}

// InExpr implements `expr [NOT] IN (list...)`.
type InExpr struct {
	Operand Expr
	List    []Expr
	Negate  bool
}

func (e *InExpr) Clone() Expr {
	list := make([]Expr, len(e.List))
	for i, x := range e.List {
		list[i] = x.Clone()
	}
	return &InExpr{Operand: e.Operand.Clone(), List: list, Negate: e.Negate}
}

func (e *InExpr) String() string {
	parts := make([]string, len(e.List))
	for i, x := range e.List {
		parts[i] = x.String()
	}
	not := ""
	if e.Negate {
		not = "NOT "
	}
	return fmt.Sprintf("(%s %sIN (%s))", e.Operand, not, strings.Join(parts, ", "))
}

func (e *InExpr) Evaluate(tup value.Tuple, schema value.Schema) (value.Value, error) {
	left, err := e.Operand.Evaluate(tup, schema)
	if err != nil {
		return value.Value{}, err
	}
	if left.IsNull() {
		return value.NewNull(), nil
	}
	sawNull := false
	for _, item := range e.List {
		v, err := item.Evaluate(tup, schema)
		if err != nil {
			return value.Value{}, err
		}
		if v.IsNull() {
			sawNull = true
			continue
		}
		if left.Equal(v) {
			return value.NewBool(!e.Negate), nil
		}
	}
	if sawNull {
		return value.NewNull(), nil
	}
	return value.NewBool(e.Negate), nil
}

// FuncCall is a named function invocation: an aggregate (COUNT, SUM,
// MIN, MAX, AVG) when it appears in a SELECT list or HAVING clause, and
// reserved for scalar builtins in any other position.
type FuncCall struct {
	Name     string // upper-cased function name
	Args     []Expr // empty for COUNT(*)
	Distinct bool
	Star     bool // true for COUNT(*)
}

func (e *FuncCall) Clone() Expr {
	args := make([]Expr, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.Clone()
	}
	return &FuncCall{Name: e.Name, Args: args, Distinct: e.Distinct, Star: e.Star}
}

func (e *FuncCall) String() string {
	if e.Star {
		return fmt.Sprintf("%s(*)", e.Name)
	}
	parts := make([]string, len(e.Args))
	for i, a := range e.Args {
		parts[i] = a.String()
	}
	distinct := ""
	if e.Distinct {
		distinct = "DISTINCT "
	}
	return fmt.Sprintf("%s(%s%s)", e.Name, distinct, strings.Join(parts, ", "))
}

// Evaluate computes scalar builtins (ABS, UPPER, LOWER) directly against
// the row. An aggregate name reaching here means the Aggregate operator
// never rewrote it into a ColumnRef over the reduced group — that only
// happens in isolated evaluation (no FROM, or a HAVING/ORDER BY applied
// outside a GROUP BY), where SQL defines the aggregate's result as NULL.
func (e *FuncCall) Evaluate(tup value.Tuple, schema value.Schema) (value.Value, error) {
	switch e.Name {
	case "COUNT", "SUM", "MIN", "MAX", "AVG":
		return value.NewNull(), nil
	case "ABS":
		arg, err := e.scalarArg(tup, schema)
		if err != nil {
			return value.Value{}, err
		}
		return value.Abs(arg)
	case "UPPER", "LOWER":
		arg, err := e.scalarArg(tup, schema)
		if err != nil {
			return value.Value{}, err
		}
		if arg.IsNull() {
			return value.NewNull(), nil
		}
		if arg.Kind() != value.Text {
			return value.Value{}, fmt.Errorf("ast: %s requires a text argument, got %s", e.Name, arg.Kind())
		}
		if e.Name == "UPPER" {
			return value.NewText(strings.ToUpper(arg.Text())), nil
		}
		return value.NewText(strings.ToLower(arg.Text())), nil
	default:
		return value.Value{}, fmt.Errorf("ast: unknown function %s", e.Name)
	}
}

func (e *FuncCall) scalarArg(tup value.Tuple, schema value.Schema) (value.Value, error) {
	if e.Star || len(e.Args) != 1 {
		return value.Value{}, fmt.Errorf("ast: %s expects exactly one argument", e.Name)
	}
	return e.Args[0].Evaluate(tup, schema)
}
