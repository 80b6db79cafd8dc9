package model

import (
	"github.com/syssam/gqlpg/columnpath"
	"github.com/syssam/gqlpg/value"
)

// RelOp is a relational comparison operator appearing in an access
// expression leaf.
type RelOp int

const (
	RelEq RelOp = iota
	RelNeq
	RelLt
	RelLte
	RelGt
	RelGte
	RelIn
)

// LogicalOp combines sub-expressions.
type LogicalOp int

const (
	LogicalAnd LogicalOp = iota
	LogicalOr
	LogicalNot
)

// PrimitiveKind discriminates the leaf primitives an access expression's
// Relational node compares. Database expressions use Common, ColumnRef,
// and Function; precheck expressions additionally use InputValue.
type PrimitiveKind int

const (
	PrimitiveCommon PrimitiveKind = iota
	PrimitiveColumn
	PrimitiveFunction
	PrimitiveInputValue
)

// Primitive is one operand of a Relational node.
type Primitive struct {
	Kind PrimitiveKind

	// Common holds a literal or a context selection path (e.g.
	// AuthContext.role) to be resolved against the request context.
	// A Common primitive with a non-empty ContextPath is resolved via
	// RequestContext extraction; one with only Literal set is a bare
	// constant.
	ContextPath []string
	Literal     value.Value
	HasLiteral  bool

	// Column holds a database column reference.
	Column columnpath.Path

	// Function holds a named server-evaluated function (e.g. now(),
	// a vector-distance helper) together with a closure producing its
	// value, opaque to the solver beyond invocation.
	FunctionName string
	FunctionBody func() (value.Value, bool)

	// InputValuePath selects a field out of a mutation's incoming data
	// object, e.g. {"data", "price"} for "the field price of the
	// incoming data object". Used only in precheck expressions.
	InputValuePath []string
}

// CommonLiteral builds a Common primitive wrapping a literal value.
func CommonLiteral(v value.Value) Primitive {
	return Primitive{Kind: PrimitiveCommon, Literal: v, HasLiteral: true}
}

// CommonContext builds a Common primitive selecting a request-context
// path, e.g. CommonContext("AuthContext", "role").
func CommonContext(path ...string) Primitive {
	return Primitive{Kind: PrimitiveCommon, ContextPath: path}
}

// ColumnRef builds a Column primitive.
func ColumnRef(p columnpath.Path) Primitive {
	return Primitive{Kind: PrimitiveColumn, Column: p}
}

// FunctionRef builds a Function primitive.
func FunctionRef(name string, body func() (value.Value, bool)) Primitive {
	return Primitive{Kind: PrimitiveFunction, FunctionName: name, FunctionBody: body}
}

// InputValue builds an InputValue primitive (precheck expressions only).
func InputValue(path ...string) Primitive {
	return Primitive{Kind: PrimitiveInputValue, InputValuePath: path}
}

// Expression is the tree of AccessPredicateExpression described in
// spec.md §3: BooleanLiteral | Relational(op, lhs, rhs) |
// Logical(And|Or|Not, operands...). It is shared by both database and
// precheck access expressions — they differ only in which Primitive
// kinds their Relational leaves use.
type Expression struct {
	isBooleanLiteral bool
	literalValue     bool

	isRelational bool
	relOp        RelOp
	lhs, rhs     Primitive

	isLogical bool
	logicalOp LogicalOp
	operands  []Expression
}

// BooleanLiteral constructs a constant True/False expression.
func BooleanLiteral(b bool) Expression {
	return Expression{isBooleanLiteral: true, literalValue: b}
}

// Relational constructs a leaf comparing two primitives.
func Relational(op RelOp, lhs, rhs Primitive) Expression {
	return Expression{isRelational: true, relOp: op, lhs: lhs, rhs: rhs}
}

// And constructs a logical conjunction of operands.
func And(operands ...Expression) Expression {
	return Expression{isLogical: true, logicalOp: LogicalAnd, operands: operands}
}

// Or constructs a logical disjunction of operands.
func Or(operands ...Expression) Expression {
	return Expression{isLogical: true, logicalOp: LogicalOr, operands: operands}
}

// Not constructs a logical negation of a single operand.
func Not(operand Expression) Expression {
	return Expression{isLogical: true, logicalOp: LogicalNot, operands: []Expression{operand}}
}

// IsBooleanLiteral reports whether e is a BooleanLiteral and returns its
// value.
func (e Expression) IsBooleanLiteral() (bool, bool) {
	return e.literalValue, e.isBooleanLiteral
}

// IsRelational reports whether e is a Relational node and returns its
// operator and operands.
func (e Expression) IsRelational() (RelOp, Primitive, Primitive, bool) {
	return e.relOp, e.lhs, e.rhs, e.isRelational
}

// IsLogical reports whether e is a Logical node and returns its operator
// and operands.
func (e Expression) IsLogical() (LogicalOp, []Expression, bool) {
	return e.logicalOp, e.operands, e.isLogical
}

// ExprID indexes into a Model's shared slab of access expressions.
type ExprID int

// NoExpr means "no expression attached" (treated as an implicit
// BooleanLiteral(true) by access checks that consult it). It is -1, not
// the zero ExprID, which addresses the slab's first expression.
const NoExpr ExprID = -1
