package abstractsql

import (
	"github.com/syssam/gqlpg/columnpath"
	"github.com/syssam/gqlpg/value"
)

// ColumnPathExpr is one side of a Predicate comparison: a physical
// column reached through a path, a bound parameter, an explicit NULL, or
// a nested predicate (used by JSON-path style boolean leaves).
type ColumnPathExpr struct {
	kind colExprKind
	path columnpath.Path
	val  value.Value
	pred Predicate
}

type colExprKind int

const (
	colExprPhysical colExprKind = iota
	colExprParam
	colExprNull
	colExprPredicate
)

// Physical wraps a column path.
func Physical(p columnpath.Path) ColumnPathExpr { return ColumnPathExpr{kind: colExprPhysical, path: p} }

// Param wraps a literal value to be bound as a SQL parameter.
func Param(v value.Value) ColumnPathExpr { return ColumnPathExpr{kind: colExprParam, val: v} }

// NullExpr represents a literal SQL NULL.
func NullExpr() ColumnPathExpr { return ColumnPathExpr{kind: colExprNull} }

// NestedPredicate wraps a boolean sub-expression used as an operand
// (e.g. a correlated-subselect EXISTS check folded into a comparison).
func NestedPredicate(p Predicate) ColumnPathExpr { return ColumnPathExpr{kind: colExprPredicate, pred: p} }

// IsPhysical reports whether e is a Physical column reference.
func (e ColumnPathExpr) IsPhysical() (columnpath.Path, bool) {
	return e.path, e.kind == colExprPhysical
}

// IsParam reports whether e is a bound parameter.
func (e ColumnPathExpr) IsParam() (value.Value, bool) { return e.val, e.kind == colExprParam }

// IsNull reports whether e is a literal NULL.
func (e ColumnPathExpr) IsNull() bool { return e.kind == colExprNull }

// IsPredicate reports whether e wraps a nested Predicate.
func (e ColumnPathExpr) IsPredicate() (Predicate, bool) { return e.pred, e.kind == colExprPredicate }

// PredicateOp names a comparison or combinator kind.
type PredicateOp int

const (
	OpTrue PredicateOp = iota
	OpFalse
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpIn
	OpLike
	OpStringContains
	OpJSONContains
	OpAnd
	OpOr
	OpNot
	OpVectorDistance
)

// Predicate is an AbstractPredicate: True | False | a binary comparison
// of two ColumnPathExprs | a logical combination of sub-predicates.
// Leaves that need more than two operands (vector distance) carry extra
// fields alongside LHS/RHS.
type Predicate struct {
	Op  PredicateOp
	LHS ColumnPathExpr
	RHS ColumnPathExpr

	// Operands holds sub-predicates for And/Or; for Not it holds
	// exactly one.
	Operands []Predicate

	// VectorFunc names the distance function for OpVectorDistance
	// (L2, Cosine, InnerProduct); RHS.val holds the query vector as a
	// List of F64 Values. Ordering by a vector distance is expressed
	// separately, through OrderExpr.
	VectorFunc string
}

// True is the always-satisfied predicate.
func True() Predicate { return Predicate{Op: OpTrue} }

// False is the never-satisfied predicate.
func False() Predicate { return Predicate{Op: OpFalse} }

// Binary constructs a two-operand comparison predicate.
func Binary(op PredicateOp, lhs, rhs ColumnPathExpr) Predicate {
	return Predicate{Op: op, LHS: lhs, RHS: rhs}
}

// Eq, Neq, Lt, Lte, Gt, Gte, In, Like, StringContains are convenience
// constructors for Binary with a fixed operator.
func Eq(lhs, rhs ColumnPathExpr) Predicate             { return Binary(OpEq, lhs, rhs) }
func Neq(lhs, rhs ColumnPathExpr) Predicate            { return Binary(OpNeq, lhs, rhs) }
func Lt(lhs, rhs ColumnPathExpr) Predicate             { return Binary(OpLt, lhs, rhs) }
func Lte(lhs, rhs ColumnPathExpr) Predicate            { return Binary(OpLte, lhs, rhs) }
func Gt(lhs, rhs ColumnPathExpr) Predicate             { return Binary(OpGt, lhs, rhs) }
func Gte(lhs, rhs ColumnPathExpr) Predicate            { return Binary(OpGte, lhs, rhs) }
func In(lhs, rhs ColumnPathExpr) Predicate             { return Binary(OpIn, lhs, rhs) }
func Like(lhs, rhs ColumnPathExpr) Predicate           { return Binary(OpLike, lhs, rhs) }
func StringContains(lhs, rhs ColumnPathExpr) Predicate { return Binary(OpStringContains, lhs, rhs) }

// And combines operands conjunctively. With no operands it returns True
// and with one it returns that operand unchanged; otherwise it builds an
// OpAnd node over the operands as given, True ones included (this is
// construction, not solving).
func And(operands ...Predicate) Predicate {
	if len(operands) == 0 {
		return True()
	}
	if len(operands) == 1 {
		return operands[0]
	}
	return Predicate{Op: OpAnd, Operands: operands}
}

// Or combines operands disjunctively.
func Or(operands ...Predicate) Predicate {
	if len(operands) == 0 {
		return False()
	}
	if len(operands) == 1 {
		return operands[0]
	}
	return Predicate{Op: OpOr, Operands: operands}
}

// Not negates a single operand.
func Not(operand Predicate) Predicate {
	return Predicate{Op: OpNot, Operands: []Predicate{operand}}
}

// VectorDistance constructs a vector-distance comparison used by the
// Order-By Mapper's distanceTo argument (spec.md §4.3).
func VectorDistance(path columnpath.Path, queryVector []float64, fn string) Predicate {
	elems := make([]value.Value, len(queryVector))
	for i, f := range queryVector {
		elems[i] = value.F64(f)
	}
	return Predicate{
		Op:         OpVectorDistance,
		LHS:        Physical(path),
		RHS:        Param(value.List(elems)),
		VectorFunc: fn,
	}
}

// Simplify applies the algebraic short-circuit rules from spec.md §8:
// And(False, x) = False, Or(True, x) = True, Not(Not(x)) = x, and
// flattens singleton logical nodes. It is a structural normalization,
// not a partial evaluation — it never consults a request context.
func Simplify(p Predicate) Predicate {
	switch p.Op {
	case OpNot:
		inner := Simplify(p.Operands[0])
		if inner.Op == OpNot {
			return inner.Operands[0]
		}
		if inner.Op == OpTrue {
			return False()
		}
		if inner.Op == OpFalse {
			return True()
		}
		return Not(inner)
	case OpAnd:
		var kept []Predicate
		for _, o := range p.Operands {
			so := Simplify(o)
			if so.Op == OpFalse {
				return False()
			}
			if so.Op == OpTrue {
				continue
			}
			kept = append(kept, so)
		}
		return And(kept...)
	case OpOr:
		var kept []Predicate
		for _, o := range p.Operands {
			so := Simplify(o)
			if so.Op == OpTrue {
				return True()
			}
			if so.Op == OpFalse {
				continue
			}
			kept = append(kept, so)
		}
		return Or(kept...)
	default:
		return p
	}
}
