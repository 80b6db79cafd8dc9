package access

import (
	"errors"
	"fmt"

	"github.com/syssam/gqlpg/abstractsql"
	"github.com/syssam/gqlpg/model"
	"github.com/syssam/gqlpg/value"
)

// Context resolves a dotted context-selection path (e.g.
// ["AuthContext", "role"]) against the live request — JWT claims,
// cookies, headers, or a remote identity introspection call, all opaque
// to the solver beyond this one method. The second return is false if
// the path is simply absent (no error); Resolve should only return an
// error for an extraction failure (a malformed token, a failed remote
// call).
type Context interface {
	Resolve(path []string) (value.Value, bool, error)
}

// ErrorKind discriminates AccessSolverError causes.
type ErrorKind int

const (
	KindGeneric ErrorKind = iota
	KindContextExtraction
)

// AccessSolverError is returned when solving fails outright (as opposed
// to producing a Solution) — type-incompatible operands (KindGeneric)
// or a failed context extraction (KindContextExtraction).
type AccessSolverError struct {
	Kind ErrorKind
	Err  error
}

func (e *AccessSolverError) Error() string {
	switch e.Kind {
	case KindContextExtraction:
		return fmt.Sprintf("access: context extraction failed: %v", e.Err)
	default:
		return fmt.Sprintf("access: %v", e.Err)
	}
}

func (e *AccessSolverError) Unwrap() error { return e.Err }

func genericErr(format string, a ...any) error {
	return &AccessSolverError{Kind: KindGeneric, Err: fmt.Errorf(format, a...)}
}

func contextExtractionErr(err error) error {
	return &AccessSolverError{Kind: KindContextExtraction, Err: err}
}

// Solution is the result of solving an expression: either a concrete
// boolean, or a residual predicate to be embedded into the emitted SQL
// (for database expressions) or into a transaction step's server-side
// guard (for precheck expressions).
type Solution struct {
	solved  bool
	value   bool
	residue abstractsql.Predicate
}

// Solved constructs a concrete boolean solution.
func Solved(b bool) Solution { return Solution{solved: true, value: b} }

// Unsolvable constructs a residual-predicate solution.
func Unsolvable(p abstractsql.Predicate) Solution { return Solution{residue: p} }

// IsSolved reports whether the solution is concrete, and its value.
func (s Solution) IsSolved() (bool, bool) { return s.value, s.solved }

// Residue returns the residual predicate. If the solution is concrete,
// it returns the equivalent True()/False() predicate, so callers that
// just want "a predicate to AND in" never need to branch.
func (s Solution) Residue() abstractsql.Predicate {
	if s.solved {
		if s.value {
			return abstractsql.True()
		}
		return abstractsql.False()
	}
	return s.residue
}

// Not negates a Solution per spec.md §4.1: Solved(True).not() =
// Solved(False); Unsolvable(p).not() = Unsolvable(p.not()).
func (s Solution) Not() Solution {
	if s.solved {
		return Solved(!s.value)
	}
	return Unsolvable(abstractsql.Not(s.residue))
}

// and combines two solutions per spec.md §4.1's And rule.
func and(l, r Solution) Solution {
	if lv, ok := l.IsSolved(); ok && !lv {
		return Solved(false)
	}
	if rv, ok := r.IsSolved(); ok && !rv {
		return Solved(false)
	}
	lSolved, lVal := l.IsSolved()
	rSolved, rVal := r.IsSolved()
	switch {
	case lSolved && rSolved:
		return Solved(lVal && rVal)
	case lSolved:
		return r // lVal must be true here (false already handled above)
	case rSolved:
		return l
	default:
		return Unsolvable(abstractsql.And(l.residue, r.residue))
	}
}

// or combines two solutions per spec.md §4.1's Or rule.
func or(l, r Solution) Solution {
	if lv, ok := l.IsSolved(); ok && lv {
		return Solved(true)
	}
	if rv, ok := r.IsSolved(); ok && rv {
		return Solved(true)
	}
	lSolved, lVal := l.IsSolved()
	rSolved, rVal := r.IsSolved()
	switch {
	case lSolved && rSolved:
		return Solved(lVal || rVal)
	case lSolved:
		return r
	case rSolved:
		return l
	default:
		return Unsolvable(abstractsql.Or(l.residue, r.residue))
	}
}

// Input bundles the mutation input value available to a precheck
// expression, and the flag controlling whether a missing optional field
// should be ignored rather than rejected (spec.md §4.1).
type Input struct {
	Value              value.Value
	Present            bool
	IgnoreMissingValue bool
}

// Solve partially evaluates expr against ctx (and, for precheck
// expressions referencing InputValue primitives, in) following the
// rules in spec.md §4.1. Database expressions should pass a zero Input.
func Solve(ctx Context, in Input, expr model.Expression) (Solution, error) {
	if lit, ok := expr.IsBooleanLiteral(); ok {
		return Solved(lit), nil
	}
	if op, operands, ok := expr.IsLogical(); ok {
		switch op {
		case model.LogicalNot:
			s, err := Solve(ctx, in, operands[0])
			if err != nil {
				return Solution{}, err
			}
			return s.Not(), nil
		case model.LogicalAnd:
			acc := Solved(true)
			for _, o := range operands {
				s, err := Solve(ctx, in, o)
				if err != nil {
					return Solution{}, err
				}
				acc = and(acc, s)
				if v, ok := acc.IsSolved(); ok && !v {
					return acc, nil
				}
			}
			return acc, nil
		case model.LogicalOr:
			acc := Solved(false)
			for _, o := range operands {
				s, err := Solve(ctx, in, o)
				if err != nil {
					return Solution{}, err
				}
				acc = or(acc, s)
				if v, ok := acc.IsSolved(); ok && v {
					return acc, nil
				}
			}
			return acc, nil
		}
	}
	if op, lhs, rhs, ok := expr.IsRelational(); ok {
		return solveRelational(ctx, in, op, lhs, rhs)
	}
	return Solution{}, genericErr("access: malformed expression")
}

// primResult is the outcome of resolving one Relational operand.
type primResult struct {
	isColumn bool
	colExpr  abstractsql.ColumnPathExpr
	concrete value.Value
	missing  bool
}

func resolvePrimitive(ctx Context, in Input, p model.Primitive) (primResult, error) {
	switch p.Kind {
	case model.PrimitiveColumn:
		return primResult{isColumn: true, colExpr: abstractsql.Physical(p.Column)}, nil
	case model.PrimitiveCommon:
		if p.HasLiteral {
			return primResult{concrete: p.Literal}, nil
		}
		v, present, err := ctx.Resolve(p.ContextPath)
		if err != nil {
			return primResult{}, contextExtractionErr(err)
		}
		if !present {
			return primResult{missing: true}, nil
		}
		return primResult{concrete: v}, nil
	case model.PrimitiveFunction:
		v, ok := p.FunctionBody()
		if !ok {
			return primResult{missing: true}, nil
		}
		return primResult{concrete: v}, nil
	case model.PrimitiveInputValue:
		if !in.Present {
			return primResult{missing: true}, nil
		}
		v := in.Value
		var present bool
		for i, key := range p.InputValuePath {
			v, present = v.Field(key)
			if !present {
				if i == len(p.InputValuePath)-1 {
					break
				}
				return primResult{missing: true}, nil
			}
		}
		if !present {
			return primResult{missing: true}, nil
		}
		return primResult{concrete: v}, nil
	default:
		return primResult{}, genericErr("access: unknown primitive kind %d", p.Kind)
	}
}

func mapOp(op model.RelOp) abstractsql.PredicateOp {
	switch op {
	case model.RelEq:
		return abstractsql.OpEq
	case model.RelNeq:
		return abstractsql.OpNeq
	case model.RelLt:
		return abstractsql.OpLt
	case model.RelLte:
		return abstractsql.OpLte
	case model.RelGt:
		return abstractsql.OpGt
	case model.RelGte:
		return abstractsql.OpGte
	case model.RelIn:
		return abstractsql.OpIn
	default:
		return abstractsql.OpEq
	}
}

func solveRelational(ctx Context, in Input, op model.RelOp, lhs, rhs model.Primitive) (Solution, error) {
	l, err := resolvePrimitive(ctx, in, lhs)
	if err != nil {
		return Solution{}, err
	}
	// A missing optional input value during precheck evaluation may be
	// treated as "ignore" so the rule doesn't reject an operation whose
	// input simply omits the checked field.
	if l.missing && lhs.Kind == model.PrimitiveInputValue && in.IgnoreMissingValue {
		return Solved(true), nil
	}

	if op == model.RelIn {
		return solveIn(ctx, in, l, rhs)
	}

	r, err := resolvePrimitive(ctx, in, rhs)
	if err != nil {
		return Solution{}, err
	}
	if r.missing && rhs.Kind == model.PrimitiveInputValue && in.IgnoreMissingValue {
		return Solved(true), nil
	}

	// Missing context/function operand never produces a residue of
	// "column vs null" unless Null was explicitly supplied as a
	// literal — it short-circuits the whole comparison to False.
	if l.missing || r.missing {
		return Solved(false), nil
	}

	switch {
	case !l.isColumn && !r.isColumn:
		b, err := computeBool(op, l.concrete, r.concrete)
		if err != nil {
			return Solution{}, err
		}
		return Solved(b), nil
	case l.isColumn && !r.isColumn:
		return Unsolvable(abstractsql.Binary(mapOp(op), l.colExpr, abstractsql.Param(r.concrete))), nil
	case !l.isColumn && r.isColumn:
		return Unsolvable(abstractsql.Binary(mapOp(op), abstractsql.Param(l.concrete), r.colExpr)), nil
	default:
		return Unsolvable(abstractsql.Binary(mapOp(op), l.colExpr, r.colExpr)), nil
	}
}

// solveIn implements spec.md §4.1's In(v, list) rule: list Null => False;
// a literal list evaluates directly when v is concrete; a Column v with
// a concrete (non-null) list produces a residue.
func solveIn(ctx Context, in Input, l primResult, rhsPrim model.Primitive) (Solution, error) {
	r, err := resolvePrimitive(ctx, in, rhsPrim)
	if err != nil {
		return Solution{}, err
	}
	if r.missing {
		return Solved(false), nil
	}
	if !r.isColumn && r.concrete.IsNull() {
		return Solved(false), nil
	}
	if l.missing {
		return Solved(false), nil
	}
	if !l.isColumn && !r.isColumn {
		list, ok := r.concrete.AsList()
		if !ok {
			return Solution{}, genericErr("access: In rhs is not a list")
		}
		for _, elem := range list {
			eq, err := value.Equal(l.concrete, elem)
			if err != nil {
				continue
			}
			if eq {
				return Solved(true), nil
			}
		}
		return Solved(false), nil
	}
	if l.isColumn && !r.isColumn {
		return Unsolvable(abstractsql.In(l.colExpr, abstractsql.Param(r.concrete))), nil
	}
	if !l.isColumn && r.isColumn {
		return Unsolvable(abstractsql.In(abstractsql.Param(l.concrete), r.colExpr)), nil
	}
	return Unsolvable(abstractsql.In(l.colExpr, r.colExpr)), nil
}

func computeBool(op model.RelOp, a, b value.Value) (bool, error) {
	switch op {
	case model.RelEq:
		return value.Equal(a, b)
	case model.RelNeq:
		eq, err := value.Equal(a, b)
		if err != nil {
			return false, err
		}
		return !eq, nil
	case model.RelLt, model.RelLte, model.RelGt, model.RelGte:
		an, aok := a.AsNumber()
		bn, bok := b.AsNumber()
		if !aok || !bok {
			return false, genericErr("access: ordering operator requires numeric operands")
		}
		ord, err := value.Compare(an, bn)
		if err != nil {
			return false, err
		}
		switch op {
		case model.RelLt:
			return ord == value.OrderLess, nil
		case model.RelLte:
			return ord != value.OrderGreater, nil
		case model.RelGt:
			return ord == value.OrderGreater, nil
		default:
			return ord != value.OrderLess, nil
		}
	default:
		return false, genericErr("access: unsupported relational operator")
	}
}

// errPrecheckUnresolved is returned by callers (the Operation Resolver)
// that require a fully concrete precheck solution and got a residue
// they cannot attach anywhere (e.g. a bare-Create with no transaction
// step to carry a server-side guard).
var errPrecheckUnresolved = errors.New("access: precheck did not resolve to a concrete boolean")

// ErrPrecheckUnresolved is returned by RequireConcrete.
func ErrPrecheckUnresolved() error { return errPrecheckUnresolved }

// RequireConcrete extracts a concrete boolean from s or returns
// ErrPrecheckUnresolved.
func RequireConcrete(s Solution) (bool, error) {
	if v, ok := s.IsSolved(); ok {
		return v, nil
	}
	return false, errPrecheckUnresolved
}
