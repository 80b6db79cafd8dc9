package predicatemapper

import (
	"fmt"

	"github.com/syssam/gqlpg"
	"github.com/syssam/gqlpg/abstractsql"
	"github.com/syssam/gqlpg/columnpath"
	"github.com/syssam/gqlpg/value"
)

// Operator names a single comparison the Operator kind of
// PredicateParameter supports (spec.md §4.2).
type Operator string

const (
	OpEq       Operator = "eq"
	OpNeq      Operator = "neq"
	OpLt       Operator = "lt"
	OpLte      Operator = "lte"
	OpGt       Operator = "gt"
	OpGte      Operator = "gte"
	OpIn       Operator = "in"
	OpLike     Operator = "like"
	OpContains Operator = "contains"
)

func (o Operator) abstractOp() abstractsql.PredicateOp {
	switch o {
	case OpEq:
		return abstractsql.OpEq
	case OpNeq:
		return abstractsql.OpNeq
	case OpLt:
		return abstractsql.OpLt
	case OpLte:
		return abstractsql.OpLte
	case OpGt:
		return abstractsql.OpGt
	case OpGte:
		return abstractsql.OpGte
	case OpIn:
		return abstractsql.OpIn
	case OpLike:
		return abstractsql.OpLike
	case OpContains:
		return abstractsql.OpStringContains
	default:
		return abstractsql.OpEq
	}
}

// ParameterKind discriminates the three shapes a `where`-style argument
// field can take.
type ParameterKind int

const (
	// ImplicitEqual maps a bare scalar argument to Eq(column, literal).
	ImplicitEqual ParameterKind = iota
	// Operator maps an argument object of operator keys (eq/neq/lt/...).
	Operator
	// Composite maps a nested object of field names and/or logical keys
	// (and/or/not).
	Composite
)

// PredicateParameter describes how one `where` argument field maps onto
// the AbstractPredicate tree, per spec.md §4.2.
type PredicateParameter struct {
	Kind ParameterKind

	// ColumnPathLink, when non-zero, is prepended (via columnpath.Join)
	// to every column path this parameter or its children produce. Set
	// it to a RelationOnly path for a relation-valued field, or leave it
	// the zero Path for a parameter addressing a column directly on the
	// current table.
	ColumnPathLink columnpath.Path

	// Column is the leaf column this parameter compares against, for
	// ImplicitEqual and Operator kinds.
	Column columnpath.PhysicalColumn

	// Operators lists which operator keys are accepted for the Operator
	// kind.
	Operators []Operator

	// FieldParams maps a Composite parameter's field names (scalar or
	// relation) to their own PredicateParameter description.
	FieldParams map[string]PredicateParameter
}

// logicalKeys are reserved and mutually exclusive at one Composite
// level, per spec.md §4.2.
const (
	logicalAnd = "and"
	logicalOr  = "or"
	logicalNot = "not"
)

// Map turns argument, an already-parsed GraphQL input value tree, into a
// single AbstractPredicate according to param's shape.
func Map(param PredicateParameter, argument value.Value) (abstractsql.Predicate, error) {
	switch param.Kind {
	case ImplicitEqual:
		return mapImplicitEqual(param, argument)
	case Operator:
		return mapOperator(param, argument)
	case Composite:
		return mapComposite(param, argument)
	default:
		return abstractsql.Predicate{}, gqlpg.NewValidationError("", fmt.Errorf("predicatemapper: unknown parameter kind %d", param.Kind))
	}
}

func (p PredicateParameter) columnPath() (columnpath.Path, error) {
	leaf := columnpath.NewLeaf(p.Column)
	if p.ColumnPathLink.Len() == 0 {
		return leaf, nil
	}
	return columnpath.Join(p.ColumnPathLink, leaf)
}

func mapImplicitEqual(param PredicateParameter, argument value.Value) (abstractsql.Predicate, error) {
	lit, err := castLiteral(param, argument)
	if err != nil {
		return abstractsql.Predicate{}, err
	}
	path, err := param.columnPath()
	if err != nil {
		return abstractsql.Predicate{}, gqlpg.NewValidationError(param.Column.Name, err)
	}
	return abstractsql.Eq(abstractsql.Physical(path), lit), nil
}

// castLiteral validates argument against the parameter's column type —
// surfacing value.CastError as a client-safe ValidationError — and
// wraps the original argument Value as a bound Param. The Lowerer casts
// again at bind time to produce the concrete driver argument; this
// earlier cast exists only to reject malformed input before any SQL is
// built, per spec.md §4.2.
func castLiteral(param PredicateParameter, argument value.Value) (abstractsql.ColumnPathExpr, error) {
	if argument.IsNull() {
		return abstractsql.NullExpr(), nil
	}
	if _, err := value.Cast(argument, param.Column.Type); err != nil {
		return abstractsql.ColumnPathExpr{}, gqlpg.NewValidationError(param.Column.Name, err)
	}
	return abstractsql.Param(argument), nil
}

func mapOperator(param PredicateParameter, argument value.Value) (abstractsql.Predicate, error) {
	obj, ok := argument.AsObject()
	if !ok {
		return abstractsql.Predicate{}, gqlpg.NewValidationError(param.Column.Name, fmt.Errorf("predicatemapper: operator argument must be an object"))
	}
	path, err := param.columnPath()
	if err != nil {
		return abstractsql.Predicate{}, gqlpg.NewValidationError(param.Column.Name, err)
	}

	allowed := make(map[Operator]bool, len(param.Operators))
	for _, o := range param.Operators {
		allowed[o] = true
	}

	var preds []abstractsql.Predicate
	for key, raw := range obj {
		op := Operator(key)
		if !allowed[op] {
			return abstractsql.Predicate{}, gqlpg.NewValidationError(param.Column.Name, fmt.Errorf("predicatemapper: operator %q not permitted here", key))
		}
		rhs, err := operatorOperand(param, op, raw)
		if err != nil {
			return abstractsql.Predicate{}, err
		}
		preds = append(preds, abstractsql.Binary(op.abstractOp(), abstractsql.Physical(path), rhs))
	}
	return abstractsql.And(preds...), nil
}

func operatorOperand(param PredicateParameter, op Operator, raw value.Value) (abstractsql.ColumnPathExpr, error) {
	if op == OpIn {
		list, ok := raw.AsList()
		if !ok {
			return abstractsql.ColumnPathExpr{}, gqlpg.NewValidationError(param.Column.Name, fmt.Errorf("predicatemapper: in requires a list argument"))
		}
		for _, el := range list {
			if el.IsNull() {
				continue
			}
			if _, err := value.Cast(el, param.Column.Type); err != nil {
				return abstractsql.ColumnPathExpr{}, gqlpg.NewValidationError(param.Column.Name, err)
			}
		}
		return abstractsql.Param(raw), nil
	}
	return castLiteral(param, raw)
}

func mapComposite(param PredicateParameter, argument value.Value) (abstractsql.Predicate, error) {
	obj, ok := argument.AsObject()
	if !ok {
		return abstractsql.Predicate{}, gqlpg.NewValidationError("", fmt.Errorf("predicatemapper: composite argument must be an object"))
	}

	logicalCount := 0
	for _, k := range []string{logicalAnd, logicalOr, logicalNot} {
		if _, present := obj[k]; present {
			logicalCount++
		}
	}
	if logicalCount > 1 {
		return abstractsql.Predicate{}, gqlpg.NewValidationError("", fmt.Errorf("Cannot specify more than one logical operation on the same level"))
	}

	if raw, present := obj[logicalAnd]; present {
		return mapLogicalList(param, raw, abstractsql.And)
	}
	if raw, present := obj[logicalOr]; present {
		return mapLogicalList(param, raw, abstractsql.Or)
	}
	if raw, present := obj[logicalNot]; present {
		inner, ok := raw.AsObject()
		if !ok {
			return abstractsql.Predicate{}, gqlpg.NewValidationError("", fmt.Errorf("predicatemapper: not requires a single nested object"))
		}
		p, err := mapComposite(param, value.Object(inner))
		if err != nil {
			return abstractsql.Predicate{}, err
		}
		return abstractsql.Not(p), nil
	}

	var preds []abstractsql.Predicate
	for name, raw := range obj {
		child, ok := param.FieldParams[name]
		if !ok {
			return abstractsql.Predicate{}, gqlpg.NewValidationError(name, fmt.Errorf("predicatemapper: unknown field %q", name))
		}
		child.ColumnPathLink = joinLink(param.ColumnPathLink, child.ColumnPathLink)
		p, err := Map(child, raw)
		if err != nil {
			return abstractsql.Predicate{}, err
		}
		preds = append(preds, p)
	}
	return abstractsql.And(preds...), nil
}

func mapLogicalList(param PredicateParameter, raw value.Value, combine func(...abstractsql.Predicate) abstractsql.Predicate) (abstractsql.Predicate, error) {
	list, ok := raw.AsList()
	if !ok {
		return abstractsql.Predicate{}, gqlpg.NewValidationError("", fmt.Errorf("predicatemapper: and/or requires a list argument"))
	}
	if len(list) == 0 {
		return abstractsql.Predicate{}, gqlpg.NewValidationError("", fmt.Errorf("predicatemapper: and/or list must not be empty"))
	}
	preds := make([]abstractsql.Predicate, len(list))
	for i, item := range list {
		p, err := mapComposite(param, item)
		if err != nil {
			return abstractsql.Predicate{}, err
		}
		preds[i] = p
	}
	return combine(preds...), nil
}

// joinLink composes a parent's relation prefix with a child's own,
// prepending the parent's column_path_link onto column paths the child
// produces (spec.md §4.2's "prepending the parameter's column_path_link
// to produced column paths").
func joinLink(parent, child columnpath.Path) columnpath.Path {
	if parent.Len() == 0 {
		return child
	}
	if child.Len() == 0 {
		return parent
	}
	joined, err := columnpath.Join(parent, child)
	if err != nil {
		// Table continuity is a Model construction invariant the
		// schema builder is responsible for; a break here indicates a
		// malformed Model, not bad user input.
		return child
	}
	return joined
}
