package orderby

import (
	"fmt"

	"github.com/syssam/gqlpg"
	"github.com/syssam/gqlpg/abstractsql"
	"github.com/syssam/gqlpg/access"
	"github.com/syssam/gqlpg/columnpath"
	"github.com/syssam/gqlpg/model"
	"github.com/syssam/gqlpg/value"
)

// ParameterKind discriminates the three shapes an orderBy object's key
// can map to.
type ParameterKind int

const (
	// ScalarField orders directly by a column on the current table.
	ScalarField ParameterKind = iota
	// RelationField recurses into a related entity's own orderBy object.
	RelationField
	// VectorField accepts a {distanceTo, order} vector-distance argument.
	VectorField
)

// Parameter describes one key an orderBy argument object may carry, per
// spec.md §4.3.
type Parameter struct {
	Kind ParameterKind

	// ColumnPathLink is prepended (via columnpath.Join) to every column
	// path this parameter, or a RelationField's children, produce.
	ColumnPathLink columnpath.Path

	// Column is the leaf column addressed by a ScalarField or
	// VectorField parameter.
	Column columnpath.PhysicalColumn

	// ReadAccess is the field's read-access expression; it is solved
	// against the request context before the field is honored for
	// ordering. Callers resolve a field's Access.Read ExprID through
	// model.Model.Expr before constructing a Parameter — Expr itself
	// maps model.NoExpr to an implicit BooleanLiteral(true), so an
	// unrestricted field's ReadAccess should be that resolved
	// expression, never a bare zero Expression.
	ReadAccess model.Expression

	// Fields holds the nested orderBy object's own parameters, for
	// RelationField.
	Fields map[string]Parameter

	// DistanceFunc names the vector distance function (L2, Cosine,
	// InnerProduct) configured by the Model for a VectorField. It is not
	// client-overridable.
	DistanceFunc string
}

const (
	keyDistanceTo = "distanceTo"
	keyOrder      = "order"
)

// Map walks argument (an orderBy object) against fields, checking field
// access at every level, and returns the ORDER BY terms in the order
// their keys were visited. entityLabel names the entity the check
// failed against, for AuthorizationError messages.
func Map(ctx access.Context, entityLabel string, fields map[string]Parameter, argument value.Value) ([]abstractsql.OrderExpr, error) {
	obj, ok := argument.AsObject()
	if !ok {
		return nil, gqlpg.NewValidationError("", fmt.Errorf("orderby: argument must be an object"))
	}

	var out []abstractsql.OrderExpr
	for key, raw := range obj {
		param, ok := fields[key]
		if !ok {
			return nil, gqlpg.NewValidationError(key, fmt.Errorf("orderby: unknown field %q", key))
		}

		solution, err := access.Solve(ctx, access.Input{}, param.ReadAccess)
		if err != nil {
			return nil, err
		}
		if v, solved := solution.IsSolved(); !solved || !v {
			return nil, gqlpg.NewAuthorizationError(entityLabel, "order by "+key)
		}

		switch param.Kind {
		case ScalarField:
			expr, err := mapScalar(param, raw)
			if err != nil {
				return nil, err
			}
			out = append(out, expr)
		case RelationField:
			nested, err := mapRelation(ctx, entityLabel, param, raw)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
		case VectorField:
			expr, err := mapVector(param, raw)
			if err != nil {
				return nil, err
			}
			out = append(out, expr)
		default:
			return nil, gqlpg.NewValidationError(key, fmt.Errorf("orderby: unknown parameter kind %d", param.Kind))
		}
	}
	return out, nil
}

func (p Parameter) columnPath() (columnpath.Path, error) {
	leaf := columnpath.NewLeaf(p.Column)
	if p.ColumnPathLink.Len() == 0 {
		return leaf, nil
	}
	return columnpath.Join(p.ColumnPathLink, leaf)
}

func mapScalar(param Parameter, raw value.Value) (abstractsql.OrderExpr, error) {
	asc, err := value.ParseOrder(raw)
	if err != nil {
		return abstractsql.OrderExpr{}, gqlpg.NewValidationError(param.Column.Name, err)
	}
	path, err := param.columnPath()
	if err != nil {
		return abstractsql.OrderExpr{}, gqlpg.NewValidationError(param.Column.Name, err)
	}
	return abstractsql.OrderExpr{Column: path, Direction: direction(asc)}, nil
}

func mapRelation(ctx access.Context, entityLabel string, param Parameter, raw value.Value) ([]abstractsql.OrderExpr, error) {
	nested, err := Map(ctx, entityLabel, param.Fields, raw)
	if err != nil {
		return nil, err
	}
	if param.ColumnPathLink.Len() == 0 {
		return nested, nil
	}
	prefixed := make([]abstractsql.OrderExpr, len(nested))
	for i, n := range nested {
		if n.IsVector {
			prefixed[i] = n // vector expressions carry their own fully-qualified column inside Vector
			continue
		}
		joined, err := columnpath.Join(param.ColumnPathLink, n.Column)
		if err != nil {
			return nil, gqlpg.NewValidationError("", err)
		}
		n.Column = joined
		prefixed[i] = n
	}
	return prefixed, nil
}

func mapVector(param Parameter, raw value.Value) (abstractsql.OrderExpr, error) {
	obj, ok := raw.AsObject()
	if !ok {
		return abstractsql.OrderExpr{}, gqlpg.NewValidationError(param.Column.Name, fmt.Errorf("orderby: vector argument must be an object"))
	}
	rawVec, ok := obj[keyDistanceTo]
	if !ok {
		return abstractsql.OrderExpr{}, gqlpg.NewValidationError(param.Column.Name, fmt.Errorf("orderby: vector argument requires %q", keyDistanceTo))
	}
	list, ok := rawVec.AsList()
	if !ok {
		return abstractsql.OrderExpr{}, gqlpg.NewValidationError(param.Column.Name, fmt.Errorf("orderby: %q must be a list", keyDistanceTo))
	}
	vec := make([]float64, len(list))
	for i, el := range list {
		n, ok := el.AsNumber()
		if !ok {
			return abstractsql.OrderExpr{}, gqlpg.NewValidationError(param.Column.Name, fmt.Errorf("orderby: %q element %d is not numeric", keyDistanceTo, i))
		}
		vec[i] = n.AsF64()
	}

	asc := true
	if rawOrder, present := obj[keyOrder]; present {
		parsed, err := value.ParseOrder(rawOrder)
		if err != nil {
			return abstractsql.OrderExpr{}, gqlpg.NewValidationError(param.Column.Name, err)
		}
		asc = parsed
	}

	path, err := param.columnPath()
	if err != nil {
		return abstractsql.OrderExpr{}, gqlpg.NewValidationError(param.Column.Name, err)
	}
	return abstractsql.OrderExpr{
		Column:    path,
		IsVector:  true,
		Vector:    abstractsql.VectorDistance(path, vec, param.DistanceFunc),
		Direction: direction(asc),
	}, nil
}

func direction(asc bool) abstractsql.OrderDirection {
	if asc {
		return abstractsql.Asc
	}
	return abstractsql.Desc
}
