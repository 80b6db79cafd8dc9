package dataparam

import (
	"fmt"

	"github.com/syssam/gqlpg"
	"github.com/syssam/gqlpg/abstractsql"
	"github.com/syssam/gqlpg/access"
	"github.com/syssam/gqlpg/columnpath"
	"github.com/syssam/gqlpg/model"
	"github.com/syssam/gqlpg/value"
)

// Parameter describes how one field of a create/update input object
// maps onto the abstract tree, per spec.md §4.4.
type Parameter struct {
	Kind model.FieldKind

	// Column addresses a FieldScalar's storage column.
	Column columnpath.PhysicalColumn

	// Relation is the FK link used by FieldManyToOne and FieldOneToMany.
	Relation columnpath.RelationLink

	// ForeignObjectKeys names, for a FieldManyToOne parameter, the field
	// name on the referenced object's PK that corresponds to each of
	// Relation.ColumnPairs, in order — e.g. ["id"] for a single-column
	// PK. Supplying the full referenced object (rather than a bare
	// scalar PK value from a Dynamic default) uses these to pull out
	// the value to assign to each self column.
	ForeignObjectKeys []string

	// ChildCreate describes the child entity's own fields, used when
	// mapping a FieldOneToMany create row or the "create" sub-list of
	// an update.
	ChildCreate map[string]Parameter

	// ChildUpdate describes the child entity's updatable (non-PK)
	// fields, used for the "update" sub-list's per-row assignments.
	ChildUpdate map[string]Parameter

	// ChildPKColumns are the child entity's primary-key columns, in
	// order, used to build the identifying predicate for "update" and
	// "delete" sub-list rows.
	ChildPKColumns []columnpath.PhysicalColumn

	// ChildCreationAccess is the child entity's Creation access
	// expression, solved (with the child's own row as precheck Input)
	// for every row appended through a create list.
	ChildCreationAccess model.Expression

	// ChildUpdatePrecheckAccess is the child entity's
	// UpdatePrecheck access expression, solved for every row in an
	// "update" sub-list.
	ChildUpdatePrecheckAccess model.Expression

	// DynamicContextPath, when non-empty, supplies a request-context
	// selection used to fill this field when the argument omits it.
	// An absent field with no DynamicContextPath is simply omitted
	// from the row.
	DynamicContextPath []string
}

// MapCreateRow maps one create-input object into an InsertRow. It
// returns the row together with every precheck predicate produced by
// nested entity creates at any depth, flattened — spec.md §4.4 attaches
// the whole set to the root insert/update for the executor to evaluate
// before the statement runs.
func MapCreateRow(ctx access.Context, fields map[string]Parameter, argument value.Value) (abstractsql.InsertRow, []abstractsql.Predicate, error) {
	obj, ok := argument.AsObject()
	if !ok {
		return abstractsql.InsertRow{}, nil, gqlpg.NewValidationError("", fmt.Errorf("dataparam: create argument must be an object"))
	}

	var row abstractsql.InsertRow
	var prechecks []abstractsql.Predicate

	for name, param := range fields {
		raw, present, err := resolveField(ctx, name, param, obj)
		if err != nil {
			return abstractsql.InsertRow{}, nil, err
		}
		if !present {
			continue
		}

		switch param.Kind {
		case model.FieldScalar:
			if _, err := value.Cast(raw, param.Column.Type); err != nil {
				return abstractsql.InsertRow{}, nil, gqlpg.NewValidationError(name, err)
			}
			row.Elems = append(row.Elems, abstractsql.SelfInsert(param.Column, raw))

		case model.FieldManyToOne:
			elems, err := mapManyToOneAssignment(name, param, raw)
			if err != nil {
				return abstractsql.InsertRow{}, nil, err
			}
			row.Elems = append(row.Elems, elems...)

		case model.FieldOneToMany:
			elem, nestedPrechecks, err := mapOneToManyCreate(ctx, name, param, raw)
			if err != nil {
				return abstractsql.InsertRow{}, nil, err
			}
			row.Elems = append(row.Elems, elem)
			prechecks = append(prechecks, nestedPrechecks...)

		case model.FieldEmbedded:
			return abstractsql.InsertRow{}, nil, gqlpg.NewValidationError(name, fmt.Errorf("dataparam: embedded fields are not supported in create/update"))

		default:
			return abstractsql.InsertRow{}, nil, gqlpg.NewValidationError(name, fmt.Errorf("dataparam: unknown field kind %d", param.Kind))
		}
	}
	return row, prechecks, nil
}

// resolveField looks up name in obj, falling back to param's Dynamic
// context default when absent.
func resolveField(ctx access.Context, name string, param Parameter, obj map[string]value.Value) (value.Value, bool, error) {
	if raw, present := obj[name]; present {
		return raw, true, nil
	}
	if len(param.DynamicContextPath) == 0 {
		return value.Value{}, false, nil
	}
	if ctx == nil {
		return value.Value{}, false, nil
	}
	v, present, err := ctx.Resolve(param.DynamicContextPath)
	if err != nil {
		return value.Value{}, false, gqlpg.NewValidationError(name, err)
	}
	return v, present, nil
}

func mapManyToOneAssignment(name string, param Parameter, raw value.Value) ([]abstractsql.InsertRowElem, error) {
	pairs := param.Relation.ColumnPairs
	if obj, ok := raw.AsObject(); ok {
		if len(param.ForeignObjectKeys) != len(pairs) {
			return nil, gqlpg.NewValidationError(name, fmt.Errorf("dataparam: relation %q has %d column pairs but %d foreign object keys configured", name, len(pairs), len(param.ForeignObjectKeys)))
		}
		elems := make([]abstractsql.InsertRowElem, len(pairs))
		for i, pair := range pairs {
			fv, ok := obj[param.ForeignObjectKeys[i]]
			if !ok {
				return nil, gqlpg.NewValidationError(name, fmt.Errorf("dataparam: referenced object missing key %q", param.ForeignObjectKeys[i]))
			}
			if _, err := value.Cast(fv, pair.Self.Type); err != nil {
				return nil, gqlpg.NewValidationError(name, err)
			}
			elems[i] = abstractsql.SelfInsert(pair.Self, fv)
		}
		return elems, nil
	}
	// A bare scalar value (typically from a Dynamic context default)
	// only makes sense for a single-column FK.
	if len(pairs) != 1 {
		return nil, gqlpg.NewValidationError(name, fmt.Errorf("dataparam: composite relation %q requires a referenced object, not a bare value", name))
	}
	if _, err := value.Cast(raw, pairs[0].Self.Type); err != nil {
		return nil, gqlpg.NewValidationError(name, err)
	}
	return []abstractsql.InsertRowElem{abstractsql.SelfInsert(pairs[0].Self, raw)}, nil
}

func mapOneToManyCreate(ctx access.Context, name string, param Parameter, raw value.Value) (abstractsql.InsertRowElem, []abstractsql.Predicate, error) {
	list, ok := raw.AsList()
	if !ok {
		return abstractsql.InsertRowElem{}, nil, gqlpg.NewValidationError(name, fmt.Errorf("dataparam: one-to-many create argument must be a list"))
	}
	rows := make([]abstractsql.InsertRow, len(list))
	var rowPrechecks []abstractsql.Predicate
	for i, item := range list {
		row, nested, err := MapCreateRow(ctx, param.ChildCreate, item)
		if err != nil {
			return abstractsql.InsertRowElem{}, nil, err
		}
		rows[i] = row
		rowPrechecks = append(rowPrechecks, nested...)

		p, err := childPrecheck(ctx, param.ChildCreationAccess, item)
		if err != nil {
			return abstractsql.InsertRowElem{}, nil, err
		}
		rowPrechecks = append(rowPrechecks, p)
	}
	elem := abstractsql.NestedInsert(param.Relation, rows, rowPrechecks)
	return elem, rowPrechecks, nil
}

func childPrecheck(ctx access.Context, expr model.Expression, item value.Value) (abstractsql.Predicate, error) {
	solution, err := access.Solve(ctx, access.Input{Value: item, Present: true}, expr)
	if err != nil {
		return abstractsql.Predicate{}, err
	}
	if v, solved := solution.IsSolved(); solved && !v {
		return abstractsql.Predicate{}, gqlpg.NewAuthorizationError("", "write")
	}
	return solution.Residue(), nil
}

// MapUpdate maps an update `data` argument into the assignment list and
// nested mutations for an Update, plus every precheck predicate
// produced — including by nested creates — flattened for attachment to
// the root Update.PrecheckPredicates.
func MapUpdate(ctx access.Context, fields map[string]Parameter, argument value.Value) ([]abstractsql.Assignment, []abstractsql.NestedMutation, []abstractsql.Predicate, error) {
	obj, ok := argument.AsObject()
	if !ok {
		return nil, nil, nil, gqlpg.NewValidationError("", fmt.Errorf("dataparam: update argument must be an object"))
	}

	var assignments []abstractsql.Assignment
	var nested []abstractsql.NestedMutation
	var prechecks []abstractsql.Predicate

	for name, param := range fields {
		raw, present, err := resolveField(ctx, name, param, obj)
		if err != nil {
			return nil, nil, nil, err
		}
		if !present {
			continue
		}

		switch param.Kind {
		case model.FieldScalar:
			if _, err := value.Cast(raw, param.Column.Type); err != nil {
				return nil, nil, nil, gqlpg.NewValidationError(name, err)
			}
			assignments = append(assignments, abstractsql.Assignment{Column: param.Column, Value: raw})

		case model.FieldManyToOne:
			elems, err := mapManyToOneAssignment(name, param, raw)
			if err != nil {
				return nil, nil, nil, err
			}
			for _, e := range elems {
				assignments = append(assignments, abstractsql.Assignment{Column: e.Column, Value: e.Value})
			}

		case model.FieldOneToMany:
			mutation, nestedPrechecks, err := mapOneToManyUpdate(ctx, name, param, raw)
			if err != nil {
				return nil, nil, nil, err
			}
			nested = append(nested, mutation)
			prechecks = append(prechecks, nestedPrechecks...)

		case model.FieldEmbedded:
			return nil, nil, nil, gqlpg.NewValidationError(name, fmt.Errorf("dataparam: embedded fields are not supported in create/update"))

		default:
			return nil, nil, nil, gqlpg.NewValidationError(name, fmt.Errorf("dataparam: unknown field kind %d", param.Kind))
		}
	}
	return assignments, nested, prechecks, nil
}

const (
	keyCreate = "create"
	keyUpdate = "update"
	keyDelete = "delete"
)

func mapOneToManyUpdate(ctx access.Context, name string, param Parameter, raw value.Value) (abstractsql.NestedMutation, []abstractsql.Predicate, error) {
	obj, ok := raw.AsObject()
	if !ok {
		return abstractsql.NestedMutation{}, nil, gqlpg.NewValidationError(name, fmt.Errorf("dataparam: one-to-many update argument must be an object with create/update/delete"))
	}

	mutation := abstractsql.NestedMutation{Relation: param.Relation}
	var prechecks []abstractsql.Predicate

	if rawCreate, present := obj[keyCreate]; present {
		list, ok := rawCreate.AsList()
		if !ok {
			return abstractsql.NestedMutation{}, nil, gqlpg.NewValidationError(name, fmt.Errorf("dataparam: %q create list must be a list", name))
		}
		for _, item := range list {
			row, nestedPrechecks, err := MapCreateRow(ctx, param.ChildCreate, item)
			if err != nil {
				return abstractsql.NestedMutation{}, nil, err
			}
			mutation.Create = append(mutation.Create, row)
			prechecks = append(prechecks, nestedPrechecks...)
			p, err := childPrecheck(ctx, param.ChildCreationAccess, item)
			if err != nil {
				return abstractsql.NestedMutation{}, nil, err
			}
			prechecks = append(prechecks, p)
		}
	}

	if rawUpdate, present := obj[keyUpdate]; present {
		list, ok := rawUpdate.AsList()
		if !ok {
			return abstractsql.NestedMutation{}, nil, gqlpg.NewValidationError(name, fmt.Errorf("dataparam: %q update list must be a list", name))
		}
		for _, item := range list {
			nu, itemPrechecks, err := mapNestedUpdateItem(ctx, name, param, item)
			if err != nil {
				return abstractsql.NestedMutation{}, nil, err
			}
			mutation.Update = append(mutation.Update, nu)
			prechecks = append(prechecks, itemPrechecks...)
		}
	}

	if rawDelete, present := obj[keyDelete]; present {
		list, ok := rawDelete.AsList()
		if !ok {
			return abstractsql.NestedMutation{}, nil, gqlpg.NewValidationError(name, fmt.Errorf("dataparam: %q delete list must be a list", name))
		}
		for _, item := range list {
			pred, err := pkPredicate(name, param.ChildPKColumns, item)
			if err != nil {
				return abstractsql.NestedMutation{}, nil, err
			}
			mutation.Delete = append(mutation.Delete, pred)
		}
	}

	return mutation, prechecks, nil
}

// mapNestedUpdateItem splits one "update" sub-list item into its
// identifying primary-key predicate and its assignment set, per spec.md
// §4.4: "update: shape is the child's update input with its primary key
// mandatory."
func mapNestedUpdateItem(ctx access.Context, name string, param Parameter, item value.Value) (abstractsql.NestedUpdate, []abstractsql.Predicate, error) {
	pkPred, err := pkPredicate(name, param.ChildPKColumns, item)
	if err != nil {
		return abstractsql.NestedUpdate{}, nil, err
	}
	assignments, childNested, deeperPrechecks, err := MapUpdate(ctx, param.ChildUpdate, item)
	if err != nil {
		return abstractsql.NestedUpdate{}, nil, err
	}
	precheck, err := childPrecheck(ctx, param.ChildUpdatePrecheckAccess, item)
	if err != nil {
		return abstractsql.NestedUpdate{}, nil, err
	}
	prechecks := append([]abstractsql.Predicate{precheck}, deeperPrechecks...)
	return abstractsql.NestedUpdate{Predicate: pkPred, Assignments: assignments, Nested: childNested}, prechecks, nil
}

// pkPredicate builds an AND of Eq(column, value) terms from item's
// primary-key fields, used to identify the row an "update" or "delete"
// sub-list item targets.
func pkPredicate(name string, pkColumns []columnpath.PhysicalColumn, item value.Value) (abstractsql.Predicate, error) {
	obj, ok := item.AsObject()
	if !ok {
		return abstractsql.Predicate{}, gqlpg.NewValidationError(name, fmt.Errorf("dataparam: expected an object carrying the primary key"))
	}
	if len(pkColumns) == 0 {
		return abstractsql.Predicate{}, gqlpg.NewValidationError(name, fmt.Errorf("dataparam: no primary key columns configured for %q", name))
	}
	var preds []abstractsql.Predicate
	for _, col := range pkColumns {
		v, ok := obj[col.Name]
		if !ok {
			return abstractsql.Predicate{}, gqlpg.NewValidationError(name, fmt.Errorf("dataparam: missing mandatory primary key field %q", col.Name))
		}
		if _, err := value.Cast(v, col.Type); err != nil {
			return abstractsql.Predicate{}, gqlpg.NewValidationError(name, err)
		}
		preds = append(preds, abstractsql.Eq(abstractsql.Physical(columnpath.NewLeaf(col)), abstractsql.Param(v)))
	}
	return abstractsql.And(preds...), nil
}
