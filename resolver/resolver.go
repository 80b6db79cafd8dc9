package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/syssam/gqlpg"
	"github.com/syssam/gqlpg/abstractsql"
	"github.com/syssam/gqlpg/access"
	"github.com/syssam/gqlpg/columnpath"
	"github.com/syssam/gqlpg/dataparam"
	"github.com/syssam/gqlpg/lower"
	"github.com/syssam/gqlpg/model"
	"github.com/syssam/gqlpg/orderby"
	"github.com/syssam/gqlpg/predicatemapper"
	"github.com/syssam/gqlpg/privacy"
	"github.com/syssam/gqlpg/sqlexec"
	"github.com/syssam/gqlpg/txrun"
	"github.com/syssam/gqlpg/value"
)

// policyOperand adapts a request's entity name and input/where data
// Value into privacy.Query/privacy.Mutation/privacy.Filterable, the
// narrow view package privacy's imperative escape-hatch rules get of an
// otherwise-declarative operation (see privacy.Policy's doc comment).
type policyOperand struct {
	entity string
	op     privacy.Op
	data   value.Value
	extra  abstractsql.Predicate
}

func (p *policyOperand) Entity() string { return p.entity }
func (p *policyOperand) Op() privacy.Op { return p.op }

func (p *policyOperand) Field(name string) (any, bool) {
	v, ok := p.data.Field(name)
	if !ok {
		return nil, false
	}
	return v.GoString(), true
}

func (p *policyOperand) Filter() privacy.Filter { return p }

func (p *policyOperand) WhereP(pred abstractsql.Predicate) {
	p.extra = abstractsql.And(p.extra, pred)
}

var (
	_ privacy.Query      = (*policyOperand)(nil)
	_ privacy.Mutation   = (*policyOperand)(nil)
	_ privacy.Filterable = (*policyOperand)(nil)
)

// evalQueryPolicy runs policy's query rules, translating a Deny decision
// into the same AuthorizationError a declarative model.Expression
// rejection produces, and returns any extra predicate a Filter rule
// attached.
func evalQueryPolicy(ctx context.Context, policy privacy.Policy, entity string, where value.Value) (abstractsql.Predicate, error) {
	op := &policyOperand{entity: entity, data: where}
	if err := policy.EvalQuery(ctx, op); err != nil {
		if errors.Is(err, privacy.Deny) {
			return abstractsql.Predicate{}, gqlpg.NewAuthorizationError(entity, "read")
		}
		return abstractsql.Predicate{}, err
	}
	return op.extra, nil
}

// evalMutationPolicy is evalQueryPolicy's mutation-side counterpart.
func evalMutationPolicy(ctx context.Context, policy privacy.Policy, entity string, mutationOp privacy.Op, data value.Value) (abstractsql.Predicate, error) {
	op := &policyOperand{entity: entity, op: mutationOp, data: data}
	if err := policy.EvalMutation(ctx, op); err != nil {
		if errors.Is(err, privacy.Deny) {
			return abstractsql.Predicate{}, gqlpg.NewAuthorizationError(entity, mutationOp.String())
		}
		return abstractsql.Predicate{}, err
	}
	return op.extra, nil
}

// aggregateExpr ANDs the expression at base with the expression each
// field's pick selects (f.Access.Read, f.Access.Creation, etc.), so the
// aggregate-AND stays generic across operation kinds.
func aggregateExpr(m *model.Model, base model.ExprID, fields []model.Field, pick func(model.Field) model.ExprID) model.Expression {
	expr := m.Expr(base)
	for _, f := range fields {
		expr = model.And(expr, m.Expr(pick(f)))
	}
	return expr
}

func requireConcreteTrue(sol access.Solution, entity, op string) error {
	v, err := access.RequireConcrete(sol)
	if err != nil {
		return gqlpg.NewAuthorizationError(entity, op)
	}
	if !v {
		return gqlpg.NewAuthorizationError(entity, op)
	}
	return nil
}

// residueOrAuthorize returns sol's residual predicate, or an
// AuthorizationError if sol concretely solved to false.
func residueOrAuthorize(sol access.Solution, entity, op string) (abstractsql.Predicate, error) {
	if v, solved := sol.IsSolved(); solved && !v {
		return abstractsql.Predicate{}, gqlpg.NewAuthorizationError(entity, op)
	}
	return sol.Residue(), nil
}

func pkPredicate(pkFields []model.Field, pk value.Value) (abstractsql.Predicate, error) {
	var terms []abstractsql.Predicate
	for _, f := range pkFields {
		v, ok := pk.Field(f.Name)
		if !ok {
			return abstractsql.Predicate{}, gqlpg.NewValidationError(f.Name, fmt.Errorf("missing primary key field %q", f.Name))
		}
		terms = append(terms, abstractsql.Eq(abstractsql.Physical(columnpath.NewLeaf(f.Column)), abstractsql.Param(v)))
	}
	return abstractsql.And(terms...), nil
}

// RetrieveRequest describes one Retrieve dispatch (spec.md §4.5 step 1-2
// for the Retrieve kind).
type RetrieveRequest struct {
	Entity         model.EntityType
	SelectedFields []model.Field // fields in the projection; their read access is AND'd in
	Selection      abstractsql.Selection
	Cardinality    abstractsql.Cardinality

	WhereParam predicatemapper.PredicateParameter
	Where      value.Value
	HasWhere   bool

	OrderByFields map[string]orderby.Parameter
	OrderBy       value.Value
	HasOrderBy    bool

	Limit, Offset *int

	// Policy is an optional imperative escape hatch evaluated alongside
	// Entity's declarative Read expression (package privacy's doc
	// comment). A zero-value Policy allows everything, so omitting this
	// field changes nothing.
	Policy privacy.Policy
}

// Retrieve runs a read operation end to end. A Cardinality-One request
// with no matching row returns value.Null(), nil — the caller decides
// whether that is acceptable (an Optional return type) or must be
// rejected with gqlpg.NewNotFoundError (spec.md §7's "DB row count
// mismatch… null data for optional returns").
func Retrieve(ctx context.Context, reqCtx access.Context, driver *sqlexec.Driver, m *model.Model, req RetrieveRequest) (value.Value, error) {
	expr := aggregateExpr(m, req.Entity.Access.Read, req.SelectedFields, func(f model.Field) model.ExprID { return f.Access.Read })
	sol, err := access.Solve(reqCtx, access.Input{}, expr)
	if err != nil {
		return value.Value{}, err
	}
	pred, err := residueOrAuthorize(sol, req.Entity.Name, "read")
	if err != nil {
		return value.Value{}, err
	}

	if req.HasWhere {
		userPred, err := predicatemapper.Map(req.WhereParam, req.Where)
		if err != nil {
			return value.Value{}, err
		}
		pred = abstractsql.And(pred, userPred)
	}

	policyPred, err := evalQueryPolicy(ctx, req.Policy, req.Entity.Name, req.Where)
	if err != nil {
		return value.Value{}, err
	}
	pred = abstractsql.And(pred, policyPred)

	var orderExprs []abstractsql.OrderExpr
	if req.HasOrderBy {
		orderExprs, err = orderby.Map(reqCtx, req.Entity.Name, req.OrderByFields, req.OrderBy)
		if err != nil {
			return value.Value{}, err
		}
	}

	sel := &abstractsql.Select{
		Table:       req.Entity.Table,
		Selection:   req.Selection,
		Predicate:   abstractsql.Simplify(pred),
		OrderBy:     orderExprs,
		Offset:      req.Offset,
		Limit:       req.Limit,
		Cardinality: req.Cardinality,
	}
	res, err := lower.LowerSelect(sel)
	if err != nil {
		return value.Value{}, err
	}

	// LowerSelect projects one jsonb value for either cardinality (a
	// jsonb_agg array for Many), so the step always reads a single row.
	script := txrun.NewScript()
	script.AddConcrete(txrun.SQLOperation{Result: res, Mode: txrun.ModeQueryOne, Label: "retrieve " + req.Entity.Name})

	outputs, err := txrun.Run(ctx, driver, script)
	if err != nil {
		return value.Value{}, err
	}
	return outputs[0].One, nil
}

// CreateRequest describes one Create dispatch.
type CreateRequest struct {
	Entity      model.EntityType
	InputFields []model.Field // top-level fields present in Data, for the aggregate creation precheck
	DataParams  map[string]dataparam.Parameter
	Data        value.Value
	Select      *abstractsql.Select // RETURNING projection (Cardinality must be One)

	// Policy is an optional imperative escape hatch evaluated alongside
	// Entity's declarative Creation expression. A zero-value Policy
	// allows everything. Any Filter predicate a rule attaches here is
	// discarded — an INSERT has no WHERE clause to fold it into.
	Policy privacy.Policy
}

// Create runs an insert end to end. Nested one-to-many creation
// prechecks are validated by package dataparam as each nested row is
// mapped (dataparam.childPrecheck rejects eagerly); the flattened list
// MapCreateRow also returns is only a defensive assertion here, since an
// INSERT statement has no WHERE clause to fold a residual predicate into
// — a creation precheck expression only ever references input/context
// primitives, never a database column, so Solve always resolves it
// concretely (see DESIGN.md).
func Create(ctx context.Context, reqCtx access.Context, driver *sqlexec.Driver, m *model.Model, req CreateRequest) (value.Value, error) {
	expr := aggregateExpr(m, req.Entity.Access.Creation, req.InputFields, func(f model.Field) model.ExprID { return f.Access.Creation })
	sol, err := access.Solve(reqCtx, access.Input{Value: req.Data, Present: true, IgnoreMissingValue: true}, expr)
	if err != nil {
		return value.Value{}, err
	}
	if err := requireConcreteTrue(sol, req.Entity.Name, "create"); err != nil {
		return value.Value{}, err
	}
	if _, err := evalMutationPolicy(ctx, req.Policy, req.Entity.Name, privacy.OpCreate, req.Data); err != nil {
		return value.Value{}, err
	}

	row, nestedPrechecks, err := dataparam.MapCreateRow(reqCtx, req.DataParams, req.Data)
	if err != nil {
		return value.Value{}, err
	}
	for _, p := range nestedPrechecks {
		if p.Op != abstractsql.OpTrue {
			return value.Value{}, gqlpg.NewAuthorizationError(req.Entity.Name, "create")
		}
	}

	selfElems, nestedElems := splitNested(row.Elems)
	ins := &abstractsql.Insert{Table: req.Entity.Table, Rows: []abstractsql.InsertRow{{Elems: selfElems}}, Select: req.Select}
	res, err := lower.LowerInsert(ins)
	if err != nil {
		return value.Value{}, err
	}

	script := txrun.NewScript()
	rootStep := script.AddConcrete(txrun.SQLOperation{Result: res, Mode: txrun.ModeQueryOne, Label: "create " + req.Entity.Name})

	// Nested one-to-many children reference the just-inserted parent row's
	// generated primary key, which is only known once rootStep returns —
	// each child relation's insert is therefore a Template step resolved
	// against rootStep's projected output (spec.md §4.5 step 5's
	// Template(step_id, col_index), adapted to our JSON-keyed output).
	if len(nestedElems) > 0 && req.Select == nil {
		return value.Value{}, fmt.Errorf("resolver: create has nested rows but no Select to recover the parent's generated key")
	}
	for _, elem := range nestedElems {
		for _, childRow := range elem.NestedRows {
			rel, targetRow := elem.Relation, childRow
			script.AddTemplate(func(resolve func(txrun.StepResultRef) (value.Value, error)) (txrun.SQLOperation, error) {
				parent, err := resolve(txrun.StepResultRef{Step: rootStep})
				if err != nil {
					return txrun.SQLOperation{}, err
				}
				injected, err := injectForeignKey(rel, parent, targetRow)
				if err != nil {
					return txrun.SQLOperation{}, err
				}
				childRes, err := lower.LowerInsert(&abstractsql.Insert{Table: rel.LinkedTableName(), Rows: []abstractsql.InsertRow{injected}})
				if err != nil {
					return txrun.SQLOperation{}, err
				}
				return txrun.SQLOperation{Result: childRes, Mode: txrun.ModeExec, Label: "create nested " + rel.LinkedTableName()}, nil
			})
		}
	}

	outputs, err := txrun.Run(ctx, driver, script)
	if err != nil {
		return value.Value{}, err
	}
	return outputs[0].One, nil
}

// splitNested separates an InsertRow's direct column assignments from
// its nested one-to-many relation elements — lower.LowerInsert only
// renders the former into its single-statement VALUES list; the latter
// become their own TransactionScript steps (see Create, above).
func splitNested(elems []abstractsql.InsertRowElem) (self []abstractsql.InsertRowElem, nested []abstractsql.InsertRowElem) {
	for _, e := range elems {
		if e.IsNested {
			nested = append(nested, e)
		} else {
			self = append(self, e)
		}
	}
	return self, nested
}

// injectForeignKey copies childRow with rel's self-side foreign key
// column(s) set from parentRow's corresponding primary-key field(s),
// keyed by column name — the caller's RETURNING projection must alias
// every linked primary-key column to its own column name for this
// lookup to succeed.
func injectForeignKey(rel columnpath.RelationLink, parentRow value.Value, childRow abstractsql.InsertRow) (abstractsql.InsertRow, error) {
	elems := make([]abstractsql.InsertRowElem, 0, len(childRow.Elems)+len(rel.ColumnPairs))
	for _, pair := range rel.ColumnPairs {
		fkVal, ok := parentRow.Field(pair.Foreign.Name)
		if !ok {
			return abstractsql.InsertRow{}, fmt.Errorf("resolver: parent row missing %q for nested relation foreign key", pair.Foreign.Name)
		}
		elems = append(elems, abstractsql.SelfInsert(pair.Self, fkVal))
	}
	elems = append(elems, childRow.Elems...)
	return abstractsql.InsertRow{Elems: elems}, nil
}

// UpdateRequest describes one Update dispatch.
type UpdateRequest struct {
	Entity         model.EntityType
	PKFields       []model.Field
	PK             value.Value
	SelectedFields []model.Field // fields in the RETURNING projection, for the database-predicate AND
	UpdateParams   map[string]dataparam.Parameter
	Data           value.Value
	Select         *abstractsql.Select // nil for an update with no RETURNING projection

	// Policy is an optional imperative escape hatch evaluated alongside
	// Entity's declarative UpdatePrecheck/UpdateDatabase expressions. A
	// zero-value Policy allows everything.
	Policy privacy.Policy
}

// Update runs an update end to end. When the precheck or database
// expression solves to a residue rather than a concrete boolean, the
// residue is folded into the statement's WHERE clause (package lower),
// so a zero-row result is ambiguous between "no row matches the caller's
// primary key" and "a row matched but the precheck rejected it". Both
// map to value.Null(), nil when req.Select is set, and to
// value.Bool(false), nil when it is not; distinguishing them for a non-optional
// return type is the caller's job (re-querying by PK alone if it needs
// to tell "not found" apart from "forbidden").
func Update(ctx context.Context, reqCtx access.Context, driver *sqlexec.Driver, m *model.Model, req UpdateRequest) (value.Value, error) {
	pkPred, err := pkPredicate(req.PKFields, req.PK)
	if err != nil {
		return value.Value{}, err
	}

	precheckExpr := aggregateExpr(m, req.Entity.Access.UpdatePrecheck, nil, nil)
	precheckSol, err := access.Solve(reqCtx, access.Input{Value: req.Data, Present: true, IgnoreMissingValue: true}, precheckExpr)
	if err != nil {
		return value.Value{}, err
	}
	precheckPred, err := residueOrAuthorize(precheckSol, req.Entity.Name, "update")
	if err != nil {
		return value.Value{}, err
	}

	dbExpr := aggregateExpr(m, req.Entity.Access.UpdateDatabase, req.SelectedFields, func(f model.Field) model.ExprID { return f.Access.Read })
	dbSol, err := access.Solve(reqCtx, access.Input{}, dbExpr)
	if err != nil {
		return value.Value{}, err
	}
	dbPred, err := residueOrAuthorize(dbSol, req.Entity.Name, "update")
	if err != nil {
		return value.Value{}, err
	}

	policyPred, err := evalMutationPolicy(ctx, req.Policy, req.Entity.Name, privacy.OpUpdate, req.Data)
	if err != nil {
		return value.Value{}, err
	}

	assignments, nested, childPrechecks, err := dataparam.MapUpdate(reqCtx, req.UpdateParams, req.Data)
	if err != nil {
		return value.Value{}, err
	}

	predicate := abstractsql.Simplify(abstractsql.And(pkPred, dbPred, policyPred))
	allPrechecks := append([]abstractsql.Predicate{precheckPred}, childPrechecks...)

	script := txrun.NewScript()
	hasRoot := false
	rootMode := txrun.ModeExec
	if len(assignments) > 0 {
		rootMode = txrun.ModeExec
		if req.Select != nil {
			rootMode = txrun.ModeQueryOne
		}
		upd := &abstractsql.Update{
			Table:              req.Entity.Table,
			Assignments:        assignments,
			Predicate:          predicate,
			PrecheckPredicates: allPrechecks,
			Select:             req.Select,
		}
		res, err := lower.LowerUpdate(upd)
		if err != nil {
			return value.Value{}, err
		}
		script.AddConcrete(txrun.SQLOperation{Result: res, Mode: rootMode, Label: "update " + req.Entity.Name})
		hasRoot = true
	} else if req.Select != nil {
		// No scalar assignments in this update (it only touches nested
		// relations): fall back to a plain Retrieve-shaped select so the
		// RETURNING projection is still honored and the precheck/database
		// predicate is still enforced.
		rootMode = txrun.ModeQueryOne
		sel := &abstractsql.Select{Table: req.Entity.Table, Selection: req.Select.Selection, Predicate: abstractsql.Simplify(abstractsql.And(predicate, abstractsql.And(allPrechecks...))), Cardinality: abstractsql.CardinalityOne}
		res, err := lower.LowerSelect(sel)
		if err != nil {
			return value.Value{}, err
		}
		script.AddConcrete(txrun.SQLOperation{Result: res, Mode: rootMode, Label: "update " + req.Entity.Name})
		hasRoot = true
	}

	// Nested one-to-many create/update/delete operate against an already
	// known parent key (the PK the caller supplied), so — unlike Create's
	// nested children — they need no Template step resolving a
	// just-generated id; they run as their own concrete steps, linearized
	// after the root statement (spec.md §5's "nested inserts/updates
	// within a transaction are linearized").
	for _, nm := range nested {
		for _, childRow := range nm.Create {
			injected, err := injectForeignKey(nm.Relation, req.PK, childRow)
			if err != nil {
				return value.Value{}, err
			}
			res, err := lower.LowerInsert(&abstractsql.Insert{Table: nm.Relation.LinkedTableName(), Rows: []abstractsql.InsertRow{injected}})
			if err != nil {
				return value.Value{}, err
			}
			script.AddConcrete(txrun.SQLOperation{Result: res, Mode: txrun.ModeExec, Label: "update nested create " + nm.Relation.LinkedTableName()})
		}
		for _, nu := range nm.Update {
			childPred := abstractsql.Simplify(abstractsql.And(nu.Predicate, fkPredicate(nm.Relation, req.PK)))
			res, err := lower.LowerUpdate(&abstractsql.Update{Table: nm.Relation.LinkedTableName(), Assignments: nu.Assignments, Predicate: childPred})
			if err != nil {
				return value.Value{}, err
			}
			script.AddConcrete(txrun.SQLOperation{Result: res, Mode: txrun.ModeExec, Label: "update nested update " + nm.Relation.LinkedTableName()})
		}
		for _, delPred := range nm.Delete {
			childPred := abstractsql.Simplify(abstractsql.And(delPred, fkPredicate(nm.Relation, req.PK)))
			res, err := lower.LowerDelete(&abstractsql.Delete{Table: nm.Relation.LinkedTableName(), Predicate: childPred})
			if err != nil {
				return value.Value{}, err
			}
			script.AddConcrete(txrun.SQLOperation{Result: res, Mode: txrun.ModeExec, Label: "update nested delete " + nm.Relation.LinkedTableName()})
		}
	}

	outputs, err := txrun.Run(ctx, driver, script)
	if err != nil {
		return value.Value{}, err
	}
	if !hasRoot {
		return value.Bool(true), nil
	}
	if rootMode == txrun.ModeQueryOne {
		return outputs[0].One, nil
	}
	return value.Bool(outputs[0].Affected > 0), nil
}

// fkPredicate builds the AND of Eq(self, parentPKValue) terms identifying
// the child rows belonging to parentPK through rel.
func fkPredicate(rel columnpath.RelationLink, parentPK value.Value) abstractsql.Predicate {
	var terms []abstractsql.Predicate
	for _, pair := range rel.ColumnPairs {
		if fkVal, ok := parentPK.Field(pair.Foreign.Name); ok {
			terms = append(terms, abstractsql.Eq(abstractsql.Physical(columnpath.NewLeaf(pair.Self)), abstractsql.Param(fkVal)))
		}
	}
	return abstractsql.And(terms...)
}

// DeleteRequest describes one Delete dispatch.
type DeleteRequest struct {
	Entity   model.EntityType
	PKFields []model.Field
	PK       value.Value
	Select   *abstractsql.Select // nil for a delete with no RETURNING projection

	// Policy is an optional imperative escape hatch evaluated alongside
	// Entity's declarative Delete expression. A zero-value Policy allows
	// everything. Delete carries no Data, so rules relying on Field will
	// only ever see ok=false.
	Policy privacy.Policy
}

// Delete runs a delete end to end. Only the entity's database predicate
// applies (spec.md §4.5 step 2, Delete case) — there is no precheck.
func Delete(ctx context.Context, reqCtx access.Context, driver *sqlexec.Driver, m *model.Model, req DeleteRequest) (value.Value, error) {
	pkPred, err := pkPredicate(req.PKFields, req.PK)
	if err != nil {
		return value.Value{}, err
	}

	sol, err := access.Solve(reqCtx, access.Input{}, m.Expr(req.Entity.Access.Delete))
	if err != nil {
		return value.Value{}, err
	}
	dbPred, err := residueOrAuthorize(sol, req.Entity.Name, "delete")
	if err != nil {
		return value.Value{}, err
	}

	policyPred, err := evalMutationPolicy(ctx, req.Policy, req.Entity.Name, privacy.OpDelete, value.Value{})
	if err != nil {
		return value.Value{}, err
	}

	del := &abstractsql.Delete{
		Table:     req.Entity.Table,
		Predicate: abstractsql.Simplify(abstractsql.And(pkPred, dbPred, policyPred)),
		Select:    req.Select,
	}
	res, err := lower.LowerDelete(del)
	if err != nil {
		return value.Value{}, err
	}

	script := txrun.NewScript()
	mode := txrun.ModeExec
	if req.Select != nil {
		mode = txrun.ModeQueryOne
	}
	script.AddConcrete(txrun.SQLOperation{Result: res, Mode: mode, Label: "delete " + req.Entity.Name})
	outputs, err := txrun.Run(ctx, driver, script)
	if err != nil {
		return value.Value{}, err
	}
	if mode == txrun.ModeExec {
		return value.Bool(outputs[0].Affected > 0), nil
	}
	return outputs[0].One, nil
}
