// Package privacy provides sets of types and helpers for writing privacy
// rules evaluated alongside the declarative access pipeline, and deal
// with their evaluation at runtime.
package privacy

import (
	"context"
	"errors"
	"fmt"

	"github.com/syssam/gqlpg/abstractsql"
)

// Policy decision sentinel errors.
//
// These errors are used as return values from policy rules to indicate
// how the policy evaluation should proceed. Use errors.Is() to check
// for these values:
//
//	if errors.Is(err, privacy.Allow) { ... }
//	if errors.Is(err, privacy.Deny) { ... }
//	if errors.Is(err, privacy.Skip) { ... }
var (
	// Allow may be returned by rules to indicate that the policy
	// evaluation should terminate with an allow decision.
	// When returned from a policy, the operation is permitted.
	Allow = errors.New("privacy: allow rule")

	// Deny may be returned by rules to indicate that the policy
	// evaluation should terminate with a deny decision.
	// When returned from a policy, the operation is rejected.
	Deny = errors.New("privacy: deny rule")

	// Skip may be returned by rules to indicate that the policy
	// evaluation should continue to the next rule in the chain.
	// This allows rules to abstain from making a decision.
	Skip = errors.New("privacy: skip rule")
)

// Allowf returns a formatted wrapped Allow decision.
// The returned error wraps Allow and can be checked with errors.Is(err, Allow).
func Allowf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Allow)...)
}

// Denyf returns a formatted wrapped Deny decision.
// The returned error wraps Deny and can be checked with errors.Is(err, Deny).
func Denyf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Deny)...)
}

// Skipf returns a formatted wrapped Skip decision.
// The returned error wraps Skip and can be checked with errors.Is(err, Skip).
func Skipf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Skip)...)
}

// Op identifies which pipeline operation (resolver.Create, Update, or
// Delete) a mutation rule is being asked to decide. Retrieve has no Op:
// query rules only ever see one kind of operation.
type Op uint8

const (
	OpCreate Op = iota
	OpUpdate
	OpDelete
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Is reports whether o equals other — a rule's own preferred spelling
// over a bare ==, so OnMutationOperation reads like the teacher's.
func (o Op) Is(other Op) bool { return o == other }

// Query is what package resolver's Retrieve exposes to a query rule: the
// entity being read and its "where" argument's fields, addressable by
// GraphQL field name. This is deliberately narrower than the full
// abstractsql.Select the declarative model.Expression operates over —
// privacy rules are an imperative escape hatch alongside that pipeline,
// not a second copy of it.
type Query interface {
	// Entity returns the GraphQL entity name being read.
	Entity() string
	// Field returns the value bound to name in the operation's "where"
	// argument, if any.
	Field(name string) (any, bool)
}

// QueryPolicy combines multiple query rules into a single policy.
type QueryPolicy []QueryRule

// QueryRule defines the interface deciding whether a query is allowed.
type QueryRule interface {
	EvalQuery(context.Context, Query) error
}

// Mutation is what package resolver's Create/Update/Delete expose to a
// mutation rule: the entity, the operation kind, and the input fields
// being written (empty for Delete, which carries no Data).
type Mutation interface {
	Entity() string
	Op() Op
	Field(name string) (any, bool)
}

// MutationPolicy combines multiple mutation rules into a single policy.
type MutationPolicy []MutationRule

// MutationRule defines the interface deciding whether a mutation is allowed.
type MutationRule interface {
	EvalMutation(context.Context, Mutation) error
}

// QueryMutationRule is an interface which groups query and mutation rules.
type QueryMutationRule interface {
	QueryRule
	MutationRule
}

// MutationRuleFunc type is an adapter which allows the use of
// ordinary functions as mutation rules.
type MutationRuleFunc func(context.Context, Mutation) error

// EvalMutation returns f(ctx, m).
func (f MutationRuleFunc) EvalMutation(ctx context.Context, m Mutation) error {
	return f(ctx, m)
}

// QueryRuleFunc type is an adapter which allows the use of ordinary
// functions as query rules.
type QueryRuleFunc func(context.Context, Query) error

// EvalQuery returns f(ctx, q).
func (f QueryRuleFunc) EvalQuery(ctx context.Context, q Query) error {
	return f(ctx, q)
}

// AlwaysAllowRule returns a rule that always returns an Allow decision.
// This rule unconditionally permits both queries and mutations.
func AlwaysAllowRule() QueryMutationRule {
	return fixedDecision{Allow}
}

// AlwaysDenyRule returns a rule that always returns a Deny decision.
// This rule unconditionally rejects both queries and mutations.
func AlwaysDenyRule() QueryMutationRule {
	return fixedDecision{Deny}
}

// ContextQueryMutationRule creates a query/mutation rule from a context evaluation function.
// The provided function receives the context and should return Allow, Deny, Skip, or nil.
// Returning nil is equivalent to returning Skip.
func ContextQueryMutationRule(eval func(context.Context) error) QueryMutationRule {
	return contextDecision{eval}
}

// OnMutationOperation evaluates the given rule only on a given mutation operation.
func OnMutationOperation(rule MutationRule, op Op) MutationRule {
	return MutationRuleFunc(func(ctx context.Context, m Mutation) error {
		if m.Op().Is(op) {
			return rule.EvalMutation(ctx, m)
		}
		return Skip
	})
}

// DenyMutationOperationRule returns a rule denying the specified mutation operation.
func DenyMutationOperationRule(op Op) MutationRule {
	rule := MutationRuleFunc(func(_ context.Context, m Mutation) error {
		return Denyf("privacy: operation %s is not allowed", m.Op())
	})
	return OnMutationOperation(rule, op)
}

// AllowMutationOperationRule returns a rule allowing the specified mutation operation.
func AllowMutationOperationRule(op Op) MutationRule {
	rule := MutationRuleFunc(func(_ context.Context, _ Mutation) error {
		return Allow
	})
	return OnMutationOperation(rule, op)
}

// Policy groups query and mutation policies.
type Policy struct {
	Query    QueryPolicy
	Mutation MutationPolicy
}

// EvalQuery forwards evaluation to the query policy.
func (p Policy) EvalQuery(ctx context.Context, q Query) error {
	return p.Query.EvalQuery(ctx, q)
}

// EvalMutation forwards evaluation to the mutation policy.
func (p Policy) EvalMutation(ctx context.Context, m Mutation) error {
	return p.Mutation.EvalMutation(ctx, m)
}

// EvalQuery evaluates a query against a query policy. An empty policy
// allows everything, matching an aggregate model.Expression of
// model.NoExpr — the escape hatch defers to the declarative pipeline by
// default rather than denying by default.
func (policies QueryPolicy) EvalQuery(ctx context.Context, q Query) error {
	for _, policy := range policies {
		switch decision := policy.EvalQuery(ctx, q); {
		case decision == nil || errors.Is(decision, Skip):
		case errors.Is(decision, Allow):
			return nil
		default:
			return decision
		}
	}
	return nil
}

// EvalMutation evaluates a mutation against a mutation policy.
func (policies MutationPolicy) EvalMutation(ctx context.Context, m Mutation) error {
	for _, policy := range policies {
		switch decision := policy.EvalMutation(ctx, m); {
		case decision == nil || errors.Is(decision, Skip):
		case errors.Is(decision, Allow):
			return nil
		default:
			return decision
		}
	}
	return nil
}

type fixedDecision struct {
	decision error
}

func (f fixedDecision) EvalQuery(context.Context, Query) error {
	return f.decision
}

func (f fixedDecision) EvalMutation(context.Context, Mutation) error {
	return f.decision
}

type contextDecision struct {
	eval func(context.Context) error
}

func (c contextDecision) EvalQuery(ctx context.Context, _ Query) error {
	return c.eval(ctx)
}

func (c contextDecision) EvalMutation(ctx context.Context, _ Mutation) error {
	return c.eval(ctx)
}

// Filter is the interface that wraps the WhereP method for tightening an
// operation's database predicate beyond what the declarative access
// expression already folded in — this package's equivalent of the
// teacher's WhereP on a *sql.Selector, expressed against
// abstractsql.Predicate instead.
type Filter interface {
	WhereP(abstractsql.Predicate)
}

// Filterable is implemented by the Query/Mutation adapters package
// resolver constructs around each request, so a rule can reach past the
// narrow Field(name) lookup and attach an arbitrary extra predicate.
type Filterable interface {
	Filter() Filter
}

// FilterFunc is an adapter that allows using ordinary functions as
// query/mutation rules that apply predicates to filter results.
//
// Example usage:
//
//	privacy.FilterFunc(func(ctx context.Context, f privacy.Filter) error {
//	    f.WhereP(abstractsql.Eq(abstractsql.Physical(workspaceIDColumn), abstractsql.Param(workspaceID)))
//	    return privacy.Skip
//	})
type FilterFunc func(context.Context, Filter) error

// EvalQuery calls f(ctx, q.Filter()) if the query implements Filterable.
func (f FilterFunc) EvalQuery(ctx context.Context, q Query) error {
	fr, ok := q.(Filterable)
	if !ok {
		return Denyf("privacy: query type %T does not support filtering", q)
	}
	return f(ctx, fr.Filter())
}

// EvalMutation calls f(ctx, m.Filter()) if the mutation implements Filterable.
func (f FilterFunc) EvalMutation(ctx context.Context, m Mutation) error {
	fr, ok := m.(Filterable)
	if !ok {
		return Denyf("privacy: mutation type %T does not support filtering", m)
	}
	return f(ctx, fr.Filter())
}

var _ QueryMutationRule = FilterFunc(nil)
