package privacy_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/gqlpg/abstractsql"
	"github.com/syssam/gqlpg/columnpath"
	"github.com/syssam/gqlpg/privacy"
	"github.com/syssam/gqlpg/value"
)

// mockMutation implements privacy.Mutation for testing.
type mockMutation struct {
	entity string
	op     privacy.Op
	fields map[string]any
}

func (m *mockMutation) Entity() string { return m.entity }
func (m *mockMutation) Op() privacy.Op { return m.op }
func (m *mockMutation) Field(name string) (any, bool) {
	v, ok := m.fields[name]
	return v, ok
}

// mockQuery implements privacy.Query for testing.
type mockQuery struct {
	entity string
	fields map[string]any
}

func (q *mockQuery) Entity() string { return q.entity }
func (q *mockQuery) Field(name string) (any, bool) {
	v, ok := q.fields[name]
	return v, ok
}

// mockFilterableQuery additionally implements privacy.Filterable,
// collecting whatever predicate a Filter rule attaches.
type mockFilterableQuery struct {
	mockQuery
	applied abstractsql.Predicate
}

func (q *mockFilterableQuery) Filter() privacy.Filter { return q }
func (q *mockFilterableQuery) WhereP(p abstractsql.Predicate) {
	q.applied = p
}

func TestDecisionSentinels(t *testing.T) {
	require.True(t, errors.Is(privacy.Allow, privacy.Allow))
	require.True(t, errors.Is(privacy.Deny, privacy.Deny))
	require.True(t, errors.Is(privacy.Skip, privacy.Skip))
	require.False(t, errors.Is(privacy.Allow, privacy.Deny))
}

func TestAllowfDenyfSkipf(t *testing.T) {
	allow := privacy.Allowf("user %s may proceed", "alice")
	require.True(t, errors.Is(allow, privacy.Allow))
	require.Contains(t, allow.Error(), "alice")

	deny := privacy.Denyf("user %s is blocked", "bob")
	require.True(t, errors.Is(deny, privacy.Deny))
	require.Contains(t, deny.Error(), "bob")

	skip := privacy.Skipf("no opinion on %s", "carol")
	require.True(t, errors.Is(skip, privacy.Skip))
}

func TestAlwaysRules(t *testing.T) {
	ctx := context.Background()
	q := &mockQuery{entity: "Widget"}
	m := &mockMutation{entity: "Widget", op: privacy.OpCreate}

	allow := privacy.AlwaysAllowRule()
	require.True(t, errors.Is(allow.EvalQuery(ctx, q), privacy.Allow))
	require.True(t, errors.Is(allow.EvalMutation(ctx, m), privacy.Allow))

	deny := privacy.AlwaysDenyRule()
	require.True(t, errors.Is(deny.EvalQuery(ctx, q), privacy.Deny))
	require.True(t, errors.Is(deny.EvalMutation(ctx, m), privacy.Deny))
}

func TestContextQueryMutationRule(t *testing.T) {
	ctx := context.Background()
	q := &mockQuery{entity: "Widget"}

	rule := privacy.ContextQueryMutationRule(func(context.Context) error {
		return privacy.Allowf("always fine")
	})
	require.True(t, errors.Is(rule.EvalQuery(ctx, q), privacy.Allow))
}

func TestOnMutationOperation(t *testing.T) {
	ctx := context.Background()
	create := &mockMutation{entity: "Widget", op: privacy.OpCreate}
	update := &mockMutation{entity: "Widget", op: privacy.OpUpdate}

	rule := privacy.OnMutationOperation(privacy.AlwaysDenyRule(), privacy.OpCreate)
	require.True(t, errors.Is(rule.EvalMutation(ctx, create), privacy.Deny))
	require.True(t, errors.Is(rule.EvalMutation(ctx, update), privacy.Skip))
}

func TestDenyAndAllowMutationOperationRule(t *testing.T) {
	ctx := context.Background()
	del := &mockMutation{entity: "Widget", op: privacy.OpDelete}
	create := &mockMutation{entity: "Widget", op: privacy.OpCreate}

	denyDelete := privacy.DenyMutationOperationRule(privacy.OpDelete)
	require.True(t, errors.Is(denyDelete.EvalMutation(ctx, del), privacy.Deny))
	require.True(t, errors.Is(denyDelete.EvalMutation(ctx, create), privacy.Skip))

	allowCreate := privacy.AllowMutationOperationRule(privacy.OpCreate)
	require.True(t, errors.Is(allowCreate.EvalMutation(ctx, create), privacy.Allow))
	require.True(t, errors.Is(allowCreate.EvalMutation(ctx, del), privacy.Skip))
}

func TestQueryPolicy_StopsAtFirstDecision(t *testing.T) {
	ctx := context.Background()
	q := &mockQuery{entity: "Widget"}
	var ran []string

	track := func(name string, decision error) privacy.QueryRuleFunc {
		return func(context.Context, privacy.Query) error {
			ran = append(ran, name)
			return decision
		}
	}

	policy := privacy.QueryPolicy{
		track("skip1", privacy.Skip),
		track("deny", privacy.Deny),
		track("unreached", privacy.Allow),
	}
	err := policy.EvalQuery(ctx, q)
	require.True(t, errors.Is(err, privacy.Deny))
	require.Equal(t, []string{"skip1", "deny"}, ran)
}

func TestQueryPolicy_EmptyPolicyAllows(t *testing.T) {
	var policy privacy.QueryPolicy
	require.NoError(t, policy.EvalQuery(context.Background(), &mockQuery{entity: "Widget"}))
}

func TestQueryPolicy_AllSkipAllows(t *testing.T) {
	ctx := context.Background()
	policy := privacy.QueryPolicy{
		privacy.QueryRuleFunc(func(context.Context, privacy.Query) error { return privacy.Skip }),
		privacy.QueryRuleFunc(func(context.Context, privacy.Query) error { return nil }),
	}
	require.NoError(t, policy.EvalQuery(ctx, &mockQuery{entity: "Widget"}))
}

func TestMutationPolicy_AllowShortCircuits(t *testing.T) {
	ctx := context.Background()
	m := &mockMutation{entity: "Widget", op: privacy.OpCreate}
	var ran []string

	track := func(name string, decision error) privacy.MutationRuleFunc {
		return func(context.Context, privacy.Mutation) error {
			ran = append(ran, name)
			return decision
		}
	}

	policy := privacy.MutationPolicy{
		track("skip", privacy.Skip),
		track("allow", privacy.Allow),
		track("unreached", privacy.Deny),
	}
	require.NoError(t, policy.EvalMutation(ctx, m))
	require.Equal(t, []string{"skip", "allow"}, ran)
}

func TestPolicy_ForwardsToQueryAndMutation(t *testing.T) {
	ctx := context.Background()
	policy := privacy.Policy{
		Query:    privacy.QueryPolicy{privacy.AlwaysDenyRule()},
		Mutation: privacy.MutationPolicy{privacy.AlwaysAllowRule()},
	}
	require.True(t, errors.Is(policy.EvalQuery(ctx, &mockQuery{entity: "Widget"}), privacy.Deny))
	require.NoError(t, policy.EvalMutation(ctx, &mockMutation{entity: "Widget", op: privacy.OpCreate}))
}

func TestFilterFunc_AppliesPredicateOnFilterable(t *testing.T) {
	ctx := context.Background()
	extraCol := columnpath.PhysicalColumn{Table: "widgets", Name: "workspace_id", Type: value.TypeInt8}
	rule := privacy.FilterFunc(func(_ context.Context, f privacy.Filter) error {
		f.WhereP(abstractsql.Eq(abstractsql.Physical(columnpath.NewLeaf(extraCol)), abstractsql.Param(value.I64(7))))
		return privacy.Skip
	})

	q := &mockFilterableQuery{mockQuery: mockQuery{entity: "Widget"}}
	err := rule.EvalQuery(ctx, q)
	require.True(t, errors.Is(err, privacy.Skip))
	assert.Equal(t, abstractsql.OpEq, q.applied.Op)
}

func TestFilterFunc_DeniesWhenNotFilterable(t *testing.T) {
	ctx := context.Background()
	rule := privacy.FilterFunc(func(context.Context, privacy.Filter) error { return privacy.Skip })

	err := rule.EvalQuery(ctx, &mockQuery{entity: "Widget"})
	require.True(t, errors.Is(err, privacy.Deny))

	err = rule.EvalMutation(ctx, &mockMutation{entity: "Widget", op: privacy.OpCreate})
	require.True(t, errors.Is(err, privacy.Deny))
}

func TestOpString(t *testing.T) {
	require.Equal(t, "create", privacy.OpCreate.String())
	require.Equal(t, "update", privacy.OpUpdate.String())
	require.Equal(t, "delete", privacy.OpDelete.String())
	require.True(t, privacy.OpCreate.Is(privacy.OpCreate))
	require.False(t, privacy.OpCreate.Is(privacy.OpUpdate))
}
