package privacy_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/gqlpg/privacy"
)

func TestSimpleViewer(t *testing.T) {
	v := &privacy.SimpleViewer{UserID: "u1", Roles: []string{"admin", "editor"}, TenantID: "t1"}
	require.Equal(t, "u1", v.GetID())
	require.Equal(t, []string{"admin", "editor"}, v.GetRoles())
	require.Equal(t, "t1", v.GetTenantID())
}

func TestViewerContext(t *testing.T) {
	require.Nil(t, privacy.ViewerFromContext(context.Background()))

	v := &privacy.SimpleViewer{UserID: "u1"}
	ctx := privacy.WithViewer(context.Background(), v)
	require.Equal(t, v, privacy.ViewerFromContext(ctx))
}

func TestDenyIfNoViewer(t *testing.T) {
	rule := privacy.DenyIfNoViewer()

	err := rule.EvalQuery(context.Background(), &mockQuery{entity: "Widget"})
	require.True(t, errors.Is(err, privacy.Deny))

	ctx := privacy.WithViewer(context.Background(), &privacy.SimpleViewer{UserID: "u1"})
	err = rule.EvalQuery(ctx, &mockQuery{entity: "Widget"})
	require.True(t, errors.Is(err, privacy.Skip))
}

func TestHasRole(t *testing.T) {
	rule := privacy.HasRole("admin")

	noViewerCtx := context.Background()
	require.True(t, errors.Is(rule.EvalQuery(noViewerCtx, &mockQuery{entity: "Widget"}), privacy.Skip))

	adminCtx := privacy.WithViewer(context.Background(), &privacy.SimpleViewer{Roles: []string{"admin"}})
	require.True(t, errors.Is(rule.EvalQuery(adminCtx, &mockQuery{entity: "Widget"}), privacy.Allow))

	userCtx := privacy.WithViewer(context.Background(), &privacy.SimpleViewer{Roles: []string{"user"}})
	require.True(t, errors.Is(rule.EvalQuery(userCtx, &mockQuery{entity: "Widget"}), privacy.Skip))
}

func TestHasAnyRole(t *testing.T) {
	rule := privacy.HasAnyRole("admin", "editor")

	editorCtx := privacy.WithViewer(context.Background(), &privacy.SimpleViewer{Roles: []string{"editor"}})
	require.True(t, errors.Is(rule.EvalQuery(editorCtx, &mockQuery{entity: "Widget"}), privacy.Allow))

	viewerCtx := privacy.WithViewer(context.Background(), &privacy.SimpleViewer{Roles: []string{"viewer"}})
	require.True(t, errors.Is(rule.EvalQuery(viewerCtx, &mockQuery{entity: "Widget"}), privacy.Skip))
}

func TestIsOwner(t *testing.T) {
	rule := privacy.IsOwner("userID")
	m := &mockMutation{entity: "Post", op: privacy.OpUpdate, fields: map[string]any{"userID": "u1"}}

	require.True(t, errors.Is(rule.EvalMutation(context.Background(), m), privacy.Skip))

	ownerCtx := privacy.WithViewer(context.Background(), &privacy.SimpleViewer{UserID: "u1"})
	require.True(t, errors.Is(rule.EvalMutation(ownerCtx, m), privacy.Allow))

	otherCtx := privacy.WithViewer(context.Background(), &privacy.SimpleViewer{UserID: "u2"})
	require.True(t, errors.Is(rule.EvalMutation(otherCtx, m), privacy.Skip))

	missingField := &mockMutation{entity: "Post", op: privacy.OpUpdate, fields: map[string]any{}}
	require.True(t, errors.Is(rule.EvalMutation(ownerCtx, missingField), privacy.Skip))
}

func TestIsOwner_NumericField(t *testing.T) {
	rule := privacy.IsOwner("userID")
	m := &mockMutation{entity: "Post", op: privacy.OpUpdate, fields: map[string]any{"userID": int64(42)}}
	ctx := privacy.WithViewer(context.Background(), &privacy.SimpleViewer{UserID: "42"})
	require.True(t, errors.Is(rule.EvalMutation(ctx, m), privacy.Allow))
}

func TestOwnerQueryRule(t *testing.T) {
	rule := privacy.OwnerQueryRule()

	err := rule.EvalQuery(context.Background(), &mockQuery{entity: "Post"})
	require.True(t, errors.Is(err, privacy.Deny))

	ctx := privacy.WithViewer(context.Background(), &privacy.SimpleViewer{UserID: "u1"})
	err = rule.EvalQuery(ctx, &mockQuery{entity: "Post"})
	require.True(t, errors.Is(err, privacy.Skip))
}

func TestTenantRule(t *testing.T) {
	rule := privacy.TenantRule("tenantID")
	m := &mockMutation{entity: "Post", op: privacy.OpUpdate, fields: map[string]any{"tenantID": "t1"}}

	require.True(t, errors.Is(rule.EvalMutation(context.Background(), m), privacy.Skip))

	matchCtx := privacy.WithViewer(context.Background(), &privacy.SimpleViewer{TenantID: "t1"})
	require.True(t, errors.Is(rule.EvalMutation(matchCtx, m), privacy.Allow))

	mismatchCtx := privacy.WithViewer(context.Background(), &privacy.SimpleViewer{TenantID: "t2"})
	require.True(t, errors.Is(rule.EvalMutation(mismatchCtx, m), privacy.Deny))

	noTenantCtx := privacy.WithViewer(context.Background(), &privacy.SimpleViewer{})
	require.True(t, errors.Is(rule.EvalMutation(noTenantCtx, m), privacy.Skip))

	missingField := &mockMutation{entity: "Post", op: privacy.OpUpdate, fields: map[string]any{}}
	require.True(t, errors.Is(rule.EvalMutation(matchCtx, missingField), privacy.Skip))
}

func TestTenantQueryRule(t *testing.T) {
	rule := privacy.TenantQueryRule()

	err := rule.EvalQuery(context.Background(), &mockQuery{entity: "Post"})
	require.True(t, errors.Is(err, privacy.Deny))

	noTenantCtx := privacy.WithViewer(context.Background(), &privacy.SimpleViewer{UserID: "u1"})
	err = rule.EvalQuery(noTenantCtx, &mockQuery{entity: "Post"})
	require.True(t, errors.Is(err, privacy.Deny))

	tenantCtx := privacy.WithViewer(context.Background(), &privacy.SimpleViewer{UserID: "u1", TenantID: "t1"})
	err = rule.EvalQuery(tenantCtx, &mockQuery{entity: "Post"})
	require.True(t, errors.Is(err, privacy.Skip))
}

func TestAllowMutationOperationRule(t *testing.T) {
	rule := privacy.AllowMutationOperationRule(privacy.OpDelete)
	del := &mockMutation{entity: "Post", op: privacy.OpDelete}
	update := &mockMutation{entity: "Post", op: privacy.OpUpdate}

	require.True(t, errors.Is(rule.EvalMutation(context.Background(), del), privacy.Allow))
	require.True(t, errors.Is(rule.EvalMutation(context.Background(), update), privacy.Skip))
}

// TestIntegratedPolicyChain exercises a realistic chain: require a
// viewer, allow admins outright, allow the owner, deny everyone else.
func TestIntegratedPolicyChain(t *testing.T) {
	policy := privacy.MutationPolicy{
		privacy.DenyIfNoViewer(),
		privacy.HasRole("admin"),
		privacy.IsOwner("userID"),
		privacy.AlwaysDenyRule(),
	}
	m := &mockMutation{entity: "Post", op: privacy.OpUpdate, fields: map[string]any{"userID": "owner-1"}}

	require.True(t, errors.Is(policy.EvalMutation(context.Background(), m), privacy.Deny), "no viewer denies")

	adminCtx := privacy.WithViewer(context.Background(), &privacy.SimpleViewer{UserID: "admin-1", Roles: []string{"admin"}})
	require.NoError(t, policy.EvalMutation(adminCtx, m), "admin allowed")

	ownerCtx := privacy.WithViewer(context.Background(), &privacy.SimpleViewer{UserID: "owner-1"})
	require.NoError(t, policy.EvalMutation(ownerCtx, m), "owner allowed")

	strangerCtx := privacy.WithViewer(context.Background(), &privacy.SimpleViewer{UserID: "stranger-1"})
	require.True(t, errors.Is(policy.EvalMutation(strangerCtx, m), privacy.Deny), "stranger denied by default")
}
