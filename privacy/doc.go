// Package privacy provides an imperative authorization escape hatch that
// runs alongside the declarative access pipeline (package access and
// model.Expression). access.Solve is the primary authorization
// mechanism; privacy.Policy exists for the rare check the declarative
// expression language can't express — a role lookup against an external
// system, a rule with side effects, or logic easiest to write as plain
// Go.
//
// # Core Concepts
//
// The privacy layer is built around three main concepts:
//
//   - Policy: A collection of rules that determine access to an entity's operations
//   - Rule: A function that returns Allow, Deny, or Skip decisions
//   - Viewer: An interface representing the current user/context
//
// # Attaching a Policy
//
// A Policy is attached to a resolver request alongside the entity's
// declarative Access expressions:
//
//	req := resolver.CreateRequest{
//	    Entity: userEntity,
//	    Policy: privacy.Policy{
//	        Mutation: privacy.MutationPolicy{
//	            privacy.DenyIfNoViewer(),   // Require authentication
//	            privacy.HasRole("admin"),   // Allow admins
//	            privacy.IsOwner("userID"),  // Allow owners
//	            privacy.AlwaysDenyRule(),   // Deny by default
//	        },
//	    },
//	    // ...
//	}
//
// # Rule Evaluation
//
// Rules are evaluated in order until one returns a final decision:
//
//   - Allow: Grants access and stops evaluation
//   - Deny: Denies access and stops evaluation
//   - Skip: Continues to the next rule
//
// If all rules in a policy return Skip, EvalQuery/EvalMutation return nil
// (allow) — an empty or exhausted Policy defers entirely to whatever
// model.Expression the entity's Model already attached, rather than
// denying by default.
//
// # Built-in Rules
//
// The package provides several built-in rules:
//
//   - DenyIfNoViewer: Denies if no viewer is present in context
//   - AlwaysAllowRule: Always allows access
//   - AlwaysDenyRule: Always denies access
//   - HasRole: Allows if viewer has the specified role
//   - HasAnyRole: Allows if viewer has any of the specified roles
//   - IsOwner: Allows if viewer owns the entity
//   - TenantRule: Allows if viewer belongs to the same tenant
//
// # Viewer Interface
//
// The Viewer interface represents the authenticated user:
//
//	type Viewer interface {
//	    GetID() string       // Unique user identifier
//	    GetRoles() []string  // User's roles
//	    GetTenantID() string // Tenant ID for multi-tenancy
//	}
//
// A SimpleViewer implementation is provided for basic use cases:
//
//	viewer := &privacy.SimpleViewer{
//	    UserID:   "user-123",
//	    Roles:    []string{"admin", "user"},
//	    TenantID: "tenant-abc",
//	}
//
// # Context Integration
//
// The viewer is stored in context and retrieved during policy evaluation:
//
//	ctx := privacy.WithViewer(ctx, &privacy.SimpleViewer{
//	    UserID: "user-123",
//	    Roles:  []string{"user"},
//	})
//	data, err := resolver.Create(ctx, reqCtx, driver, model, req)
//
// # Error Handling
//
// When a rule denies access, the wrapped Deny sentinel is returned;
// package resolver collapses it to a gqlpg.AuthorizationError before it
// reaches the caller, the same client-safe shape a declarative
// model.Expression rejection produces.
package privacy
