package gqlpg_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/gqlpg"
)

func TestNotFoundError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := gqlpg.NewNotFoundError("User")
		assert.Equal(t, "gqlpg: User not found", err.Error())
	})

	t.Run("ErrorWithID", func(t *testing.T) {
		err := gqlpg.NewNotFoundErrorWithID("User", 42)
		assert.Equal(t, "gqlpg: User not found (id=42)", err.Error())
	})

	t.Run("Is", func(t *testing.T) {
		err := gqlpg.NewNotFoundError("Post")
		assert.True(t, errors.Is(err, gqlpg.ErrNotFound))
	})

	t.Run("IsNotFound", func(t *testing.T) {
		err := gqlpg.NewNotFoundError("Comment")
		assert.True(t, gqlpg.IsNotFound(err))

		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, gqlpg.IsNotFound(wrapped))

		assert.True(t, gqlpg.IsNotFound(gqlpg.ErrNotFound))

		assert.False(t, gqlpg.IsNotFound(errors.New("other error")))
		assert.False(t, gqlpg.IsNotFound(nil))
	})

	t.Run("ClientSafe", func(t *testing.T) {
		err := gqlpg.NewNotFoundError("User")
		assert.True(t, gqlpg.IsClientSafe(err))
		assert.Equal(t, err.Error(), gqlpg.ExplicitMessage(err))
	})
}

func TestNotSingularError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := gqlpg.NewNotSingularErrorWithCount("User", 3)
		assert.Equal(t, "gqlpg: User not singular (got 3 results, expected 1)", err.Error())
	})

	t.Run("Is", func(t *testing.T) {
		err := gqlpg.NewNotSingularErrorWithCount("Post", 0)
		assert.True(t, errors.Is(err, gqlpg.ErrNotSingular))
	})

	t.Run("IsNotSingular", func(t *testing.T) {
		err := gqlpg.NewNotSingularErrorWithCount("Comment", 2)
		assert.True(t, gqlpg.IsNotSingular(err))

		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, gqlpg.IsNotSingular(wrapped))

		assert.True(t, gqlpg.IsNotSingular(gqlpg.ErrNotSingular))

		assert.False(t, gqlpg.IsNotSingular(errors.New("other error")))
		assert.False(t, gqlpg.IsNotSingular(nil))
	})
}

func TestValidationError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := gqlpg.NewValidationError("email", errors.New("invalid format"))
		assert.Equal(t, `gqlpg: validation failed for "email": invalid format`, err.Error())
	})

	t.Run("ErrorNoField", func(t *testing.T) {
		err := gqlpg.NewValidationError("", errors.New("malformed argument"))
		assert.Equal(t, "gqlpg: validation failed: malformed argument", err.Error())
	})

	t.Run("Unwrap", func(t *testing.T) {
		underlying := errors.New("too short")
		err := gqlpg.NewValidationError("name", underlying)
		assert.True(t, errors.Is(err, underlying))
	})

	t.Run("IsValidationError", func(t *testing.T) {
		err := gqlpg.NewValidationError("age", errors.New("must be positive"))
		assert.True(t, gqlpg.IsValidationError(err))

		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, gqlpg.IsValidationError(wrapped))

		assert.False(t, gqlpg.IsValidationError(errors.New("other error")))
		assert.False(t, gqlpg.IsValidationError(nil))
	})

	t.Run("ClientSafe", func(t *testing.T) {
		err := gqlpg.NewValidationError("email", errors.New("invalid format"))
		assert.True(t, gqlpg.IsClientSafe(err))
	})
}

func TestAuthorizationError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := gqlpg.NewAuthorizationError("Venue", "update")
		assert.Equal(t, "gqlpg: not authorized to update Venue", err.Error())
	})

	t.Run("IsAuthorizationError", func(t *testing.T) {
		err := gqlpg.NewAuthorizationError("Venue", "delete")
		assert.True(t, gqlpg.IsAuthorizationError(err))

		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, gqlpg.IsAuthorizationError(wrapped))

		assert.False(t, gqlpg.IsAuthorizationError(errors.New("other error")))
		assert.False(t, gqlpg.IsAuthorizationError(nil))
	})

	t.Run("ClientSafe never leaks residue", func(t *testing.T) {
		err := gqlpg.NewAuthorizationError("Venue", "read")
		assert.True(t, gqlpg.IsClientSafe(err))
		assert.NotContains(t, err.Error(), "residue")
	})
}

func TestTransactionError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := gqlpg.NewTransactionError(2, errors.New("constraint violation"))
		assert.Equal(t, "gqlpg: transaction step 2 failed: constraint violation", err.Error())
	})

	t.Run("Unwrap", func(t *testing.T) {
		underlying := errors.New("connection reset")
		err := gqlpg.NewTransactionError(0, underlying)
		assert.True(t, errors.Is(err, underlying))
	})

	t.Run("not client safe", func(t *testing.T) {
		err := gqlpg.NewTransactionError(1, errors.New("duplicate key value"))
		assert.False(t, gqlpg.IsClientSafe(err))
		assert.Equal(t, "Internal server error", gqlpg.ExplicitMessage(err))
	})
}

func TestConstraintError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := gqlpg.NewConstraintError("UNIQUE constraint failed", nil)
		assert.Equal(t, "gqlpg: constraint failed: UNIQUE constraint failed", err.Error())
	})

	t.Run("Unwrap", func(t *testing.T) {
		underlying := errors.New("db error")
		err := gqlpg.NewConstraintError("constraint violated", underlying)
		assert.True(t, errors.Is(err, underlying))
	})

	t.Run("IsConstraintError", func(t *testing.T) {
		err := gqlpg.NewConstraintError("check failed", nil)
		assert.True(t, gqlpg.IsConstraintError(err))

		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, gqlpg.IsConstraintError(wrapped))

		assert.False(t, gqlpg.IsConstraintError(errors.New("other error")))
		assert.False(t, gqlpg.IsConstraintError(nil))
	})

	t.Run("ClientSafe", func(t *testing.T) {
		err := gqlpg.NewConstraintError("unique violation", nil)
		assert.True(t, gqlpg.IsClientSafe(err))
	})
}

func TestInternalError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := gqlpg.NewInternalError(errors.New("disk full"))
		assert.Equal(t, "gqlpg: internal error: disk full", err.Error())
	})

	t.Run("Unwrap", func(t *testing.T) {
		underlying := errors.New("timeout")
		err := gqlpg.NewInternalError(underlying)
		assert.True(t, errors.Is(err, underlying))
	})

	t.Run("not client safe", func(t *testing.T) {
		err := gqlpg.NewInternalError(errors.New("stack trace leaked here"))
		assert.False(t, gqlpg.IsClientSafe(err))
		assert.Equal(t, "Internal server error", gqlpg.ExplicitMessage(err))
	})
}

func TestExplicitMessage(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		assert.Equal(t, "", gqlpg.ExplicitMessage(nil))
	})

	t.Run("client-safe passes through", func(t *testing.T) {
		err := gqlpg.NewNotFoundError("Venue")
		assert.Equal(t, err.Error(), gqlpg.ExplicitMessage(err))
	})

	t.Run("non-client-safe collapses", func(t *testing.T) {
		err := gqlpg.NewInternalError(errors.New("pq: connection refused"))
		require.Equal(t, "Internal server error", gqlpg.ExplicitMessage(err))
	})

	t.Run("plain stdlib error collapses", func(t *testing.T) {
		assert.Equal(t, "Internal server error", gqlpg.ExplicitMessage(errors.New("boom")))
	})
}

func TestSentinelErrors(t *testing.T) {
	t.Run("ErrNotFound", func(t *testing.T) {
		assert.Error(t, gqlpg.ErrNotFound)
		assert.Contains(t, gqlpg.ErrNotFound.Error(), "not found")
	})

	t.Run("ErrNotSingular", func(t *testing.T) {
		assert.Error(t, gqlpg.ErrNotSingular)
		assert.Contains(t, gqlpg.ErrNotSingular.Error(), "not singular")
	})

	t.Run("ErrTxStarted", func(t *testing.T) {
		assert.Error(t, gqlpg.ErrTxStarted)
		assert.Contains(t, gqlpg.ErrTxStarted.Error(), "transaction")
	})
}

// BenchmarkErrors benchmarks error creation and checking.
func BenchmarkErrors(b *testing.B) {
	b.Run("NewNotFoundError", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = gqlpg.NewNotFoundError("User")
		}
	})

	b.Run("IsNotFound", func(b *testing.B) {
		err := gqlpg.NewNotFoundError("User")
		for i := 0; i < b.N; i++ {
			_ = gqlpg.IsNotFound(err)
		}
	})

	b.Run("NewConstraintError", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = gqlpg.NewConstraintError("unique", nil)
		}
	})

	b.Run("IsConstraintError", func(b *testing.B) {
		err := gqlpg.NewConstraintError("unique", nil)
		for i := 0; i < b.N; i++ {
			_ = gqlpg.IsConstraintError(err)
		}
	})

	b.Run("NewValidationError", func(b *testing.B) {
		underlying := errors.New("invalid")
		for i := 0; i < b.N; i++ {
			_ = gqlpg.NewValidationError("field", underlying)
		}
	})

	b.Run("ExplicitMessage", func(b *testing.B) {
		err := gqlpg.NewTransactionError(0, errors.New("constraint"))
		for i := 0; i < b.N; i++ {
			_ = gqlpg.ExplicitMessage(err)
		}
	})
}
