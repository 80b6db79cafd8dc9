package txrun_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/syssam/gqlpg"
	"github.com/syssam/gqlpg/lower"
	"github.com/syssam/gqlpg/sqlexec"
	"github.com/syssam/gqlpg/txrun"
	"github.com/syssam/gqlpg/value"
)

func TestRun_TemplateStepResolvesPriorRowID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	driver := sqlexec.OpenDB(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`WITH inserted AS \(INSERT INTO venues`).
		WillReturnRows(sqlmock.NewRows([]string{"jsonb_build_object"}).AddRow([]byte(`{"id": 42, "name": "Fillmore"}`)))
	mock.ExpectExec(`INSERT INTO concerts`).
		WithArgs(int64(42), "Reunion Tour").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	script := txrun.NewScript()
	venueStep := script.AddConcrete(txrun.SQLOperation{
		Mode:  txrun.ModeQueryOne,
		Label: "create venue",
		Result: lower.Result{
			SQL:  `WITH inserted AS (INSERT INTO venues (name) VALUES ($1) RETURNING *) SELECT jsonb_build_object('id', id, 'name', name) FROM inserted`,
			Args: []any{"Fillmore"},
		},
	})
	script.AddTemplate(func(resolve func(txrun.StepResultRef) (value.Value, error)) (txrun.SQLOperation, error) {
		id, err := resolve(txrun.StepResultRef{Step: venueStep, Key: "id"})
		if err != nil {
			return txrun.SQLOperation{}, err
		}
		idNum, _ := id.AsNumber()
		venueID, _ := idNum.AsI64()
		return txrun.SQLOperation{
			Mode:  txrun.ModeExec,
			Label: "create concert",
			Result: lower.Result{
				SQL:  `INSERT INTO concerts (venue_id, title) VALUES ($1, $2)`,
				Args: []any{venueID, "Reunion Tour"},
			},
		}, nil
	})

	outputs, err := txrun.Run(context.Background(), driver, script)
	require.NoError(t, err)
	require.Len(t, outputs, 2)
	require.Equal(t, int64(1), outputs[1].Affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_StepErrorRollsBackAndWraps(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	driver := sqlexec.OpenDB(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE venues`).WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	script := txrun.NewScript()
	script.AddConcrete(txrun.SQLOperation{
		Mode:   txrun.ModeExec,
		Label:  "update venue",
		Result: lower.Result{SQL: `UPDATE venues SET capacity = $1 WHERE id = $2`, Args: []any{500, 1}},
	})

	_, err = txrun.Run(context.Background(), driver, script)
	require.Error(t, err)
	var txErr *gqlpg.TransactionError
	require.ErrorAs(t, err, &txErr)
	require.False(t, gqlpg.IsClientSafe(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_ZeroAffectedTriggersOnZeroAffectedHook(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	driver := sqlexec.OpenDB(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE venues`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	script := txrun.NewScript()
	script.AddConcrete(txrun.SQLOperation{
		Mode:  txrun.ModeExec,
		Label: "update venue",
		Result: lower.Result{
			SQL:  `UPDATE venues SET capacity = $1 WHERE id = $2 AND capacity <= $3`,
			Args: []any{500, 1, 10000},
		},
		OnZeroAffected: func() error {
			return gqlpg.NewAuthorizationError("Venue", "update")
		},
	})

	_, err = txrun.Run(context.Background(), driver, script)
	require.Error(t, err)
	require.True(t, gqlpg.IsAuthorizationError(err))
	require.NoError(t, mock.ExpectationsWereMet())
}
