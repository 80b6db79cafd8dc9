package sqlexec

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/syssam/gqlpg/lower"
	"github.com/syssam/gqlpg/value"
)

// Driver owns a *sql.DB opened against a single Postgres database. The
// driver name is always "postgres" (lib/pq); gqlpg does not support other
// backends (spec.md §1).
type Driver struct {
	db *sql.DB
}

// Open wraps sql.Open("postgres", dsn) with a Driver.
func Open(dsn string) (*Driver, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlexec: open: %w", err)
	}
	return &Driver{db: db}, nil
}

// OpenDB wraps an already-open *sql.DB.
func OpenDB(db *sql.DB) *Driver { return &Driver{db: db} }

func (d *Driver) DB() *sql.DB { return d.db }

func (d *Driver) Close() error { return d.db.Close() }

// BeginTx starts a single transaction. Every operation resolver dispatches
// within a request runs inside exactly one Tx (spec.md §4.7); gqlpg never
// nests transactions.
func (d *Driver) BeginTx(ctx context.Context) (*Tx, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlexec: begin: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Tx wraps *sql.Tx with the two shapes the Transaction Runtime needs: a
// JSON-projecting query (every Select/Insert/Update/Delete that carries a
// RETURNING CTE or bare SELECT) and a row-count-only exec (statements with
// no projection, used to test whether a precheck predicate held).
type Tx struct {
	tx *sql.Tx
}

func (t *Tx) Commit() error   { return t.tx.Commit() }
func (t *Tx) Rollback() error { return t.tx.Rollback() }

// bindArgs wraps every []any argument lower produced for an IN-list or
// array-typed column with pq.Array, since database/sql has no native way
// to bind a Go slice to a Postgres array parameter.
func bindArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		if list, ok := a.([]any); ok {
			out[i] = pq.Array(list)
			continue
		}
		out[i] = a
	}
	return out
}

// QueryRow runs res and decodes the single jsonb column every SELECT and
// RETURNING-wrapping CTE statement projects into a value.Value. A query
// cardinality of one whose row is absent returns value.Null(), nil; the
// resolver passes that on, and its caller decides whether to turn it
// into gqlpg.NotFoundError.
func (t *Tx) QueryRow(ctx context.Context, res lower.Result) (value.Value, error) {
	row := t.tx.QueryRowContext(ctx, res.SQL, bindArgs(res.Args)...)
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return value.Null(), nil
		}
		return value.Value{}, fmt.Errorf("sqlexec: query row: %w", err)
	}
	return decodeJSONB(raw)
}

// QueryRows runs res, which must project a jsonb column per row (a
// many-cardinality Select without a top-level jsonb_agg wrapper, as used
// by paginated list operations), and returns one value.Value per row.
func (t *Tx) QueryRows(ctx context.Context, res lower.Result) ([]value.Value, error) {
	rows, err := t.tx.QueryContext(ctx, res.SQL, bindArgs(res.Args)...)
	if err != nil {
		return nil, fmt.Errorf("sqlexec: query rows: %w", err)
	}
	defer rows.Close()
	var out []value.Value
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("sqlexec: scan row: %w", err)
		}
		v, err := decodeJSONB(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlexec: rows: %w", err)
	}
	return out, nil
}

// Exec runs res for its side effect and returns the number of rows it
// affected. The Transaction Runtime uses this count to tell "zero rows
// because the business predicate matched nothing" apart from "zero rows
// because a folded-in precheck predicate rejected every candidate row" —
// both collapse to the same affected-row count and must be disambiguated
// by the caller issuing a second, precheck-only existence check when the
// count is zero and the operation requires a definite row (spec.md §4.7).
func (t *Tx) Exec(ctx context.Context, res lower.Result) (int64, error) {
	result, err := t.tx.ExecContext(ctx, res.SQL, bindArgs(res.Args)...)
	if err != nil {
		return 0, fmt.Errorf("sqlexec: exec: %w", err)
	}
	return result.RowsAffected()
}

func decodeJSONB(raw []byte) (value.Value, error) {
	if raw == nil {
		return value.Null(), nil
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return value.Value{}, fmt.Errorf("sqlexec: decode jsonb: %w", err)
	}
	v, err := value.FromGo(decoded)
	if err != nil {
		return value.Value{}, fmt.Errorf("sqlexec: decode jsonb: %w", err)
	}
	return v, nil
}
