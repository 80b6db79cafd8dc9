package txrun

import (
	"context"
	"fmt"
	"log"

	"github.com/syssam/gqlpg"
	"github.com/syssam/gqlpg/lower"
	"github.com/syssam/gqlpg/sqlexec"
	"github.com/syssam/gqlpg/value"
)

// StepID addresses a step within a TransactionScript by its position.
type StepID int

// Mode says how a step's lower.Result should be executed and what shape
// of output to capture for later steps to resolve against.
type Mode int

const (
	// ModeQueryOne runs the step as a single-row jsonb-projecting query
	// (a Select of Cardinality One, or an Insert/Update/Delete wrapped in
	// a RETURNING CTE that itself projects Cardinality One).
	ModeQueryOne Mode = iota
	// ModeQueryMany runs the step as a multi-row jsonb-projecting query.
	ModeQueryMany
	// ModeExec runs the step for its row-count effect only, with no
	// projection to decode (a bare Update/Delete/Insert with no RETURNING
	// CTE attached).
	ModeExec
)

// StepResultRef addresses a value produced by a prior step: Row selects
// an element of a ModeQueryMany step's output (ignored, and must be left
// at its zero value, for ModeQueryOne); Key selects a field of the
// jsonb object at that row, or the whole value when Key is empty.
type StepResultRef struct {
	Step StepID
	Row  int
	Key  string
}

// SQLOperation is a single concrete unit of work to execute against the
// transaction's connection.
type SQLOperation struct {
	Result lower.Result
	Mode   Mode
	// Label identifies the entity/operation for error messages.
	Label string
	// OnZeroAffected is consulted only when Mode is ModeExec and the
	// statement affected zero rows. Package lower folds a mutation's
	// precheck predicates into the statement's own WHERE clause rather
	// than emitting a CASE WHEN guard, so a zero row count is ambiguous
	// between "the business predicate matched nothing" and "a precheck
	// predicate rejected every candidate row" — only the caller that
	// built the step, which knows which case applies to this particular
	// operation, can tell them apart. Return a non-nil error to fail the
	// step (and roll back the whole script); return nil to treat zero
	// rows as a legitimate no-op.
	OnZeroAffected func() error
}

// TemplateBuilder builds a step's SQLOperation from previously executed
// steps' output, via resolve. It runs immediately before that step
// executes, so it may inspect any ref whose Step precedes it.
type TemplateBuilder func(resolve func(StepResultRef) (value.Value, error)) (SQLOperation, error)

// Step is either a Concrete operation known up front, or a Template one
// whose arguments depend on an earlier step's result (e.g. a nested
// insert's foreign key, populated from a parent row's generated id).
type Step struct {
	Concrete *SQLOperation
	Template TemplateBuilder
}

// TransactionScript is the ordered DAG of steps spec.md §4.7 describes.
// Steps execute strictly in slice order, sharing one transaction.
type TransactionScript struct {
	Steps []Step
}

// NewScript returns an empty script.
func NewScript() *TransactionScript { return &TransactionScript{} }

// AddConcrete appends a step whose operation needs no earlier step's
// output, returning the StepID later steps can reference.
func (s *TransactionScript) AddConcrete(op SQLOperation) StepID {
	s.Steps = append(s.Steps, Step{Concrete: &op})
	return StepID(len(s.Steps) - 1)
}

// AddTemplate appends a step whose operation is built lazily from
// earlier steps' output, returning the StepID later steps can reference.
func (s *TransactionScript) AddTemplate(build TemplateBuilder) StepID {
	s.Steps = append(s.Steps, Step{Template: build})
	return StepID(len(s.Steps) - 1)
}

// StepOutput captures what a step produced, in the shape later steps'
// resolve_value calls can address.
type StepOutput struct {
	One      value.Value
	Many     []value.Value
	Affected int64
}

// Run executes script inside a single transaction on driver. Any step
// error rolls the transaction back and returns gqlpg.NewTransactionError
// wrapping the step's own error; a fully successful script commits and
// returns every step's output, indexed by StepID.
func Run(ctx context.Context, driver *sqlexec.Driver, script *TransactionScript) ([]StepOutput, error) {
	tx, err := driver.BeginTx(ctx)
	if err != nil {
		return nil, gqlpg.NewInternalError(fmt.Errorf("txrun: begin: %w", err))
	}

	outputs := make([]StepOutput, len(script.Steps))
	resolve := makeResolver(outputs)

	for i, step := range script.Steps {
		op, err := resolveStep(step, resolve)
		if err != nil {
			_ = tx.Rollback()
			log.Printf("txrun: step %d failed: %v", i, err)
			return nil, gqlpg.NewTransactionError(i, err)
		}
		out, err := runStep(ctx, tx, op)
		if err != nil {
			_ = tx.Rollback()
			log.Printf("txrun: step %d failed: %v", i, err)
			return nil, gqlpg.NewTransactionError(i, err)
		}
		if op.Mode == ModeExec && out.Affected == 0 && op.OnZeroAffected != nil {
			if zeroErr := op.OnZeroAffected(); zeroErr != nil {
				_ = tx.Rollback()
				return nil, zeroErr
			}
		}
		outputs[i] = out
	}

	if err := tx.Commit(); err != nil {
		log.Printf("txrun: commit failed: %v", err)
		return nil, gqlpg.NewTransactionError(len(script.Steps), fmt.Errorf("txrun: commit: %w", err))
	}
	return outputs, nil
}

func resolveStep(step Step, resolve func(StepResultRef) (value.Value, error)) (SQLOperation, error) {
	if step.Concrete != nil {
		return *step.Concrete, nil
	}
	return step.Template(resolve)
}

func runStep(ctx context.Context, tx *sqlexec.Tx, op SQLOperation) (StepOutput, error) {
	switch op.Mode {
	case ModeQueryOne:
		v, err := tx.QueryRow(ctx, op.Result)
		if err != nil {
			return StepOutput{}, fmt.Errorf("txrun: %s: %w", op.Label, err)
		}
		return StepOutput{One: v}, nil
	case ModeQueryMany:
		vs, err := tx.QueryRows(ctx, op.Result)
		if err != nil {
			return StepOutput{}, fmt.Errorf("txrun: %s: %w", op.Label, err)
		}
		return StepOutput{Many: vs}, nil
	case ModeExec:
		n, err := tx.Exec(ctx, op.Result)
		if err != nil {
			return StepOutput{}, fmt.Errorf("txrun: %s: %w", op.Label, err)
		}
		return StepOutput{Affected: n}, nil
	default:
		return StepOutput{}, fmt.Errorf("txrun: %s: unknown step mode %d", op.Label, op.Mode)
	}
}

func makeResolver(outputs []StepOutput) func(StepResultRef) (value.Value, error) {
	return func(ref StepResultRef) (value.Value, error) {
		if int(ref.Step) < 0 || int(ref.Step) >= len(outputs) {
			return value.Value{}, fmt.Errorf("txrun: resolve_value: step %d out of range", ref.Step)
		}
		out := outputs[ref.Step]
		if out.Many != nil {
			if ref.Row < 0 || ref.Row >= len(out.Many) {
				return value.Value{}, fmt.Errorf("txrun: resolve_value: step %d row %d out of range", ref.Step, ref.Row)
			}
			return lookupKey(out.Many[ref.Row], ref.Key)
		}
		return lookupKey(out.One, ref.Key)
	}
}

func lookupKey(v value.Value, key string) (value.Value, error) {
	if key == "" {
		return v, nil
	}
	obj, ok := v.AsObject()
	if !ok {
		return value.Value{}, fmt.Errorf("txrun: resolve_value: value is not an object, cannot select key %q", key)
	}
	fv, ok := obj[key]
	if !ok {
		return value.Value{}, fmt.Errorf("txrun: resolve_value: missing key %q", key)
	}
	return fv, nil
}
