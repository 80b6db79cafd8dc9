package access_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/gqlpg/abstractsql"
	"github.com/syssam/gqlpg/access"
	"github.com/syssam/gqlpg/columnpath"
	"github.com/syssam/gqlpg/model"
	"github.com/syssam/gqlpg/value"
)

type mapContext map[string]value.Value

func (c mapContext) Resolve(path []string) (value.Value, bool, error) {
	key := ""
	for i, p := range path {
		if i > 0 {
			key += "."
		}
		key += p
	}
	v, ok := c[key]
	return v, ok, nil
}

func venuePublicColumn() columnpath.Path {
	return columnpath.NewLeaf(columnpath.PhysicalColumn{Table: "venues", Name: "public", Type: "bool"})
}

func TestSolve_BooleanLiteral(t *testing.T) {
	s, err := access.Solve(nil, access.Input{}, model.BooleanLiteral(true))
	require.NoError(t, err)
	v, ok := s.IsSolved()
	require.True(t, ok)
	require.True(t, v)
}

func TestSolve_OrResidueWithAdmin(t *testing.T) {
	// venue.read = AuthContext.role == "admin" || self.public == true
	expr := model.Or(
		model.Relational(model.RelEq, model.CommonContext("AuthContext", "role"), model.CommonLiteral(value.String("admin"))),
		model.Relational(model.RelEq, model.ColumnRef(venuePublicColumn()), model.CommonLiteral(value.Bool(true))),
	)

	ctx := mapContext{"AuthContext.role": value.String("user")}
	s, err := access.Solve(ctx, access.Input{}, expr)
	require.NoError(t, err)
	_, solved := s.IsSolved()
	require.False(t, solved, "residue expected for a non-admin context")

	residue := s.Residue()
	require.Equal(t, abstractsql.OpEq, residue.Op)
}

func TestSolve_AndShortCircuitsOnFalse(t *testing.T) {
	expr := model.And(model.BooleanLiteral(false), model.Relational(model.RelEq, model.ColumnRef(venuePublicColumn()), model.CommonLiteral(value.Bool(true))))
	s, err := access.Solve(nil, access.Input{}, expr)
	require.NoError(t, err)
	v, ok := s.IsSolved()
	require.True(t, ok)
	require.False(t, v)
}

func TestSolve_MissingContextShortCircuitsToFalse(t *testing.T) {
	expr := model.Relational(model.RelEq, model.ColumnRef(venuePublicColumn()), model.CommonContext("AuthContext", "tenantID"))
	s, err := access.Solve(mapContext{}, access.Input{}, expr)
	require.NoError(t, err)
	v, ok := s.IsSolved()
	require.True(t, ok)
	require.False(t, v)
}

func TestSolve_PrecheckIgnoresMissingOptionalField(t *testing.T) {
	expr := model.Relational(model.RelLte, model.InputValue("data", "price"), model.CommonLiteral(value.I64(1000)))
	in := access.Input{Value: value.Object(map[string]value.Value{}), Present: true, IgnoreMissingValue: true}
	s, err := access.Solve(nil, in, expr)
	require.NoError(t, err)
	v, ok := s.IsSolved()
	require.True(t, ok)
	require.True(t, v)
}

func TestSolve_Idempotence(t *testing.T) {
	// venue.read residue involving an admin check ANDed with a column
	// comparison: solving the resulting residue again against the same
	// context must reproduce the identical residual predicate.
	expr := model.And(
		model.Relational(model.RelEq, model.CommonContext("AuthContext", "role"), model.CommonLiteral(value.String("admin"))),
		model.Relational(model.RelEq, model.ColumnRef(venuePublicColumn()), model.CommonLiteral(value.Bool(true))),
	)
	ctx := mapContext{"AuthContext.role": value.String("admin")}

	first, err := access.Solve(ctx, access.Input{}, expr)
	require.NoError(t, err)
	_, firstSolved := first.IsSolved()
	require.False(t, firstSolved)

	reExpr := model.Relational(model.RelEq, model.ColumnRef(venuePublicColumn()), model.CommonLiteral(value.Bool(true)))
	second, err := access.Solve(ctx, access.Input{}, reExpr)
	require.NoError(t, err)

	require.Equal(t, first.Residue(), second.Residue())
}
