package orderby_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/gqlpg/abstractsql"
	"github.com/syssam/gqlpg/columnpath"
	"github.com/syssam/gqlpg/model"
	"github.com/syssam/gqlpg/orderby"
	"github.com/syssam/gqlpg/value"
)

type nilContext struct{}

func (nilContext) Resolve(path []string) (value.Value, bool, error) { return value.Null(), false, nil }

func nameColumn() columnpath.PhysicalColumn {
	return columnpath.PhysicalColumn{Table: "venues", Name: "name", Type: value.TypeText}
}

func capacityColumn() columnpath.PhysicalColumn {
	return columnpath.PhysicalColumn{Table: "venues", Name: "capacity", Type: value.TypeInt4}
}

func venueRelation() columnpath.RelationLink {
	return columnpath.RelationLink{
		SelfTable:   "concerts",
		LinkedTable: "venues",
		ColumnPairs: []columnpath.ColumnPair{{
			Self:    columnpath.PhysicalColumn{Table: "concerts", Name: "venue_id"},
			Foreign: columnpath.PhysicalColumn{Table: "venues", Name: "id", PrimaryKey: true},
		}},
	}
}

func TestMap_ScalarAscending(t *testing.T) {
	fields := map[string]orderby.Parameter{
		"name": {Kind: orderby.ScalarField, Column: nameColumn(), ReadAccess: model.BooleanLiteral(true)},
	}
	arg := value.Object(map[string]value.Value{"name": value.String("ASC")})
	exprs, err := orderby.Map(nilContext{}, "venue", fields, arg)
	require.NoError(t, err)
	require.Len(t, exprs, 1)
	require.Equal(t, abstractsql.Asc, exprs[0].Direction)
}

func TestMap_ScalarDescendingFromEnum(t *testing.T) {
	fields := map[string]orderby.Parameter{
		"capacity": {Kind: orderby.ScalarField, Column: capacityColumn(), ReadAccess: model.BooleanLiteral(true)},
	}
	arg := value.Object(map[string]value.Value{"capacity": value.Enum("DESC")})
	exprs, err := orderby.Map(nilContext{}, "venue", fields, arg)
	require.NoError(t, err)
	require.Equal(t, abstractsql.Desc, exprs[0].Direction)
}

func TestMap_DeniedFieldReturnsAuthorizationError(t *testing.T) {
	fields := map[string]orderby.Parameter{
		"capacity": {Kind: orderby.ScalarField, Column: capacityColumn(), ReadAccess: model.BooleanLiteral(false)},
	}
	arg := value.Object(map[string]value.Value{"capacity": value.String("ASC")})
	_, err := orderby.Map(nilContext{}, "venue", fields, arg)
	require.Error(t, err)
}

func TestMap_MissingContextDeniesOrdering(t *testing.T) {
	// A field whose read access compares against a context key the
	// request does not carry solves to False, which rejects ordering by it
	// (spec.md §4.3: "an Unsolvable residue or False => Authorization").
	residual := model.Relational(model.RelEq, model.ColumnRef(columnpath.NewLeaf(nameColumn())), model.CommonContext("AuthContext", "tenantName"))
	fields := map[string]orderby.Parameter{
		"name": {Kind: orderby.ScalarField, Column: nameColumn(), ReadAccess: residual},
	}
	arg := value.Object(map[string]value.Value{"name": value.String("ASC")})
	_, err := orderby.Map(nilContext{}, "venue", fields, arg)
	require.Error(t, err)
}

func TestMap_RelationRecursesAndPrependsPath(t *testing.T) {
	fields := map[string]orderby.Parameter{
		"venue": {
			Kind:           orderby.RelationField,
			ColumnPathLink: columnpath.RelationOnly(venueRelation()),
			ReadAccess:     model.BooleanLiteral(true),
			Fields: map[string]orderby.Parameter{
				"name": {Kind: orderby.ScalarField, Column: nameColumn(), ReadAccess: model.BooleanLiteral(true)},
			},
		},
	}
	arg := value.Object(map[string]value.Value{
		"venue": value.Object(map[string]value.Value{"name": value.String("DESC")}),
	})
	exprs, err := orderby.Map(nilContext{}, "concert", fields, arg)
	require.NoError(t, err)
	require.Len(t, exprs, 1)
	require.Equal(t, abstractsql.Desc, exprs[0].Direction)
	require.Equal(t, 2, exprs[0].Column.Len())
}

func TestMap_VectorDistance(t *testing.T) {
	embeddingColumn := columnpath.PhysicalColumn{Table: "venues", Name: "embedding", Type: value.TypeJSON}
	fields := map[string]orderby.Parameter{
		"similarTo": {Kind: orderby.VectorField, Column: embeddingColumn, ReadAccess: model.BooleanLiteral(true), DistanceFunc: "Cosine"},
	}
	arg := value.Object(map[string]value.Value{
		"similarTo": value.Object(map[string]value.Value{
			"distanceTo": value.List([]value.Value{value.F32(0.1), value.F32(0.2)}),
			"order":      value.String("ASC"),
		}),
	})
	exprs, err := orderby.Map(nilContext{}, "venue", fields, arg)
	require.NoError(t, err)
	require.Len(t, exprs, 1)
	require.True(t, exprs[0].IsVector)
	require.Equal(t, abstractsql.OpVectorDistance, exprs[0].Vector.Op)
	require.Equal(t, "Cosine", exprs[0].Vector.VectorFunc)
}
