package lower_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/gqlpg/abstractsql"
	"github.com/syssam/gqlpg/columnpath"
	"github.com/syssam/gqlpg/lower"
	"github.com/syssam/gqlpg/value"
)

func idColumn(table string) columnpath.PhysicalColumn {
	return columnpath.PhysicalColumn{Table: table, Name: "id", Type: value.TypeInt8, PrimaryKey: true}
}

func TestLowerSelect_FlatColumns(t *testing.T) {
	sel := &abstractsql.Select{
		Table: "venues",
		Selection: abstractsql.Columns(
			abstractsql.ColumnProjection{Alias: "id", Column: idColumn("venues")},
			abstractsql.ColumnProjection{Alias: "name", Column: columnpath.PhysicalColumn{Table: "venues", Name: "name", Type: value.TypeText}},
		),
		Predicate:   abstractsql.Eq(abstractsql.Physical(columnpath.NewLeaf(idColumn("venues"))), abstractsql.Param(value.I64(7))),
		Cardinality: abstractsql.CardinalityOne,
	}
	res, err := lower.LowerSelect(sel)
	require.NoError(t, err)
	require.Contains(t, res.SQL, "SELECT jsonb_build_object(")
	require.Contains(t, res.SQL, `FROM "venues" AS "venues"`)
	require.Contains(t, res.SQL, "WHERE")
	require.Equal(t, []any{int64(7)}, res.Args)
}

func TestLowerSelect_ManyCardinalityAggregates(t *testing.T) {
	sel := &abstractsql.Select{
		Table:       "venues",
		Selection:   abstractsql.Columns(abstractsql.ColumnProjection{Alias: "id", Column: idColumn("venues")}),
		Cardinality: abstractsql.CardinalityMany,
	}
	res, err := lower.LowerSelect(sel)
	require.NoError(t, err)
	require.Contains(t, res.SQL, "SELECT jsonb_agg(")
	require.NotContains(t, res.SQL, "WHERE")
}

func TestLowerSelect_ManyToOneJoin(t *testing.T) {
	rel := columnpath.RelationLink{
		SelfTable:   "concerts",
		LinkedTable: "venues",
		ColumnPairs: []columnpath.ColumnPair{{
			Self:    columnpath.PhysicalColumn{Table: "concerts", Name: "venue_id"},
			Foreign: idColumn("venues"),
		}},
	}
	sel := &abstractsql.Select{
		Table: "concerts",
		Selection: abstractsql.Nested(abstractsql.NestedSelection{
			Relation:    rel,
			Cardinality: abstractsql.CardinalityOne,
			Select: &abstractsql.Select{
				Table:       "venues",
				Selection:   abstractsql.Columns(abstractsql.ColumnProjection{Alias: "name", Column: columnpath.PhysicalColumn{Table: "venues", Name: "name", Type: value.TypeText}}),
				Cardinality: abstractsql.CardinalityOne,
			},
		}),
		Cardinality: abstractsql.CardinalityOne,
	}
	res, err := lower.LowerSelect(sel)
	require.NoError(t, err)
	require.Contains(t, res.SQL, "LEFT JOIN")
	require.Contains(t, res.SQL, "CASE WHEN")
}

func TestLowerSelect_OneToManySubselect(t *testing.T) {
	rel := columnpath.RelationLink{
		SelfTable:   "venues",
		LinkedTable: "concerts",
		ColumnPairs: []columnpath.ColumnPair{{
			Self:    idColumn("venues"),
			Foreign: columnpath.PhysicalColumn{Table: "concerts", Name: "venue_id"},
		}},
	}
	sel := &abstractsql.Select{
		Table: "venues",
		Selection: abstractsql.Nested(abstractsql.NestedSelection{
			Relation:    rel,
			Cardinality: abstractsql.CardinalityMany,
			Select: &abstractsql.Select{
				Table:       "concerts",
				Selection:   abstractsql.Columns(abstractsql.ColumnProjection{Alias: "id", Column: idColumn("concerts")}),
				Cardinality: abstractsql.CardinalityMany,
			},
		}),
		Cardinality: abstractsql.CardinalityOne,
	}
	res, err := lower.LowerSelect(sel)
	require.NoError(t, err)
	require.Contains(t, res.SQL, "(SELECT jsonb_agg(")
	require.NotContains(t, res.SQL, "LEFT JOIN")
}

func TestLowerInsert_WithReturningCTE(t *testing.T) {
	ins := &abstractsql.Insert{
		Table: "venues",
		Rows: []abstractsql.InsertRow{
			{Elems: []abstractsql.InsertRowElem{
				abstractsql.SelfInsert(columnpath.PhysicalColumn{Table: "venues", Name: "name", Type: value.TypeText}, value.String("Fillmore")),
			}},
		},
		Select: &abstractsql.Select{
			Table:       "venues",
			Selection:   abstractsql.Columns(abstractsql.ColumnProjection{Alias: "id", Column: idColumn("venues")}),
			Cardinality: abstractsql.CardinalityOne,
		},
	}
	res, err := lower.LowerInsert(ins)
	require.NoError(t, err)
	require.Contains(t, res.SQL, "WITH inserted AS (INSERT INTO")
	require.Contains(t, res.SQL, "RETURNING *")
	require.Equal(t, []any{"Fillmore"}, res.Args)
}

func TestLowerUpdate_PrecheckFoldedIntoWhere(t *testing.T) {
	upd := &abstractsql.Update{
		Table: "venues",
		Assignments: []abstractsql.Assignment{
			{Column: columnpath.PhysicalColumn{Table: "venues", Name: "capacity", Type: value.TypeInt4}, Value: value.I32(500)},
		},
		Predicate:          abstractsql.Eq(abstractsql.Physical(columnpath.NewLeaf(idColumn("venues"))), abstractsql.Param(value.I64(1))),
		PrecheckPredicates: []abstractsql.Predicate{abstractsql.Lte(abstractsql.Physical(columnpath.NewLeaf(columnpath.PhysicalColumn{Table: "venues", Name: "capacity", Type: value.TypeInt4})), abstractsql.Param(value.I32(10000)))},
	}
	res, err := lower.LowerUpdate(upd)
	require.NoError(t, err)
	require.Contains(t, res.SQL, "UPDATE")
	require.Contains(t, res.SQL, "AND")
	require.Len(t, res.Args, 3)
}

func TestLowerDelete_Basic(t *testing.T) {
	del := &abstractsql.Delete{
		Table:     "venues",
		Predicate: abstractsql.Eq(abstractsql.Physical(columnpath.NewLeaf(idColumn("venues"))), abstractsql.Param(value.I64(3))),
	}
	res, err := lower.LowerDelete(del)
	require.NoError(t, err)
	require.Contains(t, res.SQL, "DELETE FROM")
	require.Equal(t, []any{int64(3)}, res.Args)
}
