package lower

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/gqlpg"
	"github.com/syssam/gqlpg/abstractsql"
	"github.com/syssam/gqlpg/columnpath"
	"github.com/syssam/gqlpg/value"
)

// Result is a lowered statement: parameterized SQL text plus its
// positional argument list, left-to-right matching the $N placeholders
// (spec.md §4.6's "parameter ordering").
type Result struct {
	SQL  string
	Args []any
}

// builder accumulates SQL text and bound arguments. It is the Lowerer's
// equivalent of the teacher's string-building Conn helpers in
// dialect/sql/driver.go, generalized from single-statement escaping to
// whole-tree emission.
type builder struct {
	sb   strings.Builder
	args []any
}

func (b *builder) writeString(s string) { b.sb.WriteString(s) }

func (b *builder) bindArg(a any) string {
	b.args = append(b.args, a)
	return "$" + strconv.Itoa(len(b.args))
}

func (b *builder) result() Result { return Result{SQL: b.sb.String(), Args: b.args} }

// quoteIdent wraps an identifier in double quotes, per PostgreSQL
// convention, doubling any embedded quote character.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// LowerSelect renders sel as a standalone SELECT statement projecting a
// single jsonb value (object or array, per sel.Cardinality).
func LowerSelect(sel *abstractsql.Select) (Result, error) {
	b := &builder{}
	if err := emitSelect(b, sel); err != nil {
		return Result{}, err
	}
	return b.result(), nil
}

func emitSelect(b *builder, sel *abstractsql.Select) error {
	alias := selectAlias(sel)
	var joins []string
	projExpr, err := emitSelection(b, alias, sel.Selection, &joins)
	if err != nil {
		return err
	}

	if sel.Cardinality == abstractsql.CardinalityMany {
		b.writeString("SELECT jsonb_agg(" + projExpr + ") FROM ")
	} else {
		b.writeString("SELECT " + projExpr + " FROM ")
	}
	b.writeString(quoteIdent(sel.Table) + " AS " + quoteIdent(alias))
	for _, j := range joins {
		b.writeString(" " + j)
	}

	pred := abstractsql.Simplify(sel.Predicate)
	if pred.Op != abstractsql.OpTrue {
		b.writeString(" WHERE ")
		if err := emitPredicate(b, pred); err != nil {
			return err
		}
	}

	if len(sel.OrderBy) > 0 {
		b.writeString(" ORDER BY ")
		for i, o := range sel.OrderBy {
			if i > 0 {
				b.writeString(", ")
			}
			if o.IsVector {
				if err := emitVectorExpr(b, o.Vector); err != nil {
					return err
				}
			} else if err := emitColumnRef(b, o.Column); err != nil {
				return err
			}
			if o.Direction == abstractsql.Desc {
				b.writeString(" DESC")
			} else {
				b.writeString(" ASC")
			}
		}
	}
	if sel.Limit != nil {
		b.writeString(" LIMIT " + b.bindArg(*sel.Limit))
	}
	if sel.Offset != nil {
		b.writeString(" OFFSET " + b.bindArg(*sel.Offset))
	}
	return nil
}

// selectAlias returns sel's own alias, defaulting to its table name.
func selectAlias(sel *abstractsql.Select) string {
	if sel.Alias != "" {
		return sel.Alias
	}
	return sel.Table
}

// emitSelection renders sel as a jsonb_build_object(...) expression
// qualified against alias, collecting any LEFT JOIN clauses a to-one
// nested relation requires into *joins.
func emitSelection(b *builder, alias string, sel abstractsql.Selection, joins *[]string) (string, error) {
	switch sel.Kind {
	case abstractsql.SelectionColumns:
		return emitColumnProjections(alias, sel.Columns), nil

	case abstractsql.SelectionNested:
		return emitNestedSelection(b, alias, sel.Nested, joins)

	case abstractsql.SelectionSequence:
		parts := make([]string, 0, len(sel.Sequence))
		for _, part := range sel.Sequence {
			expr, err := emitSelection(b, alias, part, joins)
			if err != nil {
				return "", err
			}
			parts = append(parts, stripJSONBBuildObject(expr))
		}
		return "jsonb_build_object(" + strings.Join(parts, ", ") + ")", nil

	default:
		return "", fmt.Errorf("lower: unknown selection kind %d", sel.Kind)
	}
}

func emitColumnProjections(alias string, cols []abstractsql.ColumnProjection) string {
	parts := make([]string, 0, len(cols)*2)
	for _, c := range cols {
		parts = append(parts, quoteLiteralKey(c.Alias), alias+"."+quoteIdent(c.Column.Name))
	}
	return "jsonb_build_object(" + strings.Join(parts, ", ") + ")"
}

func quoteLiteralKey(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// stripJSONBBuildObject drops the outer jsonb_build_object(...) wrapper
// so SelectionSequence can flatten its parts' key/value pairs into one
// call instead of nesting an object-within-an-object.
func stripJSONBBuildObject(expr string) string {
	const prefix = "jsonb_build_object("
	if strings.HasPrefix(expr, prefix) && strings.HasSuffix(expr, ")") {
		return expr[len(prefix) : len(expr)-1]
	}
	return expr
}

func emitNestedSelection(b *builder, parentAlias string, n *abstractsql.NestedSelection, joins *[]string) (string, error) {
	childAlias := n.Relation.LinkedTableName()
	if n.Relation.IsToOne() && n.Cardinality == abstractsql.CardinalityOne {
		// Many-to-one: realize with a LEFT JOIN, per spec.md §4.6.
		onClauses := make([]string, 0, len(n.Relation.ColumnPairs))
		for _, pair := range n.Relation.ColumnPairs {
			onClauses = append(onClauses, parentAlias+"."+quoteIdent(pair.Self.Name)+" = "+childAlias+"."+quoteIdent(pair.Foreign.Name))
		}
		*joins = append(*joins, "LEFT JOIN "+quoteIdent(n.Select.Table)+" AS "+quoteIdent(childAlias)+" ON "+strings.Join(onClauses, " AND "))

		var childJoins []string
		expr, err := emitSelection(b, childAlias, n.Select.Selection, &childJoins)
		if err != nil {
			return "", err
		}
		*joins = append(*joins, childJoins...)
		// A predicate on a joined to-one relation is folded into the
		// parent WHERE by the caller that builds n.Select.Predicate into
		// the outer tree; emitSelection here only projects.
		return wrapJoinedNull(expr, childAlias), nil
	}

	// One-to-many (or an explicitly Many-cardinality to-one lookup): a
	// correlated scalar subselect avoids row multiplication.
	sub := &builder{args: b.args}
	if err := emitSelect(sub, n.Select); err != nil {
		return "", err
	}
	b.args = sub.args
	return "(" + sub.sb.String() + ")", nil
}

// wrapJoinedNull wraps a joined to-one relation's projection with a NULL
// guard, per spec.md §4.6: an optional to-one relation whose join found
// no row must project JSON null rather than an object of all-null keys.
func wrapJoinedNull(expr, alias string) string {
	return "CASE WHEN " + quoteIdent(alias) + " IS NULL THEN NULL ELSE " + expr + " END"
}

func emitColumnRef(b *builder, p columnpath.Path) error {
	col, err := p.LeafColumn()
	if err != nil {
		return err
	}
	links := p.Links()
	alias := col.Table
	if len(links) > 1 {
		if rel, ok := links[len(links)-2].AsRelation(); ok {
			alias = rel.LinkedTableName()
		}
	}
	b.writeString(alias + "." + quoteIdent(col.Name))
	return nil
}

func emitVectorExpr(b *builder, pred abstractsql.Predicate) error {
	path, ok := pred.LHS.IsPhysical()
	if !ok {
		return fmt.Errorf("lower: vector distance predicate lhs is not a column")
	}
	vec, _ := pred.RHS.IsParam()
	arr, _ := vec.AsList()
	floats := make([]float64, len(arr))
	for i, e := range arr {
		n, _ := e.AsNumber()
		floats[i] = n.AsF64()
	}
	if err := emitColumnRef(b, path); err != nil {
		return err
	}
	b.writeString(" " + vectorOperator(pred.VectorFunc) + " " + b.bindArg(formatVector(floats)))
	return nil
}

func vectorOperator(fn string) string {
	switch fn {
	case "Cosine":
		return "<=>"
	case "InnerProduct":
		return "<#>"
	default:
		return "<->" // L2, and the default distance operator
	}
}

func formatVector(floats []float64) string {
	parts := make([]string, len(floats))
	for i, f := range floats {
		parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// emitPredicate renders p, recursing through And/Or/Not and binding
// comparison operands left-to-right.
func emitPredicate(b *builder, p abstractsql.Predicate) error {
	switch p.Op {
	case abstractsql.OpTrue:
		b.writeString("TRUE")
		return nil
	case abstractsql.OpFalse:
		b.writeString("FALSE")
		return nil
	case abstractsql.OpAnd:
		return emitLogical(b, p.Operands, " AND ")
	case abstractsql.OpOr:
		return emitLogical(b, p.Operands, " OR ")
	case abstractsql.OpNot:
		b.writeString("NOT (")
		if err := emitPredicate(b, p.Operands[0]); err != nil {
			return err
		}
		b.writeString(")")
		return nil
	case abstractsql.OpVectorDistance:
		return emitVectorExpr(b, p)
	}

	lhsType, rhsType := columnExprSQLTypes(p.LHS, p.RHS)
	if err := emitOperand(b, p.LHS, rhsType); err != nil {
		return err
	}
	b.writeString(" " + operatorText(p.Op) + " ")
	if p.Op == abstractsql.OpIn {
		b.writeString("(")
		if err := emitOperand(b, p.RHS, lhsType); err != nil {
			return err
		}
		b.writeString(")")
		return nil
	}
	return emitOperand(b, p.RHS, lhsType)
}

func emitLogical(b *builder, operands []abstractsql.Predicate, sep string) error {
	b.writeString("(")
	for i, o := range operands {
		if i > 0 {
			b.writeString(sep)
		}
		if err := emitPredicate(b, o); err != nil {
			return err
		}
	}
	b.writeString(")")
	return nil
}

func operatorText(op abstractsql.PredicateOp) string {
	switch op {
	case abstractsql.OpEq:
		return "="
	case abstractsql.OpNeq:
		return "<>"
	case abstractsql.OpLt:
		return "<"
	case abstractsql.OpLte:
		return "<="
	case abstractsql.OpGt:
		return ">"
	case abstractsql.OpGte:
		return ">="
	case abstractsql.OpIn:
		return "= ANY"
	case abstractsql.OpLike:
		return "LIKE"
	case abstractsql.OpStringContains:
		return "LIKE"
	case abstractsql.OpJSONContains:
		return "@>"
	default:
		return "="
	}
}

// columnExprSQLTypes returns the SQL type carried by whichever side of a
// binary predicate is a Physical column, so the other side's Param can
// be cast against it when bound.
func columnExprSQLTypes(lhs, rhs abstractsql.ColumnPathExpr) (value.SQLType, value.SQLType) {
	var lt, rt value.SQLType
	if p, ok := lhs.IsPhysical(); ok {
		if col, err := p.LeafColumn(); err == nil {
			lt = col.Type
		}
	}
	if p, ok := rhs.IsPhysical(); ok {
		if col, err := p.LeafColumn(); err == nil {
			rt = col.Type
		}
	}
	return lt, rt
}

func emitOperand(b *builder, e abstractsql.ColumnPathExpr, castType value.SQLType) error {
	if path, ok := e.IsPhysical(); ok {
		return emitColumnRef(b, path)
	}
	if e.IsNull() {
		b.writeString("NULL")
		return nil
	}
	if nested, ok := e.IsPredicate(); ok {
		b.writeString("(")
		if err := emitPredicate(b, nested); err != nil {
			return err
		}
		b.writeString(")")
		return nil
	}
	v, _ := e.IsParam()
	if v.IsNull() {
		b.writeString("NULL")
		return nil
	}
	if castType == "" {
		b.writeString(b.bindArg(v.GoString()))
		return nil
	}
	cast, err := value.Cast(v, castType)
	if err != nil {
		return gqlpg.NewValidationError("", err)
	}
	b.writeString(b.bindArg(cast))
	return nil
}

// LowerInsert renders ins as one INSERT statement (multi-row VALUES
// list), optionally wrapped as a CTE projecting ins.Select's jsonb shape
// via RETURNING, per spec.md §4.6's CTE composition rule. Nested
// (one-to-many) row elements are not part of this single statement —
// the Operation Resolver plans them as their own TransactionScript
// steps, templated against this step's RETURNING output.
func LowerInsert(ins *abstractsql.Insert) (Result, error) {
	b := &builder{}
	selfCols, err := flatSelfColumns(ins.Rows)
	if err != nil {
		return Result{}, err
	}

	cte := ins.Select != nil
	if cte {
		b.writeString("WITH inserted AS (")
	}
	b.writeString("INSERT INTO " + quoteIdent(ins.Table) + " (")
	for i, c := range selfCols {
		if i > 0 {
			b.writeString(", ")
		}
		b.writeString(quoteIdent(c.Name))
	}
	b.writeString(") VALUES ")
	for ri, row := range ins.Rows {
		if ri > 0 {
			b.writeString(", ")
		}
		b.writeString("(")
		values := rowSelfValues(row, selfCols)
		for ci, c := range selfCols {
			if ci > 0 {
				b.writeString(", ")
			}
			if values[ci].IsNull() {
				b.writeString("NULL")
				continue
			}
			cast, err := value.Cast(values[ci], c.Type)
			if err != nil {
				return Result{}, gqlpg.NewValidationError(c.Name, err)
			}
			b.writeString(b.bindArg(cast))
		}
		b.writeString(")")
	}

	if cte {
		b.writeString(" RETURNING *) ")
		var joins []string
		alias := "inserted"
		expr, err := emitSelection(b, alias, ins.Select.Selection, &joins)
		if err != nil {
			return Result{}, err
		}
		if ins.Select.Cardinality == abstractsql.CardinalityMany {
			b.writeString("SELECT jsonb_agg(" + expr + ") FROM inserted")
		} else {
			b.writeString("SELECT " + expr + " FROM inserted")
		}
		for _, j := range joins {
			b.writeString(" " + j)
		}
	}
	return b.result(), nil
}

// flatSelfColumns returns the set of direct (non-nested) columns
// assigned across ins.Rows, in first-seen order — every row must carry
// the same set so a single VALUES list lines up with one column list.
func flatSelfColumns(rows []abstractsql.InsertRow) ([]columnpath.PhysicalColumn, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("lower: insert has no rows")
	}
	var cols []columnpath.PhysicalColumn
	seen := map[string]bool{}
	for _, elem := range rows[0].Elems {
		if elem.IsNested {
			continue
		}
		if !seen[elem.Column.QualifiedName()] {
			seen[elem.Column.QualifiedName()] = true
			cols = append(cols, elem.Column)
		}
	}
	return cols, nil
}

func rowSelfValues(row abstractsql.InsertRow, cols []columnpath.PhysicalColumn) []value.Value {
	byName := map[string]value.Value{}
	for _, elem := range row.Elems {
		if !elem.IsNested {
			byName[elem.Column.QualifiedName()] = elem.Value
		}
	}
	out := make([]value.Value, len(cols))
	for i, c := range cols {
		out[i] = byName[c.QualifiedName()]
	}
	return out
}

// LowerUpdate renders upd as an UPDATE statement. Every precheck
// predicate is ANDed into the WHERE clause alongside upd.Predicate, so
// a zero row count does not say whether the business predicate or a
// precheck excluded the rows; package txrun hands that case to the
// step's OnZeroAffected hook, supplied by the caller that built the
// step (spec.md §4.7). LowerUpdate then optionally wraps the statement as a
// CTE the same way LowerInsert does for RETURNING projections.
func LowerUpdate(upd *abstractsql.Update) (Result, error) {
	if len(upd.Assignments) == 0 {
		return Result{}, fmt.Errorf("lower: update has no assignments")
	}
	b := &builder{}
	cte := upd.Select != nil
	if cte {
		b.writeString("WITH updated AS (")
	}
	b.writeString("UPDATE " + quoteIdent(upd.Table) + " SET ")
	for i, a := range upd.Assignments {
		if i > 0 {
			b.writeString(", ")
		}
		b.writeString(quoteIdent(a.Column.Name) + " = ")
		if a.Value.IsNull() {
			b.writeString("NULL")
			continue
		}
		cast, err := value.Cast(a.Value, a.Column.Type)
		if err != nil {
			return Result{}, gqlpg.NewValidationError(a.Column.Name, err)
		}
		b.writeString(b.bindArg(cast))
	}

	pred := abstractsql.Simplify(upd.Predicate)
	for _, pc := range upd.PrecheckPredicates {
		pred = abstractsql.And(pred, pc)
	}
	pred = abstractsql.Simplify(pred)
	if pred.Op != abstractsql.OpTrue {
		b.writeString(" WHERE ")
		if err := emitPredicate(b, pred); err != nil {
			return Result{}, err
		}
	}

	if cte {
		b.writeString(" RETURNING *) ")
		var joins []string
		expr, err := emitSelection(b, "updated", upd.Select.Selection, &joins)
		if err != nil {
			return Result{}, err
		}
		if upd.Select.Cardinality == abstractsql.CardinalityMany {
			b.writeString("SELECT jsonb_agg(" + expr + ") FROM updated")
		} else {
			b.writeString("SELECT " + expr + " FROM updated")
		}
		for _, j := range joins {
			b.writeString(" " + j)
		}
	}
	return b.result(), nil
}

// LowerDelete renders del as a DELETE statement, optionally wrapped as a
// CTE the same way LowerUpdate does.
func LowerDelete(del *abstractsql.Delete) (Result, error) {
	b := &builder{}
	cte := del.Select != nil
	if cte {
		b.writeString("WITH deleted AS (")
	}
	b.writeString("DELETE FROM " + quoteIdent(del.Table))
	pred := abstractsql.Simplify(del.Predicate)
	if pred.Op != abstractsql.OpTrue {
		b.writeString(" WHERE ")
		if err := emitPredicate(b, pred); err != nil {
			return Result{}, err
		}
	}
	if cte {
		b.writeString(" RETURNING *) ")
		var joins []string
		expr, err := emitSelection(b, "deleted", del.Select.Selection, &joins)
		if err != nil {
			return Result{}, err
		}
		if del.Select.Cardinality == abstractsql.CardinalityMany {
			b.writeString("SELECT jsonb_agg(" + expr + ") FROM deleted")
		} else {
			b.writeString("SELECT " + expr + " FROM deleted")
		}
		for _, j := range joins {
			b.writeString(" " + j)
		}
	}
	return b.result(), nil
}
