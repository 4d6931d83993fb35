package resolve

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/virtsql/ast"
	"github.com/vegasq/virtsql/eval"
	"github.com/vegasq/virtsql/query"
	"github.com/vegasq/virtsql/stream"
)

// testCatalog serves fixed headers.
type testCatalog map[string]stream.Header

func (c testCatalog) Has(name string) bool {
	_, ok := c[name]
	return ok
}

func (c testCatalog) Get(name string) (stream.Header, stream.RowStream, error) {
	h, ok := c[name]
	if !ok {
		return nil, nil, fmt.Errorf("no table %s", name)
	}
	return h, stream.FromRows(nil), nil
}

var catalog = testCatalog{
	"t":      {"a", "b", "x"},
	"u":      {"y", "z"},
	"people": {"id", "name", "x"},
	"scores": {"id", "score"},
}

func resolveSQL(t *testing.T, sql string) (*ast.Statement, error) {
	t.Helper()
	stmt, err := query.Parse(sql)
	require.NoError(t, err)
	return stmt, Resolve(stmt, catalog, eval.NewRegistry())
}

func mustResolve(t *testing.T, sql string) *ast.Statement {
	t.Helper()
	stmt, err := resolveSQL(t, sql)
	require.NoError(t, err)
	return stmt
}

func names(vars []*ast.Variable) []string {
	out := make([]string, len(vars))
	for i, v := range vars {
		out[i] = v.Name
	}
	return out
}

func TestBindingOrder(t *testing.T) {
	stmt := mustResolve(t, "SELECT a + 1 AS b, b FROM t")
	require.Len(t, stmt.Columns, 2)

	ref := stmt.Columns[1].Value.(*ast.ColumnRef)
	assert.NotNil(t, ref.Table, "a table column wins over a projection alias")
	assert.True(t, stmt.Columns[1].Bare)
	assert.Equal(t, []string{"b", "b"}, stmt.Names())
}

func TestAliasClaimedByWhere(t *testing.T) {
	stmt := mustResolve(t, "SELECT a * 2 AS d, x FROM t WHERE d > 2")

	assert.Equal(t, []string{"d"}, names(stmt.WhereDeps))
	assert.Empty(t, stmt.SelectDeps, "d is computed once, before the filter")
}

func TestAliasChainClaimedInDependencyOrder(t *testing.T) {
	stmt := mustResolve(t, "SELECT e + 1 AS f, a * 2 AS e FROM t ORDER BY f")

	assert.Equal(t, []string{"e", "f"}, names(stmt.OrderDeps))
	assert.Equal(t, []string{"f"}, stmt.OrderKeys)
	assert.Empty(t, stmt.SelectDeps)
}

func TestColumnCollisionsAreQualified(t *testing.T) {
	stmt := mustResolve(t, `SELECT people.id, scores.id, name FROM people JOIN scores ON people.id = scores.id`)

	assert.Equal(t, []string{"people_id", "scores_id", "name"}, stmt.Names())
	j := stmt.Source.(*ast.JoinNode)
	assert.Equal(t, []string{"people_id"}, j.LeftKeys)
	assert.Equal(t, []string{"scores_id"}, j.RightKeys)
}

func TestJoinKeysFollowSides(t *testing.T) {
	stmt := mustResolve(t, `SELECT name FROM people JOIN scores ON scores.score = people.x`)

	j := stmt.Source.(*ast.JoinNode)
	assert.Equal(t, []string{"x"}, j.LeftKeys)
	assert.Equal(t, []string{"score"}, j.RightKeys)
}

func TestDerivedJoinKey(t *testing.T) {
	stmt := mustResolve(t, `SELECT x + 1 AS k, score FROM people JOIN scores ON k = scores.id`)

	j := stmt.Source.(*ast.JoinNode)
	assert.Equal(t, []string{"k"}, names(j.LeftDeps))
	assert.Equal(t, []string{"k"}, j.LeftKeys)
	assert.Empty(t, stmt.SelectDeps, "k is already computed by the join")
}

func TestExpressionJoinKeyBecomesHiddenVariable(t *testing.T) {
	stmt := mustResolve(t, `SELECT name FROM people JOIN scores ON people.x * 10 = scores.score`)

	j := stmt.Source.(*ast.JoinNode)
	require.Len(t, j.LeftDeps, 1)
	assert.True(t, j.LeftDeps[0].Hidden)
	assert.Equal(t, j.LeftDeps[0].Name, j.LeftKeys[0])
}

func TestUsing(t *testing.T) {
	stmt := mustResolve(t, `SELECT name, score FROM people JOIN scores USING (id)`)

	j := stmt.Source.(*ast.JoinNode)
	assert.Equal(t, []string{"people_id"}, j.LeftKeys)
	assert.Equal(t, []string{"scores_id"}, j.RightKeys)
}

func TestAggregates(t *testing.T) {
	t.Run("grouped", func(t *testing.T) {
		stmt := mustResolve(t, "SELECT a, COUNT(*) AS n FROM t GROUP BY a")
		assert.Equal(t, []string{"a"}, stmt.GroupKeys)
		assert.Equal(t, []string{"n"}, names(stmt.Aggregates))
	})

	t.Run("nested aggregate is hoisted", func(t *testing.T) {
		stmt := mustResolve(t, "SELECT SUM(a) * 2 AS s FROM t")
		require.Len(t, stmt.Aggregates, 1)
		assert.True(t, stmt.Aggregates[0].Hidden)
		assert.Equal(t, []string{"s"}, names(stmt.SelectDeps))
	})

	t.Run("derived aggregate argument", func(t *testing.T) {
		stmt := mustResolve(t, "SELECT a * 2 AS d, SUM(d) AS s FROM t GROUP BY d")
		assert.Equal(t, []string{"d"}, names(stmt.GroupDeps))
		assert.Equal(t, []string{"d"}, stmt.GroupKeys)
	})

	t.Run("expression over keys", func(t *testing.T) {
		mustResolve(t, "SELECT a + 1 AS next, MAX(b) FROM t GROUP BY a")
	})
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		kind error
	}{
		{"unknown table", "SELECT a FROM nowhere", ErrUnknownTable},
		{"mix without group by", "SELECT a, COUNT(*) FROM t", ErrAggregateMix},
		{"column outside group by", "SELECT b, COUNT(*) FROM t GROUP BY a", ErrAggregateMix},
		{"aggregate in where", "SELECT a FROM t WHERE COUNT(*) > 1", ErrAggregateMix},
		{"alias of aggregate in where", "SELECT COUNT(*) AS n FROM t WHERE n > 1", ErrAggregateMix},
		{"nested aggregate", "SELECT SUM(COUNT(*)) FROM t", ErrAggregateMix},
		{"inequality join", "SELECT name FROM people JOIN scores ON people.x < scores.score", ErrJoinCondition},
		{"one-sided join", "SELECT name FROM people JOIN scores ON people.x = people.id", ErrJoinCondition},
		{"order by non-key", "SELECT a, COUNT(*) FROM t GROUP BY a ORDER BY b", ErrUnknownTarget},
		{"circular aliases", "SELECT q + 1 AS p, p + 1 AS q FROM t ORDER BY p", ErrCircular},
		{"self join without alias", "SELECT a FROM t JOIN t ON t.a = t.a", ErrDuplicateTable},
		{"subquery with two columns", "SELECT a FROM t WHERE a IN (SELECT y, z FROM u)", ErrSubquery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolveSQL(t, tt.sql)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestUnresolvedNamesAreReportedTogether(t *testing.T) {
	_, err := resolveSQL(t, "SELECT nope, a FROM t WHERE missing = 1 ORDER BY gone")
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.ErrorIs(t, err, ErrUnresolved)
	assert.Equal(t, []string{"nope", "missing", "gone"}, ce.Names)
	assert.Contains(t, err.Error(), "gone")
}

func TestOuterReference(t *testing.T) {
	stmt := mustResolve(t, "SELECT a FROM t WHERE a IN (SELECT y FROM u WHERE z = t.x)")

	sub := stmt.Where.(*ast.In).Query.Stmt
	require.Len(t, sub.Outer, 1)
	assert.Equal(t, "x", sub.Outer[0].Outer.Field())
	assert.Contains(t, stmt.Source.(*ast.TableRef).Fields, ast.FieldMap{Field: "x", Column: "x"},
		"the outer scan keeps the correlated column")
}

func TestGlobalSymbols(t *testing.T) {
	reg := eval.NewRegistry()
	reg.Define("answer", 42)
	stmt, err := query.Parse("SELECT a + answer AS s FROM t")
	require.NoError(t, err)
	require.NoError(t, Resolve(stmt, catalog, reg))

	var found *ast.ColumnRef
	ast.Walk(stmt.Columns[0].Value, func(e ast.Expr) bool {
		if ref, ok := e.(*ast.ColumnRef); ok && ref.Name == "answer" {
			found = ref
		}
		return true
	})
	require.NotNil(t, found)
	assert.Equal(t, &eval.Constant{Name: "answer", Value: 42}, found.Symbol)
}

func TestViewsAndWildcard(t *testing.T) {
	stmt := mustResolve(t, "WITH v (p, q) AS (SELECT a, b FROM t) SELECT * FROM v")

	tbl := stmt.Source.(*ast.TableRef)
	require.NotNil(t, tbl.View)
	assert.Equal(t, []string{"p", "q"}, tbl.Header)
	assert.Equal(t, []string{"p", "q"}, stmt.Names())
}

func TestRowNumber(t *testing.T) {
	stmt := mustResolve(t, "SELECT a, rownumber FROM t")

	tbl := stmt.Source.(*ast.TableRef)
	assert.True(t, tbl.RowNumber)
	assert.Equal(t, []ast.FieldMap{{Field: "a", Column: "a"}, {Field: "rownumber", Column: "rownumber"}}, tbl.Fields)
}
