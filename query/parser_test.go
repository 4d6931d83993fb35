package query

import (
	"errors"
	"strings"
	"testing"

	"github.com/vegasq/virtsql/ast"
)

func TestParser_SimpleQuery(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantTable string
		wantAlias string
		wantErr   bool
	}{
		{
			name:      "basic select",
			query:     "select * from data",
			wantTable: "data",
		},
		{
			name:      "qualified name",
			query:     "select * from db.users u",
			wantTable: "db.users",
			wantAlias: "u",
		},
		{
			name:      "quoted path with scheme",
			query:     `select * from 'csv:testdata/simple.csv' AS s`,
			wantTable: "csv:testdata/simple.csv",
			wantAlias: "s",
		},
		{
			name:      "quoted identifier",
			query:     `select * from "my file"`,
			wantTable: "my file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Parse(tt.query)
			if (err != nil) != tt.wantErr {
				t.Errorf("Parse() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			table, ok := q.Source.(*ast.TableRef)
			if !ok {
				t.Fatalf("Parse() source = %T, want *ast.TableRef", q.Source)
			}
			if table.Name != tt.wantTable {
				t.Errorf("Parse() table = %v, want %v", table.Name, tt.wantTable)
			}
			if table.Alias != tt.wantAlias {
				t.Errorf("Parse() alias = %v, want %v", table.Alias, tt.wantAlias)
			}
			if !q.Wildcard {
				t.Errorf("Parse() wildcard not set")
			}
		})
	}
}

func TestParser_SelectList(t *testing.T) {
	q, err := Parse("SELECT DISTINCT a, b + 1 AS next, c total FROM t")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !q.Distinct {
		t.Errorf("expected DISTINCT")
	}
	if len(q.Columns) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(q.Columns))
	}
	aliases := []string{"", "next", "total"}
	for i, want := range aliases {
		if q.Columns[i].Alias != want {
			t.Errorf("column %d: alias = %q, want %q", i, q.Columns[i].Alias, want)
		}
	}
	if _, ok := q.Columns[1].Value.(*ast.Arith); !ok {
		t.Errorf("column 1: expected arithmetic, got %T", q.Columns[1].Value)
	}
}

func TestParser_NoFrom(t *testing.T) {
	q, err := Parse("SELECT 1 + 2 AS three")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if q.Source != nil {
		t.Errorf("expected no source, got %T", q.Source)
	}
	if _, err := Parse("SELECT *"); err == nil {
		t.Errorf("expected error for * without FROM")
	}
}

func TestParser_Joins(t *testing.T) {
	tests := []struct {
		name  string
		query string
		kinds []ast.JoinKind
		using []string
	}{
		{"inner", "SELECT a FROM x JOIN y ON x.id = y.id", []ast.JoinKind{ast.JoinInner}, nil},
		{"explicit inner", "SELECT a FROM x INNER JOIN y ON x.id = y.id", []ast.JoinKind{ast.JoinInner}, nil},
		{"left outer", "SELECT a FROM x LEFT OUTER JOIN y ON x.id = y.id", []ast.JoinKind{ast.JoinLeft}, nil},
		{"right", "SELECT a FROM x RIGHT JOIN y ON x.id = y.id", []ast.JoinKind{ast.JoinRight}, nil},
		{"full", "SELECT a FROM x FULL JOIN y USING (id, day)", []ast.JoinKind{ast.JoinFull}, []string{"id", "day"}},
		{"comma", "SELECT a FROM x, y", []ast.JoinKind{ast.JoinCross}, nil},
		{"chain", "SELECT a FROM x CROSS JOIN y LEFT JOIN z ON y.k = z.k", []ast.JoinKind{ast.JoinLeft, ast.JoinCross}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Parse(tt.query)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			src := q.Source
			for i, kind := range tt.kinds {
				join, ok := src.(*ast.JoinNode)
				if !ok {
					t.Fatalf("join %d: got %T", i, src)
				}
				if join.Kind != kind {
					t.Errorf("join %d: kind = %v, want %v", i, join.Kind, kind)
				}
				if i == 0 && strings.Join(join.Using, ",") != strings.Join(tt.using, ",") {
					t.Errorf("join %d: using = %v, want %v", i, join.Using, tt.using)
				}
				src = join.Left
			}
			if _, ok := src.(*ast.TableRef); !ok {
				t.Errorf("leftmost source = %T, want *ast.TableRef", src)
			}
		})
	}
}

func TestParser_ThreeTableJoin(t *testing.T) {
	q, err := Parse("SELECT a FROM x JOIN y ON x.id = y.id JOIN z s ON y.k = s.k")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	outer, ok := q.Source.(*ast.JoinNode)
	if !ok {
		t.Fatalf("source = %T, want *ast.JoinNode", q.Source)
	}
	if _, ok := outer.Left.(*ast.JoinNode); !ok {
		t.Errorf("joins should nest to the left, got left %T", outer.Left)
	}
	if outer.On == nil || outer.Left.(*ast.JoinNode).On == nil {
		t.Error("both joins should carry their ON condition")
	}

	var labels []string
	for _, tbl := range q.Source.Tables() {
		labels = append(labels, tbl.Label())
	}
	if got := strings.Join(labels, ","); got != "x,y,s" {
		t.Errorf("tables = %s, want x,y,s", got)
	}
}

func TestParser_Clauses(t *testing.T) {
	q, err := Parse("SELECT a, COUNT(*) AS n FROM t WHERE b > 1 GROUP BY a ORDER BY a, n DESC")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if _, ok := q.Where.(*ast.Compare); !ok {
		t.Errorf("WHERE: got %T, want *ast.Compare", q.Where)
	}
	if len(q.GroupBy) != 1 || q.GroupBy[0].Name != "a" {
		t.Errorf("GROUP BY = %v", q.GroupBy)
	}
	if len(q.OrderBy) != 2 || !q.Desc {
		t.Errorf("ORDER BY = %v desc=%v", q.OrderBy, q.Desc)
	}
	agg, ok := q.Columns[1].Value.(*ast.Aggregate)
	if !ok || agg.Func != ast.AggCount || len(agg.Args) != 0 {
		t.Errorf("COUNT(*) parsed as %#v", q.Columns[1].Value)
	}
}

func TestParser_With(t *testing.T) {
	q, err := Parse("WITH v (p, q) AS (SELECT a, b FROM t), w AS (SELECT p FROM v) SELECT * FROM w")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	v, ok := q.Views["v"]
	if !ok {
		t.Fatalf("view v missing")
	}
	if strings.Join(v.ViewColumns, ",") != "p,q" {
		t.Errorf("view columns = %v", v.ViewColumns)
	}
	if v.Parent != q {
		t.Errorf("view parent not set")
	}
	if _, ok := q.Views["w"]; !ok {
		t.Errorf("view w missing")
	}
}

func TestParser_FromSubquery(t *testing.T) {
	q, err := Parse("SELECT s.a FROM (SELECT a FROM t) s")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	table := q.Source.(*ast.TableRef)
	if table.Name != "s" {
		t.Errorf("table = %q, want s", table.Name)
	}
	if q.Views["s"] == nil {
		t.Errorf("subquery not registered as view")
	}
}

func TestParser_Predicates(t *testing.T) {
	tests := []struct {
		name  string
		where string
		check func(t *testing.T, e ast.Expr)
	}{
		{"like escape", `s LIKE 'a\%c' ESCAPE '\'`, func(t *testing.T, e ast.Expr) {
			like := e.(*ast.Like)
			if like.Pattern != `a\%c` || like.Escape != `\` || like.Regex {
				t.Errorf("like = %#v", like)
			}
		}},
		{"not similar", "s NOT SIMILAR TO 'a+'", func(t *testing.T, e ast.Expr) {
			like := e.(*ast.Like)
			if !like.Regex || !like.Negated {
				t.Errorf("like = %#v", like)
			}
		}},
		{"between symmetric", "x BETWEEN SYMMETRIC 3 AND 1", func(t *testing.T, e ast.Expr) {
			b := e.(*ast.Between)
			if !b.Symmetric || b.Negated {
				t.Errorf("between = %#v", b)
			}
		}},
		{"not between", "x NOT BETWEEN 1 AND 3", func(t *testing.T, e ast.Expr) {
			if !e.(*ast.Between).Negated {
				t.Errorf("expected negated")
			}
		}},
		{"in list", "x IN (1, 2, 3)", func(t *testing.T, e ast.Expr) {
			if len(e.(*ast.In).List) != 3 {
				t.Errorf("in = %#v", e)
			}
		}},
		{"in subquery", "x NOT IN (SELECT y FROM u)", func(t *testing.T, e ast.Expr) {
			in := e.(*ast.In)
			if in.Query == nil || !in.Negated {
				t.Errorf("in = %#v", in)
			}
		}},
		{"containing", "s CONTAINING 'b'", func(t *testing.T, e ast.Expr) {
			_ = e.(*ast.Containing)
		}},
		{"starting with", "s NOT STARTING WITH 'a'", func(t *testing.T, e ast.Expr) {
			if !e.(*ast.Starting).Negated {
				t.Errorf("expected negated")
			}
		}},
		{"is not null", "x IS NOT NULL", func(t *testing.T, e ast.Expr) {
			is := e.(*ast.IsTruth)
			if is.Value != nil || !is.Negated {
				t.Errorf("is = %#v", is)
			}
		}},
		{"is false", "x IS FALSE", func(t *testing.T, e ast.Expr) {
			is := e.(*ast.IsTruth)
			if is.Value == nil || *is.Value {
				t.Errorf("is = %#v", is)
			}
		}},
		{"distinct from", "x IS NOT DISTINCT FROM y", func(t *testing.T, e ast.Expr) {
			if !e.(*ast.DistinctFrom).Negated {
				t.Errorf("expected negated")
			}
		}},
		{"and or precedence", "a = 1 OR b = 2 AND c = 3", func(t *testing.T, e ast.Expr) {
			or := e.(*ast.Or)
			if _, ok := or.Args[1].(*ast.And); !ok {
				t.Errorf("expected AND under OR, got %T", or.Args[1])
			}
		}},
		{"not", "NOT a = 1", func(t *testing.T, e ast.Expr) {
			_ = e.(*ast.Not).X.(*ast.Compare)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Parse("SELECT s FROM t WHERE " + tt.where)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			tt.check(t, q.Where)
		})
	}
}

func TestParser_Arithmetic(t *testing.T) {
	q, err := Parse("SELECT 1 + 2 * 3, -x, -2.5, a || b FROM t")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	sum := q.Columns[0].Value.(*ast.Arith)
	if sum.Op != "+" {
		t.Errorf("top operator = %q, want +", sum.Op)
	}
	if product, ok := sum.R.(*ast.Arith); !ok || product.Op != "*" {
		t.Errorf("right operand = %#v, want product", sum.R)
	}
	if neg := q.Columns[1].Value.(*ast.Arith); neg.Op != "-" {
		t.Errorf("negation = %#v", neg)
	}
	if lit := q.Columns[2].Value.(*ast.Literal); lit.Value != -2.5 {
		t.Errorf("literal = %v, want -2.5", lit.Value)
	}
	if cat := q.Columns[3].Value.(*ast.Arith); cat.Op != "||" {
		t.Errorf("concat = %#v", cat)
	}
}

func TestParser_Case(t *testing.T) {
	q, err := Parse(`SELECT
		CASE x WHEN 1 THEN 'one' WHEN > 5 THEN 'many' ELSE 'some' END,
		CASE WHEN x IS NULL THEN 0 END
		FROM t`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	simple := q.Columns[0].Value.(*ast.SimpleCase)
	if len(simple.Whens) != 2 || simple.Else == nil {
		t.Fatalf("simple case = %#v", simple)
	}
	if simple.Whens[0].Test {
		t.Errorf("WHEN 1 marked as test")
	}
	if !simple.Whens[1].Test {
		t.Errorf("WHEN > 5 not marked as test")
	}
	if cmp := simple.Whens[1].Cond.(*ast.Compare); cmp.L != simple.Switch {
		t.Errorf("partial comparison does not test the switch value")
	}
	if searched := q.Columns[1].Value.(*ast.SearchedCase); searched.Else != nil {
		t.Errorf("searched case has unexpected ELSE")
	}
}

func TestParser_Functions(t *testing.T) {
	tests := []struct {
		name  string
		expr  string
		fname string
		nargs int
	}{
		{"generic", "coalesce(a, b, 0)", "COALESCE", 3},
		{"cast", "CAST(a AS VARCHAR(10))", "CAST", 2},
		{"cast multiword", "CAST(a AS DOUBLE PRECISION)", "CAST", 2},
		{"substring keywords", "SUBSTRING(s FROM 2 FOR 3)", "SUBSTRING", 3},
		{"substring commas", "SUBSTRING(s, 2)", "SUBSTRING", 2},
		{"trim plain", "TRIM(s)", "TRIM", 2},
		{"trim chars", "TRIM(LEADING 'x' FROM s)", "TRIM", 3},
		{"overlay", "OVERLAY(s PLACING 'ab' FROM 2 FOR 1)", "OVERLAY", 4},
		{"no arguments", "now()", "NOW", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Parse("SELECT " + tt.expr + " FROM t")
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			fn, ok := q.Columns[0].Value.(*ast.Function)
			if !ok {
				t.Fatalf("got %T, want *ast.Function", q.Columns[0].Value)
			}
			if fn.Name != tt.fname || len(fn.Args) != tt.nargs {
				t.Errorf("got %s with %d args, want %s with %d", fn.Name, len(fn.Args), tt.fname, tt.nargs)
			}
		})
	}
}

func TestParser_Aggregates(t *testing.T) {
	q, err := Parse("SELECT COUNT(DISTINCT a), SUM(b) FILTER (WHERE b > 0), LIST(a, b), ROW_NUMBER() FROM t")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if count := q.Columns[0].Value.(*ast.Aggregate); !count.Distinct {
		t.Errorf("COUNT DISTINCT not marked distinct")
	}
	if sum := q.Columns[1].Value.(*ast.Aggregate); sum.Filter == nil {
		t.Errorf("FILTER clause missing")
	}
	if list := q.Columns[2].Value.(*ast.Aggregate); len(list.Args) != 2 {
		t.Errorf("LIST args = %d, want 2", len(list.Args))
	}
	if ref := q.Columns[3].Value.(*ast.ColumnRef); ref.Name != ast.RowNumberColumn {
		t.Errorf("ROW_NUMBER() = %q", ref.Name)
	}
}

func TestParser_Params(t *testing.T) {
	q, err := Parse("SELECT a FROM t WHERE a > :min AND a IN (SELECT y FROM u WHERE y < :max) AND b = :min")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(q.Params) != 2 {
		t.Errorf("params = %v, want min and max on the root statement", q.Params)
	}
	for _, name := range []string{"min", "max"} {
		if _, ok := q.Params[name]; !ok {
			t.Errorf("param %s missing", name)
		}
	}
}

func TestParser_Subquery(t *testing.T) {
	q, err := Parse("SELECT name, (SELECT score FROM s WHERE s.id = p.id) AS v FROM p")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	sub := q.Columns[1].Value.(*ast.Subquery)
	if sub.Stmt.Parent != q {
		t.Errorf("subquery parent not set")
	}
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"missing SELECT", "from t where age > 30"},
		{"trailing tokens", "select a from t t2 t3"},
		{"join without condition", "select a from x join y"},
		{"mixed sort directions", "select a from t order by a asc, b desc"},
		{"unterminated string", "select 'abc from t"},
		{"invalid character", "select a ! b from t"},
		{"unclosed paren", "select (a + 1 from t"},
		{"case without when", "select case end from t"},
		{"count star distinct", "select count(distinct *) from t"},
		{"multi-char escape", "select a from t where a like 'x' escape 'ab'"},
		{"empty query", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.query); err == nil {
				t.Errorf("Parse(%q) expected error, got nil", tt.query)
			}
		})
	}
}

func TestParser_Limits(t *testing.T) {
	deep := "SELECT " + strings.Repeat("(", MaxExpressionDepth+1) + "1" + strings.Repeat(")", MaxExpressionDepth+1)
	_, err := Parse(deep)
	if !errors.Is(err, ErrExpressionTooDeep) {
		t.Errorf("expected ErrExpressionTooDeep, got %v", err)
	}

	long := "SELECT a FROM t WHERE a = '" + strings.Repeat("x", MaxQueryLength) + "'"
	_, err = Parse(long)
	if !errors.Is(err, ErrQueryTooLong) {
		t.Errorf("expected ErrQueryTooLong, got %v", err)
	}

	_, err = Parse(`SELECT a FROM ""`)
	if !errors.Is(err, ErrEmptyTableName) {
		t.Errorf("expected ErrEmptyTableName, got %v", err)
	}

	_, err = Parse("SELECT a AS " + strings.Repeat("c", MaxColumnNameLength+1) + " FROM t")
	if !errors.Is(err, ErrColumnNameTooLong) {
		t.Errorf("expected ErrColumnNameTooLong, got %v", err)
	}
}
