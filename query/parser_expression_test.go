package query

import (
	"testing"

	"github.com/vegasq/virtsql/ast"
)

func TestParser_WhereClause(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr bool
	}{
		{
			name:  "simple comparison",
			query: "select * from data.parquet where age > 30",
		},
		{
			name:  "string comparison",
			query: "select * from data.parquet where name = 'alice'",
		},
		{
			name:  "boolean comparison",
			query: "select * from data.parquet where active = true",
		},
		{
			name:  "AND condition",
			query: "select * from data.parquet where age > 30 AND active = true",
		},
		{
			name:  "OR condition",
			query: "select * from data.parquet where age > 30 OR premium = true",
		},
		{
			name:  "complex condition",
			query: "select * from data.parquet where age > 30 AND active = true OR premium = true",
		},
		{
			name:  "all operators",
			query: "select * from data.parquet where a = 1 AND b != 2 AND c < 3 AND d > 4 AND e <= 5 AND f >= 6 AND g <> 7",
		},
		{
			name:    "dangling operator",
			query:   "select * from data.parquet where age >",
			wantErr: true,
		},
		{
			name:    "empty where",
			query:   "select * from data.parquet where",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := Parse(tt.query)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && stmt.Where == nil {
				t.Error("expected WHERE condition")
			}
		})
	}
}

func TestParser_OperatorPrecedence(t *testing.T) {
	stmt, err := Parse("select * from data where a = 1 OR b = 2 AND c = 3")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	or, ok := stmt.Where.(*ast.Or)
	if !ok {
		t.Fatalf("expected Or, got %T", stmt.Where)
	}
	if len(or.Args) != 2 {
		t.Fatalf("Or has %d operands, want 2", len(or.Args))
	}
	if _, ok := or.Args[0].(*ast.Compare); !ok {
		t.Errorf("left operand: expected Compare, got %T", or.Args[0])
	}
	and, ok := or.Args[1].(*ast.And)
	if !ok {
		t.Fatalf("right operand: expected And, got %T", or.Args[1])
	}
	if len(and.Args) != 2 {
		t.Errorf("And has %d operands, want 2", len(and.Args))
	}
}

func TestParser_ChainedOperandsFlatten(t *testing.T) {
	stmt, err := Parse("select * from data where a = 1 OR b = 2 OR c = 3")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	or, ok := stmt.Where.(*ast.Or)
	if !ok || len(or.Args) != 3 {
		t.Fatalf("expected Or with 3 operands, got %#v", stmt.Where)
	}
}

func TestComparison_String(t *testing.T) {
	stmt, err := Parse("select * from data where name = 'alice'")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	comp, ok := stmt.Where.(*ast.Compare)
	if !ok {
		t.Fatalf("expected Compare, got %T", stmt.Where)
	}
	if comp.Op != "=" {
		t.Errorf("Op = %q, want =", comp.Op)
	}
	if ref, ok := comp.L.(*ast.ColumnRef); !ok || ref.Name != "name" {
		t.Errorf("left = %#v, want column name", comp.L)
	}
	if lit, ok := comp.R.(*ast.Literal); !ok || lit.Value != "alice" {
		t.Errorf("right = %#v, want literal alice", comp.R)
	}
}

func TestComparison_Number(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantValue any
	}{
		{
			name:      "integer",
			query:     "select * from data where age = 30",
			wantValue: int64(30),
		},
		{
			name:      "float",
			query:     "select * from data where score = 95.5",
			wantValue: 95.5,
		},
		{
			name:      "negative",
			query:     "select * from data where temp = -10",
			wantValue: int64(-10),
		},
		{
			name:      "exponent",
			query:     "select * from data where size = 1e3",
			wantValue: 1000.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := Parse(tt.query)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			comp, ok := stmt.Where.(*ast.Compare)
			if !ok {
				t.Fatalf("expected Compare, got %T", stmt.Where)
			}
			lit, ok := comp.R.(*ast.Literal)
			if !ok {
				t.Fatalf("expected Literal, got %T", comp.R)
			}
			if lit.Value != tt.wantValue {
				t.Errorf("Value = %#v, want %#v", lit.Value, tt.wantValue)
			}
		})
	}
}

func TestParser_InOperator(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantLen   int
		wantNeg   bool
		wantQuery bool
	}{
		{
			name:    "IN with strings",
			query:   "select * from data where status IN ('active', 'pending', 'complete')",
			wantLen: 3,
		},
		{
			name:    "IN with numbers",
			query:   "select * from data where age IN (25, 30, 35)",
			wantLen: 3,
		},
		{
			name:    "NOT IN",
			query:   "select * from data where status NOT IN ('deleted', 'archived')",
			wantLen: 2,
			wantNeg: true,
		},
		{
			name:      "IN subquery",
			query:     "select * from data where id IN (select id from other)",
			wantQuery: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := Parse(tt.query)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			in, ok := stmt.Where.(*ast.In)
			if !ok {
				t.Fatalf("expected In, got %T", stmt.Where)
			}
			if len(in.List) != tt.wantLen {
				t.Errorf("list has %d items, want %d", len(in.List), tt.wantLen)
			}
			if in.Negated != tt.wantNeg {
				t.Errorf("Negated = %v, want %v", in.Negated, tt.wantNeg)
			}
			if (in.Query != nil) != tt.wantQuery {
				t.Errorf("subquery = %v, want %v", in.Query != nil, tt.wantQuery)
			}
		})
	}
}

func TestParser_LikeOperator(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		wantPattern string
		wantNeg     bool
	}{
		{"prefix", "select * from data where name LIKE 'alice%'", "alice%", false},
		{"suffix", "select * from data where name LIKE '%smith'", "%smith", false},
		{"contains", "select * from data where email LIKE '%@example.com%'", "%@example.com%", false},
		{"NOT LIKE", "select * from data where name NOT LIKE 'test%'", "test%", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := Parse(tt.query)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			like, ok := stmt.Where.(*ast.Like)
			if !ok {
				t.Fatalf("expected Like, got %T", stmt.Where)
			}
			if like.Pattern != tt.wantPattern || like.Negated != tt.wantNeg {
				t.Errorf("got pattern %q negated %v, want %q %v", like.Pattern, like.Negated, tt.wantPattern, tt.wantNeg)
			}
		})
	}
}

func TestParser_BetweenOperator(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantNeg bool
	}{
		{"numbers", "select * from data where age BETWEEN 25 AND 40", false},
		{"strings", "select * from data where name BETWEEN 'A' AND 'M'", false},
		{"NOT BETWEEN", "select * from data where age NOT BETWEEN 18 AND 65", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := Parse(tt.query)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			between, ok := stmt.Where.(*ast.Between)
			if !ok {
				t.Fatalf("expected Between, got %T", stmt.Where)
			}
			if between.Negated != tt.wantNeg {
				t.Errorf("Negated = %v, want %v", between.Negated, tt.wantNeg)
			}
		})
	}
}

func TestParser_IsNullOperator(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantNeg bool
	}{
		{"IS NULL", "select * from data where email IS NULL", false},
		{"IS NOT NULL", "select * from data where email IS NOT NULL", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := Parse(tt.query)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			is, ok := stmt.Where.(*ast.IsTruth)
			if !ok {
				t.Fatalf("expected IsTruth, got %T", stmt.Where)
			}
			if is.Value != nil {
				t.Errorf("IS NULL should carry no truth value")
			}
			if is.Negated != tt.wantNeg {
				t.Errorf("Negated = %v, want %v", is.Negated, tt.wantNeg)
			}
		})
	}
}
