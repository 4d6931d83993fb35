package query

import (
	"errors"
	"fmt"
)

// Input limits. Table names may hold paths and source URLs, so they get more
// room than column names.
const (
	MaxQueryLength      = 1 << 20
	MaxTokens           = 10000
	MaxExpressionDepth  = 100
	MaxColumnNameLength = 256
	MaxTableNameLength  = 4096
)

var (
	ErrQueryTooLong      = errors.New("query too long")
	ErrTooManyTokens     = errors.New("too many tokens in query")
	ErrExpressionTooDeep = errors.New("expression nesting too deep")
	ErrColumnNameTooLong = errors.New("column name too long")
	ErrTableNameTooLong  = errors.New("table name too long")
	ErrEmptyTableName    = errors.New("table name cannot be empty")
)

func checkLimit(err error, n, max int, unit string) error {
	if n > max {
		return fmt.Errorf("%w: %d %s (max %d)", err, n, unit, max)
	}
	return nil
}

// ValidateQuery rejects query text longer than MaxQueryLength bytes.
func ValidateQuery(query string) error {
	return checkLimit(ErrQueryTooLong, len(query), MaxQueryLength, "bytes")
}

// ValidateTableName rejects empty and overlong table references.
func ValidateTableName(name string) error {
	if name == "" {
		return ErrEmptyTableName
	}
	return checkLimit(ErrTableNameTooLong, len(name), MaxTableNameLength, "chars")
}

// ValidateColumnName rejects overlong column, alias and parameter names.
func ValidateColumnName(name string) error {
	return checkLimit(ErrColumnNameTooLong, len(name), MaxColumnNameLength, "chars")
}

// ValidateTokens rejects token lists longer than MaxTokens.
func ValidateTokens(tokens []Token) error {
	return checkLimit(ErrTooManyTokens, len(tokens), MaxTokens, "tokens")
}

// nesting counts open expression levels, subqueries included.
type nesting int

func (n *nesting) enter() error {
	*n++
	return checkLimit(ErrExpressionTooDeep, int(*n), MaxExpressionDepth, "levels")
}

func (n *nesting) exit() { *n-- }
