// Package query parses SQL SELECT statements into statement trees.
//
// This package implements the front end of the query language with support for:
//   - SELECT [DISTINCT] with column projection, aliases and *
//   - FROM with table names, dotted database names and quoted paths
//   - JOINs (INNER, LEFT, RIGHT, FULL, CROSS) with ON or USING
//   - WHERE, GROUP BY and ORDER BY
//   - Views defined with WITH, optionally renaming their columns
//   - Subqueries (IN, scalar, and in FROM)
//   - Aggregate functions (COUNT, SUM, AVG, MIN, MAX, LIST) with FILTER
//   - Predicates (BETWEEN, LIKE, SIMILAR TO, CONTAINING, STARTING WITH, IS)
//   - Named parameters (:name)
//
// The parser only builds the tree. Names are bound by package resolve and
// plans are built by package plan.
//
// # Basic Usage
//
//	stmt, err := query.Parse("SELECT name, age FROM people WHERE age > :min")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Security Limits
//
// Queries are checked against MaxQueryLength and MaxTokens before parsing,
// and expression nesting is capped at MaxExpressionDepth:
//
//	_, err := query.Parse(hugeQuery)
//	if errors.Is(err, query.ErrQueryTooLong) {
//	    // reject
//	}
package query
