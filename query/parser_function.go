package query

import (
	"fmt"
	"strings"

	"github.com/vegasq/virtsql/ast"
)

var builtinAggregates = map[string]ast.AggFunc{
	"COUNT": ast.AggCount,
	"SUM":   ast.AggSum,
	"AVG":   ast.AggAvg,
	"MIN":   ast.AggMin,
	"MAX":   ast.AggMax,
	"LIST":  ast.AggList,
}

// parseFunctionCall parses name(args). Builtin aggregates and the functions
// with keyword arguments get their own grammar.
func (p *Parser) parseFunctionCall() (ast.Expr, error) {
	name := p.current().Value
	upper := strings.ToUpper(name)
	p.advance() // consume name
	if err := p.expect(TokenLeftParen); err != nil {
		return nil, err
	}
	if err := p.depth.enter(); err != nil {
		return nil, err
	}
	defer p.depth.exit()

	if agg, ok := builtinAggregates[upper]; ok {
		return p.parseAggregate(agg)
	}
	switch upper {
	case "SUBSTRING":
		return p.parseSubstring()
	case "TRIM":
		return p.parseTrim()
	case "OVERLAY":
		return p.parseOverlay()
	case "ROW_NUMBER":
		if err := p.expect(TokenRightParen); err != nil {
			return nil, fmt.Errorf("ROW_NUMBER takes no arguments: %w", err)
		}
		return &ast.ColumnRef{Name: ast.RowNumberColumn}, nil
	}

	fn := &ast.Function{Name: upper}
	if p.current().Type != TokenRightParen {
		args, err := p.parseArgs()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", upper, err)
		}
		fn.Args = args
	}
	if err := p.expect(TokenRightParen); err != nil {
		return nil, fmt.Errorf("expected ) after %s arguments: %w", upper, err)
	}
	return fn, nil
}

// parseArgs parses: expr [, expr ...]
func (p *Parser) parseArgs() ([]ast.Expr, error) {
	var args []ast.Expr
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.current().Type != TokenComma {
			return args, nil
		}
		p.advance()
	}
}

// parseAggregate parses the rest of:
// AGG([DISTINCT | ALL] expr [, expr]) [FILTER (WHERE expr)] or COUNT(*)
func (p *Parser) parseAggregate(fn ast.AggFunc) (ast.Expr, error) {
	agg := &ast.Aggregate{Func: fn}
	switch p.current().Type {
	case TokenDistinct:
		agg.Distinct = true
		p.advance()
	case TokenAll:
		p.advance()
	}

	if p.current().Type == TokenStar {
		if fn != ast.AggCount || agg.Distinct {
			return nil, fmt.Errorf("%s(*) is not supported", fn)
		}
		p.advance()
	} else {
		args, err := p.parseArgs()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fn, err)
		}
		if len(args) > 1 && fn != ast.AggList {
			return nil, fmt.Errorf("%s takes one argument, got %d", fn, len(args))
		}
		agg.Args = args
	}
	if err := p.expect(TokenRightParen); err != nil {
		return nil, fmt.Errorf("expected ) after %s argument: %w", fn, err)
	}

	if p.current().Type == TokenFilter {
		p.advance()
		if err := p.expect(TokenLeftParen); err != nil {
			return nil, err
		}
		if err := p.expect(TokenWhere); err != nil {
			return nil, fmt.Errorf("expected WHERE in FILTER: %w", err)
		}
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenRightParen); err != nil {
			return nil, err
		}
		agg.Filter = cond
	}
	return agg, nil
}

// parseCast parses: CAST(expr AS type [(n [, m])])
func (p *Parser) parseCast() (ast.Expr, error) {
	p.advance() // consume CAST
	if err := p.expect(TokenLeftParen); err != nil {
		return nil, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenAs); err != nil {
		return nil, fmt.Errorf("expected AS in CAST: %w", err)
	}

	// Type names may span words, as in DOUBLE PRECISION.
	var words []string
	for p.current().Type == TokenIdent {
		words = append(words, p.current().Value)
		p.advance()
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("expected type name in CAST, got %s", p.describe())
	}
	if p.current().Type == TokenLeftParen {
		// Length and precision do not affect conversion.
		for p.current().Type != TokenRightParen {
			if p.current().Type == TokenEOF {
				return nil, fmt.Errorf("unterminated type in CAST")
			}
			p.advance()
		}
		p.advance()
	}
	if err := p.expect(TokenRightParen); err != nil {
		return nil, fmt.Errorf("expected ) after CAST: %w", err)
	}
	return &ast.Function{
		Name: "CAST",
		Args: []ast.Expr{value, &ast.Literal{Value: strings.Join(words, " ")}},
	}, nil
}

// parseSubstring parses the rest of:
// SUBSTRING(s FROM start [FOR length]) or SUBSTRING(s, start [, length])
func (p *Parser) parseSubstring() (ast.Expr, error) {
	str, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	args := []ast.Expr{str}
	switch p.current().Type {
	case TokenFrom:
		p.advance()
		start, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, start)
		if p.current().Type == TokenIdent && strings.EqualFold(p.current().Value, "FOR") {
			p.advance()
			length, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, length)
		}
	case TokenComma:
		p.advance()
		rest, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		args = append(args, rest...)
	}
	if err := p.expect(TokenRightParen); err != nil {
		return nil, fmt.Errorf("expected ) after SUBSTRING: %w", err)
	}
	return &ast.Function{Name: "SUBSTRING", Args: args}, nil
}

// parseTrim parses the rest of:
// TRIM([LEADING | TRAILING | BOTH] [chars] FROM s) or TRIM(s)
func (p *Parser) parseTrim() (ast.Expr, error) {
	mode := "BOTH"
	if p.current().Type == TokenIdent {
		switch m := strings.ToUpper(p.current().Value); m {
		case "LEADING", "TRAILING", "BOTH":
			mode = m
			p.advance()
		}
	}

	var chars, str ast.Expr
	if p.current().Type != TokenFrom {
		first, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		str = first
		if p.current().Type == TokenFrom {
			chars = first
		}
	}
	if p.current().Type == TokenFrom {
		p.advance()
		s, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		str = s
	}
	if str == nil {
		return nil, fmt.Errorf("TRIM requires a string")
	}
	if err := p.expect(TokenRightParen); err != nil {
		return nil, fmt.Errorf("expected ) after TRIM: %w", err)
	}

	args := []ast.Expr{&ast.Literal{Value: mode}, str}
	if chars != nil {
		args = append(args, chars)
	}
	return &ast.Function{Name: "TRIM", Args: args}, nil
}

// parseOverlay parses the rest of: OVERLAY(s PLACING r FROM pos [FOR n])
func (p *Parser) parseOverlay() (ast.Expr, error) {
	var args []ast.Expr
	for i, word := range []string{"", "PLACING", "FROM", "FOR"} {
		if word != "" {
			tok := p.current()
			if !strings.EqualFold(tok.Value, word) || tok.Type == TokenString {
				if word == "FOR" {
					break
				}
				return nil, fmt.Errorf("expected %s in OVERLAY, got %s", word, p.describe())
			}
			p.advance()
		}
		arg, err := p.parseExpr()
		if err != nil {
			return nil, fmt.Errorf("OVERLAY argument %d: %w", i+1, err)
		}
		args = append(args, arg)
	}
	if err := p.expect(TokenRightParen); err != nil {
		return nil, fmt.Errorf("expected ) after OVERLAY: %w", err)
	}
	return &ast.Function{Name: "OVERLAY", Args: args}, nil
}
