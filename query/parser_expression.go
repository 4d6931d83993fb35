package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vegasq/virtsql/ast"
)

// parseExpr parses a full expression: OR has the lowest precedence.
func (p *Parser) parseExpr() (ast.Expr, error) {
	if err := p.depth.enter(); err != nil {
		return nil, err
	}
	defer p.depth.exit()
	return p.parseOr()
}

// parseOr parses: and [OR and ...]
func (p *Parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	if p.current().Type != TokenOr {
		return left, nil
	}
	args := []ast.Expr{left}
	for p.current().Type == TokenOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		args = append(args, right)
	}
	return &ast.Or{Args: args}, nil
}

// parseAnd parses: not [AND not ...]
func (p *Parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	if p.current().Type != TokenAnd {
		return left, nil
	}
	args := []ast.Expr{left}
	for p.current().Type == TokenAnd {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		args = append(args, right)
	}
	return &ast.And{Args: args}, nil
}

// parseNot parses: [NOT] predicate
func (p *Parser) parseNot() (ast.Expr, error) {
	if p.current().Type != TokenNot {
		return p.parsePredicate()
	}
	p.advance()
	if err := p.depth.enter(); err != nil {
		return nil, err
	}
	defer p.depth.exit()
	x, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	return &ast.Not{X: x}, nil
}

// parsePredicate parses a value followed by an optional comparison or test.
func (p *Parser) parsePredicate() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return p.parsePredicateTail(left)
}

var comparisons = map[TokenType]bool{
	TokenEqual: true, TokenNotEqual: true, TokenLess: true,
	TokenGreater: true, TokenLessEqual: true, TokenGreaterEqual: true,
}

// parsePredicateTail parses whatever follows the left operand of a
// predicate. It returns left unchanged when no predicate follows. Simple CASE
// reuses it to parse partial conditions such as "WHEN > 5".
func (p *Parser) parsePredicateTail(left ast.Expr) (ast.Expr, error) {
	tok := p.current()
	if comparisons[tok.Type] {
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &ast.Compare{Op: tok.Value, L: left, R: right}, nil
	}

	negated := false
	if tok.Type == TokenNot {
		switch p.peek().Type {
		case TokenBetween, TokenLike, TokenSimilar, TokenIn, TokenContaining, TokenStarting:
			negated = true
			p.advance()
		default:
			return left, nil
		}
	}

	switch p.current().Type {
	case TokenBetween:
		return p.parseBetween(left, negated)
	case TokenLike:
		p.advance()
		return p.parseLike(left, negated, false)
	case TokenSimilar:
		p.advance()
		if err := p.expect(TokenTo); err != nil {
			return nil, fmt.Errorf("expected TO after SIMILAR: %w", err)
		}
		return p.parseLike(left, negated, true)
	case TokenIn:
		return p.parseIn(left, negated)
	case TokenContaining:
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &ast.Containing{X: left, Y: right, Negated: negated}, nil
	case TokenStarting:
		p.advance()
		if p.current().Type == TokenWith {
			p.advance()
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &ast.Starting{X: left, Y: right, Negated: negated}, nil
	case TokenIs:
		return p.parseIs(left)
	}
	return left, nil
}

// parseBetween parses: BETWEEN [SYMMETRIC|ASYMMETRIC] lo AND hi
func (p *Parser) parseBetween(x ast.Expr, negated bool) (ast.Expr, error) {
	p.advance() // consume BETWEEN
	b := &ast.Between{X: x, Negated: negated}
	switch p.current().Type {
	case TokenSymmetric:
		b.Symmetric = true
		p.advance()
	case TokenAsymmetric:
		p.advance()
	}
	var err error
	if b.Lo, err = p.parseAdditive(); err != nil {
		return nil, err
	}
	if err := p.expect(TokenAnd); err != nil {
		return nil, fmt.Errorf("expected AND in BETWEEN: %w", err)
	}
	if b.Hi, err = p.parseAdditive(); err != nil {
		return nil, err
	}
	return b, nil
}

// parseLike parses the pattern string and optional ESCAPE character that
// follow LIKE or SIMILAR TO.
func (p *Parser) parseLike(x ast.Expr, negated, regex bool) (ast.Expr, error) {
	if p.current().Type != TokenString {
		return nil, fmt.Errorf("pattern must be a string literal, got %s", p.describe())
	}
	like := &ast.Like{X: x, Pattern: p.current().Value, Regex: regex, Negated: negated}
	p.advance()
	if p.current().Type == TokenEscape {
		p.advance()
		if p.current().Type != TokenString {
			return nil, fmt.Errorf("ESCAPE must be a string literal, got %s", p.describe())
		}
		like.Escape = p.current().Value
		if len([]rune(like.Escape)) != 1 {
			return nil, fmt.Errorf("ESCAPE must be a single character, got %q", like.Escape)
		}
		p.advance()
	}
	return like, nil
}

// parseIn parses: IN (value, ...) | IN (SELECT ...)
func (p *Parser) parseIn(x ast.Expr, negated bool) (ast.Expr, error) {
	p.advance() // consume IN
	in := &ast.In{X: x, Negated: negated}
	if p.peek().Type == TokenSelect || p.peek().Type == TokenWith {
		sub, err := p.parseNested(p.scope)
		if err != nil {
			return nil, fmt.Errorf("failed to parse IN subquery: %w", err)
		}
		in.Query = &ast.Subquery{Stmt: sub}
		return in, nil
	}

	if err := p.expect(TokenLeftParen); err != nil {
		return nil, fmt.Errorf("expected ( after IN: %w", err)
	}
	for {
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		in.List = append(in.List, v)
		if p.current().Type != TokenComma {
			break
		}
		p.advance()
	}
	if err := p.expect(TokenRightParen); err != nil {
		return nil, fmt.Errorf("expected ) after IN list: %w", err)
	}
	return in, nil
}

// parseIs parses: IS [NOT] NULL | UNKNOWN | TRUE | FALSE | DISTINCT FROM expr
func (p *Parser) parseIs(x ast.Expr) (ast.Expr, error) {
	p.advance() // consume IS
	negated := false
	if p.current().Type == TokenNot {
		negated = true
		p.advance()
	}
	switch tok := p.current(); tok.Type {
	case TokenNull, TokenUnknown:
		p.advance()
		return &ast.IsTruth{X: x, Negated: negated}, nil
	case TokenBool:
		p.advance()
		value := strings.EqualFold(tok.Value, "true")
		return &ast.IsTruth{X: x, Value: &value, Negated: negated}, nil
	case TokenDistinct:
		p.advance()
		if err := p.expect(TokenFrom); err != nil {
			return nil, fmt.Errorf("expected FROM after IS DISTINCT: %w", err)
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &ast.DistinctFrom{L: x, R: right, Negated: negated}, nil
	}
	return nil, fmt.Errorf("expected NULL, UNKNOWN, TRUE, FALSE or DISTINCT after IS, got %s", p.describe())
}

// parseAdditive parses: term [(+ | - | ||) term ...]
func (p *Parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.current()
		if tok.Type != TokenPlus && tok.Type != TokenMinus && tok.Type != TokenConcat {
			return left, nil
		}
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.Arith{Op: tok.Value, L: left, R: right}
	}
}

// parseMultiplicative parses: unary [(* | / | %) unary ...]
func (p *Parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.current()
		if tok.Type != TokenStar && tok.Type != TokenSlash && tok.Type != TokenPercent {
			return left, nil
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.Arith{Op: tok.Value, L: left, R: right}
	}
}

// parseUnary parses: [- | +] primary. A negated number literal folds into
// the literal.
func (p *Parser) parseUnary() (ast.Expr, error) {
	switch p.current().Type {
	case TokenPlus:
		p.advance()
		return p.parseUnary()
	case TokenMinus:
		p.advance()
		if p.current().Type == TokenNumber {
			return p.parseNumber("-" + p.current().Value)
		}
		if err := p.depth.enter(); err != nil {
			return nil, err
		}
		defer p.depth.exit()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Arith{Op: "-", L: &ast.Literal{Value: int64(0)}, R: x}, nil
	}
	return p.parsePrimary()
}

// parseNumber converts a number token to an int64 or float64 literal.
func (p *Parser) parseNumber(text string) (ast.Expr, error) {
	p.advance()
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return &ast.Literal{Value: i}, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number: %s", text)
	}
	return &ast.Literal{Value: f}, nil
}

// parsePrimary parses literals, parameters, names, calls, CASE and
// parenthesized expressions or subqueries.
func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.current()

	switch tok.Type {
	case TokenNumber:
		return p.parseNumber(tok.Value)

	case TokenString:
		p.advance()
		return &ast.Literal{Value: tok.Value}, nil

	case TokenBool:
		p.advance()
		return &ast.Literal{Value: strings.EqualFold(tok.Value, "true")}, nil

	case TokenNull:
		p.advance()
		return &ast.Literal{Value: nil}, nil

	case TokenParam:
		p.advance()
		return p.root.AddParam(tok.Value), nil

	case TokenLeftParen:
		if p.peek().Type == TokenSelect || p.peek().Type == TokenWith {
			sub, err := p.parseNested(p.scope)
			if err != nil {
				return nil, fmt.Errorf("failed to parse subquery: %w", err)
			}
			return &ast.Subquery{Stmt: sub}, nil
		}
		p.advance()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenRightParen); err != nil {
			return nil, fmt.Errorf("expected closing parenthesis: %w", err)
		}
		return expr, nil

	case TokenCase:
		return p.parseCase()

	case TokenCast:
		return p.parseCast()

	case TokenLeft, TokenRight:
		// LEFT and RIGHT double as string function names.
		if p.peek().Type == TokenLeftParen {
			return p.parseFunctionCall()
		}

	case TokenIdent, TokenQuotedIdent:
		if tok.Type == TokenIdent && p.peek().Type == TokenLeftParen {
			return p.parseFunctionCall()
		}
		if err := ValidateColumnName(tok.Value); err != nil {
			return nil, err
		}
		p.advance()
		return &ast.ColumnRef{Name: tok.Value}, nil
	}

	return nil, fmt.Errorf("unexpected %s in expression", p.describe())
}

// parseCase parses a simple or searched CASE expression.
func (p *Parser) parseCase() (ast.Expr, error) {
	p.advance() // consume CASE
	if err := p.depth.enter(); err != nil {
		return nil, err
	}
	defer p.depth.exit()

	var subject ast.Expr
	if p.current().Type != TokenWhen {
		var err error
		if subject, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}

	var whens []ast.When
	for p.current().Type == TokenWhen {
		p.advance()
		var w ast.When
		var err error
		if subject != nil && (comparisons[p.current().Type] || p.startsTest()) {
			// "WHEN > 5" tests the switch value directly.
			if w.Cond, err = p.parsePredicateTail(subject); err != nil {
				return nil, err
			}
			w.Test = true
		} else if w.Cond, err = p.parseExpr(); err != nil {
			return nil, err
		}
		if err := p.expect(TokenThen); err != nil {
			return nil, fmt.Errorf("expected THEN in CASE: %w", err)
		}
		if w.Result, err = p.parseExpr(); err != nil {
			return nil, err
		}
		whens = append(whens, w)
	}
	if len(whens) == 0 {
		return nil, fmt.Errorf("CASE requires at least one WHEN")
	}

	var elseExpr ast.Expr
	if p.current().Type == TokenElse {
		p.advance()
		var err error
		if elseExpr, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}
	if err := p.expect(TokenEnd); err != nil {
		return nil, fmt.Errorf("expected END to close CASE: %w", err)
	}

	if subject == nil {
		return &ast.SearchedCase{Whens: whens, Else: elseExpr}, nil
	}
	return &ast.SimpleCase{Switch: subject, Whens: whens, Else: elseExpr}, nil
}

// startsTest reports whether the current token begins a predicate tail
// other than a comparison.
func (p *Parser) startsTest() bool {
	switch p.current().Type {
	case TokenBetween, TokenLike, TokenSimilar, TokenIn, TokenContaining, TokenStarting, TokenIs:
		return true
	case TokenNot:
		switch p.peek().Type {
		case TokenBetween, TokenLike, TokenSimilar, TokenIn, TokenContaining, TokenStarting:
			return true
		}
	}
	return false
}
