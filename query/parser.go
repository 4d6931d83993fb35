package query

import (
	"fmt"

	"github.com/vegasq/virtsql/ast"
)

// Parser parses SQL queries into statement trees
type Parser struct {
	tokens []Token
	pos    int
	depth  nesting

	root  *ast.Statement // owns every parameter of the query
	scope *ast.Statement // statement being parsed
}

// NewParser creates a new parser
func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// current returns the current token
func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF, Value: ""}
	}
	return p.tokens[p.pos]
}

// peek returns the next token without advancing
func (p *Parser) peek() Token {
	if p.pos+1 >= len(p.tokens) {
		return Token{Type: TokenEOF, Value: ""}
	}
	return p.tokens[p.pos+1]
}

// advance moves to the next token
func (p *Parser) advance() {
	p.pos++
}

// expect checks if current token matches expected type and advances
func (p *Parser) expect(tokType TokenType) error {
	if p.current().Type != tokType {
		return fmt.Errorf("expected %v, got %v", tokType, p.describe())
	}
	p.advance()
	return nil
}

// describe names the current token for error messages.
func (p *Parser) describe() string {
	tok := p.current()
	switch tok.Type {
	case TokenEOF:
		return "end of query"
	case TokenString:
		return fmt.Sprintf("'%s'", tok.Value)
	}
	return fmt.Sprintf("%q", tok.Value)
}

// Parse parses a SQL SELECT statement
func Parse(query string) (*ast.Statement, error) {
	// Validate query length
	if err := ValidateQuery(query); err != nil {
		return nil, err
	}

	tokens := Tokenize(query)

	// Validate token count
	if err := ValidateTokens(tokens); err != nil {
		return nil, err
	}
	if last := tokens[len(tokens)-1]; last.Type == TokenError {
		return nil, fmt.Errorf("invalid character in query: %s", last.Value)
	}

	parser := NewParser(tokens)
	stmt, err := parser.parseStatement(nil)
	if err != nil {
		return nil, err
	}

	// Validate that we consumed all tokens (should be at EOF)
	if parser.current().Type != TokenEOF {
		return nil, fmt.Errorf("unexpected trailing tokens after query: %s", parser.current().Value)
	}

	return stmt, nil
}

// parseStatement parses:
// [WITH views] SELECT [DISTINCT] items [FROM source] [WHERE expr]
// [GROUP BY names] [ORDER BY names [ASC|DESC]]
func (p *Parser) parseStatement(parent *ast.Statement) (*ast.Statement, error) {
	stmt := &ast.Statement{Parent: parent}
	if p.root == nil {
		p.root = stmt
	}
	outer := p.scope
	p.scope = stmt
	defer func() { p.scope = outer }()

	if p.current().Type == TokenWith {
		if err := p.parseWith(stmt); err != nil {
			return nil, err
		}
	}

	if err := p.expect(TokenSelect); err != nil {
		return nil, fmt.Errorf("query must start with SELECT (or WITH): %w", err)
	}
	switch p.current().Type {
	case TokenDistinct:
		stmt.Distinct = true
		p.advance()
	case TokenAll:
		p.advance()
	}

	if err := p.parseSelectList(stmt); err != nil {
		return nil, fmt.Errorf("failed to parse SELECT list: %w", err)
	}

	if p.current().Type == TokenFrom {
		p.advance()
		src, err := p.parseSource(stmt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse FROM: %w", err)
		}
		stmt.Source = src
	} else if stmt.Wildcard {
		return nil, fmt.Errorf("SELECT * requires FROM")
	}

	if p.current().Type == TokenWhere {
		p.advance()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, fmt.Errorf("failed to parse WHERE clause: %w", err)
		}
		stmt.Where = expr
	}

	if p.current().Type == TokenGroup {
		p.advance()
		if err := p.expect(TokenBy); err != nil {
			return nil, err
		}
		refs, err := p.parseNameList()
		if err != nil {
			return nil, fmt.Errorf("failed to parse GROUP BY: %w", err)
		}
		stmt.GroupBy = refs
	}

	if p.current().Type == TokenOrder {
		p.advance()
		if err := p.expect(TokenBy); err != nil {
			return nil, err
		}
		if err := p.parseOrderBy(stmt); err != nil {
			return nil, fmt.Errorf("failed to parse ORDER BY: %w", err)
		}
	}

	return stmt, nil
}

// parseWith parses: WITH name [(col, ...)] AS (statement) [, ...]
func (p *Parser) parseWith(stmt *ast.Statement) error {
	p.advance() // consume WITH
	stmt.Views = make(map[string]*ast.Statement)
	for {
		name, err := p.parseName()
		if err != nil {
			return fmt.Errorf("expected view name after WITH: %w", err)
		}
		var columns []string
		if p.current().Type == TokenLeftParen {
			p.advance()
			for {
				col, err := p.parseName()
				if err != nil {
					return fmt.Errorf("view %s: %w", name, err)
				}
				columns = append(columns, col)
				if p.current().Type != TokenComma {
					break
				}
				p.advance()
			}
			if err := p.expect(TokenRightParen); err != nil {
				return fmt.Errorf("view %s: %w", name, err)
			}
		}
		if err := p.expect(TokenAs); err != nil {
			return fmt.Errorf("view %s: %w", name, err)
		}
		view, err := p.parseNested(stmt)
		if err != nil {
			return fmt.Errorf("view %s: %w", name, err)
		}
		view.ViewColumns = columns
		if _, dup := stmt.Views[name]; dup {
			return fmt.Errorf("view %s defined twice", name)
		}
		stmt.Views[name] = view

		if p.current().Type != TokenComma {
			return nil
		}
		p.advance()
	}
}

// parseNested parses a parenthesized statement nested in parent.
func (p *Parser) parseNested(parent *ast.Statement) (*ast.Statement, error) {
	if err := p.expect(TokenLeftParen); err != nil {
		return nil, err
	}
	stmt, err := p.parseStatement(parent)
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenRightParen); err != nil {
		return nil, fmt.Errorf("expected ) after subquery: %w", err)
	}
	return stmt, nil
}

// parseSelectList parses: * | item [, item ...]
func (p *Parser) parseSelectList(stmt *ast.Statement) error {
	for {
		if p.current().Type == TokenStar {
			if stmt.Wildcard {
				return fmt.Errorf("* listed twice")
			}
			stmt.Wildcard = true
			p.advance()
		} else {
			item, err := p.parseSelectItem()
			if err != nil {
				return err
			}
			stmt.Columns = append(stmt.Columns, item)
		}
		if p.current().Type != TokenComma {
			return nil
		}
		p.advance()
	}
}

// parseSelectItem parses: expr [[AS] alias]
func (p *Parser) parseSelectItem() (*ast.Variable, error) {
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	item := &ast.Variable{Value: expr}
	switch p.current().Type {
	case TokenAs:
		p.advance()
		if item.Alias, err = p.parseName(); err != nil {
			return nil, fmt.Errorf("expected alias after AS: %w", err)
		}
	case TokenIdent, TokenQuotedIdent:
		item.Alias = p.current().Value
		p.advance()
	}
	return item, nil
}

// parseSource parses a table followed by any number of joins. Joins nest to
// the left.
func (p *Parser) parseSource(stmt *ast.Statement) (ast.Source, error) {
	first, err := p.parseTableRef(stmt)
	if err != nil {
		return nil, err
	}
	var left ast.Source = first
	for {
		kind := ast.JoinInner
		switch p.current().Type {
		case TokenComma:
			p.advance()
			right, err := p.parseTableRef(stmt)
			if err != nil {
				return nil, err
			}
			left = &ast.JoinNode{Kind: ast.JoinCross, Left: left, Right: right}
			continue
		case TokenCross:
			p.advance()
			if err := p.expect(TokenJoin); err != nil {
				return nil, err
			}
			right, err := p.parseTableRef(stmt)
			if err != nil {
				return nil, err
			}
			left = &ast.JoinNode{Kind: ast.JoinCross, Left: left, Right: right}
			continue
		case TokenJoin:
		case TokenInner:
			p.advance()
		case TokenLeft, TokenRight, TokenFull:
			kind = map[TokenType]ast.JoinKind{
				TokenLeft: ast.JoinLeft, TokenRight: ast.JoinRight, TokenFull: ast.JoinFull,
			}[p.current().Type]
			p.advance()
			if p.current().Type == TokenOuter {
				p.advance()
			}
		default:
			return left, nil
		}

		if err := p.expect(TokenJoin); err != nil {
			return nil, err
		}
		right, err := p.parseTableRef(stmt)
		if err != nil {
			return nil, err
		}
		join := &ast.JoinNode{Kind: kind, Left: left, Right: right}
		switch p.current().Type {
		case TokenOn:
			p.advance()
			if join.On, err = p.parseExpr(); err != nil {
				return nil, fmt.Errorf("failed to parse ON condition: %w", err)
			}
		case TokenUsing:
			p.advance()
			if err := p.expect(TokenLeftParen); err != nil {
				return nil, err
			}
			for {
				name, err := p.parseName()
				if err != nil {
					return nil, err
				}
				join.Using = append(join.Using, name)
				if p.current().Type != TokenComma {
					break
				}
				p.advance()
			}
			if err := p.expect(TokenRightParen); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("expected ON or USING after JOIN %s, got %s", right.Name, p.describe())
		}
		left = join
	}
}

// parseTableRef parses a table name or a parenthesized subquery, each with an
// optional alias. A subquery becomes an anonymous view named by its alias.
func (p *Parser) parseTableRef(stmt *ast.Statement) (*ast.TableRef, error) {
	if p.current().Type == TokenLeftParen {
		sub, err := p.parseNested(stmt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse subquery in FROM: %w", err)
		}
		if p.current().Type == TokenAs {
			p.advance()
		}
		alias, err := p.parseName()
		if err != nil {
			return nil, fmt.Errorf("subquery in FROM needs an alias: %w", err)
		}
		if stmt.Views == nil {
			stmt.Views = make(map[string]*ast.Statement)
		}
		stmt.Views[alias] = sub
		return &ast.TableRef{Name: alias}, nil
	}

	// Table names may be quoted to carry paths, schemes and options.
	switch p.current().Type {
	case TokenIdent, TokenQuotedIdent, TokenString:
	default:
		return nil, fmt.Errorf("expected table name or subquery, got %s", p.describe())
	}
	t := &ast.TableRef{Name: p.current().Value}
	if err := ValidateTableName(t.Name); err != nil {
		return nil, err
	}
	p.advance()

	if p.current().Type == TokenAs {
		p.advance()
	}
	if p.current().Type == TokenIdent || p.current().Type == TokenQuotedIdent {
		t.Alias = p.current().Value
		p.advance()
	}
	return t, nil
}

// parseName parses a plain or quoted identifier.
func (p *Parser) parseName() (string, error) {
	switch p.current().Type {
	case TokenIdent, TokenQuotedIdent:
		name := p.current().Value
		if err := ValidateColumnName(name); err != nil {
			return "", err
		}
		p.advance()
		return name, nil
	}
	return "", fmt.Errorf("expected name, got %s", p.describe())
}

// parseNameList parses: name [, name ...]
func (p *Parser) parseNameList() ([]*ast.ColumnRef, error) {
	var refs []*ast.ColumnRef
	for {
		name, err := p.parseName()
		if err != nil {
			return nil, err
		}
		refs = append(refs, &ast.ColumnRef{Name: name})
		if p.current().Type != TokenComma {
			return refs, nil
		}
		p.advance()
	}
}

// parseOrderBy parses the sort names. One direction applies to all of them;
// it may follow the last name or be repeated after each.
func (p *Parser) parseOrderBy(stmt *ast.Statement) error {
	var dirs []bool
	for {
		name, err := p.parseName()
		if err != nil {
			return err
		}
		stmt.OrderBy = append(stmt.OrderBy, &ast.ColumnRef{Name: name})
		switch p.current().Type {
		case TokenAsc:
			dirs = append(dirs, false)
			p.advance()
		case TokenDesc:
			dirs = append(dirs, true)
			p.advance()
		}
		if p.current().Type != TokenComma {
			break
		}
		p.advance()
	}
	for _, desc := range dirs {
		if desc != dirs[0] {
			return fmt.Errorf("mixed sort directions are not supported")
		}
	}
	stmt.Desc = len(dirs) > 0 && dirs[0]
	return nil
}
