package query

import (
	"fmt"
	"strings"
)

// TokenType represents the type of a token
type TokenType int

const (
	// Keywords
	TokenSelect TokenType = iota
	TokenFrom
	TokenWhere
	TokenAnd
	TokenOr
	TokenNot
	TokenAs
	TokenGroup
	TokenBy
	TokenOrder
	TokenAsc
	TokenDesc
	TokenIn
	TokenLike
	TokenSimilar
	TokenTo
	TokenEscape
	TokenBetween
	TokenSymmetric
	TokenAsymmetric
	TokenIs
	TokenNull
	TokenUnknown
	TokenDistinct
	TokenAll
	TokenCase
	TokenWhen
	TokenThen
	TokenElse
	TokenEnd
	TokenWith
	TokenJoin
	TokenInner
	TokenLeft
	TokenRight
	TokenFull
	TokenOuter
	TokenCross
	TokenOn
	TokenUsing
	TokenContaining
	TokenStarting
	TokenCast
	TokenFilter

	// Operators
	TokenEqual        // = or ==
	TokenNotEqual     // != or <>
	TokenLess         // <
	TokenGreater      // >
	TokenLessEqual    // <=
	TokenGreaterEqual // >=
	TokenPlus         // +
	TokenMinus        // -
	TokenStar         // *
	TokenSlash        // /
	TokenPercent      // %
	TokenConcat       // ||

	// Literals
	TokenString
	TokenNumber
	TokenIdent
	TokenQuotedIdent
	TokenBool
	TokenParam // :name

	// Delimiters
	TokenComma      // ,
	TokenLeftParen  // (
	TokenRightParen // )

	// Special
	TokenEOF
	TokenError
)

var tokenNames = map[TokenType]string{
	TokenEqual: "=", TokenNotEqual: "!=", TokenLess: "<", TokenGreater: ">",
	TokenLessEqual: "<=", TokenGreaterEqual: ">=", TokenPlus: "+", TokenMinus: "-",
	TokenStar: "*", TokenSlash: "/", TokenPercent: "%", TokenConcat: "||",
	TokenString: "string", TokenNumber: "number", TokenIdent: "identifier",
	TokenQuotedIdent: "identifier", TokenBool: "boolean", TokenParam: "parameter",
	TokenComma: ",", TokenLeftParen: "(", TokenRightParen: ")",
	TokenEOF: "end of query", TokenError: "invalid character",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	for word, tt := range keywords {
		if tt == t {
			return word
		}
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token represents a lexical token
type Token struct {
	Type  TokenType
	Value string
}

var keywords = map[string]TokenType{
	"SELECT":     TokenSelect,
	"FROM":       TokenFrom,
	"WHERE":      TokenWhere,
	"AND":        TokenAnd,
	"OR":         TokenOr,
	"NOT":        TokenNot,
	"AS":         TokenAs,
	"GROUP":      TokenGroup,
	"BY":         TokenBy,
	"ORDER":      TokenOrder,
	"ASC":        TokenAsc,
	"DESC":       TokenDesc,
	"IN":         TokenIn,
	"LIKE":       TokenLike,
	"SIMILAR":    TokenSimilar,
	"TO":         TokenTo,
	"ESCAPE":     TokenEscape,
	"BETWEEN":    TokenBetween,
	"SYMMETRIC":  TokenSymmetric,
	"ASYMMETRIC": TokenAsymmetric,
	"IS":         TokenIs,
	"NULL":       TokenNull,
	"UNKNOWN":    TokenUnknown,
	"DISTINCT":   TokenDistinct,
	"ALL":        TokenAll,
	"CASE":       TokenCase,
	"WHEN":       TokenWhen,
	"THEN":       TokenThen,
	"ELSE":       TokenElse,
	"END":        TokenEnd,
	"WITH":       TokenWith,
	"JOIN":       TokenJoin,
	"INNER":      TokenInner,
	"LEFT":       TokenLeft,
	"RIGHT":      TokenRight,
	"FULL":       TokenFull,
	"OUTER":      TokenOuter,
	"CROSS":      TokenCross,
	"ON":         TokenOn,
	"USING":      TokenUsing,
	"CONTAINING": TokenContaining,
	"STARTING":   TokenStarting,
	"CAST":       TokenCast,
	"FILTER":     TokenFilter,
	"TRUE":       TokenBool,
	"FALSE":      TokenBool,
}

// identifierType determines if an identifier is a keyword
func identifierType(ident string) TokenType {
	if tokType, ok := keywords[strings.ToUpper(ident)]; ok {
		return tokType
	}
	return TokenIdent
}
