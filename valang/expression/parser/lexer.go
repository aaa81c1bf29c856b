package parser

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/krew-solutions/ascetic-valang-go/valang/faults"
)

// TokenType represents the type of a token.
type TokenType string

const (
	TokenLBrace    TokenType = "LBRACE"
	TokenRBrace    TokenType = "RBRACE"
	TokenLParen    TokenType = "LPAREN"
	TokenRParen    TokenType = "RPAREN"
	TokenLBracket  TokenType = "LBRACKET"
	TokenRBracket  TokenType = "RBRACKET"
	TokenColon     TokenType = "COLON"
	TokenComma     TokenType = "COMMA"
	TokenDot       TokenType = "DOT"
	TokenQuestion  TokenType = "QUESTION"
	TokenEq        TokenType = "EQ"
	TokenNe        TokenType = "NE"
	TokenLte       TokenType = "LTE"
	TokenGte       TokenType = "GTE"
	TokenLt        TokenType = "LT"
	TokenGt        TokenType = "GT"
	TokenPlus      TokenType = "PLUS"
	TokenMinus     TokenType = "MINUS"
	TokenStar      TokenType = "STAR"
	TokenSlash     TokenType = "SLASH"
	TokenPercent   TokenType = "PERCENT"
	TokenBang      TokenType = "BANG"
	TokenNumber    TokenType = "NUMBER"
	TokenString    TokenType = "STRING"
	TokenDate      TokenType = "DATE"
	TokenIdent     TokenType = "IDENT"
	TokenEOF       TokenType = "EOF"
	tokenSpace     TokenType = "SPACE"
	tokenLineBreak TokenType = "NEWLINE"
)

// Token represents a token with its 1-based line and column.
type Token struct {
	Type     TokenType
	Value    string
	Position int
	Line     int
	Column   int
}

func (t Token) String() string {
	return fmt.Sprintf("Token(%s, %q)", t.Type, t.Value)
}

// Is reports whether t is the identifier keyword, case-insensitively.
func (t Token) Is(keyword string) bool {
	return t.Type == TokenIdent && strings.EqualFold(t.Value, keyword)
}

type tokenPattern struct {
	Type    TokenType
	Pattern *regexp.Regexp
}

var patterns = []tokenPattern{
	{tokenLineBreak, regexp.MustCompile(`^\r?\n`)},
	{tokenSpace, regexp.MustCompile(`^[ \t\f\r]+`)},
	{TokenLBrace, regexp.MustCompile(`^\{`)},
	{TokenRBrace, regexp.MustCompile(`^\}`)},
	{TokenLParen, regexp.MustCompile(`^\(`)},
	{TokenRParen, regexp.MustCompile(`^\)`)},
	{TokenRBracket, regexp.MustCompile(`^\]`)},
	{TokenColon, regexp.MustCompile(`^:`)},
	{TokenComma, regexp.MustCompile(`^,`)},
	{TokenDot, regexp.MustCompile(`^\.`)},
	{TokenQuestion, regexp.MustCompile(`^\?`)},
	{TokenEq, regexp.MustCompile(`^==?`)},
	{TokenNe, regexp.MustCompile(`^(!=|<>|><)`)},
	{TokenLte, regexp.MustCompile(`^(<=|=<)`)},
	{TokenGte, regexp.MustCompile(`^(>=|=>)`)},
	{TokenLt, regexp.MustCompile(`^<`)},
	{TokenGt, regexp.MustCompile(`^>`)},
	{TokenPlus, regexp.MustCompile(`^\+`)},
	{TokenMinus, regexp.MustCompile(`^-`)},
	{TokenStar, regexp.MustCompile(`^\*`)},
	{TokenSlash, regexp.MustCompile(`^/`)},
	{TokenPercent, regexp.MustCompile(`^%`)},
	{TokenBang, regexp.MustCompile(`^!`)},
	{TokenNumber, regexp.MustCompile(`^\d+(\.\d+)?`)},
	{TokenString, regexp.MustCompile(`^('[^']*'|"[^"]*")`)},
	{TokenIdent, regexp.MustCompile(`^[\p{L}_][\p{L}\p{N}_]*`)},
}

// Keywords after which '[' starts a date rather than an index.
var operatorKeywords = map[string]bool{
	"AND": true, "OR": true, "NOT": true, "BETWEEN": true, "IN": true,
	"EQUALS": true, "THAN": true, "DIV": true, "MOD": true,
}

// Lexer tokenizes rule text.
type Lexer struct {
	text     string
	position int
	line     int
	column   int
	tokens   []Token
}

func NewLexer(text string) *Lexer {
	return &Lexer{text: text, line: 1, column: 1}
}

// Tokenize scans the whole input. The longest matching pattern wins; among
// equally long matches the first listed wins. '[' opens an index after an
// identifier, ']' or ')', and a date literal anywhere else.
func (l *Lexer) Tokenize() ([]Token, error) {
	for l.position < len(l.text) {
		remaining := l.text[l.position:]

		if remaining[0] == '[' {
			if err := l.bracket(remaining); err != nil {
				return nil, err
			}
			continue
		}

		var (
			best    TokenType
			bestLen int
		)
		for _, pattern := range patterns {
			loc := pattern.Pattern.FindStringIndex(remaining)
			if loc != nil && loc[1] > bestLen {
				best, bestLen = pattern.Type, loc[1]
			}
		}
		if bestLen == 0 {
			r, _ := utf8.DecodeRuneInString(remaining)
			return nil, l.errorf(string(r), "unexpected character %q", r)
		}
		value := remaining[:bestLen]
		switch best {
		case tokenLineBreak:
			l.advance(bestLen)
			l.line++
			l.column = 1
			continue
		case tokenSpace:
		case TokenString:
			l.emit(TokenString, value[1:len(value)-1])
		default:
			l.emit(best, value)
		}
		l.advance(bestLen)
	}
	l.tokens = append(l.tokens, Token{Type: TokenEOF, Position: l.position, Line: l.line, Column: l.column})
	return l.tokens, nil
}

func (l *Lexer) bracket(remaining string) error {
	if n := len(l.tokens); n > 0 {
		prev := l.tokens[n-1]
		switch {
		case prev.Type == TokenIdent && !operatorKeywords[strings.ToUpper(prev.Value)],
			prev.Type == TokenRBracket, prev.Type == TokenRParen:
			l.emit(TokenLBracket, "[")
			l.advance(1)
			return nil
		}
	}
	end := strings.IndexAny(remaining, "]\n")
	if end < 0 || remaining[end] != ']' {
		return l.errorf(remaining, "unterminated date literal")
	}
	l.emit(TokenDate, strings.TrimSpace(remaining[1:end]))
	l.advance(end + 1)
	return nil
}

func (l *Lexer) emit(t TokenType, value string) {
	l.tokens = append(l.tokens, Token{
		Type:     t,
		Value:    value,
		Position: l.position,
		Line:     l.line,
		Column:   l.column,
	})
}

func (l *Lexer) advance(n int) {
	l.column += len([]rune(l.text[l.position : l.position+n]))
	l.position += n
}

func (l *Lexer) errorf(near, format string, args ...any) error {
	if runes := []rune(near); len(runes) > 16 {
		near = string(runes[:16])
	}
	return &faults.ParseError{
		Message: fmt.Sprintf(format, args...),
		Line:    l.line,
		Column:  l.column,
		Near:    near,
	}
}
