// Package parser compiles Valang text into expression trees.
//
// Two entry points exist: ParseExpression reads a single boolean
// expression, ParseRules reads a sequence of rule blocks
//
//	{ key : predicate : 'message' [: code [: arg, arg ...]] }
//
// Keywords are case-insensitive. Comparison operators can be spelled as
// symbols (=, ==, !=, <>, <, <=, =<, >, >=, =>) or words (EQUALS,
// LESS THAN, GREATER THAN OR EQUALS ...). A '?' inside a rule refers to the
// property named by the rule key.
package parser

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/krew-solutions/ascetic-valang-go/valang/beans"
	"github.com/krew-solutions/ascetic-valang-go/valang/expression"
	"github.com/krew-solutions/ascetic-valang-go/valang/faults"
	"github.com/krew-solutions/ascetic-valang-go/valang/operators"
)

type Option func(*Parser)

// WithTargetType compiles property paths against t at parse time. Unknown
// properties then fail parsing.
func WithTargetType(t reflect.Type) Option {
	return func(p *Parser) {
		p.targetType = t
	}
}

func WithFunctionResolver(resolver expression.FunctionResolver) Option {
	return func(p *Parser) {
		p.functions.Custom = resolver
	}
}

func WithBeanRegistry(registry expression.BeanRegistry) Option {
	return func(p *Parser) {
		p.functions.Beans = registry
	}
}

func WithDateParser(dates *expression.DateParser) Option {
	return func(p *Parser) {
		p.dates = dates
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(p *Parser) {
		p.logger = logger.With().Str("component", "valang.parser").Logger()
	}
}

// Parser holds parse settings. It keeps no state between parses and may be
// shared.
type Parser struct {
	targetType reflect.Type
	functions  expression.Functions
	dates      *expression.DateParser
	logger     zerolog.Logger
}

func New(opts ...Option) *Parser {
	p := &Parser{
		dates:  expression.NewDateParser(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DateParser returns the parser date literals are checked against; the
// same parser has to evaluate them.
func (p *Parser) DateParser() *expression.DateParser {
	return p.dates
}

// Rule is one parsed { ... } block. An empty Key marks a rule on the object
// as a whole.
type Rule struct {
	Key       beans.Path
	Predicate expression.Predicate
	Message   string
	Code      string
	Args      []expression.Function
	Line      int
	Column    int
}

func ParseExpression(text string, opts ...Option) (expression.Predicate, error) {
	return New(opts...).ParseExpression(text)
}

func ParseRules(text string, opts ...Option) ([]Rule, error) {
	return New(opts...).ParseRules(text)
}

func (p *Parser) ParseExpression(text string) (expression.Predicate, error) {
	s, err := p.start(text)
	if err != nil {
		return nil, err
	}
	pred, err := s.parsePredicate()
	if err != nil {
		return nil, p.failed(text, err)
	}
	if _, err := s.expect(TokenEOF, "end of expression"); err != nil {
		return nil, p.failed(text, err)
	}
	p.logger.Debug().Str("expression", text).Msg("parsed expression")
	return pred, nil
}

// ParseFunction parses a value expression such as an error argument.
func (p *Parser) ParseFunction(text string) (expression.Function, error) {
	s, err := p.start(text)
	if err != nil {
		return nil, err
	}
	fn, err := s.parseFunction()
	if err != nil {
		return nil, p.failed(text, err)
	}
	if _, err := s.expect(TokenEOF, "end of expression"); err != nil {
		return nil, p.failed(text, err)
	}
	return fn, nil
}

// ParseFunctions parses a comma separated list of value expressions.
func (p *Parser) ParseFunctions(text string) ([]expression.Function, error) {
	s, err := p.start(text)
	if err != nil {
		return nil, err
	}
	if s.peek().Type == TokenEOF {
		return nil, nil
	}
	fns, err := s.parseFunctionList()
	if err != nil {
		return nil, p.failed(text, err)
	}
	if _, err := s.expect(TokenEOF, "end of expression"); err != nil {
		return nil, p.failed(text, err)
	}
	return fns, nil
}

func (p *Parser) ParseRules(text string) ([]Rule, error) {
	s, err := p.start(text)
	if err != nil {
		return nil, err
	}
	var rules []Rule
	for s.peek().Type != TokenEOF {
		rule, err := s.parseRule()
		if err != nil {
			return nil, p.failed(text, err)
		}
		rules = append(rules, rule)
	}
	p.logger.Debug().Int("rules", len(rules)).Msg("parsed rules")
	return rules, nil
}

func (p *Parser) start(text string) (*state, error) {
	tokens, err := NewLexer(text).Tokenize()
	if err != nil {
		return nil, p.failed(text, err)
	}
	return &state{Parser: p, tokens: tokens}, nil
}

func (p *Parser) failed(text string, err error) error {
	var parseErr *faults.ParseError
	var resolveErr *faults.FunctionResolutionError
	switch {
	case errors.As(err, &resolveErr):
		p.logger.Error().Str("function", resolveErr.Name).Int("line", resolveErr.Line).Int("column", resolveErr.Column).Msg("unknown function")
	case errors.As(err, &parseErr):
		p.logger.Error().Err(err).Str("text", text).Msg("malformed expression")
	}
	return err
}

type state struct {
	*Parser
	tokens []Token
	pos    int
	key    beans.Path
}

func (s *state) peek() Token {
	return s.peekAt(0)
}

func (s *state) peekAt(n int) Token {
	if s.pos+n >= len(s.tokens) {
		return s.tokens[len(s.tokens)-1]
	}
	return s.tokens[s.pos+n]
}

func (s *state) next() Token {
	tok := s.peek()
	if s.pos < len(s.tokens)-1 {
		s.pos++
	}
	return tok
}

func (s *state) expect(t TokenType, what string) (Token, error) {
	tok := s.peek()
	if tok.Type != t {
		return tok, s.errorAt(tok, "expected %s", what)
	}
	return s.next(), nil
}

func (s *state) expectKeyword(keyword string) error {
	tok := s.peek()
	if !tok.Is(keyword) {
		return s.errorAt(tok, "expected %s", keyword)
	}
	s.next()
	return nil
}

func (s *state) errorAt(tok Token, format string, args ...any) *faults.ParseError {
	near := tok.Value
	if tok.Type == TokenEOF {
		near = ""
		format += " but reached end of input"
	}
	return &faults.ParseError{
		Message: fmt.Sprintf(format, args...),
		Line:    tok.Line,
		Column:  tok.Column,
		Near:    near,
	}
}

func (s *state) parseRule() (Rule, error) {
	open, err := s.expect(TokenLBrace, "'{'")
	if err != nil {
		return Rule{}, err
	}
	rule := Rule{Line: open.Line, Column: open.Column}

	if s.peek().Type == TokenQuestion {
		s.next()
	} else {
		tok := s.peek()
		if tok.Type != TokenIdent {
			return Rule{}, s.errorAt(tok, "expected property name or '?'")
		}
		s.next()
		if rule.Key, err = s.parsePathFrom(tok); err != nil {
			return Rule{}, err
		}
	}
	if _, err := s.expect(TokenColon, "':' after rule key"); err != nil {
		return Rule{}, err
	}

	s.key = rule.Key
	defer func() { s.key = nil }()
	if rule.Predicate, err = s.parsePredicate(); err != nil {
		return Rule{}, err
	}
	if _, err := s.expect(TokenColon, "':' after predicate"); err != nil {
		return Rule{}, err
	}
	msg, err := s.expect(TokenString, "quoted error message")
	if err != nil {
		return Rule{}, err
	}
	rule.Message = msg.Value

	if s.peek().Type == TokenColon {
		s.next()
		if rule.Code, err = s.parseCode(); err != nil {
			return Rule{}, err
		}
		if s.peek().Type == TokenColon {
			s.next()
			if rule.Args, err = s.parseFunctionList(); err != nil {
				return Rule{}, err
			}
		}
	}
	if _, err := s.expect(TokenRBrace, "'}'"); err != nil {
		return Rule{}, err
	}
	return rule, nil
}

// parseCode reads a quoted code or a dotted name such as age.range.
func (s *state) parseCode() (string, error) {
	tok := s.peek()
	switch tok.Type {
	case TokenString:
		s.next()
		return tok.Value, nil
	case TokenIdent:
		s.next()
		code := tok.Value
		for s.peek().Type == TokenDot && s.peekAt(1).Type == TokenIdent {
			s.next()
			code += "." + s.next().Value
		}
		return code, nil
	}
	return "", s.errorAt(tok, "expected error code")
}

func (s *state) parsePredicate() (expression.Predicate, error) {
	return s.parseOr()
}

func (s *state) parseOr() (expression.Predicate, error) {
	left, err := s.parseAnd()
	if err != nil {
		return nil, err
	}
	for s.peek().Is("OR") {
		s.next()
		right, err := s.parseAnd()
		if err != nil {
			return nil, err
		}
		left = expression.Or(left, right)
	}
	return left, nil
}

func (s *state) parseAnd() (expression.Predicate, error) {
	left, err := s.parseNot()
	if err != nil {
		return nil, err
	}
	for s.peek().Is("AND") {
		s.next()
		right, err := s.parseNot()
		if err != nil {
			return nil, err
		}
		left = expression.And(left, right)
	}
	return left, nil
}

func (s *state) parseNot() (expression.Predicate, error) {
	if s.peek().Is("NOT") {
		s.next()
		operand, err := s.parseNot()
		if err != nil {
			return nil, err
		}
		return expression.Not(operand), nil
	}
	if s.peek().Type == TokenLParen {
		// A parenthesis opens either a nested predicate or a value
		// expression such as (a + b) > 3; try the predicate first.
		save := s.pos
		s.next()
		pred, err := s.parsePredicate()
		if err == nil && s.peek().Type == TokenRParen {
			s.next()
			if !s.startsComparisonTail() {
				return pred, nil
			}
		}
		s.pos = save
	}
	return s.parseComparison()
}

func (s *state) startsComparisonTail() bool {
	tok := s.peek()
	switch tok.Type {
	case TokenEq, TokenNe, TokenLt, TokenLte, TokenGt, TokenGte,
		TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenPercent:
		return true
	}
	for _, keyword := range []string{"EQUALS", "LESS", "GREATER", "BETWEEN", "IN", "IS", "NULL", "HAS", "DIV", "MOD"} {
		if tok.Is(keyword) {
			return true
		}
	}
	if tok.Is("NOT") {
		following := s.peekAt(1)
		return following.Is("BETWEEN") || following.Is("IN") || following.Is("NULL") || following.Is("EQUALS")
	}
	return false
}

func (s *state) parseComparison() (expression.Predicate, error) {
	left, err := s.parseFunction()
	if err != nil {
		return nil, err
	}
	tok := s.peek()
	switch {
	case tok.Type == TokenEq || tok.Is("EQUALS"):
		s.next()
		return s.binary(left, operators.OperatorEqual)
	case tok.Type == TokenNe:
		s.next()
		return s.binary(left, operators.OperatorNotEqual)
	case tok.Type == TokenLt:
		s.next()
		return s.binary(left, operators.OperatorLessThan)
	case tok.Type == TokenLte:
		s.next()
		return s.binary(left, operators.OperatorLessThanOrEqual)
	case tok.Type == TokenGt:
		s.next()
		return s.binary(left, operators.OperatorGreaterThan)
	case tok.Type == TokenGte:
		s.next()
		return s.binary(left, operators.OperatorGreaterThanOrEqual)
	case tok.Is("LESS"), tok.Is("GREATER"):
		s.next()
		if err := s.expectKeyword("THAN"); err != nil {
			return nil, err
		}
		op := operators.OperatorLessThan
		if tok.Is("GREATER") {
			op = operators.OperatorGreaterThan
		}
		if s.peek().Is("OR") && s.peekAt(1).Is("EQUALS") {
			s.next()
			s.next()
			if op == operators.OperatorLessThan {
				op = operators.OperatorLessThanOrEqual
			} else {
				op = operators.OperatorGreaterThanOrEqual
			}
		}
		return s.binary(left, op)
	case tok.Is("BETWEEN"):
		s.next()
		return s.between(left, operators.OperatorBetween)
	case tok.Is("IN"):
		s.next()
		return s.in(left, operators.OperatorIn)
	case tok.Is("NULL"):
		s.next()
		return expression.IsNull(left), nil
	case tok.Is("NOT"):
		following := s.peekAt(1)
		switch {
		case following.Is("BETWEEN"):
			s.next()
			s.next()
			return s.between(left, operators.OperatorNotBetween)
		case following.Is("IN"):
			s.next()
			s.next()
			return s.in(left, operators.OperatorNotIn)
		case following.Is("NULL"):
			s.next()
			s.next()
			return expression.IsNotNull(left), nil
		case following.Is("EQUALS"):
			s.next()
			s.next()
			return s.binary(left, operators.OperatorNotEqual)
		}
		return nil, s.errorAt(following, "expected BETWEEN, IN, NULL or EQUALS after NOT")
	case tok.Is("IS"):
		s.next()
		return s.is(left)
	case tok.Is("HAS"):
		s.next()
		return s.has(left)
	}
	return expression.Test(left), nil
}

func (s *state) binary(left expression.Function, op operators.Operator) (expression.Predicate, error) {
	right, err := s.parseFunction()
	if err != nil {
		return nil, err
	}
	return expression.Compare(left, op, right), nil
}

func (s *state) between(left expression.Function, op operators.Operator) (expression.Predicate, error) {
	lower, err := s.parseFunction()
	if err != nil {
		return nil, err
	}
	if err := s.expectKeyword("AND"); err != nil {
		return nil, err
	}
	upper, err := s.parseFunction()
	if err != nil {
		return nil, err
	}
	return expression.Compare(left, op, lower, upper), nil
}

func (s *state) in(left expression.Function, op operators.Operator) (expression.Predicate, error) {
	items, err := s.parseFunctionList()
	if err != nil {
		return nil, err
	}
	return expression.Compare(left, op, items...), nil
}

func (s *state) is(left expression.Function) (expression.Predicate, error) {
	negated := false
	if s.peek().Is("NOT") {
		s.next()
		negated = true
	}
	tok := s.next()
	var op operators.Operator
	switch {
	case tok.Is("NULL"):
		op = operators.OperatorNull
	case tok.Is("BLANK"):
		op = operators.OperatorIsBlank
	case tok.Is("WORD"):
		op = operators.OperatorIsWord
	case tok.Is("LOWERCASE"):
		op = operators.OperatorIsLowerCase
	case tok.Is("UPPERCASE"):
		op = operators.OperatorIsUpperCase
	case tok.Is("LOWER"), tok.Is("UPPER"):
		if err := s.expectKeyword("CASE"); err != nil {
			return nil, err
		}
		op = operators.OperatorIsLowerCase
		if tok.Is("UPPER") {
			op = operators.OperatorIsUpperCase
		}
	default:
		return nil, s.errorAt(tok, "expected NULL, BLANK, WORD, LOWERCASE or UPPERCASE after IS")
	}
	if negated {
		op = op.Negate()
	}
	return expression.Compare(left, op), nil
}

func (s *state) has(left expression.Function) (expression.Predicate, error) {
	negated := false
	if s.peek().Is("NO") {
		s.next()
		negated = true
	}
	tok := s.next()
	var op operators.Operator
	switch {
	case tok.Is("LENGTH"):
		op = operators.OperatorHasLength
	case tok.Is("TEXT"):
		op = operators.OperatorHasText
	default:
		return nil, s.errorAt(tok, "expected LENGTH or TEXT after HAS")
	}
	if negated {
		op = op.Negate()
	}
	return expression.Compare(left, op), nil
}

func (s *state) parseFunctionList() ([]expression.Function, error) {
	first, err := s.parseFunction()
	if err != nil {
		return nil, err
	}
	items := []expression.Function{first}
	for s.peek().Type == TokenComma {
		s.next()
		item, err := s.parseFunction()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *state) parseFunction() (expression.Function, error) {
	left, err := s.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		var op expression.ArithmeticOperator
		switch s.peek().Type {
		case TokenPlus:
			op = expression.OperatorAdd
		case TokenMinus:
			op = expression.OperatorSub
		default:
			return left, nil
		}
		s.next()
		right, err := s.parseTerm()
		if err != nil {
			return nil, err
		}
		left = expression.Arithmetic(left, op, right)
	}
}

func (s *state) parseTerm() (expression.Function, error) {
	left, err := s.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op expression.ArithmeticOperator
		tok := s.peek()
		switch {
		case tok.Type == TokenStar:
			op = expression.OperatorMul
		case tok.Type == TokenSlash || tok.Is("DIV"):
			op = expression.OperatorDiv
		case tok.Type == TokenPercent || tok.Is("MOD"):
			op = expression.OperatorMod
		default:
			return left, nil
		}
		s.next()
		right, err := s.parseUnary()
		if err != nil {
			return nil, err
		}
		left = expression.Arithmetic(left, op, right)
	}
}

func (s *state) parseUnary() (expression.Function, error) {
	if s.peek().Type == TokenMinus {
		s.next()
		operand, err := s.parseUnary()
		if err != nil {
			return nil, err
		}
		return expression.Negate(operand), nil
	}
	return s.parsePrimary()
}

func (s *state) parsePrimary() (expression.Function, error) {
	tok := s.peek()
	switch tok.Type {
	case TokenString:
		s.next()
		return expression.Literal(tok.Value), nil
	case TokenNumber:
		s.next()
		d, err := decimal.NewFromString(tok.Value)
		if err != nil {
			return nil, s.errorAt(tok, "malformed number")
		}
		return expression.Literal(d), nil
	case TokenDate:
		s.next()
		if !s.dates.Supports(tok.Value) {
			return nil, s.errorAt(tok, "unsupported date literal [%s]", tok.Value)
		}
		return expression.Date(tok.Value), nil
	case TokenQuestion:
		s.next()
		return s.property(tok, s.key)
	case TokenBang:
		if s.peekAt(1).Type == TokenLParen {
			return s.parseCall()
		}
	case TokenLParen:
		s.next()
		fn, err := s.parseFunction()
		if err != nil {
			return nil, err
		}
		if _, err := s.expect(TokenRParen, "')'"); err != nil {
			return nil, err
		}
		return fn, nil
	case TokenIdent:
		switch {
		case tok.Is("TRUE"):
			s.next()
			return expression.Literal(true), nil
		case tok.Is("FALSE"):
			s.next()
			return expression.Literal(false), nil
		case tok.Is("NULL"):
			s.next()
			return expression.Literal(nil), nil
		case s.peekAt(1).Type == TokenLParen:
			return s.parseCall()
		}
		s.next()
		path, err := s.parsePathFrom(tok)
		if err != nil {
			return nil, err
		}
		if path.Head() == "this" {
			path = path[1:]
		}
		return s.property(tok, path)
	}
	return nil, s.errorAt(tok, "unexpected %s", describe(tok))
}

func describe(tok Token) string {
	switch tok.Type {
	case TokenEOF:
		return "end of input"
	case TokenIdent:
		return "'" + tok.Value + "'"
	}
	return fmt.Sprintf("%s '%s'", tok.Type, tok.Value)
}

func (s *state) parseCall() (expression.Function, error) {
	name := s.next()
	s.next() // (
	var args []expression.Function
	if s.peek().Type != TokenRParen {
		var err error
		if args, err = s.parseFunctionList(); err != nil {
			return nil, err
		}
	}
	if _, err := s.expect(TokenRParen, "')' after function arguments"); err != nil {
		return nil, err
	}
	fn, err := s.functions.Lookup(name.Value, args)
	if err != nil {
		return nil, &faults.ParseError{
			Message: err.Error(),
			Line:    name.Line,
			Column:  name.Column,
			Near:    name.Value,
			Err:     err,
		}
	}
	if fn == nil {
		return nil, &faults.FunctionResolutionError{Name: name.Value, Line: name.Line, Column: name.Column}
	}
	return expression.Call(name.Value, fn, args...), nil
}

// parsePathFrom continues a property path whose first identifier has been
// consumed.
func (s *state) parsePathFrom(first Token) (beans.Path, error) {
	path := beans.Path{beans.Property(first.Value)}
	for {
		switch s.peek().Type {
		case TokenDot:
			if s.peekAt(1).Type != TokenIdent {
				return nil, s.errorAt(s.peekAt(1), "expected property name after '.'")
			}
			s.next()
			path = append(path, beans.Property(s.next().Value))
		case TokenLBracket:
			s.next()
			tok := s.next()
			switch tok.Type {
			case TokenNumber:
				n, err := strconv.Atoi(tok.Value)
				if err != nil {
					return nil, s.errorAt(tok, "index must be an integer")
				}
				path = append(path, beans.Index(n))
			case TokenString, TokenIdent:
				path = append(path, beans.Key(tok.Value))
			default:
				return nil, s.errorAt(tok, "expected index or key")
			}
			if _, err := s.expect(TokenRBracket, "']'"); err != nil {
				return nil, err
			}
		default:
			return path, nil
		}
	}
}

func (s *state) property(at Token, path beans.Path) (expression.Function, error) {
	if s.targetType == nil || len(path) == 0 {
		return expression.Property(path), nil
	}
	accessor, err := beans.Compile(s.targetType, path)
	if err != nil {
		return nil, &faults.ParseError{
			Message: err.Error(),
			Line:    at.Line,
			Column:  at.Column,
			Near:    path.String(),
		}
	}
	return expression.CompiledProperty(path, accessor), nil
}
