package rules

import (
	"github.com/krew-solutions/ascetic-valang-go/valang/conditions"
	"github.com/krew-solutions/ascetic-valang-go/valang/expression"
	"github.com/krew-solutions/ascetic-valang-go/valang/expression/parser"
)

// ParseValang parses rule blocks into rules evaluated against the whole
// object. Each rule reports at its key, or globally for '?'.
func ParseValang(text string, opts ...parser.Option) ([]*ValidationRule, error) {
	p := parser.New(opts...)
	parsed, err := p.ParseRules(text)
	if err != nil {
		return nil, err
	}
	return FromValang(parsed, expression.WithDateParser(p.DateParser()))
}

// FromValang converts parsed rule blocks. A block without a code uses its
// message as the code.
func FromValang(parsed []parser.Rule, opts ...expression.EvaluateOption) ([]*ValidationRule, error) {
	result := make([]*ValidationRule, 0, len(parsed))
	for _, pr := range parsed {
		code := pr.Code
		if code == "" {
			code = pr.Message
		}
		ruleOpts := []Option{OnField(pr.Key.String())}
		if len(pr.Args) > 0 {
			ruleOpts = append(ruleOpts, WithArguments(FunctionArguments(pr.Args, opts...)))
		}
		r, err := NewValidationRule(conditions.Expression(pr.Predicate, opts...), code, pr.Message, ruleOpts...)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, nil
}
