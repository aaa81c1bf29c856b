// Package rules binds conditions to error metadata.
package rules

import (
	"context"

	"github.com/krew-solutions/ascetic-valang-go/valang/conditions"
	"github.com/krew-solutions/ascetic-valang-go/valang/faults"
)

type Option func(*ValidationRule)

// WithApplicability restricts the rule to values for which c holds.
func WithApplicability(c conditions.Condition) Option {
	return func(r *ValidationRule) {
		r.applicability = c
	}
}

func WithArguments(resolver ArgumentsResolver) Option {
	return func(r *ValidationRule) {
		r.arguments = resolver
	}
}

// InContexts makes the rule apply only while one of tokens is active, see
// WithContexts.
func InContexts(tokens ...string) Option {
	return func(r *ValidationRule) {
		r.contexts = append(r.contexts, tokens...)
	}
}

// OnField makes a rule on the whole object report its failure at field.
func OnField(field string) Option {
	return func(r *ValidationRule) {
		r.field = field
	}
}

// ValidationRule is immutable once built.
type ValidationRule struct {
	condition      conditions.Condition
	applicability  conditions.Condition
	errorCode      string
	defaultMessage string
	arguments      ArgumentsResolver
	contexts       []string
	field          string
}

func NewValidationRule(condition conditions.Condition, errorCode, defaultMessage string, opts ...Option) (*ValidationRule, error) {
	if condition == nil {
		return nil, faults.NewConfigurationError("rule "+errorCode, "condition is required")
	}
	if errorCode == "" {
		return nil, faults.NewConfigurationError("rule", "error code is required")
	}
	r := &ValidationRule{
		condition:      condition,
		applicability:  conditions.Always(),
		errorCode:      errorCode,
		defaultMessage: defaultMessage,
		arguments:      NoArguments(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func MustValidationRule(condition conditions.Condition, errorCode, defaultMessage string, opts ...Option) *ValidationRule {
	r, err := NewValidationRule(condition, errorCode, defaultMessage, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *ValidationRule) Condition() conditions.Condition {
	return r.condition
}

func (r *ValidationRule) ErrorCode() string {
	return r.errorCode
}

func (r *ValidationRule) DefaultMessage() string {
	return r.defaultMessage
}

func (r *ValidationRule) Field() string {
	return r.field
}

func (r *ValidationRule) Contexts() []string {
	return append([]string(nil), r.contexts...)
}

// IsApplicable must hold before Check is consulted. It is false when the
// rule is bound to contexts none of which is active, or for nil when the
// condition does not support nil; otherwise the applicability condition
// decides.
func (r *ValidationRule) IsApplicable(ctx context.Context, value any) (bool, error) {
	if len(r.contexts) > 0 && !anyActive(ctx, r.contexts) {
		return false, nil
	}
	if isNil(value) && !r.condition.SupportsNull() {
		return false, nil
	}
	if isNil(value) && !r.applicability.SupportsNull() {
		return false, nil
	}
	return r.applicability.Check(ctx, value)
}

func (r *ValidationRule) Check(ctx context.Context, value any) (bool, error) {
	return r.condition.Check(ctx, value)
}

// Arguments resolves the error arguments for a failure of value.
func (r *ValidationRule) Arguments(ctx context.Context, value any) ([]any, error) {
	return r.arguments.ResolveArguments(ctx, value)
}
