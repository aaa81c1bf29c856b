package validator

import (
	"context"
	"reflect"

	"github.com/krew-solutions/ascetic-valang-go/valang/binding"
	"github.com/krew-solutions/ascetic-valang-go/valang/expression/parser"
	"github.com/krew-solutions/ascetic-valang-go/valang/rules"
)

// ValangValidator checks one object against a Valang rule text without a
// registry and without cascading. Rules on a key report at that key,
// rules on '?' report on the object.
type ValangValidator struct {
	target reflect.Type
	rules  []*rules.ValidationRule
}

// NewValangValidator parses text. A non-nil target compiles property paths
// for that type and restricts Supports to it.
func NewValangValidator(text string, target reflect.Type, opts ...parser.Option) (*ValangValidator, error) {
	if target != nil {
		target = elem(target)
		opts = append(append([]parser.Option(nil), opts...), parser.WithTargetType(target))
	}
	rs, err := rules.ParseValang(text, opts...)
	if err != nil {
		return nil, err
	}
	return &ValangValidator{target: target, rules: rs}, nil
}

func (v *ValangValidator) Rules() []*rules.ValidationRule {
	return append([]*rules.ValidationRule(nil), v.rules...)
}

func (v *ValangValidator) Supports(t reflect.Type) bool {
	return v.target == nil || t != nil && elem(t) == v.target
}

// Validate records failing rules in errs. A failing rule does not stop the
// remaining ones.
func (v *ValangValidator) Validate(ctx context.Context, obj any, errs *binding.Errors) error {
	r := &run{errs: errs}
	for _, rule := range v.rules {
		if err := r.applyGlobal(ctx, rule, obj); err != nil {
			return err
		}
	}
	return r.failures.ErrorOrNil()
}
