// Package configuration groups the rules of one validated type and caches
// them per type.
package configuration

import (
	"context"
	"reflect"

	"github.com/krew-solutions/ascetic-valang-go/valang/binding"
	"github.com/krew-solutions/ascetic-valang-go/valang/conditions"
	"github.com/krew-solutions/ascetic-valang-go/valang/rules"
)

// Validator is custom validation code registered next to the declarative
// rules of a type. It runs only for types it supports.
type Validator interface {
	Supports(t reflect.Type) bool
	Validate(ctx context.Context, obj any, errs *binding.Errors) error
}

// PropertyRules are the rules of one property, in declaration order.
type PropertyRules struct {
	Property string
	Rules    []*rules.ValidationRule
}

// Cascade names a property whose value is validated in turn. The property
// is skipped when Applicability does not hold for the owning object.
type Cascade struct {
	Property      string
	Applicability conditions.Condition
}

// BeanValidationConfiguration is immutable once built.
type BeanValidationConfiguration struct {
	globalRules      []*rules.ValidationRule
	propertyRules    []PropertyRules
	cascades         []Cascade
	customValidators []Validator
	methodRules      []*rules.ValidationRule
}

func (c *BeanValidationConfiguration) GlobalRules() []*rules.ValidationRule {
	return append([]*rules.ValidationRule(nil), c.globalRules...)
}

func (c *BeanValidationConfiguration) PropertyRules() []PropertyRules {
	result := make([]PropertyRules, len(c.propertyRules))
	for i, pr := range c.propertyRules {
		result[i] = PropertyRules{Property: pr.Property, Rules: append([]*rules.ValidationRule(nil), pr.Rules...)}
	}
	return result
}

// RulesOf returns the rules of property, or nil.
func (c *BeanValidationConfiguration) RulesOf(property string) []*rules.ValidationRule {
	for _, pr := range c.propertyRules {
		if pr.Property == property {
			return append([]*rules.ValidationRule(nil), pr.Rules...)
		}
	}
	return nil
}

func (c *BeanValidationConfiguration) Cascades() []Cascade {
	return append([]Cascade(nil), c.cascades...)
}

func (c *BeanValidationConfiguration) CustomValidators() []Validator {
	return append([]Validator(nil), c.customValidators...)
}

func (c *BeanValidationConfiguration) MethodRules() []*rules.ValidationRule {
	return append([]*rules.ValidationRule(nil), c.methodRules...)
}

// IsEmpty reports a type that is configured but carries no rules.
func (c *BeanValidationConfiguration) IsEmpty() bool {
	return len(c.globalRules) == 0 && len(c.propertyRules) == 0 && len(c.cascades) == 0 &&
		len(c.customValidators) == 0 && len(c.methodRules) == 0
}
