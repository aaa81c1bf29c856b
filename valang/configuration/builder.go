package configuration

import (
	"reflect"

	"github.com/hashicorp/go-multierror"

	"github.com/krew-solutions/ascetic-valang-go/valang/beans"
	"github.com/krew-solutions/ascetic-valang-go/valang/conditions"
	"github.com/krew-solutions/ascetic-valang-go/valang/expression/parser"
	"github.com/krew-solutions/ascetic-valang-go/valang/faults"
	"github.com/krew-solutions/ascetic-valang-go/valang/rules"
)

type valangSource struct {
	text string
	opts []parser.Option
}

type methodRule struct {
	method  string
	code    string
	message string
	opts    []rules.Option
}

// Builder assembles a BeanValidationConfiguration. Problems are collected
// and reported together by Build.
type Builder struct {
	globalRules      []*rules.ValidationRule
	propertyRules    []PropertyRules
	cascades         []Cascade
	customValidators []Validator
	methods          []methodRule
	valang           []valangSource
	errs             *multierror.Error
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) Global(rs ...*rules.ValidationRule) *Builder {
	b.globalRules = append(b.globalRules, rs...)
	return b
}

// Property appends rules to property, keeping the order in which
// properties were first declared.
func (b *Builder) Property(property string, rs ...*rules.ValidationRule) *Builder {
	if property == "" {
		b.errs = multierror.Append(b.errs, faults.NewConfigurationError("property rules", "property name is required"))
		return b
	}
	for i := range b.propertyRules {
		if b.propertyRules[i].Property == property {
			b.propertyRules[i].Rules = append(b.propertyRules[i].Rules, rs...)
			return b
		}
	}
	b.propertyRules = append(b.propertyRules, PropertyRules{Property: property, Rules: rs})
	return b
}

func (b *Builder) Cascade(property string) *Builder {
	return b.CascadeWhen(property, conditions.Always())
}

func (b *Builder) CascadeWhen(property string, applicability conditions.Condition) *Builder {
	if property == "" {
		b.errs = multierror.Append(b.errs, faults.NewConfigurationError("cascade", "property name is required"))
		return b
	}
	if applicability == nil {
		applicability = conditions.Always()
	}
	b.cascades = append(b.cascades, Cascade{Property: property, Applicability: applicability})
	return b
}

func (b *Builder) Custom(vs ...Validator) *Builder {
	b.customValidators = append(b.customValidators, vs...)
	return b
}

// Method adds a rule calling a validation method of the object, see
// conditions.Method.
func (b *Builder) Method(method, code, message string, opts ...rules.Option) *Builder {
	b.methods = append(b.methods, methodRule{method: method, code: code, message: message, opts: opts})
	return b
}

// Valang adds the rules of a Valang text as rules on the whole object. The
// text is parsed by Build, against the target type when one is given.
func (b *Builder) Valang(text string, opts ...parser.Option) *Builder {
	b.valang = append(b.valang, valangSource{text: text, opts: opts})
	return b
}

// Build checks the configuration without knowing the validated type.
func (b *Builder) Build() (*BeanValidationConfiguration, error) {
	return b.BuildFor(nil)
}

// BuildFor also checks property names, cascades and methods against t and
// compiles Valang property paths for t.
func (b *Builder) BuildFor(t reflect.Type) (*BeanValidationConfiguration, error) {
	errs := b.errs
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	c := &BeanValidationConfiguration{
		globalRules:      append([]*rules.ValidationRule(nil), b.globalRules...),
		propertyRules:    append([]PropertyRules(nil), b.propertyRules...),
		cascades:         append([]Cascade(nil), b.cascades...),
		customValidators: append([]Validator(nil), b.customValidators...),
	}

	for _, src := range b.valang {
		opts := src.opts
		if t != nil {
			opts = append(append([]parser.Option(nil), opts...), parser.WithTargetType(t))
		}
		parsed, err := rules.ParseValang(src.text, opts...)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		c.globalRules = append(c.globalRules, parsed...)
	}

	for _, m := range b.methods {
		if t != nil {
			if err := conditions.CheckMethod(t, m.method); err != nil {
				errs = multierror.Append(errs, err)
				continue
			}
		}
		code := m.code
		if code == "" {
			code = m.method
		}
		r, err := rules.NewValidationRule(conditions.Method(m.method), code, m.message, m.opts...)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		c.methodRules = append(c.methodRules, r)
	}

	if t != nil {
		for _, pr := range c.propertyRules {
			errs = checkProperty(errs, t, pr.Property)
		}
		for _, cascade := range c.cascades {
			errs = checkProperty(errs, t, cascade.Property)
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return c, nil
}

func checkProperty(errs *multierror.Error, t reflect.Type, property string) *multierror.Error {
	path, err := beans.ParsePath(property)
	if err != nil {
		return multierror.Append(errs, err)
	}
	if _, err := beans.TypeOf(t, path); err != nil {
		return multierror.Append(errs, err)
	}
	return errs
}
