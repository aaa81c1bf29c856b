package source

import (
	"reflect"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/krew-solutions/ascetic-valang-go/valang/conditions"
	"github.com/krew-solutions/ascetic-valang-go/valang/configuration"
	"github.com/krew-solutions/ascetic-valang-go/valang/expression"
	"github.com/krew-solutions/ascetic-valang-go/valang/expression/parser"
	"github.com/krew-solutions/ascetic-valang-go/valang/faults"
	"github.com/krew-solutions/ascetic-valang-go/valang/rules"
)

// Rule kinds.
const (
	KindNotNull    = "not-null"
	KindNotBlank   = "not-blank"
	KindLength     = "length"
	KindRange      = "range"
	KindRegexp     = "regexp"
	KindEmail      = "email"
	KindUUID       = "uuid"
	KindInFuture   = "in-future"
	KindInPast     = "in-past"
	KindExpression = "expression"
)

type CompilerOption func(*Compiler)

// WithParserOptions passes opts to every Valang text of a document.
func WithParserOptions(opts ...parser.Option) CompilerOption {
	return func(c *Compiler) {
		c.parserOpts = append(c.parserOpts, opts...)
	}
}

// WithClock sets the time in-future and in-past rules compare with.
func WithClock(now func() time.Time) CompilerOption {
	return func(c *Compiler) {
		c.now = now
	}
}

func WithLogger(logger zerolog.Logger) CompilerOption {
	return func(c *Compiler) {
		c.logger = logger.With().Str("component", "valang.source").Logger()
	}
}

// Compiler turns document classes into configurations.
type Compiler struct {
	parserOpts []parser.Option
	now        func() time.Time
	logger     zerolog.Logger
}

func NewCompiler(opts ...CompilerOption) *Compiler {
	c := &Compiler{
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile builds the configuration of class for t. A nil t skips the
// checks against the Go type. Every problem of the class is reported.
func (c *Compiler) Compile(class Class, t reflect.Type) (*configuration.BeanValidationConfiguration, error) {
	var errs *multierror.Error
	b := configuration.NewBuilder()

	for _, def := range class.Global {
		r, err := c.rule(def, t, true)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		b.Global(r)
	}

	for _, prop := range class.Properties {
		for _, def := range prop.Rules {
			r, err := c.rule(def, nil, false)
			if err != nil {
				errs = multierror.Append(errs, &faults.ConfigurationError{Subject: "property " + prop.Name, Reason: "invalid rule", Err: err})
				continue
			}
			b.Property(prop.Name, r)
		}
		if prop.CascadeIf != "" {
			p := c.parser(t)
			pred, err := p.ParseExpression(prop.CascadeIf)
			if err != nil {
				errs = multierror.Append(errs, err)
				continue
			}
			b.CascadeWhen(prop.Name, conditions.Expression(pred, expression.WithDateParser(p.DateParser())))
		} else if prop.Cascade {
			b.Cascade(prop.Name)
		}
	}

	for _, m := range class.Methods {
		b.Method(m.Name, m.Code, m.Message, rules.InContexts(splitList(m.Contexts)...))
	}
	for _, text := range class.Valang {
		b.Valang(text, c.parserOpts...)
	}

	cfg, err := b.BuildFor(t)
	if err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := errs.ErrorOrNil(); err != nil {
		c.logger.Error().Err(err).Str("class", class.Name).Msg("invalid validation configuration")
		return nil, err
	}
	c.logger.Debug().Str("class", class.Name).Msg("compiled validation configuration")
	return cfg, nil
}

func (c *Compiler) parser(target reflect.Type) *parser.Parser {
	opts := c.parserOpts
	if target != nil {
		opts = append(append([]parser.Option(nil), opts...), parser.WithTargetType(target))
	}
	return parser.New(opts...)
}

// rule compiles one definition. Object level rules see target, property
// rules see the property value whose type is not known here.
func (c *Compiler) rule(def RuleDef, target reflect.Type, global bool) (*rules.ValidationRule, error) {
	p := c.parser(target)
	evalOpts := []expression.EvaluateOption{expression.WithDateParser(p.DateParser())}

	cond, err := c.condition(def, p, evalOpts)
	if err != nil {
		return nil, err
	}

	var opts []rules.Option
	if def.Args != "" {
		fns, err := p.ParseFunctions(def.Args)
		if err != nil {
			return nil, err
		}
		opts = append(opts, rules.WithArguments(rules.FunctionArguments(fns, evalOpts...)))
	}
	if def.ApplyIf != "" {
		pred, err := p.ParseExpression(def.ApplyIf)
		if err != nil {
			return nil, err
		}
		opts = append(opts, rules.WithApplicability(conditions.Expression(pred, evalOpts...)))
	}
	if contexts := splitList(def.Contexts); len(contexts) > 0 {
		opts = append(opts, rules.InContexts(contexts...))
	}
	if def.Field != "" {
		if !global {
			return nil, faults.NewConfigurationError("rule "+def.Kind, "field is only allowed on object level rules")
		}
		opts = append(opts, rules.OnField(def.Field))
	}

	code := def.Code
	if code == "" {
		code = def.Kind
	}
	return rules.NewValidationRule(cond, code, def.Message, opts...)
}

func (c *Compiler) condition(def RuleDef, p *parser.Parser, evalOpts []expression.EvaluateOption) (conditions.Condition, error) {
	switch strings.ToLower(def.Kind) {
	case KindNotNull:
		return conditions.NotNull(), nil
	case KindNotBlank:
		return conditions.NotBlank(), nil
	case KindLength:
		for _, b := range []Bound{def.Min, def.Max} {
			if b.Set && !b.Value.IsInteger() {
				return nil, faults.NewConfigurationError("rule "+def.Kind, "length bound "+b.Value.String()+" is not an integer")
			}
		}
		return conditions.Length(def.Min.Int(), def.Max.Int())
	case KindRange:
		return conditions.Range(def.Min.NullDecimal(), def.Max.NullDecimal())
	case KindRegexp:
		if def.Expression == "" {
			return nil, faults.NewConfigurationError("rule "+def.Kind, "expression is required")
		}
		return conditions.Regexp(def.Expression)
	case KindEmail:
		return conditions.Email(), nil
	case KindUUID:
		return conditions.UUID(), nil
	case KindInFuture:
		return conditions.InFuture(c.now), nil
	case KindInPast:
		return conditions.InPast(c.now), nil
	case KindExpression:
		if def.Expression == "" {
			return nil, faults.NewConfigurationError("rule "+def.Kind, "expression is required")
		}
		pred, err := p.ParseExpression(def.Expression)
		if err != nil {
			return nil, err
		}
		return conditions.Expression(pred, evalOpts...), nil
	}
	return nil, faults.NewConfigurationError("rule "+def.Kind, "unknown rule kind")
}

func splitList(s string) []string {
	var result []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	return result
}
