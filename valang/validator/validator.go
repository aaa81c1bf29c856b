// Package validator applies validation configurations to object graphs.
//
// BeanValidator looks up the configuration of every object it reaches and
// follows cascade properties into nested objects, collections and
// string-keyed maps. Failures are recorded in a binding.Errors; the error
// returned by Validate is reserved for broken rules.
package validator

import (
	"context"
	"reflect"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/krew-solutions/ascetic-valang-go/valang/binding"
	"github.com/krew-solutions/ascetic-valang-go/valang/configuration"
	"github.com/krew-solutions/ascetic-valang-go/valang/faults"
	"github.com/krew-solutions/ascetic-valang-go/valang/rules"
)

type Option func(*BeanValidator)

// WithShortCircuit controls whether the first failing rule of a property
// stops the remaining rules of that property. It is on by default.
func WithShortCircuit(enabled bool) Option {
	return func(v *BeanValidator) {
		v.shortCircuit = enabled
	}
}

// WithContexts activates tokens for every validation, in addition to the
// tokens carried by the context passed to Validate.
func WithContexts(tokens ...string) Option {
	return func(v *BeanValidator) {
		v.contexts = append(v.contexts, tokens...)
	}
}

// WithStrict makes validating a root object of an unknown type a
// configuration error instead of a no-op. Nested objects of unknown types
// are skipped either way.
func WithStrict(strict bool) Option {
	return func(v *BeanValidator) {
		v.strict = strict
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(v *BeanValidator) {
		v.logger = logger.With().Str("component", "valang.validator").Logger()
	}
}

// BeanValidator is safe for concurrent use; all state of one validation is
// local to the call.
type BeanValidator struct {
	registry     *configuration.Registry
	shortCircuit bool
	strict       bool
	contexts     []string
	logger       zerolog.Logger
}

func New(registry *configuration.Registry, opts ...Option) *BeanValidator {
	v := &BeanValidator{
		registry:     registry,
		shortCircuit: true,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate records the failures of obj and everything reachable from it
// through cascades in errs. Type mismatches and lookup failures abort the
// validation. Failing validation methods and custom validators do not; their
// errors are returned together once the graph has been walked.
func (v *BeanValidator) Validate(ctx context.Context, obj any, errs *binding.Errors) error {
	if len(v.contexts) > 0 {
		ctx = rules.WithContexts(ctx, v.contexts...)
	}
	r := &run{
		validator: v,
		errs:      errs,
		visited:   make(map[identity]struct{}),
		logger:    v.logger.With().Str("run", ulid.Make().String()).Logger(),
	}

	if v.strict {
		if err := v.checkKnown(ctx, obj); err != nil {
			return err
		}
	}

	if err := r.validate(ctx, obj); err != nil {
		r.logger.Error().Err(err).Msg("validation aborted")
		return err
	}
	r.logger.Debug().Int("objects", len(r.visited)).Int("errors", errs.ErrorCount()).Msg("validated")
	return r.failures.ErrorOrNil()
}

// ValidateObject validates obj into a fresh binding.Errors named after the
// type of obj.
func (v *BeanValidator) ValidateObject(ctx context.Context, obj any) (*binding.Errors, error) {
	name := ""
	if t := reflect.TypeOf(obj); t != nil {
		name = elem(t).Name()
	}
	errs := binding.NewErrors(name)
	err := v.Validate(ctx, obj, errs)
	return errs, err
}

func (v *BeanValidator) checkKnown(ctx context.Context, obj any) error {
	t := reflect.TypeOf(obj)
	if t == nil {
		return nil
	}
	_, status, err := v.registry.Lookup(ctx, t)
	if err != nil {
		return err
	}
	if status == configuration.Unknown {
		return faults.NewConfigurationError("type "+elem(t).String(), "no validation configuration")
	}
	return nil
}

// Supports makes a BeanValidator usable as a custom validator of another
// configuration. It accepts every type the registry knows.
func (v *BeanValidator) Supports(t reflect.Type) bool {
	_, status, err := v.registry.Lookup(context.Background(), t)
	return err == nil && status != configuration.Unknown
}

var _ configuration.Validator = (*BeanValidator)(nil)

func elem(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
