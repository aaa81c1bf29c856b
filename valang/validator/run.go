package validator

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/krew-solutions/ascetic-valang-go/valang/beans"
	"github.com/krew-solutions/ascetic-valang-go/valang/binding"
	"github.com/krew-solutions/ascetic-valang-go/valang/configuration"
	"github.com/krew-solutions/ascetic-valang-go/valang/faults"
	"github.com/krew-solutions/ascetic-valang-go/valang/rules"
)

// identity tells object instances apart. Only pointers to non-empty types
// have one; values are copies and are never treated as visited.
type identity struct {
	t   reflect.Type
	ptr uintptr
}

// run is the state of one Validate call.
type run struct {
	validator *BeanValidator
	errs      *binding.Errors
	visited   map[identity]struct{}
	failures  *multierror.Error
	logger    zerolog.Logger
}

func (r *run) validate(ctx context.Context, obj any) error {
	rv := reflect.ValueOf(obj)
	for rv.IsValid() && rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	if !rv.IsValid() || rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil
	}
	// Zero-size objects may share one address and cannot form cycles.
	if rv.Kind() == reflect.Pointer && rv.Type().Elem().Size() > 0 {
		id := identity{t: rv.Type(), ptr: rv.Pointer()}
		if _, ok := r.visited[id]; ok {
			return nil
		}
		r.visited[id] = struct{}{}
	}

	cfg, status, err := r.validator.registry.Lookup(ctx, rv.Type())
	if err != nil {
		return err
	}
	if cfg == nil {
		r.logger.Debug().Str("type", rv.Type().String()).Str("path", r.errs.NestedPath()).Msg("type is not validated")
		return nil
	}
	if status == configuration.ConfiguredEmpty {
		return nil
	}
	obj = rv.Interface()

	for _, rule := range cfg.GlobalRules() {
		if err := r.applyGlobal(ctx, rule, obj); err != nil {
			return err
		}
	}
	for _, pr := range cfg.PropertyRules() {
		if err := r.applyProperty(ctx, pr, obj); err != nil {
			return err
		}
	}
	for _, rule := range cfg.MethodRules() {
		if err := r.applyGlobal(ctx, rule, obj); err != nil {
			return err
		}
	}
	for _, custom := range cfg.CustomValidators() {
		if custom.Supports(rv.Type()) {
			r.applyCustom(ctx, custom, obj)
		}
	}
	for _, cascade := range cfg.Cascades() {
		if err := r.cascade(ctx, cascade, obj); err != nil {
			return err
		}
	}
	return nil
}

// evaluate reports whether rule holds for value. Errors of validation
// methods are recorded and the rule counts as passed.
func (r *run) evaluate(ctx context.Context, rule *rules.ValidationRule, value any) (bool, error) {
	applicable, err := rule.IsApplicable(ctx, value)
	if err == nil && applicable {
		var ok bool
		if ok, err = rule.Check(ctx, value); err == nil {
			return ok, nil
		}
	}
	if err == nil {
		return true, nil
	}
	var evalErr *faults.RuleEvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Path == "" {
			evalErr.Path = r.errs.NestedPath()
		}
		r.failures = multierror.Append(r.failures, evalErr)
		return true, nil
	}
	return false, err
}

func (r *run) arguments(ctx context.Context, rule *rules.ValidationRule, value any) ([]any, error) {
	args, err := rule.Arguments(ctx, value)
	if err != nil {
		return nil, fmt.Errorf("arguments of rule %s: %w", rule.ErrorCode(), err)
	}
	return args, nil
}

// applyGlobal rejects at the rule's field when it names one, otherwise at
// the object.
func (r *run) applyGlobal(ctx context.Context, rule *rules.ValidationRule, obj any) error {
	ok, err := r.evaluate(ctx, rule, obj)
	if err != nil || ok {
		return err
	}
	args, err := r.arguments(ctx, rule, obj)
	if err != nil {
		return err
	}
	if rule.Field() != "" {
		r.errs.RejectValue(rule.Field(), rule.ErrorCode(), args, rule.DefaultMessage())
	} else {
		r.errs.Reject(rule.ErrorCode(), args, rule.DefaultMessage())
	}
	return nil
}

func (r *run) applyProperty(ctx context.Context, pr configuration.PropertyRules, obj any) error {
	path, err := beans.ParsePath(pr.Property)
	if err != nil {
		return err
	}
	value, err := beans.Resolve(obj, path)
	if err != nil {
		return err
	}
	for _, rule := range pr.Rules {
		ok, err := r.evaluate(ctx, rule, value)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		args, err := r.arguments(ctx, rule, value)
		if err != nil {
			return err
		}
		r.errs.RejectValue(pr.Property, rule.ErrorCode(), args, rule.DefaultMessage())
		if r.validator.shortCircuit {
			return nil
		}
	}
	return nil
}

func (r *run) applyCustom(ctx context.Context, custom configuration.Validator, obj any) {
	if err := callCustom(ctx, custom, obj, r.errs); err != nil {
		r.failures = multierror.Append(r.failures, err)
	}
}

func callCustom(ctx context.Context, custom configuration.Validator, obj any, errs *binding.Errors) (err error) {
	name := fmt.Sprintf("%T", custom)
	path := errs.NestedPath()
	defer func() {
		if rec := recover(); rec != nil {
			err = &faults.RuleEvaluationError{Rule: name, Path: path, Err: faults.Recovered(rec)}
		}
	}()
	if err := custom.Validate(ctx, obj, errs); err != nil {
		return &faults.RuleEvaluationError{Rule: name, Path: path, Err: err}
	}
	return nil
}

func (r *run) cascade(ctx context.Context, cascade configuration.Cascade, obj any) error {
	ok, err := cascade.Applicability.Check(ctx, obj)
	if err != nil || !ok {
		return err
	}
	path, err := beans.ParsePath(cascade.Property)
	if err != nil {
		return err
	}
	value, err := beans.Resolve(obj, path)
	if err != nil || value == nil {
		return err
	}

	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() && isContainer(rv.Elem().Kind()) {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			segment := fmt.Sprintf("%s[%d]", cascade.Property, i)
			if err := r.nested(ctx, segment, rv.Index(i).Interface()); err != nil {
				return err
			}
		}
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			r.logger.Debug().Str("property", cascade.Property).Str("type", rv.Type().String()).Msg("skipping map without string keys")
			return nil
		}
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		for _, key := range keys {
			segment := fmt.Sprintf("%s[%s]", cascade.Property, key.String())
			if err := r.nested(ctx, segment, rv.MapIndex(key).Interface()); err != nil {
				return err
			}
		}
	default:
		return r.nested(ctx, cascade.Property, value)
	}
	return nil
}

// nested validates obj one level down. The path is restored on every exit.
func (r *run) nested(ctx context.Context, segment string, obj any) (err error) {
	r.errs.PushNestedPath(segment)
	defer func() {
		if popErr := r.errs.PopNestedPath(); popErr != nil && err == nil {
			err = popErr
		}
	}()
	return r.validate(ctx, obj)
}

func isContainer(k reflect.Kind) bool {
	return k == reflect.Slice || k == reflect.Array || k == reflect.Map
}
