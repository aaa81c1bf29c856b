package expression

import (
	"context"
	"fmt"
	"net/mail"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/krew-solutions/ascetic-valang-go/valang/faults"
	"github.com/krew-solutions/ascetic-valang-go/valang/operators"
)

// Callable is the body of a function invoked from an expression. Arguments
// arrive evaluated.
type Callable interface {
	Call(ctx context.Context, args []any) (any, error)
}

type CallableFunc func(ctx context.Context, args []any) (any, error)

func (f CallableFunc) Call(ctx context.Context, args []any) (any, error) {
	return f(ctx, args)
}

// FunctionResolver is consulted first when the parser meets a function name.
// found=false passes resolution on to the next source.
type FunctionResolver interface {
	ResolveFunction(name string, args []Function) (fn Callable, found bool, err error)
}

type FunctionResolverFunc func(name string, args []Function) (Callable, bool, error)

func (f FunctionResolverFunc) ResolveFunction(name string, args []Function) (Callable, bool, error) {
	return f(name, args)
}

// BeanRegistry is a container of named objects. Beans that are Callables or
// plain Go funcs can be invoked as functions.
type BeanRegistry interface {
	Bean(name string) (any, bool)
}

type Beans map[string]any

func (b Beans) Bean(name string) (any, bool) {
	bean, ok := b[name]
	return bean, ok
}

// Functions resolves function names in order: the custom resolver, the bean
// registry, then the built-in table. The first match wins.
type Functions struct {
	Custom FunctionResolver
	Beans  BeanRegistry
}

// Lookup returns (nil, nil) when no source knows the name.
func (f Functions) Lookup(name string, args []Function) (Callable, error) {
	if f.Custom != nil {
		fn, found, err := f.Custom.ResolveFunction(name, args)
		if err != nil || found {
			return fn, err
		}
	}
	if f.Beans != nil {
		if bean, ok := f.Beans.Bean(name); ok {
			if fn, ok := beanCallable(name, bean); ok {
				return fn, nil
			}
		}
	}
	if builtin, ok := builtins[name]; ok {
		if err := builtin.checkArity(name, len(args)); err != nil {
			return nil, err
		}
		return builtin.fn, nil
	}
	return nil, nil
}

// Builtins lists the names of the built-in functions.
func Builtins() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	return names
}

type builtin struct {
	min, max int
	fn       Callable
}

func (b builtin) checkArity(name string, n int) error {
	if n < b.min || n > b.max {
		return faults.NewArgumentTypeError(name, nil, fmt.Sprintf("expects %d..%d arguments, got %d", b.min, b.max, n))
	}
	return nil
}

var builtins map[string]builtin

func init() {
	length := builtin{1, 1, CallableFunc(lengthOf)}
	match := builtin{2, 2, CallableFunc(matches)}
	builtins = map[string]builtin{
		"len":     length,
		"length":  length,
		"size":    length,
		"count":   length,
		"upper":   {1, 1, CallableFunc(upper)},
		"lower":   {1, 1, CallableFunc(lower)},
		"!":       {1, 1, CallableFunc(not)},
		"resolve": {1, 2, CallableFunc(resolve)},
		"match":   match,
		"matches": match,
		"inRole":  {1, 1, CallableFunc(inRole)},
		"email":   {1, 1, CallableFunc(email)},
	}
}

func lengthOf(_ context.Context, args []any) (any, error) {
	v := operators.Indirect(args[0])
	if v == nil {
		return 0, nil
	}
	if s, ok := v.(string); ok {
		return utf8.RuneCountInString(s), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return utf8.RuneCountInString(rv.String()), nil
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Chan:
		return rv.Len(), nil
	}
	return nil, faults.NewArgumentTypeError("length", v, "value has no length")
}

func upper(_ context.Context, args []any) (any, error) {
	s, ok := operators.StringOf(args[0])
	if !ok {
		return nil, nil
	}
	return strings.ToUpper(s), nil
}

func lower(_ context.Context, args []any) (any, error) {
	s, ok := operators.StringOf(args[0])
	if !ok {
		return nil, nil
	}
	return strings.ToLower(s), nil
}

func not(_ context.Context, args []any) (any, error) {
	b, ok := operators.Indirect(args[0]).(bool)
	if !ok {
		return nil, faults.NewArgumentTypeError("!", args[0], "operand is not a boolean")
	}
	return !b, nil
}

// MessageCode is an error argument that is itself resolved through the
// message source, produced by resolve(code [, default]).
type MessageCode struct {
	Code           string
	DefaultMessage string
}

func (m MessageCode) String() string {
	if m.DefaultMessage != "" {
		return m.DefaultMessage
	}
	return m.Code
}

func resolve(_ context.Context, args []any) (any, error) {
	code, ok := operators.StringOf(args[0])
	if !ok || code == "" {
		return nil, faults.NewArgumentTypeError("resolve", args[0], "code must be a non-empty string")
	}
	m := MessageCode{Code: code}
	if len(args) == 2 {
		m.DefaultMessage, _ = operators.StringOf(args[1])
	}
	return m, nil
}

var (
	regexCache = make(map[string]*regexp.Regexp)
	regexMu    sync.RWMutex
)

// CompiledRegexp returns a cached compiled pattern.
func CompiledRegexp(pattern string) (*regexp.Regexp, error) {
	regexMu.RLock()
	if re, exists := regexCache[pattern]; exists {
		regexMu.RUnlock()
		return re, nil
	}
	regexMu.RUnlock()

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	regexMu.Lock()
	regexCache[pattern] = re
	regexMu.Unlock()

	return re, nil
}

// matches(pattern, value) reports whether the whole value matches pattern.
func matches(_ context.Context, args []any) (any, error) {
	pattern, ok := operators.StringOf(args[0])
	if !ok {
		return nil, faults.NewArgumentTypeError("match", args[0], "pattern must be a string")
	}
	value, ok := operators.StringOf(args[1])
	if !ok {
		return false, nil
	}
	re, err := CompiledRegexp("^(?:" + pattern + ")$")
	if err != nil {
		return nil, faults.NewArgumentTypeError("match", pattern, err.Error())
	}
	return re.MatchString(value), nil
}

// RoleChecker answers inRole(role) for the principal of the evaluation.
type RoleChecker interface {
	InRole(role string) bool
}

type Roles []string

func (r Roles) InRole(role string) bool {
	for _, candidate := range r {
		if candidate == role {
			return true
		}
	}
	return false
}

type roleCheckerKey struct{}

func WithRoleChecker(ctx context.Context, checker RoleChecker) context.Context {
	return context.WithValue(ctx, roleCheckerKey{}, checker)
}

func RoleCheckerFrom(ctx context.Context) (RoleChecker, bool) {
	checker, ok := ctx.Value(roleCheckerKey{}).(RoleChecker)
	return checker, ok
}

func inRole(ctx context.Context, args []any) (any, error) {
	role, ok := operators.StringOf(args[0])
	if !ok {
		return false, nil
	}
	checker, ok := RoleCheckerFrom(ctx)
	if !ok {
		return false, nil
	}
	return checker.InRole(role), nil
}

// ValidEmail accepts a bare RFC 5322 address, without display name.
func ValidEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func email(_ context.Context, args []any) (any, error) {
	s, ok := operators.StringOf(args[0])
	if !ok {
		return false, nil
	}
	return ValidEmail(s), nil
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// beanCallable adapts Callables and Go funcs found in a bean registry.
func beanCallable(name string, bean any) (Callable, bool) {
	if fn, ok := bean.(Callable); ok {
		return fn, true
	}
	if fn, ok := bean.(func(context.Context, []any) (any, error)); ok {
		return CallableFunc(fn), true
	}
	rv := reflect.ValueOf(bean)
	if rv.Kind() != reflect.Func {
		return nil, false
	}
	rt := rv.Type()
	if rt.NumOut() == 0 || rt.NumOut() > 2 || rt.NumOut() == 2 && !rt.Out(1).Implements(errorType) {
		return nil, false
	}
	return CallableFunc(func(_ context.Context, args []any) (any, error) {
		in, err := convertArgs(name, rt, args)
		if err != nil {
			return nil, err
		}
		out := rv.Call(in)
		if len(out) == 2 && !out[1].IsNil() {
			return nil, out[1].Interface().(error)
		}
		return out[0].Interface(), nil
	}), true
}

func convertArgs(name string, rt reflect.Type, args []any) ([]reflect.Value, error) {
	if !rt.IsVariadic() && len(args) != rt.NumIn() || rt.IsVariadic() && len(args) < rt.NumIn()-1 {
		return nil, faults.NewArgumentTypeError(name, len(args), fmt.Sprintf("expects %d arguments", rt.NumIn()))
	}
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		var want reflect.Type
		if rt.IsVariadic() && i >= rt.NumIn()-1 {
			want = rt.In(rt.NumIn() - 1).Elem()
		} else {
			want = rt.In(i)
		}
		v, err := convertArg(name, arg, want)
		if err != nil {
			return nil, err
		}
		in[i] = v
	}
	return in, nil
}

func convertArg(name string, arg any, want reflect.Type) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(want), nil
	}
	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(want) {
		return v, nil
	}
	if d, ok := operators.ToDecimal(arg); ok {
		switch want.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return reflect.ValueOf(d.IntPart()).Convert(want), nil
		case reflect.Float32, reflect.Float64:
			f, _ := d.Float64()
			return reflect.ValueOf(f).Convert(want), nil
		}
	}
	if v.Type().ConvertibleTo(want) && v.Kind() == want.Kind() {
		return v.Convert(want), nil
	}
	return reflect.Value{}, faults.NewArgumentTypeError(name, arg, fmt.Sprintf("cannot use as %s", want))
}
