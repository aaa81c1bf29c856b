package rules

import (
	"context"

	"github.com/krew-solutions/ascetic-valang-go/valang/expression"
)

// ArgumentsResolver produces the arguments of an error message for a failed
// value.
type ArgumentsResolver interface {
	ResolveArguments(ctx context.Context, value any) ([]any, error)
}

type ArgumentsResolverFunc func(ctx context.Context, value any) ([]any, error)

func (f ArgumentsResolverFunc) ResolveArguments(ctx context.Context, value any) ([]any, error) {
	return f(ctx, value)
}

func NoArguments() ArgumentsResolver {
	return ArgumentsResolverFunc(func(context.Context, any) ([]any, error) {
		return nil, nil
	})
}

func StaticArguments(args ...any) ArgumentsResolver {
	return ArgumentsResolverFunc(func(context.Context, any) ([]any, error) {
		return append([]any(nil), args...), nil
	})
}

// FunctionArguments evaluates fns against the failed value.
func FunctionArguments(fns []expression.Function, opts ...expression.EvaluateOption) ArgumentsResolver {
	return ArgumentsResolverFunc(func(ctx context.Context, value any) ([]any, error) {
		args := make([]any, 0, len(fns))
		for _, fn := range fns {
			arg, err := expression.Evaluate(ctx, fn, value, opts...)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		return args, nil
	})
}
