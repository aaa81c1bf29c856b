package rules

import (
	"context"

	"github.com/krew-solutions/ascetic-valang-go/valang/operators"
)

type contextsKey struct{}

// WithContexts activates validation context tokens for rules declared with
// InContexts. Tokens accumulate over nested calls.
func WithContexts(ctx context.Context, tokens ...string) context.Context {
	active := append(ActiveContexts(ctx), tokens...)
	return context.WithValue(ctx, contextsKey{}, active)
}

// ActiveContexts returns the tokens activated on ctx.
func ActiveContexts(ctx context.Context) []string {
	active, _ := ctx.Value(contextsKey{}).([]string)
	return append([]string(nil), active...)
}

func anyActive(ctx context.Context, tokens []string) bool {
	active, _ := ctx.Value(contextsKey{}).([]string)
	for _, a := range active {
		for _, t := range tokens {
			if a == t {
				return true
			}
		}
	}
	return false
}

func isNil(value any) bool {
	return operators.Indirect(value) == nil
}
