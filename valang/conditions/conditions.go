// Package conditions holds reusable boolean checks over a single value.
//
// A Condition that does not support nil is never asked about a nil value:
// the owning rule treats the nil as not applicable instead.
package conditions

import (
	"context"
)

type Condition interface {
	Check(ctx context.Context, value any) (bool, error)
	SupportsNull() bool
}

// Func adapts a function to a Condition that is also asked about nil.
type Func func(ctx context.Context, value any) (bool, error)

func (f Func) Check(ctx context.Context, value any) (bool, error) {
	return f(ctx, value)
}

func (f Func) SupportsNull() bool {
	return true
}

type condition struct {
	check        func(ctx context.Context, value any) (bool, error)
	supportsNull bool
}

func (c condition) Check(ctx context.Context, value any) (bool, error) {
	return c.check(ctx, value)
}

func (c condition) SupportsNull() bool {
	return c.supportsNull
}

// Always holds for every value, nil included. It is the default
// applicability of a rule.
func Always() Condition {
	return Func(func(context.Context, any) (bool, error) {
		return true, nil
	})
}

func Not(c Condition) Condition {
	return condition{
		check: func(ctx context.Context, value any) (bool, error) {
			ok, err := c.Check(ctx, value)
			return !ok, err
		},
		supportsNull: c.SupportsNull(),
	}
}

// All holds when every operand holds. Operands that do not support nil are
// skipped for nil values.
func All(cs ...Condition) Condition {
	return junction(cs, true)
}

// Any holds when at least one operand holds.
func Any(cs ...Condition) Condition {
	return junction(cs, false)
}

func junction(cs []Condition, all bool) Condition {
	return Func(func(ctx context.Context, value any) (bool, error) {
		for _, c := range cs {
			if value == nil && !c.SupportsNull() {
				continue
			}
			ok, err := c.Check(ctx, value)
			if err != nil {
				return false, err
			}
			if ok != all {
				return ok, nil
			}
		}
		return all, nil
	})
}
