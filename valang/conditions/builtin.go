package conditions

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/krew-solutions/ascetic-valang-go/valang/expression"
	"github.com/krew-solutions/ascetic-valang-go/valang/faults"
	"github.com/krew-solutions/ascetic-valang-go/valang/operators"
)

// NotNull fails for nil and nil pointers, maps and slices.
func NotNull() Condition {
	return Func(func(_ context.Context, value any) (bool, error) {
		return operators.Indirect(value) != nil && !isNilContainer(value), nil
	})
}

func isNilContainer(value any) bool {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

// NotBlank fails for nil and for strings holding only whitespace.
func NotBlank() Condition {
	return Func(func(_ context.Context, value any) (bool, error) {
		s, ok := operators.StringOf(value)
		return ok && strings.TrimSpace(s) != "", nil
	})
}

// Length bounds the rune count of a string or the size of a slice, array or
// map. A negative bound is unset; at least one bound is required.
func Length(min, max int) (Condition, error) {
	if min < 0 && max < 0 {
		return nil, faults.NewConfigurationError("length condition", "neither min nor max is set")
	}
	if max >= 0 && min > max {
		return nil, faults.NewConfigurationError("length condition", fmt.Sprintf("min %d exceeds max %d", min, max))
	}
	return condition{
		check: func(_ context.Context, value any) (bool, error) {
			n, err := sizeOf(value)
			if err != nil {
				return false, err
			}
			return (min < 0 || n >= min) && (max < 0 || n <= max), nil
		},
	}, nil
}

func sizeOf(value any) (int, error) {
	v := operators.Indirect(value)
	if s, ok := v.(string); ok {
		return utf8.RuneCountInString(s), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return utf8.RuneCountInString(rv.String()), nil
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len(), nil
	}
	return 0, faults.NewArgumentTypeError("length", value, "value has no length")
}

// Range bounds a numeric value; invalid NullDecimal bounds are unset. At
// least one bound is required.
func Range(min, max decimal.NullDecimal) (Condition, error) {
	if !min.Valid && !max.Valid {
		return nil, faults.NewConfigurationError("range condition", "neither min nor max is set")
	}
	if min.Valid && max.Valid && min.Decimal.GreaterThan(max.Decimal) {
		return nil, faults.NewConfigurationError("range condition", fmt.Sprintf("min %s exceeds max %s", min.Decimal, max.Decimal))
	}
	return condition{
		check: func(_ context.Context, value any) (bool, error) {
			d, ok := operators.ToDecimal(operators.Indirect(value))
			if !ok {
				return false, faults.NewArgumentTypeError("range", value, "value is not numeric")
			}
			if min.Valid && d.LessThan(min.Decimal) {
				return false, nil
			}
			return !max.Valid || !d.GreaterThan(max.Decimal), nil
		},
	}, nil
}

// Regexp requires the whole string form of the value to match pattern.
func Regexp(pattern string) (Condition, error) {
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, faults.NewConfigurationError("regexp condition", err.Error())
	}
	return condition{
		check: func(_ context.Context, value any) (bool, error) {
			s, ok := operators.StringOf(value)
			return ok && re.MatchString(s), nil
		},
	}, nil
}

func Email() Condition {
	return condition{
		check: func(_ context.Context, value any) (bool, error) {
			s, ok := operators.StringOf(value)
			return ok && expression.ValidEmail(s), nil
		},
	}
}

// UUID accepts uuid.UUID values and strings in any form uuid.Parse reads.
func UUID() Condition {
	return condition{
		check: func(_ context.Context, value any) (bool, error) {
			switch v := operators.Indirect(value).(type) {
			case uuid.UUID:
				return true, nil
			case uuid.NullUUID:
				return v.Valid, nil
			}
			s, ok := operators.StringOf(value)
			if !ok {
				return false, nil
			}
			_, err := uuid.Parse(s)
			return err == nil, nil
		},
	}
}

// InFuture and InPast compare a time value with now.
func InFuture(now func() time.Time) Condition {
	return temporal("future", now, func(t, now time.Time) bool { return t.After(now) })
}

func InPast(now func() time.Time) Condition {
	return temporal("past", now, func(t, now time.Time) bool { return t.Before(now) })
}

func temporal(name string, now func() time.Time, test func(t, now time.Time) bool) Condition {
	if now == nil {
		now = time.Now
	}
	return condition{
		check: func(_ context.Context, value any) (bool, error) {
			t, ok := operators.ToTime(operators.Indirect(value))
			if !ok {
				return false, faults.NewArgumentTypeError(name, value, "value is not a time")
			}
			return test(t, now()), nil
		},
	}
}

// Expression checks a parsed predicate against the value.
func Expression(predicate expression.Predicate, opts ...expression.EvaluateOption) Condition {
	return Func(func(ctx context.Context, value any) (bool, error) {
		return expression.Check(ctx, predicate, value, opts...)
	})
}
