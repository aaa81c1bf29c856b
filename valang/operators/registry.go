package operators

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"

	"github.com/krew-solutions/ascetic-valang-go/valang/faults"
)

// Comparator orders two operands: negative, zero or positive.
type Comparator func(left, right any) (int, error)

type pairKey struct {
	left  reflect.Type
	right reflect.Type
}

// Registry applies the comparison operators. Numbers are compared as
// decimals, dates as instants; other types need a registered Comparator or
// must implement EqualOperand / CompareOperand.
type Registry struct {
	mu          sync.RWMutex
	comparators map[pairKey]Comparator
}

func NewRegistry() *Registry {
	return &Registry{
		comparators: make(map[pairKey]Comparator),
	}
}

// RegisterComparator registers fn for (L, R) and its mirror for (R, L).
func RegisterComparator[L, R any](reg *Registry, fn func(L, R) (int, error)) {
	var zeroL L
	var zeroR R
	lt := reflect.TypeOf(zeroL)
	rt := reflect.TypeOf(zeroR)
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.comparators[pairKey{lt, rt}] = func(left, right any) (int, error) {
		return fn(left.(L), right.(R))
	}
	if lt != rt {
		reg.comparators[pairKey{rt, lt}] = func(left, right any) (int, error) {
			c, err := fn(right.(L), left.(R))
			return -c, err
		}
	}
}

// NewDefaultRegistry creates a registry that, on top of the built-in number,
// date and string semantics, knows how to compare UUIDs with each other and
// with their textual form.
func NewDefaultRegistry() *Registry {
	reg := NewRegistry()
	RegisterComparator[uuid.UUID, uuid.UUID](reg, func(a, b uuid.UUID) (int, error) {
		return bytes.Compare(a[:], b[:]), nil
	})
	RegisterComparator[uuid.UUID, string](reg, func(a uuid.UUID, b string) (int, error) {
		parsed, err := uuid.Parse(b)
		if err != nil {
			return 0, faults.NewArgumentTypeError("uuid comparison", b, "not a valid UUID")
		}
		return bytes.Compare(a[:], parsed[:]), nil
	})
	return reg
}

// Test applies op to left and the right-hand operands. BETWEEN takes two
// right operands, IN one or more (slices are flattened), the postfix and
// string-class operators none.
func (r *Registry) Test(op Operator, left any, right ...any) (bool, error) {
	if !op.Valid() {
		return false, faults.NewArgumentTypeError("test", op, fmt.Sprintf("unknown operator %q", op))
	}
	arity := op.Arity()
	if (arity >= 0 && len(right) != arity) || (arity < 0 && len(right) == 0) {
		return false, faults.NewArgumentTypeError(op.Symbol(), right, fmt.Sprintf("wrong number of operands: %d", len(right)))
	}
	left = Indirect(left)

	switch op {
	case OperatorNull:
		return left == nil, nil
	case OperatorNotNull:
		return left != nil, nil
	case OperatorEqual:
		return r.Equal(left, right[0])
	case OperatorNotEqual:
		eq, err := r.Equal(left, right[0])
		return !eq, err
	case OperatorLessThan, OperatorLessThanOrEqual, OperatorGreaterThan, OperatorGreaterThanOrEqual:
		return r.order(op, left, right[0])
	case OperatorBetween:
		return r.between(left, right[0], right[1])
	case OperatorNotBetween:
		ok, err := r.between(left, right[0], right[1])
		return !ok, err
	case OperatorIn:
		return r.in(left, right)
	case OperatorNotIn:
		ok, err := r.in(left, right)
		return !ok, err
	}

	positive := op
	if _, isPositive := stringClass[op]; !isPositive {
		positive = op.Negate()
	}
	result := stringClass[positive](left)
	if positive != op {
		return !result, nil
	}
	return result, nil
}

// Equal compares two operands by value. Nil equals only nil.
func (r *Registry) Equal(left, right any) (bool, error) {
	left, right = Indirect(left), Indirect(right)
	if left == nil || right == nil {
		return left == nil && right == nil, nil
	}
	if fn, ok := r.lookup(left, right); ok {
		c, err := fn(left, right)
		return c == 0, err
	}
	if l, ok := left.(EqualOperand); ok {
		return l.Equal(right), nil
	}
	if ld, ok := ToDecimal(left); ok {
		if rd, ok := ToDecimal(right); ok {
			return ld.Equal(rd), nil
		}
	}
	if lt, ok := ToTime(left); ok {
		if rt, ok := ToTime(right); ok {
			return lt.Equal(rt), nil
		}
	}
	if isString(left) || isString(right) {
		ls, lok := textOf(left)
		rs, rok := textOf(right)
		if lok && rok {
			return ls == rs, nil
		}
	}
	if isBool(left) && isBool(right) {
		return reflect.ValueOf(left).Bool() == reflect.ValueOf(right).Bool(), nil
	}
	lt, rt := reflect.TypeOf(left), reflect.TypeOf(right)
	if lt == rt && lt.Comparable() {
		return left == right, nil
	}
	return false, &faults.TypeMismatchError{Operation: OperatorEqual.Symbol(), Left: left, Right: right}
}

// Compare orders two non-nil operands that are both numbers, both dates, or
// covered by a registered Comparator or CompareOperand.
func (r *Registry) Compare(left, right any) (int, error) {
	left, right = Indirect(left), Indirect(right)
	if fn, ok := r.lookup(left, right); ok {
		return fn(left, right)
	}
	if l, ok := left.(CompareOperand); ok {
		return l.Compare(right)
	}
	if ld, ok := ToDecimal(left); ok {
		if rd, ok := ToDecimal(right); ok {
			return ld.Cmp(rd), nil
		}
	}
	if lt, ok := ToTime(left); ok {
		if rt, ok := ToTime(right); ok {
			return lt.Compare(rt), nil
		}
	}
	return 0, &faults.TypeMismatchError{
		Operation: "compare",
		Left:      left,
		Right:     right,
		Reason:    fmt.Sprintf("operands must both be numbers or both be dates, got %T and %T", left, right),
	}
}

// order evaluates an ordering operator; a nil operand makes it false.
func (r *Registry) order(op Operator, left, right any) (bool, error) {
	right = Indirect(right)
	if left == nil || right == nil {
		return false, nil
	}
	c, err := r.Compare(left, right)
	if err != nil {
		return false, err
	}
	switch op {
	case OperatorLessThan:
		return c < 0, nil
	case OperatorLessThanOrEqual:
		return c <= 0, nil
	case OperatorGreaterThan:
		return c > 0, nil
	default:
		return c >= 0, nil
	}
}

func (r *Registry) between(value, lower, upper any) (bool, error) {
	ok, err := r.order(OperatorGreaterThanOrEqual, value, lower)
	if err != nil || !ok {
		return false, err
	}
	return r.order(OperatorLessThanOrEqual, value, upper)
}

func (r *Registry) in(value any, items []any) (bool, error) {
	for _, item := range flatten(items) {
		eq, err := r.Equal(value, item)
		if err != nil {
			return false, err
		}
		if eq {
			return true, nil
		}
	}
	return false, nil
}

func (r *Registry) lookup(left, right any) (Comparator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.comparators[pairKey{reflect.TypeOf(left), reflect.TypeOf(right)}]
	return fn, ok
}

func flatten(items []any) []any {
	var out []any
	for _, item := range items {
		rv := reflect.ValueOf(item)
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 || rv.Kind() == reflect.Array {
			for i := 0; i < rv.Len(); i++ {
				out = append(out, rv.Index(i).Interface())
			}
			continue
		}
		out = append(out, item)
	}
	return out
}

func textOf(v any) (string, bool) {
	if isString(v) {
		return StringOf(v)
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String(), true
	}
	return "", false
}

var stringClass = map[Operator]func(any) bool{
	OperatorHasLength: func(v any) bool {
		s, ok := StringOf(v)
		return ok && len(s) > 0
	},
	OperatorHasText: func(v any) bool {
		s, ok := StringOf(v)
		return ok && strings.IndexFunc(s, func(c rune) bool { return !unicode.IsSpace(c) }) >= 0
	},
	OperatorIsBlank: func(v any) bool {
		s, ok := StringOf(v)
		return !ok || strings.TrimSpace(s) == ""
	},
	OperatorIsWord: func(v any) bool {
		s, ok := StringOf(v)
		if !ok || s == "" {
			return false
		}
		for _, c := range s {
			if !unicode.IsLetter(c) && !unicode.IsDigit(c) && c != '_' {
				return false
			}
		}
		return true
	},
	OperatorIsLowerCase: func(v any) bool {
		s, ok := StringOf(v)
		return ok && strings.ToLower(s) == s
	},
	OperatorIsUpperCase: func(v any) bool {
		s, ok := StringOf(v)
		return ok && strings.ToUpper(s) == s
	},
}
