package operators

import (
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"time"

	"github.com/shopspring/decimal"
)

var timeType = reflect.TypeOf(time.Time{})

// ToDecimal coerces any Go numeric value to an arbitrary-precision decimal.
// Named numeric types (e.g. type Age int) are accepted through reflection.
func ToDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case *decimal.Decimal:
		if n == nil {
			return decimal.Decimal{}, false
		}
		return *n, true
	case decimal.NullDecimal:
		return n.Decimal, n.Valid
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case int32:
		return decimal.NewFromInt32(n), true
	case float64:
		return decimal.NewFromFloat(n), true
	case float32:
		return decimal.NewFromFloat32(n), true
	case *big.Int:
		if n == nil {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromBigInt(n, 0), true
	case json.Number:
		d, err := decimal.NewFromString(string(n))
		return d, err == nil
	case time.Duration:
		return decimal.NewFromInt(int64(n)), true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return decimal.Decimal{}, false
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return decimal.NewFromInt(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(rv.Uint()), 0), true
	case reflect.Float32, reflect.Float64:
		return decimal.NewFromFloat(rv.Float()), true
	case reflect.Pointer:
		if rv.IsNil() {
			return decimal.Decimal{}, false
		}
		return ToDecimal(rv.Elem().Interface())
	}
	return decimal.Decimal{}, false
}

// IsNumber reports whether v coerces to a decimal.
func IsNumber(v any) bool {
	_, ok := ToDecimal(v)
	return ok
}

// ToTime returns the instant held by v.
func ToTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	}
	rv := reflect.ValueOf(v)
	if rv.IsValid() && rv.Kind() == reflect.Struct && rv.Type().ConvertibleTo(timeType) {
		return rv.Convert(timeType).Interface().(time.Time), true
	}
	return time.Time{}, false
}

// StringOf renders the string form used by the string-class operators.
// The second result is false for nil.
func StringOf(v any) (string, bool) {
	switch s := v.(type) {
	case nil:
		return "", false
	case string:
		return s, true
	case *string:
		if s == nil {
			return "", false
		}
		return *s, true
	case []byte:
		return string(s), true
	case fmt.Stringer:
		if isNilPointer(v) {
			return "", false
		}
		return s.String(), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return "", false
		}
		return StringOf(rv.Elem().Interface())
	}
	if d, ok := ToDecimal(v); ok {
		return d.String(), true
	}
	return fmt.Sprint(v), true
}

// Indirect dereferences pointers and interfaces, returning nil for nil
// pointers so that callers can treat "no value" uniformly.
func Indirect(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.CanInterface() {
		return nil
	}
	return rv.Interface()
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

func isString(v any) bool {
	switch v.(type) {
	case string, *string:
		return true
	}
	return reflect.ValueOf(v).Kind() == reflect.String
}

func isBool(v any) bool {
	return reflect.ValueOf(v).Kind() == reflect.Bool
}
