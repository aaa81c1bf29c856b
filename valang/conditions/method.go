package conditions

import (
	"context"
	"reflect"

	"github.com/krew-solutions/ascetic-valang-go/valang/faults"
)

var (
	boolType    = reflect.TypeOf(false)
	errType     = reflect.TypeOf((*error)(nil)).Elem()
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
)

// Method calls a validation method of the value by name. The method takes
// no arguments or a context.Context and returns bool or (bool, error).
// Returned errors and panics surface as faults.RuleEvaluationError.
func Method(name string) Condition {
	return condition{
		check: func(ctx context.Context, value any) (ok bool, err error) {
			m, err := methodOf(value, name)
			if err != nil {
				return false, err
			}
			defer func() {
				if r := recover(); r != nil {
					ok = false
					err = &faults.RuleEvaluationError{Rule: name, Err: faults.Recovered(r)}
				}
			}()
			var in []reflect.Value
			if m.Type().NumIn() == 1 {
				in = []reflect.Value{reflect.ValueOf(ctx)}
			}
			out := m.Call(in)
			if len(out) == 2 && !out[1].IsNil() {
				return false, &faults.RuleEvaluationError{Rule: name, Err: out[1].Interface().(error)}
			}
			return out[0].Bool(), nil
		},
	}
}

// CheckMethod reports whether t has a method usable by Method.
func CheckMethod(t reflect.Type, name string) error {
	m, ok := t.MethodByName(name)
	if !ok && t.Kind() != reflect.Pointer {
		m, ok = reflect.PointerTo(t).MethodByName(name)
	}
	if !ok {
		return faults.NewConfigurationError("method rule "+name, "no such method on "+t.String())
	}
	// Receiver is the first input of a method obtained from a type.
	return checkSignature(name, m.Type, 1)
}

func methodOf(value any, name string) (reflect.Value, error) {
	rv := reflect.ValueOf(value)
	if !rv.IsValid() {
		return reflect.Value{}, faults.NewArgumentTypeError(name, value, "cannot call a method on nil")
	}
	m := rv.MethodByName(name)
	if !m.IsValid() && rv.Kind() != reflect.Pointer {
		ptr := reflect.New(rv.Type())
		ptr.Elem().Set(rv)
		m = ptr.MethodByName(name)
	}
	if !m.IsValid() {
		return reflect.Value{}, faults.NewConfigurationError("method rule "+name, "no such method on "+rv.Type().String())
	}
	if err := checkSignature(name, m.Type(), 0); err != nil {
		return reflect.Value{}, err
	}
	return m, nil
}

func checkSignature(name string, mt reflect.Type, receivers int) error {
	in := mt.NumIn() - receivers
	switch {
	case in > 1, in == 1 && mt.In(receivers) != contextType:
		return faults.NewConfigurationError("method rule "+name, "method must take no arguments or a context.Context")
	case mt.NumOut() == 1 && mt.Out(0) == boolType:
		return nil
	case mt.NumOut() == 2 && mt.Out(0) == boolType && mt.Out(1) == errType:
		return nil
	}
	return faults.NewConfigurationError("method rule "+name, "method "+mt.String()+" must return bool or (bool, error)")
}
