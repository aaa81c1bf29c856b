package beans

import (
	"reflect"
)

// Accessor reads a property path from an object.
type Accessor func(object any) (any, error)

type compiledStep func(reflect.Value) (reflect.Value, error)

// Compile resolves the struct field indexes of path against t once and
// returns an accessor that replays them. Segments that cannot be resolved
// statically (maps, interfaces, getters) fall back to dynamic lookup.
// Objects of another type than t are resolved dynamically as well.
func Compile(t reflect.Type, path Path) (Accessor, error) {
	if _, err := TypeOf(t, path); err != nil {
		return nil, err
	}
	steps := make([]compiledStep, 0, len(path))
	cur := t
	for _, seg := range path {
		for cur != nil && cur.Kind() == reflect.Pointer {
			cur = cur.Elem()
		}
		if cur != nil && seg.Kind == SegmentProperty && cur.Kind() == reflect.Struct &&
			!reflect.PointerTo(cur).Implements(getterType) {
			m, _ := infoOf(cur).lookup(seg.Name)
			if m.method == "" {
				index := m.index
				steps = append(steps, func(v reflect.Value) (reflect.Value, error) {
					return member2value(v, member{index: index})
				})
				cur = cur.FieldByIndex(index).Type
				continue
			}
		}
		seg := seg
		steps = append(steps, func(v reflect.Value) (reflect.Value, error) {
			return step(v, seg)
		})
		cur = nextType(cur, seg)
	}
	root := t
	for root.Kind() == reflect.Pointer {
		root = root.Elem()
	}
	return func(object any) (any, error) {
		v, ok := deref(reflect.ValueOf(object))
		if !ok {
			return nil, nil
		}
		if v.Type() != root {
			return Resolve(object, path)
		}
		for i, s := range steps {
			if i > 0 {
				if v, ok = deref(v); !ok {
					return nil, nil
				}
			}
			var err error
			if v, err = s(v); err != nil {
				return nil, err
			}
		}
		if !v.IsValid() || isNil(v) {
			return nil, nil
		}
		return v.Interface(), nil
	}, nil
}

func nextType(t reflect.Type, seg Segment) reflect.Type {
	if t == nil {
		return nil
	}
	next, err := TypeOf(t, Path{seg})
	if err != nil || next == t {
		return nil
	}
	return next
}
