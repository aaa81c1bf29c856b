// Package beans resolves properties of arbitrary Go values: struct fields,
// zero-argument getter methods, string-keyed map entries, slice and array
// elements. Nil intermediates resolve to nil.
package beans

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/krew-solutions/ascetic-valang-go/valang/faults"
)

// Getter is implemented by dynamic objects that resolve their own
// properties.
type Getter interface {
	Get(name string) (any, error)
}

type member struct {
	index  []int
	method string
}

type typeInfo struct {
	exact  map[string]member
	folded map[string]member
}

var infos sync.Map // reflect.Type -> *typeInfo

func infoOf(t reflect.Type) *typeInfo {
	if cached, ok := infos.Load(t); ok {
		return cached.(*typeInfo)
	}
	info := &typeInfo{
		exact:  make(map[string]member),
		folded: make(map[string]member),
	}
	add := func(name string, m member) {
		if name == "" || name == "-" {
			return
		}
		if _, exists := info.exact[name]; !exists {
			info.exact[name] = m
		}
		if _, exists := info.folded[strings.ToLower(name)]; !exists {
			info.folded[strings.ToLower(name)] = m
		}
	}
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Anonymous && f.Type.Kind() == reflect.Struct {
			continue
		}
		m := member{index: f.Index}
		if tag, ok := f.Tag.Lookup("valang"); ok {
			add(strings.Split(tag, ",")[0], m)
		}
		if tag, ok := f.Tag.Lookup("json"); ok {
			add(strings.Split(tag, ",")[0], m)
		}
		add(f.Name, m)
	}
	ptr := reflect.PointerTo(t)
	for i := 0; i < ptr.NumMethod(); i++ {
		method := ptr.Method(i)
		mt := method.Type
		if mt.NumIn() != 1 || mt.NumOut() == 0 || mt.NumOut() > 2 {
			continue
		}
		if mt.NumOut() == 2 && !mt.Out(1).Implements(errorType) {
			continue
		}
		m := member{method: method.Name}
		add(method.Name, m)
		add(strings.TrimPrefix(method.Name, "Get"), m)
	}
	actual, _ := infos.LoadOrStore(t, info)
	return actual.(*typeInfo)
}

func (i *typeInfo) lookup(name string) (member, bool) {
	if m, ok := i.exact[name]; ok {
		return m, true
	}
	m, ok := i.folded[strings.ToLower(name)]
	return m, ok
}

var (
	errorType  = reflect.TypeOf((*error)(nil)).Elem()
	getterType = reflect.TypeOf((*Getter)(nil)).Elem()
)

// Wrapper exposes the bean introspection contract for one object.
type Wrapper struct {
	object any
}

func Wrap(object any) *Wrapper {
	return &Wrapper{object: object}
}

func (w *Wrapper) Object() any {
	return w.object
}

// PropertyValue resolves a (possibly nested) property path.
func (w *Wrapper) PropertyValue(path string) (any, error) {
	p, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	return Resolve(w.object, p)
}

// PropertyType returns the declared type of a property path. Interface
// typed members report the dynamic type of their current value when there
// is one.
func (w *Wrapper) PropertyType(path string) (reflect.Type, error) {
	p, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	t, err := TypeOf(reflect.TypeOf(w.object), p)
	if err != nil {
		return nil, err
	}
	if t.Kind() == reflect.Interface {
		if v, err := Resolve(w.object, p); err == nil && v != nil {
			return reflect.TypeOf(v), nil
		}
	}
	return t, nil
}

// Resolve walks path from object. A nil value met before the last segment
// yields nil without error.
func Resolve(object any, path Path) (any, error) {
	v := reflect.ValueOf(object)
	for _, seg := range path {
		var ok bool
		v, ok = deref(v)
		if !ok {
			return nil, nil
		}
		next, err := step(v, seg)
		if err != nil {
			return nil, err
		}
		v = next
	}
	if !v.IsValid() {
		return nil, nil
	}
	if isNil(v) {
		return nil, nil
	}
	return v.Interface(), nil
}

// TypeOf statically resolves the type reached by path from t. Interface and
// Getter types stop the walk and are reported as-is.
func TypeOf(t reflect.Type, path Path) (reflect.Type, error) {
	if t == nil {
		return nil, faults.NewConfigurationError("property path "+path.String(), "no target type")
	}
	for _, seg := range path {
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if t.Kind() == reflect.Interface || reflect.PointerTo(t).Implements(getterType) {
			return t, nil
		}
		switch {
		case seg.Kind == SegmentProperty && t.Kind() == reflect.Struct:
			m, ok := infoOf(t).lookup(seg.Name)
			if !ok {
				return nil, faults.NewConfigurationError("property path "+path.String(), fmt.Sprintf("%s has no property %q", t, seg.Name))
			}
			if m.method != "" {
				mt, _ := reflect.PointerTo(t).MethodByName(m.method)
				t = mt.Type.Out(0)
			} else {
				t = t.FieldByIndex(m.index).Type
			}
		case t.Kind() == reflect.Map:
			t = t.Elem()
		case seg.Kind != SegmentProperty && (t.Kind() == reflect.Slice || t.Kind() == reflect.Array):
			t = t.Elem()
		default:
			return nil, faults.NewConfigurationError("property path "+path.String(), fmt.Sprintf("segment %s cannot be applied to %s", seg, t))
		}
	}
	return t, nil
}

// step applies one segment to a non-nil, dereferenced value.
func step(v reflect.Value, seg Segment) (reflect.Value, error) {
	if v.CanInterface() {
		if g, ok := v.Interface().(Getter); ok {
			return getterStep(g, seg)
		}
		if v.CanAddr() {
			if g, ok := v.Addr().Interface().(Getter); ok {
				return getterStep(g, seg)
			}
		}
	}
	switch v.Kind() {
	case reflect.Struct:
		if seg.Kind != SegmentProperty {
			return reflect.Value{}, mismatch(seg, v, "struct values cannot be indexed")
		}
		m, ok := infoOf(v.Type()).lookup(seg.Name)
		if !ok {
			return reflect.Value{}, mismatch(seg, v, fmt.Sprintf("%s has no property %q", v.Type(), seg.Name))
		}
		return member2value(v, m)
	case reflect.Map:
		return mapStep(v, seg)
	case reflect.Slice, reflect.Array:
		idx, err := indexOf(seg, v)
		if err != nil {
			return reflect.Value{}, err
		}
		if idx < 0 || idx >= v.Len() {
			return reflect.Value{}, mismatch(seg, v, fmt.Sprintf("index %d out of range [0, %d)", idx, v.Len()))
		}
		return v.Index(idx), nil
	}
	return reflect.Value{}, mismatch(seg, v, fmt.Sprintf("cannot resolve %s on %s", seg, v.Type()))
}

func member2value(v reflect.Value, m member) (reflect.Value, error) {
	if m.method == "" {
		f, err := v.FieldByIndexErr(m.index)
		if err != nil {
			// nil embedded pointer
			return reflect.Value{}, nil
		}
		return f, nil
	}
	recv := v
	if v.CanAddr() {
		recv = v.Addr()
	} else {
		cp := reflect.New(v.Type())
		cp.Elem().Set(v)
		recv = cp
	}
	out := recv.MethodByName(m.method).Call(nil)
	if len(out) == 2 && !out[1].IsNil() {
		return reflect.Value{}, &faults.RuleEvaluationError{Rule: m.method, Err: out[1].Interface().(error)}
	}
	return out[0], nil
}

func mapStep(v reflect.Value, seg Segment) (reflect.Value, error) {
	kt := v.Type().Key()
	var key reflect.Value
	switch {
	case kt.Kind() == reflect.String:
		name := seg.Name
		if seg.Kind == SegmentIndex {
			name = strconv.Itoa(seg.Index)
		}
		key = reflect.ValueOf(name).Convert(kt)
	case isIntKind(kt.Kind()):
		idx, err := indexOf(seg, v)
		if err != nil {
			return reflect.Value{}, err
		}
		key = reflect.ValueOf(idx).Convert(kt)
	default:
		return reflect.Value{}, mismatch(seg, v, fmt.Sprintf("unsupported map key type %s", kt))
	}
	elem := v.MapIndex(key)
	if !elem.IsValid() {
		return reflect.Value{}, nil
	}
	return elem, nil
}

func getterStep(g Getter, seg Segment) (reflect.Value, error) {
	name := seg.Name
	if seg.Kind == SegmentIndex {
		name = strconv.Itoa(seg.Index)
	}
	value, err := g.Get(name)
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(value), nil
}

func indexOf(seg Segment, v reflect.Value) (int, error) {
	switch seg.Kind {
	case SegmentIndex:
		return seg.Index, nil
	case SegmentKey:
		if n, err := strconv.Atoi(seg.Name); err == nil {
			return n, nil
		}
	}
	return 0, mismatch(seg, v, fmt.Sprintf("%s requires an integer index", v.Type()))
}

// deref follows pointers and interfaces. It reports false for nil values,
// nil slices and maps included.
func deref(v reflect.Value) (reflect.Value, bool) {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return v, false
		}
		v = v.Elem()
	}
	if v.IsValid() && (v.Kind() == reflect.Slice || v.Kind() == reflect.Map) && v.IsNil() {
		return v, false
	}
	return v, v.IsValid()
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

func isIntKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func mismatch(seg Segment, v reflect.Value, reason string) error {
	err := &faults.TypeMismatchError{Operation: "property " + seg.String(), Reason: reason}
	if v.CanInterface() {
		err.Left = v.Interface()
	}
	return err
}
