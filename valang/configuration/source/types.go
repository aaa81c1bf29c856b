package source

import (
	"reflect"
	"sync"
)

// TypeRegistry maps document class names to Go types.
type TypeRegistry struct {
	mu     sync.RWMutex
	byName map[string]reflect.Type
	byType map[reflect.Type]string
}

func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		byName: make(map[string]reflect.Type),
		byType: make(map[reflect.Type]string),
	}
}

// Register binds name to t. Pointer types are registered by their element
// type. Registering a name again replaces the earlier binding.
func (r *TypeRegistry) Register(name string, t reflect.Type) {
	t = elem(t)
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.byName[name]; ok {
		delete(r.byType, old)
	}
	r.byName[name] = t
	r.byType[t] = name
}

// Register binds name to T. An empty name uses the bare type name.
func Register[T any](r *TypeRegistry, name string) {
	t := elem(reflect.TypeOf((*T)(nil)).Elem())
	if name == "" {
		name = t.Name()
	}
	r.Register(name, t)
}

func (r *TypeRegistry) TypeOf(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[name]
	return t, ok
}

// NameOf returns the class name of t. Unregistered types fall back to
// their bare name, or their full string form for unnamed types.
func (r *TypeRegistry) NameOf(t reflect.Type) string {
	t = elem(t)
	r.mu.RLock()
	name, ok := r.byType[t]
	r.mu.RUnlock()
	switch {
	case ok:
		return name
	case t.Name() != "":
		return t.Name()
	}
	return t.String()
}

func elem(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
