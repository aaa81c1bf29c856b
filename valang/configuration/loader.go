package configuration

import (
	"context"
	"reflect"
)

// Loader produces the configuration of a type. It returns (nil, nil) for a
// type it knows nothing about; a type configured without rules yields an
// empty configuration instead.
type Loader interface {
	Load(ctx context.Context, t reflect.Type) (*BeanValidationConfiguration, error)
}

type LoaderFunc func(ctx context.Context, t reflect.Type) (*BeanValidationConfiguration, error)

func (f LoaderFunc) Load(ctx context.Context, t reflect.Type) (*BeanValidationConfiguration, error) {
	return f(ctx, t)
}

// MapLoader serves configurations built in code.
type MapLoader map[reflect.Type]*BeanValidationConfiguration

func (m MapLoader) Load(_ context.Context, t reflect.Type) (*BeanValidationConfiguration, error) {
	return m[t], nil
}

// ChainLoader asks each loader in turn; the first one that knows the type
// wins.
type ChainLoader []Loader

func (c ChainLoader) Load(ctx context.Context, t reflect.Type) (*BeanValidationConfiguration, error) {
	for _, l := range c {
		cfg, err := l.Load(ctx, t)
		if err != nil || cfg != nil {
			return cfg, err
		}
	}
	return nil, nil
}

// TypeFor returns the reflect.Type of T.
func TypeFor[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
