package configuration

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/krew-solutions/ascetic-valang-go/valang/signals"
)

// Status tells apart the outcomes of a lookup.
type Status int

const (
	// Unknown: no loader knows the type.
	Unknown Status = iota
	// ConfiguredEmpty: the type is known and carries no rules.
	ConfiguredEmpty
	Configured
)

func (s Status) String() string {
	switch s {
	case ConfiguredEmpty:
		return "configured-empty"
	case Configured:
		return "configured"
	}
	return "unknown"
}

const DefaultCapacity = 1024

// LoadEvent reports one call of the loader. Cache hits are not reported.
type LoadEvent struct {
	Type   reflect.Type
	Status Status
	Err    error
}

type RegistryOption func(*Registry)

// WithCapacity bounds the number of cached types; 0 means unbounded.
// Registered configurations do not count.
func WithCapacity(n int) RegistryOption {
	return func(r *Registry) {
		r.capacity = n
	}
}

func WithLogger(logger zerolog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger.With().Str("component", "valang.configuration").Logger()
	}
}

// Registry caches configurations per type. Loads of the same type are
// collapsed into one; the cache is safe for concurrent use.
type Registry struct {
	loader   Loader
	capacity int
	logger   zerolog.Logger

	mu     sync.Mutex
	pinned map[reflect.Type]*BeanValidationConfiguration
	cache  *lruCache
	loads  singleflight.Group
	loaded *signals.SignalImp[LoadEvent]
}

func NewRegistry(loader Loader, opts ...RegistryOption) *Registry {
	r := &Registry{
		loader:   loader,
		capacity: DefaultCapacity,
		logger:   zerolog.Nop(),
		pinned:   make(map[reflect.Type]*BeanValidationConfiguration),
		loaded:   signals.NewSignal[LoadEvent](),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.cache = newLruCache(r.capacity)
	return r
}

// Register pins cfg for t ahead of any loader. Pinned entries are never
// evicted.
func (r *Registry) Register(t reflect.Type, cfg *BeanValidationConfiguration) {
	t = normalize(t)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pinned[t] = cfg
	r.cache.remove(t)
}

// Get returns the configuration of t, or nil when t is not validated.
func (r *Registry) Get(ctx context.Context, t reflect.Type) (*BeanValidationConfiguration, error) {
	cfg, _, err := r.Lookup(ctx, t)
	return cfg, err
}

// Lookup returns the configuration of t and whether t is configured at all.
// Failed loads are not cached.
func (r *Registry) Lookup(ctx context.Context, t reflect.Type) (*BeanValidationConfiguration, Status, error) {
	t = normalize(t)
	if cfg, ok := r.cached(t); ok {
		return cfg, statusOf(cfg), nil
	}
	result, err, _ := r.loads.Do(keyOf(t), func() (any, error) {
		// Another caller may have finished loading in the meantime.
		if cfg, ok := r.cached(t); ok {
			return cfg, nil
		}
		cfg, err := r.load(ctx, t)
		if err != nil {
			r.loaded.Notify(LoadEvent{Type: t, Err: err})
			return nil, err
		}
		r.mu.Lock()
		if cfg == nil {
			r.cache.addAbsent(t)
		} else {
			r.cache.add(t, cfg)
		}
		r.mu.Unlock()
		r.loaded.Notify(LoadEvent{Type: t, Status: statusOf(cfg)})
		return cfg, nil
	})
	if err != nil {
		r.logger.Error().Err(err).Str("type", t.String()).Msg("failed to load validation configuration")
		return nil, Unknown, err
	}
	cfg, _ := result.(*BeanValidationConfiguration)
	return cfg, statusOf(cfg), nil
}

// Loaded is notified after every loader call, failed ones included.
// Observers run on the loading goroutine and must not look up the type
// being loaded.
func (r *Registry) Loaded() signals.Signal[LoadEvent] {
	return r.loaded
}

func (r *Registry) cached(t reflect.Type) (*BeanValidationConfiguration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cfg, ok := r.pinned[t]; ok {
		return cfg, true
	}
	return r.cache.get(t)
}

func (r *Registry) load(ctx context.Context, t reflect.Type) (*BeanValidationConfiguration, error) {
	if r.loader == nil {
		return nil, nil
	}
	cfg, err := r.loader.Load(ctx, t)
	if err != nil {
		return nil, err
	}
	r.logger.Debug().Str("type", t.String()).Str("status", statusOf(cfg).String()).Msg("loaded validation configuration")
	return cfg, nil
}

// Invalidate drops the cached configuration of t; pinned entries stay.
func (r *Registry) Invalidate(t reflect.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.remove(normalize(t))
}

// Purge drops every cached configuration; pinned entries stay.
func (r *Registry) Purge() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.clear()
}

// Cached returns the number of cached types, absent ones included.
func (r *Registry) Cached() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.count()
}

func statusOf(cfg *BeanValidationConfiguration) Status {
	switch {
	case cfg == nil:
		return Unknown
	case cfg.IsEmpty():
		return ConfiguredEmpty
	}
	return Configured
}

func normalize(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// keyOf distinguishes equally named types of different packages.
func keyOf(t reflect.Type) string {
	return fmt.Sprintf("%s.%s#%p", t.PkgPath(), t, t)
}
