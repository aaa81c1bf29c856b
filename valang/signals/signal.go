// Package signals lets components publish events to attached observers.
package signals

import (
	"reflect"
	"sync"
)

type Observer[E any] func(E)

type Disposable interface {
	Dispose()
}

type disposeFunc func()

func (f disposeFunc) Dispose() {
	f()
}

type Signal[E any] interface {
	Attach(observer Observer[E], observerID ...any) Disposable
	Detach(observer Observer[E], observerID ...any)
	Notify(event E)
}

type entry[E any] struct {
	id       any
	observer Observer[E]
}

// SignalImp is safe for concurrent use. Observers run synchronously on the
// notifying goroutine, in attachment order.
type SignalImp[E any] struct {
	mu        sync.RWMutex
	observers []entry[E]
}

func NewSignal[E any]() *SignalImp[E] {
	return &SignalImp[E]{}
}

// Attach is idempotent per observer id. Without an explicit id the function
// pointer identifies the observer.
func (s *SignalImp[E]) Attach(observer Observer[E], observerID ...any) Disposable {
	id := resolveID(observer, observerID)
	detach := disposeFunc(func() { s.Detach(observer, id) })
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.observers {
		if e.id == id {
			return detach
		}
	}
	s.observers = append(s.observers, entry[E]{id: id, observer: observer})
	return detach
}

func (s *SignalImp[E]) Detach(observer Observer[E], observerID ...any) {
	id := resolveID(observer, observerID)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.observers {
		if e.id == id {
			s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
			return
		}
	}
}

// Notify calls the observers attached when it starts. Observers may attach
// and detach from within a notification.
func (s *SignalImp[E]) Notify(event E) {
	s.mu.RLock()
	observers := s.observers
	s.mu.RUnlock()
	for _, e := range observers {
		e.observer(event)
	}
}

func (s *SignalImp[E]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observers)
}

func resolveID[E any](observer Observer[E], observerID []any) any {
	if len(observerID) > 0 {
		return observerID[0]
	}
	return reflect.ValueOf(observer).Pointer()
}
