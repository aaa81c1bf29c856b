package signals

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type loaded struct {
	typeName string
}

func TestSignalNotifiesInAttachmentOrder(t *testing.T) {
	s := NewSignal[loaded]()
	var order []string
	s.Attach(func(e loaded) { order = append(order, "log:"+e.typeName) }, "log")
	s.Attach(func(e loaded) { order = append(order, "count:"+e.typeName) }, "count")
	s.Notify(loaded{"Person"})
	assert.Equal(t, []string{"log:Person", "count:Person"}, order)
}

func TestSignalAttachIsIdempotentPerID(t *testing.T) {
	s := NewSignal[loaded]()
	var which []int
	s.Attach(func(loaded) { which = append(which, 1) }, "same")
	s.Attach(func(loaded) { which = append(which, 2) }, "same")
	s.Notify(loaded{})
	assert.Equal(t, []int{1}, which)
	assert.Equal(t, 1, s.Len())
}

func TestSignalDetach(t *testing.T) {
	s := NewSignal[loaded]()
	calls := 0
	observer := Observer[loaded](func(loaded) { calls++ })

	s.Attach(observer)
	s.Attach(observer)
	s.Notify(loaded{})
	assert.Equal(t, 1, calls)

	s.Detach(observer)
	s.Detach(observer, "missing")
	s.Notify(loaded{})
	assert.Equal(t, 1, calls)
}

func TestSignalDispose(t *testing.T) {
	s := NewSignal[loaded]()
	called := false
	d := s.Attach(func(loaded) { called = true }, "obs")
	d.Dispose()
	d.Dispose()
	s.Notify(loaded{})
	assert.False(t, called)
	assert.Zero(t, s.Len())
}

func TestSignalObserverMayDetachItself(t *testing.T) {
	s := NewSignal[loaded]()
	var got []string
	var once Disposable
	once = s.Attach(func(e loaded) {
		got = append(got, "once:"+e.typeName)
		once.Dispose()
	}, "once")
	s.Attach(func(e loaded) { got = append(got, "always:"+e.typeName) }, "always")

	s.Notify(loaded{"A"})
	s.Notify(loaded{"B"})
	assert.Equal(t, []string{"once:A", "always:A", "always:B"}, got)
}

func TestSignalConcurrentNotify(t *testing.T) {
	s := NewSignal[loaded]()
	var mu sync.Mutex
	calls := 0
	s.Attach(func(loaded) {
		mu.Lock()
		calls++
		mu.Unlock()
	}, "counter")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Notify(loaded{})
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, calls)
}
