package configuration

import (
	"container/list"
	"reflect"
)

// absent marks a type the loader does not know, so it is not asked again.
type absentConfiguration struct{}

var absent = &absentConfiguration{}

type lruEntry struct {
	key   reflect.Type
	value any
}

type lruCache struct {
	items map[reflect.Type]*list.Element
	order *list.List
	size  int
}

func newLruCache(size int) *lruCache {
	return &lruCache{
		items: make(map[reflect.Type]*list.Element, size),
		order: list.New(),
		size:  size,
	}
}

func (c *lruCache) add(key reflect.Type, value *BeanValidationConfiguration) {
	c.put(key, value)
}

func (c *lruCache) addAbsent(key reflect.Type) {
	c.put(key, absent)
}

func (c *lruCache) put(key reflect.Type, value any) {
	if elem, ok := c.items[key]; ok {
		elem.Value = lruEntry{key: key, value: value}
		c.order.MoveToBack(elem)
		return
	}
	elem := c.order.PushBack(lruEntry{key: key, value: value})
	c.items[key] = elem
	if c.size > 0 && len(c.items) > c.size {
		front := c.order.Front()
		c.order.Remove(front)
		delete(c.items, front.Value.(lruEntry).key)
	}
}

// get reports whether key is cached; a cached absent type yields a nil
// configuration.
func (c *lruCache) get(key reflect.Type) (*BeanValidationConfiguration, bool) {
	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToBack(elem)
	cfg, _ := elem.Value.(lruEntry).value.(*BeanValidationConfiguration)
	return cfg, true
}

func (c *lruCache) remove(key reflect.Type) {
	elem, ok := c.items[key]
	if !ok {
		return
	}
	delete(c.items, key)
	c.order.Remove(elem)
}

func (c *lruCache) count() int {
	return len(c.items)
}

func (c *lruCache) clear() {
	c.items = make(map[reflect.Type]*list.Element, c.size)
	c.order.Init()
}
