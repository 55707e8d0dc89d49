package threadsafe

import (
	"sync"
)

type Map[K comparable, V any] struct {
	buf map[K]V
	mtx *sync.Mutex
}

func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{
		buf: make(map[K]V),
		mtx: &sync.Mutex{},
	}
}

func (t *Map[K, V]) Insert(k K, v V) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	t.buf[k] = v
}

func (t *Map[K, V]) Lookup(k K) (V, bool) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	v, ok := t.buf[k]
	return v, ok
}
