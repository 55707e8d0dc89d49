package threadsafe

import (
	"sync"

	"github.com/moznion/go-optional"
)

// Value holds the latest published value of a poller. Readers never
// block writers for longer than a copy.
type Value[T any] struct {
	mtx *sync.RWMutex
	val optional.Option[T]
}

func NewValue[T any]() *Value[T] {
	return &Value[T]{
		mtx: &sync.RWMutex{},
		val: optional.None[T](),
	}
}

func (v *Value[T]) Set(val T) {
	v.mtx.Lock()
	defer v.mtx.Unlock()
	v.val = optional.Some(val)
}

func (v *Value[T]) Get() optional.Option[T] {
	v.mtx.RLock()
	defer v.mtx.RUnlock()
	return v.val
}
