package generic

import "sync"

// Pool is a typed wrapper around sync.Pool. An optional reset function
// runs on Get, so pooled values come back scrubbed of previous use.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T) T
}

func NewPool[T any](generate func() T) *Pool[T] {
	return NewPoolWithReset(generate, nil)
}

func NewPoolWithReset[T any](generate func() T, reset func(T) T) *Pool[T] {
	return &Pool[T]{
		pool: sync.Pool{
			New: func() any {
				return generate()
			},
		},
		reset: reset,
	}
}

func (p *Pool[T]) Get() T {
	value := p.pool.Get().(T)
	if p.reset != nil {
		value = p.reset(value)
	}
	return value
}

func (p *Pool[T]) Put(value T) {
	p.pool.Put(value)
}
