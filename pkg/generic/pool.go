package generic

import "sync"

// Pool is a typed sync.Pool. Values must be reset by the caller before Put.
type Pool[T any] struct {
	pool sync.Pool
}

func NewPool[T any](generate func() T) *Pool[T] {
	return &Pool[T]{
		pool: sync.Pool{
			New: func() any { return generate() },
		},
	}
}

// NewHotPool pre-fills the pool with warm values.
func NewHotPool[T any](generate func() T, warm int) *Pool[T] {
	p := NewPool(generate)
	for range warm {
		p.pool.Put(generate())
	}
	return p
}

func (p *Pool[T]) Get() T { return p.pool.Get().(T) }

func (p *Pool[T]) Put(value T) { p.pool.Put(value) }
