// Package callgroup provides call deduplication by key.
//
// If multiple goroutines request the same key concurrently, only one
// executes the function. The others wait and receive the same value and
// error. Once the function returns, the key is forgotten and future calls
// trigger a new execution.
package callgroup

import "sync"

// Group deduplicates concurrent function calls by key. The zero value is
// ready to use.
type Group[K comparable, V any] struct {
	mu    sync.Mutex
	calls map[K]*call[V]
}

type call[V any] struct {
	done   chan struct{}
	val    V
	err    error
	shared bool
}

// Result is the outcome of a deduplicated call.
type Result[V any] struct {
	Val    V
	Err    error
	Shared bool // true if the result was delivered to more than one caller
}

// Do executes fn if no call is in flight for key and returns its result.
// If a call is already in flight, Do waits for it and returns its result
// with shared set to true.
func (g *Group[K, V]) Do(key K, fn func() (V, error)) (v V, err error, shared bool) {
	c, leader := g.join(key)
	if leader {
		g.run(key, c, fn)
	} else {
		<-c.done
	}
	return c.val, c.err, c.shared
}

// DoChan is like Do but returns a channel that receives the result. The
// channel receives exactly one value and is never closed.
func (g *Group[K, V]) DoChan(key K, fn func() (V, error)) <-chan Result[V] {
	c, leader := g.join(key)
	if leader {
		go g.run(key, c, fn)
	}

	ch := make(chan Result[V], 1)
	go func() {
		<-c.done
		ch <- Result[V]{Val: c.val, Err: c.err, Shared: c.shared}
	}()
	return ch
}

func (g *Group[K, V]) join(key K) (*call[V], bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.calls == nil {
		g.calls = make(map[K]*call[V])
	}
	if c, ok := g.calls[key]; ok {
		c.shared = true
		return c, false
	}
	c := &call[V]{done: make(chan struct{})}
	g.calls[key] = c
	return c, true
}

func (g *Group[K, V]) run(key K, c *call[V], fn func() (V, error)) {
	c.val, c.err = fn()

	g.mu.Lock()
	delete(g.calls, key)
	g.mu.Unlock()

	close(c.done)
}
