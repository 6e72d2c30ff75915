package concache

import "context"

// call is an in-flight ComputeIfAbsent for one key.
type call[V any] struct {
	done chan struct{} // closed once val or err is set
	val  V
	err  error
}

// ComputeIfAbsent returns the value for key, running fn to produce it when
// the key is absent. For any number of concurrent callers on an absent key,
// fn runs exactly once; the others wait and receive the published value.
//
// fn runs without any cache lock held, so it may use the cache for other
// keys. It must not touch key itself: doing so waits on its own computation.
//
// If fn fails or panics, nothing is stored. The error reaches only the caller
// that ran fn; waiters retry, so one of them may run its own fn next. ctx
// bounds waiting only, it never cancels a running fn.
func (c *cache[K, V]) ComputeIfAbsent(ctx context.Context, key K, fn Producer[V]) (V, error) {
	var zero V
	for {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		st := c.stripeFor(key)
		st.mu.Lock()
		if cl, busy := st.inflight[key]; busy {
			st.mu.Unlock()
			c.hooks.ComputeWait(key)
			select {
			case <-cl.done:
			case <-ctx.Done():
				return zero, ctx.Err()
			}
			if cl.err == nil {
				return cl.val, nil
			}
			continue
		}
		// a producer may have published between Get and Lock
		if v, ok := c.current(key); ok {
			st.mu.Unlock()
			return v, nil
		}

		cl := &call[V]{done: make(chan struct{})}
		if st.inflight == nil {
			st.inflight = make(map[K]*call[V])
		}
		st.inflight[key] = cl
		st.mu.Unlock()

		return c.produce(st, key, cl, fn)
	}
}

// produce runs fn for a reserved key and publishes the outcome.
func (c *cache[K, V]) produce(st *stripe[K, V], key K, cl *call[V], fn Producer[V]) (V, error) {
	var zero V
	returned := false
	defer func() {
		if returned {
			return
		}
		r := recover()
		c.settle(st, key, cl, zero, ErrProducerPanicked, false)
		if r == nil {
			// runtime.Goexit
			c.hooks.ComputeDone(key, ErrProducerPanicked)
			return
		}
		c.hooks.ComputePanicked(key, r)
		c.log.Error("producer panicked", Fields{"key": key, "panic": r})
		panic(r)
	}()

	v, err := fn()
	returned = true

	switch {
	case err != nil:
		err = &ProducerError{Key: key, Err: err}
	case isNil(v):
		err = &ProducerError{Key: key, Err: ErrNilValue}
	}
	err = c.settle(st, key, cl, v, err, err == nil)
	c.hooks.ComputeDone(key, err)
	if err != nil {
		c.log.Debug("compute failed", Fields{"key": key, "err": err})
		return zero, err
	}
	return v, nil
}

// settle releases the reservation for key, storing v first when store is
// set. Waiters are woken with the final outcome.
func (c *cache[K, V]) settle(st *stripe[K, V], key K, cl *call[V], v V, err error, store bool) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if store {
		if serr := c.store.Set(key, v); serr != nil {
			err = c.backendErr("set", key, serr)
		}
	}
	delete(st.inflight, key)
	if err == nil {
		cl.val = v
	} else {
		cl.err = err
	}
	close(cl.done)
	return err
}
