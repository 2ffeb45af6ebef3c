package document

import (
	"context"
	"fmt"
	"sync"
)

// taskSet runs at most one background task per document id and lets callers wait on them.
type taskSet struct {
	mu     sync.Mutex
	done   map[string]chan struct{}
	wg     sync.WaitGroup
	closed bool
}

func newTaskSet() *taskSet {
	return &taskSet{done: make(map[string]chan struct{})}
}

// slot is a reserved task id. Exactly one of run or release must follow.
type slot struct {
	set  *taskSet
	id   string
	done chan struct{}
	once sync.Once
}

// reserve registers id before its task exists so Wait and shutdown already account for it.
// It returns false when a task for id is still registered or the set is shutting down.
func (t *taskSet) reserve(id string) (*slot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, false
	}
	if _, busy := t.done[id]; busy {
		return nil, false
	}
	done := make(chan struct{})
	t.done[id] = done
	t.wg.Add(1)
	return &slot{set: t, id: id, done: done}, true
}

// run launches fn and frees the slot when it returns.
func (s *slot) run(fn func()) {
	go func() {
		defer s.release()
		fn()
	}()
}

// release frees the slot without running anything. Safe to call more than once.
func (s *slot) release() {
	s.once.Do(func() {
		s.set.mu.Lock()
		delete(s.set.done, s.id)
		s.set.mu.Unlock()
		close(s.done)
		s.set.wg.Done()
	})
}

// start reserves id and launches fn. It returns false without running fn when
// reserve refuses.
func (t *taskSet) start(id string, fn func()) bool {
	sl, ok := t.reserve(id)
	if !ok {
		return false
	}
	sl.run(fn)
	return true
}

// wait blocks until the task for id finishes. Returns immediately when none is registered.
func (t *taskSet) wait(ctx context.Context, id string) error {
	t.mu.Lock()
	done, ok := t.done[id]
	t.mu.Unlock()
	if !ok {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for %s: %w", id, ctx.Err())
	}
}

// running returns the number of registered tasks.
func (t *taskSet) running() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.done)
}

// shutdown refuses new tasks and waits for the running ones.
func (t *taskSet) shutdown(ctx context.Context) error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown with %d tasks running: %w", t.running(), ctx.Err())
	}
}
