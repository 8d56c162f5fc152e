package stream

import "golang.org/x/sync/errgroup"

// transaction batches the side effects produced while the manager's lock
// was held: user callbacks, downstream ConnectionManager/EventLoop calls,
// and scheduling onto connection event loops. None of it runs until
// execute is called, which happens only after the lock is released — no
// user-visible callback and no downstream call ever occurs with the lock
// held.
type transaction struct {
	actions []func()
}

func (t *transaction) enqueue(fn func()) {
	if fn == nil {
		return
	}
	t.actions = append(t.actions, fn)
}

// execute runs every queued action concurrently and waits for all of
// them to return. Actions are independent side effects (distinct
// callbacks, distinct connection acquisitions); none depends on another's
// result, so ordering between them is not guaranteed.
func (t *transaction) execute() {
	if len(t.actions) == 0 {
		return
	}
	if len(t.actions) == 1 {
		t.actions[0]()
		return
	}

	var g errgroup.Group
	for _, fn := range t.actions {
		g.Go(func() error {
			fn()
			return nil
		})
	}
	_ = g.Wait()
}
