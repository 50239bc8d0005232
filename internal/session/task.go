package session

// Task is a started asynchronous operation. It settles exactly once, and
// settling is the only way an operation leaves the InFlight status.
type Task[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newTask[T any]() *Task[T] {
	return &Task[T]{done: make(chan struct{})}
}

func (t *Task[T]) settle(v T, err error) {
	t.val = v
	t.err = err
	close(t.done)
}

// Done is closed once the task has settled.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task settles and returns its result.
func (t *Task[T]) Wait() (T, error) {
	<-t.done
	return t.val, t.err
}
