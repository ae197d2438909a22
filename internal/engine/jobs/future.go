package jobs

// futureState is the shared state between a dispatched job and the
// Future handles that observe it.
type futureState[T any] struct {
	done  chan struct{}
	value T
	token *Token
}

func (s *futureState[T]) resolve(v T) {
	s.value = v
	close(s.done)
}

// Future is a handle to an asynchronous computation. The zero value is
// an empty future: no job attached. Copies of a Future share state.
type Future[T any] struct {
	s *futureState[T]
}

// Empty reports whether no job is attached (or the slot was reset).
func (f Future[T]) Empty() bool {
	return f.s == nil
}

// Working reports whether a job is attached but not yet complete.
// A queued-but-not-started job counts as working.
func (f Future[T]) Working() bool {
	if f.s == nil {
		return false
	}
	select {
	case <-f.s.done:
		return false
	default:
		return true
	}
}

// Available reports whether the result can be retrieved without blocking.
// A canceled job still becomes available, carrying the zero value.
func (f Future[T]) Available() bool {
	if f.s == nil {
		return false
	}
	select {
	case <-f.s.done:
		return true
	default:
		return false
	}
}

// Get blocks until the result is available and returns it. Calling Get
// on an empty future returns the zero value immediately.
func (f Future[T]) Get() T {
	var zero T
	if f.s == nil {
		return zero
	}
	<-f.s.done
	return f.s.value
}

// Cancel requests cooperative cancellation of the attached job.
// Safe on an empty future.
func (f Future[T]) Cancel() {
	if f.s != nil && f.s.token != nil {
		f.s.token.Cancel()
	}
}

// Resolved returns an already-available future carrying v. Used where a
// result is produced synchronously but stored in a future slot.
func Resolved[T any](v T) Future[T] {
	s := &futureState[T]{done: make(chan struct{})}
	s.resolve(v)
	return Future[T]{s: s}
}
