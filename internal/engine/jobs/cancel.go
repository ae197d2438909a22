package jobs

import "sync/atomic"

// Cancelable is observed cooperatively by job bodies. Implementations
// must be safe for concurrent use.
type Cancelable interface {
	Canceled() bool
}

// Token is a shared cancellation token. The zero value is usable and
// starts out not-canceled.
type Token struct {
	canceled atomic.Bool
}

// NewToken returns a fresh cancellation token.
func NewToken() *Token {
	return &Token{}
}

// Cancel marks the token canceled. Idempotent.
func (t *Token) Cancel() {
	t.canceled.Store(true)
}

// Canceled reports whether Cancel was called.
func (t *Token) Canceled() bool {
	return t.canceled.Load()
}

// NeverCanceled is a Cancelable that always reports false, for callers
// with no cancellation source.
var NeverCanceled Cancelable = neverCanceled{}

type neverCanceled struct{}

func (neverCanceled) Canceled() bool { return false }
