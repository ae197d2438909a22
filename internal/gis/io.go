package gis

import (
	"github.com/openglobe3d/strata/internal/engine/jobs"
)

// IO carries per-request options through layer reads: the cancellation
// token for the surrounding job plus fetch settings. The zero value is
// usable and never canceled.
type IO struct {
	cancelable jobs.Cancelable

	// UserAgent is sent with remote tile requests.
	UserAgent string
}

// NewIO returns IO bound to the given cancellation source.
func NewIO(c jobs.Cancelable) IO {
	return IO{cancelable: c}
}

// WithCancelable returns a copy of io observing c. Used when a job body
// re-binds shared options to its own token.
func (io IO) WithCancelable(c jobs.Cancelable) IO {
	io.cancelable = c
	return io
}

// Canceled reports whether the surrounding operation was canceled.
func (io IO) Canceled() bool {
	return io.cancelable != nil && io.cancelable.Canceled()
}
