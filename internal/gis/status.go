// Package gis provides the map and layer model: a mutable set of data
// layers queried by tile key, with a status taxonomy that separates
// configuration failures from transient per-tile data failures.
package gis

import "fmt"

// StatusCode classifies the outcome of a layer operation.
type StatusCode int

const (
	// StatusOK means the operation produced data.
	StatusOK StatusCode = iota

	// StatusUnavailable means the layer has no data for the request
	// (out of extent, out of zoom range). Not an error.
	StatusUnavailable

	// StatusFailed means the operation failed (I/O error, bad data).
	// Transient per-tile failures are absorbed by the caller.
	StatusFailed

	// StatusCanceled means the operation observed its cancellation
	// token and returned early. Not an error.
	StatusCanceled
)

// Status is the result descriptor for layer operations.
type Status struct {
	Code StatusCode
	Err  error
}

// OK is the success status.
var OK = Status{Code: StatusOK}

// Unavailable reports no data for the request.
func Unavailable() Status {
	return Status{Code: StatusUnavailable}
}

// Failed wraps an error into a failed status.
func Failed(err error) Status {
	return Status{Code: StatusFailed, Err: err}
}

// Canceled reports a cooperatively canceled operation.
func Canceled() Status {
	return Status{Code: StatusCanceled}
}

// Ok reports whether the status carries data.
func (s Status) Ok() bool {
	return s.Code == StatusOK
}

func (s Status) String() string {
	switch s.Code {
	case StatusOK:
		return "ok"
	case StatusUnavailable:
		return "unavailable"
	case StatusCanceled:
		return "canceled"
	default:
		if s.Err != nil {
			return fmt.Sprintf("failed: %v", s.Err)
		}
		return "failed"
	}
}
