package engine

import "errors"

// ErrStopped is returned when an event is submitted after the loop stopped.
var ErrStopped = errors.New("engine stopped")
