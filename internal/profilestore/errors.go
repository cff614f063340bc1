package profilestore

import (
	"errors"
	"fmt"
)

// ErrPersistenceDegraded is matched by errors.Is when no backend accepted a
// write. Callers treat it as a warning: the in-memory state is still valid.
var ErrPersistenceDegraded = errors.New("persistence degraded")

// ErrStale is matched by errors.Is when a backend refused a write because
// it already holds a newer version. The writer is behind and should reload.
var ErrStale = errors.New("profile write is stale")

// PersistenceError records the failure of a single backend.
type PersistenceError struct {
	Backend string
	Op      string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// DegradedError is returned by Put when both backends failed, and by Get
// when neither backend could be read and neither reported a clean miss.
type DegradedError struct {
	Primary  error
	Fallback error
}

func (e *DegradedError) Error() string {
	return fmt.Sprintf("%v: primary: %v; fallback: %v", ErrPersistenceDegraded, e.Primary, e.Fallback)
}

// Is makes errors.Is(err, ErrPersistenceDegraded) hold.
func (e *DegradedError) Is(target error) bool {
	return target == ErrPersistenceDegraded
}

func (e *DegradedError) Unwrap() []error {
	return []error{e.Primary, e.Fallback}
}
