package personalize

import (
	"sync"
	"sync/atomic"

	"github.com/kalambet/mentord/internal/profile"
)

// Handle is the in-process owner of one learner's profile. Writers are
// serialized by mu; readers take the latest committed snapshot without
// locking.
type Handle struct {
	mu   sync.Mutex
	snap atomic.Pointer[profile.Profile]

	// loadErr is set on transient handles standing in for a profile that
	// failed to load. They are never cached or persisted.
	loadErr error
}

func newHandle(p profile.Profile) *Handle {
	h := &Handle{}
	h.snap.Store(&p)
	return h
}

// Snapshot returns a copy of the last committed profile.
func (h *Handle) Snapshot() profile.Profile {
	return profile.Clone(*h.snap.Load())
}
