// Package profilestore combines the primary SQL store and the file store
// into one profile repository with read-repair and last-write-wins
// reconciliation.
package profilestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/mentord/internal/filestore"
	"github.com/kalambet/mentord/internal/profile"
	"github.com/kalambet/mentord/internal/storage"
)

// DefaultTimeout bounds each backend operation.
const DefaultTimeout = 2 * time.Second

// Backend is one durable copy of the profile set.
type Backend interface {
	Name() string
	GetProfile(ctx context.Context, userID string) (profile.Profile, error)
	PutProfile(ctx context.Context, p profile.Profile) error
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound) || errors.Is(err, filestore.ErrNotFound)
}

func isStale(err error) bool {
	return errors.Is(err, storage.ErrStale) || errors.Is(err, filestore.ErrStale)
}

// Store reads from and writes to a primary and a fallback backend.
type Store struct {
	primary  Backend
	fallback Backend
	repairs  *Repairer
	timeout  time.Duration
	clock    profile.Clock
	logger   *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithTimeout sets the per-backend operation timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithClock replaces the clock used for synthesized default profiles.
func WithClock(c profile.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithRepairer routes read-repair writes into r. Without it repairs are
// only logged.
func WithRepairer(r *Repairer) Option {
	return func(s *Store) { s.repairs = r }
}

// New returns a Store over primary and fallback.
func New(primary, fallback Backend, opts ...Option) *Store {
	s := &Store{
		primary:  primary,
		fallback: fallback,
		timeout:  DefaultTimeout,
		clock:    profile.SystemClock(),
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Get returns the stored profile for userID. Both backends are read; the
// newer copy wins and the other backend is queued for repair. One failed
// read is logged and tolerated. When both backends report the user missing,
// a default profile is returned with found=false and nothing is persisted.
// When no copy could be read and at least one backend failed, Get returns a
// *DegradedError: the user may exist, so a default must not stand in for it.
func (s *Store) Get(ctx context.Context, userID string) (p profile.Profile, found bool, err error) {
	var (
		prim, fall       profile.Profile
		primErr, fallErr error
	)
	var g errgroup.Group
	g.Go(func() error {
		prim, primErr = s.read(ctx, s.primary, userID)
		return nil
	})
	g.Go(func() error {
		fall, fallErr = s.read(ctx, s.fallback, userID)
		return nil
	})
	_ = g.Wait()

	switch {
	case primErr == nil && fallErr == nil:
		if profile.Newer(fall, prim) {
			s.repair(s.primary, fall, "primary is stale")
			return fall, true, nil
		}
		if profile.Newer(prim, fall) {
			s.repair(s.fallback, prim, "fallback is stale")
		}
		return prim, true, nil
	case primErr == nil:
		if isNotFound(fallErr) {
			s.repair(s.fallback, prim, "missing from fallback")
		}
		return prim, true, nil
	case fallErr == nil:
		s.repair(s.primary, fall, "missing from primary")
		return fall, true, nil
	case isNotFound(primErr) && isNotFound(fallErr):
		return profile.Default(userID, s.clock.Now()), false, nil
	}

	return profile.Profile{}, false, &DegradedError{
		Primary:  &PersistenceError{Backend: s.primary.Name(), Op: "read", Err: primErr},
		Fallback: &PersistenceError{Backend: s.fallback.Name(), Op: "read", Err: fallErr},
	}
}

func (s *Store) read(ctx context.Context, b Backend, userID string) (profile.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	p, err := b.GetProfile(ctx, userID)
	if err != nil && !isNotFound(err) {
		s.logger.Warn("profile read failed",
			"user_id", userID, "error", &PersistenceError{Backend: b.Name(), Op: "read", Err: err})
	}
	return p, err
}

func (s *Store) repair(target Backend, p profile.Profile, reason string) {
	s.logger.Info("scheduling profile repair", "user_id", p.UserID, "backend", target.Name(), "reason", reason)
	if s.repairs == nil {
		return
	}
	s.repairs.Enqueue(target, p)
}

// Put writes p to both backends concurrently. If either backend holds a
// newer version the returned error matches ErrStale. Otherwise one failure
// is logged and tolerated; if both fail a *DegradedError is returned.
func (s *Store) Put(ctx context.Context, p profile.Profile) error {
	var primErr, fallErr error
	var g errgroup.Group
	g.Go(func() error {
		primErr = s.write(ctx, s.primary, p)
		return nil
	})
	g.Go(func() error {
		fallErr = s.write(ctx, s.fallback, p)
		return nil
	})
	_ = g.Wait()

	switch {
	case isStale(primErr) || isStale(fallErr):
		return fmt.Errorf("%w: %s version %d: %w", ErrStale, p.UserID, p.Version, errors.Join(primErr, fallErr))
	case primErr != nil && fallErr != nil:
		return &DegradedError{Primary: primErr, Fallback: fallErr}
	case primErr != nil:
		s.logger.Warn("profile write failed", "user_id", p.UserID, "error", primErr)
	case fallErr != nil:
		s.logger.Warn("profile write failed", "user_id", p.UserID, "error", fallErr)
	}
	return nil
}

func (s *Store) write(ctx context.Context, b Backend, p profile.Profile) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	err := b.PutProfile(ctx, p)
	if isStale(err) {
		s.logger.Warn("refused stale profile write", "user_id", p.UserID, "backend", b.Name(), "version", p.Version)
	}
	if err != nil {
		return &PersistenceError{Backend: b.Name(), Op: "write", Err: err}
	}
	return nil
}
