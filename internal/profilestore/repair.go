package profilestore

import (
	"context"
	"log/slog"
	"time"

	"github.com/kalambet/mentord/internal/profile"
)

const (
	// DefaultQueueSize bounds pending repair jobs.
	DefaultQueueSize = 256
	// MaxAttempts is how often a repair write is tried before it is dropped.
	MaxAttempts = 3

	maxBackoff = 30 * time.Second
)

type repairJob struct {
	target  Backend
	profile profile.Profile
}

// Repairer applies read-repair writes in the background.
type Repairer struct {
	jobs    chan repairJob
	base    time.Duration
	timeout time.Duration
	logger  *slog.Logger
}

// NewRepairer creates a Repairer holding up to queueSize pending jobs.
// base is the first retry delay; later retries wait base * 2^attempt.
// If base is <= 0 it defaults to one second.
func NewRepairer(queueSize int, base time.Duration) *Repairer {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if base <= 0 {
		base = time.Second
	}
	return &Repairer{
		jobs:    make(chan repairJob, queueSize),
		base:    base,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
}

// Enqueue schedules a write of p to target without blocking. A full queue
// drops the job.
func (r *Repairer) Enqueue(target Backend, p profile.Profile) bool {
	select {
	case r.jobs <- repairJob{target: target, profile: profile.Clone(p)}:
		return true
	default:
		r.logger.Warn("repair queue full, dropping job", "user_id", p.UserID, "backend", target.Name())
		return false
	}
}

// Pending returns the number of queued jobs.
func (r *Repairer) Pending() int { return len(r.jobs) }

// Run processes jobs until ctx is cancelled.
func (r *Repairer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-r.jobs:
			r.process(ctx, job)
		}
	}
}

func (r *Repairer) process(ctx context.Context, job repairJob) {
	var err error
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.backoff(attempt - 1)):
			}
		}

		err = r.write(ctx, job)
		if err == nil || isStale(err) {
			r.logger.Debug("profile repaired", "user_id", job.profile.UserID, "backend", job.target.Name())
			return
		}
		if ctx.Err() != nil {
			return
		}
		r.logger.Warn("profile repair failed", "user_id", job.profile.UserID,
			"backend", job.target.Name(), "attempt", attempt+1, "error", err)
	}
	r.logger.Error("giving up on profile repair", "user_id", job.profile.UserID,
		"backend", job.target.Name(), "error", err)
}

func (r *Repairer) write(ctx context.Context, job repairJob) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return job.target.PutProfile(ctx, job.profile)
}

func (r *Repairer) backoff(attempt int) time.Duration {
	d := r.base << attempt
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}
