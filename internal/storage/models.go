package storage

import (
	"errors"
	"time"

	"github.com/kalambet/mentord/internal/profile"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrStale is returned by PutProfile when the stored row already holds a
// newer version. The write is skipped.
var ErrStale = errors.New("stored profile is newer")

// ProfileRow is the listing view of one stored profile.
type ProfileRow struct {
	UserID            string
	Email             string
	DisplayName       string
	SkillLevel        profile.SkillLevel
	Version           int64
	InteractionsCount int
	UpdatedAt         time.Time
}
