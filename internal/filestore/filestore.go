// Package filestore keeps one JSON document per learner on the local
// filesystem. It is the secondary profile backend.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kalambet/mentord/internal/profile"
)

// ErrNotFound is returned when no document exists for the user.
var ErrNotFound = errors.New("profile file not found")

// ErrStale is returned by PutProfile when the document on disk already
// holds a higher version than the one being written.
var ErrStale = errors.New("profile file is newer")

const (
	filePrefix = "user_"
	fileSuffix = ".json"
)

// Store reads and writes profile documents under a single directory.
type Store struct {
	dir string

	mu sync.Mutex // serializes the version check with the rename
}

// Open creates dir if needed and returns a store rooted there.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating profile dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Name identifies the backend in logs.
func (s *Store) Name() string { return "file" }

// Dir returns the directory holding profile documents.
func (s *Store) Dir() string { return s.dir }

// path maps userID onto a file name. Characters outside [A-Za-z0-9._@-]
// are replaced with '_', so ids never escape the store directory.
func (s *Store) path(userID string) string {
	return filepath.Join(s.dir, filePrefix+sanitize(userID)+fileSuffix)
}

func sanitize(userID string) string {
	var b strings.Builder
	for _, r := range userID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-', r == '@':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	// "." and ".." are legal characters but not legal names.
	if strings.Trim(out, ".") == "" {
		out = strings.ReplaceAll(out, ".", "_")
	}
	return out
}

// GetProfile loads and migrates the document for userID.
func (s *Store) GetProfile(ctx context.Context, userID string) (profile.Profile, error) {
	if err := ctx.Err(); err != nil {
		return profile.Profile{}, err
	}
	data, err := os.ReadFile(s.path(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return profile.Profile{}, ErrNotFound
		}
		return profile.Profile{}, fmt.Errorf("reading profile file: %w", err)
	}
	p, err := profile.Migrate(data, userID, time.Now().UTC())
	if err != nil {
		return profile.Profile{}, fmt.Errorf("loading profile file %s: %w", userID, err)
	}
	return p, nil
}

// PutProfile writes p atomically: the document goes to a temp file in the
// same directory first and is then renamed over the old one. A document
// already holding a higher version is left alone and ErrStale is returned.
func (s *Store) PutProfile(ctx context.Context, p profile.Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding profile %s: %w", p.UserID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.storedVersion(p.UserID); ok && v > p.Version {
		return ErrStale
	}

	tmp, err := os.CreateTemp(s.dir, filePrefix+"*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing profile file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing profile file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing profile file: %w", err)
	}
	if err := os.Rename(tmpName, s.path(p.UserID)); err != nil {
		return fmt.Errorf("replacing profile file: %w", err)
	}
	return nil
}

// storedVersion reports the version of the document on disk. Missing or
// unreadable documents report ok=false so a write can replace them.
func (s *Store) storedVersion(userID string) (int64, bool) {
	data, err := os.ReadFile(s.path(userID))
	if err != nil {
		return 0, false
	}
	var head struct {
		Version int64 `json:"version"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return 0, false
	}
	return head.Version, true
}

// ListUserIDs returns the sanitized ids of every stored document, sorted.
func (s *Store) ListUserIDs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing profile dir: %w", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix))
	}
	sort.Strings(ids)
	return ids, nil
}
