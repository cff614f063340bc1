package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kalambet/mentord/internal/profile"
)

// GetProfile loads the profile stored under userID. When no row matches
// and userID looks like an email, the most recently updated profile with
// that email is returned instead. Stored documents are migrated on read.
func (s *Store) GetProfile(ctx context.Context, userID string) (profile.Profile, error) {
	doc, err := s.queryDocument(ctx, "SELECT document FROM learner_profiles WHERE user_id = ?", userID)
	if errors.Is(err, ErrNotFound) && strings.Contains(userID, "@") {
		doc, err = s.queryDocument(ctx,
			"SELECT document FROM learner_profiles WHERE email = ? ORDER BY updated_at DESC LIMIT 1", userID)
	}
	if err != nil {
		return profile.Profile{}, err
	}
	p, err := profile.Migrate(doc, userID, time.Now().UTC())
	if err != nil {
		return profile.Profile{}, fmt.Errorf("loading profile %s: %w", userID, err)
	}
	return p, nil
}

func (s *Store) queryDocument(ctx context.Context, query string, arg string) ([]byte, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, s.rebind(query), arg).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying profile: %w", err)
	}
	return []byte(doc), nil
}

// PutProfile upserts p. A row holding a higher version is left untouched
// and ErrStale is returned.
func (s *Store) PutProfile(ctx context.Context, p profile.Profile) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding profile %s: %w", p.UserID, err)
	}
	res, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO learner_profiles (user_id, email, display_name, skill_level, version, interactions_count, created_at, updated_at, document)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			email = excluded.email,
			display_name = excluded.display_name,
			skill_level = excluded.skill_level,
			version = excluded.version,
			interactions_count = excluded.interactions_count,
			updated_at = excluded.updated_at,
			document = excluded.document
		WHERE learner_profiles.version <= excluded.version`),
		p.UserID, nullable(p.Email), p.DisplayName, string(p.SkillLevel), p.Version, p.InteractionsCount,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt), string(doc),
	)
	if err != nil {
		return fmt.Errorf("saving profile %s: %w", p.UserID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrStale
	}
	return nil
}

// ListProfiles returns profiles ordered by most recent update.
func (s *Store) ListProfiles(ctx context.Context, limit int) ([]ProfileRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT user_id, email, display_name, skill_level, version, interactions_count, updated_at
		FROM learner_profiles ORDER BY updated_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	defer rows.Close()

	var out []ProfileRow
	for rows.Next() {
		var r ProfileRow
		var email, name sql.NullString
		var level, updated string
		if err := rows.Scan(&r.UserID, &email, &name, &level, &r.Version, &r.InteractionsCount, &updated); err != nil {
			return nil, fmt.Errorf("scanning profile row: %w", err)
		}
		r.Email, r.DisplayName, r.SkillLevel = email.String, name.String, profile.SkillLevel(level)
		if t, err := time.Parse(time.RFC3339Nano, updated); err == nil {
			r.UpdatedAt = t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
