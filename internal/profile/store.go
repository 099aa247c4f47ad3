// Package profile provides PostgreSQL-backed storage for student profiles and
// their weekly availability. It feeds the matching engine with candidate pools
// and serves the hobby search and schedule endpoints.
package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/campuslink/matchmaker/internal/database"
	"github.com/campuslink/matchmaker/internal/matching"
)

// ErrNotFound is returned when a profile does not exist.
var ErrNotFound = errors.New("profile: not found")

// MaxPoolSize bounds the candidate pool loaded for one matching pass.
const MaxPoolSize = 500

const profileColumns = `id, COALESCE(name, ''), COALESCE(email, ''), COALESCE(major, ''),
	COALESCE(graduation_year, 0), hobbies, interests, classes, clubs,
	COALESCE(bio, ''), COALESCE(fun_fact, ''), COALESCE(vibe_check, ''),
	COALESCE(favorite_spot, ''), COALESCE(instagram, '')`

// Store manages profiles and availability in PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates a new profile store backed by the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (*matching.Profile, error) {
	var (
		p                                  matching.Profile
		hobbies, interests, classes, clubs pq.StringArray
	)
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.Major, &p.GraduationYear,
		&hobbies, &interests, &classes, &clubs,
		&p.Bio, &p.FunFact, &p.VibeCheck, &p.FavoriteSpot, &p.Instagram)
	if err != nil {
		return nil, err
	}
	p.Hobbies, p.Interests, p.Classes, p.Clubs = hobbies, interests, classes, clubs
	return &p, nil
}

func nullable(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

func textArray(values []string) any {
	if values == nil {
		values = []string{}
	}
	return pq.Array(values)
}

// Get returns the profile with the given id.
func (s *Store) Get(ctx context.Context, id string) (*matching.Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("profile: get: %w", err)
	}
	return p, nil
}

// Upsert inserts or replaces a profile.
func (s *Store) Upsert(ctx context.Context, p *matching.Profile) error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("profile: upsert: empty id")
	}
	var year sql.NullInt64
	if p.GraduationYear > 0 {
		year = sql.NullInt64{Int64: int64(p.GraduationYear), Valid: true}
	}

	const query = `
		INSERT INTO profiles (id, name, email, major, graduation_year, hobbies, interests,
			classes, clubs, bio, fun_fact, vibe_check, favorite_spot, instagram)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, email = EXCLUDED.email, major = EXCLUDED.major,
			graduation_year = EXCLUDED.graduation_year, hobbies = EXCLUDED.hobbies,
			interests = EXCLUDED.interests, classes = EXCLUDED.classes, clubs = EXCLUDED.clubs,
			bio = EXCLUDED.bio, fun_fact = EXCLUDED.fun_fact, vibe_check = EXCLUDED.vibe_check,
			favorite_spot = EXCLUDED.favorite_spot, instagram = EXCLUDED.instagram,
			updated_at = NOW()`

	_, err := s.db.ExecContext(ctx, query,
		p.ID, nullable(p.Name), nullable(p.Email), nullable(p.Major), year,
		textArray(p.Hobbies), textArray(p.Interests), textArray(p.Classes), textArray(p.Clubs),
		nullable(p.Bio), nullable(p.FunFact), nullable(p.VibeCheck),
		nullable(p.FavoriteSpot), nullable(p.Instagram),
	)
	if err != nil {
		return fmt.Errorf("profile: upsert: %w", err)
	}
	return nil
}

// Availability returns the stored slots of a user, Monday first. A user
// without slots gets an empty list.
func (s *Store) Availability(ctx context.Context, userID string) ([]matching.Slot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT day, start_minute, end_minute
		FROM availability_slots
		WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("profile: availability: %w", err)
	}
	defer rows.Close()

	slots := []matching.Slot{}
	for rows.Next() {
		var (
			day        int
			start, end int
		)
		if err := rows.Scan(&day, &start, &end); err != nil {
			return nil, fmt.Errorf("profile: scan slot: %w", err)
		}
		slots = append(slots, matching.Slot{Day: time.Weekday(day), Start: start, End: end})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("profile: availability: %w", err)
	}
	return matching.MergeSlots(slots), nil
}

// SaveAvailability replaces a user's slots with the merged form of slots.
// Malformed slots are dropped. The profile must exist.
func (s *Store) SaveAvailability(ctx context.Context, userID string, slots []matching.Slot) ([]matching.Slot, error) {
	merged := matching.MergeSlots(matching.ValidSlots(userID, slots))

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM profiles WHERE id = $1)`, userID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM availability_slots WHERE user_id = $1`, userID); err != nil {
			return err
		}
		for _, slot := range merged {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO availability_slots (user_id, day, start_minute, end_minute)
				VALUES ($1, $2, $3, $4)`,
				userID, int(slot.Day), slot.Start, slot.End); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("profile: save availability: %w", err)
	}
	return merged, nil
}

// ClearAvailability deletes every slot of a user.
func (s *Store) ClearAvailability(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM availability_slots WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("profile: clear availability: %w", err)
	}
	return nil
}

// CandidatePool loads up to MaxPoolSize profiles other than the seeker,
// together with their availability. Profiles without slots are skipped since
// they can never overlap.
func (s *Store) CandidatePool(ctx context.Context, seekerID string) ([]matching.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+profileColumns+`
		FROM profiles p
		WHERE p.id <> $1
		  AND EXISTS (SELECT 1 FROM availability_slots a WHERE a.user_id = p.id)
		ORDER BY p.updated_at DESC
		LIMIT $2`, seekerID, MaxPoolSize)
	if err != nil {
		return nil, fmt.Errorf("profile: candidate pool: %w", err)
	}
	profiles, err := collect(rows)
	if err != nil {
		return nil, fmt.Errorf("profile: candidate pool: %w", err)
	}
	if len(profiles) == 0 {
		return []matching.Candidate{}, nil
	}

	ids := make([]string, len(profiles))
	for i, p := range profiles {
		ids[i] = p.ID
	}
	slots, err := s.slotsFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	pool := make([]matching.Candidate, len(profiles))
	for i, p := range profiles {
		pool[i] = matching.Candidate{Profile: p, Availability: slots[p.ID]}
	}
	return pool, nil
}

func (s *Store) slotsFor(ctx context.Context, ids []string) (map[string][]matching.Slot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, day, start_minute, end_minute
		FROM availability_slots
		WHERE user_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("profile: load slots: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]matching.Slot, len(ids))
	for rows.Next() {
		var (
			id              string
			day, start, end int
		)
		if err := rows.Scan(&id, &day, &start, &end); err != nil {
			return nil, fmt.Errorf("profile: scan slot: %w", err)
		}
		out[id] = append(out[id], matching.Slot{Day: time.Weekday(day), Start: start, End: end})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("profile: load slots: %w", err)
	}
	return out, nil
}

// SearchByHobby returns profiles with a hobby containing term,
// case-insensitively, excluding excludeID. The term is matched literally.
func (s *Store) SearchByHobby(ctx context.Context, term, excludeID string, limit int) ([]*matching.Profile, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return []*matching.Profile{}, nil
	}
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + escapeLike(term) + "%"

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+profileColumns+`
		FROM profiles p
		WHERE p.id <> $1
		  AND EXISTS (SELECT 1 FROM unnest(p.hobbies) h WHERE lower(h) LIKE $2)
		ORDER BY p.name NULLS LAST, p.id
		LIMIT $3`, excludeID, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("profile: search by hobby: %w", err)
	}
	profiles, err := collect(rows)
	if err != nil {
		return nil, fmt.Errorf("profile: search by hobby: %w", err)
	}
	return profiles, nil
}

// ProfilesByIDs returns the profiles found for ids, keyed by id. Unknown ids
// are absent from the map.
func (s *Store) ProfilesByIDs(ctx context.Context, ids []string) (map[string]*matching.Profile, error) {
	out := make(map[string]*matching.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("profile: by ids: %w", err)
	}
	profiles, err := collect(rows)
	if err != nil {
		return nil, fmt.Errorf("profile: by ids: %w", err)
	}
	for _, p := range profiles {
		out[p.ID] = p
	}
	return out, nil
}

func collect(rows *sql.Rows) ([]*matching.Profile, error) {
	defer rows.Close()
	out := []*matching.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
