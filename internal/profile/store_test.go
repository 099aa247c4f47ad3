package profile

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/campuslink/matchmaker/internal/database"
	"github.com/campuslink/matchmaker/internal/matching"
)

// newTestStore connects to TEST_DATABASE_URL, migrates it and removes rows
// created by earlier runs. Tests that call it skip without a database.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := database.Open(ctx, url, 2)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	if err := database.Migrate(url); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	clean := func() {
		db.ExecContext(ctx, `DELETE FROM profiles WHERE id LIKE 'test_%'`)
	}
	clean()
	t.Cleanup(func() {
		clean()
		db.Close()
	})
	return NewStore(db)
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`100%_a\b`); got != `100\%\_a\\b` {
		t.Fatalf("escapeLike = %q", got)
	}
}

func TestNullable(t *testing.T) {
	if n := nullable("  "); n.Valid {
		t.Error("blank string should be NULL")
	}
	if n := nullable(" x "); !n.Valid || n.String != "x" {
		t.Errorf("nullable = %+v", n)
	}
}

func TestGet_NotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get(context.Background(), "test_missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpsertAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := &matching.Profile{
		ID:             "test_ada",
		Name:           "Ada",
		Major:          "Mathematics",
		GraduationYear: 2027,
		Hobbies:        []string{"Chess", "Rock Climbing"},
		Instagram:      "ada",
	}
	if err := s.Upsert(ctx, p); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, err := s.Get(ctx, "test_ada")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Ada" || got.GraduationYear != 2027 || len(got.Hobbies) != 2 || len(got.Interests) != 0 {
		t.Errorf("Get = %+v", got)
	}
}

func TestAvailabilityRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Upsert(ctx, &matching.Profile{ID: "test_slots"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	saved, err := s.SaveAvailability(ctx, "test_slots", []matching.Slot{
		{Day: time.Tuesday, Start: 840, End: 900},
		{Day: time.Tuesday, Start: 900, End: 930},
		{Day: time.Tuesday, Start: 960, End: 900},
		{Day: time.Monday, Start: 540, End: 600},
	})
	if err != nil {
		t.Fatalf("SaveAvailability: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("saved = %v, want 2 merged slots", saved)
	}

	got, err := s.Availability(ctx, "test_slots")
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	if len(got) != 2 || got[0].Day != time.Monday || got[1].End != 930 {
		t.Fatalf("Availability = %v", got)
	}

	if err := s.ClearAvailability(ctx, "test_slots"); err != nil {
		t.Fatalf("ClearAvailability: %v", err)
	}
	if got, _ := s.Availability(ctx, "test_slots"); len(got) != 0 {
		t.Fatalf("after clear = %v", got)
	}

	if _, err := s.SaveAvailability(ctx, "test_nobody", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("save for unknown user: %v", err)
	}
}

func TestCandidatePoolAndSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, p := range []*matching.Profile{
		{ID: "test_seeker", Hobbies: []string{"chess"}},
		{ID: "test_a", Name: "A", Hobbies: []string{"Rock Climbing"}},
		{ID: "test_b", Name: "B", Hobbies: []string{"chess", "100% effort"}},
		{ID: "test_c", Name: "C"},
	} {
		if err := s.Upsert(ctx, p); err != nil {
			t.Fatalf("Upsert %s: %v", p.ID, err)
		}
	}
	for _, id := range []string{"test_seeker", "test_a", "test_b"} {
		if _, err := s.SaveAvailability(ctx, id, []matching.Slot{{Day: time.Friday, Start: 600, End: 660}}); err != nil {
			t.Fatalf("SaveAvailability: %v", err)
		}
	}

	pool, err := s.CandidatePool(ctx, "test_seeker")
	if err != nil {
		t.Fatalf("CandidatePool: %v", err)
	}
	seen := map[string]bool{}
	for _, c := range pool {
		seen[c.Profile.ID] = true
		if c.Profile.ID == "test_a" && len(c.Availability) != 1 {
			t.Errorf("test_a availability = %v", c.Availability)
		}
	}
	if seen["test_seeker"] || seen["test_c"] || !seen["test_a"] || !seen["test_b"] {
		t.Fatalf("pool ids = %v", seen)
	}

	found, err := s.SearchByHobby(ctx, " CLIMB ", "test_seeker", 10)
	if err != nil {
		t.Fatalf("SearchByHobby: %v", err)
	}
	if len(found) != 1 || found[0].ID != "test_a" {
		t.Fatalf("SearchByHobby = %v", found)
	}
	if found, _ := s.SearchByHobby(ctx, "%", "", 10); len(found) != 1 || found[0].ID != "test_b" {
		t.Fatalf("literal %% search = %v", found)
	}

	byID, err := s.ProfilesByIDs(ctx, []string{"test_a", "test_missing"})
	if err != nil {
		t.Fatalf("ProfilesByIDs: %v", err)
	}
	if len(byID) != 1 || byID["test_a"] == nil {
		t.Fatalf("ProfilesByIDs = %v", byID)
	}
}
