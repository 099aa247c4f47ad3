package connection

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuslink/matchmaker/internal/database"
)

func newTestPGStore(t *testing.T) *PGStore {
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
	require.NoError(t, database.Migrate(url))
	clean := func() {
		db.ExecContext(ctx, `DELETE FROM friendships WHERE user_id LIKE 'test_%'`)
		db.ExecContext(ctx, `DELETE FROM friend_requests WHERE requester_id LIKE 'test_%'`)
	}
	clean()
	t.Cleanup(func() {
		clean()
		db.Close()
	})
	return NewPGStore(db)
}

func TestPGStoreLifecycle(t *testing.T) {
	s := newTestPGStore(t)
	ctx := context.Background()
	msg := "hello"

	r, err := s.Send(ctx, "test_a", "test_b", &msg)
	require.NoError(t, err)
	require.NotNil(t, r.Message)
	assert.Equal(t, "hello", *r.Message)

	_, err = s.Send(ctx, "test_b", "test_a", nil)
	assert.ErrorIs(t, err, ErrConflict)

	_, _, err = s.Respond(ctx, r.ID, "test_a", StatusAccepted)
	assert.ErrorIs(t, err, ErrForbidden)

	_, _, err = s.Respond(ctx, "not-a-uuid", "test_b", StatusAccepted)
	assert.ErrorIs(t, err, ErrNotFound)

	accepted, friendships, err := s.Respond(ctx, r.ID, "test_b", StatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, accepted.Status)
	assert.Len(t, friendships, 2)

	_, err = s.Send(ctx, "test_a", "test_b", nil)
	assert.ErrorIs(t, err, ErrConflict)

	g, err := s.Graph(ctx, "test_a")
	require.NoError(t, err)
	require.Len(t, g.Friends, 1)
	assert.Equal(t, "test_b", g.Friends[0].FriendID)

	require.NoError(t, s.RemoveFriend(ctx, "test_a", "test_b"))
	assert.ErrorIs(t, s.RemoveFriend(ctx, "test_a", "test_b"), ErrNotFound)
}
