package connection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/campuslink/matchmaker/internal/database"
)

// PGStore manages friend requests and friendships in PostgreSQL.
type PGStore struct {
	db *sql.DB
}

// NewPGStore creates a store backed by the given database handle.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const requestColumns = `id, requester_id, recipient_id, status, message, created_at, responded_at`

func scanRequest(row interface{ Scan(...any) error }) (*Request, error) {
	var (
		r         Request
		status    string
		message   sql.NullString
		responded sql.NullTime
	)
	if err := row.Scan(&r.ID, &r.RequesterID, &r.RecipientID, &status, &message, &r.CreatedAt, &responded); err != nil {
		return nil, err
	}
	r.Status = Status(status)
	if message.Valid {
		r.Message = &message.String
	}
	if responded.Valid {
		t := responded.Time
		r.RespondedAt = &t
	}
	return &r, nil
}

// Send inserts a pending request. Existing rows between the pair are locked
// so concurrent sends cannot both succeed.
func (s *PGStore) Send(ctx context.Context, requesterID, recipientID string, message *string) (*Request, error) {
	var out *Request
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		// Serialize sends for this pair regardless of direction.
		if _, err := tx.ExecContext(ctx,
			`SELECT pg_advisory_xact_lock(hashtext(LEAST($1::text, $2::text) || ':' || GREATEST($1::text, $2::text)))`,
			requesterID, recipientID); err != nil {
			return err
		}

		var pending bool
		if err := tx.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM friend_requests
				WHERE status = 'pending'
				  AND ((requester_id = $1 AND recipient_id = $2)
				    OR (requester_id = $2 AND recipient_id = $1))
			)`, requesterID, recipientID).Scan(&pending); err != nil {
			return err
		}
		if pending {
			return errPendingExists
		}

		var friends bool
		if err := tx.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM friendships WHERE user_id = $1 AND friend_id = $2)`,
			requesterID, recipientID).Scan(&friends); err != nil {
			return err
		}
		if friends {
			return errAlreadyFriends
		}

		var msg sql.NullString
		if message != nil {
			msg = sql.NullString{String: *message, Valid: true}
		}
		row := tx.QueryRowContext(ctx, `
			INSERT INTO friend_requests (id, requester_id, recipient_id, status, message)
			VALUES ($1, $2, $3, 'pending', $4)
			RETURNING `+requestColumns,
			uuid.New().String(), requesterID, recipientID, msg)
		r, err := scanRequest(row)
		if err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, wrap("send", err)
	}
	return out, nil
}

// Respond moves a pending request to status. Accepting upserts both
// friendship rows in the same transaction.
func (s *PGStore) Respond(ctx context.Context, requestID, recipientID string, status Status) (*Request, []Friendship, error) {
	if _, err := uuid.Parse(requestID); err != nil {
		return nil, nil, errRequestNotFound
	}

	var (
		out     *Request
		created []Friendship
	)
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+requestColumns+` FROM friend_requests WHERE id = $1 FOR UPDATE`, requestID)
		r, err := scanRequest(row)
		if errors.Is(err, sql.ErrNoRows) {
			return errRequestNotFound
		}
		if err != nil {
			return err
		}
		if r.RecipientID != recipientID {
			return errNotRecipient
		}
		if r.Status != StatusPending {
			return errNotPending
		}

		row = tx.QueryRowContext(ctx, `
			UPDATE friend_requests SET status = $2, responded_at = NOW()
			WHERE id = $1
			RETURNING `+requestColumns, requestID, string(status))
		if out, err = scanRequest(row); err != nil {
			return err
		}
		if status != StatusAccepted {
			return nil
		}

		now := time.Now().UTC()
		if out.RespondedAt != nil {
			now = *out.RespondedAt
		}
		for _, pair := range [][2]string{{r.RequesterID, r.RecipientID}, {r.RecipientID, r.RequesterID}} {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO friendships (user_id, friend_id, request_id, created_at)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (user_id, friend_id)
				DO UPDATE SET request_id = EXCLUDED.request_id, created_at = EXCLUDED.created_at`,
				pair[0], pair[1], requestID, now); err != nil {
				return err
			}
			created = append(created, Friendship{UserID: pair[0], FriendID: pair[1], CreatedAt: now, RequestID: requestID})
		}
		return nil
	})
	if err != nil {
		return nil, nil, wrap("respond", err)
	}
	return out, created, nil
}

// RemoveFriend deletes both directions of a friendship.
func (s *PGStore) RemoveFriend(ctx context.Context, userID, friendID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM friendships
		WHERE (user_id = $1 AND friend_id = $2)
		   OR (user_id = $2 AND friend_id = $1)`, userID, friendID)
	if err != nil {
		return wrap("remove friend", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap("remove friend", err)
	}
	if n == 0 {
		return errFriendNotFound
	}
	return nil
}

// Graph loads friendships and pending requests of userID.
func (s *PGStore) Graph(ctx context.Context, userID string) (*Graph, error) {
	g := &Graph{Friends: []Friendship{}, Incoming: []Request{}, Outgoing: []Request{}}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+requestColumns+`
		FROM friend_requests
		WHERE status = 'pending' AND (requester_id = $1 OR recipient_id = $1)
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, wrap("graph requests", err)
	}
	defer rows.Close()
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, wrap("scan request", err)
		}
		if r.RecipientID == userID {
			g.Incoming = append(g.Incoming, *r)
		} else {
			g.Outgoing = append(g.Outgoing, *r)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("graph requests", err)
	}

	frows, err := s.db.QueryContext(ctx, `
		SELECT user_id, friend_id, COALESCE(request_id::text, ''), created_at
		FROM friendships
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, wrap("graph friends", err)
	}
	defer frows.Close()
	for frows.Next() {
		var f Friendship
		if err := frows.Scan(&f.UserID, &f.FriendID, &f.RequestID, &f.CreatedAt); err != nil {
			return nil, wrap("scan friendship", err)
		}
		g.Friends = append(g.Friends, f)
	}
	if err := frows.Err(); err != nil {
		return nil, wrap("graph friends", err)
	}
	return g, nil
}

// wrap prefixes database errors and passes state errors through unchanged.
func wrap(op string, err error) error {
	for _, sentinel := range []error{ErrInvalid, ErrNotFound, ErrForbidden, ErrConflict} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return fmt.Errorf("connection: %s: %w", op, err)
}
