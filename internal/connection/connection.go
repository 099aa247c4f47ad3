// Package connection implements friend requests and friendships between
// students: sending, accepting, declining, removing, and the per-user graph.
package connection

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors. Stores wrap them with a human-readable reason.
var (
	ErrInvalid   = errors.New("connection: invalid request")
	ErrNotFound  = errors.New("connection: not found")
	ErrForbidden = errors.New("connection: forbidden")
	ErrConflict  = errors.New("connection: conflict")
)

// Reasons attached to the sentinel errors.
var (
	errPendingExists    = fmt.Errorf("%w: a pending friend request already exists between these users", ErrConflict)
	errAlreadyFriends   = fmt.Errorf("%w: users are already friends", ErrConflict)
	errNotPending       = fmt.Errorf("%w: friend request is not pending", ErrConflict)
	errRequestNotFound  = fmt.Errorf("%w: friend request not found", ErrNotFound)
	errFriendNotFound   = fmt.Errorf("%w: friendship not found", ErrNotFound)
	errNotRecipient     = fmt.Errorf("%w: only the recipient can respond to this friend request", ErrForbidden)
	errSelfRequest      = fmt.Errorf("%w: users cannot send friend requests to themselves", ErrInvalid)
	errSelfRemoval      = fmt.Errorf("%w: cannot remove yourself as a friend", ErrInvalid)
	errMissingUser      = fmt.Errorf("%w: both user ids are required", ErrInvalid)
	errMissingRequestID = fmt.Errorf("%w: request id is required", ErrInvalid)
)

// Status is the lifecycle state of a friend request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
)

// MaxMessageLength bounds the note attached to a request, in characters.
const MaxMessageLength = 500

// Request is a friend request.
type Request struct {
	ID          string     `json:"id"`
	RequesterID string     `json:"requesterId"`
	RecipientID string     `json:"recipientId"`
	Status      Status     `json:"status"`
	Message     *string    `json:"message"`
	CreatedAt   time.Time  `json:"createdAt"`
	RespondedAt *time.Time `json:"respondedAt"`
}

// Friendship is one direction of an accepted connection. Accepting a request
// creates two.
type Friendship struct {
	UserID    string    `json:"userId"`
	FriendID  string    `json:"friendId"`
	CreatedAt time.Time `json:"createdAt"`
	RequestID string    `json:"requestId,omitempty"`
}

// Graph is a user's friends plus pending requests in both directions.
type Graph struct {
	Friends  []Friendship
	Incoming []Request
	Outgoing []Request
}

// Store persists requests and friendships. Implementations enforce the state
// rules atomically:
//
//   - Send fails with ErrConflict when a pending or accepted request exists
//     between the pair in either direction.
//   - Respond fails with ErrNotFound for an unknown id, ErrForbidden when
//     recipientID is not the recipient and ErrConflict when the request is not
//     pending. Accepting creates both friendship rows.
//   - RemoveFriend fails with ErrNotFound when there is no friendship.
type Store interface {
	Send(ctx context.Context, requesterID, recipientID string, message *string) (*Request, error)
	Respond(ctx context.Context, requestID, recipientID string, status Status) (*Request, []Friendship, error)
	RemoveFriend(ctx context.Context, userID, friendID string) error
	Graph(ctx context.Context, userID string) (*Graph, error)
}
