package connection

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps requests and friendships in process memory. It backs the
// API when no database is configured and is used in tests.
type MemoryStore struct {
	mu          sync.Mutex
	requests    map[string]*Request
	friendships map[string]map[string]Friendship // user -> friend -> row
	now         func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests:    make(map[string]*Request),
		friendships: make(map[string]map[string]Friendship),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) Send(_ context.Context, requesterID, recipientID string, message *string) (*Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.requests {
		samePair := (r.RequesterID == requesterID && r.RecipientID == recipientID) ||
			(r.RequesterID == recipientID && r.RecipientID == requesterID)
		if !samePair {
			continue
		}
		switch r.Status {
		case StatusPending:
			return nil, errPendingExists
		case StatusAccepted:
			if m.connected(requesterID, recipientID) {
				return nil, errAlreadyFriends
			}
		}
	}

	r := &Request{
		ID:          uuid.New().String(),
		RequesterID: requesterID,
		RecipientID: recipientID,
		Status:      StatusPending,
		Message:     message,
		CreatedAt:   m.now(),
	}
	m.requests[r.ID] = r
	out := *r
	return &out, nil
}

func (m *MemoryStore) connected(a, b string) bool {
	_, ok := m.friendships[a][b]
	return ok
}

func (m *MemoryStore) Respond(_ context.Context, requestID, recipientID string, status Status) (*Request, []Friendship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.requests[requestID]
	if !ok {
		return nil, nil, errRequestNotFound
	}
	if r.RecipientID != recipientID {
		return nil, nil, errNotRecipient
	}
	if r.Status != StatusPending {
		return nil, nil, errNotPending
	}

	now := m.now()
	r.Status = status
	r.RespondedAt = &now

	var created []Friendship
	if status == StatusAccepted {
		created = []Friendship{
			{UserID: r.RequesterID, FriendID: r.RecipientID, CreatedAt: now, RequestID: r.ID},
			{UserID: r.RecipientID, FriendID: r.RequesterID, CreatedAt: now, RequestID: r.ID},
		}
		for _, f := range created {
			if m.friendships[f.UserID] == nil {
				m.friendships[f.UserID] = make(map[string]Friendship)
			}
			m.friendships[f.UserID][f.FriendID] = f
		}
	}
	out := *r
	return &out, created, nil
}

func (m *MemoryStore) RemoveFriend(_ context.Context, userID, friendID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	changed := false
	if _, ok := m.friendships[userID][friendID]; ok {
		delete(m.friendships[userID], friendID)
		changed = true
	}
	if _, ok := m.friendships[friendID][userID]; ok {
		delete(m.friendships[friendID], userID)
		changed = true
	}
	if !changed {
		return errFriendNotFound
	}
	return nil
}

func (m *MemoryStore) Graph(_ context.Context, userID string) (*Graph, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g := &Graph{Friends: []Friendship{}, Incoming: []Request{}, Outgoing: []Request{}}
	for _, r := range m.requests {
		if r.Status != StatusPending {
			continue
		}
		switch userID {
		case r.RecipientID:
			g.Incoming = append(g.Incoming, *r)
		case r.RequesterID:
			g.Outgoing = append(g.Outgoing, *r)
		}
	}
	for _, f := range m.friendships[userID] {
		g.Friends = append(g.Friends, f)
	}

	byNewest := func(rs []Request) {
		sort.Slice(rs, func(i, j int) bool { return rs[i].CreatedAt.After(rs[j].CreatedAt) })
	}
	byNewest(g.Incoming)
	byNewest(g.Outgoing)
	sort.Slice(g.Friends, func(i, j int) bool { return g.Friends[i].CreatedAt.After(g.Friends[j].CreatedAt) })
	return g, nil
}
