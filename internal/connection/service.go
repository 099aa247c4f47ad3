package connection

import (
	"context"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/campuslink/matchmaker/internal/logging"
	"github.com/campuslink/matchmaker/internal/matching"
	"github.com/campuslink/matchmaker/internal/messaging"
	"github.com/campuslink/matchmaker/internal/metrics"
)

// Event types published on connection.event.<user_id>.
const (
	EventRequested = "requested"
	EventAccepted  = "accepted"
	EventDeclined  = "declined"
	EventRemoved   = "removed"
)

// Event is a connection lifecycle notification. Both parties receive it.
type Event struct {
	Type      string    `json:"type"`
	RequestID string    `json:"requestId,omitempty"`
	ActorID   string    `json:"actorId"`
	TargetID  string    `json:"targetId"`
	At        time.Time `json:"at"`
}

// ProfileLookup resolves user ids to profiles for graph views.
type ProfileLookup interface {
	ProfilesByIDs(ctx context.Context, ids []string) (map[string]*matching.Profile, error)
}

// FriendView is a friend in the graph.
type FriendView struct {
	ID        string                  `json:"id"`
	Since     time.Time               `json:"since"`
	RequestID string                  `json:"requestId,omitempty"`
	Profile   matching.ProfileSummary `json:"profile"`
}

// RequestView is a pending request with the other party's profile.
type RequestView struct {
	Request
	RequesterProfile *matching.ProfileSummary `json:"requesterProfile,omitempty"`
	RecipientProfile *matching.ProfileSummary `json:"recipientProfile,omitempty"`
}

// Counts summarizes a graph.
type Counts struct {
	Friends  int `json:"friends"`
	Incoming int `json:"incoming"`
	Outgoing int `json:"outgoing"`
}

// GraphView is the connections page payload.
type GraphView struct {
	UserID           string        `json:"userId"`
	Friends          []FriendView  `json:"friends"`
	IncomingRequests []RequestView `json:"incomingRequests"`
	OutgoingRequests []RequestView `json:"outgoingRequests"`
	Counts           Counts        `json:"counts"`
}

// Service applies input rules on top of a Store, resolves profiles and
// publishes lifecycle events.
type Service struct {
	store    Store
	profiles ProfileLookup
	pub      messaging.Publisher
	logger   zerolog.Logger
}

// NewService wires a Service. profiles and pub may be nil.
func NewService(store Store, profiles ProfileLookup, pub messaging.Publisher) *Service {
	return &Service{
		store:    store,
		profiles: profiles,
		pub:      pub,
		logger:   logging.For("connections"),
	}
}

// SanitizeMessage trims message and cuts it to MaxMessageLength characters.
// A blank message yields nil.
func SanitizeMessage(message string) *string {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil
	}
	if r := []rune(message); len(r) > MaxMessageLength {
		message = string(r[:MaxMessageLength])
	}
	return &message
}

// Send creates a pending request from requesterID to recipientID.
func (s *Service) Send(ctx context.Context, requesterID, recipientID, message string) (*Request, error) {
	requesterID, recipientID = strings.TrimSpace(requesterID), strings.TrimSpace(recipientID)
	if requesterID == "" || recipientID == "" {
		return nil, errMissingUser
	}
	if requesterID == recipientID {
		return nil, errSelfRequest
	}
	r, err := s.store.Send(ctx, requesterID, recipientID, SanitizeMessage(message))
	if err != nil {
		return nil, err
	}
	s.publish(ctx, Event{Type: EventRequested, RequestID: r.ID, ActorID: requesterID, TargetID: recipientID, At: r.CreatedAt})
	return r, nil
}

// Accept accepts a pending request addressed to recipientID.
func (s *Service) Accept(ctx context.Context, requestID, recipientID string) (*Request, []Friendship, error) {
	return s.respond(ctx, requestID, recipientID, StatusAccepted)
}

// Decline declines a pending request addressed to recipientID.
func (s *Service) Decline(ctx context.Context, requestID, recipientID string) (*Request, error) {
	r, _, err := s.respond(ctx, requestID, recipientID, StatusDeclined)
	return r, err
}

func (s *Service) respond(ctx context.Context, requestID, recipientID string, status Status) (*Request, []Friendship, error) {
	if strings.TrimSpace(requestID) == "" {
		return nil, nil, errMissingRequestID
	}
	if strings.TrimSpace(recipientID) == "" {
		return nil, nil, errMissingUser
	}
	r, friendships, err := s.store.Respond(ctx, requestID, recipientID, status)
	if err != nil {
		return nil, nil, err
	}

	eventType := EventDeclined
	if status == StatusAccepted {
		eventType = EventAccepted
	}
	at := time.Now().UTC()
	if r.RespondedAt != nil {
		at = *r.RespondedAt
	}
	s.publish(ctx, Event{Type: eventType, RequestID: r.ID, ActorID: recipientID, TargetID: r.RequesterID, At: at})
	return r, friendships, nil
}

// Remove deletes the friendship between userID and friendID.
func (s *Service) Remove(ctx context.Context, userID, friendID string) error {
	userID, friendID = strings.TrimSpace(userID), strings.TrimSpace(friendID)
	if userID == "" || friendID == "" {
		return errMissingUser
	}
	if userID == friendID {
		return errSelfRemoval
	}
	if err := s.store.RemoveFriend(ctx, userID, friendID); err != nil {
		return err
	}
	s.publish(ctx, Event{Type: EventRemoved, ActorID: userID, TargetID: friendID, At: time.Now().UTC()})
	return nil
}

// Graph returns the connections of userID with profile snapshots. Profiles
// that cannot be resolved appear with their id only.
func (s *Service) Graph(ctx context.Context, userID string) (*GraphView, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errMissingUser
	}
	g, err := s.store.Graph(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(g.Friends)+len(g.Incoming)+len(g.Outgoing))
	for _, f := range g.Friends {
		ids = append(ids, f.FriendID)
	}
	for _, r := range g.Incoming {
		ids = append(ids, r.RequesterID)
	}
	for _, r := range g.Outgoing {
		ids = append(ids, r.RecipientID)
	}
	profiles := s.lookup(ctx, ids)
	summary := func(id string) *matching.ProfileSummary {
		if p, ok := profiles[id]; ok {
			sum := p.Summary()
			return &sum
		}
		return &matching.ProfileSummary{ID: id, Hobbies: []string{}, Interests: []string{}, Classes: []string{}}
	}

	view := &GraphView{
		UserID:           userID,
		Friends:          make([]FriendView, 0, len(g.Friends)),
		IncomingRequests: make([]RequestView, 0, len(g.Incoming)),
		OutgoingRequests: make([]RequestView, 0, len(g.Outgoing)),
		Counts:           Counts{Friends: len(g.Friends), Incoming: len(g.Incoming), Outgoing: len(g.Outgoing)},
	}
	for _, f := range g.Friends {
		view.Friends = append(view.Friends, FriendView{
			ID: f.FriendID, Since: f.CreatedAt, RequestID: f.RequestID, Profile: *summary(f.FriendID),
		})
	}
	for _, r := range g.Incoming {
		view.IncomingRequests = append(view.IncomingRequests, RequestView{Request: r, RequesterProfile: summary(r.RequesterID)})
	}
	for _, r := range g.Outgoing {
		view.OutgoingRequests = append(view.OutgoingRequests, RequestView{Request: r, RecipientProfile: summary(r.RecipientID)})
	}
	return view, nil
}

func (s *Service) lookup(ctx context.Context, ids []string) map[string]*matching.Profile {
	if s.profiles == nil || len(ids) == 0 {
		return nil
	}
	profiles, err := s.profiles.ProfilesByIDs(ctx, ids)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("resolve connection profiles")
		return nil
	}
	return profiles
}

// publish counts the event and notifies both parties. Failures are logged.
func (s *Service) publish(ctx context.Context, ev Event) {
	metrics.ConnectionEventsTotal.WithLabelValues(ev.Type).Inc()
	if s.pub == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error().Err(err).Msg("marshal connection event")
		return
	}
	for _, userID := range []string{ev.ActorID, ev.TargetID} {
		if err := s.pub.Publish(messaging.ConnectionEventSubject(userID), data); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("user", userID).Str("type", ev.Type).Msg("publish connection event")
		}
	}
}
