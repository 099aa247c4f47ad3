// Package suggest produces activity ideas and hangout plans for students.
// A text-generation model is asked first; unusable output, an unreachable
// model or an open circuit breaker fall back to deterministic suggestions.
package suggest

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when no text-generation endpoint is set.
var ErrNotConfigured = errors.New("suggest: text generation is not configured")

// Generator turns a prompt into model text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Activity is one suggested meetup.
type Activity struct {
	Title           string   `json:"title"`
	Summary         string   `json:"summary,omitempty"`
	DurationMinutes int      `json:"durationMinutes,omitempty"`
	Tags            []string `json:"tags"`
	PrimaryReason   string   `json:"primaryReason,omitempty"`
}

// ActivityRequest asks for ideas from a free-text description and hobbies.
type ActivityRequest struct {
	Description string   `json:"description"`
	Hobbies     []string `json:"hobbies"`
}

// Person is a hangout participant.
type Person struct {
	ID        string   `json:"id,omitempty"`
	Name      string   `json:"name,omitempty"`
	Major     string   `json:"major,omitempty"`
	Hobbies   []string `json:"hobbies"`
	Interests []string `json:"interests"`
}

// HangoutRequest asks for a plan for a seeker and their friends.
type HangoutRequest struct {
	Seeker          Person   `json:"seeker"`
	Friends         []Person `json:"friends"`
	Focus           string   `json:"focus,omitempty"`
	DurationMinutes int      `json:"durationMinutes,omitempty"`
}

// AgendaItem is one block of a hangout plan.
type AgendaItem struct {
	Label           string `json:"label"`
	DurationMinutes int    `json:"durationMinutes,omitempty"`
	Detail          string `json:"detail,omitempty"`
}

// Plan is a hangout plan.
type Plan struct {
	Title                string       `json:"title"`
	Summary              string       `json:"summary"`
	Agenda               []AgendaItem `json:"agenda"`
	ConversationStarters []string     `json:"conversationStarters"`
	SharedConnections    []string     `json:"sharedConnections"`
	PrepReminders        []string     `json:"prepReminders"`
	FollowUpIdeas        []string     `json:"followUpIdeas"`
	Participants         []string     `json:"participants"`
}

// Limits applied to inputs and model output.
const (
	MaxPromptHobbies   = 8
	MaxSuggestions     = 4
	MaxDescriptionLen  = 800
	MaxHangoutDuration = 240
	DefaultHangoutTime = 60
)
