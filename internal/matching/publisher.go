package matching

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/campuslink/matchmaker/internal/messaging"
)

// PreviewNotification is published on match.preview.<seeker_id> after a
// successful matching pass.
type PreviewNotification struct {
	SeekerID    string         `json:"seekerId"`
	Matches     []MatchPreview `json:"matches"`
	Total       int            `json:"total"`
	GeneratedAt time.Time      `json:"generatedAt"`
}

// PublishPreviews publishes the top limit previews of res. A limit of zero or
// less publishes all of them.
func PublishPreviews(pub messaging.Publisher, seekerID string, res *Result, limit int) error {
	top := res.Matches
	if limit > 0 && len(top) > limit {
		top = top[:limit]
	}
	msg := PreviewNotification{
		SeekerID:    seekerID,
		Matches:     top,
		Total:       len(res.Matches),
		GeneratedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("matching: marshal previews: %w", err)
	}
	if err := pub.Publish(messaging.PreviewSubject(seekerID), data); err != nil {
		return fmt.Errorf("matching: publish match.preview for %s: %w", seekerID, err)
	}
	return nil
}
