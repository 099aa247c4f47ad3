package matching

import (
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// Cluster labels attached to every preview.
const (
	LabelProfileMatch  = "Profile Match"
	LabelScheduleMatch = "Schedule Match"
)

// MaxHighlightLength bounds free-text highlights, in characters.
const MaxHighlightLength = 140

// AffinityEntry is the content affinity between the seeker and one candidate.
type AffinityEntry struct {
	CandidateID        string
	SemanticSimilarity float64
	SharedHobbies      []string
	SharedInterests    []string
	SameMajor          bool
	Highlight          string // "" when there is nothing worth showing
}

// AffinityContext holds the per-request affinity of every candidate. It is
// built fresh for each request and must not be shared across requests.
type AffinityContext struct {
	entries  map[string]*AffinityEntry
	assigned int
	label    string
}

// Entry returns the entry for a candidate id, or nil.
func (c *AffinityContext) Entry(id string) *AffinityEntry {
	if c == nil {
		return nil
	}
	return c.entries[id]
}

// Len is the number of candidates in the context.
func (c *AffinityContext) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Assigned is the number of candidates that received a nonzero similarity.
func (c *AffinityContext) Assigned() int {
	if c == nil {
		return 0
	}
	return c.assigned
}

// Label is "Profile Match" when any candidate got semantic similarity and
// "Schedule Match" otherwise.
func (c *AffinityContext) Label() string {
	if c == nil || c.label == "" {
		return LabelScheduleMatch
	}
	return c.label
}

// AffinityBuilder computes affinity contexts.
type AffinityBuilder struct {
	vectorizer *Vectorizer
	weights    Weights
	logger     zerolog.Logger
}

// NewAffinityBuilder returns a builder. A nil vectorizer uses the default
// stop words.
func NewAffinityBuilder(v *Vectorizer, w Weights, logger zerolog.Logger) *AffinityBuilder {
	if v == nil {
		v = defaultVectorizer
	}
	return &AffinityBuilder{vectorizer: v, weights: w, logger: logger}
}

// Build computes an entry for every candidate. It never filters the seeker
// out of candidates; callers do that.
func (b *AffinityBuilder) Build(seeker *Profile, candidates []*Profile) *AffinityContext {
	if seeker == nil {
		seeker = &Profile{}
	}
	ctx := &AffinityContext{
		entries: make(map[string]*AffinityEntry, len(candidates)),
		label:   LabelScheduleMatch,
	}

	seekerMajor := strings.TrimSpace(seeker.Major)
	for _, c := range candidates {
		major := strings.TrimSpace(c.Major)
		entry := &AffinityEntry{
			CandidateID:     c.ID,
			SharedHobbies:   intersectFold(seeker.Hobbies, c.Hobbies),
			SharedInterests: intersectFold(seeker.Interests, c.Interests),
			SameMajor:       seekerMajor != "" && major != "" && seekerMajor == major,
		}
		entry.Highlight = highlight(seeker, c, entry.SharedHobbies, entry.SharedInterests)
		ctx.entries[c.ID] = entry
	}

	seekerVec := b.vectorizer.Vectorize(seeker)
	if seekerVec == nil {
		b.logger.Info().Str("seeker", seeker.ID).
			Msg("seeker profile has no descriptive data, semantic similarity stays at 0")
		return ctx
	}

	w := b.weights
	for _, c := range candidates {
		entry := ctx.entries[c.ID]
		vec := b.vectorizer.Vectorize(c)
		if vec == nil {
			continue
		}

		text := Cosine(seekerVec, vec)
		list := min(w.ListOverlapCap,
			float64(len(entry.SharedHobbies))*w.ListHobbyStep+
				float64(len(entry.SharedInterests))*w.ListInterestStep)
		combined := max(text, min(1, text*w.TextBlend+list))
		if combined > 0 {
			entry.SemanticSimilarity = round3(combined)
		}

		if h := highlight(seeker, c, entry.SharedHobbies, entry.SharedInterests); h != "" {
			entry.Highlight = h
		}
		if entry.SemanticSimilarity > 0 {
			ctx.assigned++
		}
	}

	if ctx.assigned > 0 {
		ctx.label = LabelProfileMatch
	}
	b.logger.Debug().
		Int("candidates", len(candidates)).
		Int("assigned", ctx.assigned).
		Str("label", ctx.label).
		Msg("semantic similarity computed")
	return ctx
}

// highlight picks one human-readable reason, in priority order: shared hobby,
// shared interests, the candidate's own vibe/fun fact/bio, a shared favorite
// spot, the candidate's favorite spot.
func highlight(seeker, c *Profile, hobbies, interests []string) string {
	if len(hobbies) > 0 {
		return "Shared hobby: " + hobbies[0]
	}
	if len(interests) > 0 {
		return "Overlap on " + strings.Join(head(interests, 2), ", ")
	}
	for _, text := range []string{c.VibeCheck, c.FunFact, c.Bio} {
		if text = strings.TrimSpace(text); text != "" {
			return truncate(text, MaxHighlightLength)
		}
	}
	spot := strings.TrimSpace(c.FavoriteSpot)
	if spot == "" {
		return ""
	}
	if strings.EqualFold(strings.TrimSpace(seeker.FavoriteSpot), spot) {
		return "Both love " + spot
	}
	return "Favorite spot: " + spot
}

// truncate shortens s to n characters, the last being an ellipsis.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}
