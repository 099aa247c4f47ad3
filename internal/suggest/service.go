package suggest

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/campuslink/matchmaker/internal/logging"
	"github.com/campuslink/matchmaker/internal/metrics"
)

// Where a result came from.
const (
	SourceModel    = "model"
	SourceFallback = "fallback"
	SourceCache    = "cache"
)

const (
	kindActivity = "activity"
	kindHangout  = "hangout"
)

// ActivityResult is the outcome of Service.Activities.
type ActivityResult struct {
	Suggestions []Activity
	Source      string
}

// PlanResult is the outcome of Service.HangoutPlan.
type PlanResult struct {
	Plan   Plan
	Source string
}

// Service generates suggestions through a Generator with caching and
// deterministic fallbacks.
type Service struct {
	gen    Generator
	cache  *Cache
	ttl    time.Duration
	logger zerolog.Logger
}

// NewService wires a Service. A nil gen leaves it unconfigured; a nil cache
// disables caching.
func NewService(gen Generator, cache *Cache, ttl time.Duration) *Service {
	return &Service{
		gen:    gen,
		cache:  cache,
		ttl:    ttl,
		logger: logging.For("suggest"),
	}
}

// Configured reports whether a generator is available.
func (s *Service) Configured() bool {
	return s != nil && s.gen != nil
}

// Activities returns up to MaxSuggestions activity ideas. The only error is
// ErrNotConfigured; generator failures produce fallback ideas.
func (s *Service) Activities(ctx context.Context, req ActivityRequest) (*ActivityResult, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}
	req = normalizeActivity(req)
	key := cacheKey(kindActivity, ActivityRequest{
		Description: normalizeKeyValue(req.Description),
		Hobbies:     normalizeKeyList(req.Hobbies),
	})

	var cached []Activity
	if s.cache.Get(ctx, key, &cached) && len(cached) > 0 {
		return s.activityResult(cached, SourceCache), nil
	}

	text, err := s.gen.Generate(ctx, activityPrompt(req))
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("activity generation failed, using fallback")
		return s.activityResult(fallbackActivities(req), SourceFallback), nil
	}
	suggestions, ok := parseActivities(text)
	if !ok || len(suggestions) == 0 {
		logging.Ctx(ctx).Warn().Bool("parsed", ok).Msg("model response missing suggestions, using fallback")
		return s.activityResult(fallbackActivities(req), SourceFallback), nil
	}

	s.cache.Set(ctx, key, suggestions, s.ttl)
	return s.activityResult(suggestions, SourceModel), nil
}

func (s *Service) activityResult(suggestions []Activity, source string) *ActivityResult {
	metrics.SuggestionRequestsTotal.WithLabelValues(kindActivity, source).Inc()
	return &ActivityResult{Suggestions: suggestions, Source: source}
}

// HangoutPlan returns a plan for the group. Fields the model leaves out are
// filled from the fallback plan.
func (s *Service) HangoutPlan(ctx context.Context, req HangoutRequest) (*PlanResult, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}
	req = normalizeHangout(req)
	key := cacheKey(kindHangout, hangoutKey(req))

	var cached Plan
	if s.cache.Get(ctx, key, &cached) && cached.Title != "" {
		return s.planResult(cached, SourceCache), nil
	}

	fallback := fallbackPlan(req)
	text, err := s.gen.Generate(ctx, hangoutPrompt(req))
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("hangout generation failed, using fallback")
		return s.planResult(fallback, SourceFallback), nil
	}
	raw, ok := parsePlan(text)
	if !ok {
		logging.Ctx(ctx).Warn().Msg("model response missing plan, using fallback")
		return s.planResult(fallback, SourceFallback), nil
	}

	plan := mergePlan(raw, fallback)
	s.cache.Set(ctx, key, plan, s.ttl)
	return s.planResult(plan, SourceModel), nil
}

func (s *Service) planResult(plan Plan, source string) *PlanResult {
	metrics.SuggestionRequestsTotal.WithLabelValues(kindHangout, source).Inc()
	return &PlanResult{Plan: plan, Source: source}
}

func normalizeActivity(req ActivityRequest) ActivityRequest {
	req.Description = strings.TrimSpace(req.Description)
	if r := []rune(req.Description); len(r) > MaxDescriptionLen {
		req.Description = string(r[:MaxDescriptionLen])
	}
	req.Hobbies = trimList(req.Hobbies)
	return req
}

func normalizeHangout(req HangoutRequest) HangoutRequest {
	req.Focus = strings.TrimSpace(req.Focus)
	if req.DurationMinutes < 0 {
		req.DurationMinutes = 0
	}
	req.DurationMinutes = min(req.DurationMinutes, MaxHangoutDuration)
	req.Seeker = normalizePerson(req.Seeker)
	friends := make([]Person, len(req.Friends))
	for i, f := range req.Friends {
		friends[i] = normalizePerson(f)
	}
	req.Friends = friends
	return req
}

func normalizePerson(p Person) Person {
	p.Major = strings.TrimSpace(p.Major)
	p.Hobbies = trimList(p.Hobbies)
	p.Interests = trimList(p.Interests)
	return p
}

// hangoutKey drops ids so the same group phrased twice shares a cache entry.
func hangoutKey(req HangoutRequest) HangoutRequest {
	keyPerson := func(p Person) Person {
		return Person{
			Name:      normalizeKeyValue(p.Name),
			Major:     normalizeKeyValue(p.Major),
			Hobbies:   normalizeKeyList(p.Hobbies),
			Interests: normalizeKeyList(p.Interests),
		}
	}
	out := HangoutRequest{
		Seeker:          keyPerson(req.Seeker),
		Focus:           normalizeKeyValue(req.Focus),
		DurationMinutes: req.DurationMinutes,
	}
	for _, f := range req.Friends {
		out.Friends = append(out.Friends, keyPerson(f))
	}
	return out
}

func trimList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
