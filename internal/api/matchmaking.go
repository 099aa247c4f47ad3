package api

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/campuslink/matchmaker/internal/matching"
	"github.com/campuslink/matchmaker/internal/profile"
	"github.com/campuslink/matchmaker/internal/suggest"
)

const defaultHobbyResults = 50

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "matchmaking"})
}

type hobbyResult struct {
	ID        string   `json:"id"`
	Name      string   `json:"name,omitempty"`
	Email     string   `json:"email,omitempty"`
	Major     string   `json:"major,omitempty"`
	Classes   []string `json:"classes"`
	Hobbies   []string `json:"hobbies"`
	Interests []string `json:"interests"`
	Instagram string   `json:"instagram,omitempty"`
}

func (s *Server) searchHobbies(w http.ResponseWriter, r *http.Request) {
	term := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("hobby")))
	if term == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query parameter 'hobby' is required")
		return
	}
	if s.profiles == nil {
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "profile storage is not configured")
		return
	}
	limit := defaultHobbyResults
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = min(n, profile.MaxPoolSize)
	}

	found, err := s.profiles.SearchByHobby(r.Context(), term, r.URL.Query().Get("seekerId"), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	results := make([]hobbyResult, 0, len(found))
	for _, p := range found {
		results = append(results, hobbyResult{
			ID:        p.ID,
			Name:      p.Name,
			Email:     p.Email,
			Major:     p.Major,
			Classes:   nonNil(p.Classes),
			Hobbies:   nonNil(p.Hobbies),
			Interests: nonNil(p.Interests),
			Instagram: SanitizeInstagram(p.Instagram),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": len(results), "results": results})
}

type matchRequest struct {
	User                 *matching.Profile    `json:"user"`
	Availability         matching.Slots       `json:"availability"`
	Mode                 matching.Mode        `json:"mode"`
	Filters              matching.Filters     `json:"filters"`
	CandidatePool        []matching.Candidate `json:"candidatePool"`
	Limit                int                  `json:"limit" validate:"gte=0,lte=500"`
	MinimumOverlapTarget int                  `json:"minimumOverlapTarget" validate:"gte=0,lte=1440"`
}

func (s *Server) createMatches(w http.ResponseWriter, r *http.Request) {
	var body matchRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if len(body.Availability) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "availability array is required")
		return
	}

	seeker := sanitizeProfile(body.User)
	if seeker == nil {
		seeker = &matching.Profile{}
	}
	caller := UserID(r.Context())
	if seeker.ID == "" {
		seeker.ID = caller
	} else if caller != "" && seeker.ID != caller {
		writeError(w, http.StatusForbidden, "forbidden", "cannot match on behalf of another user")
		return
	}

	res, err := s.matcher.Match(r.Context(), matching.Request{
		Seeker:               seeker,
		Availability:         body.Availability,
		Mode:                 body.Mode,
		Filters:              sanitizeFilters(body.Filters),
		Pool:                 body.CandidatePool,
		Limit:                body.Limit,
		MinimumOverlapTarget: body.MinimumOverlapTarget,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type activityRequest struct {
	Description string   `json:"description"`
	Hobbies     []string `json:"hobbies"`
}

type activityMetadata struct {
	GeneratedAt    time.Time `json:"generatedAt"`
	HobbyCount     int       `json:"hobbyCount"`
	HasDescription bool      `json:"hasDescription"`
}

func (s *Server) activitySuggestions(w http.ResponseWriter, r *http.Request) {
	if !s.suggest.Configured() {
		writeServiceError(w, r, suggest.ErrNotConfigured)
		return
	}
	var body activityRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	description := SanitizeDescription(body.Description)
	hobbies := SanitizeList(body.Hobbies)
	if description == "" && len(hobbies) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "provide a short description or at least one hobby")
		return
	}

	res, err := s.suggest.Activities(r.Context(), suggest.ActivityRequest{Description: description, Hobbies: hobbies})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"suggestions": res.Suggestions,
		"metadata": activityMetadata{
			GeneratedAt:    time.Now().UTC(),
			HobbyCount:     len(hobbies),
			HasDescription: description != "",
		},
	})
}

type hangoutRequest struct {
	Seeker          suggest.Person   `json:"seeker"`
	Friends         []suggest.Person `json:"friends" validate:"max=10"`
	Focus           string           `json:"focus"`
	DurationMinutes float64          `json:"durationMinutes"`
}

func (s *Server) hangoutPlan(w http.ResponseWriter, r *http.Request) {
	if !s.suggest.Configured() {
		writeServiceError(w, r, suggest.ErrNotConfigured)
		return
	}
	var body hangoutRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	seeker := sanitizePerson(body.Seeker)
	friends := make([]suggest.Person, 0, len(body.Friends))
	for _, f := range body.Friends {
		friends = append(friends, sanitizePerson(f))
	}
	if seeker.ID == "" || len(friends) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request",
			"provide a seeker profile and at least one friend to generate a hangout plan")
		return
	}
	focus := strings.TrimSpace(body.Focus)

	res, err := s.suggest.HangoutPlan(r.Context(), suggest.HangoutRequest{
		Seeker:          seeker,
		Friends:         friends,
		Focus:           focus,
		DurationMinutes: planDuration(body.DurationMinutes),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"plan":        res.Plan,
		"generatedAt": time.Now().UTC(),
		"friendCount": len(friends),
		"hasFocus":    focus != "",
	})
}

// planDuration rounds a positive duration and caps it; anything else is 0.
func planDuration(minutes float64) int {
	if minutes <= 0 || math.IsNaN(minutes) {
		return 0
	}
	return min(int(math.Floor(minutes+0.5)), suggest.MaxHangoutDuration)
}

type scheduleBody struct {
	Availability matching.Slots `json:"availability"`
}

type scheduleResponse struct {
	UserID       string          `json:"userId"`
	Availability []matching.Slot `json:"availability"`
}

// ownedUser returns the path user after checking the caller is that user.
// Anonymous callers are rejected even when authentication is optional.
func (s *Server) ownedUser(w http.ResponseWriter, r *http.Request, resource string) (string, bool) {
	userID := strings.TrimSpace(chi.URLParam(r, "userId"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "user id is required")
		return "", false
	}
	caller := UserID(r.Context())
	if caller == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return "", false
	}
	if caller != userID {
		writeError(w, http.StatusForbidden, "forbidden", "cannot access another user's "+resource)
		return "", false
	}
	if s.profiles == nil {
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "profile storage is not configured")
		return "", false
	}
	return userID, true
}

func (s *Server) getSchedule(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.ownedUser(w, r, "schedule")
	if !ok {
		return
	}
	slots, err := s.profiles.Availability(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scheduleResponse{UserID: userID, Availability: nonNilSlots(slots)})
}

func (s *Server) saveSchedule(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.ownedUser(w, r, "schedule")
	if !ok {
		return
	}
	var body scheduleBody
	if !decodeJSON(w, r, &body) {
		return
	}
	saved, err := s.profiles.SaveAvailability(r.Context(), userID, matching.ValidSlots(userID, body.Availability))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scheduleResponse{UserID: userID, Availability: nonNilSlots(saved)})
}

func (s *Server) clearSchedule(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.ownedUser(w, r, "schedule")
	if !ok {
		return
	}
	if err := s.profiles.ClearAvailability(r.Context(), userID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.ownedUser(w, r, "profile")
	if !ok {
		return
	}
	p, err := s.profiles.Get(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) saveProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.ownedUser(w, r, "profile")
	if !ok {
		return
	}
	var body matching.Profile
	if !decodeJSON(w, r, &body) {
		return
	}
	p := sanitizeProfile(&body)
	if p.ID != "" && p.ID != userID {
		writeError(w, http.StatusBadRequest, "invalid_request", "profile id does not match the path")
		return
	}
	p.ID = userID

	if err := s.profiles.Upsert(r.Context(), p); err != nil {
		writeServiceError(w, r, err)
		return
	}
	saved, err := s.profiles.Get(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func nonNilSlots(slots []matching.Slot) []matching.Slot {
	if slots == nil {
		return []matching.Slot{}
	}
	return slots
}
