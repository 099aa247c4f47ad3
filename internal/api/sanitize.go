package api

import (
	"regexp"
	"strings"

	"github.com/campuslink/matchmaker/internal/matching"
	"github.com/campuslink/matchmaker/internal/suggest"
)

var (
	instagramURL = regexp.MustCompile(`(?i)^https?://(www\.)?instagram\.com/`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// SanitizeList trims entries and drops empty ones.
func SanitizeList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// SanitizeDescription trims s and cuts it to suggest.MaxDescriptionLen runes.
func SanitizeDescription(s string) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > suggest.MaxDescriptionLen {
		s = string(r[:suggest.MaxDescriptionLen])
	}
	return s
}

// SanitizeInstagram reduces a profile URL or @handle to the bare handle.
// An empty result means no handle.
func SanitizeInstagram(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = instagramURL.ReplaceAllString(s, "")
	s = strings.TrimRight(s, "/")
	if strings.HasPrefix(s, "@") && len(s) > 1 {
		s = s[1:]
	}
	return whitespace.ReplaceAllString(s, "")
}

func sanitizeProfile(p *matching.Profile) *matching.Profile {
	if p == nil {
		return nil
	}
	out := *p
	out.ID = strings.TrimSpace(p.ID)
	out.Hobbies = SanitizeList(p.Hobbies)
	out.Interests = SanitizeList(p.Interests)
	out.Classes = SanitizeList(p.Classes)
	out.Clubs = SanitizeList(p.Clubs)
	out.Major = strings.TrimSpace(p.Major)
	out.Bio = strings.TrimSpace(p.Bio)
	out.FunFact = strings.TrimSpace(p.FunFact)
	out.VibeCheck = strings.TrimSpace(p.VibeCheck)
	out.FavoriteSpot = strings.TrimSpace(p.FavoriteSpot)
	out.Instagram = SanitizeInstagram(p.Instagram)
	return &out
}

func sanitizeFilters(f matching.Filters) matching.Filters {
	return matching.Filters{
		Majors:            SanitizeList(f.Majors),
		Classes:           SanitizeList(f.Classes),
		Interests:         SanitizeList(f.Interests),
		HobbyQuery:        strings.TrimSpace(f.HobbyQuery),
		RequireSameCourse: f.RequireSameCourse,
	}
}

func sanitizePerson(p suggest.Person) suggest.Person {
	return suggest.Person{
		ID:        strings.TrimSpace(p.ID),
		Name:      p.Name,
		Major:     strings.TrimSpace(p.Major),
		Hobbies:   SanitizeList(p.Hobbies),
		Interests: SanitizeList(p.Interests),
	}
}
