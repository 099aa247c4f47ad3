package matching

import "strings"

// Profile is a seeker or candidate under consideration. Optional text fields
// count as absent when they are blank after trimming.
type Profile struct {
	ID             string   `json:"id"`
	Name           string   `json:"name,omitempty"`
	Email          string   `json:"email,omitempty"`
	Major          string   `json:"major,omitempty"`
	GraduationYear int      `json:"graduationYear,omitempty"`
	Hobbies        []string `json:"hobbies,omitempty"`
	Interests      []string `json:"interests,omitempty"`
	Classes        []string `json:"classes,omitempty"`
	Clubs          []string `json:"clubs,omitempty"`
	Bio            string   `json:"bio,omitempty"`
	FunFact        string   `json:"funFact,omitempty"`
	VibeCheck      string   `json:"vibeCheck,omitempty"`
	FavoriteSpot   string   `json:"favoriteSpot,omitempty"`
	Instagram      string   `json:"instagram,omitempty"`
}

// ProfileSummary is the participant shape exposed in a MatchPreview.
type ProfileSummary struct {
	ID        string   `json:"id"`
	Name      string   `json:"name,omitempty"`
	Major     string   `json:"major,omitempty"`
	Hobbies   []string `json:"hobbies"`
	Interests []string `json:"interests"`
	Classes   []string `json:"classes"`
	Instagram string   `json:"instagram,omitempty"`
}

// Summary returns the public view of p.
func (p *Profile) Summary() ProfileSummary {
	return ProfileSummary{
		ID:        p.ID,
		Name:      p.Name,
		Major:     strings.TrimSpace(p.Major),
		Hobbies:   cleanList(p.Hobbies),
		Interests: cleanList(p.Interests),
		Classes:   cleanList(p.Classes),
		Instagram: p.Instagram,
	}
}

// cleanList trims every entry and drops blanks. It never returns nil.
func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// intersectFold returns the entries of target that also appear in source,
// compared case-insensitively. Target casing is kept and duplicates dropped.
func intersectFold(source, target []string) []string {
	seen := make(map[string]struct{}, len(source))
	for _, s := range source {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			seen[s] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return []string{}
	}

	out := []string{}
	emitted := make(map[string]struct{})
	for _, t := range target {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, ok := seen[key]; !ok {
			continue
		}
		if _, dup := emitted[key]; dup {
			continue
		}
		emitted[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// unionFold merges lists, keeping the first casing seen for each entry.
func unionFold(lists ...[]string) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, v := range list {
			v = strings.TrimSpace(v)
			key := strings.ToLower(v)
			if v == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func containsFold(list []string, value string) bool {
	value = strings.TrimSpace(value)
	for _, v := range list {
		if strings.EqualFold(strings.TrimSpace(v), value) {
			return true
		}
	}
	return false
}
