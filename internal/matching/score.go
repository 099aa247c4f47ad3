package matching

import (
	"fmt"
	"math"
)

// Weights carries every constant of the affinity and compatibility formulas so
// they can be tuned or swept in tests.
type Weights struct {
	BaseScore        float64 // score floor with zero overlap
	ScheduleSpan     float64 // points added by a saturated schedule component
	ScheduleRatioCap float64 // overlap/target ratio beyond which credit stops
	AffinityScale    float64 // multiplier for the summed affinity terms
	HobbyStep        float64
	HobbyCap         float64
	InterestStep     float64
	InterestCap      float64
	MajorBonus       float64
	ListOverlapCap   float64 // cap on the tag bonus folded into semantic similarity
	ListHobbyStep    float64
	ListInterestStep float64
	TextBlend        float64 // weight of raw text similarity in the blended value
	MaxScore         int
}

// DefaultWeights returns the production weights.
func DefaultWeights() Weights {
	return Weights{
		BaseScore:        45,
		ScheduleSpan:     40,
		ScheduleRatioCap: 2,
		AffinityScale:    20,
		HobbyStep:        0.05,
		HobbyCap:         0.2,
		InterestStep:     0.04,
		InterestCap:      0.2,
		MajorBonus:       0.04,
		ListOverlapCap:   0.35,
		ListHobbyStep:    0.12,
		ListInterestStep: 0.08,
		TextBlend:        0.7,
		MaxScore:         99,
	}
}

// Default overlap targets in minutes.
const (
	DefaultPairTarget  = 60
	DefaultGroupTarget = 90
)

// Breakdown explains how a score was reached.
type Breakdown struct {
	Schedule   float64 `json:"schedule"`
	Affinity   float64 `json:"affinity"`
	Hobbies    int     `json:"hobbies"`
	Interests  int     `json:"interests"`
	MajorBonus float64 `json:"majorBonus"`
}

// Compatibility is the scored result for a pair or a group.
type Compatibility struct {
	Score     int       `json:"score"`
	Breakdown Breakdown `json:"breakdown"`
	Summary   string    `json:"summary"`
}

// GroupCompatibility adds the pooled affinity a pod preview displays.
type GroupCompatibility struct {
	Compatibility
	SemanticSimilarity float64
	SharedHobbies      []string
	SharedInterests    []string
	Highlight          string
}

// maxGroupTags caps the pooled tags surfaced for a group.
const maxGroupTags = 3

// ScheduleComponent maps overlap minutes to [0, 1] against target. Credit
// saturates once overlap reaches ScheduleRatioCap times the target.
func (w Weights) ScheduleComponent(minutes, target int) float64 {
	t := math.Max(float64(target), 1)
	ratio := math.Min(float64(minutes)/t, w.ScheduleRatioCap)
	return math.Min(ratio/w.ScheduleRatioCap, 1)
}

func (w Weights) finalScore(schedule, boost float64) int {
	score := int(math.Round(w.BaseScore + schedule*w.ScheduleSpan + boost))
	if score > w.MaxScore {
		score = w.MaxScore
	}
	if score < 0 {
		score = 0
	}
	return score
}

func (w Weights) tagTerms(hobbies, interests int) (float64, float64) {
	return math.Min(float64(hobbies)*w.HobbyStep, w.HobbyCap),
		math.Min(float64(interests)*w.InterestStep, w.InterestCap)
}

// ScorePair scores a seeker/candidate pair. A nil affinity scores on schedule
// alone.
func (w Weights) ScorePair(minutes, target int, a *AffinityEntry) Compatibility {
	if a == nil {
		a = &AffinityEntry{}
	}
	schedule := w.ScheduleComponent(minutes, target)
	semantic := math.Min(a.SemanticSimilarity, 1)
	hobbies, interests := w.tagTerms(len(a.SharedHobbies), len(a.SharedInterests))
	major := 0.0
	if a.SameMajor {
		major = w.MajorBonus
	}

	boost := (semantic + hobbies + interests + major) * w.AffinityScale
	return Compatibility{
		Score: w.finalScore(schedule, boost),
		Breakdown: Breakdown{
			Schedule:   round3(schedule),
			Affinity:   round3(semantic),
			Hobbies:    len(a.SharedHobbies),
			Interests:  len(a.SharedInterests),
			MajorBonus: round3(major),
		},
		Summary: Summary(minutes, a.Highlight, a.SharedHobbies, a.SharedInterests),
	}
}

// ScoreGroup scores a pod. Semantic similarity is averaged over participants
// that have an affinity entry; shared tags are pooled case-insensitively.
// Groups get no major bonus.
func (w Weights) ScoreGroup(minutes int, participants []*Profile, actx *AffinityContext, target int) GroupCompatibility {
	schedule := w.ScheduleComponent(minutes, target)

	var (
		sum                float64
		present            int
		highlight          string
		hobbies, interests [][]string
	)
	for _, p := range participants {
		entry := actx.Entry(p.ID)
		if entry == nil {
			continue
		}
		present++
		sum += entry.SemanticSimilarity
		hobbies = append(hobbies, entry.SharedHobbies)
		interests = append(interests, entry.SharedInterests)
		if highlight == "" {
			highlight = entry.Highlight
		}
	}

	avg := 0.0
	if present > 0 {
		avg = sum / float64(present)
	}
	pooledHobbies := unionFold(hobbies...)
	pooledInterests := unionFold(interests...)
	hobbyTerm, interestTerm := w.tagTerms(len(pooledHobbies), len(pooledInterests))

	boost := (math.Min(avg, 1) + hobbyTerm + interestTerm) * w.AffinityScale
	return GroupCompatibility{
		Compatibility: Compatibility{
			Score: w.finalScore(schedule, boost),
			Breakdown: Breakdown{
				Schedule:  round3(schedule),
				Affinity:  round3(avg),
				Hobbies:   len(pooledHobbies),
				Interests: len(pooledInterests),
			},
			Summary: Summary(minutes, highlight, pooledHobbies, pooledInterests),
		},
		SemanticSimilarity: round3(avg),
		SharedHobbies:      head(pooledHobbies, maxGroupTags),
		SharedInterests:    head(pooledInterests, maxGroupTags),
		Highlight:          highlight,
	}
}

// Summary renders "<minutes> shared minutes available" followed by the first
// available reason: the highlight, a shared hobby, or a shared interest.
func Summary(minutes int, highlight string, hobbies, interests []string) string {
	s := fmt.Sprintf("%d shared minutes available", minutes)
	switch {
	case highlight != "":
		return s + " · " + highlight
	case len(hobbies) > 0:
		return s + " · Shared hobby: " + hobbies[0]
	case len(interests) > 0:
		return s + " · Shared interest: " + interests[0]
	}
	return s
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}

func head(list []string, n int) []string {
	if len(list) > n {
		return list[:n]
	}
	return list
}
