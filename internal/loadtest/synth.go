package loadtest

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campuslink/matchmaker/internal/matching"
)

var (
	synthMajors = []string{
		"Computer Science", "Biology", "Economics", "Psychology",
		"Mechanical Engineering", "English", "Mathematics", "Art History",
	}
	synthHobbies = []string{
		"chess", "bouldering", "photography", "running", "guitar", "baking",
		"hiking", "anime", "board games", "pickup basketball", "journaling",
		"film", "thrifting", "yoga", "robotics", "podcasts",
	}
	synthInterests = []string{
		"machine learning", "sustainability", "startups", "poetry",
		"neuroscience", "jazz", "game design", "public policy",
	}
	synthClasses = []string{"CS 101", "BIO 210", "ECON 120", "MATH 221", "PSY 100", "ENG 150"}
	synthVibes   = []string{"chill", "competitive", "curious", "night owl", "early bird"}
)

// Synth generates random but plausible match requests. It is safe for
// concurrent use.
type Synth struct {
	mu   sync.Mutex
	rng  *rand.Rand
	pool int
	mode matching.Mode
}

// NewSynth creates a generator producing requests with poolSize candidates in
// the given mode. The same seed yields the same sequence of requests.
func NewSynth(seed uint64, poolSize int, mode matching.Mode) *Synth {
	if poolSize < 1 {
		poolSize = 1
	}
	return &Synth{
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		pool: poolSize,
		mode: mode,
	}
}

// Request builds the next request.
func (s *Synth) Request() matching.Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	seeker := s.profile()
	req := matching.Request{
		Seeker:       seeker,
		Availability: s.week(),
		Mode:         s.mode,
		Pool:         make([]matching.Candidate, 0, s.pool),
	}
	for range s.pool {
		req.Pool = append(req.Pool, matching.Candidate{
			Profile:      s.profile(),
			Availability: s.week(),
		})
	}
	return req
}

func (s *Synth) profile() *matching.Profile {
	id := uuid.Must(uuid.NewRandomFromReader(readerFunc(s.fill)))
	return &matching.Profile{
		ID:        id.String(),
		Name:      "Student " + id.String()[:8],
		Major:     pick(s.rng, synthMajors),
		Hobbies:   sample(s.rng, synthHobbies, 2+s.rng.IntN(4)),
		Interests: sample(s.rng, synthInterests, 1+s.rng.IntN(3)),
		Classes:   sample(s.rng, synthClasses, 1+s.rng.IntN(3)),
		VibeCheck: pick(s.rng, synthVibes),
	}
}

// week returns two to five slots on weekday afternoons and evenings, aligned
// to half hours.
func (s *Synth) week() matching.Slots {
	n := 2 + s.rng.IntN(4)
	slots := make(matching.Slots, 0, n)
	for range n {
		start := (12 + s.rng.IntN(8)) * 60
		if s.rng.IntN(2) == 1 {
			start += 30
		}
		length := 60 + 30*s.rng.IntN(5)
		end := min(start+length, matching.MinutesPerDay)
		slots = append(slots, matching.Slot{
			Day:   time.Weekday(1 + s.rng.IntN(5)),
			Start: start,
			End:   end,
		})
	}
	return slots
}

func (s *Synth) fill(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(s.rng.UintN(256))
	}
	return len(p), nil
}

type readerFunc func([]byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }

func pick(rng *rand.Rand, values []string) string {
	return values[rng.IntN(len(values))]
}

func sample(rng *rand.Rand, values []string, n int) []string {
	n = min(n, len(values))
	idx := rng.Perm(len(values))[:n]
	out := make([]string, n)
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}
