package matching

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Mode selects how candidates are grouped into previews.
type Mode string

const (
	ModePair       Mode = "PAIR"
	ModePodOfThree Mode = "POD_OF_THREE"
)

// ParseMode accepts PAIR or POD_OF_THREE in any case. An empty mode means PAIR.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToUpper(strings.TrimSpace(s))) {
	case "", ModePair:
		return ModePair, nil
	case ModePodOfThree:
		return ModePodOfThree, nil
	default:
		return "", invalid("mode", "must be PAIR or POD_OF_THREE")
	}
}

// Reasons reported when a request produces no previews.
const (
	EmptyReasonNoCandidates = "No candidates matched the selected filters."
	EmptyReasonNoOverlap    = "No overlapping availability with the current candidates."
	EmptyReasonPodTooSmall  = "Pods need at least two candidates with overlapping availability."
)

// DefaultPodPruneK bounds how many candidates enter pod enumeration. Larger
// values find more pods at quadratic cost.
const DefaultPodPruneK = 12

// Filters narrow the candidate pool. Empty filters are no-ops.
type Filters struct {
	Majors            []string `json:"majors,omitempty"`
	Classes           []string `json:"classes,omitempty"`
	Interests         []string `json:"interests,omitempty"`
	HobbyQuery        string   `json:"hobbyQuery,omitempty"`
	RequireSameCourse bool     `json:"requireSameCourse,omitempty"`
}

// Candidate is one pool member with its weekly availability.
type Candidate struct {
	Profile      *Profile `json:"profile"`
	Availability Slots    `json:"availability"`
}

// Request is one matching pass.
type Request struct {
	Seeker               *Profile    `json:"seeker"`
	Availability         Slots       `json:"availability"`
	Mode                 Mode        `json:"mode"`
	Filters              Filters     `json:"filters"`
	Pool                 []Candidate `json:"candidatePool"`
	Limit                int         `json:"limit,omitempty"`                // 0 returns everything
	MinimumOverlapTarget int         `json:"minimumOverlapTarget,omitempty"` // 0 uses the mode default
}

// MatchPreview is one proposed pair or pod.
type MatchPreview struct {
	Mode               Mode             `json:"mode"`
	Participants       []ProfileSummary `json:"participants"`
	OverlapMinutes     int              `json:"overlapMinutes"`
	SharedAvailability []Slot           `json:"sharedAvailability"`
	CompatibilityScore int              `json:"compatibilityScore"`
	Breakdown          Breakdown        `json:"breakdown"`
	SemanticSimilarity float64          `json:"semanticSimilarity"`
	SharedHobbies      []string         `json:"sharedHobbies"`
	SharedInterests    []string         `json:"sharedInterests"`
	Highlight          string           `json:"highlight,omitempty"`
	ClusterLabel       string           `json:"clusterLabel"`
	Summary            string           `json:"summary"`

	key string
}

// Result is the ranked outcome of a request.
type Result struct {
	Matches     []MatchPreview `json:"matches"`
	EmptyReason string         `json:"emptyReason,omitempty"`
	Scored      int            `json:"-"` // candidates left after filtering
}

// Options configure an Assembler.
type Options struct {
	Workers     int      // 0 uses runtime.NumCPU()
	PodPruneK   int      // 0 uses DefaultPodPruneK
	PairTarget  int      // 0 uses DefaultPairTarget
	GroupTarget int      // 0 uses DefaultGroupTarget
	StopWords   []string // nil uses DefaultStopWords
	Weights     *Weights // nil uses DefaultWeights()
}

// Assembler turns a seeker and a candidate pool into ranked previews. It holds
// no per-request state and is safe for concurrent use.
type Assembler struct {
	opts    Options
	weights Weights
	builder *AffinityBuilder
	logger  zerolog.Logger
}

// NewAssembler applies defaults to opts and returns an Assembler.
func NewAssembler(opts Options, logger zerolog.Logger) *Assembler {
	if opts.PodPruneK < 2 {
		opts.PodPruneK = DefaultPodPruneK
	}
	if opts.PairTarget <= 0 {
		opts.PairTarget = DefaultPairTarget
	}
	if opts.GroupTarget <= 0 {
		opts.GroupTarget = DefaultGroupTarget
	}
	w := DefaultWeights()
	if opts.Weights != nil {
		w = *opts.Weights
	}
	logger = logger.With().Str("component", "assembler").Logger()
	return &Assembler{
		opts:    opts,
		weights: w,
		builder: NewAffinityBuilder(NewVectorizer(opts.StopWords), w, logger),
		logger:  logger,
	}
}

// candidateState is the per-candidate working set of one request.
type candidateState struct {
	profile *Profile
	slots   []Slot        // merged availability
	withMe  OverlapResult // overlap with the seeker
}

// Assemble validates req, filters the pool, scores every pair or pod and
// returns the ranked previews. Finding no match is not an error: the result
// carries an EmptyReason instead.
func (a *Assembler) Assemble(ctx context.Context, req Request) (*Result, error) {
	mode, err := validate(req)
	if err != nil {
		return nil, err
	}
	started := time.Now()

	pool := filterPool(req.Seeker, req.Pool, req.Filters)
	if len(pool) == 0 {
		return &Result{Matches: []MatchPreview{}, EmptyReason: EmptyReasonNoCandidates}, nil
	}

	profiles := make([]*Profile, len(pool))
	for i, c := range pool {
		profiles[i] = c.Profile
	}
	actx := a.builder.Build(req.Seeker, profiles)

	seekerSlots := MergeSlots(ValidSlots(req.Seeker.ID, req.Availability))
	states := make([]candidateState, len(pool))
	err = forEach(ctx, a.opts.Workers, len(pool), func(i int) {
		c := pool[i]
		slots := MergeSlots(ValidSlots(c.Profile.ID, c.Availability))
		states[i] = candidateState{
			profile: c.Profile,
			slots:   slots,
			withMe:  overlapMerged(seekerSlots, slots),
		}
	})
	if err != nil {
		return nil, err
	}

	var previews []MatchPreview
	switch mode {
	case ModePodOfThree:
		target := a.target(req.MinimumOverlapTarget, a.opts.GroupTarget)
		previews, err = a.pods(ctx, states, actx, target)
	default:
		target := a.target(req.MinimumOverlapTarget, a.opts.PairTarget)
		previews = a.pairs(states, actx, target)
	}
	if err != nil {
		return nil, err
	}

	kept := previews[:0]
	for _, p := range previews {
		if p.OverlapMinutes > 0 {
			kept = append(kept, p)
		}
	}
	sortPreviews(kept)
	if req.Limit > 0 && len(kept) > req.Limit {
		kept = kept[:req.Limit]
	}

	res := &Result{Matches: kept, Scored: len(pool)}
	if len(kept) == 0 {
		res.Matches = []MatchPreview{}
		res.EmptyReason = EmptyReasonNoOverlap
		if mode == ModePodOfThree && countOverlapping(states) < 2 {
			res.EmptyReason = EmptyReasonPodTooSmall
		}
	}

	a.logger.Debug().
		Str("seeker", req.Seeker.ID).
		Str("mode", string(mode)).
		Int("pool", len(req.Pool)).
		Int("filtered", len(pool)).
		Int("matches", len(res.Matches)).
		Str("label", actx.Label()).
		Int("scored", actx.Len()).
		Int("with_similarity", actx.Assigned()).
		Dur("took", time.Since(started)).
		Msg("assembled matches")
	return res, nil
}

func (a *Assembler) target(requested, fallback int) int {
	if requested > 0 {
		return requested
	}
	return fallback
}

func (a *Assembler) pairs(states []candidateState, actx *AffinityContext, target int) []MatchPreview {
	out := make([]MatchPreview, len(states))
	for i, st := range states {
		entry := actx.Entry(st.profile.ID)
		comp := a.weights.ScorePair(st.withMe.Minutes, target, entry)
		out[i] = MatchPreview{
			Mode:               ModePair,
			Participants:       []ProfileSummary{st.profile.Summary()},
			OverlapMinutes:     st.withMe.Minutes,
			SharedAvailability: st.withMe.Windows,
			CompatibilityScore: comp.Score,
			Breakdown:          comp.Breakdown,
			SemanticSimilarity: entry.SemanticSimilarity,
			SharedHobbies:      entry.SharedHobbies,
			SharedInterests:    entry.SharedInterests,
			Highlight:          entry.Highlight,
			ClusterLabel:       actx.Label(),
			Summary:            comp.Summary,
			key:                st.profile.ID,
		}
	}
	return out
}

// pods keeps the PodPruneK candidates with the most overlap with the seeker,
// then scores every two-member combination of them in parallel.
func (a *Assembler) pods(ctx context.Context, states []candidateState, actx *AffinityContext, target int) ([]MatchPreview, error) {
	ranked := make([]candidateState, 0, len(states))
	for _, st := range states {
		if st.withMe.Minutes > 0 {
			ranked = append(ranked, st)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].withMe.Minutes != ranked[j].withMe.Minutes {
			return ranked[i].withMe.Minutes > ranked[j].withMe.Minutes
		}
		return ranked[i].profile.ID < ranked[j].profile.ID
	})
	if len(ranked) > a.opts.PodPruneK {
		ranked = ranked[:a.opts.PodPruneK]
	}
	if len(ranked) < 2 {
		return nil, nil
	}

	// Each candidate's windows are already clipped to the seeker, so the
	// pairwise matrix over them is the three-way overlap of every pod.
	clipped := make([][]Slot, len(ranked))
	for i, st := range ranked {
		clipped[i] = st.withMe.Windows
	}
	matrix := OverlapMatrix(clipped)

	type combo struct{ i, j int }
	combos := make([]combo, 0, len(ranked)*(len(ranked)-1)/2)
	for i := range ranked {
		for j := i + 1; j < len(ranked); j++ {
			if matrix[i][j] == 0 {
				continue
			}
			combos = append(combos, combo{i, j})
		}
	}
	if len(combos) == 0 {
		return nil, nil
	}

	out := make([]MatchPreview, len(combos))
	err := forEach(ctx, a.opts.Workers, len(combos), func(n int) {
		x, y := ranked[combos[n].i], ranked[combos[n].j]
		ov := overlapMerged(x.withMe.Windows, y.slots)
		members := []*Profile{x.profile, y.profile}
		gc := a.weights.ScoreGroup(ov.Minutes, members, actx, target)

		ids := []string{x.profile.ID, y.profile.ID}
		sort.Strings(ids)
		out[n] = MatchPreview{
			Mode:               ModePodOfThree,
			Participants:       []ProfileSummary{x.profile.Summary(), y.profile.Summary()},
			OverlapMinutes:     ov.Minutes,
			SharedAvailability: ov.Windows,
			CompatibilityScore: gc.Score,
			Breakdown:          gc.Breakdown,
			SemanticSimilarity: gc.SemanticSimilarity,
			SharedHobbies:      gc.SharedHobbies,
			SharedInterests:    gc.SharedInterests,
			Highlight:          gc.Highlight,
			ClusterLabel:       actx.Label(),
			Summary:            gc.Summary,
			key:                strings.Join(ids, ","),
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func sortPreviews(p []MatchPreview) {
	sort.Slice(p, func(i, j int) bool {
		if p[i].CompatibilityScore != p[j].CompatibilityScore {
			return p[i].CompatibilityScore > p[j].CompatibilityScore
		}
		if p[i].OverlapMinutes != p[j].OverlapMinutes {
			return p[i].OverlapMinutes > p[j].OverlapMinutes
		}
		return p[i].key < p[j].key
	})
}

func countOverlapping(states []candidateState) int {
	n := 0
	for _, st := range states {
		if st.withMe.Minutes > 0 {
			n++
		}
	}
	return n
}

func validate(req Request) (Mode, error) {
	if req.Seeker == nil || strings.TrimSpace(req.Seeker.ID) == "" {
		return "", invalid("seeker.id", "is required")
	}
	if len(req.Pool) == 0 {
		return "", invalid("candidatePool", "must not be empty")
	}
	if req.Limit < 0 {
		return "", invalid("limit", "must not be negative")
	}
	if req.MinimumOverlapTarget < 0 {
		return "", invalid("minimumOverlapTarget", "must not be negative")
	}
	return ParseMode(string(req.Mode))
}

// filterPool drops the seeker, entries without an id, duplicate ids and
// candidates rejected by f.
func filterPool(seeker *Profile, pool []Candidate, f Filters) []Candidate {
	out := make([]Candidate, 0, len(pool))
	seen := make(map[string]struct{}, len(pool))
	query := strings.ToLower(strings.TrimSpace(f.HobbyQuery))

	for _, c := range pool {
		p := c.Profile
		if p == nil || strings.TrimSpace(p.ID) == "" || p.ID == seeker.ID {
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		if len(cleanList(f.Majors)) > 0 && (strings.TrimSpace(p.Major) == "" || !containsFold(f.Majors, p.Major)) {
			continue
		}
		if !anyFold(f.Classes, p.Classes) || !anyFold(f.Interests, p.Interests) {
			continue
		}
		if query != "" && !hobbyMatches(p.Hobbies, query) {
			continue
		}
		if f.RequireSameCourse && len(intersectFold(seeker.Classes, p.Classes)) == 0 {
			continue
		}
		out = append(out, c)
	}
	return out
}

// anyFold reports whether values shares an entry with want. An empty want
// matches everything.
func anyFold(want, values []string) bool {
	if len(cleanList(want)) == 0 {
		return true
	}
	return len(intersectFold(want, values)) > 0
}

func hobbyMatches(hobbies []string, query string) bool {
	for _, h := range hobbies {
		if strings.Contains(strings.ToLower(h), query) {
			return true
		}
	}
	return false
}
