package matching

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestAssembler(opts Options) *Assembler {
	return NewAssembler(opts, zerolog.Nop())
}

func weekly(day time.Weekday, start, end int) []Slot {
	return []Slot{{Day: day, Start: start, End: end}}
}

func ids(res *Result) []string {
	out := make([]string, 0, len(res.Matches))
	for _, m := range res.Matches {
		out = append(out, m.key)
	}
	return out
}

func TestAssembleSharedHobbyAndSchedule(t *testing.T) {
	req := Request{
		Seeker:       &Profile{ID: "s", Hobbies: []string{"chess", "hiking"}},
		Availability: weekly(time.Tuesday, 840, 930),
		Pool: []Candidate{{
			Profile:      &Profile{ID: "c", Name: "Cam", Hobbies: []string{"chess", "reading"}},
			Availability: weekly(time.Tuesday, 840, 930),
		}},
	}
	res, err := newTestAssembler(Options{}).Assemble(context.Background(), req)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(res.Matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(res.Matches))
	}
	m := res.Matches[0]
	if m.Mode != ModePair || m.OverlapMinutes != 90 {
		t.Errorf("mode=%s overlap=%d", m.Mode, m.OverlapMinutes)
	}
	if m.CompatibilityScore < 85 {
		t.Errorf("score = %d, want >= 85", m.CompatibilityScore)
	}
	if m.ClusterLabel != LabelProfileMatch {
		t.Errorf("label = %q", m.ClusterLabel)
	}
	if !reflect.DeepEqual(m.SharedHobbies, []string{"chess"}) {
		t.Errorf("SharedHobbies = %v", m.SharedHobbies)
	}
	if want := weekly(time.Tuesday, 840, 930); !reflect.DeepEqual(m.SharedAvailability, want) {
		t.Errorf("SharedAvailability = %v", m.SharedAvailability)
	}
	if m.Participants[0].ID != "c" || m.Participants[0].Name != "Cam" {
		t.Errorf("participants = %+v", m.Participants)
	}
	if res.EmptyReason != "" {
		t.Errorf("EmptyReason = %q", res.EmptyReason)
	}
}

func TestAssembleDropsZeroOverlap(t *testing.T) {
	req := Request{
		Seeker:       &Profile{ID: "s", Bio: "quantum physics"},
		Availability: weekly(time.Monday, 540, 600),
		Pool: []Candidate{{
			Profile:      &Profile{ID: "c", FunFact: "pottery glazing"},
			Availability: weekly(time.Thursday, 540, 600),
		}},
	}
	res, err := newTestAssembler(Options{}).Assemble(context.Background(), req)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(res.Matches) != 0 || res.EmptyReason != EmptyReasonNoOverlap {
		t.Fatalf("got %+v, want no matches with overlap reason", res)
	}

	// The pair still scores 45 on its own.
	actx := newTestBuilder().Build(req.Seeker, []*Profile{req.Pool[0].Profile})
	if got := DefaultWeights().ScorePair(0, DefaultPairTarget, actx.Entry("c")).Score; got != 45 {
		t.Fatalf("score = %d, want 45", got)
	}
}

func TestAssembleEmptySeekerProfile(t *testing.T) {
	req := Request{
		Seeker:       &Profile{ID: "s"},
		Availability: weekly(time.Wednesday, 600, 720),
		Pool: []Candidate{
			{Profile: &Profile{ID: "a", Hobbies: []string{"chess"}}, Availability: weekly(time.Wednesday, 600, 660)},
			{Profile: &Profile{ID: "b", Bio: "robotics"}, Availability: weekly(time.Wednesday, 600, 720)},
		},
	}
	res, err := newTestAssembler(Options{}).Assemble(context.Background(), req)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if got := ids(res); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Fatalf("order = %v, want [b a]", got)
	}
	for _, m := range res.Matches {
		if m.SemanticSimilarity != 0 || m.ClusterLabel != LabelScheduleMatch {
			t.Errorf("%s: similarity=%v label=%q", m.key, m.SemanticSimilarity, m.ClusterLabel)
		}
	}
}

func TestAssemblePods(t *testing.T) {
	pool := make([]Candidate, 5)
	for i := range pool {
		pool[i] = Candidate{
			Profile:      &Profile{ID: fmt.Sprintf("c%d", i+1)},
			Availability: weekly(time.Monday, 540, 720),
		}
	}
	req := Request{
		Seeker:       &Profile{ID: "s"},
		Availability: weekly(time.Monday, 540, 720),
		Mode:         ModePodOfThree,
		Pool:         pool,
	}
	res, err := newTestAssembler(Options{Workers: 3}).Assemble(context.Background(), req)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(res.Matches) != 10 {
		t.Fatalf("got %d pods, want 10", len(res.Matches))
	}

	seen := map[string]bool{}
	for i, m := range res.Matches {
		if m.Mode != ModePodOfThree || len(m.Participants) != 2 || m.OverlapMinutes != 180 {
			t.Fatalf("pod %d = %+v", i, m)
		}
		if m.CompatibilityScore != 85 {
			t.Errorf("pod %s score = %d, want 85", m.key, m.CompatibilityScore)
		}
		if seen[m.key] {
			t.Fatalf("duplicate pod %s", m.key)
		}
		seen[m.key] = true
		if i > 0 && m.CompatibilityScore > res.Matches[i-1].CompatibilityScore {
			t.Fatalf("pods not sorted by score")
		}
	}
	if !sort.StringsAreSorted(ids(res)) {
		t.Errorf("equal pods should be ordered by key: %v", ids(res))
	}
}

func TestAssemblePodsUseThreeWayOverlap(t *testing.T) {
	req := Request{
		Seeker:       &Profile{ID: "s"},
		Availability: weekly(time.Friday, 600, 780),
		Mode:         ModePodOfThree,
		Pool: []Candidate{
			{Profile: &Profile{ID: "a"}, Availability: weekly(time.Friday, 600, 690)},
			{Profile: &Profile{ID: "b"}, Availability: weekly(time.Friday, 690, 780)},
			{Profile: &Profile{ID: "c"}, Availability: weekly(time.Friday, 660, 720)},
		},
	}
	res, err := newTestAssembler(Options{}).Assemble(context.Background(), req)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	// a and b never meet; a,c share 30 minutes and b,c share 30 minutes.
	got := map[string]int{}
	for _, m := range res.Matches {
		got[m.key] = m.OverlapMinutes
	}
	want := map[string]int{"a,c": 30, "b,c": 30}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("pods = %v, want %v", got, want)
	}
}

func TestAssemblePodTooSmall(t *testing.T) {
	req := Request{
		Seeker:       &Profile{ID: "s"},
		Availability: weekly(time.Monday, 540, 600),
		Mode:         ModePodOfThree,
		Pool: []Candidate{
			{Profile: &Profile{ID: "a"}, Availability: weekly(time.Monday, 540, 600)},
			{Profile: &Profile{ID: "b"}, Availability: weekly(time.Sunday, 540, 600)},
		},
	}
	res, err := newTestAssembler(Options{}).Assemble(context.Background(), req)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(res.Matches) != 0 || res.EmptyReason != EmptyReasonPodTooSmall {
		t.Fatalf("got %+v", res)
	}
}

func TestAssemblePodPruning(t *testing.T) {
	pool := make([]Candidate, 5)
	for i := range pool {
		pool[i] = Candidate{
			Profile: &Profile{ID: fmt.Sprintf("c%d", i+1)},
			// c1 overlaps most with the seeker, c5 least.
			Availability: weekly(time.Monday, 540, 720-i*20),
		}
	}
	req := Request{
		Seeker:       &Profile{ID: "s"},
		Availability: weekly(time.Monday, 540, 720),
		Mode:         ModePodOfThree,
		Pool:         pool,
	}
	res, err := newTestAssembler(Options{PodPruneK: 3}).Assemble(context.Background(), req)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	got := ids(res)
	sort.Strings(got)
	if want := []string{"c1,c2", "c1,c3", "c2,c3"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("pods = %v, want %v", got, want)
	}
}

func TestAssembleSkipsMalformedSlots(t *testing.T) {
	req := Request{
		Seeker:       &Profile{ID: "s"},
		Availability: weekly(time.Tuesday, 780, 1020),
		Pool: []Candidate{{
			Profile: &Profile{ID: "c"},
			Availability: []Slot{
				{Day: time.Tuesday, Start: 840, End: 900},
				{Day: time.Tuesday, Start: 960, End: 900},
			},
		}},
	}
	res, err := newTestAssembler(Options{}).Assemble(context.Background(), req)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(res.Matches) != 1 || res.Matches[0].OverlapMinutes != 60 {
		t.Fatalf("got %+v, want one match with 60 minutes", res.Matches)
	}
}

func TestAssembleOrderingAndLimit(t *testing.T) {
	mk := func(id string, end int) Candidate {
		return Candidate{Profile: &Profile{ID: id}, Availability: weekly(time.Monday, 540, end)}
	}
	req := Request{
		Seeker:       &Profile{ID: "s"},
		Availability: weekly(time.Monday, 540, 720),
		Pool: []Candidate{
			mk("d", 560),
			mk("b", 600),
			mk("a", 600),
			mk("c", 720),
		},
	}
	res, err := newTestAssembler(Options{}).Assemble(context.Background(), req)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if got, want := ids(res), []string{"c", "a", "b", "d"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}

	req.Limit = 2
	res, err = newTestAssembler(Options{}).Assemble(context.Background(), req)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if got, want := ids(res), []string{"c", "a"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("limited order = %v, want %v", got, want)
	}
}

func TestAssembleMinimumOverlapTarget(t *testing.T) {
	req := Request{
		Seeker:       &Profile{ID: "s"},
		Availability: weekly(time.Monday, 540, 600),
		Pool:         []Candidate{{Profile: &Profile{ID: "c"}, Availability: weekly(time.Monday, 540, 600)}},
	}
	a := newTestAssembler(Options{})
	res, _ := a.Assemble(context.Background(), req)
	if got := res.Matches[0].CompatibilityScore; got != 65 {
		t.Fatalf("default target score = %d, want 65", got)
	}
	req.MinimumOverlapTarget = 30
	res, _ = a.Assemble(context.Background(), req)
	if got := res.Matches[0].CompatibilityScore; got != 85 {
		t.Fatalf("30 minute target score = %d, want 85", got)
	}
}

func TestAssembleDeterministicAcrossWorkers(t *testing.T) {
	pool := make([]Candidate, 12)
	for i := range pool {
		pool[i] = Candidate{
			Profile: &Profile{
				ID:      fmt.Sprintf("u%02d", i),
				Hobbies: []string{[]string{"chess", "jazz", "hiking"}[i%3]},
			},
			Availability: weekly(time.Weekday(1+i%3), 540+i*5, 720),
		}
	}
	for _, mode := range []Mode{ModePair, ModePodOfThree} {
		req := Request{
			Seeker:       &Profile{ID: "s", Hobbies: []string{"chess", "jazz"}},
			Availability: []Slot{{time.Monday, 480, 780}, {time.Tuesday, 480, 780}, {time.Wednesday, 480, 780}},
			Mode:         mode,
			Pool:         pool,
		}
		one, err := newTestAssembler(Options{Workers: 1}).Assemble(context.Background(), req)
		if err != nil {
			t.Fatalf("Assemble: %v", err)
		}
		many, err := newTestAssembler(Options{Workers: 8}).Assemble(context.Background(), req)
		if err != nil {
			t.Fatalf("Assemble: %v", err)
		}
		if !reflect.DeepEqual(one, many) {
			t.Fatalf("%s: results differ between worker counts", mode)
		}
	}
}

func TestAssembleCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := Request{
		Seeker: &Profile{ID: "s"},
		Pool:   []Candidate{{Profile: &Profile{ID: "c"}}},
	}
	_, err := newTestAssembler(Options{}).Assemble(ctx, req)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestAssembleValidation(t *testing.T) {
	pool := []Candidate{{Profile: &Profile{ID: "c"}}}
	tests := []struct {
		name  string
		req   Request
		field string
	}{
		{"nil seeker", Request{Pool: pool}, "seeker.id"},
		{"blank seeker id", Request{Seeker: &Profile{ID: " "}, Pool: pool}, "seeker.id"},
		{"empty pool", Request{Seeker: &Profile{ID: "s"}}, "candidatePool"},
		{"bad mode", Request{Seeker: &Profile{ID: "s"}, Pool: pool, Mode: "TRIO"}, "mode"},
		{"negative limit", Request{Seeker: &Profile{ID: "s"}, Pool: pool, Limit: -1}, "limit"},
		{"negative target", Request{Seeker: &Profile{ID: "s"}, Pool: pool, MinimumOverlapTarget: -5}, "minimumOverlapTarget"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestAssembler(Options{}).Assemble(context.Background(), tt.req)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("err = %v, want ErrInvalidRequest", err)
			}
			var re *RequestError
			if !errors.As(err, &re) || re.Field != tt.field {
				t.Fatalf("err = %v, want field %q", err, tt.field)
			}
		})
	}
}

func TestAssembleNoCandidates(t *testing.T) {
	req := Request{
		Seeker:  &Profile{ID: "s"},
		Filters: Filters{Majors: []string{"Dance"}},
		Pool: []Candidate{
			{Profile: &Profile{ID: "s"}},
			{Profile: &Profile{ID: "c", Major: "History"}},
		},
	}
	res, err := newTestAssembler(Options{}).Assemble(context.Background(), req)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(res.Matches) != 0 || res.EmptyReason != EmptyReasonNoCandidates {
		t.Fatalf("got %+v", res)
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModePair, "pair": ModePair, " pod_of_three ": ModePodOfThree} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %v, %v", in, got, err)
		}
	}
}

func TestFilterPool(t *testing.T) {
	seeker := &Profile{ID: "s", Classes: []string{"CS 101"}}
	pool := []Candidate{
		{Profile: &Profile{ID: "s"}},
		{Profile: nil},
		{Profile: &Profile{ID: ""}},
		{Profile: &Profile{ID: "p1", Major: "Biology", Classes: []string{"BIO 101"}, Interests: []string{"genetics"}, Hobbies: []string{"Rock Climbing"}}},
		{Profile: &Profile{ID: "p2", Classes: []string{"CS 101"}, Interests: []string{"ai"}, Hobbies: []string{"chess"}}},
		{Profile: &Profile{ID: "p3", Major: "computer science", Classes: []string{"cs 101"}, Interests: []string{"AI"}, Hobbies: []string{"board games"}}},
		{Profile: &Profile{ID: "p3", Major: "Dance"}},
	}
	tests := []struct {
		name    string
		filters Filters
		want    []string
	}{
		{"none", Filters{}, []string{"p1", "p2", "p3"}},
		{"major", Filters{Majors: []string{"Computer Science"}}, []string{"p3"}},
		{"blank majors ignored", Filters{Majors: []string{" "}}, []string{"p1", "p2", "p3"}},
		{"class", Filters{Classes: []string{"CS 101"}}, []string{"p2", "p3"}},
		{"interest", Filters{Interests: []string{"Genetics"}}, []string{"p1"}},
		{"hobby substring", Filters{HobbyQuery: " CLIMB"}, []string{"p1"}},
		{"same course", Filters{RequireSameCourse: true}, []string{"p2", "p3"}},
		{"combined", Filters{Classes: []string{"cs 101"}, HobbyQuery: "chess"}, []string{"p2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := []string{}
			for _, c := range filterPool(seeker, pool, tt.filters) {
				got = append(got, c.Profile.ID)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("filterPool = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAssemblePodsSkipDisjointPairs(t *testing.T) {
	req := Request{
		Seeker:       &Profile{ID: "s"},
		Availability: weekly(time.Friday, 600, 780),
		Mode:         ModePodOfThree,
		Pool: []Candidate{
			{Profile: &Profile{ID: "a"}, Availability: weekly(time.Friday, 600, 660)},
			{Profile: &Profile{ID: "b"}, Availability: weekly(time.Friday, 720, 780)},
		},
	}
	res, err := newTestAssembler(Options{}).Assemble(context.Background(), req)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	// Both overlap the seeker, so the pod is large enough but never meets.
	if len(res.Matches) != 0 || res.EmptyReason != EmptyReasonNoOverlap {
		t.Fatalf("got %+v", res)
	}
}

func TestAssembleLogsAffinityCounts(t *testing.T) {
	var buf bytes.Buffer
	a := NewAssembler(Options{}, zerolog.New(&buf).Level(zerolog.DebugLevel))
	req := Request{
		Seeker:       &Profile{ID: "s", Hobbies: []string{"chess"}},
		Availability: weekly(time.Monday, 540, 600),
		Pool: []Candidate{
			{Profile: &Profile{ID: "a", Hobbies: []string{"chess"}}, Availability: weekly(time.Monday, 540, 600)},
			{Profile: &Profile{ID: "b"}, Availability: weekly(time.Monday, 540, 600)},
		},
	}
	if _, err := a.Assemble(context.Background(), req); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"scored":2`, `"with_similarity":1`} {
		if !strings.Contains(out, want) {
			t.Errorf("log %q missing %s", out, want)
		}
	}
}
