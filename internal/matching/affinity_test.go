package matching

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

func newTestBuilder() *AffinityBuilder {
	return NewAffinityBuilder(nil, DefaultWeights(), zerolog.Nop())
}

func TestAffinitySharedHobby(t *testing.T) {
	seeker := &Profile{ID: "s", Hobbies: []string{"chess", "hiking"}}
	cand := &Profile{ID: "c", Hobbies: []string{"Chess", "reading"}}

	actx := newTestBuilder().Build(seeker, []*Profile{cand})
	entry := actx.Entry("c")
	if entry == nil {
		t.Fatal("missing entry")
	}
	if !reflect.DeepEqual(entry.SharedHobbies, []string{"Chess"}) {
		t.Errorf("SharedHobbies = %v", entry.SharedHobbies)
	}
	if entry.SemanticSimilarity != 0.556 {
		t.Errorf("SemanticSimilarity = %v, want 0.556", entry.SemanticSimilarity)
	}
	if entry.Highlight != "Shared hobby: Chess" {
		t.Errorf("Highlight = %q", entry.Highlight)
	}
	if actx.Label() != LabelProfileMatch || actx.Assigned() != 1 || actx.Len() != 1 {
		t.Errorf("label=%q assigned=%d len=%d", actx.Label(), actx.Assigned(), actx.Len())
	}
}

func TestAffinityListBonusLiftsWeakText(t *testing.T) {
	// Long unrelated bios dilute the text similarity; the shared tags still
	// count through the list bonus.
	seeker := &Profile{
		ID:        "s",
		Interests: []string{"ai"},
		Hobbies:   []string{"chess"},
		Bio:       "marine biology volunteer surfing photography documentaries",
	}
	cand := &Profile{
		ID:        "c",
		Interests: []string{"AI"},
		Hobbies:   []string{"chess"},
		Bio:       "accounting finance spreadsheets marathon running baking bread",
	}
	entry := newTestBuilder().Build(seeker, []*Profile{cand}).Entry("c")
	text := Cosine(Vectorize(seeker), Vectorize(cand))
	if entry.SemanticSimilarity <= round3(text) {
		t.Fatalf("similarity %v should exceed text cosine %v", entry.SemanticSimilarity, text)
	}
}

func TestAffinityEmptySeeker(t *testing.T) {
	seeker := &Profile{ID: "s"}
	cands := []*Profile{
		{ID: "a", Hobbies: []string{"chess"}, VibeCheck: "night owl"},
		{ID: "b", Bio: "robotics nerd"},
	}
	actx := newTestBuilder().Build(seeker, cands)

	if actx.Label() != LabelScheduleMatch || actx.Assigned() != 0 {
		t.Fatalf("label=%q assigned=%d", actx.Label(), actx.Assigned())
	}
	for _, c := range cands {
		e := actx.Entry(c.ID)
		if e.SemanticSimilarity != 0 || len(e.SharedHobbies) != 0 {
			t.Errorf("%s: unexpected affinity %+v", c.ID, e)
		}
	}
	if got := actx.Entry("a").Highlight; got != "night owl" {
		t.Errorf("Highlight = %q, want vibe check", got)
	}
}

func TestAffinityContextNilSafe(t *testing.T) {
	var actx *AffinityContext
	if actx.Entry("x") != nil || actx.Len() != 0 || actx.Assigned() != 0 {
		t.Fatal("nil context should be empty")
	}
	if actx.Label() != LabelScheduleMatch {
		t.Fatalf("Label = %q", actx.Label())
	}
}

func TestAffinitySameMajor(t *testing.T) {
	seeker := &Profile{ID: "s", Major: " Physics "}
	cands := []*Profile{
		{ID: "a", Major: "Physics"},
		{ID: "b", Major: "physics"},
		{ID: "c"},
	}
	actx := newTestBuilder().Build(seeker, cands)
	if !actx.Entry("a").SameMajor {
		t.Error("a should share the major")
	}
	if actx.Entry("b").SameMajor || actx.Entry("c").SameMajor {
		t.Error("major comparison is exact after trimming")
	}
}

func TestHighlight(t *testing.T) {
	long := strings.Repeat("é", 200)
	tests := []struct {
		name      string
		seeker    *Profile
		cand      *Profile
		hobbies   []string
		interests []string
		want      string
	}{
		{"hobby first", &Profile{}, &Profile{VibeCheck: "chill"}, []string{"go"}, []string{"ai"}, "Shared hobby: go"},
		{"two interests", &Profile{}, &Profile{}, nil, []string{"ai", "ml", "art"}, "Overlap on ai, ml"},
		{"vibe before bio", &Profile{}, &Profile{VibeCheck: " chill ", Bio: "bio"}, nil, nil, "chill"},
		{"fun fact", &Profile{}, &Profile{FunFact: "juggles", Bio: "bio"}, nil, nil, "juggles"},
		{"shared spot", &Profile{FavoriteSpot: "Quad"}, &Profile{FavoriteSpot: "Quad"}, nil, nil, "Both love Quad"},
		{"shared spot ignores case", &Profile{FavoriteSpot: " the quad "}, &Profile{FavoriteSpot: "The Quad"}, nil, nil, "Both love The Quad"},
		{"own spot", &Profile{FavoriteSpot: "Gym"}, &Profile{FavoriteSpot: "Quad"}, nil, nil, "Favorite spot: Quad"},
		{"nothing", &Profile{}, &Profile{}, nil, nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := highlight(tt.seeker, tt.cand, tt.hobbies, tt.interests); got != tt.want {
				t.Fatalf("highlight = %q, want %q", got, tt.want)
			}
		})
	}

	got := highlight(&Profile{}, &Profile{Bio: long}, nil, nil)
	if n := utf8.RuneCountInString(got); n != MaxHighlightLength {
		t.Fatalf("truncated highlight has %d characters", n)
	}
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("truncated highlight %q lacks ellipsis", got)
	}
}

func TestIntersectFold(t *testing.T) {
	got := intersectFold([]string{"Chess", " hiking "}, []string{"chess", "CHESS", "Hiking", "go", " "})
	if want := []string{"chess", "Hiking"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("intersectFold = %v, want %v", got, want)
	}
	if got := intersectFold(nil, []string{"chess"}); got == nil || len(got) != 0 {
		t.Fatalf("intersectFold(nil) = %#v", got)
	}
}
