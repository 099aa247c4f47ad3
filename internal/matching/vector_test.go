package matching

import (
	"math"
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	v := NewVectorizer(nil)
	got := v.Tokenize("The student enjoys Art and chess! Rock-climbing, 3D printing; it's go")
	want := []string{"art", "chess", "rock", "climbing", "printing"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokenize = %v, want %v", got, want)
	}
}

func TestTokenizeCustomStopWords(t *testing.T) {
	v := NewVectorizer([]string{"chess"})
	got := v.Tokenize("the chess club")
	want := []string{"the", "club"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokenize = %v, want %v", got, want)
	}
}

func TestDocument(t *testing.T) {
	p := &Profile{
		Name:           "Ada",
		Major:          "Computer Science",
		GraduationYear: 2026,
		Interests:      []string{"ai", " robotics "},
		Hobbies:        []string{"chess"},
		Bio:            "  ",
		FavoriteSpot:   "Library patio",
	}
	want := "Name: Ada\n" +
		"Major: Computer Science\n" +
		"Graduation year: 2026\n" +
		"Interests: ai, robotics\n" +
		"Hobbies: chess\n" +
		"Favorite spot: Library patio"
	if got := Document(p); got != want {
		t.Fatalf("Document =\n%s\nwant\n%s", got, want)
	}
}

func TestVectorizeEmptyProfiles(t *testing.T) {
	cases := map[string]*Profile{
		"nil":        nil,
		"id only":    {ID: "u1"},
		"whitespace": {ID: "u2", Name: "   ", Bio: "\t\n", Hobbies: []string{" ", ""}},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			if vec := Vectorize(p); vec != nil {
				t.Fatalf("expected nil vector, got %+v", vec)
			}
		})
	}
}

func TestVectorizeListTokensSkipStopWords(t *testing.T) {
	vec := Vectorize(&Profile{Hobbies: []string{"love"}})
	if vec == nil {
		t.Fatal("expected a vector")
	}
	want := map[string]int{"hobbies": 1, "love": 1}
	if !reflect.DeepEqual(vec.Terms, want) {
		t.Fatalf("Terms = %v, want %v", vec.Terms, want)
	}
	if math.Abs(vec.Magnitude-math.Sqrt2) > 1e-9 {
		t.Errorf("Magnitude = %v, want sqrt(2)", vec.Magnitude)
	}
}

func TestVectorizeCountsFrequencies(t *testing.T) {
	vec := Vectorize(&Profile{Hobbies: []string{"chess", "hiking"}})
	want := map[string]int{"hobbies": 1, "chess": 2, "hiking": 2}
	if !reflect.DeepEqual(vec.Terms, want) {
		t.Fatalf("Terms = %v, want %v", vec.Terms, want)
	}
	if vec.Magnitude != 3 {
		t.Errorf("Magnitude = %v, want 3", vec.Magnitude)
	}
}
