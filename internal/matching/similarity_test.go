package matching

import (
	"math"
	"math/rand"
	"testing"
)

func TestCosineBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	words := []string{"chess", "hiking", "jazz", "robotics", "poetry", "soccer", "anime", "coffee"}

	randomVec := func() *TermVector {
		p := &Profile{}
		for i := 0; i < 1+rng.Intn(6); i++ {
			p.Hobbies = append(p.Hobbies, words[rng.Intn(len(words))])
		}
		return Vectorize(p)
	}

	for i := 0; i < 200; i++ {
		a, b := randomVec(), randomVec()
		got := Cosine(a, b)
		if got < 0 || got > 1 {
			t.Fatalf("Cosine out of range: %v", got)
		}
		if Cosine(a, a) != 1 {
			t.Fatalf("Cosine(a, a) = %v, want 1", Cosine(a, a))
		}
		if Cosine(a, b) != Cosine(b, a) {
			t.Fatalf("Cosine not symmetric")
		}
	}
}

func TestCosineDegenerate(t *testing.T) {
	a := Vectorize(&Profile{Hobbies: []string{"chess"}})
	zero := &TermVector{Terms: map[string]int{}}

	if got := Cosine(a, nil); got != 0 {
		t.Errorf("Cosine(a, nil) = %v", got)
	}
	if got := Cosine(nil, a); got != 0 {
		t.Errorf("Cosine(nil, a) = %v", got)
	}
	if got := Cosine(a, zero); got != 0 {
		t.Errorf("Cosine(a, zero) = %v", got)
	}
}

func TestCosineKnownValue(t *testing.T) {
	a := Vectorize(&Profile{Hobbies: []string{"chess", "hiking"}})
	b := Vectorize(&Profile{Hobbies: []string{"chess", "reading"}})
	// {hobbies:1 chess:2 hiking:2} . {hobbies:1 chess:2 reading:2} = 5, |a|=|b|=3
	if got := Cosine(a, b); math.Abs(got-5.0/9.0) > 1e-12 {
		t.Fatalf("Cosine = %v, want 5/9", got)
	}
}

func TestCosineSelfIsExactlyOne(t *testing.T) {
	tests := []struct {
		name    string
		profile *Profile
	}{
		{"single bio word", &Profile{Bio: "chess"}},
		{"single hobby", &Profile{Hobbies: []string{"chess"}}},
		{"several bio words", &Profile{Bio: "robotics poetry jazz coffee"}},
		{"mixed fields", &Profile{Name: "Ana", Major: "Biology", Hobbies: []string{"chess", "board games"}, Bio: "chess nights and jazz"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Vectorize(tt.profile)
			if v == nil {
				t.Fatal("Vectorize returned nil")
			}
			if got := Cosine(v, v); got != 1 {
				t.Fatalf("Cosine(v, v) = %.17g, want exactly 1", got)
			}
			w := Vectorize(tt.profile)
			if got := Cosine(v, w); got != 1 {
				t.Fatalf("Cosine of equal vectors = %.17g, want exactly 1", got)
			}
		})
	}
}
