package matching

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultStopWords is the connective and academic filler dropped from
// free-text documents. It deliberately leaves hobby and interest nouns alone.
var DefaultStopWords = []string{
	"and", "the", "for", "with", "you", "your", "about", "this", "that", "from",
	"have", "just", "like", "they", "their", "them", "are", "was", "were", "she",
	"him", "her", "his", "its", "it's", "cant", "can't", "dont", "don't", "but",
	"into", "over", "under", "also", "really", "very", "more", "most", "some",
	"any", "each", "every", "other", "than", "then", "will", "what", "when",
	"where", "why", "who", "how", "been", "because", "year", "years", "student",
	"students", "major", "class", "classes", "study", "studying", "love", "enjoy",
	"enjoys", "enjoying", "likes", "liked", "looking", "forward",
}

// minTokenLen is exclusive: tokens must be longer than this.
const minTokenLen = 2

// TermVector is a sparse term-frequency vector with its Euclidean magnitude.
// It is never modified after Vectorize returns it.
type TermVector struct {
	Terms     map[string]int
	Magnitude float64
	SumSquare float64 // Magnitude squared, kept exact for Cosine
}

// Vectorizer turns profiles into term vectors. A Vectorizer is immutable and
// safe for concurrent use.
type Vectorizer struct {
	stopWords map[string]struct{}
}

// NewVectorizer builds a Vectorizer with the given stop words. A nil slice
// selects DefaultStopWords; an empty non-nil slice disables filtering.
func NewVectorizer(stopWords []string) *Vectorizer {
	if stopWords == nil {
		stopWords = DefaultStopWords
	}
	set := make(map[string]struct{}, len(stopWords))
	for _, w := range stopWords {
		set[strings.ToLower(w)] = struct{}{}
	}
	return &Vectorizer{stopWords: set}
}

var defaultVectorizer = NewVectorizer(nil)

// Vectorize uses the default stop-word set.
func Vectorize(p *Profile) *TermVector {
	return defaultVectorizer.Vectorize(p)
}

// Tokenize lowercases text, replaces everything but [a-z0-9] and whitespace
// with spaces, and keeps tokens longer than two characters that are not stop
// words.
func (v *Vectorizer) Tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', unicode.IsSpace(r):
			return r
		default:
			return ' '
		}
	}, strings.ToLower(text))

	var tokens []string
	for _, tok := range strings.Fields(cleaned) {
		if len(tok) <= minTokenLen {
			continue
		}
		if _, stop := v.stopWords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// Document renders the labeled text a profile is vectorized from, one segment
// per present field. It returns "" when no field is present.
func Document(p *Profile) string {
	if p == nil {
		return ""
	}
	var segs []string
	add := func(label, value string) {
		if value = strings.TrimSpace(value); value != "" {
			segs = append(segs, label+": "+value)
		}
	}
	addList := func(label string, values []string) {
		if list := cleanList(values); len(list) > 0 {
			segs = append(segs, label+": "+strings.Join(list, ", "))
		}
	}

	add("Name", p.Name)
	add("Major", p.Major)
	if p.GraduationYear > 0 {
		segs = append(segs, fmt.Sprintf("Graduation year: %d", p.GraduationYear))
	}
	addList("Interests", p.Interests)
	addList("Hobbies", p.Hobbies)
	addList("Classes", p.Classes)
	add("Bio", p.Bio)
	add("Fun fact", p.FunFact)
	add("Vibe", p.VibeCheck)
	add("Favorite spot", p.FavoriteSpot)

	return strings.Join(segs, "\n")
}

// Vectorize builds the term vector for p, or returns nil when p carries no
// descriptive content.
func (v *Vectorizer) Vectorize(p *Profile) *TermVector {
	doc := Document(p)
	if doc == "" {
		return nil
	}

	tokens := v.Tokenize(doc)
	// Tag lists are folded in word by word without stop-word filtering so
	// short domain words survive.
	for _, list := range [][]string{p.Hobbies, p.Interests, p.Classes, p.Clubs} {
		for _, entry := range list {
			for _, tok := range strings.Fields(strings.ToLower(entry)) {
				if utf8.RuneCountInString(tok) > minTokenLen {
					tokens = append(tokens, tok)
				}
			}
		}
	}
	if len(tokens) == 0 {
		return nil
	}

	terms := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		terms[tok]++
	}
	var sq float64
	for _, n := range terms {
		sq += float64(n * n)
	}
	return &TermVector{Terms: terms, Magnitude: math.Sqrt(sq), SumSquare: sq}
}
