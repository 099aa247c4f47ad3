package api

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeInstagram(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"   ", ""},
		{"@ana", "ana"},
		{"@", "@"},
		{"https://www.instagram.com/ana.plays/", "ana.plays"},
		{"http://instagram.com/ana//", "ana"},
		{"HTTPS://Instagram.com/@ana", "ana"},
		{"ana plays", "anaplays"},
		{"https://instagram.com/", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeInstagram(tt.in), "input %q", tt.in)
	}
}

func TestSanitizeList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SanitizeList([]string{" a ", "", "  ", "b"}))
	assert.Equal(t, []string{}, SanitizeList(nil))
}

func TestSanitizeDescription(t *testing.T) {
	assert.Equal(t, "hi", SanitizeDescription("  hi  "))
	got := SanitizeDescription(strings.Repeat("ß", 900))
	assert.Equal(t, 800, utf8.RuneCountInString(got))
}
