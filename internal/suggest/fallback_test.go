package suggest

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackActivities(t *testing.T) {
	base := fallbackActivities(ActivityRequest{})
	require.Len(t, base, 3)
	assert.Equal(t, "Commuter Coffee Catch-up", base[0].Title)
	assert.Equal(t, 30, base[0].DurationMinutes)
	assert.Equal(t, "Library Focus Pod", base[1].Title)
	assert.Equal(t, 45, base[1].DurationMinutes)
	assert.Equal(t, "Campus Loop Reset", base[2].Title)
	assert.Equal(t, 25, base[2].DurationMinutes)

	personal := fallbackActivities(ActivityRequest{Hobbies: []string{"Rock Climbing"}, Description: "study buddies"})
	assert.Equal(t, "Rock Climbing Micro Meetup", personal[0].Title)
	assert.Equal(t, []string{"rock climbing", "commuter"}, personal[0].Tags)
	assert.Contains(t, personal[0].Summary, "30-minute rock climbing session")
	assert.Equal(t, "Library Focus Pod", personal[1].Title)
	assert.Equal(t, "Express Match Activity", personal[2].Title)
	assert.Equal(t, "study buddies", personal[2].Summary)
	assert.Equal(t, 35, personal[2].DurationMinutes)
}

func TestFallbackDescriptionPreview(t *testing.T) {
	exact := strings.Repeat("a", 180)
	assert.Equal(t, exact, fallbackActivities(ActivityRequest{Description: exact})[2].Summary)

	long := strings.Repeat("é", 181)
	got := fallbackActivities(ActivityRequest{Description: long})[2].Summary
	assert.Equal(t, 178, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestFallbackPlanDurations(t *testing.T) {
	tests := []struct {
		minutes     int
		kickoff     int
		collaborate int
		wrapUp      int
	}{
		{0, 20, 25, 15},
		{30, 10, 15, 15},
		{45, 15, 23, 15},
		{90, 20, 25, 45},
		{240, 20, 25, 195},
	}
	for _, tt := range tests {
		plan := fallbackPlan(HangoutRequest{DurationMinutes: tt.minutes})
		require.Len(t, plan.Agenda, 3)
		assert.Equal(t, tt.kickoff, plan.Agenda[0].DurationMinutes, "kickoff for %d", tt.minutes)
		assert.Equal(t, tt.collaborate, plan.Agenda[1].DurationMinutes, "collaborate for %d", tt.minutes)
		assert.Equal(t, tt.wrapUp, plan.Agenda[2].DurationMinutes, "wrap for %d", tt.minutes)
	}
}

func TestFallbackPlanText(t *testing.T) {
	plan := fallbackPlan(HangoutRequest{})
	assert.Equal(t, "Campus catch-up", plan.Title)
	assert.Equal(t, []string{"Swap quick wins from the week so everyone gets a turn to shine."}, plan.SharedConnections)
	assert.Len(t, plan.PrepReminders, 2)
	assert.Len(t, plan.FollowUpIdeas, 2)

	focused := fallbackPlan(HangoutRequest{
		Seeker:  Person{Name: "Ana", Hobbies: []string{"Chess", "Tennis"}},
		Friends: []Person{{Name: "Ben", Hobbies: []string{"tennis", "Go"}}, {}},
		Focus:   "Exam Prep",
	})
	assert.Equal(t, "Exam Prep meetup", focused.Title)
	assert.Contains(t, focused.Summary, "related to exam prep")
	assert.Contains(t, focused.Agenda[1].Detail, "tied to exam prep")
	assert.Equal(t, []string{"Lean into your shared interest in chess, tennis."}, focused.SharedConnections)
	assert.Equal(t, []string{"Ana", "Ben"}, focused.Participants)
}

func TestExtractJSON(t *testing.T) {
	assert.Nil(t, extractJSON(""))
	assert.Nil(t, extractJSON("no braces"))
	assert.Nil(t, extractJSON("} backwards {"))
	assert.Equal(t, `{"a":{"b":1}}`, string(extractJSON("text {\"a\":{\"b\":1}} more")))
}

func TestDescribePerson(t *testing.T) {
	assert.Equal(t, "", describePerson(Person{}))
	assert.Equal(t, "Ana · studies CS · into a, b, c", describePerson(Person{Name: "Ana", Major: "CS", Hobbies: []string{"a", "b", "c", "d"}}))
	assert.Equal(t, "interested in x", describePerson(Person{Interests: []string{"x"}}))
}

func TestActivityPromptDefaults(t *testing.T) {
	p := activityPrompt(ActivityRequest{})
	assert.Contains(t, p, "Student request: "+defaultActivityDescription)
	assert.Contains(t, p, "No explicit hobbies provided.")

	many := make([]string, 10)
	for i := range many {
		many[i] = string(rune('a' + i))
	}
	p = activityPrompt(ActivityRequest{Hobbies: many})
	assert.Contains(t, p, "The student enjoys: a, b, c, d, e, f, g, h.")
}
