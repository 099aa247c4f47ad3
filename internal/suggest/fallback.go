package suggest

import (
	"fmt"
	"strings"
)

const descriptionPreviewLen = 180

// fallbackActivities builds three campus ideas, personalized by the first
// two hobbies and the description.
func fallbackActivities(req ActivityRequest) []Activity {
	ideas := []Activity{
		{
			Title:           "Commuter Coffee Catch-up",
			Summary:         "Meet at the campus coffee bar before class for a 30-minute vibe check and quick planning sprint.",
			DurationMinutes: 30,
			Tags:            []string{"coffee", "hangout", "commuter"},
			PrimaryReason:   "Works for tight schedules and gets commuters face time with peers.",
		},
		{
			Title:           "Library Focus Pod",
			Summary:         "Block off 45 minutes in the library's quiet zone to co-work and swap study playlists.",
			DurationMinutes: 45,
			Tags:            []string{"study", "focus", "library"},
			PrimaryReason:   "Easy to schedule between classes and keeps energy accountable.",
		},
		{
			Title:           "Campus Loop Reset",
			Summary:         "Take a 25-minute walk around campus to stretch, compare notes from classes, and reset before the next block.",
			DurationMinutes: 25,
			Tags:            []string{"movement", "wellness"},
			PrimaryReason:   "Keeps commuters energized without needing extra gear or planning.",
		},
	}

	if len(req.Hobbies) > 0 {
		h := req.Hobbies[0]
		ideas[0] = Activity{
			Title:           h + " Micro Meetup",
			Summary:         fmt.Sprintf("Gather for a 30-minute %s session in a common space so commuters can connect fast.", strings.ToLower(h)),
			DurationMinutes: 30,
			Tags:            []string{strings.ToLower(h), "commuter"},
			PrimaryReason:   fmt.Sprintf("Taps into their interest in %s while staying campus friendly.", h),
		}
	}
	if len(req.Hobbies) > 1 {
		h := req.Hobbies[1]
		ideas[1] = Activity{
			Title:           h + " Express Jam",
			Summary:         fmt.Sprintf("Host a 45-minute %s meetup in a lounge or multipurpose room and invite folks to bring a friend.", strings.ToLower(h)),
			DurationMinutes: 45,
			Tags:            []string{strings.ToLower(h), "community"},
			PrimaryReason:   fmt.Sprintf("Builds on their %s hobby to attract similar commuters.", h),
		}
	}
	if req.Description != "" {
		summary := req.Description
		if r := []rune(summary); len(r) > descriptionPreviewLen {
			summary = string(r[:descriptionPreviewLen-3]) + "…"
		}
		ideas[2] = Activity{
			Title:           "Express Match Activity",
			Summary:         summary,
			DurationMinutes: 35,
			Tags:            []string{"custom", "commuter"},
			PrimaryReason:   "Echoes the student's own idea so they can rally others around it quickly.",
		}
	}
	return ideas
}

// fallbackPlan builds a three-block plan sized to the requested duration.
func fallbackPlan(req HangoutRequest) Plan {
	participants := []string{"You"}
	if req.Seeker.Name != "" {
		participants[0] = req.Seeker.Name
	}
	for _, f := range req.Friends {
		if f.Name != "" {
			participants = append(participants, f.Name)
		}
	}

	title := "Campus catch-up"
	summary := "Gather for a relaxed campus catch-up, share wins from the week, and line up the next meetup."
	collabDetail := "Work on personal goals side-by-side or share a playlist while you co-work."
	if req.Focus != "" {
		focus := strings.ToLower(req.Focus)
		title = req.Focus + " meetup"
		summary = fmt.Sprintf("Swap stories and resources related to %s while catching up in a relaxed campus spot.", focus)
		collabDetail = fmt.Sprintf("Collaborate on something tied to %s or trade tips that help everyone move forward.", focus)
	}

	total := req.DurationMinutes
	if total <= 0 {
		total = DefaultHangoutTime
	}
	kickoff := min(20, roundHalfUp(float64(total)/3))
	collaborate := min(25, roundHalfUp(float64(total)/2))
	wrap := max(total-kickoff-collaborate, 15)

	shared := "Swap quick wins from the week so everyone gets a turn to shine."
	if hobbies := groupHobbies(req); len(hobbies) > 0 {
		shared = fmt.Sprintf("Lean into your shared interest in %s.", strings.Join(firstN(hobbies, 2), ", "))
	}

	return Plan{
		Title:   title,
		Summary: summary,
		Agenda: []AgendaItem{
			{
				Label:           "Arrive & settle in",
				DurationMinutes: kickoff,
				Detail:          "Grab drinks or snacks and do a quick high/low round so everyone feels caught up.",
			},
			{
				Label:           "Shared focus",
				DurationMinutes: collaborate,
				Detail:          collabDetail,
			},
			{
				Label:           "Wrap & plan next touchpoint",
				DurationMinutes: wrap,
				Detail:          "Recap key takeaways, jot down next steps, and snap a photo to mark the moment.",
			},
		},
		ConversationStarters: []string{
			"What’s something that energized you this week?",
			"If we had another hour together, what would you want to dive into?",
			"Any campus hack or hidden spot worth sharing?",
		},
		SharedConnections: []string{shared},
		PrepReminders: []string{
			"Pick a spot with outlets and comfy seating so commuters can settle in.",
			"Bring a small treat or playlist suggestion to kick things off.",
		},
		FollowUpIdeas: []string{
			"Drop a quick recap or photo in your group chat after the meetup.",
			"Lock in the next hang while everyone’s together.",
		},
		Participants: participants,
	}
}

// groupHobbies returns the lowercased hobbies of everyone in first-seen order.
func groupHobbies(req HangoutRequest) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(hobbies []string) {
		for _, h := range hobbies {
			h = strings.ToLower(h)
			if !seen[h] {
				seen[h] = true
				out = append(out, h)
			}
		}
	}
	add(req.Seeker.Hobbies)
	for _, f := range req.Friends {
		add(f.Hobbies)
	}
	return out
}
