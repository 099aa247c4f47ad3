package suggest

import (
	"fmt"
	"strings"
)

const defaultActivityDescription = "Co-working sessions or quick meetups that help commuters feel connected."

const activityInstructions = `You coach commuter students on quick on-campus meetups that strengthen community.

Produce JSON in the following shape:
{
  "suggestions": [
    {
      "title": "Short, catchy activity name",
      "summary": "1-2 sentence description tailored to their interests",
      "durationMinutes": number,
      "tags": ["keyword", "another"],
      "primaryReason": "Why this fits their description or hobbies"
    }
  ]
}

Guidelines:
- Suggest 2-3 concrete activities that can fit in 20-90 minutes.
- Use spaces on or near campus (student union, library patio, commuter lounge, etc.).
- Blend in the provided description and hobbies; reflect their vibe.
- When no hobbies are given, pick approachable ideas any commuter could try.
- Keep language warm, inclusive, and campus-oriented.
- Respond with JSON only, no markdown fences or commentary.`

const hangoutInstructions = `You are a campus hangout concierge crafting inclusive, commuter-friendly plans.

Produce JSON in this shape:
{
  "plan": {
    "title": "short title",
    "summary": "1-2 sentence overview",
    "agenda": [
      {
        "label": "Kickoff coffee lap",
        "durationMinutes": 20,
        "detail": "Quick icebreaker while grabbing drinks near the student union."
      }
    ],
    "conversationStarters": ["Starter 1", "Starter 2", "Starter 3"],
    "sharedConnections": ["Shared hobby or interest insight", "Another relevant overlap"],
    "prepReminders": ["Reminder that helps the meetup go smoothly"],
    "followUpIdeas": ["Lightweight next step to keep momentum going"]
  }
}

Guidelines:
- Suggest an agenda that fits within the provided time.
- Reference their hobbies/interests so everyone feels seen.
- Keep conversation starters inclusive and curiosity-driven.
- If information is sparse, recommend universally friendly prompts.
- Avoid suggesting alcohol and keep everything campus-accessible.
- Respond with JSON only, no markdown or commentary.`

func activityPrompt(req ActivityRequest) string {
	description := req.Description
	if description == "" {
		description = defaultActivityDescription
	}
	hobbyLine := "No explicit hobbies provided."
	if len(req.Hobbies) > 0 {
		hobbies := req.Hobbies
		if len(hobbies) > MaxPromptHobbies {
			hobbies = hobbies[:MaxPromptHobbies]
		}
		hobbyLine = fmt.Sprintf("The student enjoys: %s.", strings.Join(hobbies, ", "))
	}

	var b strings.Builder
	b.WriteString(activityInstructions)
	b.WriteString("\n\nStudent request: ")
	b.WriteString(description)
	b.WriteString("\n")
	b.WriteString(hobbyLine)
	return b.String()
}

// describePerson renders "name · studies major · into a, b, c".
func describePerson(p Person) string {
	var parts []string
	if p.Name != "" {
		parts = append(parts, p.Name)
	}
	if p.Major != "" {
		parts = append(parts, "studies "+p.Major)
	}
	if len(p.Hobbies) > 0 {
		parts = append(parts, "into "+strings.Join(firstN(p.Hobbies, 3), ", "))
	} else if len(p.Interests) > 0 {
		parts = append(parts, "interested in "+strings.Join(firstN(p.Interests, 3), ", "))
	}
	return strings.Join(parts, " · ")
}

func hangoutPrompt(req HangoutRequest) string {
	focusLine := "No special focus was mentioned, so suggest something energizing and welcoming."
	if req.Focus != "" {
		focusLine = fmt.Sprintf("Priority or vibe the group mentioned: %s.", req.Focus)
	}
	durationLine := "Assume they have 60 minutes together unless a better cadence emerges."
	if req.DurationMinutes > 0 {
		durationLine = fmt.Sprintf("They have about %d minutes together.", req.DurationMinutes)
	}

	var roster []string
	if s := describePerson(req.Seeker); s != "" {
		roster = append(roster, "Host: "+s)
	}
	n := 0
	for _, f := range req.Friends {
		if s := describePerson(f); s != "" {
			n++
			roster = append(roster, fmt.Sprintf("Friend %d: %s", n, s))
		}
	}
	rosterText := "No roster info provided."
	if len(roster) > 0 {
		rosterText = strings.Join(roster, "\n")
	}

	return strings.Join([]string{
		hangoutInstructions,
		"",
		focusLine,
		durationLine,
		"",
		"People attending:",
		rosterText,
	}, "\n")
}

func firstN(values []string, n int) []string {
	if len(values) > n {
		return values[:n]
	}
	return values
}
