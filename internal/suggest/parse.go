package suggest

import (
	"fmt"
	"math"
	"strings"

	"github.com/goccy/go-json"
)

// extractJSON returns the text between the first '{' and the last '}'.
func extractJSON(text string) []byte {
	first := strings.Index(text, "{")
	last := strings.LastIndex(text, "}")
	if first == -1 || last == -1 || last < first {
		return nil
	}
	return []byte(text[first : last+1])
}

// Model output is decoded loosely: fields of the wrong type count as absent
// rather than failing the whole payload.
type rawActivity struct {
	Title           any `json:"title"`
	Summary         any `json:"summary"`
	DurationMinutes any `json:"durationMinutes"`
	Tags            any `json:"tags"`
	PrimaryReason   any `json:"primaryReason"`
}

type rawAgendaItem struct {
	Label           any `json:"label"`
	DurationMinutes any `json:"durationMinutes"`
	Detail          any `json:"detail"`
}

type rawPlan struct {
	Title                any `json:"title"`
	Summary              any `json:"summary"`
	Agenda               any `json:"agenda"`
	ConversationStarters any `json:"conversationStarters"`
	SharedConnections    any `json:"sharedConnections"`
	PrepReminders        any `json:"prepReminders"`
	FollowUpIdeas        any `json:"followUpIdeas"`
}

// parseActivities decodes model text into clamped activities. ok is false
// when the text has no suggestions array.
func parseActivities(text string) (out []Activity, ok bool) {
	raw := extractJSON(text)
	if raw == nil {
		return nil, false
	}
	var payload struct {
		Suggestions any `json:"suggestions"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, false
	}
	items, isList := payload.Suggestions.([]any)
	if !isList {
		return nil, false
	}

	var decoded []rawActivity
	for _, item := range items {
		obj, isObj := item.(map[string]any)
		if !isObj {
			continue
		}
		decoded = append(decoded, rawActivity{
			Title:           obj["title"],
			Summary:         obj["summary"],
			DurationMinutes: obj["durationMinutes"],
			Tags:            obj["tags"],
			PrimaryReason:   obj["primaryReason"],
		})
	}
	return clampActivities(decoded), true
}

// clampActivities keeps titled items, at most MaxSuggestions, with trimmed
// fields and rounded positive durations.
func clampActivities(items []rawActivity) []Activity {
	out := make([]Activity, 0, MaxSuggestions)
	for _, item := range items {
		title := trimmedString(item.Title)
		if title == "" {
			continue
		}
		out = append(out, Activity{
			Title:           title,
			Summary:         trimmedString(item.Summary),
			DurationMinutes: positiveMinutes(item.DurationMinutes),
			Tags:            stringList(item.Tags),
			PrimaryReason:   trimmedString(item.PrimaryReason),
		})
		if len(out) == MaxSuggestions {
			break
		}
	}
	return out
}

// parsePlan decodes model text into a plan. ok is false when the text has
// no plan object.
func parsePlan(text string) (*rawPlan, bool) {
	raw := extractJSON(text)
	if raw == nil {
		return nil, false
	}
	var payload struct {
		Plan *rawPlan `json:"plan"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Plan == nil {
		return nil, false
	}
	return payload.Plan, true
}

// mergePlan takes each field from the model when usable and from fallback
// otherwise. Participants always come from fallback.
func mergePlan(p *rawPlan, fallback Plan) Plan {
	out := fallback
	if s := trimmedString(p.Title); s != "" {
		out.Title = s
	}
	if s := trimmedString(p.Summary); s != "" {
		out.Summary = s
	}
	if agenda := agendaItems(p.Agenda); len(agenda) > 0 {
		out.Agenda = agenda
	}
	if l := stringList(p.ConversationStarters); len(l) > 0 {
		out.ConversationStarters = l
	}
	if l := stringList(p.SharedConnections); len(l) > 0 {
		out.SharedConnections = l
	}
	if l := stringList(p.PrepReminders); len(l) > 0 {
		out.PrepReminders = l
	}
	if l := stringList(p.FollowUpIdeas); len(l) > 0 {
		out.FollowUpIdeas = l
	}
	return out
}

func agendaItems(v any) []AgendaItem {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []AgendaItem
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		label := trimmedString(obj["label"])
		if label == "" {
			continue
		}
		out = append(out, AgendaItem{
			Label:           label,
			DurationMinutes: positiveMinutes(obj["durationMinutes"]),
			Detail:          trimmedString(obj["detail"]),
		})
	}
	return out
}

func trimmedString(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

func positiveMinutes(v any) int {
	f, ok := v.(float64)
	if !ok || f <= 0 || math.IsInf(f, 0) {
		return 0
	}
	return roundHalfUp(f)
}

// stringList stringifies list entries and drops blank ones.
func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		switch t := item.(type) {
		case string:
			s = t
		case nil:
			continue
		default:
			s = fmt.Sprint(t)
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func roundHalfUp(f float64) int {
	return int(math.Floor(f + 0.5))
}
