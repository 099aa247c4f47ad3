package matching

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/campuslink/matchmaker/internal/logging"
)

// MinutesPerDay bounds a slot's Start and End.
const MinutesPerDay = 24 * 60

// Slot is a half-open availability interval [Start, End) on one weekday.
// Start and End are minutes after midnight.
type Slot struct {
	Day   time.Weekday
	Start int
	End   int
}

// Valid reports whether the slot describes at least one minute inside a day.
func (s Slot) Valid() bool {
	return s.Day >= time.Sunday && s.Day <= time.Saturday &&
		s.Start >= 0 && s.End <= MinutesPerDay && s.End > s.Start
}

// Minutes is the slot length.
func (s Slot) Minutes() int {
	if s.End <= s.Start {
		return 0
	}
	return s.End - s.Start
}

func (s Slot) String() string {
	return fmt.Sprintf("%s %s-%s", s.Day, clock(s.Start), clock(s.End))
}

// weekIndex orders days Monday first, matching the schedule calendar.
func weekIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

func sortSlots(slots []Slot) {
	sort.Slice(slots, func(i, j int) bool {
		a, b := slots[i], slots[j]
		if a.Day != b.Day {
			return weekIndex(a.Day) < weekIndex(b.Day)
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.End < b.End
	})
}

func clock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// MarshalJSON renders {"day":"Tuesday","start":"14:00","end":"15:30"}.
func (s Slot) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Day     string `json:"day"`
		Start   string `json:"start"`
		End     string `json:"end"`
		Minutes int    `json:"minutes"`
	}{s.Day.String(), clock(s.Start), clock(s.End), s.Minutes()})
}

// UnmarshalJSON accepts either a weekly slot
//
//	{"day":"tuesday","start":"14:00","end":"15:30"}
//
// where day may also be 0-6 (Sunday first) and start/end may be minute
// counts, or a calendar slot with ISO-8601 timestamps
//
//	{"start":"2025-01-07T14:00:00Z","end":"2025-01-07T15:30:00Z"}
//
// whose weekday is taken from start. A calendar slot ending on a later date
// is clipped to midnight. Slots with end before start decode without error
// and are dropped later by the overlap calculator.
func (s *Slot) UnmarshalJSON(data []byte) error {
	var raw struct {
		Day   any `json:"day"`
		Start any `json:"start"`
		End   any `json:"end"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("slot: %w", err)
	}

	if startStr, ok := raw.Start.(string); ok && raw.Day == nil {
		if start, err := time.Parse(time.RFC3339, startStr); err == nil {
			endStr, _ := raw.End.(string)
			end, err := time.Parse(time.RFC3339, endStr)
			if err != nil {
				return fmt.Errorf("slot: invalid end %q", endStr)
			}
			*s = slotFromTimes(start, end)
			return nil
		}
	}

	day, err := parseDay(raw.Day)
	if err != nil {
		return err
	}
	start, err := parseClock(raw.Start)
	if err != nil {
		return fmt.Errorf("slot: start: %w", err)
	}
	end, err := parseClock(raw.End)
	if err != nil {
		return fmt.Errorf("slot: end: %w", err)
	}
	*s = Slot{Day: day, Start: start, End: end}
	return nil
}

// Slots is a list of slots that decodes leniently: entries that fail to parse
// are logged and skipped instead of failing the whole document.
type Slots []Slot

func (s *Slots) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("slots: %w", err)
	}
	out := make(Slots, 0, len(raw))
	for _, r := range raw {
		var slot Slot
		if err := json.Unmarshal(r, &slot); err != nil {
			logger := logging.For("overlap")
			logger.Warn().Err(err).Msg("dropping unparseable availability slot")
			continue
		}
		out = append(out, slot)
	}
	*s = out
	return nil
}

func slotFromTimes(start, end time.Time) Slot {
	end = end.In(start.Location())
	s := Slot{
		Day:   start.Weekday(),
		Start: start.Hour()*60 + start.Minute(),
		End:   end.Hour()*60 + end.Minute(),
	}
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	if end.After(start) && (ey != sy || em != sm || ed != sd) {
		s.End = MinutesPerDay
	}
	if end.Before(start) {
		s.End = s.Start - 1
	}
	return s
}

var dayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// parseDay accepts a weekday name, a three-letter abbreviation, or 0-6.
func parseDay(v any) (time.Weekday, error) {
	switch d := v.(type) {
	case string:
		if day, ok := dayNames[strings.ToLower(strings.TrimSpace(d))]; ok {
			return day, nil
		}
		if n, err := strconv.Atoi(strings.TrimSpace(d)); err == nil && n >= 0 && n <= 6 {
			return time.Weekday(n), nil
		}
		return 0, fmt.Errorf("slot: unknown day %q", d)
	case float64:
		if d >= 0 && d <= 6 && d == float64(int(d)) {
			return time.Weekday(int(d)), nil
		}
		return 0, fmt.Errorf("slot: day %v out of range", d)
	case nil:
		return 0, fmt.Errorf("slot: day is required")
	default:
		return 0, fmt.Errorf("slot: unsupported day %v", d)
	}
}

func parseClock(v any) (int, error) {
	switch c := v.(type) {
	case float64:
		return int(c), nil
	case string:
		c = strings.TrimSpace(c)
		if c == "24:00" {
			return MinutesPerDay, nil
		}
		t, err := time.Parse("15:04", c)
		if err != nil {
			return 0, fmt.Errorf("invalid clock %q", c)
		}
		return t.Hour()*60 + t.Minute(), nil
	case nil:
		return 0, fmt.Errorf("missing")
	default:
		return 0, fmt.Errorf("unsupported value %v", c)
	}
}
