// Package temporal derives absolute dates from relative natural-language
// phrases, anchored to an injected reference instant.
//
// Week arithmetic is Sunday-anchored: Sunday is day 0 and "next week"
// always means the next Sunday-starting 7-day span. The package never
// reads the global clock — callers pass "now" explicitly so every result
// is deterministic and testable.
package temporal

import (
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// TimeLayout is the wire format for clock times.
const TimeLayout = "15:04"

// weekdayNames maps lower-case weekday names to their Sunday-anchored
// index. Go's time.Weekday already numbers Sunday as 0, so the index is
// used directly.
var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// timeOfDay is the fixed table mapping canonical time-of-day phrases to
// 24-hour clock strings. Phrases absent from the table are simply not
// resolved; that is not an error.
var timeOfDay = map[string]string{
	"morning":     "09:00",
	"morning 6":   "06:00",
	"morning 7":   "07:00",
	"morning 8":   "08:00",
	"morning 9":   "09:00",
	"morning 10":  "10:00",
	"morning 11":  "11:00",
	"noon":        "12:00",
	"lunch":       "12:00",
	"afternoon":   "14:00",
	"afternoon 1": "13:00",
	"afternoon 2": "14:00",
	"afternoon 3": "15:00",
	"afternoon 4": "16:00",
	"afternoon 5": "17:00",
	"evening":     "19:00",
	"evening 6":   "18:00",
	"evening 7":   "19:00",
	"evening 8":   "20:00",
	"evening 9":   "21:00",
	"night":       "21:00",
	"night 10":    "22:00",
	"night 11":    "23:00",
	"midnight":    "00:00",
}

// WeekdayIndex resolves a weekday name ("monday", "Fri") to its
// Sunday-anchored index.
func WeekdayIndex(name string) (time.Weekday, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if wd, ok := weekdayNames[n]; ok {
		return wd, true
	}
	// Three-letter abbreviations ("mon", "fri") are common in transcripts.
	if len(n) >= 3 {
		for full, wd := range weekdayNames {
			if strings.HasPrefix(full, n[:3]) {
				return wd, true
			}
		}
	}
	return time.Sunday, false
}

// TimeOfDay resolves a canonical time-of-day phrase to an HH:MM string.
func TimeOfDay(phrase string) (string, bool) {
	v, ok := timeOfDay[strings.ToLower(strings.TrimSpace(phrase))]
	return v, ok
}

// StartOfWeek returns the Sunday that begins the week containing now.
func StartOfWeek(now time.Time) time.Time {
	return truncate(now).AddDate(0, 0, -int(now.Weekday()))
}

// NextWeekStart returns the next Sunday strictly after now: 7 days ahead
// when now is a Sunday, otherwise 7 minus the Sunday-anchored index.
func NextWeekStart(now time.Time) time.Time {
	idx := int(now.Weekday())
	ahead := 7 - idx
	if idx == 0 {
		ahead = 7
	}
	return truncate(now).AddDate(0, 0, ahead)
}

// ThisWeek returns the given weekday within the current Sunday-to-Saturday
// span.
func ThisWeek(now time.Time, wd time.Weekday) time.Time {
	return StartOfWeek(now).AddDate(0, 0, int(wd))
}

// NextWeek returns the given weekday within the next Sunday-to-Saturday
// span.
func NextWeek(now time.Time, wd time.Weekday) time.Time {
	return NextWeekStart(now).AddDate(0, 0, int(wd))
}

// Upcoming returns the next occurrence of wd strictly after today. Used
// for bare weekday references ("Friday's schedule"), which colloquially
// mean the nearest future one.
func Upcoming(now time.Time, wd time.Weekday) time.Time {
	ahead := (int(wd) - int(now.Weekday()) + 7) % 7
	if ahead == 0 {
		ahead = 7
	}
	return truncate(now).AddDate(0, 0, ahead)
}

// Rules builds the phrase → ISO-date lookup table for the given reference
// instant. The table is total over its fixed key set; phrases it does not
// know are simply absent.
func Rules(now time.Time) map[string]string {
	day := truncate(now)
	rules := map[string]string{
		"today":              day.Format(DateLayout),
		"tomorrow":           day.AddDate(0, 0, 1).Format(DateLayout),
		"day after tomorrow": day.AddDate(0, 0, 2).Format(DateLayout),
		"yesterday":          day.AddDate(0, 0, -1).Format(DateLayout),
		"next week":          NextWeekStart(now).Format(DateLayout),
		"this weekend":       ThisWeek(now, time.Saturday).Format(DateLayout),
		"next weekend":       NextWeek(now, time.Saturday).Format(DateLayout),
		"in a week":          day.AddDate(0, 0, 7).Format(DateLayout),
		"in two weeks":       day.AddDate(0, 0, 14).Format(DateLayout),
		"next month":         day.AddDate(0, 1, 0).Format(DateLayout),
	}
	for name, wd := range weekdayNames {
		rules["this week "+name] = ThisWeek(now, wd).Format(DateLayout)
		rules["next week "+name] = NextWeek(now, wd).Format(DateLayout)
		rules[name] = Upcoming(now, wd).Format(DateLayout)
	}
	return rules
}

// RulesPrompt renders the rule table as prompt lines, one "phrase: date"
// per line in a stable order, for inclusion in extraction prompts.
func RulesPrompt(now time.Time) string {
	var sb strings.Builder
	ordered := []string{
		"today", "tomorrow", "day after tomorrow", "next week",
		"this weekend", "next weekend",
	}
	rules := Rules(now)
	for _, k := range ordered {
		sb.WriteString("- \"" + k + "\" means " + rules[k] + "\n")
	}
	for _, name := range []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"} {
		sb.WriteString("- \"this week " + name + "\" means " + rules["this week "+name])
		sb.WriteString(", \"next week " + name + "\" means " + rules["next week "+name])
		sb.WriteString(", bare \"" + name + "\" means " + rules[name] + "\n")
	}
	return sb.String()
}

// ParseDate parses a YYYY-MM-DD string in the location of ref, so that
// day arithmetic against the reference date stays in one timezone.
func ParseDate(s string, ref time.Time) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), ref.Location())
}

// ParseClock reports whether s is a valid HH:MM 24-hour clock string.
func ParseClock(s string) (time.Time, error) {
	return time.Parse(TimeLayout, strings.TrimSpace(s))
}

func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
