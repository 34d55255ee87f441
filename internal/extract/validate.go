package extract

import (
	"time"

	"github.com/jungfsg/Calender/internal/event"
	"github.com/jungfsg/Calender/internal/temporal"
)

// ValidateDraft normalizes and repairs an extracted draft against the
// reference date. Pure function; rules apply in order:
//
//  1. Unparsable start date becomes reference+1 day. A parsable start
//     date strictly before the reference gets 365 days added — the
//     utterance almost always names a recurring annual event ("mom's
//     birthday, March 3rd"), and a day-shift would create a phantom
//     event later the same week.
//  2. A start time that is not HH:MM is discarded and the draft becomes
//     all-day.
//  3. No start time forces all-day and nulls both times.
//  4. A start time without an end time gets end = start + 1h.
//  5. end <= start is repaired to end = start + 1h; next-day rollover is
//     never assumed.
//  6. A missing end date defaults to the start date.
func ValidateDraft(d event.EventDraft, ref time.Time) event.EventDraft {
	refDay := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())

	// Rule 1: start date.
	start, err := temporal.ParseDate(d.StartDate, ref)
	switch {
	case err != nil:
		start = refDay.AddDate(0, 0, 1)
	case start.Before(refDay):
		start = start.AddDate(0, 0, 365)
	}
	d.StartDate = start.Format(temporal.DateLayout)

	// Rule 2: malformed start time.
	if d.StartTime != "" {
		if _, err := temporal.ParseClock(d.StartTime); err != nil {
			d.StartTime = ""
			d.EndTime = ""
			d.AllDay = true
		}
	}

	// Rule 3: no start time means all-day.
	if d.StartTime == "" {
		d.AllDay = true
		d.EndTime = ""
	} else {
		d.AllDay = false
	}

	// Rule 4: default duration.
	if d.StartTime != "" && d.EndTime == "" {
		d.EndTime = addHour(d.StartTime)
	}

	// Rule 5: end-before-start repair.
	if d.StartTime != "" && d.EndTime != "" {
		st, serr := temporal.ParseClock(d.StartTime)
		et, eerr := temporal.ParseClock(d.EndTime)
		if eerr != nil {
			d.EndTime = addHour(d.StartTime)
		} else if serr == nil && !et.After(st) {
			d.EndTime = addHour(d.StartTime)
		}
	}

	// Rule 6: end date defaults to start date; an end date before the
	// start date violates the draft invariant and collapses to it too.
	end, err := temporal.ParseDate(d.EndDate, ref)
	if err != nil || end.Before(start) {
		d.EndDate = d.StartDate
	} else {
		d.EndDate = end.Format(temporal.DateLayout)
	}

	return d
}

func addHour(clock string) string {
	t, err := temporal.ParseClock(clock)
	if err != nil {
		return clock
	}
	return t.Add(time.Hour).Format(temporal.TimeLayout)
}
