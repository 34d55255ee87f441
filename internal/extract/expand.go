package extract

import (
	"time"

	"github.com/jungfsg/Calender/internal/event"
	"github.com/jungfsg/Calender/internal/temporal"
)

// DefaultListWeeks is how many weeks a weekday list repeats when the
// utterance does not say.
const DefaultListWeeks = 4

// Range types understood by the expander.
const (
	RangeDates       = "date_range"
	RangeWeekdays    = "weekday_range"
	RangeSingleWeek  = "single_week_range"
	RangeWeekdayList = "weekday_list"
	RangeCrossWeek   = "cross_week_range"
)

// RangeSpec is one recurring/spanning specification to expand into
// concrete single-day drafts.
type RangeSpec struct {
	Title     string `json:"title"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
	Location  string `json:"location,omitempty"`

	RangeType string `json:"range_type"`

	// date_range
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`

	// weekday_range / single_week_range / cross_week_range
	StartWeekday string `json:"start_weekday,omitempty"`
	EndWeekday   string `json:"end_weekday,omitempty"`
	Week         string `json:"week,omitempty"`       // "this" or "next"
	StartWeek    string `json:"start_week,omitempty"` // cross_week_range
	EndWeek      string `json:"end_week,omitempty"`

	// weekday_list
	Weekdays []string `json:"weekdays,omitempty"`
	Weeks    int      `json:"weeks,omitempty"`
}

// ExpandRange converts a range specification into an ordered list of
// single-day drafts sharing title, time, and location. Dates strictly
// before the reference date are dropped, and every surviving draft passes
// through ValidateDraft.
func ExpandRange(spec RangeSpec, ref time.Time) []event.EventDraft {
	var dates []time.Time

	switch spec.RangeType {
	case RangeDates:
		dates = expandDates(spec, ref)
	case RangeWeekdays, RangeSingleWeek:
		dates = expandWeekSpan(spec, ref)
	case RangeWeekdayList:
		dates = expandWeekdayList(spec, ref)
	case RangeCrossWeek:
		dates = expandCrossWeek(spec, ref)
	}

	refDay := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())
	drafts := make([]event.EventDraft, 0, len(dates))
	for _, day := range dates {
		if day.Before(refDay) {
			continue
		}
		d := event.EventDraft{
			Title:     spec.Title,
			StartDate: day.Format(temporal.DateLayout),
			EndDate:   day.Format(temporal.DateLayout),
			StartTime: spec.StartTime,
			EndTime:   spec.EndTime,
			Location:  spec.Location,
			IsRange:   true,
		}
		drafts = append(drafts, ValidateDraft(d, ref))
	}
	return drafts
}

// expandDates enumerates every calendar day from start to end inclusive.
func expandDates(spec RangeSpec, ref time.Time) []time.Time {
	start, err := temporal.ParseDate(spec.StartDate, ref)
	if err != nil {
		return nil
	}
	end, err := temporal.ParseDate(spec.EndDate, ref)
	if err != nil {
		end = start
	}
	if end.Before(start) {
		start, end = end, start
	}
	var out []time.Time
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		out = append(out, day)
	}
	return out
}

// expandWeekSpan enumerates a contiguous weekday span in one designated
// Sunday-anchored week, wrapping across Saturday into the following
// Sunday when the start weekday comes after the end weekday.
func expandWeekSpan(spec RangeSpec, ref time.Time) []time.Time {
	s, ok := temporal.WeekdayIndex(spec.StartWeekday)
	if !ok {
		return nil
	}
	e, ok := temporal.WeekdayIndex(spec.EndWeekday)
	if !ok {
		e = s
	}

	weekStart := temporal.StartOfWeek(ref)
	if spec.Week == "next" {
		weekStart = temporal.NextWeekStart(ref)
	}

	count := (int(e)-int(s)+7)%7 + 1
	out := make([]time.Time, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, weekStart.AddDate(0, 0, int(s)+i))
	}
	return out
}

// expandWeekdayList enumerates the named weekdays across N repeated weeks.
func expandWeekdayList(spec RangeSpec, ref time.Time) []time.Time {
	weeks := spec.Weeks
	if weeks <= 0 {
		weeks = DefaultListWeeks
	}
	var idx []time.Weekday
	for _, name := range spec.Weekdays {
		if wd, ok := temporal.WeekdayIndex(name); ok {
			idx = append(idx, wd)
		}
	}
	if len(idx) == 0 {
		return nil
	}

	weekStart := temporal.StartOfWeek(ref)
	var out []time.Time
	for w := 0; w < weeks; w++ {
		for _, wd := range idx {
			out = append(out, weekStart.AddDate(0, 0, w*7+int(wd)))
		}
	}
	return out
}

// expandCrossWeek enumerates from a start weekday in this/next week
// through an end weekday in this/next week, inclusive, spanning the week
// boundary.
func expandCrossWeek(spec RangeSpec, ref time.Time) []time.Time {
	s, ok := temporal.WeekdayIndex(spec.StartWeekday)
	if !ok {
		return nil
	}
	e, ok := temporal.WeekdayIndex(spec.EndWeekday)
	if !ok {
		return nil
	}

	startWeek := temporal.StartOfWeek(ref)
	if spec.StartWeek == "next" {
		startWeek = temporal.NextWeekStart(ref)
	}
	endWeek := temporal.StartOfWeek(ref)
	if spec.EndWeek == "next" {
		endWeek = temporal.NextWeekStart(ref)
	}

	start := startWeek.AddDate(0, 0, int(s))
	end := endWeek.AddDate(0, 0, int(e))
	if end.Before(start) {
		return []time.Time{start}
	}
	var out []time.Time
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		out = append(out, day)
	}
	return out
}
