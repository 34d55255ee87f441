package extract

import (
	"testing"

	"github.com/jungfsg/Calender/internal/event"
)

func TestValidateDraftUnparsableStartDate(t *testing.T) {
	d := ValidateDraft(event.EventDraft{Title: "x", StartDate: "someday"}, refMonday)
	if d.StartDate != "2025-06-10" {
		t.Errorf("start date = %q, want reference+1", d.StartDate)
	}
	if !d.AllDay {
		t.Error("repaired draft without times must be all-day")
	}
}

func TestValidateDraftPastDateAdvancesOneYear(t *testing.T) {
	// "mom's birthday, March 3rd" extracted against a June reference.
	d := ValidateDraft(event.EventDraft{Title: "birthday", StartDate: "2025-03-03"}, refMonday)
	if d.StartDate != "2026-03-03" {
		t.Errorf("start date = %q, want 2026-03-03", d.StartDate)
	}
}

func TestValidateDraftMalformedStartTime(t *testing.T) {
	d := ValidateDraft(event.EventDraft{Title: "x", StartDate: "2025-06-10", StartTime: "2 PM", EndTime: "16:00"}, refMonday)
	if d.StartTime != "" || d.EndTime != "" {
		t.Errorf("times = %q-%q, want both discarded", d.StartTime, d.EndTime)
	}
	if !d.AllDay {
		t.Error("draft with discarded times must be all-day")
	}
}

func TestValidateDraftAllDayWhenNoTime(t *testing.T) {
	d := ValidateDraft(event.EventDraft{Title: "x", StartDate: "2025-06-10", EndTime: "16:00"}, refMonday)
	if !d.AllDay {
		t.Error("no start time must force all-day")
	}
	if d.EndTime != "" {
		t.Errorf("end time = %q, want nulled", d.EndTime)
	}
}

func TestValidateDraftDefaultDuration(t *testing.T) {
	d := ValidateDraft(event.EventDraft{Title: "x", StartDate: "2025-06-10", StartTime: "14:00"}, refMonday)
	if d.EndTime != "15:00" {
		t.Errorf("end time = %q, want start+1h", d.EndTime)
	}
	if d.AllDay {
		t.Error("timed draft marked all-day")
	}
}

func TestValidateDraftEndBeforeStartRepaired(t *testing.T) {
	d := ValidateDraft(event.EventDraft{Title: "x", StartDate: "2025-06-10", StartTime: "14:00", EndTime: "13:00"}, refMonday)
	if d.EndTime != "15:00" {
		t.Errorf("end time = %q, want repaired to start+1h", d.EndTime)
	}
}

func TestValidateDraftEndEqualToStartRepaired(t *testing.T) {
	d := ValidateDraft(event.EventDraft{Title: "x", StartDate: "2025-06-10", StartTime: "14:00", EndTime: "14:00"}, refMonday)
	if d.EndTime != "15:00" {
		t.Errorf("end time = %q, want repaired to start+1h", d.EndTime)
	}
}

func TestValidateDraftEndDateDefaults(t *testing.T) {
	d := ValidateDraft(event.EventDraft{Title: "x", StartDate: "2025-06-10"}, refMonday)
	if d.EndDate != "2025-06-10" {
		t.Errorf("end date = %q, want start date", d.EndDate)
	}
}

func TestValidateDraftEndDateBeforeStartCollapses(t *testing.T) {
	d := ValidateDraft(event.EventDraft{Title: "x", StartDate: "2025-06-12", EndDate: "2025-06-10"}, refMonday)
	if d.EndDate != "2025-06-12" {
		t.Errorf("end date = %q, want collapsed to start date", d.EndDate)
	}
}

func TestValidateDraftValidSpanUntouched(t *testing.T) {
	in := event.EventDraft{Title: "x", StartDate: "2025-06-10", EndDate: "2025-06-12", StartTime: "14:00", EndTime: "16:00"}
	d := ValidateDraft(in, refMonday)
	if d.StartDate != in.StartDate || d.EndDate != in.EndDate || d.StartTime != in.StartTime || d.EndTime != in.EndTime {
		t.Errorf("valid draft mutated: %+v", d)
	}
	if d.AllDay {
		t.Error("timed draft marked all-day")
	}
}
