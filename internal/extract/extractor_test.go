package extract

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jungfsg/Calender/internal/llm"
)

// refMonday is the fixed reference clock for extraction tests:
// Monday 2025-06-09.
var refMonday = time.Date(2025, 6, 9, 10, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return refMonday }

func nopLog() zerolog.Logger { return zerolog.Nop() }

// mockProvider replays scripted responses in order and records the
// prompts it saw.
type mockProvider struct {
	responses []string
	err       error
	calls     int
	prompts   []string
	systems   []string
}

func (m *mockProvider) Complete(_ context.Context, prompt string, opts llm.CompletionOpts) (string, error) {
	m.calls++
	m.prompts = append(m.prompts, prompt)
	m.systems = append(m.systems, opts.System)
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", nil
	}
	resp := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return resp, nil
}

func (m *mockProvider) Name() string { return "mock" }

func newTestExtractor(p llm.Provider) *Extractor {
	return NewExtractor(p, nopLog(), fixedNow)
}

func TestExtractSingleResolvesRelativeDate(t *testing.T) {
	p := &mockProvider{responses: []string{
		`{"title": "dentist appointment", "start_date": "tomorrow", "start_time": "14:00", "end_time": "16:00"}`,
	}}
	d := newTestExtractor(p).ExtractSingle(context.Background(), "dentist appointment tomorrow from 2pm to 4pm")

	if d.Title != "dentist appointment" {
		t.Errorf("title = %q", d.Title)
	}
	if d.StartDate != "2025-06-10" {
		t.Errorf("start date = %q, want 2025-06-10", d.StartDate)
	}
	if d.StartTime != "14:00" || d.EndTime != "16:00" {
		t.Errorf("times = %q-%q, want 14:00-16:00", d.StartTime, d.EndTime)
	}
	if d.AllDay {
		t.Error("timed event marked all-day")
	}
}

func TestExtractSingleNoTimeIsAllDay(t *testing.T) {
	p := &mockProvider{responses: []string{
		`{"title": "team offsite", "start_date": "2025-06-12"}`,
	}}
	d := newTestExtractor(p).ExtractSingle(context.Background(), "team offsite on thursday")

	if !d.AllDay {
		t.Error("event without times must be all-day")
	}
	if d.StartTime != "" || d.EndTime != "" {
		t.Errorf("all-day event has times %q-%q", d.StartTime, d.EndTime)
	}
	if d.EndDate != "2025-06-12" {
		t.Errorf("end date = %q, want start date", d.EndDate)
	}
}

func TestExtractSingleDurationPhrase(t *testing.T) {
	p := &mockProvider{responses: []string{
		`{"title": "study session", "start_date": "2025-06-10", "start_time": "14:00"}`,
	}}
	d := newTestExtractor(p).ExtractSingle(context.Background(), "study session tomorrow at 2pm for 3 hours")

	if d.EndTime != "17:00" {
		t.Errorf("end time = %q, want 17:00 from duration phrase", d.EndTime)
	}
}

func TestExtractSingleDefaultDuration(t *testing.T) {
	p := &mockProvider{responses: []string{
		`{"title": "standup", "start_date": "2025-06-10", "start_time": "09:30"}`,
	}}
	d := newTestExtractor(p).ExtractSingle(context.Background(), "standup tomorrow at 9:30")

	if d.EndTime != "10:30" {
		t.Errorf("end time = %q, want 10:30 (start + 1h)", d.EndTime)
	}
}

func TestExtractSingleProviderErrorFallsBack(t *testing.T) {
	p := &mockProvider{err: context.DeadlineExceeded}
	d := newTestExtractor(p).ExtractSingle(context.Background(), "add a meeting with the design team")

	if d.Title == "" {
		t.Error("fallback draft must carry a title")
	}
	if d.StartDate != "2025-06-10" {
		t.Errorf("fallback start date = %q, want tomorrow", d.StartDate)
	}
	if !d.AllDay {
		t.Error("fallback draft must be all-day")
	}
}

func TestExtractSingleGarbageResponseFallsBack(t *testing.T) {
	p := &mockProvider{responses: []string{"I could not understand that"}}
	d := newTestExtractor(p).ExtractSingle(context.Background(), "add gym")

	if d.StartDate != "2025-06-10" {
		t.Errorf("start date = %q, want tomorrow fallback", d.StartDate)
	}
}

func TestExtractMultiple(t *testing.T) {
	p := &mockProvider{responses: []string{
		`{"events": [
			{"title": "lunch with Sam", "start_date": "tomorrow", "start_time": "12:00"},
			{"title": "gym", "start_date": "friday"}
		]}`,
	}}
	drafts := newTestExtractor(p).ExtractMultiple(context.Background(), "lunch with Sam tomorrow at noon and gym on friday")

	if len(drafts) != 2 {
		t.Fatalf("got %d drafts, want 2", len(drafts))
	}
	if drafts[0].StartDate != "2025-06-10" || drafts[0].EndTime != "13:00" {
		t.Errorf("first draft = %+v", drafts[0])
	}
	if drafts[1].StartDate != "2025-06-13" || !drafts[1].AllDay {
		t.Errorf("second draft = %+v", drafts[1])
	}
}

func TestExtractMultipleEmptyPayloadFallsBack(t *testing.T) {
	p := &mockProvider{responses: []string{`{"events": []}`}}
	drafts := newTestExtractor(p).ExtractMultiple(context.Background(), "add some stuff")

	if len(drafts) != 1 {
		t.Fatalf("got %d drafts, want 1 fallback", len(drafts))
	}
}

func TestExtractRangeDateRange(t *testing.T) {
	p := &mockProvider{responses: []string{
		`{"title": "conference", "range_type": "date_range", "start_date": "2025-06-10", "end_date": "2025-06-12", "start_time": "09:00", "end_time": "17:00"}`,
	}}
	drafts := newTestExtractor(p).ExtractRange(context.Background(), "conference from the 10th to the 12th, 9 to 5")

	if len(drafts) != 3 {
		t.Fatalf("got %d drafts, want 3", len(drafts))
	}
	for i, d := range drafts {
		if !d.IsRange {
			t.Errorf("draft %d not marked as range member", i)
		}
		if d.StartTime != "09:00" || d.EndTime != "17:00" {
			t.Errorf("draft %d times = %q-%q", i, d.StartTime, d.EndTime)
		}
	}
	if drafts[0].StartDate != "2025-06-10" || drafts[2].StartDate != "2025-06-12" {
		t.Errorf("dates = %q..%q", drafts[0].StartDate, drafts[2].StartDate)
	}
}

func TestExtractRangeUnusableSpecFallsBack(t *testing.T) {
	p := &mockProvider{responses: []string{`{"range_type": "date_range"}`}}
	drafts := newTestExtractor(p).ExtractRange(context.Background(), "block out some days")

	if len(drafts) != 1 {
		t.Fatalf("got %d drafts, want single fallback", len(drafts))
	}
}

func TestExtractUpdateSingle(t *testing.T) {
	p := &mockProvider{responses: []string{
		`{"multiple": false, "updates": [{"target": {"title": "dentist", "date": "tomorrow"}, "changes": {"start_time": "16:00"}}]}`,
	}}
	req := newTestExtractor(p).ExtractUpdate(context.Background(), "move my dentist appointment tomorrow to 4pm")

	if req.Multiple {
		t.Error("single update flagged multiple")
	}
	if len(req.Updates) != 1 {
		t.Fatalf("got %d updates", len(req.Updates))
	}
	u := req.Updates[0]
	if u.Target.Date != "2025-06-10" {
		t.Errorf("target date = %q, want resolved tomorrow", u.Target.Date)
	}
	if u.Changes.StartTime != "16:00" {
		t.Errorf("start time change = %q", u.Changes.StartTime)
	}
	if u.Changes.EndTime != "" {
		t.Errorf("end time change = %q, want unset without a stated range", u.Changes.EndTime)
	}
}

func TestExtractUpdateConnectiveFreeTrimsToOne(t *testing.T) {
	p := &mockProvider{responses: []string{
		`{"multiple": true, "updates": [
			{"target": {"title": "dentist"}, "changes": {"start_time": "16:00"}},
			{"target": {"title": "gym"}, "changes": {"start_time": "18:00"}}
		]}`,
	}}
	req := newTestExtractor(p).ExtractUpdate(context.Background(), "move my dentist appointment to 4pm")

	if len(req.Updates) != 1 || req.Multiple {
		t.Errorf("connective-free utterance kept %d updates (multiple=%v)", len(req.Updates), req.Multiple)
	}
}

func TestExtractUpdateProviderErrorFallsBack(t *testing.T) {
	p := &mockProvider{err: context.DeadlineExceeded}
	req := newTestExtractor(p).ExtractUpdate(context.Background(), "change the gym session")

	if len(req.Updates) != 1 {
		t.Fatalf("got %d updates", len(req.Updates))
	}
	if req.Updates[0].Target.Title == "" {
		t.Error("fallback target must carry a title")
	}
	if !req.Updates[0].Changes.Empty() {
		t.Error("fallback changes must be empty")
	}
}

func TestResolveDate(t *testing.T) {
	e := newTestExtractor(nil)
	cases := []struct {
		in, want string
	}{
		{"2025-07-01", "2025-07-01"},
		{"tomorrow", "2025-06-10"},
		{"Next Week", "2025-06-15"},
		{"friday", "2025-06-13"},
		{"someday", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := e.resolveDate(c.in); got != c.want {
			t.Errorf("resolveDate(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNilProviderNeverPanics(t *testing.T) {
	e := newTestExtractor(nil)
	ctx := context.Background()

	if d := e.ExtractSingle(ctx, "add gym"); d.Title == "" {
		t.Error("nil provider single draft has no title")
	}
	if ds := e.ExtractMultiple(ctx, "add gym and lunch"); len(ds) == 0 {
		t.Error("nil provider multiple returned nothing")
	}
	if ds := e.ExtractRange(ctx, "gym all week"); len(ds) == 0 {
		t.Error("nil provider range returned nothing")
	}
	if r := e.ExtractUpdate(ctx, "move gym"); len(r.Updates) == 0 {
		t.Error("nil provider update returned nothing")
	}
	if r := e.ExtractDelete(ctx, "delete gym"); r == nil {
		t.Error("nil provider delete returned nil")
	}
}
