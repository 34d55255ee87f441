package workflow

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jungfsg/Calender/internal/event"
	"github.com/jungfsg/Calender/internal/llm"
	"github.com/jungfsg/Calender/internal/store"
)

// refMonday is the fixed pipeline clock: Monday 2025-06-09.
var refMonday = time.Date(2025, 6, 9, 10, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return refMonday }

// scriptedProvider replays responses in call order and records prompts.
type scriptedProvider struct {
	responses []string
	err       error
	calls     int
	systems   []string
}

func (p *scriptedProvider) Complete(_ context.Context, prompt string, opts llm.CompletionOpts) (string, error) {
	p.calls++
	p.systems = append(p.systems, opts.System)
	if p.err != nil {
		return "", p.err
	}
	if len(p.responses) == 0 {
		return "", nil
	}
	resp := p.responses[0]
	p.responses = p.responses[1:]
	return resp, nil
}

func (p *scriptedProvider) Name() string { return "scripted" }

func newTestEngine(t *testing.T, p llm.Provider) (*Engine, store.CalendarStore) {
	t.Helper()
	cal, err := store.NewJSONFileStore(filepath.Join(t.TempDir(), "events.json"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { cal.Close() })
	return NewEngine(p, cal, zerolog.Nop(), fixedNow), cal
}

func seed(t *testing.T, cal store.CalendarStore, title, date, start string) *event.Stored {
	t.Helper()
	d := event.EventDraft{Title: title, StartDate: date, EndDate: date, StartTime: start}
	if start == "" {
		d.AllDay = true
	} else {
		d.EndTime = ""
	}
	st, err := cal.Create(context.Background(), d)
	if err != nil {
		t.Fatalf("seeding %q: %v", title, err)
	}
	return st
}

func TestProcessAddSingle(t *testing.T) {
	p := &scriptedProvider{responses: []string{
		`{"intent": "add", "confidence": 0.95, "reason": "schedule verb"}`,
		`{"cardinality": "SINGLE"}`,
		`{"title": "dentist appointment", "start_date": "tomorrow", "start_time": "14:00", "end_time": "15:00"}`,
	}}
	eng, cal := newTestEngine(t, p)

	st := eng.Process(context.Background(), "add a dentist appointment tomorrow at 2pm", nil)

	if st.Intent.Intent != event.IntentAdd {
		t.Fatalf("intent = %q", st.Intent.Intent)
	}
	if st.Action == nil || !st.Action.Success || len(st.Action.AffectedIDs) != 1 {
		t.Fatalf("action = %+v", st.Action)
	}
	stored, err := cal.Get(context.Background(), st.Action.AffectedIDs[0])
	if err != nil || stored == nil {
		t.Fatalf("stored event missing: %v", err)
	}
	if stored.Draft.StartDate != "2025-06-10" || stored.Draft.StartTime != "14:00" {
		t.Errorf("stored draft = %+v", stored.Draft)
	}
	if !strings.Contains(st.Response, "dentist appointment") {
		t.Errorf("response = %q", st.Response)
	}
}

func TestProcessTranscriptGainsTwoEntries(t *testing.T) {
	p := &scriptedProvider{err: context.DeadlineExceeded}
	eng, _ := newTestEngine(t, p)

	prior := event.Transcript{}.Append("user", "hi").Append("assistant", "hello")
	st := eng.Process(context.Background(), "how are you", prior)

	if len(st.Transcript) != len(prior)+2 {
		t.Fatalf("transcript grew by %d, want 2", len(st.Transcript)-len(prior))
	}
	if st.Transcript[len(prior)].Role != "user" || st.Transcript[len(prior)+1].Role != "assistant" {
		t.Errorf("trailing roles = %q, %q", st.Transcript[len(prior)].Role, st.Transcript[len(prior)+1].Role)
	}
	if len(prior) != 2 {
		t.Error("input transcript mutated")
	}
}

func TestProcessEverythingFailingStillResponds(t *testing.T) {
	// Provider down, plus no store: every stage must fall back and the
	// turn must still produce a response string.
	p := &scriptedProvider{err: context.DeadlineExceeded}
	eng := NewEngine(p, nil, zerolog.Nop(), fixedNow)

	st := eng.Process(context.Background(), "hello there", nil)

	if st.Response == "" {
		t.Fatal("empty response")
	}
	if st.Intent.Intent != event.IntentChat {
		t.Errorf("intent = %q, want chat fallback", st.Intent.Intent)
	}
	if st.Response != cannedChatReply {
		t.Errorf("response = %q, want canned chat reply", st.Response)
	}
}

func TestProcessChatSkipsExecution(t *testing.T) {
	p := &scriptedProvider{responses: []string{
		`{"intent": "chat", "confidence": 0.9, "reason": "small talk"}`,
		`Doing great! Want me to check your calendar?`,
	}}
	eng, _ := newTestEngine(t, p)

	st := eng.Process(context.Background(), "how's it going", nil)

	if st.Action != nil {
		t.Errorf("chat turn executed an action: %+v", st.Action)
	}
	if st.Response != "Doing great! Want me to check your calendar?" {
		t.Errorf("response = %q", st.Response)
	}
	if p.calls != 2 {
		t.Errorf("calls = %d, want classify + chat only", p.calls)
	}
}

func TestProcessMixedDelete(t *testing.T) {
	p := &scriptedProvider{responses: []string{
		`{"intent": "delete", "confidence": 0.92, "reason": "delete verbs"}`,
		`{"actions": [
			{"kind": "individual", "title": "gym session", "date": "tomorrow", "time": ""},
			{"kind": "bulk", "target_date": "friday", "description": "Friday's schedule"}
		]}`,
	}}
	eng, cal := newTestEngine(t, p)
	ctx := context.Background()

	gym := seed(t, cal, "gym session", "2025-06-10", "18:00")
	seed(t, cal, "lunch", "2025-06-13", "12:00")
	seed(t, cal, "review", "2025-06-13", "15:00")
	keep := seed(t, cal, "brunch", "2025-06-14", "")

	st := eng.Process(ctx, "delete tomorrow's gym session and delete Friday's schedule entirely", nil)

	if st.Extraction.Kind != event.KindDelete || st.Extraction.Delete.Type != event.DeleteMixed {
		t.Fatalf("extraction = %+v", st.Extraction)
	}
	if len(st.Extraction.Delete.Actions) != 2 {
		t.Fatalf("got %d sub-actions, want 2", len(st.Extraction.Delete.Actions))
	}
	if st.Action == nil || !st.Action.Success {
		t.Fatalf("action = %+v", st.Action)
	}

	if got, _ := cal.Get(ctx, gym.ID); got != nil {
		t.Error("gym session not deleted")
	}
	if friday, _ := cal.ListByDate(ctx, "2025-06-13"); len(friday) != 0 {
		t.Errorf("friday still has %d event(s)", len(friday))
	}
	if got, _ := cal.Get(ctx, keep.ID); got == nil {
		t.Error("saturday event wrongly deleted")
	}
}

func TestProcessSearchByDate(t *testing.T) {
	p := &scriptedProvider{responses: []string{
		`{"intent": "search", "confidence": 0.9, "reason": "question"}`,
	}}
	eng, cal := newTestEngine(t, p)

	seed(t, cal, "standup", "2025-06-10", "09:00")
	seed(t, cal, "dinner", "2025-06-11", "19:00")

	st := eng.Process(context.Background(), "what do I have tomorrow", nil)

	if st.Action == nil || !st.Action.Success {
		t.Fatalf("action = %+v", st.Action)
	}
	if len(st.Action.Events) != 1 || st.Action.Events[0].Draft.Title != "standup" {
		t.Errorf("events = %+v", st.Action.Events)
	}
	if !strings.Contains(st.Response, "standup") {
		t.Errorf("response = %q", st.Response)
	}
}

func TestProcessUpdateByFuzzyTitle(t *testing.T) {
	p := &scriptedProvider{responses: []string{
		`{"intent": "update", "confidence": 0.9, "reason": "move verb"}`,
		`{"multiple": false, "updates": [{"target": {"title": "dentist", "date": ""}, "changes": {"start_time": "16:00"}}]}`,
	}}
	eng, cal := newTestEngine(t, p)
	ctx := context.Background()

	appt := seed(t, cal, "dentist appointment", "2025-06-10", "14:00")

	st := eng.Process(ctx, "move my dentist appointment to 4pm", nil)

	if st.Action == nil || !st.Action.Success {
		t.Fatalf("action = %+v", st.Action)
	}
	got, _ := cal.Get(ctx, appt.ID)
	if got == nil || got.Draft.StartTime != "16:00" {
		t.Errorf("stored = %+v", got)
	}
	if got.Draft.EndTime != "17:00" {
		t.Errorf("end time = %q, want default duration applied", got.Draft.EndTime)
	}
}

func TestProcessDeleteMissingTargetApologizes(t *testing.T) {
	p := &scriptedProvider{responses: []string{
		`{"intent": "delete", "confidence": 0.9, "reason": "delete verb"}`,
		`{"delete_type": "single", "target": {"title": "yoga class", "date": "", "time": ""}}`,
	}}
	eng, _ := newTestEngine(t, p)

	st := eng.Process(context.Background(), "delete the yoga class", nil)

	if st.Action == nil || st.Action.Success {
		t.Fatalf("action = %+v", st.Action)
	}
	if !strings.HasPrefix(st.Response, "Sorry") {
		t.Errorf("response = %q, want an apology", st.Response)
	}
}

func TestProcessCopyBySearch(t *testing.T) {
	p := &scriptedProvider{responses: []string{
		`{"intent": "copy", "confidence": 0.9, "reason": "copy verb"}`,
	}}
	eng, cal := newTestEngine(t, p)
	ctx := context.Background()

	seed(t, cal, "team standup", "2025-06-10", "09:00")

	st := eng.Process(ctx, "copy the team standup", nil)

	if st.Action == nil || !st.Action.Success {
		t.Fatalf("action = %+v", st.Action)
	}
	matches, err := cal.Search(ctx, "team standup", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Errorf("got %d copies, want original + duplicate", len(matches))
	}
}

func TestProcessAddForcedRangeSkipsCardinalityCall(t *testing.T) {
	p := &scriptedProvider{responses: []string{
		`{"intent": "add", "confidence": 0.95, "reason": "schedule verb"}`,
		`{"title": "workshop", "range_type": "date_range", "start_date": "2025-06-10", "end_date": "2025-06-12"}`,
	}}
	eng, cal := newTestEngine(t, p)

	st := eng.Process(context.Background(), "add a workshop from 2025-06-10 to 2025-06-12", nil)

	if st.Extraction.Kind != event.KindRange {
		t.Fatalf("kind = %q, want range", st.Extraction.Kind)
	}
	if len(st.Extraction.Drafts) != 3 {
		t.Fatalf("got %d drafts, want 3", len(st.Extraction.Drafts))
	}
	if p.calls != 2 {
		t.Errorf("calls = %d, want classify + range extraction (no cardinality call)", p.calls)
	}
	days, _ := cal.ListRange(context.Background(), "2025-06-10", "2025-06-12")
	if len(days) != 3 {
		t.Errorf("stored %d range days", len(days))
	}
}

func TestDateInUtterancePrefersLongestPhrase(t *testing.T) {
	eng, _ := newTestEngine(t, nil)

	if got := eng.dateInUtterance("what about next week monday"); got != "2025-06-16" {
		t.Errorf("got %q, want next week's monday", got)
	}
	if got := eng.dateInUtterance("what about next week"); got != "2025-06-15" {
		t.Errorf("got %q, want next sunday", got)
	}
	if got := eng.dateInUtterance("nothing temporal here at all"); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}
