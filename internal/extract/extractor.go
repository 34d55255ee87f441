// Package extract turns an utterance with a known intent and cardinality
// into structured calendar operations.
//
// The completion service handles only genuinely ambiguous natural-language
// interpretation; every independently checkable rule (date math,
// time-range defaulting, end-before-start repair) lives in code here so
// correctness never rides on prompt wording.
package extract

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jungfsg/Calender/internal/event"
	"github.com/jungfsg/Calender/internal/llm"
	"github.com/jungfsg/Calender/internal/temporal"
)

// extractTimeout bounds a single extraction call.
const extractTimeout = 20 * time.Second

const singleSystemPrompt = `You are extracting one calendar event from a user utterance.

FIELDS:
- title: short noun phrase, no action verbs
- start_date / end_date: YYYY-MM-DD or a relative phrase as spoken ("tomorrow", "next week monday")
- start_time / end_time: HH:MM 24-hour, ONLY when the user stated a time
- location, description, attendees (emails)

TIME RULES (critical):
- No time phrase at all => start_time and end_time MUST be null and all_day true. Never invent a default clock time.
- A span ("6 to 8pm", "from 14:00 to 16:00") => both start_time and end_time.
- A duration ("at 2pm for 3 hours") => start_time plus end_time computed from the duration.
- A bare start time ("at 2pm") => start_time only, end_time null.

Return ONLY a JSON object:
{"title": "...", "start_date": "...", "end_date": "...", "start_time": null, "end_time": null, "location": "", "description": "", "attendees": [], "all_day": true}`

const multipleSystemPrompt = `You are extracting SEVERAL distinct calendar events from one utterance. The events are joined by connectives ("and", "also", "then") and are unrelated to each other.

Apply the same field and time rules per event as for a single event: no stated time means null times and all_day true.

Return ONLY a JSON object:
{"events": [
  {"title": "...", "start_date": "...", "end_date": "...", "start_time": null, "end_time": null, "location": "", "description": "", "attendees": [], "all_day": true}
]}`

const rangeSystemPrompt = `You are extracting one RANGE specification from an utterance that covers many dates.

range_type is one of:
- "date_range": explicit start and end dates ("from 6/10 to 6/14") => fill start_date, end_date
- "weekday_range": a contiguous weekday span in one week ("Monday to Friday") => fill start_weekday, end_weekday, week ("this" or "next")
- "single_week_range": same as weekday_range when the utterance names the week explicitly
- "weekday_list": named weekdays repeating weekly ("every Monday, Wednesday and Friday") => fill weekdays, weeks (0 if unstated)
- "cross_week_range": start weekday and end weekday in different weeks ("from this Friday to next Tuesday") => fill start_weekday, start_week, end_weekday, end_week

Also extract title, start_time/end_time (HH:MM, only when stated), location.

Return ONLY a JSON object:
{"title": "...", "range_type": "date_range", "start_date": "...", "end_date": "...", "start_weekday": "", "end_weekday": "", "week": "", "start_week": "", "end_week": "", "weekdays": [], "weeks": 0, "start_time": null, "end_time": null, "location": ""}`

const updateSystemPrompt = `You are extracting calendar UPDATE requests from an utterance.

target identifies the existing event loosely: its title and (if stated) its current date.
changes contains ONLY the fields the user explicitly changed. Omit everything else.
- Set end_time ONLY when the user stated a range ("2pm to 4pm"). A new start time alone leaves end_time out — the caller applies the default duration.
- Dates may be relative phrases as spoken.

Return ONLY a JSON object, one of:
{"multiple": false, "updates": [{"target": {"title": "...", "date": "..."}, "changes": {"start_time": "16:00"}}]}
{"multiple": true, "updates": [{"target": {...}, "changes": {...}}, {"target": {...}, "changes": {...}}]}`

// durationHourRE and durationMinuteRE recover span information that the
// model returned as a bare start time ("at 2pm for 3 hours").
var (
	durationHourRE   = regexp.MustCompile(`(?i)\bfor\s+(\d+(?:\.\d+)?)\s+hours?\b`)
	durationMinuteRE = regexp.MustCompile(`(?i)\bfor\s+(\d+)\s+minutes?\b`)
)

// Extractor runs per-intent entity extraction against the completion
// service. The reference clock is injected so extraction is deterministic
// under test.
type Extractor struct {
	provider llm.Provider
	log      zerolog.Logger
	now      func() time.Time
}

// NewExtractor builds an Extractor. now may be nil, in which case the
// wall clock is used.
func NewExtractor(provider llm.Provider, log zerolog.Logger, now func() time.Time) *Extractor {
	if now == nil {
		now = time.Now
	}
	return &Extractor{provider: provider, log: log, now: now}
}

func (e *Extractor) complete(ctx context.Context, system, prompt string) (string, error) {
	if e.provider == nil {
		return "", fmt.Errorf("no completion provider configured")
	}
	cctx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()
	return e.provider.Complete(cctx, prompt, llm.CompletionOpts{
		Temperature: 0.1,
		MaxTokens:   1024,
		Format:      "json",
		System:      system,
	})
}

// userPrompt prefixes every extraction call with the current date context and
// the relative-date rule table.
func (e *Extractor) userPrompt(utterance string) string {
	now := e.now()
	return fmt.Sprintf("Current date: %s (%s)\n\nDate rules:\n%s\nUtterance: %q\n\nReturn the JSON only.",
		now.Format(temporal.DateLayout), now.Weekday(), temporal.RulesPrompt(now), utterance)
}

// resolveDate turns a date field from the model into YYYY-MM-DD: ISO
// dates pass through, relative phrases go through the rule table, and
// anything else resolves to empty.
func (e *Extractor) resolveDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if _, err := temporal.ParseDate(s, e.now()); err == nil {
		return s
	}
	if v, ok := temporal.Rules(e.now())[strings.ToLower(s)]; ok {
		return v
	}
	return ""
}

// defaultDraft is the safe fallback when extraction cannot parse anything:
// an all-day event tomorrow titled from the stripped utterance.
func (e *Extractor) defaultDraft(utterance string) event.EventDraft {
	return event.EventDraft{
		Title:     StripTitle(utterance),
		StartDate: e.now().AddDate(0, 0, 1).Format(temporal.DateLayout),
		AllDay:    true,
	}
}

// ExtractSingle extracts exactly one draft for an add/single turn.
func (e *Extractor) ExtractSingle(ctx context.Context, utterance string) event.EventDraft {
	fallback := e.defaultDraft(utterance)

	draft := fallback
	if raw, err := e.complete(ctx, singleSystemPrompt, e.userPrompt(utterance)); err == nil {
		draft = llm.ParseObject(raw, fallback)
	} else {
		e.log.Warn().Err(err).Msg("single extraction call failed, using default draft")
	}

	return e.finishDraft(draft, utterance)
}

type multiplePayload struct {
	Events []event.EventDraft `json:"events"`
}

// ExtractMultiple extracts an ordered list of distinct drafts.
func (e *Extractor) ExtractMultiple(ctx context.Context, utterance string) []event.EventDraft {
	payload := multiplePayload{}
	if raw, err := e.complete(ctx, multipleSystemPrompt, e.userPrompt(utterance)); err == nil {
		payload = llm.ParseObject(raw, payload)
	} else {
		e.log.Warn().Err(err).Msg("multiple extraction call failed")
	}

	if len(payload.Events) == 0 {
		return []event.EventDraft{e.finishDraft(e.defaultDraft(utterance), utterance)}
	}

	drafts := make([]event.EventDraft, 0, len(payload.Events))
	for _, d := range payload.Events {
		drafts = append(drafts, e.finishDraft(d, utterance))
	}
	return drafts
}

// ExtractRange extracts a range specification and expands it into
// per-day drafts.
func (e *Extractor) ExtractRange(ctx context.Context, utterance string) []event.EventDraft {
	spec := RangeSpec{}
	if raw, err := e.complete(ctx, rangeSystemPrompt, e.userPrompt(utterance)); err == nil {
		spec = llm.ParseObject(raw, spec)
	} else {
		e.log.Warn().Err(err).Msg("range extraction call failed")
	}

	if spec.Title == "" {
		spec.Title = StripTitle(utterance)
	}
	spec.StartDate = e.resolveSpecDate(spec.StartDate)
	spec.EndDate = e.resolveSpecDate(spec.EndDate)

	drafts := ExpandRange(spec, e.now())
	if len(drafts) == 0 {
		return []event.EventDraft{e.finishDraft(e.defaultDraft(utterance), utterance)}
	}
	return drafts
}

// resolveSpecDate is resolveDate that leaves unknown values in place so
// date parsing inside the expander can reject them itself.
func (e *Extractor) resolveSpecDate(s string) string {
	if resolved := e.resolveDate(s); resolved != "" {
		return resolved
	}
	return s
}

// ExtractUpdate extracts one or more target/changes pairs. The cheap
// cardinality check is lexical: without a connective there is nothing to
// split, so no extra model call is made.
func (e *Extractor) ExtractUpdate(ctx context.Context, utterance string) *event.UpdateRequest {
	fallback := event.UpdateRequest{
		Updates: []event.UpdateItem{{Target: event.UpdateTarget{Title: StripTitle(utterance)}}},
	}

	payload := fallback
	if raw, err := e.complete(ctx, updateSystemPrompt, e.userPrompt(utterance)); err == nil {
		payload = llm.ParseObject(raw, fallback)
	} else {
		e.log.Warn().Err(err).Msg("update extraction call failed")
	}

	if len(payload.Updates) == 0 {
		payload = fallback
	}
	if !hasConnective(utterance) && len(payload.Updates) > 1 {
		// Restricted update cardinality: one connective-free utterance
		// describes one update.
		payload.Updates = payload.Updates[:1]
	}
	payload.Multiple = len(payload.Updates) > 1

	for i := range payload.Updates {
		u := &payload.Updates[i]
		u.Target.Date = e.resolveDate(u.Target.Date)
		if u.Changes.StartDate != "" {
			u.Changes.StartDate = e.resolveDate(u.Changes.StartDate)
		}
		if u.Changes.EndDate != "" {
			u.Changes.EndDate = e.resolveDate(u.Changes.EndDate)
		}
	}
	return &payload
}

func hasConnective(utterance string) bool {
	return containsAny(strings.ToLower(utterance), connectivePhrases)
}

// finishDraft applies the code-level repairs that must not depend on
// prompt wording: relative date resolution, duration spans, all-day
// enforcement, title fallback, then full validation.
func (e *Extractor) finishDraft(d event.EventDraft, utterance string) event.EventDraft {
	if d.Title == "" {
		d.Title = StripTitle(utterance)
	}
	if resolved := e.resolveDate(d.StartDate); resolved != "" {
		d.StartDate = resolved
	}
	if resolved := e.resolveDate(d.EndDate); resolved != "" {
		d.EndDate = resolved
	}

	d = applyDurationPhrase(d, utterance)

	// A draft with no stated time is all-day; a model that invented a
	// clock time anyway is overridden only when the utterance really has
	// no time phrase.
	if d.StartTime == "" {
		d.AllDay = true
		d.EndTime = ""
	}

	return ValidateDraft(d, e.now())
}

// applyDurationPhrase computes end = start + duration for "for N hours"
// phrasing when the model returned only a start time.
func applyDurationPhrase(d event.EventDraft, utterance string) event.EventDraft {
	if d.StartTime == "" || d.EndTime != "" {
		return d
	}
	start, err := temporal.ParseClock(d.StartTime)
	if err != nil {
		return d
	}
	if m := durationHourRE.FindStringSubmatch(utterance); m != nil {
		if hours, err := strconv.ParseFloat(m[1], 64); err == nil {
			d.EndTime = start.Add(time.Duration(hours * float64(time.Hour))).Format(temporal.TimeLayout)
		}
	} else if m := durationMinuteRE.FindStringSubmatch(utterance); m != nil {
		if minutes, err := strconv.Atoi(m[1]); err == nil {
			d.EndTime = start.Add(time.Duration(minutes) * time.Minute).Format(temporal.TimeLayout)
		}
	}
	return d
}
