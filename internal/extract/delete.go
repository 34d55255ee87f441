package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/jungfsg/Calender/internal/event"
	"github.com/jungfsg/Calender/internal/llm"
	"github.com/jungfsg/Calender/internal/temporal"
)

// Delete-request disambiguation is layered cheapest-first: substring
// lists, then mixed-construction regexes, then a model call that only
// ever has to arbitrate single vs multiple among named targets. The
// ordered decision table below is authoritative — precedence is
// mixed > bulk-only > individual, always.

// bulkPhrases are direct substrings that signal a whole-date wipe.
var bulkPhrases = []string{
	"delete all", "remove all", "clear all", "cancel all", "clear everything",
	"delete everything", "remove everything", "wipe", "all events", "all my events",
	"all of my events", "entire schedule", "whole schedule", "whole day",
	"everything on", "all plans", "all appointments",
}

// connectivePhrases join two delete sub-actions in one utterance.
var connectivePhrases = []string{" and ", " also ", " plus ", " as well", " then "}

// deleteKeywords are the operative verbs.
var deleteKeywords = []string{"delete", "remove", "cancel", "clear", "erase", "drop", "wipe"}

// mixedPatterns recognize an individual target and a bulk target joined
// by a connective, in either order.
var mixedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:delete|remove|cancel|drop)\b.+?\b(?:and|also|then|plus)\b.+?\b(?:all|everything|entire|whole|entirely|completely)\b`),
	regexp.MustCompile(`(?i)\b(?:all|everything|entire|whole)\b.+?\b(?:and|also|then|plus)\b.+?\b(?:delete|remove|cancel|drop)\b`),
}

// bulkOnlyPattern catches bulk phrasing the substring list missed.
var bulkOnlyPattern = regexp.MustCompile(
	`(?i)\b(?:all|every|everything|entire|whole)\b.*\b(?:events?|schedule|plans?|appointments?|day)\b` +
		`|\b(?:events?|schedule|plans?|appointments?)\b.*\b(?:entirely|completely)\b`)

const deleteArbitrateSystemPrompt = `You are extracting delete targets for a calendar assistant. The user wants to remove one or more NAMED events (never a whole day).

Decide whether one target or several are named, and extract each target's referent noun phrase (no verbs like "delete"), its date phrase, and time if stated.

Return ONLY a JSON object:
{"delete_type": "single", "target": {"title": "gym session", "date": "tomorrow", "time": ""}}
or
{"delete_type": "multiple", "targets": [{"title": "...", "date": "...", "time": ""}, ...]}

Dates may be relative phrases ("tomorrow", "next week monday") or YYYY-MM-DD.`

const deleteMixedSystemPrompt = `You are extracting delete sub-actions for a calendar assistant. The utterance combines INDIVIDUAL deletions (a named event) and BULK deletions (every event on a date). Split it into exactly the sub-actions implied, in utterance order.

Each sub-action usually has its OWN date — do not reuse one date across sub-actions unless the utterance really says so.

Return ONLY a JSON object:
{"actions": [
  {"kind": "individual", "title": "gym session", "date": "tomorrow", "time": ""},
  {"kind": "bulk", "target_date": "friday", "description": "all of Friday's events"}
]}`

const deleteBulkSystemPrompt = `You are extracting the target date of a bulk calendar deletion (every event on one date).

Return ONLY a JSON object:
{"target_date": "tomorrow", "description": "what the user called the date"}

The date may be a relative phrase ("tomorrow", "next week monday", "friday") or YYYY-MM-DD.`

type deleteArbitratePayload struct {
	DeleteType string               `json:"delete_type"`
	Target     event.DeleteTarget   `json:"target"`
	Targets    []event.DeleteTarget `json:"targets"`
}

type deleteMixedPayload struct {
	Actions []event.DeleteAction `json:"actions"`
}

type deleteBulkPayload struct {
	TargetDate  string `json:"target_date"`
	Description string `json:"description"`
}

// classifyDeleteHeuristic applies the ordered decision table's lexical
// rows. ok=false means the model must arbitrate single vs multiple.
func classifyDeleteHeuristic(utterance string) (event.DeleteType, bool) {
	lower := strings.ToLower(utterance)

	hasBulk := containsAny(lower, bulkPhrases) || bulkOnlyPattern.MatchString(lower)
	hasConnective := containsAny(lower, connectivePhrases)
	hasDelete := containsAny(lower, deleteKeywords)
	enhancedMixed := matchesAny(mixedPatterns, lower)

	switch {
	case enhancedMixed || (hasBulk && hasConnective && hasDelete):
		return event.DeleteMixed, true
	case hasBulk && !hasConnective:
		return event.DeleteBulk, true
	}
	return "", false
}

// ExtractDelete classifies the delete request and extracts its targets.
// Total: every failure path still lands in a concrete bucket.
func (e *Extractor) ExtractDelete(ctx context.Context, utterance string) *event.DeleteRequest {
	kind, decided := classifyDeleteHeuristic(utterance)
	if decided {
		switch kind {
		case event.DeleteMixed:
			return e.extractMixedDelete(ctx, utterance)
		case event.DeleteBulk:
			return e.extractBulkDelete(ctx, utterance)
		}
	}
	return e.arbitrateDelete(ctx, utterance)
}

func (e *Extractor) arbitrateDelete(ctx context.Context, utterance string) *event.DeleteRequest {
	fallback := deleteArbitratePayload{
		DeleteType: string(event.DeleteSingle),
		Target:     event.DeleteTarget{Title: StripTitle(utterance)},
	}

	payload := fallback
	if raw, err := e.complete(ctx, deleteArbitrateSystemPrompt, "Utterance: \""+utterance+"\"\n\nReturn the JSON only."); err == nil {
		payload = llm.ParseObject(raw, fallback)
	} else {
		e.log.Warn().Err(err).Msg("delete arbitration call failed, assuming single")
	}

	if strings.EqualFold(payload.DeleteType, string(event.DeleteMultiple)) && len(payload.Targets) > 0 {
		targets := make([]event.DeleteTarget, 0, len(payload.Targets))
		for _, t := range payload.Targets {
			targets = append(targets, e.normalizeTarget(t))
		}
		return &event.DeleteRequest{Type: event.DeleteMultiple, Targets: targets}
	}

	target := payload.Target
	if target.Title == "" {
		target.Title = StripTitle(utterance)
	}
	return &event.DeleteRequest{Type: event.DeleteSingle, Target: e.normalizeTarget(target)}
}

func (e *Extractor) extractBulkDelete(ctx context.Context, utterance string) *event.DeleteRequest {
	payload := deleteBulkPayload{}
	if raw, err := e.complete(ctx, deleteBulkSystemPrompt, "Utterance: \""+utterance+"\"\n\nReturn the JSON only."); err == nil {
		payload = llm.ParseObject(raw, payload)
	} else {
		e.log.Warn().Err(err).Msg("bulk delete extraction call failed, defaulting to today")
	}

	// A bulk delete without a date is a bulk delete of today.
	date := e.resolveDate(payload.TargetDate)
	if date == "" {
		date = e.now().Format(temporal.DateLayout)
	}
	desc := payload.Description
	if desc == "" {
		desc = payload.TargetDate
	}
	return &event.DeleteRequest{Type: event.DeleteBulk, TargetDate: date, Description: desc}
}

func (e *Extractor) extractMixedDelete(ctx context.Context, utterance string) *event.DeleteRequest {
	payload := deleteMixedPayload{}
	if raw, err := e.complete(ctx, deleteMixedSystemPrompt, "Utterance: \""+utterance+"\"\n\nReturn the JSON only."); err == nil {
		payload = llm.ParseObject(raw, payload)
	} else {
		e.log.Warn().Err(err).Msg("mixed delete extraction call failed")
	}

	if len(payload.Actions) == 0 {
		// Unsplittable mixed request degrades to a bulk wipe of today
		// rather than an error; the response layer reports what happened.
		return &event.DeleteRequest{
			Type:       event.DeleteBulk,
			TargetDate: e.now().Format(temporal.DateLayout),
		}
	}

	actions := make([]event.DeleteAction, 0, len(payload.Actions))
	for _, a := range payload.Actions {
		switch a.Kind {
		case "bulk":
			date := e.resolveDate(a.TargetDate)
			if date == "" {
				date = e.now().Format(temporal.DateLayout)
			}
			actions = append(actions, event.DeleteAction{
				Kind:        "bulk",
				TargetDate:  date,
				Description: a.Description,
			})
		default:
			actions = append(actions, event.DeleteAction{
				Kind:  "individual",
				Title: stripTargetTitle(a.Title),
				Date:  e.resolveDate(a.Date),
				Time:  a.Time,
			})
		}
	}
	return &event.DeleteRequest{Type: event.DeleteMixed, Actions: actions}
}

func (e *Extractor) normalizeTarget(t event.DeleteTarget) event.DeleteTarget {
	t.Title = stripTargetTitle(t.Title)
	t.Date = e.resolveDate(t.Date)
	return t
}

// stripTargetTitle cleans a delete target's title without inventing one:
// downstream matching is by fuzzy title containment, so an empty title
// stays empty.
func stripTargetTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return ""
	}
	return StripTitle(title)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func matchesAny(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
