package workflow

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jungfsg/Calender/internal/event"
	"github.com/jungfsg/Calender/internal/temporal"
)

// execute applies the extraction result to the calendar store. Total:
// store failures become ActionResult errors, never panics or hard turn
// failures.
func (e *Engine) execute(ctx context.Context, in event.Intent, utterance string, ex event.ExtractionResult) *event.ActionResult {
	if e.store == nil {
		return &event.ActionResult{Error: "no calendar store configured"}
	}

	switch in {
	case event.IntentAdd:
		return e.executeAdd(ctx, ex)
	case event.IntentUpdate:
		return e.executeUpdate(ctx, ex)
	case event.IntentDelete:
		return e.executeDelete(ctx, ex)
	case event.IntentSearch:
		return e.executeSearch(ctx, utterance, ex)
	case event.IntentCopy:
		return e.executeCopy(ctx, ex)
	}
	return &event.ActionResult{Success: true}
}

func (e *Engine) executeAdd(ctx context.Context, ex event.ExtractionResult) *event.ActionResult {
	var ids []string
	for _, d := range ex.Drafts {
		st, err := e.store.Create(ctx, d)
		if err != nil {
			e.log.Error().Err(err).Str("title", d.Title).Msg("event create failed")
			return &event.ActionResult{AffectedIDs: ids, Error: fmt.Sprintf("creating %q: %v", d.Title, err)}
		}
		ids = append(ids, st.ID)
	}
	if len(ids) == 0 {
		return &event.ActionResult{Error: "nothing to create"}
	}
	return &event.ActionResult{
		Success:     true,
		AffectedIDs: ids,
		Message:     fmt.Sprintf("created %d event(s)", len(ids)),
	}
}

func (e *Engine) executeUpdate(ctx context.Context, ex event.ExtractionResult) *event.ActionResult {
	if ex.Update == nil || len(ex.Update.Updates) == 0 {
		return &event.ActionResult{Error: "no update target extracted"}
	}

	var ids []string
	for _, u := range ex.Update.Updates {
		target := e.findByTitle(ctx, u.Target.Title, u.Target.Date)
		if target == nil {
			return &event.ActionResult{AffectedIDs: ids, Error: fmt.Sprintf("no event matching %q", u.Target.Title)}
		}
		if u.Changes.Empty() {
			return &event.ActionResult{AffectedIDs: ids, Error: fmt.Sprintf("no changes stated for %q", target.Draft.Title)}
		}
		if _, err := e.store.Update(ctx, target.ID, u.Changes); err != nil {
			e.log.Error().Err(err).Str("id", target.ID).Msg("event update failed")
			return &event.ActionResult{AffectedIDs: ids, Error: err.Error()}
		}
		ids = append(ids, target.ID)
	}
	return &event.ActionResult{
		Success:     true,
		AffectedIDs: ids,
		Message:     fmt.Sprintf("updated %d event(s)", len(ids)),
	}
}

func (e *Engine) executeDelete(ctx context.Context, ex event.ExtractionResult) *event.ActionResult {
	req := ex.Delete
	if req == nil {
		return &event.ActionResult{Error: "no delete request extracted"}
	}

	switch req.Type {
	case event.DeleteSingle:
		return e.deleteOne(ctx, req.Target)

	case event.DeleteMultiple:
		var ids []string
		for _, t := range req.Targets {
			r := e.deleteOne(ctx, t)
			if !r.Success {
				r.AffectedIDs = append(ids, r.AffectedIDs...)
				return r
			}
			ids = append(ids, r.AffectedIDs...)
		}
		return &event.ActionResult{
			Success:     true,
			AffectedIDs: ids,
			Message:     fmt.Sprintf("deleted %d event(s)", len(ids)),
		}

	case event.DeleteBulk:
		n, err := e.store.DeleteByDate(ctx, req.TargetDate)
		if err != nil {
			e.log.Error().Err(err).Str("date", req.TargetDate).Msg("bulk delete failed")
			return &event.ActionResult{Error: err.Error()}
		}
		return &event.ActionResult{
			Success: true,
			Message: fmt.Sprintf("deleted all %d event(s) on %s", n, req.TargetDate),
		}

	case event.DeleteMixed:
		// Sub-actions run in utterance order; a failure reports partial
		// progress.
		var (
			ids   []string
			parts []string
		)
		for _, a := range req.Actions {
			switch a.Kind {
			case "bulk":
				n, err := e.store.DeleteByDate(ctx, a.TargetDate)
				if err != nil {
					return &event.ActionResult{AffectedIDs: ids, Error: err.Error()}
				}
				parts = append(parts, fmt.Sprintf("all %d event(s) on %s", n, a.TargetDate))
			default:
				r := e.deleteOne(ctx, event.DeleteTarget{Title: a.Title, Date: a.Date, Time: a.Time})
				if !r.Success {
					r.AffectedIDs = append(ids, r.AffectedIDs...)
					return r
				}
				ids = append(ids, r.AffectedIDs...)
				parts = append(parts, fmt.Sprintf("%q", a.Title))
			}
		}
		return &event.ActionResult{
			Success:     true,
			AffectedIDs: ids,
			Message:     "deleted " + strings.Join(parts, ", "),
		}
	}
	return &event.ActionResult{Error: fmt.Sprintf("unknown delete type %q", req.Type)}
}

func (e *Engine) deleteOne(ctx context.Context, t event.DeleteTarget) *event.ActionResult {
	target := e.findByTitle(ctx, t.Title, t.Date)
	if target == nil {
		return &event.ActionResult{Error: fmt.Sprintf("no event matching %q", t.Title)}
	}
	if err := e.store.Delete(ctx, target.ID); err != nil {
		e.log.Error().Err(err).Str("id", target.ID).Msg("event delete failed")
		return &event.ActionResult{Error: err.Error()}
	}
	return &event.ActionResult{
		Success:     true,
		AffectedIDs: []string{target.ID},
		Message:     fmt.Sprintf("deleted %q", target.Draft.Title),
	}
}

func (e *Engine) executeSearch(ctx context.Context, utterance string, ex event.ExtractionResult) *event.ActionResult {
	// A recognizable date phrase in the utterance narrows the search to
	// that day; otherwise it is a free-text title search.
	if date := e.dateInUtterance(utterance); date != "" {
		events, err := e.store.ListByDate(ctx, date)
		if err != nil {
			return &event.ActionResult{Error: err.Error()}
		}
		return searchResult(events, date)
	}

	query := ""
	if len(ex.Drafts) > 0 {
		query = ex.Drafts[0].Title
	}
	events, err := e.store.Search(ctx, query, 20)
	if err != nil {
		return &event.ActionResult{Error: err.Error()}
	}
	return searchResult(events, query)
}

// executeCopy duplicates the best title match: the copy intent reuses
// search plus create rather than a dedicated store verb.
func (e *Engine) executeCopy(ctx context.Context, ex event.ExtractionResult) *event.ActionResult {
	if len(ex.Drafts) == 0 || ex.Drafts[0].Title == "" {
		return &event.ActionResult{Error: "no event named to copy"}
	}
	src := e.findByTitle(ctx, ex.Drafts[0].Title, "")
	if src == nil {
		return &event.ActionResult{Error: fmt.Sprintf("no event matching %q", ex.Drafts[0].Title)}
	}
	st, err := e.store.Create(ctx, src.Draft)
	if err != nil {
		return &event.ActionResult{Error: err.Error()}
	}
	return &event.ActionResult{
		Success:     true,
		AffectedIDs: []string{st.ID},
		Message:     fmt.Sprintf("copied %q", src.Draft.Title),
	}
}

// findByTitle locates the stored event best matching a loose target:
// fuzzy title containment (either direction, case-insensitive), narrowed
// to a date when one is known. Ties go to the earliest-starting match.
func (e *Engine) findByTitle(ctx context.Context, title, date string) *event.Stored {
	title = strings.ToLower(strings.TrimSpace(title))
	if title == "" && date == "" {
		return nil
	}

	var candidates []*event.Stored
	var err error
	if date != "" {
		candidates, err = e.store.ListByDate(ctx, date)
	} else {
		candidates, err = e.store.Search(ctx, title, 50)
	}
	if err != nil {
		e.log.Error().Err(err).Msg("target lookup failed")
		return nil
	}

	var matches []*event.Stored
	for _, st := range candidates {
		stored := strings.ToLower(st.Draft.Title)
		if title == "" || strings.Contains(stored, title) || strings.Contains(title, stored) {
			matches = append(matches, st)
		}
	}
	if len(matches) == 0 {
		return nil
	}
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i].Draft, matches[j].Draft
		if a.StartDate != b.StartDate {
			return a.StartDate < b.StartDate
		}
		return a.StartTime < b.StartTime
	})
	return matches[0]
}

// dateInUtterance scans for the longest known relative-date phrase and
// resolves it. Longest-first so "next week monday" wins over "next week".
func (e *Engine) dateInUtterance(utterance string) string {
	lower := strings.ToLower(utterance)
	rules := temporal.Rules(e.now())

	phrases := make([]string, 0, len(rules))
	for p := range rules {
		phrases = append(phrases, p)
	}
	sort.Slice(phrases, func(i, j int) bool { return len(phrases[i]) > len(phrases[j]) })

	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return rules[p]
		}
	}
	return ""
}

func searchResult(events []*event.Stored, what string) *event.ActionResult {
	out := make([]event.Stored, 0, len(events))
	for _, st := range events {
		out = append(out, *st)
	}
	return &event.ActionResult{
		Success: true,
		Events:  out,
		Message: fmt.Sprintf("found %d event(s) for %q", len(out), what),
	}
}
