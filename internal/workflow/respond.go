package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jungfsg/Calender/internal/event"
	"github.com/jungfsg/Calender/internal/llm"
)

const chatTimeout = 20 * time.Second

const chatSystemPrompt = `You are a friendly calendar assistant. The user is chatting rather than managing events. Answer briefly and naturally. If the conversation drifts toward scheduling, gently mention you can add, change, search, or delete calendar events.`

// cannedChatReply covers completion-service failure on the plain-chat
// path.
const cannedChatReply = "I'm having trouble responding right now, but I'm still here. You can also ask me to add, change, search, or delete calendar events."

// apology converts an action failure into a user-facing reply. The raw
// error stays in the ActionResult for the API layer; the user gets the
// readable part only.
func apology(in event.Intent, errMsg string) string {
	verb := map[event.Intent]string{
		event.IntentAdd:    "add that event",
		event.IntentUpdate: "update that event",
		event.IntentDelete: "delete that",
		event.IntentSearch: "search your calendar",
		event.IntentCopy:   "copy that event",
	}[in]
	if verb == "" {
		verb = "do that"
	}
	if strings.HasPrefix(errMsg, "no event matching") {
		return fmt.Sprintf("Sorry, I couldn't %s — I didn't find a matching event in your calendar.", verb)
	}
	return fmt.Sprintf("Sorry, I couldn't %s. Please try rephrasing or try again in a moment.", verb)
}

// respond renders the calendar-intent reply from the action outcome.
func (e *Engine) respond(in event.Intent, ex event.ExtractionResult, action *event.ActionResult) string {
	if action == nil || (!action.Success && action.Error != "") {
		msg := ""
		if action != nil {
			msg = action.Error
		}
		return apology(in, msg)
	}

	switch in {
	case event.IntentAdd:
		return addReply(ex.Drafts)
	case event.IntentUpdate:
		return fmt.Sprintf("Done — %s.", action.Message)
	case event.IntentDelete:
		return fmt.Sprintf("Done — %s.", action.Message)
	case event.IntentSearch:
		return searchReply(action.Events)
	case event.IntentCopy:
		return fmt.Sprintf("Done — %s.", action.Message)
	}
	return "Done."
}

func addReply(drafts []event.EventDraft) string {
	switch len(drafts) {
	case 0:
		return "Done."
	case 1:
		d := drafts[0]
		when := d.StartDate
		if d.StartTime != "" {
			when += " at " + d.StartTime
		}
		return fmt.Sprintf("Added %q on %s.", d.Title, when)
	default:
		first, last := drafts[0], drafts[len(drafts)-1]
		if first.IsRange {
			return fmt.Sprintf("Added %q on %d days from %s to %s.",
				first.Title, len(drafts), first.StartDate, last.StartDate)
		}
		titles := make([]string, 0, len(drafts))
		for _, d := range drafts {
			titles = append(titles, fmt.Sprintf("%q", d.Title))
		}
		return fmt.Sprintf("Added %d events: %s.", len(drafts), strings.Join(titles, ", "))
	}
}

func searchReply(events []event.Stored) string {
	if len(events) == 0 {
		return "I didn't find any matching events."
	}
	lines := make([]string, 0, len(events))
	for _, st := range events {
		d := st.Draft
		line := fmt.Sprintf("%s — %s", d.StartDate, d.Title)
		if d.StartTime != "" {
			line = fmt.Sprintf("%s %s — %s", d.StartDate, d.StartTime, d.Title)
		}
		lines = append(lines, line)
	}
	return fmt.Sprintf("Found %d event(s):\n%s", len(events), strings.Join(lines, "\n"))
}

// chatResponse answers a plain-chat turn through the completion service
// with the transcript as chat history.
func (e *Engine) chatResponse(ctx context.Context, utterance string, transcript event.Transcript) string {
	if e.provider == nil {
		return cannedChatReply
	}

	history := make([]llm.Turn, 0, len(transcript))
	for _, m := range transcript {
		history = append(history, llm.Turn{Role: m.Role, Content: m.Text})
	}

	cctx, cancel := context.WithTimeout(ctx, chatTimeout)
	defer cancel()
	reply, err := e.provider.Complete(cctx, utterance, llm.CompletionOpts{
		Temperature: 0.7,
		MaxTokens:   512,
		System:      chatSystemPrompt,
		History:     history,
	})
	if err != nil || strings.TrimSpace(reply) == "" {
		e.log.Warn().Err(err).Msg("chat completion failed, using canned reply")
		return cannedChatReply
	}
	return strings.TrimSpace(reply)
}
