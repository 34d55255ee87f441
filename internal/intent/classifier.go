package intent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jungfsg/Calender/internal/event"
	"github.com/jungfsg/Calender/internal/llm"
)

const (
	// classifyTimeout is the max time for a single classification call.
	classifyTimeout = 15 * time.Second

	// MinConfidence is the threshold below which the model's classification
	// is replaced wholesale by the keyword fallback. The two signals are
	// never merged: blending two weak guesses is worse than trusting the
	// deterministic one.
	MinConfidence = 0.7
)

const classifySystemPrompt = `You are an intent classifier for a calendar assistant. Label the user's utterance with exactly one intent.

INTENTS:
- add: the user wants one or more new events on the calendar ("schedule a meeting tomorrow at 3", "I'm supposed to see the dentist Friday")
- update: the user wants to change an existing event ("move the standup to 4pm", "reschedule lunch to Thursday")
- delete: the user wants to remove one or more events ("cancel tomorrow's gym session", "clear everything on Friday")
- search: the user is asking what is on the calendar ("what do I have tomorrow", "am I busy next week Monday")
- copy: the user wants to duplicate an existing event ("copy Monday's standup to Friday")
- chat: anything that is not about calendar events ("hello", "what's the weather", "thanks")

RULES:
- Classify the CURRENT utterance; prior turns are context only.
- Questions about the schedule are search, even without a question mark.
- Obligation phrasing ("must go", "supposed to") about a future activity is add.
- Return confidence 0.0-1.0.

Return ONLY a JSON object:
{"intent": "add", "confidence": 0.9, "reason": "brief explanation"}`

// Classifier labels utterances via the completion service, reconciled with
// the keyword fallback.
type Classifier struct {
	provider llm.Provider
	log      zerolog.Logger
}

// NewClassifier creates a Classifier backed by the given provider.
func NewClassifier(provider llm.Provider, log zerolog.Logger) *Classifier {
	return &Classifier{provider: provider, log: log}
}

// Classify labels the utterance with one intent. It never returns an
// error: completion failure, unparsable output, and low confidence all
// degrade to FallbackClassify.
func (c *Classifier) Classify(ctx context.Context, utterance string, transcript event.Transcript) Result {
	if c.provider == nil {
		return FallbackClassify(utterance)
	}

	cctx, cancel := context.WithTimeout(ctx, classifyTimeout)
	defer cancel()

	raw, err := c.provider.Complete(cctx, buildClassifyPrompt(utterance, transcript), llm.CompletionOpts{
		Temperature: 0.1,
		MaxTokens:   256,
		Format:      "json",
		System:      classifySystemPrompt,
	})
	if err != nil {
		c.log.Warn().Err(err).Msg("intent classification call failed, using fallback")
		return FallbackClassify(utterance)
	}

	res := llm.ParseObject(raw, Result{Intent: event.IntentChat, Confidence: FallbackConfidence, Reason: "unparsable classification"})
	res.Intent = event.Intent(strings.ToLower(string(res.Intent)))

	if !res.Intent.Valid() || res.Confidence < MinConfidence {
		fb := FallbackClassify(utterance)
		c.log.Debug().
			Str("model_intent", string(res.Intent)).
			Float64("model_confidence", res.Confidence).
			Str("fallback_intent", string(fb.Intent)).
			Msg("classification below threshold, replaced by fallback")
		return fb
	}

	return res
}

func buildClassifyPrompt(utterance string, transcript event.Transcript) string {
	var sb strings.Builder
	if len(transcript) > 0 {
		sb.WriteString("Conversation so far:\n")
		for _, m := range transcript {
			fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Text)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Utterance: %q\n\nReturn the intent JSON only.", utterance)
	return sb.String()
}
