package intent

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jungfsg/Calender/internal/event"
	"github.com/jungfsg/Calender/internal/llm"
)

const cardinalityTimeout = 15 * time.Second

const cardinalitySystemPrompt = `You are a cardinality detector for a calendar assistant. Decide how many events the utterance describes.

LABELS:
- SINGLE: exactly one event ("meeting tomorrow at 3")
- MULTIPLE: several distinct, unrelated events joined by connectives ("dentist on Tuesday and dinner with Sam on Friday")
- RANGE: one recurring or spanning specification covering many dates — date spans ("from the 10th to the 14th"), weekday spans ("Monday through Friday"), weekday lists ("every Monday, Wednesday and Friday"), or explicit durations ("gym for 5 days")

RULES:
- RANGE takes precedence over MULTIPLE when both signals are present.
- A single event with a start and end time on one day is SINGLE, not RANGE.

Return ONLY a JSON object:
{"cardinality": "SINGLE", "reason": "brief explanation"}`

// weekday alternation used by the forced-range patterns below.
const wd = `(?:mon|tues?|wednes|thurs?|fri|satur|sun)(?:day)?`

// forcedRangePatterns recognize unambiguous range phrasings lexically,
// before the model is consulted. These are cheaper to catch directly and
// the model occasionally labels them MULTIPLE.
var forcedRangePatterns = []*regexp.Regexp{
	// Numeric date spans: "6/10 - 6/14", "06-10 ~ 06-14", "10th to the 14th".
	regexp.MustCompile(`\d{1,2}\s*[/.]\s*\d{1,2}\s*(?:~|-|–|to|through|until)\s*\d{1,2}\s*[/.]\s*\d{1,2}`),
	// Ordinal suffix required on the first number so bare clock spans
	// ("2 to 4") stay SINGLE.
	regexp.MustCompile(`(?i)\b\d{1,2}(?:st|nd|rd|th)\s+(?:to|through|until)\s+(?:the\s+)?\d{1,2}(?:st|nd|rd|th)?\b`),
	// ISO date spans: "2025-06-10 to 2025-06-14".
	regexp.MustCompile(`\d{4}-\d{2}-\d{2}\s*(?:~|-|–|to|through|until)\s*\d{4}-\d{2}-\d{2}`),
	// Weekday spans: "Monday to Friday", "mon-fri", "Tuesday through Thursday".
	regexp.MustCompile(`(?i)\b` + wd + `\s*(?:~|-|–|to|through|until)\s*` + wd + `\b`),
	// Weekday lists: at least two weekday names separated by commas or "and".
	regexp.MustCompile(`(?i)\b` + wd + `\b(?:\s*(?:,|and)\s*\b` + wd + `\b)+`),
	// Explicit durations in days: "for 3 days", "5 days straight".
	regexp.MustCompile(`(?i)\bfor\s+\d+\s+days?\b`),
	regexp.MustCompile(`(?i)\b\d+\s+days?\s+(?:straight|in\s+a\s+row)\b`),
	// "N nights M days" travel phrasing.
	regexp.MustCompile(`(?i)\b\d+\s+nights?\s+(?:and\s+)?\d+\s+days?\b`),
	// Named multi-day activities.
	regexp.MustCompile(`(?i)\b(trip|vacation|workshop|conference|camp|retreat|festival|holiday)\b`),
}

type cardinalityPayload struct {
	Cardinality string `json:"cardinality"`
	Reason      string `json:"reason"`
}

// DetectCardinality decides whether the utterance describes one event,
// several distinct events, or a range that expands into many. Only called
// for non-chat intents. Lexical range patterns win before any model call;
// model failure or nonsense degrades to SINGLE.
func DetectCardinality(ctx context.Context, provider llm.Provider, utterance string, log zerolog.Logger) event.Cardinality {
	for _, re := range forcedRangePatterns {
		if re.MatchString(utterance) {
			log.Debug().Str("pattern", re.String()).Msg("range forced by lexical pattern")
			return event.CardinalityRange
		}
	}

	if provider == nil {
		return event.CardinalitySingle
	}

	cctx, cancel := context.WithTimeout(ctx, cardinalityTimeout)
	defer cancel()

	raw, err := provider.Complete(cctx, "Utterance: \""+utterance+"\"\n\nReturn the cardinality JSON only.", llm.CompletionOpts{
		Temperature: 0.1,
		MaxTokens:   128,
		Format:      "json",
		System:      cardinalitySystemPrompt,
	})
	if err != nil {
		log.Warn().Err(err).Msg("cardinality call failed, assuming SINGLE")
		return event.CardinalitySingle
	}

	payload := llm.ParseObject(raw, cardinalityPayload{Cardinality: string(event.CardinalitySingle)})
	switch event.Cardinality(strings.ToUpper(strings.TrimSpace(payload.Cardinality))) {
	case event.CardinalityRange:
		return event.CardinalityRange
	case event.CardinalityMultiple:
		return event.CardinalityMultiple
	default:
		return event.CardinalitySingle
	}
}
