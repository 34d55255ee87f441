// Package intent labels an utterance with one tag from the closed intent
// set and decides how many events the utterance describes.
//
// Classification is model-first with a deterministic keyword fallback: the
// fallback is authoritative whenever the model's confidence is too low or
// its output cannot be parsed, so every utterance lands in a concrete
// bucket.
package intent

import (
	"regexp"
	"strings"

	"github.com/jungfsg/Calender/internal/event"
)

// FallbackConfidence is reported when no keyword matches and the utterance
// defaults to chat.
const FallbackConfidence = 0.3

// Result is a classification outcome.
type Result struct {
	Intent     event.Intent `json:"intent"`
	Confidence float64      `json:"confidence"`
	Reason     string       `json:"reason,omitempty"`
}

// questionPatterns short-circuit classification to search before keyword
// scoring. Speech-to-text transcripts drop question marks, so interrogative
// phrasing has to be recognized lexically or it scores as add.
var questionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\banything\b.*\b(planned|scheduled|on|going on)\b`),
	regexp.MustCompile(`(?i)\b(do|does)\s+i\s+have\b`),
	regexp.MustCompile(`(?i)\bwhen\s+(is|was|do|does|did)\b`),
	regexp.MustCompile(`(?i)\bam\s+i\s+(busy|free)\b`),
	regexp.MustCompile(`(?i)\bwhat(?:'s|s| is)\s+(on\b|my\s+(schedule|calendar|day))`),
	regexp.MustCompile(`(?i)\b(busy|free|available)\b.*\?`),
	regexp.MustCompile(`(?i)\banything\?\s*$`),
}

// keywordEntry is one weighted row of the fallback table. Indirect or
// obligation phrasing outweighs direct command verbs: colloquial speech
// rarely uses imperatives for calendar intents ("I'm supposed to see the
// dentist tomorrow" is an add, with no "add" anywhere in it).
type keywordEntry struct {
	intent event.Intent
	weight float64
	words  []string
}

var keywordTable = []keywordEntry{
	// Obligation / indirect phrasing — strongest signal for add.
	{event.IntentAdd, 3.0, []string{
		"must go", "have to go", "have to be", "supposed to", "planned to",
		"need to attend", "need to go", "gotta go", "i'm seeing", "i am seeing",
	}},
	// Direct command verbs.
	{event.IntentAdd, 2.0, []string{
		"add", "schedule", "create", "book", "set up", "put in", "register", "remind me",
	}},
	{event.IntentUpdate, 2.0, []string{
		"change", "move", "reschedule", "update", "modify", "postpone", "push back", "shift",
	}},
	{event.IntentDelete, 2.0, []string{
		"delete", "remove", "cancel", "clear", "erase", "get rid of", "drop",
	}},
	{event.IntentSearch, 2.0, []string{
		"find", "search", "look up", "show me", "list", "check my",
	}},
	{event.IntentCopy, 2.0, []string{
		"copy", "duplicate",
	}},
	// Calendar nouns — weak evidence that an event is being described.
	{event.IntentAdd, 1.0, []string{
		"meeting", "appointment", "lunch with", "dinner with", "session", "class at",
	}},
}

// FallbackClassify is the deterministic keyword classifier used when the
// model's classification is unavailable or not trusted. Tie-break: highest
// cumulative score wins, ties resolve to the first table entry encountered.
func FallbackClassify(text string) Result {
	lower := strings.ToLower(text)

	for _, re := range questionPatterns {
		if re.MatchString(text) {
			return Result{
				Intent:     event.IntentSearch,
				Confidence: 0.8,
				Reason:     "question pattern: " + re.String(),
			}
		}
	}

	scores := map[event.Intent]float64{}
	matched := map[event.Intent][]string{}
	for _, entry := range keywordTable {
		for _, w := range entry.words {
			if strings.Contains(lower, w) {
				scores[entry.intent] += entry.weight
				matched[entry.intent] = append(matched[entry.intent], w)
			}
		}
	}

	best := event.IntentChat
	bestScore := 0.0
	for _, entry := range keywordTable {
		if s := scores[entry.intent]; s > bestScore {
			best = entry.intent
			bestScore = s
		}
	}

	if bestScore == 0 {
		return Result{Intent: event.IntentChat, Confidence: FallbackConfidence, Reason: "no keyword match"}
	}

	conf := 0.6
	if bestScore >= 3 {
		conf = 0.8
	}
	return Result{
		Intent:     best,
		Confidence: conf,
		Reason:     "keywords: " + strings.Join(matched[best], ", "),
	}
}
