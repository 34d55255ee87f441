package extract

import (
	"regexp"
	"strings"
)

// leadingVerbRE strips operative verbs and politeness openers from the
// front of an utterance when it has to double as an event title.
var leadingVerbRE = regexp.MustCompile(`(?i)^(?:please\s+|can\s+you\s+|could\s+you\s+)?` +
	`(?:add|schedule|create|book|set\s+up|put\s+in|register|remind\s+me\s+(?:about|of|to)|` +
	`delete|remove|cancel|clear|erase|drop|get\s+rid\s+of|` +
	`update|change|move|reschedule|modify|copy|duplicate)\s+`)

// articleRE strips a leading article left behind after verb removal.
var articleRE = regexp.MustCompile(`(?i)^(?:a|an|the|my)\s+`)

// trailingParticleRE strips trailing politeness/command particles.
var trailingParticleRE = regexp.MustCompile(`(?i)\s*(?:please|for\s+me|thanks(?:\s+a\s+lot)?|` +
	`to\s+(?:my|the)\s+calendar|from\s+(?:my|the)\s+calendar|on\s+(?:my|the)\s+calendar)\s*[.!?]*$`)

// temporalPhraseRE removes schedule phrasing that belongs to the date and
// time fields, not the title ("tomorrow at 3pm", "next week monday").
var temporalPhraseRE = regexp.MustCompile(`(?i)\s*\b(?:today|tomorrow|tonight|yesterday|day\s+after\s+tomorrow|` +
	`(?:this|next)\s+week(?:end)?(?:\s+(?:mon|tues?|wednes|thurs?|fri|satur|sun)day)?|` +
	`(?:on\s+)?(?:mon|tues?|wednes|thurs?|fri|satur|sun)day|` +
	`at\s+\d{1,2}(?::\d{2})?\s*(?:am|pm)?|` +
	`from\s+\d{1,2}(?::\d{2})?\s*(?:am|pm)?\s*(?:to|until|-)\s*\d{1,2}(?::\d{2})?\s*(?:am|pm)?|` +
	`for\s+\d+\s+(?:hours?|minutes?|days?))\b`)

// possessiveDateRE collapses "tomorrow's", "friday's" style possessives.
var possessiveDateRE = regexp.MustCompile(`(?i)\b(?:today|tomorrow|yesterday|(?:mon|tues?|wednes|thurs?|fri|satur|sun)day)'s\s+`)

// StripTitle recovers a usable event title from a raw utterance by
// removing action verbs, temporal phrasing, and trailing particles. Used
// when extraction returned no title, and for delete targets where only
// the referent noun phrase should survive for fuzzy matching.
func StripTitle(utterance string) string {
	s := strings.TrimSpace(utterance)
	for {
		next := leadingVerbRE.ReplaceAllString(s, "")
		if next == s {
			break
		}
		s = next
	}
	s = possessiveDateRE.ReplaceAllString(s, "")
	s = temporalPhraseRE.ReplaceAllString(s, "")
	s = trailingParticleRE.ReplaceAllString(s, "")
	s = articleRE.ReplaceAllString(s, "")
	s = strings.Trim(strings.TrimSpace(s), ".,!?")
	if s == "" {
		return "New event"
	}
	return s
}
