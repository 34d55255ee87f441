// Package workflow sequences one user turn through the pipeline:
// classify_intent, extract_information, determine_action, then
// execute_calendar_action or skip, then generate_response.
//
// Every node is total. A stage that fails logs and substitutes its
// documented fallback, so Process always reaches response generation and
// never returns an error to the caller.
package workflow

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jungfsg/Calender/internal/event"
	"github.com/jungfsg/Calender/internal/extract"
	"github.com/jungfsg/Calender/internal/intent"
	"github.com/jungfsg/Calender/internal/llm"
	"github.com/jungfsg/Calender/internal/store"
)

// TurnState is the working record for one invocation. Created at request
// start, consumed by response generation, never persisted here.
type TurnState struct {
	Utterance  string                 `json:"utterance"`
	Intent     intent.Result          `json:"intent"`
	Extraction event.ExtractionResult `json:"extraction"`
	Action     *event.ActionResult    `json:"action,omitempty"`
	Response   string                 `json:"response"`
	Transcript event.Transcript       `json:"transcript"`
}

// Engine drives the turn state machine. One Engine serves many concurrent
// turns; all per-turn state lives in TurnState.
type Engine struct {
	classifier *intent.Classifier
	extractor  *extract.Extractor
	provider   llm.Provider
	store      store.CalendarStore
	log        zerolog.Logger
	now        func() time.Time
}

// NewEngine builds an Engine. now may be nil for the wall clock; it is
// the single entry point for "today" across the whole pipeline.
func NewEngine(provider llm.Provider, cal store.CalendarStore, log zerolog.Logger, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{
		classifier: intent.NewClassifier(provider, log),
		extractor:  extract.NewExtractor(provider, log, now),
		provider:   provider,
		store:      cal,
		log:        log,
		now:        now,
	}
}

// Process runs one utterance through the state machine. The returned
// transcript is the input transcript plus the user turn and the assistant
// turn.
func (e *Engine) Process(ctx context.Context, utterance string, transcript event.Transcript) TurnState {
	st := TurnState{Utterance: utterance, Transcript: transcript}

	// classify_intent
	st.Intent = e.classifier.Classify(ctx, utterance, transcript)
	e.log.Info().
		Str("intent", string(st.Intent.Intent)).
		Float64("confidence", st.Intent.Confidence).
		Msg("intent classified")

	// extract_information
	st.Extraction = e.extract(ctx, st.Intent.Intent, utterance)

	// determine_action: chat skips execution, calendar intents route
	// through the store.
	if st.Intent.Intent == event.IntentChat {
		st.Response = e.chatResponse(ctx, utterance, transcript)
	} else {
		st.Action = e.execute(ctx, st.Intent.Intent, utterance, st.Extraction)
		st.Response = e.respond(st.Intent.Intent, st.Extraction, st.Action)
	}

	// generate_response: transcript gains exactly the user and assistant
	// turns.
	st.Transcript = transcript.Append("user", utterance).Append("assistant", st.Response)
	return st
}

// extract branches by intent x cardinality. Total: every path lands in a
// concrete ExtractionResult.
func (e *Engine) extract(ctx context.Context, in event.Intent, utterance string) event.ExtractionResult {
	switch in {
	case event.IntentAdd:
		switch intent.DetectCardinality(ctx, e.provider, utterance, e.log) {
		case event.CardinalityRange:
			return event.ExtractionResult{Kind: event.KindRange, Drafts: e.extractor.ExtractRange(ctx, utterance)}
		case event.CardinalityMultiple:
			return event.ExtractionResult{Kind: event.KindMultiple, Drafts: e.extractor.ExtractMultiple(ctx, utterance)}
		default:
			return event.ExtractionResult{Kind: event.KindSingle, Drafts: []event.EventDraft{e.extractor.ExtractSingle(ctx, utterance)}}
		}
	case event.IntentUpdate:
		return event.ExtractionResult{Kind: event.KindUpdate, Update: e.extractor.ExtractUpdate(ctx, utterance)}
	case event.IntentDelete:
		return event.ExtractionResult{Kind: event.KindDelete, Delete: e.extractor.ExtractDelete(ctx, utterance)}
	case event.IntentSearch, event.IntentCopy:
		// Search and copy work from the stripped referent phrase; the
		// executor resolves it against stored events.
		return event.ExtractionResult{Kind: event.KindSingle, Drafts: []event.EventDraft{{Title: extract.StripTitle(utterance)}}}
	}
	return event.ExtractionResult{Kind: event.KindNone}
}
