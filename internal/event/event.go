// Package event defines the calendar data model shared by the extraction
// pipeline, the workflow orchestrator, and the storage layer.
//
// An EventDraft is a structured, not-yet-persisted calendar event candidate.
// Drafts are produced by extraction, repaired by validation, and frozen
// thereafter — nothing downstream mutates a draft.
package event

import "time"

// Intent is one label from the closed intent set for a single turn.
type Intent string

const (
	IntentAdd    Intent = "add"
	IntentUpdate Intent = "update"
	IntentDelete Intent = "delete"
	IntentSearch Intent = "search"
	IntentCopy   Intent = "copy"
	IntentChat   Intent = "chat"
)

// Valid reports whether i is a member of the closed intent set.
func (i Intent) Valid() bool {
	switch i {
	case IntentAdd, IntentUpdate, IntentDelete, IntentSearch, IntentCopy, IntentChat:
		return true
	}
	return false
}

// Cardinality describes how many events an utterance specifies.
type Cardinality string

const (
	CardinalitySingle   Cardinality = "SINGLE"
	CardinalityMultiple Cardinality = "MULTIPLE"
	CardinalityRange    Cardinality = "RANGE"
)

// Recurrence describes a repeating-event specification.
type Recurrence struct {
	Type     string `json:"type,omitempty"` // daily, weekly, monthly, yearly
	Interval int    `json:"interval,omitempty"`
	Count    int    `json:"count,omitempty"`
	Until    string `json:"until,omitempty"` // YYYY-MM-DD
}

// EventDraft is a structured calendar-event candidate.
//
// Dates are YYYY-MM-DD strings and times are HH:MM 24-hour strings; empty
// time strings mean "no clock time". Invariants after validation:
// EndDate >= StartDate, EndTime > StartTime when both set, and
// AllDay == true iff both times are empty.
type EventDraft struct {
	Title       string      `json:"title"`
	StartDate   string      `json:"start_date"`
	EndDate     string      `json:"end_date"`
	StartTime   string      `json:"start_time,omitempty"`
	EndTime     string      `json:"end_time,omitempty"`
	Location    string      `json:"location,omitempty"`
	Description string      `json:"description,omitempty"`
	Attendees   []string    `json:"attendees,omitempty"`
	Recurrence  *Recurrence `json:"recurrence,omitempty"`
	Reminders   []int       `json:"reminders,omitempty"` // minutes before start
	Priority    int         `json:"priority,omitempty"`
	Category    string      `json:"category,omitempty"`
	AllDay      bool        `json:"all_day"`
	Timezone    string      `json:"timezone,omitempty"`
	IsRange     bool        `json:"is_range,omitempty"` // set on range-expanded drafts
}

// DeleteType classifies a delete request.
type DeleteType string

const (
	DeleteSingle   DeleteType = "single"
	DeleteMultiple DeleteType = "multiple"
	DeleteBulk     DeleteType = "bulk"
	DeleteMixed    DeleteType = "mixed"
)

// DeleteTarget names one individual event to remove.
type DeleteTarget struct {
	Title string `json:"title"`
	Date  string `json:"date"`
	Time  string `json:"time,omitempty"`
}

// DeleteAction is one sub-action of a mixed delete: either an individual
// target or a whole-date bulk wipe.
type DeleteAction struct {
	Kind        string `json:"kind"` // "individual" or "bulk"
	Title       string `json:"title,omitempty"`
	Date        string `json:"date,omitempty"`
	Time        string `json:"time,omitempty"`
	TargetDate  string `json:"target_date,omitempty"`
	Description string `json:"description,omitempty"`
}

// DeleteRequest is the tagged union produced by delete extraction.
// Exactly the fields for the variant named by Type are populated.
type DeleteRequest struct {
	Type DeleteType `json:"delete_type"`

	// single
	Target DeleteTarget `json:"target,omitempty"`

	// multiple
	Targets []DeleteTarget `json:"targets,omitempty"`

	// bulk
	TargetDate  string `json:"target_date,omitempty"`
	Description string `json:"date_description,omitempty"`

	// mixed
	Actions []DeleteAction `json:"actions,omitempty"`
}

// UpdateTarget is the loose match key for locating the event to change.
type UpdateTarget struct {
	Title string `json:"title"`
	Date  string `json:"date,omitempty"`
}

// UpdateChanges is a sparse patch: only fields the user explicitly changed
// are set. An explicit end time appears only when the user stated a range.
type UpdateChanges struct {
	Title     string `json:"title,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
	Location  string `json:"location,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (c UpdateChanges) Empty() bool {
	return c == UpdateChanges{}
}

// UpdateItem pairs one target with its patch.
type UpdateItem struct {
	Target  UpdateTarget  `json:"target"`
	Changes UpdateChanges `json:"changes"`
}

// UpdateRequest is either one target/changes pair or an ordered list.
type UpdateRequest struct {
	Multiple bool         `json:"multiple"`
	Updates  []UpdateItem `json:"updates"`
}

// ResultKind tags the variant held by an ExtractionResult.
type ResultKind string

const (
	KindSingle   ResultKind = "single"
	KindMultiple ResultKind = "multiple"
	KindRange    ResultKind = "range"
	KindDelete   ResultKind = "delete"
	KindUpdate   ResultKind = "update"
	KindNone     ResultKind = "none" // chat / nothing to extract
)

// ExtractionResult is the output of the entity extractor for one turn.
type ExtractionResult struct {
	Kind   ResultKind     `json:"kind"`
	Drafts []EventDraft   `json:"drafts,omitempty"` // single (len 1), multiple, range
	Delete *DeleteRequest `json:"delete,omitempty"`
	Update *UpdateRequest `json:"update,omitempty"`
}

// ActionResult is the outcome of applying an ExtractionResult to the
// calendar store. Ephemeral; produced once per turn.
type ActionResult struct {
	Success     bool     `json:"success"`
	AffectedIDs []string `json:"affected_ids,omitempty"`
	Message     string   `json:"message,omitempty"`
	Error       string   `json:"error,omitempty"`
	Events      []Stored `json:"events,omitempty"` // search results
}

// Stored is a persisted calendar event as returned by the store.
type Stored struct {
	ID        string     `json:"id"`
	Draft     EventDraft `json:"event"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Message is a single transcript entry.
type Message struct {
	Role string `json:"role"` // "user", "assistant", "system"
	Text string `json:"content"`
}

// Transcript is an ordered prior-turn conversation. Passed and returned by
// value; the caller owns persistence.
type Transcript []Message

// Append returns a transcript extended with one entry. The receiver is not
// modified so request-local copies stay independent.
func (t Transcript) Append(role, text string) Transcript {
	out := make(Transcript, len(t), len(t)+1)
	copy(out, t)
	return append(out, Message{Role: role, Text: text})
}
