package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/jungfsg/Calender/internal/event"
)

// chatRequest mirrors the original assistant request body.
type chatRequest struct {
	Message     string           `json:"message"`
	SessionID   string           `json:"session_id,omitempty"`
	ChatHistory event.Transcript `json:"chat_history,omitempty"`
}

// chatResponse mirrors the original assistant response body.
type chatResponse struct {
	Response       string                 `json:"response"`
	Intent         string                 `json:"intent"`
	Confidence     float64                `json:"confidence"`
	ExtractedInfo  event.ExtractionResult `json:"extracted_info"`
	CalendarResult *event.ActionResult    `json:"calendar_result,omitempty"`
	UpdatedHistory event.Transcript       `json:"updated_history"`
	SessionID      string                 `json:"session_id,omitempty"`
}

// handleAIChat runs one utterance through the pipeline. The pipeline is
// total, so this route only fails on transport-level problems.
func (s *Server) handleAIChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeBadRequest(w, "message is required")
		return
	}

	st := s.engine.Process(r.Context(), req.Message, req.ChatHistory)

	writeJSON(w, http.StatusOK, chatResponse{
		Response:       st.Response,
		Intent:         string(st.Intent.Intent),
		Confidence:     st.Intent.Confidence,
		ExtractedInfo:  st.Extraction,
		CalendarResult: st.Action,
		UpdatedHistory: st.Transcript,
		SessionID:      req.SessionID,
	})
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var d event.EventDraft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if d.Title == "" || d.StartDate == "" {
		writeBadRequest(w, "title and start_date are required")
		return
	}
	if d.EndDate == "" {
		d.EndDate = d.StartDate
	}

	st, err := s.store.Create(r.Context(), d)
	if err != nil {
		writeInternalError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeInternalError(w, err.Error())
		return
	}
	if st == nil {
		writeNotFound(w, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var changes event.UpdateChanges
	if err := json.NewDecoder(r.Body).Decode(&changes); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if changes.Empty() {
		writeBadRequest(w, "no changes supplied")
		return
	}

	st, err := s.store.Update(r.Context(), mux.Vars(r)["id"], changes)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeNotFound(w, err.Error())
			return
		}
		writeInternalError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeNotFound(w, err.Error())
			return
		}
		writeInternalError(w, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSearchEvents serves three query shapes: ?date= for one day,
// ?start=&end= for a span, ?q= for free text.
func (s *Server) handleSearchEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		events []*event.Stored
		err    error
	)
	switch {
	case q.Get("date") != "":
		events, err = s.store.ListByDate(r.Context(), q.Get("date"))
	case q.Get("start") != "" && q.Get("end") != "":
		events, err = s.store.ListRange(r.Context(), q.Get("start"), q.Get("end"))
	case q.Get("q") != "":
		events, err = s.store.Search(r.Context(), q.Get("q"), 50)
	default:
		writeBadRequest(w, "one of q, date, or start+end is required")
		return
	}
	if err != nil {
		writeInternalError(w, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

func (s *Server) handleConflicts(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeInternalError(w, err.Error())
		return
	}
	if st == nil {
		writeNotFound(w, "event not found")
		return
	}

	conflicts, err := s.store.CheckConflicts(r.Context(), st.Draft)
	if err != nil {
		writeInternalError(w, err.Error())
		return
	}
	// The event trivially overlaps itself.
	filtered := conflicts[:0]
	for _, c := range conflicts {
		if c.ID != st.ID {
			filtered = append(filtered, c)
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"event_id":  st.ID,
		"conflicts": filtered,
		"count":     len(filtered),
	})
}
