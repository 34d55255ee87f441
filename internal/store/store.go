// Package store provides the persistence layer for calendar events.
//
// Two backends implement the same interface: SQLite for the server
// deployments and a JSON flat file for single-user desktop installs. All
// date parameters are YYYY-MM-DD strings and all times HH:MM, matching
// the draft model.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jungfsg/Calender/internal/event"
)

// Backend names accepted by New.
const (
	BackendSQLite   = "sqlite"
	BackendJSONFile = "jsonfile"
)

// DefaultDBPath is the default SQLite database location.
const DefaultDBPath = "~/.calender/calender.db"

// DefaultFilePath is the default JSON flat-file location.
const DefaultFilePath = "~/.calender/events.json"

// Config holds backend selection and location for New.
type Config struct {
	Backend  string // "sqlite" (default) or "jsonfile"
	DBPath   string // sqlite; ":memory:" for tests
	FilePath string // jsonfile
}

// CalendarStore defines the event storage interface.
type CalendarStore interface {
	// Create persists a draft and returns it with its assigned ID.
	Create(ctx context.Context, d event.EventDraft) (*event.Stored, error)
	// Get retrieves one event, or nil when the ID is unknown.
	Get(ctx context.Context, id string) (*event.Stored, error)
	// Update applies a sparse patch and returns the updated event.
	Update(ctx context.Context, id string, changes event.UpdateChanges) (*event.Stored, error)
	// Delete removes one event by ID.
	Delete(ctx context.Context, id string) error

	// Search returns events whose title, description, or location
	// contains the query, newest first.
	Search(ctx context.Context, query string, limit int) ([]*event.Stored, error)
	// ListByDate returns the events starting on one date, earliest first.
	ListByDate(ctx context.Context, date string) ([]*event.Stored, error)
	// ListRange returns the events starting within [startDate, endDate].
	ListRange(ctx context.Context, startDate, endDate string) ([]*event.Stored, error)

	// DeleteByDate removes every event starting on one date and reports
	// how many were removed.
	DeleteByDate(ctx context.Context, date string) (int, error)

	// CheckConflicts returns stored events whose time span overlaps the
	// draft's on the same date.
	CheckConflicts(ctx context.Context, d event.EventDraft) ([]*event.Stored, error)

	Close() error
}

// New creates the configured backend.
func New(cfg Config) (CalendarStore, error) {
	switch strings.ToLower(cfg.Backend) {
	case BackendSQLite, "":
		return NewSQLiteStore(cfg.DBPath)
	case BackendJSONFile:
		return NewJSONFileStore(cfg.FilePath)
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}

// applyChanges merges a sparse patch into a draft. Zero-value fields in
// the patch leave the draft's field alone; clearing a field is not a
// supported operation.
func applyChanges(d event.EventDraft, c event.UpdateChanges) event.EventDraft {
	if c.Title != "" {
		d.Title = c.Title
	}
	if c.StartDate != "" {
		d.StartDate = c.StartDate
		if c.EndDate == "" {
			d.EndDate = c.StartDate
		}
	}
	if c.EndDate != "" {
		d.EndDate = c.EndDate
	}
	if c.StartTime != "" {
		d.StartTime = c.StartTime
		d.AllDay = false
		if c.EndTime == "" {
			d.EndTime = addClockHour(c.StartTime)
		}
	}
	if c.EndTime != "" {
		d.EndTime = c.EndTime
	}
	if c.Location != "" {
		d.Location = c.Location
	}
	return d
}

// overlaps reports whether two drafts collide: same start date, both
// timed, and the clock spans intersect. All-day events never conflict.
// HH:MM strings compare correctly as text.
func overlaps(a, b event.EventDraft) bool {
	if a.StartDate != b.StartDate {
		return false
	}
	if a.AllDay || b.AllDay || a.StartTime == "" || b.StartTime == "" {
		return false
	}
	aEnd, bEnd := a.EndTime, b.EndTime
	if aEnd == "" {
		aEnd = a.StartTime
	}
	if bEnd == "" {
		bEnd = b.StartTime
	}
	return a.StartTime < bEnd && b.StartTime < aEnd
}

// addClockHour shifts an HH:MM string one hour forward, mirroring the
// draft validator's default duration.
func addClockHour(clock string) string {
	var h, m int
	if _, err := fmt.Sscanf(clock, "%d:%d", &h, &m); err != nil {
		return clock
	}
	return fmt.Sprintf("%02d:%02d", (h+1)%24, m)
}
