package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jungfsg/Calender/internal/event"
)

// JSONFileStore implements CalendarStore on a single JSON file. The whole
// event set lives in memory behind a mutex and every mutation rewrites
// the file, which is fine at personal-calendar scale.
type JSONFileStore struct {
	mu     sync.Mutex
	path   string
	events map[string]*event.Stored
}

// NewJSONFileStore loads (creating if needed) the flat file at path.
func NewJSONFileStore(path string) (*JSONFileStore, error) {
	if path == "" {
		path = expandPath(DefaultFilePath)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	s := &JSONFileStore{path: path, events: make(map[string]*event.Stored)}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// First run; the file appears on the first write.
	case err != nil:
		return nil, fmt.Errorf("reading event file: %w", err)
	default:
		var list []*event.Stored
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("parsing event file %s: %w", path, err)
		}
		for _, st := range list {
			s.events[st.ID] = st
		}
	}
	return s, nil
}

// flush writes the full event list atomically via a temp-file rename.
// Caller holds the mutex.
func (s *JSONFileStore) flush() error {
	list := make([]*event.Stored, 0, len(s.events))
	for _, st := range s.events {
		list = append(list, st)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Draft.StartDate != list[j].Draft.StartDate {
			return list[i].Draft.StartDate < list[j].Draft.StartDate
		}
		return list[i].Draft.StartTime < list[j].Draft.StartTime
	})

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding events: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing event file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing event file: %w", err)
	}
	return nil
}

func (s *JSONFileStore) Create(_ context.Context, d event.EventDraft) (*event.Stored, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	st := &event.Stored{ID: uuid.NewString(), Draft: d, CreatedAt: now, UpdatedAt: now}
	s.events[st.ID] = st
	if err := s.flush(); err != nil {
		delete(s.events, st.ID)
		return nil, err
	}
	return st, nil
}

func (s *JSONFileStore) Get(_ context.Context, id string) (*event.Stored, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.events[id]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

func (s *JSONFileStore) Update(_ context.Context, id string, changes event.UpdateChanges) (*event.Stored, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("event %s not found", id)
	}
	st.Draft = applyChanges(st.Draft, changes)
	st.UpdatedAt = time.Now().UTC()
	if err := s.flush(); err != nil {
		return nil, err
	}
	cp := *st
	return &cp, nil
}

func (s *JSONFileStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return fmt.Errorf("event %s not found", id)
	}
	delete(s.events, id)
	return s.flush()
}

func (s *JSONFileStore) Search(_ context.Context, query string, limit int) ([]*event.Stored, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}
	q := strings.ToLower(query)
	var out []*event.Stored
	for _, st := range s.events {
		d := st.Draft
		if strings.Contains(strings.ToLower(d.Title), q) ||
			strings.Contains(strings.ToLower(d.Description), q) ||
			strings.Contains(strings.ToLower(d.Location), q) {
			cp := *st
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Draft.StartDate != out[j].Draft.StartDate {
			return out[i].Draft.StartDate > out[j].Draft.StartDate
		}
		return out[i].Draft.StartTime > out[j].Draft.StartTime
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *JSONFileStore) ListByDate(_ context.Context, date string) ([]*event.Stored, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked(func(d event.EventDraft) bool {
		return d.StartDate == date
	}), nil
}

func (s *JSONFileStore) ListRange(_ context.Context, startDate, endDate string) ([]*event.Stored, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked(func(d event.EventDraft) bool {
		return d.StartDate >= startDate && d.StartDate <= endDate
	}), nil
}

// listLocked filters and sorts ascending. Caller holds the mutex.
func (s *JSONFileStore) listLocked(keep func(event.EventDraft) bool) []*event.Stored {
	var out []*event.Stored
	for _, st := range s.events {
		if keep(st.Draft) {
			cp := *st
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Draft, out[j].Draft
		if a.StartDate != b.StartDate {
			return a.StartDate < b.StartDate
		}
		if a.AllDay != b.AllDay {
			return a.AllDay
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.Title < b.Title
	})
	return out
}

func (s *JSONFileStore) DeleteByDate(_ context.Context, date string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for id, st := range s.events {
		if st.Draft.StartDate == date {
			removed = append(removed, id)
		}
	}
	for _, id := range removed {
		delete(s.events, id)
	}
	if len(removed) > 0 {
		if err := s.flush(); err != nil {
			return 0, err
		}
	}
	return len(removed), nil
}

func (s *JSONFileStore) CheckConflicts(ctx context.Context, d event.EventDraft) ([]*event.Stored, error) {
	same, err := s.ListByDate(ctx, d.StartDate)
	if err != nil {
		return nil, err
	}
	var out []*event.Stored
	for _, st := range same {
		if overlaps(d, st.Draft) {
			out = append(out, st)
		}
	}
	return out, nil
}

// Close flushes any pending state. The flat file is already durable after
// each mutation, so this is a no-op kept for interface symmetry.
func (s *JSONFileStore) Close() error {
	return nil
}
