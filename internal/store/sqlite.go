package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jungfsg/Calender/internal/event"
)

// SQLiteStore implements CalendarStore on a single SQLite database file.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// runs migrations. Pass ":memory:" for tests.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = expandPath(DefaultDBPath)
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, dbPath: dbPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			start_date  TEXT NOT NULL,
			end_date    TEXT NOT NULL,
			start_time  TEXT NOT NULL DEFAULT '',
			end_time    TEXT NOT NULL DEFAULT '',
			location    TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			category    TEXT NOT NULL DEFAULT '',
			timezone    TEXT NOT NULL DEFAULT '',
			priority    INTEGER NOT NULL DEFAULT 0,
			all_day     INTEGER NOT NULL DEFAULT 0,
			is_range    INTEGER NOT NULL DEFAULT 0,
			attendees   TEXT NOT NULL DEFAULT '[]',
			reminders   TEXT NOT NULL DEFAULT '[]',
			recurrence  TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMP NOT NULL,
			updated_at  TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_start_date ON events(start_date)`,
		`CREATE INDEX IF NOT EXISTS idx_events_title ON events(title)`,
	}
	for _, stmt := range ddl {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("bootstrap DDL: %w", err)
		}
	}
	return nil
}

const eventColumns = `id, title, start_date, end_date, start_time, end_time,
	location, description, category, timezone, priority, all_day, is_range,
	attendees, reminders, recurrence, created_at, updated_at`

func (s *SQLiteStore) Create(ctx context.Context, d event.EventDraft) (*event.Stored, error) {
	now := time.Now().UTC()
	st := &event.Stored{
		ID:        uuid.NewString(),
		Draft:     d,
		CreatedAt: now,
		UpdatedAt: now,
	}

	attendees, _ := json.Marshal(d.Attendees)
	reminders, _ := json.Marshal(d.Reminders)
	recurrence := ""
	if d.Recurrence != nil {
		b, _ := json.Marshal(d.Recurrence)
		recurrence = string(b)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.ID, d.Title, d.StartDate, d.EndDate, d.StartTime, d.EndTime,
		d.Location, d.Description, d.Category, d.Timezone, d.Priority,
		boolToInt(d.AllDay), boolToInt(d.IsRange),
		string(attendees), string(reminders), recurrence, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting event: %w", err)
	}
	return st, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*event.Stored, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	st, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting event %s: %w", id, err)
	}
	return st, nil
}

func (s *SQLiteStore) Update(ctx context.Context, id string, changes event.UpdateChanges) (*event.Stored, error) {
	st, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("event %s not found", id)
	}

	st.Draft = applyChanges(st.Draft, changes)
	st.UpdatedAt = time.Now().UTC()

	d := st.Draft
	_, err = s.db.ExecContext(ctx,
		`UPDATE events SET title = ?, start_date = ?, end_date = ?,
			start_time = ?, end_time = ?, location = ?, all_day = ?, updated_at = ?
		 WHERE id = ?`,
		d.Title, d.StartDate, d.EndDate, d.StartTime, d.EndTime, d.Location,
		boolToInt(d.AllDay), st.UpdatedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating event %s: %w", id, err)
	}
	return st, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting event %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("event %s not found", id)
	}
	return nil
}

func (s *SQLiteStore) Search(ctx context.Context, query string, limit int) ([]*event.Stored, error) {
	if limit <= 0 {
		limit = 50
	}
	like := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE title LIKE ? COLLATE NOCASE
		    OR description LIKE ? COLLATE NOCASE
		    OR location LIKE ? COLLATE NOCASE
		 ORDER BY start_date DESC, start_time DESC
		 LIMIT ?`, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("searching events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *SQLiteStore) ListByDate(ctx context.Context, date string) ([]*event.Stored, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE start_date = ?
		 ORDER BY all_day DESC, start_time ASC, title ASC`, date)
	if err != nil {
		return nil, fmt.Errorf("listing events for %s: %w", date, err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *SQLiteStore) ListRange(ctx context.Context, startDate, endDate string) ([]*event.Stored, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE start_date >= ? AND start_date <= ?
		 ORDER BY start_date ASC, start_time ASC, title ASC`, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("listing events %s..%s: %w", startDate, endDate, err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *SQLiteStore) DeleteByDate(ctx context.Context, date string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE start_date = ?`, date)
	if err != nil {
		return 0, fmt.Errorf("deleting events for %s: %w", date, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted events: %w", err)
	}
	return int(n), nil
}

func (s *SQLiteStore) CheckConflicts(ctx context.Context, d event.EventDraft) ([]*event.Stored, error) {
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

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*event.Stored, error) {
	var (
		st                              event.Stored
		allDay, isRange                 int
		attendees, reminders, recurrence string
	)
	err := row.Scan(&st.ID, &st.Draft.Title, &st.Draft.StartDate, &st.Draft.EndDate,
		&st.Draft.StartTime, &st.Draft.EndTime, &st.Draft.Location,
		&st.Draft.Description, &st.Draft.Category, &st.Draft.Timezone,
		&st.Draft.Priority, &allDay, &isRange,
		&attendees, &reminders, &recurrence, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}
	st.Draft.AllDay = allDay != 0
	st.Draft.IsRange = isRange != 0
	if attendees != "" && attendees != "null" {
		_ = json.Unmarshal([]byte(attendees), &st.Draft.Attendees)
	}
	if reminders != "" && reminders != "null" {
		_ = json.Unmarshal([]byte(reminders), &st.Draft.Reminders)
	}
	if recurrence != "" {
		var r event.Recurrence
		if json.Unmarshal([]byte(recurrence), &r) == nil {
			st.Draft.Recurrence = &r
		}
	}
	return &st, nil
}

func scanEvents(rows *sql.Rows) ([]*event.Stored, error) {
	var out []*event.Stored
	for rows.Next() {
		st, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// expandPath expands ~ to the home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
