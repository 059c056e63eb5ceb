package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/medsim/shlavbet/internal/model"

	_ "modernc.org/sqlite"
)

// Store persists completed-case records so analytics and export
// survive a restart. The live session state machine stays in memory;
// the store is written behind completed evaluations only.
type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		residency_year TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		topic TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS case_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		case_number INTEGER NOT NULL,
		topic TEXT NOT NULL,
		score INTEGER NOT NULL,
		verdict TEXT NOT NULL,
		logged_at DATETIME NOT NULL,
		UNIQUE(session_id, case_number),
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);

	CREATE TABLE IF NOT EXISTS sim_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateSession records a new session.
func (s *Store) CreateSession(rec model.SessionRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, residency_year, difficulty, topic, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.ResidencyYear, rec.Difficulty, rec.Topic, rec.CreatedAt,
	)
	return err
}

// UpdateSessionFocus records the session's current difficulty and
// topic after an adaptive restart.
func (s *Store) UpdateSessionFocus(id string, difficulty model.Difficulty, topic string) error {
	_, err := s.db.Exec(
		`UPDATE sessions SET difficulty = ?, topic = ? WHERE id = ?`,
		difficulty, topic, id,
	)
	return err
}

// GetSession returns a session record by ID.
func (s *Store) GetSession(id string) (model.SessionRecord, error) {
	var rec model.SessionRecord
	err := s.db.QueryRow(
		`SELECT id, residency_year, difficulty, topic, created_at FROM sessions WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.ResidencyYear, &rec.Difficulty, &rec.Topic, &rec.CreatedAt)
	return rec, err
}

// ListSessions returns all session records, newest first.
func (s *Store) ListSessions() ([]model.SessionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, residency_year, difficulty, topic, created_at FROM sessions ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []model.SessionRecord
	for rows.Next() {
		var rec model.SessionRecord
		if err := rows.Scan(&rec.ID, &rec.ResidencyYear, &rec.Difficulty, &rec.Topic, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// AppendCaseLog persists a completed-case entry.
func (s *Store) AppendCaseLog(sessionID string, e model.CaseLogEntry) error {
	_, err := s.db.Exec(
		`INSERT INTO case_log (session_id, case_number, topic, score, verdict, logged_at) VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, e.CaseNumber, e.Topic, e.Score, e.Verdict, time.Now(),
	)
	return err
}

// GetCaseLog returns a session's completed cases in case order.
func (s *Store) GetCaseLog(sessionID string) ([]model.CaseLogEntry, error) {
	rows, err := s.db.Query(
		`SELECT case_number, topic, score, verdict FROM case_log WHERE session_id = ? ORDER BY case_number`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []model.CaseLogEntry
	for rows.Next() {
		var e model.CaseLogEntry
		if err := rows.Scan(&e.CaseNumber, &e.Topic, &e.Score, &e.Verdict); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MeanScore returns the mean score of a session's completed cases,
// 0 when none exist.
func (s *Store) MeanScore(sessionID string) (float64, error) {
	var mean sql.NullFloat64
	err := s.db.QueryRow(
		`SELECT AVG(score) FROM case_log WHERE session_id = ?`, sessionID,
	).Scan(&mean)
	if err != nil {
		return 0, err
	}
	return mean.Float64, nil
}

// ExportAllSessions assembles every session with its case log for
// JSON export.
func (s *Store) ExportAllSessions() ([]model.SessionExport, error) {
	records, err := s.ListSessions()
	if err != nil {
		return nil, err
	}
	var exports []model.SessionExport
	for _, rec := range records {
		entries, err := s.GetCaseLog(rec.ID)
		if err != nil {
			return nil, err
		}
		mean, err := s.MeanScore(rec.ID)
		if err != nil {
			return nil, err
		}
		exports = append(exports, model.SessionExport{
			SessionID:     rec.ID,
			ResidencyYear: rec.ResidencyYear,
			Difficulty:    rec.Difficulty,
			Topic:         rec.Topic,
			CreatedAt:     rec.CreatedAt,
			Cases:         entries,
			MeanScore:     mean,
		})
	}
	return exports, nil
}
