package metrics

import "database/sql"
import "fmt"
import "os"
import "path/filepath"
import "sync"
import "time"

import "github.com/google/uuid"
import _ "github.com/mattn/go-sqlite3"

const schema = `
CREATE TABLE IF NOT EXISTS scalars (
	run_id    TEXT    NOT NULL,
	tag       TEXT    NOT NULL,
	step      INTEGER NOT NULL,
	value     REAL    NOT NULL,
	wall_time INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scalars_tag_step ON scalars(tag, step);
`

// Point is one stored observation
type Point struct {
	RunID string
	Step  int
	Value float64
	Wall  time.Time
}

// SQLite stores scalars in a sqlite database. Writes are buffered in a
// transaction until Flush.
type SQLite struct {
	RunID string

	db *sql.DB
	tx *sql.Tx
	mu sync.Mutex
}

// OpenSQLite opens or creates the database at path. Rows with step >= purge
// are deleted first so a resumed run overwrites the tail of earlier runs;
// a negative purge keeps everything.
func OpenSQLite(path string, purge int) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create metrics directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open metrics database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create metrics schema: %w", err)
	}
	if purge >= 0 {
		if _, err := db.Exec(`DELETE FROM scalars WHERE step >= ?`, purge); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to purge metrics: %w", err)
		}
	}
	return &SQLite{RunID: uuid.NewString(), db: db}, nil
}

// Scalar buffers one observation
func (s *SQLite) Scalar(tag string, step int, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return sql.ErrConnDone
	}
	if s.tx == nil {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		s.tx = tx
	}
	_, err := s.tx.Exec(`INSERT INTO scalars (run_id, tag, step, value, wall_time) VALUES (?, ?, ?, ?, ?)`,
		s.RunID, tag, step, value, time.Now().UnixNano())
	return err
}

// Flush commits buffered observations
func (s *SQLite) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush()
}

func (s *SQLite) flush() error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Commit()
	s.tx = nil
	return err
}

// Series reads a tag back ordered by step
func (s *SQLite) Series(tag string) ([]Point, error) {
	if err := s.Flush(); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`SELECT run_id, step, value, wall_time FROM scalars WHERE tag = ? ORDER BY step, wall_time`, tag)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Point
	for rows.Next() {
		var p Point
		var wall int64
		if err := rows.Scan(&p.RunID, &p.Step, &p.Value, &wall); err != nil {
			return nil, err
		}
		p.Wall = time.Unix(0, wall)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Close flushes and closes the database
func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.flush()
	if cerr := s.db.Close(); err == nil {
		err = cerr
	}
	s.db = nil
	return err
}
