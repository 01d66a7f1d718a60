package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/signalnine/trialbook/internal/errdefs"
	"github.com/signalnine/trialbook/internal/experiment"
	"github.com/signalnine/trialbook/internal/genrun"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	// ":memory:" databases are per connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap *experiment.Snapshot) error {
	if err := validateSnapshot(snap); err != nil {
		return err
	}
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeSnapshot(snap)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO experiments (name, codec_version, saved_at, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			codec_version = excluded.codec_version,
			saved_at = excluded.saved_at,
			payload = excluded.payload
	`, snap.Name, CurrentCodecVersion, formatTime(time.Now()), payload)
	return err
}

func (s *SQLiteStore) GetSnapshot(ctx context.Context, name string) (*experiment.Snapshot, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var (
		version int
		payload []byte
	)
	err = db.QueryRowContext(ctx, `SELECT codec_version, payload FROM experiments WHERE name = ?`, name).Scan(&version, &payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if err := checkVersion(version); err != nil {
		return nil, false, fmt.Errorf("experiment %s: %w", name, err)
	}

	snap, err := DecodeSnapshot(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode experiment %s: %w", name, err)
	}
	return snap, true, nil
}

func (s *SQLiteStore) ListSnapshots(ctx context.Context) ([]Summary, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT e.name, e.codec_version, e.saved_at, e.payload, COUNT(r.id)
		FROM experiments e
		LEFT JOIN generator_runs r ON r.experiment = e.name
		GROUP BY e.name
		ORDER BY e.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			name    string
			version int
			savedAt string
			payload []byte
			runs    int
		)
		if err := rows.Scan(&name, &version, &savedAt, &payload, &runs); err != nil {
			return nil, err
		}
		if err := checkVersion(version); err != nil {
			return nil, fmt.Errorf("experiment %s: %w", name, err)
		}
		snap, err := DecodeSnapshot(payload)
		if err != nil {
			return nil, fmt.Errorf("decode experiment %s: %w", name, err)
		}
		at, err := parseTime(savedAt)
		if err != nil {
			return nil, fmt.Errorf("experiment %s: %w", name, err)
		}
		out = append(out, summarize(snap, runs, at))
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveGeneratorRun(ctx context.Context, experimentName string, g *genrun.GeneratorRun) (string, error) {
	if g == nil {
		return "", errdefs.InvalidArgumentf("generator run is required")
	}
	db, err := s.getDB()
	if err != nil {
		return "", err
	}

	payload, err := EncodeRecord(g.Record())
	if err != nil {
		return "", err
	}

	var exists int
	err = db.QueryRowContext(ctx, `SELECT 1 FROM experiments WHERE name = ?`, experimentName).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", errdefs.InvalidArgumentf("unknown experiment %q", experimentName)
		}
		return "", err
	}

	id := uuid.NewString()
	_, err = db.ExecContext(ctx, `
		INSERT INTO generator_runs (id, experiment, codec_version, saved_at, payload)
		VALUES (?, ?, ?, ?, ?)
	`, id, experimentName, CurrentCodecVersion, formatTime(time.Now()), payload)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQLiteStore) ListGeneratorRuns(ctx context.Context, experimentName string) ([]StoredRun, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, codec_version, saved_at, payload
		FROM generator_runs
		WHERE experiment = ?
		ORDER BY seq
	`, experimentName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []StoredRun{}
	for rows.Next() {
		var (
			id      string
			version int
			savedAt string
			payload []byte
		)
		if err := rows.Scan(&id, &version, &savedAt, &payload); err != nil {
			return nil, err
		}
		if err := checkVersion(version); err != nil {
			return nil, fmt.Errorf("generator run %s: %w", id, err)
		}
		rec, err := DecodeRecord(payload)
		if err != nil {
			return nil, fmt.Errorf("decode generator run %s: %w", id, err)
		}
		at, err := parseTime(savedAt)
		if err != nil {
			return nil, fmt.Errorf("generator run %s: %w", id, err)
		}
		out = append(out, StoredRun{ID: id, Experiment: experimentName, SavedAt: at, Run: rec})
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS experiments (
			name TEXT PRIMARY KEY,
			codec_version INTEGER NOT NULL,
			saved_at TEXT NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS generator_runs (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			experiment TEXT NOT NULL,
			codec_version INTEGER NOT NULL,
			saved_at TEXT NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS generator_runs_experiment ON generator_runs (experiment);
	`)
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse saved_at %q: %w", s, err)
	}
	return t, nil
}
