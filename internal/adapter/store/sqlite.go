package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	baseStore
}

// NewSQLite opens a SQLite database in WAL mode with a single writer connection.
func NewSQLite(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:seismic.db?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	return &sqliteStore{baseStore{db: db}}, nil
}

func (s *sqliteStore) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS seismic_events (
			id                  TEXT PRIMARY KEY,
			event_type          TEXT NOT NULL,
			station             TEXT NOT NULL,
			ts                  INTEGER NOT NULL,
			sampling_rate       REAL NOT NULL,
			duration            REAL NOT NULL,
			max_amplitude       REAL NOT NULL,
			rms                 REAL NOT NULL,
			seconds_since_event REAL NOT NULL DEFAULT 0,
			blob_id             TEXT NOT NULL DEFAULT '',
			blob_size           INTEGER NOT NULL DEFAULT 0,
			filename            TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_seismic_events_station_ts ON seismic_events(station, ts)`,
		`CREATE TABLE IF NOT EXISTS aggregated_data (
			id               TEXT PRIMARY KEY,
			station          TEXT NOT NULL,
			start_time       INTEGER NOT NULL,
			end_time         INTEGER NOT NULL,
			duration_seconds REAL NOT NULL,
			num_samples      INTEGER NOT NULL,
			num_windows      INTEGER NOT NULL,
			sampling_rate    REAL NOT NULL,
			min_amplitude    REAL NOT NULL,
			max_amplitude    REAL NOT NULL,
			mean_amplitude   REAL NOT NULL,
			std_amplitude    REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_aggregated_data_station ON aggregated_data(station, start_time)`,
		`CREATE TABLE IF NOT EXISTS triangulation_results (
			id                   TEXT PRIMARY KEY,
			ts                   INTEGER NOT NULL,
			latitude             REAL NOT NULL,
			longitude            REAL NOT NULL,
			uncertainty          REAL NOT NULL,
			stations             TEXT NOT NULL,
			time_differences     TEXT NOT NULL,
			weak_event_confirmed INTEGER NOT NULL DEFAULT 0,
			place_name           TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_triangulation_results_ts ON triangulation_results(ts)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
