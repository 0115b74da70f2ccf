package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type postgresStore struct {
	baseStore
}

// NewPostgres opens a PostgreSQL database through the pgx stdlib driver.
func NewPostgres(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "postgres://localhost:5432/seismic?sslmode=disable"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return &postgresStore{baseStore{db: db, numbered: true}}, nil
}

func (s *postgresStore) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS seismic_events (
			id                  TEXT PRIMARY KEY,
			event_type          TEXT NOT NULL,
			station             TEXT NOT NULL,
			ts                  BIGINT NOT NULL,
			sampling_rate       DOUBLE PRECISION NOT NULL,
			duration            DOUBLE PRECISION NOT NULL,
			max_amplitude       DOUBLE PRECISION NOT NULL,
			rms                 DOUBLE PRECISION NOT NULL,
			seconds_since_event DOUBLE PRECISION NOT NULL DEFAULT 0,
			blob_id             TEXT NOT NULL DEFAULT '',
			blob_size           INTEGER NOT NULL DEFAULT 0,
			filename            TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_seismic_events_station_ts ON seismic_events(station, ts)`,
		`CREATE TABLE IF NOT EXISTS aggregated_data (
			id               TEXT PRIMARY KEY,
			station          TEXT NOT NULL,
			start_time       BIGINT NOT NULL,
			end_time         BIGINT NOT NULL,
			duration_seconds DOUBLE PRECISION NOT NULL,
			num_samples      INTEGER NOT NULL,
			num_windows      INTEGER NOT NULL,
			sampling_rate    DOUBLE PRECISION NOT NULL,
			min_amplitude    DOUBLE PRECISION NOT NULL,
			max_amplitude    DOUBLE PRECISION NOT NULL,
			mean_amplitude   DOUBLE PRECISION NOT NULL,
			std_amplitude    DOUBLE PRECISION NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_aggregated_data_station ON aggregated_data(station, start_time)`,
		`CREATE TABLE IF NOT EXISTS triangulation_results (
			id                   TEXT PRIMARY KEY,
			ts                   BIGINT NOT NULL,
			latitude             DOUBLE PRECISION NOT NULL,
			longitude            DOUBLE PRECISION NOT NULL,
			uncertainty          DOUBLE PRECISION NOT NULL,
			stations             JSONB NOT NULL,
			time_differences     JSONB NOT NULL,
			weak_event_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
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
