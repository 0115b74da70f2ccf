// Package store persists seismic documents in a SQL database. SQLite is the
// default; PostgreSQL is selected with STORE_DRIVER=postgres.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/seismic-watch-service/internal/domain"
)

// Store is a domain.DocumentStore backed by database/sql.
type Store interface {
	domain.DocumentStore
	Init(ctx context.Context) error
	Close() error
	Ping(ctx context.Context) error
	LatestTriangulation(ctx context.Context) (domain.TriangulationRecord, error)
}

// NewStore opens the store for driver and creates its schema.
func NewStore(ctx context.Context, driver, dsn string) (Store, error) {
	var (
		s   Store
		err error
	)
	switch strings.ToLower(driver) {
	case "sqlite":
		s, err = NewSQLite(dsn)
	case "postgres", "postgresql":
		s, err = NewPostgres(dsn)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Init(ctx); err != nil {
		s.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("init %s schema: %w", driver, err)
	}
	return s, nil
}

type baseStore struct {
	db *sql.DB
	// numbered rewrites ? placeholders as $1, $2, ... for PostgreSQL.
	numbered bool
}

func (b *baseStore) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

func (b *baseStore) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

func (b *baseStore) q(query string) string {
	if !b.numbered {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (b *baseStore) SaveEvent(ctx context.Context, rec domain.EventRecord) error {
	_, err := b.db.ExecContext(ctx, b.q(`
		INSERT INTO seismic_events
			(id, event_type, station, ts, sampling_rate, duration, max_amplitude, rms,
			 seconds_since_event, blob_id, blob_size, filename)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`),
		rec.ID, string(rec.Kind), rec.Station, rec.Timestamp.UnixNano(),
		rec.SamplingRate, rec.DurationSeconds, rec.PeakAmplitude, rec.RMS,
		rec.SecondsSinceEvent, rec.BlobID, rec.BlobSize, rec.Filename,
	)
	if err != nil {
		return fmt.Errorf("insert seismic event %s: %w", rec.ID, err)
	}
	return nil
}

func (b *baseStore) SaveAggregate(ctx context.Context, rec domain.AggregateRecord) error {
	_, err := b.db.ExecContext(ctx, b.q(`
		INSERT INTO aggregated_data
			(id, station, start_time, end_time, duration_seconds, num_samples, num_windows,
			 sampling_rate, min_amplitude, max_amplitude, mean_amplitude, std_amplitude)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`),
		rec.ID, rec.Station, rec.Start.UnixNano(), rec.End.UnixNano(), rec.DurationSeconds,
		rec.SampleCount, rec.Windows, rec.SamplingRate, rec.Min, rec.Max, rec.Mean, rec.StdDev,
	)
	if err != nil {
		return fmt.Errorf("insert aggregate %s: %w", rec.ID, err)
	}
	return nil
}

func (b *baseStore) SaveTriangulation(ctx context.Context, rec domain.TriangulationRecord) error {
	stations, err := json.Marshal(rec.Stations)
	if err != nil {
		return fmt.Errorf("encode stations: %w", err)
	}
	diffs, err := json.Marshal(rec.TimeDifferences)
	if err != nil {
		return fmt.Errorf("encode time differences: %w", err)
	}
	_, err = b.db.ExecContext(ctx, b.q(`
		INSERT INTO triangulation_results
			(id, ts, latitude, longitude, uncertainty, stations, time_differences,
			 weak_event_confirmed, place_name)
		VALUES (?,?,?,?,?,?,?,?,?)`),
		rec.ID, rec.Timestamp.UnixNano(), rec.Latitude, rec.Longitude, rec.Uncertainty,
		string(stations), string(diffs), rec.WeakEventConfirmed, rec.PlaceName,
	)
	if err != nil {
		return fmt.Errorf("insert triangulation %s: %w", rec.ID, err)
	}
	return nil
}

func (b *baseStore) ListEvents(ctx context.Context) ([]domain.EventRecord, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT id, event_type, station, ts, sampling_rate, duration, max_amplitude, rms,
		       seconds_since_event, blob_id, blob_size, filename
		FROM seismic_events ORDER BY ts DESC`)
	if err != nil {
		return nil, fmt.Errorf("query seismic events: %w", err)
	}
	defer rows.Close()

	var out []domain.EventRecord
	for rows.Next() {
		var (
			rec  domain.EventRecord
			kind string
			ts   int64
		)
		if err := rows.Scan(&rec.ID, &kind, &rec.Station, &ts, &rec.SamplingRate,
			&rec.DurationSeconds, &rec.PeakAmplitude, &rec.RMS, &rec.SecondsSinceEvent,
			&rec.BlobID, &rec.BlobSize, &rec.Filename); err != nil {
			return nil, fmt.Errorf("scan seismic event: %w", err)
		}
		rec.Kind = domain.EventKind(kind)
		rec.Timestamp = fromNanos(ts)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteEvent removes a seismic event. Deleting a missing id succeeds.
func (b *baseStore) DeleteEvent(ctx context.Context, id string) error {
	if _, err := b.db.ExecContext(ctx, b.q(`DELETE FROM seismic_events WHERE id = ?`), id); err != nil {
		return fmt.Errorf("delete seismic event %s: %w", id, err)
	}
	return nil
}

// LatestTriangulation returns the most recent estimate, or domain.ErrRecordNotFound.
func (b *baseStore) LatestTriangulation(ctx context.Context) (domain.TriangulationRecord, error) {
	row := b.db.QueryRowContext(ctx, `
		SELECT id, ts, latitude, longitude, uncertainty, stations, time_differences,
		       weak_event_confirmed, place_name
		FROM triangulation_results ORDER BY ts DESC LIMIT 1`)

	var (
		rec             domain.TriangulationRecord
		ts              int64
		stations, diffs string
	)
	err := row.Scan(&rec.ID, &ts, &rec.Latitude, &rec.Longitude, &rec.Uncertainty,
		&stations, &diffs, &rec.WeakEventConfirmed, &rec.PlaceName)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TriangulationRecord{}, domain.ErrRecordNotFound
	}
	if err != nil {
		return domain.TriangulationRecord{}, fmt.Errorf("query latest triangulation: %w", err)
	}
	rec.Timestamp = fromNanos(ts)
	if err := json.Unmarshal([]byte(stations), &rec.Stations); err != nil {
		return domain.TriangulationRecord{}, fmt.Errorf("decode stations of %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(diffs), &rec.TimeDifferences); err != nil {
		return domain.TriangulationRecord{}, fmt.Errorf("decode time differences of %s: %w", rec.ID, err)
	}
	return rec, nil
}

func fromNanos(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}
