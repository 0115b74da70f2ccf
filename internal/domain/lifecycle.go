package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// StorageAction is what Record did with a station's window.
type StorageAction string

const (
	ActionNone                 StorageAction = "none"
	ActionEventRaw             StorageAction = "event_raw"
	ActionPostEventRaw         StorageAction = "post_event_raw"
	ActionAggregatedFlush      StorageAction = "aggregated_flush"
	ActionAggregatedAccumulate StorageAction = "aggregated_accumulate"
)

// LifecycleConfig holds the retention policy.
type LifecycleConfig struct {
	PostEventWindow     time.Duration
	AggregationInterval time.Duration
	CleanupInterval     time.Duration
	RetentionAge        time.Duration
	MaxRawPerStation    int
}

// StationState is a snapshot of one station's lifecycle state.
type StationState struct {
	EventActive bool
	EventTime   time.Time
	Ledger      Ledger
}

// CleanupReport summarizes one retention sweep.
type CleanupReport struct {
	Scanned        int
	DeletedByAge   int
	DeletedByCount int
	Failures       int
	Malformed      int
}

// Deleted returns the number of records removed.
func (r CleanupReport) Deleted() int {
	return r.DeletedByAge + r.DeletedByCount
}

// Lifecycle decides what gets persisted for each station window and enforces
// retention. State is keyed by station id and created for every registered
// station up front. It is not safe for concurrent use; callers serialize
// Record calls per station and run Cleanup outside the analysis phase.
type Lifecycle struct {
	cfg         LifecycleConfig
	docs        DocumentStore
	blobs       BlobStore
	clock       clockwork.Clock
	logger      *slog.Logger
	stations    map[string]*StationState
	lastCleanup time.Time
	newID       func() string
}

// NewLifecycle creates a lifecycle manager for the given stations. The cleanup
// timer starts at the clock's current time.
func NewLifecycle(cfg LifecycleConfig, stationIDs []string, docs DocumentStore, blobs BlobStore, clock clockwork.Clock, logger *slog.Logger) *Lifecycle {
	now := clock.Now()
	states := make(map[string]*StationState, len(stationIDs))
	for _, id := range stationIDs {
		st := &StationState{}
		st.Ledger.Reset(now)
		states[id] = st
	}
	return &Lifecycle{
		cfg:         cfg,
		docs:        docs,
		blobs:       blobs,
		clock:       clock,
		logger:      logger,
		stations:    states,
		lastCleanup: now,
		newID:       uuid.NewString,
	}
}

// State returns a snapshot of station's state.
func (l *Lifecycle) State(station string) (StationState, bool) {
	st, ok := l.stations[station]
	if !ok {
		return StationState{}, false
	}
	return *st, true
}

// Record applies the retention state machine to one station's window and
// persists whatever the resulting action requires. On a persistence error the
// action is still returned; a failed aggregate flush keeps the ledger so the
// next cycle retries it.
func (l *Lifecycle) Record(ctx context.Context, station string, w SampleWindow, outcome DetectionOutcome) (StorageAction, error) {
	st, ok := l.stations[station]
	if !ok {
		return ActionNone, fmt.Errorf("record: unregistered station %q", station)
	}
	now := l.clock.Now()

	if outcome.Class == ClassStrong {
		st.EventActive = true
		st.EventTime = now
		return ActionEventRaw, l.saveEventRaw(ctx, station, w, outcome, now)
	}

	if st.EventActive {
		elapsed := now.Sub(st.EventTime)
		if elapsed < l.cfg.PostEventWindow {
			return ActionPostEventRaw, l.savePostEvent(ctx, station, w, outcome, now, elapsed)
		}
		l.logger.Info("post-event window closed", "station", station, "elapsed", elapsed)
		st.EventActive = false
		st.EventTime = time.Time{}
		st.Ledger.Reset(now)
	}

	if len(w.Samples) == 0 {
		return ActionNone, nil
	}
	st.Ledger.Add(w.Samples)
	if now.Sub(st.Ledger.Start) < l.cfg.AggregationInterval {
		return ActionAggregatedAccumulate, nil
	}

	rec := st.Ledger.Aggregate(l.newID(), station, w.SamplingRate, now)
	if err := l.docs.SaveAggregate(ctx, rec); err != nil {
		return ActionAggregatedFlush, fmt.Errorf("save aggregate %s: %w", rec.ID, err)
	}
	st.Ledger.Reset(now)
	return ActionAggregatedFlush, nil
}

func (l *Lifecycle) saveEventRaw(ctx context.Context, station string, w SampleWindow, outcome DetectionOutcome, now time.Time) error {
	payload, err := EncodeSamples(w.Samples)
	if err != nil {
		return fmt.Errorf("encode event samples for %s: %w", station, err)
	}
	blobID, err := l.blobs.Put(ctx, payload)
	if err != nil {
		return fmt.Errorf("store event blob for %s: %w", station, err)
	}

	rec := EventRecord{
		ID:              l.newID(),
		Kind:            EventTriggered,
		Station:         station,
		Timestamp:       now,
		SamplingRate:    w.SamplingRate,
		DurationSeconds: w.Duration().Seconds(),
		PeakAmplitude:   outcome.Peak,
		RMS:             outcome.RMS,
		BlobID:          blobID,
		BlobSize:        len(payload),
		Filename:        EventFilename(station, now),
	}
	if err := l.docs.SaveEvent(ctx, rec); err != nil {
		l.logger.Warn("event blob stored without record", "station", station, "blob_id", blobID)
		return fmt.Errorf("save event %s: %w", rec.ID, err)
	}
	return nil
}

func (l *Lifecycle) savePostEvent(ctx context.Context, station string, w SampleWindow, outcome DetectionOutcome, now time.Time, elapsed time.Duration) error {
	rec := EventRecord{
		ID:                l.newID(),
		Kind:              EventPost,
		Station:           station,
		Timestamp:         now,
		SamplingRate:      w.SamplingRate,
		DurationSeconds:   w.Duration().Seconds(),
		PeakAmplitude:     outcome.Peak,
		RMS:               outcome.RMS,
		SecondsSinceEvent: elapsed.Seconds(),
	}
	if err := l.docs.SaveEvent(ctx, rec); err != nil {
		return fmt.Errorf("save post-event %s: %w", rec.ID, err)
	}
	return nil
}

// CleanupDue reports whether more than the cleanup interval has elapsed since
// the last sweep.
func (l *Lifecycle) CleanupDue() bool {
	return l.clock.Since(l.lastCleanup) > l.cfg.CleanupInterval
}

// Cleanup removes raw event records older than the retention age, then caps
// each station at MaxRawPerStation records, newest first. Blobs are content
// addressed and may be shared, so a blob is removed only when no surviving
// record references it, just before the last doomed record that does.
// Individual failures are logged and skipped; only a failure to list records
// aborts the sweep. The cleanup timer is reset either way.
func (l *Lifecycle) Cleanup(ctx context.Context) (CleanupReport, error) {
	now := l.clock.Now()
	l.lastCleanup = now

	var report CleanupReport
	records, err := l.docs.ListEvents(ctx)
	if err != nil {
		return report, fmt.Errorf("list event records: %w", err)
	}
	report.Scanned = len(records)

	cutoff := now.Add(-l.cfg.RetentionAge)
	retained := make(map[string]bool)
	var expired []EventRecord
	byStation := make(map[string][]EventRecord)
	for _, rec := range records {
		if !l.wellFormed(rec) {
			report.Malformed++
			retained[rec.BlobID] = true
			continue
		}
		if rec.Timestamp.Before(cutoff) {
			expired = append(expired, rec)
			continue
		}
		byStation[rec.Station] = append(byStation[rec.Station], rec)
	}

	stations := make([]string, 0, len(byStation))
	for s := range byStation {
		stations = append(stations, s)
	}
	sort.Strings(stations)

	var overflow []EventRecord
	for _, station := range stations {
		recs := byStation[station]
		sort.Slice(recs, func(i, j int) bool {
			if !recs[i].Timestamp.Equal(recs[j].Timestamp) {
				return recs[i].Timestamp.After(recs[j].Timestamp)
			}
			return recs[i].ID > recs[j].ID
		})
		keep := min(len(recs), l.cfg.MaxRawPerStation)
		for _, rec := range recs[:keep] {
			retained[rec.BlobID] = true
		}
		overflow = append(overflow, recs[keep:]...)
	}

	pending := make(map[string]int)
	for _, rec := range expired {
		pending[rec.BlobID]++
	}
	for _, rec := range overflow {
		pending[rec.BlobID]++
	}

	for _, rec := range expired {
		if l.deleteEvent(ctx, rec, "age", retained, pending) {
			report.DeletedByAge++
		} else {
			report.Failures++
		}
	}
	for _, rec := range overflow {
		if l.deleteEvent(ctx, rec, "count", retained, pending) {
			report.DeletedByCount++
		} else {
			report.Failures++
		}
	}

	l.logger.Info("retention cleanup complete",
		"scanned", report.Scanned,
		"deleted_by_age", report.DeletedByAge,
		"deleted_by_count", report.DeletedByCount,
		"failures", report.Failures,
		"malformed", report.Malformed,
	)
	return report, nil
}

// wellFormed logs records whose shape does not match what Record writes.
// Records without an id, station or timestamp cannot be classified and are left alone.
func (l *Lifecycle) wellFormed(rec EventRecord) bool {
	switch {
	case rec.ID == "":
		l.logger.Error("event record without id", "station", rec.Station, "timestamp", rec.Timestamp)
		return false
	case rec.Station == "" || rec.Timestamp.IsZero():
		l.logger.Error("event record missing station or timestamp", "record_id", rec.ID)
		return false
	case rec.Kind == EventTriggered && rec.BlobID == "":
		l.logger.Warn("triggered event record has no blob reference", "record_id", rec.ID, "station", rec.Station)
	case rec.Kind == EventPost && rec.BlobID != "":
		l.logger.Warn("post-event record references a blob", "record_id", rec.ID, "blob_id", rec.BlobID)
	case rec.Kind != EventTriggered && rec.Kind != EventPost:
		l.logger.Warn("event record has unknown event type", "record_id", rec.ID, "event_type", rec.Kind)
	}
	return true
}

// deleteEvent removes rec and, when rec is its last remaining reference, its
// blob. retained holds blob ids of records that survive the sweep; pending
// counts doomed records per blob id. A failure keeps the record and marks its
// blob retained so later deletions leave it in place.
func (l *Lifecycle) deleteEvent(ctx context.Context, rec EventRecord, reason string, retained map[string]bool, pending map[string]int) bool {
	pending[rec.BlobID]--
	if rec.BlobID != "" && !retained[rec.BlobID] && pending[rec.BlobID] == 0 {
		if err := l.blobs.Delete(ctx, rec.BlobID); err != nil && !errors.Is(err, ErrBlobNotFound) {
			l.logger.Error("delete event blob failed",
				"record_id", rec.ID, "blob_id", rec.BlobID, "reason", reason, "error", err)
			retained[rec.BlobID] = true
			return false
		}
	}
	if err := l.docs.DeleteEvent(ctx, rec.ID); err != nil && !errors.Is(err, ErrRecordNotFound) {
		l.logger.Error("delete event record failed", "record_id", rec.ID, "reason", reason, "error", err)
		retained[rec.BlobID] = true
		return false
	}
	l.logger.Debug("event record deleted", "record_id", rec.ID, "station", rec.Station, "reason", reason)
	return true
}
