package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/seismic-watch-service/internal/config"
	"github.com/couchcryptid/seismic-watch-service/internal/domain"
)

const (
	recordEstimate = "triangulation_result"
	recordNotice   = "event_notice"
)

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer fans epicenter estimates and event notices out to a Kafka topic.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishEstimate writes est keyed by its event timestamp, so replays of the
// same estimate land on the same partition.
func (w *Writer) PublishEstimate(ctx context.Context, est domain.EpicenterEstimate) error {
	msg, err := estimateMessage(est)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish estimate %s: %w", est.Timestamp.Format(time.RFC3339Nano), err)
	}
	w.logger.Debug("estimate published", "timestamp", est.Timestamp)
	return nil
}

// PublishEvent writes a station event notice keyed by station id.
func (w *Writer) PublishEvent(ctx context.Context, n domain.EventNotice) error {
	msg, err := noticeMessage(n)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish event notice for %s: %w", n.Station, err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func estimateMessage(est domain.EpicenterEstimate) (kafkago.Message, error) {
	data, err := json.Marshal(est)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize estimate: %w", err)
	}
	ts := est.Timestamp.UTC().Format(time.RFC3339Nano)
	return kafkago.Message{
		Key:   []byte(ts),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "record_type", Value: []byte(recordEstimate)},
			{Key: "event_time", Value: []byte(ts)},
		},
	}, nil
}

type noticePayload struct {
	Station         string    `json:"station"`
	StationName     string    `json:"station_name,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	Peak            float64   `json:"peak"`
	RMS             float64   `json:"rms"`
	DurationSeconds float64   `json:"duration"`
	Latitude        float64   `json:"lat"`
	Longitude       float64   `json:"lon"`
}

func noticeMessage(n domain.EventNotice) (kafkago.Message, error) {
	data, err := json.Marshal(noticePayload{
		Station:         n.Station,
		StationName:     n.StationName,
		Timestamp:       n.Timestamp.UTC(),
		Peak:            n.Peak,
		RMS:             n.RMS,
		DurationSeconds: n.Duration.Seconds(),
		Latitude:        n.Latitude,
		Longitude:       n.Longitude,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize event notice: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(n.Station),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "record_type", Value: []byte(recordNotice)},
			{Key: "event_time", Value: []byte(n.Timestamp.UTC().Format(time.RFC3339Nano))},
		},
	}, nil
}
