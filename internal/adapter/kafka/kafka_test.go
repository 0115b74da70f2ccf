package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/seismic-watch-service/internal/config"
	"github.com/couchcryptid/seismic-watch-service/internal/domain"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var eventTime = time.Date(2025, 3, 14, 9, 30, 12, 250_000_000, time.UTC)

func testEstimate() domain.EpicenterEstimate {
	return domain.EpicenterEstimate{
		Timestamp:       eventTime,
		Latitude:        41.6,
		Longitude:       14.7,
		Uncertainty:     0.2,
		Stations:        []string{"TRIV", "SACR", "CIGN"},
		TimeDifferences: map[string]float64{"TRIV": 0, "SACR": 1, "CIGN": 2},
	}
}

func TestEstimateMessage(t *testing.T) {
	msg, err := estimateMessage(testEstimate())
	require.NoError(t, err)

	assert.Equal(t, []byte("2025-03-14T09:30:12.25Z"), msg.Key)
	assert.Contains(t, string(msg.Value), `"latitude":41.6`)
	assert.Contains(t, string(msg.Value), `"time_differences"`)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "record_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("triangulation_result"), msg.Headers[0].Value)
	assert.Equal(t, "event_time", msg.Headers[1].Key)
}

func TestNoticeMessage(t *testing.T) {
	msg, err := noticeMessage(domain.EventNotice{
		Station:   "SACR",
		Timestamp: eventTime,
		Peak:      900,
		RMS:       0.3,
		Duration:  3500 * time.Millisecond,
		Latitude:  41.3974,
		Longitude: 14.7057,
	})
	require.NoError(t, err)

	assert.Equal(t, []byte("SACR"), msg.Key)
	assert.Contains(t, string(msg.Value), `"duration":3.5`)
	assert.Equal(t, []byte("event_notice"), msg.Headers[0].Value)
}

func TestWriter_PublishEstimate(t *testing.T) {
	fw := &fakeWriter{}
	w := &Writer{writer: fw, logger: discardLogger()}

	require.NoError(t, w.PublishEstimate(context.Background(), testEstimate()))
	require.Len(t, fw.msgs, 1)
	assert.Equal(t, []byte("2025-03-14T09:30:12.25Z"), fw.msgs[0].Key)

	require.NoError(t, w.Close())
	assert.True(t, fw.closed)
}

func TestWriter_PublishErrorIsWrapped(t *testing.T) {
	brokerDown := errors.New("dial tcp: connection refused")
	w := &Writer{writer: &fakeWriter{err: brokerDown}, logger: discardLogger()}

	err := w.PublishEstimate(context.Background(), testEstimate())
	require.ErrorIs(t, err, brokerDown)

	err = w.PublishEvent(context.Background(), domain.EventNotice{Station: "TRIV"})
	require.ErrorIs(t, err, brokerDown)
	assert.Contains(t, err.Error(), "TRIV")
}

func TestNewWriter_UsesConfiguredTopic(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "seismic-epicenters"}
	w := NewWriter(cfg, discardLogger())

	kw, ok := w.writer.(*kafkago.Writer)
	require.True(t, ok)
	assert.Equal(t, "seismic-epicenters", kw.Topic)
	require.NoError(t, w.Close())
}
