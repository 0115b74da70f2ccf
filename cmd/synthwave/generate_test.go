package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/seismic-watch-service/internal/adapter/waveform"
	"github.com/couchcryptid/seismic-watch-service/internal/domain"
	"github.com/couchcryptid/seismic-watch-service/internal/observability"
)

var fixtureStart = time.Date(2026, time.January, 10, 3, 0, 0, 0, time.UTC)

func TestParseDelays(t *testing.T) {
	got, err := parseDelays("TRIV=0, SACR=0.5,CIGN=1.2")
	require.NoError(t, err)
	assert.Equal(t, map[string]time.Duration{
		"TRIV": 0,
		"SACR": 500 * time.Millisecond,
		"CIGN": 1200 * time.Millisecond,
	}, got)

	for _, bad := range []string{"", "TRIV", "TRIV=x", "TRIV=-1"} {
		_, err := parseDelays(bad)
		assert.Error(t, err, bad)
	}
}

func TestSignalWindow_DelaysSurviveDetectAndPick(t *testing.T) {
	sig := defaultSignal()
	det := domain.NewDetector(0.1, 0.2)
	picker := domain.NewPicker(0.05)

	picks := make(map[string]float64)
	for id, delay := range map[string]time.Duration{"A": 0, "B": 700 * time.Millisecond} {
		w := sig.window(id, fixtureStart, 30*time.Second, delay, stationRNG(1, id))
		require.Len(t, w.Samples, 3000)

		outcome := det.Detect(w)
		require.Equal(t, domain.ClassStrong, outcome.Class, id)
		pick, ok := picker.Pick(w, outcome.WindowStart)
		require.True(t, ok, id)
		picks[id] = pick
	}
	assert.InDelta(t, 0.7, picks["B"]-picks["A"], 0.011)
}

func TestGatewayHandler_ServesClientCompatibleWindows(t *testing.T) {
	srv := httptest.NewServer(gatewayHandler(defaultSignal(), map[string]time.Duration{"TRIV": 0}, 1))
	defer srv.Close()

	client := waveform.NewClient(srv.URL, 5*time.Second, discardLogger(), observability.NewMetricsForTesting())
	w, err := client.FetchWindow(context.Background(), domain.WaveformRequest{
		Station: "TRIV", Start: fixtureStart, Duration: 30 * time.Second,
	})
	require.NoError(t, err)
	assert.Len(t, w.Samples, 3000)
	assert.True(t, fixtureStart.Equal(w.Start))

	_, err = client.FetchWindow(context.Background(), domain.WaveformRequest{
		Station: "NOPE", Start: fixtureStart, Duration: 30 * time.Second,
	})
	require.ErrorIs(t, err, domain.ErrNoData)
}

func TestGatewayHandler_RejectsBadDuration(t *testing.T) {
	h := gatewayHandler(defaultSignal(), map[string]time.Duration{"TRIV": 0}, 1)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/waveform?station=TRIV&start=2026-01-10T03:00:00Z&duration=abc", nil)
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "invalid duration", body["error"])
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
