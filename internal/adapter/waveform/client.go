// Package waveform fetches station sample windows from an HTTP waveform
// gateway that fronts the seismic archive.
package waveform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/seismic-watch-service/internal/domain"
	"github.com/couchcryptid/seismic-watch-service/internal/observability"
)

// Client implements domain.WaveformSource against GET {base}/waveform.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a waveform gateway client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		metrics:    metrics,
	}
}

// FetchWindow requests one window. A 404 or an empty sample set is domain.ErrNoData.
func (c *Client) FetchWindow(ctx context.Context, req domain.WaveformRequest) (domain.SampleWindow, error) {
	params := url.Values{
		"network":  {req.Network},
		"station":  {req.Station},
		"location": {req.Location},
		"channel":  {req.Channel},
		"start":    {req.Start.UTC().Format(time.RFC3339Nano)},
		"duration": {strconv.FormatFloat(req.Duration.Seconds(), 'f', -1, 64)},
	}
	fullURL := c.baseURL + "/waveform?" + params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.SampleWindow{}, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	c.metrics.WaveformDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return domain.SampleWindow{}, fmt.Errorf("waveform request for %s: %w", req.Station, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent:
		return domain.SampleWindow{}, fmt.Errorf("%s: %w", req.Station, domain.ErrNoData)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.SampleWindow{}, fmt.Errorf("waveform gateway error: status %d: %s", resp.StatusCode, body)
	}

	var payload Fixture
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.SampleWindow{}, fmt.Errorf("decode waveform for %s: %w", req.Station, err)
	}
	if len(payload.Samples) == 0 {
		return domain.SampleWindow{}, fmt.Errorf("%s: %w", req.Station, domain.ErrNoData)
	}
	if payload.SamplingRate <= 0 {
		return domain.SampleWindow{}, fmt.Errorf("waveform for %s: invalid sampling rate %v", req.Station, payload.SamplingRate)
	}

	w := domain.SampleWindow{
		Station:      req.Station,
		SamplingRate: payload.SamplingRate,
		Samples:      payload.Samples,
		Start:        payload.Start,
	}
	if w.Start.IsZero() {
		w.Start = req.Start
	}
	c.logger.Debug("waveform fetched",
		"station", req.Station,
		"samples", len(w.Samples),
		"sampling_rate", w.SamplingRate,
	)
	return w, nil
}
