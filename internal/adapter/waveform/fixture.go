package waveform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/seismic-watch-service/internal/domain"
)

// Fixture is the gateway's JSON window shape. Offline tools store one per
// station as <STATION>.json.
type Fixture struct {
	Station      string    `json:"station"`
	SamplingRate float64   `json:"sampling_rate"`
	Start        time.Time `json:"start"`
	Samples      []float64 `json:"samples"`
}

// FixtureFrom converts a window into its wire shape.
func FixtureFrom(w domain.SampleWindow) Fixture {
	return Fixture{Station: w.Station, SamplingRate: w.SamplingRate, Start: w.Start.UTC(), Samples: w.Samples}
}

// Window converts the fixture back into a sample window.
func (f Fixture) Window() domain.SampleWindow {
	return domain.SampleWindow{Station: f.Station, SamplingRate: f.SamplingRate, Samples: f.Samples, Start: f.Start}
}

// WriteFixture stores w as dir/<station>.json.
func WriteFixture(dir string, w domain.SampleWindow) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(FixtureFrom(w))
	if err != nil {
		return fmt.Errorf("marshal fixture %s: %w", w.Station, err)
	}
	return os.WriteFile(filepath.Join(dir, w.Station+".json"), data, 0o600)
}

// FixtureSource serves windows from a fixture directory. The request's time
// range is ignored; a missing file is domain.ErrNoData.
type FixtureSource struct {
	dir string
}

// NewFixtureSource reads fixtures from dir.
func NewFixtureSource(dir string) *FixtureSource {
	return &FixtureSource{dir: dir}
}

// FetchWindow loads the station's fixture.
func (s *FixtureSource) FetchWindow(_ context.Context, req domain.WaveformRequest) (domain.SampleWindow, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, req.Station+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.SampleWindow{}, fmt.Errorf("%s: %w", req.Station, domain.ErrNoData)
	}
	if err != nil {
		return domain.SampleWindow{}, err
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return domain.SampleWindow{}, fmt.Errorf("decode fixture %s: %w", req.Station, err)
	}
	if len(f.Samples) == 0 {
		return domain.SampleWindow{}, fmt.Errorf("%s: %w", req.Station, domain.ErrNoData)
	}
	if f.SamplingRate <= 0 {
		return domain.SampleWindow{}, fmt.Errorf("fixture %s: invalid sampling rate %v", req.Station, f.SamplingRate)
	}
	w := f.Window()
	w.Station = req.Station
	return w, nil
}
