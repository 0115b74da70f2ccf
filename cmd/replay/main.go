// Command replay runs the detector, picker and epicenter estimator over a
// directory of <STATION>.json fixtures and prints the per-station results and
// the estimate as JSON. Exit status is 2 when no estimate can be made.
//
// Usage:
//
//	go run ./cmd/synthwave -out data/fixtures
//	go run ./cmd/replay -dir data/fixtures
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/seismic-watch-service/internal/adapter/waveform"
	"github.com/couchcryptid/seismic-watch-service/internal/config"
	"github.com/couchcryptid/seismic-watch-service/internal/domain"
)

type stationOutput struct {
	Station   string  `json:"station"`
	HasData   bool    `json:"has_data"`
	Class     string  `json:"class"`
	RMS       float64 `json:"rms"`
	Peak      float64 `json:"peak"`
	Pick      float64 `json:"pick_seconds,omitempty"`
	HasPick   bool    `json:"has_pick"`
	Qualifies bool    `json:"qualifies"`
}

type output struct {
	Stations []stationOutput           `json:"stations"`
	Estimate *domain.EpicenterEstimate `json:"estimate,omitempty"`
	Reason   string                    `json:"reason,omitempty"`
}

type options struct {
	dir       string
	stations  string
	strong    float64
	weak      float64
	threshold float64
}

func main() {
	var opts options
	flag.StringVar(&opts.dir, "dir", "", "fixture directory")
	flag.StringVar(&opts.stations, "stations", "", "station registry YAML (defaults to built-in stations)")
	flag.Float64Var(&opts.strong, "strong", 0.1, "strong RMS threshold")
	flag.Float64Var(&opts.weak, "weak", 0.2, "weak fraction of the strong threshold")
	flag.Float64Var(&opts.threshold, "pick", 0.05, "STA/LTA pick threshold")
	flag.Parse()

	if opts.dir == "" {
		flag.Usage()
		os.Exit(1)
	}
	os.Exit(run(context.Background(), opts, os.Stdout, os.Stderr))
}

func run(ctx context.Context, opts options, stdout, stderr io.Writer) int {
	reg, err := config.LoadStations(opts.stations)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	res, err := replay(ctx, reg, waveform.NewFixtureSource(opts.dir),
		domain.NewDetector(opts.strong, opts.weak), domain.NewPicker(opts.threshold))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if res.Estimate == nil {
		return 2
	}
	return 0
}

func replay(ctx context.Context, reg *domain.Registry, source domain.WaveformSource, det domain.Detector, picker domain.Picker) (output, error) {
	var out output
	results := make(map[string]domain.StationCycleResult, reg.Len())
	for _, st := range reg.Stations() {
		so := stationOutput{Station: st.ID, Class: domain.ClassNone.String()}
		w, err := source.FetchWindow(ctx, domain.WaveformRequest{Station: st.ID})
		switch {
		case errors.Is(err, domain.ErrNoData):
			out.Stations = append(out.Stations, so)
			continue
		case err != nil:
			return output{}, err
		}

		outcome := det.Detect(w)
		r := domain.StationCycleResult{
			Station:       st.ID,
			DataAvailable: true,
			EventDetected: outcome.Detected(),
			Class:         outcome.Class,
			Peak:          outcome.Peak,
			RMS:           outcome.RMS,
			Latitude:      st.Latitude,
			Longitude:     st.Longitude,
		}
		if r.EventDetected {
			r.Pick, r.HasPick = picker.Pick(w, outcome.WindowStart)
			if r.HasPick {
				r.EventTime = w.OffsetTime(r.Pick)
			}
		}
		results[st.ID] = r

		so.HasData = true
		so.Class = outcome.Class.String()
		so.RMS = outcome.RMS
		so.Peak = outcome.Peak
		so.Pick = r.Pick
		so.HasPick = r.HasPick
		so.Qualifies = r.Qualifies()
		out.Stations = append(out.Stations, so)
	}

	est, err := domain.Estimate(results)
	if err != nil {
		out.Reason = err.Error()
		return out, nil
	}
	out.Estimate = &est
	return out, nil
}
