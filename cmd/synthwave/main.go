// Command synthwave renders synthetic station windows with a seismic arrival
// at per-station delays. It either writes them as fixtures for cmd/replay or
// serves them as a local waveform gateway for the monitoring service.
//
// Usage:
//
//	go run ./cmd/synthwave -out data/fixtures -delays TRIV=0,SACR=0.5,CIGN=1.2
//	go run ./cmd/synthwave -serve :8090 -delays TRIV=0,SACR=0.5,CIGN=1.2
//
// Noise raises the STA/LTA ratio everywhere, so picks are only meaningful with
// -noise well below the arrival amplitude.
package main

import (
	"errors"
	"flag"
	"fmt"
	"hash/fnv"
	"log"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/seismic-watch-service/internal/adapter/waveform"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "directory to write <STATION>.json fixtures into")
	serve := flag.String("serve", "", "listen address for gateway mode, e.g. :8090")
	delaysFlag := flag.String("delays", "TRIV=0,SACR=0.5,CIGN=1.2", "per-station arrival delays in seconds")
	span := flag.Duration("span", 30*time.Second, "window length for fixtures")
	startFlag := flag.String("start", "", "fixture window start (RFC 3339); defaults to 5 minutes ago")
	sig := defaultSignal()
	flag.Float64Var(&sig.Rate, "rate", sig.Rate, "sampling rate in Hz")
	flag.Float64Var(&sig.Amplitude, "amp", sig.Amplitude, "arrival peak amplitude")
	flag.Float64Var(&sig.Noise, "noise", 0, "gaussian noise standard deviation")
	seed := flag.Uint64("seed", 1, "noise seed")
	flag.Parse()

	if (*out == "") == (*serve == "") {
		flag.Usage()
		return errors.New("exactly one of -out or -serve is required")
	}
	delays, err := parseDelays(*delaysFlag)
	if err != nil {
		return err
	}

	if *serve != "" {
		log.Printf("serving synthetic waveforms on %s for %v", *serve, sortedStations(delays))
		srv := &http.Server{
			Addr:              *serve,
			Handler:           gatewayHandler(sig, delays, *seed),
			ReadHeaderTimeout: 5 * time.Second,
		}
		return srv.ListenAndServe()
	}

	start := time.Now().UTC().Add(-5*time.Minute - *span)
	if *startFlag != "" {
		if start, err = time.Parse(time.RFC3339, *startFlag); err != nil {
			return fmt.Errorf("invalid -start: %w", err)
		}
	}
	for _, id := range sortedStations(delays) {
		w := sig.window(id, start, *span, delays[id], stationRNG(*seed, id))
		if err := waveform.WriteFixture(*out, w); err != nil {
			return fmt.Errorf("write fixture %s: %w", id, err)
		}
		log.Printf("%s: %d samples, arrival +%v", id, len(w.Samples), delays[id])
	}
	return nil
}

// gatewayHandler answers GET /waveform the way the upstream gateway does.
// Unknown stations get 404.
func gatewayHandler(sig signal, delays map[string]time.Duration, seed uint64) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /waveform", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		station := q.Get("station")
		delay, ok := delays[station]
		if !ok {
			sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "unknown station"})
			return
		}
		start, err := time.Parse(time.RFC3339Nano, q.Get("start"))
		if err != nil {
			sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start"})
			return
		}
		secs, err := strconv.ParseFloat(q.Get("duration"), 64)
		if err != nil || secs <= 0 {
			sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid duration"})
			return
		}
		span := time.Duration(secs * float64(time.Second))
		window := sig.window(station, start, span, delay, stationRNG(seed, station))
		sharedobs.WriteJSON(w, http.StatusOK, waveform.FixtureFrom(window))
	})
	return mux
}

func stationRNG(seed uint64, station string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(station))
	return rand.New(rand.NewPCG(seed, h.Sum64()))
}
