// Package domain models single-channel seismic monitoring: station metadata,
// per-station event detection, onset picking, multi-station epicenter
// estimation and the retention lifecycle of persisted measurements.
//
// # Data Source
//
// Sample windows come from an FDSN-style waveform gateway. Each request names a
// network (default "IV"), a station code, a channel (default "HHZ") and a UTC
// time range. The gateway returns a detrended, band-pass filtered series at the
// stream's native sampling rate (100 Hz for the default network). Requests end a
// fixed latency before "now" because upstream publication lags real time.
//
// # Detection
//
// The detector looks only at the trailing [DetectionWindow] of a window:
//
//	RMS >= strong threshold                  → strong
//	RMS >= weak fraction × strong threshold  → weak
//	otherwise                                → none
//
// Windows shorter than [DetectionWindow] are always "none".
//
// # Onset Picking
//
// The picker runs a short-term/long-term average ratio over squared amplitude
// (0.5 s and 5 s, centered moving averages with zero padding at the edges)
// starting at the detector's trigger offset. The earliest index whose ratio
// exceeds the pick threshold wins; the result is seconds from window start.
//
// # Epicenter Estimation
//
// At least [MinQuorum] stations with a detection and a pick are required. The
// earliest pick is the reference; every station is weighted 1/(|Δt| + 0.01) and
// the epicenter is the weighted centroid of station coordinates. Uncertainty is
// the sum of the population standard deviations of latitude and longitude. This
// is a coarse heuristic, not a travel-time inversion.
//
// # Retention
//
// Per station, a strong detection persists the raw samples (gzip-compressed,
// content-addressed) and opens a post-event window during which only metadata
// is stored. Quiet periods are folded into a running [Ledger] and flushed as one
// aggregated record per aggregation interval. A time-gated sweep removes raw
// event records past the retention age and caps each station's raw records.
package domain
