package domain

import (
	"context"
	"log/slog"
)

// NameEpicenter attaches a place name to the estimate. If geocoder is nil or
// the lookup fails, the estimate is returned unnamed.
func NameEpicenter(ctx context.Context, est EpicenterEstimate, geocoder ReverseGeocoder, logger *slog.Logger) EpicenterEstimate {
	if geocoder == nil {
		return est
	}

	result, err := geocoder.ReverseGeocode(ctx, est.Latitude, est.Longitude)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"lat", est.Latitude,
			"lon", est.Longitude,
			"error", err,
		)
		return est
	}
	switch {
	case result.FormattedAddress != "":
		est.PlaceName = result.FormattedAddress
	case result.PlaceName != "":
		est.PlaceName = result.PlaceName
	}
	return est
}
