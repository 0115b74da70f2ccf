package mapbox

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/seismic-watch-service/internal/domain"
)

type countingGeocoder struct {
	calls  int
	result domain.GeocodingResult
	err    error
}

func (m *countingGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (domain.GeocodingResult, error) {
	m.calls++
	return m.result, m.err
}

func TestCachedGeocoder_CacheHit(t *testing.T) {
	inner := &countingGeocoder{result: domain.GeocodingResult{FormattedAddress: "Trivento, Molise, Italy"}}
	m := testMetrics()
	cached := NewCachedGeocoder(inner, 10, m)

	_, err := cached.ReverseGeocode(context.Background(), 41.7666, 14.5502)
	require.NoError(t, err)
	r2, err := cached.ReverseGeocode(context.Background(), 41.7666, 14.5502)
	require.NoError(t, err)

	assert.Equal(t, "Trivento, Molise, Italy", r2.FormattedAddress)
	assert.Equal(t, 1, inner.calls, "should only call inner once")
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.GeocodeCache.WithLabelValues("hit")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.GeocodeCache.WithLabelValues("miss")), 1e-9)
}

func TestCachedGeocoder_NearbyCoordinatesShareEntry(t *testing.T) {
	inner := &countingGeocoder{result: domain.GeocodingResult{FormattedAddress: "Campobasso"}}
	cached := NewCachedGeocoder(inner, 10, testMetrics())

	_, _ = cached.ReverseGeocode(context.Background(), 41.58301, 14.71204)
	_, _ = cached.ReverseGeocode(context.Background(), 41.58299, 14.71196)

	assert.Equal(t, 1, inner.calls)
}

func TestCachedGeocoder_DifferentKeysMiss(t *testing.T) {
	inner := &countingGeocoder{result: domain.GeocodingResult{FormattedAddress: "Place"}}
	cached := NewCachedGeocoder(inner, 10, testMetrics())

	_, _ = cached.ReverseGeocode(context.Background(), 41.58, 14.71)
	_, _ = cached.ReverseGeocode(context.Background(), 41.40, 14.71)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedGeocoder_EmptyAndErrorResultsNotCached(t *testing.T) {
	inner := &countingGeocoder{}
	cached := NewCachedGeocoder(inner, 10, testMetrics())

	_, _ = cached.ReverseGeocode(context.Background(), 41.58, 14.71)
	_, _ = cached.ReverseGeocode(context.Background(), 41.58, 14.71)
	assert.Equal(t, 2, inner.calls)

	inner.err = errors.New("timeout")
	_, err := cached.ReverseGeocode(context.Background(), 41.58, 14.71)
	require.Error(t, err)
	assert.Equal(t, 0, cached.Len())
}

func TestCacheKey_RoundsToThousandthDegree(t *testing.T) {
	assert.Equal(t, "rev:41.583,14.712", cacheKey(41.58301, 14.71204))
	assert.Equal(t, cacheKey(41.58301, 14.71204), cacheKey(41.58299, 14.71196))
	assert.NotEqual(t, cacheKey(41.583, 14.712), cacheKey(41.584, 14.712))
	assert.Equal(t, "rev:-33.450,-70.667", cacheKey(-33.45, -70.6667))
}

func TestCachedGeocoder_PlaceNameOnlyResultCached(t *testing.T) {
	inner := &countingGeocoder{result: domain.GeocodingResult{PlaceName: "Lucito"}}
	cached := NewCachedGeocoder(inner, 10, testMetrics())

	first, err := cached.ReverseGeocode(context.Background(), 41.73, 14.69)
	require.NoError(t, err)
	second, err := cached.ReverseGeocode(context.Background(), 41.73, 14.69)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, "Lucito", second.PlaceName)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, cached.Len())
}

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache(3)

	c.put("a", domain.GeocodingResult{PlaceName: "A"})
	c.put("b", domain.GeocodingResult{PlaceName: "B"})

	result, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A", result.PlaceName)

	_, ok = c.get("missing")
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", domain.GeocodingResult{PlaceName: "A"})
	c.put("b", domain.GeocodingResult{PlaceName: "B"})
	c.put("c", domain.GeocodingResult{PlaceName: "C"}) // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")
	assert.Equal(t, 2, c.len())

	result, ok := c.get("c")
	assert.True(t, ok)
	assert.Equal(t, "C", result.PlaceName)
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", domain.GeocodingResult{PlaceName: "A"})
	c.put("b", domain.GeocodingResult{PlaceName: "B"})
	c.get("a")
	c.put("c", domain.GeocodingResult{PlaceName: "C"})

	_, ok := c.get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")
	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", domain.GeocodingResult{PlaceName: "A1"})
	c.put("a", domain.GeocodingResult{PlaceName: "A2"})

	result, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A2", result.PlaceName)
	assert.Equal(t, 1, c.len())
}
