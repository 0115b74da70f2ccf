package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLedger_AddAndStats(t *testing.T) {
	var l Ledger
	l.Reset(testStart)
	l.Add([]float64{1, 2, 3})
	l.Add([]float64{-4})

	assert.Equal(t, 4, l.Count)
	assert.Equal(t, 2, l.Windows)
	assert.Equal(t, -4.0, l.Min)
	assert.Equal(t, 3.0, l.Max)

	mean, std := l.Stats()
	assert.InDelta(t, 0.5, mean, 1e-12)
	// sumsq/n = 30/4 = 7.5, mean² = 0.25
	assert.InDelta(t, 2.692582403567252, std, 1e-12)
}

func TestLedger_VarianceClampedAtZero(t *testing.T) {
	var l Ledger
	l.Add([]float64{0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1})

	_, std := l.Stats()
	assert.GreaterOrEqual(t, std, 0.0)
	assert.InDelta(t, 0, std, 1e-6)
}

func TestLedger_EmptyStats(t *testing.T) {
	var l Ledger
	mean, std := l.Stats()
	assert.Zero(t, mean)
	assert.Zero(t, std)
}

func TestLedger_ResetClears(t *testing.T) {
	var l Ledger
	l.Add([]float64{5, 6})
	next := testStart.Add(time.Hour)
	l.Reset(next)

	assert.Equal(t, Ledger{Start: next}, l)
}

func TestLedger_Aggregate(t *testing.T) {
	var l Ledger
	l.Reset(testStart)
	l.Add([]float64{2, 4})
	end := testStart.Add(5 * time.Minute)

	rec := l.Aggregate("agg-1", "SACR", 100, end)

	assert.Equal(t, "agg-1", rec.ID)
	assert.Equal(t, "SACR", rec.Station)
	assert.Equal(t, testStart, rec.Start)
	assert.Equal(t, end, rec.End)
	assert.Equal(t, 300.0, rec.DurationSeconds)
	assert.Equal(t, 2, rec.SampleCount)
	assert.Equal(t, 1, rec.Windows)
	assert.Equal(t, 3.0, rec.Mean)
	assert.Equal(t, 1.0, rec.StdDev)
	assert.Equal(t, 2.0, rec.Min)
	assert.Equal(t, 4.0, rec.Max)
}
