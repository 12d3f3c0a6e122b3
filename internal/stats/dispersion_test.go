package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateDispersionSingleSubgroupFallsBack(t *testing.T) {
	values := []float64{10, 20, 30, 40, 50}
	d, err := EstimateDispersion(values, 5)
	require.NoError(t, err)
	assert.InDelta(t, 30, Mean(values), 1e-9)
	assert.InDelta(t, 15.8114, d.Overall, 1e-3)
	assert.InDelta(t, 15.8114, d.Within, 1e-3)
}

func TestEstimateDispersionMovingRange(t *testing.T) {
	values := []float64{1, 3, 2, 4}
	d, err := EstimateDispersion(values, 1)
	require.NoError(t, err)
	// Successive differences 2, -1, 2: sum of squares 9 over 2(n-1)=6.
	want := math.Sqrt(9.0/6.0) / C4Prime(4)
	assert.InDelta(t, want, d.Within, 1e-12)
	assert.InDelta(t, SampleStdDev(values), d.Overall, 1e-12)
}

func TestEstimateDispersionPooled(t *testing.T) {
	values := []float64{1, 2, 3, 10, 12, 14, 99}
	d, err := EstimateDispersion(values, 3)
	require.NoError(t, err)
	// Subgroup variances 1 and 4 with 2 df each; the trailing 99 is dropped.
	assert.InDelta(t, math.Sqrt(2.5), d.Within, 1e-12)
	assert.InDelta(t, SampleStdDev(values), d.Overall, 1e-12)
}

func TestEstimateDispersionFloor(t *testing.T) {
	d, err := EstimateDispersion([]float64{5, 5, 5, 5}, 1)
	require.NoError(t, err)
	assert.Equal(t, MinStdDev, d.Overall)
	assert.Equal(t, MinStdDev, d.Within)

	d, err = EstimateDispersion([]float64{5, 5, 5, 5, 5, 5}, 3)
	require.NoError(t, err)
	assert.Equal(t, MinStdDev, d.Within)
}

func TestEstimateDispersionTooFewValues(t *testing.T) {
	_, err := EstimateDispersion([]float64{1}, 1)
	assert.ErrorIs(t, err, ErrTooFewValues)
	_, err = EstimateDispersion(nil, 5)
	assert.ErrorIs(t, err, ErrTooFewValues)
}
