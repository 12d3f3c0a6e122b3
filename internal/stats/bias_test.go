package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestC4PrimeTable(t *testing.T) {
	assert.InDelta(t, 0.797850, C4Prime(2), 1e-9)
	assert.InDelta(t, 0.996145, C4Prime(100), 1e-9)
	assert.Equal(t, 1.0, C4Prime(1))
	assert.Equal(t, 1.0, C4Prime(0))

	for n := 3; n <= 100; n++ {
		if C4Prime(n) <= C4Prime(n-1) {
			t.Fatalf("c4'(%d)=%f not above c4'(%d)=%f", n, C4Prime(n), n-1, C4Prime(n-1))
		}
	}
}

func TestC4PrimeAsymptotic(t *testing.T) {
	n := 200.0
	want := 1 - 1/(4*n) - 3/(32*n*n)
	assert.InDelta(t, want, C4Prime(200), 1e-12)
	assert.Greater(t, C4Prime(101), C4Prime(100)-1e-3)
	assert.Less(t, C4Prime(100000), 1.0)
	assert.InDelta(t, 1.0, C4Prime(100000), 1e-5)
}

func TestBiasTableInterpolates(t *testing.T) {
	table := NewBiasTable(map[int]float64{2: 0.8, 6: 0.9})
	assert.InDelta(t, 0.8, table.Correction(2), 1e-12)
	assert.InDelta(t, 0.825, table.Correction(3), 1e-12)
	assert.InDelta(t, 0.85, table.Correction(4), 1e-12)
	assert.InDelta(t, 0.9, table.Correction(6), 1e-12)
	assert.Equal(t, 1.0, table.Correction(1))
}
