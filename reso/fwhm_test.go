package reso

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fwhmFactor = 2 * math.Sqrt(2*math.Ln2)

func TestFWHMGauss(t *testing.T) {
	r := FitResult{Shape: Gaus, Params: []float64{10, 0.03, 0.01}}
	w, err := FWHM(r, -0.2, 0.2)
	require.NoError(t, err)
	assert.InDelta(t, fwhmFactor*0.01, w.FWHM, 1e-9)
	assert.InDelta(t, 0.03, w.Peak, 1e-7)
	assert.InDelta(t, 10, w.Max, 1e-9)
	assert.InDelta(t, w.Peak-w.Left, w.Right-w.Peak, 1e-8)
}

func TestFWHMGauss2(t *testing.T) {
	// two components with the same width behave as one Gaussian
	r := FitResult{Shape: Gaus2, Params: []float64{3, 0, 0.02, 1, 0, 0.02}}
	w, err := FWHM(r, -0.2, 0.2)
	require.NoError(t, err)
	assert.InDelta(t, fwhmFactor*0.02, w.FWHM, 1e-9)
	assert.InDelta(t, 4, w.Max, 1e-9)

	// a wide tail makes the width larger than the core alone
	r = FitResult{Shape: Gaus2, Params: []float64{3, 0, 0.01, 1, 0, 0.05}}
	w, err = FWHM(r, -0.2, 0.2)
	require.NoError(t, err)
	assert.Greater(t, w.FWHM, fwhmFactor*0.01)
	assert.Less(t, w.FWHM, fwhmFactor*0.05)
	assert.InDelta(t, r.Eval(0)/2, r.Eval(w.Right), 1e-9)
	assert.InDelta(t, r.Eval(0)/2, r.Eval(w.Left), 1e-9)
}

func TestFWHMNoHalfMax(t *testing.T) {
	r := FitResult{Shape: Gaus, Params: []float64{1, 0, 0.1}}
	w, err := FWHM(r, -0.05, 0.05)
	assert.ErrorIs(t, err, ErrNoHalfMax)
	assert.Equal(t, -0.05, w.Left)
	assert.Equal(t, 0.05, w.Right)
	assert.InDelta(t, 0.1, w.FWHM, 1e-12)

	_, err = FWHM(r, 1, 1)
	assert.ErrorIs(t, err, ErrEmptyDist)
}
