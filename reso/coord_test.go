package reso

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestParseCoord(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Coord
	}{
		{"theta", Theta},
		{"ETA", Eta},
		{" Phi ", Phi},
	} {
		c, err := ParseCoord(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, c)
	}

	_, err := ParseCoord("rapidity")
	assert.ErrorIs(t, err, ErrUnknownCoord)

	_, err = ParseClusterCoord("theta")
	assert.ErrorIs(t, err, ErrUnknownCoord)
	c, err := ParseClusterCoord("eta")
	require.NoError(t, err)
	assert.Equal(t, Eta, c)
}

func TestCoordOf(t *testing.T) {
	v := r3.Vec{X: 1, Y: 1, Z: math.Sqrt2}
	assert.InDelta(t, math.Pi/4, Theta.Of(v), 1e-12)
	assert.InDelta(t, math.Pi/4, Phi.Of(v), 1e-12)
	assert.InDelta(t, -math.Log(math.Tan(math.Pi/8)), Eta.Of(v), 1e-12)

	// transverse
	v = r3.Vec{X: 0, Y: -2, Z: 0}
	assert.InDelta(t, math.Pi/2, Theta.Of(v), 1e-12)
	assert.InDelta(t, -math.Pi/2, Phi.Of(v), 1e-12)
	assert.InDelta(t, 0, Eta.Of(v), 1e-12)

	// beam axis
	v = r3.Vec{Z: 5}
	assert.Equal(t, 0., Theta.Of(v))
	assert.Equal(t, 0., Phi.Of(v))
	assert.True(t, Eta.Of(v) > 1e4)
	assert.False(t, math.IsInf(Eta.Of(v), 0))
	assert.True(t, Eta.Of(r3.Vec{Z: -5}) < -1e4)

	assert.Panics(t, func() { Coord(0).Of(v) })
}

func TestRelativeZeroTruth(t *testing.T) {
	r := Relative(1e-16, 0)
	assert.False(t, math.IsInf(r, 0))
	assert.False(t, math.IsNaN(r))
	assert.InDelta(t, (1e-16-epsilon)/epsilon, r, 1e-9)

	assert.Equal(t, -1., Relative(0, 0))
	assert.InDelta(t, 0.1, Relative(1.1, 1), 1e-12)
	assert.InDelta(t, -0.5, Relative(-1, -2), 1e-12)
}
