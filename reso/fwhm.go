package reso

import (
	"errors"
	"math"
)

var ErrNoHalfMax = errors.New("reso: curve does not fall to half maximum inside the fit range")

const (
	scanPoints = 1000
	bisectIter = 100
)

// Width is a full width at half maximum of a fitted curve.
type Width struct {
	FWHM  float64
	Peak  float64 // abscissa of the maximum
	Max   float64
	Left  float64
	Right float64
}

// FWHM measures the fitted curve of r inside [lo, hi]. When the curve stays
// above half maximum up to an edge of the range, that edge is used and
// ErrNoHalfMax is returned along with the width.
func FWHM(r FitResult, lo, hi float64) (Width, error) {
	var w Width
	if !(hi > lo) {
		return w, ErrEmptyDist
	}

	w.Peak = peak(r.Eval, lo, hi)
	w.Max = r.Eval(w.Peak)
	half := w.Max / 2

	var okl, okr bool
	w.Left, okl = crossing(r.Eval, w.Peak, lo, half)
	w.Right, okr = crossing(r.Eval, w.Peak, hi, half)
	w.FWHM = w.Right - w.Left

	if !okl || !okr {
		return w, ErrNoHalfMax
	}
	return w, nil
}

// peak locates the maximum of f in [lo, hi] with a grid scan refined by a
// golden-section search around the best grid point.
func peak(f func(float64) float64, lo, hi float64) float64 {
	step := (hi - lo) / scanPoints
	best, fbest := lo, f(lo)
	for i := 1; i <= scanPoints; i++ {
		x := lo + float64(i)*step
		if v := f(x); v > fbest {
			best, fbest = x, v
		}
	}

	a := math.Max(lo, best-step)
	b := math.Min(hi, best+step)
	const invphi = 0.6180339887498949
	c := b - invphi*(b-a)
	d := a + invphi*(b-a)
	for i := 0; i < bisectIter && b-a > 1e-12*math.Max(1, math.Abs(best)); i++ {
		if f(c) > f(d) {
			b = d
		} else {
			a = c
		}
		c = b - invphi*(b-a)
		d = a + invphi*(b-a)
	}
	x := (a + b) / 2
	if f(x) < fbest {
		return best
	}
	return x
}

// crossing walks from x0 towards edge and returns where f falls to y.
func crossing(f func(float64) float64, x0, edge, y float64) (float64, bool) {
	step := (edge - x0) / scanPoints
	if step == 0 {
		return edge, false
	}
	prev := x0
	for i := 1; i <= scanPoints; i++ {
		x := x0 + float64(i)*step
		if i == scanPoints {
			x = edge
		}
		if f(x) <= y {
			return bisect(f, prev, x, y), true
		}
		prev = x
	}
	return edge, false
}

// bisect finds x between a, where f > y, and b, where f <= y.
func bisect(f func(float64) float64, a, b, y float64) float64 {
	for i := 0; i < bisectIter; i++ {
		m := (a + b) / 2
		if m == a || m == b {
			break
		}
		if f(m) > y {
			a = m
		} else {
			b = m
		}
	}
	return (a + b) / 2
}
