package reso

import (
	"errors"
	"math"

	"go-hep.org/x/hep/hbook"
)

var ErrEmptyDist = errors.New("reso: empty distribution")

// Binning of the residual distributions.
const (
	RelBins = 50
	RelLow  = -2.
	RelHigh = 3.

	AbsBins = 80
	AbsLow  = -0.2
	AbsHigh = 0.2
)

// Dist accumulates one residual per contributing event. Its domain and
// binning are fixed at creation.
//
// The moments used to seed fits only include values inside the domain.
type Dist struct {
	h      *hbook.H1D
	lo, hi float64

	sumw   float64
	sumwx  float64
	sumwx2 float64
}

func NewDist(name, title string, nbins int, lo, hi float64) *Dist {
	h := hbook.NewH1D(nbins, lo, hi)
	h.Annotation()["name"] = name
	h.Annotation()["title"] = title
	return &Dist{h: h, lo: lo, hi: hi}
}

// NewRelDist returns a distribution for relative residuals.
func NewRelDist(name, title string) *Dist {
	return NewDist(name, title, RelBins, RelLow, RelHigh)
}

// NewAbsDist returns a distribution for absolute angular differences.
func NewAbsDist(name, title string) *Dist {
	return NewDist(name, title, AbsBins, AbsLow, AbsHigh)
}

func (d *Dist) Fill(x float64) {
	d.h.Fill(x, 1)
	if x < d.lo || x >= d.hi || math.IsNaN(x) {
		return
	}
	d.sumw++
	d.sumwx += x
	d.sumwx2 += x * x
}

// Entries returns the number of fills, including under- and overflows.
func (d *Dist) Entries() int64 { return d.h.Entries() }

// Integral returns the sum of weights inside the domain.
func (d *Dist) Integral() float64 { return d.sumw }

func (d *Dist) Mean() float64 {
	if d.sumw == 0 {
		return 0
	}
	return d.sumwx / d.sumw
}

// RMS returns the standard deviation of the in-domain values.
func (d *Dist) RMS() float64 {
	if d.sumw == 0 {
		return 0
	}
	mean := d.Mean()
	v := d.sumwx2/d.sumw - mean*mean
	if v < 0 {
		return 0
	}
	return math.Sqrt(v)
}

func (d *Dist) Name() string { return d.h.Name() }

func (d *Dist) H1D() *hbook.H1D { return d.h }

// BinWidth returns the width of one bin.
func (d *Dist) BinWidth() float64 {
	return (d.hi - d.lo) / float64(d.h.Len())
}

// Domain returns the fixed histogram range.
func (d *Dist) Domain() (lo, hi float64) { return d.lo, d.hi }

// NonEmptyRange returns the low edge of the first and the high edge of the
// last bin with a positive content.
func (d *Dist) NonEmptyRange() (lo, hi float64, err error) {
	bins := d.h.Binning.Bins
	first, last := -1, -1
	for i, b := range bins {
		if b.SumW() <= 0 {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	if first < 0 {
		return 0, 0, ErrEmptyDist
	}
	return bins[first].XMin(), bins[last].XMax(), nil
}

// points returns centers, contents and errors of the non-empty bins whose
// centers lie in [lo, hi].
func (d *Dist) points(lo, hi float64) (xs, ys, errs []float64) {
	for _, b := range d.h.Binning.Bins {
		x := b.XMid()
		if b.SumW() <= 0 || x < lo || x > hi {
			continue
		}
		xs = append(xs, x)
		ys = append(ys, b.SumW())
		errs = append(errs, math.Sqrt(b.SumW2()))
	}
	return xs, ys, errs
}
