package reso

import (
	"errors"
	"fmt"
	"math"

	"go-hep.org/x/hep/fit"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// Shape names a fitted peak model.
type Shape string

const (
	Gaus  Shape = "gaus"
	Gaus2 Shape = "gaus2"
)

// Gaussian parameter indices. The two-Gaussian model repeats them for its
// second component starting at index 3.
const (
	ParAmp = iota
	ParMean
	ParSigma
)

// FitResult is the outcome of fitting a Dist.
//
// Converged is false when the minimizer stopped on a limit or failed; the
// parameters are still those of the last iteration.
type FitResult struct {
	Shape     Shape
	Params    []float64
	Errs      []float64
	Lo, Hi    float64
	Chi2      float64
	NDF       int
	Converged bool
}

func (r FitResult) Eval(x float64) float64 {
	switch r.Shape {
	case Gaus:
		return gaus(x, r.Params)
	case Gaus2:
		return gaus2(x, r.Params)
	}
	panic(fmt.Errorf("reso: unknown fit shape %q", r.Shape))
}

// Mean returns the fitted mean of the first component and its error.
func (r FitResult) Mean() (float64, float64) {
	return r.Params[ParMean], r.Errs[ParMean]
}

// Sigma returns the fitted width of the first component and its error.
func (r FitResult) Sigma() (float64, float64) {
	return math.Abs(r.Params[ParSigma]), r.Errs[ParSigma]
}

func gaus(x float64, ps []float64) float64 {
	s := ps[ParSigma]
	if s == 0 {
		return 0
	}
	z := (x - ps[ParMean]) / s
	return ps[ParAmp] * math.Exp(-0.5*z*z)
}

func gaus2(x float64, ps []float64) float64 {
	return gaus(x, ps[:3]) + gaus(x, ps[3:6])
}

// gausBin is the average of gaus over a bin of width w centered on x.
func gausBin(x, w float64, ps []float64) float64 {
	s := math.Abs(ps[ParSigma])
	if s == 0 {
		return 0
	}
	if w <= 0 {
		return gaus(x, ps)
	}
	mu := ps[ParMean]
	k := math.Sqrt2 * s
	hi := math.Erf((x + 0.5*w - mu) / k)
	lo := math.Erf((x - 0.5*w - mu) / k)
	return ps[ParAmp] * s * math.Sqrt(math.Pi/2) / w * (hi - lo)
}

func gaus2Bin(x, w float64, ps []float64) float64 {
	return gausBin(x, w, ps[:3]) + gausBin(x, w, ps[3:6])
}

// bound confines a parameter to [lo, hi] through p = lo + (hi-lo)(sin q + 1)/2.
type bound struct {
	ok     bool
	lo, hi float64
}

func (b bound) ext(q float64) float64 {
	if !b.ok {
		return q
	}
	return b.lo + (b.hi-b.lo)*(math.Sin(q)+1)/2
}

func (b bound) internal(p float64) float64 {
	if !b.ok {
		return p
	}
	if b.hi <= b.lo {
		return 0
	}
	v := 2*(p-b.lo)/(b.hi-b.lo) - 1
	return math.Asin(math.Max(-1, math.Min(1, v)))
}

// deriv returns dp/dq.
func (b bound) deriv(q float64) float64 {
	if !b.ok {
		return 1
	}
	return (b.hi - b.lo) / 2 * math.Cos(q)
}

// Model is a peak shape with its seeds, parameter scales and bounds.
type Model struct {
	shape  Shape
	binned func(x, w float64, ps []float64) float64
	seed   []float64
	scale  []float64
	bounds []bound
}

// GaussModel seeds a single Gaussian from the moments of d.
func GaussModel(d *Dist) Model {
	amp, mean, rms := seeds(d)
	return Model{
		shape:  Gaus,
		binned: gausBin,
		seed:   []float64{amp, mean, rms},
		scale:  []float64{amp, rms, rms},
		bounds: make([]bound, 3),
	}
}

// Gauss2Model seeds a narrow core and a wide tail Gaussian. Both means are
// bound to mean±RMS/2 and both widths to [0, RMS].
func Gauss2Model(d *Dist) Model {
	amp, mean, rms := seeds(d)
	mb := bound{ok: true, lo: mean - rms/2, hi: mean + rms/2}
	sb := bound{ok: true, lo: 0, hi: rms}
	return Model{
		shape:  Gaus2,
		binned: gaus2Bin,
		seed:   []float64{1.4 * amp, mean, rms / 2, 0.3 * amp, mean, 0.9 * rms},
		scale:  []float64{amp, 1, 1, amp, 1, 1},
		bounds: []bound{{}, mb, sb, {}, mb, sb},
	}
}

// seeds returns the peak height expected from the integral of d for a
// Gaussian of width RMS, the mean and the RMS of d.
func seeds(d *Dist) (amp, mean, rms float64) {
	mean = d.Mean()
	rms = d.RMS()
	if rms <= 0 {
		rms = d.BinWidth()
	}
	amp = d.Integral() * d.BinWidth() / (math.Sqrt(2*math.Pi) * rms)
	if amp <= 0 {
		amp = 1
	}
	return amp, mean, rms
}

const fitRestarts = 3

// Fit fits m to the non-empty bins of d with centers in [lo, hi], comparing
// bin contents to the model averaged over each bin.
func Fit(d *Dist, m Model, lo, hi float64) (FitResult, error) {
	xs, ys, errs := d.points(lo, hi)
	if len(xs) == 0 {
		return FitResult{}, fmt.Errorf("%w in [%g, %g]", ErrEmptyDist, lo, hi)
	}

	var (
		n = len(m.seed)
		w = d.BinWidth()
	)

	ext := func(u []float64) []float64 {
		ps := make([]float64, n)
		for i, v := range u {
			ps[i] = m.bounds[i].ext(v * m.scale[i])
		}
		return ps
	}
	chi2 := func(u []float64) float64 {
		ps := ext(u)
		var sum float64
		for i, x := range xs {
			r := (m.binned(x, w, ps) - ys[i]) / errs[i]
			sum += r * r
		}
		return sum
	}

	u := make([]float64, n)
	for i, p := range m.seed {
		u[i] = m.bounds[i].internal(p) / m.scale[i]
	}

	f := fit.Func1D{
		F: func(x float64, u []float64) float64 {
			return m.binned(x, w, ext(u))
		},
		N:   n,
		X:   xs,
		Y:   ys,
		Err: errs,
	}
	settings := &optimize.Settings{
		MajorIterations: 50000,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Relative:   1e-10,
			Iterations: 1000,
		},
	}

	converged := false
	best := math.Inf(1)
	for i := 0; i < fitRestarts; i++ {
		f.Ps = u
		res, err := fit.Curve1D(f, settings, &optimize.NelderMead{})
		if res == nil {
			if i == 0 {
				return FitResult{}, fmt.Errorf("reso: fit failed: %w", err)
			}
			break
		}
		converged = err == nil && res.Status.Err() == nil
		u = res.X
		c := chi2(u)
		if best-c < 1e-9*math.Max(1, c) {
			break
		}
		best = c
	}

	out := FitResult{
		Shape:     m.shape,
		Params:    ext(u),
		Errs:      make([]float64, n),
		Lo:        lo,
		Hi:        hi,
		Chi2:      chi2(u),
		NDF:       len(xs) - n,
		Converged: converged,
	}

	cov, err := covariance(chi2, u)
	for i := range out.Errs {
		if err != nil || cov[i] <= 0 {
			out.Errs[i] = math.NaN()
			continue
		}
		q := u[i] * m.scale[i]
		out.Errs[i] = math.Sqrt(cov[i]) * m.scale[i] * math.Abs(m.bounds[i].deriv(q))
	}
	return out, nil
}

// covariance returns the diagonal of 2·H⁻¹ where H is the Hessian of chi2
// at u.
func covariance(chi2 func([]float64) float64, u []float64) ([]float64, error) {
	n := len(u)
	h := mat.NewSymDense(n, nil)
	fd.Hessian(h, chi2, u, &fd.Settings{Step: 1e-3})

	var inv mat.Dense
	if err := inv.Inverse(h); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, err
		}
	}
	diag := make([]float64, n)
	for i := range diag {
		diag[i] = 2 * inv.At(i, i)
	}
	return diag, nil
}
