package reso

import (
	"fmt"
	"math"

	"go-hep.org/x/hep/hbook"
	"go.uber.org/zap"

	"github.com/decibelcooper/bicreso/edm"
)

// HitAng measures the difference between the angular coordinate of the
// primary particle and that of a single imaging hit: the most energetic hit
// of the most upstream layer among the hits of the clusters associated with
// the primary.
//
// Besides the difference distribution it keeps the particle energy, the
// reconstruction efficiency versus particle energy, the associated cluster
// energy, the selected hit energy and layer.
type HitAng struct {
	cfg   Config
	shape Shape
	stats Stats

	dist  *Dist
	par   *hbook.H1D
	found *hbook.H1D
	clust *hbook.H1D
	max   *hbook.H1D
	layer *hbook.H1D
	maxvl *hbook.H2D
}

// NewHitAng returns an analysis fitting the difference distribution with the
// given shape, Gaus2 being the reference.
func NewHitAng(cfg Config, shape Shape) (*HitAng, error) {
	switch cfg.Coord {
	case Theta, Eta, Phi:
	default:
		return nil, fmt.Errorf("%w %v", ErrUnknownCoord, cfg.Coord)
	}
	switch shape {
	case Gaus, Gaus2:
	default:
		return nil, fmt.Errorf("reso: unknown fit shape %q", shape)
	}

	v := texVar(cfg.Coord)
	axis := ";#delta" + v + " = " + v + "^{image}_{max hit} - " + v + "_{par}"
	return &HitAng{
		cfg:   cfg,
		shape: shape,
		dist:  NewAbsDist("hAngRes", axis),
		par:   newH1D("hParEne", "Particle energy;E_{par} [GeV]", 20, -0.5, 9.5),
		found: newH1D("hEfficiency", "Efficiency as a function of particle energy;E_{par} [GeV]", 20, -0.5, 9.5),
		clust: newH1D("hClustEne", "Associated cluster energy;E_{clust} [GeV]", 20, -0.5, 9.5),
		max:   newH1D("hMaxHitEne", "Energy of most energetic hit in most upstream layer;E^{image}_{max hit} [GeV]", 100, -0.5, 9.5),
		layer: newH1D("hMinLayer", "Most upstream layer;Layer", 8, -0.5, 7.5),
		maxvl: newH2D("hMaxHitEneVsMinLayer", "Energy of most energetic hit vs. most upstream layer;Layer;E^{image}_{max hit} [GeV]", 8, -0.5, 7.5, 100, -0.5, 9.5),
	}, nil
}

func (a *HitAng) Extract(evt *edm.Event, log *zap.Logger) Outcome {
	log = nopIfNil(log)
	o := Outcome{Event: evt.Number}
	p, ok := primary(evt, a.cfg.PDG, log)
	if !ok {
		o.Skip = NoPrimary
		return o
	}
	o.Truth = ParticleInfo(a.cfg.Coord, p)

	var (
		lm    LayerMaxima
		found bool
	)
	for _, c := range AssociatedClusters(evt, p.ID) {
		found = true
		o.ClusterEnergy += c.Energy
		for _, id := range c.Hits {
			h, ok := evt.Hit(id)
			if !ok {
				log.Warn("cluster refers to a missing hit",
					zap.Int("event", evt.Number),
					zap.Int("hit", int(id)),
				)
				continue
			}
			if !lm.Add(h) {
				log.Warn("hit layer outside imaging layers",
					zap.Int("event", evt.Number),
					zap.Int("hit", int(h.ID)),
					zap.Int("layer", h.Layer),
					zap.Int("max", MaxLayer),
				)
			}
		}
	}
	if !found {
		log.Debug("primary has no associated cluster", zap.Int("event", evt.Number))
		o.Skip = NoCluster
		return o
	}

	h, ok := lm.Upstream()
	if !ok {
		log.Warn("skipping event without hits in imaging layers",
			zap.Int("event", evt.Number),
			zap.Int("max", MaxLayer),
		)
		o.Skip = NoLayer
		return o
	}
	o.Rec = HitInfo(a.cfg.Coord, h)
	o.Residual = o.Rec.Angle - o.Truth.Angle
	return o
}

func (a *HitAng) Fill(o Outcome) {
	a.stats.add(o)
	if o.Skip == NoPrimary {
		return
	}
	a.par.Fill(o.Truth.Energy, 1)
	if o.Skip == NoCluster {
		return
	}
	a.found.Fill(o.Truth.Energy, 1)
	a.clust.Fill(o.ClusterEnergy, 1)
	if o.Skip != Contributed {
		return
	}
	a.dist.Fill(o.Residual)
	a.max.Fill(o.Rec.Energy, 1)
	a.layer.Fill(float64(o.Rec.Layer), 1)
	a.maxvl.Fill(float64(o.Rec.Layer), o.Rec.Energy, 1)
}

func (a *HitAng) Finish(log *zap.Logger) (*Result, error) {
	log = nopIfNil(log)
	name := a.cfg.Coord.String() + " hit resolution"
	lo, hi, err := a.dist.NonEmptyRange()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	m := Gauss2Model(a.dist)
	if a.shape == Gaus {
		m = GaussModel(a.dist)
	}
	fr, err := Fit(a.dist, m, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if !fr.Converged {
		log.Warn("fit did not converge, using last parameters", zap.String("analysis", name))
	}

	w, err := FWHM(fr, lo, hi)
	if err != nil {
		log.Warn("half maximum not reached inside the fit range",
			zap.String("analysis", name),
			zap.Float64("lo", lo),
			zap.Float64("hi", hi),
		)
	}

	return &Result{
		Name:    name,
		Policy:  FWHMPolicy,
		Dist:    a.dist,
		Fit:     fr,
		Width:   w,
		Stats:   a.stats,
		Reso:    w.FWHM,
		ResoErr: math.NaN(),
		Mean:    w.Peak,
		MeanErr: math.NaN(),
		FitName: "fAngRes",
		Hists:   []*hbook.H1D{a.par, a.clust, a.max, a.layer},
		Hists2D: []*hbook.H2D{a.maxvl},
		Graphs:  []*hbook.S2D{Efficiency("hEfficiency", a.found, a.par)},
	}, nil
}

// Efficiency divides num by den bin by bin with binomial errors. Bins with
// an empty denominator are left out.
func Efficiency(name string, num, den *hbook.H1D) *hbook.S2D {
	var pts []hbook.Point2D
	nb := num.Binning.Bins
	db := den.Binning.Bins
	for i := range db {
		d := db[i].SumW()
		if d <= 0 || i >= len(nb) {
			continue
		}
		n := nb[i].SumW()
		eff := n / d
		e := math.Sqrt(math.Max(0, (1-eff)*n/(d*d)))
		hw := 0.5 * (db[i].XMax() - db[i].XMin())
		pts = append(pts, hbook.Point2D{
			X:    db[i].XMid(),
			Y:    eff,
			ErrX: hbook.Range{Min: hw, Max: hw},
			ErrY: hbook.Range{Min: e, Max: e},
		})
	}
	s := hbook.NewS2D(pts...)
	s.Annotation()["name"] = name
	s.Annotation()["title"] = num.Annotation()["title"]
	return s
}

func newH1D(name, title string, n int, lo, hi float64) *hbook.H1D {
	h := hbook.NewH1D(n, lo, hi)
	h.Annotation()["name"] = name
	h.Annotation()["title"] = title
	return h
}

func newH2D(name, title string, nx int, xlo, xhi float64, ny int, ylo, yhi float64) *hbook.H2D {
	h := hbook.NewH2D(nx, xlo, xhi, ny, ylo, yhi)
	h.Annotation()["name"] = name
	h.Annotation()["title"] = title
	return h
}
