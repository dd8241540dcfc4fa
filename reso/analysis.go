package reso

import (
	"fmt"

	"go-hep.org/x/hep/hbook"
	"go.uber.org/zap"

	"github.com/decibelcooper/bicreso/edm"
)

// Skip tells why an event did not contribute a residual.
type Skip int

const (
	Contributed Skip = iota
	NoPrimary
	NoCluster
	NoLayer
)

func (s Skip) String() string {
	switch s {
	case Contributed:
		return "contributed"
	case NoPrimary:
		return "no primary"
	case NoCluster:
		return "no associated cluster"
	case NoLayer:
		return "no populated layer"
	}
	return fmt.Sprintf("Skip(%d)", int(s))
}

// Outcome is what one event yields. Residual, Rec and ClusterEnergy are only
// meaningful for contributing events, Truth once a primary was found.
type Outcome struct {
	Event         int
	Skip          Skip
	Residual      float64
	Truth         Info
	Rec           Info
	ClusterEnergy float64
}

// Stats counts events by outcome.
type Stats struct {
	Events    int
	Filled    int
	NoPrimary int
	NoCluster int
	NoLayer   int
}

func (s *Stats) add(o Outcome) {
	s.Events++
	switch o.Skip {
	case Contributed:
		s.Filled++
	case NoPrimary:
		s.NoPrimary++
	case NoCluster:
		s.NoCluster++
	case NoLayer:
		s.NoLayer++
	}
}

// Skipped returns the number of events without a residual.
func (s Stats) Skipped() int {
	return s.NoPrimary + s.NoCluster + s.NoLayer
}

// Policy selects how the resolution is read off the fit.
type Policy int

const (
	SigmaPolicy Policy = iota
	FWHMPolicy
)

// Result is the outcome of one analysis run.
type Result struct {
	Name   string
	Policy Policy
	Dist   *Dist
	Fit    FitResult
	Width  Width
	Stats  Stats

	Reso    float64
	ResoErr float64
	Mean    float64
	MeanErr float64

	// FitName is the name under which the fitted curve is stored.
	FitName string

	Hists   []*hbook.H1D
	Hists2D []*hbook.H2D
	Graphs  []*hbook.S2D
}

// Analysis turns events into residuals.
//
// Extract may be called concurrently and must not modify the analysis. Fill
// and Finish are called from a single goroutine, Fill once per extracted
// event.
type Analysis interface {
	Extract(evt *edm.Event, log *zap.Logger) Outcome
	Fill(o Outcome)
	Finish(log *zap.Logger) (*Result, error)
}

// Config holds the settings common to all analyses.
type Config struct {
	PDG   int32
	Coord Coord
}

func nopIfNil(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}

func primary(evt *edm.Event, pdg int32, log *zap.Logger) (edm.Particle, bool) {
	p, ok := FindPrimary(evt, pdg)
	if !ok {
		log.Warn("event has no primary",
			zap.Int("event", evt.Number),
			zap.Int32("pdg", pdg),
		)
	}
	return p, ok
}

func clusterWindow(d *Dist) (lo, hi float64, err error) {
	lo, hi, err = d.NonEmptyRange()
	if err != nil {
		return lo, hi, err
	}
	const win = 0.5
	if lo < win && hi > -win {
		if lo < -win {
			lo = -win
		}
		if hi > win {
			hi = win
		}
	}
	return lo, hi, nil
}

func sigmaResult(name, fitName string, d *Dist, stats Stats, log *zap.Logger) (*Result, error) {
	lo, hi, err := clusterWindow(d)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	fr, err := Fit(d, GaussModel(d), lo, hi)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if !fr.Converged {
		log.Warn("fit did not converge, using last parameters", zap.String("analysis", name))
	}

	r := &Result{
		Name:    name,
		Policy:  SigmaPolicy,
		Dist:    d,
		Fit:     fr,
		Stats:   stats,
		FitName: fitName,
	}
	r.Reso, r.ResoErr = fr.Sigma()
	r.Mean, r.MeanErr = fr.Mean()
	return r, nil
}

// ClustEne measures (E_clust - E_par)/E_par for the cluster associated with
// the primary particle.
type ClustEne struct {
	cfg   Config
	dist  *Dist
	stats Stats
}

func NewClustEne(cfg Config) *ClustEne {
	return &ClustEne{
		cfg:  cfg,
		dist: NewRelDist("hEneRes", ";(E_{clust} - E_{par}) / E_{par}"),
	}
}

func (a *ClustEne) Extract(evt *edm.Event, log *zap.Logger) Outcome {
	log = nopIfNil(log)
	o := Outcome{Event: evt.Number}
	p, ok := primary(evt, a.cfg.PDG, log)
	if !ok {
		o.Skip = NoPrimary
		return o
	}
	o.Truth = Info{Energy: p.Energy, Layer: -1, Vector: p.Mom}

	clusters := AssociatedClusters(evt, p.ID)
	if len(clusters) == 0 {
		log.Debug("primary has no associated cluster", zap.Int("event", evt.Number))
		o.Skip = NoCluster
		return o
	}
	c := clusters[0]
	o.Rec = Info{Energy: c.Energy, Layer: -1, Vector: c.Pos}
	o.ClusterEnergy = c.Energy
	o.Residual = Relative(c.Energy, p.Energy)
	return o
}

func (a *ClustEne) Fill(o Outcome) {
	a.stats.add(o)
	if o.Skip == Contributed {
		a.dist.Fill(o.Residual)
	}
}

func (a *ClustEne) Finish(log *zap.Logger) (*Result, error) {
	log = nopIfNil(log)
	return sigmaResult("energy resolution", "fEneRes", a.dist, a.stats, log)
}

// ClustAng measures the relative difference between the angular coordinate
// of the primary momentum and that of the associated cluster position seen
// from the primary vertex.
type ClustAng struct {
	cfg   Config
	dist  *Dist
	stats Stats
}

// NewClustAng returns an error for coordinates other than eta and phi.
func NewClustAng(cfg Config) (*ClustAng, error) {
	if cfg.Coord != Eta && cfg.Coord != Phi {
		return nil, fmt.Errorf("%w %v for clusters", ErrUnknownCoord, cfg.Coord)
	}
	v := texVar(cfg.Coord)
	axis := ";(" + v + "_{clust} - " + v + "_{par}) / " + v + "_{par}"
	return &ClustAng{cfg: cfg, dist: NewRelDist("hAngRes", axis)}, nil
}

func (a *ClustAng) Extract(evt *edm.Event, log *zap.Logger) Outcome {
	log = nopIfNil(log)
	o := Outcome{Event: evt.Number}
	p, ok := primary(evt, a.cfg.PDG, log)
	if !ok {
		o.Skip = NoPrimary
		return o
	}
	o.Truth = ParticleInfo(a.cfg.Coord, p)

	clusters := AssociatedClusters(evt, p.ID)
	if len(clusters) == 0 {
		log.Debug("primary has no associated cluster", zap.Int("event", evt.Number))
		o.Skip = NoCluster
		return o
	}

	// single particle events: the particle vertex is the primary vertex
	o.Rec = ClusterInfo(a.cfg.Coord, clusters[0], p.Vertex)
	o.ClusterEnergy = clusters[0].Energy
	o.Residual = Relative(o.Rec.Angle, o.Truth.Angle)
	return o
}

func (a *ClustAng) Fill(o Outcome) {
	a.stats.add(o)
	if o.Skip == Contributed {
		a.dist.Fill(o.Residual)
	}
}

func (a *ClustAng) Finish(log *zap.Logger) (*Result, error) {
	log = nopIfNil(log)
	return sigmaResult(a.cfg.Coord.String()+" resolution", "fAngRes", a.dist, a.stats, log)
}

func texVar(c Coord) string {
	return "#" + c.String()
}
