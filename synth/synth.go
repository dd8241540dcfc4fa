// Package synth generates single-particle events with known detector
// response, used to validate the resolution analyses.
package synth

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/decibelcooper/bicreso/edm"
	"github.com/decibelcooper/bicreso/reso"
)

// Electron defaults.
const (
	PDGElectron  = 11
	MassElectron = 0.000510999
)

// Barrel geometry, in mm.
const (
	ClusterRadius = 1000.
	LayerRadius   = 800.
	LayerPitch    = 17.
)

// Config describes the generated particles. Truth pseudorapidity and azimuth
// are drawn inside ranges that exclude zero so that relative residuals stay
// well defined.
type Config struct {
	Seed uint64
	PDG  int32
	Mass float64

	EMin, EMax     float64 // GeV
	EtaMin, EtaMax float64
	PhiMin, PhiMax float64
	VertexSigma    float64 // mm

	// Fractions of events without a final-state primary and of events
	// whose primary has no associated cluster.
	NoPrimary float64
	NoCluster float64
}

func DefaultConfig() Config {
	return Config{
		Seed:        1234,
		PDG:         PDGElectron,
		Mass:        MassElectron,
		EMin:        1,
		EMax:        9,
		EtaMin:      0.3,
		EtaMax:      1.0,
		PhiMin:      0.5,
		PhiMax:      2.5,
		VertexSigma: 1,
	}
}

// Generator draws events from a single seeded source.
type Generator struct {
	cfg Config
	src rand.Source
	n   int

	unif  distuv.Uniform
	ene   distuv.Uniform
	eta   distuv.Uniform
	phi   distuv.Uniform
	vtx   distuv.Normal
	gauss distuv.Normal
}

func New(cfg Config) *Generator {
	src := rand.NewSource(cfg.Seed)
	return &Generator{
		cfg:   cfg,
		src:   src,
		unif:  distuv.Uniform{Min: 0, Max: 1, Src: src},
		ene:   distuv.Uniform{Min: cfg.EMin, Max: cfg.EMax, Src: src},
		eta:   distuv.Uniform{Min: cfg.EtaMin, Max: cfg.EtaMax, Src: src},
		phi:   distuv.Uniform{Min: cfg.PhiMin, Max: cfg.PhiMax, Src: src},
		vtx:   distuv.Normal{Mu: 0, Sigma: cfg.VertexSigma, Src: src},
		gauss: distuv.Normal{Mu: 0, Sigma: 1, Src: src},
	}
}

// Direction returns the unit vector with the given polar angle and azimuth.
func Direction(theta, phi float64) r3.Vec {
	st, ct := math.Sincos(theta)
	sp, cp := math.Sincos(phi)
	return r3.Vec{X: st * cp, Y: st * sp, Z: ct}
}

// ThetaOfEta converts a pseudorapidity to a polar angle.
func ThetaOfEta(eta float64) float64 {
	return 2 * math.Atan(math.Exp(-eta))
}

type truth struct {
	energy   float64
	eta, phi float64
	vertex   r3.Vec
}

func (g *Generator) draw() truth {
	var t truth
	t.energy = g.ene.Rand()
	t.eta = g.eta.Rand()
	t.phi = g.phi.Rand()
	if g.cfg.VertexSigma > 0 {
		t.vertex = r3.Vec{X: g.vtx.Rand(), Y: g.vtx.Rand(), Z: g.vtx.Rand()}
	}
	return t
}

// event starts an event holding the primary and a decoy photon listed
// before it.
func (g *Generator) event(t truth) (edm.Event, edm.ID, bool) {
	evt := edm.Event{Number: g.n}
	g.n++

	p := math.Sqrt(math.Max(0, t.energy*t.energy-g.cfg.Mass*g.cfg.Mass))
	dir := Direction(ThetaOfEta(t.eta), t.phi)

	status := int32(edm.StatusFinal)
	hasPrimary := g.unif.Rand() >= g.cfg.NoPrimary
	if !hasPrimary {
		status = 2
	}

	evt.Particles = []edm.Particle{
		{
			ID:     0,
			PDG:    22,
			Status: edm.StatusFinal,
			Mom:    r3.Scale(0.1, r3.Vec{X: dir.Y, Y: -dir.X, Z: dir.Z}),
			Vertex: t.vertex,
			Energy: 0.1,
		},
		{
			ID:     1,
			PDG:    g.cfg.PDG,
			Status: status,
			Mom:    r3.Scale(p, dir),
			Vertex: t.vertex,
			Mass:   g.cfg.Mass,
			Energy: t.energy,
		},
	}
	return evt, 1, hasPrimary && g.unif.Rand() >= g.cfg.NoCluster
}

// Energy returns events whose associated cluster energy is the particle
// energy scaled by 1+δ with δ drawn from N(0, sigma).
func (g *Generator) Energy(n int, sigma float64) []edm.Event {
	evts := make([]edm.Event, n)
	for i := range evts {
		t := g.draw()
		evt, sim, assoc := g.event(t)
		dir := Direction(ThetaOfEta(t.eta), t.phi)
		c := edm.Cluster{
			ID:     0,
			Energy: t.energy * (1 + sigma*g.gauss.Rand()),
			Pos:    r3.Add(t.vertex, r3.Scale(ClusterRadius, dir)),
		}
		evt.Clusters = []edm.Cluster{c}
		if assoc {
			evt.Assocs = []edm.Association{{Sim: sim, Rec: c.ID, Weight: 1}}
		}
		evts[i] = evt
	}
	return evts
}

// ClusterAngle returns events whose cluster, seen from the particle vertex,
// has pseudorapidity η(1+δη) and azimuth φ(1+δφ) with δ drawn from
// N(0, sigma).
func (g *Generator) ClusterAngle(n int, sigma float64) []edm.Event {
	evts := make([]edm.Event, n)
	for i := range evts {
		t := g.draw()
		evt, sim, assoc := g.event(t)
		eta := t.eta * (1 + sigma*g.gauss.Rand())
		phi := t.phi * (1 + sigma*g.gauss.Rand())
		c := edm.Cluster{
			ID:     0,
			Energy: t.energy,
			Pos:    r3.Add(t.vertex, r3.Scale(ClusterRadius, Direction(ThetaOfEta(eta), phi))),
		}
		evt.Clusters = []edm.Cluster{c}
		if assoc {
			evt.Assocs = []edm.Association{{Sim: sim, Rec: c.ID, Weight: 1}}
		}
		evts[i] = evt
	}
	return evts
}

// Mixture is a two-component Gaussian smearing: Core with probability
// 1-TailFrac and Tail otherwise.
type Mixture struct {
	Core     float64
	Tail     float64
	TailFrac float64
}

func (g *Generator) smear(m Mixture) float64 {
	s := m.Core
	if g.unif.Rand() < m.TailFrac {
		s = m.Tail
	}
	return s * g.gauss.Rand()
}

// HitLayers is the number of imaging layers populated by ImagingHits.
const HitLayers = 8

// ImagingHits returns events with one cluster of imaging hits. The first
// populated layer, drawn from 1 to 3, holds the representative hit whose
// coordinate c, seen from the origin, differs from the particle's by a
// value drawn from m. It also holds a softer hit far off in c. Deeper layers
// up to HitLayers, beyond the last imaging layer included, hold more
// energetic hits that must never be selected.
//
// The particle vertex is the origin so that the difference only comes
// from the smearing.
func (g *Generator) ImagingHits(n int, c reso.Coord, m Mixture) []edm.Event {
	evts := make([]edm.Event, n)
	for i := range evts {
		t := g.draw()
		t.vertex = r3.Vec{}
		evt, sim, assoc := g.event(t)
		theta := ThetaOfEta(t.eta)

		first := 1 + int(3*g.unif.Rand())
		if first > 3 {
			first = 3
		}

		var (
			hits []edm.Hit
			sum  float64
		)
		add := func(layer int, e float64, d float64) {
			th, ph := theta, t.phi
			switch c {
			case reso.Theta:
				th += d
			case reso.Eta:
				th = ThetaOfEta(t.eta + d)
			case reso.Phi:
				ph += d
			}
			r := LayerRadius + float64(layer)*LayerPitch
			hits = append(hits, edm.Hit{
				ID:     edm.ID(len(hits)),
				Energy: e,
				Pos:    r3.Scale(r/math.Sin(th), Direction(th, ph)),
				Layer:  layer,
			})
			sum += e
		}

		add(first, 0.02, g.smear(m))
		add(first, 0.01, 0.15)
		for layer := first + 1; layer <= HitLayers; layer++ {
			add(layer, 0.02*float64(layer), 0.1)
		}

		evt.Hits = hits
		cl := edm.Cluster{
			ID:     0,
			Energy: sum,
			Pos:    r3.Scale(ClusterRadius, Direction(theta, t.phi)),
			Hits:   make([]edm.ID, len(hits)),
		}
		for j, h := range hits {
			cl.Hits[j] = h.ID
		}
		evt.Clusters = []edm.Cluster{cl}
		if assoc {
			evt.Assocs = []edm.Association{{Sim: sim, Rec: cl.ID, Weight: 1}}
		}
		evts[i] = evt
	}
	return evts
}

// AboveImaging returns an event whose only associated cluster has all its
// hits beyond the last imaging layer.
func (g *Generator) AboveImaging() edm.Event {
	t := g.draw()
	evt, sim, _ := g.event(t)
	evt.Particles[sim].Status = edm.StatusFinal
	dir := Direction(ThetaOfEta(t.eta), t.phi)
	for layer := reso.MaxLayer + 1; layer <= HitLayers; layer++ {
		r := LayerRadius + float64(layer)*LayerPitch
		evt.Hits = append(evt.Hits, edm.Hit{
			ID:     edm.ID(len(evt.Hits)),
			Energy: 1,
			Pos:    r3.Scale(r, dir),
			Layer:  layer,
		})
	}
	cl := edm.Cluster{ID: 0, Energy: 2, Pos: r3.Scale(ClusterRadius, dir)}
	for _, h := range evt.Hits {
		cl.Hits = append(cl.Hits, h.ID)
	}
	evt.Clusters = []edm.Cluster{cl}
	evt.Assocs = []edm.Association{{Sim: sim, Rec: cl.ID, Weight: 1}}
	return evt
}
