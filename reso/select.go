package reso

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/decibelcooper/bicreso/edm"
)

// MaxLayer is the last imaging layer that takes part in the hit selection.
const MaxLayer = 6

// FindPrimary returns the first final-state particle with the given PDG code.
func FindPrimary(evt *edm.Event, pdg int32) (edm.Particle, bool) {
	for _, p := range evt.Particles {
		if p.PDG == pdg && p.Status == edm.StatusFinal {
			return p, true
		}
	}
	return edm.Particle{}, false
}

// AssociatedClusters returns, in association order, the clusters linked to
// the particle with the given ID.
func AssociatedClusters(evt *edm.Event, sim edm.ID) []edm.Cluster {
	var out []edm.Cluster
	for _, a := range evt.Assocs {
		if a.Sim != sim {
			continue
		}
		if c, ok := evt.Cluster(a.Rec); ok {
			out = append(out, c)
		}
	}
	return out
}

// LayerMaxima tracks the most energetic hit of each layer in [1, MaxLayer].
type LayerMaxima struct {
	hits [MaxLayer + 1]edm.Hit
	set  [MaxLayer + 1]bool
}

// Reset clears all layers.
func (lm *LayerMaxima) Reset() {
	*lm = LayerMaxima{}
}

// Add considers h for its layer. Hits without positive energy never
// populate a layer. Add reports false, leaving lm unchanged, when the layer
// is outside [1, MaxLayer].
func (lm *LayerMaxima) Add(h edm.Hit) bool {
	if h.Layer < 1 || h.Layer > MaxLayer {
		return false
	}
	if h.Energy > lm.hits[h.Layer].Energy {
		lm.hits[h.Layer] = h
		lm.set[h.Layer] = true
	}
	return true
}

// Layer returns the most energetic hit of a layer.
func (lm *LayerMaxima) Layer(layer int) (edm.Hit, bool) {
	if layer < 1 || layer > MaxLayer || !lm.set[layer] {
		return edm.Hit{}, false
	}
	return lm.hits[layer], true
}

// Upstream returns the most energetic hit of the smallest populated layer.
func (lm *LayerMaxima) Upstream() (edm.Hit, bool) {
	for layer := 1; layer <= MaxLayer; layer++ {
		if lm.set[layer] {
			return lm.hits[layer], true
		}
	}
	return edm.Hit{}, false
}

// Info is a snapshot of the quantities compared between a particle and its
// reconstructed counterpart.
type Info struct {
	Energy float64
	Angle  float64
	Perp   float64
	Layer  int
	Vector r3.Vec
}

func ParticleInfo(c Coord, p edm.Particle) Info {
	return Info{
		Energy: p.Energy,
		Angle:  c.Of(p.Mom),
		Perp:   rho(p.Mom),
		Layer:  -1,
		Vector: p.Mom,
	}
}

// HitInfo measures the hit position from the origin, as the imaging layers
// are compared with the particle direction at the vertex.
func HitInfo(c Coord, h edm.Hit) Info {
	return Info{
		Energy: h.Energy,
		Angle:  c.Of(h.Pos),
		Perp:   rho(h.Pos),
		Layer:  h.Layer,
		Vector: h.Pos,
	}
}

// ClusterInfo measures the cluster position from vtx.
func ClusterInfo(c Coord, cl edm.Cluster, vtx r3.Vec) Info {
	d := r3.Sub(cl.Pos, vtx)
	return Info{
		Energy: cl.Energy,
		Angle:  c.Of(d),
		Perp:   rho(d),
		Layer:  -1,
		Vector: d,
	}
}
