package podioedm

import (
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/decibelcooper/bicreso/edm"
)

// EventsTree is the tree podio writes one entry per event to.
const EventsTree = "events"

// ClusterCollection returns the cluster collection to read: the named one,
// or the one the association collection is named after
// (EcalBarrelClusterAssociations refers to EcalBarrelClusters).
func ClusterCollection(colls edm.Collections) string {
	if colls.Clusters != "" {
		return colls.Clusters
	}
	if base, ok := strings.CutSuffix(colls.Assocs, "Associations"); ok && base != "" {
		return base + "s"
	}
	return ""
}

// column is one branch of the events tree. size names the entry counter
// written along with a variable length branch.
type column struct {
	name  string
	value any
	size  string
}

// columns holds the member vectors of one event, one slice per branch.
type columns struct {
	colls edm.Collections
	clus  string

	nPar, nClu, nHit, nAsc, nRef int32

	parPDG, parStatus   []int32
	parMass             []float64
	parPx, parPy, parPz []float64
	parVx, parVy, parVz []float64
	cluE                []float32
	cluX, cluY, cluZ    []float32
	cluBeg, cluEnd      []uint32
	cluHits             []int32
	hitE                []float32
	hitX, hitY, hitZ    []float32
	hitLayer            []int32
	ascWeight           []float32
	ascRec, ascSim      []int32
}

func newColumns(colls edm.Collections) *columns {
	return &columns{colls: colls, clus: ClusterCollection(colls)}
}

func (c *columns) hasHits() bool { return c.colls.Hits != "" }

func relation(coll, rel string) string {
	return "_" + coll + "_" + rel
}

// list returns the branches in writing order: each counter before the
// vectors it sizes.
func (c *columns) list() []column {
	p, cl, h, a := c.colls.Particles, c.clus, c.colls.Hits, c.colls.Assocs
	cols := []column{
		{name: p + "_size", value: &c.nPar},
		{name: p + ".PDG", value: &c.parPDG, size: p + "_size"},
		{name: p + ".generatorStatus", value: &c.parStatus, size: p + "_size"},
		{name: p + ".mass", value: &c.parMass, size: p + "_size"},
		{name: p + ".momentum.x", value: &c.parPx, size: p + "_size"},
		{name: p + ".momentum.y", value: &c.parPy, size: p + "_size"},
		{name: p + ".momentum.z", value: &c.parPz, size: p + "_size"},
		{name: p + ".vertex.x", value: &c.parVx, size: p + "_size"},
		{name: p + ".vertex.y", value: &c.parVy, size: p + "_size"},
		{name: p + ".vertex.z", value: &c.parVz, size: p + "_size"},

		{name: cl + "_size", value: &c.nClu},
		{name: cl + ".energy", value: &c.cluE, size: cl + "_size"},
		{name: cl + ".position.x", value: &c.cluX, size: cl + "_size"},
		{name: cl + ".position.y", value: &c.cluY, size: cl + "_size"},
		{name: cl + ".position.z", value: &c.cluZ, size: cl + "_size"},
	}
	if c.hasHits() {
		refs := relation(cl, "hits")
		cols = append(cols,
			column{name: cl + ".hits_begin", value: &c.cluBeg, size: cl + "_size"},
			column{name: cl + ".hits_end", value: &c.cluEnd, size: cl + "_size"},
			column{name: refs + "_size", value: &c.nRef},
			column{name: refs + ".index", value: &c.cluHits, size: refs + "_size"},

			column{name: h + "_size", value: &c.nHit},
			column{name: h + ".energy", value: &c.hitE, size: h + "_size"},
			column{name: h + ".position.x", value: &c.hitX, size: h + "_size"},
			column{name: h + ".position.y", value: &c.hitY, size: h + "_size"},
			column{name: h + ".position.z", value: &c.hitZ, size: h + "_size"},
			column{name: h + ".layer", value: &c.hitLayer, size: h + "_size"},
		)
	}
	return append(cols,
		column{name: a + "_size", value: &c.nAsc},
		column{name: a + ".weight", value: &c.ascWeight, size: a + "_size"},
		column{name: relation(a, "rec") + ".index", value: &c.ascRec, size: a + "_size"},
		column{name: relation(a, "sim") + ".index", value: &c.ascSim, size: a + "_size"},
	)
}

// event converts the current vectors. References outside their collection
// are kept for hits, so that analyses can report them, and dropped for
// associations.
func (c *columns) event(number int) edm.Event {
	evt := edm.Event{Number: number}

	evt.Particles = make([]edm.Particle, len(c.parPDG))
	for i := range evt.Particles {
		mom := r3.Vec{X: at(c.parPx, i), Y: at(c.parPy, i), Z: at(c.parPz, i)}
		mass := at(c.parMass, i)
		evt.Particles[i] = edm.Particle{
			ID:     edm.ID(i),
			PDG:    c.parPDG[i],
			Status: int32(at(c.parStatus, i)),
			Mom:    mom,
			Vertex: r3.Vec{X: at(c.parVx, i), Y: at(c.parVy, i), Z: at(c.parVz, i)},
			Mass:   mass,
			Energy: edm.EnergyFromMom(mom, mass),
		}
	}

	if c.hasHits() {
		evt.Hits = make([]edm.Hit, len(c.hitE))
		for i := range evt.Hits {
			evt.Hits[i] = edm.Hit{
				ID:     edm.ID(i),
				Energy: float64(c.hitE[i]),
				Pos:    r3.Vec{X: at(c.hitX, i), Y: at(c.hitY, i), Z: at(c.hitZ, i)},
				Layer:  int(at(c.hitLayer, i)),
			}
		}
	}

	evt.Clusters = make([]edm.Cluster, len(c.cluE))
	for i := range evt.Clusters {
		cl := edm.Cluster{
			ID:     edm.ID(i),
			Energy: float64(c.cluE[i]),
			Pos:    r3.Vec{X: at(c.cluX, i), Y: at(c.cluY, i), Z: at(c.cluZ, i)},
		}
		if c.hasHits() && i < len(c.cluBeg) && i < len(c.cluEnd) {
			for j := int(c.cluBeg[i]); j < int(c.cluEnd[i]) && j < len(c.cluHits); j++ {
				cl.Hits = append(cl.Hits, edm.ID(c.cluHits[j]))
			}
		}
		evt.Clusters[i] = cl
	}

	for i := range c.ascWeight {
		sim, rec := edm.ID(at(c.ascSim, i)), edm.ID(at(c.ascRec, i))
		if _, ok := evt.Particle(sim); !ok {
			continue
		}
		if _, ok := evt.Cluster(rec); !ok {
			continue
		}
		evt.Assocs = append(evt.Assocs, edm.Association{
			Sim:    sim,
			Rec:    rec,
			Weight: float64(c.ascWeight[i]),
		})
	}
	return evt
}

// fill sets the vectors and counters from evt.
func (c *columns) fill(evt edm.Event) {
	c.nPar = int32(len(evt.Particles))
	c.parPDG = c.parPDG[:0]
	c.parStatus = c.parStatus[:0]
	c.parMass = c.parMass[:0]
	c.parPx, c.parPy, c.parPz = c.parPx[:0], c.parPy[:0], c.parPz[:0]
	c.parVx, c.parVy, c.parVz = c.parVx[:0], c.parVy[:0], c.parVz[:0]
	for _, p := range evt.Particles {
		c.parPDG = append(c.parPDG, p.PDG)
		c.parStatus = append(c.parStatus, p.Status)
		c.parMass = append(c.parMass, p.Mass)
		c.parPx, c.parPy, c.parPz = append(c.parPx, p.Mom.X), append(c.parPy, p.Mom.Y), append(c.parPz, p.Mom.Z)
		c.parVx, c.parVy, c.parVz = append(c.parVx, p.Vertex.X), append(c.parVy, p.Vertex.Y), append(c.parVz, p.Vertex.Z)
	}

	c.nClu = int32(len(evt.Clusters))
	c.cluE = c.cluE[:0]
	c.cluX, c.cluY, c.cluZ = c.cluX[:0], c.cluY[:0], c.cluZ[:0]
	c.cluBeg, c.cluEnd, c.cluHits = c.cluBeg[:0], c.cluEnd[:0], c.cluHits[:0]
	for _, cl := range evt.Clusters {
		c.cluE = append(c.cluE, float32(cl.Energy))
		c.cluX = append(c.cluX, float32(cl.Pos.X))
		c.cluY = append(c.cluY, float32(cl.Pos.Y))
		c.cluZ = append(c.cluZ, float32(cl.Pos.Z))
		c.cluBeg = append(c.cluBeg, uint32(len(c.cluHits)))
		for _, id := range cl.Hits {
			c.cluHits = append(c.cluHits, int32(id))
		}
		c.cluEnd = append(c.cluEnd, uint32(len(c.cluHits)))
	}
	c.nRef = int32(len(c.cluHits))

	c.nHit = int32(len(evt.Hits))
	c.hitE = c.hitE[:0]
	c.hitX, c.hitY, c.hitZ = c.hitX[:0], c.hitY[:0], c.hitZ[:0]
	c.hitLayer = c.hitLayer[:0]
	for _, h := range evt.Hits {
		c.hitE = append(c.hitE, float32(h.Energy))
		c.hitX = append(c.hitX, float32(h.Pos.X))
		c.hitY = append(c.hitY, float32(h.Pos.Y))
		c.hitZ = append(c.hitZ, float32(h.Pos.Z))
		c.hitLayer = append(c.hitLayer, int32(h.Layer))
	}

	c.nAsc = int32(len(evt.Assocs))
	c.ascWeight, c.ascRec, c.ascSim = c.ascWeight[:0], c.ascRec[:0], c.ascSim[:0]
	for _, a := range evt.Assocs {
		c.ascWeight = append(c.ascWeight, float32(a.Weight))
		c.ascRec = append(c.ascRec, int32(a.Rec))
		c.ascSim = append(c.ascSim, int32(a.Sim))
	}
}

type number interface {
	~int32 | ~uint32 | ~float32 | ~float64
}

// at returns v[i], or zero when a member vector is shorter than its
// collection.
func at[T number](v []T, i int) float64 {
	if i >= len(v) {
		return 0
	}
	return float64(v[i])
}
