package lcioedm

import (
	"compress/flate"
	"fmt"

	"go-hep.org/x/hep/lcio"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/decibelcooper/bicreso/edm"
)

// LCIO collection flag bits.
const (
	chBitLong    = 31 // calorimeter hit stores its position
	clBitHits    = 30 // cluster stores hit pointers
	relBitWeight = 31 // relation stores weights
)

// Writer stores edm events as LCIO events, the inverse of Convert.
type Writer struct {
	w     *lcio.Writer
	colls edm.Collections
	n     int
}

// Create opens fname for writing. The particle, cluster and association
// collection names are required, hits are only written when named.
func Create(fname string, colls edm.Collections, detector string) (*Writer, error) {
	if colls.Particles == "" || colls.Clusters == "" || colls.Assocs == "" {
		return nil, fmt.Errorf("%w: particle, cluster and association collections must be named", ErrMissingCollection)
	}
	w, err := lcio.Create(fname)
	if err != nil {
		return nil, fmt.Errorf("lcioedm: could not create %q: %w", fname, err)
	}
	w.SetCompressionLevel(flate.BestCompression)

	err = w.WriteRunHeader(&lcio.RunHeader{
		RunNumber: 0,
		Detector:  detector,
		Descr:     "synthetic single particle events",
	})
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("lcioedm: could not write run header: %w", err)
	}

	return &Writer{w: w, colls: colls}, nil
}

func (w *Writer) Write(evt edm.Event) error {
	var (
		mcs  lcio.McParticleContainer
		hits lcio.CalorimeterHitContainer
		clus lcio.ClusterContainer
		rels lcio.RelationContainer
	)

	mcs.Particles = make([]lcio.McParticle, len(evt.Particles))
	for i, p := range evt.Particles {
		mc := &mcs.Particles[i]
		mc.PDG = p.PDG
		mc.GenStatus = p.Status
		setVec(&mc.P, p.Mom)
		setVec(&mc.Vertex, p.Vertex)
		setFloat(&mc.Mass, p.Mass)
	}

	hits.Flags = flagBit(chBitLong)
	hits.Params.Strings = map[string][]string{cellIDEncoding: {layerField + ":8"}}
	hits.Hits = make([]lcio.CalorimeterHit, len(evt.Hits))
	for i, h := range evt.Hits {
		hit := &hits.Hits[i]
		hit.CellID0 = int32(h.Layer & 0xff)
		setFloat(&hit.Energy, h.Energy)
		setVec(&hit.Pos, h.Pos)
	}

	clus.Flags = flagBit(clBitHits)
	clus.Clusters = make([]lcio.Cluster, len(evt.Clusters))
	for i, c := range evt.Clusters {
		cl := &clus.Clusters[i]
		setFloat(&cl.Energy, c.Energy)
		setVec(&cl.Pos, c.Pos)
		if w.colls.Hits == "" {
			continue
		}
		for _, id := range c.Hits {
			if id < 0 || int(id) >= len(hits.Hits) {
				return fmt.Errorf("lcioedm: event %d: cluster %d: dangling hit %d", evt.Number, c.ID, id)
			}
			cl.Hits = append(cl.Hits, &hits.Hits[id])
		}
	}

	rels.Flags = flagBit(relBitWeight)
	rels.Params.Strings = map[string][]string{
		"FromType": {"Cluster"},
		"ToType":   {"MCParticle"},
	}
	for _, a := range evt.Assocs {
		if _, ok := evt.Particle(a.Sim); !ok {
			return fmt.Errorf("lcioedm: event %d: dangling particle %d", evt.Number, a.Sim)
		}
		if _, ok := evt.Cluster(a.Rec); !ok {
			return fmt.Errorf("lcioedm: event %d: dangling cluster %d", evt.Number, a.Rec)
		}
		rel := lcio.Relation{
			From: &clus.Clusters[a.Rec],
			To:   &mcs.Particles[a.Sim],
		}
		setFloat(&rel.Weight, a.Weight)
		rels.Rels = append(rels.Rels, rel)
	}

	out := lcio.Event{
		RunNumber:   0,
		EventNumber: int32(evt.Number),
	}
	out.Add(w.colls.Particles, &mcs)
	if w.colls.Hits != "" {
		out.Add(w.colls.Hits, &hits)
	}
	out.Add(w.colls.Clusters, &clus)
	out.Add(w.colls.Assocs, &rels)

	if err := w.w.WriteEvent(&out); err != nil {
		return fmt.Errorf("lcioedm: could not write event %d: %w", evt.Number, err)
	}
	w.n++
	return nil
}

// N returns the number of events written so far.
func (w *Writer) N() int { return w.n }

func (w *Writer) Close() error {
	return w.w.Close()
}

func flagBit(bit uint) lcio.Flags {
	return lcio.Flags(1) << bit
}

func setFloat[T float](dst *T, v float64) {
	*dst = T(v)
}

func setVec[T float](dst *[3]T, v r3.Vec) {
	dst[0] = T(v.X)
	dst[1] = T(v.Y)
	dst[2] = T(v.Z)
}
