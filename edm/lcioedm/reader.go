// Package lcioedm maps LCIO events onto edm events.
//
// Particles come from an McParticle collection, clusters from a Cluster
// collection, hits from a CalorimeterHit collection whose CellIDEncoding has
// a "layer" field, and truth associations from an LCRelation collection
// linking clusters and particles in either direction.
package lcioedm

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"go-hep.org/x/hep/lcio"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/decibelcooper/bicreso/edm"
)

var (
	ErrMissingCollection = errors.New("lcioedm: missing collection")
	ErrCollectionType    = errors.New("lcioedm: unexpected collection type")
)

const (
	cellIDEncoding = "CellIDEncoding"
	layerField     = "layer"
)

type Reader struct {
	fname string
	r     *lcio.Reader
	colls edm.Collections
	evt   edm.Event
	err   error
}

func Open(fname string, colls edm.Collections) (*Reader, error) {
	r, err := lcio.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("lcioedm: could not open %q: %w", fname, err)
	}
	return &Reader{fname: fname, r: r, colls: colls}, nil
}

func (r *Reader) Next() bool {
	if r.err != nil {
		return false
	}
	if !r.r.Next() {
		return false
	}

	evt := r.r.Event()
	r.evt, r.err = Convert(&evt, r.colls)
	if r.err != nil {
		r.err = fmt.Errorf("%s: event %d: %w", r.fname, evt.EventNumber, r.err)
		return false
	}
	return true
}

func (r *Reader) Event() edm.Event {
	return r.evt
}

func (r *Reader) Err() error {
	if r.err != nil {
		return r.err
	}
	err := r.r.Err()
	if err != nil && err != io.EOF {
		return fmt.Errorf("lcioedm: could not read %q: %w", r.fname, err)
	}
	return nil
}

func (r *Reader) Close() error {
	return r.r.Close()
}

// Convert builds an edm.Event from the named collections of evt.
//
// The particle and association collections are required. Clusters and hits
// referenced by associations but absent from the named collections are
// appended so that every reference resolves to an ID.
func Convert(evt *lcio.Event, colls edm.Collections) (edm.Event, error) {
	out := edm.Event{Number: int(evt.EventNumber)}

	mcs, err := getColl[*lcio.McParticleContainer](evt, colls.Particles)
	if err != nil {
		return out, err
	}
	pids := make(map[*lcio.McParticle]edm.ID, len(mcs.Particles))
	out.Particles = make([]edm.Particle, 0, len(mcs.Particles))
	for i := range mcs.Particles {
		mc := &mcs.Particles[i]
		id := edm.ID(i)
		pids[mc] = id

		mom := vec(mc.P)
		mass := float64(mc.Mass)
		out.Particles = append(out.Particles, edm.Particle{
			ID:     id,
			PDG:    mc.PDG,
			Status: mc.GenStatus,
			Mom:    mom,
			Vertex: vec(mc.Vertex),
			Mass:   mass,
			Energy: edm.EnergyFromMom(mom, mass),
		})
	}

	hits := newHitTable(&out)
	if colls.Hits != "" {
		hc, err := getColl[*lcio.CalorimeterHitContainer](evt, colls.Hits)
		if err != nil {
			return out, err
		}
		if err := hits.setDecoder(hc.Params); err != nil {
			return out, fmt.Errorf("%w (collection %q)", err, colls.Hits)
		}
		for i := range hc.Hits {
			hits.id(&hc.Hits[i])
		}
	}

	cids := make(map[*lcio.Cluster]edm.ID)
	addCluster := func(cl *lcio.Cluster) edm.ID {
		if id, ok := cids[cl]; ok {
			return id
		}
		id := edm.ID(len(out.Clusters))
		cids[cl] = id
		c := edm.Cluster{
			ID:     id,
			Energy: float64(cl.Energy),
			Pos:    vec(cl.Pos),
		}
		if colls.Hits != "" {
			for _, h := range cl.Hits {
				if h == nil {
					continue
				}
				c.Hits = append(c.Hits, hits.id(h))
			}
		}
		out.Clusters = append(out.Clusters, c)
		return id
	}

	if colls.Clusters != "" && evt.Has(colls.Clusters) {
		cc, err := getColl[*lcio.ClusterContainer](evt, colls.Clusters)
		if err != nil {
			return out, err
		}
		for i := range cc.Clusters {
			addCluster(&cc.Clusters[i])
		}
	}

	rc, err := getColl[*lcio.RelationContainer](evt, colls.Assocs)
	if err != nil {
		return out, err
	}
	for _, rel := range rc.Rels {
		var (
			mc *lcio.McParticle
			cl *lcio.Cluster
		)
		for _, v := range []interface{}{rel.From, rel.To} {
			switch v := v.(type) {
			case *lcio.McParticle:
				mc = v
			case *lcio.Cluster:
				cl = v
			}
		}
		if mc == nil || cl == nil {
			continue
		}
		sim, ok := pids[mc]
		if !ok {
			continue
		}
		out.Assocs = append(out.Assocs, edm.Association{
			Sim:    sim,
			Rec:    addCluster(cl),
			Weight: float64(rel.Weight),
		})
	}

	return out, nil
}

func getColl[T any](evt *lcio.Event, name string) (T, error) {
	var zero T
	if name == "" || !evt.Has(name) {
		return zero, fmt.Errorf("%w %q", ErrMissingCollection, name)
	}
	v, ok := evt.Get(name).(T)
	if !ok {
		return zero, fmt.Errorf("%w: %q is %T, want %T", ErrCollectionType, name, evt.Get(name), zero)
	}
	return v, nil
}

type hitTable struct {
	evt *edm.Event
	ids map[*lcio.CalorimeterHit]edm.ID
	dec *lcio.CellIDDecoder
}

func newHitTable(evt *edm.Event) *hitTable {
	return &hitTable{evt: evt, ids: make(map[*lcio.CalorimeterHit]edm.ID)}
}

func (t *hitTable) setDecoder(params lcio.Params) error {
	codec := params.Strings[cellIDEncoding]
	if len(codec) == 0 || !hasField(codec[0], layerField) {
		return fmt.Errorf("lcioedm: no %q field in %s", layerField, cellIDEncoding)
	}
	t.dec = lcio.NewCellIDDecoder(codec[0])
	return nil
}

func (t *hitTable) id(h *lcio.CalorimeterHit) edm.ID {
	if id, ok := t.ids[h]; ok {
		return id
	}
	id := edm.ID(len(t.evt.Hits))
	t.ids[h] = id

	layer := -1
	if t.dec != nil {
		layer = int(t.dec.Get(h, layerField))
	}
	t.evt.Hits = append(t.evt.Hits, edm.Hit{
		ID:     id,
		Energy: float64(h.Energy),
		Pos:    vec(h.Pos),
		Layer:  layer,
	})
	return id
}

func hasField(codec, name string) bool {
	for _, f := range strings.Split(codec, ",") {
		if strings.TrimSpace(strings.SplitN(f, ":", 2)[0]) == name {
			return true
		}
	}
	return false
}

type float interface {
	~float32 | ~float64
}

func vec[T float](v [3]T) r3.Vec {
	return r3.Vec{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
}
