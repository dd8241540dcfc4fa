package podioedm

import (
	"fmt"

	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/riofs"
	"go-hep.org/x/hep/groot/rtree"

	"github.com/decibelcooper/bicreso/edm"
)

// Writer stores edm events in the podio branch layout read by Reader. Only
// the members the analyses read are written.
type Writer struct {
	f    *riofs.File
	w    rtree.Writer
	cols *columns
	n    int
}

// Create opens fname for writing. The particle and association collections
// must be named; hits are only written when named.
func Create(fname string, colls edm.Collections) (*Writer, error) {
	cols := newColumns(colls)
	if colls.Particles == "" || colls.Assocs == "" || cols.clus == "" {
		return nil, fmt.Errorf("%w: particle, cluster and association collections must be named", ErrMissingCollection)
	}

	f, err := groot.Create(fname)
	if err != nil {
		return nil, fmt.Errorf("podioedm: could not create %q: %w", fname, err)
	}

	var wvars []rtree.WriteVar
	for _, c := range cols.list() {
		wvars = append(wvars, rtree.WriteVar{Name: c.name, Value: c.value, Count: c.size})
	}
	w, err := rtree.NewWriter(f, EventsTree, wvars, rtree.WithTitle("Events tree"))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("podioedm: could not create tree: %w", err)
	}
	return &Writer{f: f, w: w, cols: cols}, nil
}

func (w *Writer) Write(evt edm.Event) error {
	for _, c := range evt.Clusters {
		for _, id := range c.Hits {
			if w.cols.hasHits() {
				if _, ok := evt.Hit(id); !ok {
					return fmt.Errorf("podioedm: event %d: cluster %d: dangling hit %d", evt.Number, c.ID, id)
				}
			}
		}
	}
	for _, a := range evt.Assocs {
		if _, ok := evt.Particle(a.Sim); !ok {
			return fmt.Errorf("podioedm: event %d: dangling particle %d", evt.Number, a.Sim)
		}
		if _, ok := evt.Cluster(a.Rec); !ok {
			return fmt.Errorf("podioedm: event %d: dangling cluster %d", evt.Number, a.Rec)
		}
	}

	w.cols.fill(evt)
	if _, err := w.w.Write(); err != nil {
		return fmt.Errorf("podioedm: could not write event %d: %w", evt.Number, err)
	}
	w.n++
	return nil
}

// N returns the number of events written so far.
func (w *Writer) N() int { return w.n }

func (w *Writer) Close() error {
	if err := w.w.Close(); err != nil {
		w.f.Close()
		return fmt.Errorf("podioedm: could not close tree: %w", err)
	}
	return w.f.Close()
}
