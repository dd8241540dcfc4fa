// Package podioedm maps EDM4eic events, as written by podio to ROOT files,
// onto edm events.
//
// Each collection is read from the split member branches of the events
// tree: MCParticles.PDG, EcalBarrelClusters.position.x and so on.
// One-to-many relations come from the _<collection>_<relation>.index
// branches. Files are opened with groot, so paths may be local or
// root:// URLs served by xrootd.
package podioedm

import (
	"errors"
	"fmt"
	"strings"

	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/riofs"
	_ "go-hep.org/x/hep/groot/riofs/plugin/xrootd"
	"go-hep.org/x/hep/groot/rtree"

	"github.com/decibelcooper/bicreso/edm"
)

var ErrMissingCollection = errors.New("podioedm: missing collection")

// chunk is the number of entries decoded per tree read.
const chunk = 256

// IsPodioFile reports whether name looks like a podio ROOT file or URL.
func IsPodioFile(name string) bool {
	return strings.HasSuffix(name, ".root") || strings.Contains(name, "://")
}

type Reader struct {
	name  string
	f     *riofs.File
	tree  rtree.Tree
	cols  *columns
	rvars []rtree.ReadVar

	next int64
	buf  []edm.Event
	evt  edm.Event
	err  error
}

// Open opens the events tree of a local file or root:// URL.
func Open(name string, colls edm.Collections) (*Reader, error) {
	if colls.Particles == "" || colls.Assocs == "" {
		return nil, fmt.Errorf("%w: particle and association collections must be named", ErrMissingCollection)
	}
	cols := newColumns(colls)
	if cols.clus == "" {
		return nil, fmt.Errorf("%w: no cluster collection for %q", ErrMissingCollection, colls.Assocs)
	}

	f, err := groot.Open(name)
	if err != nil {
		return nil, fmt.Errorf("podioedm: could not open %q: %w", name, err)
	}
	obj, err := f.Get(EventsTree)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("podioedm: %q: %w", name, err)
	}
	tree, ok := obj.(rtree.Tree)
	if !ok {
		f.Close()
		return nil, fmt.Errorf("podioedm: %q: %s is a %T, not a tree", name, EventsTree, obj)
	}

	var rvars []rtree.ReadVar
	for _, c := range cols.list() {
		if c.size == "" {
			continue
		}
		if tree.Branch(c.name) == nil {
			f.Close()
			return nil, fmt.Errorf("%w: no branch %q in %q", ErrMissingCollection, c.name, name)
		}
		rvars = append(rvars, rtree.ReadVar{Name: c.name, Value: c.value})
	}

	return &Reader{name: name, f: f, tree: tree, cols: cols, rvars: rvars}, nil
}

// N returns the number of events in the file.
func (r *Reader) N() int64 {
	return r.tree.Entries()
}

func (r *Reader) Next() bool {
	if r.err != nil {
		return false
	}
	if len(r.buf) == 0 {
		if r.next >= r.tree.Entries() {
			return false
		}
		if r.err = r.load(); r.err != nil {
			return false
		}
	}
	r.evt, r.buf = r.buf[0], r.buf[1:]
	return true
}

func (r *Reader) load() error {
	end := r.next + chunk
	if n := r.tree.Entries(); end > n {
		end = n
	}
	rr, err := rtree.NewReader(r.tree, r.rvars, rtree.WithRange(r.next, end))
	if err != nil {
		return fmt.Errorf("podioedm: could not read %q: %w", r.name, err)
	}
	defer rr.Close()

	err = rr.Read(func(ctx rtree.RCtx) error {
		r.buf = append(r.buf, r.cols.event(int(ctx.Entry)))
		return nil
	})
	if err != nil {
		return fmt.Errorf("podioedm: could not read %q entries [%d, %d): %w", r.name, r.next, end, err)
	}
	r.next = end
	return nil
}

func (r *Reader) Event() edm.Event {
	return r.evt
}

func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) Close() error {
	return r.f.Close()
}
