package podioedm

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/decibelcooper/bicreso/edm"
)

func sampleEvent(n int) edm.Event {
	return edm.Event{
		Number: n,
		Particles: []edm.Particle{
			{ID: 0, PDG: 22, Status: 1, Mom: r3.Vec{Z: 5}},
			{ID: 1, PDG: 11, Status: 1, Mom: r3.Vec{X: 1, Y: 2, Z: float64(n)}, Vertex: r3.Vec{Z: 0.5}, Mass: 0.000511},
		},
		Hits: []edm.Hit{
			{ID: 0, Energy: 0.25, Pos: r3.Vec{X: 800, Y: 10, Z: 20}, Layer: 1},
			{ID: 1, Energy: 0.5, Pos: r3.Vec{X: 810, Y: 11, Z: 21}, Layer: 2},
			{ID: 2, Energy: 0.125, Pos: r3.Vec{X: 820, Y: 12, Z: 22}, Layer: 7},
		},
		Clusters: []edm.Cluster{
			{ID: 0, Energy: 0.75, Pos: r3.Vec{X: 805}, Hits: []edm.ID{2}},
			{ID: 1, Energy: 2.5, Pos: r3.Vec{X: 850, Y: 12, Z: 30}, Hits: []edm.ID{0, 1}},
		},
		Assocs: []edm.Association{{Sim: 1, Rec: 1, Weight: 0.5}},
	}
}

func imagingCollections() edm.Collections {
	return edm.Collections{
		Particles: "MCParticles",
		Clusters:  "EcalBarrelImagingClusters",
		Hits:      "EcalBarrelImagingRecHits",
		Assocs:    "EcalBarrelImagingClusterAssociations",
	}
}

func writeSample(t *testing.T, colls edm.Collections, n int) string {
	t.Helper()
	fname := filepath.Join(t.TempDir(), "sample.edm4eic.root")
	w, err := Create(fname, colls)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		require.NoError(t, w.Write(sampleEvent(i)))
	}
	assert.Equal(t, n, w.N())
	require.NoError(t, w.Close())
	return fname
}

func TestRoundTrip(t *testing.T) {
	colls := imagingCollections()
	// more events than one read chunk
	const n = chunk + 44
	fname := writeSample(t, colls, n)

	r, err := Open(fname, colls)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, int64(n), r.N())

	i := 0
	for r.Next() {
		evt := r.Event()
		assert.Equal(t, i, evt.Number)

		require.Len(t, evt.Particles, 2)
		p := evt.Particles[1]
		assert.Equal(t, edm.ID(1), p.ID)
		assert.Equal(t, int32(11), p.PDG)
		assert.Equal(t, int32(1), p.Status)
		assert.InDelta(t, float64(i), p.Mom.Z, 1e-12)
		assert.InDelta(t, 0.5, p.Vertex.Z, 1e-12)
		assert.InDelta(t, edm.EnergyFromMom(p.Mom, 0.000511), p.Energy, 1e-12)

		require.Len(t, evt.Hits, 3)
		assert.Equal(t, 7, evt.Hits[2].Layer)
		assert.InDelta(t, 0.125, evt.Hits[2].Energy, 1e-6)
		assert.InDelta(t, 810, evt.Hits[1].Pos.X, 1e-3)

		require.Len(t, evt.Clusters, 2)
		assert.Equal(t, []edm.ID{2}, evt.Clusters[0].Hits)
		assert.Equal(t, []edm.ID{0, 1}, evt.Clusters[1].Hits)
		assert.InDelta(t, 2.5, evt.Clusters[1].Energy, 1e-6)

		require.Len(t, evt.Assocs, 1)
		assert.Equal(t, edm.Association{Sim: 1, Rec: 1, Weight: 0.5}, evt.Assocs[0])
		i++
	}
	require.NoError(t, r.Err())
	assert.Equal(t, n, i)
}

func TestClusterCollection(t *testing.T) {
	assert.Equal(t, "EcalBarrelClusters", ClusterCollection(edm.Collections{Assocs: "EcalBarrelClusterAssociations"}))
	assert.Equal(t, "EcalBarrelImagingClusters", ClusterCollection(edm.Collections{Assocs: "EcalBarrelImagingClusterAssociations"}))
	assert.Equal(t, "Mine", ClusterCollection(edm.Collections{Clusters: "Mine", Assocs: "EcalBarrelClusterAssociations"}))
	assert.Empty(t, ClusterCollection(edm.Collections{Assocs: "Relations"}))
}

func TestClustersFromAssociationName(t *testing.T) {
	colls := imagingCollections()
	fname := writeSample(t, colls, 1)

	colls.Clusters = ""
	r, err := Open(fname, colls)
	require.NoError(t, err)
	defer r.Close()

	require.True(t, r.Next())
	evt := r.Event()
	require.Len(t, evt.Clusters, 2)
	assert.Len(t, evt.Clusters[1].Hits, 2)
	assert.False(t, r.Next())
	assert.NoError(t, r.Err())
}

func TestWithoutHits(t *testing.T) {
	colls := edm.DefaultCollections()
	colls.Hits = ""
	fname := writeSample(t, colls, 2)

	r, err := Open(fname, colls)
	require.NoError(t, err)
	require.True(t, r.Next())
	evt := r.Event()
	assert.Empty(t, evt.Hits)
	assert.Empty(t, evt.Clusters[1].Hits)
	require.NoError(t, r.Close())

	// a hit collection that was never written
	colls.Hits = "EcalBarrelImagingRecHits"
	_, err = Open(fname, colls)
	assert.ErrorIs(t, err, ErrMissingCollection)
}

func TestOpenErrors(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.root"), edm.DefaultCollections())
	assert.Error(t, err)

	_, err = Open("x.root", edm.Collections{Particles: "MCParticles", Assocs: "Relations"})
	assert.ErrorIs(t, err, ErrMissingCollection)

	_, err = Create(filepath.Join(t.TempDir(), "x.root"), edm.Collections{Particles: "MCParticles"})
	assert.ErrorIs(t, err, ErrMissingCollection)
}

func TestWriteDanglingReference(t *testing.T) {
	w, err := Create(filepath.Join(t.TempDir(), "x.root"), imagingCollections())
	require.NoError(t, err)
	defer w.Close()

	evt := sampleEvent(0)
	evt.Assocs[0].Rec = 5
	assert.ErrorContains(t, w.Write(evt), "dangling cluster 5")

	evt = sampleEvent(0)
	evt.Clusters[0].Hits = []edm.ID{9}
	assert.ErrorContains(t, w.Write(evt), "dangling hit 9")
}

func TestIsPodioFile(t *testing.T) {
	assert.True(t, IsPodioFile("forBICMOBO.edm4eic.root"))
	assert.True(t, IsPodioFile("root://dtn-eic.jlab.org//volatile/eic/x.edm4eic.root"))
	assert.False(t, IsPodioFile("synth.slcio"))
}
