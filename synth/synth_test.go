package synth

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decibelcooper/bicreso/edm"
	"github.com/decibelcooper/bicreso/reso"
)

func TestDirection(t *testing.T) {
	d := Direction(math.Pi/2, 0)
	assert.InDelta(t, 1, d.X, 1e-12)
	assert.InDelta(t, 0, d.Z, 1e-12)
	assert.InDelta(t, 0.5, reso.Eta.Of(Direction(ThetaOfEta(0.5), 1)), 1e-12)
}

func TestDeterministic(t *testing.T) {
	a := New(DefaultConfig()).Energy(10, 0.05)
	b := New(DefaultConfig()).Energy(10, 0.05)
	assert.Equal(t, a, b)

	cfg := DefaultConfig()
	cfg.Seed++
	c := New(cfg).Energy(10, 0.05)
	assert.NotEqual(t, a[0].Clusters[0].Energy, c[0].Clusters[0].Energy)
}

func TestEnergyEvents(t *testing.T) {
	evts := New(DefaultConfig()).Energy(100, 0)
	for i, evt := range evts {
		assert.Equal(t, i, evt.Number)
		p, ok := reso.FindPrimary(&evt, PDGElectron)
		require.True(t, ok)
		assert.Equal(t, edm.ID(1), p.ID)
		assert.InDelta(t, p.Energy, edm.EnergyFromMom(p.Mom, p.Mass), 1e-9)

		cls := reso.AssociatedClusters(&evt, p.ID)
		require.Len(t, cls, 1)
		assert.InDelta(t, p.Energy, cls[0].Energy, 1e-12)
	}
}

func TestClusterAngleEvents(t *testing.T) {
	evts := New(DefaultConfig()).ClusterAngle(50, 0)
	for _, evt := range evts {
		p, ok := reso.FindPrimary(&evt, PDGElectron)
		require.True(t, ok)
		cl := reso.AssociatedClusters(&evt, p.ID)[0]
		for _, c := range []reso.Coord{reso.Eta, reso.Phi} {
			truth := reso.ParticleInfo(c, p).Angle
			rec := reso.ClusterInfo(c, cl, p.Vertex).Angle
			assert.InDelta(t, truth, rec, 1e-9)
		}
	}
}

func TestImagingHits(t *testing.T) {
	for _, c := range []reso.Coord{reso.Theta, reso.Eta, reso.Phi} {
		evts := New(DefaultConfig()).ImagingHits(50, c, Mixture{})
		for _, evt := range evts {
			p, ok := reso.FindPrimary(&evt, PDGElectron)
			require.True(t, ok)

			var lm reso.LayerMaxima
			for _, cl := range reso.AssociatedClusters(&evt, p.ID) {
				for _, id := range cl.Hits {
					h, ok := evt.Hit(id)
					require.True(t, ok)
					lm.Add(h)
				}
			}
			h, ok := lm.Upstream()
			require.True(t, ok)
			assert.LessOrEqual(t, h.Layer, 3)
			assert.InDelta(t, reso.ParticleInfo(c, p).Angle, reso.HitInfo(c, h).Angle, 1e-9, c.String())
		}
	}
}

func TestFractions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NoPrimary = 0.2
	cfg.NoCluster = 0.2
	evts := New(cfg).Energy(2000, 0.05)

	var noPrimary, noCluster int
	for _, evt := range evts {
		p, ok := reso.FindPrimary(&evt, PDGElectron)
		if !ok {
			noPrimary++
			continue
		}
		if len(reso.AssociatedClusters(&evt, p.ID)) == 0 {
			noCluster++
		}
	}
	assert.InDelta(t, 400, noPrimary, 80)
	assert.InDelta(t, 320, noCluster, 80)
}

func TestAboveImaging(t *testing.T) {
	evt := New(DefaultConfig()).AboveImaging()
	require.NotEmpty(t, evt.Hits)
	for _, h := range evt.Hits {
		assert.Greater(t, h.Layer, reso.MaxLayer)
	}
	p, ok := reso.FindPrimary(&evt, PDGElectron)
	require.True(t, ok)
	assert.Len(t, reso.AssociatedClusters(&evt, p.ID), 1)
}
