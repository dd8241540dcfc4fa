package reso_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/decibelcooper/bicreso/edm"
	"github.com/decibelcooper/bicreso/reso"
	"github.com/decibelcooper/bicreso/synth"
)

func run(t *testing.T, a reso.Analysis, evts []edm.Event, log *zap.Logger) *reso.Result {
	t.Helper()
	in := reso.Input{
		Name: "mem",
		Open: func() (edm.Source, error) { return edm.NewSliceSource(evts), nil },
	}
	r, err := reso.Run(context.Background(), a, []reso.Input{in}, 1, log)
	require.NoError(t, err)
	return r
}

func TestClustEneEndToEnd(t *testing.T) {
	cfg := synth.DefaultConfig()
	cfg.NoCluster = 0.05
	evts := synth.New(cfg).Energy(5000, 0.05)

	a := reso.NewClustEne(reso.Config{PDG: synth.PDGElectron})
	r := run(t, a, evts, zap.NewNop())

	assert.Equal(t, reso.SigmaPolicy, r.Policy)
	assert.Equal(t, "fEneRes", r.FitName)
	assert.Equal(t, "hEneRes", r.Dist.Name())
	require.False(t, math.IsNaN(r.ResoErr))
	assert.Greater(t, r.ResoErr, 0.)
	assert.InDelta(t, 0.05, r.Reso, 3*r.ResoErr)
	assert.InDelta(t, 0, r.Mean, 3*r.MeanErr+1e-3)
	assert.InDelta(t, -0.5, r.Fit.Lo, 0.5)

	assert.Equal(t, 5000, r.Stats.Events)
	assert.Greater(t, r.Stats.NoCluster, 0)
	assert.Equal(t, r.Stats.Events, r.Stats.Filled+r.Stats.Skipped())
	assert.Equal(t, int64(r.Stats.Filled), r.Dist.Entries())
}

func TestClustAngEndToEnd(t *testing.T) {
	for _, c := range []reso.Coord{reso.Phi, reso.Eta} {
		t.Run(c.String(), func(t *testing.T) {
			evts := synth.New(synth.DefaultConfig()).ClusterAngle(5000, 0.05)

			a, err := reso.NewClustAng(reso.Config{PDG: synth.PDGElectron, Coord: c})
			require.NoError(t, err)
			r := run(t, a, evts, zap.NewNop())

			assert.Equal(t, "fAngRes", r.FitName)
			assert.Equal(t, "hAngRes", r.Dist.Name())
			require.False(t, math.IsNaN(r.ResoErr))
			assert.InDelta(t, 0.05, r.Reso, 3*r.ResoErr)
			assert.Equal(t, 5000, r.Stats.Filled)
		})
	}

	_, err := reso.NewClustAng(reso.Config{PDG: 11, Coord: reso.Theta})
	assert.ErrorIs(t, err, reso.ErrUnknownCoord)
}

// mixtureFWHM returns the full width at half maximum of a zero-centered
// two-Gaussian density.
func mixtureFWHM(m synth.Mixture) float64 {
	f := func(x float64) float64 {
		g := func(s float64) float64 { return math.Exp(-0.5*x*x/(s*s)) / s }
		return (1-m.TailFrac)*g(m.Core) + m.TailFrac*g(m.Tail)
	}
	half := f(0) / 2
	lo, hi := 0., 10*m.Tail
	for i := 0; i < 200; i++ {
		mid := (lo + hi) / 2
		if f(mid) > half {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo + hi
}

func TestHitAngEndToEnd(t *testing.T) {
	m := synth.Mixture{Core: 0.01, Tail: 0.02, TailFrac: 0.3}
	want := mixtureFWHM(m)

	for _, c := range []reso.Coord{reso.Theta, reso.Eta, reso.Phi} {
		t.Run(c.String(), func(t *testing.T) {
			cfg := synth.DefaultConfig()
			cfg.NoPrimary = 0.02
			cfg.NoCluster = 0.03
			evts := synth.New(cfg).ImagingHits(5000, c, m)

			a, err := reso.NewHitAng(reso.Config{PDG: synth.PDGElectron, Coord: c}, reso.Gaus2)
			require.NoError(t, err)
			r := run(t, a, evts, zap.NewNop())

			assert.Equal(t, reso.FWHMPolicy, r.Policy)
			assert.Equal(t, r.Width.FWHM, r.Reso)
			assert.InDelta(t, want, r.Reso, 0.15*want)
			assert.InDelta(t, 0, r.Width.Peak, 0.005)
			assert.Equal(t, reso.Gaus2, r.Fit.Shape)

			st := r.Stats
			assert.Equal(t, 5000, st.Events)
			assert.Greater(t, st.NoPrimary, 0)
			assert.Greater(t, st.NoCluster, 0)
			assert.Zero(t, st.NoLayer)
			assert.Equal(t, st.Events, st.Filled+st.Skipped())

			names := map[string]bool{}
			for _, h := range r.Hists {
				names[h.Name()] = true
			}
			for _, n := range []string{"hParEne", "hClustEne", "hMaxHitEne", "hMinLayer"} {
				assert.True(t, names[n], n)
			}
			require.Len(t, r.Hists2D, 1)
			require.Len(t, r.Graphs, 1)

			// the selected hits come from layers 1 to 3 only
			layers := r.Hists[3]
			assert.Equal(t, "hMinLayer", layers.Name())
			var sum float64
			for _, b := range layers.Binning.Bins {
				if b.XMid() < 0.5 || b.XMid() > 3.5 {
					assert.Zero(t, b.SumW())
				}
				sum += b.SumW()
			}
			assert.Equal(t, float64(st.Filled), sum)

			eff := r.Graphs[0]
			for i := 0; i < eff.Len(); i++ {
				p := eff.Point(i)
				assert.GreaterOrEqual(t, p.Y, 0.)
				assert.LessOrEqual(t, p.Y, 1.)
			}
		})
	}
}

func TestHitAngSingleGauss(t *testing.T) {
	m := synth.Mixture{Core: 0.01}
	evts := synth.New(synth.DefaultConfig()).ImagingHits(5000, reso.Phi, m)

	a, err := reso.NewHitAng(reso.Config{PDG: synth.PDGElectron, Coord: reso.Phi}, reso.Gaus)
	require.NoError(t, err)
	r := run(t, a, evts, zap.NewNop())

	assert.Equal(t, reso.Gaus, r.Fit.Shape)
	want := 2 * math.Sqrt(2*math.Ln2) * 0.01
	assert.InDelta(t, want, r.Reso, 0.1*want)
}

func TestHitAngAboveImagingLayers(t *testing.T) {
	gen := synth.New(synth.DefaultConfig())
	evts := gen.ImagingHits(200, reso.Theta, synth.Mixture{Core: 0.01})
	odd := gen.AboveImaging()
	odd.Number = 9999
	evts = append(evts, odd)

	core, logs := observer.New(zapcore.WarnLevel)
	a, err := reso.NewHitAng(reso.Config{PDG: synth.PDGElectron, Coord: reso.Theta}, reso.Gaus2)
	require.NoError(t, err)
	r := run(t, a, evts, zap.New(core))

	assert.Equal(t, 1, r.Stats.NoLayer)
	assert.Equal(t, 200, r.Stats.Filled)
	assert.Equal(t, r.Stats.Events, r.Stats.Filled+r.Stats.Skipped())

	skipped := logs.FilterMessage("skipping event without hits in imaging layers").All()
	require.Len(t, skipped, 1)
	assert.Equal(t, int64(9999), skipped[0].ContextMap()["event"])

	rejected := logs.FilterMessage("hit layer outside imaging layers").FilterField(zap.Int("event", 9999))
	assert.Equal(t, synth.HitLayers-reso.MaxLayer, rejected.Len())
	for _, e := range rejected.All() {
		assert.Greater(t, e.ContextMap()["layer"], int64(reso.MaxLayer))
	}
}

func TestNoPrimaryWarning(t *testing.T) {
	evt := edm.Event{
		Number:    3,
		Particles: []edm.Particle{{ID: 0, PDG: 22, Status: 1}},
	}
	core, logs := observer.New(zapcore.WarnLevel)
	a := reso.NewClustEne(reso.Config{PDG: 11})
	o := a.Extract(&evt, zap.New(core))
	assert.Equal(t, reso.NoPrimary, o.Skip)

	all := logs.FilterMessage("event has no primary").All()
	require.Len(t, all, 1)
	assert.Equal(t, int64(3), all[0].ContextMap()["event"])
	assert.Equal(t, int32(11), all[0].ContextMap()["pdg"])
}

func TestFinishEmpty(t *testing.T) {
	a := reso.NewClustEne(reso.Config{PDG: 11})
	_, err := a.Finish(zap.NewNop())
	assert.ErrorIs(t, err, reso.ErrEmptyDist)

	h, err := reso.NewHitAng(reso.Config{PDG: 11, Coord: reso.Eta}, reso.Gaus2)
	require.NoError(t, err)
	_, err = h.Finish(zap.NewNop())
	assert.ErrorIs(t, err, reso.ErrEmptyDist)

	_, err = reso.NewHitAng(reso.Config{PDG: 11, Coord: reso.Eta}, "landau")
	assert.Error(t, err)
}
