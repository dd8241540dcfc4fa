package reso

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rhist"
	"go-hep.org/x/hep/hbook"
	"go-hep.org/x/hep/hbook/rootcnv"
)

func TestSummaryPath(t *testing.T) {
	assert.Equal(t, "out/eres.txt", SummaryPath("out/eres.root"))
	assert.Equal(t, "eres.txt", SummaryPath("eres"))
	assert.Equal(t, "a.root.d/b.txt", SummaryPath("a.root.d/b"))
}

func TestSummarySigma(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "eres.txt")
	r := &Result{Policy: SigmaPolicy, Reso: 0.05, ResoErr: 0.0012, Mean: -0.003, MeanErr: 0.0011}
	require.NoError(t, WriteSummary(fname, r))

	raw, err := os.ReadFile(fname)
	require.NoError(t, err)
	assert.Equal(t, "0.05\n0.0012\n-0.003\n0.0011", string(raw))

	vs, err := ReadSummary(fname)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.05, 0.0012, -0.003, 0.0011}, vs)
}

func TestSummaryFWHM(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "hres.txt")
	w := 0.023456789012345
	r := &Result{Policy: FWHMPolicy, Reso: w, ResoErr: math.NaN()}
	require.NoError(t, WriteSummary(fname, r))

	raw, err := os.ReadFile(fname)
	require.NoError(t, err)
	assert.Equal(t, "0.023456789012345\n", string(raw))

	vs, err := ReadSummary(fname)
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, w, vs[0])
}

func TestReadSummaryErrors(t *testing.T) {
	_, err := ReadSummary(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)

	fname := filepath.Join(t.TempDir(), "bad.txt")
	require.NoError(t, os.WriteFile(fname, []byte("0.1\n\nnope\n"), 0o644))
	_, err = ReadSummary(fname)
	assert.ErrorContains(t, err, "bad.txt:3")
}

func TestWriteROOT(t *testing.T) {
	d := NewAbsDist("hAngRes", ";#delta#phi")
	fillNormal(d, 2000, 0, 0.02, 3)
	lo, hi, err := d.NonEmptyRange()
	require.NoError(t, err)
	fr, err := Fit(d, GaussModel(d), lo, hi)
	require.NoError(t, err)

	par := newH1D("hParEne", "", 20, -0.5, 9.5)
	found := newH1D("hFound", "", 20, -0.5, 9.5)
	for _, e := range []float64{1, 1, 2, 3} {
		par.Fill(e, 1)
	}
	found.Fill(1, 1)
	found.Fill(3, 1)
	vl := newH2D("hMaxHitEneVsMinLayer", "", 8, -0.5, 7.5, 100, -0.5, 9.5)
	vl.Fill(2, 0.3, 1)

	r := &Result{
		Policy:  FWHMPolicy,
		Dist:    d,
		Fit:     fr,
		Reso:    0.04,
		FitName: "fAngRes",
		Hists:   []*hbook.H1D{par},
		Hists2D: []*hbook.H2D{vl},
		Graphs:  []*hbook.S2D{Efficiency("hEfficiency", found, par)},
	}

	out := filepath.Join(t.TempDir(), "hres.root")
	require.NoError(t, Write(out, r))

	vs, err := ReadSummary(SummaryPath(out))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.04}, vs)

	f, err := groot.Open(out)
	require.NoError(t, err)
	defer f.Close()

	obj, err := f.Get("hAngRes")
	require.NoError(t, err)
	h := rootcnv.H1D(obj.(rhist.H1))
	assert.Equal(t, d.H1D().Len(), h.Len())
	for i, b := range h.Binning.Bins {
		assert.Equal(t, d.H1D().Binning.Bins[i].SumW(), b.SumW())
	}

	obj, err = f.Get("fAngRes")
	require.NoError(t, err)
	assert.Equal(t, curvePoints, obj.(rhist.Graph).Len())

	obj, err = f.Get("hEfficiency")
	require.NoError(t, err)
	assert.Equal(t, 3, obj.(rhist.Graph).Len())

	for _, name := range []string{"hParEne", "hMaxHitEneVsMinLayer"} {
		_, err = f.Get(name)
		assert.NoError(t, err, name)
	}
}

func TestEfficiency(t *testing.T) {
	den := newH1D("den", "", 4, 0, 4)
	num := newH1D("num", "title", 4, 0, 4)
	for i := 0; i < 4; i++ {
		den.Fill(0.5, 1)
	}
	num.Fill(0.5, 1)
	den.Fill(2.5, 1)
	num.Fill(2.5, 1)

	s := Efficiency("eff", num, den)
	require.Equal(t, 2, s.Len())
	p := s.Point(0)
	assert.Equal(t, 0.5, p.X)
	assert.Equal(t, 0.25, p.Y)
	assert.InDelta(t, math.Sqrt(0.75*1/16.), p.ErrY.Min, 1e-12)
	p = s.Point(1)
	assert.Equal(t, 1., p.Y)
	assert.Zero(t, p.ErrY.Max)
	assert.Equal(t, "eff", s.Annotation()["name"])
}
