package reso

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rhist"
	"go-hep.org/x/hep/hbook"
)

// curvePoints is the number of samples stored for a fitted curve.
const curvePoints = 500

// SummaryPath returns the text summary path that goes with a ROOT output.
func SummaryPath(out string) string {
	if strings.HasSuffix(out, ".root") {
		return strings.TrimSuffix(out, ".root") + ".txt"
	}
	return out + ".txt"
}

// Summary returns the values of the text summary: resolution, its error,
// mean and its error for the sigma policy, the width alone for FWHM.
func (r *Result) Summary() []float64 {
	if r.Policy == FWHMPolicy {
		return []float64{r.Reso}
	}
	return []float64{r.Reso, r.ResoErr, r.Mean, r.MeanErr}
}

// WriteSummary writes one value per line. The sigma summary has no newline
// after its last value so that parameter values can be appended with a
// leading newline each.
func WriteSummary(fname string, r *Result) error {
	f, err := os.Create(fname)
	if err != nil {
		return fmt.Errorf("could not create summary: %w", err)
	}
	defer f.Close()

	vs := r.Summary()
	w := bufio.NewWriter(f)
	for i, v := range vs {
		w.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		if i < len(vs)-1 || r.Policy == FWHMPolicy {
			w.WriteString("\n")
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("could not write summary: %w", err)
	}
	return f.Close()
}

// ReadSummary reads back every value of a summary file, including values
// appended after the summary itself. Blank lines are ignored.
func ReadSummary(fname string) ([]float64, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var vs []float64
	sc := bufio.NewScanner(f)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", fname, n, err)
		}
		vs = append(vs, v)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return vs, nil
}

// Curve samples the fitted curve over its fit range.
func (r *Result) Curve() *hbook.S2D {
	fr := r.Fit
	pts := make([]hbook.Point2D, curvePoints)
	step := (fr.Hi - fr.Lo) / float64(curvePoints-1)
	for i := range pts {
		x := fr.Lo + float64(i)*step
		pts[i] = hbook.Point2D{X: x, Y: fr.Eval(x)}
	}
	s := hbook.NewS2D(pts...)
	s.Annotation()["name"] = r.FitName
	s.Annotation()["title"] = string(fr.Shape)
	return s
}

// WriteROOT stores the residual histogram, the fitted curve and every
// supplementary object of r in a new ROOT file.
func WriteROOT(fname string, r *Result) error {
	f, err := groot.Create(fname)
	if err != nil {
		return fmt.Errorf("could not create ROOT file: %w", err)
	}
	defer f.Close()

	put := func(name string, v interface{}) error {
		var err error
		switch v := v.(type) {
		case *hbook.H1D:
			err = f.Put(name, rhist.NewH1DFrom(v))
		case *hbook.H2D:
			err = f.Put(name, rhist.NewH2DFrom(v))
		case *hbook.S2D:
			err = f.Put(name, rhist.NewGraphAsymmErrorsFrom(v))
		}
		if err != nil {
			return fmt.Errorf("could not write %q: %w", name, err)
		}
		return nil
	}

	if err := put(r.Dist.Name(), r.Dist.H1D()); err != nil {
		return err
	}
	if err := f.Put(r.FitName, rhist.NewGraphFrom(r.Curve())); err != nil {
		return fmt.Errorf("could not write %q: %w", r.FitName, err)
	}
	for _, h := range r.Hists {
		if err := put(h.Name(), h); err != nil {
			return err
		}
	}
	for _, h := range r.Hists2D {
		if err := put(h.Name(), h); err != nil {
			return err
		}
	}
	for _, g := range r.Graphs {
		if err := put(g.Annotation()["name"].(string), g); err != nil {
			return err
		}
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("could not close ROOT file: %w", err)
	}
	return nil
}

// Write stores r as out (ROOT) and its text summary next to it.
func Write(out string, r *Result) error {
	if err := WriteROOT(out, r); err != nil {
		return err
	}
	return WriteSummary(SummaryPath(out), r)
}
