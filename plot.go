package bicreso

import (
	"fmt"
	"image/color"
	"os"
	"strings"

	"go-hep.org/x/hep/hbook"
	"go-hep.org/x/hep/hplot"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/decibelcooper/bicreso/reso"
)

// PlotResult draws the residual distribution with its fitted curve. The
// image format follows the file extension.
func PlotResult(fname string, r *reso.Result) error {
	p := hplot.New()
	p.Title.Text = r.Name
	p.X.Label.Text, p.Y.Label.Text = axisLabels(r.Dist.H1D().Annotation()["title"])
	if p.Y.Label.Text == "" {
		p.Y.Label.Text = "entries"
	}
	p.X.Tick.Marker = PreciseTicks{NSuggestedTicks: 5}
	p.Y.Tick.Marker = PreciseTicks{NSuggestedTicks: 5}

	h := hplot.NewH1D(r.Dist.H1D(), hplot.WithYErrBars(true))
	h.LineStyle.Width = vg.Points(1)
	p.Add(h)

	f := plotter.NewFunction(r.Fit.Eval)
	f.XMin, f.XMax = r.Fit.Lo, r.Fit.Hi
	f.Samples = 500
	f.Color = color.RGBA{R: 200, A: 255}
	f.Width = vg.Points(1.5)
	p.Add(f)
	p.Legend.Add(string(r.Fit.Shape), f)
	p.Legend.Top = true

	if r.Policy == reso.FWHMPolicy {
		p.Legend.Add(fmt.Sprintf("FWHM = %.4g", r.Reso))
	} else {
		p.Legend.Add(fmt.Sprintf("σ = %.4g ± %.2g", r.Reso, r.ResoErr))
	}
	p.Add(plotter.NewGrid())

	if err := p.Save(6*vg.Inch, 4*vg.Inch, fname); err != nil {
		return fmt.Errorf("could not save plot: %w", err)
	}
	return nil
}

// axisLabels splits a ROOT style "title;x;y" histogram title.
func axisLabels(title interface{}) (x, y string) {
	s, _ := title.(string)
	parts := strings.Split(s, ";")
	if len(parts) > 1 {
		x = parts[1]
	}
	if len(parts) > 2 {
		y = parts[2]
	}
	return x, y
}

// PlotAll draws the fitted distribution to prefix.png, then every graph and
// 2D histogram of r to prefix_<name>.png.
func PlotAll(prefix string, r *reso.Result) ([]string, error) {
	fnames := []string{prefix + ".png"}
	if err := PlotResult(fnames[0], r); err != nil {
		return nil, err
	}
	for _, g := range r.Graphs {
		fname := prefix + "_" + g.Name() + ".png"
		if err := PlotGraph(fname, g); err != nil {
			return nil, err
		}
		fnames = append(fnames, fname)
	}
	for _, h := range r.Hists2D {
		fname := prefix + "_" + h.Name() + ".png"
		if err := PlotHist2D(fname, h); err != nil {
			return nil, err
		}
		fnames = append(fnames, fname)
	}
	return fnames, nil
}

// PlotGraph draws the points of g with their error bars.
func PlotGraph(fname string, g *hbook.S2D) error {
	p := hplot.New()
	p.Title.Text = g.Name()
	p.X.Label.Text, p.Y.Label.Text = axisLabels(g.Annotation()["title"])
	p.X.Tick.Marker = PreciseTicks{NSuggestedTicks: 5}
	p.Y.Tick.Marker = PreciseTicks{NSuggestedTicks: 5}

	xerr, err := plotter.NewXErrorBars(g)
	if err != nil {
		return err
	}
	yerr, err := plotter.NewYErrorBars(g)
	if err != nil {
		return err
	}
	pointColor := plotutil.Color(0)
	xerr.LineStyle.Color = pointColor
	yerr.LineStyle.Color = pointColor
	p.Add(xerr, yerr, plotter.NewGrid())

	if err := p.Save(6*vg.Inch, 4*vg.Inch, fname); err != nil {
		return fmt.Errorf("could not save plot: %w", err)
	}
	return nil
}

// PlotHist2D draws h as a heat map with a color bar on its right.
func PlotHist2D(fname string, h *hbook.H2D) error {
	grid := h.GridXYZ()
	zMax := 0.0
	nx, ny := grid.Dims()
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			if z := grid.Z(i, j); z > zMax {
				zMax = z
			}
		}
	}
	if zMax == 0 {
		zMax = 1
	}

	img := vgimg.New(670, 400)
	dc := draw.New(img)
	dc0 := draw.Crop(dc, 0, -70, 0, 0)
	dc1 := draw.Crop(dc, 620, 0, 0, 0)

	p := hplot.New()
	p.Title.Text = h.Name()
	p.X.Label.Text, p.Y.Label.Text = axisLabels(h.Annotation()["title"])
	p.X.Tick.Marker = PreciseTicks{NSuggestedTicks: 5}
	p.Y.Tick.Marker = PreciseTicks{NSuggestedTicks: 5}

	colorMap := moreland.ExtendedBlackBody()
	colorMap.SetMin(0)
	colorMap.SetMax(zMax)
	heatMap := plotter.NewHeatMap(grid, colorMap.Palette(1000))
	heatMap.Min = 0
	heatMap.Max = zMax
	p.Add(heatMap)
	p.Draw(dc0)

	bar := plot.New()
	colorBar := &plotter.ColorBar{ColorMap: colorMap}
	colorBar.Vertical = true
	bar.Add(colorBar)
	bar.HideX()
	bar.Y.Padding = 0
	bar.Draw(dc1)

	w, err := os.Create(fname)
	if err != nil {
		return fmt.Errorf("could not create plot: %w", err)
	}
	defer w.Close()
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		return fmt.Errorf("could not save plot: %w", err)
	}
	return w.Close()
}
