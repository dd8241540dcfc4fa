package bicreso

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/profile"
	"go.uber.org/zap"

	"github.com/decibelcooper/bicreso/edm"
	"github.com/decibelcooper/bicreso/edm/lcioedm"
	"github.com/decibelcooper/bicreso/edm/podioedm"
	"github.com/decibelcooper/bicreso/reso"
)

// DefaultOutput is the output file of every resolution command.
const DefaultOutput = "test_reso.root"

// DefaultInput is read when no input is given: reconstructed 5 GeV single
// electrons in the barrel, served by xrootd.
const DefaultInput = "root://dtn-eic.jlab.org//volatile/eic/EPIC/RECO/25.12.0/epic_craterlake/SINGLE/e-/5GeV/45to135deg/e-_5GeV_45to135deg.0099.eicrecon.edm4eic.root"

// Common holds the flags shared by the resolution commands.
type Common struct {
	Inputs  StringArrayFlags
	Output  string
	PDG     int
	Colls   edm.Collections
	Workers int
	Plot    bool
	Profile string
	Verbose bool
}

// Register defines the shared flags on fs. The collection flags it defines
// depend on which collections are set in c.Colls beforehand.
func (c *Common) Register(fs *flag.FlagSet) {
	fs.Var(&c.Inputs, "i", "input EDM4eic ROOT file or root:// URL, or LCIO .slcio file (repeatable, default "+DefaultInput+")")
	fs.StringVar(&c.Output, "o", c.Output, "output ROOT file, the summary is written next to it")
	fs.IntVar(&c.PDG, "p", c.PDG, "PDG code of the primary particle")
	fs.StringVar(&c.Colls.Particles, "m", c.Colls.Particles, "MC particle collection")
	fs.StringVar(&c.Colls.Assocs, "a", c.Colls.Assocs, "cluster-particle association collection")
	fs.StringVar(&c.Colls.Clusters, "b", c.Colls.Clusters, "cluster collection (empty: clusters referenced by associations)")
	fs.StringVar(&c.Colls.Hits, "r", c.Colls.Hits, "imaging hit collection (empty: no hits)")
	fs.IntVar(&c.Workers, "j", c.Workers, "number of input files processed concurrently")
	fs.BoolVar(&c.Plot, "plot", c.Plot, "also draw the fitted distribution and the diagnostics to PNG files")
	fs.StringVar(&c.Profile, "profile", "", "write a cpu or mem profile to the working directory")
	fs.BoolVar(&c.Verbose, "v", false, "verbose logging")
}

func NewCommon(colls edm.Collections) *Common {
	return &Common{
		Output:  DefaultOutput,
		PDG:     11,
		Colls:   colls,
		Workers: 1,
	}
}

// Files returns the -i files followed by the positional arguments, or
// DefaultInput when there are none.
func (c *Common) Files(args []string) []string {
	files := append(append([]string(nil), c.Inputs.Array...), args...)
	if len(files) == 0 {
		return []string{DefaultInput}
	}
	return files
}

// StartProfile starts the profile named by -profile. The returned function
// stops it.
func (c *Common) StartProfile() (func(), error) {
	var mode func(*profile.Profile)
	switch strings.ToLower(c.Profile) {
	case "":
		return func() {}, nil
	case "cpu":
		mode = profile.CPUProfile
	case "mem":
		mode = profile.MemProfile
	default:
		return nil, fmt.Errorf("unknown profile %q (want cpu or mem)", c.Profile)
	}
	p := profile.Start(mode, profile.ProfilePath("."), profile.Quiet)
	return p.Stop, nil
}

// OpenSource opens an EDM4eic ROOT file or URL, or an LCIO file, chosen by
// name.
func OpenSource(fname string, colls edm.Collections) (edm.Source, error) {
	if podioedm.IsPodioFile(fname) {
		r, err := podioedm.Open(fname, colls)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	r, err := lcioedm.Open(fname, colls)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Inputs returns one runner input per file.
func Inputs(files []string, colls edm.Collections) []reso.Input {
	ins := make([]reso.Input, len(files))
	for i, fname := range files {
		fname := fname
		ins[i] = reso.Input{
			Name: fname,
			Open: func() (edm.Source, error) { return OpenSource(fname, colls) },
		}
	}
	return ins
}

// Analyze runs a over the input files and writes its outputs.
func (c *Common) Analyze(ctx context.Context, a reso.Analysis, files []string, log *zap.Logger) (*reso.Result, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no input file")
	}
	for _, f := range files {
		if strings.Contains(f, "://") {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			return nil, err
		}
	}

	r, err := reso.Run(ctx, a, Inputs(files, c.Colls), c.Workers, log)
	if err != nil {
		return nil, err
	}
	log.Info("analysis done",
		zap.String("analysis", r.Name),
		zap.Int("events", r.Stats.Events),
		zap.Int("filled", r.Stats.Filled),
		zap.Int("no_primary", r.Stats.NoPrimary),
		zap.Int("no_cluster", r.Stats.NoCluster),
		zap.Int("no_layer", r.Stats.NoLayer),
		zap.Float64("reso", r.Reso),
		zap.Float64("reso_err", r.ResoErr),
		zap.Bool("converged", r.Fit.Converged),
	)

	if err := reso.Write(c.Output, r); err != nil {
		return nil, err
	}
	if c.Plot {
		fnames, err := PlotAll(strings.TrimSuffix(c.Output, ".root"), r)
		if err != nil {
			return nil, err
		}
		log.Debug("plots written", zap.Strings("files", fnames))
	}
	return r, nil
}
