package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/decibelcooper/bicreso"
	"github.com/decibelcooper/bicreso/edm"
	"github.com/decibelcooper/bicreso/edm/lcioedm"
	"github.com/decibelcooper/bicreso/edm/podioedm"
	"github.com/decibelcooper/bicreso/reso"
	"github.com/decibelcooper/bicreso/synth"
)

var (
	output    = flag.String("o", "synth.slcio", "output file: LCIO, or EDM4eic layout when ending in .root")
	kind      = flag.String("k", "energy", "sample kind: energy, angle or hits")
	nEvents   = flag.Int("n", 10000, "number of events")
	seed      = flag.Uint64("seed", 1234, "random seed")
	pdg       = flag.Int("p", synth.PDGElectron, "PDG code of the primary particle")
	tailFrac  = flag.Float64("tail", 0.3, "fraction of hits smeared with the tail width")
	noPrimary = flag.Float64("noprimary", 0, "fraction of events without a final-state primary")
	noCluster = flag.Float64("nocluster", 0, "fraction of events whose primary has no associated cluster")
	verbose   = flag.Bool("v", false, "verbose logging")

	sigmas = bicreso.FloatArrayFlags{Array: []float64{0.05}}
	coord  = bicreso.CoordFlag{Coord: reso.Eta}
	colls  = edm.DefaultCollections()
)

type writer interface {
	Write(edm.Event) error
	Close() error
	N() int
}

func create(fname string) (writer, error) {
	if podioedm.IsPodioFile(fname) {
		w, err := podioedm.Create(fname, colls)
		if err != nil {
			return nil, err
		}
		return w, nil
	}
	w, err := lcioedm.Create(fname, colls, "synthetic BIC")
	if err != nil {
		return nil, err
	}
	return w, nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: `+os.Args[0]+` [options]

Writes single particle events with a known detector response.

  energy: cluster energy E(1+d), d ~ N(0, sigma)
  angle:  cluster eta(1+d) and phi(1+d) seen from the vertex
  hits:   imaging hits, the selected one shifted in -c by a core/tail mixture
          given as -sigma core,tail

options:
`,
	)
	flag.PrintDefaults()
}

func main() {
	flag.Var(&sigmas, "sigma", "smearing width(s), comma separated or repeated")
	flag.Var(&coord, "c", "smeared coordinate of the hits sample: theta, eta or phi")
	flag.StringVar(&colls.Particles, "m", colls.Particles, "MC particle collection")
	flag.StringVar(&colls.Clusters, "b", colls.Clusters, "cluster collection")
	flag.StringVar(&colls.Hits, "r", colls.Hits, "imaging hit collection")
	flag.StringVar(&colls.Assocs, "a", colls.Assocs, "cluster-particle association collection")
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() != 0 || len(sigmas.Array) == 0 {
		printUsage()
		log.Fatal("Invalid arguments")
	}

	logger, err := bicreso.NewLogger(*verbose)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	cfg := synth.DefaultConfig()
	cfg.Seed = *seed
	cfg.PDG = int32(*pdg)
	cfg.NoPrimary = *noPrimary
	cfg.NoCluster = *noCluster
	gen := synth.New(cfg)

	var evts []edm.Event
	switch *kind {
	case "energy":
		evts = gen.Energy(*nEvents, sigmas.Array[0])
	case "angle":
		evts = gen.ClusterAngle(*nEvents, sigmas.Array[0])
	case "hits":
		m := synth.Mixture{Core: sigmas.Array[0]}
		if len(sigmas.Array) > 1 {
			m.Tail = sigmas.Array[1]
			m.TailFrac = *tailFrac
		}
		evts = gen.ImagingHits(*nEvents, coord.Coord, m)
	default:
		printUsage()
		log.Fatalf("unknown sample kind %q", *kind)
	}

	w, err := create(*output)
	if err != nil {
		logger.Fatal("could not create output", zap.Error(err))
	}
	for _, evt := range evts {
		if err := w.Write(evt); err != nil {
			logger.Fatal("could not write event", zap.Int("event", evt.Number), zap.Error(err))
		}
	}
	if err := w.Close(); err != nil {
		logger.Fatal("could not close output", zap.Error(err))
	}
	logger.Info("sample written",
		zap.String("file", *output),
		zap.String("kind", *kind),
		zap.Int("events", w.N()),
		zap.Float64s("sigma", sigmas.Array),
	)
}
