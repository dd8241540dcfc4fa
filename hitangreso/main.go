package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/decibelcooper/bicreso"
	"github.com/decibelcooper/bicreso/edm"
	"github.com/decibelcooper/bicreso/reso"
)

var (
	common = bicreso.NewCommon(edm.Collections{
		Particles: "MCParticles",
		Hits:      "EcalBarrelImagingRecHits",
		Assocs:    "EcalBarrelImagingClusterAssociations",
	})
	coord = bicreso.CoordFlag{Coord: reso.Eta}
	model = bicreso.ShapeFlag{Shape: reso.Gaus2}
)

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: `+os.Args[0]+` [options] [input-file...]

Computes the FWHM of v_hit - v_par, v being theta, eta or phi, where the hit
is the most energetic hit of the most upstream imaging layer (1 to %d) among
the hits of the clusters associated with the primary particle.

options:
`, reso.MaxLayer,
	)
	flag.PrintDefaults()
}

func main() {
	common.Register(flag.CommandLine)
	flag.Var(&coord, "c", "coordinate: theta, eta or phi")
	flag.Var(&model, "model", "peak model: gaus2 (core and tail) or gaus")
	flag.Usage = printUsage
	flag.Parse()

	files := common.Files(flag.Args())
	if common.Colls.Hits == "" {
		log.Fatal("an imaging hit collection is required")
	}

	logger, err := bicreso.NewLogger(common.Verbose)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	stop, err := common.StartProfile()
	if err != nil {
		logger.Fatal("bad profile", zap.Error(err))
	}
	defer stop()

	a, err := reso.NewHitAng(reso.Config{PDG: int32(common.PDG), Coord: coord.Coord}, model.Shape)
	if err != nil {
		logger.Fatal("bad configuration", zap.Error(err))
	}
	r, err := common.Analyze(context.Background(), a, files, logger)
	if err != nil {
		logger.Fatal("hit resolution failed", zap.Error(err))
	}
	fmt.Println(r.Reso)
}
