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
		Clusters:  "EcalBarrelClusters",
		Assocs:    "EcalBarrelClusterAssociations",
	})
	coord = bicreso.CoordFlag{Coord: reso.Phi, Cluster: true}
)

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: `+os.Args[0]+` [options] [input-file...]

Computes the relative angular resolution (v_clust - v_par)/v_par, v being eta
or phi, of the BIC clusters associated with the primary particle. The cluster
direction is taken from the particle vertex.

options:
`,
	)
	flag.PrintDefaults()
}

func main() {
	common.Register(flag.CommandLine)
	flag.Var(&coord, "c", "coordinate: eta or phi")
	flag.Usage = printUsage
	flag.Parse()

	files := common.Files(flag.Args())

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

	a, err := reso.NewClustAng(reso.Config{PDG: int32(common.PDG), Coord: coord.Coord})
	if err != nil {
		logger.Fatal("bad configuration", zap.Error(err))
	}
	r, err := common.Analyze(context.Background(), a, files, logger)
	if err != nil {
		logger.Fatal("angular resolution failed", zap.Error(err))
	}
	fmt.Println(r.Reso)
}
