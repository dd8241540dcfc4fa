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

var common = bicreso.NewCommon(edm.Collections{
	Particles: "MCParticles",
	Clusters:  "EcalBarrelClusters",
	Assocs:    "EcalBarrelClusterAssociations",
})

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: `+os.Args[0]+` [options] [input-file...]

Computes the relative energy resolution (E_clust - E_par)/E_par of the BIC
clusters associated with the primary particle.

options:
`,
	)
	flag.PrintDefaults()
}

func main() {
	common.Register(flag.CommandLine)
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

	a := reso.NewClustEne(reso.Config{PDG: int32(common.PDG)})
	r, err := common.Analyze(context.Background(), a, files, logger)
	if err != nil {
		logger.Fatal("energy resolution failed", zap.Error(err))
	}
	fmt.Println(r.Reso)
}
