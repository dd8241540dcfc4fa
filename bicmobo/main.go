package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/decibelcooper/bicreso"
	"github.com/decibelcooper/bicreso/mobo"
)

const (
	experimentFile = "experiment.json"
	pointsFile     = "points.json"
)

var (
	verbose bool
	workDir string
	record  bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "bicmobo",
	Short: "Multi-objective optimization glue for the BIC resolution analyses",
	Long: `bicmobo prepares and collects multi-objective Bayesian optimization runs.

The parameters, objectives and run settings are read from the configuration
directory under the working directory ($AIDE_WORKDIR, or the current one).
Surrogate fitting and job scheduling are left to Ax and PanDA.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = bicreso.NewLogger(verbose)
		if err != nil {
			return err
		}
		if workDir == "" {
			workDir, err = mobo.WorkDir()
		}
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var experimentCmd = &cobra.Command{
	Use:   "experiment",
	Short: "Write the Ax experiment description",
	Args:  cobra.NoArgs,
	RunE:  writeExperiment,
}

var trialCmd = &cobra.Command{
	Use:   "trial [name=value]...",
	Short: "Write the job script of a trial",
	Long: `Tags a new trial and writes its description and job script to the
output directory. Every range and choice parameter needs a value.

Example:
  bicmobo trial sector_thickness=1.25 n_layers=6`,
	RunE: newTrial,
}

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Read back the objectives of finished trials",
	Args:  cobra.NoArgs,
	RunE:  collect,
}

var paretoCmd = &cobra.Command{
	Use:   "pareto",
	Short: "Print the trials on the Pareto front",
	Args:  cobra.NoArgs,
	RunE:  pareto,
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workDir, "workdir", "w", "", "working directory (default $"+mobo.EnvWorkDir+" or current)")
	collectCmd.Flags().BoolVar(&record, "record", false, "append the trial parameters to each objective summary")

	rootCmd.AddCommand(experimentCmd, trialCmd, collectCmd, paretoCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*mobo.Config, error) {
	cfg, err := mobo.LoadConfig(workDir)
	if err != nil {
		return nil, err
	}
	if !filepath.IsAbs(cfg.Run.OutDir) {
		cfg.Run.OutDir = filepath.Join(workDir, cfg.Run.OutDir)
	}
	logger.Debug("configuration loaded",
		zap.String("workdir", workDir),
		zap.Int("parameters", len(cfg.Params)),
		zap.Int("objectives", len(cfg.Objectives)),
	)
	return cfg, nil
}

func userName() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}

func writeExperiment(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	fname := filepath.Join(workDir, experimentFile)
	if err := mobo.WriteJSON(fname, cfg.Experiment(userName())); err != nil {
		return err
	}
	logger.Info("experiment written", zap.String("file", fname), zap.String("name", cfg.Run.Experiment))
	return nil
}

func parseParams(args []string) (map[string]float64, error) {
	params := make(map[string]float64, len(args))
	for _, arg := range args {
		name, val, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("parameter %q is not name=value", arg)
		}
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}
		params[name] = v
	}
	return params, nil
}

func newTrial(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	params, err := parseParams(args)
	if err != nil {
		return err
	}
	t, err := cfg.NewTrial(time.Now(), params)
	if err != nil {
		return err
	}

	script, err := cfg.SaveTrial(t)
	if err != nil {
		return err
	}
	logger.Info("trial written", zap.String("trial", t.Name()), zap.Stringer("id", t.ID), zap.String("script", script))
	fmt.Fprintln(cmd.OutOrStdout(), script)
	return nil
}

func collect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	trials, err := mobo.LoadTrials(cfg.Run.OutDir)
	if err != nil {
		return err
	}

	points, failed := mobo.Collect(trials)
	for name, err := range failed {
		logger.Warn("trial not finished", zap.String("trial", name), zap.Error(err))
	}
	if record {
		for _, t := range trials {
			if _, bad := failed[t.Name()]; bad {
				continue
			}
			if err := t.Record(); err != nil {
				return err
			}
		}
	}

	fname := filepath.Join(workDir, pointsFile)
	if err := mobo.WriteJSON(fname, points); err != nil {
		return err
	}
	logger.Info("objectives collected",
		zap.String("file", fname),
		zap.Int("trials", len(trials)),
		zap.Int("finished", len(points)),
	)
	return nil
}

func pareto(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(filepath.Join(workDir, pointsFile))
	if err != nil {
		return fmt.Errorf("no collected objectives, run collect first: %w", err)
	}
	var points []mobo.Point
	if err := json.Unmarshal(raw, &points); err != nil {
		return fmt.Errorf("could not decode %s: %w", pointsFile, err)
	}

	front, err := mobo.ParetoFront(points, cfg.AxObjectives())
	if err != nil {
		return err
	}
	logger.Debug("pareto front", zap.Int("points", len(points)), zap.Int("front", len(front)))

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(front)
}
