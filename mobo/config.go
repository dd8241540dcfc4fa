// Package mobo prepares multi-objective Bayesian optimization runs of the
// BIC parameters: it turns the configuration files into the parameter and
// objective descriptions of an Ax experiment, describes the PanDA runner,
// writes trial scripts and collects objectives back from the analysis
// summaries. Fitting surrogates and scheduling jobs are left to Ax and PanDA.
package mobo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// EnvWorkDir names the variable holding the working directory. The current
// directory is used when it is not set.
const EnvWorkDir = "AIDE_WORKDIR"

// Configuration file locations, relative to the working directory.
const (
	ConfigDir      = "configuration"
	ParametersFile = "parameters.config"
	ObjectivesFile = "objectives.config"
	RunFile        = "run.config"
)

var (
	ErrNoObjectives = errors.New("mobo: no objectives")
	ErrParameter    = errors.New("mobo: invalid parameter")
	ErrObjective    = errors.New("mobo: invalid objective")
)

// Parameter types.
const (
	Range  = "range"
	Choice = "choice"
	Fixed  = "fixed"
)

// Parameter is a detector parameter as written in parameters.config.
type Parameter struct {
	Type      string    `yaml:"type"`
	Bounds    []float64 `yaml:"bounds"`
	Values    []any     `yaml:"values"`
	Value     any       `yaml:"value"`
	ValueType string    `yaml:"value_type"`
	IsOrdered bool      `yaml:"is_ordered"`
	LogScale  bool      `yaml:"log_scale"`

	// Path locates the parameter in the detector description, Units is
	// appended to its value there.
	Path  string `yaml:"path"`
	Units string `yaml:"units"`
}

// Algorithms computing objectives, by command name.
var Algorithms = map[string]string{
	"clustenereso": "cluster energy resolution",
	"clustangreso": "cluster angular resolution",
	"hitangreso":   "imaging hit angular resolution",
}

// Objective is an analysis whose summary is optimized.
type Objective struct {
	Algorithm string   `yaml:"algorithm"`
	Minimize  *bool    `yaml:"minimize"`
	Threshold *float64 `yaml:"threshold"`
	Args      []string `yaml:"args"`
}

// Minimized reports whether the objective is minimized, the default.
func (o Objective) Minimized() bool {
	return o.Minimize == nil || *o.Minimize
}

// RunConfig holds the execution settings of run.config.
type RunConfig struct {
	Experiment  string   `yaml:"experiment"`
	EICShell    string   `yaml:"eic_shell"`
	Input       string   `yaml:"input"`
	OutDir      string   `yaml:"out_dir"`
	Queue       string   `yaml:"queue"`
	Cloud       string   `yaml:"cloud"`
	MaxWalltime int      `yaml:"max_walltime"`
	CoreCount   int      `yaml:"core_count"`
	TotalMemory int      `yaml:"total_memory"`
	InitEnv     []string `yaml:"init_env"`
	MaxTrials   int      `yaml:"max_trials"`
}

// Config gathers the three configuration files.
type Config struct {
	Params     map[string]Parameter
	Objectives map[string]Objective
	Run        RunConfig
}

// WorkDir returns the optimization working directory.
func WorkDir() (string, error) {
	if dir := os.Getenv(EnvWorkDir); dir != "" {
		return dir, nil
	}
	return os.Getwd()
}

// LoadConfig reads and validates the configuration files under
// dir/configuration. The files are JSON, read as YAML.
func LoadConfig(dir string) (*Config, error) {
	cfg := Config{Run: defaultRun()}
	base := filepath.Join(dir, ConfigDir)
	for _, f := range []struct {
		name string
		v    any
	}{
		{ParametersFile, &cfg.Params},
		{ObjectivesFile, &cfg.Objectives},
		{RunFile, &cfg.Run},
	} {
		if err := readFile(filepath.Join(base, f.name), f.v); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readFile(fname string, v any) error {
	raw, err := os.ReadFile(fname)
	if err != nil {
		return fmt.Errorf("mobo: could not read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("mobo: could not decode %s: %w", fname, err)
	}
	return nil
}

func defaultRun() RunConfig {
	return RunConfig{
		Experiment:  "BIC-MOBO",
		EICShell:    "eic-shell",
		Input:       "forBICMOBO.edm4eic.root",
		OutDir:      "out",
		Queue:       "BNL_PanDA_1",
		Cloud:       "US",
		MaxWalltime: 3600,
		CoreCount:   1,
		TotalMemory: 4000,
		MaxTrials:   10,
	}
}

// Validate checks every parameter and objective.
func (c *Config) Validate() error {
	for _, name := range sortedKeys(c.Params) {
		if err := c.Params[name].validate(); err != nil {
			return fmt.Errorf("%w %q: %v", ErrParameter, name, err)
		}
	}
	if len(c.Objectives) == 0 {
		return ErrNoObjectives
	}
	for _, name := range sortedKeys(c.Objectives) {
		o := c.Objectives[name]
		if _, ok := Algorithms[o.Algorithm]; !ok {
			return fmt.Errorf("%w %q: unknown algorithm %q", ErrObjective, name, o.Algorithm)
		}
	}
	if c.Run.MaxTrials < 1 {
		return fmt.Errorf("mobo: max_trials must be positive, got %d", c.Run.MaxTrials)
	}
	return nil
}

func (p Parameter) validate() error {
	switch p.ValueType {
	case "", "float", "int":
	default:
		return fmt.Errorf("unknown value type %q", p.ValueType)
	}

	switch p.Type {
	case Range:
		if len(p.Bounds) != 2 {
			return fmt.Errorf("range needs 2 bounds, got %d", len(p.Bounds))
		}
		if !(p.Bounds[0] < p.Bounds[1]) {
			return fmt.Errorf("empty range [%g, %g]", p.Bounds[0], p.Bounds[1])
		}
		if p.LogScale && p.Bounds[0] <= 0 {
			return fmt.Errorf("log scale range must be positive, got [%g, %g]", p.Bounds[0], p.Bounds[1])
		}
	case Choice:
		if len(p.Values) == 0 {
			return errors.New("choice needs values")
		}
	case Fixed:
		if p.Value == nil {
			return errors.New("fixed needs a value")
		}
	default:
		return fmt.Errorf("unknown type %q", p.Type)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
