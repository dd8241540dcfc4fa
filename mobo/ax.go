package mobo

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// AxParameter is a parameter in the form expected by Ax create_experiment.
type AxParameter struct {
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Bounds    []float64 `json:"bounds,omitempty"`
	Values    []any     `json:"values,omitempty"`
	Value     any       `json:"value,omitempty"`
	ValueType string    `json:"value_type,omitempty"`
	IsOrdered bool      `json:"is_ordered,omitempty"`
	LogScale  bool      `json:"log_scale,omitempty"`
}

// AxObjective mirrors Ax ObjectiveProperties.
type AxObjective struct {
	Minimize  bool     `json:"minimize"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// AxParameters converts the parameters, sorted by name.
func (c *Config) AxParameters() []AxParameter {
	out := make([]AxParameter, 0, len(c.Params))
	for _, name := range sortedKeys(c.Params) {
		p := c.Params[name]
		vt := p.ValueType
		if vt == "" && p.Type == Range {
			vt = "float"
		}
		ap := AxParameter{
			Name:      name,
			Type:      p.Type,
			ValueType: vt,
		}
		switch p.Type {
		case Range:
			ap.Bounds = append([]float64(nil), p.Bounds...)
			ap.LogScale = p.LogScale
		case Choice:
			ap.Values = append([]any(nil), p.Values...)
			ap.IsOrdered = p.IsOrdered
		case Fixed:
			ap.Value = p.Value
		}
		out = append(out, ap)
	}
	return out
}

// AxObjectives converts the objectives.
func (c *Config) AxObjectives() map[string]AxObjective {
	out := make(map[string]AxObjective, len(c.Objectives))
	for name, o := range c.Objectives {
		out[name] = AxObjective{Minimize: o.Minimized(), Threshold: o.Threshold}
	}
	return out
}

// Files and directories left out of the PanDA job sandbox.
var ExcludeSourceFiles = []string{
	`(^|/)\.[^/]+`,
	`(^|/)out(/|$)`,
	`(^|/)run(/|$)`,
	"doc*",
	".*log",
	"examples",
	".*txt",
	"calibrations",
	"fieldmaps",
	"gdml",
	"__pycache__",
}

// PandaAttrs are the keyword arguments of the PanDA iDDS runner.
type PandaAttrs struct {
	Name                 string   `json:"name"`
	InitEnv              string   `json:"init_env"`
	Cloud                string   `json:"cloud"`
	Queue                string   `json:"queue"`
	SourceDir            *string  `json:"source_dir"`
	SourceDirParentLevel int      `json:"source_dir_parent_level"`
	ExcludeSourceFiles   []string `json:"exclude_source_files"`
	MaxWalltime          int      `json:"max_walltime"`
	CoreCount            int      `json:"core_count"`
	TotalMemory          int      `json:"total_memory"`
	EnableSeparateLog    bool     `json:"enable_separate_log"`
	JobDir               *string  `json:"job_dir"`
}

// PandaAttrs describes the runner for user. Datasets are named after the
// user as user.<login>.
func (r RunConfig) PandaAttrs(user string) PandaAttrs {
	return PandaAttrs{
		Name:                 "user." + user,
		InitEnv:              strings.Join(r.InitEnv, " "),
		Cloud:                r.Cloud,
		Queue:                r.Queue,
		SourceDirParentLevel: 1,
		ExcludeSourceFiles:   append([]string(nil), ExcludeSourceFiles...),
		MaxWalltime:          r.MaxWalltime,
		CoreCount:            r.CoreCount,
		TotalMemory:          r.TotalMemory,
		EnableSeparateLog:    true,
	}
}

// Experiment is everything the Ax scheduler needs to run the optimization.
type Experiment struct {
	Name       string                 `json:"name"`
	Parameters []AxParameter          `json:"parameters"`
	Objectives map[string]AxObjective `json:"objectives"`
	MaxTrials  int                    `json:"max_trials"`
	EICShell   string                 `json:"eic_shell"`
	Runner     PandaAttrs             `json:"panda_attrs"`
}

func (c *Config) Experiment(user string) Experiment {
	return Experiment{
		Name:       c.Run.Experiment,
		Parameters: c.AxParameters(),
		Objectives: c.AxObjectives(),
		MaxTrials:  c.Run.MaxTrials,
		EICShell:   c.Run.EICShell,
		Runner:     c.Run.PandaAttrs(user),
	}
}

// WriteJSON writes v indented to fname.
func WriteJSON(fname string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("mobo: could not encode %s: %w", fname, err)
	}
	if err := os.WriteFile(fname, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("mobo: could not write %s: %w", fname, err)
	}
	return nil
}
