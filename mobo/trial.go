package mobo

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/decibelcooper/bicreso/reso"
)

// TagPrefix starts every trial tag.
const TagPrefix = "AxTrial"

// NewTrialTag returns AxTrial followed by the digits of now down to the
// microsecond.
func NewTrialTag(now time.Time) string {
	return TagPrefix + strings.ReplaceAll(now.Format("20060102150405.000000"), ".", "")
}

// Trial is one evaluation of the objectives at a point of the parameter
// space.
type Trial struct {
	Tag    string             `json:"tag"`
	ID     uuid.UUID          `json:"id"`
	Params map[string]float64 `json:"params"`

	// Outputs maps each objective to the ROOT file its analysis writes.
	Outputs map[string]string `json:"outputs"`
}

// NewTrial tags a trial at now. Trials started within the same microsecond
// are told apart by their ID, which also ends their output file names.
func (c *Config) NewTrial(now time.Time, params map[string]float64) (*Trial, error) {
	for _, name := range sortedKeys(c.Params) {
		if _, ok := params[name]; !ok && c.Params[name].Type != Fixed {
			return nil, fmt.Errorf("%w %q: no value", ErrParameter, name)
		}
	}
	for name := range params {
		if _, ok := c.Params[name]; !ok {
			return nil, fmt.Errorf("%w %q: not configured", ErrParameter, name)
		}
	}

	t := &Trial{
		Tag:     NewTrialTag(now),
		ID:      uuid.New(),
		Params:  params,
		Outputs: make(map[string]string, len(c.Objectives)),
	}
	for name := range c.Objectives {
		t.Outputs[name] = filepath.Join(c.Run.OutDir, t.Name()+"_"+name+".root")
	}
	return t, nil
}

// Name is the tag followed by the first group of the ID. It prefixes every
// file of the trial.
func (t *Trial) Name() string {
	return t.Tag + "_" + t.ID.String()[:8]
}

// Script returns a shell script running every objective analysis of t
// inside the EIC environment. Parameter values are exported as
// BIC_<NAME> variables for the simulation steps.
func (c *Config) Script(t *Trial) string {
	var b strings.Builder
	b.WriteString("#!/bin/bash\n")
	b.WriteString("# " + t.Tag + " " + t.ID.String() + "\n")
	b.WriteString("set -e\n\n")
	for _, line := range c.Run.InitEnv {
		b.WriteString(line + "\n")
	}
	for _, name := range sortedKeys(c.Params) {
		p := c.Params[name]
		v, ok := t.Params[name]
		val := formatValue(v, p.ValueType)
		if !ok {
			val = fmt.Sprint(p.Value)
		}
		fmt.Fprintf(&b, "export BIC_%s=%s\n", envName(name), shellQuote(val+p.Units))
	}
	fmt.Fprintf(&b, "mkdir -p %s\n\n", shellQuote(c.Run.OutDir))
	for _, name := range sortedKeys(c.Objectives) {
		o := c.Objectives[name]
		args := append([]string{o.Algorithm, "-i", c.Run.Input, "-o", t.Outputs[name]}, o.Args...)
		for i, a := range args {
			args[i] = shellQuote(a)
		}
		b.WriteString(strings.Join(args, " ") + "\n")
	}
	return b.String()
}

func formatValue(v float64, valueType string) string {
	if valueType == "int" {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func envName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return '_'
	}, name)
}

func shellQuote(s string) string {
	if s != "" && strings.IndexFunc(s, func(r rune) bool {
		return !(r == '-' || r == '_' || r == '.' || r == '/' || r == ',' || r == '=' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	}) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// AppendParams appends the parameter values, sorted by name, to a summary
// file, each on a new line.
func AppendParams(fname string, params map[string]float64) error {
	f, err := os.OpenFile(fname, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("mobo: could not open summary: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, name := range sortedKeys(params) {
		w.WriteString("\n")
		w.WriteString(strconv.FormatFloat(params[name], 'g', -1, 64))
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("mobo: could not append parameters: %w", err)
	}
	return f.Close()
}

// ReadObjective returns the first value of the summary written next to a
// ROOT output.
func ReadObjective(out string) (float64, error) {
	vs, err := reso.ReadSummary(reso.SummaryPath(out))
	if err != nil {
		return 0, fmt.Errorf("mobo: could not read objective: %w", err)
	}
	if len(vs) == 0 {
		return 0, fmt.Errorf("mobo: empty summary for %s", out)
	}
	return vs[0], nil
}

// ReadObjectives reads the objective of each output, keyed as outputs.
func ReadObjectives(outputs map[string]string) (map[string]float64, error) {
	out := make(map[string]float64, len(outputs))
	for _, name := range sortedKeys(outputs) {
		v, err := ReadObjective(outputs[name])
		if err != nil {
			return nil, fmt.Errorf("objective %q: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

// Record appends the trial parameters to every objective summary.
func (t *Trial) Record() error {
	for _, name := range sortedKeys(t.Outputs) {
		if err := AppendParams(reso.SummaryPath(t.Outputs[name]), t.Params); err != nil {
			return fmt.Errorf("objective %q: %w", name, err)
		}
	}
	return nil
}

// TrialFile is the description of a trial saved next to its outputs.
func TrialFile(outDir string, t *Trial) string {
	return filepath.Join(outDir, t.Name()+".json")
}

// SaveTrial writes the description and the job script of t to the output
// directory and returns the script path.
func (c *Config) SaveTrial(t *Trial) (string, error) {
	if err := os.MkdirAll(c.Run.OutDir, 0o755); err != nil {
		return "", fmt.Errorf("mobo: could not create output directory: %w", err)
	}
	if err := WriteJSON(TrialFile(c.Run.OutDir, t), t); err != nil {
		return "", err
	}
	script := filepath.Join(c.Run.OutDir, t.Name()+".sh")
	if err := os.WriteFile(script, []byte(c.Script(t)), 0o755); err != nil {
		return "", fmt.Errorf("mobo: could not write script: %w", err)
	}
	return script, nil
}

// LoadTrials reads every trial description saved in outDir.
func LoadTrials(outDir string) ([]*Trial, error) {
	fnames, err := filepath.Glob(filepath.Join(outDir, TagPrefix+"*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(fnames)

	trials := make([]*Trial, 0, len(fnames))
	for _, fname := range fnames {
		raw, err := os.ReadFile(fname)
		if err != nil {
			return nil, fmt.Errorf("mobo: could not read trial: %w", err)
		}
		t := new(Trial)
		if err := json.Unmarshal(raw, t); err != nil {
			return nil, fmt.Errorf("mobo: could not decode %s: %w", fname, err)
		}
		trials = append(trials, t)
	}
	return trials, nil
}
