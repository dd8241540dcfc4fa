package mobo

import (
	"fmt"
	"math"
)

// Point is a finished trial with its objective values.
type Point struct {
	Tag        string             `json:"tag"`
	Params     map[string]float64 `json:"params"`
	Objectives map[string]float64 `json:"objectives"`
}

// ParetoFront returns the points not dominated by any other, in input order.
// Points missing an objective, or holding a NaN, are left out. A point
// outside an objective threshold is still kept; Ax applies thresholds to
// its own hypervolume.
func ParetoFront(points []Point, objectives map[string]AxObjective) ([]Point, error) {
	if len(objectives) == 0 {
		return nil, ErrNoObjectives
	}
	names := sortedKeys(objectives)

	valid := make([]Point, 0, len(points))
	for _, p := range points {
		if complete(p, names) {
			valid = append(valid, p)
		}
	}

	var front []Point
	for i := range valid {
		dominated := false
		for j := range valid {
			if i == j {
				continue
			}
			if dominates(valid[j], valid[i], names, objectives) {
				dominated = true
				break
			}
		}
		if !dominated {
			front = append(front, valid[i])
		}
	}
	return front, nil
}

func complete(p Point, names []string) bool {
	for _, n := range names {
		v, ok := p.Objectives[n]
		if !ok || math.IsNaN(v) {
			return false
		}
	}
	return true
}

// dominates reports whether a is at least as good as b everywhere and
// strictly better somewhere.
func dominates(a, b Point, names []string, objectives map[string]AxObjective) bool {
	better := false
	for _, n := range names {
		av, bv := a.Objectives[n], b.Objectives[n]
		if !objectives[n].Minimize {
			av, bv = -av, -bv
		}
		if av > bv {
			return false
		}
		if av < bv {
			better = true
		}
	}
	return better
}

func firstNaN(obj map[string]float64) (string, bool) {
	for _, name := range sortedKeys(obj) {
		if math.IsNaN(obj[name]) {
			return name, true
		}
	}
	return "", false
}

// Collect reads back the objectives of finished trials. Trials whose
// summaries are missing or hold NaN are returned in failed, keyed by trial
// name, rather than aborting.
func Collect(trials []*Trial) (points []Point, failed map[string]error) {
	failed = make(map[string]error)
	for _, t := range trials {
		obj, err := ReadObjectives(t.Outputs)
		if err != nil {
			failed[t.Name()] = fmt.Errorf("trial %s: %w", t.Name(), err)
			continue
		}
		if name, ok := firstNaN(obj); ok {
			failed[t.Name()] = fmt.Errorf("trial %s: objective %q is not a number", t.Name(), name)
			continue
		}
		points = append(points, Point{Tag: t.Name(), Params: t.Params, Objectives: obj})
	}
	return points, failed
}
