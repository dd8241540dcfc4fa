package bicreso

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/decibelcooper/bicreso/reso"
)

// FloatArrayFlags collects the values of a repeated float flag. Values given
// on the command line replace the defaults.
type FloatArrayFlags struct {
	Array   []float64
	beenSet bool
}

func (f *FloatArrayFlags) Set(valueStr string) error {
	for _, s := range strings.Split(valueStr, ",") {
		value, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return err
		}

		if !f.beenSet {
			f.beenSet = true
			f.Array = nil
		}
		f.Array = append(f.Array, value)
	}
	return nil
}

func (f *FloatArrayFlags) String() string {
	return fmt.Sprint(f.Array)
}

// StringArrayFlags collects the values of a repeated string flag.
type StringArrayFlags struct {
	Array   []string
	beenSet bool
}

func (f *StringArrayFlags) Set(valueStr string) error {
	if !f.beenSet {
		f.beenSet = true
		f.Array = nil
	}
	f.Array = append(f.Array, valueStr)
	return nil
}

func (f *StringArrayFlags) String() string {
	return strings.Join(f.Array, ",")
}

// CoordFlag parses an angular coordinate, rejecting unknown names while the
// command line is parsed. Cluster restricts it to eta and phi.
type CoordFlag struct {
	Coord   reso.Coord
	Cluster bool
}

func (f *CoordFlag) Set(valueStr string) error {
	parse := reso.ParseCoord
	if f.Cluster {
		parse = reso.ParseClusterCoord
	}
	c, err := parse(valueStr)
	if err != nil {
		return err
	}
	f.Coord = c
	return nil
}

func (f *CoordFlag) String() string {
	if f == nil || f.Coord == 0 {
		return ""
	}
	return f.Coord.String()
}

// ShapeFlag selects the peak model of the hit analysis.
type ShapeFlag struct {
	Shape reso.Shape
}

func (f *ShapeFlag) Set(valueStr string) error {
	switch s := reso.Shape(strings.ToLower(valueStr)); s {
	case reso.Gaus, reso.Gaus2:
		f.Shape = s
		return nil
	}
	return fmt.Errorf("unknown fit model %q (want %s or %s)", valueStr, reso.Gaus, reso.Gaus2)
}

func (f *ShapeFlag) String() string {
	if f == nil {
		return ""
	}
	return string(f.Shape)
}
