package reso

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

var ErrUnknownCoord = errors.New("reso: unknown coordinate")

// Coord selects an angular coordinate of a 3-vector.
type Coord int

const (
	Theta Coord = iota + 1
	Eta
	Phi
)

// ParseCoord accepts theta, eta and phi, in any case.
func ParseCoord(s string) (Coord, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "theta":
		return Theta, nil
	case "eta":
		return Eta, nil
	case "phi":
		return Phi, nil
	}
	return 0, fmt.Errorf("%w %q (want theta, eta or phi)", ErrUnknownCoord, s)
}

// ParseClusterCoord accepts eta and phi only.
func ParseClusterCoord(s string) (Coord, error) {
	c, err := ParseCoord(s)
	if err != nil || c == Theta {
		return 0, fmt.Errorf("%w %q (want eta or phi)", ErrUnknownCoord, s)
	}
	return c, nil
}

func (c Coord) String() string {
	switch c {
	case Theta:
		return "theta"
	case Eta:
		return "eta"
	case Phi:
		return "phi"
	}
	return fmt.Sprintf("Coord(%d)", int(c))
}

// Of returns the coordinate of v. Theta is the polar angle in [0, pi], phi
// the azimuth in (-pi, pi] and eta the pseudorapidity.
func (c Coord) Of(v r3.Vec) float64 {
	switch c {
	case Theta:
		return theta(v)
	case Eta:
		return eta(v)
	case Phi:
		return phi(v)
	}
	panic(fmt.Errorf("%w %d", ErrUnknownCoord, int(c)))
}

func rho(v r3.Vec) float64 {
	return math.Hypot(v.X, v.Y)
}

func theta(v r3.Vec) float64 {
	if v.X == 0 && v.Y == 0 && v.Z == 0 {
		return 0
	}
	return math.Atan2(rho(v), v.Z)
}

func phi(v r3.Vec) float64 {
	if v.X == 0 && v.Y == 0 {
		return 0
	}
	return math.Atan2(v.Y, v.X)
}

// eta on the beam axis follows the ROOT convention of a large finite value
// growing with |z| instead of an infinity.
func eta(v r3.Vec) float64 {
	const etaMax = 22756.0
	r := rho(v)
	if r > 0 {
		m := r3.Norm(v)
		return 0.5 * math.Log((m+v.Z)/(m-v.Z))
	}
	switch {
	case v.Z > 0:
		return v.Z + etaMax
	case v.Z < 0:
		return v.Z - etaMax
	}
	return 0
}

// epsilon is the float64 machine epsilon, 2^-52.
const epsilon = 0x1p-52

// nonZero shifts an exact zero by epsilon so that it can be used as a
// denominator.
func nonZero(x float64) float64 {
	if x == 0 {
		return x + epsilon
	}
	return x
}

// Relative returns (rec-truth)/truth with a zero truth value perturbed.
func Relative(rec, truth float64) float64 {
	truth = nonZero(truth)
	return (rec - truth) / truth
}
