package bicreso

import (
	"math"
	"strconv"

	"gonum.org/v1/plot"
)

// PreciseTicks labels major ticks with as many digits as the tick spacing
// needs, which suits the narrow ranges of residual distributions.
type PreciseTicks struct {
	NSuggestedTicks int
}

func (t PreciseTicks) Ticks(min, max float64) []plot.Tick {
	if t.NSuggestedTicks < 2 {
		t.NSuggestedTicks = 4
	}
	if !(max > min) {
		panic("illegal range")
	}

	mult, major := majorStep(max-min, t.NSuggestedTicks)

	var ticks []plot.Tick
	prec := int(math.Ceil(math.Log10(math.Max(math.Abs(min), math.Abs(max)))) - math.Floor(math.Log10(major)))
	for i := math.Ceil(min / major); i*major <= max; i++ {
		v := round(i*major, prec)
		ticks = append(ticks, plot.Tick{Value: v, Label: formatFloatTick(v, -1)})
	}

	minor := major / 2
	switch mult {
	case 3, 6:
		minor = major / 3
	case 5:
		minor = major / 5
	}
	for i := math.Ceil(min / minor); i*minor <= max; i++ {
		v := i * minor
		if !isMajor(ticks, v, minor/100) {
			ticks = append(ticks, plot.Tick{Value: v})
		}
	}
	return ticks
}

// majorStep returns a spacing of mult powers of ten giving about n ticks
// over width.
func majorStep(width float64, n int) (int, float64) {
	tens := math.Pow10(int(math.Floor(math.Log10(width))))
	for width/tens < float64(n)-1 {
		tens /= 10
	}

	mult := int(width / tens / float64(n-1))
	switch mult {
	case 0:
		mult = 1
	case 7:
		mult = 6
	case 9:
		mult = 8
	}
	return mult, float64(mult) * tens
}

func isMajor(ticks []plot.Tick, v, tol float64) bool {
	for _, t := range ticks {
		if t.Label != "" && math.Abs(t.Value-v) < tol {
			return true
		}
	}
	return false
}

func round(x float64, prec int) float64 {
	if x == 0 {
		// no negative zero
		return 0
	}
	if prec >= 0 && x == math.Trunc(x) {
		return x
	}
	pow := math.Pow10(prec)
	intermed := x * pow
	if math.IsInf(intermed, 0) {
		return x
	}
	if x < 0 {
		x = math.Ceil(intermed - 0.5)
	} else {
		x = math.Floor(intermed + 0.5)
	}
	if x == 0 {
		return 0
	}
	return x / pow
}

func formatFloatTick(v float64, prec int) string {
	return strconv.FormatFloat(v, 'g', prec, 64)
}
