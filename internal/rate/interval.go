package rate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Method selects the small-sample confidence interval procedure for a
// standardized rate.
type Method string

const (
	// FayFeuer is the Fay-Feuer procedure. More conservative: wider
	// intervals, safer under very sparse or zero counts. The default.
	FayFeuer Method = "fayfeuer"

	// Tiwari is the Tiwari modification. Trades some conservatism for
	// tighter upper bounds when counts are small but nonzero.
	Tiwari Method = "tiwari"
)

// Label returns the display name used in result records.
func (m Method) Label() string {
	switch m {
	case Tiwari:
		return "Tiwari"
	default:
		return "Fay-Feuer"
	}
}

// ParseMethod parses a method selector as it appears in comparison files.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case FayFeuer, Tiwari:
		return Method(s), nil
	case "":
		return FayFeuer, nil
	default:
		return "", fmt.Errorf("unknown CI method %q: must be %q or %q", s, FayFeuer, Tiwari)
	}
}

// Interval is a two-sided confidence interval. Nil bounds mean the
// interval is undefined for the input (the degenerate small-sample case);
// this is an ordinary result, not an error.
type Interval struct {
	Lower *float64 `json:"lower,omitempty"`
	Upper *float64 `json:"upper,omitempty"`
}

// Defined reports whether both bounds exist.
func (iv Interval) Defined() bool {
	return iv.Lower != nil && iv.Upper != nil
}

// Scale returns the interval with both bounds multiplied by s, matching
// the display scaling applied to the point estimate. Undefined bounds
// stay undefined.
func (iv Interval) Scale(s float64) Interval {
	var out Interval
	if iv.Lower != nil {
		out.Lower = ptr(*iv.Lower * s)
	}
	if iv.Upper != nil {
		out.Upper = ptr(*iv.Upper * s)
	}
	return out
}

// SmallSampleInterval computes a two-sided (1-alpha) confidence interval
// for the standardized rate of one group, using the normalized standard
// weights shared by both groups.
//
// Both procedures model the standardized rate as a weighted sum of
// Poisson counts and bound it with scaled chi-square quantiles:
//
//	lower: df = 2*rate^2/v,          bound = v/(2*rate) * Q(alpha/2, df)
//	upper: df = 2*(rate+wm)^2/(v+z), bound = (v+z)/(2*(rate+wm)) * Q(1-alpha/2, df)
//
// where wm and z are the method's correction terms: Fay-Feuer uses the
// maximum finite per-stratum SEER weight and its square; Tiwari uses the
// mean weight and mean squared weight over strata with pop > 0 or
// count > 0.
//
// When the rate, variance proxy, or correction terms are non-finite, or
// the rate or variance is non-positive, the interval is undefined and
// both bounds are nil. Zero populations therefore surface as undefined
// intervals, never as panics or silent Inf bounds.
//
// Bounds are on the unscaled rate; callers apply display scaling via
// Interval.Scale.
func SmallSampleInterval(counts, pop, stdWNorm []float64, alpha float64, method Method) Interval {
	n := len(counts)
	if n == 0 || len(pop) != n || len(stdWNorm) != n {
		return Interval{}
	}

	// Per-stratum SEER weight, rate estimate, and variance proxy.
	w := make([]float64, n)
	var rate, v float64
	for i := 0; i < n; i++ {
		w[i] = stdWNorm[i] / pop[i]
		rate += counts[i] / pop[i] * stdWNorm[i]
		v += w[i] * w[i] * counts[i]
	}

	var wm, z float64
	switch method {
	case Tiwari:
		// Strata with zero population and zero events are excluded from
		// the Tiwari average only.
		var sum, sumSq float64
		var ok int
		for i := 0; i < n; i++ {
			if pop[i] > 0 || counts[i] > 0 {
				sum += w[i]
				sumSq += w[i] * w[i]
				ok++
			}
		}
		if ok == 0 {
			return Interval{}
		}
		wm = sum / float64(ok)
		z = sumSq / float64(ok)
	default: // FayFeuer
		wm = math.Inf(-1)
		for _, wi := range w {
			if isFinite(wi) && wi > wm {
				wm = wi
			}
		}
		z = wm * wm
	}

	if !isFinite(rate) || !isFinite(v) || !isFinite(wm) || !isFinite(z) || rate <= 0 || v <= 0 {
		return Interval{}
	}

	dfLo := 2 * rate * rate / v
	lower := v / (2 * rate) * distuv.ChiSquared{K: dfLo}.Quantile(alpha / 2)

	dfHi := 2 * (rate + wm) * (rate + wm) / (v + z)
	upper := (v + z) / (2 * (rate + wm)) * distuv.ChiSquared{K: dfHi}.Quantile(1 - alpha/2)

	return Interval{Lower: &lower, Upper: &upper}
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func ptr(v float64) *float64 {
	return &v
}
