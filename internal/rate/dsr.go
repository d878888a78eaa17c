package rate

import (
	"fmt"
	"math"
)

// Estimate holds a directly standardized rate and its sampling variance.
// Values are on the unscaled (per-person) scale; display scaling is the
// orchestrator's concern.
type Estimate struct {
	DSR           float64
	Variance      float64
	StandardError float64
}

// NormalizeWeights returns weight scaled so the result sums to 1.
//
// The input is never mutated. Fails with an INVALID_WEIGHT error when the
// weight sum is non-finite or not strictly positive, and with EMPTY_INPUT
// for a zero-length vector. Normalizing an already-normalized vector is a
// no-op up to floating rounding.
func NormalizeWeights(weight []float64) ([]float64, error) {
	if len(weight) == 0 {
		return nil, newInputError(ErrCodeEmptyInput, "weight vector has zero length")
	}
	var sum float64
	for _, w := range weight {
		sum += w
	}
	if math.IsNaN(sum) || math.IsInf(sum, 0) || sum <= 0 {
		return nil, newInputError(ErrCodeInvalidWeight,
			fmt.Sprintf("weight sum must be finite and positive, got %v", sum))
	}
	out := make([]float64, len(weight))
	for i, w := range weight {
		out[i] = w / sum
	}
	return out, nil
}

// DSR computes the directly standardized rate and its variance:
//
//	dsr      = sum_i (counts[i]/pop[i]) * weight[i]
//	variance = sum_i (counts[i]/pop[i]^2) * weight[i]^2
//
// When normalize is true the weights are normalized to sum to 1 first;
// pass false when the caller already holds normalized standard weights.
//
// Zero populations are not guarded here. A pop[i] of 0 for an active
// stratum is a caller-side data-quality problem and propagates as NaN or
// Inf, which the interval engine's degeneracy check turns into an
// undefined interval rather than a crash.
func DSR(counts, pop, weight []float64, normalize bool) (Estimate, error) {
	if len(counts) == 0 {
		return Estimate{}, newInputError(ErrCodeEmptyInput, "stratum vectors have zero length")
	}
	if len(pop) != len(counts) || len(weight) != len(counts) {
		return Estimate{}, newInputError(ErrCodeMismatchedLength,
			fmt.Sprintf("counts/pop/weight lengths disagree: %d/%d/%d", len(counts), len(pop), len(weight)))
	}

	w := weight
	if normalize {
		norm, err := NormalizeWeights(weight)
		if err != nil {
			return Estimate{}, err
		}
		w = norm
	}

	var dsr, variance float64
	for i := range counts {
		dsr += counts[i] / pop[i] * w[i]
		variance += counts[i] / (pop[i] * pop[i]) * w[i] * w[i]
	}
	return Estimate{DSR: dsr, Variance: variance, StandardError: math.Sqrt(variance)}, nil
}
