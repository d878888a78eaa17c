package rate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// weightTol is the per-position tolerance beyond which the two groups'
// standard weight vectors are considered mismatched.
const weightTol = 1e-12

// Group holds one group's pre-extracted per-stratum vectors. Row
// selection against the source table happens upstream; by the time a
// Group exists, its strata are aligned with the other group's by
// position.
type Group struct {
	Label  string
	Counts []float64
	Pop    []float64
	Weight []float64
}

// Options configures a comparison. The zero value of a field means "use
// the default": alpha 0.05, scale 100,000, Fay-Feuer, normalization on.
type Options struct {
	// Measure labels the ratio row, e.g. "IBM rate ratio".
	Measure string

	// Alpha is the two-sided significance level.
	Alpha float64

	// Scale is the display scale for rates and their bounds.
	Scale float64

	// RawWeights skips normalization of group 1's weights. Set it only
	// when the caller already holds weights that sum to 1.
	RawWeights bool

	// Method selects the small-sample CI procedure.
	Method Method
}

// DefaultOptions returns the standard SEER configuration.
func DefaultOptions() Options {
	return Options{
		Measure: "rate ratio",
		Alpha:   0.05,
		Scale:   100000,
		Method:  FayFeuer,
	}
}

// RateRow is one group's standardized-rate result.
type RateRow struct {
	GroupLabel string   `json:"group"`
	Strata     int      `json:"strata"`
	DSR        float64  `json:"dsr"`
	Variance   float64  `json:"variance"`
	Rate       float64  `json:"rate"`
	CILow      *float64 `json:"ci_low,omitempty"`
	CIHigh     *float64 `json:"ci_high,omitempty"`
	CIMethod   string   `json:"ci_method"`
}

// RatioRow is the group2/group1 rate-ratio result. Estimate is nil when
// the ratio is undefined (a zero or degenerate group 1 rate).
type RatioRow struct {
	Measure  string   `json:"measure"`
	Estimate *float64 `json:"estimate,omitempty"`
	CILow    *float64 `json:"ci_low,omitempty"`
	CIHigh   *float64 `json:"ci_high,omitempty"`
	CIMethod string   `json:"ci_method"`
}

// ratioMethodLabel names the ratio CI procedure in result records.
const ratioMethodLabel = "Delta log-normal"

// Comparison is the full result of comparing two groups.
type Comparison struct {
	Rates    [2]RateRow `json:"rates"`
	Ratio    RatioRow   `json:"ratio"`
	Warnings []Warning  `json:"warnings,omitempty"`
}

// Compare computes both groups' standardized rates with small-sample
// confidence intervals and the group2/group1 rate ratio with a
// delta-method log-normal interval.
//
// Validation is fail-fast, in order: empty groups, within-group and
// between-group length mismatches, non-finite weights. A weight vector
// mismatch between the groups beyond 1e-12 per position is non-fatal:
// computation proceeds with group 1's weights as the shared standard
// (the SEER single-standard-population convention) and the result
// carries a WEIGHT_MISMATCH warning.
func Compare(g1, g2 Group, opts Options) (*Comparison, error) {
	opts = opts.WithDefaults()

	if err := validateGroups(g1, g2); err != nil {
		return nil, err
	}

	var warnings []Warning
	if i := firstWeightMismatch(g1.Weight, g2.Weight); i >= 0 {
		warnings = append(warnings, Warning{
			Code: WarnCodeWeightMismatch,
			Message: fmt.Sprintf(
				"group weight vectors differ at stratum %d (%v vs %v); using group %q weights for both groups",
				i, g1.Weight[i], g2.Weight[i], g1.Label),
		})
	}

	// Both groups share group 1's standard weights.
	stdW := g1.Weight
	if !opts.RawWeights {
		norm, err := NormalizeWeights(g1.Weight)
		if err != nil {
			return nil, err
		}
		stdW = norm
	}

	est1, err := DSR(g1.Counts, g1.Pop, stdW, false)
	if err != nil {
		return nil, err
	}
	est2, err := DSR(g2.Counts, g2.Pop, stdW, false)
	if err != nil {
		return nil, err
	}

	iv1 := SmallSampleInterval(g1.Counts, g1.Pop, stdW, opts.Alpha, opts.Method).Scale(opts.Scale)
	iv2 := SmallSampleInterval(g2.Counts, g2.Pop, stdW, opts.Alpha, opts.Method).Scale(opts.Scale)

	cmp := &Comparison{
		Rates: [2]RateRow{
			rateRow(g1, est1, iv1, opts),
			rateRow(g2, est2, iv2, opts),
		},
		Ratio:    ratioRow(est1, est2, opts),
		Warnings: warnings,
	}
	return cmp, nil
}

func rateRow(g Group, est Estimate, iv Interval, opts Options) RateRow {
	return RateRow{
		GroupLabel: g.Label,
		Strata:     len(g.Counts),
		DSR:        est.DSR,
		Variance:   est.Variance,
		Rate:       est.DSR * opts.Scale,
		CILow:      iv.Lower,
		CIHigh:     iv.Upper,
		CIMethod:   opts.Method.Label(),
	}
}

// ratioRow computes RR = dsr2/dsr1 and its log-normal interval via the
// delta method:
//
//	se_logRR = sqrt(var1/dsr1^2 + var2/dsr2^2)
//	bounds   = exp(log(RR) -/+ z_{1-alpha/2} * se_logRR)
//
// A non-finite or non-positive ratio, or a non-finite standard error,
// yields an undefined row (nil estimate and bounds).
func ratioRow(est1, est2 Estimate, opts Options) RatioRow {
	row := RatioRow{Measure: opts.Measure, CIMethod: ratioMethodLabel}

	rr := est2.DSR / est1.DSR
	if !isFinite(rr) || rr <= 0 {
		return row
	}
	row.Estimate = ptr(rr)

	seLog := math.Sqrt(est1.Variance/(est1.DSR*est1.DSR) + est2.Variance/(est2.DSR*est2.DSR))
	if !isFinite(seLog) {
		return row
	}
	z := distuv.UnitNormal.Quantile(1 - opts.Alpha/2)
	row.CILow = ptr(math.Exp(math.Log(rr) - z*seLog))
	row.CIHigh = ptr(math.Exp(math.Log(rr) + z*seLog))
	return row
}

func validateGroups(g1, g2 Group) error {
	for _, g := range []Group{g1, g2} {
		if len(g.Counts) == 0 {
			return &InputError{
				Code:    ErrCodeEmptyInput,
				Message: "group has zero strata",
				Group:   g.Label,
				Stratum: -1,
			}
		}
		if len(g.Pop) != len(g.Counts) || len(g.Weight) != len(g.Counts) {
			return &InputError{
				Code: ErrCodeMismatchedLength,
				Message: fmt.Sprintf("counts/pop/weight lengths disagree: %d/%d/%d",
					len(g.Counts), len(g.Pop), len(g.Weight)),
				Group:   g.Label,
				Stratum: -1,
			}
		}
	}
	if len(g1.Counts) != len(g2.Counts) {
		return newInputError(ErrCodeMismatchedLength,
			fmt.Sprintf("groups have different stratum counts: %d vs %d", len(g1.Counts), len(g2.Counts)))
	}
	for _, g := range []Group{g1, g2} {
		for i, w := range g.Weight {
			if !isFinite(w) {
				return &InputError{
					Code:    ErrCodeInvalidWeight,
					Message: fmt.Sprintf("weight is not finite: %v", w),
					Group:   g.Label,
					Stratum: i,
				}
			}
		}
	}
	return nil
}

// firstWeightMismatch returns the first position where the vectors differ
// by more than weightTol, or -1 when they agree.
func firstWeightMismatch(w1, w2 []float64) int {
	for i := range w1 {
		if math.Abs(w1[i]-w2[i]) > weightTol {
			return i
		}
	}
	return -1
}

// WithDefaults fills unset fields with the standard SEER configuration.
// Compare applies it internally; callers rendering results use it to see
// the effective configuration.
func (opts Options) WithDefaults() Options {
	def := DefaultOptions()
	if opts.Measure == "" {
		opts.Measure = def.Measure
	}
	if opts.Alpha <= 0 || opts.Alpha >= 1 {
		opts.Alpha = def.Alpha
	}
	if opts.Scale <= 0 {
		opts.Scale = def.Scale
	}
	if opts.Method == "" {
		opts.Method = def.Method
	}
	return opts
}
