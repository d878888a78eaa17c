package rate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoGroups returns a five-stratum comparison fixture with shared
// standard weights and a higher-mortality second group.
func twoGroups() (Group, Group) {
	weight := []float64{0.30, 0.25, 0.20, 0.15, 0.10}
	g1 := Group{
		Label:  "1975-1984",
		Counts: []float64{12, 45, 130, 420, 910},
		Pop:    []float64{150000, 120000, 90000, 60000, 30000},
		Weight: weight,
	}
	g2 := Group{
		Label:  "1985-1994",
		Counts: []float64{30, 110, 300, 900, 1800},
		Pop:    []float64{160000, 125000, 95000, 62000, 31000},
		Weight: weight,
	}
	return g1, g2
}

func TestCompare_ExactSmallCase(t *testing.T) {
	// Hand-computable two-stratum case with equal weights:
	//   dsr1 = 0.5*10/1000 + 0.5*20/2000 = 0.01
	//   dsr2 = 0.5*30/1000 + 0.5*20/2000 = 0.02
	//   RR   = 2
	g1 := Group{Label: "a", Counts: []float64{10, 20}, Pop: []float64{1000, 2000}, Weight: []float64{1, 1}}
	g2 := Group{Label: "b", Counts: []float64{30, 20}, Pop: []float64{1000, 2000}, Weight: []float64{1, 1}}

	cmp, err := Compare(g1, g2, DefaultOptions())
	require.NoError(t, err)

	assert.InEpsilon(t, 0.01, cmp.Rates[0].DSR, 1e-12)
	assert.InEpsilon(t, 0.02, cmp.Rates[1].DSR, 1e-12)
	assert.InEpsilon(t, 1000.0, cmp.Rates[0].Rate, 1e-12)
	assert.InEpsilon(t, 2000.0, cmp.Rates[1].Rate, 1e-12)

	// var1 = 10/1e6*0.25 + 20/4e6*0.25, var2 likewise with 30 deaths.
	assert.InEpsilon(t, 3.75e-6, cmp.Rates[0].Variance, 1e-12)
	assert.InEpsilon(t, 8.75e-6, cmp.Rates[1].Variance, 1e-12)

	require.NotNil(t, cmp.Ratio.Estimate)
	assert.InEpsilon(t, 2.0, *cmp.Ratio.Estimate, 1e-12)
	assert.Equal(t, "Delta log-normal", cmp.Ratio.CIMethod)

	// The log-normal interval is symmetric about RR on the log scale, so
	// low*high == RR^2, and it brackets the estimate.
	require.NotNil(t, cmp.Ratio.CILow)
	require.NotNil(t, cmp.Ratio.CIHigh)
	low, high := *cmp.Ratio.CILow, *cmp.Ratio.CIHigh
	assert.InEpsilon(t, 4.0, low*high, 1e-9)
	assert.Less(t, low, 2.0)
	assert.Greater(t, high, 2.0)
}

func TestCompare_RowShape(t *testing.T) {
	g1, g2 := twoGroups()
	cmp, err := Compare(g1, g2, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "1975-1984", cmp.Rates[0].GroupLabel)
	assert.Equal(t, "1985-1994", cmp.Rates[1].GroupLabel)
	assert.Equal(t, 5, cmp.Rates[0].Strata)
	assert.Equal(t, 5, cmp.Rates[1].Strata)
	assert.Equal(t, "Fay-Feuer", cmp.Rates[0].CIMethod)
	assert.Empty(t, cmp.Warnings)

	for _, row := range cmp.Rates {
		require.NotNil(t, row.CILow)
		require.NotNil(t, row.CIHigh)
		assert.Less(t, *row.CILow, row.Rate)
		assert.Greater(t, *row.CIHigh, row.Rate)
	}
}

func TestCompare_RatioSymmetry(t *testing.T) {
	g1, g2 := twoGroups()

	fwd, err := Compare(g1, g2, DefaultOptions())
	require.NoError(t, err)
	rev, err := Compare(g2, g1, DefaultOptions())
	require.NoError(t, err)

	require.NotNil(t, fwd.Ratio.Estimate)
	require.NotNil(t, rev.Ratio.Estimate)
	assert.InEpsilon(t, 1.0 / *fwd.Ratio.Estimate, *rev.Ratio.Estimate, 1e-12)
	assert.InEpsilon(t, -math.Log(*fwd.Ratio.Estimate), math.Log(*rev.Ratio.Estimate), 1e-9)

	// Delta-method log-normal bounds are multiplicative-inverse symmetric.
	assert.InEpsilon(t, 1.0 / *fwd.Ratio.CIHigh, *rev.Ratio.CILow, 1e-9)
	assert.InEpsilon(t, 1.0 / *fwd.Ratio.CILow, *rev.Ratio.CIHigh, 1e-9)
}

func TestCompare_RescalingInvariance(t *testing.T) {
	g1, g2 := twoGroups()

	opts := DefaultOptions()
	opts.Scale = 1
	unit, err := Compare(g1, g2, opts)
	require.NoError(t, err)

	opts.Scale = 100000
	scaled, err := Compare(g1, g2, opts)
	require.NoError(t, err)

	for i := range scaled.Rates {
		assert.InEpsilon(t, unit.Rates[i].Rate*100000, scaled.Rates[i].Rate, 1e-12)
		assert.InEpsilon(t, *unit.Rates[i].CILow*100000, *scaled.Rates[i].CILow, 1e-12)
		assert.InEpsilon(t, *unit.Rates[i].CIHigh*100000, *scaled.Rates[i].CIHigh, 1e-12)
	}

	// The ratio is scale-free.
	assert.InEpsilon(t, *unit.Ratio.Estimate, *scaled.Ratio.Estimate, 1e-12)
}

func TestCompare_MethodChoice(t *testing.T) {
	g1, g2 := twoGroups()

	ffOpts := DefaultOptions()
	ff, err := Compare(g1, g2, ffOpts)
	require.NoError(t, err)

	twOpts := DefaultOptions()
	twOpts.Method = Tiwari
	tw, err := Compare(g1, g2, twOpts)
	require.NoError(t, err)

	for i := range ff.Rates {
		// Point estimates are method-independent.
		assert.InEpsilon(t, ff.Rates[i].DSR, tw.Rates[i].DSR, 1e-12)
		assert.Equal(t, "Tiwari", tw.Rates[i].CIMethod)
		// Tiwari upper bounds are at most Fay-Feuer's.
		assert.LessOrEqual(t, *tw.Rates[i].CIHigh, *ff.Rates[i].CIHigh)
	}
	assert.InEpsilon(t, *ff.Ratio.Estimate, *tw.Ratio.Estimate, 1e-12)
}

func TestCompare_EmptyGroup(t *testing.T) {
	_, g2 := twoGroups()
	_, err := Compare(Group{Label: "empty"}, g2, DefaultOptions())
	require.Error(t, err)
	assert.True(t, IsEmptyInput(err))

	var ie *InputError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "empty", ie.Group)
}

func TestCompare_MismatchedStratumCounts(t *testing.T) {
	g1, g2 := twoGroups()
	g2.Counts = g2.Counts[:4]
	g2.Pop = g2.Pop[:4]
	g2.Weight = g2.Weight[:4]

	_, err := Compare(g1, g2, DefaultOptions())
	require.Error(t, err)
	assert.True(t, IsMismatchedLength(err))
}

func TestCompare_MismatchedVectorsWithinGroup(t *testing.T) {
	g1, g2 := twoGroups()
	g1.Pop = g1.Pop[:4]

	_, err := Compare(g1, g2, DefaultOptions())
	require.Error(t, err)
	assert.True(t, IsMismatchedLength(err))
}

func TestCompare_NonFiniteWeight(t *testing.T) {
	g1, g2 := twoGroups()
	g2.Weight = append([]float64(nil), g2.Weight...)
	g2.Weight[2] = math.NaN()

	_, err := Compare(g1, g2, DefaultOptions())
	require.Error(t, err)
	assert.True(t, IsInvalidWeight(err))

	var ie *InputError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "1985-1994", ie.Group)
	assert.Equal(t, 2, ie.Stratum)
}

func TestCompare_WeightMismatchWarning(t *testing.T) {
	g1, g2 := twoGroups()
	g2.Weight = append([]float64(nil), g2.Weight...)
	g2.Weight[0] += 0.01

	cmp, err := Compare(g1, g2, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, cmp.Warnings, 1)
	assert.Equal(t, WarnCodeWeightMismatch, cmp.Warnings[0].Code)

	// Group 1's weights are the shared standard, so the result matches a
	// comparison where group 2 carries identical weights.
	g2.Weight = g1.Weight
	clean, err := Compare(g1, g2, DefaultOptions())
	require.NoError(t, err)
	assert.InEpsilon(t, clean.Rates[1].Rate, cmp.Rates[1].Rate, 1e-12)
	assert.Empty(t, clean.Warnings)
}

func TestCompare_WeightMismatchWithinTolerance(t *testing.T) {
	g1, g2 := twoGroups()
	g2.Weight = append([]float64(nil), g2.Weight...)
	g2.Weight[0] += 1e-13

	cmp, err := Compare(g1, g2, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, cmp.Warnings)
}

func TestCompare_ZeroEventsEverywhere(t *testing.T) {
	g1, g2 := twoGroups()
	g1.Counts = []float64{0, 0, 0, 0, 0}
	g2.Counts = []float64{0, 0, 0, 0, 0}

	cmp, err := Compare(g1, g2, DefaultOptions())
	require.NoError(t, err)

	for _, row := range cmp.Rates {
		assert.Zero(t, row.Rate)
		assert.Nil(t, row.CILow)
		assert.Nil(t, row.CIHigh)
	}
	// 0/0 ratio is undefined.
	assert.Nil(t, cmp.Ratio.Estimate)
	assert.Nil(t, cmp.Ratio.CILow)
	assert.Nil(t, cmp.Ratio.CIHigh)
}

func TestCompare_ZeroGroupOneRate(t *testing.T) {
	g1, g2 := twoGroups()
	g1.Counts = []float64{0, 0, 0, 0, 0}

	cmp, err := Compare(g1, g2, DefaultOptions())
	require.NoError(t, err)

	// Group 2 still gets a defined interval; the ratio does not.
	assert.True(t, Interval{Lower: cmp.Rates[1].CILow, Upper: cmp.Rates[1].CIHigh}.Defined())
	assert.Nil(t, cmp.Ratio.Estimate)
}

func TestCompare_DefaultsApplied(t *testing.T) {
	g1, g2 := twoGroups()

	cmp, err := Compare(g1, g2, Options{})
	require.NoError(t, err)

	def, err := Compare(g1, g2, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "rate ratio", cmp.Ratio.Measure)
	assert.InEpsilon(t, def.Rates[0].Rate, cmp.Rates[0].Rate, 1e-12)
	assert.InEpsilon(t, *def.Rates[0].CIHigh, *cmp.Rates[0].CIHigh, 1e-12)
}

func TestInputError_Format(t *testing.T) {
	err := &InputError{Code: ErrCodeInvalidWeight, Message: "weight is not finite: NaN", Group: "g", Stratum: 3}
	assert.Equal(t, "INVALID_WEIGHT: weight is not finite: NaN (group=g, stratum=3)", err.Error())

	err = newInputError(ErrCodeEmptyInput, "group has zero strata")
	assert.Equal(t, "EMPTY_INPUT: group has zero strata", err.Error())
}
