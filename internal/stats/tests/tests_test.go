package tests

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multiomics/domain/compare"
)

func twoGroups(a, b []float64) []compare.GroupVector {
	return []compare.GroupVector{
		{Label: "g1", Values: a},
		{Label: "g2", Values: b},
	}
}

func TestByName_ResolvesEveryKind(t *testing.T) {
	for _, name := range []string{KindFisherExact, KindChiSquare, KindWilcoxon, KindKruskalWallis} {
		fn, err := ByName(name)
		require.NoError(t, err, "kind %q", name)
		require.NotNil(t, fn)
	}
}

func TestByName_UnknownKind(t *testing.T) {
	_, err := ByName("t_test")
	assert.Error(t, err)
}

func TestFisherExact_UniformTable(t *testing.T) {
	// Table (1,1 / 1,1): every table consistent with the margins is at most
	// as likely as the observed one, so the two-sided p-value is exactly 1.
	out, err := FisherExact(twoGroups([]float64{1, 0}, []float64{1, 0}))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, out.PValue, 1e-12)
	assert.InDelta(t, 1.0, out.Effect, 1e-12)
}

func TestFisherExact_PerfectSeparation(t *testing.T) {
	// Table (10,0 / 0,10): p = 2 / C(20,10) = 2/184756.
	mutated := make([]float64, 10)
	for i := range mutated {
		mutated[i] = 1
	}
	wildType := make([]float64, 10)

	out, err := FisherExact(twoGroups(mutated, wildType))
	require.NoError(t, err)
	assert.InDelta(t, 2.0/184756.0, out.PValue, 1e-12)
	assert.True(t, math.IsInf(out.Effect, 1), "zero off-diagonal cell must give +Inf odds ratio")
	assert.Equal(t, "or", out.EffectUnit)
}

func TestFisherExact_OddsRatioDirection(t *testing.T) {
	// (8 pos, 2 neg) vs (2 pos, 8 neg): OR = 8*8 / (2*2) = 16.
	out, err := FisherExact(twoGroups(
		[]float64{1, 1, 1, 1, 1, 1, 1, 1, 0, 0},
		[]float64{1, 1, 0, 0, 0, 0, 0, 0, 0, 0},
	))
	require.NoError(t, err)
	assert.InDelta(t, 16.0, out.Effect, 1e-12)
	assert.Less(t, out.PValue, 0.05)
}

func TestFisherExact_RequiresTwoGroups(t *testing.T) {
	_, err := FisherExact([]compare.GroupVector{{Label: "only", Values: []float64{1, 0}}})
	assert.Error(t, err)

	// A group reduced to nothing by NaN filtering counts as absent.
	_, err = FisherExact(twoGroups([]float64{1, 0}, []float64{math.NaN()}))
	assert.Error(t, err)
}

func TestWilcoxonRankSum_KnownAnswer(t *testing.T) {
	// {1,2,3} vs {4,5,6}: U = 0, normal approximation with continuity
	// correction gives p ~ 0.0809.
	out, err := WilcoxonRankSum(twoGroups([]float64{1, 2, 3}, []float64{4, 5, 6}))
	require.NoError(t, err)
	assert.InDelta(t, 0.0809, out.PValue, 0.002)
	assert.InDelta(t, -1.0, out.Effect, 1e-12, "complete separation gives rank-biserial -1")
}

func TestWilcoxonRankSum_ZeroVariance(t *testing.T) {
	out, err := WilcoxonRankSum(twoGroups([]float64{5, 5, 5}, []float64{5, 5, 5}))
	require.NoError(t, err)
	assert.Equal(t, 1.0, out.PValue)
	assert.Equal(t, 0.0, out.Effect)
}

func TestWilcoxonRankSum_IgnoresNaN(t *testing.T) {
	withNaN, err := WilcoxonRankSum(twoGroups(
		[]float64{1, 2, 3, math.NaN()},
		[]float64{math.NaN(), 4, 5, 6},
	))
	require.NoError(t, err)
	clean, err := WilcoxonRankSum(twoGroups([]float64{1, 2, 3}, []float64{4, 5, 6}))
	require.NoError(t, err)
	assert.Equal(t, clean.PValue, withNaN.PValue)
}

func TestKruskalWallis_SeparatedGroups(t *testing.T) {
	out, err := KruskalWallis([]compare.GroupVector{
		{Label: "a", Values: []float64{1, 2, 3, 4, 5}},
		{Label: "b", Values: []float64{11, 12, 13, 14, 15}},
		{Label: "c", Values: []float64{21, 22, 23, 24, 25}},
	})
	require.NoError(t, err)
	assert.Less(t, out.PValue, 0.01)
	assert.Greater(t, out.Effect, 0.5)
}

func TestKruskalWallis_AllTied(t *testing.T) {
	out, err := KruskalWallis(twoGroups([]float64{2, 2}, []float64{2, 2, 2}))
	require.NoError(t, err)
	assert.Equal(t, 1.0, out.PValue)
}

func TestChiSquare_NoAssociation(t *testing.T) {
	// Identical category distributions: chi-square 0, p = 1.
	out, err := ChiSquare(twoGroups(
		[]float64{0, 0, 1, 1, 2, 2},
		[]float64{0, 0, 1, 1, 2, 2},
	))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, out.Statistic, 1e-12)
	assert.InDelta(t, 1.0, out.PValue, 1e-12)
}

func TestChiSquare_SingleCategory(t *testing.T) {
	out, err := ChiSquare(twoGroups([]float64{1, 1, 1}, []float64{1, 1}))
	require.NoError(t, err)
	assert.Equal(t, 1.0, out.PValue)
	assert.Equal(t, 0.0, out.Effect)
}

func TestChiSquare_StrongAssociation(t *testing.T) {
	g1 := make([]float64, 30) // all category 0
	g2 := make([]float64, 30)
	for i := range g2 {
		g2[i] = 1
	}
	out, err := ChiSquare(twoGroups(g1, g2))
	require.NoError(t, err)
	assert.Less(t, out.PValue, 1e-6)
	assert.InDelta(t, 1.0, out.Effect, 1e-9, "perfect association has Cramer's V = 1")
}

func TestRanks_AverageTies(t *testing.T) {
	ranks, tieTerm := Ranks([]float64{10, 20, 20, 30})
	assert.Equal(t, []float64{1, 2.5, 2.5, 4}, ranks)
	assert.Equal(t, 6.0, tieTerm) // one tie group of 2: 2^3 - 2
}

func TestRanks_NoTies(t *testing.T) {
	ranks, tieTerm := Ranks([]float64{3, 1, 2})
	assert.Equal(t, []float64{3, 1, 2}, ranks)
	assert.Equal(t, 0.0, tieTerm)
}
