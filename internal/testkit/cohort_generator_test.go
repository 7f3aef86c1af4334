package testkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multiomics/domain/cohort"
)

func TestMutationMatrix_Deterministic(t *testing.T) {
	cfg := DefaultCohortConfig()

	first, firstGroups, err := MutationMatrix(cfg)
	require.NoError(t, err)
	second, secondGroups, err := MutationMatrix(cfg)
	require.NoError(t, err)

	assert.Equal(t, firstGroups, secondGroups)
	require.Equal(t, first.Samples(), second.Samples())
	require.Equal(t, first.Features(), second.Features())
	for _, sample := range first.Samples() {
		for _, gene := range first.Features() {
			v1, _ := first.Value(sample, gene)
			v2, _ := second.Value(sample, gene)
			assert.Equal(t, v1, v2, "sample %s gene %s", sample, gene)
		}
	}
}

func TestMutationMatrix_DifferentSeedsDiffer(t *testing.T) {
	cfg := DefaultCohortConfig()
	first, _, err := MutationMatrix(cfg)
	require.NoError(t, err)

	cfg.Seed = 99
	second, _, err := MutationMatrix(cfg)
	require.NoError(t, err)

	same := true
	for _, sample := range first.Samples() {
		for _, gene := range first.Features() {
			v1, _ := first.Value(sample, gene)
			v2, _ := second.Value(sample, gene)
			if v1 != v2 {
				same = false
			}
		}
	}
	assert.False(t, same)
}

func TestMutationMatrix_PlantedSignal(t *testing.T) {
	cfg := DefaultCohortConfig()
	m, groups, err := MutationMatrix(cfg)
	require.NoError(t, err)

	planted := GeneName(0)
	rate := func(label cohort.GroupLabel) float64 {
		mutated, total := 0, 0
		for _, sample := range m.Samples() {
			if groups[sample] != label {
				continue
			}
			total++
			if v, _ := m.Value(sample, planted); v != 0 {
				mutated++
			}
		}
		require.Positive(t, total)
		return float64(mutated) / float64(total)
	}

	assert.Greater(t, rate(cfg.Groups[0]), rate(cfg.Groups[1]),
		"planted gene must be enriched in the first group")
}

func TestAssignment_RoundRobinBalance(t *testing.T) {
	cfg := DefaultCohortConfig()
	groups := Assignment(cfg)

	counts := map[cohort.GroupLabel]int{}
	for _, label := range groups {
		counts[label]++
	}
	assert.Equal(t, cfg.Samples/2, counts["C1"])
	assert.Equal(t, cfg.Samples/2, counts["C2"])
}

func TestAbundanceMatrix_PositiveTotals(t *testing.T) {
	m, err := AbundanceMatrix(DefaultCohortConfig())
	require.NoError(t, err)

	for _, sample := range m.Samples() {
		total := 0.0
		for _, taxon := range m.Features() {
			v, ok := m.Value(sample, taxon)
			require.True(t, ok)
			assert.GreaterOrEqual(t, v, 0.0)
			total += v
		}
		assert.Positive(t, total, "sample %s", sample)
	}
}

func TestImmuneMatrix_NonNegativeFractions(t *testing.T) {
	m, err := ImmuneMatrix(DefaultCohortConfig())
	require.NoError(t, err)
	require.Equal(t, DefaultCohortConfig().Immune, m.FeatureCount())

	for _, sample := range m.Samples() {
		for _, feature := range m.Features() {
			v, ok := m.Value(sample, feature)
			require.True(t, ok)
			assert.GreaterOrEqual(t, v, 0.0)
		}
	}
}
