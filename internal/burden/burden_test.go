package burden

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multiomics/domain/cohort"
)

func mutationMatrix(t *testing.T, rows map[cohort.SampleID]map[cohort.FeatureKey]float64) *cohort.FeatureMatrix {
	t.Helper()
	m, err := cohort.NewFeatureMatrix(rows)
	require.NoError(t, err)
	return m
}

func TestPerSample(t *testing.T) {
	m := mutationMatrix(t, map[cohort.SampleID]map[cohort.FeatureKey]float64{
		"S1": {"TP53": 1, "KRAS": 1, "EGFR": 0},
		"S2": {"TP53": 0, "KRAS": 0, "EGFR": 0},
		"S3": {"TP53": 1, "KRAS": 0, "EGFR": 1},
	})

	counts := PerSample(m)
	assert.Equal(t, 2.0, counts["S1"])
	assert.Equal(t, 0.0, counts["S2"])
	assert.Equal(t, 2.0, counts["S3"])
}

func TestAsMatrix(t *testing.T) {
	m := mutationMatrix(t, map[cohort.SampleID]map[cohort.FeatureKey]float64{
		"S1": {"TP53": 1},
		"S2": {"TP53": 0},
	})

	bm, err := AsMatrix(m)
	require.NoError(t, err)
	assert.Equal(t, []cohort.FeatureKey{BurdenFeature}, bm.Features())

	v, ok := bm.Value("S1", BurdenFeature)
	require.True(t, ok)
	assert.Equal(t, 1.0, v)
}

func TestByGroup(t *testing.T) {
	m := mutationMatrix(t, map[cohort.SampleID]map[cohort.FeatureKey]float64{
		"S1": {"g1": 1, "g2": 1},
		"S2": {"g1": 1, "g2": 0},
		"S3": {"g1": 0, "g2": 0},
		"S4": {"g1": 0, "g2": 0},
	})
	groups := cohort.GroupAssignment{"S1": "hot", "S2": "hot", "S3": "cold", "S4": "cold"}

	byGroup := ByGroup(m, groups)
	require.Len(t, byGroup, 2)
	assert.Equal(t, cohort.GroupLabel("cold"), byGroup[0].Label)
	assert.Equal(t, 0.0, byGroup[0].Mean)
	assert.Equal(t, cohort.GroupLabel("hot"), byGroup[1].Label)
	assert.Equal(t, 1.5, byGroup[1].Mean)
	assert.Equal(t, 2.0, byGroup[1].Max)
}

func TestCoOccurrence_PlantedPair(t *testing.T) {
	// geneA and geneB always co-occur; geneC is independent background.
	rows := map[cohort.SampleID]map[cohort.FeatureKey]float64{}
	for i := 0; i < 20; i++ {
		sample := cohort.SampleID(fmt.Sprintf("S%02d", i))
		mutated := 0.0
		if i < 10 {
			mutated = 1
		}
		background := 0.0
		if i%3 == 0 {
			background = 1
		}
		rows[sample] = map[cohort.FeatureKey]float64{
			"geneA": mutated,
			"geneB": mutated,
			"geneC": background,
		}
	}
	m := mutationMatrix(t, rows)

	pairs, err := CoOccurrence(context.Background(), m, CoOccurrenceOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, pairs)

	// The perfectly co-occurring pair ranks first.
	best := pairs[0]
	assert.Equal(t, cohort.FeatureKey("geneA"), best.GeneA)
	assert.Equal(t, cohort.FeatureKey("geneB"), best.GeneB)
	assert.Equal(t, DirectionCoOccurrence, best.Direction)
	assert.Less(t, best.PValue, 0.001)
	assert.GreaterOrEqual(t, best.QValue, best.PValue)
}

func TestCoOccurrence_DropsDegeneratePairs(t *testing.T) {
	// "always" is mutated in every sample, so any pair it stratifies has an
	// empty wild-type stratum and cannot be tested.
	rows := map[cohort.SampleID]map[cohort.FeatureKey]float64{}
	for i := 0; i < 6; i++ {
		sample := cohort.SampleID(fmt.Sprintf("S%d", i))
		a, b := 0.0, 0.0
		if i < 3 {
			a = 1
		}
		if i%2 == 0 {
			b = 1
		}
		rows[sample] = map[cohort.FeatureKey]float64{"always": 1, "geneA": a, "geneB": b}
	}
	m := mutationMatrix(t, rows)

	pairs, err := CoOccurrence(context.Background(), m, CoOccurrenceOptions{})
	require.NoError(t, err)
	require.Len(t, pairs, 1, "untestable pairs never reach the output table")
	assert.Equal(t, cohort.FeatureKey("geneA"), pairs[0].GeneA)
	assert.Equal(t, cohort.FeatureKey("geneB"), pairs[0].GeneB)
	assert.NotEmpty(t, pairs[0].Direction)
}

func TestCoOccurrence_MinMutatedFilter(t *testing.T) {
	m := mutationMatrix(t, map[cohort.SampleID]map[cohort.FeatureKey]float64{
		"S1": {"rare": 1, "common": 1},
		"S2": {"rare": 0, "common": 1},
		"S3": {"rare": 0, "common": 1},
		"S4": {"rare": 0, "common": 0},
	})

	pairs, err := CoOccurrence(context.Background(), m, CoOccurrenceOptions{MinMutated: 3})
	require.NoError(t, err)
	assert.Empty(t, pairs, "a single recurrent gene forms no pairs")
}
