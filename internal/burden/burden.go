// Package burden computes per-group somatic mutation burden and pairwise
// gene co-occurrence / mutual exclusivity over a binary mutation matrix
// (samples x genes, non-zero = mutated).
package burden

import (
	"context"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"multiomics/domain/cohort"
	"multiomics/domain/compare"
	"multiomics/internal/stats/correct"
	"multiomics/internal/stats/tests"
)

// BurdenFeature is the feature key under which per-sample mutation counts are
// exposed when burden is fed back into the comparison pipeline.
const BurdenFeature = cohort.FeatureKey("mutation_burden")

// PerSample counts mutated genes per sample.
func PerSample(m *cohort.FeatureMatrix) map[cohort.SampleID]float64 {
	out := make(map[cohort.SampleID]float64, m.SampleCount())
	features := m.Features()
	for _, sample := range m.Samples() {
		count := 0.0
		for _, gene := range features {
			if v, ok := m.Value(sample, gene); ok && !math.IsNaN(v) && v != 0 {
				count++
			}
		}
		out[sample] = count
	}
	return out
}

// AsMatrix wraps per-sample burden into a one-feature matrix so the group
// comparison pipeline can test burden differences like any other feature.
func AsMatrix(m *cohort.FeatureMatrix) (*cohort.FeatureMatrix, error) {
	values := make(map[cohort.SampleID]map[cohort.FeatureKey]float64, m.SampleCount())
	for sample, count := range PerSample(m) {
		values[sample] = map[cohort.FeatureKey]float64{BurdenFeature: count}
	}
	return cohort.NewFeatureMatrix(values)
}

// GroupBurden summarizes mutation burden within one group.
type GroupBurden struct {
	Label  cohort.GroupLabel `json:"label"`
	N      int               `json:"n"`
	Mean   float64           `json:"mean"`
	Median float64           `json:"median"`
	Max    float64           `json:"max"`
}

// ByGroup summarizes burden per group label, sorted by label.
func ByGroup(m *cohort.FeatureMatrix, groups cohort.GroupAssignment) []GroupBurden {
	perSample := PerSample(m)
	byLabel := make(map[cohort.GroupLabel][]float64)
	for sample, count := range perSample {
		label, ok := groups[sample]
		if !ok {
			continue
		}
		byLabel[label] = append(byLabel[label], count)
	}

	out := make([]GroupBurden, 0, len(byLabel))
	for label, counts := range byLabel {
		gb := GroupBurden{Label: label, N: len(counts)}
		gb.Mean, _ = stats.Mean(counts)
		gb.Median, _ = stats.Median(counts)
		gb.Max, _ = stats.Max(counts)
		out = append(out, gb)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// Pair direction labels.
const (
	DirectionCoOccurrence      = "co_occurrence"
	DirectionMutualExclusivity = "mutual_exclusivity"
)

// PairResult is one gene-pair co-occurrence record.
type PairResult struct {
	GeneA     cohort.FeatureKey `json:"gene_a"`
	GeneB     cohort.FeatureKey `json:"gene_b"`
	OddsRatio float64           `json:"odds_ratio"`
	PValue    float64           `json:"p_value"`
	QValue    float64           `json:"q_value"`
	Direction string            `json:"direction"`
}

// CoOccurrenceOptions control the pairwise scan.
type CoOccurrenceOptions struct {
	// MinMutated skips genes mutated in fewer samples; default 3.
	MinMutated int
	// Workers bounds the pairwise fan-out; <= 0 means GOMAXPROCS.
	Workers int
}

// CoOccurrence runs Fisher's exact test on every qualifying gene pair and
// BH-corrects the batch. Pairs whose 2x2 table is degenerate (an empty
// stratum) are dropped before correction. Pairs are ranked ascending by raw
// p-value with a (GeneA, GeneB) tiebreak.
func CoOccurrence(ctx context.Context, m *cohort.FeatureMatrix, opts CoOccurrenceOptions) ([]PairResult, error) {
	if opts.MinMutated <= 0 {
		opts.MinMutated = 3
	}

	samples := m.Samples()
	genes := recurrentGenes(m, samples, opts.MinMutated)

	type pair struct{ a, b cohort.FeatureKey }
	pairs := make([]pair, 0, len(genes)*(len(genes)-1)/2)
	for i := 0; i < len(genes); i++ {
		for j := i + 1; j < len(genes); j++ {
			pairs = append(pairs, pair{genes[i], genes[j]})
		}
	}

	results := make([]PairResult, len(pairs))
	tested := make([]bool, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}
	for i, pr := range pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i], tested[i] = testPair(m, samples, pr.a, pr.b)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	kept := results[:0]
	for i, r := range results {
		if tested[i] {
			kept = append(kept, r)
		}
	}
	results = kept

	raw := make([]float64, len(results))
	for i, r := range results {
		raw[i] = r.PValue
	}
	adjusted := correct.BenjaminiHochberg(raw)
	for i := range results {
		results[i].QValue = adjusted[i]
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].PValue != results[j].PValue {
			return results[i].PValue < results[j].PValue
		}
		if results[i].GeneA != results[j].GeneA {
			return results[i].GeneA < results[j].GeneA
		}
		return results[i].GeneB < results[j].GeneB
	})
	return results, nil
}

// testPair stratifies gene B's status by gene A's status; the resulting 2x2
// table is exactly the co-occurrence contingency table. A gene mutated in
// every sample (or none) leaves an empty stratum with no signal to test; the
// second return reports whether the pair was testable.
func testPair(m *cohort.FeatureMatrix, samples []cohort.SampleID, geneA, geneB cohort.FeatureKey) (PairResult, bool) {
	var withA, withoutA []float64
	for _, sample := range samples {
		va, okA := m.Value(sample, geneA)
		vb, okB := m.Value(sample, geneB)
		if !okA || !okB || math.IsNaN(va) || math.IsNaN(vb) {
			continue
		}
		if va != 0 {
			withA = append(withA, vb)
		} else {
			withoutA = append(withoutA, vb)
		}
	}

	outcome, err := tests.FisherExact([]compare.GroupVector{
		{Label: "mutated", Values: withA},
		{Label: "wild_type", Values: withoutA},
	})
	if err != nil {
		return PairResult{}, false
	}

	result := PairResult{
		GeneA:     geneA,
		GeneB:     geneB,
		OddsRatio: outcome.Effect,
		PValue:    outcome.PValue,
	}
	if outcome.Effect >= 1 {
		result.Direction = DirectionCoOccurrence
	} else {
		result.Direction = DirectionMutualExclusivity
	}
	return result, true
}

func recurrentGenes(m *cohort.FeatureMatrix, samples []cohort.SampleID, minMutated int) []cohort.FeatureKey {
	genes := make([]cohort.FeatureKey, 0, m.FeatureCount())
	for _, gene := range m.Features() {
		mutated := 0
		for _, sample := range samples {
			if v, ok := m.Value(sample, gene); ok && !math.IsNaN(v) && v != 0 {
				mutated++
			}
		}
		if mutated >= minMutated {
			genes = append(genes, gene)
		}
	}
	return genes
}
