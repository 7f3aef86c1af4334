// Package diversity computes microbiome alpha diversity indices per sample
// and Bray-Curtis dissimilarity between samples, over an abundance matrix
// (samples x taxa, non-negative counts).
package diversity

import (
	"fmt"
	"math"

	"multiomics/domain/cohort"
)

// Feature keys for the per-sample index matrix produced by Indices.
const (
	FeatureObserved   = cohort.FeatureKey("observed_richness")
	FeatureShannon    = cohort.FeatureKey("shannon")
	FeatureSimpson    = cohort.FeatureKey("simpson")
	FeatureInvSimpson = cohort.FeatureKey("inverse_simpson")
	FeatureChao1      = cohort.FeatureKey("chao1")
)

// Indices computes alpha diversity per sample and returns them as a feature
// matrix, so group differences in diversity are tested through the same
// comparison pipeline as every other feature (Kruskal-Wallis by convention).
// Samples with zero total abundance carry no community: they are excluded
// from the matrix and returned so callers can account for them.
func Indices(abundance *cohort.FeatureMatrix) (*cohort.FeatureMatrix, []cohort.SampleID, error) {
	taxa := abundance.Features()
	values := make(map[cohort.SampleID]map[cohort.FeatureKey]float64, abundance.SampleCount())
	var dropped []cohort.SampleID

	for _, sample := range abundance.Samples() {
		counts := make([]float64, 0, len(taxa))
		total := 0.0
		for _, taxon := range taxa {
			v, ok := abundance.Value(sample, taxon)
			if !ok || math.IsNaN(v) || v <= 0 {
				continue
			}
			counts = append(counts, v)
			total += v
		}
		if total == 0 {
			dropped = append(dropped, sample)
			continue
		}

		observed := float64(len(counts))
		shannon := 0.0
		sumSq := 0.0
		singletons := 0.0
		doubletons := 0.0
		for _, c := range counts {
			p := c / total
			shannon -= p * math.Log(p)
			sumSq += p * p
			if c == 1 {
				singletons++
			} else if c == 2 {
				doubletons++
			}
		}

		record := map[cohort.FeatureKey]float64{
			FeatureObserved: observed,
			FeatureShannon:  shannon,
			FeatureSimpson:  1 - sumSq,
			FeatureChao1:    chao1(observed, singletons, doubletons),
		}
		if sumSq > 0 {
			record[FeatureInvSimpson] = 1 / sumSq
		} else {
			record[FeatureInvSimpson] = math.NaN()
		}
		values[sample] = record
	}

	if len(values) == 0 {
		return nil, dropped, fmt.Errorf("no sample has non-zero total abundance")
	}
	m, err := cohort.NewFeatureMatrix(values)
	return m, dropped, err
}

// chao1 estimates total richness from singleton/doubleton counts; the
// bias-corrected form is used when no doubletons are present.
func chao1(observed, f1, f2 float64) float64 {
	if f2 > 0 {
		return observed + f1*f1/(2*f2)
	}
	return observed + f1*(f1-1)/2
}

// BrayCurtis computes the pairwise Bray-Curtis dissimilarity matrix. Row and
// column order follows the matrix's sorted sample order.
func BrayCurtis(abundance *cohort.FeatureMatrix) ([]cohort.SampleID, [][]float64) {
	samples := abundance.Samples()
	taxa := abundance.Features()

	// Dense copy keyed by position; absent or NaN abundances count as zero.
	dense := make([][]float64, len(samples))
	for i, sample := range samples {
		dense[i] = make([]float64, len(taxa))
		for j, taxon := range taxa {
			if v, ok := abundance.Value(sample, taxon); ok && !math.IsNaN(v) && v > 0 {
				dense[i][j] = v
			}
		}
	}

	d := make([][]float64, len(samples))
	for i := range d {
		d[i] = make([]float64, len(samples))
	}
	for i := 0; i < len(samples); i++ {
		for j := i + 1; j < len(samples); j++ {
			num := 0.0
			den := 0.0
			for k := range taxa {
				num += math.Abs(dense[i][k] - dense[j][k])
				den += dense[i][k] + dense[j][k]
			}
			v := 0.0
			if den > 0 {
				v = num / den
			}
			d[i][j] = v
			d[j][i] = v
		}
	}
	return samples, d
}
