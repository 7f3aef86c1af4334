package cohort

import (
	"fmt"
	"sort"
)

// SampleID identifies one specimen/patient in a study cohort. Loaders are
// responsible for any barcode normalization; identifiers here are only
// required to be directly comparable strings.
type SampleID string

// FeatureKey identifies one measured quantity per sample (a gene's mutation
// status, a taxon abundance, an immune-cell fraction, a pathway score).
type FeatureKey string

// GroupLabel is a categorical cohort label (a cluster, a clinical stage).
type GroupLabel string

func (s SampleID) String() string   { return string(s) }
func (f FeatureKey) String() string { return string(f) }
func (g GroupLabel) String() string { return string(g) }

// FeatureMatrix holds samples x features values. Immutable once constructed;
// missing values are NaN. Sample identifiers are unique by construction of
// the underlying map.
type FeatureMatrix struct {
	samples  []SampleID
	features []FeatureKey
	values   map[SampleID]map[FeatureKey]float64
}

// NewFeatureMatrix builds a matrix from per-sample records. The sample and
// feature orders exposed by accessors are sorted so that every downstream
// computation is deterministic regardless of map iteration order.
func NewFeatureMatrix(values map[SampleID]map[FeatureKey]float64) (*FeatureMatrix, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("feature matrix has no samples")
	}

	samples := make([]SampleID, 0, len(values))
	featureSet := make(map[FeatureKey]struct{})
	for sample, record := range values {
		samples = append(samples, sample)
		for feature := range record {
			featureSet[feature] = struct{}{}
		}
	}
	if len(featureSet) == 0 {
		return nil, fmt.Errorf("feature matrix has no features")
	}

	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })

	features := make([]FeatureKey, 0, len(featureSet))
	for feature := range featureSet {
		features = append(features, feature)
	}
	sort.Slice(features, func(i, j int) bool { return features[i] < features[j] })

	// Defensive copy so callers cannot mutate the matrix afterwards.
	copied := make(map[SampleID]map[FeatureKey]float64, len(values))
	for sample, record := range values {
		rec := make(map[FeatureKey]float64, len(record))
		for feature, v := range record {
			rec[feature] = v
		}
		copied[sample] = rec
	}

	return &FeatureMatrix{samples: samples, features: features, values: copied}, nil
}

// Samples returns all sample identifiers in sorted order
func (m *FeatureMatrix) Samples() []SampleID {
	out := make([]SampleID, len(m.samples))
	copy(out, m.samples)
	return out
}

// Features returns all feature identifiers in sorted order
func (m *FeatureMatrix) Features() []FeatureKey {
	out := make([]FeatureKey, len(m.features))
	copy(out, m.features)
	return out
}

// SampleCount returns the number of samples
func (m *FeatureMatrix) SampleCount() int { return len(m.samples) }

// FeatureCount returns the number of distinct features
func (m *FeatureMatrix) FeatureCount() int { return len(m.features) }

// HasSample reports whether the sample exists in the matrix
func (m *FeatureMatrix) HasSample(sample SampleID) bool {
	_, ok := m.values[sample]
	return ok
}

// Value returns the value for (sample, feature); ok is false when the sample
// does not exist or the sample's record has no entry for the feature.
func (m *FeatureMatrix) Value(sample SampleID, feature FeatureKey) (float64, bool) {
	record, ok := m.values[sample]
	if !ok {
		return 0, false
	}
	v, ok := record[feature]
	return v, ok
}

// GroupAssignment maps samples to group labels. Read-only after construction.
type GroupAssignment map[SampleID]GroupLabel

// Labels returns the distinct group labels in sorted order
func (g GroupAssignment) Labels() []GroupLabel {
	seen := make(map[GroupLabel]struct{}, 4)
	for _, label := range g {
		seen[label] = struct{}{}
	}
	labels := make([]GroupLabel, 0, len(seen))
	for label := range seen {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	return labels
}

// Intersection is the sample overlap between a matrix and a group assignment.
// Samples present on only one side are excluded from analysis, not an error;
// they are reported so run manifests can account for them.
type Intersection struct {
	Samples           []SampleID // in both, sorted
	DroppedFromMatrix []SampleID // in matrix, missing a group label
	DroppedFromGroups []SampleID // labeled, missing from the matrix
}

// Intersect computes the analyzable cohort for a (matrix, groups) pair.
func Intersect(m *FeatureMatrix, groups GroupAssignment) Intersection {
	var ix Intersection
	for _, sample := range m.Samples() {
		if _, ok := groups[sample]; ok {
			ix.Samples = append(ix.Samples, sample)
		} else {
			ix.DroppedFromMatrix = append(ix.DroppedFromMatrix, sample)
		}
	}
	for sample := range groups {
		if !m.HasSample(sample) {
			ix.DroppedFromGroups = append(ix.DroppedFromGroups, sample)
		}
	}
	sort.Slice(ix.DroppedFromGroups, func(i, j int) bool {
		return ix.DroppedFromGroups[i] < ix.DroppedFromGroups[j]
	})
	return ix
}
