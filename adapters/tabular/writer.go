package tabular

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"sort"

	"multiomics/domain/cohort"
	apperrors "multiomics/internal/errors"
)

// WriteFeatureMatrix writes a samples x features table as CSV, one row per
// sample in sorted order. NaN cells are written as NA, so a written matrix
// loads back identically.
func WriteFeatureMatrix(path string, m *cohort.FeatureMatrix) error {
	f, err := os.Create(path)
	if err != nil {
		return apperrors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	features := m.Features()
	header := make([]string, 0, len(features)+1)
	header = append(header, "sample_id")
	for _, feature := range features {
		header = append(header, feature.String())
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, sample := range m.Samples() {
		row := make([]string, 0, len(header))
		row = append(row, string(sample))
		for _, feature := range features {
			v, ok := m.Value(sample, feature)
			if !ok || math.IsNaN(v) {
				row = append(row, "NA")
			} else {
				row = append(row, fmt.Sprintf("%g", v))
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

// WriteGroupAssignment writes a two-column sample -> group CSV in sorted
// sample order.
func WriteGroupAssignment(path string, groups cohort.GroupAssignment) error {
	f, err := os.Create(path)
	if err != nil {
		return apperrors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"sample_id", "group"}); err != nil {
		return err
	}
	for _, sample := range sortedSamples(groups) {
		if err := w.Write([]string{string(sample), string(groups[sample])}); err != nil {
			return err
		}
	}
	return w.Error()
}

func sortedSamples(groups cohort.GroupAssignment) []cohort.SampleID {
	samples := make([]cohort.SampleID, 0, len(groups))
	for sample := range groups {
		samples = append(samples, sample)
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return samples
}
