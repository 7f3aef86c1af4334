// Package analysis implements the group-wise comparative analysis pipeline:
// join samples to groups, run a per-feature statistical test within each
// group, batch-correct for multiple comparisons, rank, and filter to notable
// subsets. The pipeline is pure: it never logs, never touches a file, and is
// deterministic for identical inputs.
package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"multiomics/domain/cohort"
	"multiomics/domain/compare"
	apperrors "multiomics/internal/errors"
)

// Input-shape errors. Fatal: reported immediately, no partial output.
var (
	ErrInsufficientGroups = apperrors.New(apperrors.CodeInsufficientGroups, "fewer than two distinct non-empty groups after intersection")
	ErrEmptyFeatureMatrix = apperrors.New(apperrors.CodeEmptyMatrix, "no samples or features remain after intersection")
)

// Result is the pipeline's sole output artifact.
type Result struct {
	Manifest *compare.RunManifest
	// Results is the full corrected collection, ranked ascending by raw
	// p-value (ties broken by feature key); failed tests sort last.
	Results []compare.FeatureTestResult
	// Top is the truncated/augmented view; nil unless Config.TopN was set.
	Top []compare.FeatureTestResult
	// Intersection reports samples dropped on either side of the join.
	Intersection cohort.Intersection
}

// Compare runs the full pipeline over a feature matrix and group assignment.
func Compare(ctx context.Context, features *cohort.FeatureMatrix, groups cohort.GroupAssignment, cfg Config) (*Result, error) {
	started := time.Now()

	cfg, err := cfg.normalized()
	if err != nil {
		return nil, err
	}
	if features == nil || features.FeatureCount() == 0 {
		return nil, ErrEmptyFeatureMatrix
	}

	ix := cohort.Intersect(features, groups)
	if len(ix.Samples) == 0 {
		return nil, ErrEmptyFeatureMatrix
	}

	labels := activeLabels(ix.Samples, groups)
	if len(labels) < 2 {
		return nil, ErrInsufficientGroups
	}

	featureKeys := features.Features()
	records := make([]compare.FeatureTestResult, len(featureKeys))

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Workers > 0 {
		g.SetLimit(cfg.Workers)
	}
	for i, feature := range featureKeys {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records[i] = testOneFeature(feature, features, groups, labels, ix.Samples, cfg)
			return nil
		})
	}
	// Barrier: correction must see every feature's p-value at once.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	applyCorrection(records, cfg.Correct)
	for i := range records {
		records[i].Tier = compare.DeriveTier(records[i].PValue, cfg.Alpha, cfg.Thresholds)
	}

	if cfg.ExcludeInfiniteEffect {
		kept := records[:0]
		for _, r := range records {
			if r.FiniteEffect() {
				kept = append(kept, r)
			}
		}
		records = kept
	}

	rank(records)

	manifest := compare.NewRunManifest(cfg.Analysis, cfg.TestKind, cfg.Correction, cfg.Alpha)
	manifest.FeatureCount = len(records)
	manifest.SampleCount = len(ix.Samples)
	manifest.GroupCount = len(labels)
	manifest.DroppedFromMatrix = len(ix.DroppedFromMatrix)
	manifest.DroppedFromGroups = len(ix.DroppedFromGroups)
	for _, r := range records {
		if r.TestFailed {
			manifest.FailedTests++
		}
		if r.Significant(cfg.Alpha) {
			manifest.SignificantCount++
		}
	}
	manifest.RuntimeMs = time.Since(started).Milliseconds()
	manifest.Fingerprinted()

	out := &Result{
		Manifest:     manifest,
		Results:      records,
		Intersection: ix,
	}
	if cfg.TopN > 0 {
		out.Top = TruncateTop(records, cfg.TopN, cfg.RequiredFeatures)
	}
	return out, nil
}

// testOneFeature partitions one feature's values by group label and invokes
// the injected test capability once. Test failures are recovered: the record
// is flagged, given a NaN p-value, and excluded from ranking; one bad
// feature must not halt a full-cohort scan.
func testOneFeature(
	feature cohort.FeatureKey,
	features *cohort.FeatureMatrix,
	groups cohort.GroupAssignment,
	labels []cohort.GroupLabel,
	samples []cohort.SampleID,
	cfg Config,
) compare.FeatureTestResult {
	byLabel := make(map[cohort.GroupLabel][]float64, len(labels))
	for _, sample := range samples {
		v, ok := features.Value(sample, feature)
		if !ok || math.IsNaN(v) {
			continue
		}
		label := groups[sample]
		byLabel[label] = append(byLabel[label], v)
	}

	vectors := make([]compare.GroupVector, 0, len(labels))
	summaries := make([]compare.GroupSummary, 0, len(labels))
	for _, label := range labels {
		values := byLabel[label]
		vectors = append(vectors, compare.GroupVector{Label: label, Values: values})
		summaries = append(summaries, summarize(label, values))
	}

	record := compare.FeatureTestResult{Feature: feature, Groups: summaries}
	fail := func(reason string) compare.FeatureTestResult {
		record.TestFailed = true
		record.FailReason = reason
		record.Statistic = math.NaN()
		record.PValue = math.NaN()
		record.QValue = math.NaN()
		record.Effect = math.NaN()
		return record
	}

	if cfg.MinGroupSize > 0 {
		eligible := make([]compare.GroupVector, 0, len(vectors))
		for _, v := range vectors {
			if len(v.Values) >= cfg.MinGroupSize {
				eligible = append(eligible, v)
			}
		}
		if len(eligible) < 2 {
			return fail(fmt.Sprintf("fewer than two groups with at least %d values", cfg.MinGroupSize))
		}
		vectors = eligible
	}

	outcome, err := cfg.Test(vectors)
	if err != nil {
		return fail(err.Error())
	}

	record.Statistic = outcome.Statistic
	record.PValue = outcome.PValue
	record.QValue = outcome.PValue // overwritten by batch correction
	record.Effect = outcome.Effect
	record.EffectUnit = outcome.EffectUnit
	return record
}

func summarize(label cohort.GroupLabel, values []float64) compare.GroupSummary {
	s := compare.GroupSummary{Label: label, N: len(values)}
	if len(values) > 0 {
		mean, err := stats.Mean(values)
		if err == nil {
			s.Mean = mean
		}
	}
	for _, v := range values {
		if v != 0 {
			s.Positives++
		}
	}
	return s
}

// applyCorrection adjusts q-values in one batch over the raw p-value vector.
// NaN entries (failed tests) pass through untouched.
func applyCorrection(records []compare.FeatureTestResult, correct compare.CorrectionFunc) {
	raw := make([]float64, len(records))
	for i, r := range records {
		raw[i] = r.PValue
	}
	adjusted := correct(raw)
	for i := range records {
		records[i].QValue = adjusted[i]
	}
}

// rank sorts ascending by raw p-value with feature-key tiebreak, for
// determinism. Failed tests (NaN p) sort after every valid record.
func rank(records []compare.FeatureTestResult) {
	sort.SliceStable(records, func(i, j int) bool {
		pi, pj := records[i].PValue, records[j].PValue
		ni, nj := math.IsNaN(pi), math.IsNaN(pj)
		if ni != nj {
			return nj // valid before failed
		}
		if !ni && pi != pj {
			return pi < pj
		}
		return records[i].Feature < records[j].Feature
	})
}

// TruncateTop takes the first topN ranked records and appends any required
// features not already present, preserving their computed statistics — never
// recomputed, never duplicated. Applying it a second time with the same
// arguments is a no-op.
func TruncateTop(ranked []compare.FeatureTestResult, topN int, required []cohort.FeatureKey) []compare.FeatureTestResult {
	if topN <= 0 || topN > len(ranked) {
		topN = len(ranked)
	}
	out := make([]compare.FeatureTestResult, topN, topN+len(required))
	copy(out, ranked[:topN])

	present := make(map[cohort.FeatureKey]struct{}, len(out))
	for _, r := range out {
		present[r.Feature] = struct{}{}
	}
	for _, want := range required {
		if _, ok := present[want]; ok {
			continue
		}
		for _, r := range ranked {
			if r.Feature == want {
				out = append(out, r)
				present[want] = struct{}{}
				break
			}
		}
	}
	return out
}

func activeLabels(samples []cohort.SampleID, groups cohort.GroupAssignment) []cohort.GroupLabel {
	seen := make(map[cohort.GroupLabel]struct{}, 4)
	for _, sample := range samples {
		seen[groups[sample]] = struct{}{}
	}
	labels := make([]cohort.GroupLabel, 0, len(seen))
	for label := range seen {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	return labels
}
