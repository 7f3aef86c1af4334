package compare

import (
	"encoding/json"
	"math"

	"multiomics/domain/cohort"
)

// GroupVector holds one group's values for a single feature, in a fixed
// label order shared across all features of a run.
type GroupVector struct {
	Label  cohort.GroupLabel
	Values []float64
}

// TestOutcome is what a test capability returns for one feature.
type TestOutcome struct {
	Statistic  float64
	PValue     float64
	Effect     float64
	EffectUnit string // "or", "v", "rb", "eps2", ...
}

// TestFunc is the injected per-feature test capability: given per-group value
// vectors it returns a (statistic, p-value, effect) triple. The pipeline never
// implements a hypothesis test itself.
type TestFunc func(groups []GroupVector) (TestOutcome, error)

// CorrectionFunc is the injected multiple-testing correction capability. It
// must see the whole p-value vector in one batch; procedures like
// Benjamini-Hochberg depend on the full distribution and total test count.
// NaN entries (failed tests) must be passed through untouched.
type CorrectionFunc func(p []float64) []float64

// Tier is a discretized significance bucket derived from a p-value against
// fixed thresholds.
type Tier string

const (
	TierNotSignificant Tier = "not_significant"
	TierSignificant    Tier = "significant"
	TierStrong         Tier = "strong"
	TierVeryStrong     Tier = "very_strong"
)

// TierThresholds are the escalation cutoffs. Conventional defaults are
// 0.05 / 0.01 / 0.001; they are configuration, not hidden constants.
type TierThresholds struct {
	Significant float64
	Strong      float64
	VeryStrong  float64
}

// DefaultTierThresholds returns the conventional cutoffs
func DefaultTierThresholds() TierThresholds {
	return TierThresholds{Significant: 0.05, Strong: 0.01, VeryStrong: 0.001}
}

// DeriveTier maps a p-value onto a tier. NaN (failed test) is never
// significant. Alpha overrides the first cutoff so that a caller-supplied
// significance threshold and the tiering stay consistent.
func DeriveTier(p, alpha float64, t TierThresholds) Tier {
	if math.IsNaN(p) || p >= alpha {
		return TierNotSignificant
	}
	switch {
	case p < t.VeryStrong:
		return TierVeryStrong
	case p < t.Strong:
		return TierStrong
	default:
		return TierSignificant
	}
}

// GroupSummary is the per-group descriptive statistic attached to a result.
type GroupSummary struct {
	Label cohort.GroupLabel `json:"label"`
	N     int               `json:"n"`
	Mean  float64           `json:"mean"`
	// Positives counts non-zero values; for binary features this is the
	// mutated/present frequency numerator.
	Positives int `json:"positives"`
}

// FeatureTestResult is one record per feature in the pipeline output.
// Immutable once produced.
// INVARIANTS:
// - QValue >= PValue for monotonic corrections
// - Tier is a deterministic function of PValue, alpha and thresholds
// - TestFailed implies NaN PValue and exclusion from ranking and filters
type FeatureTestResult struct {
	Feature    cohort.FeatureKey `json:"feature"`
	Groups     []GroupSummary    `json:"groups"`
	Statistic  float64           `json:"statistic"`
	Effect     float64           `json:"effect"`
	EffectUnit string            `json:"effect_unit,omitempty"`
	PValue     float64           `json:"p_value"`
	QValue     float64           `json:"q_value"`
	Tier       Tier              `json:"tier"`
	TestFailed bool              `json:"test_failed,omitempty"`
	FailReason string            `json:"fail_reason,omitempty"`
}

// MarshalJSON encodes non-finite statistics as null: a failed test carries a
// null p-value on the wire, and infinite odds ratios cannot be expressed in
// JSON numbers.
func (r FeatureTestResult) MarshalJSON() ([]byte, error) {
	type wire struct {
		Feature    cohort.FeatureKey `json:"feature"`
		Groups     []GroupSummary    `json:"groups"`
		Statistic  *float64          `json:"statistic"`
		Effect     *float64          `json:"effect"`
		EffectUnit string            `json:"effect_unit,omitempty"`
		PValue     *float64          `json:"p_value"`
		QValue     *float64          `json:"q_value"`
		Tier       Tier              `json:"tier"`
		TestFailed bool              `json:"test_failed,omitempty"`
		FailReason string            `json:"fail_reason,omitempty"`
	}
	return json.Marshal(wire{
		Feature:    r.Feature,
		Groups:     r.Groups,
		Statistic:  finiteOrNil(r.Statistic),
		Effect:     finiteOrNil(r.Effect),
		EffectUnit: r.EffectUnit,
		PValue:     finiteOrNil(r.PValue),
		QValue:     finiteOrNil(r.QValue),
		Tier:       r.Tier,
		TestFailed: r.TestFailed,
		FailReason: r.FailReason,
	})
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Significant reports whether the record clears the given threshold on its
// raw p-value. Failed tests never qualify.
func (r FeatureTestResult) Significant(alpha float64) bool {
	return !r.TestFailed && !math.IsNaN(r.PValue) && r.PValue < alpha
}

// FiniteEffect reports whether the effect-size statistic is finite. Features
// with infinite odds ratios are dropped before forest-style ranking when the
// caller asks for it.
func (r FeatureTestResult) FiniteEffect() bool {
	return !math.IsInf(r.Effect, 0) && !math.IsNaN(r.Effect)
}
