package analysis

import (
	"multiomics/domain/cohort"
	"multiomics/domain/compare"
	"multiomics/internal/stats/correct"
	"multiomics/internal/stats/tests"
)

// Config enumerates every recognized pipeline option. Unknown test or
// correction names are a configuration error, reported before any
// computation begins — never silently ignored.
type Config struct {
	// TestKind names a built-in test capability (fisher_exact, chi_square,
	// wilcoxon, kruskal_wallis). Test, when set, overrides it with an
	// injected capability.
	TestKind string
	Test     compare.TestFunc

	// Correction names a built-in correction (none, bonferroni, holm, bh,
	// by). Correct, when set, overrides it. When neither is set, adjusted
	// p-values equal raw p-values.
	Correction string
	Correct    compare.CorrectionFunc

	// Alpha is the significance threshold; default 0.05.
	Alpha float64

	// Thresholds define the significance tier cutoffs; zero value means the
	// conventional 0.05/0.01/0.001.
	Thresholds compare.TierThresholds

	// TopN, when > 0, requests the truncated ranked view.
	TopN int

	// RequiredFeatures are always retained in the top-N view, appended once
	// with their already-computed statistics if outside the natural cutoff.
	RequiredFeatures []cohort.FeatureKey

	// ExcludeInfiniteEffect drops features whose effect size is non-finite
	// before any ranking or truncation.
	ExcludeInfiniteEffect bool

	// MinGroupSize, when > 0, excludes groups with fewer non-missing values
	// for a feature before testing it; if fewer than two groups remain, the
	// record is flagged as failed instead of tested.
	MinGroupSize int

	// Workers bounds per-feature test fan-out; <= 0 means GOMAXPROCS.
	Workers int

	// Analysis names the run in manifests and reports; default "compare".
	Analysis string
}

// normalized fills defaults and resolves capability names. Fail fast: this
// runs before any per-feature work.
func (c Config) normalized() (Config, error) {
	if c.Alpha <= 0 {
		c.Alpha = 0.05
	}
	if c.Thresholds == (compare.TierThresholds{}) {
		c.Thresholds = compare.DefaultTierThresholds()
	}
	if c.Analysis == "" {
		c.Analysis = "compare"
	}
	if c.Test == nil {
		fn, err := tests.ByName(c.TestKind)
		if err != nil {
			return c, err
		}
		c.Test = fn
	} else if c.TestKind == "" {
		c.TestKind = "injected"
	}
	if c.Correct == nil {
		fn, err := correct.ByName(c.Correction)
		if err != nil {
			return c, err
		}
		c.Correct = fn
		if c.Correction == "" {
			c.Correction = correct.MethodNone
		}
	} else if c.Correction == "" {
		c.Correction = "injected"
	}
	return c, nil
}
