// Package tests implements the per-feature test capabilities injected into
// the comparison pipeline. Distribution functions come from gonum's
// stat/distuv; no test is reimplemented from first principles beyond the
// standard statistic/contingency bookkeeping.
package tests

import (
	"fmt"
	"math"

	"multiomics/domain/compare"
	"multiomics/internal/errors"
)

// Test kind names accepted in configuration.
const (
	KindFisherExact   = "fisher_exact"
	KindChiSquare     = "chi_square"
	KindWilcoxon      = "wilcoxon"
	KindKruskalWallis = "kruskal_wallis"
)

// ByName resolves a test kind to its capability. Unknown names are a
// configuration error, reported before any computation begins.
func ByName(name string) (compare.TestFunc, error) {
	switch name {
	case KindFisherExact:
		return FisherExact, nil
	case KindChiSquare:
		return ChiSquare, nil
	case KindWilcoxon:
		return WilcoxonRankSum, nil
	case KindKruskalWallis:
		return KruskalWallis, nil
	default:
		return nil, errors.New(errors.CodeUnknownTest, "unknown test kind: "+name)
	}
}

// dropNaN filters missing values out of one group vector.
func dropNaN(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// cleanGroups drops NaNs and empty groups, preserving group order.
func cleanGroups(groups []compare.GroupVector) []compare.GroupVector {
	out := make([]compare.GroupVector, 0, len(groups))
	for _, g := range groups {
		vals := dropNaN(g.Values)
		if len(vals) == 0 {
			continue
		}
		out = append(out, compare.GroupVector{Label: g.Label, Values: vals})
	}
	return out
}

func shapeError(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
