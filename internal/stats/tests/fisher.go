package tests

import (
	"math"

	"gonum.org/v1/gonum/stat/combin"

	"multiomics/domain/compare"
)

// FisherExact performs a two-sided Fisher's exact test on a 2x2 contingency
// table built from two groups of a binary feature (non-zero = positive).
// Effect size is the odds ratio; a zero off-diagonal cell yields +Inf, which
// the pipeline's ExcludeInfiniteEffect option can drop before ranking.
func FisherExact(groups []compare.GroupVector) (compare.TestOutcome, error) {
	groups = cleanGroups(groups)
	if len(groups) != 2 {
		return compare.TestOutcome{}, shapeError("fisher_exact requires exactly 2 non-empty groups, got %d", len(groups))
	}

	a, b := binaryCounts(groups[0].Values) // group 1: positive, negative
	c, d := binaryCounts(groups[1].Values) // group 2: positive, negative

	p := fisherTwoSided(a, b, c, d)
	or := oddsRatio(a, b, c, d)

	return compare.TestOutcome{
		Statistic:  or,
		PValue:     p,
		Effect:     or,
		EffectUnit: "or",
	}, nil
}

// binaryCounts splits a value vector into (non-zero, zero) counts.
func binaryCounts(values []float64) (pos, neg int) {
	for _, v := range values {
		if v != 0 {
			pos++
		} else {
			neg++
		}
	}
	return pos, neg
}

func oddsRatio(a, b, c, d int) float64 {
	num := float64(a) * float64(d)
	den := float64(b) * float64(c)
	if den == 0 {
		if num == 0 {
			return math.NaN()
		}
		return math.Inf(1)
	}
	return num / den
}

// fisherTwoSided sums hypergeometric point probabilities no larger than the
// observed table's, holding the margins fixed (the minimum-likelihood
// definition of the two-sided test, matching R's fisher.test).
func fisherTwoSided(a, b, c, d int) float64 {
	n := a + b + c + d
	if n == 0 {
		return 1.0
	}
	row1 := a + b
	col1 := a + c

	pObs := hypergeomProb(a, n, col1, row1)
	lo := maxInt(0, row1+col1-n)
	hi := minInt(row1, col1)

	// Small tolerance guards against float noise excluding the observed
	// table itself.
	const tol = 1e-7
	p := 0.0
	for k := lo; k <= hi; k++ {
		pk := hypergeomProb(k, n, col1, row1)
		if pk <= pObs*(1+tol) {
			p += pk
		}
	}
	if p > 1 {
		p = 1
	}
	return p
}

// hypergeomProb is the hypergeometric PMF P(X=k) for a population of size n
// with successCount successes and draws trials, computed with log binomial
// coefficients for numerical stability.
func hypergeomProb(k, n, successCount, draws int) float64 {
	if k < 0 || k > draws || k > successCount || draws-k > n-successCount {
		return 0
	}
	logP := combin.LogGeneralizedBinomial(float64(successCount), float64(k)) +
		combin.LogGeneralizedBinomial(float64(n-successCount), float64(draws-k)) -
		combin.LogGeneralizedBinomial(float64(n), float64(draws))
	return math.Exp(logP)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
