package tests

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"multiomics/domain/compare"
)

// WilcoxonRankSum performs a two-sample Wilcoxon rank-sum (Mann-Whitney U)
// test using the normal approximation with tie and continuity corrections.
// Effect size is the rank-biserial correlation. Zero-variance input (all
// values identical) yields p=1, effect 0 rather than an error.
func WilcoxonRankSum(groups []compare.GroupVector) (compare.TestOutcome, error) {
	groups = cleanGroups(groups)
	if len(groups) != 2 {
		return compare.TestOutcome{}, shapeError("wilcoxon requires exactly 2 non-empty groups, got %d", len(groups))
	}

	x := groups[0].Values
	y := groups[1].Values
	n1 := float64(len(x))
	n2 := float64(len(y))
	n := n1 + n2

	ranks, tieTerm := rankAll(x, y)

	// Rank sum of the first group.
	w := 0.0
	for i := 0; i < len(x); i++ {
		w += ranks[i]
	}

	u := w - n1*(n1+1)/2
	mu := n1 * n2 / 2
	sigma2 := n1 * n2 / 12 * (n + 1 - tieTerm/(n*(n-1)))
	if sigma2 <= 0 {
		// All values tied across both groups.
		return compare.TestOutcome{Statistic: u, PValue: 1, Effect: 0, EffectUnit: "rb"}, nil
	}

	// Continuity correction toward the null.
	diff := u - mu
	cc := 0.5
	if diff > 0 {
		diff -= cc
	} else if diff < 0 {
		diff += cc
	}
	z := diff / math.Sqrt(sigma2)
	p := 2 * (1 - distuv.UnitNormal.CDF(math.Abs(z)))
	if p > 1 {
		p = 1
	}

	rankBiserial := 2*u/(n1*n2) - 1

	return compare.TestOutcome{
		Statistic:  u,
		PValue:     p,
		Effect:     rankBiserial,
		EffectUnit: "rb",
	}, nil
}

// KruskalWallis performs the Kruskal-Wallis H test across two or more groups
// with tie correction and the chi-square approximation. Effect size is
// eta-squared (H-based).
func KruskalWallis(groups []compare.GroupVector) (compare.TestOutcome, error) {
	groups = cleanGroups(groups)
	if len(groups) < 2 {
		return compare.TestOutcome{}, shapeError("kruskal_wallis requires at least 2 non-empty groups, got %d", len(groups))
	}

	all := make([]float64, 0)
	sizes := make([]int, len(groups))
	for i, g := range groups {
		sizes[i] = len(g.Values)
		all = append(all, g.Values...)
	}
	n := float64(len(all))

	ranks, tieTerm := Ranks(all)

	h := 0.0
	offset := 0
	for i := range groups {
		sum := 0.0
		for j := 0; j < sizes[i]; j++ {
			sum += ranks[offset+j]
		}
		ni := float64(sizes[i])
		h += sum * sum / ni
		offset += sizes[i]
	}
	h = 12/(n*(n+1))*h - 3*(n+1)

	// Tie correction.
	correction := 1 - tieTerm/(n*n*n-n)
	if correction <= 0 {
		// All values tied: no variation to test.
		return compare.TestOutcome{Statistic: 0, PValue: 1, Effect: 0, EffectUnit: "eps2"}, nil
	}
	h /= correction

	k := float64(len(groups))
	dist := distuv.ChiSquared{K: k - 1}
	p := 1 - dist.CDF(h)
	if p < 0 {
		p = 0
	}

	// Eta-squared based on H; clamp small-sample negatives to zero.
	eta2 := 0.0
	if n > k {
		eta2 = (h - k + 1) / (n - k)
		if eta2 < 0 {
			eta2 = 0
		}
	}

	return compare.TestOutcome{
		Statistic:  h,
		PValue:     p,
		Effect:     eta2,
		EffectUnit: "eps2",
	}, nil
}

// rankAll ranks the concatenation of x and y; returned ranks are aligned with
// append(x, y...).
func rankAll(x, y []float64) (ranks []float64, tieTerm float64) {
	all := make([]float64, 0, len(x)+len(y))
	all = append(all, x...)
	all = append(all, y...)
	return Ranks(all)
}

// Ranks assigns average ranks (1-based) to a vector, returning the tie
// correction term sum(t^3 - t) over tie groups of size t.
func Ranks(values []float64) (ranks []float64, tieTerm float64) {
	n := len(values)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return values[order[a]] < values[order[b]] })

	ranks = make([]float64, n)
	i := 0
	for i < n {
		j := i
		for j+1 < n && values[order[j+1]] == values[order[i]] {
			j++
		}
		// Average rank for the tie run [i, j].
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[order[k]] = avg
		}
		t := float64(j - i + 1)
		if t > 1 {
			tieTerm += t*t*t - t
		}
		i = j + 1
	}
	return ranks, tieTerm
}
