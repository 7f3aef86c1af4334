package tests

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"multiomics/domain/compare"
)

// ChiSquare performs a chi-square test of independence on the groups x
// categories contingency table of a categorical feature. Each distinct value
// is one category. Effect size is Cramer's V.
func ChiSquare(groups []compare.GroupVector) (compare.TestOutcome, error) {
	groups = cleanGroups(groups)
	if len(groups) < 2 {
		return compare.TestOutcome{}, shapeError("chi_square requires at least 2 non-empty groups, got %d", len(groups))
	}

	table, categories := contingencyTable(groups)
	if len(categories) < 2 {
		// One category everywhere: no association to test (zero variance).
		return compare.TestOutcome{Statistic: 0, PValue: 1, Effect: 0, EffectUnit: "v"}, nil
	}

	rows := len(table)
	cols := len(categories)

	total := 0
	rowTotals := make([]int, rows)
	colTotals := make([]int, cols)
	for i := range table {
		for j, count := range table[i] {
			total += count
			rowTotals[i] += count
			colTotals[j] += count
		}
	}

	chiSq := 0.0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			expected := float64(rowTotals[i]) * float64(colTotals[j]) / float64(total)
			if expected > 0 {
				observed := float64(table[i][j])
				chiSq += (observed - expected) * (observed - expected) / expected
			}
		}
	}

	df := float64((rows - 1) * (cols - 1))
	dist := distuv.ChiSquared{K: df}
	p := 1 - dist.CDF(chiSq)
	if p < 0 {
		p = 0
	}

	minDim := math.Min(float64(rows-1), float64(cols-1))
	cramerV := math.Sqrt(chiSq / (float64(total) * minDim))

	return compare.TestOutcome{
		Statistic:  chiSq,
		PValue:     p,
		Effect:     cramerV,
		EffectUnit: "v",
	}, nil
}

// contingencyTable builds a groups x categories count table. Categories are
// the sorted distinct values across all groups, for determinism.
func contingencyTable(groups []compare.GroupVector) ([][]int, []float64) {
	seen := make(map[float64]struct{})
	for _, g := range groups {
		for _, v := range g.Values {
			seen[v] = struct{}{}
		}
	}
	categories := make([]float64, 0, len(seen))
	for v := range seen {
		categories = append(categories, v)
	}
	sort.Float64s(categories)

	index := make(map[float64]int, len(categories))
	for j, v := range categories {
		index[v] = j
	}

	table := make([][]int, len(groups))
	for i, g := range groups {
		table[i] = make([]int, len(categories))
		for _, v := range g.Values {
			table[i][index[v]]++
		}
	}
	return table, categories
}
