// Package correct implements batch multiple-testing corrections. Every
// procedure sees the full p-value vector at once; correcting per-feature in
// isolation is invalid for FDR-style methods.
package correct

import (
	"math"
	"sort"

	"multiomics/domain/compare"
	"multiomics/internal/errors"
)

// Method names accepted in configuration.
const (
	MethodNone       = "none"
	MethodBonferroni = "bonferroni"
	MethodHolm       = "holm"
	MethodBH         = "bh"
	MethodBY         = "by"
)

// ByName resolves a correction method name to its capability. Unknown names
// are a configuration error, reported before any computation begins.
func ByName(name string) (compare.CorrectionFunc, error) {
	switch name {
	case "", MethodNone:
		return None, nil
	case MethodBonferroni:
		return Bonferroni, nil
	case MethodHolm:
		return Holm, nil
	case MethodBH:
		return BenjaminiHochberg, nil
	case MethodBY:
		return BenjaminiYekutieli, nil
	default:
		return nil, errors.New(errors.CodeUnknownCorrection, "unknown correction method: "+name)
	}
}

// None leaves p-values untouched: adjusted equals raw, element-wise.
func None(p []float64) []float64 {
	out := make([]float64, len(p))
	copy(out, p)
	return out
}

// Bonferroni multiplies each p-value by the number of valid tests.
func Bonferroni(p []float64) []float64 {
	m := countValid(p)
	out := make([]float64, len(p))
	for i, v := range p {
		if math.IsNaN(v) {
			out[i] = v
			continue
		}
		out[i] = math.Min(1, v*float64(m))
	}
	return out
}

// Holm applies the Holm step-down procedure.
func Holm(p []float64) []float64 {
	order := validOrder(p)
	m := len(order)
	out := passthrough(p)

	running := 0.0
	for rank, idx := range order {
		adj := float64(m-rank) * p[idx]
		if adj > running {
			running = adj
		}
		out[idx] = math.Min(1, running)
	}
	return out
}

// BenjaminiHochberg applies the BH step-up FDR procedure. Monotonic: every
// adjusted value is >= its raw value.
func BenjaminiHochberg(p []float64) []float64 {
	return fdrStepUp(p, 1.0)
}

// BenjaminiYekutieli applies the BY procedure (BH with the harmonic-sum
// penalty, valid under arbitrary dependence).
func BenjaminiYekutieli(p []float64) []float64 {
	m := countValid(p)
	c := 0.0
	for i := 1; i <= m; i++ {
		c += 1.0 / float64(i)
	}
	return fdrStepUp(p, c)
}

func fdrStepUp(p []float64, penalty float64) []float64 {
	order := validOrder(p)
	m := len(order)
	out := passthrough(p)

	running := math.Inf(1)
	for rank := m - 1; rank >= 0; rank-- {
		idx := order[rank]
		adj := p[idx] * float64(m) * penalty / float64(rank+1)
		if adj < running {
			running = adj
		}
		out[idx] = math.Min(1, running)
	}
	return out
}

// validOrder returns indices of non-NaN p-values sorted ascending by value,
// ties broken by index for determinism.
func validOrder(p []float64) []int {
	order := make([]int, 0, len(p))
	for i, v := range p {
		if !math.IsNaN(v) {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		if p[order[a]] != p[order[b]] {
			return p[order[a]] < p[order[b]]
		}
		return order[a] < order[b]
	})
	return order
}

func countValid(p []float64) int {
	m := 0
	for _, v := range p {
		if !math.IsNaN(v) {
			m++
		}
	}
	return m
}

// passthrough copies the input so NaN entries survive untouched.
func passthrough(p []float64) []float64 {
	out := make([]float64, len(p))
	copy(out, p)
	return out
}
