// Package correlate computes Spearman correlations between two feature
// matrices over their shared samples — in this study, microbial abundances
// against immune-cell fractions — and emits a BH-corrected edge list.
package correlate

import (
	"context"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"multiomics/domain/cohort"
	"multiomics/internal/stats/correct"
	"multiomics/internal/stats/tests"
)

// Edge is one (x feature, y feature) correlation record.
type Edge struct {
	FeatureX cohort.FeatureKey `json:"feature_x"`
	FeatureY cohort.FeatureKey `json:"feature_y"`
	Rho      float64           `json:"rho"`
	PValue   float64           `json:"p_value"`
	QValue   float64           `json:"q_value"`
	N        int               `json:"n"`
}

// Options control the correlation scan and the edge filter.
type Options struct {
	// MinSamples skips pairs observed in fewer shared samples; default 5.
	MinSamples int
	// MinAbsRho filters the final edge list; 0 keeps everything.
	MinAbsRho float64
	// MaxQ filters the final edge list; 0 keeps everything.
	MaxQ float64
	// Workers bounds the pairwise fan-out; <= 0 means GOMAXPROCS.
	Workers int
}

// Matrix computes all x-by-y Spearman correlations, BH-corrects the batch,
// applies the configured filters, and ranks edges ascending by raw p-value
// with a (FeatureX, FeatureY) tiebreak.
func Matrix(ctx context.Context, x, y *cohort.FeatureMatrix, opts Options) ([]Edge, error) {
	if opts.MinSamples <= 0 {
		opts.MinSamples = 5
	}

	shared := sharedSamples(x, y)
	fx := x.Features()
	fy := y.Features()

	edges := make([]Edge, len(fx)*len(fy))
	g, gctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}
	for i, featX := range fx {
		for j, featY := range fy {
			idx := i*len(fy) + j
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				edges[idx] = correlatePair(x, y, shared, featX, featY, opts.MinSamples)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	raw := make([]float64, len(edges))
	for i, e := range edges {
		raw[i] = e.PValue
	}
	adjusted := correct.BenjaminiHochberg(raw)
	for i := range edges {
		edges[i].QValue = adjusted[i]
	}

	kept := edges[:0]
	for _, e := range edges {
		if math.IsNaN(e.Rho) {
			continue
		}
		if opts.MinAbsRho > 0 && math.Abs(e.Rho) < opts.MinAbsRho {
			continue
		}
		if opts.MaxQ > 0 && !(e.QValue < opts.MaxQ) {
			continue
		}
		kept = append(kept, e)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		pi, pj := kept[i].PValue, kept[j].PValue
		ni, nj := math.IsNaN(pi), math.IsNaN(pj)
		if ni != nj {
			return nj
		}
		if !ni && pi != pj {
			return pi < pj
		}
		if kept[i].FeatureX != kept[j].FeatureX {
			return kept[i].FeatureX < kept[j].FeatureX
		}
		return kept[i].FeatureY < kept[j].FeatureY
	})
	return kept, nil
}

// correlatePair computes Spearman rho as Pearson correlation of average
// ranks, with a t-approximation p-value.
func correlatePair(x, y *cohort.FeatureMatrix, shared []cohort.SampleID, featX, featY cohort.FeatureKey, minSamples int) Edge {
	var xs, ys []float64
	for _, sample := range shared {
		vx, okX := x.Value(sample, featX)
		vy, okY := y.Value(sample, featY)
		if !okX || !okY || math.IsNaN(vx) || math.IsNaN(vy) {
			continue
		}
		xs = append(xs, vx)
		ys = append(ys, vy)
	}

	edge := Edge{FeatureX: featX, FeatureY: featY, N: len(xs), Rho: math.NaN(), PValue: math.NaN()}
	if len(xs) < minSamples {
		return edge
	}

	rx, _ := tests.Ranks(xs)
	ry, _ := tests.Ranks(ys)
	rho := stat.Correlation(rx, ry, nil)
	if math.IsNaN(rho) {
		return edge
	}
	edge.Rho = rho
	edge.PValue = spearmanP(rho, len(xs))
	return edge
}

// spearmanP approximates the two-sided p-value with the t-distribution on
// n-2 degrees of freedom.
func spearmanP(rho float64, n int) float64 {
	if n < 3 {
		return 1
	}
	if rho >= 1 || rho <= -1 {
		return 0
	}
	df := float64(n - 2)
	t := rho * math.Sqrt(df/(1-rho*rho))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * (1 - dist.CDF(math.Abs(t)))
	if p > 1 {
		p = 1
	}
	return p
}

func sharedSamples(x, y *cohort.FeatureMatrix) []cohort.SampleID {
	shared := make([]cohort.SampleID, 0)
	for _, sample := range x.Samples() {
		if y.HasSample(sample) {
			shared = append(shared, sample)
		}
	}
	return shared
}
