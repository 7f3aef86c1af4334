package correct

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByName_ResolvesEveryMethod(t *testing.T) {
	for _, name := range []string{"", MethodNone, MethodBonferroni, MethodHolm, MethodBH, MethodBY} {
		fn, err := ByName(name)
		require.NoError(t, err, "method %q", name)
		require.NotNil(t, fn)
	}
}

func TestByName_UnknownMethod(t *testing.T) {
	_, err := ByName("fdr_tsbh")
	assert.Error(t, err)
}

func TestNone_IsIdentity(t *testing.T) {
	p := []float64{0.5, 0.01, math.NaN(), 1}
	out := None(p)
	require.Len(t, out, len(p))
	for i := range p {
		if math.IsNaN(p[i]) {
			assert.True(t, math.IsNaN(out[i]))
		} else {
			assert.Equal(t, p[i], out[i])
		}
	}
}

func TestBenjaminiHochberg_KnownAnswer(t *testing.T) {
	// p.adjust(c(0.01, 0.02, 0.03, 0.04), method="BH") == 0.04 for all four:
	// each p_i * 4/i equals 0.04.
	out := BenjaminiHochberg([]float64{0.01, 0.02, 0.03, 0.04})
	for i, q := range out {
		assert.InDelta(t, 0.04, q, 1e-12, "index %d", i)
	}
}

func TestBenjaminiHochberg_Monotone(t *testing.T) {
	p := []float64{0.001, 0.2, 0.04, 0.9, 0.04, 0.5, 0.013}
	out := BenjaminiHochberg(p)
	for i := range p {
		assert.GreaterOrEqual(t, out[i], p[i], "q must not fall below raw p at index %d", i)
		assert.LessOrEqual(t, out[i], 1.0)
	}
}

func TestBenjaminiHochberg_NaNPassthrough(t *testing.T) {
	p := []float64{0.01, math.NaN(), 0.04}
	out := BenjaminiHochberg(p)
	require.Len(t, out, 3)
	assert.True(t, math.IsNaN(out[1]))

	// Failed tests must not inflate the test count: m is 2 here, so the
	// smallest p adjusts to 0.01 * 2 / 1 = 0.02.
	assert.InDelta(t, 0.02, out[0], 1e-12)
	assert.InDelta(t, 0.04, out[2], 1e-12)
}

func TestBonferroni_KnownAnswer(t *testing.T) {
	out := Bonferroni([]float64{0.01, 0.3, 0.5})
	assert.InDelta(t, 0.03, out[0], 1e-12)
	assert.InDelta(t, 0.9, out[1], 1e-12)
	assert.Equal(t, 1.0, out[2]) // capped
}

func TestHolm_KnownAnswer(t *testing.T) {
	// p.adjust(c(0.01, 0.02, 0.04), method="holm") = 0.03, 0.04, 0.04
	out := Holm([]float64{0.01, 0.02, 0.04})
	assert.InDelta(t, 0.03, out[0], 1e-12)
	assert.InDelta(t, 0.04, out[1], 1e-12)
	assert.InDelta(t, 0.04, out[2], 1e-12)
}

func TestBenjaminiYekutieli_StricterThanBH(t *testing.T) {
	p := []float64{0.005, 0.01, 0.02, 0.3}
	bh := BenjaminiHochberg(p)
	by := BenjaminiYekutieli(p)
	for i := range p {
		assert.GreaterOrEqual(t, by[i], bh[i], "BY must dominate BH at index %d", i)
	}
}

func TestCorrections_DoNotMutateInput(t *testing.T) {
	p := []float64{0.04, 0.01, 0.02}
	BenjaminiHochberg(p)
	Holm(p)
	Bonferroni(p)
	assert.Equal(t, []float64{0.04, 0.01, 0.02}, p)
}
