package compare

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveTier(t *testing.T) {
	thresholds := DefaultTierThresholds()
	cases := []struct {
		name  string
		p     float64
		alpha float64
		want  Tier
	}{
		{"above alpha", 0.2, 0.05, TierNotSignificant},
		{"exactly alpha", 0.05, 0.05, TierNotSignificant},
		{"just below alpha", 0.04, 0.05, TierSignificant},
		{"strong", 0.005, 0.05, TierStrong},
		{"very strong", 0.0005, 0.05, TierVeryStrong},
		{"nan never significant", math.NaN(), 0.05, TierNotSignificant},
		{"custom alpha gates tiering", 0.02, 0.01, TierNotSignificant},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveTier(tc.p, tc.alpha, thresholds))
		})
	}
}

func TestSignificant(t *testing.T) {
	assert.True(t, FeatureTestResult{PValue: 0.01}.Significant(0.05))
	assert.False(t, FeatureTestResult{PValue: 0.05}.Significant(0.05))
	assert.False(t, FeatureTestResult{PValue: 0.01, TestFailed: true}.Significant(0.05))
	assert.False(t, FeatureTestResult{PValue: math.NaN()}.Significant(0.05))
}

func TestFiniteEffect(t *testing.T) {
	assert.True(t, FeatureTestResult{Effect: 2.5}.FiniteEffect())
	assert.False(t, FeatureTestResult{Effect: math.Inf(1)}.FiniteEffect())
	assert.False(t, FeatureTestResult{Effect: math.NaN()}.FiniteEffect())
}

func TestFeatureTestResult_MarshalJSON(t *testing.T) {
	failed := FeatureTestResult{
		Feature:    "TP53",
		PValue:     math.NaN(),
		QValue:     math.NaN(),
		Statistic:  math.NaN(),
		Effect:     math.Inf(1),
		Tier:       TierNotSignificant,
		TestFailed: true,
		FailReason: "degenerate table",
	}

	raw, err := json.Marshal(failed)
	require.NoError(t, err, "non-finite statistics must not break encoding")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Nil(t, decoded["p_value"], "failed test carries a null p-value")
	assert.Nil(t, decoded["effect"], "infinite effect encodes as null")
	assert.Equal(t, true, decoded["test_failed"])
}

func TestFeatureTestResult_MarshalJSON_FiniteValues(t *testing.T) {
	ok := FeatureTestResult{Feature: "KRAS", PValue: 0.01, QValue: 0.02, Effect: 3.5, Tier: TierSignificant}
	raw, err := json.Marshal(ok)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, 0.01, decoded["p_value"])
	assert.Equal(t, 3.5, decoded["effect"])
}
