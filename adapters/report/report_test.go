package report

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multiomics/domain/compare"
	"multiomics/internal/analysis"
)

func sampleResults() []compare.FeatureTestResult {
	return []compare.FeatureTestResult{
		{
			Feature: "TP53", Statistic: 12.5, Effect: 3.2, EffectUnit: "or",
			PValue: 0.0004, QValue: 0.004, Tier: compare.TierVeryStrong,
			Groups: []compare.GroupSummary{
				{Label: "C1", N: 30, Mean: 0.6, Positives: 18},
				{Label: "C2", N: 30, Mean: 0.1, Positives: 3},
			},
		},
		{
			Feature: "KRAS", Statistic: math.NaN(), Effect: math.NaN(),
			PValue: math.NaN(), QValue: math.NaN(), Tier: compare.TierNotSignificant,
			TestFailed: true, FailReason: "degenerate table",
			Groups: []compare.GroupSummary{
				{Label: "C1", N: 30}, {Label: "C2", N: 30},
			},
		},
	}
}

func TestWriteResultsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	require.NoError(t, WriteResultsCSV(path, sampleResults()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	header := rows[0]
	assert.Equal(t, "feature", header[0])
	assert.Contains(t, header, "p_value")
	assert.Contains(t, header, "C1_mean", "group summary columns derive from group labels")

	assert.Equal(t, "TP53", rows[1][0])
	assert.Equal(t, "NA", rows[2][4], "failed test writes NA for its p-value")
	assert.Equal(t, "true", rows[2][7])
}

func TestMarkdown(t *testing.T) {
	manifest := compare.NewRunManifest("compare", "fisher_exact", "bh", 0.05)
	manifest.FeatureCount = 2
	manifest.SignificantCount = 1

	md := Markdown(&analysis.Result{Manifest: manifest, Results: sampleResults()})

	assert.True(t, strings.HasPrefix(md, "## compare run"))
	assert.Contains(t, md, "test: fisher_exact, correction: bh, alpha: 0.05")
	assert.Contains(t, md, "| TP53 |")
	assert.Contains(t, md, "| NA |", "missing statistics print as NA")
}

func TestMarkdown_PrefersTopView(t *testing.T) {
	manifest := compare.NewRunManifest("compare", "fisher_exact", "bh", 0.05)
	all := sampleResults()

	md := Markdown(&analysis.Result{Manifest: manifest, Results: all, Top: all[:1]})
	assert.Contains(t, md, "TP53")
	assert.NotContains(t, md, "KRAS")
}

func TestWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "supplement.xlsx")

	wb := NewWorkbook()
	require.NoError(t, wb.AddResultSheet("compare", sampleResults()))
	require.NoError(t, wb.AddResultSheet("diversity", sampleResults()[:1]))
	require.NoError(t, wb.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
