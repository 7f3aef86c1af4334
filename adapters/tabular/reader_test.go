package tabular

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multiomics/domain/cohort"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFeatureMatrix_CSV(t *testing.T) {
	path := writeFile(t, "matrix.csv",
		"sample_id,TP53,KRAS\n"+
			"S1,1,0\n"+
			"S2,0,1\n")

	m, err := LoadFeatureMatrix(path, LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, []cohort.SampleID{"S1", "S2"}, m.Samples())
	assert.Equal(t, []cohort.FeatureKey{"KRAS", "TP53"}, m.Features())

	v, ok := m.Value("S1", "TP53")
	require.True(t, ok)
	assert.Equal(t, 1.0, v)
}

func TestLoadFeatureMatrix_TSVByExtension(t *testing.T) {
	path := writeFile(t, "matrix.tsv",
		"sample_id\tshannon\n"+
			"S1\t2.31\n")

	m, err := LoadFeatureMatrix(path, LoadOptions{})
	require.NoError(t, err)
	v, ok := m.Value("S1", "shannon")
	require.True(t, ok)
	assert.Equal(t, 2.31, v)
}

func TestLoadFeatureMatrix_MissingValuesBecomeNaN(t *testing.T) {
	path := writeFile(t, "matrix.csv",
		"sample_id,a,b,c,d\n"+
			"S1,NA,,n/a,not-a-number\n")

	m, err := LoadFeatureMatrix(path, LoadOptions{})
	require.NoError(t, err)
	for _, feature := range []cohort.FeatureKey{"a", "b", "c", "d"} {
		v, ok := m.Value("S1", feature)
		require.True(t, ok, "feature %s", feature)
		assert.True(t, math.IsNaN(v), "feature %s should be missing", feature)
	}
}

func TestLoadFeatureMatrix_BarcodeTruncation(t *testing.T) {
	path := writeFile(t, "matrix.csv",
		"sample_id,expr\n"+
			"TCGA-AB-1234-01A-11,5\n")

	m, err := LoadFeatureMatrix(path, LoadOptions{BarcodePrefixLen: 12})
	require.NoError(t, err)
	assert.Equal(t, []cohort.SampleID{"TCGA-AB-1234"}, m.Samples())
}

func TestLoadFeatureMatrix_NamedSampleColumn(t *testing.T) {
	path := writeFile(t, "matrix.csv",
		"expr,Sample_ID\n"+
			"5,S1\n")

	m, err := LoadFeatureMatrix(path, LoadOptions{SampleColumn: "sample_id"})
	require.NoError(t, err)
	assert.Equal(t, []cohort.SampleID{"S1"}, m.Samples())
	v, ok := m.Value("S1", "expr")
	require.True(t, ok)
	assert.Equal(t, 5.0, v)
}

func TestLoadFeatureMatrix_HeaderOnly(t *testing.T) {
	path := writeFile(t, "matrix.csv", "sample_id,a\n")
	_, err := LoadFeatureMatrix(path, LoadOptions{})
	assert.Error(t, err)
}

func TestLoadFeatureMatrix_MissingFile(t *testing.T) {
	_, err := LoadFeatureMatrix(filepath.Join(t.TempDir(), "nope.csv"), LoadOptions{})
	assert.Error(t, err)
}

func TestLoadGroupAssignment(t *testing.T) {
	path := writeFile(t, "groups.csv",
		"sample_id,cluster\n"+
			"S1,C1\n"+
			"S2,C2\n"+
			"S3,\n")

	groups, err := LoadGroupAssignment(path, "", LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, cohort.GroupAssignment{"S1": "C1", "S2": "C2"}, groups,
		"rows without a label are skipped")
}

func TestLoadGroupAssignment_NamedColumn(t *testing.T) {
	path := writeFile(t, "groups.csv",
		"sample_id,stage,cluster\n"+
			"S1,II,C1\n")

	groups, err := LoadGroupAssignment(path, "stage", LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, cohort.GroupAssignment{"S1": "II"}, groups)
}

func TestWriteFeatureMatrix_RoundTrip(t *testing.T) {
	m, err := cohort.NewFeatureMatrix(map[cohort.SampleID]map[cohort.FeatureKey]float64{
		"S1": {"a": 1.5, "b": math.NaN()},
		"S2": {"a": 0, "b": 2},
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, WriteFeatureMatrix(path, m))

	loaded, err := LoadFeatureMatrix(path, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, m.Samples(), loaded.Samples())
	assert.Equal(t, m.Features(), loaded.Features())

	v, ok := loaded.Value("S1", "a")
	require.True(t, ok)
	assert.Equal(t, 1.5, v)
	nan, ok := loaded.Value("S1", "b")
	require.True(t, ok)
	assert.True(t, math.IsNaN(nan))
}

func TestWriteGroupAssignment_RoundTrip(t *testing.T) {
	groups := cohort.GroupAssignment{"S2": "B", "S1": "A"}
	path := filepath.Join(t.TempDir(), "groups.csv")
	require.NoError(t, WriteGroupAssignment(path, groups))

	loaded, err := LoadGroupAssignment(path, "", LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, groups, loaded)
}
