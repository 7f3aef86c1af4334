// Package tabular loads feature matrices and group assignments from
// delimited text (csv/tsv) and xlsx files keyed by a sample-identifier
// column. Identifier normalization (barcode truncation) happens here; the
// analysis pipeline only ever sees directly comparable strings.
package tabular

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"multiomics/domain/cohort"
	apperrors "multiomics/internal/errors"
)

// LoadOptions control table parsing and identifier normalization.
type LoadOptions struct {
	// SampleColumn names the identifier column; empty means the first column.
	SampleColumn string
	// BarcodePrefixLen truncates sample identifiers to a fixed prefix
	// (TCGA-style barcodes: 12 keeps the patient part); 0 disables.
	BarcodePrefixLen int
	// Delimiter for text files; 0 infers tab for .tsv/.txt, comma otherwise.
	Delimiter rune
}

// LoadFeatureMatrix reads a samples x features table. Blank, NA and
// non-numeric cells become NaN (missing); the pipeline's per-feature
// partitioning skips them.
func LoadFeatureMatrix(path string, opts LoadOptions) (*cohort.FeatureMatrix, error) {
	rows, err := readRows(path, opts)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, apperrors.LoadFailed(path, apperrors.InvalidInput("table needs a header row and at least one data row"))
	}

	header := rows[0]
	sampleCol, err := findColumn(header, opts.SampleColumn)
	if err != nil {
		return nil, apperrors.LoadFailed(path, err)
	}

	values := make(map[cohort.SampleID]map[cohort.FeatureKey]float64, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) == 0 || sampleCol >= len(row) {
			continue
		}
		sample := normalizeSample(row[sampleCol], opts.BarcodePrefixLen)
		if sample == "" {
			continue
		}
		record, ok := values[sample]
		if !ok {
			record = make(map[cohort.FeatureKey]float64, len(header)-1)
			values[sample] = record
		}
		for col, name := range header {
			if col == sampleCol || name == "" {
				continue
			}
			cell := ""
			if col < len(row) {
				cell = row[col]
			}
			record[cohort.FeatureKey(name)] = parseCell(cell)
		}
	}

	matrix, err := cohort.NewFeatureMatrix(values)
	if err != nil {
		return nil, apperrors.LoadFailed(path, err)
	}
	return matrix, nil
}

// LoadGroupAssignment reads a two-column table of sample -> group label.
// GroupColumn empty means the second column.
func LoadGroupAssignment(path, groupColumn string, opts LoadOptions) (cohort.GroupAssignment, error) {
	rows, err := readRows(path, opts)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, apperrors.LoadFailed(path, apperrors.InvalidInput("table needs a header row and at least one data row"))
	}

	header := rows[0]
	sampleCol, err := findColumn(header, opts.SampleColumn)
	if err != nil {
		return nil, apperrors.LoadFailed(path, err)
	}
	groupCol := 1
	if groupColumn != "" {
		groupCol, err = findColumn(header, groupColumn)
		if err != nil {
			return nil, apperrors.LoadFailed(path, err)
		}
	} else if sampleCol == 1 {
		groupCol = 0
	}

	groups := make(cohort.GroupAssignment, len(rows)-1)
	for _, row := range rows[1:] {
		if sampleCol >= len(row) || groupCol >= len(row) {
			continue
		}
		sample := normalizeSample(row[sampleCol], opts.BarcodePrefixLen)
		label := strings.TrimSpace(row[groupCol])
		if sample == "" || label == "" {
			continue
		}
		groups[sample] = cohort.GroupLabel(label)
	}
	if len(groups) == 0 {
		return nil, apperrors.LoadFailed(path, apperrors.InvalidInput("no usable sample/group rows"))
	}
	return groups, nil
}

// readRows dispatches on file extension, the same split the Excel reader in
// the research dashboard uses.
func readRows(path string, opts LoadOptions) ([][]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, apperrors.LoadFailed(path, err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".xlsx" {
		return readExcelRows(path)
	}
	return readDelimitedRows(path, delimiterFor(ext, opts.Delimiter))
}

func delimiterFor(ext string, configured rune) rune {
	if configured != 0 {
		return configured
	}
	if ext == ".tsv" || ext == ".txt" {
		return '\t'
	}
	return ','
}

func readDelimitedRows(path string, delimiter rune) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.LoadFailed(path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, apperrors.LoadFailed(path, err)
	}
	return rows, nil
}

func readExcelRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.LoadFailed(path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.LoadFailed(path, apperrors.InvalidInput("workbook has no sheets"))
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperrors.LoadFailed(path, err)
	}
	return rows, nil
}

func findColumn(header []string, name string) (int, error) {
	if name == "" {
		if len(header) == 0 {
			return 0, apperrors.InvalidInput("empty header row")
		}
		return 0, nil
	}
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i, nil
		}
	}
	return 0, apperrors.InvalidInput("column not found: " + name)
}

func normalizeSample(raw string, prefixLen int) cohort.SampleID {
	s := strings.TrimSpace(raw)
	if prefixLen > 0 && len(s) > prefixLen {
		s = s[:prefixLen]
	}
	return cohort.SampleID(s)
}

// parseCell coerces one cell to float64; anything unparseable is missing.
func parseCell(cell string) float64 {
	s := strings.TrimSpace(cell)
	switch strings.ToUpper(s) {
	case "", "NA", "N/A", "NAN", "NULL":
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
