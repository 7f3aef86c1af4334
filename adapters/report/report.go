// Package report renders pipeline output to CSV tables, xlsx workbooks and
// Markdown summaries. It is the reporting collaborator: the pipeline itself
// never writes anything.
package report

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"multiomics/domain/compare"
	"multiomics/internal/analysis"
	"multiomics/internal/burden"
	"multiomics/internal/correlate"
	apperrors "multiomics/internal/errors"
)

// WriteResultsCSV writes one ranked result table.
func WriteResultsCSV(path string, results []compare.FeatureTestResult) error {
	f, err := os.Create(path)
	if err != nil {
		return apperrors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(resultHeader(results)); err != nil {
		return err
	}
	for _, r := range results {
		if err := w.Write(resultRow(r)); err != nil {
			return err
		}
	}
	return w.Error()
}

// WriteEdgesCSV writes a correlation edge list.
func WriteEdgesCSV(path string, edges []correlate.Edge) error {
	f, err := os.Create(path)
	if err != nil {
		return apperrors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"feature_x", "feature_y", "rho", "p_value", "q_value", "n"}); err != nil {
		return err
	}
	for _, e := range edges {
		row := []string{
			e.FeatureX.String(), e.FeatureY.String(),
			num(e.Rho), num(e.PValue), num(e.QValue),
			fmt.Sprintf("%d", e.N),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

// WritePairsCSV writes a gene co-occurrence table.
func WritePairsCSV(path string, pairs []burden.PairResult) error {
	f, err := os.Create(path)
	if err != nil {
		return apperrors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"gene_a", "gene_b", "odds_ratio", "p_value", "q_value", "direction"}); err != nil {
		return err
	}
	for _, p := range pairs {
		row := []string{
			p.GeneA.String(), p.GeneB.String(),
			num(p.OddsRatio), num(p.PValue), num(p.QValue), p.Direction,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

// Workbook accumulates result sheets and saves one xlsx supplementary file.
type Workbook struct {
	file   *excelize.File
	sheets int
}

// NewWorkbook creates an empty workbook.
func NewWorkbook() *Workbook {
	return &Workbook{file: excelize.NewFile()}
}

// AddResultSheet appends one ranked result table as a named sheet.
func (wb *Workbook) AddResultSheet(name string, results []compare.FeatureTestResult) error {
	if wb.sheets == 0 {
		if err := wb.file.SetSheetName("Sheet1", name); err != nil {
			return err
		}
	} else if _, err := wb.file.NewSheet(name); err != nil {
		return err
	}
	wb.sheets++

	if err := wb.writeRow(name, 1, resultHeader(results)); err != nil {
		return err
	}
	for i, r := range results {
		if err := wb.writeRow(name, i+2, resultRow(r)); err != nil {
			return err
		}
	}
	return nil
}

func (wb *Workbook) writeRow(sheet string, row int, cells []string) error {
	for col, cell := range cells {
		ref, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := wb.file.SetCellValue(sheet, ref, cell); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the workbook and releases its resources.
func (wb *Workbook) Save(path string) error {
	defer wb.file.Close()
	return wb.file.SaveAs(path)
}

// Markdown renders a run into a human-readable report section.
func Markdown(res *analysis.Result) string {
	var b strings.Builder
	m := res.Manifest

	fmt.Fprintf(&b, "## %s run %s\n\n", m.Analysis, m.RunID)
	fmt.Fprintf(&b, "- test: %s, correction: %s, alpha: %g\n", m.TestKind, m.Correction, m.Alpha)
	fmt.Fprintf(&b, "- samples: %d in %d groups (dropped: %d unassigned, %d unmeasured)\n",
		m.SampleCount, m.GroupCount, m.DroppedFromMatrix, m.DroppedFromGroups)
	fmt.Fprintf(&b, "- features: %d tested, %d significant, %d failed\n\n",
		m.FeatureCount, m.SignificantCount, m.FailedTests)

	rows := res.Top
	if rows == nil {
		rows = res.Results
	}
	b.WriteString("| feature | p | q | effect | tier |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			r.Feature, num(r.PValue), num(r.QValue), num(r.Effect), r.Tier)
	}
	b.WriteString("\n")
	return b.String()
}

func resultHeader(results []compare.FeatureTestResult) []string {
	header := []string{"feature", "statistic", "effect", "effect_unit", "p_value", "q_value", "tier", "test_failed"}
	if len(results) > 0 {
		for _, g := range results[0].Groups {
			header = append(header,
				fmt.Sprintf("%s_n", g.Label),
				fmt.Sprintf("%s_mean", g.Label),
				fmt.Sprintf("%s_positive", g.Label),
			)
		}
	}
	return header
}

func resultRow(r compare.FeatureTestResult) []string {
	row := []string{
		r.Feature.String(),
		num(r.Statistic), num(r.Effect), r.EffectUnit,
		num(r.PValue), num(r.QValue),
		string(r.Tier),
		fmt.Sprintf("%t", r.TestFailed),
	}
	for _, g := range r.Groups {
		row = append(row,
			fmt.Sprintf("%d", g.N),
			num(g.Mean),
			fmt.Sprintf("%d", g.Positives),
		)
	}
	return row
}

// num formats a statistic for tables; missing values print as NA, matching
// the delimited-table conventions the loaders accept.
func num(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}
	if math.IsInf(v, 1) {
		return "Inf"
	}
	if math.IsInf(v, -1) {
		return "-Inf"
	}
	return fmt.Sprintf("%.4g", v)
}
