// omicsctl is the command-line entry point: it loads tabular inputs, runs the
// comparative analyses, and writes CSV/xlsx/Markdown reports. With a
// DATABASE_URL it also persists runs and serves them over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"multiomics/adapters/postgres"
	"multiomics/adapters/report"
	"multiomics/adapters/tabular"
	"multiomics/domain/cohort"
	"multiomics/internal/analysis"
	"multiomics/internal/burden"
	"multiomics/internal/config"
	"multiomics/internal/correlate"
	"multiomics/internal/diversity"
	"multiomics/internal/logging"
	"multiomics/internal/testkit"
	"multiomics/ui"
)

func main() {
	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "omicsctl",
		Short: "Multi-omics group comparison and cohort scanning",
	}

	rootCmd.AddCommand(
		newCompareCmd(),
		newBurdenCmd(),
		newDiversityCmd(),
		newCorrelateCmd(),
		newDemoCmd(),
		newServeCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadFlags are the table-loading flags shared by every analysis command.
type loadFlags struct {
	sampleColumn  string
	groupColumn   string
	barcodePrefix int
}

func (lf *loadFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&lf.sampleColumn, "sample-column", "", "Name of the sample identifier column (default: first column)")
	cmd.Flags().StringVar(&lf.groupColumn, "group-column", "", "Name of the group label column (default: second column)")
	cmd.Flags().IntVar(&lf.barcodePrefix, "barcode-prefix", 0, "Truncate sample identifiers to this prefix length (TCGA barcodes: 12)")
}

func (lf *loadFlags) options() tabular.LoadOptions {
	return tabular.LoadOptions{
		SampleColumn:     lf.sampleColumn,
		BarcodePrefixLen: lf.barcodePrefix,
	}
}

func newCompareCmd() *cobra.Command {
	var (
		lf         loadFlags
		matrixPath string
		groupsPath string
		testKind   string
		correction string
		alpha      float64
		topN       int
		required   []string
		dropInf    bool
		workers    int
		outCSV     string
		outXLSX    string
		save       bool
	)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Test every feature for group differences with batch FDR correction",
		RunE: func(cmd *cobra.Command, args []string) error {
			features, err := tabular.LoadFeatureMatrix(matrixPath, lf.options())
			if err != nil {
				return err
			}
			groups, err := tabular.LoadGroupAssignment(groupsPath, lf.groupColumn, lf.options())
			if err != nil {
				return err
			}

			cfg := analysis.Config{
				TestKind:              testKind,
				Correction:            correction,
				Alpha:                 alpha,
				TopN:                  topN,
				RequiredFeatures:      featureKeys(required),
				ExcludeInfiniteEffect: dropInf,
				Workers:               workers,
			}
			res, err := analysis.Compare(cmd.Context(), features, groups, cfg)
			if err != nil {
				return err
			}
			return emitResult(cmd.Context(), res, outCSV, outXLSX, save)
		},
	}

	lf.register(cmd)
	cmd.Flags().StringVar(&matrixPath, "matrix", "", "Feature matrix file (csv/tsv/xlsx)")
	cmd.Flags().StringVar(&groupsPath, "groups", "", "Group assignment file")
	cmd.Flags().StringVar(&testKind, "test", "wilcoxon", "Statistical test: fisher_exact, chi_square, wilcoxon, kruskal_wallis")
	cmd.Flags().StringVar(&correction, "correction", "bh", "Multiple testing correction: none, bonferroni, holm, bh, by")
	cmd.Flags().Float64Var(&alpha, "alpha", 0.05, "Significance threshold")
	cmd.Flags().IntVar(&topN, "top-n", 0, "Truncate the report to the N best features (0 = all)")
	cmd.Flags().StringSliceVar(&required, "require", nil, "Features always retained in the top-N view")
	cmd.Flags().BoolVar(&dropInf, "exclude-infinite-effect", false, "Drop features with non-finite effect sizes")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent feature tests (0 = GOMAXPROCS)")
	cmd.Flags().StringVar(&outCSV, "out", "", "Write the ranked table to this CSV file")
	cmd.Flags().StringVar(&outXLSX, "xlsx", "", "Write the ranked table to this xlsx workbook")
	cmd.Flags().BoolVar(&save, "save", false, "Persist the run (requires DATABASE_URL)")
	cmd.MarkFlagRequired("matrix")
	cmd.MarkFlagRequired("groups")

	return cmd
}

func newBurdenCmd() *cobra.Command {
	var (
		lf         loadFlags
		matrixPath string
		groupsPath string
		minMutated int
		workers    int
		outCSV     string
		pairsCSV   string
		save       bool
	)

	cmd := &cobra.Command{
		Use:   "burden",
		Short: "Compare mutation burden between groups and scan gene co-occurrence",
		RunE: func(cmd *cobra.Command, args []string) error {
			mutations, err := tabular.LoadFeatureMatrix(matrixPath, lf.options())
			if err != nil {
				return err
			}
			groups, err := tabular.LoadGroupAssignment(groupsPath, lf.groupColumn, lf.options())
			if err != nil {
				return err
			}

			burdenMatrix, err := burden.AsMatrix(mutations)
			if err != nil {
				return err
			}
			res, err := analysis.Compare(cmd.Context(), burdenMatrix, groups, analysis.Config{
				TestKind: "wilcoxon",
				Analysis: "burden",
				Workers:  workers,
			})
			if err != nil {
				return err
			}

			for _, gb := range burden.ByGroup(mutations, groups) {
				fmt.Printf("%s\tn=%d\tmean=%.2f\tmedian=%.1f\tmax=%.0f\n",
					gb.Label, gb.N, gb.Mean, gb.Median, gb.Max)
			}

			if pairsCSV != "" {
				pairs, err := burden.CoOccurrence(cmd.Context(), mutations, burden.CoOccurrenceOptions{
					MinMutated: minMutated,
					Workers:    workers,
				})
				if err != nil {
					return err
				}
				if err := report.WritePairsCSV(pairsCSV, pairs); err != nil {
					return err
				}
			}
			return emitResult(cmd.Context(), res, outCSV, "", save)
		},
	}

	lf.register(cmd)
	cmd.Flags().StringVar(&matrixPath, "matrix", "", "Binary mutation matrix file (samples x genes)")
	cmd.Flags().StringVar(&groupsPath, "groups", "", "Group assignment file")
	cmd.Flags().IntVar(&minMutated, "min-mutated", 3, "Skip genes mutated in fewer samples")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent tests (0 = GOMAXPROCS)")
	cmd.Flags().StringVar(&outCSV, "out", "", "Write the burden comparison to this CSV file")
	cmd.Flags().StringVar(&pairsCSV, "pairs", "", "Write the co-occurrence table to this CSV file")
	cmd.Flags().BoolVar(&save, "save", false, "Persist the run (requires DATABASE_URL)")
	cmd.MarkFlagRequired("matrix")
	cmd.MarkFlagRequired("groups")

	return cmd
}

func newDiversityCmd() *cobra.Command {
	var (
		lf         loadFlags
		matrixPath string
		groupsPath string
		workers    int
		outCSV     string
		save       bool
	)

	cmd := &cobra.Command{
		Use:   "diversity",
		Short: "Compute alpha diversity per sample and test group differences",
		RunE: func(cmd *cobra.Command, args []string) error {
			abundance, err := tabular.LoadFeatureMatrix(matrixPath, lf.options())
			if err != nil {
				return err
			}
			groups, err := tabular.LoadGroupAssignment(groupsPath, lf.groupColumn, lf.options())
			if err != nil {
				return err
			}

			indices, dropped, err := diversity.Indices(abundance)
			if err != nil {
				return err
			}
			if len(dropped) > 0 {
				fmt.Fprintf(os.Stderr, "dropped %d samples with zero total abundance\n", len(dropped))
			}
			res, err := analysis.Compare(cmd.Context(), indices, groups, analysis.Config{
				TestKind: "kruskal_wallis",
				Analysis: "diversity",
				Workers:  workers,
			})
			if err != nil {
				return err
			}
			return emitResult(cmd.Context(), res, outCSV, "", save)
		},
	}

	lf.register(cmd)
	cmd.Flags().StringVar(&matrixPath, "matrix", "", "Taxon abundance matrix file (samples x taxa)")
	cmd.Flags().StringVar(&groupsPath, "groups", "", "Group assignment file")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent tests (0 = GOMAXPROCS)")
	cmd.Flags().StringVar(&outCSV, "out", "", "Write the diversity comparison to this CSV file")
	cmd.Flags().BoolVar(&save, "save", false, "Persist the run (requires DATABASE_URL)")
	cmd.MarkFlagRequired("matrix")
	cmd.MarkFlagRequired("groups")

	return cmd
}

func newCorrelateCmd() *cobra.Command {
	var (
		lf         loadFlags
		xPath      string
		yPath      string
		minSamples int
		minAbsRho  float64
		maxQ       float64
		workers    int
		outCSV     string
	)

	cmd := &cobra.Command{
		Use:   "correlate",
		Short: "Spearman-correlate two feature matrices over shared samples",
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := tabular.LoadFeatureMatrix(xPath, lf.options())
			if err != nil {
				return err
			}
			y, err := tabular.LoadFeatureMatrix(yPath, lf.options())
			if err != nil {
				return err
			}

			edges, err := correlate.Matrix(cmd.Context(), x, y, correlate.Options{
				MinSamples: minSamples,
				MinAbsRho:  minAbsRho,
				MaxQ:       maxQ,
				Workers:    workers,
			})
			if err != nil {
				return err
			}
			if outCSV != "" {
				return report.WriteEdgesCSV(outCSV, edges)
			}
			for _, e := range edges {
				fmt.Printf("%s\t%s\trho=%.3f\tp=%.3g\tq=%.3g\tn=%d\n",
					e.FeatureX, e.FeatureY, e.Rho, e.PValue, e.QValue, e.N)
			}
			return nil
		},
	}

	lf.register(cmd)
	cmd.Flags().StringVar(&xPath, "x", "", "First feature matrix file")
	cmd.Flags().StringVar(&yPath, "y", "", "Second feature matrix file")
	cmd.Flags().IntVar(&minSamples, "min-samples", 5, "Skip pairs observed in fewer shared samples")
	cmd.Flags().Float64Var(&minAbsRho, "min-rho", 0, "Keep only edges with |rho| at or above this value")
	cmd.Flags().Float64Var(&maxQ, "max-q", 0, "Keep only edges with q-value below this value (0 = all)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent pairs (0 = GOMAXPROCS)")
	cmd.Flags().StringVar(&outCSV, "out", "", "Write the edge list to this CSV file")
	cmd.MarkFlagRequired("x")
	cmd.MarkFlagRequired("y")

	return cmd
}

func newDemoCmd() *cobra.Command {
	var (
		outDir  string
		seed    int64
		samples int
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Generate a synthetic cohort with planted signal as CSV tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := testkit.DefaultCohortConfig()
			cfg.Seed = seed
			if samples > 0 {
				cfg.Samples = samples
			}

			mutations, groups, err := testkit.MutationMatrix(cfg)
			if err != nil {
				return err
			}
			abundance, err := testkit.AbundanceMatrix(cfg)
			if err != nil {
				return err
			}
			immune, err := testkit.ImmuneMatrix(cfg)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			writes := []struct {
				name  string
				write func(string) error
			}{
				{"mutations.csv", func(p string) error { return tabular.WriteFeatureMatrix(p, mutations) }},
				{"abundance.csv", func(p string) error { return tabular.WriteFeatureMatrix(p, abundance) }},
				{"immune.csv", func(p string) error { return tabular.WriteFeatureMatrix(p, immune) }},
				{"groups.csv", func(p string) error { return tabular.WriteGroupAssignment(p, groups) }},
			}
			for _, w := range writes {
				if err := w.write(filepath.Join(outDir, w.name)); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "demo-cohort", "Directory for the generated tables")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic generation")
	cmd.Flags().IntVar(&samples, "samples", 0, "Cohort size (0 = default)")

	return cmd
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored runs over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logging.NewDefaultLogger()

			db, err := postgres.Connect(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			app := ui.NewApp(postgres.NewRunRepository(db), log)
			return app.Serve(cfg.Server.Port)
		},
	}
	return cmd
}

// emitResult writes the requested report artifacts and optionally persists
// the run. Without output flags it prints the Markdown report to stdout.
func emitResult(ctx context.Context, res *analysis.Result, outCSV, outXLSX string, save bool) error {
	rows := res.Top
	if rows == nil {
		rows = res.Results
	}

	emitted := false
	if outCSV != "" {
		if err := report.WriteResultsCSV(outCSV, rows); err != nil {
			return err
		}
		emitted = true
	}
	if outXLSX != "" {
		wb := report.NewWorkbook()
		if err := wb.AddResultSheet(res.Manifest.Analysis, rows); err != nil {
			return err
		}
		if err := wb.Save(outXLSX); err != nil {
			return err
		}
		emitted = true
	}
	if !emitted {
		fmt.Print(report.Markdown(res))
	}

	if save {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		db, err := postgres.Connect(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		repo := postgres.NewRunRepository(db)
		if err := repo.SaveRun(ctx, res.Manifest, res.Results); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "saved run %s\n", res.Manifest.RunID)
	}
	return nil
}

func featureKeys(names []string) []cohort.FeatureKey {
	keys := make([]cohort.FeatureKey, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		keys = append(keys, cohort.FeatureKey(name))
	}
	return keys
}
