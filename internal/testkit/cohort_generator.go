// Package testkit provides deterministic synthetic cohorts for tests, CLI
// demos and workflow runs: a binary mutation matrix with planted group
// effects, a taxon abundance matrix, and immune-cell fractions.
package testkit

import (
	"fmt"
	"math"
	"math/rand"

	"multiomics/domain/cohort"
)

// CohortConfig controls synthetic cohort generation. Identical configs always
// produce identical cohorts.
type CohortConfig struct {
	Samples int
	Genes   int
	Taxa    int
	Immune  int
	Groups  []cohort.GroupLabel
	Seed    int64

	// PlantedGenes get an elevated mutation rate in the first group so tests
	// have a known positive signal.
	PlantedGenes int
	// BaselineRate is the background mutation probability; default 0.15.
	BaselineRate float64
	// PlantedRate is the planted probability in the first group; default 0.6.
	PlantedRate float64
}

// DefaultCohortConfig returns a small two-group cohort with planted signal.
func DefaultCohortConfig() CohortConfig {
	return CohortConfig{
		Samples:      60,
		Genes:        40,
		Taxa:         30,
		Immune:       8,
		Groups:       []cohort.GroupLabel{"C1", "C2"},
		Seed:         42,
		PlantedGenes: 3,
		BaselineRate: 0.15,
		PlantedRate:  0.6,
	}
}

// SampleName returns the i-th synthetic sample identifier.
func SampleName(i int) cohort.SampleID {
	return cohort.SampleID(fmt.Sprintf("SAMPLE-%03d", i+1))
}

// GeneName returns the j-th synthetic gene identifier.
func GeneName(j int) cohort.FeatureKey {
	return cohort.FeatureKey(fmt.Sprintf("GENE%03d", j+1))
}

// Assignment builds a round-robin group assignment over the configured labels.
func Assignment(cfg CohortConfig) cohort.GroupAssignment {
	groups := make(cohort.GroupAssignment, cfg.Samples)
	for i := 0; i < cfg.Samples; i++ {
		groups[SampleName(i)] = cfg.Groups[i%len(cfg.Groups)]
	}
	return groups
}

// MutationMatrix generates a binary samples x genes matrix. The first
// PlantedGenes genes are mutated at PlantedRate in the first group and at
// BaselineRate everywhere else.
func MutationMatrix(cfg CohortConfig) (*cohort.FeatureMatrix, cohort.GroupAssignment, error) {
	cfg = withDefaults(cfg)
	rng := rand.New(rand.NewSource(cfg.Seed))
	groups := Assignment(cfg)

	values := make(map[cohort.SampleID]map[cohort.FeatureKey]float64, cfg.Samples)
	for i := 0; i < cfg.Samples; i++ {
		sample := SampleName(i)
		inFirstGroup := groups[sample] == cfg.Groups[0]
		record := make(map[cohort.FeatureKey]float64, cfg.Genes)
		for j := 0; j < cfg.Genes; j++ {
			rate := cfg.BaselineRate
			if j < cfg.PlantedGenes && inFirstGroup {
				rate = cfg.PlantedRate
			}
			if rng.Float64() < rate {
				record[GeneName(j)] = 1
			} else {
				record[GeneName(j)] = 0
			}
		}
		values[sample] = record
	}

	matrix, err := cohort.NewFeatureMatrix(values)
	if err != nil {
		return nil, nil, err
	}
	return matrix, groups, nil
}

// AbundanceMatrix generates integer taxon counts. The first two taxa are
// enriched in the first group so diversity and correlation scans have a
// recoverable signal.
func AbundanceMatrix(cfg CohortConfig) (*cohort.FeatureMatrix, error) {
	cfg = withDefaults(cfg)
	rng := rand.New(rand.NewSource(cfg.Seed + 1))
	groups := Assignment(cfg)

	values := make(map[cohort.SampleID]map[cohort.FeatureKey]float64, cfg.Samples)
	for i := 0; i < cfg.Samples; i++ {
		sample := SampleName(i)
		inFirstGroup := groups[sample] == cfg.Groups[0]
		record := make(map[cohort.FeatureKey]float64, cfg.Taxa)
		for j := 0; j < cfg.Taxa; j++ {
			taxon := cohort.FeatureKey(fmt.Sprintf("g__Taxon%03d", j+1))
			mean := 8.0
			if j < 2 && inFirstGroup {
				mean = 40.0
			}
			count := math.Floor(rng.ExpFloat64() * mean)
			record[taxon] = count
		}
		// Guarantee non-zero totals so diversity indices are defined.
		record["g__Taxon001"] = record["g__Taxon001"] + 1
		values[sample] = record
	}
	return cohort.NewFeatureMatrix(values)
}

// ImmuneMatrix generates immune-cell fraction features, the first of which
// tracks the first taxon's enrichment pattern to give the correlation scan a
// planted edge.
func ImmuneMatrix(cfg CohortConfig) (*cohort.FeatureMatrix, error) {
	cfg = withDefaults(cfg)
	rng := rand.New(rand.NewSource(cfg.Seed + 2))
	groups := Assignment(cfg)

	values := make(map[cohort.SampleID]map[cohort.FeatureKey]float64, cfg.Samples)
	for i := 0; i < cfg.Samples; i++ {
		sample := SampleName(i)
		inFirstGroup := groups[sample] == cfg.Groups[0]
		record := make(map[cohort.FeatureKey]float64, cfg.Immune)
		for j := 0; j < cfg.Immune; j++ {
			feature := cohort.FeatureKey(fmt.Sprintf("immune_cell_%02d", j+1))
			base := 0.1 + 0.02*rng.NormFloat64()
			if j == 0 && inFirstGroup {
				base += 0.15
			}
			record[feature] = math.Max(0, base)
		}
		values[sample] = record
	}
	return cohort.NewFeatureMatrix(values)
}

func withDefaults(cfg CohortConfig) CohortConfig {
	if cfg.Samples <= 0 || len(cfg.Groups) == 0 {
		def := DefaultCohortConfig()
		if cfg.Samples <= 0 {
			cfg.Samples = def.Samples
		}
		if len(cfg.Groups) == 0 {
			cfg.Groups = def.Groups
		}
	}
	if cfg.Genes <= 0 {
		cfg.Genes = DefaultCohortConfig().Genes
	}
	if cfg.Taxa <= 0 {
		cfg.Taxa = DefaultCohortConfig().Taxa
	}
	if cfg.Immune <= 0 {
		cfg.Immune = DefaultCohortConfig().Immune
	}
	if cfg.BaselineRate <= 0 {
		cfg.BaselineRate = 0.15
	}
	if cfg.PlantedRate <= 0 {
		cfg.PlantedRate = 0.6
	}
	return cfg
}
