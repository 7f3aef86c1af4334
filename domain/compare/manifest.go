package compare

import (
	"fmt"

	"multiomics/domain/core"
)

// RunManifest captures the complete specification and outcome of one
// pipeline invocation, for audit and persistence.
type RunManifest struct {
	RunID      core.RunID `json:"run_id" db:"run_id"`
	Analysis   string     `json:"analysis" db:"analysis"` // "compare", "burden", "diversity", ...
	TestKind   string     `json:"test_kind" db:"test_kind"`
	Correction string     `json:"correction" db:"correction"`
	Alpha      float64    `json:"alpha" db:"alpha"`

	FeatureCount      int `json:"feature_count" db:"feature_count"`
	SampleCount       int `json:"sample_count" db:"sample_count"`
	GroupCount        int `json:"group_count" db:"group_count"`
	DroppedFromMatrix int `json:"dropped_from_matrix" db:"dropped_from_matrix"`
	DroppedFromGroups int `json:"dropped_from_groups" db:"dropped_from_groups"`
	FailedTests       int `json:"failed_tests" db:"failed_tests"`
	SignificantCount  int `json:"significant_count" db:"significant_count"`

	RuntimeMs   int64          `json:"runtime_ms" db:"runtime_ms"`
	Fingerprint core.Hash      `json:"fingerprint" db:"fingerprint"`
	CreatedAt   core.Timestamp `json:"created_at" db:"created_at"`
}

// NewRunManifest creates a manifest stub for a run about to execute.
func NewRunManifest(analysis, testKind, correction string, alpha float64) *RunManifest {
	return &RunManifest{
		RunID:      core.NewRunID(),
		Analysis:   analysis,
		TestKind:   testKind,
		Correction: correction,
		Alpha:      alpha,
		CreatedAt:  core.Now(),
	}
}

// Fingerprinted fills the deterministic fingerprint from the run shape.
func (m *RunManifest) Fingerprinted() *RunManifest {
	m.Fingerprint = core.Fingerprint(map[string]string{
		"analysis":   m.Analysis,
		"test":       m.TestKind,
		"correction": m.Correction,
		"alpha":      fmt.Sprintf("%g", m.Alpha),
		"features":   fmt.Sprintf("%d", m.FeatureCount),
		"samples":    fmt.Sprintf("%d", m.SampleCount),
		"groups":     fmt.Sprintf("%d", m.GroupCount),
	})
	return m
}
