package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math"

	"github.com/jmoiron/sqlx"

	"multiomics/domain/compare"
	"multiomics/domain/core"
	apperrors "multiomics/internal/errors"
)

// RunRepository stores run manifests and their ranked result tables.
type RunRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a run repository backed by the given connection.
func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

// SaveRun persists a manifest and its ranked results in one transaction.
// The stored rank preserves the pipeline's ordering.
func (r *RunRepository) SaveRun(ctx context.Context, manifest *compare.RunManifest, results []compare.FeatureTestResult) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.DatabaseError("begin save run", err)
	}
	defer tx.Rollback()

	const insertRun = `INSERT INTO runs (
		run_id, analysis, test_kind, correction, alpha,
		feature_count, sample_count, group_count,
		dropped_from_matrix, dropped_from_groups, failed_tests, significant_count,
		runtime_ms, fingerprint, created_at
	) VALUES (
		:run_id, :analysis, :test_kind, :correction, :alpha,
		:feature_count, :sample_count, :group_count,
		:dropped_from_matrix, :dropped_from_groups, :failed_tests, :significant_count,
		:runtime_ms, :fingerprint, :created_at
	)`
	if _, err := tx.NamedExecContext(ctx, insertRun, manifest); err != nil {
		return apperrors.DatabaseError("insert run", err)
	}

	const insertResult = `INSERT INTO run_results (
		run_id, rank, feature, statistic, effect, effect_unit,
		p_value, q_value, tier, test_failed, fail_reason, groups
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	for rank, res := range results {
		groupsJSON, err := json.Marshal(res.Groups)
		if err != nil {
			return apperrors.Wrapf(err, "marshal group summaries for %s", res.Feature)
		}
		_, err = tx.ExecContext(ctx, insertResult,
			manifest.RunID, rank, res.Feature,
			nullableFloat(res.Statistic), nullableFloat(res.Effect), res.EffectUnit,
			nullableFloat(res.PValue), nullableFloat(res.QValue),
			string(res.Tier), res.TestFailed, res.FailReason, groupsJSON,
		)
		if err != nil {
			return apperrors.DatabaseError("insert run result", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.DatabaseError("commit save run", err)
	}
	return nil
}

// GetRun retrieves one manifest by run identifier.
func (r *RunRepository) GetRun(ctx context.Context, runID core.RunID) (*compare.RunManifest, error) {
	const query = `SELECT
		run_id, analysis, test_kind, correction, alpha,
		feature_count, sample_count, group_count,
		dropped_from_matrix, dropped_from_groups, failed_tests, significant_count,
		runtime_ms, fingerprint, created_at
	FROM runs WHERE run_id = $1`

	var manifest compare.RunManifest
	if err := r.db.GetContext(ctx, &manifest, query, runID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.NewNotFoundError("run", string(runID))
		}
		return nil, apperrors.DatabaseError("get run", err)
	}
	return &manifest, nil
}

// ListRuns returns manifests newest-first.
func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]compare.RunManifest, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT
		run_id, analysis, test_kind, correction, alpha,
		feature_count, sample_count, group_count,
		dropped_from_matrix, dropped_from_groups, failed_tests, significant_count,
		runtime_ms, fingerprint, created_at
	FROM runs ORDER BY created_at DESC LIMIT $1`

	manifests := []compare.RunManifest{}
	if err := r.db.SelectContext(ctx, &manifests, query, limit); err != nil {
		return nil, apperrors.DatabaseError("list runs", err)
	}
	return manifests, nil
}

// GetResults retrieves a run's ranked result table in stored order.
func (r *RunRepository) GetResults(ctx context.Context, runID core.RunID) ([]compare.FeatureTestResult, error) {
	const query = `SELECT
		feature, statistic, effect, effect_unit,
		p_value, q_value, tier, test_failed, fail_reason, groups
	FROM run_results WHERE run_id = $1 ORDER BY rank`

	rows, err := r.db.QueryxContext(ctx, query, runID)
	if err != nil {
		return nil, apperrors.DatabaseError("get run results", err)
	}
	defer rows.Close()

	var results []compare.FeatureTestResult
	for rows.Next() {
		var (
			res        compare.FeatureTestResult
			statistic  sql.NullFloat64
			effect     sql.NullFloat64
			pValue     sql.NullFloat64
			qValue     sql.NullFloat64
			tier       string
			groupsJSON []byte
		)
		err := rows.Scan(
			&res.Feature, &statistic, &effect, &res.EffectUnit,
			&pValue, &qValue, &tier, &res.TestFailed, &res.FailReason, &groupsJSON,
		)
		if err != nil {
			return nil, apperrors.DatabaseError("scan run result", err)
		}
		res.Statistic = floatOrNaN(statistic)
		res.Effect = floatOrNaN(effect)
		res.PValue = floatOrNaN(pValue)
		res.QValue = floatOrNaN(qValue)
		res.Tier = compare.Tier(tier)
		if len(groupsJSON) > 0 {
			if err := json.Unmarshal(groupsJSON, &res.Groups); err != nil {
				return nil, apperrors.Wrapf(err, "unmarshal group summaries for %s", res.Feature)
			}
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.DatabaseError("iterate run results", err)
	}
	return results, nil
}

// DeleteRun removes a run and, via cascade, its results.
func (r *RunRepository) DeleteRun(ctx context.Context, runID core.RunID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM runs WHERE run_id = $1`, runID)
	if err != nil {
		return apperrors.DatabaseError("delete run", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.NewNotFoundError("run", string(runID))
	}
	return nil
}

// NaN statistics are stored as NULL so the table stays queryable with plain
// SQL aggregates.
func nullableFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
