package postgres

import (
	"context"

	"github.com/zasterix/zasterix/internal/domain/coach"
	"github.com/zasterix/zasterix/internal/domain/progress"
)

// --- Progress ---

func (s *Store) UpsertProgress(ctx context.Context, key progress.Key) (*progress.Record, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO user_progress (user_id, stage_id, module_id, completed_tasks)
		 VALUES ($1, $2, $3, ARRAY[$4::text])
		 ON CONFLICT (user_id, stage_id, module_id) DO UPDATE SET
		   completed_tasks = CASE
		     WHEN $4::text = ANY(user_progress.completed_tasks) THEN user_progress.completed_tasks
		     ELSE array_append(user_progress.completed_tasks, $4::text)
		   END,
		   updated_at = now()
		 RETURNING user_id, stage_id, module_id, completed_tasks, updated_at`,
		key.UserID, key.StageID, key.ModuleID, key.TaskID)
	r, err := scanProgress(row)
	if err != nil {
		return nil, wrapErr(err, "upsert progress %s/%s", key.StageID, key.ModuleID)
	}
	return &r, nil
}

func (s *Store) LatestProgress(ctx context.Context, userID string) (*progress.Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT user_id, stage_id, module_id, completed_tasks, updated_at
		 FROM user_progress WHERE user_id = $1
		 ORDER BY updated_at DESC LIMIT 1`, userID)
	r, err := scanProgress(row)
	if err != nil {
		return nil, wrapErr(err, "latest progress for %s", userID)
	}
	return &r, nil
}

func (s *Store) ResetProgress(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM user_progress WHERE user_id = $1`, userID)
	return wrapErr(err, "reset progress for %s", userID)
}

func scanProgress(row scannable) (progress.Record, error) {
	var r progress.Record
	if err := row.Scan(&r.UserID, &r.StageID, &r.ModuleID, &r.CompletedTasks, &r.UpdatedAt); err != nil {
		return r, err
	}
	r.CompletedTasks = orEmpty(r.CompletedTasks)
	return r, nil
}

// --- Asset history ---

func (s *Store) InsertAssetAnalysis(ctx context.Context, a *coach.AssetAnalysis) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO user_asset_history (user_id, organization_id, isin, asset_name, last_amount, last_fee, currency)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id::text, analyzed_at`,
		a.UserID, a.OrganizationID, a.ISIN, a.AssetName, a.LastAmount, a.LastFee, a.Currency,
	).Scan(&a.ID, &a.AnalyzedAt)
	if err != nil {
		return wrapErr(err, "insert asset analysis %s", a.ISIN)
	}
	return nil
}

func (s *Store) ListAssetAnalyses(ctx context.Context, userID string, limit int) ([]coach.AssetAnalysis, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, user_id, organization_id, isin, asset_name, last_amount, last_fee, currency, analyzed_at
		 FROM user_asset_history WHERE user_id = $1
		 ORDER BY analyzed_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, wrapErr(err, "list asset history for %s", userID)
	}
	defer rows.Close()

	var out []coach.AssetAnalysis
	for rows.Next() {
		var a coach.AssetAnalysis
		if err := rows.Scan(&a.ID, &a.UserID, &a.OrganizationID, &a.ISIN, &a.AssetName,
			&a.LastAmount, &a.LastFee, &a.Currency, &a.AnalyzedAt); err != nil {
			return nil, wrapErr(err, "scan asset analysis")
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "list asset history for %s", userID)
	}
	return orEmpty(out), nil
}
