package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pandoras-vault/apiserver/internal/errs"
	"github.com/pandoras-vault/apiserver/types"
)

// ProgressRepository handles persistence for per-user progress records.
//
// Every mutation is a single INSERT .. ON CONFLICT statement, so a record is
// created lazily on its first write and two concurrent counter increments can
// never both observe the same stored value. The conditional guards on the
// counter statements return zero rows at the ceiling, which surfaces as the
// matching domain sentinel instead of a silent clamp.
type ProgressRepository struct {
	db *sql.DB
}

func NewProgressRepository(db *sql.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

const progressColumns = `user_id, topic, current_level, diagnostic_attempts, diagnostic_passed, hint_stage, updated_at`

func scanProgress(row *sql.Row) (types.Progress, error) {
	var p types.Progress
	err := row.Scan(
		&p.UserID,
		&p.Topic,
		&p.CurrentLevel,
		&p.DiagnosticAttempts,
		&p.DiagnosticPassed,
		&p.HintStage,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Progress{}, errs.ErrNotFound
		}
		return types.Progress{}, mapError(err)
	}
	return p, nil
}

func (r *ProgressRepository) Get(ctx context.Context, userID string) (types.Progress, error) {
	const query = `
		SELECT ` + progressColumns + `
		FROM user_progress
		WHERE user_id = $1`
	return scanProgress(r.db.QueryRowContext(ctx, query, userID))
}

// Upsert creates the record with defaults merged under the provided fields, or
// applies only the provided fields to an existing record.
func (r *ProgressRepository) Upsert(ctx context.Context, userID string, patch types.ProgressPatch) (types.Progress, error) {
	const query = `
		INSERT INTO user_progress (user_id, topic, current_level, diagnostic_attempts, diagnostic_passed, hint_stage)
		VALUES ($1, $2, COALESCE($3, 1), COALESCE($4, 0), COALESCE($5, FALSE), COALESCE($6, 0))
		ON CONFLICT (user_id) DO UPDATE
		SET topic = COALESCE($2, user_progress.topic),
			current_level = COALESCE($3, user_progress.current_level),
			diagnostic_attempts = COALESCE($4, user_progress.diagnostic_attempts),
			diagnostic_passed = COALESCE($5, user_progress.diagnostic_passed),
			hint_stage = COALESCE($6, user_progress.hint_stage),
			updated_at = now()
		RETURNING ` + progressColumns
	return scanProgress(r.db.QueryRowContext(
		ctx,
		query,
		userID,
		patch.Topic,
		patch.CurrentLevel,
		patch.DiagnosticAttempts,
		patch.DiagnosticPassed,
		patch.HintStage,
	))
}

// IncrementAttempts consumes one diagnostic attempt. The guard leaves the row
// untouched once the budget is spent and that reads back as AttemptsExhausted.
func (r *ProgressRepository) IncrementAttempts(ctx context.Context, userID string) (int, error) {
	const query = `
		INSERT INTO user_progress (user_id, diagnostic_attempts)
		VALUES ($1, 1)
		ON CONFLICT (user_id) DO UPDATE
		SET diagnostic_attempts = user_progress.diagnostic_attempts + 1,
			updated_at = now()
		WHERE user_progress.diagnostic_attempts < 3
		RETURNING diagnostic_attempts`
	var attempts int
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&attempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, errs.ErrAttemptsExhausted
		}
		return 0, mapError(err)
	}
	return attempts, nil
}

// SetPassed stores the diagnostic outcome; it never touches the level.
func (r *ProgressRepository) SetPassed(ctx context.Context, userID string, passed bool) (types.Progress, error) {
	const query = `
		INSERT INTO user_progress (user_id, diagnostic_passed)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET diagnostic_passed = EXCLUDED.diagnostic_passed,
			updated_at = now()
		RETURNING ` + progressColumns
	return scanProgress(r.db.QueryRowContext(ctx, query, userID, passed))
}

// AdvanceLevel bumps the level by one, refusing at the ceiling of 5.
func (r *ProgressRepository) AdvanceLevel(ctx context.Context, userID string) (int, error) {
	const query = `
		INSERT INTO user_progress (user_id, current_level)
		VALUES ($1, 2)
		ON CONFLICT (user_id) DO UPDATE
		SET current_level = user_progress.current_level + 1,
			updated_at = now()
		WHERE user_progress.current_level < 5
		RETURNING current_level`
	var level int
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&level)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, errs.ErrMaxLevel
		}
		return 0, mapError(err)
	}
	return level, nil
}

// AdvanceHintStage bumps the hint stage by one, refusing at the ceiling of 2.
func (r *ProgressRepository) AdvanceHintStage(ctx context.Context, userID string) (int, error) {
	const query = `
		INSERT INTO user_progress (user_id, hint_stage)
		VALUES ($1, 1)
		ON CONFLICT (user_id) DO UPDATE
		SET hint_stage = user_progress.hint_stage + 1,
			updated_at = now()
		WHERE user_progress.hint_stage < 2
		RETURNING hint_stage`
	var stage int
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&stage)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, errs.ErrMaxHint
		}
		return 0, mapError(err)
	}
	return stage, nil
}

// Delete removes the record. Deleting an absent record is a successful no-op.
func (r *ProgressRepository) Delete(ctx context.Context, userID string) error {
	const query = `DELETE FROM user_progress WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return mapError(err)
	}
	return nil
}
