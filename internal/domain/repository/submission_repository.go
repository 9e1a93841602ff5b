package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AryanShukla12173/quiz-app-sub000/internal/common"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/domain/model"

	json "github.com/bytedance/sonic"
)

// SubmissionRepository is append-only: records are never updated or deleted.
type SubmissionRepository interface {
	// CreateSubmission returns an error wrapping common.ErrConflict when a
	// record for the same (user, test) pair already exists.
	CreateSubmission(ctx context.Context, rec *model.SubmissionRecord) error
	FindSubmissionByUserAndTest(ctx context.Context, userID, testID string) (*model.SubmissionRecord, error)
	ListSubmissionsByTest(ctx context.Context, testID string) ([]model.SubmissionRecord, error)
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

func (r *pgSubmissionRepository) CreateSubmission(ctx context.Context, rec *model.SubmissionRecord) error {
	challenges, err := json.Marshal(rec.Challenges)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.CreateSubmission: marshal challenges: %w", err)
	}

	query := `INSERT INTO submissions (id, user_id, test_id, trigger, started_at, ended_at, duration_minutes,
	                                   earned_points, total_points, attempted_count, challenges, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err = r.db.ExecContext(ctx, query,
		rec.ID, rec.UserID, rec.TestID, string(rec.Trigger), rec.StartedAt, rec.EndedAt, rec.DurationMinutes,
		rec.EarnedPoints, rec.TotalPoints, rec.AttemptedCount, string(challenges), rec.CreatedAt,
	)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("submission for user %s and test %s already exists: %w", rec.UserID, rec.TestID, common.ErrConflict)
		}
		return fmt.Errorf("pgSubmissionRepository.CreateSubmission: %w", err)
	}
	return nil
}

const selectSubmissionColumns = `SELECT id, user_id, test_id, trigger, started_at, ended_at, duration_minutes,
       earned_points, total_points, attempted_count, challenges, created_at FROM submissions`

func (r *pgSubmissionRepository) FindSubmissionByUserAndTest(ctx context.Context, userID, testID string) (*model.SubmissionRecord, error) {
	rec, err := scanSubmission(r.db.QueryRowContext(ctx, selectSubmissionColumns+` WHERE user_id = $1 AND test_id = $2`, userID, testID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSubmissionRepository.FindSubmissionByUserAndTest: %w", err)
	}
	return rec, nil
}

func (r *pgSubmissionRepository) ListSubmissionsByTest(ctx context.Context, testID string) ([]model.SubmissionRecord, error) {
	rows, err := r.db.QueryContext(ctx, selectSubmissionColumns+` WHERE test_id = $1 ORDER BY earned_points DESC, created_at ASC`, testID)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListSubmissionsByTest: %w", err)
	}
	defer rows.Close()

	var records []model.SubmissionRecord
	for rows.Next() {
		rec, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.ListSubmissionsByTest scan: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListSubmissionsByTest rows: %w", err)
	}
	return records, nil
}

func scanSubmission(row rowScanner) (*model.SubmissionRecord, error) {
	rec := &model.SubmissionRecord{}
	var challenges []byte
	err := row.Scan(&rec.ID, &rec.UserID, &rec.TestID, &rec.Trigger, &rec.StartedAt, &rec.EndedAt, &rec.DurationMinutes,
		&rec.EarnedPoints, &rec.TotalPoints, &rec.AttemptedCount, &challenges, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(challenges, &rec.Challenges); err != nil {
		return nil, fmt.Errorf("unmarshal challenges of submission %s: %w", rec.ID, err)
	}
	return rec, nil
}
