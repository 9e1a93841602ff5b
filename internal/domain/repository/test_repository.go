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

type TestRepository interface {
	CreateTest(ctx context.Context, tx *sql.Tx, test *model.TestDefinition) error
	FindTestByID(ctx context.Context, id string) (*model.TestDefinition, error)
	FindTestBySlug(ctx context.Context, slug string) (*model.TestDefinition, error)
	ListTests(ctx context.Context, limit, offset int) ([]model.TestDefinition, int, error)
}

type pgTestRepository struct {
	db *sql.DB
}

func NewPgTestRepository(db *sql.DB) TestRepository {
	return &pgTestRepository{db: db}
}

func (r *pgTestRepository) CreateTest(ctx context.Context, tx *sql.Tx, t *model.TestDefinition) error {
	challenges, err := json.Marshal(t.Challenges)
	if err != nil {
		return fmt.Errorf("pgTestRepository.CreateTest: marshal challenges: %w", err)
	}

	query := `INSERT INTO tests (id, slug, title, description, duration_minutes, challenges, created_by)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING created_at, updated_at`
	args := []interface{}{t.ID, t.Slug, t.Title, t.Description, t.DurationMinutes, string(challenges), t.CreatedByID}

	var row *sql.Row
	if tx != nil {
		row = tx.QueryRowContext(ctx, query, args...)
	} else {
		row = r.db.QueryRowContext(ctx, query, args...)
	}
	if err := row.Scan(&t.CreatedAt, &t.UpdatedAt); err != nil {
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("test with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgTestRepository.CreateTest: %w", err)
	}
	return nil
}

const selectTestColumns = `SELECT id, slug, title, description, duration_minutes, challenges, created_by, created_at, updated_at FROM tests`

func (r *pgTestRepository) FindTestByID(ctx context.Context, id string) (*model.TestDefinition, error) {
	return r.findOne(ctx, selectTestColumns+` WHERE id = $1`, id)
}

func (r *pgTestRepository) FindTestBySlug(ctx context.Context, slug string) (*model.TestDefinition, error) {
	return r.findOne(ctx, selectTestColumns+` WHERE slug = $1`, slug)
}

func (r *pgTestRepository) findOne(ctx context.Context, query string, arg string) (*model.TestDefinition, error) {
	t, err := scanTest(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrTestNotFound
		}
		return nil, fmt.Errorf("pgTestRepository.findOne: %w", err)
	}
	return t, nil
}

func (r *pgTestRepository) ListTests(ctx context.Context, limit, offset int) ([]model.TestDefinition, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tests`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgTestRepository.ListTests count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, selectTestColumns+` ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("pgTestRepository.ListTests: %w", err)
	}
	defer rows.Close()

	tests := make([]model.TestDefinition, 0, limit)
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("pgTestRepository.ListTests scan: %w", err)
		}
		tests = append(tests, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgTestRepository.ListTests rows: %w", err)
	}
	return tests, total, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTest(row rowScanner) (*model.TestDefinition, error) {
	t := &model.TestDefinition{}
	var challenges []byte
	if err := row.Scan(&t.ID, &t.Slug, &t.Title, &t.Description, &t.DurationMinutes, &challenges, &t.CreatedByID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(challenges, &t.Challenges); err != nil {
		return nil, fmt.Errorf("unmarshal challenges of test %s: %w", t.ID, err)
	}
	return t, nil
}
