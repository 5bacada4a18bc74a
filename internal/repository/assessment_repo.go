package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cohabisafe/internal/domain"
)

// AssessmentRepository persists per-assessment flow state.
type AssessmentRepository interface {
	Create(ctx context.Context, assessment domain.Assessment) error
	GetByID(ctx context.Context, id string) (domain.Assessment, error)
	LatestByUser(ctx context.Context, userID string) (domain.Assessment, error)
	UpdateSection(ctx context.Context, assessment domain.Assessment) error
}

type PgAssessmentRepository struct {
	pool *pgxpool.Pool
}

func NewPgAssessmentRepository(pool *pgxpool.Pool) *PgAssessmentRepository {
	return &PgAssessmentRepository{pool: pool}
}

func (r *PgAssessmentRepository) Create(ctx context.Context, a domain.Assessment) error {
	const query = `
		INSERT INTO assessments (id, user_id, catalog_version, current_section, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		a.ID,
		a.UserID,
		a.CatalogVersion,
		a.CurrentSection,
		a.Status,
		a.CreatedAt,
		a.UpdatedAt,
	)
	return err
}

func (r *PgAssessmentRepository) GetByID(ctx context.Context, id string) (domain.Assessment, error) {
	const query = `
		SELECT id, user_id, catalog_version, current_section, status, created_at, updated_at
		FROM assessments
		WHERE id = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *PgAssessmentRepository) LatestByUser(ctx context.Context, userID string) (domain.Assessment, error) {
	const query = `
		SELECT id, user_id, catalog_version, current_section, status, created_at, updated_at
		FROM assessments
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, userID))
}

func (r *PgAssessmentRepository) UpdateSection(ctx context.Context, a domain.Assessment) error {
	const query = `
		UPDATE assessments
		SET current_section = $2, status = $3, updated_at = $4
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, a.ID, a.CurrentSection, a.Status, a.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgAssessmentRepository) scanOne(row pgx.Row) (domain.Assessment, error) {
	var a domain.Assessment
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.CatalogVersion,
		&a.CurrentSection,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Assessment{}, err
	}
	return a, err
}
