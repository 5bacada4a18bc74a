package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cohabisafe/internal/domain"
)

// AnswerRepository is the single mutation point for assessment answers.
// Merge is shallow last-write-wins per question id and atomic per call:
// a concurrent reader never observes a partially applied payload.
type AnswerRepository interface {
	Merge(ctx context.Context, assessmentID string, partial map[string]domain.AnswerValue) error
	Get(ctx context.Context, assessmentID, questionID string) (domain.AnswerValue, bool, error)
	Snapshot(ctx context.Context, assessmentID string, questionIDs []string) (map[string]domain.AnswerValue, error)
}

// PgAnswerRepository stores answers as one jsonb row per question.
type PgAnswerRepository struct {
	pool *pgxpool.Pool
}

func NewPgAnswerRepository(pool *pgxpool.Pool) *PgAnswerRepository {
	return &PgAnswerRepository{pool: pool}
}

func (r *PgAnswerRepository) Merge(ctx context.Context, assessmentID string, partial map[string]domain.AnswerValue) error {
	if len(partial) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin merge: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM assessments WHERE id = $1)`, assessmentID).Scan(&exists); err != nil {
		return fmt.Errorf("check assessment: %w", err)
	}
	if !exists {
		return pgx.ErrNoRows
	}

	const query = `
		INSERT INTO assessment_answers (assessment_id, question_id, value, recorded_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (assessment_id, question_id)
		DO UPDATE SET value = EXCLUDED.value, recorded_at = EXCLUDED.recorded_at
	`
	now := time.Now().UTC()
	for questionID, value := range partial {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode answer %s: %w", questionID, err)
		}
		if _, err := tx.Exec(ctx, query, assessmentID, questionID, raw, now); err != nil {
			return fmt.Errorf("upsert answer %s: %w", questionID, err)
		}
	}

	return tx.Commit(ctx)
}

func (r *PgAnswerRepository) Get(ctx context.Context, assessmentID, questionID string) (domain.AnswerValue, bool, error) {
	const query = `
		SELECT value FROM assessment_answers
		WHERE assessment_id = $1 AND question_id = $2
	`
	var raw []byte
	err := r.pool.QueryRow(ctx, query, assessmentID, questionID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AnswerValue{}, false, nil
	}
	if err != nil {
		return domain.AnswerValue{}, false, err
	}
	var value domain.AnswerValue
	if err := json.Unmarshal(raw, &value); err != nil {
		return domain.AnswerValue{}, false, fmt.Errorf("decode answer %s: %w", questionID, err)
	}
	return value, true, nil
}

func (r *PgAnswerRepository) Snapshot(ctx context.Context, assessmentID string, questionIDs []string) (map[string]domain.AnswerValue, error) {
	if len(questionIDs) == 0 {
		return map[string]domain.AnswerValue{}, nil
	}
	const query = `
		SELECT question_id, value FROM assessment_answers
		WHERE assessment_id = $1 AND question_id = ANY($2)
	`
	rows, err := r.pool.Query(ctx, query, assessmentID, questionIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshot := make(map[string]domain.AnswerValue)
	for rows.Next() {
		var (
			questionID string
			raw        []byte
		)
		if err := rows.Scan(&questionID, &raw); err != nil {
			return nil, err
		}
		var value domain.AnswerValue
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, fmt.Errorf("decode answer %s: %w", questionID, err)
		}
		snapshot[questionID] = value
	}
	return snapshot, rows.Err()
}
