package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"cohabisafe/internal/domain"
)

// ProfileRepository persists trait profiles. Profiles are append-only:
// recomputing an assessment inserts a superseding row and Latest picks
// the newest, so scores already delivered downstream are never mutated.
type ProfileRepository interface {
	Insert(ctx context.Context, profile domain.TraitProfile) error
	LatestByAssessment(ctx context.Context, assessmentID string) (domain.TraitProfile, error)
}

// PgProfileRepository stores the per-trait map as jsonb plus a pgvector
// column in canonical OCEAN order, so the matching consumer can run
// nearest-neighbour queries directly in Postgres.
type PgProfileRepository struct {
	pool *pgxpool.Pool
}

func NewPgProfileRepository(pool *pgxpool.Pool) *PgProfileRepository {
	return &PgProfileRepository{pool: pool}
}

func (r *PgProfileRepository) Insert(ctx context.Context, profile domain.TraitProfile) error {
	traits, err := json.Marshal(profile.PerTrait)
	if err != nil {
		return fmt.Errorf("encode traits: %w", err)
	}

	const query = `
		INSERT INTO trait_profiles (id, assessment_id, per_trait, trait_vector, label, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.pool.Exec(ctx, query,
		profile.ID,
		profile.AssessmentID,
		traits,
		traitVector(profile.PerTrait),
		profile.Label,
		profile.ComputedAt,
	)
	return err
}

func (r *PgProfileRepository) LatestByAssessment(ctx context.Context, assessmentID string) (domain.TraitProfile, error) {
	const query = `
		SELECT id, assessment_id, per_trait, label, computed_at
		FROM trait_profiles
		WHERE assessment_id = $1
		ORDER BY computed_at DESC, id DESC
		LIMIT 1
	`
	var (
		p   domain.TraitProfile
		raw []byte
	)
	err := r.pool.QueryRow(ctx, query, assessmentID).Scan(
		&p.ID,
		&p.AssessmentID,
		&raw,
		&p.Label,
		&p.ComputedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.TraitProfile{}, err
	}
	if err != nil {
		return domain.TraitProfile{}, err
	}
	if err := json.Unmarshal(raw, &p.PerTrait); err != nil {
		return domain.TraitProfile{}, fmt.Errorf("decode traits: %w", err)
	}
	return p, nil
}

// traitVector lays the trait map out in canonical OCEAN order. Traits a
// compact catalog never fed default to the likert midpoint so vectors
// stay comparable across catalog versions.
func traitVector(perTrait map[string]float64) pgvector.Vector {
	const midpoint = 3.0
	out := make([]float32, len(domain.TraitOrder))
	for i, trait := range domain.TraitOrder {
		if v, ok := perTrait[trait]; ok {
			out[i] = float32(v)
		} else {
			out[i] = midpoint
		}
	}
	return pgvector.NewVector(out)
}
