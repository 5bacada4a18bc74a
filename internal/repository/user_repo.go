package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cohabisafe/internal/domain"
)

// UserRepository persists funnel participants.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	UpdateContact(ctx context.Context, id, fullName, phone string, updatedAt time.Time) error
	UpdateStatus(ctx context.Context, id, status string, updatedAt time.Time) error
	SetBackgroundConsent(ctx context.Context, id string, consentedAt time.Time) error
	SetBackgroundInfo(ctx context.Context, id, ssnHash string, dob *time.Time, updatedAt time.Time) error
}

type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

func (r *PgUserRepository) Create(ctx context.Context, u domain.User) error {
	const query = `
		INSERT INTO users (id, email, full_name, phone, role, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		u.ID,
		u.Email,
		u.FullName,
		u.Phone,
		u.Role,
		u.Status,
		u.CreatedAt,
		u.UpdatedAt,
	)
	return err
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	const query = userSelect + ` WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	const query = userSelect + ` WHERE email = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, email))
}

func (r *PgUserRepository) UpdateContact(ctx context.Context, id, fullName, phone string, updatedAt time.Time) error {
	const query = `UPDATE users SET full_name = $2, phone = $3, updated_at = $4 WHERE id = $1`
	return r.exec(ctx, query, id, fullName, phone, updatedAt)
}

func (r *PgUserRepository) UpdateStatus(ctx context.Context, id, status string, updatedAt time.Time) error {
	const query = `UPDATE users SET status = $2, updated_at = $3 WHERE id = $1`
	return r.exec(ctx, query, id, status, updatedAt)
}

func (r *PgUserRepository) SetBackgroundConsent(ctx context.Context, id string, consentedAt time.Time) error {
	const query = `
		UPDATE users SET background_consent_at = $2, status = $3, updated_at = $2
		WHERE id = $1
	`
	return r.exec(ctx, query, id, consentedAt, domain.UserStatusConsented)
}

func (r *PgUserRepository) SetBackgroundInfo(ctx context.Context, id, ssnHash string, dob *time.Time, updatedAt time.Time) error {
	const query = `
		UPDATE users SET ssn_hash = $2, date_of_birth = $3, status = $4, updated_at = $5
		WHERE id = $1
	`
	return r.exec(ctx, query, id, ssnHash, dob, domain.UserStatusInfoReady, updatedAt)
}

const userSelect = `
	SELECT id, email, full_name, COALESCE(phone, ''), role, status,
	       background_consent_at, COALESCE(ssn_hash, ''), date_of_birth,
	       created_at, updated_at
	FROM users`

func (r *PgUserRepository) exec(ctx context.Context, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgUserRepository) scanOne(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FullName,
		&u.Phone,
		&u.Role,
		&u.Status,
		&u.BackgroundConsentAt,
		&u.SSNHash,
		&u.DateOfBirth,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}
	return u, err
}
