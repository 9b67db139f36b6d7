package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thatlq1812/signature-system/internal/domain"
)

type OtpRepository interface {
	// Invalidate all active codes for the key, then insert the new one,
	// inside a single transaction. Two concurrent creates for the same key
	// must never leave two valid codes outstanding.
	CreateWithInvalidation(ctx context.Context, params domain.CreateOtpParams) (*domain.OtpCode, error)

	// Most recent unused code for (user, purpose, reference), nil if none
	GetLatestActive(ctx context.Context, userID, purpose string, referenceID *string) (*domain.OtpCode, error)

	// Increment the attempt counter, returning the new count
	IncrementAttempts(ctx context.Context, id string) (int, error)

	// Mark the code used (single-use on success)
	MarkUsed(ctx context.Context, id string) error
}

type otpRepository struct {
	db *pgxpool.Pool
}

func NewOtpRepository(db *pgxpool.Pool) OtpRepository {
	return &otpRepository{db: db}
}

const otpColumns = `id, user_id, code, type, purpose, reference_id,
                  expires_at, attempts, max_attempts, used_at,
                  ip_address, user_agent, created_at`

func (r *otpRepository) CreateWithInvalidation(ctx context.Context, params domain.CreateOtpParams) (*domain.OtpCode, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// 1. Invalidate prior active codes for the same key
	invalidate := `
        UPDATE otp_codes
        SET used_at = NOW()
        WHERE user_id = $1 AND purpose = $2
          AND reference_id IS NOT DISTINCT FROM $3
          AND used_at IS NULL
    `
	if _, err := tx.Exec(ctx, invalidate, params.UserID, params.Purpose, params.ReferenceID); err != nil {
		return nil, fmt.Errorf("failed to invalidate prior codes: %w", err)
	}

	// 2. Insert the new code
	insert := `
        INSERT INTO otp_codes (
            id, user_id, code, type, purpose, reference_id,
            expires_at, max_attempts, ip_address, user_agent
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING ` + otpColumns

	var otp domain.OtpCode
	err = tx.QueryRow(ctx, insert,
		uuid.New().String(),
		params.UserID,
		params.Code,
		params.Type,
		params.Purpose,
		params.ReferenceID,
		params.ExpiresAt,
		params.MaxAttempts,
		params.IPAddress,
		params.UserAgent,
	).Scan(
		&otp.ID, &otp.UserID, &otp.Code, &otp.Type, &otp.Purpose, &otp.ReferenceID,
		&otp.ExpiresAt, &otp.Attempts, &otp.MaxAttempts, &otp.UsedAt,
		&otp.IPAddress, &otp.UserAgent, &otp.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create otp code: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit otp creation: %w", err)
	}

	return &otp, nil
}

func (r *otpRepository) GetLatestActive(ctx context.Context, userID, purpose string, referenceID *string) (*domain.OtpCode, error) {
	query := `
        SELECT ` + otpColumns + `
        FROM otp_codes
        WHERE user_id = $1 AND purpose = $2
          AND reference_id IS NOT DISTINCT FROM $3
          AND used_at IS NULL
        ORDER BY created_at DESC
        LIMIT 1
    `

	var otp domain.OtpCode
	err := r.db.QueryRow(ctx, query, userID, purpose, referenceID).Scan(
		&otp.ID, &otp.UserID, &otp.Code, &otp.Type, &otp.Purpose, &otp.ReferenceID,
		&otp.ExpiresAt, &otp.Attempts, &otp.MaxAttempts, &otp.UsedAt,
		&otp.IPAddress, &otp.UserAgent, &otp.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active otp code: %w", err)
	}

	return &otp, nil
}

func (r *otpRepository) IncrementAttempts(ctx context.Context, id string) (int, error) {
	query := `
        UPDATE otp_codes
        SET attempts = attempts + 1
        WHERE id = $1
        RETURNING attempts
    `

	var attempts int
	if err := r.db.QueryRow(ctx, query, id).Scan(&attempts); err != nil {
		return 0, fmt.Errorf("failed to increment otp attempts: %w", err)
	}

	return attempts, nil
}

func (r *otpRepository) MarkUsed(ctx context.Context, id string) error {
	query := `
        UPDATE otp_codes
        SET used_at = NOW()
        WHERE id = $1 AND used_at IS NULL
    `

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark otp code used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("otp code %s already used: %w", id, domain.ErrInvalidState)
	}

	return nil
}
