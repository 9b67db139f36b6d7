package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thatlq1812/signature-system/internal/domain"
)

type SignatureRequestRepository interface {
	Create(ctx context.Context, params domain.CreateSignatureRequestParams) (*domain.SignatureRequest, error)

	// GetByID returns the request, nil if none exists
	GetByID(ctx context.Context, id string) (*domain.SignatureRequest, error)

	// GetActiveByDocumentAndSigner returns the non-REJECTED/EXPIRED request
	// for the pair, nil if none. At most one such request may exist.
	GetActiveByDocumentAndSigner(ctx context.Context, documentID, signerID string) (*domain.SignatureRequest, error)

	// ListBySigner returns all requests addressed to a signer, newest first
	ListBySigner(ctx context.Context, tenantID, signerID string) ([]*domain.SignatureRequest, error)

	// UpdateStatus is the only status mutator. The UPDATE is guarded by the
	// non-terminal statuses so a request that already reached SIGNED,
	// REJECTED or EXPIRED is never touched; callers get ErrInvalidState.
	// For SIGNED, signedAt and payload are written in the same statement.
	UpdateStatus(ctx context.Context, id string, status domain.SignatureStatus, signedAt *time.Time, payload *domain.SignatureData) (*domain.SignatureRequest, error)
}

type signatureRequestRepository struct {
	db *pgxpool.Pool
}

func NewSignatureRequestRepository(db *pgxpool.Pool) SignatureRequestRepository {
	return &signatureRequestRepository{db: db}
}

const signatureRequestColumns = `id, tenant_id, document_id, signer_id, requested_by,
                  status, priority, due_date,
                  require_password, require_otp, require_phrase, min_reading_seconds,
                  signed_at, signature_payload, created_at, updated_at`

func scanSignatureRequest(row pgx.Row) (*domain.SignatureRequest, error) {
	var (
		req     domain.SignatureRequest
		payload []byte
	)

	err := row.Scan(
		&req.ID, &req.TenantID, &req.DocumentID, &req.SignerID, &req.RequestedBy,
		&req.Status, &req.Priority, &req.DueDate,
		&req.RequirePassword, &req.RequireOtp, &req.RequirePhrase, &req.MinReadingSeconds,
		&req.SignedAt, &payload, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(payload) > 0 {
		var data domain.SignatureData
		if err := json.Unmarshal(payload, &data); err != nil {
			return nil, fmt.Errorf("failed to decode signature payload: %w", err)
		}
		req.SignaturePayload = &data
	}

	return &req, nil
}

func (r *signatureRequestRepository) Create(ctx context.Context, params domain.CreateSignatureRequestParams) (*domain.SignatureRequest, error) {
	query := `
        INSERT INTO signature_requests (
            id, tenant_id, document_id, signer_id, requested_by,
            status, priority, due_date,
            require_password, require_otp, require_phrase, min_reading_seconds
        ) VALUES ($1, $2, $3, $4, $5, 'PENDING', $6, $7, $8, $9, $10, $11)
        RETURNING ` + signatureRequestColumns

	req, err := scanSignatureRequest(r.db.QueryRow(ctx, query,
		uuid.New().String(),
		params.TenantID,
		params.DocumentID,
		params.SignerID,
		params.RequestedBy,
		params.Priority,
		params.DueDate,
		params.RequirePassword,
		params.RequireOtp,
		params.RequirePhrase,
		params.MinReadingSeconds,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create signature request: %w", err)
	}

	return req, nil
}

func (r *signatureRequestRepository) GetByID(ctx context.Context, id string) (*domain.SignatureRequest, error) {
	query := `
        SELECT ` + signatureRequestColumns + `
        FROM signature_requests
        WHERE id = $1
    `

	req, err := scanSignatureRequest(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get signature request: %w", err)
	}

	return req, nil
}

func (r *signatureRequestRepository) GetActiveByDocumentAndSigner(ctx context.Context, documentID, signerID string) (*domain.SignatureRequest, error) {
	query := `
        SELECT ` + signatureRequestColumns + `
        FROM signature_requests
        WHERE document_id = $1 AND signer_id = $2
          AND status NOT IN ('REJECTED', 'EXPIRED')
        ORDER BY created_at DESC
        LIMIT 1
    `

	req, err := scanSignatureRequest(r.db.QueryRow(ctx, query, documentID, signerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active signature request: %w", err)
	}

	return req, nil
}

func (r *signatureRequestRepository) ListBySigner(ctx context.Context, tenantID, signerID string) ([]*domain.SignatureRequest, error) {
	query := `
        SELECT ` + signatureRequestColumns + `
        FROM signature_requests
        WHERE tenant_id = $1 AND signer_id = $2
        ORDER BY created_at DESC
    `

	rows, err := r.db.Query(ctx, query, tenantID, signerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list signature requests: %w", err)
	}
	defer rows.Close()

	var result []*domain.SignatureRequest
	for rows.Next() {
		req, err := scanSignatureRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signature request: %w", err)
		}
		result = append(result, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate signature requests: %w", err)
	}

	return result, nil
}

func (r *signatureRequestRepository) UpdateStatus(ctx context.Context, id string, status domain.SignatureStatus, signedAt *time.Time, payload *domain.SignatureData) (*domain.SignatureRequest, error) {
	var payloadJSON []byte
	if payload != nil {
		var err error
		payloadJSON, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode signature payload: %w", err)
		}
	}

	query := `
        UPDATE signature_requests
        SET status = $2,
            signed_at = COALESCE($3, signed_at),
            signature_payload = COALESCE($4, signature_payload),
            updated_at = NOW()
        WHERE id = $1 AND status IN ('PENDING', 'VIEWED')
        RETURNING ` + signatureRequestColumns

	req, err := scanSignatureRequest(r.db.QueryRow(ctx, query, id, status, signedAt, payloadJSON))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the request does not exist or it already reached a
			// terminal status; disambiguate for the caller.
			existing, getErr := r.GetByID(ctx, id)
			if getErr != nil {
				return nil, getErr
			}
			if existing == nil {
				return nil, domain.ErrNotFound
			}
			return nil, fmt.Errorf("request %s is %s: %w", id, existing.Status, domain.ErrInvalidState)
		}
		return nil, fmt.Errorf("failed to update signature request status: %w", err)
	}

	return req, nil
}
