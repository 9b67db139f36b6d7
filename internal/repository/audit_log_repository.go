package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thatlq1812/signature-system/internal/domain"
)

// AuditLogRepository is append-only: entries are never updated or deleted.
// The ordered trail is the proof chain consumed by signature verification.
type AuditLogRepository interface {
	Append(ctx context.Context, params domain.AppendAuditEntryParams) (*domain.AuditLogEntry, error)

	// ListByRequest returns the full trail ordered by timestamp ascending
	ListByRequest(ctx context.Context, signatureRequestID string) ([]*domain.AuditLogEntry, error)
}

type auditLogRepository struct {
	db *pgxpool.Pool
}

func NewAuditLogRepository(db *pgxpool.Pool) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) Append(ctx context.Context, params domain.AppendAuditEntryParams) (*domain.AuditLogEntry, error) {
	var detailsJSON []byte
	if params.Details != nil {
		if params.Details.AuditAction() != params.Action {
			return nil, fmt.Errorf("details type %T does not match action %s: %w",
				params.Details, params.Action, domain.ErrInvalidInput)
		}
		var err error
		detailsJSON, err = json.Marshal(params.Details)
		if err != nil {
			return nil, fmt.Errorf("failed to encode audit details: %w", err)
		}
	}

	query := `
        INSERT INTO signature_audit_log (
            id, signature_request_id, tenant_id, signer_id, action,
            ip_address, user_agent, device_fingerprint, geolocation, details
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id, created_at
    `

	entry := domain.AuditLogEntry{
		SignatureRequestID: params.SignatureRequestID,
		TenantID:           params.TenantID,
		SignerID:           params.SignerID,
		Action:             params.Action,
		Forensics:          params.Forensics,
		Details:            params.Details,
	}

	err := r.db.QueryRow(ctx, query,
		uuid.New().String(),
		params.SignatureRequestID,
		params.TenantID,
		params.SignerID,
		params.Action,
		params.Forensics.IPAddress,
		params.Forensics.UserAgent,
		params.Forensics.DeviceFingerprint,
		params.Forensics.Geolocation,
		detailsJSON,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to append audit entry: %w", err)
	}

	return &entry, nil
}

func (r *auditLogRepository) ListByRequest(ctx context.Context, signatureRequestID string) ([]*domain.AuditLogEntry, error) {
	query := `
        SELECT id, signature_request_id, tenant_id, signer_id, action,
               ip_address, user_agent, device_fingerprint, geolocation,
               details, created_at
        FROM signature_audit_log
        WHERE signature_request_id = $1
        ORDER BY created_at ASC, id ASC
    `

	rows, err := r.db.Query(ctx, query, signatureRequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var result []*domain.AuditLogEntry
	for rows.Next() {
		var (
			entry      domain.AuditLogEntry
			detailsRaw []byte
		)
		err := rows.Scan(
			&entry.ID, &entry.SignatureRequestID, &entry.TenantID, &entry.SignerID, &entry.Action,
			&entry.Forensics.IPAddress, &entry.Forensics.UserAgent,
			&entry.Forensics.DeviceFingerprint, &entry.Forensics.Geolocation,
			&detailsRaw, &entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}

		entry.Details, err = domain.DecodeAuditDetails(entry.Action, detailsRaw)
		if err != nil {
			return nil, err
		}

		result = append(result, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit entries: %w", err)
	}

	return result, nil
}
