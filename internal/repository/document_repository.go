package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thatlq1812/signature-system/internal/domain"
)

// DocumentRepository reads documents owned by the document-management
// collaborator. Read-only to this service.
type DocumentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

type documentRepository struct {
	db *pgxpool.Pool
}

func NewDocumentRepository(db *pgxpool.Pool) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	query := `
        SELECT id, tenant_id, name, content, created_at
        FROM documents
        WHERE id = $1
    `

	var doc domain.Document
	err := r.db.QueryRow(ctx, query, id).Scan(
		&doc.ID, &doc.TenantID, &doc.Name, &doc.Content, &doc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return &doc, nil
}
