package domain

import "time"

// Document is the immutable reference owned by the document-management
// collaborator. This service only reads it: the content is used to
// fingerprint the document at signing time.
type Document struct {
	ID        string    `db:"id"`
	TenantID  string    `db:"tenant_id"`
	Name      string    `db:"name"`
	Content   []byte    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}
