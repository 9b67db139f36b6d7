package domain

import "time"

// SignatureStatus - EXACT values accepted
type SignatureStatus string

const (
	StatusPending  SignatureStatus = "PENDING"
	StatusViewed   SignatureStatus = "VIEWED"
	StatusSigned   SignatureStatus = "SIGNED"
	StatusRejected SignatureStatus = "REJECTED"
	StatusExpired  SignatureStatus = "EXPIRED"
)

// SignaturePriority constants
type SignaturePriority string

const (
	PriorityLow    SignaturePriority = "LOW"
	PriorityNormal SignaturePriority = "NORMAL"
	PriorityHigh   SignaturePriority = "HIGH"
	PriorityUrgent SignaturePriority = "URGENT"
)

// DefaultMinReadingSeconds is the reading-time floor applied when a request
// does not override it.
const DefaultMinReadingSeconds = 30

// SignatureRequest is the aggregate root of the signing core: one signer's
// pending attestation on one document. Once the status reaches a terminal
// value (SIGNED, REJECTED, EXPIRED) the row is retained permanently as
// evidence and never mutated again.
type SignatureRequest struct {
	ID                string            `db:"id"`
	TenantID          string            `db:"tenant_id"`
	DocumentID        string            `db:"document_id"`
	SignerID          string            `db:"signer_id"`
	RequestedBy       string            `db:"requested_by"`
	Status            SignatureStatus   `db:"status"`
	Priority          SignaturePriority `db:"priority"`
	DueDate           *time.Time        `db:"due_date"` // Pointer for NULL
	RequirePassword   bool              `db:"require_password"`
	RequireOtp        bool              `db:"require_otp"`
	RequirePhrase     bool              `db:"require_phrase"`
	MinReadingSeconds int               `db:"min_reading_seconds"`
	SignedAt          *time.Time        `db:"signed_at"`         // Set only on SIGNED
	SignaturePayload  *SignatureData    `db:"signature_payload"` // JSONB, set iff SIGNED
	CreatedAt         time.Time         `db:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at"`
}

// CreateSignatureRequestParams for inserting a new request
type CreateSignatureRequestParams struct {
	TenantID          string
	DocumentID        string
	SignerID          string
	RequestedBy       string
	Priority          SignaturePriority
	DueDate           *time.Time
	RequirePassword   bool
	RequireOtp        bool
	RequirePhrase     bool
	MinReadingSeconds int
}

// IsTerminal reports whether the status accepts no further transitions.
func (s SignatureStatus) IsTerminal() bool {
	return s == StatusSigned || s == StatusRejected || s == StatusExpired
}

// CanTransitionTo encodes the request lifecycle:
// PENDING -> VIEWED -> SIGNED, with REJECTED and EXPIRED reachable from any
// non-terminal state.
func (s SignatureStatus) CanTransitionTo(next SignatureStatus) bool {
	if s.IsTerminal() {
		return false
	}

	switch next {
	case StatusViewed:
		return s == StatusPending
	case StatusSigned, StatusRejected, StatusExpired:
		return s == StatusPending || s == StatusViewed
	default:
		return false
	}
}

// IsValidPriority validates the priority enum
func IsValidPriority(p SignaturePriority) bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// IsPastDue reports whether the request's due date has passed at the given
// instant. Requests without a due date never expire.
func (r *SignatureRequest) IsPastDue(now time.Time) bool {
	return r.DueDate != nil && now.After(*r.DueDate)
}
