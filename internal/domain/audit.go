package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// AuditAction constants - EXACT values accepted
type AuditAction string

const (
	ActionPasswordEntered AuditAction = "PASSWORD_ENTERED"
	ActionOtpSent         AuditAction = "OTP_SENT"
	ActionOtpVerified     AuditAction = "OTP_VERIFIED"
	ActionPhraseVerified  AuditAction = "PHRASE_VERIFIED"
	ActionDocumentViewed  AuditAction = "DOCUMENT_VIEWED"
	ActionSigned          AuditAction = "SIGNED"
	ActionRejected        AuditAction = "REJECTED"
)

// ForensicContext captures network/device evidence at the moment of a
// protocol event.
type ForensicContext struct {
	IPAddress         *string `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent         *string `json:"user_agent,omitempty" db:"user_agent"`
	DeviceFingerprint *string `json:"device_fingerprint,omitempty" db:"device_fingerprint"`
	Geolocation       *string `json:"geolocation,omitempty" db:"geolocation"`
}

// AuditDetails is the action-specific evidence attached to a log entry.
// Each action carries exactly the fields it needs; the concrete type is
// selected by the entry's Action.
type AuditDetails interface {
	AuditAction() AuditAction
}

// PasswordDetails for PASSWORD_ENTERED
type PasswordDetails struct {
	Verified   bool      `json:"verified"`
	VerifiedAt time.Time `json:"verified_at"`
}

func (PasswordDetails) AuditAction() AuditAction { return ActionPasswordEntered }

// OtpSentDetails for OTP_SENT
type OtpSentDetails struct {
	Method    OtpType   `json:"method"`
	SentAt    time.Time `json:"sent_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (OtpSentDetails) AuditAction() AuditAction { return ActionOtpSent }

// OtpVerifiedDetails for OTP_VERIFIED
type OtpVerifiedDetails struct {
	Method     OtpType   `json:"method"`
	Verified   bool      `json:"verified"`
	VerifiedAt time.Time `json:"verified_at"`
}

func (OtpVerifiedDetails) AuditAction() AuditAction { return ActionOtpVerified }

// PhraseVerifiedDetails for PHRASE_VERIFIED
type PhraseVerifiedDetails struct {
	TypedPhrase    string    `json:"typed_phrase"`
	ExpectedPhrase string    `json:"expected_phrase"`
	Verified       bool      `json:"verified"`
	VerifiedAt     time.Time `json:"verified_at"`
}

func (PhraseVerifiedDetails) AuditAction() AuditAction { return ActionPhraseVerified }

// ReadingMetrics records how the signer interacted with the document.
type ReadingMetrics struct {
	ScrollPercentage int `json:"scroll_percentage"`
	TimeOnDocument   int `json:"time_on_document"` // seconds
	PagesViewed      int `json:"pages_viewed"`
	TotalPages       int `json:"total_pages"`
}

// DocumentViewedDetails for DOCUMENT_VIEWED
type DocumentViewedDetails struct {
	Reading  ReadingMetrics `json:"reading"`
	ViewedAt time.Time      `json:"viewed_at"`
}

func (DocumentViewedDetails) AuditAction() AuditAction { return ActionDocumentViewed }

// SignedDetails for SIGNED
type SignedDetails struct {
	DocumentHash string         `json:"document_hash"`
	Reading      ReadingMetrics `json:"reading"`
	SignedAt     time.Time      `json:"signed_at"`
}

func (SignedDetails) AuditAction() AuditAction { return ActionSigned }

// RejectedDetails for REJECTED
type RejectedDetails struct {
	Reason     string    `json:"reason"`
	RejectedAt time.Time `json:"rejected_at"`
}

func (RejectedDetails) AuditAction() AuditAction { return ActionRejected }

// AuditLogEntry is one immutable row of the proof chain for a signature
// request. Entries are append-only: never edited, never deleted.
type AuditLogEntry struct {
	ID                 string          `db:"id"`
	SignatureRequestID string          `db:"signature_request_id"`
	TenantID           string          `db:"tenant_id"`
	SignerID           string          `db:"signer_id"`
	Action             AuditAction     `db:"action"`
	Forensics          ForensicContext `db:"-"`
	Details            AuditDetails    `db:"-"` // JSONB keyed by Action
	CreatedAt          time.Time       `db:"created_at"`
}

// AppendAuditEntryParams for inserting a new entry
type AppendAuditEntryParams struct {
	SignatureRequestID string
	TenantID           string
	SignerID           string
	Action             AuditAction
	Forensics          ForensicContext
	Details            AuditDetails
}

// DecodeAuditDetails unmarshals the stored JSONB details into the concrete
// type selected by action.
func DecodeAuditDetails(action AuditAction, raw []byte) (AuditDetails, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var (
		details AuditDetails
		err     error
	)

	switch action {
	case ActionPasswordEntered:
		var d PasswordDetails
		err = json.Unmarshal(raw, &d)
		details = d
	case ActionOtpSent:
		var d OtpSentDetails
		err = json.Unmarshal(raw, &d)
		details = d
	case ActionOtpVerified:
		var d OtpVerifiedDetails
		err = json.Unmarshal(raw, &d)
		details = d
	case ActionPhraseVerified:
		var d PhraseVerifiedDetails
		err = json.Unmarshal(raw, &d)
		details = d
	case ActionDocumentViewed:
		var d DocumentViewedDetails
		err = json.Unmarshal(raw, &d)
		details = d
	case ActionSigned:
		var d SignedDetails
		err = json.Unmarshal(raw, &d)
		details = d
	case ActionRejected:
		var d RejectedDetails
		err = json.Unmarshal(raw, &d)
		details = d
	default:
		return nil, fmt.Errorf("unknown audit action: %s", action)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to decode %s details: %w", action, err)
	}

	return details, nil
}
