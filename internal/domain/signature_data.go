package domain

import "time"

// SignatureDataVersion tags the persisted payload schema. The payload is
// retained indefinitely as legal evidence, so schema evolution must be
// additive or bump this version; never rewrite historical records.
const SignatureDataVersion = "1.0"

// SignatureData is the frozen evidentiary bundle stored on a SIGNED request.
// It must be self-contained: reconstructable without re-querying live
// employee or document state.
type SignatureData struct {
	Version      string               `json:"version"`
	SignedAt     time.Time            `json:"signed_at"`
	Document     SignedDocument       `json:"document"`
	Signer       SignerSnapshot       `json:"signer"`
	Verification VerificationEvidence `json:"verification"`
	Reading      ReadingMetrics       `json:"reading"`
	Forensics    ForensicContext      `json:"forensics"`
}

// SignedDocument identifies the document and its content fingerprint at
// signing time. Hash is prefixed with the algorithm tag ("sha256:<hex>").
type SignedDocument struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Hash string `json:"hash"`
}

// SignerSnapshot captures the signer's identity at signing time, not a live
// reference, so the record survives later profile changes.
type SignerSnapshot struct {
	UserID     string `json:"user_id"`
	EmployeeID string `json:"employee_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
}

// ProofResult records one verification gate's outcome and timestamp.
type ProofResult struct {
	Verified   bool       `json:"verified"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	Method     *OtpType   `json:"method,omitempty"` // OTP gate only
}

// VerificationEvidence collects the outcome of every verification gate.
// Gates disabled by request policy are recorded as not required.
type VerificationEvidence struct {
	PasswordRequired bool        `json:"password_required"`
	Password         ProofResult `json:"password"`
	OtpRequired      bool        `json:"otp_required"`
	Otp              ProofResult `json:"otp"`
	PhraseRequired   bool        `json:"phrase_required"`
	Phrase           ProofResult `json:"phrase"`
}
