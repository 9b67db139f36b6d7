package domain

import "time"

// OtpType constants - EXACT values accepted
type OtpType string

const (
	OtpTypeEmail OtpType = "EMAIL"
	OtpTypeSMS   OtpType = "SMS"
	OtpTypeTotp  OtpType = "TOTP"
)

// OTP purposes used by the signing protocol
const (
	OtpPurposeDocumentSignature = "document_signature"
)

// OTP issuance policy
const (
	OtpCodeLength  = 6
	OtpTTL         = 5 * time.Minute
	OtpMaxAttempts = 3
)

// OtpCode is a short-lived secret bound to a (user, purpose, reference) key.
// At most one active code exists per key: issuing a new code marks all prior
// active codes as used.
type OtpCode struct {
	ID          string     `db:"id"`
	UserID      string     `db:"user_id"`
	Code        string     `db:"code"`
	Type        OtpType    `db:"type"`
	Purpose     string     `db:"purpose"`
	ReferenceID *string    `db:"reference_id"` // Pointer for NULL
	ExpiresAt   time.Time  `db:"expires_at"`
	Attempts    int        `db:"attempts"`
	MaxAttempts int        `db:"max_attempts"`
	UsedAt      *time.Time `db:"used_at"`    // Pointer for NULL
	IPAddress   *string    `db:"ip_address"` // Pointer for NULL
	UserAgent   *string    `db:"user_agent"` // Pointer for NULL
	CreatedAt   time.Time  `db:"created_at"`
}

// CreateOtpParams for inserting a new code
type CreateOtpParams struct {
	UserID      string
	Code        string
	Type        OtpType
	Purpose     string
	ReferenceID *string
	ExpiresAt   time.Time
	MaxAttempts int
	IPAddress   *string
	UserAgent   *string
}

// IsValidOtpType validates the delivery type enum
func IsValidOtpType(t OtpType) bool {
	return t == OtpTypeEmail || t == OtpTypeSMS || t == OtpTypeTotp
}

// IsExpired reports whether the code is past its expiry at the given instant.
func (o *OtpCode) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// IsExhausted reports whether the attempt budget is spent.
func (o *OtpCode) IsExhausted() bool {
	return o.Attempts >= o.MaxAttempts
}

// RemainingAttempts returns how many wrong guesses are still allowed.
func (o *OtpCode) RemainingAttempts() int {
	remaining := o.MaxAttempts - o.Attempts
	if remaining < 0 {
		return 0
	}
	return remaining
}
