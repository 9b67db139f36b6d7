package domain

import "time"

// Employee is the signer identity owned by the account collaborator.
// Read-only to this service: it is consulted for the identity snapshot,
// the password re-entry gate, and OTP channel resolution.
type Employee struct {
	UserID       string    `db:"user_id"`
	EmployeeID   string    `db:"employee_id"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	Email        string    `db:"email"`
	PhoneNumber  *string   `db:"phone_number"` // Pointer for NULL
	PasswordHash string    `db:"password_hash"`
	TotpVerified bool      `db:"totp_verified"`
	CreatedAt    time.Time `db:"created_at"`
}

// PreferredOtpMethod resolves the delivery channel for this employee:
// verified TOTP first, else SMS when a phone is on file, else EMAIL.
func (e *Employee) PreferredOtpMethod() OtpType {
	if e.TotpVerified {
		return OtpTypeTotp
	}
	if e.PhoneNumber != nil && *e.PhoneNumber != "" {
		return OtpTypeSMS
	}
	return OtpTypeEmail
}
