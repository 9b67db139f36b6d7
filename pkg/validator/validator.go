package validator

import (
	"fmt"
	"regexp"
)

// Regex patterns for validation
var (
	// Email: RFC 5322 simplified pattern
	EmailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	// OTP code: fixed-length numeric string
	OtpCodeRegex = regexp.MustCompile(`^[0-9]{6}$`)

	// UUID regex: 8-4-4-4-12 hex digits
	UUIDRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

// ValidateEmail validates email format
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}

	if len(email) > 254 {
		return fmt.Errorf("email too long: maximum 254 characters")
	}

	if !EmailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}

	return nil
}

// ValidateOtpCode validates the shape of a submitted OTP code
// (exactly 6 decimal digits; the value itself is checked by the OTP service)
func ValidateOtpCode(code string) error {
	if code == "" {
		return fmt.Errorf("otp code is required")
	}

	if !OtpCodeRegex.MatchString(code) {
		return fmt.Errorf("invalid otp code format: must be exactly 6 digits")
	}

	return nil
}

// ValidateUUID validates UUID format
func ValidateUUID(id string) error {
	if id == "" {
		return fmt.Errorf("id is required")
	}

	if !UUIDRegex.MatchString(id) {
		return fmt.Errorf("invalid id format: must be valid UUID")
	}

	return nil
}
