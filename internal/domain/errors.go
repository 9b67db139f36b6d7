package domain

import "errors"

// Sentinel errors for the Signature Service.
// These errors should be checked using errors.Is() instead of string matching
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates an active request already exists for the
	// same document and signer
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput indicates validation failure on input parameters
	ErrInvalidInput = errors.New("invalid input parameters")

	// ErrUnauthorized indicates the caller is not the signer of the request
	ErrUnauthorized = errors.New("unauthorized action")

	// ErrInvalidState indicates an action attempted against a terminal or
	// wrong-phase signature request
	ErrInvalidState = errors.New("invalid request state")

	// ErrVerificationFailed indicates a verification gate did not pass
	// (wrong OTP, phrase mismatch, unmet reading requirements)
	ErrVerificationFailed = errors.New("verification failed")

	// ErrExpired indicates an OTP code or signature request past its deadline
	ErrExpired = errors.New("expired")

	// ErrAttemptsExhausted indicates the OTP retry budget is spent
	ErrAttemptsExhausted = errors.New("verification attempts exhausted")

	// ErrDeliveryFailure indicates the email/SMS provider call failed.
	// Recoverable: the caller may retry issuance.
	ErrDeliveryFailure = errors.New("delivery failure")
)
