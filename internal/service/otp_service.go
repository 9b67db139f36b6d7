package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/thatlq1812/signature-system/internal/domain"
	"github.com/thatlq1812/signature-system/internal/repository"
)

type OtpService interface {
	// Create invalidates all prior active codes for the same
	// (user, purpose, reference) key and issues a fresh one. The returned
	// code is plaintext for out-of-band delivery.
	Create(ctx context.Context, params CreateOtpInput) (*domain.OtpCode, error)

	// Verify checks a submitted code against the most recent active one.
	// Expected failures (wrong code, expired, exhausted, none issued) are
	// reported in the result, not as errors.
	Verify(ctx context.Context, userID, code, purpose string, referenceID *string) (*VerifyOtpResult, error)

	// Deliver sends the code over the channel selected at issuance
	Deliver(ctx context.Context, otp *domain.OtpCode, employee *domain.Employee) error
}

// CreateOtpInput for issuing a new code
type CreateOtpInput struct {
	UserID      string
	Type        domain.OtpType
	Purpose     string
	ReferenceID *string
	IPAddress   *string
	UserAgent   *string
}

// VerifyOtpResult is the structured outcome of a verification attempt.
// Err is nil on success, otherwise one of the domain sentinels
// (ErrNotFound, ErrExpired, ErrAttemptsExhausted, ErrVerificationFailed).
type VerifyOtpResult struct {
	Valid             bool
	Err               error
	Method            domain.OtpType
	RemainingAttempts int
}

type otpService struct {
	repo        repository.OtpRepository
	emailSender OtpSender
	smsSender   OtpSender
	now         func() time.Time
}

func NewOtpService(repo repository.OtpRepository, emailSender, smsSender OtpSender) OtpService {
	return &otpService{
		repo:        repo,
		emailSender: emailSender,
		smsSender:   smsSender,
		now:         time.Now,
	}
}

func (s *otpService) Create(ctx context.Context, params CreateOtpInput) (*domain.OtpCode, error) {
	if params.UserID == "" || params.Purpose == "" {
		return nil, fmt.Errorf("user_id and purpose are required: %w", domain.ErrInvalidInput)
	}
	if !domain.IsValidOtpType(params.Type) {
		return nil, fmt.Errorf("invalid otp type %q: %w", params.Type, domain.ErrInvalidInput)
	}

	code, err := generateNumericCode(domain.OtpCodeLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate otp code: %w", err)
	}

	otp, err := s.repo.CreateWithInvalidation(ctx, domain.CreateOtpParams{
		UserID:      params.UserID,
		Code:        code,
		Type:        params.Type,
		Purpose:     params.Purpose,
		ReferenceID: params.ReferenceID,
		ExpiresAt:   s.now().Add(domain.OtpTTL),
		MaxAttempts: domain.OtpMaxAttempts,
		IPAddress:   params.IPAddress,
		UserAgent:   params.UserAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to issue otp code: %w", err)
	}

	return otp, nil
}

func (s *otpService) Verify(ctx context.Context, userID, code, purpose string, referenceID *string) (*VerifyOtpResult, error) {
	if userID == "" || code == "" || purpose == "" {
		return nil, fmt.Errorf("user_id, code and purpose are required: %w", domain.ErrInvalidInput)
	}

	otp, err := s.repo.GetLatestActive(ctx, userID, purpose, referenceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load otp code: %w", err)
	}
	if otp == nil {
		return &VerifyOtpResult{Err: domain.ErrNotFound}, nil
	}

	if otp.IsExpired(s.now()) {
		return &VerifyOtpResult{Err: domain.ErrExpired, Method: otp.Type}, nil
	}

	if otp.IsExhausted() {
		return &VerifyOtpResult{Err: domain.ErrAttemptsExhausted, Method: otp.Type}, nil
	}

	// Exact string comparison; no fuzzy matching
	if otp.Code != code {
		attempts, err := s.repo.IncrementAttempts(ctx, otp.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to record otp attempt: %w", err)
		}

		remaining := otp.MaxAttempts - attempts
		if remaining <= 0 {
			return &VerifyOtpResult{Err: domain.ErrAttemptsExhausted, Method: otp.Type}, nil
		}
		return &VerifyOtpResult{
			Err:               domain.ErrVerificationFailed,
			Method:            otp.Type,
			RemainingAttempts: remaining,
		}, nil
	}

	// Single-use even on success
	if err := s.repo.MarkUsed(ctx, otp.ID); err != nil {
		return nil, fmt.Errorf("failed to consume otp code: %w", err)
	}

	return &VerifyOtpResult{Valid: true, Method: otp.Type}, nil
}

func (s *otpService) Deliver(ctx context.Context, otp *domain.OtpCode, employee *domain.Employee) error {
	switch otp.Type {
	case domain.OtpTypeEmail:
		if err := s.emailSender.Send(ctx, employee.Email, otp.Code); err != nil {
			return wrapDeliveryError("email", err)
		}
	case domain.OtpTypeSMS:
		if employee.PhoneNumber == nil || *employee.PhoneNumber == "" {
			return fmt.Errorf("employee %s has no phone on file: %w", employee.UserID, domain.ErrInvalidInput)
		}
		if err := s.smsSender.Send(ctx, *employee.PhoneNumber, otp.Code); err != nil {
			return wrapDeliveryError("sms", err)
		}
	case domain.OtpTypeTotp:
		// Authenticator-app codes are generated on the device; nothing to send
	default:
		return fmt.Errorf("unsupported otp type %q: %w", otp.Type, domain.ErrInvalidInput)
	}

	return nil
}

// generateNumericCode draws a fixed-length decimal code uniformly from a
// cryptographically secure source.
func generateNumericCode(length int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < length; i++ {
		max.Mul(max, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%0*d", length, n), nil
}
