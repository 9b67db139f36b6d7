package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/thatlq1812/signature-system/internal/domain"
)

func newTestOtpService(repo *fakeOtpRepository) (*otpService, *fakeSender, *fakeSender) {
	email := &fakeSender{}
	sms := &fakeSender{}
	svc := &otpService{
		repo:        repo,
		emailSender: email,
		smsSender:   sms,
		now:         time.Now,
	}
	return svc, email, sms
}

func strPtr(s string) *string {
	return &s
}

func TestOtpCreateInvalidatesPriorCode(t *testing.T) {
	ctx := context.Background()
	repo := newFakeOtpRepository()
	svc, _, _ := newTestOtpService(repo)

	input := CreateOtpInput{
		UserID:      "user-1",
		Type:        domain.OtpTypeEmail,
		Purpose:     domain.OtpPurposeDocumentSignature,
		ReferenceID: strPtr("req-1"),
	}

	first, err := svc.Create(ctx, input)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(first.Code) != domain.OtpCodeLength {
		t.Fatalf("code length = %d, want %d", len(first.Code), domain.OtpCodeLength)
	}

	second, err := svc.Create(ctx, input)
	if err != nil {
		t.Fatalf("Create() second error = %v", err)
	}

	// The first code is now invalidated
	if repo.codes[0].UsedAt == nil {
		t.Error("expected first code to be marked used after reissue")
	}

	result, err := svc.Verify(ctx, "user-1", first.Code, input.Purpose, input.ReferenceID)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if result.Valid {
		t.Error("invalidated code must not verify")
	}

	result, err = svc.Verify(ctx, "user-1", second.Code, input.Purpose, input.ReferenceID)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !result.Valid {
		t.Errorf("latest code should verify, got err %v", result.Err)
	}
}

func TestOtpVerifySingleUse(t *testing.T) {
	ctx := context.Background()
	repo := newFakeOtpRepository()
	svc, _, _ := newTestOtpService(repo)

	otp, err := svc.Create(ctx, CreateOtpInput{
		UserID:  "user-1",
		Type:    domain.OtpTypeEmail,
		Purpose: domain.OtpPurposeDocumentSignature,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	result, err := svc.Verify(ctx, "user-1", otp.Code, domain.OtpPurposeDocumentSignature, nil)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !result.Valid {
		t.Fatalf("first verification should succeed, got err %v", result.Err)
	}
	if result.Method != domain.OtpTypeEmail {
		t.Errorf("method = %s, want EMAIL", result.Method)
	}

	// Replaying the same code finds no active code
	result, err = svc.Verify(ctx, "user-1", otp.Code, domain.OtpPurposeDocumentSignature, nil)
	if err != nil {
		t.Fatalf("Verify() replay error = %v", err)
	}
	if result.Valid || !errors.Is(result.Err, domain.ErrNotFound) {
		t.Errorf("replay should report ErrNotFound, got valid=%v err=%v", result.Valid, result.Err)
	}
}

func TestOtpVerifyAttemptBudget(t *testing.T) {
	ctx := context.Background()
	repo := newFakeOtpRepository()
	svc, _, _ := newTestOtpService(repo)

	otp, err := svc.Create(ctx, CreateOtpInput{
		UserID:  "user-1",
		Type:    domain.OtpTypeEmail,
		Purpose: domain.OtpPurposeDocumentSignature,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	wrong := "000000"
	if wrong == otp.Code {
		wrong = "000001"
	}

	// Two wrong guesses leave attempts remaining
	for i, wantRemaining := range []int{2, 1} {
		result, err := svc.Verify(ctx, "user-1", wrong, domain.OtpPurposeDocumentSignature, nil)
		if err != nil {
			t.Fatalf("Verify() wrong guess %d error = %v", i+1, err)
		}
		if result.Valid || !errors.Is(result.Err, domain.ErrVerificationFailed) {
			t.Fatalf("wrong guess %d: valid=%v err=%v, want ErrVerificationFailed", i+1, result.Valid, result.Err)
		}
		if result.RemainingAttempts != wantRemaining {
			t.Errorf("wrong guess %d: remaining = %d, want %d", i+1, result.RemainingAttempts, wantRemaining)
		}
	}

	// Third wrong guess exhausts the budget
	result, err := svc.Verify(ctx, "user-1", wrong, domain.OtpPurposeDocumentSignature, nil)
	if err != nil {
		t.Fatalf("Verify() third guess error = %v", err)
	}
	if !errors.Is(result.Err, domain.ErrAttemptsExhausted) {
		t.Fatalf("third wrong guess should exhaust attempts, got %v", result.Err)
	}

	// Even the correct code is refused afterwards
	result, err = svc.Verify(ctx, "user-1", otp.Code, domain.OtpPurposeDocumentSignature, nil)
	if err != nil {
		t.Fatalf("Verify() after exhaustion error = %v", err)
	}
	if result.Valid || !errors.Is(result.Err, domain.ErrAttemptsExhausted) {
		t.Errorf("exhausted code must stay refused, got valid=%v err=%v", result.Valid, result.Err)
	}
}

func TestOtpVerifyExpiry(t *testing.T) {
	ctx := context.Background()
	repo := newFakeOtpRepository()
	svc, _, _ := newTestOtpService(repo)

	issued := time.Now()
	svc.now = func() time.Time { return issued }

	otp, err := svc.Create(ctx, CreateOtpInput{
		UserID:  "user-1",
		Type:    domain.OtpTypeEmail,
		Purpose: domain.OtpPurposeDocumentSignature,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	svc.now = func() time.Time { return issued.Add(6 * time.Minute) }

	result, err := svc.Verify(ctx, "user-1", otp.Code, domain.OtpPurposeDocumentSignature, nil)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if result.Valid || !errors.Is(result.Err, domain.ErrExpired) {
		t.Errorf("expired code: valid=%v err=%v, want ErrExpired", result.Valid, result.Err)
	}
}

func TestOtpVerifyWithoutIssuance(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestOtpService(newFakeOtpRepository())

	result, err := svc.Verify(ctx, "user-1", "123456", domain.OtpPurposeDocumentSignature, nil)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if result.Valid || !errors.Is(result.Err, domain.ErrNotFound) {
		t.Errorf("no issued code: valid=%v err=%v, want ErrNotFound", result.Valid, result.Err)
	}
}

func TestOtpDeliver(t *testing.T) {
	ctx := context.Background()

	t.Run("Email delivery", func(t *testing.T) {
		svc, email, _ := newTestOtpService(newFakeOtpRepository())
		employee := &domain.Employee{UserID: "user-1", Email: "mario.rossi@example.com"}

		err := svc.Deliver(ctx, &domain.OtpCode{Type: domain.OtpTypeEmail, Code: "123456"}, employee)
		if err != nil {
			t.Fatalf("Deliver() error = %v", err)
		}
		if len(email.sent) != 1 || email.sent[0] != "123456" {
			t.Errorf("email sender got %v, want the code once", email.sent)
		}
	})

	t.Run("SMS without phone number", func(t *testing.T) {
		svc, _, _ := newTestOtpService(newFakeOtpRepository())
		employee := &domain.Employee{UserID: "user-1", Email: "mario.rossi@example.com"}

		err := svc.Deliver(ctx, &domain.OtpCode{Type: domain.OtpTypeSMS, Code: "123456"}, employee)
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("Deliver() error = %v, want ErrInvalidInput", err)
		}
	})

	t.Run("Provider failure leaves code valid", func(t *testing.T) {
		repo := newFakeOtpRepository()
		svc, email, _ := newTestOtpService(repo)
		email.err = errors.New("smtp unavailable")

		otp, err := svc.Create(ctx, CreateOtpInput{
			UserID:  "user-1",
			Type:    domain.OtpTypeEmail,
			Purpose: domain.OtpPurposeDocumentSignature,
		})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		employee := &domain.Employee{UserID: "user-1", Email: "mario.rossi@example.com"}
		err = svc.Deliver(ctx, otp, employee)
		if !errors.Is(err, domain.ErrDeliveryFailure) {
			t.Fatalf("Deliver() error = %v, want ErrDeliveryFailure", err)
		}

		// The stored code is untouched by the delivery failure
		result, err := svc.Verify(ctx, "user-1", otp.Code, domain.OtpPurposeDocumentSignature, nil)
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if !result.Valid {
			t.Errorf("code should still verify after delivery failure, got err %v", result.Err)
		}
	})
}

func TestOtpCreateValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestOtpService(newFakeOtpRepository())

	_, err := svc.Create(ctx, CreateOtpInput{Type: domain.OtpTypeEmail, Purpose: "x"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("missing user_id: error = %v, want ErrInvalidInput", err)
	}

	_, err = svc.Create(ctx, CreateOtpInput{UserID: "user-1", Type: "PIGEON", Purpose: "x"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("bad type: error = %v, want ErrInvalidInput", err)
	}
}
