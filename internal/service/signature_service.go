package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/thatlq1812/signature-system/internal/domain"
	"github.com/thatlq1812/signature-system/internal/repository"
	"github.com/thatlq1812/signature-system/pkg/hashutil"
)

type SignatureService interface {
	// Requester side
	CreateRequest(ctx context.Context, params CreateRequestParams) (*domain.SignatureRequest, error)

	// Signer side: verification protocol steps
	GetRequest(ctx context.Context, id string) (*domain.SignatureRequest, error)
	ListRequests(ctx context.Context, tenantID, signerID string) ([]*domain.SignatureRequest, error)
	MarkViewed(ctx context.Context, params ViewParams) (*domain.SignatureRequest, error)
	SubmitPassword(ctx context.Context, params PasswordParams) error
	SendOtp(ctx context.Context, params StepParams) (*domain.OtpCode, error)
	SubmitOtp(ctx context.Context, params OtpSubmitParams) (*VerifyOtpResult, error)
	SubmitPhrase(ctx context.Context, params PhraseParams) error
	FinalizeSignature(ctx context.Context, params FinalizeParams) (*domain.SignatureRequest, error)
	RejectRequest(ctx context.Context, params RejectParams) (*domain.SignatureRequest, error)

	// Read-only audit surface
	GetAuditTrail(ctx context.Context, requestID string) ([]*domain.AuditLogEntry, error)
	VerifySignature(ctx context.Context, requestID string) (*SignatureVerification, error)
}

// CreateRequestParams input from the requester collaborator
type CreateRequestParams struct {
	TenantID          string
	DocumentID        string
	SignerID          string
	RequestedBy       string
	Priority          domain.SignaturePriority
	DueDate           *time.Time
	RequirePassword   bool
	RequireOtp        bool
	RequirePhrase     bool
	MinReadingSeconds int
}

// StepParams identifies the request and the acting signer plus forensics
type StepParams struct {
	RequestID string
	SignerID  string
	Forensics domain.ForensicContext
}

type ViewParams struct {
	StepParams
	Reading domain.ReadingMetrics
}

type PasswordParams struct {
	StepParams
	Password string
}

type OtpSubmitParams struct {
	StepParams
	Code string
}

type PhraseParams struct {
	StepParams
	TypedPhrase string
}

type FinalizeParams struct {
	StepParams
	Reading domain.ReadingMetrics
}

type RejectParams struct {
	StepParams
	Reason string
}

// SignatureVerification is the post-hoc auditability result: the five
// log-based conditions reconstructed from the trail alone, never from the
// request's own status field.
type SignatureVerification struct {
	Valid            bool `json:"valid"`
	PasswordVerified bool `json:"password_verified"`
	OtpVerified      bool `json:"otp_verified"`
	PhraseVerified   bool `json:"phrase_verified"`
	ScrollComplete   bool `json:"scroll_complete"`
	ForensicsPresent bool `json:"forensics_present"`
}

type signatureService struct {
	requests  repository.SignatureRequestRepository
	audit     repository.AuditLogRepository
	documents repository.DocumentRepository
	employees repository.EmployeeRepository
	otp       OtpService
	notifier  Notifier
	now       func() time.Time
}

func NewSignatureService(
	requests repository.SignatureRequestRepository,
	audit repository.AuditLogRepository,
	documents repository.DocumentRepository,
	employees repository.EmployeeRepository,
	otp OtpService,
	notifier Notifier,
) SignatureService {
	return &signatureService{
		requests:  requests,
		audit:     audit,
		documents: documents,
		employees: employees,
		otp:       otp,
		notifier:  notifier,
		now:       time.Now,
	}
}

func (s *signatureService) CreateRequest(ctx context.Context, params CreateRequestParams) (*domain.SignatureRequest, error) {
	if params.TenantID == "" || params.DocumentID == "" || params.SignerID == "" || params.RequestedBy == "" {
		return nil, fmt.Errorf("tenant_id, document_id, signer_id and requested_by are required: %w", domain.ErrInvalidInput)
	}

	if params.Priority == "" {
		params.Priority = domain.PriorityNormal
	}
	if !domain.IsValidPriority(params.Priority) {
		return nil, fmt.Errorf("invalid priority %q: %w", params.Priority, domain.ErrInvalidInput)
	}
	if params.MinReadingSeconds <= 0 {
		params.MinReadingSeconds = domain.DefaultMinReadingSeconds
	}

	doc, err := s.documents.GetByID(ctx, params.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify document: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("document %s: %w", params.DocumentID, domain.ErrNotFound)
	}

	signer, err := s.employees.GetByUserID(ctx, params.SignerID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify signer: %w", err)
	}
	if signer == nil {
		return nil, fmt.Errorf("signer %s: %w", params.SignerID, domain.ErrNotFound)
	}

	// Exactly one non-REJECTED/EXPIRED request per (document, signer).
	// Re-requesting after a terminal non-SIGNED state creates a new row.
	existing, err := s.requests.GetActiveByDocumentAndSigner(ctx, params.DocumentID, params.SignerID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing request: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("request %s already covers document %s for signer %s: %w",
			existing.ID, params.DocumentID, params.SignerID, domain.ErrAlreadyExists)
	}

	req, err := s.requests.Create(ctx, domain.CreateSignatureRequestParams{
		TenantID:          params.TenantID,
		DocumentID:        params.DocumentID,
		SignerID:          params.SignerID,
		RequestedBy:       params.RequestedBy,
		Priority:          params.Priority,
		DueDate:           params.DueDate,
		RequirePassword:   params.RequirePassword,
		RequireOtp:        params.RequireOtp,
		RequirePhrase:     params.RequirePhrase,
		MinReadingSeconds: params.MinReadingSeconds,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create signature request: %w", err)
	}

	return req, nil
}

func (s *signatureService) GetRequest(ctx context.Context, id string) (*domain.SignatureRequest, error) {
	if id == "" {
		return nil, fmt.Errorf("request id is required: %w", domain.ErrInvalidInput)
	}

	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get signature request: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("signature request %s: %w", id, domain.ErrNotFound)
	}

	// Lazy expiry: a past-due request flips to EXPIRED on access; no
	// scheduled sweep is required for correctness.
	if !req.Status.IsTerminal() && req.IsPastDue(s.now()) {
		expired, err := s.requests.UpdateStatus(ctx, req.ID, domain.StatusExpired, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to expire signature request: %w", err)
		}
		return expired, nil
	}

	return req, nil
}

func (s *signatureService) ListRequests(ctx context.Context, tenantID, signerID string) ([]*domain.SignatureRequest, error) {
	if tenantID == "" || signerID == "" {
		return nil, fmt.Errorf("tenant_id and signer_id are required: %w", domain.ErrInvalidInput)
	}
	return s.requests.ListBySigner(ctx, tenantID, signerID)
}

// loadForSigner fetches the request (applying lazy expiry), then enforces
// signer identity and a non-terminal state for protocol steps.
func (s *signatureService) loadForSigner(ctx context.Context, requestID, signerID string) (*domain.SignatureRequest, error) {
	req, err := s.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if req.SignerID != signerID {
		return nil, fmt.Errorf("user %s is not the signer of request %s: %w", signerID, requestID, domain.ErrUnauthorized)
	}

	if req.Status == domain.StatusExpired {
		return nil, fmt.Errorf("request %s is past its due date: %w", requestID, domain.ErrExpired)
	}
	if req.Status.IsTerminal() {
		return nil, fmt.Errorf("request %s is %s: %w", requestID, req.Status, domain.ErrInvalidState)
	}

	return req, nil
}

func (s *signatureService) MarkViewed(ctx context.Context, params ViewParams) (*domain.SignatureRequest, error) {
	req, err := s.loadForSigner(ctx, params.RequestID, params.SignerID)
	if err != nil {
		return nil, err
	}

	if req.Status == domain.StatusPending {
		req, err = s.requests.UpdateStatus(ctx, req.ID, domain.StatusViewed, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to mark request viewed: %w", err)
		}
	}

	// Every view is logged, including repeat views of a VIEWED request
	_, err = s.audit.Append(ctx, domain.AppendAuditEntryParams{
		SignatureRequestID: req.ID,
		TenantID:           req.TenantID,
		SignerID:           req.SignerID,
		Action:             domain.ActionDocumentViewed,
		Forensics:          params.Forensics,
		Details: domain.DocumentViewedDetails{
			Reading:  params.Reading,
			ViewedAt: s.now(),
		},
	})
	if err != nil {
		return nil, err
	}

	return req, nil
}

func (s *signatureService) SubmitPassword(ctx context.Context, params PasswordParams) error {
	req, err := s.loadForSigner(ctx, params.RequestID, params.SignerID)
	if err != nil {
		return err
	}

	employee, err := s.employees.GetByUserID(ctx, params.SignerID)
	if err != nil {
		return fmt.Errorf("failed to load signer account: %w", err)
	}
	if employee == nil {
		return fmt.Errorf("signer %s: %w", params.SignerID, domain.ErrNotFound)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(employee.PasswordHash), []byte(params.Password)); err != nil {
		return fmt.Errorf("password re-entry did not match: %w", domain.ErrVerificationFailed)
	}

	_, err = s.audit.Append(ctx, domain.AppendAuditEntryParams{
		SignatureRequestID: req.ID,
		TenantID:           req.TenantID,
		SignerID:           req.SignerID,
		Action:             domain.ActionPasswordEntered,
		Forensics:          params.Forensics,
		Details: domain.PasswordDetails{
			Verified:   true,
			VerifiedAt: s.now(),
		},
	})
	return err
}

func (s *signatureService) SendOtp(ctx context.Context, params StepParams) (*domain.OtpCode, error) {
	req, err := s.loadForSigner(ctx, params.RequestID, params.SignerID)
	if err != nil {
		return nil, err
	}

	employee, err := s.employees.GetByUserID(ctx, params.SignerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load signer account: %w", err)
	}
	if employee == nil {
		return nil, fmt.Errorf("signer %s: %w", params.SignerID, domain.ErrNotFound)
	}

	refID := req.ID
	otp, err := s.otp.Create(ctx, CreateOtpInput{
		UserID:      params.SignerID,
		Type:        employee.PreferredOtpMethod(),
		Purpose:     domain.OtpPurposeDocumentSignature,
		ReferenceID: &refID,
		IPAddress:   params.Forensics.IPAddress,
		UserAgent:   params.Forensics.UserAgent,
	})
	if err != nil {
		return nil, err
	}

	// A provider failure leaves the code stored and valid; the caller may
	// retry issuance, which will invalidate this code and mint a new one.
	if err := s.otp.Deliver(ctx, otp, employee); err != nil {
		return nil, err
	}

	_, err = s.audit.Append(ctx, domain.AppendAuditEntryParams{
		SignatureRequestID: req.ID,
		TenantID:           req.TenantID,
		SignerID:           req.SignerID,
		Action:             domain.ActionOtpSent,
		Forensics:          params.Forensics,
		Details: domain.OtpSentDetails{
			Method:    otp.Type,
			SentAt:    s.now(),
			ExpiresAt: otp.ExpiresAt,
		},
	})
	if err != nil {
		return nil, err
	}

	return otp, nil
}

func (s *signatureService) SubmitOtp(ctx context.Context, params OtpSubmitParams) (*VerifyOtpResult, error) {
	req, err := s.loadForSigner(ctx, params.RequestID, params.SignerID)
	if err != nil {
		return nil, err
	}

	refID := req.ID
	result, err := s.otp.Verify(ctx, params.SignerID, params.Code, domain.OtpPurposeDocumentSignature, &refID)
	if err != nil {
		return nil, err
	}

	if !result.Valid {
		return result, nil
	}

	_, err = s.audit.Append(ctx, domain.AppendAuditEntryParams{
		SignatureRequestID: req.ID,
		TenantID:           req.TenantID,
		SignerID:           req.SignerID,
		Action:             domain.ActionOtpVerified,
		Forensics:          params.Forensics,
		Details: domain.OtpVerifiedDetails{
			Method:     result.Method,
			Verified:   true,
			VerifiedAt: s.now(),
		},
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *signatureService) SubmitPhrase(ctx context.Context, params PhraseParams) error {
	req, err := s.loadForSigner(ctx, params.RequestID, params.SignerID)
	if err != nil {
		return err
	}

	employee, err := s.employees.GetByUserID(ctx, params.SignerID)
	if err != nil {
		return fmt.Errorf("failed to load signer account: %w", err)
	}
	if employee == nil {
		return fmt.Errorf("signer %s: %w", params.SignerID, domain.ErrNotFound)
	}

	expected := ConfirmationPhrase(employee.FirstName, employee.LastName)
	if !ValidateConfirmationPhrase(params.TypedPhrase, expected) {
		return fmt.Errorf("confirmation phrase does not match: %w", domain.ErrVerificationFailed)
	}

	_, err = s.audit.Append(ctx, domain.AppendAuditEntryParams{
		SignatureRequestID: req.ID,
		TenantID:           req.TenantID,
		SignerID:           req.SignerID,
		Action:             domain.ActionPhraseVerified,
		Forensics:          params.Forensics,
		Details: domain.PhraseVerifiedDetails{
			TypedPhrase:    params.TypedPhrase,
			ExpectedPhrase: expected,
			Verified:       true,
			VerifiedAt:     s.now(),
		},
	})
	return err
}

func (s *signatureService) FinalizeSignature(ctx context.Context, params FinalizeParams) (*domain.SignatureRequest, error) {
	req, err := s.loadForSigner(ctx, params.RequestID, params.SignerID)
	if err != nil {
		return nil, err
	}

	trail, err := s.audit.ListByRequest(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	evidence := collectVerificationEvidence(req, trail)

	// Every unmet gate is reported at once, not one at a time
	var unmet []string
	if req.RequirePassword && !evidence.Password.Verified {
		unmet = append(unmet, "password re-entry not verified")
	}
	if req.RequireOtp && !evidence.Otp.Verified {
		unmet = append(unmet, "otp not verified")
	}
	if req.RequirePhrase && !evidence.Phrase.Verified {
		unmet = append(unmet, "confirmation phrase not verified")
	}

	// The reading gate is always on, even when every identity factor is
	// disabled by request policy.
	reading := ValidateReadingRequirements(params.Reading, req.MinReadingSeconds)
	unmet = append(unmet, reading.Errors...)

	if len(unmet) > 0 {
		return nil, &GateError{Unmet: unmet}
	}

	doc, err := s.documents.GetByID(ctx, req.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("document %s: %w", req.DocumentID, domain.ErrNotFound)
	}

	employee, err := s.employees.GetByUserID(ctx, params.SignerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load signer account: %w", err)
	}
	if employee == nil {
		return nil, fmt.Errorf("signer %s: %w", params.SignerID, domain.ErrNotFound)
	}

	signedAt := s.now()
	payload := BuildSignatureData(doc, employee, evidence, params.Reading, params.Forensics, signedAt)

	// Status flip and payload write are one conditional UPDATE; a request
	// that already reached a terminal state comes back ErrInvalidState with
	// its payload untouched.
	signed, err := s.requests.UpdateStatus(ctx, req.ID, domain.StatusSigned, &signedAt, payload)
	if err != nil {
		return nil, err
	}

	_, err = s.audit.Append(ctx, domain.AppendAuditEntryParams{
		SignatureRequestID: req.ID,
		TenantID:           req.TenantID,
		SignerID:           req.SignerID,
		Action:             domain.ActionSigned,
		Forensics:          params.Forensics,
		Details: domain.SignedDetails{
			DocumentHash: payload.Document.Hash,
			Reading:      params.Reading,
			SignedAt:     signedAt,
		},
	})
	if err != nil {
		return nil, err
	}

	signerName := employee.FirstName + " " + employee.LastName
	if err := s.notifier.NotifySigned(ctx, req.RequestedBy, signerName, doc.Name); err != nil {
		// Notification is best-effort; the signature itself is already durable
		log.Printf("failed to notify requester %s for request %s: %v", req.RequestedBy, req.ID, err)
	}

	return signed, nil
}

func (s *signatureService) RejectRequest(ctx context.Context, params RejectParams) (*domain.SignatureRequest, error) {
	req, err := s.loadForSigner(ctx, params.RequestID, params.SignerID)
	if err != nil {
		return nil, err
	}

	rejected, err := s.requests.UpdateStatus(ctx, req.ID, domain.StatusRejected, nil, nil)
	if err != nil {
		return nil, err
	}

	_, err = s.audit.Append(ctx, domain.AppendAuditEntryParams{
		SignatureRequestID: req.ID,
		TenantID:           req.TenantID,
		SignerID:           req.SignerID,
		Action:             domain.ActionRejected,
		Forensics:          params.Forensics,
		Details: domain.RejectedDetails{
			Reason:     params.Reason,
			RejectedAt: s.now(),
		},
	})
	if err != nil {
		return nil, err
	}

	return rejected, nil
}

func (s *signatureService) GetAuditTrail(ctx context.Context, requestID string) ([]*domain.AuditLogEntry, error) {
	if requestID == "" {
		return nil, fmt.Errorf("request id is required: %w", domain.ErrInvalidInput)
	}
	return s.audit.ListByRequest(ctx, requestID)
}

// VerifySignature reconstructs whether a complete proof chain exists from
// the audit trail alone. It deliberately ignores the request's status field
// so the trail stays self-verifying even if application state were
// tampered with.
func (s *signatureService) VerifySignature(ctx context.Context, requestID string) (*SignatureVerification, error) {
	trail, err := s.GetAuditTrail(ctx, requestID)
	if err != nil {
		return nil, err
	}

	var v SignatureVerification
	for _, entry := range trail {
		switch d := entry.Details.(type) {
		case domain.PasswordDetails:
			if d.Verified {
				v.PasswordVerified = true
			}
		case domain.OtpVerifiedDetails:
			if d.Verified {
				v.OtpVerified = true
			}
		case domain.PhraseVerifiedDetails:
			if d.Verified {
				v.PhraseVerified = true
			}
		case domain.DocumentViewedDetails:
			if d.Reading.ScrollPercentage == 100 {
				v.ScrollComplete = true
			}
		case domain.SignedDetails:
			if d.Reading.ScrollPercentage == 100 {
				v.ScrollComplete = true
			}
		}

		if hasValue(entry.Forensics.IPAddress) && hasValue(entry.Forensics.UserAgent) {
			v.ForensicsPresent = true
		}
	}

	v.Valid = v.PasswordVerified && v.OtpVerified && v.PhraseVerified &&
		v.ScrollComplete && v.ForensicsPresent

	return &v, nil
}

// collectVerificationEvidence folds the audit trail into per-gate results
// for the signature payload.
func collectVerificationEvidence(req *domain.SignatureRequest, trail []*domain.AuditLogEntry) domain.VerificationEvidence {
	evidence := domain.VerificationEvidence{
		PasswordRequired: req.RequirePassword,
		OtpRequired:      req.RequireOtp,
		PhraseRequired:   req.RequirePhrase,
	}

	for _, entry := range trail {
		switch d := entry.Details.(type) {
		case domain.PasswordDetails:
			if d.Verified {
				at := d.VerifiedAt
				evidence.Password = domain.ProofResult{Verified: true, VerifiedAt: &at}
			}
		case domain.OtpVerifiedDetails:
			if d.Verified {
				at := d.VerifiedAt
				method := d.Method
				evidence.Otp = domain.ProofResult{Verified: true, VerifiedAt: &at, Method: &method}
			}
		case domain.PhraseVerifiedDetails:
			if d.Verified {
				at := d.VerifiedAt
				evidence.Phrase = domain.ProofResult{Verified: true, VerifiedAt: &at}
			}
		}
	}

	return evidence
}

// BuildSignatureData assembles the frozen evidentiary bundle. Pure: the
// result is self-contained and never re-queries live state.
func BuildSignatureData(
	doc *domain.Document,
	signer *domain.Employee,
	verification domain.VerificationEvidence,
	reading domain.ReadingMetrics,
	forensics domain.ForensicContext,
	signedAt time.Time,
) *domain.SignatureData {
	return &domain.SignatureData{
		Version:  domain.SignatureDataVersion,
		SignedAt: signedAt,
		Document: domain.SignedDocument{
			ID:   doc.ID,
			Name: doc.Name,
			Hash: hashutil.Sum(doc.Content),
		},
		Signer: domain.SignerSnapshot{
			UserID:     signer.UserID,
			EmployeeID: signer.EmployeeID,
			FirstName:  signer.FirstName,
			LastName:   signer.LastName,
			Email:      signer.Email,
		},
		Verification: verification,
		Reading:      reading,
		Forensics:    forensics,
	}
}

func hasValue(s *string) bool {
	return s != nil && *s != ""
}
