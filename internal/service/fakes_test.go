package service

import (
	"context"
	"fmt"
	"time"

	"github.com/thatlq1812/signature-system/internal/domain"
)

// In-memory fakes standing in for the pgx repositories.

type fakeOtpRepository struct {
	codes  []*domain.OtpCode
	nextID int
}

func newFakeOtpRepository() *fakeOtpRepository {
	return &fakeOtpRepository{}
}

func sameKey(c *domain.OtpCode, userID, purpose string, referenceID *string) bool {
	if c.UserID != userID || c.Purpose != purpose {
		return false
	}
	if (c.ReferenceID == nil) != (referenceID == nil) {
		return false
	}
	return c.ReferenceID == nil || *c.ReferenceID == *referenceID
}

func (r *fakeOtpRepository) CreateWithInvalidation(ctx context.Context, params domain.CreateOtpParams) (*domain.OtpCode, error) {
	now := time.Now()
	for _, c := range r.codes {
		if sameKey(c, params.UserID, params.Purpose, params.ReferenceID) && c.UsedAt == nil {
			used := now
			c.UsedAt = &used
		}
	}

	r.nextID++
	otp := &domain.OtpCode{
		ID:          fmt.Sprintf("otp-%d", r.nextID),
		UserID:      params.UserID,
		Code:        params.Code,
		Type:        params.Type,
		Purpose:     params.Purpose,
		ReferenceID: params.ReferenceID,
		ExpiresAt:   params.ExpiresAt,
		MaxAttempts: params.MaxAttempts,
		IPAddress:   params.IPAddress,
		UserAgent:   params.UserAgent,
		CreatedAt:   now,
	}
	r.codes = append(r.codes, otp)
	return otp, nil
}

func (r *fakeOtpRepository) GetLatestActive(ctx context.Context, userID, purpose string, referenceID *string) (*domain.OtpCode, error) {
	for i := len(r.codes) - 1; i >= 0; i-- {
		c := r.codes[i]
		if sameKey(c, userID, purpose, referenceID) && c.UsedAt == nil {
			return c, nil
		}
	}
	return nil, nil
}

func (r *fakeOtpRepository) IncrementAttempts(ctx context.Context, id string) (int, error) {
	for _, c := range r.codes {
		if c.ID == id {
			c.Attempts++
			return c.Attempts, nil
		}
	}
	return 0, fmt.Errorf("otp %s not found", id)
}

func (r *fakeOtpRepository) MarkUsed(ctx context.Context, id string) error {
	for _, c := range r.codes {
		if c.ID == id {
			if c.UsedAt != nil {
				return fmt.Errorf("otp code %s already used: %w", id, domain.ErrInvalidState)
			}
			used := time.Now()
			c.UsedAt = &used
			return nil
		}
	}
	return fmt.Errorf("otp %s not found", id)
}

type fakeRequestRepository struct {
	requests []*domain.SignatureRequest
	nextID   int
}

func newFakeRequestRepository() *fakeRequestRepository {
	return &fakeRequestRepository{}
}

func (r *fakeRequestRepository) Create(ctx context.Context, params domain.CreateSignatureRequestParams) (*domain.SignatureRequest, error) {
	r.nextID++
	now := time.Now()
	req := &domain.SignatureRequest{
		ID:                fmt.Sprintf("req-%d", r.nextID),
		TenantID:          params.TenantID,
		DocumentID:        params.DocumentID,
		SignerID:          params.SignerID,
		RequestedBy:       params.RequestedBy,
		Status:            domain.StatusPending,
		Priority:          params.Priority,
		DueDate:           params.DueDate,
		RequirePassword:   params.RequirePassword,
		RequireOtp:        params.RequireOtp,
		RequirePhrase:     params.RequirePhrase,
		MinReadingSeconds: params.MinReadingSeconds,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	r.requests = append(r.requests, req)
	clone := *req
	return &clone, nil
}

func (r *fakeRequestRepository) find(id string) *domain.SignatureRequest {
	for _, req := range r.requests {
		if req.ID == id {
			return req
		}
	}
	return nil
}

func (r *fakeRequestRepository) GetByID(ctx context.Context, id string) (*domain.SignatureRequest, error) {
	req := r.find(id)
	if req == nil {
		return nil, nil
	}
	clone := *req
	return &clone, nil
}

func (r *fakeRequestRepository) GetActiveByDocumentAndSigner(ctx context.Context, documentID, signerID string) (*domain.SignatureRequest, error) {
	for i := len(r.requests) - 1; i >= 0; i-- {
		req := r.requests[i]
		if req.DocumentID == documentID && req.SignerID == signerID &&
			req.Status != domain.StatusRejected && req.Status != domain.StatusExpired {
			clone := *req
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeRequestRepository) ListBySigner(ctx context.Context, tenantID, signerID string) ([]*domain.SignatureRequest, error) {
	var result []*domain.SignatureRequest
	for i := len(r.requests) - 1; i >= 0; i-- {
		req := r.requests[i]
		if req.TenantID == tenantID && req.SignerID == signerID {
			clone := *req
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (r *fakeRequestRepository) UpdateStatus(ctx context.Context, id string, status domain.SignatureStatus, signedAt *time.Time, payload *domain.SignatureData) (*domain.SignatureRequest, error) {
	req := r.find(id)
	if req == nil {
		return nil, domain.ErrNotFound
	}
	if req.Status != domain.StatusPending && req.Status != domain.StatusViewed {
		return nil, fmt.Errorf("request %s is %s: %w", id, req.Status, domain.ErrInvalidState)
	}

	req.Status = status
	if signedAt != nil {
		req.SignedAt = signedAt
	}
	if payload != nil {
		req.SignaturePayload = payload
	}
	req.UpdatedAt = time.Now()

	clone := *req
	return &clone, nil
}

type fakeAuditRepository struct {
	entries []*domain.AuditLogEntry
	nextID  int
}

func newFakeAuditRepository() *fakeAuditRepository {
	return &fakeAuditRepository{}
}

func (r *fakeAuditRepository) Append(ctx context.Context, params domain.AppendAuditEntryParams) (*domain.AuditLogEntry, error) {
	r.nextID++
	entry := &domain.AuditLogEntry{
		ID:                 fmt.Sprintf("audit-%d", r.nextID),
		SignatureRequestID: params.SignatureRequestID,
		TenantID:           params.TenantID,
		SignerID:           params.SignerID,
		Action:             params.Action,
		Forensics:          params.Forensics,
		Details:            params.Details,
		CreatedAt:          time.Now(),
	}
	r.entries = append(r.entries, entry)
	return entry, nil
}

func (r *fakeAuditRepository) ListByRequest(ctx context.Context, signatureRequestID string) ([]*domain.AuditLogEntry, error) {
	var result []*domain.AuditLogEntry
	for _, entry := range r.entries {
		if entry.SignatureRequestID == signatureRequestID {
			result = append(result, entry)
		}
	}
	return result, nil
}

// removeByAction drops every entry with the given action, simulating a
// tampered or incomplete trail.
func (r *fakeAuditRepository) removeByAction(action domain.AuditAction) {
	var kept []*domain.AuditLogEntry
	for _, entry := range r.entries {
		if entry.Action != action {
			kept = append(kept, entry)
		}
	}
	r.entries = kept
}

type fakeDocumentRepository struct {
	docs map[string]*domain.Document
}

func newFakeDocumentRepository(docs ...*domain.Document) *fakeDocumentRepository {
	r := &fakeDocumentRepository{docs: make(map[string]*domain.Document)}
	for _, d := range docs {
		r.docs[d.ID] = d
	}
	return r
}

func (r *fakeDocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	return r.docs[id], nil
}

type fakeEmployeeRepository struct {
	employees map[string]*domain.Employee
}

func newFakeEmployeeRepository(employees ...*domain.Employee) *fakeEmployeeRepository {
	r := &fakeEmployeeRepository{employees: make(map[string]*domain.Employee)}
	for _, e := range employees {
		r.employees[e.UserID] = e
	}
	return r
}

func (r *fakeEmployeeRepository) GetByUserID(ctx context.Context, userID string) (*domain.Employee, error) {
	return r.employees[userID], nil
}

type fakeSender struct {
	sent []string
	err  error
}

func (s *fakeSender) Send(ctx context.Context, recipient, code string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, code)
	return nil
}

type fakeNotifier struct {
	notified []string
}

func (n *fakeNotifier) NotifySigned(ctx context.Context, requestedBy, signerName, documentName string) error {
	n.notified = append(n.notified, fmt.Sprintf("%s:%s:%s", requestedBy, signerName, documentName))
	return nil
}
