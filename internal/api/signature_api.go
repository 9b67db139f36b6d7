package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/thatlq1812/signature-system/internal/domain"
	"github.com/thatlq1812/signature-system/internal/middleware"
	"github.com/thatlq1812/signature-system/internal/response"
	"github.com/thatlq1812/signature-system/internal/service"
	"github.com/thatlq1812/signature-system/pkg/validator"
)

// SignatureAPI exposes the signing protocol over HTTP
type SignatureAPI struct {
	service service.SignatureService
}

func NewSignatureAPI(svc service.SignatureService) *SignatureAPI {
	return &SignatureAPI{service: svc}
}

// RegisterRoutes mounts all signature endpoints under the given group
func (api *SignatureAPI) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/signature-requests", api.CreateRequest)
	rg.GET("/signature-requests", api.ListRequests)
	rg.GET("/signature-requests/:id", api.GetRequest)
	rg.POST("/signature-requests/:id/view", api.MarkViewed)
	rg.POST("/signature-requests/:id/verify/password", api.SubmitPassword)
	rg.POST("/signature-requests/:id/otp", api.SendOtp)
	rg.POST("/signature-requests/:id/verify/otp", api.SubmitOtp)
	rg.POST("/signature-requests/:id/verify/phrase", api.SubmitPhrase)
	rg.POST("/signature-requests/:id/sign", api.FinalizeSignature)
	rg.POST("/signature-requests/:id/reject", api.RejectRequest)
	rg.GET("/signature-requests/:id/audit-trail", api.GetAuditTrail)
	rg.GET("/signature-requests/:id/verification", api.VerifySignature)
}

// forensicsFrom builds the forensic context for a protocol step, filling
// IP and user agent from the request itself when not supplied.
func forensicsFrom(c *gin.Context, deviceFingerprint, geolocation string) domain.ForensicContext {
	ip := c.ClientIP()
	ua := c.GetHeader("User-Agent")

	forensics := domain.ForensicContext{}
	if ip != "" {
		forensics.IPAddress = &ip
	}
	if ua != "" {
		forensics.UserAgent = &ua
	}
	if deviceFingerprint != "" {
		forensics.DeviceFingerprint = &deviceFingerprint
	}
	if geolocation != "" {
		forensics.Geolocation = &geolocation
	}
	return forensics
}

func requestToJSON(req *domain.SignatureRequest) gin.H {
	return gin.H{
		"id":                  req.ID,
		"tenant_id":           req.TenantID,
		"document_id":         req.DocumentID,
		"signer_id":           req.SignerID,
		"requested_by":        req.RequestedBy,
		"status":              req.Status,
		"priority":            req.Priority,
		"due_date":            req.DueDate,
		"require_password":    req.RequirePassword,
		"require_otp":         req.RequireOtp,
		"require_phrase":      req.RequirePhrase,
		"min_reading_seconds": req.MinReadingSeconds,
		"signed_at":           req.SignedAt,
		"signature_payload":   req.SignaturePayload,
		"created_at":          req.CreatedAt,
		"updated_at":          req.UpdatedAt,
	}
}

// CreateRequest handles POST /api/v1/signature-requests
func (api *SignatureAPI) CreateRequest(c *gin.Context) {
	var reqBody struct {
		TenantID          string     `json:"tenant_id" binding:"required"`
		DocumentID        string     `json:"document_id" binding:"required"`
		SignerID          string     `json:"signer_id" binding:"required"`
		Priority          string     `json:"priority" binding:"omitempty,oneof=LOW NORMAL HIGH URGENT"`
		DueDate           *time.Time `json:"due_date"`
		RequirePassword   *bool      `json:"require_password"`
		RequireOtp        *bool      `json:"require_otp"`
		RequirePhrase     *bool      `json:"require_phrase"`
		MinReadingSeconds int        `json:"min_reading_seconds"`
	}

	if err := c.ShouldBindJSON(&reqBody); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		return
	}

	requestedBy, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "missing authenticated user")
		return
	}

	// All three factors default to required unless explicitly disabled
	requireOr := func(v *bool) bool {
		if v == nil {
			return true
		}
		return *v
	}

	req, err := api.service.CreateRequest(c.Request.Context(), service.CreateRequestParams{
		TenantID:          reqBody.TenantID,
		DocumentID:        reqBody.DocumentID,
		SignerID:          reqBody.SignerID,
		RequestedBy:       requestedBy,
		Priority:          domain.SignaturePriority(reqBody.Priority),
		DueDate:           reqBody.DueDate,
		RequirePassword:   requireOr(reqBody.RequirePassword),
		RequireOtp:        requireOr(reqBody.RequireOtp),
		RequirePhrase:     requireOr(reqBody.RequirePhrase),
		MinReadingSeconds: reqBody.MinReadingSeconds,
	})
	if err != nil {
		response.ErrorFromDomain(c, err)
		return
	}

	response.Created(c, requestToJSON(req))
}

// ListRequests handles GET /api/v1/signature-requests?tenant_id=...
func (api *SignatureAPI) ListRequests(c *gin.Context) {
	tenantID := c.Query("tenant_id")
	signerID, _ := middleware.GetUserID(c)

	requests, err := api.service.ListRequests(c.Request.Context(), tenantID, signerID)
	if err != nil {
		response.ErrorFromDomain(c, err)
		return
	}

	items := make([]gin.H, len(requests))
	for i, req := range requests {
		items[i] = requestToJSON(req)
	}

	response.Success(c, gin.H{"items": items, "total": len(items)})
}

// GetRequest handles GET /api/v1/signature-requests/:id
func (api *SignatureAPI) GetRequest(c *gin.Context) {
	id := c.Param("id")
	if err := validator.ValidateUUID(id); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		return
	}

	req, err := api.service.GetRequest(c.Request.Context(), id)
	if err != nil {
		response.ErrorFromDomain(c, err)
		return
	}

	response.Success(c, requestToJSON(req))
}

// MarkViewed handles POST /api/v1/signature-requests/:id/view
func (api *SignatureAPI) MarkViewed(c *gin.Context) {
	var reqBody struct {
		ScrollPercentage  int    `json:"scroll_percentage"`
		TimeOnDocument    int    `json:"time_on_document"`
		PagesViewed       int    `json:"pages_viewed"`
		TotalPages        int    `json:"total_pages"`
		DeviceFingerprint string `json:"device_fingerprint"`
		Geolocation       string `json:"geolocation"`
	}

	if err := c.ShouldBindJSON(&reqBody); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		return
	}

	step, ok := api.stepParams(c, reqBody.DeviceFingerprint, reqBody.Geolocation)
	if !ok {
		return
	}

	req, err := api.service.MarkViewed(c.Request.Context(), service.ViewParams{
		StepParams: step,
		Reading: domain.ReadingMetrics{
			ScrollPercentage: reqBody.ScrollPercentage,
			TimeOnDocument:   reqBody.TimeOnDocument,
			PagesViewed:      reqBody.PagesViewed,
			TotalPages:       reqBody.TotalPages,
		},
	})
	if err != nil {
		response.ErrorFromDomain(c, err)
		return
	}

	response.Success(c, requestToJSON(req))
}

// SubmitPassword handles POST /api/v1/signature-requests/:id/verify/password
func (api *SignatureAPI) SubmitPassword(c *gin.Context) {
	var reqBody struct {
		Password          string `json:"password" binding:"required"`
		DeviceFingerprint string `json:"device_fingerprint"`
		Geolocation       string `json:"geolocation"`
	}

	if err := c.ShouldBindJSON(&reqBody); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		return
	}

	step, ok := api.stepParams(c, reqBody.DeviceFingerprint, reqBody.Geolocation)
	if !ok {
		return
	}

	err := api.service.SubmitPassword(c.Request.Context(), service.PasswordParams{
		StepParams: step,
		Password:   reqBody.Password,
	})
	if err != nil {
		response.ErrorFromDomain(c, err)
		return
	}

	response.Success(c, gin.H{"verified": true})
}

// SendOtp handles POST /api/v1/signature-requests/:id/otp
func (api *SignatureAPI) SendOtp(c *gin.Context) {
	var reqBody struct {
		DeviceFingerprint string `json:"device_fingerprint"`
		Geolocation       string `json:"geolocation"`
	}
	// Body is optional for issuance
	_ = c.ShouldBindJSON(&reqBody)

	step, ok := api.stepParams(c, reqBody.DeviceFingerprint, reqBody.Geolocation)
	if !ok {
		return
	}

	otp, err := api.service.SendOtp(c.Request.Context(), step)
	if err != nil {
		response.ErrorFromDomain(c, err)
		return
	}

	// The plaintext code never leaves the delivery channel
	response.Success(c, gin.H{
		"method":     otp.Type,
		"expires_at": otp.ExpiresAt,
	})
}

// SubmitOtp handles POST /api/v1/signature-requests/:id/verify/otp
func (api *SignatureAPI) SubmitOtp(c *gin.Context) {
	var reqBody struct {
		Code              string `json:"code" binding:"required"`
		DeviceFingerprint string `json:"device_fingerprint"`
		Geolocation       string `json:"geolocation"`
	}

	if err := c.ShouldBindJSON(&reqBody); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		return
	}

	if err := validator.ValidateOtpCode(reqBody.Code); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		return
	}

	step, ok := api.stepParams(c, reqBody.DeviceFingerprint, reqBody.Geolocation)
	if !ok {
		return
	}

	result, err := api.service.SubmitOtp(c.Request.Context(), service.OtpSubmitParams{
		StepParams: step,
		Code:       reqBody.Code,
	})
	if err != nil {
		response.ErrorFromDomain(c, err)
		return
	}

	if !result.Valid {
		api.otpFailure(c, result)
		return
	}

	response.Success(c, gin.H{"verified": true, "method": result.Method})
}

// otpFailure reports an expected OTP failure with structured detail so the
// client can prompt corrective action.
func (api *SignatureAPI) otpFailure(c *gin.Context, result *service.VerifyOtpResult) {
	body := gin.H{"verified": false}

	switch {
	case errors.Is(result.Err, domain.ErrNotFound):
		body["reason"] = "no active code; request a new one"
		c.JSON(http.StatusNotFound, gin.H{"code": response.CodeNotFound, "message": "otp not found", "data": body})
	case errors.Is(result.Err, domain.ErrExpired):
		body["reason"] = "code expired; request a new one"
		c.JSON(http.StatusGone, gin.H{"code": response.CodeGone, "message": "otp expired", "data": body})
	case errors.Is(result.Err, domain.ErrAttemptsExhausted):
		body["reason"] = "attempt budget spent; request a new code"
		c.JSON(http.StatusTooManyRequests, gin.H{"code": response.CodeTooManyAttempts, "message": "otp attempts exhausted", "data": body})
	default:
		body["remaining_attempts"] = result.RemainingAttempts
		c.JSON(http.StatusUnprocessableEntity, gin.H{"code": response.CodeUnprocessable, "message": "wrong otp code", "data": body})
	}
}

// SubmitPhrase handles POST /api/v1/signature-requests/:id/verify/phrase
func (api *SignatureAPI) SubmitPhrase(c *gin.Context) {
	var reqBody struct {
		Phrase            string `json:"phrase" binding:"required"`
		DeviceFingerprint string `json:"device_fingerprint"`
		Geolocation       string `json:"geolocation"`
	}

	if err := c.ShouldBindJSON(&reqBody); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		return
	}

	step, ok := api.stepParams(c, reqBody.DeviceFingerprint, reqBody.Geolocation)
	if !ok {
		return
	}

	err := api.service.SubmitPhrase(c.Request.Context(), service.PhraseParams{
		StepParams:  step,
		TypedPhrase: reqBody.Phrase,
	})
	if err != nil {
		response.ErrorFromDomain(c, err)
		return
	}

	response.Success(c, gin.H{"verified": true})
}

// FinalizeSignature handles POST /api/v1/signature-requests/:id/sign
func (api *SignatureAPI) FinalizeSignature(c *gin.Context) {
	var reqBody struct {
		ScrollPercentage  int    `json:"scroll_percentage"`
		TimeOnDocument    int    `json:"time_on_document"`
		PagesViewed       int    `json:"pages_viewed"`
		TotalPages        int    `json:"total_pages"`
		DeviceFingerprint string `json:"device_fingerprint"`
		Geolocation       string `json:"geolocation"`
	}

	if err := c.ShouldBindJSON(&reqBody); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		return
	}

	step, ok := api.stepParams(c, reqBody.DeviceFingerprint, reqBody.Geolocation)
	if !ok {
		return
	}

	req, err := api.service.FinalizeSignature(c.Request.Context(), service.FinalizeParams{
		StepParams: step,
		Reading: domain.ReadingMetrics{
			ScrollPercentage: reqBody.ScrollPercentage,
			TimeOnDocument:   reqBody.TimeOnDocument,
			PagesViewed:      reqBody.PagesViewed,
			TotalPages:       reqBody.TotalPages,
		},
	})
	if err != nil {
		// Gate failures carry the full checklist of unmet conditions
		var gateErr *service.GateError
		if errors.As(err, &gateErr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"code":    response.CodeUnprocessable,
				"message": "signing blocked by unmet gates",
				"data":    gin.H{"unmet": gateErr.Unmet},
			})
			return
		}
		response.ErrorFromDomain(c, err)
		return
	}

	response.Success(c, requestToJSON(req))
}

// RejectRequest handles POST /api/v1/signature-requests/:id/reject
func (api *SignatureAPI) RejectRequest(c *gin.Context) {
	var reqBody struct {
		Reason            string `json:"reason" binding:"required"`
		DeviceFingerprint string `json:"device_fingerprint"`
		Geolocation       string `json:"geolocation"`
	}

	if err := c.ShouldBindJSON(&reqBody); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		return
	}

	step, ok := api.stepParams(c, reqBody.DeviceFingerprint, reqBody.Geolocation)
	if !ok {
		return
	}

	req, err := api.service.RejectRequest(c.Request.Context(), service.RejectParams{
		StepParams: step,
		Reason:     reqBody.Reason,
	})
	if err != nil {
		response.ErrorFromDomain(c, err)
		return
	}

	response.Success(c, requestToJSON(req))
}

// GetAuditTrail handles GET /api/v1/signature-requests/:id/audit-trail
func (api *SignatureAPI) GetAuditTrail(c *gin.Context) {
	id := c.Param("id")
	if err := validator.ValidateUUID(id); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		return
	}

	trail, err := api.service.GetAuditTrail(c.Request.Context(), id)
	if err != nil {
		response.ErrorFromDomain(c, err)
		return
	}

	items := make([]gin.H, len(trail))
	for i, entry := range trail {
		items[i] = gin.H{
			"id":                   entry.ID,
			"signature_request_id": entry.SignatureRequestID,
			"signer_id":            entry.SignerID,
			"action":               entry.Action,
			"ip_address":           entry.Forensics.IPAddress,
			"user_agent":           entry.Forensics.UserAgent,
			"device_fingerprint":   entry.Forensics.DeviceFingerprint,
			"geolocation":          entry.Forensics.Geolocation,
			"details":              entry.Details,
			"created_at":           entry.CreatedAt,
		}
	}

	response.Success(c, gin.H{"items": items, "total": len(items)})
}

// VerifySignature handles GET /api/v1/signature-requests/:id/verification
func (api *SignatureAPI) VerifySignature(c *gin.Context) {
	id := c.Param("id")
	if err := validator.ValidateUUID(id); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		return
	}

	result, err := api.service.VerifySignature(c.Request.Context(), id)
	if err != nil {
		response.ErrorFromDomain(c, err)
		return
	}

	response.Success(c, result)
}

// stepParams assembles the common step input: path id, authenticated
// signer and forensic context.
func (api *SignatureAPI) stepParams(c *gin.Context, deviceFingerprint, geolocation string) (service.StepParams, bool) {
	id := c.Param("id")
	if err := validator.ValidateUUID(id); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		return service.StepParams{}, false
	}

	signerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "missing authenticated user")
		return service.StepParams{}, false
	}

	return service.StepParams{
		RequestID: id,
		SignerID:  signerID,
		Forensics: forensicsFrom(c, deviceFingerprint, geolocation),
	}, true
}
