// internal/handlers/verification.go
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vistaprohq/vistapro-backend/internal/models"
	"github.com/vistaprohq/vistapro-backend/internal/services"
	"github.com/vistaprohq/vistapro-backend/internal/utils"
)

type VerificationHandler struct {
	verification *services.VerificationService
	storage      *services.StorageService
}

func NewVerificationHandler(verification *services.VerificationService, storage *services.StorageService) *VerificationHandler {
	return &VerificationHandler{verification: verification, storage: storage}
}

func (h *VerificationHandler) GetMySubmission(c *gin.Context) {
	marketerID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	submission, err := h.verification.GetOrCreateSubmission(marketerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.SuccessResponse(c, submission)
}

// SubmitForm takes a multipart form: the "form" field names which form is
// being completed, the optional "document" file backs it up.
func (h *VerificationHandler) SubmitForm(c *gin.Context) {
	marketerID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	form := models.FormType(c.PostForm("form"))
	documentURL := ""

	if file, header, err := c.Request.FormFile("document"); err == nil {
		defer file.Close()
		result, err := h.storage.UploadDocument(marketerID, form, file, header)
		if err != nil {
			utils.BadRequestResponse(c, err.Error(), nil)
			return
		}
		documentURL = result.URL
	}

	submission, err := h.verification.SubmitForm(marketerID, form, documentURL)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.SuccessMessageResponse(c, "Form submitted", submission)
}

func (h *VerificationHandler) GetSubmission(c *gin.Context) {
	submissionID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	submission, err := h.verification.GetByID(submissionID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.SuccessResponse(c, submission)
}

func (h *VerificationHandler) ListSubmissions(c *gin.Context) {
	var status *models.SubmissionStatus
	if raw := c.Query("status"); raw != "" {
		s := models.SubmissionStatus(raw)
		status = &s
	}

	result, err := h.verification.ListSubmissions(status, utils.GetPaginationParams(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.PaginatedResponse(c, *result)
}

type reviewRequest struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes" validate:"max=2000"`
}

func (h *VerificationHandler) AdminReview(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	submissionID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req reviewRequest
	if !bindAndValidate(c, &req) {
		return
	}

	submission, err := h.verification.AdminReview(submissionID, adminID, req.Approve, req.Notes)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.SuccessMessageResponse(c, "Review recorded", submission)
}

func (h *VerificationHandler) SuperAdminReview(c *gin.Context) {
	superAdminID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	submissionID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req reviewRequest
	if !bindAndValidate(c, &req) {
		return
	}

	submission, err := h.verification.SuperAdminReview(submissionID, superAdminID, req.Approve, req.Notes)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.SuccessMessageResponse(c, "Review recorded", submission)
}

func (h *VerificationHandler) MasterAdminApprove(c *gin.Context) {
	masterAdminID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	submissionID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req reviewRequest
	if !bindAndValidate(c, &req) {
		return
	}

	submission, err := h.verification.MasterAdminApprove(submissionID, masterAdminID, req.Approve, req.Notes)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.SuccessMessageResponse(c, "Approval recorded", submission)
}

func (h *VerificationHandler) AllowRefill(c *gin.Context) {
	performedBy, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	submissionID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	submission, err := h.verification.AllowRefill(submissionID, performedBy, currentRole(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.SuccessMessageResponse(c, "Submission reopened for refill", submission)
}

func (h *VerificationHandler) AuditTrail(c *gin.Context) {
	submissionID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := h.verification.GetByID(submissionID); err != nil {
		handleServiceError(c, err)
		return
	}

	logs, err := h.verification.AuditTrail(submissionID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.SuccessResponse(c, logs)
}

// DocumentLink mints a short-lived presigned URL for a stored document key.
func (h *VerificationHandler) DocumentLink(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		utils.BadRequestResponse(c, "key is required", nil)
		return
	}

	url, err := h.storage.PresignedURL(key, 15*time.Minute)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}
	utils.SuccessResponse(c, gin.H{"url": url})
}
