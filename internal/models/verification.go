// internal/models/verification.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// VerificationSubmission tracks a marketer's KYC pipeline. Stage timestamps
// are only ever stamped by the workflow's transition function, so whenever
// all are non-null they are non-decreasing:
// forms_completed_at <= admin_reviewed_at <= superadmin_reviewed_at <= masteradmin_approved_at.
type VerificationSubmission struct {
	BaseModel
	MarketerID   uuid.UUID        `json:"marketer_id" gorm:"type:uuid;uniqueIndex;not null"`
	AdminID      *uuid.UUID       `json:"admin_id" gorm:"type:uuid"`
	SuperAdminID *uuid.UUID       `json:"super_admin_id" gorm:"type:uuid"`
	Status       SubmissionStatus `json:"submission_status" gorm:"type:varchar(40);not null;default:'forms_incomplete';index"`

	BiodataCompletedAt    *time.Time `json:"biodata_completed_at"`
	GuarantorCompletedAt  *time.Time `json:"guarantor_completed_at"`
	CommitmentCompletedAt *time.Time `json:"commitment_completed_at"`
	BiodataDocumentURL    string     `json:"biodata_document_url" gorm:"size:500"`
	GuarantorDocumentURL  string     `json:"guarantor_document_url" gorm:"size:500"`

	FormsCompletedAt      *time.Time `json:"forms_completed_at"`
	AdminReviewedAt       *time.Time `json:"admin_reviewed_at"`
	AdminNotes            string     `json:"admin_notes" gorm:"type:text"`
	SuperAdminReviewedAt  *time.Time `json:"superadmin_reviewed_at" gorm:"column:superadmin_reviewed_at"`
	SuperAdminNotes       string     `json:"superadmin_notes" gorm:"column:superadmin_notes;type:text"`
	MasterAdminApprovedAt *time.Time `json:"masteradmin_approved_at" gorm:"column:masteradmin_approved_at"`

	RejectedAt      *time.Time `json:"rejected_at"`
	RejectedBy      UserRole   `json:"rejected_by" gorm:"type:varchar(20)"`
	RejectionReason string     `json:"rejection_reason" gorm:"type:text"`

	// Relationships
	Marketer  User                   `json:"marketer,omitempty" gorm:"foreignKey:MarketerID"`
	AuditLogs []VerificationAuditLog `json:"audit_logs,omitempty" gorm:"foreignKey:SubmissionID"`
}

// FormCompletedAt returns the completion timestamp for one of the three forms.
func (s *VerificationSubmission) FormCompletedAt(form FormType) *time.Time {
	switch form {
	case FormTypeBiodata:
		return s.BiodataCompletedAt
	case FormTypeGuarantor:
		return s.GuarantorCompletedAt
	case FormTypeCommitment:
		return s.CommitmentCompletedAt
	}
	return nil
}

// AllFormsComplete reports whether biodata, guarantor and commitment are all in.
func (s *VerificationSubmission) AllFormsComplete() bool {
	return s.BiodataCompletedAt != nil && s.GuarantorCompletedAt != nil && s.CommitmentCompletedAt != nil
}

// VerificationAuditLog is the append-only event trail consumed by the
// timeline reconstructor.
type VerificationAuditLog struct {
	BaseModel
	SubmissionID    uuid.UUID  `json:"submission_id" gorm:"type:uuid;not null;index"`
	Action          string     `json:"action" gorm:"size:60;not null"`
	Stage           string     `json:"stage" gorm:"size:40;not null"`
	PerformedBy     *uuid.UUID `json:"performed_by" gorm:"type:uuid"`
	PerformedByRole UserRole   `json:"performed_by_role" gorm:"type:varchar(20)"`
	Notes           string     `json:"notes" gorm:"type:text"`
	Metadata        JSONB      `json:"metadata" gorm:"type:jsonb"`
}
