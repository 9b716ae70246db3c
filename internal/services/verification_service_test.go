// internal/services/verification_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/vistaprohq/vistapro-backend/internal/config"
	"github.com/vistaprohq/vistapro-backend/internal/models"
)

type VerificationServiceTestSuite struct {
	suite.Suite
	db           *gorm.DB
	cfg          *config.Config
	verification *VerificationService

	marketer   *models.User
	admin      *models.User
	superAdmin *models.User
	master     *models.User
}

func (suite *VerificationServiceTestSuite) SetupTest() {
	suite.db = newTestDB(suite.T())
	suite.cfg = newTestConfig()
	suite.verification = NewVerificationService(suite.db, suite.cfg, nil, nil, NewNotificationService(suite.db))

	suite.marketer = createTestUser(suite.T(), suite.db, models.UserRoleMarketer)
	suite.admin = createTestUser(suite.T(), suite.db, models.UserRoleAdmin)
	suite.superAdmin = createTestUser(suite.T(), suite.db, models.UserRoleSuperAdmin)
	suite.master = createTestUser(suite.T(), suite.db, models.UserRoleMasterAdmin)
}

func (suite *VerificationServiceTestSuite) completeForms() *models.VerificationSubmission {
	_, err := suite.verification.SubmitForm(suite.marketer.ID, models.FormTypeBiodata, "https://docs.test/biodata.pdf")
	suite.Require().NoError(err)
	_, err = suite.verification.SubmitForm(suite.marketer.ID, models.FormTypeGuarantor, "https://docs.test/guarantor.pdf")
	suite.Require().NoError(err)
	submission, err := suite.verification.SubmitForm(suite.marketer.ID, models.FormTypeCommitment, "")
	suite.Require().NoError(err)
	return submission
}

func (suite *VerificationServiceTestSuite) TestPartialFormsStayIncomplete() {
	_, err := suite.verification.SubmitForm(suite.marketer.ID, models.FormTypeBiodata, "")
	suite.Require().NoError(err)
	submission, err := suite.verification.SubmitForm(suite.marketer.ID, models.FormTypeGuarantor, "")
	suite.Require().NoError(err)

	suite.Equal(models.SubmissionStatusFormsIncomplete, submission.Status)
	suite.Nil(submission.FormsCompletedAt)
	suite.NotNil(submission.BiodataCompletedAt)
	suite.NotNil(submission.GuarantorCompletedAt)
	suite.Nil(submission.CommitmentCompletedAt)
}

func (suite *VerificationServiceTestSuite) TestLastFormAdvancesToAdminReview() {
	submission := suite.completeForms()

	suite.Equal(models.SubmissionStatusPendingAdminReview, submission.Status)
	suite.NotNil(submission.FormsCompletedAt)
	suite.Equal("https://docs.test/biodata.pdf", submission.BiodataDocumentURL)
}

func (suite *VerificationServiceTestSuite) TestUnknownFormIsRejected() {
	_, err := suite.verification.SubmitForm(suite.marketer.ID, models.FormType("passport"), "")
	suite.ErrorIs(err, ErrUnknownFormType)
}

func (suite *VerificationServiceTestSuite) TestFullApprovalPath() {
	submission := suite.completeForms()

	submission, err := suite.verification.AdminReview(submission.ID, suite.admin.ID, true, "documents look complete")
	suite.Require().NoError(err)
	suite.Equal(models.SubmissionStatusPendingSuperAdminReview, submission.Status)
	suite.Require().NotNil(submission.AdminID)
	suite.Equal(suite.admin.ID, *submission.AdminID)

	submission, err = suite.verification.SuperAdminReview(submission.ID, suite.superAdmin.ID, true, "validated")
	suite.Require().NoError(err)
	suite.Equal(models.SubmissionStatusPendingMasterAdminReview, submission.Status)

	submission, err = suite.verification.MasterAdminApprove(submission.ID, suite.master.ID, true, "")
	suite.Require().NoError(err)
	suite.Equal(models.SubmissionStatusApproved, submission.Status)

	// Stage timestamps are stamped in order, so they never run backwards.
	suite.Require().NotNil(submission.FormsCompletedAt)
	suite.Require().NotNil(submission.AdminReviewedAt)
	suite.Require().NotNil(submission.SuperAdminReviewedAt)
	suite.Require().NotNil(submission.MasterAdminApprovedAt)
	suite.False(submission.AdminReviewedAt.Before(*submission.FormsCompletedAt))
	suite.False(submission.SuperAdminReviewedAt.Before(*submission.AdminReviewedAt))
	suite.False(submission.MasterAdminApprovedAt.Before(*submission.SuperAdminReviewedAt))

	var marketer models.User
	suite.Require().NoError(suite.db.First(&marketer, "id = ?", suite.marketer.ID).Error)
	suite.True(marketer.IsVerified)

	// The review timestamps landed in their columns, not just in the struct.
	var stored models.VerificationSubmission
	suite.Require().NoError(suite.db.
		Where("id = ? AND superadmin_reviewed_at IS NOT NULL AND masteradmin_approved_at IS NOT NULL", submission.ID).
		First(&stored).Error)
	suite.Equal("validated", stored.SuperAdminNotes)
}

func (suite *VerificationServiceTestSuite) TestReviewOutOfStageIsRejected() {
	submission, err := suite.verification.GetOrCreateSubmission(suite.marketer.ID)
	suite.Require().NoError(err)

	_, err = suite.verification.AdminReview(submission.ID, suite.admin.ID, true, "")
	suite.ErrorIs(err, ErrNotInReviewableState)

	_, err = suite.verification.SuperAdminReview(submission.ID, suite.superAdmin.ID, true, "")
	suite.ErrorIs(err, ErrNotInReviewableState)
}

func (suite *VerificationServiceTestSuite) TestRejectionRequiresReason() {
	submission := suite.completeForms()

	_, err := suite.verification.AdminReview(submission.ID, suite.admin.ID, false, "")
	suite.ErrorIs(err, ErrReasonRequired)
}

func (suite *VerificationServiceTestSuite) TestRejectionEndsThePipeline() {
	submission := suite.completeForms()

	submission, err := suite.verification.AdminReview(submission.ID, suite.admin.ID, false, "guarantor document unreadable")
	suite.Require().NoError(err)
	suite.Equal(models.SubmissionStatusRejected, submission.Status)
	suite.Equal(models.UserRoleAdmin, submission.RejectedBy)
	suite.Equal("guarantor document unreadable", submission.RejectionReason)
	suite.NotNil(submission.RejectedAt)

	_, err = suite.verification.SubmitForm(suite.marketer.ID, models.FormTypeBiodata, "")
	suite.ErrorIs(err, ErrSubmissionTerminal)

	_, err = suite.verification.AdminReview(submission.ID, suite.admin.ID, true, "")
	suite.ErrorIs(err, ErrSubmissionTerminal)
}

func (suite *VerificationServiceTestSuite) TestAllowRefillReopensForms() {
	submission := suite.completeForms()
	submission, err := suite.verification.AdminReview(submission.ID, suite.admin.ID, false, "incomplete guarantor details")
	suite.Require().NoError(err)

	reopened, err := suite.verification.AllowRefill(submission.ID, suite.master.ID, models.UserRoleMasterAdmin)
	suite.Require().NoError(err)
	suite.Equal(models.SubmissionStatusFormsIncomplete, reopened.Status)
	suite.Nil(reopened.BiodataCompletedAt)
	suite.Nil(reopened.FormsCompletedAt)
	suite.Nil(reopened.RejectedAt)
	suite.Empty(reopened.RejectionReason)

	// The marketer can run the pipeline again from scratch.
	resubmitted := suite.completeForms()
	suite.Equal(models.SubmissionStatusPendingAdminReview, resubmitted.Status)
}

func (suite *VerificationServiceTestSuite) TestAllowRefillOnlyAfterRejection() {
	submission := suite.completeForms()

	_, err := suite.verification.AllowRefill(submission.ID, suite.master.ID, models.UserRoleMasterAdmin)
	suite.ErrorIs(err, ErrNotRejected)
}

func (suite *VerificationServiceTestSuite) TestAuditTrailRecordsEveryMove() {
	submission := suite.completeForms()
	submission, err := suite.verification.AdminReview(submission.ID, suite.admin.ID, true, "ok")
	suite.Require().NoError(err)

	logs, err := suite.verification.AuditTrail(submission.ID)
	suite.Require().NoError(err)

	actions := make([]string, 0, len(logs))
	for _, log := range logs {
		actions = append(actions, log.Action)
	}
	suite.Equal([]string{
		"form_submitted",
		"form_submitted",
		"form_submitted",
		"forms_completed",
		"admin_reviewed",
	}, actions)
}

func TestVerificationServiceSuite(t *testing.T) {
	suite.Run(t, new(VerificationServiceTestSuite))
}
