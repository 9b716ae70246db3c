// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	}
	return nil
}

// Enums
type UserRole string

const (
	UserRoleMasterAdmin UserRole = "master_admin"
	UserRoleSuperAdmin  UserRole = "super_admin"
	UserRoleAdmin       UserRole = "admin"
	UserRoleDealer      UserRole = "dealer"
	UserRoleMarketer    UserRole = "marketer"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

type PickupStatus string

const (
	PickupStatusPending         PickupStatus = "pending"
	PickupStatusSold            PickupStatus = "sold"
	PickupStatusReturnPending   PickupStatus = "return_pending"
	PickupStatusReturned        PickupStatus = "returned"
	PickupStatusTransferPending PickupStatus = "transfer_pending"
	PickupStatusTransferred     PickupStatus = "transferred"
	PickupStatusExpired         PickupStatus = "expired"
)

// Terminal reports whether a pickup can no longer change state.
func (s PickupStatus) Terminal() bool {
	switch s {
	case PickupStatusSold, PickupStatusReturned, PickupStatusTransferred, PickupStatusExpired:
		return true
	}
	return false
}

// Open reports whether a pickup still counts against the marketer's allowance.
func (s PickupStatus) Open() bool {
	switch s {
	case PickupStatusPending, PickupStatusReturnPending, PickupStatusTransferPending:
		return true
	}
	return false
}

type AllowanceRequestStatus string

const (
	AllowanceRequestPending  AllowanceRequestStatus = "pending"
	AllowanceRequestApproved AllowanceRequestStatus = "approved"
	AllowanceRequestRejected AllowanceRequestStatus = "rejected"
)

type SubmissionStatus string

const (
	SubmissionStatusFormsIncomplete          SubmissionStatus = "forms_incomplete"
	SubmissionStatusPendingAdminReview       SubmissionStatus = "pending_admin_review"
	SubmissionStatusPendingSuperAdminReview  SubmissionStatus = "pending_superadmin_review"
	SubmissionStatusPendingMasterAdminReview SubmissionStatus = "pending_masteradmin_approval"
	SubmissionStatusApproved                 SubmissionStatus = "approved"
	SubmissionStatusRejected                 SubmissionStatus = "rejected"
)

func (s SubmissionStatus) Terminal() bool {
	return s == SubmissionStatusApproved || s == SubmissionStatusRejected
}

type FormType string

const (
	FormTypeBiodata    FormType = "biodata"
	FormTypeGuarantor  FormType = "guarantor"
	FormTypeCommitment FormType = "commitment"
)

type ViolationType string

const (
	ViolationTypeExpiredPickup    ViolationType = "expired_pickup"
	ViolationTypeExcessivePickup  ViolationType = "excessive_pickup_attempt"
	ViolationTypeManualInfraction ViolationType = "manual_infraction"
)

type WalletTransactionType string

const (
	WalletTransactionCommission WalletTransactionType = "commission"
	WalletTransactionWithdrawal WalletTransactionType = "withdrawal"
)

type TargetType string

const (
	TargetTypeOrders TargetType = "orders"
	TargetTypeSales  TargetType = "sales"
)
