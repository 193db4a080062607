package models

import "time"

// SystemApplicantID is the sentinel applicant ID for bulk actions.
const SystemApplicantID = "system"

// Audit action labels.
const (
	AuditActionRegister        = "REGISTER"
	AuditActionCallUp          = "CALL_UP"
	AuditActionEnroll          = "ENROLL"
	AuditActionRefuse          = "REFUSE"
	AuditActionEndOfQueue      = "END_OF_QUEUE"
	AuditActionWithdraw        = "WITHDRAW"
	AuditActionTransferRequest = "TRANSFER_REQUEST"
	AuditActionReactivate      = "REACTIVATE"
	AuditActionBulkReallocate  = "BULK_REALLOCATE"
	AuditActionPlanExecute     = "PLAN_EXECUTE"
)

// AuditEntry is an immutable history record. Entries are appended by every
// mutating operation and never updated or deleted.
type AuditEntry struct {
	ID          string    `db:"id" json:"id"`
	ApplicantID string    `db:"applicant_id" json:"applicant_id"`
	Action      string    `db:"action" json:"action"`
	Detail      string    `db:"detail" json:"detail"`
	Actor       string    `db:"actor" json:"actor"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
