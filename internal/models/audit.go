package models

import "time"

// Audit actions.
const (
	AuditActionAccessDenied      = "ACCESS_DENIED"
	AuditActionSessionStart      = "SESSION_START"
	AuditActionUserRegister      = "USER_REGISTER"
	AuditActionClassroomCreate   = "CLASSROOM_CREATE"
	AuditActionStudentAdd        = "STUDENT_ADD"
	AuditActionGradeAssign       = "GRADE_ASSIGN"
	AuditActionDataExport        = "DATA_EXPORT"
	AuditActionStoreClear        = "STORE_CLEAR"
	AuditActionUserKeyDelete     = "USER_KEY_DELETE"
	AuditActionIntegrityRecovery = "INTEGRITY_RECOVERY"
	AuditActionDebugView         = "DEBUG_VIEW"
)

// AuditEvent records who attempted what. Wallet, Username and Role are empty for anonymous callers.
type AuditEvent struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	Wallet     string    `json:"wallet,omitempty"`
	Username   string    `json:"username,omitempty"`
	Role       Role      `json:"role,omitempty"`
	Permission string    `json:"permission,omitempty"`
	Resource   string    `json:"resource,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
