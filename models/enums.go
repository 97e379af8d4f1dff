package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

type ApprovalStatus string

const (
	ApprovalStatusPending       ApprovalStatus = "pending"
	ApprovalStatusAdminApproved ApprovalStatus = "admin_approved"
	ApprovalStatusRejected      ApprovalStatus = "rejected"
)

func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalStatusPending, ApprovalStatusAdminApproved, ApprovalStatusRejected:
		return true
	}
	return false
}

func (s ApprovalStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid approval status: %s", string(s))
	}
	return string(s), nil
}

func (s *ApprovalStatus) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		*s = ApprovalStatus(v)
	case string:
		*s = ApprovalStatus(v)
	default:
		return errors.New("approval status must be string")
	}
	return nil
}

type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
)

func (s AttendanceStatus) Valid() bool {
	return s == AttendanceStatusPresent || s == AttendanceStatusAbsent
}

type ComplaintStatus string

const (
	ComplaintStatusOpen      ComplaintStatus = "open"
	ComplaintStatusInReview  ComplaintStatus = "in_review"
	ComplaintStatusResolved  ComplaintStatus = "resolved"
	ComplaintStatusDismissed ComplaintStatus = "dismissed"
)

func (s ComplaintStatus) Valid() bool {
	switch s {
	case ComplaintStatusOpen, ComplaintStatusInReview, ComplaintStatusResolved, ComplaintStatusDismissed:
		return true
	}
	return false
}

type AuditAction string

const (
	AuditActionCreate AuditAction = "CREATE"
	AuditActionUpdate AuditAction = "UPDATE"
	AuditActionDelete AuditAction = "DELETE"
)
