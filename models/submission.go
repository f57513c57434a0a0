package models

import (
	"encoding/json"
	"time"
)

// SubmissionStatus mirrors submissions.status.
type SubmissionStatus string

const (
	SubmissionStatusDraft          SubmissionStatus = "draft"
	SubmissionStatusSubmitted      SubmissionStatus = "submitted"
	SubmissionStatusInReview       SubmissionStatus = "in_review"
	SubmissionStatusRevisionNeeded SubmissionStatus = "revision_needed"
	SubmissionStatusCompleted      SubmissionStatus = "completed"
	SubmissionStatusRejected       SubmissionStatus = "rejected"
)

// ValidSubmissionStatuses returns every status a submission can hold.
func ValidSubmissionStatuses() []SubmissionStatus {
	return []SubmissionStatus{
		SubmissionStatusDraft,
		SubmissionStatusSubmitted,
		SubmissionStatusInReview,
		SubmissionStatusRevisionNeeded,
		SubmissionStatusCompleted,
		SubmissionStatusRejected,
	}
}

// IsTerminal reports whether no further action can be taken from the status.
func (s SubmissionStatus) IsTerminal() bool {
	return s == SubmissionStatusCompleted || s == SubmissionStatusRejected
}

// IsInFlight reports whether the submission is sitting in a review stage.
func (s SubmissionStatus) IsInFlight() bool {
	switch s {
	case SubmissionStatusSubmitted, SubmissionStatusInReview, SubmissionStatusRevisionNeeded:
		return true
	}
	return false
}

// Submission represents the submissions table
type Submission struct {
	SubmissionID     int              `gorm:"primaryKey;column:submission_id" json:"submission_id"`
	SubmissionNumber string           `gorm:"column:submission_number;size:64" json:"submission_number"`
	SubmissionType   string           `gorm:"column:submission_type;size:32;index" json:"submission_type"`
	Title            string           `gorm:"column:title" json:"title"`
	ApplicantID      string           `gorm:"column:applicant_id;size:64" json:"applicant_id"`
	ApplicantEmail   string           `gorm:"column:applicant_email" json:"applicant_email,omitempty"`
	CurrentStageID   *int             `gorm:"column:current_stage_id;index" json:"current_stage_id"`
	Status           SubmissionStatus `gorm:"column:status;size:32;index" json:"status"`
	Certificate      *string          `gorm:"column:certificate;size:64;uniqueIndex" json:"certificate,omitempty"`
	RejectReason     *string          `gorm:"column:reject_reason" json:"reject_reason,omitempty"`
	DocumentsReady   bool             `gorm:"column:documents_ready" json:"documents_ready"`
	TypeDetail       json.RawMessage  `gorm:"column:type_detail;type:json" json:"type_detail,omitempty"`
	Version          int              `gorm:"column:version;not null;default:1" json:"version"`
	UpdatedBy        string           `gorm:"column:updated_by;size:64" json:"updated_by,omitempty"`
	SubmittedAt      *time.Time       `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	CompletedAt      *time.Time       `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt        time.Time        `gorm:"column:created_at" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"column:updated_at" json:"updated_at"`
	DeleteAt         *time.Time       `gorm:"column:delete_at" json:"delete_at,omitempty"`

	// Relations
	CurrentStage *WorkflowStage `gorm:"foreignKey:CurrentStageID" json:"current_stage,omitempty"`
}

// TableName overrides the table name
func (Submission) TableName() string {
	return "submissions"
}

// IsRetired reports whether the submission has been soft-retired.
func (s *Submission) IsRetired() bool {
	return s.DeleteAt != nil
}

// HasStage reports whether the submission currently occupies a stage.
func (s *Submission) HasStage() bool {
	return s.CurrentStageID != nil && *s.CurrentStageID > 0
}

// Clone returns a copy that shares no pointers with s.
func (s Submission) Clone() Submission {
	out := s
	out.CurrentStageID = cloneInt(s.CurrentStageID)
	out.Certificate = cloneString(s.Certificate)
	out.RejectReason = cloneString(s.RejectReason)
	out.SubmittedAt = cloneTime(s.SubmittedAt)
	out.CompletedAt = cloneTime(s.CompletedAt)
	out.DeleteAt = cloneTime(s.DeleteAt)
	if s.TypeDetail != nil {
		out.TypeDetail = append(json.RawMessage(nil), s.TypeDetail...)
	}
	out.CurrentStage = nil
	return out
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// IntPtr is a small helper for optional foreign keys.
func IntPtr(v int) *int {
	return &v
}

// StringPtr is a small helper for optional text columns.
func StringPtr(v string) *string {
	return &v
}
