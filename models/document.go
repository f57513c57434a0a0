package models

import "time"

// Document is the metadata of an uploaded blob. Storage lives elsewhere; the
// tracking core only reads title, mime type, size and extension.
type Document struct {
	DocumentID int       `gorm:"primaryKey;column:document_id" json:"document_id"`
	Title      string    `gorm:"column:title" json:"title"`
	MimeType   string    `gorm:"column:mime_type;size:128" json:"mime_type"`
	FileSize   int64     `gorm:"column:file_size" json:"file_size"`
	Extension  string    `gorm:"column:extension;size:16" json:"extension"`
	UploadedBy string    `gorm:"column:uploaded_by;size:64" json:"uploaded_by"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName overrides the table name
func (Document) TableName() string {
	return "documents"
}

// GetFileSizeInMB returns the size in megabytes for display.
func (d *Document) GetFileSizeInMB() float64 {
	return float64(d.FileSize) / (1024 * 1024)
}

// DocumentStatus mirrors submission_documents.status.
type DocumentStatus string

const (
	DocumentStatusPending        DocumentStatus = "pending"
	DocumentStatusApproved       DocumentStatus = "approved"
	DocumentStatusRejected       DocumentStatus = "rejected"
	DocumentStatusRevisionNeeded DocumentStatus = "revision_needed"
)

// IsValid reports whether s is one of the known document statuses.
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentStatusPending, DocumentStatusApproved, DocumentStatusRejected, DocumentStatusRevisionNeeded:
		return true
	}
	return false
}

// SubmissionDocument links one document to one submission and optionally one requirement.
type SubmissionDocument struct {
	ID            int            `gorm:"primaryKey;column:id" json:"id"`
	SubmissionID  int            `gorm:"column:submission_id;index" json:"submission_id"`
	DocumentID    int            `gorm:"column:document_id;index" json:"document_id"`
	RequirementID *int           `gorm:"column:requirement_id" json:"requirement_id"`
	Status        DocumentStatus `gorm:"column:status;size:32" json:"status"`
	Notes         string         `gorm:"column:notes;type:text" json:"notes,omitempty"`
	ReviewedBy    string         `gorm:"column:reviewed_by;size:64" json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time     `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt     time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"column:updated_at" json:"updated_at"`
	DeleteAt      *time.Time     `gorm:"column:delete_at" json:"delete_at,omitempty"`

	// Relations
	Document    *Document            `gorm:"foreignKey:DocumentID" json:"document,omitempty"`
	Requirement *DocumentRequirement `gorm:"foreignKey:RequirementID" json:"requirement,omitempty"`
}

// TableName overrides the table name
func (SubmissionDocument) TableName() string {
	return "submission_documents"
}

// IsApproved reports whether the attached document counts toward readiness.
func (d *SubmissionDocument) IsApproved() bool {
	return d.DeleteAt == nil && d.Status == DocumentStatusApproved
}
