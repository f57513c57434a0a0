package models

import (
	"strings"
	"time"
)

// DocumentRequirement declares a document category accepted for a submission type.
// StageID nil means the requirement applies to every stage of the type.
type DocumentRequirement struct {
	RequirementID     int       `gorm:"primaryKey;column:requirement_id" json:"requirement_id"`
	SubmissionType    string    `gorm:"column:submission_type;size:32;index" json:"submission_type"`
	StageID           *int      `gorm:"column:stage_id" json:"stage_id"`
	DocumentKind      string    `gorm:"column:document_kind;size:64" json:"document_kind"`
	Name              string    `gorm:"column:name" json:"name"`
	AllowedExtensions string    `gorm:"column:allowed_extensions" json:"allowed_extensions"`
	IsRequired        bool      `gorm:"column:is_required" json:"is_required"`
	DisplayOrder      int       `gorm:"column:display_order" json:"display_order"`
	IsActive          bool      `gorm:"column:is_active" json:"is_active"`
	CreatedAt         time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at" json:"updated_at"`

	// Relations
	Stage *WorkflowStage `gorm:"foreignKey:StageID" json:"stage,omitempty"`
}

// TableName overrides the table name
func (DocumentRequirement) TableName() string {
	return "document_requirements"
}

// Extensions returns the normalized allowed extensions without leading dots.
func (r *DocumentRequirement) Extensions() []string {
	var out []string
	for _, ext := range strings.Split(r.AllowedExtensions, ",") {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			out = append(out, ext)
		}
	}
	return out
}

// Label returns the display name, falling back to the document kind.
func (r *DocumentRequirement) Label() string {
	if strings.TrimSpace(r.Name) != "" {
		return r.Name
	}
	return r.DocumentKind
}

// RequirementsSummary provides summary statistics
type RequirementsSummary struct {
	TotalDocuments    int `json:"total_documents"`
	RequiredDocuments int `json:"required_documents"`
	OptionalDocuments int `json:"optional_documents"`
}

// SummarizeRequirements counts required and optional requirements.
func SummarizeRequirements(reqs []DocumentRequirement) RequirementsSummary {
	summary := RequirementsSummary{TotalDocuments: len(reqs)}
	for _, req := range reqs {
		if req.IsRequired {
			summary.RequiredDocuments++
		} else {
			summary.OptionalDocuments++
		}
	}
	return summary
}
