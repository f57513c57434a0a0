package models

import "time"

// WorkflowStage is one ordered step of a submission type's review sequence.
type WorkflowStage struct {
	StageID        int       `gorm:"primaryKey;column:stage_id" json:"stage_id"`
	SubmissionType string    `gorm:"column:submission_type;size:32;index:idx_stage_type_order" json:"submission_type"`
	Code           string    `gorm:"column:code;size:64" json:"code"`
	Name           string    `gorm:"column:name" json:"name"`
	Description    string    `gorm:"column:description;type:text" json:"description,omitempty"`
	StageOrder     int       `gorm:"column:stage_order;index:idx_stage_type_order" json:"stage_order"`
	IsActive       bool      `gorm:"column:is_active" json:"is_active"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName overrides the table name
func (WorkflowStage) TableName() string {
	return "workflow_stages"
}
