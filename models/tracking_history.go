package models

import "time"

const (
	TrackingEventStatusChange          = "status_change"
	TrackingEventStageTransition       = "stage_transition"
	TrackingEventDocumentUpload        = "document_upload"
	TrackingEventDocumentStatusChange  = "document_status_change"
	TrackingEventStageDefinitionChange = "stage_definition_change"
)

// TrackingHistory is an append-only ledger row. Rows are never updated or deleted;
// FactKey makes re-delivered facts collapse onto the row already written.
type TrackingHistory struct {
	HistoryID    int       `gorm:"primaryKey;column:history_id" json:"history_id"`
	SubmissionID int       `gorm:"column:submission_id;not null;index:idx_tracking_submission" json:"submission_id"`
	StageID      *int      `gorm:"column:stage_id" json:"stage_id"`
	DocumentID   *int      `gorm:"column:document_id" json:"document_id,omitempty"`
	Status       string    `gorm:"column:status;size:32" json:"status"`
	EventType    string    `gorm:"column:event_type;size:48" json:"event_type"`
	Comment      string    `gorm:"column:comment;type:text" json:"comment,omitempty"`
	ProcessedBy  string    `gorm:"column:processed_by;size:64" json:"processed_by,omitempty"`
	FactKey      string    `gorm:"column:fact_key;size:96;uniqueIndex" json:"-"`
	CreatedAt    time.Time `gorm:"column:created_at;index:idx_tracking_submission" json:"created_at"`

	// Display-only relations, filled by readers that preload them.
	Stage    *WorkflowStage `gorm:"foreignKey:StageID" json:"stage,omitempty"`
	Document *Document      `gorm:"foreignKey:DocumentID" json:"document,omitempty"`
}

// TableName specifies the table for TrackingHistory.
func (TrackingHistory) TableName() string {
	return "tracking_history"
}

// IsSystem reports whether no actor was recorded for the fact.
func (h TrackingHistory) IsSystem() bool {
	return h.ProcessedBy == ""
}
