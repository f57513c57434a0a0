package models

import "time"

const (
	StageReconciliationStatusPending = "pending"
	StageReconciliationStatusDone    = "done"
	StageReconciliationStatusFailed  = "failed"
)

// StageReconciliationJob is the outbox row written together with a structural
// stage edit. The reconciler fans it out to the ledger of every in-flight
// submission sitting in the stage.
type StageReconciliationJob struct {
	JobID          int        `gorm:"primaryKey;column:job_id" json:"job_id"`
	StageID        int        `gorm:"column:stage_id;index" json:"stage_id"`
	SubmissionType string     `gorm:"column:submission_type;size:32" json:"submission_type"`
	FactKey        string     `gorm:"column:fact_key;size:96;uniqueIndex" json:"fact_key"`
	Summary        string     `gorm:"column:summary;type:text" json:"summary"`
	ActorID        string     `gorm:"column:actor_id;size:64" json:"actor_id,omitempty"`
	Status         string     `gorm:"column:status;size:16;index;default:'pending'" json:"status"`
	Attempts       int        `gorm:"column:attempts;not null;default:0" json:"attempts"`
	AffectedCount  int        `gorm:"column:affected_count;not null;default:0" json:"affected_count"`
	ErrorMessage   *string    `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
	CreatedAt      time.Time  `gorm:"column:created_at" json:"created_at"`
	ProcessedAt    *time.Time `gorm:"column:processed_at" json:"processed_at,omitempty"`
}

func (StageReconciliationJob) TableName() string { return "stage_reconciliation_jobs" }

// IsPending reports whether the job still has to be fanned out.
func (j StageReconciliationJob) IsPending() bool {
	return j.Status == StageReconciliationStatusPending || j.Status == StageReconciliationStatusFailed
}
