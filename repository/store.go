package repository

import (
	"context"
	"time"

	"ip-tracking-api/models"
)

// StageFilter narrows ListStages.
type StageFilter struct {
	SubmissionType string
	ActiveOnly     bool
}

// Store is the persistence surface of the workflow core. Implementations must
// make every method called inside RunInTx part of one atomic unit; a Store
// passed to fn is bound to that unit, and calling RunInTx on it again just runs
// fn with the same binding.
type Store interface {
	RunInTx(ctx context.Context, fn func(tx Store) error) error

	CreateSubmission(ctx context.Context, sub *models.Submission) error
	// GetSubmission returns the row; inside a transaction implementations lock it.
	GetSubmission(ctx context.Context, id int) (*models.Submission, error)
	// UpdateSubmission persists sub when the stored version equals expectedVersion
	// and bumps sub.Version. ErrConflict otherwise.
	UpdateSubmission(ctx context.Context, sub *models.Submission, expectedVersion int) error
	// SetDocumentsReady writes the advisory readiness projection without
	// touching the version.
	SetDocumentsReady(ctx context.Context, submissionID int, ready bool) error
	ListSubmissionsAtStage(ctx context.Context, stageID int) ([]models.Submission, error)
	// RetireSubmission soft-retires the row; retired submissions read as ErrNotFound.
	RetireSubmission(ctx context.Context, submissionID int, at time.Time) error

	CreateStage(ctx context.Context, stage *models.WorkflowStage) error
	GetStage(ctx context.Context, id int) (*models.WorkflowStage, error)
	UpdateStage(ctx context.Context, stage *models.WorkflowStage) error
	ListStages(ctx context.Context, filter StageFilter) ([]models.WorkflowStage, error)

	CreateRequirement(ctx context.Context, req *models.DocumentRequirement) error
	GetRequirement(ctx context.Context, id int) (*models.DocumentRequirement, error)
	ListRequirements(ctx context.Context, submissionType string) ([]models.DocumentRequirement, error)

	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id int) (*models.Document, error)
	UpdateDocument(ctx context.Context, doc *models.Document) error

	CreateSubmissionDocument(ctx context.Context, doc *models.SubmissionDocument) error
	GetSubmissionDocument(ctx context.Context, id int) (*models.SubmissionDocument, error)
	UpdateSubmissionDocument(ctx context.Context, doc *models.SubmissionDocument) error
	ListSubmissionDocuments(ctx context.Context, submissionID int) ([]models.SubmissionDocument, error)

	// AppendHistory inserts row unless its FactKey already exists, in which case
	// it reports inserted=false and leaves the ledger untouched.
	AppendHistory(ctx context.Context, row *models.TrackingHistory) (inserted bool, err error)
	ListHistory(ctx context.Context, submissionID int) ([]models.TrackingHistory, error)

	EnqueueReconciliation(ctx context.Context, job *models.StageReconciliationJob) error
	// GetReconciliation locks the job row inside a transaction.
	GetReconciliation(ctx context.Context, id int) (*models.StageReconciliationJob, error)
	UpdateReconciliation(ctx context.Context, job *models.StageReconciliationJob) error
	ListPendingReconciliations(ctx context.Context, limit int) ([]models.StageReconciliationJob, error)

	CreateNotification(ctx context.Context, n *models.Notification) error
}
