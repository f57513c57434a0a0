package repository

import (
	"context"
	"errors"
	"time"

	"ip-tracking-api/config"
	"ip-tracking-api/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore persists the workflow through gorm. A GormStore handed to a
// RunInTx callback is bound to that transaction and locks the rows it reads
// for update.
type GormStore struct {
	db   *gorm.DB
	inTx bool
}

func NewGormStore(db *gorm.DB) *GormStore {
	if db == nil {
		db = config.DB
	}
	return &GormStore{db: db}
}

func (s *GormStore) RunInTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx, inTx: true})
	})
}

func (s *GormStore) locking(ctx context.Context) *gorm.DB {
	q := s.db.WithContext(ctx)
	if s.inTx {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *GormStore) CreateSubmission(ctx context.Context, sub *models.Submission) error {
	if sub.Version == 0 {
		sub.Version = 1
	}
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(sub).Error
}

func (s *GormStore) GetSubmission(ctx context.Context, id int) (*models.Submission, error) {
	var sub models.Submission
	if err := s.locking(ctx).
		Where("submission_id = ? AND delete_at IS NULL", id).
		First(&sub).Error; err != nil {
		return nil, notFound(err)
	}
	return &sub, nil
}

func (s *GormStore) UpdateSubmission(ctx context.Context, sub *models.Submission, expectedVersion int) error {
	if sub.UpdatedAt.IsZero() {
		sub.UpdatedAt = time.Now()
	}
	updates := map[string]interface{}{
		"title":            sub.Title,
		"applicant_email":  sub.ApplicantEmail,
		"status":           sub.Status,
		"current_stage_id": sub.CurrentStageID,
		"certificate":      sub.Certificate,
		"reject_reason":    sub.RejectReason,
		"type_detail":      sub.TypeDetail,
		"updated_by":       sub.UpdatedBy,
		"submitted_at":     sub.SubmittedAt,
		"completed_at":     sub.CompletedAt,
		"updated_at":       sub.UpdatedAt,
		"version":          gorm.Expr("version + 1"),
	}
	res := s.db.WithContext(ctx).Model(&models.Submission{}).
		Where("submission_id = ? AND version = ? AND delete_at IS NULL", sub.SubmissionID, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	sub.Version = expectedVersion + 1
	return nil
}

func (s *GormStore) SetDocumentsReady(ctx context.Context, submissionID int, ready bool) error {
	res := s.db.WithContext(ctx).Model(&models.Submission{}).
		Where("submission_id = ?", submissionID).
		UpdateColumn("documents_ready", ready)
	return res.Error
}

func (s *GormStore) ListSubmissionsAtStage(ctx context.Context, stageID int) ([]models.Submission, error) {
	var subs []models.Submission
	err := s.db.WithContext(ctx).
		Where("current_stage_id = ? AND delete_at IS NULL", stageID).
		Order("submission_id ASC").
		Find(&subs).Error
	return subs, err
}

func (s *GormStore) RetireSubmission(ctx context.Context, submissionID int, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.Submission{}).
		Where("submission_id = ? AND delete_at IS NULL", submissionID).
		Updates(map[string]interface{}{"delete_at": at, "updated_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CreateStage(ctx context.Context, stage *models.WorkflowStage) error {
	return s.db.WithContext(ctx).Create(stage).Error
}

func (s *GormStore) GetStage(ctx context.Context, id int) (*models.WorkflowStage, error) {
	var stage models.WorkflowStage
	if err := s.locking(ctx).Where("stage_id = ?", id).First(&stage).Error; err != nil {
		return nil, notFound(err)
	}
	return &stage, nil
}

func (s *GormStore) UpdateStage(ctx context.Context, stage *models.WorkflowStage) error {
	stage.UpdatedAt = time.Now()
	res := s.db.WithContext(ctx).Model(&models.WorkflowStage{}).
		Where("stage_id = ?", stage.StageID).
		Updates(map[string]interface{}{
			"code":        stage.Code,
			"name":        stage.Name,
			"description": stage.Description,
			"stage_order": stage.StageOrder,
			"is_active":   stage.IsActive,
			"updated_at":  stage.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ListStages(ctx context.Context, filter StageFilter) ([]models.WorkflowStage, error) {
	q := s.db.WithContext(ctx).Model(&models.WorkflowStage{})
	if filter.SubmissionType != "" {
		q = q.Where("submission_type = ?", filter.SubmissionType)
	}
	if filter.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	var stages []models.WorkflowStage
	err := q.Order("stage_order ASC").Order("stage_id ASC").Find(&stages).Error
	return stages, err
}

func (s *GormStore) CreateRequirement(ctx context.Context, req *models.DocumentRequirement) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(req).Error
}

func (s *GormStore) GetRequirement(ctx context.Context, id int) (*models.DocumentRequirement, error) {
	var req models.DocumentRequirement
	if err := s.db.WithContext(ctx).Where("requirement_id = ?", id).First(&req).Error; err != nil {
		return nil, notFound(err)
	}
	return &req, nil
}

func (s *GormStore) ListRequirements(ctx context.Context, submissionType string) ([]models.DocumentRequirement, error) {
	var reqs []models.DocumentRequirement
	err := s.db.WithContext(ctx).
		Where("submission_type = ?", submissionType).
		Order("display_order ASC").Order("requirement_id ASC").
		Find(&reqs).Error
	return reqs, err
}

func (s *GormStore) CreateDocument(ctx context.Context, doc *models.Document) error {
	return s.db.WithContext(ctx).Create(doc).Error
}

func (s *GormStore) GetDocument(ctx context.Context, id int) (*models.Document, error) {
	var doc models.Document
	if err := s.db.WithContext(ctx).Where("document_id = ?", id).First(&doc).Error; err != nil {
		return nil, notFound(err)
	}
	return &doc, nil
}

func (s *GormStore) UpdateDocument(ctx context.Context, doc *models.Document) error {
	doc.UpdatedAt = time.Now()
	res := s.db.WithContext(ctx).Model(&models.Document{}).
		Where("document_id = ?", doc.DocumentID).
		Updates(map[string]interface{}{
			"title":      doc.Title,
			"mime_type":  doc.MimeType,
			"file_size":  doc.FileSize,
			"extension":  doc.Extension,
			"updated_at": doc.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CreateSubmissionDocument(ctx context.Context, doc *models.SubmissionDocument) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(doc).Error
}

func (s *GormStore) GetSubmissionDocument(ctx context.Context, id int) (*models.SubmissionDocument, error) {
	var doc models.SubmissionDocument
	if err := s.locking(ctx).Where("id = ? AND delete_at IS NULL", id).First(&doc).Error; err != nil {
		return nil, notFound(err)
	}
	return &doc, nil
}

func (s *GormStore) UpdateSubmissionDocument(ctx context.Context, doc *models.SubmissionDocument) error {
	doc.UpdatedAt = time.Now()
	res := s.db.WithContext(ctx).Model(&models.SubmissionDocument{}).
		Where("id = ?", doc.ID).
		Updates(map[string]interface{}{
			"requirement_id": doc.RequirementID,
			"status":         doc.Status,
			"notes":          doc.Notes,
			"reviewed_by":    doc.ReviewedBy,
			"reviewed_at":    doc.ReviewedAt,
			"delete_at":      doc.DeleteAt,
			"updated_at":     doc.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ListSubmissionDocuments(ctx context.Context, submissionID int) ([]models.SubmissionDocument, error) {
	var docs []models.SubmissionDocument
	err := s.db.WithContext(ctx).
		Where("submission_id = ? AND delete_at IS NULL", submissionID).
		Order("id ASC").
		Find(&docs).Error
	return docs, err
}

func (s *GormStore) AppendHistory(ctx context.Context, row *models.TrackingHistory) (bool, error) {
	if row.FactKey == "" {
		row.FactKey = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	res := s.db.WithContext(ctx).Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "fact_key"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	var existing models.TrackingHistory
	if err := s.db.WithContext(ctx).Where("fact_key = ?", row.FactKey).First(&existing).Error; err != nil {
		return false, notFound(err)
	}
	*row = existing
	return false, nil
}

func (s *GormStore) ListHistory(ctx context.Context, submissionID int) ([]models.TrackingHistory, error) {
	var rows []models.TrackingHistory
	err := s.db.WithContext(ctx).
		Preload("Stage").
		Preload("Document").
		Where("submission_id = ?", submissionID).
		Order("created_at ASC").Order("history_id ASC").
		Find(&rows).Error
	return rows, err
}

func (s *GormStore) EnqueueReconciliation(ctx context.Context, job *models.StageReconciliationJob) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.StageReconciliationJob{}).
		Where("fact_key = ?", job.FactKey).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicate
	}
	if job.Status == "" {
		job.Status = models.StageReconciliationStatusPending
	}
	return s.db.WithContext(ctx).Create(job).Error
}

func (s *GormStore) GetReconciliation(ctx context.Context, id int) (*models.StageReconciliationJob, error) {
	var job models.StageReconciliationJob
	if err := s.locking(ctx).Where("job_id = ?", id).First(&job).Error; err != nil {
		return nil, notFound(err)
	}
	return &job, nil
}

func (s *GormStore) UpdateReconciliation(ctx context.Context, job *models.StageReconciliationJob) error {
	res := s.db.WithContext(ctx).Model(&models.StageReconciliationJob{}).
		Where("job_id = ?", job.JobID).
		Updates(map[string]interface{}{
			"status":         job.Status,
			"attempts":       job.Attempts,
			"affected_count": job.AffectedCount,
			"error_message":  job.ErrorMessage,
			"processed_at":   job.ProcessedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ListPendingReconciliations(ctx context.Context, limit int) ([]models.StageReconciliationJob, error) {
	q := s.db.WithContext(ctx).
		Where("status IN ?", []string{models.StageReconciliationStatusPending, models.StageReconciliationStatusFailed}).
		Order("job_id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var jobs []models.StageReconciliationJob
	err := q.Find(&jobs).Error
	return jobs, err
}

func (s *GormStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.CreateAt.IsZero() {
		n.CreateAt = time.Now()
	}
	return s.db.WithContext(ctx).Create(n).Error
}

var _ Store = (*GormStore)(nil)
