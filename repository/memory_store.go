package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"ip-tracking-api/models"
)

// MemoryStore keeps the whole workflow state in process. Transactions are
// serializable: RunInTx holds the write lock and works on a copy that replaces
// the live state only when fn succeeds.
type MemoryStore struct {
	mu   sync.RWMutex
	data *memData
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: newMemData()}
}

type memData struct {
	submissions   map[int]models.Submission
	stages        map[int]models.WorkflowStage
	requirements  map[int]models.DocumentRequirement
	documents     map[int]models.Document
	subDocs       map[int]models.SubmissionDocument
	history       []models.TrackingHistory
	historyKeys   map[string]int
	jobs          map[int]models.StageReconciliationJob
	jobKeys       map[string]int
	notifications []models.Notification
	seq           map[string]int
}

func newMemData() *memData {
	return &memData{
		submissions:  make(map[int]models.Submission),
		stages:       make(map[int]models.WorkflowStage),
		requirements: make(map[int]models.DocumentRequirement),
		documents:    make(map[int]models.Document),
		subDocs:      make(map[int]models.SubmissionDocument),
		historyKeys:  make(map[string]int),
		jobs:         make(map[int]models.StageReconciliationJob),
		jobKeys:      make(map[string]int),
		seq:          make(map[string]int),
	}
}

func (d *memData) clone() *memData {
	out := newMemData()
	for k, v := range d.submissions {
		out.submissions[k] = v.Clone()
	}
	for k, v := range d.stages {
		out.stages[k] = v
	}
	for k, v := range d.requirements {
		out.requirements[k] = cloneRequirement(v)
	}
	for k, v := range d.documents {
		out.documents[k] = v
	}
	for k, v := range d.subDocs {
		out.subDocs[k] = cloneSubmissionDocument(v)
	}
	out.history = append(out.history, d.history...)
	for k, v := range d.historyKeys {
		out.historyKeys[k] = v
	}
	for k, v := range d.jobs {
		out.jobs[k] = v
	}
	for k, v := range d.jobKeys {
		out.jobKeys[k] = v
	}
	out.notifications = append(out.notifications, d.notifications...)
	for k, v := range d.seq {
		out.seq[k] = v
	}
	return out
}

func (d *memData) next(table string) int {
	d.seq[table]++
	return d.seq[table]
}

func (s *MemoryStore) view(fn func(t *memTx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&memTx{data: s.data})
}

func (s *MemoryStore) update(fn func(t *memTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&memTx{data: s.data})
}

func (s *MemoryStore) RunInTx(ctx context.Context, fn func(tx Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.data.clone()
	if err := fn(&memTx{data: work}); err != nil {
		return err
	}
	s.data = work
	return nil
}

func (s *MemoryStore) CreateSubmission(ctx context.Context, sub *models.Submission) error {
	return s.update(func(t *memTx) error { return t.CreateSubmission(ctx, sub) })
}

func (s *MemoryStore) GetSubmission(ctx context.Context, id int) (out *models.Submission, err error) {
	err = s.view(func(t *memTx) error {
		out, err = t.GetSubmission(ctx, id)
		return err
	})
	return out, err
}

func (s *MemoryStore) UpdateSubmission(ctx context.Context, sub *models.Submission, expectedVersion int) error {
	return s.update(func(t *memTx) error { return t.UpdateSubmission(ctx, sub, expectedVersion) })
}

func (s *MemoryStore) SetDocumentsReady(ctx context.Context, submissionID int, ready bool) error {
	return s.update(func(t *memTx) error { return t.SetDocumentsReady(ctx, submissionID, ready) })
}

func (s *MemoryStore) ListSubmissionsAtStage(ctx context.Context, stageID int) (out []models.Submission, err error) {
	err = s.view(func(t *memTx) error {
		out, err = t.ListSubmissionsAtStage(ctx, stageID)
		return err
	})
	return out, err
}

func (s *MemoryStore) RetireSubmission(ctx context.Context, submissionID int, at time.Time) error {
	return s.update(func(t *memTx) error { return t.RetireSubmission(ctx, submissionID, at) })
}

func (s *MemoryStore) CreateStage(ctx context.Context, stage *models.WorkflowStage) error {
	return s.update(func(t *memTx) error { return t.CreateStage(ctx, stage) })
}

func (s *MemoryStore) GetStage(ctx context.Context, id int) (out *models.WorkflowStage, err error) {
	err = s.view(func(t *memTx) error {
		out, err = t.GetStage(ctx, id)
		return err
	})
	return out, err
}

func (s *MemoryStore) UpdateStage(ctx context.Context, stage *models.WorkflowStage) error {
	return s.update(func(t *memTx) error { return t.UpdateStage(ctx, stage) })
}

func (s *MemoryStore) ListStages(ctx context.Context, filter StageFilter) (out []models.WorkflowStage, err error) {
	err = s.view(func(t *memTx) error {
		out, err = t.ListStages(ctx, filter)
		return err
	})
	return out, err
}

func (s *MemoryStore) CreateRequirement(ctx context.Context, req *models.DocumentRequirement) error {
	return s.update(func(t *memTx) error { return t.CreateRequirement(ctx, req) })
}

func (s *MemoryStore) GetRequirement(ctx context.Context, id int) (out *models.DocumentRequirement, err error) {
	err = s.view(func(t *memTx) error {
		out, err = t.GetRequirement(ctx, id)
		return err
	})
	return out, err
}

func (s *MemoryStore) ListRequirements(ctx context.Context, submissionType string) (out []models.DocumentRequirement, err error) {
	err = s.view(func(t *memTx) error {
		out, err = t.ListRequirements(ctx, submissionType)
		return err
	})
	return out, err
}

func (s *MemoryStore) CreateDocument(ctx context.Context, doc *models.Document) error {
	return s.update(func(t *memTx) error { return t.CreateDocument(ctx, doc) })
}

func (s *MemoryStore) GetDocument(ctx context.Context, id int) (out *models.Document, err error) {
	err = s.view(func(t *memTx) error {
		out, err = t.GetDocument(ctx, id)
		return err
	})
	return out, err
}

func (s *MemoryStore) UpdateDocument(ctx context.Context, doc *models.Document) error {
	return s.update(func(t *memTx) error { return t.UpdateDocument(ctx, doc) })
}

func (s *MemoryStore) CreateSubmissionDocument(ctx context.Context, doc *models.SubmissionDocument) error {
	return s.update(func(t *memTx) error { return t.CreateSubmissionDocument(ctx, doc) })
}

func (s *MemoryStore) GetSubmissionDocument(ctx context.Context, id int) (out *models.SubmissionDocument, err error) {
	err = s.view(func(t *memTx) error {
		out, err = t.GetSubmissionDocument(ctx, id)
		return err
	})
	return out, err
}

func (s *MemoryStore) UpdateSubmissionDocument(ctx context.Context, doc *models.SubmissionDocument) error {
	return s.update(func(t *memTx) error { return t.UpdateSubmissionDocument(ctx, doc) })
}

func (s *MemoryStore) ListSubmissionDocuments(ctx context.Context, submissionID int) (out []models.SubmissionDocument, err error) {
	err = s.view(func(t *memTx) error {
		out, err = t.ListSubmissionDocuments(ctx, submissionID)
		return err
	})
	return out, err
}

func (s *MemoryStore) AppendHistory(ctx context.Context, row *models.TrackingHistory) (inserted bool, err error) {
	err = s.update(func(t *memTx) error {
		inserted, err = t.AppendHistory(ctx, row)
		return err
	})
	return inserted, err
}

func (s *MemoryStore) ListHistory(ctx context.Context, submissionID int) (out []models.TrackingHistory, err error) {
	err = s.view(func(t *memTx) error {
		out, err = t.ListHistory(ctx, submissionID)
		return err
	})
	return out, err
}

func (s *MemoryStore) EnqueueReconciliation(ctx context.Context, job *models.StageReconciliationJob) error {
	return s.update(func(t *memTx) error { return t.EnqueueReconciliation(ctx, job) })
}

func (s *MemoryStore) GetReconciliation(ctx context.Context, id int) (out *models.StageReconciliationJob, err error) {
	err = s.view(func(t *memTx) error {
		out, err = t.GetReconciliation(ctx, id)
		return err
	})
	return out, err
}

func (s *MemoryStore) UpdateReconciliation(ctx context.Context, job *models.StageReconciliationJob) error {
	return s.update(func(t *memTx) error { return t.UpdateReconciliation(ctx, job) })
}

func (s *MemoryStore) ListPendingReconciliations(ctx context.Context, limit int) (out []models.StageReconciliationJob, err error) {
	err = s.view(func(t *memTx) error {
		out, err = t.ListPendingReconciliations(ctx, limit)
		return err
	})
	return out, err
}

func (s *MemoryStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	return s.update(func(t *memTx) error { return t.CreateNotification(ctx, n) })
}

// Notifications returns a copy of the in-app notifications written so far.
func (s *MemoryStore) Notifications() []models.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Notification{}, s.data.notifications...)
}

// memTx implements Store over one memData without locking; the owning
// MemoryStore holds the lock for its lifetime.
type memTx struct {
	data *memData
}

func (t *memTx) RunInTx(_ context.Context, fn func(tx Store) error) error {
	return fn(t)
}

func stamp(created *time.Time, updated *time.Time) {
	now := time.Now()
	if created != nil && created.IsZero() {
		*created = now
	}
	if updated != nil && updated.IsZero() {
		*updated = now
	}
}

func (t *memTx) CreateSubmission(_ context.Context, sub *models.Submission) error {
	sub.SubmissionID = t.data.next("submissions")
	if sub.Version == 0 {
		sub.Version = 1
	}
	stamp(&sub.CreatedAt, &sub.UpdatedAt)
	t.data.submissions[sub.SubmissionID] = sub.Clone()
	return nil
}

func (t *memTx) GetSubmission(_ context.Context, id int) (*models.Submission, error) {
	sub, ok := t.data.submissions[id]
	if !ok || sub.IsRetired() {
		return nil, ErrNotFound
	}
	out := sub.Clone()
	return &out, nil
}

func (t *memTx) UpdateSubmission(_ context.Context, sub *models.Submission, expectedVersion int) error {
	stored, ok := t.data.submissions[sub.SubmissionID]
	if !ok || stored.IsRetired() {
		return ErrNotFound
	}
	if stored.Version != expectedVersion {
		return ErrConflict
	}
	sub.Version = expectedVersion + 1
	if sub.UpdatedAt.IsZero() || !sub.UpdatedAt.After(stored.UpdatedAt) {
		sub.UpdatedAt = time.Now()
	}
	next := sub.Clone()
	next.DocumentsReady = stored.DocumentsReady
	next.CreatedAt = stored.CreatedAt
	t.data.submissions[sub.SubmissionID] = next
	sub.DocumentsReady = stored.DocumentsReady
	return nil
}

func (t *memTx) SetDocumentsReady(_ context.Context, submissionID int, ready bool) error {
	stored, ok := t.data.submissions[submissionID]
	if !ok {
		return ErrNotFound
	}
	stored.DocumentsReady = ready
	t.data.submissions[submissionID] = stored
	return nil
}

func (t *memTx) ListSubmissionsAtStage(_ context.Context, stageID int) ([]models.Submission, error) {
	var out []models.Submission
	for _, sub := range t.data.submissions {
		if sub.IsRetired() || sub.CurrentStageID == nil || *sub.CurrentStageID != stageID {
			continue
		}
		out = append(out, sub.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmissionID < out[j].SubmissionID })
	return out, nil
}

func (t *memTx) RetireSubmission(_ context.Context, submissionID int, at time.Time) error {
	stored, ok := t.data.submissions[submissionID]
	if !ok || stored.IsRetired() {
		return ErrNotFound
	}
	stored.DeleteAt = &at
	stored.UpdatedAt = at
	t.data.submissions[submissionID] = stored
	return nil
}

func (t *memTx) CreateStage(_ context.Context, stage *models.WorkflowStage) error {
	stage.StageID = t.data.next("workflow_stages")
	stamp(&stage.CreatedAt, &stage.UpdatedAt)
	t.data.stages[stage.StageID] = *stage
	return nil
}

func (t *memTx) GetStage(_ context.Context, id int) (*models.WorkflowStage, error) {
	stage, ok := t.data.stages[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &stage, nil
}

func (t *memTx) UpdateStage(_ context.Context, stage *models.WorkflowStage) error {
	stored, ok := t.data.stages[stage.StageID]
	if !ok {
		return ErrNotFound
	}
	stage.CreatedAt = stored.CreatedAt
	stage.UpdatedAt = time.Now()
	t.data.stages[stage.StageID] = *stage
	return nil
}

func (t *memTx) ListStages(_ context.Context, filter StageFilter) ([]models.WorkflowStage, error) {
	var out []models.WorkflowStage
	for _, stage := range t.data.stages {
		if filter.SubmissionType != "" && stage.SubmissionType != filter.SubmissionType {
			continue
		}
		if filter.ActiveOnly && !stage.IsActive {
			continue
		}
		out = append(out, stage)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StageOrder != out[j].StageOrder {
			return out[i].StageOrder < out[j].StageOrder
		}
		return out[i].StageID < out[j].StageID
	})
	return out, nil
}

func cloneRequirement(req models.DocumentRequirement) models.DocumentRequirement {
	if req.StageID != nil {
		id := *req.StageID
		req.StageID = &id
	}
	req.Stage = nil
	return req
}

func (t *memTx) CreateRequirement(_ context.Context, req *models.DocumentRequirement) error {
	req.RequirementID = t.data.next("document_requirements")
	stamp(&req.CreatedAt, &req.UpdatedAt)
	t.data.requirements[req.RequirementID] = cloneRequirement(*req)
	return nil
}

func (t *memTx) GetRequirement(_ context.Context, id int) (*models.DocumentRequirement, error) {
	req, ok := t.data.requirements[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneRequirement(req)
	return &out, nil
}

func (t *memTx) ListRequirements(_ context.Context, submissionType string) ([]models.DocumentRequirement, error) {
	var out []models.DocumentRequirement
	for _, req := range t.data.requirements {
		if req.SubmissionType == submissionType {
			out = append(out, cloneRequirement(req))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].RequirementID < out[j].RequirementID
	})
	return out, nil
}

func (t *memTx) CreateDocument(_ context.Context, doc *models.Document) error {
	doc.DocumentID = t.data.next("documents")
	stamp(&doc.CreatedAt, &doc.UpdatedAt)
	t.data.documents[doc.DocumentID] = *doc
	return nil
}

func (t *memTx) GetDocument(_ context.Context, id int) (*models.Document, error) {
	doc, ok := t.data.documents[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &doc, nil
}

func (t *memTx) UpdateDocument(_ context.Context, doc *models.Document) error {
	stored, ok := t.data.documents[doc.DocumentID]
	if !ok {
		return ErrNotFound
	}
	doc.CreatedAt = stored.CreatedAt
	doc.UpdatedAt = time.Now()
	t.data.documents[doc.DocumentID] = *doc
	return nil
}

func cloneSubmissionDocument(doc models.SubmissionDocument) models.SubmissionDocument {
	if doc.RequirementID != nil {
		id := *doc.RequirementID
		doc.RequirementID = &id
	}
	if doc.ReviewedAt != nil {
		at := *doc.ReviewedAt
		doc.ReviewedAt = &at
	}
	if doc.DeleteAt != nil {
		at := *doc.DeleteAt
		doc.DeleteAt = &at
	}
	doc.Document = nil
	doc.Requirement = nil
	return doc
}

func (t *memTx) CreateSubmissionDocument(_ context.Context, doc *models.SubmissionDocument) error {
	doc.ID = t.data.next("submission_documents")
	stamp(&doc.CreatedAt, &doc.UpdatedAt)
	t.data.subDocs[doc.ID] = cloneSubmissionDocument(*doc)
	return nil
}

func (t *memTx) GetSubmissionDocument(_ context.Context, id int) (*models.SubmissionDocument, error) {
	doc, ok := t.data.subDocs[id]
	if !ok || doc.DeleteAt != nil {
		return nil, ErrNotFound
	}
	out := cloneSubmissionDocument(doc)
	return &out, nil
}

func (t *memTx) UpdateSubmissionDocument(_ context.Context, doc *models.SubmissionDocument) error {
	stored, ok := t.data.subDocs[doc.ID]
	if !ok {
		return ErrNotFound
	}
	doc.CreatedAt = stored.CreatedAt
	doc.UpdatedAt = time.Now()
	t.data.subDocs[doc.ID] = cloneSubmissionDocument(*doc)
	return nil
}

func (t *memTx) ListSubmissionDocuments(_ context.Context, submissionID int) ([]models.SubmissionDocument, error) {
	var out []models.SubmissionDocument
	for _, doc := range t.data.subDocs {
		if doc.SubmissionID == submissionID && doc.DeleteAt == nil {
			out = append(out, cloneSubmissionDocument(doc))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) AppendHistory(_ context.Context, row *models.TrackingHistory) (bool, error) {
	if row.FactKey != "" {
		if idx, ok := t.data.historyKeys[row.FactKey]; ok {
			*row = t.data.history[idx]
			return false, nil
		}
	}
	row.HistoryID = t.data.next("tracking_history")
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	stored := *row
	stored.Stage = nil
	stored.Document = nil
	t.data.history = append(t.data.history, stored)
	if row.FactKey != "" {
		t.data.historyKeys[row.FactKey] = len(t.data.history) - 1
	}
	return true, nil
}

func (t *memTx) ListHistory(_ context.Context, submissionID int) ([]models.TrackingHistory, error) {
	var out []models.TrackingHistory
	for _, row := range t.data.history {
		if row.SubmissionID == submissionID {
			out = append(out, row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].HistoryID < out[j].HistoryID
	})
	return out, nil
}

func (t *memTx) EnqueueReconciliation(_ context.Context, job *models.StageReconciliationJob) error {
	if _, ok := t.data.jobKeys[job.FactKey]; ok {
		return ErrDuplicate
	}
	job.JobID = t.data.next("stage_reconciliation_jobs")
	if job.Status == "" {
		job.Status = models.StageReconciliationStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	t.data.jobs[job.JobID] = *job
	t.data.jobKeys[job.FactKey] = job.JobID
	return nil
}

func (t *memTx) GetReconciliation(_ context.Context, id int) (*models.StageReconciliationJob, error) {
	job, ok := t.data.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &job, nil
}

func (t *memTx) UpdateReconciliation(_ context.Context, job *models.StageReconciliationJob) error {
	if _, ok := t.data.jobs[job.JobID]; !ok {
		return ErrNotFound
	}
	t.data.jobs[job.JobID] = *job
	return nil
}

func (t *memTx) ListPendingReconciliations(_ context.Context, limit int) ([]models.StageReconciliationJob, error) {
	var out []models.StageReconciliationJob
	for _, job := range t.data.jobs {
		if job.IsPending() {
			out = append(out, job)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobID < out[j].JobID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *memTx) CreateNotification(_ context.Context, n *models.Notification) error {
	n.NotificationID = t.data.next("notifications")
	if n.CreateAt.IsZero() {
		n.CreateAt = time.Now()
	}
	t.data.notifications = append(t.data.notifications, *n)
	return nil
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*memTx)(nil)
)
