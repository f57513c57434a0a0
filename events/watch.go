package events

import (
	"context"
	"strconv"

	"ip-tracking-api/models"
	"ip-tracking-api/repository"
)

// Watch wraps a transaction-bound store so that every create or update of a
// watched entity is diffed against the stored row and emitted into batch.
// Writes that change no watched field emit nothing.
func Watch(tx repository.Store, batch *Batch) repository.Store {
	return &watchedStore{Store: tx, batch: batch}
}

type watchedStore struct {
	repository.Store
	batch *Batch
}

func (w *watchedStore) RunInTx(_ context.Context, fn func(tx repository.Store) error) error {
	return fn(w)
}

func (w *watchedStore) UpdateSubmission(ctx context.Context, sub *models.Submission, expectedVersion int) error {
	before, err := w.Store.GetSubmission(ctx, sub.SubmissionID)
	if err != nil {
		return err
	}
	if err := w.Store.UpdateSubmission(ctx, sub, expectedVersion); err != nil {
		return err
	}
	changes := diffSubmission(before, sub)
	if len(changes) == 0 {
		return nil
	}
	after := sub.Clone()
	return w.batch.Emit(ctx, ChangeFact{
		Entity:       EntitySubmission,
		EntityID:     sub.SubmissionID,
		SubmissionID: sub.SubmissionID,
		Changes:      changes,
		Submission:   &after,
	})
}

func (w *watchedStore) CreateSubmissionDocument(ctx context.Context, doc *models.SubmissionDocument) error {
	if err := w.Store.CreateSubmissionDocument(ctx, doc); err != nil {
		return err
	}
	after := *doc
	return w.batch.Emit(ctx, ChangeFact{
		Entity:       EntitySubmissionDocument,
		EntityID:     doc.ID,
		SubmissionID: doc.SubmissionID,
		Changes: []FieldChange{
			{Field: FieldCreated, Old: "", New: "true"},
			{Field: FieldStatus, Old: "", New: string(doc.Status)},
		},
		SubmissionDocument: &after,
	})
}

func (w *watchedStore) UpdateSubmissionDocument(ctx context.Context, doc *models.SubmissionDocument) error {
	before, err := w.Store.GetSubmissionDocument(ctx, doc.ID)
	if err != nil {
		return err
	}
	if err := w.Store.UpdateSubmissionDocument(ctx, doc); err != nil {
		return err
	}
	var d differ
	d.str(FieldStatus, string(before.Status), string(doc.Status))
	if len(d.changes) == 0 {
		return nil
	}
	after := *doc
	return w.batch.Emit(ctx, ChangeFact{
		Entity:             EntitySubmissionDocument,
		EntityID:           doc.ID,
		SubmissionID:       doc.SubmissionID,
		Changes:            d.changes,
		SubmissionDocument: &after,
	})
}

func (w *watchedStore) CreateStage(ctx context.Context, stage *models.WorkflowStage) error {
	if err := w.Store.CreateStage(ctx, stage); err != nil {
		return err
	}
	after := *stage
	return w.batch.Emit(ctx, ChangeFact{
		Entity:   EntityWorkflowStage,
		EntityID: stage.StageID,
		Changes: []FieldChange{
			{Field: FieldCreated, Old: "", New: "true"},
			{Field: FieldStageOrder, Old: "", New: strconv.Itoa(stage.StageOrder)},
			{Field: FieldIsActive, Old: "", New: strconv.FormatBool(stage.IsActive)},
		},
		Stage: &after,
	})
}

func (w *watchedStore) UpdateStage(ctx context.Context, stage *models.WorkflowStage) error {
	before, err := w.Store.GetStage(ctx, stage.StageID)
	if err != nil {
		return err
	}
	if err := w.Store.UpdateStage(ctx, stage); err != nil {
		return err
	}
	var d differ
	d.str(FieldStageOrder, strconv.Itoa(before.StageOrder), strconv.Itoa(stage.StageOrder))
	d.str(FieldIsActive, strconv.FormatBool(before.IsActive), strconv.FormatBool(stage.IsActive))
	d.str(FieldName, before.Name, stage.Name)
	if len(d.changes) == 0 {
		return nil
	}
	after := *stage
	return w.batch.Emit(ctx, ChangeFact{
		Entity:   EntityWorkflowStage,
		EntityID: stage.StageID,
		Changes:  d.changes,
		Stage:    &after,
	})
}

func (w *watchedStore) UpdateDocument(ctx context.Context, doc *models.Document) error {
	before, err := w.Store.GetDocument(ctx, doc.DocumentID)
	if err != nil {
		return err
	}
	if err := w.Store.UpdateDocument(ctx, doc); err != nil {
		return err
	}
	var d differ
	d.str(FieldTitle, before.Title, doc.Title)
	d.str(FieldMimeType, before.MimeType, doc.MimeType)
	d.str(FieldFileSize, strconv.FormatInt(before.FileSize, 10), strconv.FormatInt(doc.FileSize, 10))
	d.str(FieldExtension, before.Extension, doc.Extension)
	if len(d.changes) == 0 {
		return nil
	}
	after := *doc
	return w.batch.Emit(ctx, ChangeFact{
		Entity:   EntityDocument,
		EntityID: doc.DocumentID,
		Changes:  d.changes,
		Document: &after,
	})
}

func diffSubmission(before, after *models.Submission) []FieldChange {
	var d differ
	d.str(FieldStatus, string(before.Status), string(after.Status))
	d.str(FieldCurrentStageID, intValue(before.CurrentStageID), intValue(after.CurrentStageID))
	d.str(FieldCertificate, stringValue(before.Certificate), stringValue(after.Certificate))
	return d.changes
}

type differ struct {
	changes []FieldChange
}

func (d *differ) str(field, old, new string) {
	if old != new {
		d.changes = append(d.changes, FieldChange{Field: field, Old: old, New: new})
	}
}

func intValue(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func stringValue(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
