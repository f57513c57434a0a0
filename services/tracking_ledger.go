package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ip-tracking-api/events"
	"ip-tracking-api/metrics"
	"ip-tracking-api/models"
	"ip-tracking-api/repository"
)

// LedgerFact is one row-to-be of the tracking history.
type LedgerFact struct {
	SubmissionID int
	StageID      *int
	DocumentID   *int
	Status       string
	EventType    string
	Comment      string
	ProcessedBy  string
	Key          string
	OccurredAt   time.Time
}

// TrackingLedger is the append-only history of state-affecting facts. It
// trusts its callers: the only checks are a submission id and the fact key.
type TrackingLedger struct {
	store   repository.Store
	metrics *metrics.Metrics
}

func NewTrackingLedger(store repository.Store, m *metrics.Metrics) *TrackingLedger {
	return &TrackingLedger{store: store, metrics: m}
}

// Append inserts fact through store (the ledger's own store when nil). A fact
// whose key was already recorded returns the existing row with inserted=false.
func (l *TrackingLedger) Append(ctx context.Context, store repository.Store, fact LedgerFact) (*models.TrackingHistory, bool, error) {
	if store == nil {
		store = l.store
	}
	if fact.SubmissionID <= 0 {
		return nil, false, fmt.Errorf("%w: submission id is required", ErrLedgerWriteFailure)
	}
	row := &models.TrackingHistory{
		SubmissionID: fact.SubmissionID,
		StageID:      fact.StageID,
		DocumentID:   fact.DocumentID,
		Status:       fact.Status,
		EventType:    fact.EventType,
		Comment:      fact.Comment,
		ProcessedBy:  fact.ProcessedBy,
		FactKey:      fact.Key,
		CreatedAt:    fact.OccurredAt,
	}
	inserted, err := store.AppendHistory(ctx, row)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrLedgerWriteFailure, err)
	}
	if inserted {
		l.metrics.IncrementLedgerRow(fact.EventType)
	} else {
		l.metrics.IncrementLedgerDuplicate()
	}
	return row, inserted, nil
}

// History returns the rows of a submission, oldest first.
func (l *TrackingLedger) History(ctx context.Context, submissionID int) ([]models.TrackingHistory, error) {
	return l.store.ListHistory(ctx, submissionID)
}

// RecordSubmission turns a submission change into one ledger row: a stage
// move is a stage_transition, anything else a status_change.
func (l *TrackingLedger) RecordSubmission(ctx context.Context, tx repository.Store, fact events.ChangeFact) error {
	if fact.Submission == nil || !fact.Has(events.FieldStatus, events.FieldCurrentStageID) {
		return nil
	}
	sub := fact.Submission
	eventType := models.TrackingEventStatusChange
	if fact.Has(events.FieldCurrentStageID) {
		eventType = models.TrackingEventStageTransition
	}
	_, _, err := l.Append(ctx, tx, LedgerFact{
		SubmissionID: sub.SubmissionID,
		StageID:      sub.CurrentStageID,
		Status:       string(sub.Status),
		EventType:    eventType,
		Comment:      fact.Comment,
		ProcessedBy:  fact.ActorID,
		Key:          fact.Key(),
		OccurredAt:   fact.OccurredAt,
	})
	return err
}

// RecordSubmissionDocument records uploads and reviewer status changes. The
// row carries the stage the submission sits in when the fact happens.
func (l *TrackingLedger) RecordSubmissionDocument(ctx context.Context, tx repository.Store, fact events.ChangeFact) error {
	doc := fact.SubmissionDocument
	if doc == nil || !fact.Has(events.FieldCreated, events.FieldStatus) {
		return nil
	}
	eventType := models.TrackingEventDocumentStatusChange
	if fact.Has(events.FieldCreated) {
		eventType = models.TrackingEventDocumentUpload
	}

	var stageID *int
	sub, err := tx.GetSubmission(ctx, doc.SubmissionID)
	switch {
	case err == nil:
		stageID = sub.CurrentStageID
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: submission %d of document %d not found", ErrLedgerWriteFailure, doc.SubmissionID, doc.ID)
	default:
		return err
	}

	comment := fact.Comment
	if strings.TrimSpace(comment) == "" {
		comment = doc.Notes
	}
	documentID := doc.DocumentID
	_, _, err = l.Append(ctx, tx, LedgerFact{
		SubmissionID: doc.SubmissionID,
		StageID:      stageID,
		DocumentID:   &documentID,
		Status:       string(doc.Status),
		EventType:    eventType,
		Comment:      comment,
		ProcessedBy:  fact.ActorID,
		Key:          fact.Key(),
		OccurredAt:   fact.OccurredAt,
	})
	return err
}
