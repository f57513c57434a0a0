package services

import (
	"context"
	"errors"
	"log"

	"ip-tracking-api/events"
	"ip-tracking-api/repository"
)

// DocumentStatusSync keeps the advisory documents_ready flag of a submission
// in line with the readiness gate. The gate stays authoritative; this flag is
// only for listings.
type DocumentStatusSync struct{}

func NewDocumentStatusSync() *DocumentStatusSync {
	return &DocumentStatusSync{}
}

// OnDocument recomputes readiness when a document is attached or reviewed.
func (s *DocumentStatusSync) OnDocument(ctx context.Context, tx repository.Store, fact events.ChangeFact) error {
	if fact.SubmissionID == 0 {
		return nil
	}
	return s.sync(ctx, tx, fact.SubmissionID)
}

// OnSubmission recomputes readiness after a stage move, since stage-bound
// requirements start to apply.
func (s *DocumentStatusSync) OnSubmission(ctx context.Context, tx repository.Store, fact events.ChangeFact) error {
	if !fact.Has(events.FieldCurrentStageID) {
		return nil
	}
	return s.sync(ctx, tx, fact.SubmissionID)
}

func (s *DocumentStatusSync) sync(ctx context.Context, tx repository.Store, submissionID int) error {
	sub, err := tx.GetSubmission(ctx, submissionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	ready, err := NewReadinessGate(tx).CanAdvance(ctx, sub)
	if err != nil {
		if errors.Is(err, ErrStructuralInconsistency) {
			log.Printf("documents_ready sync skipped for submission %d: %v", submissionID, err)
			return nil
		}
		return err
	}
	if ready == sub.DocumentsReady {
		return nil
	}
	return tx.SetDocumentsReady(ctx, submissionID, ready)
}
