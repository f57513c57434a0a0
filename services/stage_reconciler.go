package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"ip-tracking-api/events"
	"ip-tracking-api/metrics"
	"ip-tracking-api/models"
	"ip-tracking-api/repository"
)

// ReconcileSummary reports one RunPending pass.
type ReconcileSummary struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Rows      int `json:"rows"`
}

// StageReconciler fans a structural stage edit out to the ledger of every
// in-flight submission sitting in the stage. Jobs are written to the outbox
// in the edit's transaction and processed after commit, by the periodic sweep,
// or by the stage-reconcile command; processing a job twice writes nothing new.
type StageReconciler struct {
	store     repository.Store
	ledger    *TrackingLedger
	metrics   *metrics.Metrics
	batchSize int
	now       func() time.Time
}

func NewStageReconciler(store repository.Store, ledger *TrackingLedger, m *metrics.Metrics) *StageReconciler {
	return &StageReconciler{store: store, ledger: ledger, metrics: m, batchSize: 50, now: time.Now}
}

// Enqueue is the transactional listener on stage facts. Only order and
// activation edits change what next/previous resolve to, so only those are
// queued.
func (r *StageReconciler) Enqueue(ctx context.Context, tx repository.Store, fact events.ChangeFact) error {
	if fact.Stage == nil || fact.Has(events.FieldCreated) || !fact.Has(events.FieldStageOrder, events.FieldIsActive) {
		return nil
	}
	job := &models.StageReconciliationJob{
		StageID:        fact.Stage.StageID,
		SubmissionType: fact.Stage.SubmissionType,
		FactKey:        fact.Key(),
		Summary:        describeStageChange(fact),
		ActorID:        fact.ActorID,
		Status:         models.StageReconciliationStatusPending,
		CreatedAt:      fact.OccurredAt,
	}
	if err := tx.EnqueueReconciliation(ctx, job); err != nil && !errors.Is(err, repository.ErrDuplicate) {
		return fmt.Errorf("enqueue stage reconciliation: %w", err)
	}
	return nil
}

// Trigger is the after-commit listener that drains the queue right away.
func (r *StageReconciler) Trigger(ctx context.Context, fact events.ChangeFact) error {
	if fact.Has(events.FieldCreated) || !fact.Has(events.FieldStageOrder, events.FieldIsActive) {
		return nil
	}
	summary, err := r.RunPending(persistentContext(ctx))
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d stage reconciliation job(s) failed", summary.Failed)
	}
	return nil
}

// RunPending processes queued and previously failed jobs, oldest first.
func (r *StageReconciler) RunPending(ctx context.Context) (ReconcileSummary, error) {
	var summary ReconcileSummary
	jobs, err := r.store.ListPendingReconciliations(ctx, r.batchSize)
	if err != nil {
		return summary, fmt.Errorf("list pending reconciliations: %w", err)
	}
	for _, job := range jobs {
		done, err := r.Process(ctx, job.JobID)
		if err != nil {
			summary.Failed++
			log.Printf("stage reconcile: job %d failed: %v", job.JobID, err)
			continue
		}
		summary.Processed++
		summary.Rows += done.AffectedCount
	}
	return summary, nil
}

// Process fans one job out in a single transaction. A job already done is
// returned untouched.
func (r *StageReconciler) Process(ctx context.Context, jobID int) (*models.StageReconciliationJob, error) {
	var out *models.StageReconciliationJob
	err := r.store.RunInTx(ctx, func(tx repository.Store) error {
		job, err := tx.GetReconciliation(ctx, jobID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrReconcileJobMissing
			}
			return err
		}
		if job.Status == models.StageReconciliationStatusDone {
			out = job
			return nil
		}

		subs, err := tx.ListSubmissionsAtStage(ctx, job.StageID)
		if err != nil {
			return err
		}
		stageID := job.StageID
		affected := 0
		for _, sub := range subs {
			if !sub.Status.IsInFlight() {
				continue
			}
			_, inserted, err := r.ledger.Append(ctx, tx, LedgerFact{
				SubmissionID: sub.SubmissionID,
				StageID:      &stageID,
				Status:       string(sub.Status),
				EventType:    models.TrackingEventStageDefinitionChange,
				Comment:      job.Summary,
				ProcessedBy:  job.ActorID,
				Key:          fmt.Sprintf("%s:%d", job.FactKey, sub.SubmissionID),
				OccurredAt:   r.now(),
			})
			if err != nil {
				return err
			}
			if inserted {
				affected++
			}
		}

		now := r.now()
		job.Status = models.StageReconciliationStatusDone
		job.Attempts++
		job.AffectedCount += affected
		job.ErrorMessage = nil
		job.ProcessedAt = &now
		if err := tx.UpdateReconciliation(ctx, job); err != nil {
			return err
		}
		out = job
		return nil
	})
	if err != nil {
		r.metrics.IncrementReconcileJob("failed")
		r.markFailed(ctx, jobID, err)
		return nil, err
	}
	r.metrics.IncrementReconcileJob("done")
	return out, nil
}

func (r *StageReconciler) markFailed(ctx context.Context, jobID int, cause error) {
	job, err := r.store.GetReconciliation(ctx, jobID)
	if err != nil {
		return
	}
	msg := cause.Error()
	if len(msg) > 2000 {
		msg = fmt.Sprintf("%s...", msg[:1997])
	}
	job.Status = models.StageReconciliationStatusFailed
	job.Attempts++
	job.ErrorMessage = &msg
	if err := r.store.UpdateReconciliation(ctx, job); err != nil {
		log.Printf("stage reconcile: failed to mark job %d failed: %v", jobID, err)
	}
}

// Start sweeps the queue every interval until ctx is cancelled.
func (r *StageReconciler) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			summary, err := r.RunPending(ctx)
			if err != nil {
				log.Printf("stage reconcile: sweep failed: %v", err)
				continue
			}
			if summary.Processed > 0 || summary.Failed > 0 {
				log.Printf("stage reconcile: processed=%d failed=%d rows=%d", summary.Processed, summary.Failed, summary.Rows)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func describeStageChange(fact events.ChangeFact) string {
	name := fact.Stage.Name
	var parts []string
	if c, ok := fact.Changed(events.FieldStageOrder); ok {
		parts = append(parts, fmt.Sprintf("order %s -> %s", c.Old, c.New))
	}
	if c, ok := fact.Changed(events.FieldIsActive); ok {
		if c.New == "true" {
			parts = append(parts, "activated")
		} else {
			parts = append(parts, "deactivated")
		}
	}
	return fmt.Sprintf("stage %q changed: %s", name, strings.Join(parts, ", "))
}
