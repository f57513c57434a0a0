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
	"ip-tracking-api/utils"

	"github.com/google/uuid"
)

// WorkflowService is the entry point for submission actions.
type WorkflowService struct {
	store     repository.Store
	bus       *events.Bus
	machine   *StateMachine
	ledger    *TrackingLedger
	metrics   *metrics.Metrics
	txTimeout time.Duration
	now       func() time.Time
}

func NewWorkflowService(store repository.Store, bus *events.Bus, machine *StateMachine, ledger *TrackingLedger, m *metrics.Metrics, txTimeout time.Duration) *WorkflowService {
	if txTimeout <= 0 {
		txTimeout = 5 * time.Second
	}
	return &WorkflowService{
		store:     store,
		bus:       bus,
		machine:   machine,
		ledger:    ledger,
		metrics:   m,
		txTimeout: txTimeout,
		now:       time.Now,
	}
}

// CreateSubmissionInput describes a new draft.
type CreateSubmissionInput struct {
	SubmissionType string
	Title          string
	ApplicantID    string
	ApplicantEmail string
	Detail         models.TypeDetail
}

// CreateSubmission stores a new draft. Drafts have no stage and no ledger row.
func (s *WorkflowService) CreateSubmission(ctx context.Context, in CreateSubmissionInput) (*models.Submission, error) {
	if !models.IsSubmissionTypeValid(in.SubmissionType) {
		return nil, invalidInput("unknown submission type %q", in.SubmissionType)
	}
	title := utils.SanitizeInput(in.Title)
	if title == "" {
		return nil, invalidInput("title is required")
	}
	if strings.TrimSpace(in.ApplicantID) == "" {
		return nil, invalidInput("applicant is required")
	}
	email := utils.SanitizeInput(in.ApplicantEmail)
	if email != "" && !utils.ValidateEmail(email) {
		return nil, invalidInput("invalid applicant email %q", email)
	}
	now := s.now()
	sub := &models.Submission{
		SubmissionNumber: newSubmissionNumber(in.SubmissionType, now),
		SubmissionType:   in.SubmissionType,
		Title:            title,
		ApplicantID:      in.ApplicantID,
		ApplicantEmail:   email,
		Status:           models.SubmissionStatusDraft,
		UpdatedBy:        in.ApplicantID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := sub.SetTypeDetail(in.Detail); err != nil {
		return nil, invalidInput("%v", err)
	}
	if err := s.store.CreateSubmission(ctx, sub); err != nil {
		return nil, fmt.Errorf("create submission: %w", err)
	}
	return sub, nil
}

func newSubmissionNumber(submissionType string, at time.Time) string {
	token := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("%s-%04d-%s", models.SubmissionTypeCode(submissionType), at.Year(), token)
}

func (s *WorkflowService) GetSubmission(ctx context.Context, id int) (*models.Submission, error) {
	sub, err := s.store.GetSubmission(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	return sub, nil
}

// GetAvailableActions lists what the caller may request right now.
func (s *WorkflowService) GetAvailableActions(sub *models.Submission) []AvailableAction {
	return AvailableActions(sub.Status)
}

// CanAdvance reports whether every required document is approved.
func (s *WorkflowService) CanAdvance(ctx context.Context, sub *models.Submission) (bool, error) {
	return NewReadinessGate(s.store).CanAdvance(ctx, sub)
}

// Readiness returns the full readiness report.
func (s *WorkflowService) Readiness(ctx context.Context, sub *models.Submission) (ReadinessReport, error) {
	return NewReadinessGate(s.store).Evaluate(ctx, sub)
}

func (s *WorkflowService) History(ctx context.Context, submissionID int) ([]models.TrackingHistory, error) {
	return s.ledger.History(ctx, submissionID)
}

// ProcessAction runs actionID against the caller's snapshot of sub. The
// snapshot's version must still be current; the read, the checks, the update
// and the ledger row happen in one transaction.
func (s *WorkflowService) ProcessAction(ctx context.Context, sub *models.Submission, actionID string, opts ActionOptions) (*models.Submission, error) {
	started := time.Now()
	action, err := ParseAction(actionID)
	if err != nil {
		var wfErr *WorkflowError
		if errors.As(err, &wfErr) {
			wfErr.Allowed = AvailableActions(sub.Status)
		}
		s.metrics.IncrementAction("unknown", resultLabel(err))
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	var result *models.Submission
	err = s.bus.RunInTx(txCtx, s.store, func(tx repository.Store) error {
		current, err := tx.GetSubmission(txCtx, sub.SubmissionID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrSubmissionNotFound
			}
			return err
		}
		if current.Version != sub.Version {
			return concurrentModification(action, fmt.Sprintf("submission %d is at version %d, request was based on %d", current.SubmissionID, current.Version, sub.Version))
		}

		transition, err := s.machine.Plan(txCtx, tx, current, action, opts)
		if err != nil {
			return err
		}
		expected := current.Version
		transition.Apply(current, opts.Processor, s.now())

		originCtx := events.WithOrigin(txCtx, events.Origin{
			ActorID: opts.Processor,
			Action:  string(action),
			Comment: transition.Note(),
		})
		if err := tx.UpdateSubmission(originCtx, current, expected); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return concurrentModification(action, fmt.Sprintf("submission %d changed during %s", current.SubmissionID, action))
			}
			return err
		}
		result = current
		return nil
	})
	s.metrics.IncrementAction(string(action), resultLabel(err))
	s.metrics.ObserveActionLatency(time.Since(started))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RetireSubmission soft-retires a draft or a finished submission together
// with its document links.
func (s *WorkflowService) RetireSubmission(ctx context.Context, id int, actor string) error {
	return s.bus.RunInTx(ctx, s.store, func(tx repository.Store) error {
		sub, err := tx.GetSubmission(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrSubmissionNotFound
			}
			return err
		}
		if sub.Status != models.SubmissionStatusDraft && !sub.Status.IsTerminal() {
			return preconditionFailed("", fmt.Sprintf("submission %d is %s and cannot be retired", id, sub.Status))
		}
		now := s.now()
		docs, err := tx.ListSubmissionDocuments(ctx, id)
		if err != nil {
			return err
		}
		for i := range docs {
			docs[i].DeleteAt = &now
			docs[i].ReviewedBy = actor
			if err := tx.UpdateSubmissionDocument(ctx, &docs[i]); err != nil {
				return err
			}
		}
		return tx.RetireSubmission(ctx, id, now)
	})
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrIllegalTransition):
		return "illegal"
	case errors.Is(err, ErrPreconditionFailed):
		return "precondition"
	case errors.Is(err, ErrConcurrentModification):
		return "conflict"
	case errors.Is(err, ErrStructuralInconsistency):
		return "structural"
	case errors.Is(err, ErrSubmissionNotFound):
		return "not_found"
	}
	return "error"
}
