package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ip-tracking-api/models"
	"ip-tracking-api/repository"

	"github.com/google/uuid"
)

// Action is a named operation a caller can request against a submission.
type Action string

const (
	ActionSubmit          Action = "submit"
	ActionAdvanceStage    Action = "advance_stage"
	ActionReturnStage     Action = "return_stage"
	ActionReject          Action = "reject"
	ActionRequestRevision Action = "request_revision"
	ActionResubmit        Action = "resubmit"
)

// AvailableAction is an action legal from the current status, with its label.
type AvailableAction struct {
	ID    Action `json:"id"`
	Label string `json:"label"`
}

type actionRule struct {
	action Action
	label  string
	from   []models.SubmissionStatus
}

var actionTable = []actionRule{
	{ActionSubmit, "Submit", []models.SubmissionStatus{models.SubmissionStatusDraft}},
	{ActionAdvanceStage, "Advance to next stage", []models.SubmissionStatus{models.SubmissionStatusSubmitted, models.SubmissionStatusInReview}},
	{ActionReturnStage, "Return to previous stage", []models.SubmissionStatus{models.SubmissionStatusInReview, models.SubmissionStatusRevisionNeeded}},
	{ActionReject, "Reject", []models.SubmissionStatus{models.SubmissionStatusSubmitted, models.SubmissionStatusInReview}},
	{ActionRequestRevision, "Request revision", []models.SubmissionStatus{models.SubmissionStatusInReview}},
	{ActionResubmit, "Resubmit after revision", []models.SubmissionStatus{models.SubmissionStatusRevisionNeeded}},
}

// ParseAction maps a caller-supplied name onto the closed action set.
func ParseAction(name string) (Action, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, rule := range actionTable {
		if string(rule.action) == name {
			return rule.action, nil
		}
	}
	return "", illegalTransition(Action(name), "unknown action", nil)
}

// AvailableActions lists the actions legal from status, in table order.
func AvailableActions(status models.SubmissionStatus) []AvailableAction {
	out := []AvailableAction{}
	for _, rule := range actionTable {
		for _, from := range rule.from {
			if from == status {
				out = append(out, AvailableAction{ID: rule.action, Label: rule.label})
				break
			}
		}
	}
	return out
}

// IsLegal reports whether action may be requested from status.
func IsLegal(action Action, status models.SubmissionStatus) bool {
	for _, a := range AvailableActions(status) {
		if a.ID == action {
			return true
		}
	}
	return false
}

// ActionOptions are the caller-supplied arguments of an action.
type ActionOptions struct {
	Comment       string `json:"comment"`
	TargetStageID *int   `json:"target_stage_id"`
	Reason        string `json:"reason"`
	Processor     string `json:"-"`
}

// Transition is a validated change, ready to apply.
type Transition struct {
	Action      Action
	FromStatus  models.SubmissionStatus
	ToStatus    models.SubmissionStatus
	FromStageID *int
	ToStageID   *int
	Certificate *string
	Reason      string
	Comment     string
}

// Completes reports whether the transition finishes the submission.
func (t *Transition) Completes() bool {
	return t.ToStatus == models.SubmissionStatusCompleted
}

// Note is the ledger comment for the transition. A reject reason leads.
func (t *Transition) Note() string {
	switch {
	case t.Reason != "" && t.Comment != "":
		return t.Reason + ": " + t.Comment
	case t.Reason != "":
		return t.Reason
	}
	return t.Comment
}

// Apply writes the transition onto sub.
func (t *Transition) Apply(sub *models.Submission, processor string, now time.Time) {
	sub.Status = t.ToStatus
	if t.ToStageID != nil {
		id := *t.ToStageID
		sub.CurrentStageID = &id
	}
	switch t.Action {
	case ActionSubmit:
		sub.SubmittedAt = &now
	case ActionReject:
		reason := t.Reason
		sub.RejectReason = &reason
	}
	if t.Completes() {
		sub.Certificate = t.Certificate
		sub.CompletedAt = &now
	}
	sub.UpdatedBy = processor
	sub.UpdatedAt = now
}

// CertificateIssuer generates completion certificate codes of the form
// PREFIX-TYPECODE-YYYY-XXXXXXXXXXXX.
type CertificateIssuer struct {
	prefix string
	newID  func() string
}

func NewCertificateIssuer(prefix string) *CertificateIssuer {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = "IPC"
	}
	return &CertificateIssuer{prefix: prefix, newID: uuid.NewString}
}

func (c *CertificateIssuer) Issue(sub *models.Submission, at time.Time) string {
	token := strings.ToUpper(strings.ReplaceAll(c.newID(), "-", ""))
	if len(token) > 12 {
		token = token[:12]
	}
	return fmt.Sprintf("%s-%s-%04d-%s", c.prefix, models.SubmissionTypeCode(sub.SubmissionType), at.Year(), token)
}

// StateMachine decides which actions are legal and what they change.
type StateMachine struct {
	certificates *CertificateIssuer
	now          func() time.Time
}

func NewStateMachine(certificates *CertificateIssuer) *StateMachine {
	if certificates == nil {
		certificates = NewCertificateIssuer("")
	}
	return &StateMachine{certificates: certificates, now: time.Now}
}

// Plan validates action against sub as read through store and returns the
// transition to apply. It never mutates sub or the store.
func (m *StateMachine) Plan(ctx context.Context, store repository.Store, sub *models.Submission, action Action, opts ActionOptions) (*Transition, error) {
	if !IsLegal(action, sub.Status) {
		return nil, illegalTransition(action, fmt.Sprintf("not allowed from %s", sub.Status), AvailableActions(sub.Status))
	}

	graph := NewStageGraph(store)
	t := &Transition{
		Action:      action,
		FromStatus:  sub.Status,
		FromStageID: sub.CurrentStageID,
		Comment:     strings.TrimSpace(opts.Comment),
	}

	switch action {
	case ActionSubmit:
		if !models.IsSubmissionTypeValid(sub.SubmissionType) {
			return nil, preconditionFailed(action, fmt.Sprintf("unknown submission type %q", sub.SubmissionType))
		}
		first, err := graph.FirstStage(ctx, sub.SubmissionType)
		if err != nil {
			return nil, withAction(err, action)
		}
		if first == nil {
			return nil, preconditionFailed(action, fmt.Sprintf("no active stage configured for %s", sub.SubmissionType))
		}
		t.ToStatus = models.SubmissionStatusSubmitted
		t.ToStageID = &first.StageID

	case ActionAdvanceStage:
		current, err := m.requireStage(ctx, graph, sub, action)
		if err != nil {
			return nil, err
		}
		report, err := NewReadinessGate(store).Evaluate(ctx, sub)
		if err != nil {
			return nil, withAction(err, action)
		}
		if !report.Ready {
			return nil, &WorkflowError{
				Kind:    ErrPreconditionFailed,
				Action:  action,
				Detail:  fmt.Sprintf("%d required document(s) not approved", len(report.Missing)),
				Missing: report.Missing,
			}
		}
		next, err := graph.NextStage(ctx, sub.SubmissionType, current.StageOrder)
		if err != nil {
			return nil, withAction(err, action)
		}
		if next == nil {
			cert := m.certificates.Issue(sub, m.now())
			t.ToStatus = models.SubmissionStatusCompleted
			t.Certificate = &cert
			break
		}
		t.ToStatus = models.SubmissionStatusInReview
		t.ToStageID = &next.StageID

	case ActionReturnStage:
		current, err := m.requireStage(ctx, graph, sub, action)
		if err != nil {
			return nil, err
		}
		prev, err := graph.PreviousStage(ctx, sub.SubmissionType, current.StageOrder)
		if err != nil {
			return nil, withAction(err, action)
		}
		if prev == nil {
			return nil, preconditionFailed(action, fmt.Sprintf("stage %q has no previous stage", current.Name))
		}
		if opts.TargetStageID == nil {
			return nil, preconditionFailed(action, "target_stage_id is required")
		}
		if *opts.TargetStageID != prev.StageID {
			return nil, preconditionFailed(action, fmt.Sprintf("target stage %d is not the previous stage %d", *opts.TargetStageID, prev.StageID))
		}
		t.ToStatus = models.SubmissionStatusRevisionNeeded
		t.ToStageID = &prev.StageID

	case ActionReject:
		reason := strings.TrimSpace(opts.Reason)
		if reason == "" {
			return nil, preconditionFailed(action, "reason is required")
		}
		t.ToStatus = models.SubmissionStatusRejected
		t.Reason = reason

	case ActionRequestRevision:
		if t.Comment == "" {
			return nil, preconditionFailed(action, "comment is required")
		}
		t.ToStatus = models.SubmissionStatusRevisionNeeded

	case ActionResubmit:
		if _, err := m.requireStage(ctx, graph, sub, action); err != nil {
			return nil, err
		}
		t.ToStatus = models.SubmissionStatusInReview

	default:
		return nil, illegalTransition(action, "unknown action", AvailableActions(sub.Status))
	}
	return t, nil
}

func (m *StateMachine) requireStage(ctx context.Context, graph *StageGraph, sub *models.Submission, action Action) (*models.WorkflowStage, error) {
	current, err := graph.CurrentStage(ctx, sub)
	if err != nil {
		return nil, withAction(err, action)
	}
	if current == nil {
		return nil, structuralInconsistency(action, fmt.Sprintf("submission %d is %s without a current stage", sub.SubmissionID, sub.Status))
	}
	return current, nil
}

func withAction(err error, action Action) error {
	if wfErr, ok := AsWorkflowError(err); ok && wfErr.Action == "" {
		wfErr.Action = action
	}
	return err
}
