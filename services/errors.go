package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrIllegalTransition       = errors.New("illegal transition")
	ErrPreconditionFailed      = errors.New("precondition failed")
	ErrConcurrentModification  = errors.New("concurrent modification")
	ErrStructuralInconsistency = errors.New("structural inconsistency")
	ErrLedgerWriteFailure      = errors.New("ledger write failure")

	ErrSubmissionNotFound  = errors.New("submission not found")
	ErrStageNotFound       = errors.New("workflow stage not found")
	ErrRequirementNotFound = errors.New("document requirement not found")
	ErrDocumentNotFound    = errors.New("submission document not found")
	ErrReconcileJobMissing = errors.New("stage reconciliation job not found")
	ErrInvalidInput        = errors.New("invalid input")
)

// WorkflowError carries the business error kind plus what a caller needs to
// correct the request: the actions legal right now and the requirements that
// still lack an approved document.
type WorkflowError struct {
	Kind    error
	Action  Action
	Detail  string
	Allowed []AvailableAction
	Missing []MissingRequirement
}

func (e *WorkflowError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Action != "" {
		fmt.Fprintf(&b, " (%s)", e.Action)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *WorkflowError) Unwrap() error {
	return e.Kind
}

func illegalTransition(action Action, detail string, allowed []AvailableAction) error {
	return &WorkflowError{Kind: ErrIllegalTransition, Action: action, Detail: detail, Allowed: allowed}
}

func preconditionFailed(action Action, detail string) error {
	return &WorkflowError{Kind: ErrPreconditionFailed, Action: action, Detail: detail}
}

func structuralInconsistency(action Action, detail string) error {
	return &WorkflowError{Kind: ErrStructuralInconsistency, Action: action, Detail: detail}
}

func concurrentModification(action Action, detail string) error {
	return &WorkflowError{Kind: ErrConcurrentModification, Action: action, Detail: detail}
}

func invalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// AsWorkflowError unwraps err into a *WorkflowError when it carries one.
func AsWorkflowError(err error) (*WorkflowError, bool) {
	var wfErr *WorkflowError
	if errors.As(err, &wfErr) {
		return wfErr, true
	}
	return nil, false
}
