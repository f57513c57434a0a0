package services

import (
	"context"
	"testing"

	"ip-tracking-api/metrics"
	"ip-tracking-api/models"
	"ip-tracking-api/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type patentFixture struct {
	engine      *Engine
	store       *repository.MemoryStore
	metrics     *metrics.Metrics
	screening   *models.WorkflowStage
	review      *models.WorkflowStage
	decision    *models.WorkflowStage
	application *models.DocumentRequirement
}

func newPatentFixture(t *testing.T, notifier Notifier) *patentFixture {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()
	m := metrics.New(prometheus.NewRegistry())
	engine := NewEngine(EngineConfig{Store: store, Metrics: m, Notifier: notifier, CertificatePrefix: "IPC"})
	t.Cleanup(engine.Bus.Wait)

	f := &patentFixture{engine: engine, store: store, metrics: m}
	for i, name := range []string{"Screening", "Review", "Decision"} {
		stage, err := engine.Stages.CreateStage(ctx, &models.WorkflowStage{
			SubmissionType: models.SubmissionTypePatent,
			Code:           name,
			Name:           name,
			StageOrder:     i + 1,
			IsActive:       true,
		}, "admin")
		require.NoError(t, err)
		switch i {
		case 0:
			f.screening = stage
		case 1:
			f.review = stage
		case 2:
			f.decision = stage
		}
	}

	req, err := engine.Stages.CreateRequirement(ctx, &models.DocumentRequirement{
		SubmissionType: models.SubmissionTypePatent,
		DocumentKind:   "application_form",
		Name:           "ApplicationForm",
		IsRequired:     true,
		IsActive:       true,
	})
	require.NoError(t, err)
	f.application = req
	return f
}

func (f *patentFixture) draft(t *testing.T) *models.Submission {
	t.Helper()
	sub, err := f.engine.Workflow.CreateSubmission(context.Background(), CreateSubmissionInput{
		SubmissionType: models.SubmissionTypePatent,
		Title:          "Low-cost solar dryer",
		ApplicantID:    "applicant-1",
		ApplicantEmail: "applicant@example.com",
		Detail:         models.PatentDetail{Inventors: []string{"A. Inventor"}, ClaimsCount: 4},
	})
	require.NoError(t, err)
	return sub
}

func (f *patentFixture) act(t *testing.T, sub *models.Submission, action Action, opts ActionOptions) *models.Submission {
	t.Helper()
	if opts.Processor == "" {
		opts.Processor = "reviewer-1"
	}
	out, err := f.engine.Workflow.ProcessAction(context.Background(), sub, string(action), opts)
	require.NoError(t, err)
	return out
}

// attachApproved attaches the application form and approves it.
func (f *patentFixture) attachApproved(t *testing.T, sub *models.Submission) *models.SubmissionDocument {
	t.Helper()
	ctx := context.Background()
	reqID := f.application.RequirementID
	link, err := f.engine.Documents.AttachDocument(ctx, AttachDocumentInput{
		SubmissionID:  sub.SubmissionID,
		RequirementID: &reqID,
		Title:         "application.pdf",
		MimeType:      "application/pdf",
		FileSize:      2048,
		Extension:     ".PDF",
		UploadedBy:    sub.ApplicantID,
	})
	require.NoError(t, err)
	link, err = f.engine.Documents.UpdateDocumentStatus(ctx, link.ID, models.DocumentStatusApproved, "", "reviewer-1")
	require.NoError(t, err)
	return link
}

// submitted returns a submission sitting in Screening with its documents approved.
func (f *patentFixture) submitted(t *testing.T) *models.Submission {
	t.Helper()
	sub := f.act(t, f.draft(t), ActionSubmit, ActionOptions{Processor: "applicant-1"})
	f.attachApproved(t, sub)
	return sub
}

func (f *patentFixture) history(t *testing.T, submissionID int) []models.TrackingHistory {
	t.Helper()
	rows, err := f.engine.Workflow.History(context.Background(), submissionID)
	require.NoError(t, err)
	return rows
}

func TestNewEngineRegistersListeners(t *testing.T) {
	engine := NewEngine(EngineConfig{Store: repository.NewMemoryStore(), Notifier: NewMultiNotifier()})

	require.Equal(t, []string{
		"ledger.submission",
		"ledger.submission_document",
		"status_sync.submission_document",
		"status_sync.submission",
		"stage_reconcile.enqueue",
		"notifications",
		"stage_reconcile.trigger",
		"metrics.submission",
		"metrics.submission_document",
		"metrics.workflow_stage",
		"metrics.document",
		"audit.document",
	}, engine.Bus.Listeners())
}

func TestNewEngineWithoutNotifierSkipsDispatch(t *testing.T) {
	engine := NewEngine(EngineConfig{Store: repository.NewMemoryStore()})
	require.NotContains(t, engine.Bus.Listeners(), "notifications")
}
