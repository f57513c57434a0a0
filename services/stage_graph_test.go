package services

import (
	"context"
	"testing"
	"time"

	"ip-tracking-api/config"
	"ip-tracking-api/models"
	"ip-tracking-api/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStage(t *testing.T, store repository.Store, submissionType, name string, order int, active bool) *models.WorkflowStage {
	t.Helper()
	stage := &models.WorkflowStage{SubmissionType: submissionType, Name: name, StageOrder: order, IsActive: active}
	require.NoError(t, store.CreateStage(context.Background(), stage))
	return stage
}

func TestStageGraphTraversalSkipsInactiveStages(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	screening := seedStage(t, store, models.SubmissionTypePatent, "Screening", 1, true)
	seedStage(t, store, models.SubmissionTypePatent, "Legacy", 2, false)
	review := seedStage(t, store, models.SubmissionTypePatent, "Review", 3, true)
	seedStage(t, store, models.SubmissionTypeTrademark, "Examination", 2, true)

	graph := NewStageGraph(store)

	first, err := graph.FirstStage(ctx, models.SubmissionTypePatent)
	require.NoError(t, err)
	assert.Equal(t, screening.StageID, first.StageID)

	next, err := graph.NextStage(ctx, models.SubmissionTypePatent, 1)
	require.NoError(t, err)
	assert.Equal(t, review.StageID, next.StageID)

	prev, err := graph.PreviousStage(ctx, models.SubmissionTypePatent, 3)
	require.NoError(t, err)
	assert.Equal(t, screening.StageID, prev.StageID)

	last, err := graph.LastStage(ctx, models.SubmissionTypePatent)
	require.NoError(t, err)
	assert.Equal(t, review.StageID, last.StageID)

	none, err := graph.NextStage(ctx, models.SubmissionTypePatent, 3)
	require.NoError(t, err)
	assert.Nil(t, none)

	none, err = graph.PreviousStage(ctx, models.SubmissionTypePatent, 1)
	require.NoError(t, err)
	assert.Nil(t, none)

	none, err = graph.FirstStage(ctx, models.SubmissionTypeCopyright)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestStageGraphRejectsDuplicateActiveOrder(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	seedStage(t, store, models.SubmissionTypePatent, "Screening", 1, true)
	seedStage(t, store, models.SubmissionTypePatent, "Also screening", 1, true)

	_, err := NewStageGraph(store).NextStage(ctx, models.SubmissionTypePatent, 0)
	assert.ErrorIs(t, err, ErrStructuralInconsistency)
}

func TestCreateStageValidatesOrder(t *testing.T) {
	ctx := context.Background()
	f := newPatentFixture(t, nil)

	_, err := f.engine.Stages.CreateStage(ctx, &models.WorkflowStage{
		SubmissionType: models.SubmissionTypePatent, Name: "Second review", StageOrder: 2, IsActive: true,
	}, "admin")
	assert.ErrorIs(t, err, ErrStructuralInconsistency)

	// An inactive stage may share an order; it never takes part in traversal.
	_, err = f.engine.Stages.CreateStage(ctx, &models.WorkflowStage{
		SubmissionType: models.SubmissionTypePatent, Name: "Archived review", StageOrder: 2,
	}, "admin")
	assert.NoError(t, err)

	_, err = f.engine.Stages.CreateStage(ctx, &models.WorkflowStage{
		SubmissionType: models.SubmissionTypePatent, Name: "Zero", StageOrder: 0, IsActive: true,
	}, "admin")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.engine.Stages.CreateStage(ctx, &models.WorkflowStage{
		SubmissionType: "recipe", Name: "Tasting", StageOrder: 1, IsActive: true,
	}, "admin")
	assert.ErrorIs(t, err, ErrInvalidInput)

	order := 3
	_, err = f.engine.Stages.UpdateStage(ctx, f.screening.StageID, StagePatch{StageOrder: &order}, "admin")
	assert.ErrorIs(t, err, ErrStructuralInconsistency)

	_, err = f.engine.Stages.UpdateStage(ctx, 999, StagePatch{StageOrder: &order}, "admin")
	assert.ErrorIs(t, err, ErrStageNotFound)

	stages, err := f.engine.Stages.ListStages(ctx, models.SubmissionTypePatent, true)
	require.NoError(t, err)
	assert.Len(t, stages, 3)
}

func TestCurrentStageOfAnotherTypeIsStructural(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	tmStage := seedStage(t, store, models.SubmissionTypeTrademark, "Examination", 1, true)

	sub := &models.Submission{
		SubmissionID:   1,
		SubmissionType: models.SubmissionTypePatent,
		Status:         models.SubmissionStatusInReview,
		CurrentStageID: &tmStage.StageID,
	}
	_, err := NewStageGraph(store).CurrentStage(ctx, sub)
	assert.ErrorIs(t, err, ErrStructuralInconsistency)

	missing := 404
	sub.CurrentStageID = &missing
	_, err = NewStageGraph(store).CurrentStage(ctx, sub)
	assert.ErrorIs(t, err, ErrStructuralInconsistency)
}

func TestStageRequirementAppliesFromItsStage(t *testing.T) {
	ctx := context.Background()
	f := newPatentFixture(t, nil)
	reviewID := f.review.StageID
	drawings, err := f.engine.Stages.CreateRequirement(ctx, &models.DocumentRequirement{
		SubmissionType: models.SubmissionTypePatent,
		StageID:        &reviewID,
		DocumentKind:   "drawings",
		IsRequired:     true,
		IsActive:       true,
	})
	require.NoError(t, err)

	sub := f.submitted(t)
	report, err := f.engine.Workflow.Readiness(ctx, sub)
	require.NoError(t, err)
	assert.True(t, report.Ready)
	assert.Equal(t, 1, report.Required)

	sub = f.act(t, sub, ActionAdvanceStage, ActionOptions{})
	report, err = f.engine.Workflow.Readiness(ctx, sub)
	require.NoError(t, err)
	assert.False(t, report.Ready)
	require.Len(t, report.Missing, 1)
	assert.Equal(t, drawings.RequirementID, report.Missing[0].RequirementID)
	assert.Equal(t, "drawings", report.Missing[0].Name)

	got, err := f.engine.Workflow.GetSubmission(ctx, sub.SubmissionID)
	require.NoError(t, err)
	assert.False(t, got.DocumentsReady)
}

func TestCreateRequirementChecksStageType(t *testing.T) {
	ctx := context.Background()
	f := newPatentFixture(t, nil)
	reviewID := f.review.StageID

	_, err := f.engine.Stages.CreateRequirement(ctx, &models.DocumentRequirement{
		SubmissionType: models.SubmissionTypeTrademark, StageID: &reviewID, DocumentKind: "specimen",
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.engine.Stages.CreateRequirement(ctx, &models.DocumentRequirement{SubmissionType: models.SubmissionTypePatent})
	assert.ErrorIs(t, err, ErrInvalidInput)

	missing := 999
	_, err = f.engine.Stages.CreateRequirement(ctx, &models.DocumentRequirement{
		SubmissionType: models.SubmissionTypePatent, StageID: &missing, DocumentKind: "x",
	})
	assert.ErrorIs(t, err, ErrStageNotFound)

	reqs, err := f.engine.Stages.ListRequirements(ctx, models.SubmissionTypePatent)
	require.NoError(t, err)
	assert.Len(t, reqs, 1)
}

func TestCertificateIssuerFormat(t *testing.T) {
	issuer := NewCertificateIssuer(" ipc ")
	issuer.newID = func() string { return "0f8fad5b-d9cb-469f-a165-70867728950e" }

	code := issuer.Issue(&models.Submission{SubmissionType: models.SubmissionTypeCopyright}, time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "IPC-CR-2026-0F8FAD5BD9CB", code)

	assert.Equal(t, "IPC", NewCertificateIssuer("").prefix)
}

func TestAvailableActionsTable(t *testing.T) {
	ids := func(status models.SubmissionStatus) []Action {
		var out []Action
		for _, a := range AvailableActions(status) {
			out = append(out, a.ID)
		}
		return out
	}
	assert.Equal(t, []Action{ActionSubmit}, ids(models.SubmissionStatusDraft))
	assert.Equal(t, []Action{ActionAdvanceStage, ActionReject}, ids(models.SubmissionStatusSubmitted))
	assert.Equal(t, []Action{ActionAdvanceStage, ActionReturnStage, ActionReject, ActionRequestRevision}, ids(models.SubmissionStatusInReview))
	assert.Equal(t, []Action{ActionReturnStage, ActionResubmit}, ids(models.SubmissionStatusRevisionNeeded))
	assert.Empty(t, ids(models.SubmissionStatusCompleted))
	assert.Empty(t, ids(models.SubmissionStatusRejected))

	action, err := ParseAction(" Advance_Stage ")
	require.NoError(t, err)
	assert.Equal(t, ActionAdvanceStage, action)
}

func TestApplySeedIsRepeatable(t *testing.T) {
	ctx := context.Background()
	engine := NewEngine(EngineConfig{Store: repository.NewMemoryStore()})
	t.Cleanup(engine.Bus.Wait)

	seed, err := config.ParseStageSeed([]byte(`types:
  - type: patent
    stages:
      - {code: screening, name: Screening, order: 1}
      - {code: review, name: Review, order: 2}
    requirements:
      - {kind: application_form, name: ApplicationForm, required: true, extensions: [pdf]}
      - {kind: drawings, stage: review, required: true}
`))
	require.NoError(t, err)

	summary, err := engine.Stages.ApplySeed(ctx, seed, "migrate")
	require.NoError(t, err)
	assert.Equal(t, SeedSummary{Stages: 2, Requirements: 2}, summary)

	summary, err = engine.Stages.ApplySeed(ctx, seed, "migrate")
	require.NoError(t, err)
	assert.Equal(t, SeedSummary{Skipped: 4}, summary)

	reqs, err := engine.Stages.ListRequirements(ctx, models.SubmissionTypePatent)
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	var drawings models.DocumentRequirement
	for _, req := range reqs {
		if req.DocumentKind == "drawings" {
			drawings = req
		}
	}
	require.NotNil(t, drawings.StageID)
	stage, err := engine.Store.GetStage(ctx, *drawings.StageID)
	require.NoError(t, err)
	assert.Equal(t, "review", stage.Code)
}
