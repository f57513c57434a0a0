package services

import (
	"context"
	"errors"
	"fmt"

	"ip-tracking-api/models"
	"ip-tracking-api/repository"
)

// StageGraph resolves the ordered, active stages of a submission type.
// Traversal never papers over a broken graph: duplicate active orders fail
// with ErrStructuralInconsistency.
type StageGraph struct {
	store repository.Store
}

func NewStageGraph(store repository.Store) *StageGraph {
	return &StageGraph{store: store}
}

// Stages returns the active stages of submissionType by ascending order.
func (g *StageGraph) Stages(ctx context.Context, submissionType string) ([]models.WorkflowStage, error) {
	stages, err := g.store.ListStages(ctx, repository.StageFilter{SubmissionType: submissionType, ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(stages); i++ {
		if stages[i].StageOrder == stages[i-1].StageOrder {
			return nil, structuralInconsistency("", fmt.Sprintf(
				"stages %d and %d of %s share order %d",
				stages[i-1].StageID, stages[i].StageID, submissionType, stages[i].StageOrder))
		}
	}
	return stages, nil
}

// FirstStage returns the lowest-ordered active stage, or nil if the type has none.
func (g *StageGraph) FirstStage(ctx context.Context, submissionType string) (*models.WorkflowStage, error) {
	stages, err := g.Stages(ctx, submissionType)
	if err != nil || len(stages) == 0 {
		return nil, err
	}
	return &stages[0], nil
}

// LastStage returns the highest-ordered active stage, or nil.
func (g *StageGraph) LastStage(ctx context.Context, submissionType string) (*models.WorkflowStage, error) {
	stages, err := g.Stages(ctx, submissionType)
	if err != nil || len(stages) == 0 {
		return nil, err
	}
	return &stages[len(stages)-1], nil
}

// NextStage returns the active stage with the lowest order above currentOrder.
func (g *StageGraph) NextStage(ctx context.Context, submissionType string, currentOrder int) (*models.WorkflowStage, error) {
	stages, err := g.Stages(ctx, submissionType)
	if err != nil {
		return nil, err
	}
	for i := range stages {
		if stages[i].StageOrder > currentOrder {
			return &stages[i], nil
		}
	}
	return nil, nil
}

// PreviousStage returns the active stage with the highest order below currentOrder.
func (g *StageGraph) PreviousStage(ctx context.Context, submissionType string, currentOrder int) (*models.WorkflowStage, error) {
	stages, err := g.Stages(ctx, submissionType)
	if err != nil {
		return nil, err
	}
	for i := len(stages) - 1; i >= 0; i-- {
		if stages[i].StageOrder < currentOrder {
			return &stages[i], nil
		}
	}
	return nil, nil
}

// CurrentStage loads the stage sub occupies. It returns nil when the
// submission has no stage and ErrStructuralInconsistency when the pointer is
// dangling or points into another type's graph.
func (g *StageGraph) CurrentStage(ctx context.Context, sub *models.Submission) (*models.WorkflowStage, error) {
	if !sub.HasStage() {
		return nil, nil
	}
	stage, err := g.store.GetStage(ctx, *sub.CurrentStageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, structuralInconsistency("", fmt.Sprintf("submission %d points at missing stage %d", sub.SubmissionID, *sub.CurrentStageID))
		}
		return nil, err
	}
	if !StageBelongsTo(stage, sub) {
		return nil, structuralInconsistency("", fmt.Sprintf(
			"submission %d (%s) sits in stage %d of %s", sub.SubmissionID, sub.SubmissionType, stage.StageID, stage.SubmissionType))
	}
	return stage, nil
}

// ValidateStageDefinition rejects a stage whose order collides with another
// active stage of the same type.
func (g *StageGraph) ValidateStageDefinition(ctx context.Context, stage *models.WorkflowStage) error {
	if stage.StageOrder <= 0 {
		return invalidInput("stage_order must be positive")
	}
	if !stage.IsActive {
		return nil
	}
	stages, err := g.store.ListStages(ctx, repository.StageFilter{SubmissionType: stage.SubmissionType, ActiveOnly: true})
	if err != nil {
		return err
	}
	for _, other := range stages {
		if other.StageID != stage.StageID && other.StageOrder == stage.StageOrder {
			return structuralInconsistency("", fmt.Sprintf(
				"order %d is already used by stage %q of %s", stage.StageOrder, other.Name, stage.SubmissionType))
		}
	}
	return nil
}

// StageBelongsTo reports whether stage is part of the submission's own graph.
func StageBelongsTo(stage *models.WorkflowStage, sub *models.Submission) bool {
	return stage != nil && sub != nil && stage.SubmissionType == sub.SubmissionType
}
