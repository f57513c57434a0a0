package services

import (
	"context"
	"errors"
	"fmt"

	"ip-tracking-api/models"
	"ip-tracking-api/repository"
)

// MissingRequirement is a required document category without an approved upload.
type MissingRequirement struct {
	RequirementID int    `json:"requirement_id"`
	Name          string `json:"name"`
	DocumentKind  string `json:"document_kind"`
	StageID       *int   `json:"stage_id,omitempty"`
}

// ReadinessReport explains a readiness decision.
type ReadinessReport struct {
	SubmissionID int                  `json:"submission_id"`
	StageID      *int                 `json:"stage_id"`
	Ready        bool                 `json:"ready"`
	Required     int                  `json:"required"`
	Satisfied    int                  `json:"satisfied"`
	Missing      []MissingRequirement `json:"missing"`
}

// ReadinessGate decides whether a submission's required documents are all
// approved for its current stage. Every call reads the store afresh.
type ReadinessGate struct {
	store repository.Store
}

func NewReadinessGate(store repository.Store) *ReadinessGate {
	return &ReadinessGate{store: store}
}

func (g *ReadinessGate) CanAdvance(ctx context.Context, sub *models.Submission) (bool, error) {
	report, err := g.Evaluate(ctx, sub)
	if err != nil {
		return false, err
	}
	return report.Ready, nil
}

// Evaluate applies every active required requirement of the submission type
// that is type-wide or bound to a stage at or before the current one.
func (g *ReadinessGate) Evaluate(ctx context.Context, sub *models.Submission) (ReadinessReport, error) {
	report := ReadinessReport{SubmissionID: sub.SubmissionID, Missing: []MissingRequirement{}}

	currentOrder := 0
	if sub.HasStage() {
		id := *sub.CurrentStageID
		report.StageID = &id
		stage, err := g.store.GetStage(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return report, structuralInconsistency("", fmt.Sprintf("submission %d points at missing stage %d", sub.SubmissionID, id))
			}
			return report, err
		}
		currentOrder = stage.StageOrder
	}

	reqs, err := g.store.ListRequirements(ctx, sub.SubmissionType)
	if err != nil {
		return report, err
	}
	docs, err := g.store.ListSubmissionDocuments(ctx, sub.SubmissionID)
	if err != nil {
		return report, err
	}
	approved := make(map[int]bool, len(docs))
	for i := range docs {
		if docs[i].RequirementID != nil && docs[i].IsApproved() {
			approved[*docs[i].RequirementID] = true
		}
	}

	stageOrders := map[int]int{}
	for i := range reqs {
		req := &reqs[i]
		if !req.IsActive || !req.IsRequired {
			continue
		}
		if req.StageID != nil {
			order, ok := stageOrders[*req.StageID]
			if !ok {
				stage, err := g.store.GetStage(ctx, *req.StageID)
				if err != nil {
					if errors.Is(err, repository.ErrNotFound) {
						return report, structuralInconsistency("", fmt.Sprintf("requirement %d is bound to missing stage %d", req.RequirementID, *req.StageID))
					}
					return report, err
				}
				order = stage.StageOrder
				stageOrders[*req.StageID] = order
			}
			if currentOrder == 0 || order > currentOrder {
				continue
			}
		}
		report.Required++
		if approved[req.RequirementID] {
			report.Satisfied++
			continue
		}
		report.Missing = append(report.Missing, MissingRequirement{
			RequirementID: req.RequirementID,
			Name:          req.Label(),
			DocumentKind:  req.DocumentKind,
			StageID:       req.StageID,
		})
	}
	report.Ready = len(report.Missing) == 0
	return report, nil
}
