package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ip-tracking-api/config"
	"ip-tracking-api/events"
	"ip-tracking-api/models"
	"ip-tracking-api/repository"
)

// StageService administers stage graphs and document requirements.
type StageService struct {
	store repository.Store
	bus   *events.Bus
}

func NewStageService(store repository.Store, bus *events.Bus) *StageService {
	return &StageService{store: store, bus: bus}
}

func (s *StageService) CreateStage(ctx context.Context, stage *models.WorkflowStage, actor string) (*models.WorkflowStage, error) {
	if !models.IsSubmissionTypeValid(stage.SubmissionType) {
		return nil, invalidInput("unknown submission type %q", stage.SubmissionType)
	}
	stage.Name = strings.TrimSpace(stage.Name)
	if stage.Name == "" {
		return nil, invalidInput("name is required")
	}
	err := s.bus.RunInTx(ctx, s.store, func(tx repository.Store) error {
		if err := NewStageGraph(tx).ValidateStageDefinition(ctx, stage); err != nil {
			return err
		}
		originCtx := events.WithOrigin(ctx, events.Origin{ActorID: actor, Action: "create_stage"})
		return tx.CreateStage(originCtx, stage)
	})
	if err != nil {
		return nil, err
	}
	return stage, nil
}

// StagePatch carries the fields an administrator may change on a stage.
type StagePatch struct {
	Code        *string `json:"code"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	StageOrder  *int    `json:"stage_order"`
	IsActive    *bool   `json:"is_active"`
}

// UpdateStage applies patch. Order and activation edits are structural: they
// emit a fact that schedules reconciliation of the submissions in the stage.
func (s *StageService) UpdateStage(ctx context.Context, id int, patch StagePatch, actor string) (*models.WorkflowStage, error) {
	var out *models.WorkflowStage
	err := s.bus.RunInTx(ctx, s.store, func(tx repository.Store) error {
		stage, err := tx.GetStage(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrStageNotFound
			}
			return err
		}
		if patch.Code != nil {
			stage.Code = strings.TrimSpace(*patch.Code)
		}
		if patch.Name != nil {
			if strings.TrimSpace(*patch.Name) == "" {
				return invalidInput("name cannot be empty")
			}
			stage.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Description != nil {
			stage.Description = *patch.Description
		}
		if patch.StageOrder != nil {
			stage.StageOrder = *patch.StageOrder
		}
		if patch.IsActive != nil {
			stage.IsActive = *patch.IsActive
		}
		if err := NewStageGraph(tx).ValidateStageDefinition(ctx, stage); err != nil {
			return err
		}
		originCtx := events.WithOrigin(ctx, events.Origin{ActorID: actor, Action: "update_stage"})
		if err := tx.UpdateStage(originCtx, stage); err != nil {
			return err
		}
		out = stage
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *StageService) ListStages(ctx context.Context, submissionType string, activeOnly bool) ([]models.WorkflowStage, error) {
	return s.store.ListStages(ctx, repository.StageFilter{SubmissionType: submissionType, ActiveOnly: activeOnly})
}

func (s *StageService) CreateRequirement(ctx context.Context, req *models.DocumentRequirement) (*models.DocumentRequirement, error) {
	if !models.IsSubmissionTypeValid(req.SubmissionType) {
		return nil, invalidInput("unknown submission type %q", req.SubmissionType)
	}
	if strings.TrimSpace(req.DocumentKind) == "" {
		return nil, invalidInput("document_kind is required")
	}
	err := s.store.RunInTx(ctx, func(tx repository.Store) error {
		if req.StageID != nil {
			stage, err := tx.GetStage(ctx, *req.StageID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return ErrStageNotFound
				}
				return err
			}
			if stage.SubmissionType != req.SubmissionType {
				return invalidInput("stage %d belongs to %s, not %s", stage.StageID, stage.SubmissionType, req.SubmissionType)
			}
		}
		return tx.CreateRequirement(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *StageService) ListRequirements(ctx context.Context, submissionType string) ([]models.DocumentRequirement, error) {
	return s.store.ListRequirements(ctx, submissionType)
}

// SeedSummary reports what ApplySeed created and what already existed.
type SeedSummary struct {
	Stages       int `json:"stages"`
	Requirements int `json:"requirements"`
	Skipped      int `json:"skipped"`
}

// ApplySeed creates the stages and requirements of seed that are not there
// yet. Stages match on code and requirements on document kind, so running it
// again changes nothing.
func (s *StageService) ApplySeed(ctx context.Context, seed *config.StageSeed, actor string) (SeedSummary, error) {
	var summary SeedSummary
	for _, typ := range seed.Types {
		existing, err := s.ListStages(ctx, typ.Type, false)
		if err != nil {
			return summary, err
		}
		byCode := make(map[string]int, len(existing))
		for _, stage := range existing {
			byCode[stage.Code] = stage.StageID
		}
		for _, item := range typ.Stages {
			if _, ok := byCode[item.Code]; ok {
				summary.Skipped++
				continue
			}
			stage, err := s.CreateStage(ctx, &models.WorkflowStage{
				SubmissionType: typ.Type,
				Code:           item.Code,
				Name:           item.Name,
				Description:    item.Description,
				StageOrder:     item.Order,
				IsActive:       true,
			}, actor)
			if err != nil {
				return summary, fmt.Errorf("seed %s stage %q: %w", typ.Type, item.Code, err)
			}
			byCode[item.Code] = stage.StageID
			summary.Stages++
		}

		reqs, err := s.ListRequirements(ctx, typ.Type)
		if err != nil {
			return summary, err
		}
		kinds := make(map[string]bool, len(reqs))
		for _, req := range reqs {
			kinds[req.DocumentKind] = true
		}
		for _, item := range typ.Requirements {
			if kinds[item.Kind] {
				summary.Skipped++
				continue
			}
			req := &models.DocumentRequirement{
				SubmissionType:    typ.Type,
				DocumentKind:      item.Kind,
				Name:              item.Name,
				AllowedExtensions: strings.Join(item.Extensions, ","),
				IsRequired:        item.Required,
				DisplayOrder:      item.DisplayOrder,
				IsActive:          true,
			}
			if item.Stage != "" {
				id := byCode[item.Stage]
				req.StageID = &id
			}
			if _, err := s.CreateRequirement(ctx, req); err != nil {
				return summary, fmt.Errorf("seed %s requirement %q: %w", typ.Type, item.Kind, err)
			}
			kinds[item.Kind] = true
			summary.Requirements++
		}
	}
	return summary, nil
}
