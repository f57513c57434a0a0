package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ip-tracking-api/events"
	"ip-tracking-api/models"
	"ip-tracking-api/repository"
)

// DocumentService attaches documents to submissions and records reviewer
// decisions on them. Document review never goes through the state machine.
type DocumentService struct {
	store repository.Store
	bus   *events.Bus
	now   func() time.Time
}

func NewDocumentService(store repository.Store, bus *events.Bus) *DocumentService {
	return &DocumentService{store: store, bus: bus, now: time.Now}
}

// AttachDocumentInput links a new or existing document to a submission.
// DocumentID > 0 reuses an existing document; otherwise the metadata fields
// describe a new one.
type AttachDocumentInput struct {
	SubmissionID  int
	DocumentID    int
	RequirementID *int
	Title         string
	MimeType      string
	FileSize      int64
	Extension     string
	UploadedBy    string
	Notes         string
}

func (s *DocumentService) AttachDocument(ctx context.Context, in AttachDocumentInput) (*models.SubmissionDocument, error) {
	var out *models.SubmissionDocument
	err := s.bus.RunInTx(ctx, s.store, func(tx repository.Store) error {
		sub, err := tx.GetSubmission(ctx, in.SubmissionID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrSubmissionNotFound
			}
			return err
		}
		if sub.Status.IsTerminal() {
			return preconditionFailed("", fmt.Sprintf("submission %d is %s", sub.SubmissionID, sub.Status))
		}

		if in.RequirementID != nil {
			req, err := tx.GetRequirement(ctx, *in.RequirementID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return ErrRequirementNotFound
				}
				return err
			}
			if req.SubmissionType != sub.SubmissionType {
				return invalidInput("requirement %d belongs to %s, not %s", req.RequirementID, req.SubmissionType, sub.SubmissionType)
			}
		}

		var doc *models.Document
		if in.DocumentID > 0 {
			doc, err = tx.GetDocument(ctx, in.DocumentID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return invalidInput("document %d not found", in.DocumentID)
				}
				return err
			}
		} else {
			if strings.TrimSpace(in.Title) == "" {
				return invalidInput("title is required")
			}
			doc = &models.Document{
				Title:      strings.TrimSpace(in.Title),
				MimeType:   in.MimeType,
				FileSize:   in.FileSize,
				Extension:  strings.ToLower(strings.TrimPrefix(in.Extension, ".")),
				UploadedBy: in.UploadedBy,
			}
			if err := tx.CreateDocument(ctx, doc); err != nil {
				return err
			}
		}

		link := &models.SubmissionDocument{
			SubmissionID:  sub.SubmissionID,
			DocumentID:    doc.DocumentID,
			RequirementID: in.RequirementID,
			Status:        models.DocumentStatusPending,
			Notes:         in.Notes,
		}
		originCtx := events.WithOrigin(ctx, events.Origin{ActorID: in.UploadedBy, Action: "attach_document", Comment: doc.Title})
		if err := tx.CreateSubmissionDocument(originCtx, link); err != nil {
			return err
		}
		link.Document = doc
		out = link
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateDocumentStatus records a reviewer decision on one attached document.
func (s *DocumentService) UpdateDocumentStatus(ctx context.Context, id int, status models.DocumentStatus, notes, reviewer string) (*models.SubmissionDocument, error) {
	if !status.IsValid() {
		return nil, invalidInput("unknown document status %q", status)
	}
	var out *models.SubmissionDocument
	err := s.bus.RunInTx(ctx, s.store, func(tx repository.Store) error {
		doc, err := tx.GetSubmissionDocument(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrDocumentNotFound
			}
			return err
		}
		now := s.now()
		doc.Status = status
		doc.Notes = notes
		doc.ReviewedBy = reviewer
		doc.ReviewedAt = &now
		originCtx := events.WithOrigin(ctx, events.Origin{ActorID: reviewer, Action: "review_document", Comment: notes})
		if err := tx.UpdateSubmissionDocument(originCtx, doc); err != nil {
			return err
		}
		out = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DocumentPatch changes the display metadata of a document.
type DocumentPatch struct {
	Title     *string
	MimeType  *string
	FileSize  *int64
	Extension *string
}

func (s *DocumentService) UpdateDocument(ctx context.Context, id int, patch DocumentPatch, actor string) (*models.Document, error) {
	var out *models.Document
	err := s.bus.RunInTx(ctx, s.store, func(tx repository.Store) error {
		doc, err := tx.GetDocument(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrDocumentNotFound
			}
			return err
		}
		if patch.Title != nil {
			if strings.TrimSpace(*patch.Title) == "" {
				return invalidInput("title cannot be empty")
			}
			doc.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.MimeType != nil {
			doc.MimeType = *patch.MimeType
		}
		if patch.FileSize != nil {
			doc.FileSize = *patch.FileSize
		}
		if patch.Extension != nil {
			doc.Extension = strings.ToLower(strings.TrimPrefix(*patch.Extension, "."))
		}
		originCtx := events.WithOrigin(ctx, events.Origin{ActorID: actor, Action: "update_document"})
		if err := tx.UpdateDocument(originCtx, doc); err != nil {
			return err
		}
		out = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListDocuments returns the live document links of a submission with their
// document and requirement filled in.
func (s *DocumentService) ListDocuments(ctx context.Context, submissionID int) ([]models.SubmissionDocument, error) {
	docs, err := s.store.ListSubmissionDocuments(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		if doc, err := s.store.GetDocument(ctx, docs[i].DocumentID); err == nil {
			docs[i].Document = doc
		}
		if docs[i].RequirementID != nil {
			if req, err := s.store.GetRequirement(ctx, *docs[i].RequirementID); err == nil {
				docs[i].Requirement = req
			}
		}
	}
	return docs, nil
}
