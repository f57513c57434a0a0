package events

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"ip-tracking-api/models"
)

// Entity names a watched table.
type Entity string

const (
	EntitySubmission         Entity = "submission"
	EntitySubmissionDocument Entity = "submission_document"
	EntityWorkflowStage      Entity = "workflow_stage"
	EntityDocument           Entity = "document"
)

// Watched field names.
const (
	FieldCreated        = "created"
	FieldStatus         = "status"
	FieldCurrentStageID = "current_stage_id"
	FieldCertificate    = "certificate"
	FieldStageOrder     = "stage_order"
	FieldIsActive       = "is_active"
	FieldName           = "name"
	FieldTitle          = "title"
	FieldMimeType       = "mime_type"
	FieldFileSize       = "file_size"
	FieldExtension      = "extension"
)

// FieldChange is one old -> new diff of a watched field. Values are rendered
// as strings; an empty string stands for null.
type FieldChange struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// ChangeFact is a persisted change of a watched entity.
type ChangeFact struct {
	Entity       Entity        `json:"entity"`
	EntityID     int           `json:"entity_id"`
	SubmissionID int           `json:"submission_id,omitempty"`
	Changes      []FieldChange `json:"changes"`
	ActorID      string        `json:"actor_id,omitempty"`
	Action       string        `json:"action,omitempty"`
	Comment      string        `json:"comment,omitempty"`
	OccurredAt   time.Time     `json:"occurred_at"`

	// Row state after the write. Exactly one is set, matching Entity.
	Submission         *models.Submission         `json:"-"`
	SubmissionDocument *models.SubmissionDocument `json:"-"`
	Stage              *models.WorkflowStage      `json:"-"`
	Document           *models.Document           `json:"-"`
}

// Changed returns the change recorded for field, if any.
func (f ChangeFact) Changed(field string) (FieldChange, bool) {
	for _, c := range f.Changes {
		if c.Field == field {
			return c, true
		}
	}
	return FieldChange{}, false
}

// Has reports whether any of fields changed.
func (f ChangeFact) Has(fields ...string) bool {
	for _, field := range fields {
		if _, ok := f.Changed(field); ok {
			return true
		}
	}
	return false
}

// Key identifies the logical fact: the same entity, diff and timestamp always
// hash to the same key, so a redelivered fact can be recognised downstream.
func (f ChangeFact) Key() string {
	var b strings.Builder
	b.WriteString(string(f.Entity))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(f.EntityID))
	for _, c := range f.Changes {
		b.WriteByte('|')
		b.WriteString(c.Field)
		b.WriteByte(':')
		b.WriteString(c.Old)
		b.WriteString("->")
		b.WriteString(c.New)
	}
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(f.OccurredAt.UnixNano(), 10))
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// IsSystem reports whether the fact has no actor.
func (f ChangeFact) IsSystem() bool {
	return f.ActorID == ""
}
