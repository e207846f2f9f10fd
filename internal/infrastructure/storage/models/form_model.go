package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// FormTriggerModel represents a human-filled form entry point in the database.
type FormTriggerModel struct {
	bun.BaseModel `bun:"table:form_triggers,alias:ft"`

	ID              uuid.UUID  `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	WorkflowID      uuid.UUID  `bun:"workflow_id,notnull,type:uuid" json:"workflow_id" validate:"required"`
	NodeID          *uuid.UUID `bun:"node_id,type:uuid" json:"node_id,omitempty"`
	Token           string     `bun:"token,notnull,unique" json:"token" validate:"required"`
	Title           string     `bun:"title,notnull" json:"title" validate:"required"`
	Schema          JSONBMap   `bun:"schema,type:jsonb,notnull,default:'{}'" json:"schema"`
	Enabled         bool       `bun:"enabled,notnull,default:true" json:"enabled"`
	ExpiresAt       *time.Time `bun:"expires_at" json:"expires_at,omitempty"`
	MaxSubmissions  int        `bun:"max_submissions,notnull,default:0" json:"max_submissions"` // 0 = unlimited
	SubmissionCount int        `bun:"submission_count,notnull,default:0" json:"submission_count"`
	CreatedAt       time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt       time.Time  `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`

	// Relationships
	Workflow *WorkflowModel `bun:"rel:belongs-to,join:workflow_id=id" json:"workflow,omitempty"`
}

// TableName returns the table name for FormTriggerModel.
func (FormTriggerModel) TableName() string {
	return "form_triggers"
}

// BeforeInsert hook to set timestamps.
func (f *FormTriggerModel) BeforeInsert(ctx interface{}) error {
	now := time.Now()
	f.CreatedAt = now
	f.UpdatedAt = now
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.Schema == nil {
		f.Schema = make(JSONBMap)
	}
	return nil
}

// BeforeUpdate hook to update the timestamp.
func (f *FormTriggerModel) BeforeUpdate(ctx interface{}) error {
	f.UpdatedAt = time.Now()
	return nil
}

// IsResumeForm reports whether this form resumes an in-flight execution.
func (f *FormTriggerModel) IsResumeForm() bool {
	return f.NodeID != nil
}

// IsExpired reports whether the form's deadline, if any, has passed.
func (f *FormTriggerModel) IsExpired(now time.Time) bool {
	return f.ExpiresAt != nil && now.After(*f.ExpiresAt)
}

// CanAcceptSubmission reports whether the form is still open: enabled, not
// expired, and under its submission cap (0 = unlimited).
func (f *FormTriggerModel) CanAcceptSubmission(now time.Time) bool {
	if !f.Enabled || f.IsExpired(now) {
		return false
	}
	return f.MaxSubmissions == 0 || f.SubmissionCount < f.MaxSubmissions
}

// FormSubmissionModel represents one completed form submission in the database.
type FormSubmissionModel struct {
	bun.BaseModel `bun:"table:form_submissions,alias:fs"`

	ID          uuid.UUID  `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	FormID      uuid.UUID  `bun:"form_id,notnull,type:uuid" json:"form_id" validate:"required"`
	ExecutionID *uuid.UUID `bun:"execution_id,type:uuid" json:"execution_id,omitempty"`
	Data        JSONBMap   `bun:"data,type:jsonb,notnull,default:'{}'" json:"data"`
	SubmittedBy string     `bun:"submitted_by" json:"submitted_by,omitempty"`
	SubmittedAt time.Time  `bun:"submitted_at,notnull,default:current_timestamp" json:"submitted_at"`

	// Relationships
	Form *FormTriggerModel `bun:"rel:belongs-to,join:form_id=id" json:"form,omitempty"`
}

// TableName returns the table name for FormSubmissionModel.
func (FormSubmissionModel) TableName() string {
	return "form_submissions"
}

// BeforeInsert hook to set defaults.
func (s *FormSubmissionModel) BeforeInsert(ctx interface{}) error {
	s.SubmittedAt = time.Now()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Data == nil {
		s.Data = make(JSONBMap)
	}
	return nil
}
