package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// WebhookModel represents a registered HTTP ingress endpoint in the database.
type WebhookModel struct {
	bun.BaseModel `bun:"table:webhooks,alias:wh,unique:path_method_uq(path,method)"`

	ID          uuid.UUID   `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	WorkflowID  uuid.UUID   `bun:"workflow_id,notnull,type:uuid" json:"workflow_id" validate:"required"`
	TriggerID   uuid.UUID   `bun:"trigger_id,notnull,type:uuid" json:"trigger_id" validate:"required"`
	Path        string      `bun:"path,notnull" json:"path" validate:"required"`
	Method      string      `bun:"method,notnull,default:'POST'" json:"method" validate:"required,oneof=GET POST PUT PATCH DELETE"`
	AuthType    string      `bun:"auth_type,notnull,default:'none'" json:"auth_type" validate:"required,oneof=none hmac bearer"`
	Secret      string      `bun:"secret" json:"-"`
	IPWhitelist StringArray `bun:"ip_whitelist,type:text[]" json:"ip_whitelist,omitempty"`
	Enabled     bool        `bun:"enabled,notnull,default:true" json:"enabled"`
	CreatedAt   time.Time   `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time   `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`

	// Relationships
	Workflow *WorkflowModel `bun:"rel:belongs-to,join:workflow_id=id" json:"workflow,omitempty"`
	Trigger  *TriggerModel  `bun:"rel:belongs-to,join:trigger_id=id" json:"trigger,omitempty"`
}

// TableName returns the table name for WebhookModel.
func (WebhookModel) TableName() string {
	return "webhooks"
}

// BeforeInsert hook to set timestamps.
func (w *WebhookModel) BeforeInsert(ctx interface{}) error {
	now := time.Now()
	w.CreatedAt = now
	w.UpdatedAt = now
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// BeforeUpdate hook to update the timestamp.
func (w *WebhookModel) BeforeUpdate(ctx interface{}) error {
	w.UpdatedAt = time.Now()
	return nil
}

// RequiresSignature reports whether requests must carry a valid HMAC signature.
func (w *WebhookModel) RequiresSignature() bool {
	return w.AuthType == "hmac"
}

// RequiresBearerToken reports whether requests must carry a matching bearer token.
func (w *WebhookModel) RequiresBearerToken() bool {
	return w.AuthType == "bearer"
}
