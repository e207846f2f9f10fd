package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ExecutionApprovalModel represents a pending or resolved approval gate in the database.
type ExecutionApprovalModel struct {
	bun.BaseModel `bun:"table:execution_approvals,alias:ea"`

	ID            uuid.UUID    `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	ExecutionID   uuid.UUID    `bun:"execution_id,notnull,type:uuid" json:"execution_id" validate:"required"`
	NodeID        uuid.UUID    `bun:"node_id,notnull,type:uuid" json:"node_id" validate:"required"`
	Status        string       `bun:"status,notnull,default:'pending'" json:"status" validate:"required,oneof=pending approved rejected expired"`
	Mode          string       `bun:"mode,notnull,default:'any'" json:"mode" validate:"required,oneof=any all majority"`
	Approvers     StringArray  `bun:"approvers,type:text[]" json:"approvers"`
	ApprovedCount int          `bun:"approved_count,notnull,default:0" json:"approved_count"`
	RejectedCount int          `bun:"rejected_count,notnull,default:0" json:"rejected_count"`
	Message       string       `bun:"message" json:"message,omitempty"`
	ExpiresAt     *time.Time   `bun:"expires_at" json:"expires_at,omitempty"`
	CreatedAt     time.Time    `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	ResolvedAt    *time.Time   `bun:"resolved_at" json:"resolved_at,omitempty"`

	// Relationships
	Execution *ExecutionModel            `bun:"rel:belongs-to,join:execution_id=id" json:"execution,omitempty"`
	Actions   []*ApprovalActionModel     `bun:"rel:has-many,join:id=approval_id" json:"actions,omitempty"`
}

// TableName returns the table name for ExecutionApprovalModel.
func (ExecutionApprovalModel) TableName() string {
	return "execution_approvals"
}

// BeforeInsert hook to set defaults.
func (a *ExecutionApprovalModel) BeforeInsert(ctx interface{}) error {
	a.CreatedAt = time.Now()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// IsPending returns true if the approval is still awaiting a decision.
func (a *ExecutionApprovalModel) IsPending() bool {
	return a.Status == "pending"
}

// ApprovalActionModel represents a single approver's vote in the database.
type ApprovalActionModel struct {
	bun.BaseModel `bun:"table:approval_actions,alias:aa,unique:approval_id_user_id_uq(approval_id,user_id)"`

	ID         uuid.UUID `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	ApprovalID uuid.UUID `bun:"approval_id,notnull,type:uuid" json:"approval_id" validate:"required"`
	UserID     string    `bun:"user_id,notnull" json:"user_id" validate:"required"`
	Decision   string    `bun:"decision,notnull" json:"decision" validate:"required,oneof=approve reject"`
	Comment    string    `bun:"comment" json:"comment,omitempty"`
	ActedAt    time.Time `bun:"acted_at,notnull,default:current_timestamp" json:"acted_at"`

	// Relationships
	Approval *ExecutionApprovalModel `bun:"rel:belongs-to,join:approval_id=id" json:"approval,omitempty"`
}

// TableName returns the table name for ApprovalActionModel.
func (ApprovalActionModel) TableName() string {
	return "approval_actions"
}

// BeforeInsert hook to set defaults.
func (a *ApprovalActionModel) BeforeInsert(ctx interface{}) error {
	a.ActedAt = time.Now()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
