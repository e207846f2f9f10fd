package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	pkgmodels "github.com/gridflow/gridflow/pkg/models"
)

// ServiceKeyModel represents a long-lived service credential in the database.
type ServiceKeyModel struct {
	bun.BaseModel `bun:"table:gridflow_service_keys,alias:sk"`

	ID          uuid.UUID  `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	UserID      uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id"`
	Name        string     `bun:"name,notnull" json:"name"`
	Description string     `bun:"description" json:"description,omitempty"`
	KeyPrefix   string     `bun:"key_prefix,notnull,unique" json:"key_prefix"`
	KeyHash     string     `bun:"key_hash,notnull" json:"-"`
	Status      string     `bun:"status,notnull,default:'active'" json:"status"`
	LastUsedAt  *time.Time `bun:"last_used_at" json:"last_used_at,omitempty"`
	UsageCount  int64      `bun:"usage_count,notnull,default:0" json:"usage_count"`
	ExpiresAt   *time.Time `bun:"expires_at" json:"expires_at,omitempty"`
	CreatedBy   uuid.UUID  `bun:"created_by,notnull,type:uuid" json:"created_by"`
	CreatedAt   time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
	RevokedAt   *time.Time `bun:"revoked_at" json:"revoked_at,omitempty"`

	// Relations
	User    *UserModel `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Creator *UserModel `bun:"rel:belongs-to,join:created_by=id" json:"creator,omitempty"`
}

// TableName returns the table name for ServiceKeyModel.
func (ServiceKeyModel) TableName() string {
	return "gridflow_service_keys"
}

// BeforeInsert hook sets timestamps and status defaults.
func (s *ServiceKeyModel) BeforeInsert(ctx any) error {
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = pkgmodels.ServiceKeyStatusActive
	}
	return nil
}

// BeforeUpdate hook updates the timestamp.
func (s *ServiceKeyModel) BeforeUpdate(ctx any) error {
	s.UpdatedAt = time.Now()
	return nil
}

// ToServiceKeyDomain converts a ServiceKeyModel to the domain ServiceKey model.
func (s *ServiceKeyModel) ToServiceKeyDomain() *pkgmodels.ServiceKey {
	if s == nil {
		return nil
	}

	return &pkgmodels.ServiceKey{
		ID:          s.ID.String(),
		UserID:      s.UserID.String(),
		Name:        s.Name,
		Description: s.Description,
		KeyPrefix:   s.KeyPrefix,
		KeyHash:     s.KeyHash,
		Status:      s.Status,
		LastUsedAt:  s.LastUsedAt,
		UsageCount:  s.UsageCount,
		ExpiresAt:   s.ExpiresAt,
		CreatedBy:   s.CreatedBy.String(),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
		RevokedAt:   s.RevokedAt,
	}
}

// FromServiceKeyDomain builds a ServiceKeyModel from the domain ServiceKey model.
func FromServiceKeyDomain(key *pkgmodels.ServiceKey) *ServiceKeyModel {
	if key == nil {
		return nil
	}

	var id uuid.UUID
	if key.ID != "" {
		id = uuid.MustParse(key.ID)
	}

	return &ServiceKeyModel{
		ID:          id,
		UserID:      uuid.MustParse(key.UserID),
		Name:        key.Name,
		Description: key.Description,
		KeyPrefix:   key.KeyPrefix,
		KeyHash:     key.KeyHash,
		Status:      key.Status,
		LastUsedAt:  key.LastUsedAt,
		UsageCount:  key.UsageCount,
		ExpiresAt:   key.ExpiresAt,
		CreatedBy:   uuid.MustParse(key.CreatedBy),
		CreatedAt:   key.CreatedAt,
		UpdatedAt:   key.UpdatedAt,
		RevokedAt:   key.RevokedAt,
	}
}
