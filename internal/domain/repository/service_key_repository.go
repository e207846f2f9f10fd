package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/gridflow/gridflow/pkg/models"
)

// ServiceKeyFilter represents optional filters for service key queries.
type ServiceKeyFilter struct {
	UserID    *uuid.UUID
	Status    *string
	CreatedBy *uuid.UUID
	Limit     int
	Offset    int
}

// ServiceKeyRepository defines the interface for service key persistence.
type ServiceKeyRepository interface {
	Create(ctx context.Context, key *models.ServiceKey) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ServiceKey, error)
	FindByPrefix(ctx context.Context, prefix string) ([]*models.ServiceKey, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*models.ServiceKey, error)
	FindAll(ctx context.Context, filter ServiceKeyFilter) ([]*models.ServiceKey, int64, error)
	Update(ctx context.Context, key *models.ServiceKey) error
	Delete(ctx context.Context, id uuid.UUID) error
	Revoke(ctx context.Context, id uuid.UUID) error
	UpdateLastUsed(ctx context.Context, id uuid.UUID) error
	CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
}
