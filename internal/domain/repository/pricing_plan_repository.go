package repository

import (
	"context"

	"github.com/gridflow/gridflow/pkg/models"
)

// PricingPlanRepository defines the interface for pricing plan lookups
// used when pricing and rate-limiting resource usage.
type PricingPlanRepository interface {
	GetByID(ctx context.Context, id string) (*models.PricingPlan, error)
	GetByResourceType(ctx context.Context, resourceType models.ResourceType) ([]*models.PricingPlan, error)
	GetFreePlan(ctx context.Context, resourceType models.ResourceType) (*models.PricingPlan, error)
	GetAll(ctx context.Context) ([]*models.PricingPlan, error)
	GetActive(ctx context.Context) ([]*models.PricingPlan, error)
}
