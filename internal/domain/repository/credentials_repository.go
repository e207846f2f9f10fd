package repository

import (
	"context"

	"github.com/gridflow/gridflow/pkg/models"
)

// CredentialsRepository defines the interface for credentials resource
// persistence, including encrypted secret storage and access logging.
type CredentialsRepository interface {
	CreateCredentials(ctx context.Context, cred *models.CredentialsResource) error
	GetCredentials(ctx context.Context, resourceID string) (*models.CredentialsResource, error)
	GetCredentialsByOwner(ctx context.Context, ownerID string) ([]*models.CredentialsResource, error)
	GetCredentialsByProvider(ctx context.Context, ownerID, provider string) ([]*models.CredentialsResource, error)
	UpdateCredentials(ctx context.Context, cred *models.CredentialsResource) error
	UpdateEncryptedData(ctx context.Context, resourceID string, encryptedData map[string]string) error
	DeleteCredentials(ctx context.Context, resourceID string) error
	IncrementUsageCount(ctx context.Context, resourceID string) error
	LogCredentialAccess(ctx context.Context, resourceID, action, actorID, actorType string, metadata map[string]interface{}) error
}
