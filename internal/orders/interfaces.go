package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cmoscoso25/flujosdigitales-api/pkg/db/models"
)

// Repository defines persistence operations for payment orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByFlowToken(ctx context.Context, token string) (*models.Order, error)
	FindByCommerceOrder(ctx context.Context, commerceOrder string) (*models.Order, error)
	FindByDownloadToken(ctx context.Context, token string) (*models.Order, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
}
