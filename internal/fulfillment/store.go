package fulfillment

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/cmoscoso25/flujosdigitales-api/pkg/db"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/db/models"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/enums"
)

// Store persists the per-order delivery markers. One row per order
// identifier, enforced by the primary key, is what makes delivery
// at-most-once-acknowledged.
type Store interface {
	WithTx(tx *gorm.DB) Store
	IsFulfilled(ctx context.Context, orderID string) (bool, error)
	MarkFulfilled(ctx context.Context, orderID, email string, channel enums.DeliveryChannel) error
}

type store struct {
	db *gorm.DB
}

// NewStore builds a fulfillment marker store bound to the provided DB.
func NewStore(gdb *gorm.DB) Store {
	return &store{db: gdb}
}

func (s *store) WithTx(tx *gorm.DB) Store {
	if tx == nil {
		return s
	}
	return &store{db: tx}
}

func (s *store) IsFulfilled(ctx context.Context, orderID string) (bool, error) {
	var record models.OrderFulfillment
	err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkFulfilled records the delivery. A concurrent confirmation that
// already inserted the marker is not an error: the marker exists, which
// is all the caller needs.
func (s *store) MarkFulfilled(ctx context.Context, orderID, email string, channel enums.DeliveryChannel) error {
	record := &models.OrderFulfillment{
		OrderID:     orderID,
		Email:       email,
		Channel:     channel,
		ProcessedAt: time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).Create(record).Error
	if err != nil && db.IsUniqueViolation(err, "") {
		return nil
	}
	return err
}
