package models

import (
	"time"

	"github.com/cmoscoso25/flujosdigitales-api/pkg/enums"
)

// OrderFulfillment is the per-order delivery marker. The primary key on
// the order identifier is the idempotency guarantee: at most one row, so
// at most one acknowledged delivery per order.
type OrderFulfillment struct {
	OrderID     string                `gorm:"column:order_id;size:128;primaryKey"`
	Email       string                `gorm:"column:email;size:320;not null"`
	Channel     enums.DeliveryChannel `gorm:"column:channel;size:16;not null"`
	ProcessedAt time.Time             `gorm:"column:processed_at;not null"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}
