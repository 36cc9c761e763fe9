package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/cmoscoso25/flujosdigitales-api/pkg/enums"
)

// Order is one payment attempt for the digital pack. Created when the
// gateway accepts the payment order, updated when a confirmation lands.
type Order struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	CommerceOrder string            `gorm:"column:commerce_order;size:64;not null;uniqueIndex"`
	FlowToken     string            `gorm:"column:flow_token;size:128;not null;uniqueIndex"`
	FlowOrder     *int64            `gorm:"column:flow_order"`
	Email         string            `gorm:"column:email;size:320"`
	Subject       string            `gorm:"column:subject;size:256;not null"`
	AmountCLP     int64             `gorm:"column:amount_clp;not null"`
	Currency      enums.Currency    `gorm:"column:currency;size:8;not null;default:'CLP'"`
	Status        enums.OrderStatus `gorm:"column:status;size:16;not null;default:'pending'"`
	DownloadToken *string           `gorm:"column:download_token;size:64;uniqueIndex"`
	PaidAt        *time.Time        `gorm:"column:paid_at"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
