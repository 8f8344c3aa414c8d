package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mandisetu/mandisetu-backend/pkg/enums"
)

// Order represents one vendor's commitment to a group buy.
//
// ProductName, PricePerKg and Total are snapshots frozen at join time; a later
// price change on the group buy never alters an existing order. The row is
// immutable apart from Status, which external fulfillment flows drive.
type Order struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID         `gorm:"column:user_id;type:uuid;not null"`
	GroupBuyID  uuid.UUID         `gorm:"column:group_buy_id;type:uuid;not null"`
	Quantity    decimal.Decimal   `gorm:"column:quantity;type:numeric(12,3);not null"`
	ProductName string            `gorm:"column:product_name;type:text;not null"`
	PricePerKg  decimal.Decimal   `gorm:"column:price_per_kg;type:numeric(12,2);not null"`
	Total       decimal.Decimal   `gorm:"column:total;type:numeric(14,2);not null"`
	Status      enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'confirmed'"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
}
