package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mandisetu/mandisetu-backend/pkg/enums"
)

// GroupBuy represents one aggregated bulk-purchase deal vendors can join.
//
// CurrentQuantity and VendorCount are derived counters summarizing all joins.
// They only ever grow while the deal is open, and only through the join
// transaction's atomic increment; no other code path mutates them.
type GroupBuy struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductName     string               `gorm:"column:product_name;type:text;not null"`
	PricePerKg      decimal.Decimal      `gorm:"column:price_per_kg;type:numeric(12,2);not null"`
	TargetQuantity  decimal.Decimal      `gorm:"column:target_quantity;type:numeric(12,3);not null"`
	CurrentQuantity decimal.Decimal      `gorm:"column:current_quantity;type:numeric(12,3);not null;default:0"`
	VendorCount     int                  `gorm:"column:vendor_count;not null;default:0"`
	Status          enums.GroupBuyStatus `gorm:"column:status;type:group_buy_status;not null;default:'open'"`
	ExpiryDate      time.Time            `gorm:"column:expiry_date;type:timestamptz;not null"`
	HubID           uuid.UUID            `gorm:"column:hub_id;type:uuid;not null"`
	HubName         string               `gorm:"column:hub_name;type:text;not null"`
	SupplierID      *uuid.UUID           `gorm:"column:supplier_id;type:uuid"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
