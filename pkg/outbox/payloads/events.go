package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mandisetu/mandisetu-backend/pkg/enums"
)

// GroupBuyJoinedEvent signals a vendor committing quantity to an open deal.
type GroupBuyJoinedEvent struct {
	GroupBuyID      uuid.UUID       `json:"groupBuyId"`
	OrderID         uuid.UUID       `json:"orderId"`
	VendorID        uuid.UUID       `json:"vendorId"`
	HubID           uuid.UUID       `json:"hubId"`
	Quantity        decimal.Decimal `json:"quantity"`
	Total           decimal.Decimal `json:"total"`
	CurrentQuantity decimal.Decimal `json:"currentQuantity"`
	VendorCount     int             `json:"vendorCount"`
}

// GroupBuyAcceptedEvent is emitted when a supplier claims a deal.
type GroupBuyAcceptedEvent struct {
	GroupBuyID uuid.UUID `json:"groupBuyId"`
	SupplierID uuid.UUID `json:"supplierId"`
	AcceptedAt time.Time `json:"acceptedAt"`
}

// GroupBuyStatusChangedEvent mirrors the payload emitted on every lifecycle transition.
type GroupBuyStatusChangedEvent struct {
	GroupBuyID uuid.UUID            `json:"groupBuyId"`
	From       enums.GroupBuyStatus `json:"from"`
	To         enums.GroupBuyStatus `json:"to"`
	OrderIDs   []uuid.UUID          `json:"orderIds,omitempty"`
}
