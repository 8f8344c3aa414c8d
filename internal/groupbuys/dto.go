package groupbuys

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mandisetu/mandisetu-backend/pkg/db/models"
	"github.com/mandisetu/mandisetu-backend/pkg/enums"
)

// JoinInput carries one vendor commitment into the join workflow.
type JoinInput struct {
	GroupBuyID uuid.UUID
	UserID     uuid.UUID
	Quantity   decimal.Decimal
}

// JoinResult is returned to the caller after a committed join.
type JoinResult struct {
	OrderID    uuid.UUID       `json:"orderId"`
	GroupBuyID uuid.UUID       `json:"groupBuyId"`
	Quantity   decimal.Decimal `json:"quantity"`
	Total      decimal.Decimal `json:"total"`
	Message    string          `json:"message"`
}

// AcceptInput identifies the supplier claiming a deal.
type AcceptInput struct {
	GroupBuyID uuid.UUID
	SupplierID uuid.UUID
}

// UpdateStatusInput drives a lifecycle transition.
type UpdateStatusInput struct {
	GroupBuyID uuid.UUID
	Status     enums.GroupBuyStatus
	ActorID    uuid.UUID
	ActorRole  enums.UserRole
}

// GroupBuyDTO is the read shape served to listings.
type GroupBuyDTO struct {
	ID              uuid.UUID            `json:"id"`
	ProductName     string               `json:"productName"`
	PricePerKg      decimal.Decimal      `json:"pricePerKg"`
	TargetQuantity  decimal.Decimal      `json:"targetQuantity"`
	CurrentQuantity decimal.Decimal      `json:"currentQuantity"`
	VendorCount     int                  `json:"vendorCount"`
	Status          enums.GroupBuyStatus `json:"status"`
	ExpiryDate      time.Time            `json:"expiryDate"`
	HubID           uuid.UUID            `json:"hubId"`
	HubName         string               `json:"hubName"`
	SupplierID      *uuid.UUID           `json:"supplierId,omitempty"`
	CreatedAt       time.Time            `json:"createdAt"`
}

// ListResult wraps a page of deals and the cursor for the next page.
type ListResult struct {
	Items  []GroupBuyDTO `json:"items"`
	Cursor string        `json:"cursor"`
}

func toDTO(groupBuy models.GroupBuy) GroupBuyDTO {
	return GroupBuyDTO{
		ID:              groupBuy.ID,
		ProductName:     groupBuy.ProductName,
		PricePerKg:      groupBuy.PricePerKg,
		TargetQuantity:  groupBuy.TargetQuantity,
		CurrentQuantity: groupBuy.CurrentQuantity,
		VendorCount:     groupBuy.VendorCount,
		Status:          groupBuy.Status,
		ExpiryDate:      groupBuy.ExpiryDate,
		HubID:           groupBuy.HubID,
		HubName:         groupBuy.HubName,
		SupplierID:      groupBuy.SupplierID,
		CreatedAt:       groupBuy.CreatedAt,
	}
}

func toDTOs(groupBuys []models.GroupBuy) []GroupBuyDTO {
	dtos := make([]GroupBuyDTO, len(groupBuys))
	for i, groupBuy := range groupBuys {
		dtos[i] = toDTO(groupBuy)
	}
	return dtos
}
