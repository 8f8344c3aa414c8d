package groupbuys

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mandisetu/mandisetu-backend/pkg/db/models"
	"github.com/mandisetu/mandisetu-backend/pkg/enums"
	"github.com/mandisetu/mandisetu-backend/pkg/pagination"
)

// Repository exposes persistence helpers for group buys.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.GroupBuy, error)
	ApplyJoin(ctx context.Context, id uuid.UUID, quantity decimal.Decimal) (bool, error)
	AcceptDemand(ctx context.Context, id, supplierID uuid.UUID) (bool, error)
	SetStatus(ctx context.Context, id uuid.UUID, from, to enums.GroupBuyStatus) (bool, error)
	ListOpen(ctx context.Context, params ListParams) ([]models.GroupBuy, *pagination.Cursor, error)
	ListForSupplier(ctx context.Context, supplierID uuid.UUID, params ListParams) ([]models.GroupBuy, *pagination.Cursor, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a group-buy repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

// ListParams narrows the listing queries.
type ListParams struct {
	HubID  *uuid.UUID
	Status *enums.GroupBuyStatus
	Limit  int
	Cursor *pagination.Cursor
	Now    time.Time
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.GroupBuy, error) {
	var groupBuy models.GroupBuy
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&groupBuy).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &groupBuy, nil
}

// ApplyJoin folds one commitment into the deal's aggregate counters. Both
// counters move in a single guarded UPDATE so concurrent joins are summed,
// never overwritten. Returns false when the deal is no longer open.
func (r *repositoryImpl) ApplyJoin(ctx context.Context, id uuid.UUID, quantity decimal.Decimal) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.GroupBuy{}).
		Where("id = ? AND status = ?", id, enums.GroupBuyStatusOpen).
		Updates(map[string]any{
			"current_quantity": gorm.Expr("current_quantity + ?", quantity),
			"vendor_count":     gorm.Expr("vendor_count + 1"),
			"updated_at":       time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// AcceptDemand claims the deal for a supplier. The supplier_id IS NULL guard
// makes the first accept win; later attempts update zero rows.
func (r *repositoryImpl) AcceptDemand(ctx context.Context, id, supplierID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.GroupBuy{}).
		Where("id = ? AND status = ? AND supplier_id IS NULL", id, enums.GroupBuyStatusOpen).
		Updates(map[string]any{
			"supplier_id": supplierID,
			"status":      enums.GroupBuyStatusProcessing,
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SetStatus moves the deal between lifecycle states, guarded on the expected
// current status so replays and races update zero rows.
func (r *repositoryImpl) SetStatus(ctx context.Context, id uuid.UUID, from, to enums.GroupBuyStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.GroupBuy{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) ListOpen(ctx context.Context, params ListParams) ([]models.GroupBuy, *pagination.Cursor, error) {
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	query := r.db.WithContext(ctx).
		Model(&models.GroupBuy{}).
		Where("status = ?", enums.GroupBuyStatusOpen).
		Where("expiry_date > ?", now)
	if params.HubID != nil {
		query = query.Where("hub_id = ?", *params.HubID)
	}
	return r.list(query, params)
}

// ListForSupplier returns deals the supplier already owns plus unclaimed open
// deals they could still accept.
func (r *repositoryImpl) ListForSupplier(ctx context.Context, supplierID uuid.UUID, params ListParams) ([]models.GroupBuy, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).
		Model(&models.GroupBuy{}).
		Where("(supplier_id = ? OR (supplier_id IS NULL AND status = ?))", supplierID, enums.GroupBuyStatusOpen)
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	return r.list(query, params)
}

func (r *repositoryImpl) list(query *gorm.DB, params ListParams) ([]models.GroupBuy, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var groupBuys []models.GroupBuy
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&groupBuys).Error; err != nil {
		return nil, nil, err
	}

	if len(groupBuys) > normalized {
		next := groupBuys[normalized]
		groupBuys = groupBuys[:normalized]
		return groupBuys, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return groupBuys, nil, nil
}
