package hubs

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mandisetu/mandisetu-backend/pkg/db/models"
)

// Repository exposes read helpers for hubs.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Hub, error)
	List(ctx context.Context) ([]models.Hub, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a hub repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Hub, error) {
	var hub models.Hub
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&hub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &hub, nil
}

func (r *repositoryImpl) List(ctx context.Context) ([]models.Hub, error) {
	var hubsList []models.Hub
	err := r.db.WithContext(ctx).Order("name ASC").Find(&hubsList).Error
	return hubsList, err
}
