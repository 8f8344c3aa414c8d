package models

import (
	"time"

	"github.com/google/uuid"
)

// Hub is a physical pickup location group buys are delivered to.
type Hub struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;type:text;not null"`
	Area      string    `gorm:"column:area;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
