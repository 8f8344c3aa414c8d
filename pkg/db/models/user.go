package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mandisetu/mandisetu-backend/pkg/enums"
)

// User is the minimal identity surface required by the workflow. Full profile
// and onboarding data live outside this service.
type User struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string         `gorm:"column:name;type:text;not null"`
	Role      enums.UserRole `gorm:"column:role;type:user_role;not null"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
}
