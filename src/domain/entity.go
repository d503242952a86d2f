package domain

import (
	"time"

	"github.com/google/uuid"
)

// Entity is the tenant principal under which apps and contracts are scoped.
// Identity comes from the authentication gateway; a row is ensured on first
// contract registration.
type Entity struct {
	ID        uuid.UUID `gorm:"primaryKey;type:uuid" json:"id"`
	Name      string    `gorm:"type:varchar(255)" json:"name"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

func (Entity) TableName() string {
	return "entities"
}
