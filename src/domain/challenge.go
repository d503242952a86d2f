package domain

import (
	"time"

	"github.com/google/uuid"
)

type ChallengeState string

const (
	ChallengeStatePending   ChallengeState = "PENDING"
	ChallengeStateCompleted ChallengeState = "COMPLETED"
	ChallengeStateExpired   ChallengeState = "EXPIRED"
)

// ChallengeValidityWindow bounds how long a pending challenge accepts a
// signature. Expiry is evaluated at read time; there is no background sweeper.
const ChallengeValidityWindow = 24 * time.Hour

// Challenge is a pending proof-of-ownership request bound to a contract's
// deployer address. At most one unexpired challenge is active per contract.
type Challenge struct {
	ID         uuid.UUID      `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	EntityID   uuid.UUID      `gorm:"type:uuid;not null" json:"entityId"`
	ContractID uuid.UUID      `gorm:"type:uuid;not null" json:"contractId"`
	Address    string         `gorm:"type:varchar(42);not null" json:"address"`
	ChainID    int64          `gorm:"not null" json:"chainId"`
	State      ChallengeState `gorm:"type:varchar(16);not null;default:PENDING" json:"state"`
	CreatedAt  time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt  time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

func (Challenge) TableName() string {
	return "challenges"
}

func (c *Challenge) ExpiresAt() time.Time {
	return c.CreatedAt.Add(ChallengeValidityWindow)
}

// IsExpired reports whether the challenge can no longer be completed, either
// because it was marked terminal or because its validity window has passed.
func (c *Challenge) IsExpired(now time.Time) bool {
	if c.State == ChallengeStateExpired || c.State == ChallengeStateCompleted {
		return true
	}
	return now.After(c.ExpiresAt())
}
