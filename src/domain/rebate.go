package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RebateEligibility tracks the deployment rebate a verified contract may
// claim. Joined onto contract reads; verification is a precondition for
// claiming, handled by the rebate pipeline outside this service.
type RebateEligibility struct {
	ID              uuid.UUID       `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ContractID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"contractId"`
	Eligible        bool            `gorm:"not null;default:false" json:"eligible"`
	MaxRebateAmount decimal.Decimal `gorm:"type:numeric(78,0);not null;default:0" json:"maxRebateAmount"`
	Currency        string          `gorm:"type:varchar(8);not null;default:ETH" json:"currency"`
	CreatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

func (RebateEligibility) TableName() string {
	return "rebate_eligibilities"
}
