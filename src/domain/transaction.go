package domain

import (
	"time"

	"github.com/google/uuid"
)

// ContractTransaction records the deployment transaction facts for a contract
// as read from the chain. Created once at contract insertion, never mutated.
type ContractTransaction struct {
	ID              uuid.UUID `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ContractID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"contractId"`
	ChainID         int64     `gorm:"not null" json:"chainId"`
	TxHash          string    `gorm:"type:varchar(66);not null" json:"txHash"`
	DeployerAddress string    `gorm:"type:varchar(42);not null" json:"deployerAddress"`
	DeployedAt      time.Time `gorm:"not null" json:"deployedAt"`
	CreatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

func (ContractTransaction) TableName() string {
	return "contract_transactions"
}
