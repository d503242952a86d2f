package domain

import (
	"time"

	"github.com/google/uuid"
)

type ContractState string

const (
	ContractStateNotVerified ContractState = "NOT_VERIFIED"
	ContractStateVerified    ContractState = "VERIFIED"
	ContractStateDeleted     ContractState = "DELETED"
)

// Contract is a registered on-chain deployment owned by an entity.
// (entity_id, chain_id, contract_address) is unique over all rows including
// DELETED ones: a deleted contract occupying the slot must be restored, never
// inserted again.
type Contract struct {
	ID               uuid.UUID     `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	EntityID         uuid.UUID     `gorm:"type:uuid;not null" json:"entityId"`
	AppID            uuid.UUID     `gorm:"type:uuid;not null" json:"appId"`
	ChainID          int64         `gorm:"not null" json:"chainId"`
	ContractAddress  string        `gorm:"type:varchar(42);not null" json:"contractAddress"`
	DeployerAddress  string        `gorm:"type:varchar(42);not null" json:"deployerAddress"`
	DeploymentTxHash string        `gorm:"type:varchar(66);not null" json:"deploymentTxHash"`
	State            ContractState `gorm:"type:varchar(16);not null;default:NOT_VERIFIED" json:"state"`
	CreatedAt        time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt        time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`

	Entity            *Entity              `gorm:"foreignKey:EntityID" json:"entity,omitempty"`
	Transaction       *ContractTransaction `gorm:"foreignKey:ContractID" json:"transaction,omitempty"`
	RebateEligibility *RebateEligibility   `gorm:"foreignKey:ContractID" json:"rebateEligibility,omitempty"`
}

func (Contract) TableName() string {
	return "contracts"
}

func (c *Contract) IsDeleted() bool {
	return c.State == ContractStateDeleted
}
