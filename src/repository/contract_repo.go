package repository

import (
	"fmt"
	"time"

	"github.com/ASISBusiness/ecosystem/src/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// checksumAddress normalizes a hex address to its EIP-55 checksum form.
// Every address comparison and write goes through this to avoid case-based
// duplicate and match bugs.
func checksumAddress(address string) string {
	return common.HexToAddress(address).Hex()
}

type ContractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

// WithTx returns a repository bound to the given transaction handle so that
// multi-statement units run atomically inside one db.Transaction.
func (r *ContractRepository) WithTx(tx *gorm.DB) *ContractRepository {
	return &ContractRepository{db: tx}
}

// GetActiveContractsForApp returns all non-deleted contracts for an app,
// with entity, transaction and rebate data, ordered by creation time.
func (r *ContractRepository) GetActiveContractsForApp(entityID, appID uuid.UUID) ([]*domain.Contract, error) {
	var contracts []*domain.Contract
	err := r.db.
		Preload("Entity").
		Preload("Transaction").
		Preload("RebateEligibility").
		Where("entity_id = ? AND app_id = ? AND state <> ?", entityID, appID, domain.ContractStateDeleted).
		Order("created_at ASC").
		Find(&contracts).Error
	if err != nil {
		return nil, err
	}
	return contracts, nil
}

// GetActiveContract returns a single non-deleted contract scoped to the
// entity, or nil when absent.
func (r *ContractRepository) GetActiveContract(contractID, entityID uuid.UUID) (*domain.Contract, error) {
	var contract domain.Contract
	err := r.db.
		Preload("Entity").
		Preload("Transaction").
		Preload("RebateEligibility").
		Where("id = ? AND entity_id = ? AND state <> ?", contractID, entityID, domain.ContractStateDeleted).
		First(&contract).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &contract, nil
}

// GetContractByAddressAndChainID matches on the checksummed address and
// includes DELETED rows, so callers can detect restorable slots.
func (r *ContractRepository) GetContractByAddressAndChainID(contractAddress string, chainID int64, entityID uuid.UUID) (*domain.Contract, error) {
	var contract domain.Contract
	err := r.db.
		Where("contract_address = ? AND chain_id = ? AND entity_id = ?", checksumAddress(contractAddress), chainID, entityID).
		First(&contract).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &contract, nil
}

// HasAlreadyVerifiedDeployer reports whether any VERIFIED contract under this
// entity already used the deployer address.
func (r *ContractRepository) HasAlreadyVerifiedDeployer(entityID uuid.UUID, deployerAddress string) (bool, error) {
	var count int64
	err := r.db.Model(&domain.Contract{}).
		Where("entity_id = ? AND deployer_address = ? AND state = ?", entityID, checksumAddress(deployerAddress), domain.ContractStateVerified).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// InsertContract normalizes both addresses to checksum form, ensures the
// owning entity row exists, and inserts the contract together with its
// deployment transaction record.
func (r *ContractRepository) InsertContract(contract *domain.Contract, deployedAt time.Time) (*domain.Contract, error) {
	contract.ContractAddress = checksumAddress(contract.ContractAddress)
	contract.DeployerAddress = checksumAddress(contract.DeployerAddress)

	entity := domain.Entity{ID: contract.EntityID}
	if err := r.db.FirstOrCreate(&entity, domain.Entity{ID: contract.EntityID}).Error; err != nil {
		return nil, fmt.Errorf("failed to ensure entity: %w", err)
	}

	if err := r.db.Create(contract).Error; err != nil {
		return nil, err
	}

	txRecord := &domain.ContractTransaction{
		ContractID:      contract.ID,
		ChainID:         contract.ChainID,
		TxHash:          contract.DeploymentTxHash,
		DeployerAddress: contract.DeployerAddress,
		DeployedAt:      deployedAt,
	}
	if err := r.db.Create(txRecord).Error; err != nil {
		return nil, err
	}
	contract.Transaction = txRecord

	return contract, nil
}

// RestoreDeletedContract revives a soft-deleted row into the target app.
// Only VERIFIED and NOT_VERIFIED are valid restore states.
func (r *ContractRepository) RestoreDeletedContract(contractID, appID uuid.UUID, state domain.ContractState) (*domain.Contract, error) {
	if state != domain.ContractStateVerified && state != domain.ContractStateNotVerified {
		return nil, fmt.Errorf("invalid restore state: %s", state)
	}

	result := r.db.Model(&domain.Contract{}).
		Where("id = ? AND state = ?", contractID, domain.ContractStateDeleted).
		Updates(map[string]interface{}{
			"app_id":     appID,
			"state":      state,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	var contract domain.Contract
	if err := r.db.Preload("Transaction").First(&contract, "id = ?", contractID).Error; err != nil {
		return nil, err
	}
	return &contract, nil
}

// VerifyContract flips the contract to VERIFIED, scoped by entity id.
func (r *ContractRepository) VerifyContract(entityID, contractID uuid.UUID) error {
	result := r.db.Model(&domain.Contract{}).
		Where("id = ? AND entity_id = ? AND state <> ?", contractID, entityID, domain.ContractStateDeleted).
		Updates(map[string]interface{}{
			"state":      domain.ContractStateVerified,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteContract soft-deletes the contract, scoped by entity id.
func (r *ContractRepository) DeleteContract(entityID, contractID uuid.UUID) error {
	result := r.db.Model(&domain.Contract{}).
		Where("id = ? AND entity_id = ? AND state <> ?", contractID, entityID, domain.ContractStateDeleted).
		Updates(map[string]interface{}{
			"state":      domain.ContractStateDeleted,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
