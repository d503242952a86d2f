package repository

import (
	"time"

	"github.com/ASISBusiness/ecosystem/src/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChallengeRepository struct {
	db *gorm.DB
}

func NewChallengeRepository(db *gorm.DB) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

// WithTx returns a repository bound to the given transaction handle.
func (r *ChallengeRepository) WithTx(tx *gorm.DB) *ChallengeRepository {
	return &ChallengeRepository{db: tx}
}

// GetUnexpiredChallenge returns the pending challenge for a contract that is
// still inside the validity window, or nil. Expiry is evaluated here at read
// time rather than by a background sweeper.
func (r *ChallengeRepository) GetUnexpiredChallenge(entityID, contractID uuid.UUID) (*domain.Challenge, error) {
	cutoff := time.Now().Add(-domain.ChallengeValidityWindow)

	var challenge domain.Challenge
	err := r.db.
		Where("entity_id = ? AND contract_id = ? AND state = ? AND created_at > ?",
			entityID, contractID, domain.ChallengeStatePending, cutoff).
		Order("created_at DESC").
		First(&challenge).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &challenge, nil
}

// GetChallengeByChallengeID returns the challenge scoped to the entity, or nil.
func (r *ChallengeRepository) GetChallengeByChallengeID(entityID, challengeID uuid.UUID) (*domain.Challenge, error) {
	var challenge domain.Challenge
	err := r.db.
		Where("id = ? AND entity_id = ?", challengeID, entityID).
		First(&challenge).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &challenge, nil
}

func (r *ChallengeRepository) InsertChallenge(challenge *domain.Challenge) (*domain.Challenge, error) {
	challenge.Address = checksumAddress(challenge.Address)
	if err := r.db.Create(challenge).Error; err != nil {
		return nil, err
	}
	return challenge, nil
}

// CompleteChallenge marks a pending challenge COMPLETED, scoped by entity id.
func (r *ChallengeRepository) CompleteChallenge(entityID, challengeID uuid.UUID) error {
	result := r.db.Model(&domain.Challenge{}).
		Where("id = ? AND entity_id = ? AND state = ?", challengeID, entityID, domain.ChallengeStatePending).
		Updates(map[string]interface{}{
			"state":      domain.ChallengeStateCompleted,
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
