package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ASISBusiness/ecosystem/src/domain"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ChallengeCacheRepository is a Redis read-through cache of pending
// challenges, keyed by contract id with a TTL matching the validity window.
// The relational store stays authoritative; cache misses and errors fall back
// to it.
type ChallengeCacheRepository struct {
	redis     *redis.Client
	keyPrefix string
}

func NewChallengeCacheRepository(redis *redis.Client, keyPrefix string) *ChallengeCacheRepository {
	return &ChallengeCacheRepository{
		redis:     redis,
		keyPrefix: keyPrefix,
	}
}

func (r *ChallengeCacheRepository) key(contractID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", r.keyPrefix, contractID)
}

// GetPendingChallenge retrieves the cached pending challenge for a contract.
// A cache miss returns nil without error.
func (r *ChallengeCacheRepository) GetPendingChallenge(ctx context.Context, contractID uuid.UUID) (*domain.Challenge, error) {
	data, err := r.redis.Get(ctx, r.key(contractID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var challenge domain.Challenge
	if err := json.Unmarshal([]byte(data), &challenge); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached challenge: %w", err)
	}
	return &challenge, nil
}

// SetPendingChallenge caches a challenge until its expiry.
func (r *ChallengeCacheRepository) SetPendingChallenge(ctx context.Context, challenge *domain.Challenge) error {
	ttl := time.Until(challenge.ExpiresAt())
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("failed to marshal challenge: %w", err)
	}

	return r.redis.Set(ctx, r.key(challenge.ContractID), data, ttl).Err()
}

// InvalidateChallenge drops the cached challenge after completion.
func (r *ChallengeCacheRepository) InvalidateChallenge(ctx context.Context, contractID uuid.UUID) error {
	return r.redis.Del(ctx, r.key(contractID)).Err()
}
