package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ASISBusiness/ecosystem/src/domain"
	"github.com/ASISBusiness/ecosystem/src/metrics"
	"github.com/ASISBusiness/ecosystem/src/repository"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// VerificationService orchestrates contract registration and the signed
// challenge flow. All multi-row writes run inside a single database
// transaction; the challenge cache is best-effort and never authoritative.
type VerificationService struct {
	db         *gorm.DB
	contracts  *repository.ContractRepository
	challenges *repository.ChallengeRepository
	cache      *repository.ChallengeCacheRepository
	chains     ChainReader
	verifier   SignatureVerifier
}

func NewVerificationService(
	db *gorm.DB,
	contracts *repository.ContractRepository,
	challenges *repository.ChallengeRepository,
	cache *repository.ChallengeCacheRepository,
	chains ChainReader,
	verifier SignatureVerifier,
) *VerificationService {
	return &VerificationService{
		db:         db,
		contracts:  contracts,
		challenges: challenges,
		cache:      cache,
		chains:     chains,
		verifier:   verifier,
	}
}

// logger wraps the execution context with component info
func (s *VerificationService) logger(ctx context.Context) *zerolog.Logger {
	l := zerolog.Ctx(ctx).With().Str("service", "verification").Logger()
	return &l
}

type RegisterContractInput struct {
	AppID            uuid.UUID
	ChainID          int64
	ContractAddress  string
	DeployerAddress  string
	DeploymentTxHash string
}

// RegisterContract validates the claimed deployment against on-chain data and
// persists the contract. If a soft-deleted row already occupies the
// (entity, chain, address) slot it is restored instead of reinserted. A
// contract whose deployer was already verified under the entity is registered
// directly as VERIFIED.
func (s *VerificationService) RegisterContract(ctx context.Context, entityID uuid.UUID, input RegisterContractInput) (*domain.Contract, error) {
	if !s.chains.SupportsChain(input.ChainID) {
		metrics.ContractRegistrations.WithLabelValues("rejected").Inc()
		metrics.RecordFailure("unsupported_chain")
		return nil, domain.NewError(domain.ErrorCodeParameterInvalid,
			fmt.Errorf("unsupported chain id: %d", input.ChainID),
			domain.WithMsg("Unsupported chain id"))
	}

	if !common.IsHexAddress(input.ContractAddress) || !common.IsHexAddress(input.DeployerAddress) {
		metrics.ContractRegistrations.WithLabelValues("rejected").Inc()
		metrics.RecordFailure("malformed_address")
		return nil, domain.NewError(domain.ErrorCodeParameterInvalid,
			errors.New("malformed address"),
			domain.WithMsg("Malformed contract or deployer address"))
	}

	deployment, err := s.chains.GetDeployment(ctx, input.ChainID, common.HexToHash(input.DeploymentTxHash))
	if err != nil {
		metrics.ContractRegistrations.WithLabelValues("rejected").Inc()
		return nil, err
	}

	if !deployment.CreatedContract() {
		metrics.ContractRegistrations.WithLabelValues("rejected").Inc()
		metrics.RecordFailure("contract_not_created")
		return nil, domain.NewError(domain.ErrorCodeParameterInvalid,
			fmt.Errorf("transaction %s did not create a contract", input.DeploymentTxHash),
			domain.WithMsg("Transaction did not create a contract"))
	}

	if deployment.Deployer != common.HexToAddress(input.DeployerAddress) {
		metrics.ContractRegistrations.WithLabelValues("rejected").Inc()
		metrics.RecordFailure("deployer_mismatch")
		return nil, domain.NewError(domain.ErrorCodeParameterInvalid,
			fmt.Errorf("deployer mismatch: claimed %s, on-chain %s", input.DeployerAddress, deployment.Deployer.Hex()),
			domain.WithMsg("Deployer address does not match the transaction sender"))
	}

	if deployment.ContractAddress != common.HexToAddress(input.ContractAddress) {
		metrics.ContractRegistrations.WithLabelValues("rejected").Inc()
		metrics.RecordFailure("contract_address_mismatch")
		return nil, domain.NewError(domain.ErrorCodeParameterInvalid,
			fmt.Errorf("contract address mismatch: claimed %s, on-chain %s", input.ContractAddress, deployment.ContractAddress.Hex()),
			domain.WithMsg("Contract address does not match the deployment"))
	}

	var registered *domain.Contract
	err = s.db.Transaction(func(tx *gorm.DB) error {
		contracts := s.contracts.WithTx(tx)

		verified, err := contracts.HasAlreadyVerifiedDeployer(entityID, input.DeployerAddress)
		if err != nil {
			return err
		}
		state := domain.ContractStateNotVerified
		if verified {
			state = domain.ContractStateVerified
		}

		existing, err := contracts.GetContractByAddressAndChainID(input.ContractAddress, input.ChainID, entityID)
		if err != nil {
			return err
		}
		if existing != nil {
			if !existing.IsDeleted() {
				return domain.NewError(domain.ErrorCodeParameterInvalid,
					fmt.Errorf("contract %s already registered on chain %d", input.ContractAddress, input.ChainID),
					domain.WithMsg("Contract is already registered"))
			}
			registered, err = contracts.RestoreDeletedContract(existing.ID, input.AppID, state)
			return err
		}

		registered, err = contracts.InsertContract(&domain.Contract{
			EntityID:         entityID,
			AppID:            input.AppID,
			ChainID:          input.ChainID,
			ContractAddress:  input.ContractAddress,
			DeployerAddress:  input.DeployerAddress,
			DeploymentTxHash: input.DeploymentTxHash,
			State:            state,
		}, deployment.BlockTime)
		return err
	})
	if err != nil {
		metrics.ContractRegistrations.WithLabelValues("rejected").Inc()
		var domainErr domain.DomainError
		if errors.As(err, &domainErr) {
			return nil, err
		}
		s.logger(ctx).Error().Err(err).
			Str("entity_id", entityID.String()).
			Str("contract_address", input.ContractAddress).
			Msg("failed to persist contract registration")
		metrics.RecordFailure("persistence")
		return nil, domain.NewError(domain.ErrorCodeInternalProcess, err, domain.WithMsg("Failed to register contract"))
	}

	metrics.ContractRegistrations.WithLabelValues("ok").Inc()
	return registered, nil
}

// StartVerification issues (or re-issues) the ownership challenge for a
// contract. An unexpired pending challenge is returned as-is so that repeated
// calls stay idempotent; the signing message is deterministic either way.
func (s *VerificationService) StartVerification(ctx context.Context, entityID, contractID uuid.UUID) (*domain.Challenge, string, error) {
	contract, err := s.contracts.GetActiveContract(contractID, entityID)
	if err != nil {
		metrics.VerificationStarts.WithLabelValues("error").Inc()
		return nil, "", domain.NewError(domain.ErrorCodeInternalProcess, err, domain.WithMsg("Failed to load contract"))
	}
	if contract == nil {
		metrics.VerificationStarts.WithLabelValues("rejected").Inc()
		return nil, "", domain.NewError(domain.ErrorCodeResourceNotFound,
			fmt.Errorf("contract %s not found", contractID),
			domain.WithMsg("Contract not found"))
	}
	if contract.State == domain.ContractStateVerified {
		metrics.VerificationStarts.WithLabelValues("rejected").Inc()
		return nil, "", domain.NewError(domain.ErrorCodeParameterInvalid,
			fmt.Errorf("contract %s is already verified", contractID),
			domain.WithMsg("Contract is already verified"))
	}

	message := ChallengeMessage(common.HexToAddress(contract.DeployerAddress))

	if s.cache != nil {
		cached, err := s.cache.GetPendingChallenge(ctx, contractID)
		if err != nil {
			s.logger(ctx).Warn().Err(err).
				Str("contract_id", contractID.String()).
				Msg("challenge cache read failed")
		} else if cached != nil && cached.EntityID == entityID && !cached.IsExpired(time.Now()) {
			metrics.VerificationStarts.WithLabelValues("ok").Inc()
			return cached, message, nil
		}
	}

	existing, err := s.challenges.GetUnexpiredChallenge(entityID, contractID)
	if err != nil {
		metrics.VerificationStarts.WithLabelValues("error").Inc()
		return nil, "", domain.NewError(domain.ErrorCodeInternalProcess, err, domain.WithMsg("Failed to load challenge"))
	}
	if existing != nil {
		s.cacheChallenge(ctx, existing)
		metrics.VerificationStarts.WithLabelValues("ok").Inc()
		return existing, message, nil
	}

	challenge, err := s.challenges.InsertChallenge(&domain.Challenge{
		EntityID:   entityID,
		ContractID: contractID,
		Address:    contract.DeployerAddress,
		ChainID:    contract.ChainID,
		State:      domain.ChallengeStatePending,
	})
	if err != nil {
		metrics.VerificationStarts.WithLabelValues("error").Inc()
		return nil, "", domain.NewError(domain.ErrorCodeInternalProcess, err, domain.WithMsg("Failed to create challenge"))
	}

	s.cacheChallenge(ctx, challenge)
	metrics.VerificationStarts.WithLabelValues("ok").Inc()
	return challenge, message, nil
}

// CompleteVerification checks the signature against the challenge's deployer
// address and, in one transaction, completes the challenge and marks the
// contract VERIFIED. A failed finalization leaves the challenge pending.
func (s *VerificationService) CompleteVerification(ctx context.Context, entityID, challengeID uuid.UUID, signature []byte) (*domain.Challenge, error) {
	challenge, err := s.challenges.GetChallengeByChallengeID(entityID, challengeID)
	if err != nil {
		metrics.VerificationCompletions.WithLabelValues("error").Inc()
		return nil, domain.NewError(domain.ErrorCodeInternalProcess, err, domain.WithMsg("Failed to load challenge"))
	}
	if challenge == nil {
		metrics.VerificationCompletions.WithLabelValues("rejected").Inc()
		return nil, domain.NewError(domain.ErrorCodeResourceNotFound,
			fmt.Errorf("challenge %s not found", challengeID),
			domain.WithMsg("Challenge not found"))
	}
	if challenge.IsExpired(time.Now()) {
		metrics.VerificationCompletions.WithLabelValues("rejected").Inc()
		metrics.RecordFailure("challenge_expired")
		return nil, domain.NewError(domain.ErrorCodeParameterInvalid,
			fmt.Errorf("challenge %s is expired", challengeID),
			domain.WithMsg("Challenge is expired"))
	}

	if !s.chains.SupportsChain(challenge.ChainID) {
		metrics.VerificationCompletions.WithLabelValues("error").Inc()
		return nil, domain.NewError(domain.ErrorCodeInternalProcess,
			fmt.Errorf("challenge %s references unsupported chain %d", challengeID, challenge.ChainID),
			domain.WithMsg("Challenge references an unsupported chain"))
	}

	message := ChallengeMessage(common.HexToAddress(challenge.Address))
	valid, err := s.verifier.VerifyMessage(challenge.ChainID, common.HexToAddress(challenge.Address), message, signature)
	if err != nil {
		metrics.VerificationCompletions.WithLabelValues("error").Inc()
		return nil, domain.NewError(domain.ErrorCodeInternalProcess, err, domain.WithMsg("Failed to verify signature"))
	}
	if !valid {
		metrics.VerificationCompletions.WithLabelValues("rejected").Inc()
		metrics.RecordFailure("signature_invalid")
		return nil, domain.NewError(domain.ErrorCodeParameterInvalid,
			fmt.Errorf("signature does not recover to %s", challenge.Address),
			domain.WithMsg("Signature verification failed"))
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.challenges.WithTx(tx).CompleteChallenge(entityID, challengeID); err != nil {
			return err
		}
		return s.contracts.WithTx(tx).VerifyContract(entityID, challenge.ContractID)
	})
	if err != nil {
		metrics.VerificationCompletions.WithLabelValues("error").Inc()
		s.logger(ctx).Error().Err(err).
			Str("entity_id", entityID.String()).
			Str("challenge_id", challengeID.String()).
			Msg("failed to finalize verification")
		metrics.RecordFailure("persistence")
		return nil, domain.NewError(domain.ErrorCodeInternalProcess, err, domain.WithMsg("Failed to finalize verification"))
	}

	if s.cache != nil {
		if err := s.cache.InvalidateChallenge(ctx, challenge.ContractID); err != nil {
			s.logger(ctx).Warn().Err(err).
				Str("contract_id", challenge.ContractID.String()).
				Msg("challenge cache invalidation failed")
		}
	}

	challenge.State = domain.ChallengeStateCompleted
	metrics.VerificationCompletions.WithLabelValues("ok").Inc()
	return challenge, nil
}

// GetContract returns a single active contract scoped to the entity.
func (s *VerificationService) GetContract(ctx context.Context, entityID, contractID uuid.UUID) (*domain.Contract, error) {
	contract, err := s.contracts.GetActiveContract(contractID, entityID)
	if err != nil {
		return nil, domain.NewError(domain.ErrorCodeInternalProcess, err, domain.WithMsg("Failed to load contract"))
	}
	if contract == nil {
		return nil, domain.NewError(domain.ErrorCodeResourceNotFound,
			fmt.Errorf("contract %s not found", contractID),
			domain.WithMsg("Contract not found"))
	}
	return contract, nil
}

// ListContracts returns the entity's active contracts for one app.
func (s *VerificationService) ListContracts(ctx context.Context, entityID, appID uuid.UUID) ([]*domain.Contract, error) {
	contracts, err := s.contracts.GetActiveContractsForApp(entityID, appID)
	if err != nil {
		return nil, domain.NewError(domain.ErrorCodeInternalProcess, err, domain.WithMsg("Failed to list contracts"))
	}
	return contracts, nil
}

// DeleteContract soft-deletes the contract and drops any cached challenge.
func (s *VerificationService) DeleteContract(ctx context.Context, entityID, contractID uuid.UUID) error {
	if err := s.contracts.DeleteContract(entityID, contractID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NewError(domain.ErrorCodeResourceNotFound,
				fmt.Errorf("contract %s not found", contractID),
				domain.WithMsg("Contract not found"))
		}
		return domain.NewError(domain.ErrorCodeInternalProcess, err, domain.WithMsg("Failed to delete contract"))
	}

	if s.cache != nil {
		if err := s.cache.InvalidateChallenge(ctx, contractID); err != nil {
			s.logger(ctx).Warn().Err(err).
				Str("contract_id", contractID.String()).
				Msg("challenge cache invalidation failed")
		}
	}
	return nil
}

func (s *VerificationService) cacheChallenge(ctx context.Context, challenge *domain.Challenge) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetPendingChallenge(ctx, challenge); err != nil {
		s.logger(ctx).Warn().Err(err).
			Str("contract_id", challenge.ContractID.String()).
			Msg("challenge cache write failed")
	}
}
