package repository

import (
	"testing"
	"time"

	"github.com/ASISBusiness/ecosystem/src/domain"
	"github.com/ASISBusiness/ecosystem/src/testutil"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func setupChallengeFixture(t *testing.T, db *gorm.DB) (uuid.UUID, *domain.Contract) {
	contractRepo := NewContractRepository(db)
	entityID := uuid.New()

	contract, err := contractRepo.InsertContract(&domain.Contract{
		EntityID:         entityID,
		AppID:            uuid.New(),
		ChainID:          11155111,
		ContractAddress:  "0x2222222222222222222222222222222222222222",
		DeployerAddress:  "0x70997970c51812dc3a010c7d01b50e0d17dc79c8",
		DeploymentTxHash: "0x1111111111111111111111111111111111111111111111111111111111111111",
		State:            domain.ContractStateNotVerified,
	}, time.Now())
	if err != nil {
		t.Fatalf("InsertContract failed: %v", err)
	}

	return entityID, contract
}

func TestChallengeRepository_InsertAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewChallengeRepository(db)
	entityID, contract := setupChallengeFixture(t, db)

	challenge, err := repo.InsertChallenge(&domain.Challenge{
		EntityID:   entityID,
		ContractID: contract.ID,
		Address:    "0x70997970c51812dc3a010c7d01b50e0d17dc79c8",
		ChainID:    contract.ChainID,
		State:      domain.ChallengeStatePending,
	})
	if err != nil {
		t.Fatalf("InsertChallenge failed: %v", err)
	}

	if challenge.ID == uuid.Nil {
		t.Error("Challenge ID should be generated")
	}
	if challenge.Address != "0x70997970C51812dc3A010C7d01b50e0d17dc79C8" {
		t.Errorf("Expected checksummed address, got %s", challenge.Address)
	}

	found, err := repo.GetChallengeByChallengeID(entityID, challenge.ID)
	if err != nil {
		t.Fatalf("GetChallengeByChallengeID failed: %v", err)
	}
	if found == nil || found.ID != challenge.ID {
		t.Fatal("Expected to find the inserted challenge")
	}

	// Scoped per entity
	found, err = repo.GetChallengeByChallengeID(uuid.New(), challenge.ID)
	if err != nil {
		t.Fatalf("GetChallengeByChallengeID failed: %v", err)
	}
	if found != nil {
		t.Error("Challenge should not be visible to another entity")
	}
}

func TestChallengeRepository_GetUnexpiredChallenge(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewChallengeRepository(db)
	entityID, contract := setupChallengeFixture(t, db)

	found, err := repo.GetUnexpiredChallenge(entityID, contract.ID)
	if err != nil {
		t.Fatalf("GetUnexpiredChallenge failed: %v", err)
	}
	if found != nil {
		t.Error("Expected no challenge before insertion")
	}

	challenge, err := repo.InsertChallenge(&domain.Challenge{
		EntityID:   entityID,
		ContractID: contract.ID,
		Address:    contract.DeployerAddress,
		ChainID:    contract.ChainID,
		State:      domain.ChallengeStatePending,
	})
	if err != nil {
		t.Fatalf("InsertChallenge failed: %v", err)
	}

	found, err = repo.GetUnexpiredChallenge(entityID, contract.ID)
	if err != nil {
		t.Fatalf("GetUnexpiredChallenge failed: %v", err)
	}
	if found == nil || found.ID != challenge.ID {
		t.Fatal("Expected to find the pending challenge")
	}

	// Completed challenges no longer match
	if err := repo.CompleteChallenge(entityID, challenge.ID); err != nil {
		t.Fatalf("CompleteChallenge failed: %v", err)
	}

	found, err = repo.GetUnexpiredChallenge(entityID, contract.ID)
	if err != nil {
		t.Fatalf("GetUnexpiredChallenge failed: %v", err)
	}
	if found != nil {
		t.Error("Completed challenge should not be returned as unexpired")
	}
}

func TestChallengeRepository_CompleteChallenge(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewChallengeRepository(db)
	entityID, contract := setupChallengeFixture(t, db)

	challenge, err := repo.InsertChallenge(&domain.Challenge{
		EntityID:   entityID,
		ContractID: contract.ID,
		Address:    contract.DeployerAddress,
		ChainID:    contract.ChainID,
		State:      domain.ChallengeStatePending,
	})
	if err != nil {
		t.Fatalf("InsertChallenge failed: %v", err)
	}

	if err := repo.CompleteChallenge(entityID, challenge.ID); err != nil {
		t.Fatalf("CompleteChallenge failed: %v", err)
	}

	found, err := repo.GetChallengeByChallengeID(entityID, challenge.ID)
	if err != nil {
		t.Fatalf("GetChallengeByChallengeID failed: %v", err)
	}
	if found.State != domain.ChallengeStateCompleted {
		t.Errorf("Expected COMPLETED state, got %s", found.State)
	}

	// Completing again fails since the row is no longer pending
	if err := repo.CompleteChallenge(entityID, challenge.ID); err != gorm.ErrRecordNotFound {
		t.Errorf("Expected ErrRecordNotFound, got %v", err)
	}
}
