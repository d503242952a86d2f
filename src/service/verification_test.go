package service

import (
	"context"
	"crypto/ecdsa"
	"testing"
	"time"

	"github.com/ASISBusiness/ecosystem/src/domain"
	"github.com/ASISBusiness/ecosystem/src/repository"
	"github.com/ASISBusiness/ecosystem/src/testutil"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// stubChainReader serves a fixed deployment without touching any RPC node.
type stubChainReader struct {
	deployment *domain.Deployment
	err        error
}

func (s *stubChainReader) SupportsChain(chainID int64) bool {
	switch chainID {
	case 1, 10, 8453, 11155111, 11155420:
		return true
	default:
		return false
	}
}

func (s *stubChainReader) GetDeployment(ctx context.Context, chainID int64, txHash common.Hash) (*domain.Deployment, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.deployment, nil
}

type verificationFixture struct {
	svc        *VerificationService
	contracts  *repository.ContractRepository
	challenges *repository.ChallengeRepository
	key        *ecdsa.PrivateKey
	deployer   common.Address
	deployment *domain.Deployment
	entityID   uuid.UUID
	appID      uuid.UUID
}

func newVerificationFixture(t *testing.T, db *gorm.DB) *verificationFixture {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	deployer := crypto.PubkeyToAddress(key.PublicKey)

	deployment := &domain.Deployment{
		TxHash:          common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111"),
		Deployer:        deployer,
		ContractAddress: common.HexToAddress("0x2222222222222222222222222222222222222222"),
		BlockHash:       common.HexToHash("0x3333333333333333333333333333333333333333333333333333333333333333"),
		BlockTime:       time.Now().UTC().Truncate(time.Second),
	}

	contracts := repository.NewContractRepository(db)
	challenges := repository.NewChallengeRepository(db)

	svc := NewVerificationService(
		db,
		contracts,
		challenges,
		nil,
		&stubChainReader{deployment: deployment},
		NewChainService(ChainConfig{}),
	)

	return &verificationFixture{
		svc:        svc,
		contracts:  contracts,
		challenges: challenges,
		key:        key,
		deployer:   deployer,
		deployment: deployment,
		entityID:   uuid.New(),
		appID:      uuid.New(),
	}
}

func (f *verificationFixture) registerInput() RegisterContractInput {
	return RegisterContractInput{
		AppID:            f.appID,
		ChainID:          11155111,
		ContractAddress:  f.deployment.ContractAddress.Hex(),
		DeployerAddress:  f.deployer.Hex(),
		DeploymentTxHash: f.deployment.TxHash.Hex(),
	}
}

func (f *verificationFixture) sign(t *testing.T, message string) []byte {
	signature, err := crypto.Sign(accounts.TextHash([]byte(message)), f.key)
	require.NoError(t, err)
	return signature
}

func TestRegisterContract(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	f := newVerificationFixture(t, db)
	ctx := context.Background()

	contract, err := f.svc.RegisterContract(ctx, f.entityID, f.registerInput())
	require.NoError(t, err)
	require.NotNil(t, contract)

	assert.Equal(t, domain.ContractStateNotVerified, contract.State)
	assert.Equal(t, f.deployment.ContractAddress.Hex(), contract.ContractAddress)
	assert.Equal(t, f.deployer.Hex(), contract.DeployerAddress)
	require.NotNil(t, contract.Transaction)
	assert.Equal(t, f.deployment.TxHash.Hex(), contract.Transaction.TxHash)
}

func TestRegisterContract_UnsupportedChain(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	f := newVerificationFixture(t, db)

	input := f.registerInput()
	input.ChainID = 999

	_, err := f.svc.RegisterContract(context.Background(), f.entityID, input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported chain")
}

func TestRegisterContract_DeployerMismatch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	f := newVerificationFixture(t, db)

	input := f.registerInput()
	input.DeployerAddress = "0x9999999999999999999999999999999999999999"

	_, err := f.svc.RegisterContract(context.Background(), f.entityID, input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deployer mismatch")
}

func TestRegisterContract_ContractAddressMismatch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	f := newVerificationFixture(t, db)

	input := f.registerInput()
	input.ContractAddress = "0x9999999999999999999999999999999999999999"

	_, err := f.svc.RegisterContract(context.Background(), f.entityID, input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contract address mismatch")
}

func TestRegisterContract_Duplicate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	f := newVerificationFixture(t, db)
	ctx := context.Background()

	_, err := f.svc.RegisterContract(ctx, f.entityID, f.registerInput())
	require.NoError(t, err)

	_, err = f.svc.RegisterContract(ctx, f.entityID, f.registerInput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegisterContract_RestoresDeleted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	f := newVerificationFixture(t, db)
	ctx := context.Background()

	contract, err := f.svc.RegisterContract(ctx, f.entityID, f.registerInput())
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteContract(ctx, f.entityID, contract.ID))

	// Re-registering into a different app restores the same row
	input := f.registerInput()
	input.AppID = uuid.New()

	restored, err := f.svc.RegisterContract(ctx, f.entityID, input)
	require.NoError(t, err)
	assert.Equal(t, contract.ID, restored.ID)
	assert.Equal(t, input.AppID, restored.AppID)
	assert.Equal(t, domain.ContractStateNotVerified, restored.State)
}

func TestVerificationFlow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	f := newVerificationFixture(t, db)
	ctx := context.Background()

	contract, err := f.svc.RegisterContract(ctx, f.entityID, f.registerInput())
	require.NoError(t, err)
	require.Equal(t, domain.ContractStateNotVerified, contract.State)

	challenge, message, err := f.svc.StartVerification(ctx, f.entityID, contract.ID)
	require.NoError(t, err)
	require.NotNil(t, challenge)
	assert.Equal(t, domain.ChallengeStatePending, challenge.State)
	assert.Equal(t, ChallengeMessage(f.deployer), message)

	completed, err := f.svc.CompleteVerification(ctx, f.entityID, challenge.ID, f.sign(t, message))
	require.NoError(t, err)
	assert.Equal(t, domain.ChallengeStateCompleted, completed.State)

	verified, err := f.svc.GetContract(ctx, f.entityID, contract.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ContractStateVerified, verified.State)
}

func TestVerificationFlow_SecondContractSameDeployer(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	f := newVerificationFixture(t, db)
	ctx := context.Background()

	contract, err := f.svc.RegisterContract(ctx, f.entityID, f.registerInput())
	require.NoError(t, err)

	challenge, message, err := f.svc.StartVerification(ctx, f.entityID, contract.ID)
	require.NoError(t, err)

	_, err = f.svc.CompleteVerification(ctx, f.entityID, challenge.ID, f.sign(t, message))
	require.NoError(t, err)

	// A later contract from the already-verified deployer skips the challenge
	f.deployment.ContractAddress = common.HexToAddress("0x4444444444444444444444444444444444444444")
	f.deployment.TxHash = common.HexToHash("0x5555555555555555555555555555555555555555555555555555555555555555")

	second, err := f.svc.RegisterContract(ctx, f.entityID, f.registerInput())
	require.NoError(t, err)
	assert.Equal(t, domain.ContractStateVerified, second.State)
}

func TestStartVerification_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	f := newVerificationFixture(t, db)
	ctx := context.Background()

	contract, err := f.svc.RegisterContract(ctx, f.entityID, f.registerInput())
	require.NoError(t, err)

	first, message1, err := f.svc.StartVerification(ctx, f.entityID, contract.ID)
	require.NoError(t, err)

	second, message2, err := f.svc.StartVerification(ctx, f.entityID, contract.ID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, message1, message2)
}

func TestStartVerification_ContractNotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	f := newVerificationFixture(t, db)

	_, _, err := f.svc.StartVerification(context.Background(), f.entityID, uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestStartVerification_AlreadyVerified(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	f := newVerificationFixture(t, db)
	ctx := context.Background()

	contract, err := f.svc.RegisterContract(ctx, f.entityID, f.registerInput())
	require.NoError(t, err)

	challenge, message, err := f.svc.StartVerification(ctx, f.entityID, contract.ID)
	require.NoError(t, err)

	_, err = f.svc.CompleteVerification(ctx, f.entityID, challenge.ID, f.sign(t, message))
	require.NoError(t, err)

	_, _, err = f.svc.StartVerification(ctx, f.entityID, contract.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already verified")
}

func TestCompleteVerification_WrongSigner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	f := newVerificationFixture(t, db)
	ctx := context.Background()

	contract, err := f.svc.RegisterContract(ctx, f.entityID, f.registerInput())
	require.NoError(t, err)

	challenge, message, err := f.svc.StartVerification(ctx, f.entityID, contract.ID)
	require.NoError(t, err)

	otherKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	signature, err := crypto.Sign(accounts.TextHash([]byte(message)), otherKey)
	require.NoError(t, err)

	_, err = f.svc.CompleteVerification(ctx, f.entityID, challenge.ID, signature)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signature")

	// Contract stays unverified after the rejection
	unverified, err := f.svc.GetContract(ctx, f.entityID, contract.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ContractStateNotVerified, unverified.State)
}

func TestCompleteVerification_SecondAttemptRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	f := newVerificationFixture(t, db)
	ctx := context.Background()

	contract, err := f.svc.RegisterContract(ctx, f.entityID, f.registerInput())
	require.NoError(t, err)

	challenge, message, err := f.svc.StartVerification(ctx, f.entityID, contract.ID)
	require.NoError(t, err)

	signature := f.sign(t, message)
	_, err = f.svc.CompleteVerification(ctx, f.entityID, challenge.ID, signature)
	require.NoError(t, err)

	// Completed challenges cannot be replayed
	_, err = f.svc.CompleteVerification(ctx, f.entityID, challenge.ID, signature)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestCompleteVerification_RollbackOnDeletedContract(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	f := newVerificationFixture(t, db)
	ctx := context.Background()

	contract, err := f.svc.RegisterContract(ctx, f.entityID, f.registerInput())
	require.NoError(t, err)

	challenge, message, err := f.svc.StartVerification(ctx, f.entityID, contract.ID)
	require.NoError(t, err)

	// Deleting the contract between challenge issuance and completion makes
	// finalization fail inside the transaction.
	require.NoError(t, f.svc.DeleteContract(ctx, f.entityID, contract.ID))

	_, err = f.svc.CompleteVerification(ctx, f.entityID, challenge.ID, f.sign(t, message))
	require.Error(t, err)

	// The rolled-back challenge is still pending
	stored, err := f.challenges.GetChallengeByChallengeID(f.entityID, challenge.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, domain.ChallengeStatePending, stored.State)
}

func TestListContracts_ScopedToApp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	f := newVerificationFixture(t, db)
	ctx := context.Background()

	contract, err := f.svc.RegisterContract(ctx, f.entityID, f.registerInput())
	require.NoError(t, err)

	listed, err := f.svc.ListContracts(ctx, f.entityID, f.appID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, contract.ID, listed[0].ID)

	// Another app sees nothing
	other, err := f.svc.ListContracts(ctx, f.entityID, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, other)

	// Deleted contracts disappear from the list
	require.NoError(t, f.svc.DeleteContract(ctx, f.entityID, contract.ID))

	listed, err = f.svc.ListContracts(ctx, f.entityID, f.appID)
	require.NoError(t, err)
	assert.Empty(t, listed)
}
