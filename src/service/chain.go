package service

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ASISBusiness/ecosystem/src/domain"
	"github.com/ASISBusiness/ecosystem/src/metrics"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"
)

// ChainReader is the chain-side collaborator the orchestrator depends on.
// ChainService implements it; tests inject doubles per chain.
type ChainReader interface {
	SupportsChain(chainID int64) bool
	GetDeployment(ctx context.Context, chainID int64, txHash common.Hash) (*domain.Deployment, error)
}

// SignatureVerifier checks that a message was signed by the claimed address.
// A false result is a valid negative outcome, not an error.
type SignatureVerifier interface {
	VerifyMessage(chainID int64, address common.Address, message string, signature []byte) (bool, error)
}

type ChainConfig struct {
	EthereumRPCURL        string
	OptimismRPCURL        string
	BaseRPCURL            string
	SepoliaRPCURL         string
	OptimismSepoliaRPCURL string
}

// ChainClient wraps a single RPC connection: the raw client for trace calls
// and an ethclient layered over the same connection.
type ChainClient struct {
	rpc *rpc.Client
	eth *ethclient.Client
}

type ChainService struct {
	config     ChainConfig
	clientPool map[int64]*ChainClient
	mu         sync.RWMutex
}

func NewChainService(config ChainConfig) *ChainService {
	return &ChainService{
		config:     config,
		clientPool: make(map[int64]*ChainClient),
	}
}

// logger wraps the execution context with component info
func (s *ChainService) logger(ctx context.Context) *zerolog.Logger {
	l := zerolog.Ctx(ctx).With().Str("service", "chain").Logger()
	return &l
}

func (s *ChainService) rpcURL(chainID int64) (string, error) {
	switch chainID {
	case 1:
		return s.config.EthereumRPCURL, nil
	case 10:
		return s.config.OptimismRPCURL, nil
	case 8453:
		return s.config.BaseRPCURL, nil
	case 11155111:
		return s.config.SepoliaRPCURL, nil
	case 11155420:
		return s.config.OptimismSepoliaRPCURL, nil
	default:
		return "", fmt.Errorf("unsupported chain id: %d", chainID)
	}
}

func (s *ChainService) SupportsChain(chainID int64) bool {
	_, err := s.rpcURL(chainID)
	return err == nil
}

func (s *ChainService) GetClient(chainID int64) (*ChainClient, error) {
	s.mu.RLock()
	if client, exists := s.clientPool[chainID]; exists {
		s.mu.RUnlock()
		return client, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check pattern
	if client, exists := s.clientPool[chainID]; exists {
		return client, nil
	}

	rpcURL, err := s.rpcURL(chainID)
	if err != nil {
		return nil, err
	}

	rpcClient, err := rpc.Dial(rpcURL)
	if err != nil {
		return nil, err
	}

	client := &ChainClient{
		rpc: rpcClient,
		eth: ethclient.NewClient(rpcClient),
	}

	if s.clientPool == nil {
		s.clientPool = make(map[int64]*ChainClient)
	}
	s.clientPool[chainID] = client

	return client, nil
}

// Close closes all client connections and cleans up the connection pool
func (s *ChainService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, client := range s.clientPool {
		client.rpc.Close()
	}
	s.clientPool = nil
}

// GetDeployment fetches the transaction, its receipt and the containing block
// header, recovers the sender and resolves the created contract address.
// Fetch failures are caller-facing deployment-fetch errors since they stem
// from the supplied hash; trace transport failures are remote-process errors.
func (s *ChainService) GetDeployment(ctx context.Context, chainID int64, txHash common.Hash) (*domain.Deployment, error) {
	client, err := s.GetClient(chainID)
	if err != nil {
		s.logger(ctx).Error().Err(err).
			Int64("chain_id", chainID).
			Msg("failed to get chain client")
		return nil, domain.NewError(domain.ErrorCodeParameterInvalid, err, domain.WithMsg("Unsupported chain id"))
	}

	tx, _, err := client.eth.TransactionByHash(ctx, txHash)
	if err != nil {
		s.logger(ctx).Error().Err(err).
			Int64("chain_id", chainID).
			Str("tx_hash", txHash.Hex()).
			Msg("failed to fetch deployment transaction")
		metrics.RecordFailure("deployment_fetch")
		return nil, domain.NewError(domain.ErrorCodeParameterInvalid, err, domain.WithMsg("Failed to fetch deployment transaction"))
	}

	receipt, err := client.eth.TransactionReceipt(ctx, txHash)
	if err != nil {
		s.logger(ctx).Error().Err(err).
			Int64("chain_id", chainID).
			Str("tx_hash", txHash.Hex()).
			Msg("failed to fetch deployment transaction receipt")
		metrics.RecordFailure("deployment_fetch")
		return nil, domain.NewError(domain.ErrorCodeParameterInvalid, err, domain.WithMsg("Failed to fetch deployment transaction receipt"))
	}

	header, err := client.eth.HeaderByHash(ctx, receipt.BlockHash)
	if err != nil {
		s.logger(ctx).Error().Err(err).
			Int64("chain_id", chainID).
			Str("block_hash", receipt.BlockHash.Hex()).
			Msg("failed to fetch deployment block")
		metrics.RecordFailure("deployment_fetch")
		return nil, domain.NewError(domain.ErrorCodeParameterInvalid, err, domain.WithMsg("Failed to fetch deployment block"))
	}

	deployer, err := types.Sender(types.LatestSignerForChainID(big.NewInt(chainID)), tx)
	if err != nil {
		s.logger(ctx).Error().Err(err).
			Int64("chain_id", chainID).
			Str("tx_hash", txHash.Hex()).
			Msg("failed to recover transaction sender")
		metrics.RecordFailure("deployment_fetch")
		return nil, domain.NewError(domain.ErrorCodeParameterInvalid, err, domain.WithMsg("Failed to recover transaction sender"))
	}

	contractAddress := receipt.ContractAddress
	if contractAddress == (common.Address{}) {
		// Factory deployments carry no receipt address; fall back to the
		// CREATE2 trace resolution.
		contractAddress, err = s.traceCreatedContract(ctx, client, txHash)
		if err != nil {
			s.logger(ctx).Error().Err(err).
				Int64("chain_id", chainID).
				Str("tx_hash", txHash.Hex()).
				Msg("failed to trace deployment transaction")
			metrics.RecordFailure("trace_failure")
			return nil, domain.NewError(domain.ErrorCodeRemoteProcess, err, domain.WithMsg("Failed to trace deployment transaction"))
		}
	}

	return &domain.Deployment{
		TxHash:          txHash,
		Deployer:        deployer,
		ContractAddress: contractAddress,
		BlockHash:       receipt.BlockHash,
		BlockTime:       blockTime(header.Time),
	}, nil
}

// traceCreatedContract resolves the created address from a callTracer trace.
func (s *ChainService) traceCreatedContract(ctx context.Context, client *ChainClient, txHash common.Hash) (common.Address, error) {
	var frame CallFrame
	err := client.rpc.CallContext(ctx, &frame, "debug_traceTransaction", txHash, map[string]interface{}{
		"tracer": "callTracer",
	})
	if err != nil {
		return common.Address{}, fmt.Errorf("debug_traceTransaction failed: %w", err)
	}

	return frame.CreatedContract(), nil
}
