package handler

import (
	"context"
	"time"

	"github.com/ASISBusiness/ecosystem/src/domain"
	"github.com/ASISBusiness/ecosystem/src/service"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ContractHandler struct {
	verificationService *service.VerificationService
}

func NewContractHandler(verificationService *service.VerificationService) *ContractHandler {
	return &ContractHandler{
		verificationService: verificationService,
	}
}

func (h *ContractHandler) logger(ctx context.Context) *zerolog.Logger {
	l := zerolog.Ctx(ctx).With().Str("handler", "contract").Logger()
	return &l
}

// RegisterContractRequest represents the request payload for contract registration
type RegisterContractRequest struct {
	AppID            string `json:"appId" binding:"required,uuid"`
	ChainID          int64  `json:"chainId" binding:"required"`
	ContractAddress  string `json:"contractAddress" binding:"required,eth_addr"`
	DeployerAddress  string `json:"deployerAddress" binding:"required,eth_addr"`
	DeploymentTxHash string `json:"deploymentTxHash" binding:"required,len=66,hexadecimal"`
}

// ChallengeResponse represents an issued ownership challenge
type ChallengeResponse struct {
	ChallengeID string    `json:"challengeId"`
	ContractID  string    `json:"contractId"`
	Address     string    `json:"address"`
	ChainID     int64     `json:"chainId"`
	State       string    `json:"state"`
	Message     string    `json:"message,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

func toChallengeResponse(challenge *domain.Challenge, message string) ChallengeResponse {
	return ChallengeResponse{
		ChallengeID: challenge.ID.String(),
		ContractID:  challenge.ContractID.String(),
		Address:     challenge.Address,
		ChainID:     challenge.ChainID,
		State:       string(challenge.State),
		Message:     message,
		ExpiresAt:   challenge.ExpiresAt(),
	}
}

// CompleteVerificationRequest carries the hex-encoded deployer signature
type CompleteVerificationRequest struct {
	Signature string `json:"signature" binding:"required,hexadecimal"`
}

// RegisterContract godoc
// @Summary Register a deployed contract
// @Description Validate a claimed deployment against on-chain data and register the contract
// @Tags contracts
// @Accept json
// @Produce json
// @Param request body RegisterContractRequest true "Contract registration request"
// @Success 201 {object} StandardResponse{data=domain.Contract}
// @Failure 400 {object} StandardResponse
// @Failure 401 {object} StandardResponse
// @Failure 500 {object} StandardResponse
// @Router /contracts [post]
func (h *ContractHandler) RegisterContract(c *gin.Context) {
	logger := h.logger(c.Request.Context()).With().Str("func", "RegisterContract").Logger()

	entityID, err := entityIDFromContext(c)
	if err != nil {
		respondWithError(c, domain.NewError(domain.ErrorCodeAuthNotAuthenticated, err, domain.WithMsg("Missing entity id")))
		return
	}

	var req RegisterContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error().Err(err).Msg("invalid request payload")
		respondWithError(c, domain.NewError(domain.ErrorCodeParameterInvalid, err, domain.WithMsg("Invalid request payload")))
		return
	}

	appID, err := uuid.Parse(req.AppID)
	if err != nil {
		respondWithError(c, domain.NewError(domain.ErrorCodeParameterInvalid, err, domain.WithMsg("Invalid app id")))
		return
	}

	contract, err := h.verificationService.RegisterContract(c.Request.Context(), entityID, service.RegisterContractInput{
		AppID:            appID,
		ChainID:          req.ChainID,
		ContractAddress:  req.ContractAddress,
		DeployerAddress:  req.DeployerAddress,
		DeploymentTxHash: req.DeploymentTxHash,
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to register contract")
		respondWithError(c, err)
		return
	}

	logger.Info().
		Str("contract_id", contract.ID.String()).
		Str("contract_address", contract.ContractAddress).
		Int64("chain_id", contract.ChainID).
		Str("state", string(contract.State)).
		Msg("contract registered")

	respondWithSuccessAndStatus(c, 201, contract)
}

// ListContracts godoc
// @Summary List registered contracts for an app
// @Tags contracts
// @Produce json
// @Param appId query string true "App ID"
// @Success 200 {object} StandardResponse{data=[]domain.Contract}
// @Failure 400 {object} StandardResponse
// @Failure 401 {object} StandardResponse
// @Router /contracts [get]
func (h *ContractHandler) ListContracts(c *gin.Context) {
	logger := h.logger(c.Request.Context()).With().Str("func", "ListContracts").Logger()

	entityID, err := entityIDFromContext(c)
	if err != nil {
		respondWithError(c, domain.NewError(domain.ErrorCodeAuthNotAuthenticated, err, domain.WithMsg("Missing entity id")))
		return
	}

	appID, err := uuid.Parse(c.Query("appId"))
	if err != nil {
		respondWithError(c, domain.NewError(domain.ErrorCodeParameterInvalid, err, domain.WithMsg("Invalid app id")))
		return
	}

	contracts, err := h.verificationService.ListContracts(c.Request.Context(), entityID, appID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list contracts")
		respondWithError(c, err)
		return
	}

	respondWithSuccess(c, contracts)
}

// GetContract godoc
// @Summary Get a registered contract
// @Tags contracts
// @Produce json
// @Param contractId path string true "Contract ID"
// @Success 200 {object} StandardResponse{data=domain.Contract}
// @Failure 400 {object} StandardResponse
// @Failure 401 {object} StandardResponse
// @Router /contracts/{contractId} [get]
func (h *ContractHandler) GetContract(c *gin.Context) {
	logger := h.logger(c.Request.Context()).With().Str("func", "GetContract").Logger()

	entityID, err := entityIDFromContext(c)
	if err != nil {
		respondWithError(c, domain.NewError(domain.ErrorCodeAuthNotAuthenticated, err, domain.WithMsg("Missing entity id")))
		return
	}

	contractID, err := uuid.Parse(c.Param("contractId"))
	if err != nil {
		respondWithError(c, domain.NewError(domain.ErrorCodeParameterInvalid, err, domain.WithMsg("Invalid contract id")))
		return
	}

	contract, err := h.verificationService.GetContract(c.Request.Context(), entityID, contractID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to get contract")
		respondWithError(c, err)
		return
	}

	respondWithSuccess(c, contract)
}

// DeleteContract godoc
// @Summary Soft-delete a registered contract
// @Tags contracts
// @Produce json
// @Param contractId path string true "Contract ID"
// @Success 200 {object} StandardResponse
// @Failure 400 {object} StandardResponse
// @Failure 401 {object} StandardResponse
// @Router /contracts/{contractId} [delete]
func (h *ContractHandler) DeleteContract(c *gin.Context) {
	logger := h.logger(c.Request.Context()).With().Str("func", "DeleteContract").Logger()

	entityID, err := entityIDFromContext(c)
	if err != nil {
		respondWithError(c, domain.NewError(domain.ErrorCodeAuthNotAuthenticated, err, domain.WithMsg("Missing entity id")))
		return
	}

	contractID, err := uuid.Parse(c.Param("contractId"))
	if err != nil {
		respondWithError(c, domain.NewError(domain.ErrorCodeParameterInvalid, err, domain.WithMsg("Invalid contract id")))
		return
	}

	if err := h.verificationService.DeleteContract(c.Request.Context(), entityID, contractID); err != nil {
		logger.Error().Err(err).Msg("failed to delete contract")
		respondWithError(c, err)
		return
	}

	logger.Info().
		Str("contract_id", contractID.String()).
		Msg("contract deleted")

	respondWithSuccess(c, gin.H{"contractId": contractID.String()})
}

// StartVerification godoc
// @Summary Start ownership verification for a contract
// @Description Issue (or re-issue) the signing challenge for the contract's deployer address
// @Tags verification
// @Produce json
// @Param contractId path string true "Contract ID"
// @Success 201 {object} StandardResponse{data=ChallengeResponse}
// @Failure 400 {object} StandardResponse
// @Failure 401 {object} StandardResponse
// @Router /contracts/{contractId}/verification [post]
func (h *ContractHandler) StartVerification(c *gin.Context) {
	logger := h.logger(c.Request.Context()).With().Str("func", "StartVerification").Logger()

	entityID, err := entityIDFromContext(c)
	if err != nil {
		respondWithError(c, domain.NewError(domain.ErrorCodeAuthNotAuthenticated, err, domain.WithMsg("Missing entity id")))
		return
	}

	contractID, err := uuid.Parse(c.Param("contractId"))
	if err != nil {
		respondWithError(c, domain.NewError(domain.ErrorCodeParameterInvalid, err, domain.WithMsg("Invalid contract id")))
		return
	}

	challenge, message, err := h.verificationService.StartVerification(c.Request.Context(), entityID, contractID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to start verification")
		respondWithError(c, err)
		return
	}

	logger.Info().
		Str("challenge_id", challenge.ID.String()).
		Str("contract_id", contractID.String()).
		Msg("verification challenge issued")

	respondWithSuccessAndStatus(c, 201, toChallengeResponse(challenge, message))
}

// CompleteVerification godoc
// @Summary Complete ownership verification with a signed challenge
// @Description Verify the deployer signature and mark the contract VERIFIED
// @Tags verification
// @Accept json
// @Produce json
// @Param challengeId path string true "Challenge ID"
// @Param request body CompleteVerificationRequest true "Signed challenge"
// @Success 200 {object} StandardResponse{data=ChallengeResponse}
// @Failure 400 {object} StandardResponse
// @Failure 401 {object} StandardResponse
// @Failure 500 {object} StandardResponse
// @Router /contracts/verification/{challengeId} [post]
func (h *ContractHandler) CompleteVerification(c *gin.Context) {
	logger := h.logger(c.Request.Context()).With().Str("func", "CompleteVerification").Logger()

	entityID, err := entityIDFromContext(c)
	if err != nil {
		respondWithError(c, domain.NewError(domain.ErrorCodeAuthNotAuthenticated, err, domain.WithMsg("Missing entity id")))
		return
	}

	challengeID, err := uuid.Parse(c.Param("challengeId"))
	if err != nil {
		respondWithError(c, domain.NewError(domain.ErrorCodeParameterInvalid, err, domain.WithMsg("Invalid challenge id")))
		return
	}

	var req CompleteVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error().Err(err).Msg("invalid request payload")
		respondWithError(c, domain.NewError(domain.ErrorCodeParameterInvalid, err, domain.WithMsg("Invalid request payload")))
		return
	}

	signature, err := hexutil.Decode(req.Signature)
	if err != nil {
		respondWithError(c, domain.NewError(domain.ErrorCodeParameterInvalid, err, domain.WithMsg("Malformed signature")))
		return
	}

	challenge, err := h.verificationService.CompleteVerification(c.Request.Context(), entityID, challengeID, signature)
	if err != nil {
		logger.Error().Err(err).Msg("failed to complete verification")
		respondWithError(c, err)
		return
	}

	logger.Info().
		Str("challenge_id", challengeID.String()).
		Str("contract_id", challenge.ContractID.String()).
		Msg("verification completed")

	respondWithSuccess(c, toChallengeResponse(challenge, ""))
}
