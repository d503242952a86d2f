package service

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// VerifyMessage checks an EIP-191 personal-sign signature against the claimed
// address. Malformed or mismatching signatures return false without error.
func (s *ChainService) VerifyMessage(chainID int64, address common.Address, message string, signature []byte) (bool, error) {
	if !s.SupportsChain(chainID) {
		return false, fmt.Errorf("unsupported chain id: %d", chainID)
	}

	if len(signature) != crypto.SignatureLength {
		return false, nil
	}

	// Wallets return V as 27/28; crypto expects 0/1.
	sig := make([]byte, crypto.SignatureLength)
	copy(sig, signature)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	hash := accounts.TextHash([]byte(message))
	pubKey, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return false, nil
	}

	return crypto.PubkeyToAddress(*pubKey) == address, nil
}
