package service

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestChallengeMessage(t *testing.T) {
	deployer := common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")

	message := ChallengeMessage(deployer)

	assert.Contains(t, message, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	assert.Contains(t, message, "confirm ownership")

	// Same deployer always produces the same message
	assert.Equal(t, message, ChallengeMessage(deployer))

	// Lowercase input normalizes to the same checksummed message
	lower := common.HexToAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	assert.Equal(t, message, ChallengeMessage(lower))

	// Different deployers produce different messages
	other := common.HexToAddress("0x1234567890123456789012345678901234567890")
	assert.NotEqual(t, message, ChallengeMessage(other))
}
