package service

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ChallengeMessage returns the text a deployer signs to prove control of the
// address. It is a pure function of the deployer address, so re-issuing a
// challenge never invalidates a signature produced against an earlier one.
func ChallengeMessage(deployer common.Address) string {
	return fmt.Sprintf(
		"By signing this message, you confirm ownership of the deployer address %s and authorize its use for contract verification.",
		deployer.Hex(),
	)
}
