package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Deployment is the chain-side view of a deployment transaction: the sender
// recovered from the transaction, the created contract address (zero when the
// transaction did not create a resolvable contract) and the timestamp of the
// containing block.
type Deployment struct {
	TxHash          common.Hash
	Deployer        common.Address
	ContractAddress common.Address
	BlockHash       common.Hash
	BlockTime       time.Time
}

// CreatedContract reports whether a contract address could be resolved from
// the receipt or the CREATE2 trace fallback.
func (d *Deployment) CreatedContract() bool {
	return d.ContractAddress != (common.Address{})
}
