package service

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// CallFrame mirrors the callTracer output of debug_traceTransaction. Only the
// fields needed for CREATE2 resolution are decoded.
type CallFrame struct {
	Type  string         `json:"type"`
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Calls []CallFrame    `json:"calls"`
}

// CreatedContract returns the address created by the single CREATE2 internal
// call of the frame, or the zero address when the trace shape does not match.
// Factories producing multiple internal calls are intentionally unresolved.
func (f *CallFrame) CreatedContract() common.Address {
	if len(f.Calls) != 1 {
		return common.Address{}
	}
	if f.Calls[0].Type != "CREATE2" {
		return common.Address{}
	}
	return f.Calls[0].To
}

func blockTime(unix uint64) time.Time {
	return time.Unix(int64(unix), 0).UTC()
}
