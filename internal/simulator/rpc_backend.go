package simulator

import (
	"context"
	"time"

	"github.com/blocto/solana-go-sdk/client"
	solanatypes "github.com/blocto/solana-go-sdk/types"

	"inf1-verifier/internal/chain"
	"inf1-verifier/internal/pkg/types"
)

// RpcBackend 通过 simulateTransaction RPC 执行模拟
type RpcBackend struct {
	c       *client.Client
	timeout time.Duration
}

func NewRpcBackend(c *client.Client, timeout time.Duration) *RpcBackend {
	return &RpcBackend{c: c, timeout: timeout}
}

func (b *RpcBackend) SimulateTransaction(ctx context.Context, tx solanatypes.Transaction, addrs []types.Pubkey) (BackendResult, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	res, err := b.c.SimulateTransactionWithConfig(ctx, tx, client.SimulateTransactionConfig{
		SigVerify:              false,
		ReplaceRecentBlockhash: true,
		Addresses:              types.PubkeysToBase58(addrs),
	})
	if err != nil {
		return BackendResult{}, err
	}

	out := BackendResult{
		Err:      res.Err,
		Logs:     res.Logs,
		Accounts: make([]*chain.AccountRecord, len(res.Accounts)),
	}
	for i, info := range res.Accounts {
		if info == nil {
			continue
		}
		rec := chain.FromAccountInfo(*info)
		out.Accounts[i] = &rec
	}
	return out, nil
}
