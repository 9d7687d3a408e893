package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/blocto/solana-go-sdk/client"

	"inf1-verifier/internal/pkg/types"
)

// RpcSource 基于 Solana JSON-RPC getAccountInfo 的账户源
type RpcSource struct {
	c       *client.Client
	timeout time.Duration // 单次请求超时，0 表示不限制
}

func NewRpcSource(c *client.Client, timeout time.Duration) *RpcSource {
	return &RpcSource{c: c, timeout: timeout}
}

func (s *RpcSource) GetAccount(ctx context.Context, addr types.Pubkey) (AccountRecord, bool, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	info, err := s.c.GetAccountInfo(ctx, addr.String())
	if err != nil {
		return AccountRecord{}, false, fmt.Errorf("getAccountInfo %s: %w", addr, err)
	}
	// sdk 对不存在的账户返回零值 AccountInfo；存活账户 lamports 必然大于 0
	if info.Lamports == 0 && len(info.Data) == 0 {
		return AccountRecord{}, false, nil
	}
	return FromAccountInfo(info), true, nil
}

func FromAccountInfo(info client.AccountInfo) AccountRecord {
	return AccountRecord{
		Data:       info.Data,
		Owner:      types.PubkeyFromSdk(info.Owner),
		Lamports:   info.Lamports,
		Executable: info.Executable,
		RentEpoch:  info.RentEpoch,
	}
}
