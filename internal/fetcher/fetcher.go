package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/mr"

	"inf1-verifier/internal/chain"
	"inf1-verifier/internal/pkg/logger"
	"inf1-verifier/internal/pkg/types"
)

const defaultWorkers = 16

var ErrMissingAccount = errors.New("missing account")

// MissingAccountError 请求的地址在链上不存在
type MissingAccountError struct {
	Address types.Pubkey
}

func (e *MissingAccountError) Error() string {
	return fmt.Sprintf("missing account %s", e.Address)
}

func (e *MissingAccountError) Is(target error) bool {
	return target == ErrMissingAccount
}

// Fetcher 并发拉取一组账户，结果全有或全无
type Fetcher struct {
	src     chain.AccountSource
	workers int
}

func New(src chain.AccountSource, workers int) *Fetcher {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Fetcher{src: src, workers: workers}
}

type fetched struct {
	addr types.Pubkey
	rec  chain.AccountRecord
}

// Fetch 每个地址只请求一次；任一地址缺失或请求失败即取消其余请求并返回错误，不返回部分结果
func (f *Fetcher) Fetch(ctx context.Context, addrs []types.Pubkey) (chain.AccountMap, error) {
	uniq := dedup(addrs)
	if len(uniq) == 0 {
		return chain.EmptyAccountMap(), nil
	}

	start := time.Now()
	m, err := mr.MapReduce(
		func(source chan<- types.Pubkey) {
			for _, addr := range uniq {
				source <- addr
			}
		},
		func(addr types.Pubkey, writer mr.Writer[fetched], cancel func(error)) {
			rec, found, err := f.src.GetAccount(ctx, addr)
			if err != nil {
				cancel(fmt.Errorf("fetch account %s: %w", addr, err))
				return
			}
			if !found {
				cancel(&MissingAccountError{Address: addr})
				return
			}
			writer.Write(fetched{addr: addr, rec: rec})
		},
		func(pipe <-chan fetched, writer mr.Writer[map[types.Pubkey]chain.AccountRecord], cancel func(error)) {
			out := make(map[types.Pubkey]chain.AccountRecord, len(uniq))
			for r := range pipe {
				out[r.addr] = r.rec
			}
			writer.Write(out)
		},
		mr.WithContext(ctx),
		mr.WithWorkers(f.workers),
	)
	if err != nil {
		logger.Warnf("[AccountFetcher] 拉取失败: count=%d, err=%v", len(uniq), err)
		return chain.AccountMap{}, err
	}
	if len(m) != len(uniq) {
		return chain.AccountMap{}, fmt.Errorf("fetched %d of %d accounts", len(m), len(uniq))
	}

	logger.Debugf("[AccountFetcher] 拉取完成: count=%d, 耗时=%v", len(uniq), time.Since(start))
	return chain.NewAccountMap(m), nil
}

func dedup(addrs []types.Pubkey) []types.Pubkey {
	seen := make(map[types.Pubkey]struct{}, len(addrs))
	out := make([]types.Pubkey, 0, len(addrs))
	for _, a := range addrs {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}
