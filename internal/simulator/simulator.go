package simulator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	solanatypes "github.com/blocto/solana-go-sdk/types"

	"inf1-verifier/internal/chain"
	"inf1-verifier/internal/pkg/logger"
	"inf1-verifier/internal/pkg/types"
)

var ErrSimulation = errors.New("simulation failed")

// SimulationError 模拟执行本身报错，附带日志与交易以便排查
type SimulationError struct {
	Err  any
	Logs []string
	Tx   string
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("simulation failed: %v\ntx: %s\nlogs:\n%s", e.Err, e.Tx, strings.Join(e.Logs, "\n"))
}

func (e *SimulationError) Is(target error) bool {
	return target == ErrSimulation
}

// BackendResult 模拟后端返回值；Accounts 与请求地址一一对应，nil 表示账户不存在
type BackendResult struct {
	Err      any
	Logs     []string
	Accounts []*chain.AccountRecord
}

// Backend 模拟执行后端（RPC 节点或本地 bank）
type Backend interface {
	SimulateTransaction(ctx context.Context, tx solanatypes.Transaction, addrs []types.Pubkey) (BackendResult, error)
}

// PostAccount 模拟后的账户状态
type PostAccount struct {
	Address types.Pubkey
	Record  chain.AccountRecord
	Found   bool
}

type Result struct {
	Accounts []PostAccount
	Logs     []string
	Tx       string
}

// AccountMap 由模拟后状态构造快照，不存在的账户不放入
func (r *Result) AccountMap() chain.AccountMap {
	m := make(map[types.Pubkey]chain.AccountRecord, len(r.Accounts))
	for _, a := range r.Accounts {
		if a.Found {
			m[a.Address] = a.Record
		}
	}
	return chain.NewAccountMap(m)
}

type Simulator struct {
	backend Backend
}

func New(backend Backend) *Simulator {
	return &Simulator{backend: backend}
}

// Simulate 每次校验只调用一次后端，执行报错直接返回 SimulationError，不重试
func (s *Simulator) Simulate(
	ctx context.Context,
	payer types.Pubkey,
	ixs []solanatypes.Instruction,
	addrs []types.Pubkey,
) (*Result, error) {
	tx, err := BuildSimTx(payer, ixs...)
	if err != nil {
		return nil, err
	}
	encoded, err := EncodeTx(tx)
	if err != nil {
		return nil, fmt.Errorf("serialize sim tx: %w", err)
	}

	res, err := s.backend.SimulateTransaction(ctx, tx, addrs)
	if err != nil {
		return nil, fmt.Errorf("simulate transaction: %w", err)
	}
	if res.Err != nil {
		logger.Warnf("[Simulator] 模拟失败: err=%v, tx=%s\n%s", res.Err, encoded, strings.Join(res.Logs, "\n"))
		return nil, &SimulationError{Err: res.Err, Logs: res.Logs, Tx: encoded}
	}
	if len(res.Accounts) != len(addrs) {
		return nil, fmt.Errorf("simulation returned %d accounts, requested %d", len(res.Accounts), len(addrs))
	}
	logger.Debugf("[Simulator] 模拟成功: ixs=%d, accounts=%d\n%s", len(ixs), len(addrs), strings.Join(res.Logs, "\n"))

	out := &Result{
		Accounts: make([]PostAccount, len(addrs)),
		Logs:     res.Logs,
		Tx:       encoded,
	}
	for i, addr := range addrs {
		out.Accounts[i].Address = addr
		if rec := res.Accounts[i]; rec != nil {
			out.Accounts[i].Record = *rec
			out.Accounts[i].Found = true
		}
	}
	return out, nil
}
