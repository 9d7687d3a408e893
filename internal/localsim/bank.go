package localsim

import (
	"context"
	"errors"
	"fmt"

	solanatypes "github.com/blocto/solana-go-sdk/types"

	"inf1-verifier/internal/chain"
	"inf1-verifier/internal/consts"
	"inf1-verifier/internal/pkg/types"
	"inf1-verifier/internal/simulator"
)

const maxInvokeDepth = 4

var (
	ErrNotEnoughAccountKeys = errors.New("not enough account keys")
	ErrReadonlyModified     = errors.New("instruction modified data of a read-only account")
	ErrMissingSignature     = errors.New("missing required signature")
	ErrUnknownProgram       = errors.New("program does not exist")
	ErrCallDepth            = errors.New("max invoke depth reached")
	ErrInvalidSeeds         = errors.New("could not create program address with signer seeds")
)

// Program 本地执行的链上程序
type Program interface {
	Process(ic *InvokeContext) error
}

type ProgramFunc func(ic *InvokeContext) error

func (f ProgramFunc) Process(ic *InvokeContext) error {
	return f(ic)
}

// Bank 在不可变的 AccountMap 上模拟交易，执行结果不会写回 state
// 同时实现 chain.AccountSource 与 simulator.Backend，可替代本地 validator
type Bank struct {
	state    chain.AccountMap
	programs map[types.Pubkey]Program
}

func NewBank(state chain.AccountMap) *Bank {
	b := &Bank{
		state:    state,
		programs: make(map[types.Pubkey]Program),
	}
	b.Register(consts.TokenProgram, TokenProgram{})
	return b
}

// Register 注册程序，需在模拟开始前完成
func (b *Bank) Register(id types.Pubkey, p Program) {
	b.programs[id] = p
}

func (b *Bank) State() chain.AccountMap {
	return b.state
}

func (b *Bank) GetAccount(ctx context.Context, addr types.Pubkey) (chain.AccountRecord, bool, error) {
	rec, ok := b.state.Get(addr)
	return rec, ok, nil
}

// SimulateTransaction 逐条执行指令；任一指令失败则丢弃所有写入，返回与 RPC 一致的 InstructionError
func (b *Bank) SimulateTransaction(ctx context.Context, tx solanatypes.Transaction, addrs []types.Pubkey) (simulator.BackendResult, error) {
	if err := ctx.Err(); err != nil {
		return simulator.BackendResult{}, err
	}
	txs := &txState{bank: b, writes: make(map[types.Pubkey]chain.AccountRecord)}
	msg := tx.Message

	for idx, cix := range msg.Instructions {
		if cix.ProgramIDIndex >= len(msg.Accounts) {
			return simulator.BackendResult{}, fmt.Errorf("instruction %d: program index %d out of range", idx, cix.ProgramIDIndex)
		}
		metas := make([]AccountMeta, 0, len(cix.Accounts))
		for _, ai := range cix.Accounts {
			if ai >= len(msg.Accounts) {
				return simulator.BackendResult{}, fmt.Errorf("instruction %d: account index %d out of range", idx, ai)
			}
			metas = append(metas, AccountMeta{
				Pubkey:     types.PubkeyFromSdk(msg.Accounts[ai]),
				IsSigner:   isSigner(msg, ai),
				IsWritable: isWritable(msg, ai),
			})
		}
		programID := types.PubkeyFromSdk(msg.Accounts[cix.ProgramIDIndex])
		if err := txs.invoke(programID, metas, cix.Data, 1); err != nil {
			return simulator.BackendResult{
				Err:  map[string]any{"InstructionError": []any{idx, err.Error()}},
				Logs: txs.logs,
			}, nil
		}
	}

	out := simulator.BackendResult{Logs: txs.logs, Accounts: make([]*chain.AccountRecord, len(addrs))}
	for i, addr := range addrs {
		if rec, ok := txs.load(addr); ok {
			out.Accounts[i] = &rec
		}
	}
	return out, nil
}

func isSigner(msg solanatypes.Message, i int) bool {
	return i < int(msg.Header.NumRequireSignatures)
}

func isWritable(msg solanatypes.Message, i int) bool {
	h := msg.Header
	if i < int(h.NumRequireSignatures) {
		return i < int(h.NumRequireSignatures)-int(h.NumReadonlySignedAccounts)
	}
	return i < len(msg.Accounts)-int(h.NumReadonlyUnsignedAccounts)
}

// txState 单笔交易的写入 overlay 与日志
type txState struct {
	bank   *Bank
	writes map[types.Pubkey]chain.AccountRecord
	logs   []string
}

func (t *txState) load(addr types.Pubkey) (chain.AccountRecord, bool) {
	if rec, ok := t.writes[addr]; ok {
		return rec.Clone(), true
	}
	return t.bank.state.Get(addr)
}

func (t *txState) invoke(programID types.Pubkey, metas []AccountMeta, data []byte, depth int) error {
	t.logs = append(t.logs, fmt.Sprintf("Program %s invoke [%d]", programID, depth))
	if depth > maxInvokeDepth {
		t.logs = append(t.logs, fmt.Sprintf("Program %s failed: %v", programID, ErrCallDepth))
		return ErrCallDepth
	}
	p, ok := t.bank.programs[programID]
	if !ok {
		t.logs = append(t.logs, fmt.Sprintf("Program %s failed: %v", programID, ErrUnknownProgram))
		return ErrUnknownProgram
	}

	ic := &InvokeContext{ProgramID: programID, Accounts: metas, Data: data, tx: t, depth: depth}
	if err := p.Process(ic); err != nil {
		t.logs = append(t.logs, fmt.Sprintf("Program %s failed: %v", programID, err))
		return err
	}
	t.logs = append(t.logs, fmt.Sprintf("Program %s success", programID))
	return nil
}
