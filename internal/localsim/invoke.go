package localsim

import (
	"fmt"

	solanatypes "github.com/blocto/solana-go-sdk/types"

	"inf1-verifier/internal/chain"
	"inf1-verifier/internal/pkg/types"
	"inf1-verifier/internal/tools"
)

type AccountMeta struct {
	Pubkey     types.Pubkey
	IsSigner   bool
	IsWritable bool
}

// InvokeContext 单条指令（或 CPI）的执行上下文
type InvokeContext struct {
	ProgramID types.Pubkey
	Accounts  []AccountMeta
	Data      []byte

	tx    *txState
	depth int
}

func (ic *InvokeContext) Account(i int) (AccountMeta, error) {
	if i >= len(ic.Accounts) {
		return AccountMeta{}, fmt.Errorf("%w: want index %d, have %d", ErrNotEnoughAccountKeys, i, len(ic.Accounts))
	}
	return ic.Accounts[i], nil
}

func (ic *InvokeContext) Load(addr types.Pubkey) (chain.AccountRecord, bool) {
	return ic.tx.load(addr)
}

// Store 只允许写入本指令中标记为 writable 的账户
func (ic *InvokeContext) Store(addr types.Pubkey, rec chain.AccountRecord) error {
	if !ic.writable(addr) {
		return fmt.Errorf("%w: %s", ErrReadonlyModified, addr)
	}
	ic.tx.writes[addr] = rec.Clone()
	return nil
}

func (ic *InvokeContext) IsSigner(addr types.Pubkey) bool {
	for _, m := range ic.Accounts {
		if m.Pubkey == addr && m.IsSigner {
			return true
		}
	}
	return false
}

func (ic *InvokeContext) writable(addr types.Pubkey) bool {
	for _, m := range ic.Accounts {
		if m.Pubkey == addr && m.IsWritable {
			return true
		}
	}
	return false
}

func (ic *InvokeContext) Log(format string, args ...interface{}) {
	ic.tx.logs = append(ic.tx.logs, "Program log: "+fmt.Sprintf(format, args...))
}

// Invoke CPI：签名权限继承自调用方，pdaSigners 为当前程序代签的 PDA
// 在曲线上的地址有私钥，程序不能代签
func (ic *InvokeContext) Invoke(ix solanatypes.Instruction, pdaSigners ...types.Pubkey) error {
	for _, pk := range pdaSigners {
		if tools.IsOnCurve(pk) {
			return fmt.Errorf("%w: %s", ErrInvalidSeeds, pk)
		}
	}
	metas := make([]AccountMeta, 0, len(ix.Accounts))
	for _, a := range ix.Accounts {
		pk := types.PubkeyFromSdk(a.PubKey)
		if a.IsSigner && !ic.IsSigner(pk) && !contains(pdaSigners, pk) {
			return fmt.Errorf("%w: %s", ErrMissingSignature, pk)
		}
		if a.IsWritable && !ic.writable(pk) {
			return fmt.Errorf("%w: %s", ErrReadonlyModified, pk)
		}
		metas = append(metas, AccountMeta{Pubkey: pk, IsSigner: a.IsSigner, IsWritable: a.IsWritable})
	}
	return ic.tx.invoke(types.PubkeyFromSdk(ix.ProgramID), metas, ix.Data, ic.depth+1)
}

func contains(keys []types.Pubkey, k types.Pubkey) bool {
	for _, x := range keys {
		if x == k {
			return true
		}
	}
	return false
}
