package enginetest

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/blocto/solana-go-sdk/program/token"

	"inf1-verifier/internal/codec"
	"inf1-verifier/internal/consts"
	"inf1-verifier/internal/localsim"
	"inf1-verifier/internal/pkg/types"
)

var ErrNotRepaid = errors.New("rebalance not repaid")

// Program 与 Engine 构造的指令配套的本地程序，按指令里的数量执行 CPI
type Program struct{}

func (Program) Process(ic *localsim.InvokeContext) error {
	if len(ic.Data) < 25 {
		return localsim.ErrInvalidInstruction
	}
	inp := binary.LittleEndian.Uint64(ic.Data[1:9])
	out := binary.LittleEndian.Uint64(ic.Data[9:17])
	fee := binary.LittleEndian.Uint64(ic.Data[17:25])

	switch ic.Data[0] {
	case ixSwap, ixAddLiquidity, ixRemoveLiquidity:
		return trade(ic, ic.Data[0], inp, out, fee)
	case ixRebalanceStart:
		ic.Log("Instruction: StartRebalance")
		return rebalanceStart(ic, out)
	case ixRebalanceEnd:
		ic.Log("Instruction: EndRebalance")
		return rebalanceEnd(ic, inp)
	}
	return fmt.Errorf("%w: unknown inf instruction %d", localsim.ErrInvalidInstruction, ic.Data[0])
}

func keys(ic *localsim.InvokeContext, n int) ([]types.Pubkey, error) {
	if _, err := ic.Account(n - 1); err != nil {
		return nil, err
	}
	out := make([]types.Pubkey, n)
	for i := range out {
		out[i] = ic.Accounts[i].Pubkey
	}
	return out, nil
}

// accounts = [signer, inp token acc, out token acc, inp pool, out pool, fee accumulator, pool state, token program, (add liquidity) inp mint]
func trade(ic *localsim.InvokeContext, kind uint8, inp, out, fee uint64) error {
	k, err := keys(ic, 8)
	if err != nil {
		return err
	}
	signer, inpAcc, outAcc, inpPool, outPool, accum := k[0], k[1], k[2], k[3], k[4], k[5]

	// inp 腿：remove liquidity 销毁 LP，否则转入 reserves
	if kind == ixRemoveLiquidity {
		ic.Log("Instruction: RemoveLiquidity")
		err = ic.Invoke(token.Burn(token.BurnParam{Account: inpAcc.ToSdk(), Mint: inpPool.ToSdk(), Auth: signer.ToSdk(), Amount: inp}))
	} else {
		err = ic.Invoke(token.Transfer(token.TransferParam{From: inpAcc.ToSdk(), To: inpPool.ToSdk(), Auth: signer.ToSdk(), Amount: inp}))
	}
	if err != nil {
		return err
	}

	// out 腿：add liquidity 增发 LP，否则从 reserves 转出
	if kind == ixAddLiquidity {
		ic.Log("Instruction: AddLiquidity")
		err = ic.Invoke(token.MintTo(token.MintToParam{Mint: outPool.ToSdk(), To: outAcc.ToSdk(), Auth: consts.PoolState.ToSdk(), Amount: out}), consts.PoolState)
	} else {
		if kind == ixSwap {
			ic.Log("Instruction: Swap")
		}
		err = ic.Invoke(token.Transfer(token.TransferParam{From: outPool.ToSdk(), To: outAcc.ToSdk(), Auth: consts.PoolState.ToSdk(), Amount: out}), consts.PoolState)
	}
	if err != nil {
		return err
	}

	if fee == 0 {
		return nil
	}
	if kind == ixAddLiquidity {
		// 测试世界里 LST mint 的 authority 是 pool state，inp 侧协议费直接增发，inp reserves 只记入 inp
		inpMint, err := ic.Account(8)
		if err != nil {
			return err
		}
		return ic.Invoke(token.MintTo(token.MintToParam{Mint: inpMint.Pubkey.ToSdk(), To: accum.ToSdk(), Auth: consts.PoolState.ToSdk(), Amount: fee}), consts.PoolState)
	}
	return ic.Invoke(token.Transfer(token.TransferParam{From: outPool.ToSdk(), To: accum.ToSdk(), Auth: consts.PoolState.ToSdk(), Amount: fee}), consts.PoolState)
}

// accounts = [out reserves, withdraw to, pool state, token program]
func rebalanceStart(ic *localsim.InvokeContext, out uint64) error {
	k, err := keys(ic, 4)
	if err != nil {
		return err
	}
	return ic.Invoke(token.Transfer(token.TransferParam{From: k[0].ToSdk(), To: k[1].ToSdk(), Auth: consts.PoolState.ToSdk(), Amount: out}), consts.PoolState)
}

// accounts = [inp reserves]
func rebalanceEnd(ic *localsim.InvokeContext, minBalance uint64) error {
	k, err := keys(ic, 1)
	if err != nil {
		return err
	}
	rec, ok := ic.Load(k[0])
	if !ok {
		return fmt.Errorf("%w: %s", localsim.ErrNotEnoughAccountKeys, k[0])
	}
	bal, err := codec.TokenAccountBalance(rec.Data)
	if err != nil {
		return err
	}
	if bal < minBalance {
		return fmt.Errorf("%w: balance %d < %d", ErrNotRepaid, bal, minBalance)
	}
	return nil
}
