package verifier

import (
	"context"
	"fmt"

	"github.com/blocto/solana-go-sdk/program/token"
	solanatypes "github.com/blocto/solana-go-sdk/types"
	"github.com/holiman/uint256"

	"inf1-verifier/internal/chain"
	"inf1-verifier/internal/codec"
	"inf1-verifier/internal/engine"
	"inf1-verifier/internal/fetcher"
	"inf1-verifier/internal/pda"
	"inf1-verifier/internal/pkg/logger"
	"inf1-verifier/internal/pkg/types"
	"inf1-verifier/internal/simulator"
)

// AccountFetcher 拉取模拟前状态
type AccountFetcher interface {
	Fetch(ctx context.Context, addrs []types.Pubkey) (chain.AccountMap, error)
}

// TxSimulator 模拟交易并返回指定地址的模拟后状态
type TxSimulator interface {
	Simulate(ctx context.Context, payer types.Pubkey, ixs []solanatypes.Instruction, addrs []types.Pubkey) (*simulator.Result, error)
}

// Donor rebalance 时注资的 token 账户及其 owner
type Donor struct {
	TokenAcc types.Pubkey
	Owner    types.Pubkey
}

type Verifier struct {
	fetcher AccountFetcher
	sim     TxSimulator
	addrs   pda.Addresses
	lpMint  types.Pubkey
}

func New(f AccountFetcher, sim TxSimulator, deriver pda.Deriver, lpMint types.Pubkey) *Verifier {
	return &Verifier{
		fetcher: f,
		sim:     sim,
		addrs:   pda.Addresses{Deriver: deriver},
		lpMint:  lpMint,
	}
}

// 账户读取方式：token 余额或 mint supply
type scalarKind uint8

const (
	balanceOf scalarKind = iota
	supplyOf
)

type slot struct {
	quantity string
	addr     types.Pubkey
	kind     scalarKind
	expected *uint256.Int
}

func readScalar(data []byte, kind scalarKind) (uint64, error) {
	if kind == supplyOf {
		return codec.MintSupply(data)
	}
	return codec.TokenAccountBalance(data)
}

func poolSlot(side string, addr types.Pubkey, isLpMint bool, lpDelta, reservesDelta *uint256.Int) slot {
	if isLpMint {
		return slot{quantity: "lp mint supply (" + side + ")", addr: addr, kind: supplyOf, expected: lpDelta}
	}
	return slot{quantity: side + " pool reserves balance", addr: addr, kind: balanceOf, expected: reservesDelta}
}

// VerifyTrade 模拟 ix 并断言各账户变化与报价完全一致
// 地址顺序：inp token acc, out token acc, 手续费累加账户, inp 池账户, out 池账户
func (v *Verifier) VerifyTrade(ctx context.Context, quote engine.Quote, args engine.TradeArgs, ix engine.Instruction) (*Report, error) {
	pfAccum, err := v.addrs.ProtocolFeeAccumulator(quote.FeeMint.Of(quote.Mints))
	if err != nil {
		return nil, fmt.Errorf("derive protocol fee accumulator: %w", err)
	}
	inpPool, inpIsLp, err := v.addrs.PoolAccount(quote.Mints.Inp, v.lpMint)
	if err != nil {
		return nil, fmt.Errorf("derive inp pool account: %w", err)
	}
	outPool, outIsLp, err := v.addrs.PoolAccount(quote.Mints.Out, v.lpMint)
	if err != nil {
		return nil, fmt.Errorf("derive out pool account: %w", err)
	}

	slots := []slot{
		{quantity: "inp token account balance", addr: args.TokenAccs.Inp, kind: balanceOf, expected: loss(quote.Inp)},
		{quantity: "out token account balance", addr: args.TokenAccs.Out, kind: balanceOf, expected: gain(quote.Out)},
		{quantity: "protocol fee accumulator balance", addr: pfAccum, kind: balanceOf, expected: gain(quote.ProtocolFee)},
		// remove liquidity 时 LP supply 减少 inp，否则 inp reserves 增加 inp
		poolSlot("inp", inpPool, inpIsLp, loss(quote.Inp), gain(quote.Inp)),
		// add liquidity 时 LP supply 只增加 out；否则 out reserves 同时支付 out 与协议手续费
		poolSlot("out", outPool, outIsLp, gain(quote.Out), loss(quote.Out, quote.ProtocolFee)),
	}

	report, err := v.run(ctx, KindTrade, args.Signer, []solanatypes.Instruction{ix}, slots)
	if err != nil {
		return nil, err
	}
	return report, v.finish(report, quote.Mints)
}

// VerifyRebalance 在 start/end 之间插入 donor -> inp reserves 的转账，再断言四个账户的变化
// 地址顺序：donor token acc, withdrawTo, inp reserves, out reserves
func (v *Verifier) VerifyRebalance(
	ctx context.Context,
	quote engine.RebalanceQuote,
	args engine.RebalanceArgs,
	ixs engine.RebalanceIxs,
	donor Donor,
) (*Report, error) {
	inpReserves, err := v.addrs.PoolReserves(quote.Mints.Inp)
	if err != nil {
		return nil, fmt.Errorf("derive inp pool reserves: %w", err)
	}
	outReserves, err := v.addrs.PoolReserves(quote.Mints.Out)
	if err != nil {
		return nil, fmt.Errorf("derive out pool reserves: %w", err)
	}

	slots := []slot{
		{quantity: "donor token account balance", addr: donor.TokenAcc, kind: balanceOf, expected: loss(quote.Inp)},
		{quantity: "withdraw-to balance", addr: args.WithdrawTo, kind: balanceOf, expected: gain(quote.Out)},
		{quantity: "inp pool reserves balance", addr: inpReserves, kind: balanceOf, expected: gain(quote.Inp)},
		{quantity: "out pool reserves balance", addr: outReserves, kind: balanceOf, expected: loss(quote.Out)},
	}
	donate := token.Transfer(token.TransferParam{
		From:   donor.TokenAcc.ToSdk(),
		To:     inpReserves.ToSdk(),
		Auth:   donor.Owner.ToSdk(),
		Amount: quote.Inp,
	})

	report, err := v.run(ctx, KindRebalance, donor.Owner, []solanatypes.Instruction{ixs.Start, donate, ixs.End}, slots)
	if err != nil {
		return nil, err
	}
	return report, v.finish(report, quote.Mints)
}

func (v *Verifier) run(
	ctx context.Context,
	kind string,
	payer types.Pubkey,
	ixs []solanatypes.Instruction,
	slots []slot,
) (*Report, error) {
	addrs := make([]types.Pubkey, len(slots))
	for i, s := range slots {
		addrs[i] = s.addr
	}

	pre, err := v.fetcher.Fetch(ctx, addrs)
	if err != nil {
		return nil, err
	}
	preVals := make([]uint64, len(slots))
	for i, s := range slots {
		if preVals[i], err = readScalar(pre.MustGet(s.addr).Data, s.kind); err != nil {
			return nil, fmt.Errorf("pre-state %s (%s): %w", s.quantity, s.addr, err)
		}
	}

	res, err := v.sim.Simulate(ctx, payer, ixs, addrs)
	if err != nil {
		return nil, err
	}

	report := &Report{Kind: kind, Logs: res.Logs, Tx: res.Tx, Checks: make([]Check, len(slots))}
	for i, s := range slots {
		acc := res.Accounts[i]
		if !acc.Found {
			return nil, &fetcher.MissingAccountError{Address: s.addr}
		}
		post, err := readScalar(acc.Record.Data, s.kind)
		if err != nil {
			return nil, fmt.Errorf("post-state %s (%s): %w", s.quantity, s.addr, err)
		}
		report.Checks[i] = Check{
			Quantity: s.quantity,
			Address:  s.addr,
			Pre:      preVals[i],
			Post:     post,
			Expected: s.expected,
			Actual:   delta(preVals[i], post),
		}
	}
	return report, nil
}

func (v *Verifier) finish(report *Report, mints engine.Pair) error {
	err := report.Err()
	if err != nil {
		logger.Warnf("[QuoteVerifier] %s 校验失败: inp=%s, out=%s, failed=%d/%d, first=%v",
			report.Kind, mints.Inp, mints.Out, len(report.Failed()), len(report.Checks), err)
		return err
	}
	logger.Infof("[QuoteVerifier] %s 校验通过: inp=%s, out=%s, checks=%d",
		report.Kind, mints.Inp, mints.Out, len(report.Checks))
	return nil
}
