package scenario

import (
	"context"
	"fmt"
	"strings"

	"inf1-verifier/internal/engine"
	"inf1-verifier/internal/fixtures"
	"inf1-verifier/internal/verifier"
)

// Deps 一次校验流程需要的全部协作方
type Deps struct {
	Engine      engine.Engine
	Fetcher     verifier.AccountFetcher
	Verifier    *verifier.Verifier
	FixturesDir string
	SplLsts     engine.SplLsts
}

// TokenAccFixtures inp / out 两侧 token 账户快照名，如 "wsol-token-acc"
type TokenAccFixtures struct {
	Inp string
	Out string
}

func (d *Deps) loadTokenAccs(names TokenAccFixtures) (inp, out fixtures.TokenAcc, err error) {
	if inp, err = fixtures.LoadTokenAcc(d.FixturesDir, names.Inp); err != nil {
		return
	}
	out, err = fixtures.LoadTokenAcc(d.FixturesDir, names.Out)
	return
}

// TradeExactIn 报价 -> 构造指令 -> 模拟校验；limit 使用 no-op 值，由校验而不是程序发现报价不一致
func TradeExactIn(ctx context.Context, d *Deps, amt uint64, mints engine.Pair, names TokenAccFixtures) (*verifier.Report, error) {
	return trade(ctx, d, amt, mints, names, false)
}

func TradeExactOut(ctx context.Context, d *Deps, amt uint64, mints engine.Pair, names TokenAccFixtures) (*verifier.Report, error) {
	return trade(ctx, d, amt, mints, names, true)
}

func trade(ctx context.Context, d *Deps, amt uint64, mints engine.Pair, names TokenAccFixtures, exactOut bool) (*verifier.Report, error) {
	inp, out, err := d.loadTokenAccs(names)
	if err != nil {
		return nil, err
	}
	if err := PrepareForTrade(ctx, d.Engine, d.Fetcher, mints, d.SplLsts); err != nil {
		return nil, err
	}

	qargs := engine.QuoteArgs{Amt: amt, Mints: mints}
	args := engine.TradeArgs{
		Amt:       amt,
		Mints:     mints,
		Signer:    inp.Owner,
		TokenAccs: engine.TokenAccs{Inp: inp.Addr, Out: out.Addr},
	}
	var (
		quote engine.Quote
		ix    engine.Instruction
	)
	if exactOut {
		args.Limit = engine.NoLimitExactOut
		if quote, err = d.Engine.QuoteTradeExactOut(qargs); err != nil {
			return nil, err
		}
		ix, err = d.Engine.TradeExactOutIx(args)
	} else {
		args.Limit = engine.NoLimitExactIn
		if quote, err = d.Engine.QuoteTradeExactIn(qargs); err != nil {
			return nil, err
		}
		ix, err = d.Engine.TradeExactInIx(args)
	}
	if err != nil {
		return nil, err
	}
	return d.Verifier.VerifyTrade(ctx, quote, args, ix)
}

// Rebalance 交易对取自两个快照的 mint，inp 快照账户作为注资方
func Rebalance(ctx context.Context, d *Deps, out uint64, names TokenAccFixtures) (*verifier.Report, error) {
	donor, withdrawTo, err := d.loadTokenAccs(names)
	if err != nil {
		return nil, err
	}
	mints := engine.Pair{Inp: donor.Mint, Out: withdrawTo.Mint}
	if err := PrepareForRebalance(ctx, d.Engine, d.Fetcher, mints, d.SplLsts); err != nil {
		return nil, err
	}

	quote, err := d.Engine.QuoteRebalance(engine.RebalanceQuoteArgs{Out: out, Mints: mints})
	if err != nil {
		return nil, err
	}
	args := engine.RebalanceArgs{
		Out:               out,
		MinStartingOutLst: engine.NoMinStartingOutLst,
		MaxStartingInpLst: engine.NoMaxStartingInpLst,
		Mints:             mints,
		WithdrawTo:        withdrawTo.Addr,
	}
	ixs, err := d.Engine.RebalanceIxs(args)
	if err != nil {
		return nil, err
	}
	return d.Verifier.VerifyRebalance(ctx, quote, args, ixs, verifier.Donor{TokenAcc: donor.Addr, Owner: donor.Owner})
}

// ExpectInfErr 断言 err 为引擎错误；expected 为 "<code>" 时只比较错误码，为 "<code>:<detail>" 时比较完整消息
func ExpectInfErr(err error, expected string) error {
	if err == nil {
		return fmt.Errorf("expected %s, got success", expected)
	}
	ie, perr := engine.AsInfErr(err)
	if perr != nil {
		return fmt.Errorf("expected %s, got non-engine error: %w", expected, err)
	}
	want, perr := engine.ParseInfErr(expected)
	if perr != nil {
		return perr
	}
	if ie.Code != want.Code {
		return fmt.Errorf("expected %s, got %s", expected, ie.Error())
	}
	if strings.Contains(expected, ":") && ie.Detail != want.Detail {
		return fmt.Errorf("expected %s, got %s", expected, ie.Error())
	}
	return nil
}
