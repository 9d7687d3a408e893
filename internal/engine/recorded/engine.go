// Package recorded 回放由 Recorder 录制的报价与指令，用于在没有原生引擎绑定的环境下驱动校验流程。
// 录制对象可以是任意 engine.Engine；仓库自带的 etc/cases.yaml 录自离线的 enginetest 引擎，
// 只能与同一次写出的 test-fixtures 配套回放。
package recorded

import (
	"fmt"

	"inf1-verifier/internal/chain"
	"inf1-verifier/internal/consts"
	"inf1-verifier/internal/engine"
	"inf1-verifier/internal/pda"
	"inf1-verifier/internal/pkg/logger"
	"inf1-verifier/internal/pkg/types"
)

type Engine struct {
	pda.Std
	cases *Cases

	inited         bool
	splMints       map[types.Pubkey]bool
	splLsts        engine.SplLsts
	tradeReady     map[engine.Pair]bool
	rebalanceReady map[engine.Pair]bool
}

var _ engine.Engine = (*Engine)(nil)

func New(cases *Cases) *Engine {
	e := &Engine{
		Std:            pda.NewStd(),
		cases:          cases,
		splMints:       make(map[types.Pubkey]bool, len(cases.SplMints)),
		splLsts:        engine.SplLsts{},
		tradeReady:     map[engine.Pair]bool{},
		rebalanceReady: map[engine.Pair]bool{},
	}
	for _, m := range cases.SplMints {
		e.splMints[m] = true
	}
	return e
}

func infErr(code engine.ErrCode, format string, args ...interface{}) error {
	return &engine.InfErr{Code: code, Detail: fmt.Sprintf(format, args...)}
}

func (e *Engine) LpMint() types.Pubkey {
	if e.cases.LpMint.IsZero() {
		return consts.InfMint
	}
	return e.cases.LpMint
}

func (e *Engine) InitPks() []types.Pubkey {
	if len(e.cases.InitPks) == 0 {
		return []types.Pubkey{consts.PoolState, consts.LstStateList}
	}
	return e.cases.InitPks
}

func (e *Engine) Init(accs chain.AccountMap, splLsts engine.SplLsts) error {
	for _, pk := range e.InitPks() {
		if !accs.Has(pk) {
			return infErr(engine.MissingAccErr, "%s", pk)
		}
	}
	e.inited = true
	e.splLsts = engine.SplLsts{}
	e.AppendSplLsts(splLsts)
	logger.Debugf("[RecordedEngine] 初始化完成: trade=%d, rebalance=%d, spl=%d",
		len(e.cases.Trade), len(e.cases.Rebalance), len(e.splLsts))
	return nil
}

func (e *Engine) AppendSplLsts(splLsts engine.SplLsts) {
	for mint, pool := range splLsts {
		e.splLsts[mint] = pool
	}
}

func (e *Engine) HasSplData(mints []types.Pubkey) []bool {
	out := make([]bool, len(mints))
	for i, m := range mints {
		_, out[i] = e.splLsts[m]
	}
	return out
}

func (e *Engine) checkSpl(mints engine.Pair) error {
	if !e.inited {
		return infErr(engine.InternalErr, "engine not initialized")
	}
	for _, m := range []types.Pubkey{mints.Inp, mints.Out} {
		if e.splMints[m] {
			if _, ok := e.splLsts[m]; !ok {
				return infErr(engine.MissingSplDataErr, "%s", m)
			}
		}
	}
	return nil
}

func (e *Engine) tradeCase(mints engine.Pair) (*TradeCase, error) {
	for i := range e.cases.Trade {
		if e.cases.Trade[i].Mints == mints {
			return &e.cases.Trade[i], nil
		}
	}
	return nil, infErr(engine.UnsupportedMintErr, "no recorded trade %s -> %s", mints.Inp, mints.Out)
}

func (e *Engine) rebalanceCase(mints engine.Pair) (*RebalanceCase, error) {
	for i := range e.cases.Rebalance {
		if e.cases.Rebalance[i].Mints == mints {
			return &e.cases.Rebalance[i], nil
		}
	}
	return nil, infErr(engine.UnsupportedMintErr, "no recorded rebalance %s -> %s", mints.Inp, mints.Out)
}

func (e *Engine) AccountsToUpdateForTrade(mints engine.Pair) ([]types.Pubkey, error) {
	if err := e.checkSpl(mints); err != nil {
		return nil, err
	}
	tc, err := e.tradeCase(mints)
	if err != nil {
		return nil, err
	}
	if tc.Err != "" {
		return nil, mustInfErr(tc.Err)
	}
	return append([]types.Pubkey(nil), tc.AccountsToUpdate...), nil
}

func (e *Engine) AccountsToUpdateForRebalance(mints engine.Pair) ([]types.Pubkey, error) {
	if err := e.checkSpl(mints); err != nil {
		return nil, err
	}
	rc, err := e.rebalanceCase(mints)
	if err != nil {
		return nil, err
	}
	if rc.Err != "" {
		return nil, mustInfErr(rc.Err)
	}
	return append([]types.Pubkey(nil), rc.AccountsToUpdate...), nil
}

func requireAll(addrs []types.Pubkey, accs chain.AccountMap) error {
	for _, addr := range addrs {
		if !accs.Has(addr) {
			return infErr(engine.MissingAccErr, "%s", addr)
		}
	}
	return nil
}

func (e *Engine) UpdateForTrade(mints engine.Pair, accs chain.AccountMap) error {
	addrs, err := e.AccountsToUpdateForTrade(mints)
	if err != nil {
		return err
	}
	if err := requireAll(addrs, accs); err != nil {
		return err
	}
	e.tradeReady[mints] = true
	return nil
}

func (e *Engine) UpdateForRebalance(mints engine.Pair, accs chain.AccountMap) error {
	addrs, err := e.AccountsToUpdateForRebalance(mints)
	if err != nil {
		return err
	}
	if err := requireAll(addrs, accs); err != nil {
		return err
	}
	e.rebalanceReady[mints] = true
	return nil
}

func (e *Engine) tradeEntry(args engine.QuoteArgs, exactOut bool) (*TradeEntry, error) {
	if !e.tradeReady[args.Mints] {
		return nil, infErr(engine.MissingSvcDataErr, "pair not updated")
	}
	tc, err := e.tradeCase(args.Mints)
	if err != nil {
		return nil, err
	}
	entries, kind := tc.ExactIn, "exact-in"
	if exactOut {
		entries, kind = tc.ExactOut, "exact-out"
	}
	for i := range entries {
		if entries[i].Amt == args.Amt {
			if entries[i].err != nil {
				return nil, &engine.InfErr{Code: entries[i].err.Code, Detail: entries[i].err.Detail}
			}
			return &entries[i], nil
		}
	}
	return nil, infErr(engine.InternalErr, "no recorded %s quote for amt %d", kind, args.Amt)
}

func (e *Engine) toQuote(entry *TradeEntry, mints engine.Pair) engine.Quote {
	q := entry.Quote
	return engine.Quote{Inp: q.Inp, Out: q.Out, ProtocolFee: q.ProtocolFee, FeeMint: q.FeeMint, Mints: mints}
}

func (e *Engine) QuoteTradeExactIn(args engine.QuoteArgs) (engine.Quote, error) {
	entry, err := e.tradeEntry(args, false)
	if err != nil {
		return engine.Quote{}, err
	}
	return e.toQuote(entry, args.Mints), nil
}

func (e *Engine) QuoteTradeExactOut(args engine.QuoteArgs) (engine.Quote, error) {
	entry, err := e.tradeEntry(args, true)
	if err != nil {
		return engine.Quote{}, err
	}
	return e.toQuote(entry, args.Mints), nil
}

func tradeSubst(args engine.TradeArgs) map[string]types.Pubkey {
	return map[string]types.Pubkey{
		PlaceholderSigner:      args.Signer,
		PlaceholderInpTokenAcc: args.TokenAccs.Inp,
		PlaceholderOutTokenAcc: args.TokenAccs.Out,
	}
}

func (e *Engine) TradeExactInIx(args engine.TradeArgs) (engine.Instruction, error) {
	entry, err := e.tradeEntry(engine.QuoteArgs{Amt: args.Amt, Mints: args.Mints}, false)
	if err != nil {
		return engine.Instruction{}, err
	}
	if entry.Quote.Out < args.Limit {
		return engine.Instruction{}, infErr(engine.PoolErr, "slippage: out %d < min %d", entry.Quote.Out, args.Limit)
	}
	return entry.Ix.build(tradeSubst(args))
}

func (e *Engine) TradeExactOutIx(args engine.TradeArgs) (engine.Instruction, error) {
	entry, err := e.tradeEntry(engine.QuoteArgs{Amt: args.Amt, Mints: args.Mints}, true)
	if err != nil {
		return engine.Instruction{}, err
	}
	if entry.Quote.Inp > args.Limit {
		return engine.Instruction{}, infErr(engine.PoolErr, "slippage: inp %d > max %d", entry.Quote.Inp, args.Limit)
	}
	return entry.Ix.build(tradeSubst(args))
}

func (e *Engine) rebalanceEntry(args engine.RebalanceQuoteArgs) (*RebalanceEntry, error) {
	if !e.rebalanceReady[args.Mints] {
		return nil, infErr(engine.MissingSvcDataErr, "pair not updated")
	}
	rc, err := e.rebalanceCase(args.Mints)
	if err != nil {
		return nil, err
	}
	for i := range rc.Entries {
		if rc.Entries[i].Out == args.Out {
			if rc.Entries[i].err != nil {
				return nil, &engine.InfErr{Code: rc.Entries[i].err.Code, Detail: rc.Entries[i].err.Detail}
			}
			return &rc.Entries[i], nil
		}
	}
	return nil, infErr(engine.InternalErr, "no recorded rebalance quote for out %d", args.Out)
}

func (e *Engine) QuoteRebalance(args engine.RebalanceQuoteArgs) (engine.RebalanceQuote, error) {
	entry, err := e.rebalanceEntry(args)
	if err != nil {
		return engine.RebalanceQuote{}, err
	}
	return engine.RebalanceQuote{Inp: entry.Inp, Out: entry.Out, Mints: args.Mints}, nil
}

func (e *Engine) RebalanceIxs(args engine.RebalanceArgs) (engine.RebalanceIxs, error) {
	entry, err := e.rebalanceEntry(engine.RebalanceQuoteArgs{Out: args.Out, Mints: args.Mints})
	if err != nil {
		return engine.RebalanceIxs{}, err
	}
	if entry.StartingOutLst < args.MinStartingOutLst {
		return engine.RebalanceIxs{}, infErr(engine.PoolErr, "starting out lst %d below min %d", entry.StartingOutLst, args.MinStartingOutLst)
	}
	if entry.StartingInpLst > args.MaxStartingInpLst {
		return engine.RebalanceIxs{}, infErr(engine.PoolErr, "starting inp lst %d above max %d", entry.StartingInpLst, args.MaxStartingInpLst)
	}
	subst := map[string]types.Pubkey{PlaceholderWithdrawTo: args.WithdrawTo}
	start, err := entry.Start.build(subst)
	if err != nil {
		return engine.RebalanceIxs{}, err
	}
	end, err := entry.End.build(subst)
	if err != nil {
		return engine.RebalanceIxs{}, err
	}
	return engine.RebalanceIxs{Start: start, End: end}, nil
}

// mustInfErr 只用于已在 ParseCases 中校验过的错误字符串
func mustInfErr(s string) error {
	ie, err := engine.ParseInfErr(s)
	if err != nil {
		panic(err)
	}
	return ie
}
