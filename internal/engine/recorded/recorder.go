package recorded

import (
	"inf1-verifier/internal/chain"
	"inf1-verifier/internal/codec"
	"inf1-verifier/internal/engine"
	"inf1-verifier/internal/pkg/logger"
	"inf1-verifier/internal/pkg/types"
)

// Recorder 包装一个引擎，透传全部调用，同时把账户列表、报价、指令与错误录制为 Cases
// 录制结果只反映被包装引擎当时看到的链上状态，回放前要用同一批快照
type Recorder struct {
	engine.Engine
	splMints []types.Pubkey

	trade     []*TradeCase
	rebalance []*RebalanceCase
	starting  map[engine.Pair]startingLst
}

type startingLst struct {
	out uint64
	inp uint64
}

var _ engine.Engine = (*Recorder)(nil)

func NewRecorder(inner engine.Engine, splMints []types.Pubkey) *Recorder {
	return &Recorder{
		Engine:   inner,
		splMints: append([]types.Pubkey(nil), splMints...),
		starting: map[engine.Pair]startingLst{},
	}
}

// recordable 只录制与调用方状态无关的错误；spl 数据缺失、未更新、缺账户由回放引擎自己判断
func recordable(err error) (string, bool) {
	ie, perr := engine.AsInfErr(err)
	if perr != nil {
		return "", false
	}
	switch ie.Code {
	case engine.MissingSplDataErr, engine.MissingSvcDataErr, engine.MissingAccErr, engine.InternalErr:
		return "", false
	}
	return ie.Error(), true
}

func (r *Recorder) tradeCase(mints engine.Pair) *TradeCase {
	for _, tc := range r.trade {
		if tc.Mints == mints {
			return tc
		}
	}
	tc := &TradeCase{Mints: mints}
	r.trade = append(r.trade, tc)
	return tc
}

func (r *Recorder) rebalanceCase(mints engine.Pair) *RebalanceCase {
	for _, rc := range r.rebalance {
		if rc.Mints == mints {
			return rc
		}
	}
	rc := &RebalanceCase{Mints: mints}
	r.rebalance = append(r.rebalance, rc)
	return rc
}

func tradeEntry(entries *[]TradeEntry, amt uint64) *TradeEntry {
	for i := range *entries {
		if (*entries)[i].Amt == amt {
			return &(*entries)[i]
		}
	}
	*entries = append(*entries, TradeEntry{Amt: amt})
	return &(*entries)[len(*entries)-1]
}

func (tc *TradeCase) entries(exactOut bool) *[]TradeEntry {
	if exactOut {
		return &tc.ExactOut
	}
	return &tc.ExactIn
}

func (rc *RebalanceCase) entry(out uint64) *RebalanceEntry {
	for i := range rc.Entries {
		if rc.Entries[i].Out == out {
			return &rc.Entries[i]
		}
	}
	rc.Entries = append(rc.Entries, RebalanceEntry{Out: out})
	return &rc.Entries[len(rc.Entries)-1]
}

func (r *Recorder) AccountsToUpdateForTrade(mints engine.Pair) ([]types.Pubkey, error) {
	addrs, err := r.Engine.AccountsToUpdateForTrade(mints)
	if err != nil {
		if s, ok := recordable(err); ok {
			r.tradeCase(mints).Err = s
		}
		return nil, err
	}
	tc := r.tradeCase(mints)
	tc.AccountsToUpdate = append([]types.Pubkey(nil), addrs...)
	tc.Err = ""
	return addrs, nil
}

func (r *Recorder) AccountsToUpdateForRebalance(mints engine.Pair) ([]types.Pubkey, error) {
	addrs, err := r.Engine.AccountsToUpdateForRebalance(mints)
	if err != nil {
		if s, ok := recordable(err); ok {
			r.rebalanceCase(mints).Err = s
		}
		return nil, err
	}
	rc := r.rebalanceCase(mints)
	rc.AccountsToUpdate = append([]types.Pubkey(nil), addrs...)
	rc.Err = ""
	return addrs, nil
}

func (r *Recorder) reservesBalance(mint types.Pubkey, accs chain.AccountMap) uint64 {
	addr, _, err := r.FindPoolReservesAta(mint)
	if err != nil {
		return 0
	}
	rec, ok := accs.Get(addr)
	if !ok {
		return 0
	}
	bal, err := codec.TokenAccountBalance(rec.Data)
	if err != nil {
		return 0
	}
	return bal
}

// UpdateForRebalance 额外记下两侧 reserves 的起始余额
func (r *Recorder) UpdateForRebalance(mints engine.Pair, accs chain.AccountMap) error {
	if err := r.Engine.UpdateForRebalance(mints, accs); err != nil {
		return err
	}
	r.starting[mints] = startingLst{
		out: r.reservesBalance(mints.Out, accs),
		inp: r.reservesBalance(mints.Inp, accs),
	}
	return nil
}

func (r *Recorder) recordQuote(args engine.QuoteArgs, exactOut bool, q engine.Quote, err error) {
	if err != nil {
		s, ok := recordable(err)
		if !ok {
			return
		}
		e := tradeEntry(r.tradeCase(args.Mints).entries(exactOut), args.Amt)
		*e = TradeEntry{Amt: args.Amt, Err: s}
		return
	}
	e := tradeEntry(r.tradeCase(args.Mints).entries(exactOut), args.Amt)
	*e = TradeEntry{
		Amt:   args.Amt,
		Quote: QuoteRecord{Inp: q.Inp, Out: q.Out, ProtocolFee: q.ProtocolFee, FeeMint: q.FeeMint},
	}
}

func (r *Recorder) QuoteTradeExactIn(args engine.QuoteArgs) (engine.Quote, error) {
	q, err := r.Engine.QuoteTradeExactIn(args)
	r.recordQuote(args, false, q, err)
	return q, err
}

func (r *Recorder) QuoteTradeExactOut(args engine.QuoteArgs) (engine.Quote, error) {
	q, err := r.Engine.QuoteTradeExactOut(args)
	r.recordQuote(args, true, q, err)
	return q, err
}

// recordIx 只补到已有成功报价的条目上；滑点之类的构造失败依赖调用方的 limit，不录制
func (r *Recorder) recordIx(args engine.TradeArgs, exactOut bool, ix engine.Instruction, err error) {
	if err != nil {
		return
	}
	e := tradeEntry(r.tradeCase(args.Mints).entries(exactOut), args.Amt)
	if e.Err != "" {
		return
	}
	rec := RecordIx(ix, map[types.Pubkey]string{
		args.Signer:        PlaceholderSigner,
		args.TokenAccs.Inp: PlaceholderInpTokenAcc,
		args.TokenAccs.Out: PlaceholderOutTokenAcc,
	})
	e.Ix = &rec
}

func (r *Recorder) TradeExactInIx(args engine.TradeArgs) (engine.Instruction, error) {
	ix, err := r.Engine.TradeExactInIx(args)
	r.recordIx(args, false, ix, err)
	return ix, err
}

func (r *Recorder) TradeExactOutIx(args engine.TradeArgs) (engine.Instruction, error) {
	ix, err := r.Engine.TradeExactOutIx(args)
	r.recordIx(args, true, ix, err)
	return ix, err
}

func (r *Recorder) QuoteRebalance(args engine.RebalanceQuoteArgs) (engine.RebalanceQuote, error) {
	q, err := r.Engine.QuoteRebalance(args)
	if err != nil {
		if s, ok := recordable(err); ok {
			*r.rebalanceCase(args.Mints).entry(args.Out) = RebalanceEntry{Out: args.Out, Err: s}
		}
		return q, err
	}
	st := r.starting[args.Mints]
	*r.rebalanceCase(args.Mints).entry(args.Out) = RebalanceEntry{
		Out:            args.Out,
		Inp:            q.Inp,
		StartingOutLst: st.out,
		StartingInpLst: st.inp,
	}
	return q, nil
}

func (r *Recorder) RebalanceIxs(args engine.RebalanceArgs) (engine.RebalanceIxs, error) {
	ixs, err := r.Engine.RebalanceIxs(args)
	if err != nil {
		return ixs, err
	}
	e := r.rebalanceCase(args.Mints).entry(args.Out)
	if e.Err == "" {
		names := map[types.Pubkey]string{args.WithdrawTo: PlaceholderWithdrawTo}
		start, end := RecordIx(ixs.Start, names), RecordIx(ixs.End, names)
		e.Start, e.End = &start, &end
	}
	return ixs, nil
}

// Cases 丢弃不完整的条目（有报价但没有指令）后校验并返回
func (r *Recorder) Cases() (*Cases, error) {
	c := &Cases{
		LpMint:   r.LpMint(),
		InitPks:  append([]types.Pubkey(nil), r.InitPks()...),
		SplMints: append([]types.Pubkey(nil), r.splMints...),
	}
	for _, tc := range r.trade {
		out := TradeCase{Mints: tc.Mints, AccountsToUpdate: tc.AccountsToUpdate, Err: tc.Err}
		out.ExactIn = completeTrade(tc.ExactIn)
		out.ExactOut = completeTrade(tc.ExactOut)
		if out.Err == "" && len(out.ExactIn) == 0 && len(out.ExactOut) == 0 {
			continue
		}
		c.Trade = append(c.Trade, out)
	}
	for _, rc := range r.rebalance {
		out := RebalanceCase{Mints: rc.Mints, AccountsToUpdate: rc.AccountsToUpdate, Err: rc.Err}
		for _, e := range rc.Entries {
			if e.Err != "" || (e.Start != nil && e.End != nil) {
				out.Entries = append(out.Entries, e)
			}
		}
		if out.Err == "" && len(out.Entries) == 0 {
			continue
		}
		c.Rebalance = append(c.Rebalance, out)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	logger.Infof("[Recorder] 录制完成: trade=%d, rebalance=%d", len(c.Trade), len(c.Rebalance))
	return c, nil
}

func completeTrade(entries []TradeEntry) []TradeEntry {
	var out []TradeEntry
	for _, e := range entries {
		if e.Err != "" || e.Ix != nil {
			out = append(out, e)
		}
	}
	return out
}
