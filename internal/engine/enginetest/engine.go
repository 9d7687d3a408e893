// Package enginetest 提供离线测试用的定价引擎与对应的链上程序：
// 1:1 兑换，按 ProtocolFeeBps 从产出侧收取协议费，add liquidity 按 AddLiquidityFeeBps 在 inp 侧收取，
// 状态全部来自 AccountMap。
package enginetest

import (
	"encoding/binary"
	"fmt"

	solanatypes "github.com/blocto/solana-go-sdk/types"
	"github.com/holiman/uint256"

	"inf1-verifier/internal/chain"
	"inf1-verifier/internal/codec"
	"inf1-verifier/internal/consts"
	"inf1-verifier/internal/engine"
	"inf1-verifier/internal/pda"
	"inf1-verifier/internal/pkg/types"
)

const bpsDenom = 10_000

// 指令类型，data[0]
const (
	ixSwap uint8 = iota
	ixAddLiquidity
	ixRemoveLiquidity
	ixRebalanceStart
	ixRebalanceEnd
)

// Skew 叠加到构造出的指令上，用于制造"报价与执行不一致"的引擎缺陷
type Skew struct {
	Inp uint64
	Out uint64
	Fee uint64
}

type Engine struct {
	pda.Std
	ProtocolFeeBps     uint64
	AddLiquidityFeeBps uint64                // 非零时 add liquidity 的协议费记在 inp 一侧
	SplMints           map[types.Pubkey]bool // 需要 SPL stake pool 数据的 LST
	Skew               Skew

	inited         bool
	splLsts        engine.SplLsts
	reserves       map[types.Pubkey]uint64
	lpSupply       uint64
	tradeReady     map[engine.Pair]bool
	rebalanceReady map[engine.Pair]bool
}

var _ engine.Engine = (*Engine)(nil)

func New() *Engine {
	return &Engine{
		Std:            pda.NewStd(),
		ProtocolFeeBps: 10,
		SplMints: map[types.Pubkey]bool{
			consts.JupSOLMint:   true,
			consts.LaineSOLMint: true,
		},
		splLsts:        engine.SplLsts{},
		reserves:       map[types.Pubkey]uint64{},
		tradeReady:     map[engine.Pair]bool{},
		rebalanceReady: map[engine.Pair]bool{},
	}
}

var supportedMints = map[types.Pubkey]bool{
	consts.WSOLMint:     true,
	consts.MSOLMint:     true,
	consts.STSOLMint:    true,
	consts.JupSOLMint:   true,
	consts.LaineSOLMint: true,
	consts.InfMint:      true,
}

func infErr(code engine.ErrCode, format string, args ...interface{}) error {
	return &engine.InfErr{Code: code, Detail: fmt.Sprintf(format, args...)}
}

func (e *Engine) LpMint() types.Pubkey {
	return consts.InfMint
}

func (e *Engine) InitPks() []types.Pubkey {
	return []types.Pubkey{consts.PoolState, consts.LstStateList}
}

func (e *Engine) Init(accs chain.AccountMap, splLsts engine.SplLsts) error {
	for _, pk := range e.InitPks() {
		rec, ok := accs.Get(pk)
		if !ok {
			return infErr(engine.MissingAccErr, "%s", pk)
		}
		if rec.Owner != consts.InfProgram {
			return infErr(engine.AccDeserErr, "%s not owned by inf program", pk)
		}
	}
	e.inited = true
	e.splLsts = engine.SplLsts{}
	e.AppendSplLsts(splLsts)
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

func (e *Engine) mintAccounts(mint types.Pubkey, withFee bool) ([]types.Pubkey, error) {
	if !supportedMints[mint] {
		return nil, infErr(engine.UnsupportedMintErr, "%s", mint)
	}
	if mint == consts.InfMint {
		return []types.Pubkey{consts.InfMint}, nil
	}
	var out []types.Pubkey
	if e.SplMints[mint] {
		pool, ok := e.splLsts[mint]
		if !ok {
			return nil, infErr(engine.MissingSplDataErr, "%s", mint)
		}
		out = append(out, pool)
	}
	reserves, _, err := e.FindPoolReservesAta(mint)
	if err != nil {
		return nil, err
	}
	out = append(out, reserves)
	if withFee {
		accum, _, err := e.FindProtocolFeeAccumulatorAta(mint)
		if err != nil {
			return nil, err
		}
		out = append(out, accum)
	}
	return out, nil
}

func (e *Engine) accountsFor(mints engine.Pair, withFee bool) ([]types.Pubkey, error) {
	if !e.inited {
		return nil, infErr(engine.InternalErr, "engine not initialized")
	}
	inp, err := e.mintAccounts(mints.Inp, withFee)
	if err != nil {
		return nil, err
	}
	out, err := e.mintAccounts(mints.Out, withFee)
	if err != nil {
		return nil, err
	}
	return append(inp, out...), nil
}

func (e *Engine) AccountsToUpdateForTrade(mints engine.Pair) ([]types.Pubkey, error) {
	return e.accountsFor(mints, true)
}

func (e *Engine) AccountsToUpdateForRebalance(mints engine.Pair) ([]types.Pubkey, error) {
	if mints.Inp == consts.InfMint || mints.Out == consts.InfMint {
		return nil, infErr(engine.UnsupportedMintErr, "cannot rebalance lp mint")
	}
	return e.accountsFor(mints, false)
}

func (e *Engine) update(mints engine.Pair, addrs []types.Pubkey, accs chain.AccountMap) error {
	for _, addr := range addrs {
		if !accs.Has(addr) {
			return infErr(engine.MissingAccErr, "%s", addr)
		}
	}
	for _, mint := range []types.Pubkey{mints.Inp, mints.Out} {
		if mint == consts.InfMint {
			supply, err := codec.MintSupply(accs.MustGet(consts.InfMint).Data)
			if err != nil {
				return infErr(engine.AccDeserErr, "%v", err)
			}
			e.lpSupply = supply
			continue
		}
		reserves, _, _ := e.FindPoolReservesAta(mint)
		bal, err := codec.TokenAccountBalance(accs.MustGet(reserves).Data)
		if err != nil {
			return infErr(engine.AccDeserErr, "%v", err)
		}
		e.reserves[mint] = bal
	}
	return nil
}

func (e *Engine) UpdateForTrade(mints engine.Pair, accs chain.AccountMap) error {
	addrs, err := e.AccountsToUpdateForTrade(mints)
	if err != nil {
		return err
	}
	if err := e.update(mints, addrs, accs); err != nil {
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
	if err := e.update(mints, addrs, accs); err != nil {
		return err
	}
	e.rebalanceReady[mints] = true
	return nil
}

func (e *Engine) QuoteTradeExactIn(args engine.QuoteArgs) (engine.Quote, error) {
	if !e.tradeReady[args.Mints] {
		return engine.Quote{}, infErr(engine.MissingSvcDataErr, "pair not updated")
	}
	if args.Mints.Out == consts.InfMint {
		fee := feeOn(args.Amt, e.AddLiquidityFeeBps)
		if args.Amt-fee == 0 {
			return engine.Quote{}, infErr(engine.SizeTooSmallErr, "out rounds to zero")
		}
		return engine.Quote{Inp: args.Amt, Out: args.Amt - fee, ProtocolFee: fee, FeeMint: engine.FeeMintInp, Mints: args.Mints}, nil
	}
	// 极小的输入会被手续费吃光
	fee := feeOn(args.Amt, e.ProtocolFeeBps)
	out := args.Amt - fee
	if out == 0 {
		return engine.Quote{}, infErr(engine.SizeTooSmallErr, "out rounds to zero")
	}
	if avail := e.reserves[args.Mints.Out]; avail < args.Amt {
		return engine.Quote{}, infErr(engine.SizeTooLargeErr, "required %d, available %d", args.Amt, avail)
	}
	return engine.Quote{Inp: args.Amt, Out: out, ProtocolFee: fee, FeeMint: engine.FeeMintOut, Mints: args.Mints}, nil
}

// feeOn = ceil(amt * bps / denom)，bps < denom 时不超过 amt
func feeOn(amt, bps uint64) uint64 {
	fee := new(uint256.Int).Mul(uint256.NewInt(amt), uint256.NewInt(bps))
	fee.Add(fee, uint256.NewInt(bpsDenom-1))
	fee.Div(fee, uint256.NewInt(bpsDenom))
	return fee.Uint64()
}

// grossUp = ceil(out * denom / (denom - bps))，即扣费后恰好得到 out 的输入
func grossUp(out, bps uint64) *uint256.Int {
	num := new(uint256.Int).Mul(uint256.NewInt(out), uint256.NewInt(bpsDenom))
	den := uint256.NewInt(bpsDenom - bps)
	return num.Div(num.Add(num, new(uint256.Int).Sub(den, uint256.NewInt(1))), den)
}

func (e *Engine) QuoteTradeExactOut(args engine.QuoteArgs) (engine.Quote, error) {
	if !e.tradeReady[args.Mints] {
		return engine.Quote{}, infErr(engine.MissingSvcDataErr, "pair not updated")
	}
	if args.Amt == 0 {
		return engine.Quote{}, infErr(engine.SizeTooSmallErr, "zero out")
	}
	if args.Mints.Out == consts.InfMint {
		gross := grossUp(args.Amt, e.AddLiquidityFeeBps)
		if !gross.IsUint64() {
			return engine.Quote{}, infErr(engine.SizeTooLargeErr, "required %s", gross.Dec())
		}
		inp := gross.Uint64()
		return engine.Quote{Inp: inp, Out: args.Amt, ProtocolFee: inp - args.Amt, FeeMint: engine.FeeMintInp, Mints: args.Mints}, nil
	}
	gross := grossUp(args.Amt, e.ProtocolFeeBps)
	if !gross.IsUint64() {
		return engine.Quote{}, infErr(engine.SizeTooLargeErr, "required %s, available %d", gross.Dec(), e.reserves[args.Mints.Out])
	}
	inp := gross.Uint64()
	if avail := e.reserves[args.Mints.Out]; avail < inp {
		return engine.Quote{}, infErr(engine.SizeTooLargeErr, "required %d, available %d", inp, avail)
	}
	return engine.Quote{Inp: inp, Out: args.Amt, ProtocolFee: inp - args.Amt, FeeMint: engine.FeeMintOut, Mints: args.Mints}, nil
}

func (e *Engine) QuoteRebalance(args engine.RebalanceQuoteArgs) (engine.RebalanceQuote, error) {
	if !e.rebalanceReady[args.Mints] {
		return engine.RebalanceQuote{}, infErr(engine.MissingSvcDataErr, "pair not updated")
	}
	if args.Out == 0 {
		return engine.RebalanceQuote{}, infErr(engine.SizeTooSmallErr, "zero out")
	}
	if avail := e.reserves[args.Mints.Out]; avail < args.Out {
		return engine.RebalanceQuote{}, infErr(engine.SizeTooLargeErr, "required %d, available %d", args.Out, avail)
	}
	return engine.RebalanceQuote{Inp: args.Out, Out: args.Out, Mints: args.Mints}, nil
}

func (e *Engine) TradeExactInIx(args engine.TradeArgs) (engine.Instruction, error) {
	q, err := e.QuoteTradeExactIn(engine.QuoteArgs{Amt: args.Amt, Mints: args.Mints})
	if err != nil {
		return engine.Instruction{}, err
	}
	if q.Out < args.Limit {
		return engine.Instruction{}, infErr(engine.PoolErr, "slippage: out %d < min %d", q.Out, args.Limit)
	}
	return e.tradeIx(q, args)
}

func (e *Engine) TradeExactOutIx(args engine.TradeArgs) (engine.Instruction, error) {
	q, err := e.QuoteTradeExactOut(engine.QuoteArgs{Amt: args.Amt, Mints: args.Mints})
	if err != nil {
		return engine.Instruction{}, err
	}
	if q.Inp > args.Limit {
		return engine.Instruction{}, infErr(engine.PoolErr, "slippage: inp %d > max %d", q.Inp, args.Limit)
	}
	return e.tradeIx(q, args)
}

func (e *Engine) poolAccount(mint types.Pubkey) types.Pubkey {
	if mint == consts.InfMint {
		return consts.InfMint
	}
	addr, _, _ := e.FindPoolReservesAta(mint)
	return addr
}

func (e *Engine) tradeIx(q engine.Quote, args engine.TradeArgs) (engine.Instruction, error) {
	kind := ixSwap
	switch {
	case q.Mints.Out == consts.InfMint:
		kind = ixAddLiquidity
	case q.Mints.Inp == consts.InfMint:
		kind = ixRemoveLiquidity
	}
	accum, _, err := e.FindProtocolFeeAccumulatorAta(q.FeeMint.Of(q.Mints))
	if err != nil {
		return engine.Instruction{}, err
	}
	data := encodeAmounts(kind, q.Inp+e.Skew.Inp, q.Out+e.Skew.Out, q.ProtocolFee+e.Skew.Fee)
	ix := solanatypes.Instruction{
		ProgramID: consts.InfProgram.ToSdk(),
		Accounts: []solanatypes.AccountMeta{
			{PubKey: args.Signer.ToSdk(), IsSigner: true},
			{PubKey: args.TokenAccs.Inp.ToSdk(), IsWritable: true},
			{PubKey: args.TokenAccs.Out.ToSdk(), IsWritable: true},
			{PubKey: e.poolAccount(q.Mints.Inp).ToSdk(), IsWritable: true},
			{PubKey: e.poolAccount(q.Mints.Out).ToSdk(), IsWritable: true},
			{PubKey: accum.ToSdk(), IsWritable: true},
			{PubKey: consts.PoolState.ToSdk()},
			{PubKey: consts.TokenProgram.ToSdk()},
		},
		Data: data,
	}
	if kind == ixAddLiquidity {
		// inp 侧协议费由 inp mint 增发
		ix.Accounts = append(ix.Accounts, solanatypes.AccountMeta{PubKey: q.Mints.Inp.ToSdk(), IsWritable: true})
	}
	return ix, nil
}

func (e *Engine) RebalanceIxs(args engine.RebalanceArgs) (engine.RebalanceIxs, error) {
	q, err := e.QuoteRebalance(engine.RebalanceQuoteArgs{Out: args.Out, Mints: args.Mints})
	if err != nil {
		return engine.RebalanceIxs{}, err
	}
	if e.reserves[args.Mints.Out] < args.MinStartingOutLst {
		return engine.RebalanceIxs{}, infErr(engine.PoolErr, "starting out lst below min")
	}
	if e.reserves[args.Mints.Inp] > args.MaxStartingInpLst {
		return engine.RebalanceIxs{}, infErr(engine.PoolErr, "starting inp lst above max")
	}
	inpReserves, _, _ := e.FindPoolReservesAta(args.Mints.Inp)
	outReserves, _, _ := e.FindPoolReservesAta(args.Mints.Out)
	start := solanatypes.Instruction{
		ProgramID: consts.InfProgram.ToSdk(),
		Accounts: []solanatypes.AccountMeta{
			{PubKey: outReserves.ToSdk(), IsWritable: true},
			{PubKey: args.WithdrawTo.ToSdk(), IsWritable: true},
			{PubKey: consts.PoolState.ToSdk()},
			{PubKey: consts.TokenProgram.ToSdk()},
		},
		Data: encodeAmounts(ixRebalanceStart, 0, q.Out+e.Skew.Out, 0),
	}
	end := solanatypes.Instruction{
		ProgramID: consts.InfProgram.ToSdk(),
		Accounts: []solanatypes.AccountMeta{
			{PubKey: inpReserves.ToSdk()},
		},
		// end 校验 inp reserves 不低于 起始余额 + 报价 inp
		Data: encodeAmounts(ixRebalanceEnd, e.reserves[args.Mints.Inp]+q.Inp, 0, 0),
	}
	return engine.RebalanceIxs{Start: start, End: end}, nil
}

func encodeAmounts(kind uint8, inp, out, fee uint64) []byte {
	data := make([]byte, 25)
	data[0] = kind
	binary.LittleEndian.PutUint64(data[1:9], inp)
	binary.LittleEndian.PutUint64(data[9:17], out)
	binary.LittleEndian.PutUint64(data[17:25], fee)
	return data
}
