package verifier_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inf1-verifier/internal/consts"
	"inf1-verifier/internal/engine"
	"inf1-verifier/internal/engine/enginetest"
	"inf1-verifier/internal/fetcher"
	"inf1-verifier/internal/simulator"
	"inf1-verifier/internal/verifier"
)

type harness struct {
	world *enginetest.World
	eng   *enginetest.Engine
	v     *verifier.Verifier
}

func newHarness(t *testing.T, w *enginetest.World) *harness {
	t.Helper()
	bank := w.Bank()
	eng := enginetest.New()
	require.NoError(t, eng.Init(w.AccountMap(), enginetest.SplLsts()))
	return &harness{
		world: w,
		eng:   eng,
		v:     verifier.New(fetcher.New(bank, 4), simulator.New(bank), eng, eng.LpMint()),
	}
}

func (h *harness) tradeExactIn(t *testing.T, mints engine.Pair, amt uint64) (*verifier.Report, error) {
	t.Helper()
	require.NoError(t, h.eng.UpdateForTrade(mints, h.world.AccountMap()))
	args := engine.TradeArgs{
		Amt:       amt,
		Limit:     engine.NoLimitExactIn,
		Mints:     mints,
		Signer:    enginetest.User,
		TokenAccs: engine.TokenAccs{Inp: enginetest.UserTokenAcc(mints.Inp), Out: enginetest.UserTokenAcc(mints.Out)},
	}
	q, err := h.eng.QuoteTradeExactIn(engine.QuoteArgs{Amt: amt, Mints: mints})
	require.NoError(t, err)
	ix, err := h.eng.TradeExactInIx(args)
	require.NoError(t, err)
	return h.v.VerifyTrade(context.Background(), q, args, ix)
}

func (h *harness) tradeExactOut(t *testing.T, mints engine.Pair, amt uint64) (*verifier.Report, error) {
	t.Helper()
	require.NoError(t, h.eng.UpdateForTrade(mints, h.world.AccountMap()))
	args := engine.TradeArgs{
		Amt:       amt,
		Limit:     engine.NoLimitExactOut,
		Mints:     mints,
		Signer:    enginetest.User,
		TokenAccs: engine.TokenAccs{Inp: enginetest.UserTokenAcc(mints.Inp), Out: enginetest.UserTokenAcc(mints.Out)},
	}
	q, err := h.eng.QuoteTradeExactOut(engine.QuoteArgs{Amt: amt, Mints: mints})
	require.NoError(t, err)
	ix, err := h.eng.TradeExactOutIx(args)
	require.NoError(t, err)
	return h.v.VerifyTrade(context.Background(), q, args, ix)
}

func (h *harness) rebalance(t *testing.T, mints engine.Pair, out uint64) (*verifier.Report, error) {
	t.Helper()
	require.NoError(t, h.eng.UpdateForRebalance(mints, h.world.AccountMap()))
	args := engine.RebalanceArgs{
		Out:               out,
		MinStartingOutLst: engine.NoMinStartingOutLst,
		MaxStartingInpLst: engine.NoMaxStartingInpLst,
		Mints:             mints,
		WithdrawTo:        enginetest.UserTokenAcc(mints.Out),
	}
	q, err := h.eng.QuoteRebalance(engine.RebalanceQuoteArgs{Out: out, Mints: mints})
	require.NoError(t, err)
	ixs, err := h.eng.RebalanceIxs(args)
	require.NoError(t, err)
	donor := verifier.Donor{TokenAcc: enginetest.UserTokenAcc(mints.Inp), Owner: enginetest.User}
	return h.v.VerifyRebalance(context.Background(), q, args, ixs, donor)
}

var (
	swapPair   = engine.Pair{Inp: consts.WSOLMint, Out: consts.MSOLMint}
	addLiqPair = engine.Pair{Inp: consts.WSOLMint, Out: consts.InfMint}
	remLiqPair = engine.Pair{Inp: consts.InfMint, Out: consts.MSOLMint}
)

func TestVerifyTradePasses(t *testing.T) {
	cases := []struct {
		name     string
		mints    engine.Pair
		exactOut bool
		amt      uint64
	}{
		{"swap exact in", swapPair, false, 1_000_000},
		{"swap exact out", swapPair, true, 999_000},
		{"add liquidity exact in", addLiqPair, false, 2_000_000},
		{"add liquidity exact out", addLiqPair, true, 2_000_000},
		{"remove liquidity exact in", remLiqPair, false, 3_000_000},
		{"remove liquidity exact out", remLiqPair, true, 3_000_000},
		{"spl lst swap", engine.Pair{Inp: consts.JupSOLMint, Out: consts.LaineSOLMint}, false, 77_777},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h := newHarness(t, enginetest.NewWorld())
			var (
				report *verifier.Report
				err    error
			)
			if c.exactOut {
				report, err = h.tradeExactOut(t, c.mints, c.amt)
			} else {
				report, err = h.tradeExactIn(t, c.mints, c.amt)
			}
			require.NoError(t, err)
			assert.Equal(t, verifier.KindTrade, report.Kind)
			assert.Len(t, report.Checks, 5)
			assert.True(t, report.Passed())
			assert.NotEmpty(t, report.Logs)
			assert.NotEmpty(t, report.Tx)
		})
	}
}

func TestVerifyTradeLpMintChecksSupply(t *testing.T) {
	h := newHarness(t, enginetest.NewWorld())
	report, err := h.tradeExactIn(t, addLiqPair, 2_000_000)
	require.NoError(t, err)

	out := report.Checks[4]
	assert.Equal(t, consts.InfMint, out.Address)
	assert.Equal(t, enginetest.DefaultLpSupply, out.Pre)
	assert.Equal(t, enginetest.DefaultLpSupply+2_000_000, out.Post)

	// add liquidity 的手续费记在 inp 一侧
	accum, _, _ := h.eng.FindProtocolFeeAccumulatorAta(consts.WSOLMint)
	assert.Equal(t, accum, report.Checks[2].Address)
}

func TestVerifyTradeInpSideFee(t *testing.T) {
	for _, exactOut := range []bool{false, true} {
		h := newHarness(t, enginetest.NewWorld())
		h.eng.AddLiquidityFeeBps = 25

		var (
			report *verifier.Report
			err    error
		)
		if exactOut {
			report, err = h.tradeExactOut(t, addLiqPair, 1_995_000)
		} else {
			report, err = h.tradeExactIn(t, addLiqPair, 2_000_000)
		}
		require.NoError(t, err)
		assert.True(t, report.Passed())

		accum, _, _ := h.eng.FindProtocolFeeAccumulatorAta(consts.WSOLMint)
		fee := report.Checks[2]
		assert.Equal(t, accum, fee.Address)
		assert.Equal(t, uint64(0), fee.Pre)
		assert.Equal(t, uint64(5_000), fee.Post)
		assert.Equal(t, uint64(5_000), fee.Expected.Uint64())

		// inp reserves 只增加 inp，LP 只增发扣费后的 out
		assert.Equal(t, enginetest.DefaultReserves+2_000_000, report.Checks[3].Post)
		assert.Equal(t, enginetest.DefaultLpSupply+1_995_000, report.Checks[4].Post)
	}
}

func TestVerifyTradeNearU64Max(t *testing.T) {
	w := enginetest.NewWorld()
	w.SetReserves(consts.WSOLMint, math.MaxUint64-1_000_000)
	w.SetReserves(consts.MSOLMint, math.MaxUint64)
	h := newHarness(t, w)

	report, err := h.tradeExactIn(t, swapPair, 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), report.Checks[3].Post)
	assert.Equal(t, uint64(math.MaxUint64-1_000_000), report.Checks[4].Post)
}

func TestVerifyTradeOutPlusFeeBeyondU64(t *testing.T) {
	h := newHarness(t, enginetest.NewWorld())
	require.NoError(t, h.eng.UpdateForTrade(swapPair, h.world.AccountMap()))
	args := engine.TradeArgs{
		Amt:       1_000_000,
		Mints:     swapPair,
		Signer:    enginetest.User,
		TokenAccs: engine.TokenAccs{Inp: enginetest.UserTokenAcc(swapPair.Inp), Out: enginetest.UserTokenAcc(swapPair.Out)},
	}
	ix, err := h.eng.TradeExactInIx(args)
	require.NoError(t, err)

	// out + protocolFee = 2^64 + 499，按 u64 相加会回绕成 499
	q := engine.Quote{Inp: 1_000_000, Out: math.MaxUint64 - 500, ProtocolFee: 1_000, FeeMint: engine.FeeMintOut, Mints: swapPair}
	report, err := h.v.VerifyTrade(context.Background(), q, args, ix)
	assert.ErrorIs(t, err, verifier.ErrAssertion)
	require.NotNil(t, report)

	out := report.Checks[4]
	assert.Equal(t, "out pool reserves balance", out.Quantity)
	assert.False(t, out.Passed())
	assert.Equal(t, -1, out.Expected.Sign())
	assert.Equal(t, "18446744073709552115", new(uint256.Int).Neg(out.Expected).Dec())
	assert.Equal(t, "1000000", new(uint256.Int).Neg(out.Actual).Dec())
}

func TestVerifyTradeRemoveLiquidityBurns(t *testing.T) {
	h := newHarness(t, enginetest.NewWorld())
	report, err := h.tradeExactIn(t, remLiqPair, 3_000_000)
	require.NoError(t, err)

	inp := report.Checks[3]
	assert.Equal(t, consts.InfMint, inp.Address)
	assert.Equal(t, enginetest.DefaultLpSupply-3_000_000, inp.Post)
}

func TestVerifyTradeDetectsOutMismatch(t *testing.T) {
	h := newHarness(t, enginetest.NewWorld())
	h.eng.Skew.Out = 1

	report, err := h.tradeExactIn(t, swapPair, 1_000_000)
	require.Error(t, err)
	assert.True(t, errors.Is(err, verifier.ErrAssertion))

	var ae *verifier.AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "out token account balance", ae.Quantity)
	assert.Equal(t, enginetest.UserTokenAcc(consts.MSOLMint), ae.Address)
	assert.Equal(t, "999000", ae.Expected)
	assert.Equal(t, "999001", ae.Actual)
	assert.NotEmpty(t, ae.Logs)

	require.NotNil(t, report)
	failed := report.Failed()
	require.Len(t, failed, 2)
	assert.Equal(t, "out pool reserves balance", failed[1].Quantity)
}

func TestVerifyTradeDetectsFeeMismatch(t *testing.T) {
	h := newHarness(t, enginetest.NewWorld())
	h.eng.Skew.Fee = 1

	report, err := h.tradeExactIn(t, swapPair, 1_000_000)
	var ae *verifier.AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "protocol fee accumulator balance", ae.Quantity)
	assert.Equal(t, "1000", ae.Expected)
	assert.Equal(t, "1001", ae.Actual)

	failed := report.Failed()
	require.Len(t, failed, 2)
	assert.Equal(t, "out pool reserves balance", failed[1].Quantity)
	assert.Equal(t, enginetest.DefaultReserves-1_000_001, failed[1].Post)
}

func TestVerifyTradeSimulationError(t *testing.T) {
	h := newHarness(t, enginetest.NewWorld())
	// 多转出的 inp 超过用户余额，模拟失败
	h.eng.Skew.Inp = enginetest.DefaultUserBalance

	report, err := h.tradeExactIn(t, swapPair, 1_000_000)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, simulator.ErrSimulation)

	var se *simulator.SimulationError
	require.ErrorAs(t, err, &se)
	assert.NotEmpty(t, se.Logs)
	assert.NotEmpty(t, se.Tx)
}

func TestVerifyTradeMissingAccount(t *testing.T) {
	w := enginetest.NewWorld()
	w.Delete(enginetest.UserTokenAcc(consts.MSOLMint))
	h := newHarness(t, w)

	report, err := h.tradeExactIn(t, swapPair, 1_000_000)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, fetcher.ErrMissingAccount)
}

func TestVerifyRebalancePasses(t *testing.T) {
	h := newHarness(t, enginetest.NewWorld())
	report, err := h.rebalance(t, swapPair, 10_000)
	require.NoError(t, err)
	assert.Equal(t, verifier.KindRebalance, report.Kind)
	require.Len(t, report.Checks, 4)
	assert.True(t, report.Passed())

	assert.Equal(t, enginetest.DefaultUserBalance-10_000, report.Checks[0].Post)
	assert.Equal(t, enginetest.DefaultUserBalance+10_000, report.Checks[1].Post)
	assert.Equal(t, enginetest.DefaultReserves+10_000, report.Checks[2].Post)
	assert.Equal(t, enginetest.DefaultReserves-10_000, report.Checks[3].Post)
}

func TestVerifyRebalanceDetectsMismatch(t *testing.T) {
	h := newHarness(t, enginetest.NewWorld())
	h.eng.Skew.Out = 5

	_, err := h.rebalance(t, swapPair, 10_000)
	var ae *verifier.AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "withdraw-to balance", ae.Quantity)
	assert.Equal(t, "10000", ae.Expected)
	assert.Equal(t, "10005", ae.Actual)
}
