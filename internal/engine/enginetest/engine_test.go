package enginetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inf1-verifier/internal/codec"
	"inf1-verifier/internal/consts"
	"inf1-verifier/internal/engine"
	"inf1-verifier/internal/fixtures"
	"inf1-verifier/internal/pkg/types"
	"inf1-verifier/internal/simulator"
)

func readyEngine(t *testing.T, w *World, mints engine.Pair) *Engine {
	t.Helper()
	e := New()
	require.NoError(t, e.Init(w.AccountMap(), SplLsts()))
	require.NoError(t, e.UpdateForTrade(mints, w.AccountMap()))
	return e
}

func TestInitRequiresPoolAccounts(t *testing.T) {
	w := NewWorld()
	w.Delete(consts.LstStateList)
	err := New().Init(w.AccountMap(), nil)
	assert.ErrorIs(t, err, &engine.InfErr{Code: engine.MissingAccErr})
}

func TestAccountsToUpdateForTrade(t *testing.T) {
	e := New()
	require.NoError(t, e.Init(NewWorld().AccountMap(), nil))

	addrs, err := e.AccountsToUpdateForTrade(engine.Pair{Inp: consts.WSOLMint, Out: consts.InfMint})
	require.NoError(t, err)
	wsolReserves, _, _ := e.FindPoolReservesAta(consts.WSOLMint)
	wsolAccum, _, _ := e.FindProtocolFeeAccumulatorAta(consts.WSOLMint)
	assert.Equal(t, []types.Pubkey{wsolReserves, wsolAccum, consts.InfMint}, addrs)

	_, err = e.AccountsToUpdateForTrade(engine.Pair{Inp: consts.WSOLMint, Out: consts.JupSOLMint})
	assert.ErrorIs(t, err, &engine.InfErr{Code: engine.MissingSplDataErr})

	assert.Equal(t, []bool{false, false}, e.HasSplData([]types.Pubkey{consts.JupSOLMint, consts.LaineSOLMint}))
	e.AppendSplLsts(SplLsts())
	assert.Equal(t, []bool{true, true}, e.HasSplData([]types.Pubkey{consts.JupSOLMint, consts.LaineSOLMint}))

	addrs, err = e.AccountsToUpdateForTrade(engine.Pair{Inp: consts.WSOLMint, Out: consts.JupSOLMint})
	require.NoError(t, err)
	assert.Contains(t, addrs, consts.JupSOLStakePool)

	_, err = e.AccountsToUpdateForTrade(engine.Pair{Inp: consts.WSOLMint, Out: User})
	assert.ErrorIs(t, err, &engine.InfErr{Code: engine.UnsupportedMintErr})
}

func TestQuoteRequiresUpdate(t *testing.T) {
	e := New()
	require.NoError(t, e.Init(NewWorld().AccountMap(), nil))
	_, err := e.QuoteTradeExactIn(engine.QuoteArgs{Amt: 1, Mints: engine.Pair{Inp: consts.WSOLMint, Out: consts.MSOLMint}})
	assert.ErrorIs(t, err, &engine.InfErr{Code: engine.MissingSvcDataErr})
}

func TestQuoteTradeExactIn(t *testing.T) {
	mints := engine.Pair{Inp: consts.WSOLMint, Out: consts.MSOLMint}
	e := readyEngine(t, NewWorld(), mints)

	q, err := e.QuoteTradeExactIn(engine.QuoteArgs{Amt: 1_000_000, Mints: mints})
	require.NoError(t, err)
	assert.Equal(t, engine.Quote{Inp: 1_000_000, Out: 999_000, ProtocolFee: 1_000, FeeMint: engine.FeeMintOut, Mints: mints}, q)

	_, err = e.QuoteTradeExactIn(engine.QuoteArgs{Amt: 1, Mints: mints})
	assert.ErrorIs(t, err, &engine.InfErr{Code: engine.SizeTooSmallErr})

	_, err = e.QuoteTradeExactIn(engine.QuoteArgs{Amt: DefaultReserves + 1, Mints: mints})
	assert.ErrorIs(t, err, &engine.InfErr{Code: engine.SizeTooLargeErr})
}

func TestQuoteTradeExactOut(t *testing.T) {
	mints := engine.Pair{Inp: consts.WSOLMint, Out: consts.MSOLMint}
	e := readyEngine(t, NewWorld(), mints)

	q, err := e.QuoteTradeExactOut(engine.QuoteArgs{Amt: 999_000, Mints: mints})
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), q.Inp)
	assert.Equal(t, uint64(999_000), q.Out)
	assert.Equal(t, uint64(1_000), q.ProtocolFee)
}

func TestAddLiquidityQuote(t *testing.T) {
	mints := engine.Pair{Inp: consts.WSOLMint, Out: consts.InfMint}
	e := readyEngine(t, NewWorld(), mints)

	q, err := e.QuoteTradeExactIn(engine.QuoteArgs{Amt: 5_000, Mints: mints})
	require.NoError(t, err)
	assert.Equal(t, engine.FeeMintInp, q.FeeMint)
	assert.Equal(t, uint64(5_000), q.Out)
	assert.Zero(t, q.ProtocolFee)
}

func TestAddLiquidityFeeOnInpSide(t *testing.T) {
	mints := engine.Pair{Inp: consts.WSOLMint, Out: consts.InfMint}
	e := readyEngine(t, NewWorld(), mints)
	e.AddLiquidityFeeBps = 25

	q, err := e.QuoteTradeExactIn(engine.QuoteArgs{Amt: 2_000_000, Mints: mints})
	require.NoError(t, err)
	assert.Equal(t, engine.Quote{Inp: 2_000_000, Out: 1_995_000, ProtocolFee: 5_000, FeeMint: engine.FeeMintInp, Mints: mints}, q)

	q, err = e.QuoteTradeExactOut(engine.QuoteArgs{Amt: 1_995_000, Mints: mints})
	require.NoError(t, err)
	assert.Equal(t, engine.Quote{Inp: 2_000_000, Out: 1_995_000, ProtocolFee: 5_000, FeeMint: engine.FeeMintInp, Mints: mints}, q)
}

func TestSlippageLimit(t *testing.T) {
	mints := engine.Pair{Inp: consts.WSOLMint, Out: consts.MSOLMint}
	e := readyEngine(t, NewWorld(), mints)
	args := engine.TradeArgs{
		Amt:       1_000_000,
		Limit:     999_001,
		Mints:     mints,
		Signer:    User,
		TokenAccs: engine.TokenAccs{Inp: UserTokenAcc(mints.Inp), Out: UserTokenAcc(mints.Out)},
	}
	_, err := e.TradeExactInIx(args)
	assert.ErrorIs(t, err, &engine.InfErr{Code: engine.PoolErr})

	args.Limit = engine.NoLimitExactIn
	_, err = e.TradeExactInIx(args)
	assert.NoError(t, err)
}

func TestSwapExecutesOnBank(t *testing.T) {
	w := NewWorld()
	mints := engine.Pair{Inp: consts.WSOLMint, Out: consts.MSOLMint}
	e := readyEngine(t, w, mints)

	inpAcc, outAcc := UserTokenAcc(mints.Inp), UserTokenAcc(mints.Out)
	ix, err := e.TradeExactInIx(engine.TradeArgs{
		Amt:       1_000_000,
		Limit:     engine.NoLimitExactIn,
		Mints:     mints,
		Signer:    User,
		TokenAccs: engine.TokenAccs{Inp: inpAcc, Out: outAcc},
	})
	require.NoError(t, err)

	accum := w.Addr("msol-protocol-fee-accum")
	tx, err := simulator.BuildSimTx(User, ix)
	require.NoError(t, err)
	res, err := w.Bank().SimulateTransaction(context.Background(), tx, []types.Pubkey{inpAcc, outAcc, accum})
	require.NoError(t, err)
	require.Nil(t, res.Err, res.Logs)

	bal := func(i int) uint64 {
		b, err := codec.TokenAccountBalance(res.Accounts[i].Data)
		require.NoError(t, err)
		return b
	}
	assert.Equal(t, DefaultUserBalance-1_000_000, bal(0))
	assert.Equal(t, DefaultUserBalance+999_000, bal(1))
	assert.Equal(t, uint64(1_000), bal(2))
	assert.Contains(t, res.Logs, "Program log: Instruction: Swap")
}

func TestRebalanceNotRepaid(t *testing.T) {
	w := NewWorld()
	mints := engine.Pair{Inp: consts.WSOLMint, Out: consts.MSOLMint}
	e := New()
	require.NoError(t, e.Init(w.AccountMap(), nil))
	require.NoError(t, e.UpdateForRebalance(mints, w.AccountMap()))

	ixs, err := e.RebalanceIxs(engine.RebalanceArgs{
		Out:               10_000,
		MinStartingOutLst: engine.NoMinStartingOutLst,
		MaxStartingInpLst: engine.NoMaxStartingInpLst,
		Mints:             mints,
		WithdrawTo:        UserTokenAcc(mints.Out),
	})
	require.NoError(t, err)

	// 不插入注资转账，end 校验失败
	tx, err := simulator.BuildSimTx(User, ixs.Start, ixs.End)
	require.NoError(t, err)
	res, err := w.Bank().SimulateTransaction(context.Background(), tx, nil)
	require.NoError(t, err)
	require.NotNil(t, res.Err)
	assert.Contains(t, res.Logs[len(res.Logs)-1], ErrNotRepaid.Error())
}

func TestRebalanceRejectsLpMint(t *testing.T) {
	e := New()
	require.NoError(t, e.Init(NewWorld().AccountMap(), nil))
	_, err := e.AccountsToUpdateForRebalance(engine.Pair{Inp: consts.InfMint, Out: consts.WSOLMint})
	assert.ErrorIs(t, err, &engine.InfErr{Code: engine.UnsupportedMintErr})
}

func TestWriteFixtures(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, NewWorld().WriteFixtures(dir))

	acc, err := fixtures.LoadTokenAcc(dir, "wsol-token-acc")
	require.NoError(t, err)
	assert.Equal(t, UserTokenAcc(consts.WSOLMint), acc.Addr)
	assert.Equal(t, User, acc.Owner)
	assert.Equal(t, consts.WSOLMint, acc.Mint)
}
