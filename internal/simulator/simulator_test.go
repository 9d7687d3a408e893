package simulator

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/blocto/solana-go-sdk/program/token"
	solanatypes "github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inf1-verifier/internal/chain"
	"inf1-verifier/internal/consts"
	"inf1-verifier/internal/pkg/types"
)

type fakeBackend struct {
	calls  int
	lastTx solanatypes.Transaction
	result BackendResult
	err    error
}

func (b *fakeBackend) SimulateTransaction(ctx context.Context, tx solanatypes.Transaction, addrs []types.Pubkey) (BackendResult, error) {
	b.calls++
	b.lastTx = tx
	return b.result, b.err
}

var (
	payer = types.PubkeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
	from  = types.PubkeyFromBase58("4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T")
	to    = types.PubkeyFromBase58("7dHbWXmci3dT8UFYWYZweBLXgycu7Y3iL6trKn1Y7ARj")
)

func transferIx(amt uint64) solanatypes.Instruction {
	return token.Transfer(token.TransferParam{
		From:   from.ToSdk(),
		To:     to.ToSdk(),
		Auth:   payer.ToSdk(),
		Amount: amt,
	})
}

func TestBuildSimTx(t *testing.T) {
	tx, err := BuildSimTx(payer, transferIx(1), transferIx(2))
	require.NoError(t, err)

	assert.Equal(t, payer.ToSdk(), tx.Message.Accounts[0])
	assert.Equal(t, consts.NullBlockhashStr, tx.Message.RecentBlockHash)
	assert.Len(t, tx.Message.Instructions, 2)
	require.Len(t, tx.Signatures, int(tx.Message.Header.NumRequireSignatures))
	for _, sig := range tx.Signatures {
		assert.Equal(t, make([]byte, signatureLen), []byte(sig))
	}

	encoded, err := EncodeTx(tx)
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
}

func TestBuildSimTxNoInstructions(t *testing.T) {
	_, err := BuildSimTx(payer)
	assert.ErrorIs(t, err, ErrNoInstructions)
}

func TestSimulateSuccess(t *testing.T) {
	rec := chain.AccountRecord{Data: []byte{1, 2}, Owner: consts.TokenProgram, Lamports: 5}
	backend := &fakeBackend{result: BackendResult{
		Logs:     []string{"Program log: ok"},
		Accounts: []*chain.AccountRecord{&rec, nil},
	}}
	sim := New(backend)

	res, err := sim.Simulate(context.Background(), payer, []solanatypes.Instruction{transferIx(3)}, []types.Pubkey{from, to})
	require.NoError(t, err)
	assert.Equal(t, 1, backend.calls)
	assert.Equal(t, []string{"Program log: ok"}, res.Logs)
	require.Len(t, res.Accounts, 2)
	assert.True(t, res.Accounts[0].Found)
	assert.Equal(t, from, res.Accounts[0].Address)
	assert.Equal(t, rec, res.Accounts[0].Record)
	assert.False(t, res.Accounts[1].Found)
	assert.NotEmpty(t, res.Tx)

	am := res.AccountMap()
	assert.Equal(t, 1, am.Len())
	assert.True(t, am.Has(from))
}

func TestSimulateExecutionError(t *testing.T) {
	backend := &fakeBackend{result: BackendResult{
		Err:  map[string]any{"InstructionError": []any{0, "Custom(1)"}},
		Logs: []string{"Program TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA failed: insufficient funds"},
	}}
	_, err := New(backend).Simulate(context.Background(), payer, []solanatypes.Instruction{transferIx(3)}, []types.Pubkey{from})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSimulation))

	var se *SimulationError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, backend.result.Logs, se.Logs)
	assert.NotEmpty(t, se.Tx)
	assert.Contains(t, se.Error(), "insufficient funds")
	assert.Equal(t, 1, backend.calls)
}

func TestSimulateTransportError(t *testing.T) {
	boom := errors.New("rpc down")
	_, err := New(&fakeBackend{err: boom}).Simulate(context.Background(), payer, []solanatypes.Instruction{transferIx(1)}, nil)
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, ErrSimulation))
}

func TestSimulateAccountCountMismatch(t *testing.T) {
	backend := &fakeBackend{result: BackendResult{}}
	_, err := New(backend).Simulate(context.Background(), payer, []solanatypes.Instruction{transferIx(1)}, []types.Pubkey{from})
	assert.Error(t, err)
}
