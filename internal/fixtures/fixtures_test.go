package fixtures

import (
	"context"
	"encoding/base64"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inf1-verifier/internal/chain"
	"inf1-verifier/internal/codec"
	"inf1-verifier/internal/consts"
	"inf1-verifier/internal/pkg/types"
)

var owner = types.PubkeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")

func tokenAccJSON(t *testing.T, addr types.Pubkey, amount uint64) string {
	t.Helper()
	data := codec.EncodeTokenAccount(codec.TokenAccount{
		Mint:   consts.WSOLMint,
		Owner:  owner,
		Amount: amount,
		State:  codec.AccountStateInitialized,
	})
	return `{
  "pubkey": "` + addr.String() + `",
  "account": {
    "lamports": 2039280,
    "data": ["` + base64.StdEncoding.EncodeToString(data) + `", "base64"],
    "owner": "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
    "executable": false,
    "rentEpoch": 18446744073709551615,
    "space": 165
  }
}`
}

func TestParseKeepsU64Exact(t *testing.T) {
	addr := types.PubkeyFromBase58("4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T")
	r, err := Parse([]byte(tokenAccJSON(t, addr, math.MaxUint64)))
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), r.Account.RentEpoch)
	assert.Equal(t, addr, r.Pubkey)

	pk, rec, err := r.ToAccount()
	require.NoError(t, err)
	assert.Equal(t, addr, pk)
	assert.Equal(t, consts.TokenProgram, rec.Owner)
	assert.Equal(t, uint64(math.MaxUint64), rec.RentEpoch)
	bal, err := codec.TokenAccountBalance(rec.Data)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), bal)

	out, err := r.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(out), `"rentEpoch":18446744073709551615`)

	again, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, r, again)
}

func TestRejectsUnknownEncoding(t *testing.T) {
	r := Record{Pubkey: owner, Account: Account{Data: [2]string{"AAAA", "base58"}}}
	_, _, err := r.ToAccount()
	assert.ErrorIs(t, err, ErrBadEncoding)
}

func TestFromAccountRoundTrip(t *testing.T) {
	_, rec, err := Record{Pubkey: owner, Account: Account{
		Lamports:  5,
		Data:      [2]string{base64.StdEncoding.EncodeToString([]byte{1, 2, 3}), "base64"},
		Owner:     consts.SystemProgram,
		RentEpoch: math.MaxUint64,
	}}.ToAccount()
	require.NoError(t, err)

	r := FromAccount(owner, rec)
	assert.Equal(t, uint64(3), r.Account.Space)
	_, back, err := r.ToAccount()
	require.NoError(t, err)
	assert.Equal(t, rec, back)
}

func TestLoadDirAndTokenAcc(t *testing.T) {
	dir := t.TempDir()
	a := types.PubkeyFromBase58("4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T")
	b := types.PubkeyFromBase58("7dHbWXmci3dT8UFYWYZweBLXgycu7Y3iL6trKn1Y7ARj")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wsol-token-acc.json"), []byte(tokenAccJSON(t, a, 10)), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte(tokenAccJSON(t, b, 20)), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644))

	m, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
	assert.True(t, m.Has(a))
	assert.True(t, m.Has(b))

	acc, err := LoadTokenAcc(dir, "wsol-token-acc")
	require.NoError(t, err)
	assert.Equal(t, TokenAcc{Addr: a, Owner: owner, Mint: consts.WSOLMint}, acc)

	src, err := NewSource(dir)
	require.NoError(t, err)
	_, found, err := src.GetAccount(context.Background(), b)
	require.NoError(t, err)
	assert.True(t, found)
	_, found, err = src.GetAccount(context.Background(), owner)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestWriteDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fx")
	rec := FromAccount(owner, codecRecord())
	require.NoError(t, WriteDir(dir, map[string]Record{"x": rec}))

	back, err := LoadNamed(dir, "x")
	require.NoError(t, err)
	assert.Equal(t, rec, back)
}

func codecRecord() chain.AccountRecord {
	return chain.AccountRecord{
		Data:      codec.EncodeMint(codec.Mint{Supply: 7, IsInitialized: 1}),
		Owner:     consts.TokenProgram,
		Lamports:  1,
		RentEpoch: math.MaxUint64,
	}
}

func TestLoadTokenAccRejectsNonToken(t *testing.T) {
	dir := t.TempDir()
	addr := types.PubkeyFromBase58("4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T")
	r := FromAccount(addr, chain.AccountRecord{Data: make([]byte, 165), Owner: consts.SystemProgram, Lamports: 1})
	require.NoError(t, Write(Path(dir, "pool-state"), r))

	_, err := LoadTokenAcc(dir, "pool-state")
	assert.Error(t, err)
}
