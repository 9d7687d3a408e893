package fetcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inf1-verifier/internal/chain"
	"inf1-verifier/internal/pkg/types"
)

type fakeSource struct {
	mu       sync.Mutex
	accounts map[types.Pubkey]chain.AccountRecord
	fail     map[types.Pubkey]error
	calls    map[types.Pubkey]int
	total    atomic.Int64
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		accounts: map[types.Pubkey]chain.AccountRecord{},
		fail:     map[types.Pubkey]error{},
		calls:    map[types.Pubkey]int{},
	}
}

func (s *fakeSource) GetAccount(ctx context.Context, addr types.Pubkey) (chain.AccountRecord, bool, error) {
	s.total.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[addr]++
	if err, ok := s.fail[addr]; ok {
		return chain.AccountRecord{}, false, err
	}
	rec, ok := s.accounts[addr]
	return rec, ok, nil
}

func pk(b byte) types.Pubkey {
	var p types.Pubkey
	p[0] = b
	return p
}

func TestFetchAll(t *testing.T) {
	src := newFakeSource()
	for i := byte(1); i <= 40; i++ {
		src.accounts[pk(i)] = chain.AccountRecord{Data: []byte{i}, Lamports: uint64(i)}
	}
	addrs := make([]types.Pubkey, 0)
	for i := byte(1); i <= 40; i++ {
		addrs = append(addrs, pk(i))
	}

	m, err := New(src, 4).Fetch(context.Background(), addrs)
	require.NoError(t, err)
	assert.Equal(t, 40, m.Len())
	for i := byte(1); i <= 40; i++ {
		assert.Equal(t, []byte{i}, m.MustGet(pk(i)).Data)
	}
}

func TestFetchDedup(t *testing.T) {
	src := newFakeSource()
	src.accounts[pk(1)] = chain.AccountRecord{Data: []byte{1}}
	src.accounts[pk(2)] = chain.AccountRecord{Data: []byte{2}}

	m, err := New(src, 0).Fetch(context.Background(), []types.Pubkey{pk(1), pk(2), pk(1), pk(1)})
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, 1, src.calls[pk(1)])
	assert.Equal(t, 1, src.calls[pk(2)])
}

func TestFetchEmpty(t *testing.T) {
	src := newFakeSource()
	m, err := New(src, 2).Fetch(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, int64(0), src.total.Load())
}

func TestFetchMissingFailsWhole(t *testing.T) {
	src := newFakeSource()
	src.accounts[pk(1)] = chain.AccountRecord{}
	src.accounts[pk(3)] = chain.AccountRecord{}

	m, err := New(src, 2).Fetch(context.Background(), []types.Pubkey{pk(1), pk(2), pk(3)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingAccount))

	var me *MissingAccountError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, pk(2), me.Address)
	assert.Equal(t, 0, m.Len())
}

func TestFetchTransportErrorWrapped(t *testing.T) {
	boom := errors.New("connection reset")
	src := newFakeSource()
	src.accounts[pk(1)] = chain.AccountRecord{}
	src.fail[pk(2)] = boom

	_, err := New(src, 2).Fetch(context.Background(), []types.Pubkey{pk(1), pk(2)})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, ErrMissingAccount))
}
