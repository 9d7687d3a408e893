package fixtures

import (
	"context"

	"inf1-verifier/internal/chain"
	"inf1-verifier/internal/pkg/types"
)

// Source 以快照目录为数据源的 chain.AccountSource
type Source struct {
	accounts chain.AccountMap
}

func NewSource(dir string) (*Source, error) {
	m, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}
	return &Source{accounts: m}, nil
}

func (s *Source) Accounts() chain.AccountMap {
	return s.accounts
}

func (s *Source) GetAccount(ctx context.Context, addr types.Pubkey) (chain.AccountRecord, bool, error) {
	rec, ok := s.accounts.Get(addr)
	return rec, ok, nil
}
