package localsim

import (
	"inf1-verifier/internal/chain"
	"inf1-verifier/internal/codec"
	"inf1-verifier/internal/consts"
	"inf1-verifier/internal/pkg/types"
)

// 与 validator 上 165 / 82 字节账户的免租金额一致
const (
	TokenAccountRentLamports uint64 = 2039280
	MintRentLamports         uint64 = 1461600
)

// TokenAccountRecord 构造已初始化的 SPL token 账户
func TokenAccountRecord(mint, owner types.Pubkey, amount uint64) chain.AccountRecord {
	return chain.AccountRecord{
		Data: codec.EncodeTokenAccount(codec.TokenAccount{
			Mint:   mint,
			Owner:  owner,
			Amount: amount,
			State:  codec.AccountStateInitialized,
		}),
		Owner:    consts.TokenProgram,
		Lamports: TokenAccountRentLamports,
	}
}

// MintRecord 构造已初始化的 mint，authority 为零值时表示不可增发
func MintRecord(authority types.Pubkey, supply uint64, decimals uint8) chain.AccountRecord {
	m := codec.Mint{
		Supply:        supply,
		Decimals:      decimals,
		IsInitialized: 1,
	}
	if !authority.IsZero() {
		m.MintAuthority = codec.SomePubkey(authority)
	}
	return chain.AccountRecord{
		Data:     codec.EncodeMint(m),
		Owner:    consts.TokenProgram,
		Lamports: MintRentLamports,
	}
}
