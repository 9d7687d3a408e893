package codec

import (
	"fmt"

	"github.com/near/borsh-go"

	"inf1-verifier/internal/pkg/types"
)

const (
	TokenAccountLen = 165
	MintLen         = 82
)

// 账户状态（TokenAccount.State）
const (
	AccountStateUninitialized uint8 = 0
	AccountStateInitialized   uint8 = 1
	AccountStateFrozen        uint8 = 2
)

// COptionPubkey 对应 SPL 的 COption<Pubkey>：u32 tag + 32 字节
type COptionPubkey struct {
	Tag uint32
	Key types.Pubkey
}

func SomePubkey(pk types.Pubkey) COptionPubkey {
	return COptionPubkey{Tag: 1, Key: pk}
}

func (o COptionPubkey) IsSome() bool {
	return o.Tag == 1
}

// COptionU64 对应 COption<u64>：u32 tag + u64
type COptionU64 struct {
	Tag   uint32
	Value uint64
}

func (o COptionU64) IsSome() bool {
	return o.Tag == 1
}

// TokenAccount SPL Token 账户完整头部（165 字节）
type TokenAccount struct {
	Mint            types.Pubkey
	Owner           types.Pubkey
	Amount          uint64
	Delegate        COptionPubkey
	State           uint8
	IsNative        COptionU64
	DelegatedAmount uint64
	CloseAuthority  COptionPubkey
}

// Mint SPL Token Mint 完整头部（82 字节）
type Mint struct {
	MintAuthority   COptionPubkey
	Supply          uint64
	Decimals        uint8
	IsInitialized   uint8
	FreezeAuthority COptionPubkey
}

func DecodeTokenAccount(data []byte) (acc TokenAccount, err error) {
	if err = checkLen(data, "token account", 0, TokenAccountLen); err != nil {
		return acc, err
	}
	if err = borsh.Deserialize(&acc, data[:TokenAccountLen]); err != nil {
		return acc, fmt.Errorf("%w: token account: %v", ErrDecode, err)
	}
	return acc, nil
}

func DecodeMint(data []byte) (m Mint, err error) {
	if err = checkLen(data, "mint", 0, MintLen); err != nil {
		return m, err
	}
	if err = borsh.Deserialize(&m, data[:MintLen]); err != nil {
		return m, fmt.Errorf("%w: mint: %v", ErrDecode, err)
	}
	return m, nil
}

func EncodeTokenAccount(acc TokenAccount) []byte {
	return mustSerialize(acc)
}

func EncodeMint(m Mint) []byte {
	return mustSerialize(m)
}

// 定长结构的序列化不会失败
func mustSerialize(v interface{}) []byte {
	data, err := borsh.Serialize(v)
	if err != nil {
		panic(fmt.Sprintf("borsh serialize %T: %v", v, err))
	}
	return data
}
