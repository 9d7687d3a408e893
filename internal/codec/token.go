package codec

import (
	"encoding/binary"

	"inf1-verifier/internal/pkg/types"
)

// SPL Token 账户与 Mint 的固定偏移，属于链上二进制约定，不可配置
const (
	tokenAccountMintOffset    = 0
	tokenAccountOwnerOffset   = 32
	tokenAccountBalanceOffset = 64
	mintSupplyOffset          = 36

	pubkeyWidth = 32
	u64Width    = 8
)

func readPubkey(data []byte, field string, offset int) (types.Pubkey, error) {
	if err := checkLen(data, field, offset, pubkeyWidth); err != nil {
		return types.Pubkey{}, err
	}
	var pk types.Pubkey
	copy(pk[:], data[offset:offset+pubkeyWidth])
	return pk, nil
}

func readU64(data []byte, field string, offset int) (uint64, error) {
	if err := checkLen(data, field, offset, u64Width); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(data[offset : offset+u64Width]), nil
}

func writeU64(data []byte, field string, offset int, v uint64) ([]byte, error) {
	if err := checkLen(data, field, offset, u64Width); err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	copy(out, data)
	binary.LittleEndian.PutUint64(out[offset:offset+u64Width], v)
	return out, nil
}

func TokenAccountMint(data []byte) (types.Pubkey, error) {
	return readPubkey(data, "token account mint", tokenAccountMintOffset)
}

func TokenAccountOwner(data []byte) (types.Pubkey, error) {
	return readPubkey(data, "token account owner", tokenAccountOwnerOffset)
}

func TokenAccountBalance(data []byte) (uint64, error) {
	return readU64(data, "token account balance", tokenAccountBalanceOffset)
}

func MintSupply(data []byte) (uint64, error) {
	return readU64(data, "mint supply", mintSupplyOffset)
}

// SetTokenAccountBalance 返回修改余额后的副本，原数据不变
func SetTokenAccountBalance(data []byte, amt uint64) ([]byte, error) {
	return writeU64(data, "token account balance", tokenAccountBalanceOffset, amt)
}

// SetMintSupply 返回修改 supply 后的副本，原数据不变
func SetMintSupply(data []byte, supply uint64) ([]byte, error) {
	return writeU64(data, "mint supply", mintSupplyOffset, supply)
}
