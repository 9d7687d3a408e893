package types

import (
	"fmt"

	"github.com/mr-tron/base58"
)

type Hash [32]byte

// NullBlockhash 全 0 的 blockhash，仅用于模拟执行（replaceRecentBlockhash=true），不可用于提交
var NullBlockhash = Hash{}

func (h Hash) String() string {
	return base58.Encode(h[:])
}

func (h Hash) Equals(other Hash) bool {
	return h == other
}

func HashFromBase58(s string) (Hash, error) {
	var h Hash
	data, err := base58.Decode(s)
	if err != nil {
		return h, err
	}
	if len(data) != 32 {
		return h, fmt.Errorf("invalid hash length: got %d, want 32", len(data))
	}
	copy(h[:], data)
	return h, nil
}
