package tools

import (
	"filippo.io/edwards25519"

	"inf1-verifier/internal/pkg/types"
)

// IsOnCurve 地址是否为合法的 ed25519 公钥；PDA 一定不在曲线上，不能由私钥签名
func IsOnCurve(pk types.Pubkey) bool {
	_, err := new(edwards25519.Point).SetBytes(pk[:])
	return err == nil
}
