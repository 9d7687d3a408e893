package tools

import (
	"inf1-verifier/internal/chain"
	"inf1-verifier/internal/codec"
	"inf1-verifier/internal/consts"
	"inf1-verifier/internal/pkg/types"
)

// IsTokenProgram 判断 owner 是否为 SPL Token 程序。
// 支持 Token v1（Tokenkeg...）和 Token-2022（Tokenz...）
func IsTokenProgram(owner types.Pubkey) bool {
	return owner == consts.TokenProgram || owner == consts.TokenProgram2022
}

// IsTokenAccount Token-2022 的扩展数据追加在 165 字节之后，只校验下限
func IsTokenAccount(rec chain.AccountRecord) bool {
	return IsTokenProgram(rec.Owner) && len(rec.Data) >= codec.TokenAccountLen
}

// IsMint mint 与 token 账户都带 Token-2022 扩展时长度会重叠，依据 account type 字节区分
func IsMint(rec chain.AccountRecord) bool {
	if !IsTokenProgram(rec.Owner) {
		return false
	}
	switch {
	case len(rec.Data) == codec.MintLen:
		return true
	case len(rec.Data) > codec.TokenAccountLen:
		return rec.Data[codec.TokenAccountLen] == accountTypeMint
	}
	return false
}

// Token-2022 扩展账户在第 165 字节记录 account type
const accountTypeMint = 1
