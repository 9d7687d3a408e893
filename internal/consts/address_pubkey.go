package consts

import (
	"inf1-verifier/internal/pkg/types"
)

// 公钥形式的地址常量（types.Pubkey），用于链上比对、PDA 推导等场景。
var (
	// Programs
	SystemProgram          = types.PubkeyFromBase58(SystemProgramStr)
	TokenProgram           = types.PubkeyFromBase58(TokenProgramStr)
	TokenProgram2022       = types.PubkeyFromBase58(TokenProgram2022Str)
	AssociatedTokenProgram = types.PubkeyFromBase58(AssociatedTokenProgramStr)
	SplStakePoolProgram    = types.PubkeyFromBase58(SplStakePoolProgramStr)

	// INF
	InfProgram      = types.PubkeyFromBase58(InfProgramStr)
	PoolState       = types.PubkeyFromBase58(PoolStateStr)
	LstStateList    = types.PubkeyFromBase58(LstStateListStr)
	ProtocolFee     = types.PubkeyFromBase58(ProtocolFeeStr)
	InfMint         = types.PubkeyFromBase58(InfMintStr)
	JupSOLStakePool = types.PubkeyFromBase58(JupSOLStakePoolStr)

	// LST mints
	WSOLMint     = types.PubkeyFromBase58(WSOLMintStr)
	JupSOLMint   = types.PubkeyFromBase58(JupSOLMintStr)
	LaineSOLMint = types.PubkeyFromBase58(LaineSOLMintStr)
	MSOLMint     = types.PubkeyFromBase58(MSOLMintStr)
	STSOLMint    = types.PubkeyFromBase58(STSOLMintStr)
)
