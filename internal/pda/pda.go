package pda

import (
	"github.com/blocto/solana-go-sdk/common"

	"inf1-verifier/internal/consts"
	"inf1-verifier/internal/engine"
	"inf1-verifier/internal/pkg/types"
)

// Deriver 池相关派生地址，由定价引擎实现（同一 mint 永远得到同一地址，不访问网络）
type Deriver interface {
	FindPoolReservesAta(mint types.Pubkey) (types.Pubkey, uint8, error)
	FindProtocolFeeAccumulatorAta(mint types.Pubkey) (types.Pubkey, uint8, error)
}

// Std 与引擎一致的派生算法：ATA seeds [owner, token program, mint]
// reserves 的 owner 是 pool state，手续费累加账户的 owner 是 protocol fee PDA
type Std struct {
	PoolState    types.Pubkey
	ProtocolFee  types.Pubkey
	TokenProgram types.Pubkey
	AtaProgram   types.Pubkey
}

func NewStd() Std {
	return Std{
		PoolState:    consts.PoolState,
		ProtocolFee:  consts.ProtocolFee,
		TokenProgram: consts.TokenProgram,
		AtaProgram:   consts.AssociatedTokenProgram,
	}
}

func (s Std) FindPoolReservesAta(mint types.Pubkey) (types.Pubkey, uint8, error) {
	return s.findAta(s.PoolState, mint)
}

func (s Std) FindProtocolFeeAccumulatorAta(mint types.Pubkey) (types.Pubkey, uint8, error) {
	return s.findAta(s.ProtocolFee, mint)
}

func (s Std) findAta(owner, mint types.Pubkey) (types.Pubkey, uint8, error) {
	addr, bump, err := common.FindProgramAddress(
		[][]byte{owner[:], s.TokenProgram[:], mint[:]},
		s.AtaProgram.ToSdk(),
	)
	if err != nil {
		return types.Pubkey{}, 0, &engine.InfErr{Code: engine.NoValidPdaErr, Detail: err.Error()}
	}
	return types.PubkeyFromSdk(addr), bump, nil
}

// Addresses 封装调用方约定：reserves / 手续费账户 / 池账户（LP mint 特判）
type Addresses struct {
	Deriver Deriver
}

func (a Addresses) PoolReserves(mint types.Pubkey) (types.Pubkey, error) {
	addr, _, err := a.Deriver.FindPoolReservesAta(mint)
	return addr, err
}

func (a Addresses) ProtocolFeeAccumulator(mint types.Pubkey) (types.Pubkey, error) {
	addr, _, err := a.Deriver.FindProtocolFeeAccumulatorAta(mint)
	return addr, err
}

// PoolAccount mint 为 LP mint 时池账户就是 mint 本身（读 supply），否则为 reserves（读余额）
func (a Addresses) PoolAccount(mint, lpMint types.Pubkey) (addr types.Pubkey, isLpMint bool, err error) {
	if mint == lpMint {
		return lpMint, true, nil
	}
	addr, err = a.PoolReserves(mint)
	return addr, false, err
}
