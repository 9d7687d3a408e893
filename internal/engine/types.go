package engine

import (
	"math"

	solanatypes "github.com/blocto/solana-go-sdk/types"

	"inf1-verifier/internal/pkg/types"
)

// Instruction 由引擎产出的指令，校验侧只负责排列进交易，不解析其内容
type Instruction = solanatypes.Instruction

// no-op 限价：让链上程序放行，由校验逻辑负责发现报价与执行结果不一致
const (
	NoLimitExactIn      uint64 = 0
	NoLimitExactOut     uint64 = math.MaxUint64
	NoMinStartingOutLst uint64 = 0
	NoMaxStartingInpLst uint64 = math.MaxUint64
)

// Pair 交易的两条腿，inp 被消耗，out 被产出
type Pair struct {
	Inp types.Pubkey `yaml:"inp"`
	Out types.Pubkey `yaml:"out"`
}

// FeeMint 协议手续费计价的一侧
type FeeMint uint8

const (
	FeeMintInp FeeMint = iota
	FeeMintOut
)

func (f FeeMint) String() string {
	switch f {
	case FeeMintInp:
		return "inp"
	case FeeMintOut:
		return "out"
	default:
		return "unknown"
	}
}

// Of 返回手续费所在一侧的 mint
func (f FeeMint) Of(p Pair) types.Pubkey {
	if f == FeeMintInp {
		return p.Inp
	}
	return p.Out
}

func (f FeeMint) MarshalText() ([]byte, error) {
	if f != FeeMintInp && f != FeeMintOut {
		return nil, &InfErr{Code: InternalErr, Detail: "invalid fee mint " + f.String()}
	}
	return []byte(f.String()), nil
}

func (f *FeeMint) UnmarshalText(text []byte) error {
	switch string(text) {
	case "inp":
		*f = FeeMintInp
	case "out":
		*f = FeeMintOut
	default:
		return &InfErr{Code: InternalErr, Detail: "invalid fee mint " + string(text)}
	}
	return nil
}

type Quote struct {
	Inp         uint64
	Out         uint64
	ProtocolFee uint64
	FeeMint     FeeMint
	Mints       Pair
}

type QuoteArgs struct {
	Amt   uint64
	Mints Pair
}

type TokenAccs struct {
	Inp types.Pubkey
	Out types.Pubkey
}

type TradeArgs struct {
	Amt       uint64
	Limit     uint64
	Mints     Pair
	Signer    types.Pubkey
	TokenAccs TokenAccs
}

type RebalanceQuote struct {
	Inp   uint64
	Out   uint64
	Mints Pair
}

type RebalanceQuoteArgs struct {
	Out   uint64
	Mints Pair
}

type RebalanceArgs struct {
	Out               uint64
	MinStartingOutLst uint64
	MaxStartingInpLst uint64
	Mints             Pair
	WithdrawTo        types.Pubkey
}

// RebalanceIxs rebalance 的首尾两条指令，中间由调用方插入注资转账
type RebalanceIxs struct {
	Start Instruction
	End   Instruction
}

// SplLsts SPL stake pool LST：mint -> stake pool 账户
type SplLsts map[types.Pubkey]types.Pubkey
