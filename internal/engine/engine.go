package engine

import (
	"inf1-verifier/internal/chain"
	"inf1-verifier/internal/pkg/types"
)

// Quoter 报价
type Quoter interface {
	QuoteTradeExactIn(args QuoteArgs) (Quote, error)
	QuoteTradeExactOut(args QuoteArgs) (Quote, error)
	QuoteRebalance(args RebalanceQuoteArgs) (RebalanceQuote, error)
}

// IxBuilder 构造指令
type IxBuilder interface {
	TradeExactInIx(args TradeArgs) (Instruction, error)
	TradeExactOutIx(args TradeArgs) (Instruction, error)
	RebalanceIxs(args RebalanceArgs) (RebalanceIxs, error)
}

// Updater 引擎状态的初始化与刷新
// 每次校验前都要重新走 AccountsToUpdateFor* -> 拉取 -> UpdateFor*，不复用旧快照
type Updater interface {
	InitPks() []types.Pubkey
	Init(accs chain.AccountMap, splLsts SplLsts) error
	AppendSplLsts(splLsts SplLsts)
	HasSplData(mints []types.Pubkey) []bool

	AccountsToUpdateForTrade(mints Pair) ([]types.Pubkey, error)
	UpdateForTrade(mints Pair, accs chain.AccountMap) error
	AccountsToUpdateForRebalance(mints Pair) ([]types.Pubkey, error)
	UpdateForRebalance(mints Pair, accs chain.AccountMap) error
}

// Engine 外部定价引擎的完整能力边界
type Engine interface {
	Quoter
	IxBuilder
	Updater

	FindPoolReservesAta(mint types.Pubkey) (types.Pubkey, uint8, error)
	FindProtocolFeeAccumulatorAta(mint types.Pubkey) (types.Pubkey, uint8, error)
	LpMint() types.Pubkey
}
