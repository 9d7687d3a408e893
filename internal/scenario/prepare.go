package scenario

import (
	"context"

	"inf1-verifier/internal/engine"
	"inf1-verifier/internal/verifier"
)

// initEngine 拉取 InitPks 并初始化引擎
func initEngine(ctx context.Context, eng engine.Updater, f verifier.AccountFetcher, splLsts engine.SplLsts) error {
	accs, err := f.Fetch(ctx, eng.InitPks())
	if err != nil {
		return err
	}
	return eng.Init(accs, splLsts)
}

// PrepareForTrade 初始化引擎并用最新拉取的账户更新 mints 交易对，每次校验前都要重新调用
func PrepareForTrade(ctx context.Context, eng engine.Updater, f verifier.AccountFetcher, mints engine.Pair, splLsts engine.SplLsts) error {
	if err := initEngine(ctx, eng, f, splLsts); err != nil {
		return err
	}
	addrs, err := eng.AccountsToUpdateForTrade(mints)
	if err != nil {
		return err
	}
	accs, err := f.Fetch(ctx, addrs)
	if err != nil {
		return err
	}
	return eng.UpdateForTrade(mints, accs)
}

// PrepareForRebalance 同 PrepareForTrade，针对 rebalance
func PrepareForRebalance(ctx context.Context, eng engine.Updater, f verifier.AccountFetcher, mints engine.Pair, splLsts engine.SplLsts) error {
	if err := initEngine(ctx, eng, f, splLsts); err != nil {
		return err
	}
	addrs, err := eng.AccountsToUpdateForRebalance(mints)
	if err != nil {
		return err
	}
	accs, err := f.Fetch(ctx, addrs)
	if err != nil {
		return err
	}
	return eng.UpdateForRebalance(mints, accs)
}
