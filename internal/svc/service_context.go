package svc

import (
	"fmt"

	"github.com/blocto/solana-go-sdk/client"

	"inf1-verifier/internal/chain"
	"inf1-verifier/internal/config"
	"inf1-verifier/internal/engine"
	"inf1-verifier/internal/engine/enginetest"
	"inf1-verifier/internal/engine/recorded"
	"inf1-verifier/internal/fetcher"
	"inf1-verifier/internal/fixtures"
	"inf1-verifier/internal/pkg/logger"
	"inf1-verifier/internal/pkg/types"
	"inf1-verifier/internal/scenario"
	"inf1-verifier/internal/simulator"
	"inf1-verifier/internal/verifier"
)

// ServiceContext 包含校验流程用到的全部资源
type ServiceContext struct {
	Config    config.Config
	Client    *client.Client
	Fetcher   *fetcher.Fetcher
	Simulator *simulator.Simulator
	Engine    engine.Engine
	Verifier  *verifier.Verifier
	SplLsts   engine.SplLsts
}

// NewServiceContext 创建 RPC 客户端、引擎与校验器
func NewServiceContext(c config.Config) (*ServiceContext, error) {
	// 1. 引擎：回放录制结果
	cases, err := recorded.LoadCases(c.Cases)
	if err != nil {
		logger.Errorf("[ServiceContext] 加载引擎录制结果失败: %v", err)
		return nil, err
	}
	eng := recorded.New(cases)

	// 2. SPL LST 数据
	splLsts, err := ParseSplLsts(c.SplLsts)
	if err != nil {
		return nil, err
	}

	// 3. 取账户与模拟：离线走快照上的本地 bank，否则 RPC 共用一个客户端
	var (
		cli *client.Client
		f   *fetcher.Fetcher
		sim *simulator.Simulator
	)
	if c.Offline {
		accs, err := fixtures.LoadDir(c.FixturesDir)
		if err != nil {
			logger.Errorf("[ServiceContext] 加载账户快照失败: dir=%s, err=%v", c.FixturesDir, err)
			return nil, err
		}
		bank := enginetest.NewBank(accs)
		f = fetcher.New(bank, c.FetchConf.Workers)
		sim = simulator.New(bank)
		logger.Infof("[ServiceContext] 离线模式: fixtures=%s, accounts=%d", c.FixturesDir, accs.Len())
	} else {
		cli = client.NewClient(c.RpcConf.Endpoint)
		if cli == nil {
			return nil, fmt.Errorf("rpc client init failed: %s", c.RpcConf.Endpoint)
		}
		f = fetcher.New(chain.NewRpcSource(cli, c.RpcConf.Timeout()), c.FetchConf.Workers)
		sim = simulator.New(simulator.NewRpcBackend(cli, c.RpcConf.Timeout()))
	}

	ctx := &ServiceContext{
		Config:    c,
		Client:    cli,
		Fetcher:   f,
		Simulator: sim,
		Engine:    eng,
		Verifier:  verifier.New(f, sim, eng, eng.LpMint()),
		SplLsts:   splLsts,
	}
	logger.Infof("[ServiceContext] 初始化完成: offline=%v, rpc=%s, workers=%d, spl=%d", c.Offline, c.RpcConf.Endpoint, c.FetchConf.Workers, len(splLsts))
	return ctx, nil
}

// Deps 供 scenario 使用的依赖集合
func (ctx *ServiceContext) Deps() *scenario.Deps {
	return &scenario.Deps{
		Engine:      ctx.Engine,
		Fetcher:     ctx.Fetcher,
		Verifier:    ctx.Verifier,
		FixturesDir: ctx.Config.FixturesDir,
		SplLsts:     ctx.SplLsts,
	}
}

func ParseSplLsts(list []config.SplLstConfig) (engine.SplLsts, error) {
	out := make(engine.SplLsts, len(list))
	for _, l := range list {
		mint, err := types.TryPubkeyFromBase58(l.Mint)
		if err != nil {
			return nil, fmt.Errorf("spl lst mint: %w", err)
		}
		pool, err := types.TryPubkeyFromBase58(l.Pool)
		if err != nil {
			return nil, fmt.Errorf("spl lst %s pool: %w", l.Mint, err)
		}
		out[mint] = pool
	}
	return out, nil
}
