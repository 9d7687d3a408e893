package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/zeromicro/go-zero/core/conf"

	"inf1-verifier/internal/config"
	"inf1-verifier/internal/consts"
	"inf1-verifier/internal/engine/enginetest"
	"inf1-verifier/internal/engine/recorded"
	"inf1-verifier/internal/fetcher"
	"inf1-verifier/internal/pkg/logger"
	"inf1-verifier/internal/pkg/types"
	"inf1-verifier/internal/scenario"
	"inf1-verifier/internal/simulator"
	"inf1-verifier/internal/verifier"
)

// CasesHeader 写在录制结果开头，说明数据来源
const CasesHeader = `# 由 cmd/record 从离线 enginetest 引擎录制（1:1 兑换，协议费 10 bps），账户状态与 test-fixtures 同批写出
# 只能配合 offline 模式在本地 bank 上回放；连接真实 validator 之前需要用真实引擎重新录制
# ix.accounts 中可用占位符：$signer $inp_token_acc $out_token_acc $withdraw_to
`

var configFile = flag.String("f", "etc/verify.yaml", "the config file")

func main() {
	os.Exit(run())
}

func run() (code int) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("panic: %+v\nstack: %s", r, debug.Stack())
			code = 2
		}
	}()

	flag.Parse()

	var c config.Config
	conf.MustLoad(*configFile, &c)
	if err := logger.Init(c.LogConf.ToLogOption()); err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		return 2
	}
	defer logger.Sync()

	manifest, err := scenario.LoadManifest(c.Scenarios)
	if err != nil {
		logger.Errorf("场景清单加载失败: %v", err)
		return 2
	}

	// 1. 账户快照
	world := enginetest.NewWorld()
	if err := world.WriteFixtures(c.FixturesDir); err != nil {
		logger.Errorf("写出账户快照失败: dir=%s, err=%v", c.FixturesDir, err)
		return 2
	}

	// 2. 跑一遍清单，边校验边录制
	rec := recorded.NewRecorder(enginetest.New(), []types.Pubkey{consts.JupSOLMint, consts.LaineSOLMint})
	bank := world.Bank()
	f := fetcher.New(bank, c.FetchConf.Workers)
	deps := &scenario.Deps{
		Engine:      rec,
		Fetcher:     f,
		Verifier:    verifier.New(f, simulator.New(bank), rec, rec.LpMint()),
		FixturesDir: c.FixturesDir,
		SplLsts:     enginetest.SplLsts(),
	}
	results := scenario.Run(context.Background(), deps, manifest)
	for _, r := range results {
		if !r.Passed() {
			logger.Errorf("录制中止，用例未通过: %s, err=%v", r.Case.Name, r.Err)
			return 1
		}
	}

	// 3. 写出 Cases
	cases, err := rec.Cases()
	if err != nil {
		logger.Errorf("录制结果校验失败: %v", err)
		return 2
	}
	raw, err := cases.Marshal()
	if err != nil {
		logger.Errorf("录制结果序列化失败: %v", err)
		return 2
	}
	if err := os.WriteFile(c.Cases, append([]byte(CasesHeader), raw...), 0o644); err != nil {
		logger.Errorf("写出录制结果失败: path=%s, err=%v", c.Cases, err)
		return 2
	}
	logger.Infof("录制完成: cases=%s, fixtures=%s, scenarios=%d", c.Cases, c.FixturesDir, len(results))
	return 0
}
