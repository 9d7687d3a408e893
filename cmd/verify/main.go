package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/zeromicro/go-zero/core/conf"

	"inf1-verifier/internal/config"
	"inf1-verifier/internal/pkg/logger"
	"inf1-verifier/internal/scenario"
	"inf1-verifier/internal/svc"
)

var (
	configFile   = flag.String("f", "etc/verify.yaml", "the config file")
	scenarioFile = flag.String("s", "", "the scenario manifest, overrides config")
)

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
	if *scenarioFile != "" {
		c.Scenarios = *scenarioFile
	}

	if err := logger.Init(c.LogConf.ToLogOption()); err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		return 2
	}
	defer logger.Sync()

	serviceContext, err := svc.NewServiceContext(c)
	if err != nil {
		logger.Errorf("服务上下文初始化失败: %v", err)
		return 2
	}
	manifest, err := scenario.LoadManifest(c.Scenarios)
	if err != nil {
		logger.Errorf("场景清单加载失败: %v", err)
		return 2
	}

	// 收到退出信号时取消尚未开始的用例
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Infof("开始校验: cases=%d, rpc=%s", len(manifest.Cases), c.RpcConf.Endpoint)
	results := scenario.Run(ctx, serviceContext.Deps(), manifest)

	failed := 0
	for _, r := range results {
		if !r.Passed() {
			failed++
		}
	}
	logger.Infof("校验结束: total=%d, passed=%d, failed=%d", len(results), len(results)-failed, failed)
	if failed > 0 {
		return 1
	}
	return 0
}
