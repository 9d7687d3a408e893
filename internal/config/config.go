package config

import (
	"time"

	"inf1-verifier/internal/pkg/logger"
)

type LogConfig struct {
	Format   string `json:"format,default=console"` // 日志格式，支持 "console" 或 "json"
	LogDir   string `json:"log_dir,optional"`       // 日志目录（可为相对路径或绝对路径），为空只输出 stdout
	Level    string `json:"level,default=info"`     // 日志级别：debug / info / warn / error
	Compress bool   `json:"compress,optional"`      // 是否压缩旧日志文件
}

func (c *LogConfig) ToLogOption() logger.LogOption {
	return logger.LogOption{
		Format:   c.Format,
		LogDir:   c.LogDir,
		Level:    c.Level,
		Compress: c.Compress,
	}
}

// RpcConfig 表示 Solana RPC（取账户 / 模拟交易）配置
type RpcConfig struct {
	Endpoint  string `json:"endpoint,default=http://localhost:8899"` // 默认为本地 solana-test-validator
	TimeoutMs int    `json:"timeout_ms,default=30000"`               // 单次请求超时（毫秒）
}

func (c *RpcConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// FetchConfig 表示账户拉取并发配置
type FetchConfig struct {
	Workers int `json:"workers,default=16"` // 并发拉取账户的 worker 数
}

// SplLstConfig SPL stake pool LST 的 mint 与 stake pool 账户
type SplLstConfig struct {
	Mint string `json:"mint"`
	Pool string `json:"pool"`
}

// Config 是主配置结构体，用于驱动校验流程
type Config struct {
	LogConf   LogConfig   `json:"logger"` // 日志配置
	RpcConf   RpcConfig   `json:"rpc"`    // RPC 配置
	FetchConf FetchConfig `json:"fetch"`  // 拉取配置

	FixturesDir string `json:"fixtures_dir,default=test-fixtures"`   // 账户快照目录
	Scenarios   string `json:"scenarios,default=etc/scenarios.yaml"` // 场景清单
	Cases       string `json:"cases,default=etc/cases.yaml"`         // 引擎录制结果

	SplLsts []SplLstConfig `json:"spl_lsts,optional"` // 初始化引擎时传入的 SPL LST 数据

	// 离线模式：不连 RPC，账户取自 FixturesDir，交易在本地 bank 上由 enginetest 程序执行
	// 只适用于 cmd/record 从 enginetest 录制的 Cases
	Offline bool `json:"offline,optional"`
}
