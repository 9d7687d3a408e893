package consts

import (
	"math"
	"runtime"
)

// CpuCount 表示逻辑 CPU 核心数，用于控制并发任务调度上限
var CpuCount = runtime.NumCPU()

// MaxU64 用作 limit 的 no-op 值（exact-out 的 max inp、rebalance 的 maxStartingInpLst）
const MaxU64 uint64 = math.MaxUint64

// DefaultLocalRpc solana-test-validator 默认地址
const DefaultLocalRpc = "http://localhost:8899"
