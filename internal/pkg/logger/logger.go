package logger

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOption 日志初始化参数
type LogOption struct {
	Format   string // "console" 或 "json"
	LogDir   string // 日志目录，为空时只输出到 stdout
	Level    string // debug / info / warn / error
	Compress bool   // 是否压缩轮转后的旧日志
}

const (
	defaultLogFile    = "verify.log"
	defaultMaxSizeMB  = 100
	defaultMaxBackups = 10
	defaultMaxAgeDays = 7
)

// 未调用 Init 之前为 nop logger，测试和库代码可直接使用
var sugar atomic.Pointer[zap.SugaredLogger]

func init() {
	sugar.Store(zap.NewNop().Sugar())
}

// Init 根据 LogOption 初始化全局 logger
func Init(opt LogOption) error {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(strings.ToLower(opt.Level))); err != nil {
		level.SetLevel(zapcore.InfoLevel)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder
	if opt.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	syncers := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}
	if opt.LogDir != "" {
		if err := os.MkdirAll(opt.LogDir, 0o755); err != nil {
			return err
		}
		syncers = append(syncers, zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(opt.LogDir, defaultLogFile),
			MaxSize:    defaultMaxSizeMB,
			MaxBackups: defaultMaxBackups,
			MaxAge:     defaultMaxAgeDays,
			Compress:   opt.Compress,
		}))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(syncers...), level)
	l := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	sugar.Store(l.Sugar())
	return nil
}

func Debugf(template string, args ...interface{}) {
	sugar.Load().Debugf(template, args...)
}

func Infof(template string, args ...interface{}) {
	sugar.Load().Infof(template, args...)
}

func Warnf(template string, args ...interface{}) {
	sugar.Load().Warnf(template, args...)
}

func Errorf(template string, args ...interface{}) {
	sugar.Load().Errorf(template, args...)
}

// Sync 刷新缓冲，进程退出前调用
func Sync() {
	_ = sugar.Load().Sync()
}
