package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger 创建日志记录器
// 默认 JSON 输出到 stderr；debug 模式切换为彩色控制台输出并带调用位置。
func NewLogger(debug bool) *zap.Logger {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	config.DisableCaller = true
	config.DisableStacktrace = true
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	if debug {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		config.Encoding = "console"
		config.DisableCaller = false
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	logger, err := config.Build()
	if err != nil {
		panic("日志系统初始化失败: " + err.Error())
	}
	return logger
}

// NewTestLogger 创建测试用的日志记录器（丢弃所有输出）
func NewTestLogger() *zap.Logger {
	return zap.NewNop()
}
