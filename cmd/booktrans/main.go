package main

import (
	"os"

	"github.com/nerdneilsfield/go-book-translator/internal/cli"
	"github.com/nerdneilsfield/go-book-translator/internal/logger"
	"go.uber.org/zap"
)

// 构建时通过 -ldflags 注入
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	rootCmd := cli.NewRootCommand(Version, Commit, BuildDate)
	if err := rootCmd.Execute(); err != nil {
		// 命令内部各自持有日志器，这里只兜底报告启动/解析阶段的失败
		log := logger.NewLogger(false)
		log.Error("命令执行失败", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}
