package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load 加载配置文件
// configPath 为空时在 home 目录和当前目录搜索 .booktrans.yaml，
// 找不到配置文件时回落到默认值；环境变量 BOOKTRANS_* 可覆盖。
func Load(configPath string) (*Config, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault("backend", defaults.Backend)
	v.SetDefault("source_lang", defaults.SourceLang)
	v.SetDefault("target_lang", defaults.TargetLang)
	v.SetDefault("window_size", defaults.WindowSize)
	v.SetDefault("overlap", defaults.Overlap)
	v.SetDefault("max_concurrency", defaults.MaxConcurrency)
	v.SetDefault("max_attempts", defaults.MaxAttempts)
	v.SetDefault("request_timeout", defaults.RequestTimeout)
	v.SetDefault("propagate_context", defaults.PropagateContext)

	v.SetEnvPrefix("BOOKTRANS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath("$HOME")
		v.AddConfigPath(".")
		v.SetConfigName(".booktrans")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		// 搜索路径下没有配置文件不算错误，读到了但解析失败必须报错
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
