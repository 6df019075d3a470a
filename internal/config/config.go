package config

import (
	"fmt"
	"time"

	"golang.org/x/text/language"

	"github.com/nerdneilsfield/go-book-translator/pkg/pipeline"
)

// Config 应用配置
type Config struct {
	// 后端选择
	Backend  string `mapstructure:"backend"`
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`

	// 语言
	SourceLang string `mapstructure:"source_lang"`
	TargetLang string `mapstructure:"target_lang"`

	// 滑动窗口
	WindowSize int `mapstructure:"window_size"`
	Overlap    int `mapstructure:"overlap"`

	// 并发与重试
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// 术语表
	GlossaryPath string `mapstructure:"glossary_path"`
	WrapTerms    bool   `mapstructure:"wrap_terms"`

	// 行为开关
	Stream           bool `mapstructure:"stream"`
	PropagateContext bool `mapstructure:"propagate_context"`
	Debug            bool `mapstructure:"debug"`

	// 透传给后端的额外参数
	Extra map[string]string `mapstructure:"extra"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Backend:          "ollama",
		SourceLang:       "auto",
		TargetLang:       "en",
		WindowSize:       50,
		Overlap:          10,
		MaxConcurrency:   4,
		MaxAttempts:      3,
		RequestTimeout:   5 * time.Minute,
		PropagateContext: true,
	}
}

// Validate 校验配置
// 窗口参数非法立即拒绝（任务开始前），目标语言必须是可解析的
// 语言标签，"auto" 仅允许作为源语言。
func (c *Config) Validate() error {
	if err := pipeline.ValidateWindowConfig(c.WindowSize, c.Overlap); err != nil {
		return err
	}
	if c.TargetLang == "" || c.TargetLang == "auto" {
		return pipeline.WrapError(pipeline.ErrInvalidConfig, pipeline.ErrCodeConfig,
			"target language must be an explicit language tag")
	}
	if _, err := language.Parse(c.TargetLang); err != nil {
		return pipeline.WrapError(pipeline.ErrInvalidConfig, pipeline.ErrCodeConfig,
			fmt.Sprintf("unparseable target language %q: %v", c.TargetLang, err))
	}
	if c.SourceLang != "" && c.SourceLang != "auto" {
		if _, err := language.Parse(c.SourceLang); err != nil {
			return pipeline.WrapError(pipeline.ErrInvalidConfig, pipeline.ErrCodeConfig,
				fmt.Sprintf("unparseable source language %q: %v", c.SourceLang, err))
		}
	}
	if c.MaxConcurrency < 1 {
		return pipeline.WrapError(pipeline.ErrInvalidConfig, pipeline.ErrCodeConfig,
			fmt.Sprintf("max_concurrency must be >= 1, got %d", c.MaxConcurrency))
	}
	return nil
}

// JobConfig 派生一份任务配置
func (c *Config) JobConfig() pipeline.JobConfig {
	jc := pipeline.DefaultJobConfig()
	jc.SourceLanguage = c.SourceLang
	jc.TargetLanguage = c.TargetLang
	jc.WindowSize = c.WindowSize
	jc.Overlap = c.Overlap
	jc.MaxAttempts = c.MaxAttempts
	jc.PropagateContext = c.PropagateContext
	jc.Stream = c.Stream
	return jc
}
