package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-book-translator/internal/config"
	"github.com/nerdneilsfield/go-book-translator/pkg/pipeline"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "ollama", cfg.Backend)
	assert.Equal(t, 50, cfg.WindowSize)
	assert.Equal(t, 10, cfg.Overlap)
	assert.True(t, cfg.PropagateContext)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		ok     bool
	}{
		{"default", func(c *config.Config) {}, true},
		{"overlap equals window", func(c *config.Config) { c.Overlap = c.WindowSize }, false},
		{"zero window", func(c *config.Config) { c.WindowSize = 0 }, false},
		{"auto target", func(c *config.Config) { c.TargetLang = "auto" }, false},
		{"empty target", func(c *config.Config) { c.TargetLang = "" }, false},
		{"gibberish target", func(c *config.Config) { c.TargetLang = "???" }, false},
		{"explicit source", func(c *config.Config) { c.SourceLang = "zh-CN" }, true},
		{"gibberish source", func(c *config.Config) { c.SourceLang = "not a tag" }, false},
		{"zero concurrency", func(c *config.Config) { c.MaxConcurrency = 0 }, false},
		{"chinese target", func(c *config.Config) { c.TargetLang = "zh-Hans" }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, pipeline.ErrInvalidConfig)
			}
		})
	}
}

func TestJobConfigDerivation(t *testing.T) {
	cfg := config.Default()
	cfg.SourceLang = "zh"
	cfg.TargetLang = "en"
	cfg.WindowSize = 20
	cfg.Overlap = 5
	cfg.MaxAttempts = 7
	cfg.Stream = true

	jc := cfg.JobConfig()
	assert.Equal(t, "zh", jc.SourceLanguage)
	assert.Equal(t, "en", jc.TargetLanguage)
	assert.Equal(t, 20, jc.WindowSize)
	assert.Equal(t, 5, jc.Overlap)
	assert.Equal(t, 7, jc.MaxAttempts)
	assert.True(t, jc.Stream)
	assert.True(t, jc.PropagateContext)
	// 退避预算沿用默认值
	assert.Equal(t, 500*time.Millisecond, jc.InitialBackoff)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "booktrans.yaml")
	data := []byte("backend: openai\ntarget_lang: zh\nwindow_size: 30\noverlap: 6\nstream: true\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Backend)
	assert.Equal(t, "zh", cfg.TargetLang)
	assert.Equal(t, 30, cfg.WindowSize)
	assert.Equal(t, 6, cfg.Overlap)
	assert.True(t, cfg.Stream)
	// 未出现的键回落到默认值
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.Equal(t, "auto", cfg.SourceLang)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformedDiscoveredConfig(t *testing.T) {
	// 搜索路径下发现的配置文件解析失败时必须报错，不能静默回落默认值
	home := t.TempDir()
	t.Setenv("HOME", home)
	data := []byte("backend: [unclosed\n  window_size 30\n")
	require.NoError(t, os.WriteFile(filepath.Join(home, ".booktrans.yaml"), data, 0o644))

	_, err := config.Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadMalformedExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("target_lang: [zh\n"), 0o644))

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("BOOKTRANS_TARGET_LANG", "ja")
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "ja", cfg.TargetLang)
}
